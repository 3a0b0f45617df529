package wooapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"WooWithBizimHesap/internal/gateway"
	"WooWithBizimHesap/internal/metrics"
	"WooWithBizimHesap/internal/wc-api-go/client"
	"WooWithBizimHesap/internal/wc-api-go/options"
	"WooWithBizimHesap/internal/wooapi/models"
	optionsWoo "WooWithBizimHesap/internal/wooapi/options"
	"WooWithBizimHesap/pkg/logging"
	"golang.org/x/time/rate"
)

const (
	// MaxPerPage is the largest page and batch WooCommerce accepts.
	MaxPerPage = 100

	codeTermExists = "term_exists"
)

// API implements gateway.Commerce over the WooCommerce REST API v3.
type API struct {
	api     client.Client
	limiter *rate.Limiter
	logger  *logging.Logger
}

var _ gateway.Commerce = (*API)(nil)

// Config is what NewAPI needs from the WOOCOMMERCE section.
type Config struct {
	URL     string
	Key     string
	Secret  string
	RPS     int
	Timeout time.Duration
}

func NewAPI(cfg Config, logger *logging.Logger) *API {
	api := client.New(options.Basic{
		URL:    cfg.URL,
		Key:    cfg.Key,
		Secret: cfg.Secret,
		Options: options.Advanced{
			WPAPIPrefix: "/wp-json/",
			Version:     "wc/v3",
			Timeout:     cfg.Timeout,
		},
	})
	return newAPI(api, cfg.RPS, logger)
}

func newAPI(api client.Client, rps int, logger *logging.Logger) *API {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &API{api: api, limiter: rate.NewLimiter(limit, 1), logger: logger.WithField("remote", gateway.RemoteWoo)}
}

// CheckRPS blocks until the store's request budget allows another call.
func (w *API) CheckRPS(ctx context.Context) error {
	return w.limiter.Wait(ctx)
}

func (w *API) fail(op string, status int, code, msg string) *gateway.Error {
	metrics.RemoteErrorsTotal.WithLabelValues(gateway.RemoteWoo, op).Inc()
	e := &gateway.Error{Remote: gateway.RemoteWoo, Op: op, Status: status, Code: code, Message: msg}
	w.logger.Warn(e.Error())
	return e
}

// call performs one request and decodes a 2xx body into out. Any failure is
// returned as *gateway.Error; the raw body is returned for successful calls.
func (w *API) call(ctx context.Context, op, method, endpoint string, params url.Values, body, out interface{}) ([]byte, *gateway.Error) {
	w.logger.Debugf("Start %s %s %s", op, method, endpoint)
	defer w.logger.Debugf("End %s", op)

	if err := w.CheckRPS(ctx); err != nil {
		return nil, w.fail(op, 0, "", err.Error())
	}

	var r *http.Response
	var err error
	switch method {
	case http.MethodGet:
		r, err = w.api.Get(ctx, endpoint, params)
	case http.MethodPost:
		r, err = w.api.Post(ctx, endpoint, params, body)
	case http.MethodPut:
		r, err = w.api.Put(ctx, endpoint, body)
	case http.MethodDelete:
		r, err = w.api.Delete(ctx, endpoint, params)
	default:
		return nil, w.fail(op, 0, "", "unsupported method "+method)
	}
	if err != nil {
		return nil, w.fail(op, 0, "", err.Error())
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			w.logger.Errorf("failed Body.Close()")
		}
	}(r.Body)

	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, w.fail(op, r.StatusCode, "", "read body: "+err.Error())
	}

	if r.StatusCode < 200 || r.StatusCode > 299 {
		var ErrorWoo models.ErrorWoo
		if err := json.Unmarshal(bodyBytes, &ErrorWoo); err != nil || ErrorWoo.Code == "" {
			return nil, w.fail(op, r.StatusCode, "", snippet(bodyBytes))
		}
		e := w.fail(op, r.StatusCode, ErrorWoo.Code, ErrorWoo.Message)
		if ErrorWoo.Code == codeTermExists && ErrorWoo.Data.ResourceId > 0 {
			e.Message = strconv.FormatInt(ErrorWoo.Data.ResourceId, 10)
		}
		return nil, e
	}

	if out != nil {
		if err := json.Unmarshal(bodyBytes, out); err != nil {
			return nil, w.fail(op, r.StatusCode, "", "decode: "+err.Error())
		}
	}
	return bodyBytes, nil
}

func snippet(b []byte) string {
	if len(b) > 200 {
		return string(b[:200]) + "..."
	}
	if len(b) == 0 {
		return "empty body"
	}
	return string(b)
}

func pageValues(page, perPage int, opts ...optionsWoo.Option) url.Values {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	opts = append([]optionsWoo.Option{optionsWoo.Page(page), optionsWoo.PerPage(perPage)}, opts...)
	return optionsWoo.Values(opts...)
}

// asError keeps typed nil out of the error interface.
func asError(e *gateway.Error) error {
	if e == nil {
		return nil
	}
	return e
}

func (w *API) ListProducts(ctx context.Context, page, perPage int) ([]models.Product, error) {
	var products []models.Product
	_, e := w.call(ctx, "ListProducts", http.MethodGet, "products", pageValues(page, perPage), nil, &products)
	return products, asError(e)
}

func (w *API) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	_, e := w.call(ctx, "GetProduct", http.MethodGet, fmt.Sprintf("products/%d", id), nil, nil, &product)
	if e != nil {
		if e.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, e
	}
	return &product, nil
}

func (w *API) GetProductBySku(ctx context.Context, sku string) (*models.Product, error) {
	if sku == "" {
		return nil, nil
	}
	var products []models.Product
	_, e := w.call(ctx, "GetProductBySku", http.MethodGet, "products", optionsWoo.Values(optionsWoo.Sku(sku)), nil, &products)
	if e != nil {
		return nil, e
	}
	for i := range products {
		if products[i].Sku == sku {
			return &products[i], nil
		}
	}
	return nil, nil
}

func (w *API) CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error) {
	if p.Name == "" {
		return nil, w.fail("CreateProduct", 0, "", "product name is empty")
	}
	var product models.Product
	if _, e := w.call(ctx, "CreateProduct", http.MethodPost, "products", nil, p, &product); e != nil {
		return nil, e
	}
	return &product, nil
}

func (w *API) UpdateProduct(ctx context.Context, id int64, p *models.Product) (*models.Product, error) {
	if id == 0 {
		return nil, w.fail("UpdateProduct", 0, "", "product id is empty")
	}
	var product models.Product
	_, e := w.call(ctx, "UpdateProduct", http.MethodPut, fmt.Sprintf("products/%d", id), nil, p, &product)
	if e != nil {
		if e.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, e
	}
	return &product, nil
}

func (w *API) BatchUpdateProducts(ctx context.Context, items []models.Product) (*models.BatchResult, error) {
	if len(items) > MaxPerPage {
		return nil, w.fail("BatchUpdateProducts", 0, "", fmt.Sprintf("batch of %d exceeds %d", len(items), MaxPerPage))
	}
	var result models.BatchResult
	_, e := w.call(ctx, "BatchUpdateProducts", http.MethodPost, "products/batch", nil, models.BatchRequest{Update: items}, &result)
	if e != nil {
		return nil, e
	}
	return &result, nil
}

// ListVariations walks every page of the product's variations.
func (w *API) ListVariations(ctx context.Context, productID int64) ([]models.Variation, error) {
	var all []models.Variation
	for page := 1; ; page++ {
		var variations []models.Variation
		endpoint := fmt.Sprintf("products/%d/variations", productID)
		if _, e := w.call(ctx, "ListVariations", http.MethodGet, endpoint, pageValues(page, MaxPerPage), nil, &variations); e != nil {
			return nil, e
		}
		all = append(all, variations...)
		if len(variations) < MaxPerPage {
			return all, nil
		}
	}
}

func (w *API) BatchUpdateVariations(ctx context.Context, productID int64, items []models.Variation) (*models.BatchResult, error) {
	if len(items) > MaxPerPage {
		return nil, w.fail("BatchUpdateVariations", 0, "", fmt.Sprintf("batch of %d exceeds %d", len(items), MaxPerPage))
	}
	var result models.BatchResult
	endpoint := fmt.Sprintf("products/%d/variations/batch", productID)
	if _, e := w.call(ctx, "BatchUpdateVariations", http.MethodPost, endpoint, nil, models.BatchRequest{Update: items}, &result); e != nil {
		return nil, e
	}
	return &result, nil
}

func (w *API) ListOrders(ctx context.Context, page, perPage int, filters ...optionsWoo.Option) ([]models.Order, error) {
	var orders []models.Order
	_, e := w.call(ctx, "ListOrders", http.MethodGet, "orders", pageValues(page, perPage, filters...), nil, &orders)
	return orders, asError(e)
}

// GetOrderRaw returns the decoded order and the body it was decoded from.
func (w *API) GetOrderRaw(ctx context.Context, id int64) (*models.Order, json.RawMessage, error) {
	var o models.Order
	raw, e := w.call(ctx, "GetOrderRaw", http.MethodGet, fmt.Sprintf("orders/%d", id), nil, nil, &o)
	if e != nil {
		if e.Status == http.StatusNotFound {
			return nil, nil, nil
		}
		return nil, nil, e
	}
	return &o, json.RawMessage(raw), nil
}

func (w *API) UpdateOrderStatus(ctx context.Context, id int64, status string) bool {
	var o models.Order
	_, e := w.call(ctx, "UpdateOrderStatus", http.MethodPut, fmt.Sprintf("orders/%d", id), nil, models.OrderStatusUpdate{Status: status}, &o)
	return e == nil && o.Status == status
}

func (w *API) ListCategories(ctx context.Context, page, perPage int) ([]models.ProductCategory, error) {
	var cats []models.ProductCategory
	_, e := w.call(ctx, "ListCategories", http.MethodGet, "products/categories", pageValues(page, perPage), nil, &cats)
	return cats, asError(e)
}

// CreateCategory returns the existing category when one with the same name
// already exists under the parent.
func (w *API) CreateCategory(ctx context.Context, c *models.ProductCategory) (*models.ProductCategory, error) {
	if c.Name == "" {
		return nil, w.fail("CreateCategory", 0, "", "category name is empty")
	}
	var cat models.ProductCategory
	_, e := w.call(ctx, "CreateCategory", http.MethodPost, "products/categories", nil, c, &cat)
	if e != nil {
		if id, ok := existingTerm(e); ok {
			return &models.ProductCategory{ID: id, Name: c.Name, Parent: c.Parent}, nil
		}
		return nil, e
	}
	return &cat, nil
}

func existingTerm(e *gateway.Error) (int64, bool) {
	if e.Code != codeTermExists {
		return 0, false
	}
	id, err := strconv.ParseInt(e.Message, 10, 64)
	return id, err == nil && id > 0
}

func (w *API) ListAttributes(ctx context.Context) ([]models.Attribute, error) {
	var attrs []models.Attribute
	_, e := w.call(ctx, "ListAttributes", http.MethodGet, "products/attributes", nil, nil, &attrs)
	return attrs, asError(e)
}

func (w *API) ListAttributeTerms(ctx context.Context, attributeID int64, page, perPage int) ([]models.AttributeTerm, error) {
	var terms []models.AttributeTerm
	endpoint := fmt.Sprintf("products/attributes/%d/terms", attributeID)
	_, e := w.call(ctx, "ListAttributeTerms", http.MethodGet, endpoint, pageValues(page, perPage), nil, &terms)
	return terms, asError(e)
}

func (w *API) CreateAttributeTerm(ctx context.Context, attributeID int64, t *models.AttributeTerm) (*models.AttributeTerm, error) {
	var term models.AttributeTerm
	endpoint := fmt.Sprintf("products/attributes/%d/terms", attributeID)
	_, e := w.call(ctx, "CreateAttributeTerm", http.MethodPost, endpoint, nil, t, &term)
	if e != nil {
		if id, ok := existingTerm(e); ok {
			return &models.AttributeTerm{ID: id, Name: t.Name}, nil
		}
		return nil, e
	}
	return &term, nil
}

func (w *API) ListTags(ctx context.Context, page, perPage int) ([]models.Tag, error) {
	var tags []models.Tag
	_, e := w.call(ctx, "ListTags", http.MethodGet, "products/tags", pageValues(page, perPage), nil, &tags)
	return tags, asError(e)
}

func (w *API) GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupons []models.Coupon
	_, e := w.call(ctx, "GetCouponByCode", http.MethodGet, "coupons", optionsWoo.Values(optionsWoo.Code(code)), nil, &coupons)
	if e != nil {
		return nil, e
	}
	if len(coupons) == 0 {
		return nil, nil
	}
	return &coupons[0], nil
}
