// Package bizimhesap is the ERP side: catalog export, stock lookup and
// sales invoices over the BizimHesap B2B API.
package bizimhesap

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"WooWithBizimHesap/internal/database/model/order"
	"WooWithBizimHesap/internal/database/model/setting"
	"WooWithBizimHesap/internal/gateway"
	"WooWithBizimHesap/internal/mapping"
	"WooWithBizimHesap/internal/metrics"
	"WooWithBizimHesap/pkg/logging"
	"github.com/go-resty/resty/v2"
)

const (
	headerFirmID = "Key"
	headerToken  = "Token"
)

// Settings resolves operator-edited credentials; the setting store satisfies it.
type Settings interface {
	GetOr(ctx context.Context, key, fallback string) string
}

// Config is what NewAPI needs from the BIZIMHESAP section.
type Config struct {
	URL     string
	FirmID  string
	Key     string
	Timeout time.Duration
}

// API implements gateway.ERP.
type API struct {
	client   *resty.Client
	settings Settings
	cfg      Config
	logger   *logging.Logger
	now      func() time.Time
}

var _ gateway.ERP = (*API)(nil)

func NewAPI(cfg Config, settings Settings, logger *logging.Logger) *API {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	return &API{
		client:   client,
		settings: settings,
		cfg:      cfg,
		logger:   logger.WithField("remote", gateway.RemoteBizimHesap),
		now:      time.Now,
	}
}

// credentials prefers the persisted settings and falls back to config.
func (b *API) credentials(ctx context.Context) (firmID, key string) {
	firmID, key = b.cfg.FirmID, b.cfg.Key
	if b.settings != nil {
		firmID = b.settings.GetOr(ctx, setting.BizimHesapFirmID, firmID)
		key = b.settings.GetOr(ctx, setting.BizimHesapAPIKey, key)
	}
	return firmID, key
}

func (b *API) fail(op string, status int, msg string) *gateway.Error {
	metrics.RemoteErrorsTotal.WithLabelValues(gateway.RemoteBizimHesap, op).Inc()
	e := &gateway.Error{Remote: gateway.RemoteBizimHesap, Op: op, Status: status, Message: msg}
	b.logger.Warn(e.Error())
	return e
}

func (b *API) request(ctx context.Context) (*resty.Request, string) {
	firmID, key := b.credentials(ctx)
	return b.client.R().
		SetContext(ctx).
		SetHeader(headerFirmID, firmID).
		SetHeader(headerToken, key), firmID
}

// FetchProductsRaw returns every catalog row as sent by the ERP.
func (b *API) FetchProductsRaw(ctx context.Context) ([]json.RawMessage, error) {
	const op = "FetchProductsRaw"
	b.logger.Debug("Start FetchProductsRaw")
	defer b.logger.Debug("End FetchProductsRaw")

	req, _ := b.request(ctx)
	resp, err := req.Get("/products")
	if err != nil {
		return nil, b.fail(op, 0, err.Error())
	}
	if resp.IsError() {
		return nil, b.fail(op, resp.StatusCode(), snippet(resp.Body()))
	}
	items, msg := decodeProducts(resp.Body())
	if msg != "" {
		return nil, b.fail(op, resp.StatusCode(), msg)
	}
	b.logger.Infof("fetched %d catalog rows", len(items))
	return items, nil
}

// decodeProducts accepts a bare array, {"products":[...]}, {"data":[...]}
// and {"data":{"products":[...]}}. A non-empty message means failure.
func decodeProducts(body []byte) ([]json.RawMessage, string) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, "empty body"
	}
	if body[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, "decode: " + err.Error()
		}
		return items, ""
	}

	var env productsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, "decode: " + err.Error()
	}
	if env.ErrorText != "" {
		return nil, env.ErrorText
	}
	if env.Products != nil {
		return env.Products, ""
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []json.RawMessage{}, ""
	}
	if data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, "decode data: " + err.Error()
		}
		return items, ""
	}
	var inner productsEnvelope
	if err := json.Unmarshal(data, &inner); err != nil {
		return nil, "decode data: " + err.Error()
	}
	if inner.Products == nil {
		return []json.RawMessage{}, ""
	}
	return inner.Products, ""
}

// CreateInvoice submits a sales invoice for o and returns its guid, or ""
// when the invoice could not be created.
func (b *API) CreateInvoice(ctx context.Context, o *order.Order) string {
	const op = "CreateInvoice"
	b.logger.Debug("Start CreateInvoice")
	defer b.logger.Debug("End CreateInvoice")

	req, firmID := b.request(ctx)
	inv, err := BuildInvoice(o, firmID, b.now().UTC())
	if err != nil {
		b.fail(op, 0, err.Error())
		return ""
	}

	resp, err := req.SetBody(inv).Post("/addinvoice")
	if err != nil {
		b.fail(op, 0, err.Error())
		return ""
	}
	if resp.IsError() {
		b.fail(op, resp.StatusCode(), snippet(resp.Body()))
		return ""
	}
	var out invoiceResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		b.fail(op, resp.StatusCode(), "decode: "+err.Error())
		return ""
	}
	if out.Error != "" {
		b.fail(op, resp.StatusCode(), out.Error)
		return ""
	}
	if out.GUID == "" {
		b.fail(op, resp.StatusCode(), "response carries no guid")
		return ""
	}
	b.logger.WithField("order_id", o.WooID).Infof("invoice %s created %s", out.GUID, out.URL)
	return out.GUID
}

// CheckStock looks the sku (or barcode) up in the ERP catalog.
func (b *API) CheckStock(ctx context.Context, sku string) int {
	if sku == "" {
		return 0
	}
	items, err := b.FetchProductsRaw(ctx)
	if err != nil {
		return 0
	}
	for _, raw := range items {
		rec, err := mapping.CatalogItem(raw)
		if err != nil {
			continue
		}
		if rec.SKU == sku || rec.Barcode == sku {
			return rec.Stock
		}
	}
	return 0
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
