package gateway

import (
	"context"
	"encoding/json"

	"WooWithBizimHesap/internal/database/model/order"
	"WooWithBizimHesap/internal/wooapi/models"
	"WooWithBizimHesap/internal/wooapi/options"
)

// Commerce is the WooCommerce store.
//
// Lookups that find nothing return a nil value and a nil error. Any failure
// is an *Error, never a raw transport error.
type Commerce interface {
	ListProducts(ctx context.Context, page, perPage int) ([]models.Product, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	GetProductBySku(ctx context.Context, sku string) (*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) (*models.Product, error)
	UpdateProduct(ctx context.Context, id int64, p *models.Product) (*models.Product, error)
	BatchUpdateProducts(ctx context.Context, items []models.Product) (*models.BatchResult, error)

	ListVariations(ctx context.Context, productID int64) ([]models.Variation, error)
	BatchUpdateVariations(ctx context.Context, productID int64, items []models.Variation) (*models.BatchResult, error)

	ListOrders(ctx context.Context, page, perPage int, filters ...options.Option) ([]models.Order, error)
	GetOrderRaw(ctx context.Context, id int64) (*models.Order, json.RawMessage, error)
	// UpdateOrderStatus reports whether WooCommerce accepted the change.
	UpdateOrderStatus(ctx context.Context, id int64, status string) bool

	ListCategories(ctx context.Context, page, perPage int) ([]models.ProductCategory, error)
	CreateCategory(ctx context.Context, c *models.ProductCategory) (*models.ProductCategory, error)
	ListAttributes(ctx context.Context) ([]models.Attribute, error)
	ListAttributeTerms(ctx context.Context, attributeID int64, page, perPage int) ([]models.AttributeTerm, error)
	CreateAttributeTerm(ctx context.Context, attributeID int64, t *models.AttributeTerm) (*models.AttributeTerm, error)
	ListTags(ctx context.Context, page, perPage int) ([]models.Tag, error)
	GetCouponByCode(ctx context.Context, code string) (*models.Coupon, error)
}

// ERP is the BizimHesap invoicing backend.
type ERP interface {
	// FetchProductsRaw returns the catalog rows verbatim; nil on failure.
	FetchProductsRaw(ctx context.Context) ([]json.RawMessage, error)
	// CreateInvoice returns the invoice id, or "" when the ERP refused it.
	CreateInvoice(ctx context.Context, o *order.Order) string
	// CheckStock returns the on-hand quantity, 0 when unknown.
	CheckStock(ctx context.Context, sku string) int
}
