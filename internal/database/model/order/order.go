package order

import (
	"strings"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusOnHold     = "on-hold"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusRefunded   = "refunded"
	StatusFailed     = "failed"
	StatusTrash      = "trash"
)

// Order is the canonical order row, keyed by the WooCommerce order id.
// Customer, billing and shipping are snapshots taken at sync time.
type Order struct {
	ID            int64           `db:"id" json:"id"`
	WooID         int64           `db:"woo_id" json:"woo_id" validate:"gt=0"`
	Number        string          `db:"number" json:"number"`
	Status        string          `db:"status" json:"status" validate:"required"`
	Currency      string          `db:"currency" json:"currency"`
	Total         decimal.Decimal `db:"total" json:"total"`
	Subtotal      decimal.Decimal `db:"subtotal" json:"subtotal"`
	TotalTax      decimal.Decimal `db:"total_tax" json:"total_tax"`
	ShippingTotal decimal.Decimal `db:"shipping_total" json:"shipping_total"`
	DiscountTotal decimal.Decimal `db:"discount_total" json:"discount_total"`
	CustomerID    int64           `db:"customer_id" json:"customer_id"`
	Customer      types.JSONText  `db:"customer" json:"customer"`
	Billing       types.JSONText  `db:"billing" json:"billing"`
	Shipping      types.JSONText  `db:"shipping" json:"shipping"`
	CouponCode    string          `db:"coupon_code" json:"coupon_code"`
	PaymentMethod string          `db:"payment_method" json:"payment_method"`
	InvoiceID     string          `db:"invoice_id" json:"invoice_id"`
	InvoicedAt    *time.Time      `db:"invoiced_at" json:"invoiced_at"`
	Raw           types.JSONText  `db:"raw" json:"-"`
	DateCreated   *time.Time      `db:"date_created" json:"date_created"`
	DatePaid      *time.Time      `db:"date_paid" json:"date_paid"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`

	Items []LineItem `db:"-" json:"items"`
}

// IsPaid is true once WooCommerce has taken the payment.
func (o *Order) IsPaid() bool {
	return o.Status == StatusProcessing || o.Status == StatusCompleted
}

// ClaimPrefix marks an invoice_id held by a sync that is creating the invoice.
const ClaimPrefix = "claim:"

// Invoiced is true once a real ERP invoice is linked; a pending claim does
// not count.
func (o *Order) Invoiced() bool {
	return o.InvoiceID != "" && !strings.HasPrefix(o.InvoiceID, ClaimPrefix)
}

// LineItem is a snapshot of the purchased product, not a reference to it.
type LineItem struct {
	ID             int64           `db:"id" json:"-"`
	OrderID        int64           `db:"order_id" json:"-"`
	WooLineID      int64           `db:"woo_line_id" json:"woo_line_id"`
	ProductWooID   int64           `db:"product_woo_id" json:"product_woo_id"`
	VariationWooID int64           `db:"variation_woo_id" json:"variation_woo_id"`
	SKU            string          `db:"sku" json:"sku"`
	Name           string          `db:"name" json:"name"`
	Quantity       int             `db:"quantity" json:"quantity"`
	Price          decimal.Decimal `db:"price" json:"price"`
	Subtotal       decimal.Decimal `db:"subtotal" json:"subtotal"`
	Total          decimal.Decimal `db:"total" json:"total"`
	TaxTotal       decimal.Decimal `db:"tax_total" json:"tax_total"`
}
