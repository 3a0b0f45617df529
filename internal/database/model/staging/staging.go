package staging

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncFailed  = "failed"
)

// Record is one external catalog item waiting to be pushed to WooCommerce.
// ExternalID is the source item id, or the barcode when the source has none.
type Record struct {
	ID           int64           `db:"id" json:"id"`
	ExternalID   string          `db:"external_id" json:"external_id" validate:"required"`
	Barcode      string          `db:"barcode" json:"barcode"`
	SKU          string          `db:"sku" json:"sku"`
	Name         string          `db:"name" json:"name"`
	Description  string          `db:"description" json:"description"`
	Price        decimal.Decimal `db:"price" json:"price"`
	Stock        int             `db:"stock" json:"stock"`
	VatRate      decimal.Decimal `db:"vat_rate" json:"vat_rate"`
	Brand        string          `db:"brand" json:"brand"`
	Category     string          `db:"category" json:"category"`
	ImageURL     string          `db:"image_url" json:"image_url"`
	Raw          types.JSONText  `db:"raw" json:"raw"`
	SyncStatus   string          `db:"sync_status" json:"sync_status"`
	SyncError    string          `db:"sync_error" json:"sync_error"`
	WooProductID *int64          `db:"woo_product_id" json:"woo_product_id"`
	SyncedAt     *time.Time      `db:"synced_at" json:"synced_at"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// Pushable reports whether the push step should pick the record up.
func (r *Record) Pushable() bool {
	return r.SyncStatus == SyncPending || r.SyncStatus == SyncFailed
}
