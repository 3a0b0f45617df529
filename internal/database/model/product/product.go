package product

import (
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

const (
	SyncPending = "pending" // not yet reconciled with WooCommerce
	SyncSynced  = "synced"  // mirrors the WooCommerce product identified by WooID
	SyncFailed  = "failed"  // last reconciliation failed

	TypeSimple   = "simple"
	TypeVariable = "variable"
)

// Product is the canonical product row. SKU is the join key across every source.
type Product struct {
	ID            int64           `db:"id" json:"id"`
	SKU           string          `db:"sku" json:"sku" validate:"required"`
	WooID         *int64          `db:"woo_id" json:"woo_id"`
	ERPID         string          `db:"erp_id" json:"erp_id"`
	Name          string          `db:"name" json:"name"`
	Type          string          `db:"type" json:"type"`
	Status        string          `db:"status" json:"status"`
	RegularPrice  decimal.Decimal `db:"regular_price" json:"regular_price"`
	SalePrice     decimal.Decimal `db:"sale_price" json:"sale_price"`
	Price         decimal.Decimal `db:"price" json:"price"`
	StockQuantity *int            `db:"stock_quantity" json:"stock_quantity"`
	StockStatus   string          `db:"stock_status" json:"stock_status"`
	SyncStatus    string          `db:"sync_status" json:"sync_status" validate:"oneof=pending synced failed"`
	SyncedAt      *time.Time      `db:"synced_at" json:"synced_at"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`

	Categories []Category  `db:"-" json:"categories,omitempty"`
	Brands     []Brand     `db:"-" json:"brands,omitempty"`
	Images     []Image     `db:"-" json:"images,omitempty"`
	Variations []Variation `db:"-" json:"variations,omitempty"`
}

// HasVariations reports whether the remote product carries a variation set.
func (p *Product) HasVariations() bool {
	return p.Type == TypeVariable
}

type Category struct {
	ID          int64  `db:"id" json:"-"`
	WooID       int64  `db:"woo_id" json:"woo_id"`
	Name        string `db:"name" json:"name"`
	Slug        string `db:"slug" json:"slug"`
	ParentWooID int64  `db:"parent_woo_id" json:"parent_woo_id"`
}

type Brand struct {
	ID    int64  `db:"id" json:"-"`
	WooID int64  `db:"woo_id" json:"woo_id"`
	Name  string `db:"name" json:"name"`
	Slug  string `db:"slug" json:"slug"`
}

// Image position 0 is the featured image.
type Image struct {
	ID        int64  `db:"id" json:"-"`
	ProductID int64  `db:"product_id" json:"-"`
	WooID     int64  `db:"woo_id" json:"woo_id"`
	Src       string `db:"src" json:"src"`
	Name      string `db:"name" json:"name"`
	Alt       string `db:"alt" json:"alt"`
	Position  int    `db:"position" json:"position"`
}

type Variation struct {
	ID            int64           `db:"id" json:"-"`
	ProductID     int64           `db:"product_id" json:"-"`
	WooID         int64           `db:"woo_id" json:"woo_id"`
	SKU           string          `db:"sku" json:"sku"`
	RegularPrice  decimal.Decimal `db:"regular_price" json:"regular_price"`
	SalePrice     decimal.Decimal `db:"sale_price" json:"sale_price"`
	Price         decimal.Decimal `db:"price" json:"price"`
	StockQuantity *int            `db:"stock_quantity" json:"stock_quantity"`
	StockStatus   string          `db:"stock_status" json:"stock_status"`
	Attributes    types.JSONText  `db:"attributes" json:"attributes"`
}

// VariationRef is a variation with the WooCommerce id of its parent product.
type VariationRef struct {
	Variation
	ParentWooID int64 `db:"parent_woo_id"`
}
