package database

import "strings"

// Column types differ between sqlite and postgres; {{id}} and {{money}} are
// substituted per driver. Money is TEXT in sqlite so decimals round-trip exactly.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
	id {{id}},
	sku TEXT NOT NULL UNIQUE,
	woo_id BIGINT,
	erp_id TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL DEFAULT 'simple',
	status TEXT NOT NULL DEFAULT '',
	regular_price {{money}},
	sale_price {{money}},
	price {{money}},
	stock_quantity INTEGER,
	stock_status TEXT NOT NULL DEFAULT '',
	sync_status TEXT NOT NULL DEFAULT 'pending',
	synced_at TIMESTAMP,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_products_woo_id ON products (woo_id)`,
	`CREATE TABLE IF NOT EXISTS categories (
	id {{id}},
	woo_id BIGINT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	slug TEXT NOT NULL DEFAULT '',
	parent_woo_id BIGINT NOT NULL DEFAULT 0
)`,
	`CREATE TABLE IF NOT EXISTS brands (
	id {{id}},
	woo_id BIGINT NOT NULL UNIQUE,
	name TEXT NOT NULL DEFAULT '',
	slug TEXT NOT NULL DEFAULT ''
)`,
	`CREATE TABLE IF NOT EXISTS product_categories (
	product_id BIGINT NOT NULL,
	category_woo_id BIGINT NOT NULL,
	PRIMARY KEY (product_id, category_woo_id)
)`,
	`CREATE TABLE IF NOT EXISTS product_brands (
	product_id BIGINT NOT NULL,
	brand_woo_id BIGINT NOT NULL,
	PRIMARY KEY (product_id, brand_woo_id)
)`,
	`CREATE TABLE IF NOT EXISTS product_images (
	id {{id}},
	product_id BIGINT NOT NULL,
	woo_id BIGINT NOT NULL DEFAULT 0,
	src TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	alt TEXT NOT NULL DEFAULT '',
	position INTEGER NOT NULL DEFAULT 0
)`,
	`CREATE INDEX IF NOT EXISTS idx_product_images_product ON product_images (product_id)`,
	`CREATE TABLE IF NOT EXISTS product_variations (
	id {{id}},
	product_id BIGINT NOT NULL,
	woo_id BIGINT NOT NULL,
	sku TEXT NOT NULL DEFAULT '',
	regular_price {{money}},
	sale_price {{money}},
	price {{money}},
	stock_quantity INTEGER,
	stock_status TEXT NOT NULL DEFAULT '',
	attributes TEXT NOT NULL DEFAULT '[]'
)`,
	`CREATE INDEX IF NOT EXISTS idx_product_variations_product ON product_variations (product_id)`,
	`CREATE TABLE IF NOT EXISTS orders (
	id {{id}},
	woo_id BIGINT NOT NULL UNIQUE,
	number TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	currency TEXT NOT NULL DEFAULT '',
	total {{money}},
	subtotal {{money}},
	total_tax {{money}},
	shipping_total {{money}},
	discount_total {{money}},
	customer_id BIGINT NOT NULL DEFAULT 0,
	customer TEXT NOT NULL DEFAULT '{}',
	billing TEXT NOT NULL DEFAULT '{}',
	shipping TEXT NOT NULL DEFAULT '{}',
	coupon_code TEXT NOT NULL DEFAULT '',
	payment_method TEXT NOT NULL DEFAULT '',
	invoice_id TEXT NOT NULL DEFAULT '',
	invoiced_at TIMESTAMP,
	raw TEXT NOT NULL DEFAULT '{}',
	date_created TIMESTAMP,
	date_paid TIMESTAMP,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS order_items (
	id {{id}},
	order_id BIGINT NOT NULL,
	woo_line_id BIGINT NOT NULL DEFAULT 0,
	product_woo_id BIGINT NOT NULL DEFAULT 0,
	variation_woo_id BIGINT NOT NULL DEFAULT 0,
	sku TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	quantity INTEGER NOT NULL DEFAULT 0,
	price {{money}},
	subtotal {{money}},
	total {{money}},
	tax_total {{money}}
)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items (order_id)`,
	`CREATE TABLE IF NOT EXISTS sync_jobs (
	id {{id}},
	type TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	total_items INTEGER NOT NULL DEFAULT 0,
	processed_items INTEGER NOT NULL DEFAULT 0,
	success_count INTEGER NOT NULL DEFAULT 0,
	error_count INTEGER NOT NULL DEFAULT 0,
	errors TEXT NOT NULL DEFAULT '[]',
	sealed BOOLEAN NOT NULL DEFAULT FALSE,
	started_at TIMESTAMP,
	completed_at TIMESTAMP,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_sync_jobs_type ON sync_jobs (type, created_at)`,
	`CREATE TABLE IF NOT EXISTS staging_products (
	id {{id}},
	external_id TEXT NOT NULL UNIQUE,
	barcode TEXT NOT NULL DEFAULT '',
	sku TEXT NOT NULL DEFAULT '',
	name TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	price {{money}},
	stock INTEGER NOT NULL DEFAULT 0,
	vat_rate {{money}},
	brand TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	image_url TEXT NOT NULL DEFAULT '',
	raw TEXT NOT NULL DEFAULT '{}',
	sync_status TEXT NOT NULL DEFAULT 'pending',
	sync_error TEXT NOT NULL DEFAULT '',
	woo_product_id BIGINT,
	synced_at TIMESTAMP,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_staging_products_status ON staging_products (sync_status)`,
	`CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL DEFAULT ''
)`,
	`CREATE TABLE IF NOT EXISTS locks (
	key TEXT PRIMARY KEY,
	owner TEXT NOT NULL,
	expires_at BIGINT NOT NULL
)`,
}

func schemaFor(driver string) []string {
	id, money := "INTEGER PRIMARY KEY AUTOINCREMENT", "TEXT NOT NULL DEFAULT '0'"
	if driver == "postgres" {
		id, money = "BIGSERIAL PRIMARY KEY", "NUMERIC(14,4) NOT NULL DEFAULT 0"
	}
	out := make([]string, 0, len(schema))
	for _, stmt := range schema {
		stmt = strings.ReplaceAll(stmt, "{{id}}", id)
		stmt = strings.ReplaceAll(stmt, "{{money}}", money)
		out = append(out, stmt)
	}
	return out
}
