package product

import (
	"context"
	"database/sql"
	"time"

	"WooWithBizimHesap/internal/database"
	"WooWithBizimHesap/pkg/logging"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var ErrSyncedWithoutWooID = errors.New("product marked synced without a WooCommerce id")

type Store struct {
	db     *sqlx.DB
	logger *logging.Logger
}

func NewStore(db *sqlx.DB, logger *logging.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Upsert inserts or updates the row keyed by SKU and sets p.ID.
// A non-empty ERPID is never overwritten by an empty one.
func (s *Store) Upsert(ctx context.Context, p *Product) error {
	s.logger.Debug("Start product.Upsert")
	defer s.logger.Debug("End product.Upsert")

	if p.SKU == "" {
		return errors.New("product without sku")
	}
	if p.SyncStatus == "" {
		p.SyncStatus = SyncPending
	}
	if p.SyncStatus == SyncSynced && p.WooID == nil {
		return errors.Wrapf(ErrSyncedWithoutWooID, "sku %s", p.SKU)
	}
	if p.Type == "" {
		p.Type = TypeSimple
	}

	now := time.Now().UTC()
	if p.SyncStatus == SyncSynced && p.SyncedAt == nil {
		p.SyncedAt = &now
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	query := s.db.Rebind(`INSERT INTO products
	(sku, woo_id, erp_id, name, type, status, regular_price, sale_price, price,
	 stock_quantity, stock_status, sync_status, synced_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (sku) DO UPDATE SET
	woo_id = excluded.woo_id,
	erp_id = CASE WHEN excluded.erp_id <> '' THEN excluded.erp_id ELSE products.erp_id END,
	name = excluded.name,
	type = excluded.type,
	status = excluded.status,
	regular_price = excluded.regular_price,
	sale_price = excluded.sale_price,
	price = excluded.price,
	stock_quantity = excluded.stock_quantity,
	stock_status = excluded.stock_status,
	sync_status = excluded.sync_status,
	synced_at = excluded.synced_at,
	updated_at = excluded.updated_at
	RETURNING id`)

	err := s.db.GetContext(ctx, &p.ID, query,
		p.SKU, p.WooID, p.ERPID, p.Name, p.Type, p.Status,
		p.RegularPrice, p.SalePrice, p.Price,
		p.StockQuantity, p.StockStatus, p.SyncStatus, p.SyncedAt, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return errors.Wrapf(err, "failed upsert product %s", p.SKU)
	}
	return nil
}

// FindBySKU returns nil when no row matches.
func (s *Store) FindBySKU(ctx context.Context, sku string) (*Product, error) {
	return s.findOne(ctx, "sku = ?", sku)
}

// FindByWooID returns nil when no row matches.
func (s *Store) FindByWooID(ctx context.Context, wooID int64) (*Product, error) {
	return s.findOne(ctx, "woo_id = ?", wooID)
}

func (s *Store) findOne(ctx context.Context, where string, arg interface{}) (*Product, error) {
	var p Product
	query := s.db.Rebind("SELECT * FROM products WHERE " + where)
	err := s.db.GetContext(ctx, &p, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT products WHERE %s (%v)", where, arg)
	}
	return &p, nil
}

func (s *Store) List(ctx context.Context, limit, offset int) ([]Product, error) {
	var out []Product
	query := s.db.Rebind("SELECT * FROM products ORDER BY id LIMIT ? OFFSET ?")
	if err := s.db.SelectContext(ctx, &out, query, limit, offset); err != nil {
		return nil, errors.Wrap(err, "failed SELECT products")
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM products"); err != nil {
		return 0, errors.Wrap(err, "failed COUNT products")
	}
	return n, nil
}

// UpsertCategory is keyed by the WooCommerce category id.
func (s *Store) UpsertCategory(ctx context.Context, c Category) error {
	query := s.db.Rebind(`INSERT INTO categories (woo_id, name, slug, parent_woo_id)
	VALUES (?, ?, ?, ?)
	ON CONFLICT (woo_id) DO UPDATE SET name = excluded.name, slug = excluded.slug, parent_woo_id = excluded.parent_woo_id`)
	if _, err := s.db.ExecContext(ctx, query, c.WooID, c.Name, c.Slug, c.ParentWooID); err != nil {
		return errors.Wrapf(err, "failed upsert category %d", c.WooID)
	}
	return nil
}

// UpsertBrand is keyed by the WooCommerce brand term id.
func (s *Store) UpsertBrand(ctx context.Context, b Brand) error {
	query := s.db.Rebind(`INSERT INTO brands (woo_id, name, slug)
	VALUES (?, ?, ?)
	ON CONFLICT (woo_id) DO UPDATE SET name = excluded.name, slug = excluded.slug`)
	if _, err := s.db.ExecContext(ctx, query, b.WooID, b.Name, b.Slug); err != nil {
		return errors.Wrapf(err, "failed upsert brand %d", b.WooID)
	}
	return nil
}

// ReplaceCategories swaps the product's category association set atomically.
func (s *Store) ReplaceCategories(ctx context.Context, productID int64, wooIDs []int64) error {
	return s.replaceLinks(ctx, "product_categories", "category_woo_id", productID, wooIDs)
}

// ReplaceBrands swaps the product's brand association set atomically.
func (s *Store) ReplaceBrands(ctx context.Context, productID int64, wooIDs []int64) error {
	return s.replaceLinks(ctx, "product_brands", "brand_woo_id", productID, wooIDs)
}

func (s *Store) replaceLinks(ctx context.Context, table, column string, productID int64, wooIDs []int64) error {
	return database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM "+table+" WHERE product_id = ?"), productID); err != nil {
			return errors.Wrapf(err, "failed DELETE %s", table)
		}
		insert := tx.Rebind("INSERT INTO " + table + " (product_id, " + column + ") VALUES (?, ?) ON CONFLICT DO NOTHING")
		for _, id := range wooIDs {
			if _, err := tx.ExecContext(ctx, insert, productID, id); err != nil {
				return errors.Wrapf(err, "failed INSERT %s", table)
			}
		}
		return nil
	})
}

// ReplaceImages deletes the product's images and inserts imgs in order.
// Positions are reassigned from the slice order.
func (s *Store) ReplaceImages(ctx context.Context, productID int64, imgs []Image) error {
	s.logger.Debug("Start product.ReplaceImages")
	defer s.logger.Debug("End product.ReplaceImages")

	return database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM product_images WHERE product_id = ?"), productID); err != nil {
			return errors.Wrap(err, "failed DELETE product_images")
		}
		insert := tx.Rebind(`INSERT INTO product_images (product_id, woo_id, src, name, alt, position)
		VALUES (?, ?, ?, ?, ?, ?)`)
		for i, img := range imgs {
			if _, err := tx.ExecContext(ctx, insert, productID, img.WooID, img.Src, img.Name, img.Alt, i); err != nil {
				return errors.Wrapf(err, "failed INSERT product_images #%d", i)
			}
		}
		return nil
	})
}

// ReplaceVariations deletes the product's variations and inserts vars.
func (s *Store) ReplaceVariations(ctx context.Context, productID int64, vars []Variation) error {
	s.logger.Debug("Start product.ReplaceVariations")
	defer s.logger.Debug("End product.ReplaceVariations")

	return database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM product_variations WHERE product_id = ?"), productID); err != nil {
			return errors.Wrap(err, "failed DELETE product_variations")
		}
		insert := tx.Rebind(`INSERT INTO product_variations
		(product_id, woo_id, sku, regular_price, sale_price, price, stock_quantity, stock_status, attributes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		for _, v := range vars {
			attrs := v.Attributes
			if len(attrs) == 0 {
				attrs = types.JSONText("[]")
			}
			if _, err := tx.ExecContext(ctx, insert, productID, v.WooID, v.SKU,
				v.RegularPrice, v.SalePrice, v.Price, v.StockQuantity, v.StockStatus, attrs); err != nil {
				return errors.Wrapf(err, "failed INSERT product_variations %d", v.WooID)
			}
		}
		return nil
	})
}

// FindVariationBySKU returns the variation carrying sku with its parent's
// WooCommerce id; nil when none matches.
func (s *Store) FindVariationBySKU(ctx context.Context, sku string) (*VariationRef, error) {
	if sku == "" {
		return nil, nil
	}
	var v VariationRef
	query := s.db.Rebind(`SELECT v.*, p.woo_id AS parent_woo_id FROM product_variations v
	JOIN products p ON p.id = v.product_id
	WHERE v.sku = ? AND p.woo_id IS NOT NULL ORDER BY v.id LIMIT 1`)
	err := s.db.GetContext(ctx, &v, query, sku)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT product_variations sku=%s", sku)
	}
	return &v, nil
}

// SetVariationStock stores the price and stock last pushed to a variation.
func (s *Store) SetVariationStock(ctx context.Context, id int64, price decimal.Decimal, stock int) error {
	query := s.db.Rebind("UPDATE product_variations SET regular_price = ?, stock_quantity = ? WHERE id = ?")
	if _, err := s.db.ExecContext(ctx, query, price, stock, id); err != nil {
		return errors.Wrapf(err, "failed UPDATE product_variations id=%d", id)
	}
	return nil
}

func (s *Store) Images(ctx context.Context, productID int64) ([]Image, error) {
	var out []Image
	query := s.db.Rebind("SELECT * FROM product_images WHERE product_id = ? ORDER BY position")
	if err := s.db.SelectContext(ctx, &out, query, productID); err != nil {
		return nil, errors.Wrap(err, "failed SELECT product_images")
	}
	return out, nil
}

func (s *Store) Variations(ctx context.Context, productID int64) ([]Variation, error) {
	var out []Variation
	query := s.db.Rebind("SELECT * FROM product_variations WHERE product_id = ? ORDER BY woo_id")
	if err := s.db.SelectContext(ctx, &out, query, productID); err != nil {
		return nil, errors.Wrap(err, "failed SELECT product_variations")
	}
	return out, nil
}

func (s *Store) CategoryIDs(ctx context.Context, productID int64) ([]int64, error) {
	var out []int64
	query := s.db.Rebind("SELECT category_woo_id FROM product_categories WHERE product_id = ? ORDER BY category_woo_id")
	if err := s.db.SelectContext(ctx, &out, query, productID); err != nil {
		return nil, errors.Wrap(err, "failed SELECT product_categories")
	}
	return out, nil
}

func (s *Store) BrandIDs(ctx context.Context, productID int64) ([]int64, error) {
	var out []int64
	query := s.db.Rebind("SELECT brand_woo_id FROM product_brands WHERE product_id = ? ORDER BY brand_woo_id")
	if err := s.db.SelectContext(ctx, &out, query, productID); err != nil {
		return nil, errors.Wrap(err, "failed SELECT product_brands")
	}
	return out, nil
}
