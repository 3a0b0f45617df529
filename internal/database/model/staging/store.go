package staging

import (
	"context"
	"database/sql"
	"time"

	"WooWithBizimHesap/pkg/logging"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
)

type Store struct {
	db     *sqlx.DB
	logger *logging.Logger
}

func NewStore(db *sqlx.DB, logger *logging.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Upsert stores r keyed by ExternalID and reports whether the row was new.
// Mapped fields and the raw payload are overwritten; push state is kept, but
// a changed synced record goes back to pending.
func (s *Store) Upsert(ctx context.Context, r *Record) (created bool, err error) {
	if r.ExternalID == "" {
		return false, errors.New("staging record without external id")
	}
	if len(r.Raw) == 0 {
		r.Raw = types.JSONText("{}")
	}
	now := time.Now().UTC()
	r.UpdatedAt = now
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}

	existing, err := s.FindByExternalID(ctx, r.ExternalID)
	if err != nil {
		return false, err
	}
	created = existing == nil

	query := s.db.Rebind(`INSERT INTO staging_products
	(external_id, barcode, sku, name, description, price, stock, vat_rate, brand, category, image_url, raw,
	 sync_status, sync_error, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, '', ?, ?)
	ON CONFLICT (external_id) DO UPDATE SET
	barcode = excluded.barcode,
	sku = excluded.sku,
	name = excluded.name,
	description = excluded.description,
	price = excluded.price,
	stock = excluded.stock,
	vat_rate = excluded.vat_rate,
	brand = excluded.brand,
	category = excluded.category,
	image_url = excluded.image_url,
	raw = excluded.raw,
	sync_status = CASE WHEN staging_products.sync_status = 'synced' THEN 'pending' ELSE staging_products.sync_status END,
	updated_at = excluded.updated_at
	RETURNING id, sync_status`)

	var row struct {
		ID         int64  `db:"id"`
		SyncStatus string `db:"sync_status"`
	}
	err = s.db.QueryRowxContext(ctx, query,
		r.ExternalID, r.Barcode, r.SKU, r.Name, r.Description, r.Price, r.Stock, r.VatRate,
		r.Brand, r.Category, r.ImageURL, r.Raw, SyncPending, r.CreatedAt, r.UpdatedAt).StructScan(&row)
	if err != nil {
		return false, errors.Wrapf(err, "failed upsert staging_products %s", r.ExternalID)
	}
	r.ID, r.SyncStatus = row.ID, row.SyncStatus
	return created, nil
}

func (s *Store) FindByExternalID(ctx context.Context, externalID string) (*Record, error) {
	return s.findOne(ctx, "external_id = ?", externalID)
}

func (s *Store) Get(ctx context.Context, id int64) (*Record, error) {
	return s.findOne(ctx, "id = ?", id)
}

func (s *Store) findOne(ctx context.Context, where string, arg interface{}) (*Record, error) {
	var r Record
	err := s.db.GetContext(ctx, &r, s.db.Rebind("SELECT * FROM staging_products WHERE "+where), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT staging_products WHERE %s (%v)", where, arg)
	}
	return &r, nil
}

// GetMany returns the records for ids in id order; unknown ids are skipped.
func (s *Store) GetMany(ctx context.Context, ids []int64) ([]Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In("SELECT * FROM staging_products WHERE id IN (?) ORDER BY id", ids)
	if err != nil {
		return nil, errors.Wrap(err, "failed sqlx.In")
	}
	var out []Record
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "failed SELECT staging_products by ids")
	}
	return out, nil
}

// Pending lists records in pending or failed state, oldest first.
func (s *Store) Pending(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10000
	}
	var out []Record
	query := s.db.Rebind("SELECT * FROM staging_products WHERE sync_status IN (?, ?) ORDER BY id LIMIT ?")
	if err := s.db.SelectContext(ctx, &out, query, SyncPending, SyncFailed, limit); err != nil {
		return nil, errors.Wrap(err, "failed SELECT pending staging_products")
	}
	return out, nil
}

func (s *Store) MarkSynced(ctx context.Context, id int64, wooID int64) error {
	now := time.Now().UTC()
	query := s.db.Rebind(`UPDATE staging_products SET sync_status = ?, sync_error = '', woo_product_id = ?, synced_at = ?, updated_at = ?
	WHERE id = ?`)
	if _, err := s.db.ExecContext(ctx, query, SyncSynced, wooID, now, now, id); err != nil {
		return errors.Wrapf(err, "failed UPDATE staging_products synced id=%d", id)
	}
	return nil
}

func (s *Store) MarkFailed(ctx context.Context, id int64, reason string) error {
	if reason == "" {
		reason = "unknown error"
	}
	query := s.db.Rebind("UPDATE staging_products SET sync_status = ?, sync_error = ?, updated_at = ? WHERE id = ?")
	if _, err := s.db.ExecContext(ctx, query, SyncFailed, reason, time.Now().UTC(), id); err != nil {
		return errors.Wrapf(err, "failed UPDATE staging_products failed id=%d", id)
	}
	return nil
}

// Delete removes a record; only administrative callers use it.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM staging_products WHERE id = ?"), id); err != nil {
		return errors.Wrapf(err, "failed DELETE staging_products id=%d", id)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM staging_products"); err != nil {
		return 0, errors.Wrap(err, "failed COUNT staging_products")
	}
	return n, nil
}
