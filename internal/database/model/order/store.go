package order

import (
	"context"
	"database/sql"
	"time"

	"WooWithBizimHesap/internal/database"
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

func jsonOr(j types.JSONText, empty string) types.JSONText {
	if len(j) == 0 {
		return types.JSONText(empty)
	}
	return j
}

// Save upserts the order by WooID and replaces its line items in one
// transaction. Invoice linkage already stored is kept when o carries none.
func (s *Store) Save(ctx context.Context, o *Order) error {
	s.logger.Debug("Start order.Save")
	defer s.logger.Debug("End order.Save")

	if o.WooID <= 0 {
		return errors.New("order without woo id")
	}
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now

	return database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`INSERT INTO orders
		(woo_id, number, status, currency, total, subtotal, total_tax, shipping_total, discount_total,
		 customer_id, customer, billing, shipping, coupon_code, payment_method, invoice_id, invoiced_at,
		 raw, date_created, date_paid, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (woo_id) DO UPDATE SET
		number = excluded.number,
		status = excluded.status,
		currency = excluded.currency,
		total = excluded.total,
		subtotal = excluded.subtotal,
		total_tax = excluded.total_tax,
		shipping_total = excluded.shipping_total,
		discount_total = excluded.discount_total,
		customer_id = excluded.customer_id,
		customer = excluded.customer,
		billing = excluded.billing,
		shipping = excluded.shipping,
		coupon_code = excluded.coupon_code,
		payment_method = excluded.payment_method,
		invoice_id = CASE WHEN excluded.invoice_id <> '' THEN excluded.invoice_id ELSE orders.invoice_id END,
		invoiced_at = COALESCE(excluded.invoiced_at, orders.invoiced_at),
		raw = excluded.raw,
		date_created = excluded.date_created,
		date_paid = excluded.date_paid,
		updated_at = excluded.updated_at
		RETURNING id, invoice_id`)

		var row struct {
			ID        int64  `db:"id"`
			InvoiceID string `db:"invoice_id"`
		}
		err := tx.QueryRowxContext(ctx, query,
			o.WooID, o.Number, o.Status, o.Currency,
			o.Total, o.Subtotal, o.TotalTax, o.ShippingTotal, o.DiscountTotal,
			o.CustomerID, jsonOr(o.Customer, "{}"), jsonOr(o.Billing, "{}"), jsonOr(o.Shipping, "{}"),
			o.CouponCode, o.PaymentMethod, o.InvoiceID, o.InvoicedAt,
			jsonOr(o.Raw, "{}"), o.DateCreated, o.DatePaid, o.CreatedAt, o.UpdatedAt).StructScan(&row)
		if err != nil {
			return errors.Wrapf(err, "failed upsert order %d", o.WooID)
		}
		o.ID, o.InvoiceID = row.ID, row.InvoiceID

		if _, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM order_items WHERE order_id = ?"), o.ID); err != nil {
			return errors.Wrap(err, "failed DELETE order_items")
		}
		insert := tx.Rebind(`INSERT INTO order_items
		(order_id, woo_line_id, product_woo_id, variation_woo_id, sku, name, quantity, price, subtotal, total, tax_total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		for i := range o.Items {
			it := &o.Items[i]
			it.OrderID = o.ID
			if _, err := tx.ExecContext(ctx, insert, o.ID, it.WooLineID, it.ProductWooID, it.VariationWooID,
				it.SKU, it.Name, it.Quantity, it.Price, it.Subtotal, it.Total, it.TaxTotal); err != nil {
				return errors.Wrapf(err, "failed INSERT order_items line %d", it.WooLineID)
			}
		}
		return nil
	})
}

// FindByWooID loads the order with its line items; nil when absent.
func (s *Store) FindByWooID(ctx context.Context, wooID int64) (*Order, error) {
	var o Order
	err := s.db.GetContext(ctx, &o, s.db.Rebind("SELECT * FROM orders WHERE woo_id = ?"), wooID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed SELECT orders woo_id=%d", wooID)
	}
	if o.Items, err = s.Items(ctx, o.ID); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Store) Items(ctx context.Context, orderID int64) ([]LineItem, error) {
	var items []LineItem
	query := s.db.Rebind("SELECT * FROM order_items WHERE order_id = ? ORDER BY id")
	if err := s.db.SelectContext(ctx, &items, query, orderID); err != nil {
		return nil, errors.Wrap(err, "failed SELECT order_items")
	}
	return items, nil
}

// ClaimInvoice marks the order as being invoiced by token. Only one caller
// wins: the row must have no invoice, or a claim older than staleAfter left
// by a sync that died before linking its invoice.
func (s *Store) ClaimInvoice(ctx context.Context, orderID int64, token string, staleAfter time.Duration) (bool, error) {
	now := time.Now().UTC()
	query := s.db.Rebind(`UPDATE orders SET invoice_id = ?, invoiced_at = ?, updated_at = ?
	WHERE id = ? AND (invoice_id = '' OR (invoice_id LIKE ? AND invoiced_at < ?))`)
	res, err := s.db.ExecContext(ctx, query, ClaimPrefix+token, now, now, orderID, ClaimPrefix+"%", now.Add(-staleAfter))
	if err != nil {
		return false, errors.Wrapf(err, "failed UPDATE orders claim id=%d", orderID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed RowsAffected")
	}
	return n == 1, nil
}

// SetInvoice replaces the claim held by token with the ERP invoice id. It
// reports false when the claim was lost to another sync.
func (s *Store) SetInvoice(ctx context.Context, orderID int64, token, invoiceID string) (bool, error) {
	now := time.Now().UTC()
	query := s.db.Rebind("UPDATE orders SET invoice_id = ?, invoiced_at = ?, updated_at = ? WHERE id = ? AND invoice_id = ?")
	res, err := s.db.ExecContext(ctx, query, invoiceID, now, now, orderID, ClaimPrefix+token)
	if err != nil {
		return false, errors.Wrapf(err, "failed UPDATE orders invoice id=%d", orderID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed RowsAffected")
	}
	return n == 1, nil
}

// ReleaseInvoice drops the claim held by token so a later sync can retry.
func (s *Store) ReleaseInvoice(ctx context.Context, orderID int64, token string) error {
	query := s.db.Rebind("UPDATE orders SET invoice_id = '', invoiced_at = NULL, updated_at = ? WHERE id = ? AND invoice_id = ?")
	if _, err := s.db.ExecContext(ctx, query, time.Now().UTC(), orderID, ClaimPrefix+token); err != nil {
		return errors.Wrapf(err, "failed UPDATE orders release id=%d", orderID)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM orders"); err != nil {
		return 0, errors.Wrap(err, "failed COUNT orders")
	}
	return n, nil
}

func (s *Store) CountItems(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM order_items"); err != nil {
		return 0, errors.Wrap(err, "failed COUNT order_items")
	}
	return n, nil
}
