// Package order mirrors WooCommerce orders into the local order tables,
// from polling and from webhooks, and raises one ERP invoice for every paid
// order that has none.
package order

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"WooWithBizimHesap/internal/affiliate"
	orderDatabase "WooWithBizimHesap/internal/database/model/order"
	"WooWithBizimHesap/internal/database/model/syncjob"
	"WooWithBizimHesap/internal/gateway"
	"WooWithBizimHesap/internal/lock"
	"WooWithBizimHesap/internal/mapping"
	"WooWithBizimHesap/internal/metrics"
	"WooWithBizimHesap/internal/wooapi/models"
	"WooWithBizimHesap/internal/wooapi/options"
	"WooWithBizimHesap/pkg/logging"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const engineName = "orders"

// ErrStatusRefused is returned when WooCommerce does not accept a status change.
var ErrStatusRefused = errors.New("WooCommerce refused the status")

// invoiceClaimTTL is how long an invoice claim blocks other syncs before it
// counts as abandoned.
const invoiceClaimTTL = 10 * time.Minute

type Config struct {
	PageSize int
	// MaxPages bounds SyncAll when the caller passes 0.
	MaxPages int
	Timeout  time.Duration
	// Lookback skips orders created before now-Lookback; 0 disables it.
	Lookback time.Duration
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 || c.PageSize > 100 {
		c.PageSize = 50
	}
	if c.MaxPages <= 0 {
		c.MaxPages = 10
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Minute
	}
	return c
}

type Engine struct {
	commerce  gateway.Commerce
	erp       gateway.ERP
	orders    *orderDatabase.Store
	jobs      *syncjob.Store
	guard     *lock.Guard
	affiliate affiliate.Trigger
	cfg       Config
	logger    *logging.Logger
}

func NewEngine(commerce gateway.Commerce, erp gateway.ERP, orders *orderDatabase.Store, jobs *syncjob.Store,
	guard *lock.Guard, trigger affiliate.Trigger, cfg Config, logger *logging.Logger) *Engine {
	if trigger == nil {
		trigger = affiliate.Noop{}
	}
	return &Engine{
		commerce:  commerce,
		erp:       erp,
		orders:    orders,
		jobs:      jobs,
		guard:     guard,
		affiliate: trigger,
		cfg:       cfg.withDefaults(),
		logger:    logger.WithField("sync_type", syncjob.TypeOrders),
	}
}

// SyncOrder pulls one order and stores it. It returns nil, nil when
// WooCommerce does not know the order, and nil with the remote error when the
// fetch failed.
func (e *Engine) SyncOrder(ctx context.Context, wooID int64) (*orderDatabase.Order, error) {
	log := e.logger.WithField("order_id", wooID)
	log.Debug("Start SyncOrder")
	defer log.Debug("End SyncOrder")

	remote, raw, err := e.commerce.GetOrderRaw(ctx, wooID)
	if err != nil {
		log.Warnf("failed to fetch order: %v", err)
		return nil, err
	}
	if remote == nil {
		log.Info("order not found in WooCommerce")
		return nil, nil
	}
	o, err := mapping.Order(*remote, raw)
	if err != nil {
		return nil, errors.Wrapf(err, "order %d", wooID)
	}
	if err := e.save(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// save upserts o with its line items, invoices it when paid and hands
// coupon orders to the affiliate side. A failed hand-off never fails the
// sync.
func (e *Engine) save(ctx context.Context, o *orderDatabase.Order) error {
	if err := e.orders.Save(ctx, o); err != nil {
		return err
	}
	if err := e.invoice(ctx, o); err != nil {
		return err
	}
	if o.CouponCode != "" {
		if err := e.affiliate.OrderSynced(ctx, o); err != nil {
			e.logger.WithField("order_id", o.WooID).Warnf("affiliate hand-off failed: %v", err)
		}
	}
	return nil
}

// invoice raises the ERP invoice for a stored paid order without one. The
// order row is claimed first so concurrent syncs of the same order create
// at most one invoice. A refused invoice drops the claim and the next sync
// retries.
func (e *Engine) invoice(ctx context.Context, o *orderDatabase.Order) error {
	if !o.IsPaid() || o.Invoiced() {
		return nil
	}
	log := e.logger.WithField("order_id", o.WooID)
	token := uuid.NewString()
	claimed, err := e.orders.ClaimInvoice(ctx, o.ID, token, invoiceClaimTTL)
	if err != nil {
		return err
	}
	if !claimed {
		log.Debug("invoice claimed by another sync")
		return nil
	}

	invoiceID := e.erp.CreateInvoice(ctx, o)
	if invoiceID == "" {
		log.Warn("invoice not created, order stays uninvoiced")
		return e.orders.ReleaseInvoice(ctx, o.ID, token)
	}
	linked, err := e.orders.SetInvoice(ctx, o.ID, token, invoiceID)
	if err != nil {
		return err
	}
	if !linked {
		return errors.Errorf("invoice %s created but order %d claim was lost", invoiceID, o.WooID)
	}
	o.InvoiceID = invoiceID
	log.Infof("invoice %s linked", invoiceID)
	return nil
}

// SyncAll walks the order list page by page under the orders lock until an
// empty page or maxPages pages. A failing order is recorded on the job and
// the walk goes on. Like the product pass it returns nil, nil when another
// run holds the lock.
func (e *Engine) SyncAll(ctx context.Context, maxPages int) (*syncjob.Job, error) {
	e.logger.Info("Start SyncAll")
	defer e.logger.Info("End SyncAll")

	if maxPages <= 0 {
		maxPages = e.cfg.MaxPages
	}
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	started := time.Now()
	var job *syncjob.Job
	ran, err := e.guard.TryWithLock(ctx, lock.KeyOrders, e.cfg.Timeout+time.Minute, func(ctx context.Context) error {
		var err error
		job, err = e.run(ctx, maxPages)
		return err
	})
	if !ran {
		if err != nil {
			return nil, errors.Wrap(err, "failed to take orders lock")
		}
		e.logger.Info("order sync already running, skipping")
		metrics.SyncRunsTotal.WithLabelValues(syncjob.TypeOrders, "skipped").Inc()
		return nil, nil
	}
	metrics.SyncRunDuration.WithLabelValues(syncjob.TypeOrders).Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues(syncjob.TypeOrders, "failed").Inc()
		return job, err
	}
	metrics.SyncRunsTotal.WithLabelValues(syncjob.TypeOrders, "completed").Inc()
	return job, nil
}

func (e *Engine) run(ctx context.Context, maxPages int) (*syncjob.Job, error) {
	job, err := e.jobs.Create(ctx, syncjob.TypeOrders)
	if err != nil {
		return nil, err
	}
	if err := e.jobs.Start(ctx, job, 0); err != nil {
		return job, err
	}
	log := e.logger.WithField("job_id", job.ID)

	filters := e.listFilters()
	processed, success := 0, 0
	for page := 1; page <= maxPages; page++ {
		list, err := e.commerce.ListOrders(ctx, page, e.cfg.PageSize, filters...)
		if err != nil {
			if ctx.Err() != nil {
				log.Warnf("order sync interrupted on page %d: %v", page, ctx.Err())
				return job, ctx.Err()
			}
			msg := fmt.Sprintf("fetch orders page %d: %v", page, err)
			log.Error(msg)
			if ferr := e.jobs.Fail(ctx, job, msg); ferr != nil {
				log.Errorf("failed to mark job failed: %v", ferr)
			}
			return job, errors.New(msg)
		}
		if len(list) == 0 {
			break
		}
		if err := e.jobs.Extend(ctx, job, len(list)); err != nil {
			return job, err
		}

		for i := range list {
			processed++
			if err := e.syncListed(ctx, list[i]); err != nil {
				log.WithField("order_id", list[i].ID).Warnf("order failed: %v", err)
				metrics.SyncItemsTotal.WithLabelValues(engineName, metrics.OutcomeFailed).Inc()
				if nerr := e.jobs.AddError(ctx, job, fmt.Sprintf("order %d: %v", list[i].ID, err)); nerr != nil {
					log.Errorf("failed to record error: %v", nerr)
				}
				continue
			}
			success++
			metrics.SyncItemsTotal.WithLabelValues(engineName, metrics.OutcomeOK).Inc()
		}
		if err := e.jobs.Progress(ctx, job, processed, success, job.ErrorCount); err != nil {
			return job, err
		}
	}
	if ctx.Err() != nil {
		return job, ctx.Err()
	}

	if err := e.jobs.Complete(ctx, job); err != nil {
		return job, err
	}
	log.Infof("order sync done: %d processed, %d ok, %d errors", job.ProcessedItems, job.SuccessCount, job.ErrorCount)
	return job, nil
}

// listFilters walks newest first so the page bound keeps the recent orders.
// The lookback window is fixed once per pass so pages do not shift under it.
func (e *Engine) listFilters() []options.Option {
	filters := []options.Option{options.OrderBy("date"), options.Order("desc")}
	if e.cfg.Lookback > 0 {
		after := time.Now().UTC().Add(-e.cfg.Lookback).Format("2006-01-02T15:04:05")
		filters = append(filters, options.After(after))
	}
	return filters
}

// syncListed stores an order as it came in the list response; the list
// already carries the full order so no extra fetch is made.
func (e *Engine) syncListed(ctx context.Context, remote models.Order) error {
	o, err := mapping.Order(remote, nil)
	if err != nil {
		return err
	}
	return e.save(ctx, o)
}

// SyncFromWebhook stores the order carried by a webhook body.
func (e *Engine) SyncFromWebhook(ctx context.Context, payload []byte) (*orderDatabase.Order, error) {
	e.logger.Debug("Start SyncFromWebhook")
	defer e.logger.Debug("End SyncFromWebhook")

	var remote models.Order
	if err := json.Unmarshal(payload, &remote); err != nil {
		return nil, &mapping.ParseError{Field: "body", Reason: err.Error()}
	}
	o, err := mapping.Order(remote, json.RawMessage(payload))
	if err != nil {
		return nil, err
	}
	if err := e.save(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// UpdateStatus pushes a status change to WooCommerce and stores the order
// as WooCommerce now reports it.
func (e *Engine) UpdateStatus(ctx context.Context, wooID int64, status string) (*orderDatabase.Order, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, &mapping.ParseError{Field: "status", Reason: "missing"}
	}
	if !e.commerce.UpdateOrderStatus(ctx, wooID, status) {
		return nil, errors.Wrapf(ErrStatusRefused, "order %d status %q", wooID, status)
	}
	return e.SyncOrder(ctx, wooID)
}
