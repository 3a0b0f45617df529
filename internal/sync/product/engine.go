// Package product mirrors the WooCommerce catalog into the local product
// tables and pushes ERP prices and stock back to WooCommerce.
package product

import (
	"context"
	"fmt"
	"strings"
	"time"

	productDatabase "WooWithBizimHesap/internal/database/model/product"
	"WooWithBizimHesap/internal/database/model/syncjob"
	"WooWithBizimHesap/internal/gateway"
	"WooWithBizimHesap/internal/lock"
	"WooWithBizimHesap/internal/mapping"
	"WooWithBizimHesap/internal/metrics"
	"WooWithBizimHesap/internal/wooapi/models"
	"WooWithBizimHesap/pkg/logging"
	"github.com/pkg/errors"
)

const engineName = "products"

type Config struct {
	PageSize   int
	BatchSize  int
	Timeout    time.Duration
	SkuLockTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 || c.PageSize > 100 {
		c.PageSize = 100
	}
	if c.BatchSize <= 0 || c.BatchSize > 100 {
		c.BatchSize = 100
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Minute
	}
	if c.SkuLockTTL <= 0 {
		c.SkuLockTTL = 5 * time.Second
	}
	return c
}

type Engine struct {
	commerce gateway.Commerce
	erp      gateway.ERP
	products *productDatabase.Store
	jobs     *syncjob.Store
	guard    *lock.Guard
	cfg      Config
	logger   *logging.Logger
}

func NewEngine(commerce gateway.Commerce, erp gateway.ERP, products *productDatabase.Store, jobs *syncjob.Store, guard *lock.Guard, cfg Config, logger *logging.Logger) *Engine {
	return &Engine{
		commerce: commerce,
		erp:      erp,
		products: products,
		jobs:     jobs,
		guard:    guard,
		cfg:      cfg.withDefaults(),
		logger:   logger.WithField("sync_type", syncjob.TypeProducts),
	}
}

// SyncAll runs one full pass under the products lock. When another pass
// holds the lock it returns nil, nil without writing anything. A pass that
// hits the timeout leaves its job processing; the lock TTL lets the next
// tick retry.
func (e *Engine) SyncAll(ctx context.Context) (*syncjob.Job, error) {
	e.logger.Info("Start SyncAll")
	defer e.logger.Info("End SyncAll")

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	started := time.Now()
	var job *syncjob.Job
	ran, err := e.guard.TryWithLock(ctx, lock.KeyProducts, e.cfg.Timeout+time.Minute, func(ctx context.Context) error {
		var err error
		job, err = e.run(ctx)
		return err
	})
	if !ran {
		if err != nil {
			return nil, errors.Wrap(err, "failed to take products lock")
		}
		e.logger.Info("product sync already running, skipping")
		metrics.SyncRunsTotal.WithLabelValues(syncjob.TypeProducts, "skipped").Inc()
		return nil, nil
	}
	metrics.SyncRunDuration.WithLabelValues(syncjob.TypeProducts).Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues(syncjob.TypeProducts, "failed").Inc()
		return job, err
	}
	metrics.SyncRunsTotal.WithLabelValues(syncjob.TypeProducts, "completed").Inc()
	return job, nil
}

// pass holds the counters and per-run caches of one SyncAll.
type pass struct {
	job        *syncjob.Job
	processed  int
	success    int
	categories map[int64]models.ProductCategory
	brands     *brandTerms
}

func (e *Engine) run(ctx context.Context) (*syncjob.Job, error) {
	job, err := e.jobs.Create(ctx, syncjob.TypeProducts)
	if err != nil {
		return nil, err
	}
	if err := e.jobs.Start(ctx, job, 0); err != nil {
		return job, err
	}
	log := e.logger.WithField("job_id", job.ID)

	p := &pass{job: job, categories: e.loadCategories(ctx), brands: newBrandTerms(e.commerce)}

	for page := 1; ; page++ {
		items, err := e.commerce.ListProducts(ctx, page, e.cfg.PageSize)
		if err != nil {
			if ctx.Err() != nil {
				log.Warnf("product sync interrupted on page %d: %v", page, ctx.Err())
				return job, ctx.Err()
			}
			msg := fmt.Sprintf("fetch products page %d: %v", page, err)
			log.Error(msg)
			if ferr := e.jobs.Fail(ctx, job, msg); ferr != nil {
				log.Errorf("failed to mark job failed: %v", ferr)
			}
			return job, errors.New(msg)
		}
		if len(items) == 0 {
			break
		}
		if err := e.jobs.Extend(ctx, job, len(items)); err != nil {
			return job, err
		}

		for i := range items {
			e.reconcileItem(ctx, p, items[i])
		}
		if err := e.jobs.Progress(ctx, job, p.processed, p.success, job.ErrorCount); err != nil {
			return job, err
		}
		if len(items) < e.cfg.PageSize {
			break
		}
	}

	if ctx.Err() != nil {
		return job, ctx.Err()
	}
	e.pushERP(ctx, p)
	if ctx.Err() != nil {
		return job, ctx.Err()
	}

	if err := e.jobs.Complete(ctx, job); err != nil {
		return job, err
	}
	log.Infof("product sync done: %d processed, %d ok, %d errors", job.ProcessedItems, job.SuccessCount, job.ErrorCount)
	return job, nil
}

func (e *Engine) reconcileItem(ctx context.Context, p *pass, raw models.Product) {
	p.processed++
	err := e.reconcile(ctx, p, raw)
	switch {
	case err == nil:
		p.success++
		metrics.SyncItemsTotal.WithLabelValues(engineName, metrics.OutcomeOK).Inc()
	case errors.Is(err, mapping.ErrMissingSKU):
		e.logger.Debugf("product %d has no sku, skipped", raw.ID)
		metrics.SyncItemsTotal.WithLabelValues(engineName, metrics.OutcomeSkipped).Inc()
	default:
		e.logger.WithField("sku", raw.Sku).Warnf("product %d: %v", raw.ID, err)
		metrics.SyncItemsTotal.WithLabelValues(engineName, metrics.OutcomeFailed).Inc()
		e.note(ctx, p.job, fmt.Sprintf("product %d (%s): %v", raw.ID, raw.Sku, err))
	}
}

// note appends msg to the job's error log; a ledger failure is only logged.
func (e *Engine) note(ctx context.Context, job *syncjob.Job, msg string) {
	if err := e.jobs.AddError(ctx, job, msg); err != nil {
		e.logger.WithField("job_id", job.ID).Errorf("failed to record error %q: %v", msg, err)
	}
}

// reconcile writes one remote product with its relations. Variations are
// fetched before any write so a failed fetch leaves the local rows untouched.
func (e *Engine) reconcile(ctx context.Context, p *pass, raw models.Product) error {
	prod, err := mapping.Product(raw)
	if err != nil {
		return err
	}

	var variations []productDatabase.Variation
	if prod.HasVariations() {
		remote, err := e.commerce.ListVariations(ctx, raw.ID)
		if err != nil {
			return errors.Wrap(err, "variations")
		}
		for _, v := range remote {
			mv, err := mapping.Variation(v)
			if err != nil {
				return errors.Wrapf(err, "variation %d", v.ID)
			}
			variations = append(variations, mv)
		}
	}

	if err := e.products.Upsert(ctx, prod); err != nil {
		return err
	}

	catIDs := make([]int64, 0, len(prod.Categories))
	for _, c := range prod.Categories {
		if full, ok := p.categories[c.WooID]; ok {
			c.ParentWooID = full.Parent
		}
		if err := e.products.UpsertCategory(ctx, c); err != nil {
			return err
		}
		catIDs = append(catIDs, c.WooID)
	}
	if err := e.products.ReplaceCategories(ctx, prod.ID, catIDs); err != nil {
		return err
	}

	brandIDs := make([]int64, 0, len(prod.Brands))
	for _, b := range prod.Brands {
		if b.WooID == 0 {
			b = p.brands.resolve(ctx, mapping.BrandAttributeID(raw), b)
			if b.WooID == 0 {
				e.logger.WithField("sku", prod.SKU).Debugf("brand %q has no term, skipped", b.Name)
				continue
			}
		}
		if err := e.products.UpsertBrand(ctx, b); err != nil {
			return err
		}
		brandIDs = append(brandIDs, b.WooID)
	}
	if err := e.products.ReplaceBrands(ctx, prod.ID, brandIDs); err != nil {
		return err
	}

	if err := e.products.ReplaceImages(ctx, prod.ID, prod.Images); err != nil {
		return err
	}
	if prod.HasVariations() {
		if err := e.products.ReplaceVariations(ctx, prod.ID, variations); err != nil {
			return err
		}
	}
	return nil
}

// loadCategories indexes every store category by id for parent lookups. A
// failure only costs the parent links of this pass.
func (e *Engine) loadCategories(ctx context.Context) map[int64]models.ProductCategory {
	out := make(map[int64]models.ProductCategory)
	for page := 1; ; page++ {
		cats, err := e.commerce.ListCategories(ctx, page, 100)
		if err != nil {
			e.logger.Warnf("categories unavailable, parents not updated: %v", err)
			return out
		}
		for _, c := range cats {
			out[c.ID] = c
		}
		if len(cats) < 100 {
			return out
		}
	}
}

// SyncOne reconciles a single product, as pushed by a product webhook.
// It returns nil when WooCommerce no longer has the product.
func (e *Engine) SyncOne(ctx context.Context, wooID int64) (*productDatabase.Product, error) {
	log := e.logger.WithField("product_id", wooID)
	log.Debug("Start SyncOne")
	defer log.Debug("End SyncOne")

	raw, err := e.commerce.GetProduct(ctx, wooID)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		log.Info("product not found in WooCommerce")
		return nil, nil
	}
	p := &pass{categories: map[int64]models.ProductCategory{}, brands: newBrandTerms(e.commerce)}
	if err := e.reconcile(ctx, p, *raw); err != nil {
		if errors.Is(err, mapping.ErrMissingSKU) {
			log.Info("product has no sku, skipped")
			return nil, nil
		}
		return nil, err
	}
	return e.products.FindBySKU(ctx, strings.TrimSpace(raw.Sku))
}
