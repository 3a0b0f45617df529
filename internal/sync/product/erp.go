package product

import (
	"context"
	"fmt"
	"strings"

	productDatabase "WooWithBizimHesap/internal/database/model/product"
	"WooWithBizimHesap/internal/database/model/staging"
	"WooWithBizimHesap/internal/gateway"
	"WooWithBizimHesap/internal/lock"
	"WooWithBizimHesap/internal/mapping"
	"WooWithBizimHesap/internal/metrics"
	"WooWithBizimHesap/internal/wooapi/models"
	"github.com/shopspring/decimal"
)

const erpEngineName = "products_erp"

// staged is one price/stock update waiting for the batch flush.
type staged struct {
	local  *productDatabase.Product
	erpID  string
	price  decimal.Decimal
	stock  int
	update models.Product
}

// stagedVariation is the same for a variation of a variable product; it is
// flushed through its parent's variation batch.
type stagedVariation struct {
	local  *productDatabase.VariationRef
	price  decimal.Decimal
	stock  int
	update models.Variation
}

// pushERP pulls prices and stock from the ERP and sends the changed ones to
// WooCommerce in batches. An ERP sku matching no product is looked up among
// the variations. Failures are recorded per record or per batch.
func (e *Engine) pushERP(ctx context.Context, p *pass) {
	e.logger.Debug("Start pushERP")
	defer e.logger.Debug("End pushERP")

	rows, err := e.erp.FetchProductsRaw(ctx)
	if err != nil {
		e.note(ctx, p.job, fmt.Sprintf("erp catalog: %v", err))
		return
	}

	var batch []staged
	var variations []stagedVariation
	for _, raw := range rows {
		rec, err := mapping.CatalogItem(raw)
		if err != nil {
			e.note(ctx, p.job, fmt.Sprintf("erp record: %v", err))
			metrics.SyncItemsTotal.WithLabelValues(erpEngineName, metrics.OutcomeFailed).Inc()
			continue
		}
		var (
			entry     *staged
			variation *stagedVariation
		)
		ran, err := e.guard.TryWithLock(ctx, lock.SKUKey(rec.SKU), e.cfg.SkuLockTTL, func(ctx context.Context) error {
			var err error
			entry, variation, err = e.stage(ctx, rec)
			return err
		})
		switch {
		case err != nil:
			e.note(ctx, p.job, fmt.Sprintf("erp sku %s: %v", rec.SKU, err))
			metrics.SyncItemsTotal.WithLabelValues(erpEngineName, metrics.OutcomeFailed).Inc()
		case !ran:
			e.logger.WithField("sku", rec.SKU).Info("sku locked by another writer, skipped")
			metrics.SyncItemsTotal.WithLabelValues(erpEngineName, metrics.OutcomeSkipped).Inc()
		case entry != nil:
			batch = append(batch, *entry)
		case variation != nil:
			variations = append(variations, *variation)
		}
	}

	e.logger.Infof("erp phase: %d products and %d variations of %d records staged", len(batch), len(variations), len(rows))
	for start := 0; start < len(batch); start += e.cfg.BatchSize {
		end := start + e.cfg.BatchSize
		if end > len(batch) {
			end = len(batch)
		}
		e.flush(ctx, p, batch[start:end])
	}
	e.flushVariations(ctx, p, variations)
}

// stage compares the ERP record with the local product or variation of the
// same sku and returns the update to send, if any.
func (e *Engine) stage(ctx context.Context, rec *staging.Record) (*staged, *stagedVariation, error) {
	local, err := e.products.FindBySKU(ctx, rec.SKU)
	if err != nil {
		return nil, nil, err
	}
	stock := rec.Stock
	if local == nil {
		v, err := e.products.FindVariationBySKU(ctx, rec.SKU)
		if err != nil || v == nil {
			return nil, nil, err
		}
		if v.RegularPrice.Equal(rec.Price) && v.StockQuantity != nil && *v.StockQuantity == rec.Stock {
			return nil, nil, nil
		}
		return nil, &stagedVariation{
			local: v,
			price: rec.Price,
			stock: stock,
			update: models.Variation{
				ID:            v.WooID,
				RegularPrice:  rec.Price.StringFixed(2),
				ManageStock:   true,
				StockQuantity: &stock,
			},
		}, nil
	}
	if local.WooID == nil {
		return nil, nil, nil
	}
	if local.ERPID == rec.ExternalID && local.RegularPrice.Equal(rec.Price) &&
		local.StockQuantity != nil && *local.StockQuantity == rec.Stock {
		return nil, nil, nil
	}
	return &staged{
		local: local,
		erpID: rec.ExternalID,
		price: rec.Price,
		stock: stock,
		update: models.Product{
			ID:            *local.WooID,
			RegularPrice:  rec.Price.StringFixed(2),
			ManageStock:   true,
			StockQuantity: &stock,
		},
	}, nil, nil
}

func (e *Engine) flush(ctx context.Context, p *pass, chunk []staged) {
	updates := make([]models.Product, len(chunk))
	for i := range chunk {
		updates[i] = chunk[i].update
	}

	res, err := e.commerce.BatchUpdateProducts(ctx, updates)
	if err != nil {
		e.note(ctx, p.job, fmt.Sprintf("batch update of %d products: %v", len(chunk), err))
		metrics.SyncItemsTotal.WithLabelValues(erpEngineName, metrics.OutcomeFailed).Add(float64(len(chunk)))
		return
	}

	rejected := rejectedItems(res)
	for _, s := range chunk {
		sku := s.local.SKU
		if reason, bad := rejected[s.update.ID]; bad {
			e.note(ctx, p.job, fmt.Sprintf("batch update sku %s: %s", sku, reason))
			metrics.SyncItemsTotal.WithLabelValues(erpEngineName, metrics.OutcomeFailed).Inc()
			continue
		}
		local := *s.local
		local.ERPID = s.erpID
		local.RegularPrice = s.price
		stock := s.stock
		local.StockQuantity = &stock
		if err := e.products.Upsert(ctx, &local); err != nil {
			e.note(ctx, p.job, fmt.Sprintf("local update sku %s: %v", sku, err))
			continue
		}
		metrics.SyncItemsTotal.WithLabelValues(erpEngineName, metrics.OutcomeOK).Inc()
	}
}

// flushVariations sends variation updates grouped by parent product, in
// chunks of BatchSize per parent.
func (e *Engine) flushVariations(ctx context.Context, p *pass, staged []stagedVariation) {
	var parents []int64
	byParent := make(map[int64][]stagedVariation)
	for _, s := range staged {
		parent := s.local.ParentWooID
		if _, ok := byParent[parent]; !ok {
			parents = append(parents, parent)
		}
		byParent[parent] = append(byParent[parent], s)
	}
	for _, parent := range parents {
		group := byParent[parent]
		for start := 0; start < len(group); start += e.cfg.BatchSize {
			end := start + e.cfg.BatchSize
			if end > len(group) {
				end = len(group)
			}
			e.flushVariationChunk(ctx, p, parent, group[start:end])
		}
	}
}

func (e *Engine) flushVariationChunk(ctx context.Context, p *pass, parent int64, chunk []stagedVariation) {
	updates := make([]models.Variation, len(chunk))
	for i := range chunk {
		updates[i] = chunk[i].update
	}

	res, err := e.commerce.BatchUpdateVariations(ctx, parent, updates)
	if err != nil {
		e.note(ctx, p.job, fmt.Sprintf("batch update of %d variations of product %d: %v", len(chunk), parent, err))
		metrics.SyncItemsTotal.WithLabelValues(erpEngineName, metrics.OutcomeFailed).Add(float64(len(chunk)))
		return
	}

	rejected := rejectedItems(res)
	for _, s := range chunk {
		sku := s.local.SKU
		if reason, bad := rejected[s.update.ID]; bad {
			e.note(ctx, p.job, fmt.Sprintf("batch update variation sku %s: %s", sku, reason))
			metrics.SyncItemsTotal.WithLabelValues(erpEngineName, metrics.OutcomeFailed).Inc()
			continue
		}
		if err := e.products.SetVariationStock(ctx, s.local.ID, s.price, s.stock); err != nil {
			e.note(ctx, p.job, fmt.Sprintf("local update variation sku %s: %v", sku, err))
			continue
		}
		metrics.SyncItemsTotal.WithLabelValues(erpEngineName, metrics.OutcomeOK).Inc()
	}
}

func rejectedItems(res *models.BatchResult) map[int64]string {
	rejected := make(map[int64]string)
	for _, it := range res.Failed() {
		rejected[it.ID] = it.Error.Error()
	}
	return rejected
}

// brandTerms resolves brand names from an attribute to their term ids,
// listing each attribute's terms once per pass.
type brandTerms struct {
	commerce gateway.Commerce
	byAttr   map[int64]map[string]models.AttributeTerm
}

func newBrandTerms(commerce gateway.Commerce) *brandTerms {
	return &brandTerms{commerce: commerce, byAttr: make(map[int64]map[string]models.AttributeTerm)}
}

func (t *brandTerms) resolve(ctx context.Context, attrID int64, b productDatabase.Brand) productDatabase.Brand {
	if attrID == 0 {
		return b
	}
	terms, ok := t.byAttr[attrID]
	if !ok {
		terms = make(map[string]models.AttributeTerm)
		for page := 1; ; page++ {
			list, err := t.commerce.ListAttributeTerms(ctx, attrID, page, 100)
			if err != nil {
				break
			}
			for _, term := range list {
				terms[strings.ToLower(term.Name)] = term
			}
			if len(list) < 100 {
				break
			}
		}
		t.byAttr[attrID] = terms
	}
	if term, ok := terms[strings.ToLower(b.Name)]; ok {
		return productDatabase.Brand{WooID: term.ID, Name: term.Name, Slug: term.Slug}
	}
	return b
}
