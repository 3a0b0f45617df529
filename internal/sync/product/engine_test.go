package product

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"WooWithBizimHesap/internal/database/dbtest"
	productDatabase "WooWithBizimHesap/internal/database/model/product"
	"WooWithBizimHesap/internal/database/model/syncjob"
	"WooWithBizimHesap/internal/gateway/gatewaytest"
	"WooWithBizimHesap/internal/lock"
	"WooWithBizimHesap/internal/wooapi/models"
	"WooWithBizimHesap/pkg/logging"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	engine   *Engine
	commerce *gatewaytest.CommerceMock
	erp      *gatewaytest.ERPMock
	products *productDatabase.Store
	jobs     *syncjob.Store
	guard    *lock.Guard
}

func newFixture(t *testing.T, cfg Config) *fixture {
	db := dbtest.New(t)
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := logging.Discard()
	f := &fixture{
		commerce: &gatewaytest.CommerceMock{},
		erp:      &gatewaytest.ERPMock{},
		products: productDatabase.NewStore(db, log),
		jobs:     syncjob.NewStore(db, log),
		guard:    lock.NewGuard(lock.NewRedisStore(client, ""), log),
	}
	f.engine = NewEngine(f.commerce, f.erp, f.products, f.jobs, f.guard, cfg, log)
	return f
}

func intp(n int) *int { return &n }

func catalog() []models.Product {
	return []models.Product{
		{
			ID: 1, Sku: "A", Name: "Çay", Type: "simple", Status: "publish", RegularPrice: "10.00", StockQuantity: intp(5),
			Categories: []models.Categories{{Id: 20, Name: "Siyah Çay", Slug: "siyah-cay"}},
			Brands:     []models.Categories{{Id: 9, Name: "Doğuş", Slug: "dogus"}},
			Images:     []models.ProductImage{{Id: 100, Src: "a1.jpg"}, {Id: 101, Src: "a2.jpg"}},
		},
		{
			ID: 2, Sku: "B", Name: "Fincan", Type: "variable", Status: "publish",
			Attributes: []models.ProductAttribute{{Id: 6, Name: "pa_brand", Options: []string{"Paşabahçe"}}},
		},
		{ID: 3, Name: "no sku"},
	}
}

func (f *fixture) expectCatalog(products []models.Product) {
	f.commerce.On("ListCategories", mock.Anything, 1, 100).Return([]models.ProductCategory{{ID: 20, Name: "Siyah Çay", Parent: 2}}, nil)
	f.commerce.On("ListProducts", mock.Anything, 1, 100).Return(products, nil)
	f.commerce.On("ListVariations", mock.Anything, int64(2)).Return([]models.Variation{
		{ID: 21, Sku: "B-S", Price: "4"}, {ID: 22, Sku: "B-L", Price: "6"},
	}, nil)
	f.commerce.On("ListAttributeTerms", mock.Anything, int64(6), 1, 100).Return([]models.AttributeTerm{{ID: 31, Name: "Paşabahçe", Slug: "pasabahce"}}, nil)
}

func TestSyncAllReconcilesCatalog(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	f.expectCatalog(catalog())
	f.erp.On("FetchProductsRaw", mock.Anything).Return([]json.RawMessage{
		json.RawMessage(`{"id":"E-A","code":"A","title":"Çay","price":"12.5","quantity":7}`),
		json.RawMessage(`{"id":"E-Z","code":"Z","title":"Unknown","price":"1"}`),
	}, nil)
	var sent []models.Product
	f.commerce.On("BatchUpdateProducts", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(1).([]models.Product)
	}).Return(&models.BatchResult{Update: []models.BatchItem{{ID: 1, Sku: "A"}}}, nil)

	job, err := f.engine.SyncAll(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, syncjob.StatusCompleted, job.Status)
	assert.Equal(t, 3, job.TotalItems)
	assert.Equal(t, 3, job.ProcessedItems)
	assert.Equal(t, 2, job.SuccessCount)
	assert.Equal(t, 0, job.ErrorCount)

	n, err := f.products.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	a, err := f.products.FindBySKU(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, productDatabase.SyncSynced, a.SyncStatus)
	assert.Equal(t, "E-A", a.ERPID)
	assert.True(t, a.RegularPrice.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, 7, *a.StockQuantity)

	cats, err := f.products.CategoryIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{20}, cats)
	imgs, err := f.products.Images(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, imgs, 2)
	assert.Equal(t, "a1.jpg", imgs[0].Src)

	b, err := f.products.FindBySKU(ctx, "B")
	require.NoError(t, err)
	vars, err := f.products.Variations(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, vars, 2)
	brands, err := f.products.BrandIDs(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{31}, brands)

	require.Len(t, sent, 1)
	assert.EqualValues(t, 1, sent[0].ID)
	assert.Equal(t, "12.50", sent[0].RegularPrice)
}

func TestSyncAllReplacesChildSets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	first := catalog()[:1]
	second := catalog()[:1]
	second[0].Images = []models.ProductImage{{Id: 102, Src: "a3.jpg"}}
	second[0].Categories = nil

	f.commerce.On("ListCategories", mock.Anything, 1, 100).Return([]models.ProductCategory{}, nil)
	f.commerce.On("ListProducts", mock.Anything, 1, 100).Return(first, nil).Once()
	f.commerce.On("ListProducts", mock.Anything, 1, 100).Return(second, nil).Once()
	f.erp.On("FetchProductsRaw", mock.Anything).Return([]json.RawMessage{}, nil)

	_, err := f.engine.SyncAll(ctx)
	require.NoError(t, err)
	_, err = f.engine.SyncAll(ctx)
	require.NoError(t, err)

	a, err := f.products.FindBySKU(ctx, "A")
	require.NoError(t, err)
	imgs, err := f.products.Images(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, imgs, 1)
	assert.Equal(t, "a3.jpg", imgs[0].Src)
	cats, err := f.products.CategoryIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, cats)

	n, err := f.products.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSyncAllPrimaryFailureAbortsPass(t *testing.T) {
	f := newFixture(t, Config{})
	f.commerce.On("ListCategories", mock.Anything, 1, 100).Return([]models.ProductCategory{}, nil)
	f.commerce.On("ListProducts", mock.Anything, 1, 100).Return(nil, gatewaytest.RemoteError("ListProducts", 503))

	job, err := f.engine.SyncAll(context.Background())
	assert.Error(t, err)
	require.NotNil(t, job)
	assert.Equal(t, syncjob.StatusFailed, job.Status)
	assert.Len(t, job.Errors, 1)
	f.erp.AssertNotCalled(t, "FetchProductsRaw", mock.Anything)
}

func TestSyncAllMutualExclusion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	entered := make(chan struct{})
	release := make(chan struct{})
	f.commerce.On("ListCategories", mock.Anything, 1, 100).Return([]models.ProductCategory{}, nil)
	f.commerce.On("ListProducts", mock.Anything, 1, 100).Run(func(mock.Arguments) {
		close(entered)
		<-release
	}).Return([]models.Product{}, nil).Once()
	f.erp.On("FetchProductsRaw", mock.Anything).Return([]json.RawMessage{}, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		job, err := f.engine.SyncAll(ctx)
		assert.NoError(t, err)
		assert.NotNil(t, job)
	}()

	<-entered
	job, err := f.engine.SyncAll(ctx)
	assert.NoError(t, err)
	assert.Nil(t, job)
	close(release)
	wg.Wait()

	jobs, err := f.jobs.List(ctx, syncjob.TypeProducts, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, syncjob.StatusCompleted, jobs[0].Status)
	f.commerce.AssertNumberOfCalls(t, "ListProducts", 1)
}

func TestSyncAllTimeoutLeavesJobProcessing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{Timeout: 50 * time.Millisecond})
	f.commerce.On("ListCategories", mock.Anything, 1, 100).Return([]models.ProductCategory{}, nil)
	f.commerce.On("ListProducts", mock.Anything, 1, 100).Run(func(args mock.Arguments) {
		<-args.Get(0).(context.Context).Done()
	}).Return(nil, gatewaytest.RemoteError("ListProducts", 0))

	job, err := f.engine.SyncAll(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.NotNil(t, job)

	got, err := f.jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, syncjob.StatusProcessing, got.Status)

	token, err := f.guard.Acquire(ctx, lock.KeyProducts, time.Minute)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestERPPhaseIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{BatchSize: 2})
	products := []models.Product{
		{ID: 1, Sku: "A", RegularPrice: "1"},
		{ID: 2, Sku: "B", RegularPrice: "1"},
		{ID: 3, Sku: "C", RegularPrice: "1"},
	}
	f.commerce.On("ListCategories", mock.Anything, 1, 100).Return([]models.ProductCategory{}, nil)
	f.commerce.On("ListProducts", mock.Anything, 1, 100).Return(products, nil)
	f.erp.On("FetchProductsRaw", mock.Anything).Return([]json.RawMessage{
		json.RawMessage(`{"id":"1","code":"A","title":"a","price":"2"}`),
		json.RawMessage(`{"id":"2","code":"B","title":"b","price":"2"}`),
		json.RawMessage(`{"id":"3","code":"C","title":"c","price":"2"}`),
		json.RawMessage(`{"code":"X"}`),
	}, nil)
	f.commerce.On("BatchUpdateProducts", mock.Anything, mock.MatchedBy(func(items []models.Product) bool { return len(items) == 2 })).
		Return(&models.BatchResult{Update: []models.BatchItem{
			{ID: 1},
			{ID: 2, Error: &models.ErrorWoo{Code: "woocommerce_rest_invalid", Message: "bad"}},
		}}, nil).Once()
	f.commerce.On("BatchUpdateProducts", mock.Anything, mock.MatchedBy(func(items []models.Product) bool { return len(items) == 1 })).
		Return(nil, gatewaytest.RemoteError("BatchUpdateProducts", 500)).Once()

	job, err := f.engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, syncjob.StatusCompleted, job.Status)
	assert.Equal(t, 3, job.SuccessCount)
	// unmappable record, rejected item, failed chunk
	assert.Equal(t, 3, job.ErrorCount)
	f.commerce.AssertNumberOfCalls(t, "BatchUpdateProducts", 2)

	a, err := f.products.FindBySKU(ctx, "A")
	require.NoError(t, err)
	assert.True(t, a.RegularPrice.Equal(decimal.NewFromInt(2)))
	b, err := f.products.FindBySKU(ctx, "B")
	require.NoError(t, err)
	assert.True(t, b.RegularPrice.Equal(decimal.NewFromInt(1)))
}

func TestERPPhaseUpdatesVariations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{BatchSize: 1})
	f.commerce.On("ListCategories", mock.Anything, 1, 100).Return([]models.ProductCategory{}, nil)
	f.commerce.On("ListProducts", mock.Anything, 1, 100).Return([]models.Product{{ID: 2, Sku: "B", Type: "variable"}}, nil)
	f.commerce.On("ListVariations", mock.Anything, int64(2)).Return([]models.Variation{
		{ID: 21, Sku: "B-S", RegularPrice: "4", StockQuantity: intp(1)},
		{ID: 22, Sku: "B-L", RegularPrice: "6", StockQuantity: intp(2)},
		{ID: 23, Sku: "B-XL", RegularPrice: "8", StockQuantity: intp(3)},
	}, nil)
	f.erp.On("FetchProductsRaw", mock.Anything).Return([]json.RawMessage{
		json.RawMessage(`{"id":"E-S","code":"B-S","title":"s","price":"4.50","quantity":9}`),
		json.RawMessage(`{"id":"E-L","code":"B-L","title":"l","price":"6","quantity":2}`),
		json.RawMessage(`{"id":"E-XL","code":"B-XL","title":"xl","price":"8,75","quantity":0}`),
	}, nil)
	var sent []models.Variation
	f.commerce.On("BatchUpdateVariations", mock.Anything, int64(2), mock.Anything).Run(func(args mock.Arguments) {
		sent = append(sent, args.Get(2).([]models.Variation)...)
	}).Return(&models.BatchResult{Update: []models.BatchItem{{ID: 21}}}, nil).Once()
	f.commerce.On("BatchUpdateVariations", mock.Anything, int64(2), mock.Anything).
		Return(&models.BatchResult{Update: []models.BatchItem{
			{ID: 23, Error: &models.ErrorWoo{Code: "woocommerce_rest_invalid", Message: "bad"}},
		}}, nil).Once()

	job, err := f.engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, syncjob.StatusCompleted, job.Status)
	assert.Equal(t, 1, job.ErrorCount, "the rejected variation")
	f.commerce.AssertNumberOfCalls(t, "BatchUpdateVariations", 2)
	f.commerce.AssertNotCalled(t, "BatchUpdateProducts", mock.Anything, mock.Anything)

	require.Len(t, sent, 1)
	assert.EqualValues(t, 21, sent[0].ID)
	assert.Equal(t, "4.50", sent[0].RegularPrice)
	assert.True(t, sent[0].ManageStock)
	assert.Equal(t, 9, *sent[0].StockQuantity)

	b, err := f.products.FindBySKU(ctx, "B")
	require.NoError(t, err)
	vars, err := f.products.Variations(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, vars, 3)
	assert.True(t, vars[0].RegularPrice.Equal(decimal.RequireFromString("4.5")))
	assert.Equal(t, 9, *vars[0].StockQuantity)
	assert.Equal(t, 2, *vars[1].StockQuantity)
	assert.True(t, vars[2].RegularPrice.Equal(decimal.NewFromInt(8)), "rejected variation keeps its price")
	assert.Equal(t, 3, *vars[2].StockQuantity)
}

func TestERPPhaseSkipsLockedSKU(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	f.commerce.On("ListCategories", mock.Anything, 1, 100).Return([]models.ProductCategory{}, nil)
	f.commerce.On("ListProducts", mock.Anything, 1, 100).Return([]models.Product{{ID: 1, Sku: "A", RegularPrice: "1"}}, nil)
	f.erp.On("FetchProductsRaw", mock.Anything).Return([]json.RawMessage{
		json.RawMessage(`{"id":"1","code":"A","title":"a","price":"2"}`),
	}, nil)

	_, err := f.guard.Acquire(ctx, lock.SKUKey("A"), time.Minute)
	require.NoError(t, err)

	job, err := f.engine.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, job.ErrorCount)
	f.commerce.AssertNotCalled(t, "BatchUpdateProducts", mock.Anything, mock.Anything)
}

func TestSyncOne(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	f.commerce.On("GetProduct", mock.Anything, int64(1)).Return(&catalog()[0], nil)
	f.commerce.On("GetProduct", mock.Anything, int64(404)).Return(nil, nil)
	f.commerce.On("GetProduct", mock.Anything, int64(500)).Return(nil, gatewaytest.RemoteError("GetProduct", 500))

	p, err := f.engine.SyncOne(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "A", p.SKU)
	assert.EqualValues(t, 1, *p.WooID)

	p, err = f.engine.SyncOne(ctx, 404)
	assert.NoError(t, err)
	assert.Nil(t, p)

	_, err = f.engine.SyncOne(ctx, 500)
	assert.Error(t, err)
}
