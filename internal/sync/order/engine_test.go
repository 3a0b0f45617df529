package order

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"testing"
	"time"

	"WooWithBizimHesap/internal/database/dbtest"
	orderDatabase "WooWithBizimHesap/internal/database/model/order"
	"WooWithBizimHesap/internal/database/model/syncjob"
	"WooWithBizimHesap/internal/gateway/gatewaytest"
	"WooWithBizimHesap/internal/lock"
	"WooWithBizimHesap/internal/mapping"
	"WooWithBizimHesap/internal/wooapi/models"
	"WooWithBizimHesap/pkg/logging"
	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingTrigger struct {
	mu     sync.Mutex
	orders []int64
	err    error
}

func (r *recordingTrigger) OrderSynced(_ context.Context, o *orderDatabase.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = append(r.orders, o.WooID)
	return r.err
}

type fixture struct {
	engine   *Engine
	commerce *gatewaytest.CommerceMock
	erp      *gatewaytest.ERPMock
	orders   *orderDatabase.Store
	jobs     *syncjob.Store
	guard    *lock.Guard
	trigger  *recordingTrigger
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
		orders:   orderDatabase.NewStore(db, log),
		jobs:     syncjob.NewStore(db, log),
		guard:    lock.NewGuard(lock.NewRedisStore(client, ""), log),
		trigger:  &recordingTrigger{},
	}
	f.engine = NewEngine(f.commerce, f.erp, f.orders, f.jobs, f.guard, f.trigger, cfg, log)
	return f
}

func remoteOrder(id int64, status string) models.Order {
	return models.Order{
		ID: id, Number: strconv.FormatInt(1000+id, 10), Status: status, Currency: "TRY",
		Total: "129.80", TotalTax: "19.80", ShippingTotal: "10.00",
		DateCreatedGmt: "2024-05-01T10:00:00",
		Billing:        &models.Address{FirstName: "Ayşe", LastName: "Yılmaz", Email: "ayse@example.com"},
		LineItems: []models.LineItem{
			{ID: 1, Name: "Çay", ProductID: 11, Sku: "A", Quantity: 2, Price: "50", Subtotal: "100.00", Total: "100.00", TotalTax: "18.00"},
			{ID: 2, Name: "Fincan", ProductID: 12, Sku: "B", Quantity: 1, Price: "10", Subtotal: "10.00", Total: "10.00", TotalTax: "1.80"},
		},
	}
}

func payload(t *testing.T, o models.Order) []byte {
	b, err := json.Marshal(o)
	require.NoError(t, err)
	return b
}

type lineView struct {
	WooLineID int64
	SKU       string
	Quantity  int
	Total     string
}

func lines(o *orderDatabase.Order) []lineView {
	out := make([]lineView, 0, len(o.Items))
	for _, it := range o.Items {
		out = append(out, lineView{it.WooLineID, it.SKU, it.Quantity, it.Total.StringFixed(2)})
	}
	return out
}

func TestSyncOrderIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	remote := remoteOrder(7, orderDatabase.StatusProcessing)
	f.commerce.On("GetOrderRaw", mock.Anything, int64(7)).Return(&remote, json.RawMessage(payload(t, remote)), nil)
	f.erp.On("CreateInvoice", mock.Anything, mock.Anything).Return("INV-7").Once()

	first, err := f.engine.SyncOrder(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, first)
	second, err := f.engine.SyncOrder(ctx, 7)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	n, err := f.orders.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	items, err := f.orders.CountItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, items)

	stored, err := f.orders.FindByWooID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, lines(first), lines(stored))
	assert.True(t, stored.Total.Equal(decimal.RequireFromString("129.80")))
	assert.Equal(t, "INV-7", stored.InvoiceID)
	assert.Empty(t, f.trigger.orders)
	f.erp.AssertNumberOfCalls(t, "CreateInvoice", 1)
}

func TestSyncOrderRemoteFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	f.commerce.On("GetOrderRaw", mock.Anything, int64(8)).Return(nil, nil, gatewaytest.RemoteError("GetOrderRaw", 500))
	f.commerce.On("GetOrderRaw", mock.Anything, int64(9)).Return(nil, nil, nil)

	o, err := f.engine.SyncOrder(ctx, 8)
	assert.Error(t, err)
	assert.Nil(t, o)

	o, err = f.engine.SyncOrder(ctx, 9)
	assert.NoError(t, err)
	assert.Nil(t, o)

	n, err := f.orders.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCouponOrderReachesAffiliate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	f.trigger.err = errors.New("broker down")

	remote := remoteOrder(5, orderDatabase.StatusCompleted)
	remote.CouponLines = []models.CouponLine{{Code: "AFF10", Discount: "10"}}
	f.commerce.On("GetOrderRaw", mock.Anything, int64(5)).Return(&remote, json.RawMessage(nil), nil)
	f.erp.On("CreateInvoice", mock.Anything, mock.Anything).Return("INV-5")

	o, err := f.engine.SyncOrder(ctx, 5)
	require.NoError(t, err, "a failed hand-off must not fail the sync")
	assert.Equal(t, "AFF10", o.CouponCode)
	assert.Equal(t, []int64{5}, f.trigger.orders)
}

func TestWebhookReplayInvoicesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	body := payload(t, remoteOrder(21, orderDatabase.StatusProcessing))

	f.erp.On("CreateInvoice", mock.Anything, mock.MatchedBy(func(o *orderDatabase.Order) bool {
		return o.WooID == 21 && len(o.Items) == 2
	})).Return("INV-21").Once()

	o, err := f.engine.SyncFromWebhook(ctx, body)
	require.NoError(t, err)
	assert.Equal(t, "INV-21", o.InvoiceID)

	// replayed delivery
	o, err = f.engine.SyncFromWebhook(ctx, body)
	require.NoError(t, err)
	assert.Equal(t, "INV-21", o.InvoiceID)

	f.erp.AssertNumberOfCalls(t, "CreateInvoice", 1)
	stored, err := f.orders.FindByWooID(ctx, 21)
	require.NoError(t, err)
	assert.Equal(t, "INV-21", stored.InvoiceID)
	assert.NotNil(t, stored.InvoicedAt)
}

func TestOrderPaidLaterIsInvoicedOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{PageSize: 5})

	_, err := f.engine.SyncFromWebhook(ctx, payload(t, remoteOrder(22, orderDatabase.StatusPending)))
	require.NoError(t, err)
	f.erp.AssertNotCalled(t, "CreateInvoice", mock.Anything, mock.Anything)

	// paid between polls: the poll raises the invoice
	f.commerce.On("ListOrders", mock.Anything, 1, 5).Return([]models.Order{remoteOrder(22, orderDatabase.StatusProcessing)}, nil)
	f.erp.On("CreateInvoice", mock.Anything, mock.MatchedBy(func(o *orderDatabase.Order) bool { return o.WooID == 22 })).
		Return("INV-22").Once()
	job, err := f.engine.SyncAll(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, job.SuccessCount)

	// the late paid delivery finds the invoice in place
	o, err := f.engine.SyncFromWebhook(ctx, payload(t, remoteOrder(22, orderDatabase.StatusProcessing)))
	require.NoError(t, err)
	assert.Equal(t, orderDatabase.StatusProcessing, o.Status)
	assert.Equal(t, "INV-22", o.InvoiceID)
	f.erp.AssertNumberOfCalls(t, "CreateInvoice", 1)
}

func TestWebhookPaidAfterPendingDeliveryIsInvoiced(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	f.erp.On("CreateInvoice", mock.Anything, mock.Anything).Return("INV-24").Once()

	_, err := f.engine.SyncFromWebhook(ctx, payload(t, remoteOrder(24, orderDatabase.StatusPending)))
	require.NoError(t, err)
	o, err := f.engine.SyncFromWebhook(ctx, payload(t, remoteOrder(24, orderDatabase.StatusProcessing)))
	require.NoError(t, err)
	assert.Equal(t, "INV-24", o.InvoiceID)

	_, err = f.engine.SyncFromWebhook(ctx, payload(t, remoteOrder(24, orderDatabase.StatusCompleted)))
	require.NoError(t, err)
	f.erp.AssertNumberOfCalls(t, "CreateInvoice", 1)
}

func TestConcurrentDeliveriesInvoiceOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	body := payload(t, remoteOrder(25, orderDatabase.StatusProcessing))
	f.erp.On("CreateInvoice", mock.Anything, mock.Anything).After(20 * time.Millisecond).Return("INV-25")

	const deliveries = 8
	var wg sync.WaitGroup
	errs := make(chan error, deliveries)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.SyncFromWebhook(ctx, body)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	f.erp.AssertNumberOfCalls(t, "CreateInvoice", 1)
	stored, err := f.orders.FindByWooID(ctx, 25)
	require.NoError(t, err)
	assert.Equal(t, "INV-25", stored.InvoiceID)
}

func TestWebhookRefusedInvoiceKeepsOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	f.erp.On("CreateInvoice", mock.Anything, mock.Anything).Return("").Once()
	f.erp.On("CreateInvoice", mock.Anything, mock.Anything).Return("INV-23").Once()
	body := payload(t, remoteOrder(23, orderDatabase.StatusCompleted))

	o, err := f.engine.SyncFromWebhook(ctx, body)
	require.NoError(t, err)
	assert.Empty(t, o.InvoiceID)

	stored, err := f.orders.FindByWooID(ctx, 23)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Empty(t, stored.InvoiceID, "a refused invoice leaves no claim behind")

	// the next delivery retries
	o, err = f.engine.SyncFromWebhook(ctx, body)
	require.NoError(t, err)
	assert.Equal(t, "INV-23", o.InvoiceID)
	f.erp.AssertNumberOfCalls(t, "CreateInvoice", 2)
}

func TestWebhookAndPollConverge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	remote := remoteOrder(30, orderDatabase.StatusCompleted)
	body := payload(t, remote)
	f.erp.On("CreateInvoice", mock.Anything, mock.Anything).Return("INV-30").Once()
	f.commerce.On("GetOrderRaw", mock.Anything, int64(30)).Return(&remote, json.RawMessage(body), nil)

	hooked, err := f.engine.SyncFromWebhook(ctx, body)
	require.NoError(t, err)
	polled, err := f.engine.SyncOrder(ctx, 30)
	require.NoError(t, err)

	assert.Equal(t, hooked.ID, polled.ID)
	assert.Equal(t, "INV-30", polled.InvoiceID, "polling keeps the invoice link")
	stored, err := f.orders.FindByWooID(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, lines(hooked), lines(stored))
	items, err := f.orders.CountItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, items)
}

func TestWebhookRejectsBadBody(t *testing.T) {
	f := newFixture(t, Config{})

	_, err := f.engine.SyncFromWebhook(context.Background(), []byte(`{"id":`))
	assert.True(t, mapping.IsParseError(err))

	_, err = f.engine.SyncFromWebhook(context.Background(), []byte(`{"status":"processing"}`))
	assert.True(t, mapping.IsParseError(err))
}

func TestSyncAllIsolatesOrderFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{PageSize: 3})
	bad := remoteOrder(3, orderDatabase.StatusProcessing)
	bad.Total = "not money"
	f.commerce.On("ListOrders", mock.Anything, 1, 3).Return([]models.Order{
		remoteOrder(1, orderDatabase.StatusProcessing), bad, remoteOrder(2, orderDatabase.StatusCompleted),
	}, nil)
	f.commerce.On("ListOrders", mock.Anything, 2, 3).Return([]models.Order{}, nil)
	f.erp.On("CreateInvoice", mock.Anything, mock.MatchedBy(func(o *orderDatabase.Order) bool { return o.WooID == 1 })).Return("INV-1")
	f.erp.On("CreateInvoice", mock.Anything, mock.MatchedBy(func(o *orderDatabase.Order) bool { return o.WooID == 2 })).Return("INV-2")

	job, err := f.engine.SyncAll(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, job)

	assert.Equal(t, syncjob.StatusCompleted, job.Status)
	assert.Equal(t, 3, job.ProcessedItems)
	assert.Equal(t, 2, job.SuccessCount)
	assert.Equal(t, 1, job.ErrorCount)
	require.Len(t, job.Errors, 1)
	assert.Contains(t, job.Errors[0], "order 3")

	n, err := f.orders.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	f.erp.AssertNumberOfCalls(t, "CreateInvoice", 2)
	stored, err := f.orders.FindByWooID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "INV-2", stored.InvoiceID)
}

func TestSyncAllStopsAtMaxPages(t *testing.T) {
	f := newFixture(t, Config{PageSize: 1})
	f.commerce.On("ListOrders", mock.Anything, 1, 1).Return([]models.Order{remoteOrder(1, orderDatabase.StatusPending)}, nil)
	f.commerce.On("ListOrders", mock.Anything, 2, 1).Return([]models.Order{remoteOrder(2, orderDatabase.StatusPending)}, nil)

	job, err := f.engine.SyncAll(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, job.ProcessedItems)
	f.commerce.AssertNumberOfCalls(t, "ListOrders", 2)
}

func TestSyncAllListsNewestFirst(t *testing.T) {
	f := newFixture(t, Config{PageSize: 2, Lookback: 48 * time.Hour})
	f.commerce.On("ListOrders", mock.Anything, 1, 2).Return([]models.Order{remoteOrder(1, orderDatabase.StatusPending)}, nil)
	f.commerce.On("ListOrders", mock.Anything, 2, 2).Return([]models.Order{}, nil)

	before := time.Now().UTC().Add(-48 * time.Hour).Add(-time.Second)
	_, err := f.engine.SyncAll(context.Background(), 2)
	require.NoError(t, err)

	calls := f.commerce.OrderFilters()
	require.Len(t, calls, 2)
	q := calls[0]
	assert.Equal(t, "date", q.Get("orderby"))
	assert.Equal(t, "desc", q.Get("order"))
	after, err := time.Parse("2006-01-02T15:04:05", q.Get("after"))
	require.NoError(t, err)
	assert.True(t, after.After(before), "window starts %s", after)
	assert.Equal(t, q, calls[1], "every page uses the same window")

	plain := newFixture(t, Config{})
	plain.commerce.On("ListOrders", mock.Anything, 1, 50).Return([]models.Order{}, nil)
	_, err = plain.engine.SyncAll(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, plain.commerce.OrderFilters(), 1)
	assert.Empty(t, plain.commerce.OrderFilters()[0].Get("after"))
}

func TestSyncAllListFailureFailsJob(t *testing.T) {
	f := newFixture(t, Config{})
	f.commerce.On("ListOrders", mock.Anything, 1, 50).Return(nil, gatewaytest.RemoteError("ListOrders", 503))

	job, err := f.engine.SyncAll(context.Background(), 1)
	assert.Error(t, err)
	require.NotNil(t, job)

	stored, err := f.jobs.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, syncjob.StatusFailed, stored.Status)
}

func TestSyncAllSkipsWhileLocked(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	_, err := f.guard.Acquire(ctx, lock.KeyOrders, time.Minute)
	require.NoError(t, err)

	job, err := f.engine.SyncAll(ctx, 1)
	assert.NoError(t, err)
	assert.Nil(t, job)
	f.commerce.AssertNotCalled(t, "ListOrders", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	remote := remoteOrder(40, orderDatabase.StatusCompleted)
	f.commerce.On("UpdateOrderStatus", mock.Anything, int64(40), "completed").Return(true)
	f.commerce.On("UpdateOrderStatus", mock.Anything, int64(41), "completed").Return(false)
	f.commerce.On("GetOrderRaw", mock.Anything, int64(40)).Return(&remote, json.RawMessage(nil), nil)
	f.erp.On("CreateInvoice", mock.Anything, mock.Anything).Return("INV-40")

	o, err := f.engine.UpdateStatus(ctx, 40, "completed")
	require.NoError(t, err)
	assert.Equal(t, orderDatabase.StatusCompleted, o.Status)

	_, err = f.engine.UpdateStatus(ctx, 41, "completed")
	assert.ErrorIs(t, err, ErrStatusRefused)

	_, err = f.engine.UpdateStatus(ctx, 40, " ")
	assert.True(t, mapping.IsParseError(err))
}
