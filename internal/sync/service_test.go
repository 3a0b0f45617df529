package sync

import (
	"context"
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"WooWithBizimHesap/internal/database/model/syncjob"
	"WooWithBizimHesap/pkg/logging"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type countingProducts struct {
	calls int32
	fail  func(n int32) error
	panic bool
}

func (c *countingProducts) SyncAll(context.Context) (*syncjob.Job, error) {
	n := atomic.AddInt32(&c.calls, 1)
	if c.panic && n == 1 {
		panic("boom")
	}
	if c.fail != nil {
		if err := c.fail(n); err != nil {
			return nil, err
		}
	}
	return &syncjob.Job{ID: int64(n)}, nil
}

type countingOrders struct {
	calls int32
	pages int32
}

func (c *countingOrders) SyncAll(_ context.Context, maxPages int) (*syncjob.Job, error) {
	atomic.AddInt32(&c.calls, 1)
	atomic.StoreInt32(&c.pages, int32(maxPages))
	return nil, nil
}

type countingPruner struct {
	calls int32
	age   time.Duration
}

func (c *countingPruner) PruneOlderThan(_ context.Context, age time.Duration) (int64, error) {
	atomic.AddInt32(&c.calls, 1)
	c.age = age
	return 0, nil
}

type notes struct {
	mu   gosync.Mutex
	msgs []string
}

func (n *notes) Notify(_ context.Context, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, text)
}

func (n *notes) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.msgs...)
}

func runFor(s *Service, d time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	_ = s.Run(ctx)
}

func TestRunSchedulesEveryPass(t *testing.T) {
	products, orders, pruner := &countingProducts{}, &countingOrders{}, &countingPruner{}
	s := NewService(products, orders, pruner, &notes{}, Schedule{
		ProductInterval: 10 * time.Millisecond,
		OrderInterval:   10 * time.Millisecond,
		OrderPages:      3,
		PruneInterval:   time.Hour,
	}, logging.Discard())

	runFor(s, 80*time.Millisecond)

	assert.GreaterOrEqual(t, atomic.LoadInt32(&products.calls), int32(2))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&orders.calls), int32(2))
	assert.EqualValues(t, 3, atomic.LoadInt32(&orders.pages))
	assert.EqualValues(t, 1, atomic.LoadInt32(&pruner.calls), "prune runs once at start")
	assert.Equal(t, 30*24*time.Hour, pruner.age)
}

func TestRunSurvivesPanicAndReportsFailures(t *testing.T) {
	products := &countingProducts{panic: true, fail: func(n int32) error {
		if n == 2 {
			return errors.New("woo down")
		}
		return nil
	}}
	n := &notes{}
	s := NewService(products, nil, nil, n, Schedule{ProductInterval: 10 * time.Millisecond}, logging.Discard())

	runFor(s, 80*time.Millisecond)

	assert.GreaterOrEqual(t, atomic.LoadInt32(&products.calls), int32(3))
	msgs := n.all()
	if assert.GreaterOrEqual(t, len(msgs), 2) {
		assert.Contains(t, msgs[0], "crashed")
		assert.Contains(t, msgs[1], "woo down")
	}
}

func TestDisabledPassesDoNotRun(t *testing.T) {
	products, orders := &countingProducts{}, &countingOrders{}
	s := NewService(products, orders, nil, nil, Schedule{OrderInterval: 10 * time.Millisecond}, logging.Discard())

	runFor(s, 30*time.Millisecond)

	assert.Zero(t, atomic.LoadInt32(&products.calls))
	assert.NotZero(t, atomic.LoadInt32(&orders.calls))
}
