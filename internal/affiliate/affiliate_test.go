package affiliate

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"WooWithBizimHesap/internal/database/model/order"
	"WooWithBizimHesap/pkg/logging"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestOrderSyncedPublishes(t *testing.T) {
	w := &recordingWriter{}
	p := NewPublisher(w, logging.Discard())
	p.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }

	err := p.OrderSynced(context.Background(), &order.Order{WooID: 42, Number: "42", Status: "processing", CouponCode: "AFF10", Total: decimal.NewFromInt(90)})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "order-42", string(w.msgs[0].Key))

	var ev OrderSyncedEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &ev))
	assert.Equal(t, EventOrderSynced, ev.EventType)
	assert.Equal(t, "AFF10", ev.CouponCode)
	assert.NotEmpty(t, ev.EventID)
	assert.True(t, ev.Total.Equal(decimal.NewFromInt(90)))
}

func TestOrderSyncedWriteError(t *testing.T) {
	p := NewPublisher(&recordingWriter{err: errors.New("no leader")}, logging.Discard())
	err := p.OrderSynced(context.Background(), &order.Order{WooID: 1, CouponCode: "X"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no leader")
}
