// Package affiliate hands orders placed with a coupon over to the commission
// service. Attribution rules live there; this side only publishes.
package affiliate

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"WooWithBizimHesap/internal/database/model/order"
	"WooWithBizimHesap/pkg/logging"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const EventOrderSynced = "order.synced"

// Trigger is called by the order engine for every synced order that carries
// a coupon code.
type Trigger interface {
	OrderSynced(ctx context.Context, o *order.Order) error
}

type OrderSyncedEvent struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OrderWooID int64           `json:"order_woo_id"`
	Number     string          `json:"number"`
	Status     string          `json:"status"`
	CouponCode string          `json:"coupon_code"`
	Total      decimal.Decimal `json:"total"`
	Discount   decimal.Decimal `json:"discount"`
	Currency   string          `json:"currency"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes OrderSyncedEvent keyed by order id, so every
// event for one order lands on the same partition.
type KafkaPublisher struct {
	writer MessageWriter
	logger *logging.Logger
	now    func() time.Time
}

func NewKafkaPublisher(brokers []string, topic string, logger *logging.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}
	return NewPublisher(writer, logger)
}

func NewPublisher(writer MessageWriter, logger *logging.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, logger: logger, now: time.Now}
}

func (p *KafkaPublisher) OrderSynced(ctx context.Context, o *order.Order) error {
	event := OrderSyncedEvent{
		EventID:    uuid.NewString(),
		EventType:  EventOrderSynced,
		OrderWooID: o.WooID,
		Number:     o.Number,
		Status:     o.Status,
		CouponCode: o.CouponCode,
		Total:      o.Total,
		Discount:   o.DiscountTotal,
		Currency:   o.Currency,
		OccurredAt: p.now().UTC(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal event")
	}
	msg := kafka.Message{
		Key:   []byte("order-" + strconv.FormatInt(o.WooID, 10)),
		Value: value,
		Time:  event.OccurredAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "failed to publish %s for order %d", EventOrderSynced, o.WooID)
	}
	p.logger.WithField("order_id", o.WooID).Debugf("published %s coupon=%s", EventOrderSynced, o.CouponCode)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Noop drops every hand-off; used when no broker is configured.
type Noop struct{}

func (Noop) OrderSynced(context.Context, *order.Order) error { return nil }
