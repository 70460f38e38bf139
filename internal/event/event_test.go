package event

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/residoken-wq/mini-shop-app-sub001/internal/domain"
	"github.com/residoken-wq/mini-shop-app-sub001/internal/notify"
	"github.com/residoken-wq/mini-shop-app-sub001/internal/repository"
	pkgkafka "github.com/residoken-wq/mini-shop-app-sub001/pkg/kafka"
	"github.com/residoken-wq/mini-shop-app-sub001/pkg/logger"

	"github.com/shopspring/decimal"
)

// --- Test helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []*pkgkafka.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event *pkgkafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

type fakeSender struct {
	name string
	sent []*notify.Message
	err  error
}

func (s *fakeSender) Name() string { return s.name }

func (s *fakeSender) Send(_ context.Context, msg *notify.Message) error {
	s.sent = append(s.sent, msg)
	return s.err
}

func newTestEvent(t *testing.T, eventType string, data any) *pkgkafka.Event {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return &pkgkafka.Event{
		EventID:     "evt-test-123",
		EventType:   eventType,
		AggregateID: "order-001",
		Timestamp:   time.Now().UTC(),
		Source:      "test",
		Data:        raw,
	}
}

func shippingOrder() *domain.Order {
	return &domain.Order{
		ID: "order-001", Code: "DH20260301-001", Type: domain.OrderTypeSale, Status: domain.OrderStatusShipping,
		Total: 40000, ShippingFee: 15000, ShippingPaidBy: domain.ShippingPayerCustomer,
		CarrierName: "GHN", RecipientName: "Lan", RecipientPhone: "0901000000",
	}
}

// --- Producer ---

func TestProducer_PublishOrderStatusChanged(t *testing.T) {
	pub := &recordingPublisher{}
	p := NewProducer(pub, newTestLogger())
	ctx := logger.WithCorrelationID(context.Background(), "corr-1")

	require.NoError(t, p.PublishOrderStatusChanged(ctx, shippingOrder(), domain.OrderStatusReady))

	require.Len(t, pub.events, 1)
	assert.Equal(t, TopicOrderStatusChanged, pub.topics[0])
	evt := pub.events[0]
	assert.Equal(t, TopicOrderStatusChanged, evt.EventType)
	assert.Equal(t, "order-001", evt.AggregateID)
	assert.Equal(t, SourceShop, evt.Source)
	assert.Equal(t, "corr-1", evt.CorrelationID)

	var data OrderStatusChangedData
	require.NoError(t, evt.UnmarshalData(&data))
	assert.Equal(t, domain.OrderStatusReady, data.OldStatus)
	assert.Equal(t, domain.OrderStatusShipping, data.NewStatus)
	assert.Equal(t, int64(55000), data.CollectAmount)
}

func TestProducer_PublishStockLow(t *testing.T) {
	pub := &recordingPublisher{}
	p := NewProducer(pub, newTestLogger())

	err := p.PublishStockLow(context.Background(), repository.StockChange{
		ProductID: "prod-001", ProductName: "Rice",
		Stock: decimal.RequireFromString("2.5"), LowStockThreshold: decimal.NewFromInt(5),
	})
	require.NoError(t, err)

	var data StockLowData
	require.NoError(t, pub.events[0].UnmarshalData(&data))
	assert.Equal(t, "2.5", data.Stock)
	assert.Equal(t, "5", data.Threshold)
}

func TestProducer_PublishError(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	p := NewProducer(pub, newTestLogger())

	err := p.PublishPaymentRecorded(context.Background(), &domain.Payment{OrderID: "order-001", Amount: 1}, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

// --- Consumer ---

func TestConsumerHandler_ShippingNotifiesShopAndRecipient(t *testing.T) {
	email := &fakeSender{name: "email"}
	sms := &fakeSender{name: "sms"}
	h := NewConsumerHandler(email, sms, "owner@shop.test", newTestLogger())

	o := shippingOrder()
	data := OrderStatusChangedData{
		OrderID: o.ID, Code: o.Code, Type: o.Type, OldStatus: domain.OrderStatusReady, NewStatus: o.Status,
		RecipientPhone: o.RecipientPhone, CarrierName: o.CarrierName, CollectAmount: o.CollectAmount(),
	}
	require.NoError(t, h.Handle(context.Background(), newTestEvent(t, TopicOrderStatusChanged, data)))

	require.Len(t, email.sent, 1)
	assert.Equal(t, "owner@shop.test", email.sent[0].Recipient)
	assert.Contains(t, email.sent[0].Subject, o.Code)
	assert.Contains(t, email.sent[0].Body, "Amount to collect: 55000")

	require.Len(t, sms.sent, 1)
	assert.Equal(t, "0901000000", sms.sent[0].Recipient)
	assert.Contains(t, sms.sent[0].Body, "GHN")
}

func TestConsumerHandler_IgnoresQuietStatusesAndPurchases(t *testing.T) {
	email := &fakeSender{name: "email"}
	sms := &fakeSender{name: "sms"}
	h := NewConsumerHandler(email, sms, "owner@shop.test", newTestLogger())

	quiet := OrderStatusChangedData{Type: domain.OrderTypeSale, NewStatus: domain.OrderStatusProcessing, RecipientPhone: "0901"}
	purchase := OrderStatusChangedData{Type: domain.OrderTypePurchase, NewStatus: domain.OrderStatusCompleted}

	require.NoError(t, h.Handle(context.Background(), newTestEvent(t, TopicOrderStatusChanged, quiet)))
	require.NoError(t, h.Handle(context.Background(), newTestEvent(t, TopicOrderStatusChanged, purchase)))

	assert.Empty(t, email.sent)
	assert.Empty(t, sms.sent)
}

func TestConsumerHandler_SenderFailureIsSwallowed(t *testing.T) {
	email := &fakeSender{name: "email", err: errors.New("smtp timeout")}
	sms := &fakeSender{name: "sms", err: errors.New("gateway down")}
	h := NewConsumerHandler(email, sms, "owner@shop.test", newTestLogger())

	data := OrderStatusChangedData{Type: domain.OrderTypeSale, NewStatus: domain.OrderStatusCancelled, RecipientPhone: "0901"}
	err := h.Handle(context.Background(), newTestEvent(t, TopicOrderStatusChanged, data))

	assert.NoError(t, err)
	assert.Len(t, email.sent, 1)
	assert.Len(t, sms.sent, 1)
}

func TestConsumerHandler_StockLowEmailsShop(t *testing.T) {
	email := &fakeSender{name: "email"}
	h := NewConsumerHandler(email, nil, "owner@shop.test", newTestLogger())

	data := StockLowData{ProductID: "prod-001", ProductName: "Rice", Stock: "2", Threshold: "5"}
	require.NoError(t, h.Handle(context.Background(), newTestEvent(t, TopicStockLow, data)))

	require.Len(t, email.sent, 1)
	assert.Equal(t, "Low stock: Rice", email.sent[0].Subject)
}

func TestConsumerHandler_MalformedPayload(t *testing.T) {
	h := NewConsumerHandler(&fakeSender{}, &fakeSender{}, "owner@shop.test", newTestLogger())
	evt := &pkgkafka.Event{EventID: "evt-1", EventType: TopicStockLow, Data: json.RawMessage(`"not an object"`)}

	assert.Error(t, h.Handle(context.Background(), evt))
}

func TestConsumerHandler_UnknownEventType(t *testing.T) {
	h := NewConsumerHandler(&fakeSender{}, &fakeSender{}, "owner@shop.test", newTestLogger())
	evt := &pkgkafka.Event{EventID: "evt-1", EventType: "minishop.unknown.thing"}

	assert.NoError(t, h.Handle(context.Background(), evt))
}
