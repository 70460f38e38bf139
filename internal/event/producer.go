package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/residoken-wq/mini-shop-app-sub001/internal/domain"
	"github.com/residoken-wq/mini-shop-app-sub001/internal/repository"
	pkgkafka "github.com/residoken-wq/mini-shop-app-sub001/pkg/kafka"
	"github.com/residoken-wq/mini-shop-app-sub001/pkg/logger"
)

// Kafka topics for shop domain events. The event type equals the topic.
var (
	TopicOrderStatusChanged = pkgkafka.Topic("order", "status_changed")
	TopicPaymentRecorded    = pkgkafka.Topic("order", "payment_recorded")
	TopicStockLow           = pkgkafka.Topic("product", "stock_low")
)

// Aggregate types.
const (
	AggregateTypeOrder   = "order"
	AggregateTypeProduct = "product"
)

// SourceShop identifies events originating from this service.
const SourceShop = "minishop"

// OrderStatusChangedData is the payload for an order.status_changed event.
// It carries what the notification consumer needs without a database read.
type OrderStatusChangedData struct {
	OrderID        string `json:"order_id"`
	Code           string `json:"code"`
	Type           string `json:"type"`
	OldStatus      string `json:"old_status"`
	NewStatus      string `json:"new_status"`
	RecipientName  string `json:"recipient_name,omitempty"`
	RecipientPhone string `json:"recipient_phone,omitempty"`
	CarrierName    string `json:"carrier_name,omitempty"`
	CollectAmount  int64  `json:"collect_amount"`
	FinalAmount    int64  `json:"final_amount"`
}

// PaymentRecordedData is the payload for an order.payment_recorded event.
type PaymentRecordedData struct {
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
	Method  string `json:"method"`
	Paid    int64  `json:"paid"`
}

// StockLowData is the payload for a product.stock_low event.
type StockLowData struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Stock       string `json:"stock"`
	Threshold   string `json:"threshold"`
}

// Producer publishes shop domain events.
type Producer struct {
	publisher pkgkafka.Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(publisher pkgkafka.Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceShop, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.publisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
		slog.String("event_id", event.EventID),
	)
	return nil
}

// PublishOrderStatusChanged publishes the order's move from oldStatus to its
// current status.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, order *domain.Order, oldStatus string) error {
	return p.publish(ctx, TopicOrderStatusChanged, order.ID, AggregateTypeOrder, OrderStatusChangedData{
		OrderID:        order.ID,
		Code:           order.Code,
		Type:           order.Type,
		OldStatus:      oldStatus,
		NewStatus:      order.Status,
		RecipientName:  order.RecipientName,
		RecipientPhone: order.RecipientPhone,
		CarrierName:    order.CarrierName,
		CollectAmount:  order.CollectAmount(),
		FinalAmount:    order.FinalAmount(),
	})
}

// PublishPaymentRecorded publishes a payment appended to an order.
func (p *Producer) PublishPaymentRecorded(ctx context.Context, payment *domain.Payment, paid int64) error {
	return p.publish(ctx, TopicPaymentRecorded, payment.OrderID, AggregateTypeOrder, PaymentRecordedData{
		OrderID: payment.OrderID,
		Amount:  payment.Amount,
		Method:  payment.Method,
		Paid:    paid,
	})
}

// PublishStockLow publishes a product whose stock fell to its threshold.
func (p *Producer) PublishStockLow(ctx context.Context, change repository.StockChange) error {
	return p.publish(ctx, TopicStockLow, change.ProductID, AggregateTypeProduct, StockLowData{
		ProductID:   change.ProductID,
		ProductName: change.ProductName,
		Stock:       change.Stock.String(),
		Threshold:   change.LowStockThreshold.String(),
	})
}
