package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/residoken-wq/mini-shop-app-sub001/internal/domain"
	"github.com/residoken-wq/mini-shop-app-sub001/internal/notify"
	pkgkafka "github.com/residoken-wq/mini-shop-app-sub001/pkg/kafka"
)

// ConsumerGroupID is the consumer group of the notifier.
const ConsumerGroupID = "minishop-notifier"

// ConsumerHandler turns shop events into email and SMS notifications.
// Delivery failures are logged and never returned, so a broken SMTP server
// does not stall the partition.
type ConsumerHandler struct {
	email     notify.Sender
	sms       notify.Sender
	shopInbox string
	logger    *slog.Logger
}

// NewConsumerHandler creates a new notification handler.
func NewConsumerHandler(email, sms notify.Sender, shopInbox string, logger *slog.Logger) *ConsumerHandler {
	return &ConsumerHandler{
		email:     email,
		sms:       sms,
		shopInbox: shopInbox,
		logger:    logger,
	}
}

// Handle processes an incoming event based on its event type.
func (h *ConsumerHandler) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicOrderStatusChanged:
		return h.handleStatusChanged(ctx, event)
	case TopicStockLow:
		return h.handleStockLow(ctx, event)
	case TopicPaymentRecorded:
		return h.handlePaymentRecorded(ctx, event)
	default:
		h.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

// notifiedStatuses are the statuses the customer and shop hear about.
var notifiedStatuses = map[string]string{
	domain.OrderStatusShipping:  "is on its way",
	domain.OrderStatusCompleted: "has been delivered",
	domain.OrderStatusCancelled: "has been cancelled",
}

func (h *ConsumerHandler) handleStatusChanged(ctx context.Context, event *pkgkafka.Event) error {
	var data OrderStatusChangedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal order.status_changed data: %w", err)
	}

	phrase, ok := notifiedStatuses[data.NewStatus]
	if !ok || data.Type != domain.OrderTypeSale {
		return nil
	}

	h.deliver(ctx, h.email, &notify.Message{
		Channel:   notify.ChannelEmail,
		Recipient: h.shopInbox,
		Subject:   fmt.Sprintf("Order %s %s", data.Code, phrase),
		Body:      statusEmailBody(data),
	})

	if data.RecipientPhone != "" {
		h.deliver(ctx, h.sms, &notify.Message{
			Channel:   notify.ChannelSMS,
			Recipient: data.RecipientPhone,
			Body:      statusSMSBody(data, phrase),
		})
	}
	return nil
}

func (h *ConsumerHandler) handleStockLow(ctx context.Context, event *pkgkafka.Event) error {
	var data StockLowData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal product.stock_low data: %w", err)
	}

	h.deliver(ctx, h.email, &notify.Message{
		Channel:   notify.ChannelEmail,
		Recipient: h.shopInbox,
		Subject:   fmt.Sprintf("Low stock: %s", data.ProductName),
		Body: fmt.Sprintf("%s is down to %s (threshold %s). Consider a purchase order.",
			data.ProductName, data.Stock, data.Threshold),
	})
	return nil
}

func (h *ConsumerHandler) handlePaymentRecorded(ctx context.Context, event *pkgkafka.Event) error {
	var data PaymentRecordedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal order.payment_recorded data: %w", err)
	}
	h.logger.InfoContext(ctx, "payment recorded",
		slog.String("order_id", data.OrderID),
		slog.Int64("amount", data.Amount),
		slog.Int64("paid", data.Paid),
	)
	return nil
}

func (h *ConsumerHandler) deliver(ctx context.Context, sender notify.Sender, msg *notify.Message) {
	if sender == nil || msg.Recipient == "" {
		return
	}
	if err := sender.Send(ctx, msg); err != nil {
		h.logger.ErrorContext(ctx, "failed to send notification",
			slog.String("sender", sender.Name()),
			slog.String("recipient", msg.Recipient),
			slog.String("error", err.Error()),
		)
	}
}

func statusEmailBody(data OrderStatusChangedData) string {
	body := fmt.Sprintf("Order %s moved from %s to %s.\n", data.Code, data.OldStatus, data.NewStatus)
	if data.RecipientName != "" {
		body += fmt.Sprintf("Recipient: %s %s\n", data.RecipientName, data.RecipientPhone)
	}
	if data.CarrierName != "" {
		body += fmt.Sprintf("Carrier: %s\n", data.CarrierName)
	}
	switch data.NewStatus {
	case domain.OrderStatusShipping:
		body += fmt.Sprintf("Amount to collect: %d\n", data.CollectAmount)
	case domain.OrderStatusCompleted:
		body += fmt.Sprintf("Final amount: %d\n", data.FinalAmount)
	}
	return body
}

func statusSMSBody(data OrderStatusChangedData, phrase string) string {
	msg := fmt.Sprintf("Your order %s %s.", data.Code, phrase)
	if data.NewStatus == domain.OrderStatusShipping {
		if data.CarrierName != "" {
			msg += " Carrier: " + data.CarrierName + "."
		}
		msg += fmt.Sprintf(" Amount due on delivery: %d.", data.CollectAmount)
	}
	return msg
}

// NewConsumers creates one consumer per subscribed topic, each deduplicated
// through store and dead-lettering poison messages.
func NewConsumers(brokers []string, handler *ConsumerHandler, store pkgkafka.IdempotencyStore, logger *slog.Logger) []*pkgkafka.Consumer {
	topics := []string{
		TopicOrderStatusChanged,
		TopicStockLow,
		TopicPaymentRecorded,
	}

	handle := pkgkafka.IdempotentHandler(store, handler.Handle, logger)
	consumers := make([]*pkgkafka.Consumer, 0, len(topics))
	for _, topic := range topics {
		cfg := pkgkafka.ConsumerConfig{
			Brokers:   brokers,
			GroupID:   ConsumerGroupID,
			Topic:     topic,
			MinBytes:  1,
			MaxBytes:  10e6,
			EnableDLQ: true,
		}
		consumers = append(consumers, pkgkafka.NewConsumer(cfg, handle, logger))
	}
	return consumers
}
