package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/residoken-wq/mini-shop-app-sub001/internal/domain"
	apperrors "github.com/residoken-wq/mini-shop-app-sub001/pkg/errors"
	"github.com/residoken-wq/mini-shop-app-sub001/pkg/tracing"
)

// StartShippingInput names the carrier by id or by name. An unknown name
// registers a new carrier.
type StartShippingInput struct {
	CarrierID   string
	CarrierName string
	ShippingFee int64
	PaidBy      string
}

// StartShipping hands a READY order to a carrier.
func (s *OrderService) StartShipping(ctx context.Context, id string, input StartShippingInput) (*domain.Order, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusReady {
		return nil, apperrors.InvalidState("start shipping", order.Status)
	}

	input.CarrierID = strings.TrimSpace(input.CarrierID)
	input.CarrierName = strings.TrimSpace(input.CarrierName)
	if input.CarrierID == "" && input.CarrierName == "" {
		return nil, apperrors.InvalidInput("a carrier is required to start shipping")
	}
	if input.ShippingFee < 0 {
		return nil, apperrors.InvalidInput("shipping fee must not be negative")
	}
	if input.PaidBy == "" {
		input.PaidBy = domain.ShippingPayerShop
	}
	if input.PaidBy != domain.ShippingPayerShop && input.PaidBy != domain.ShippingPayerCustomer {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid shipping payer %q, must be SHOP or CUSTOMER", input.PaidBy))
	}

	carrier, err := s.resolveCarrier(ctx, input.CarrierID, input.CarrierName)
	if err != nil {
		return nil, err
	}

	now := s.now()
	order.CarrierID = &carrier.ID
	order.CarrierName = carrier.Name
	order.ShippingFee = input.ShippingFee
	order.ShippingPaidBy = input.PaidBy
	order.ShippedAt = &now

	if err := s.orders.StartShipping(ctx, order); err != nil {
		return nil, apperrors.AsPersistence(fmt.Errorf("start shipping: %w", err))
	}
	order.Status = domain.OrderStatusShipping
	order.UpdatedAt = now

	s.statusChanged(ctx, order, domain.OrderStatusReady)
	s.logger.InfoContext(ctx, "order handed to carrier",
		slog.String("order_id", order.ID),
		slog.String("carrier", carrier.Name),
		slog.Int64("collect_amount", order.CollectAmount()),
	)
	return order, nil
}

// resolveCarrier finds the carrier by id, or by name creating it on first use.
func (s *OrderService) resolveCarrier(ctx context.Context, id, name string) (*domain.Carrier, error) {
	if id != "" {
		c, err := s.carriers.GetByID(ctx, id)
		if err != nil {
			return nil, apperrors.AsPersistence(fmt.Errorf("get carrier: %w", err))
		}
		return c, nil
	}

	c, err := s.carriers.GetByName(ctx, name)
	if err == nil {
		return c, nil
	}
	if !isNotFound(err) {
		return nil, apperrors.AsPersistence(fmt.Errorf("get carrier by name: %w", err))
	}

	c = &domain.Carrier{ID: uuid.NewString(), Name: name, CreatedAt: s.now()}
	if err := s.carriers.Create(ctx, c); err != nil {
		if !errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, apperrors.AsPersistence(fmt.Errorf("create carrier: %w", err))
		}
		// Registered concurrently under the same name.
		c, err = s.carriers.GetByName(ctx, name)
		if err != nil {
			return nil, apperrors.AsPersistence(fmt.Errorf("get carrier by name: %w", err))
		}
	}
	return c, nil
}

// CompleteDeliveryInput records what came back at the door.
type CompleteDeliveryInput struct {
	Returns      []domain.ItemReturn
	RefundAmount int64
	Note         string
}

// CompleteDelivery settles a SHIPPING order. Returned quantities are clamped
// to each line, stock drops by what the customer kept and the order becomes
// COMPLETED in one transaction.
func (s *OrderService) CompleteDelivery(ctx context.Context, id string, input CompleteDeliveryInput) (_ *domain.Order, err error) {
	ctx, end := tracing.Start(ctx, "service", "OrderService.CompleteDelivery", attribute.String("order.id", id))
	defer func() { end(err) }()

	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusShipping {
		return nil, apperrors.InvalidState("complete delivery of", order.Status)
	}
	return s.complete(ctx, order, input)
}

func (s *OrderService) complete(ctx context.Context, order *domain.Order, input CompleteDeliveryInput) (*domain.Order, error) {
	if input.RefundAmount < 0 {
		return nil, apperrors.InvalidInput("refund amount must not be negative")
	}
	if err := order.ApplyReturns(input.Returns); err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	now := s.now()
	old := order.Status
	order.RefundAmount = input.RefundAmount
	order.ReturnNote = input.Note
	order.CompletedAt = &now

	changes, err := s.orders.Complete(ctx, order)
	if err != nil {
		return nil, apperrors.AsPersistence(fmt.Errorf("complete order: %w", err))
	}
	order.Status = domain.OrderStatusCompleted
	order.UpdatedAt = now

	s.statusChanged(ctx, order, old)
	for _, c := range changes {
		if !c.IsLow() {
			continue
		}
		if err := s.producer.PublishStockLow(ctx, c); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish product.stock_low event",
				slog.String("product_id", c.ProductID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "order completed",
		slog.String("order_id", order.ID),
		slog.Int64("returned_amount", order.ReturnedAmount),
		slog.Int64("final_amount", order.FinalAmount()),
		slog.Int64("refund_amount", order.RefundAmount),
	)
	return order, nil
}

// AddPaymentInput holds one payment against an order.
type AddPaymentInput struct {
	Amount int64
	Method string
	Note   string
}

// AddPayment appends a payment and returns it with the order's new paid
// total. Payments are not capped at the order total and never change status.
func (s *OrderService) AddPayment(ctx context.Context, id string, input AddPaymentInput) (*domain.Payment, int64, error) {
	if input.Amount <= 0 {
		return nil, 0, apperrors.InvalidInput("payment amount must be positive")
	}
	if input.Method == "" {
		input.Method = domain.PaymentMethodCash
	}
	if !domain.IsValidPaymentMethod(input.Method) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid payment method %q", input.Method))
	}

	payment := &domain.Payment{
		ID:        uuid.NewString(),
		OrderID:   id,
		Amount:    input.Amount,
		Method:    input.Method,
		Note:      input.Note,
		CreatedAt: s.now(),
	}

	paid, err := s.orders.AddPayment(ctx, payment)
	if err != nil {
		return nil, 0, apperrors.AsPersistence(fmt.Errorf("add payment: %w", err))
	}

	if err := s.producer.PublishPaymentRecorded(ctx, payment, paid); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.payment_recorded event",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "payment recorded",
		slog.String("order_id", id),
		slog.Int64("amount", payment.Amount),
		slog.String("method", payment.Method),
		slog.Int64("paid", paid),
	)
	return payment, paid, nil
}
