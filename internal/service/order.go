package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/residoken-wq/mini-shop-app-sub001/internal/domain"
	"github.com/residoken-wq/mini-shop-app-sub001/internal/event"
	"github.com/residoken-wq/mini-shop-app-sub001/internal/repository"
	apperrors "github.com/residoken-wq/mini-shop-app-sub001/pkg/errors"
	"github.com/residoken-wq/mini-shop-app-sub001/pkg/tracing"
)

// PriceResolver resolves the unit price of a product for a quantity on a day.
type PriceResolver interface {
	ResolvePromotionPrice(ctx context.Context, productID string, qty decimal.Decimal, asOf time.Time) (int64, error)
}

// OrderService implements the order lifecycle: creation, status transitions,
// fulfillment checks, shipping and payments.
type OrderService struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	parties  repository.PartyRepository
	carriers repository.CarrierRepository
	pricer   PriceResolver
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewOrderService creates a new order service.
func NewOrderService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	parties repository.PartyRepository,
	carriers repository.CarrierRepository,
	pricer PriceResolver,
	producer *event.Producer,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		orders:   orders,
		products: products,
		parties:  parties,
		carriers: carriers,
		pricer:   pricer,
		producer: producer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// OrderItemInput is one requested line. A nil Price is resolved from
// promotions for sales and from product cost for purchases.
type OrderItemInput struct {
	ProductID string
	Quantity  decimal.Decimal
	Price     *int64
	Unit      string
}

// CreateOrderInput holds the parameters for creating an order.
type CreateOrderInput struct {
	Type            string
	PartyID         string
	Items           []OrderItemInput
	Discount        int64
	PaymentMethod   string
	DeliveryMethod  string
	DeliveryAddress string
	DeliveryNote    string
	RecipientName   string
	RecipientPhone  string
	Note            string
}

// CreateOrder validates the input, prices the lines and stores a PENDING order
// with the next daily code.
func (s *OrderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	if input.Type != domain.OrderTypeSale && input.Type != domain.OrderTypePurchase {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid order type %q, must be SALE or PURCHASE", input.Type))
	}
	if input.Discount < 0 {
		return nil, apperrors.InvalidInput("discount must not be negative")
	}
	if input.PaymentMethod == "" {
		input.PaymentMethod = domain.PaymentMethodCash
	}
	if !domain.IsValidPaymentMethod(input.PaymentMethod) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid payment method %q", input.PaymentMethod))
	}
	if input.DeliveryMethod == "" {
		input.DeliveryMethod = domain.DeliveryMethodPickup
	}
	if input.DeliveryMethod != domain.DeliveryMethodPickup && input.DeliveryMethod != domain.DeliveryMethodDelivery {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid delivery method %q", input.DeliveryMethod))
	}

	now := s.now()
	order := &domain.Order{
		ID:              uuid.NewString(),
		Type:            input.Type,
		Status:          domain.OrderStatusPending,
		Discount:        input.Discount,
		PaymentMethod:   input.PaymentMethod,
		ShippingPaidBy:  domain.ShippingPayerShop,
		DeliveryMethod:  input.DeliveryMethod,
		DeliveryAddress: strings.TrimSpace(input.DeliveryAddress),
		DeliveryNote:    input.DeliveryNote,
		RecipientName:   strings.TrimSpace(input.RecipientName),
		RecipientPhone:  strings.TrimSpace(input.RecipientPhone),
		Note:            input.Note,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if input.PartyID != "" {
		if err := s.attachParty(ctx, order, input.PartyID); err != nil {
			return nil, err
		}
	}

	items, err := s.buildItems(ctx, order, input.Items)
	if err != nil {
		return nil, err
	}
	order.Items = items
	order.Recalculate()

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, apperrors.AsPersistence(fmt.Errorf("create order: %w", err))
	}

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.String("code", order.Code),
		slog.String("type", order.Type),
		slog.Int64("total", order.Total),
	)
	return order, nil
}

// attachParty links the customer or supplier and fills recipient fields the
// caller left blank.
func (s *OrderService) attachParty(ctx context.Context, order *domain.Order, partyID string) error {
	party, err := s.parties.GetByID(ctx, partyID)
	if err != nil {
		return apperrors.AsPersistence(fmt.Errorf("get party: %w", err))
	}
	if want := domain.PartyKindFor(order.Type); party.Kind != want {
		return apperrors.InvalidInput(fmt.Sprintf("%s orders need a %s, %s is a %s",
			order.Type, strings.ToLower(want), party.Name, strings.ToLower(party.Kind)))
	}

	if order.Type == domain.OrderTypeSale {
		order.CustomerID = &party.ID
	} else {
		order.SupplierID = &party.ID
	}
	if order.RecipientName == "" {
		order.RecipientName = party.Name
	}
	if order.RecipientPhone == "" {
		order.RecipientPhone = party.Phone
	}
	if order.DeliveryAddress == "" && order.DeliveryMethod == domain.DeliveryMethodDelivery {
		order.DeliveryAddress = party.Address
	}
	return nil
}

func (s *OrderService) buildItems(ctx context.Context, order *domain.Order, inputs []OrderItemInput) ([]domain.OrderItem, error) {
	if len(inputs) == 0 {
		return nil, apperrors.InvalidInput("order must contain at least one item")
	}

	items := make([]domain.OrderItem, len(inputs))
	for i, in := range inputs {
		if !in.Quantity.IsPositive() {
			return nil, apperrors.InvalidInput(fmt.Sprintf("item %d: quantity must be positive", i+1))
		}
		if in.Price != nil && *in.Price < 0 {
			return nil, apperrors.InvalidInput(fmt.Sprintf("item %d: price must not be negative", i+1))
		}

		product, err := s.products.GetByID(ctx, in.ProductID)
		if err != nil {
			return nil, apperrors.AsPersistence(fmt.Errorf("get product for item %d: %w", i+1, err))
		}

		price, err := s.linePrice(ctx, order, product, in)
		if err != nil {
			return nil, err
		}

		unit := in.Unit
		if unit == "" {
			unit = product.Unit
		}

		items[i] = domain.OrderItem{
			ID:               uuid.NewString(),
			OrderID:          order.ID,
			ProductID:        product.ID,
			ProductName:      product.Name,
			Unit:             unit,
			Quantity:         in.Quantity,
			Price:            price,
			ReturnedQuantity: decimal.Zero,
		}
	}
	return items, nil
}

func (s *OrderService) linePrice(ctx context.Context, order *domain.Order, product *domain.Product, in OrderItemInput) (int64, error) {
	if in.Price != nil {
		return *in.Price, nil
	}
	if order.Type == domain.OrderTypePurchase {
		return product.Cost, nil
	}
	price, err := s.pricer.ResolvePromotionPrice(ctx, product.ID, in.Quantity, s.now())
	if err != nil {
		return 0, apperrors.AsPersistence(fmt.Errorf("resolve price for %s: %w", product.ID, err))
	}
	return price, nil
}

// GetOrder retrieves an order with its items.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.AsPersistence(fmt.Errorf("get order by id: %w", err))
	}
	return order, nil
}

// ListOrders returns a filtered, paginated list of orders.
func (s *OrderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}
	if filter.Status != nil && !domain.IsValidStatus(*filter.Status) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid status %q", *filter.Status))
	}

	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.AsPersistence(fmt.Errorf("list orders: %w", err))
	}
	return orders, total, nil
}

// UpdateItemsInput replaces the lines and discount of an open order.
type UpdateItemsInput struct {
	Items    []OrderItemInput
	Discount int64
}

// UpdateItems reprices and rewrites the lines of an order that is not
// COMPLETED or CANCELLED.
func (s *OrderService) UpdateItems(ctx context.Context, id string, input UpdateItemsInput) (*domain.Order, error) {
	if input.Discount < 0 {
		return nil, apperrors.InvalidInput("discount must not be negative")
	}

	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.IsTerminal() {
		return nil, apperrors.InvalidState("edit items of", order.Status)
	}

	items, err := s.buildItems(ctx, order, input.Items)
	if err != nil {
		return nil, err
	}
	order.Items = items
	order.Discount = input.Discount
	order.UpdatedAt = s.now()
	order.Recalculate()

	if err := s.orders.ReplaceItems(ctx, order); err != nil {
		return nil, apperrors.AsPersistence(fmt.Errorf("replace order items: %w", err))
	}

	s.logger.InfoContext(ctx, "order items updated",
		slog.String("order_id", order.ID),
		slog.Int("items", len(order.Items)),
		slog.Int64("total", order.Total),
	)
	return order, nil
}

// Transition moves an order to target. Entering SHIPPING needs carrier input
// and is only possible through StartShipping. Entering READY runs the same
// stock check as MarkReady. Entering COMPLETED runs the delivery completion
// with nothing returned.
func (s *OrderService) Transition(ctx context.Context, id, target string) (_ *domain.Order, err error) {
	ctx, end := tracing.Start(ctx, "service", "OrderService.Transition",
		attribute.String("order.id", id), attribute.String("order.target_status", target))
	defer func() { end(err) }()

	if !domain.IsValidStatus(target) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid status %q, must be one of: %s",
			target, strings.Join(domain.ValidStatuses(), ", ")))
	}

	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.CanTransitionTo(target) {
		return nil, apperrors.InvalidTransition(order.Status, target)
	}

	switch target {
	case domain.OrderStatusReady:
		return s.markReady(ctx, order)
	case domain.OrderStatusShipping:
		return nil, apperrors.InvalidInput("use start-shipping to hand an order to a carrier")
	case domain.OrderStatusCompleted:
		return s.complete(ctx, order, CompleteDeliveryInput{})
	}

	if err := s.setStatus(ctx, order, target); err != nil {
		return nil, err
	}
	return order, nil
}

// Cancel moves a PENDING or PROCESSING order to CANCELLED.
func (s *OrderService) Cancel(ctx context.Context, id string) (*domain.Order, error) {
	return s.Transition(ctx, id, domain.OrderStatusCancelled)
}

// setStatus persists a plain status change and announces it.
func (s *OrderService) setStatus(ctx context.Context, order *domain.Order, target string) error {
	old := order.Status
	if err := s.orders.UpdateStatus(ctx, order.ID, old, target); err != nil {
		return apperrors.AsPersistence(fmt.Errorf("update order status: %w", err))
	}
	order.Status = target
	order.UpdatedAt = s.now()

	s.statusChanged(ctx, order, old)
	return nil
}

// statusChanged logs and publishes a committed transition. Publishing is
// fire-and-forget.
func (s *OrderService) statusChanged(ctx context.Context, order *domain.Order, old string) {
	if err := s.producer.PublishOrderStatusChanged(ctx, order, old); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", order.ID),
		slog.String("code", order.Code),
		slog.String("old_status", old),
		slog.String("new_status", order.Status),
	)
}

// ListPayments returns the payments recorded against an order.
func (s *OrderService) ListPayments(ctx context.Context, id string) ([]domain.Payment, error) {
	if _, err := s.GetOrder(ctx, id); err != nil {
		return nil, err
	}
	payments, err := s.orders.ListPayments(ctx, id)
	if err != nil {
		return nil, apperrors.AsPersistence(fmt.Errorf("list payments: %w", err))
	}
	return payments, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}
