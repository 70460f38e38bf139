package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/residoken-wq/mini-shop-app-sub001/internal/domain"
	"github.com/residoken-wq/mini-shop-app-sub001/internal/event"
	"github.com/residoken-wq/mini-shop-app-sub001/internal/repository"
	apperrors "github.com/residoken-wq/mini-shop-app-sub001/pkg/errors"
)

func rice() *domain.Product {
	return &domain.Product{ID: "prod-001", Name: "Rice", Unit: "kg", Price: 10000, Cost: 8000, Stock: d("100")}
}

// --- CreateOrder ---

func TestCreateOrder_SalePricesLinesFromPromotions(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	f.products.On("GetByID", ctx, "prod-001").Return(rice(), nil)
	f.pricer.On("ResolvePromotionPrice", ctx, "prod-001", d("12"), fixedNow).Return(int64(9000), nil)
	f.orders.On("Create", ctx, mock.AnythingOfType("*domain.Order")).Return(nil)

	order, err := f.svc.CreateOrder(ctx, CreateOrderInput{
		Type:     domain.OrderTypeSale,
		Items:    []OrderItemInput{{ProductID: "prod-001", Quantity: d("12")}},
		Discount: 8000,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	require.Len(t, order.Items, 1)
	assert.Equal(t, int64(9000), order.Items[0].Price)
	assert.Equal(t, "kg", order.Items[0].Unit)
	assert.Equal(t, "Rice", order.Items[0].ProductName)
	assert.Equal(t, int64(100000), order.Total) // 12 x 9000 - 8000
	assert.Equal(t, domain.PaymentMethodCash, order.PaymentMethod)
	assert.Equal(t, domain.DeliveryMethodPickup, order.DeliveryMethod)
	f.orders.AssertExpectations(t)
	f.pricer.AssertExpectations(t)
}

func TestCreateOrder_ExplicitPriceSkipsPricer(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	f.products.On("GetByID", ctx, "prod-001").Return(rice(), nil)
	f.orders.On("Create", ctx, mock.AnythingOfType("*domain.Order")).Return(nil)

	order, err := f.svc.CreateOrder(ctx, CreateOrderInput{
		Type:  domain.OrderTypeSale,
		Items: []OrderItemInput{{ProductID: "prod-001", Quantity: d("1.5"), Price: int64Ptr(9999)}},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(14999), order.Total) // 1.5 x 9999 rounded
	f.pricer.AssertNotCalled(t, "ResolvePromotionPrice", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateOrder_PurchaseUsesCostAndSupplier(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	supplier := &domain.Party{ID: "sup-001", Kind: domain.PartySupplier, Name: "Mekong Rice Co", Phone: "0292"}

	f.parties.On("GetByID", ctx, "sup-001").Return(supplier, nil)
	f.products.On("GetByID", ctx, "prod-001").Return(rice(), nil)
	f.orders.On("Create", ctx, mock.AnythingOfType("*domain.Order")).Return(nil)

	order, err := f.svc.CreateOrder(ctx, CreateOrderInput{
		Type:    domain.OrderTypePurchase,
		PartyID: "sup-001",
		Items:   []OrderItemInput{{ProductID: "prod-001", Quantity: d("50")}},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(8000), order.Items[0].Price)
	require.NotNil(t, order.SupplierID)
	assert.Equal(t, "sup-001", *order.SupplierID)
	assert.Nil(t, order.CustomerID)
	assert.Equal(t, "Mekong Rice Co", order.RecipientName)
}

func TestCreateOrder_PartyKindMismatch(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	f.parties.On("GetByID", ctx, "sup-001").Return(&domain.Party{ID: "sup-001", Kind: domain.PartySupplier, Name: "Mekong"}, nil)

	_, err := f.svc.CreateOrder(ctx, CreateOrderInput{
		Type:    domain.OrderTypeSale,
		PartyID: "sup-001",
		Items:   []OrderItemInput{{ProductID: "prod-001", Quantity: d("1")}},
	})

	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateOrder_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		input CreateOrderInput
	}{
		{"bad type", CreateOrderInput{Type: "GIFT", Items: []OrderItemInput{{ProductID: "p", Quantity: d("1")}}}},
		{"no items", CreateOrderInput{Type: domain.OrderTypeSale}},
		{"zero quantity", CreateOrderInput{Type: domain.OrderTypeSale, Items: []OrderItemInput{{ProductID: "p", Quantity: d("0")}}}},
		{"negative price", CreateOrderInput{Type: domain.OrderTypeSale, Items: []OrderItemInput{{ProductID: "p", Quantity: d("1"), Price: int64Ptr(-1)}}}},
		{"negative discount", CreateOrderInput{Type: domain.OrderTypeSale, Discount: -5, Items: []OrderItemInput{{ProductID: "p", Quantity: d("1")}}}},
		{"bad payment method", CreateOrderInput{Type: domain.OrderTypeSale, PaymentMethod: "CARD", Items: []OrderItemInput{{ProductID: "p", Quantity: d("1")}}}},
		{"bad delivery method", CreateOrderInput{Type: domain.OrderTypeSale, DeliveryMethod: "DRONE", Items: []OrderItemInput{{ProductID: "p", Quantity: d("1")}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture()
			_, err := f.svc.CreateOrder(context.Background(), tt.input)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidInput), "got %v", err)
			f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	f.products.On("GetByID", ctx, "ghost").Return(nil, apperrors.NotFound("product", "ghost"))

	_, err := f.svc.CreateOrder(ctx, CreateOrderInput{
		Type:  domain.OrderTypeSale,
		Items: []OrderItemInput{{ProductID: "ghost", Quantity: d("1")}},
	})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestCreateOrder_RepositoryFailureIsPersistenceError(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	f.products.On("GetByID", ctx, "prod-001").Return(rice(), nil)
	f.orders.On("Create", ctx, mock.Anything).Return(errors.New("connection reset"))

	_, err := f.svc.CreateOrder(ctx, CreateOrderInput{
		Type:  domain.OrderTypeSale,
		Items: []OrderItemInput{{ProductID: "prod-001", Quantity: d("1"), Price: int64Ptr(10000)}},
	})
	assert.True(t, errors.Is(err, apperrors.ErrPersistence))
}

// --- ListOrders ---

func TestListOrders_ClampsPaging(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	f.orders.On("List", ctx, repository.OrderFilter{Page: 1, PerPage: 100}).Return([]domain.Order{}, 0, nil)

	_, _, err := f.svc.ListOrders(ctx, repository.OrderFilter{Page: -1, PerPage: 1000})
	require.NoError(t, err)
	f.orders.AssertExpectations(t)
}

// --- Transition ---

func TestTransition_AllowedTargets(t *testing.T) {
	tests := []struct {
		from, to string
	}{
		{domain.OrderStatusPending, domain.OrderStatusProcessing},
		{domain.OrderStatusPending, domain.OrderStatusCancelled},
		{domain.OrderStatusProcessing, domain.OrderStatusReady},
		{domain.OrderStatusProcessing, domain.OrderStatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			f := newOrderFixture()
			ctx := context.Background()

			f.orders.On("GetByID", ctx, "order-001").Return(sampleOrder(tt.from), nil)
			f.orders.On("UpdateStatus", ctx, "order-001", tt.from, tt.to).Return(nil)
			f.products.On("StockLevels", ctx, mock.Anything).
				Return(map[string]decimal.Decimal{"prod-001": d("50"), "prod-002": d("50")}, nil).Maybe()

			order, err := f.svc.Transition(ctx, "order-001", tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.to, order.Status)
			assert.Equal(t, []string{event.TopicOrderStatusChanged}, f.pub.types())
		})
	}
}

func TestTransition_ReadyRequiresStock(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()

	f.orders.On("GetByID", ctx, "order-001").Return(sampleOrder(domain.OrderStatusProcessing), nil)
	f.products.On("StockLevels", ctx, mock.Anything).
		Return(map[string]decimal.Decimal{"prod-001": decimal.Zero, "prod-002": decimal.Zero}, nil)

	_, err := f.svc.Transition(ctx, "order-001", domain.OrderStatusReady)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput), "got %v", err)
	assert.Contains(t, err.Error(), "Rice")
	f.products.AssertCalled(t, "StockLevels", ctx, mock.Anything)
	f.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, f.pub.types())
}

func TestTransition_IllegalTargetsLeaveStatus(t *testing.T) {
	tests := []struct {
		from, to string
	}{
		{domain.OrderStatusPending, domain.OrderStatusCompleted},
		{domain.OrderStatusPending, domain.OrderStatusReady},
		{domain.OrderStatusReady, domain.OrderStatusCancelled},
		{domain.OrderStatusShipping, domain.OrderStatusCancelled},
		{domain.OrderStatusCompleted, domain.OrderStatusPending},
		{domain.OrderStatusCancelled, domain.OrderStatusProcessing},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			f := newOrderFixture()
			ctx := context.Background()
			f.orders.On("GetByID", ctx, "order-001").Return(sampleOrder(tt.from), nil)

			_, err := f.svc.Transition(ctx, "order-001", tt.to)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition), "got %v", err)
			f.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			f.orders.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
			assert.Empty(t, f.pub.types())
		})
	}
}

func TestTransition_UnknownStatus(t *testing.T) {
	f := newOrderFixture()
	_, err := f.svc.Transition(context.Background(), "order-001", "LOST")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestTransition_ShippingNeedsCarrierInput(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	f.orders.On("GetByID", ctx, "order-001").Return(sampleOrder(domain.OrderStatusReady), nil)

	_, err := f.svc.Transition(ctx, "order-001", domain.OrderStatusShipping)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	f.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTransition_CompletedRunsStockPath(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	f.orders.On("GetByID", ctx, "order-001").Return(sampleOrder(domain.OrderStatusShipping), nil)
	f.orders.On("Complete", ctx, mock.MatchedBy(func(o *domain.Order) bool {
		return o.ReturnedAmount == 0 && o.Items[0].ReturnedQuantity.IsZero()
	})).Return([]repository.StockChange{}, nil)

	order, err := f.svc.Transition(ctx, "order-001", domain.OrderStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, order.Status)
	f.orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.orders.AssertExpectations(t)
}

func TestTransition_ConcurrentChangeIsConflict(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	f.orders.On("GetByID", ctx, "order-001").Return(sampleOrder(domain.OrderStatusPending), nil)
	f.orders.On("UpdateStatus", ctx, "order-001", domain.OrderStatusPending, domain.OrderStatusProcessing).
		Return(apperrors.Conflict("order order-001 is no longer PENDING"))

	_, err := f.svc.Transition(ctx, "order-001", domain.OrderStatusProcessing)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.Empty(t, f.pub.types())
}

func TestTransition_PublishFailureDoesNotFail(t *testing.T) {
	f := newOrderFixture()
	f.pub.err = errors.New("broker down")
	ctx := context.Background()
	f.orders.On("GetByID", ctx, "order-001").Return(sampleOrder(domain.OrderStatusPending), nil)
	f.orders.On("UpdateStatus", ctx, "order-001", domain.OrderStatusPending, domain.OrderStatusCancelled).Return(nil)

	order, err := f.svc.Cancel(ctx, "order-001")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, order.Status)
}

// --- UpdateItems ---

func TestUpdateItems_RejectsTerminalOrders(t *testing.T) {
	for _, status := range []string{domain.OrderStatusCompleted, domain.OrderStatusCancelled} {
		t.Run(status, func(t *testing.T) {
			f := newOrderFixture()
			ctx := context.Background()
			f.orders.On("GetByID", ctx, "order-001").Return(sampleOrder(status), nil)

			_, err := f.svc.UpdateItems(ctx, "order-001", UpdateItemsInput{
				Items: []OrderItemInput{{ProductID: "prod-001", Quantity: d("1")}},
			})
			assert.True(t, errors.Is(err, apperrors.ErrInvalidState))
			f.orders.AssertNotCalled(t, "ReplaceItems", mock.Anything, mock.Anything)
		})
	}
}

func TestUpdateItems_RecalculatesTotal(t *testing.T) {
	f := newOrderFixture()
	ctx := context.Background()
	f.orders.On("GetByID", ctx, "order-001").Return(sampleOrder(domain.OrderStatusProcessing), nil)
	f.products.On("GetByID", ctx, "prod-001").Return(rice(), nil)
	f.orders.On("ReplaceItems", ctx, mock.AnythingOfType("*domain.Order")).Return(nil)

	order, err := f.svc.UpdateItems(ctx, "order-001", UpdateItemsInput{
		Items:    []OrderItemInput{{ProductID: "prod-001", Quantity: d("4"), Price: int64Ptr(10000)}},
		Discount: 5000,
	})
	require.NoError(t, err)
	assert.Len(t, order.Items, 1)
	assert.Equal(t, int64(35000), order.Total)
	assert.Equal(t, "order-001", order.Items[0].OrderID)
}
