package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/residoken-wq/mini-shop-app-sub001/internal/domain"
	"github.com/residoken-wq/mini-shop-app-sub001/internal/event"
	"github.com/residoken-wq/mini-shop-app-sub001/internal/repository"
	pkgkafka "github.com/residoken-wq/mini-shop-app-sub001/pkg/kafka"
)

// --- Mock OrderRepository ---

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}

func (m *mockOrderRepository) ListOpen(ctx context.Context) ([]domain.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *mockOrderRepository) ReplaceItems(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id, from, to string) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

func (m *mockOrderRepository) StartShipping(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderRepository) Complete(ctx context.Context, order *domain.Order) ([]repository.StockChange, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.StockChange), args.Error(1)
}

func (m *mockOrderRepository) AddPayment(ctx context.Context, payment *domain.Payment) (int64, error) {
	args := m.Called(ctx, payment)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockOrderRepository) ListPayments(ctx context.Context, orderID string) ([]domain.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Payment), args.Error(1)
}

// --- Mock ProductRepository ---

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Product), args.Int(1), args.Error(2)
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) StockLevels(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]decimal.Decimal), args.Error(1)
}

func (m *mockProductRepository) Adjust(ctx context.Context, entry *domain.InventoryTransaction) (*repository.StockChange, error) {
	args := m.Called(ctx, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.StockChange), args.Error(1)
}

func (m *mockProductRepository) ListTransactions(ctx context.Context, productID string, limit int) ([]domain.InventoryTransaction, error) {
	args := m.Called(ctx, productID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.InventoryTransaction), args.Error(1)
}

// --- Mock PromotionRepository ---

type mockPromotionRepository struct {
	mock.Mock
}

func (m *mockPromotionRepository) Create(ctx context.Context, promo *domain.Promotion) error {
	args := m.Called(ctx, promo)
	return args.Error(0)
}

func (m *mockPromotionRepository) GetByID(ctx context.Context, id string) (*domain.Promotion, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Promotion), args.Error(1)
}

func (m *mockPromotionRepository) List(ctx context.Context) ([]domain.Promotion, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Promotion), args.Error(1)
}

func (m *mockPromotionRepository) SetActive(ctx context.Context, id string, active bool) error {
	args := m.Called(ctx, id, active)
	return args.Error(0)
}

func (m *mockPromotionRepository) TiersFor(ctx context.Context, productID string, asOf time.Time) (map[string][]domain.PriceTier, error) {
	args := m.Called(ctx, productID, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]domain.PriceTier), args.Error(1)
}

// --- Mock CarrierRepository ---

type mockCarrierRepository struct {
	mock.Mock
}

func (m *mockCarrierRepository) Create(ctx context.Context, c *domain.Carrier) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockCarrierRepository) GetByID(ctx context.Context, id string) (*domain.Carrier, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Carrier), args.Error(1)
}

func (m *mockCarrierRepository) GetByName(ctx context.Context, name string) (*domain.Carrier, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Carrier), args.Error(1)
}

func (m *mockCarrierRepository) List(ctx context.Context) ([]domain.Carrier, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Carrier), args.Error(1)
}

// --- Mock PartyRepository ---

type mockPartyRepository struct {
	mock.Mock
}

func (m *mockPartyRepository) Create(ctx context.Context, p *domain.Party) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *mockPartyRepository) GetByID(ctx context.Context, id string) (*domain.Party, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Party), args.Error(1)
}

func (m *mockPartyRepository) List(ctx context.Context, kind string) ([]domain.Party, error) {
	args := m.Called(ctx, kind)
	return args.Get(0).([]domain.Party), args.Error(1)
}

// --- Mock UserRepository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) CreateIfAbsent(ctx context.Context, u *domain.User) (bool, error) {
	args := m.Called(ctx, u)
	return args.Bool(0), args.Error(1)
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// --- Mock SessionStore ---

type mockSessionStore struct {
	mock.Mock
}

func (m *mockSessionStore) Save(ctx context.Context, s *domain.Session) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *mockSessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *mockSessionStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Mock PriceResolver ---

type mockPricer struct {
	mock.Mock
}

func (m *mockPricer) ResolvePromotionPrice(ctx context.Context, productID string, qty decimal.Decimal, asOf time.Time) (int64, error) {
	args := m.Called(ctx, productID, qty, asOf)
	return args.Get(0).(int64), args.Error(1)
}

// --- Event capture ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []*pkgkafka.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, e *pkgkafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType
	}
	return out
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type orderFixture struct {
	svc      *OrderService
	orders   *mockOrderRepository
	products *mockProductRepository
	parties  *mockPartyRepository
	carriers *mockCarrierRepository
	pricer   *mockPricer
	pub      *recordingPublisher
}

func newOrderFixture() *orderFixture {
	f := &orderFixture{
		orders:   new(mockOrderRepository),
		products: new(mockProductRepository),
		parties:  new(mockPartyRepository),
		carriers: new(mockCarrierRepository),
		pricer:   new(mockPricer),
		pub:      &recordingPublisher{},
	}
	logger := newTestLogger()
	f.svc = NewOrderService(f.orders, f.products, f.parties, f.carriers, f.pricer, event.NewProducer(f.pub, logger), logger)
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func int64Ptr(v int64) *int64 {
	return &v
}

// sampleOrder is a sale of 3 x 10000 and 2 x 5000 (total 40000) in status.
func sampleOrder(status string) *domain.Order {
	o := &domain.Order{
		ID:             "order-001",
		Code:           "DH20260301-001",
		Type:           domain.OrderTypeSale,
		Status:         status,
		PaymentMethod:  domain.PaymentMethodCash,
		ShippingPaidBy: domain.ShippingPayerShop,
		DeliveryMethod: domain.DeliveryMethodDelivery,
		RecipientName:  "Lan",
		RecipientPhone: "0901000000",
		CreatedAt:      fixedNow,
		UpdatedAt:      fixedNow,
		Items: []domain.OrderItem{
			{ID: "item-001", OrderID: "order-001", ProductID: "prod-001", ProductName: "Rice", Unit: "kg", Quantity: d("3"), Price: 10000, ReturnedQuantity: decimal.Zero},
			{ID: "item-002", OrderID: "order-001", ProductID: "prod-002", ProductName: "Salt", Unit: "bag", Quantity: d("2"), Price: 5000, ReturnedQuantity: decimal.Zero},
		},
	}
	o.Recalculate()
	return o
}
