package http

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/residoken-wq/mini-shop-app-sub001/internal/domain"
	"github.com/residoken-wq/mini-shop-app-sub001/internal/repository"
	pkgkafka "github.com/residoken-wq/mini-shop-app-sub001/pkg/kafka"
)

// --- Mock OrderRepository ---

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	return m.Called(ctx, order).Error(0)
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
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *mockOrderRepository) ReplaceItems(ctx context.Context, order *domain.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id, from, to string) error {
	return m.Called(ctx, id, from, to).Error(0)
}

func (m *mockOrderRepository) StartShipping(ctx context.Context, order *domain.Order) error {
	return m.Called(ctx, order).Error(0)
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
	return args.Get(0).([]domain.Payment), args.Error(1)
}

// --- Mock ProductRepository ---

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	return m.Called(ctx, product).Error(0)
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
	return m.Called(ctx, product).Error(0)
}

func (m *mockProductRepository) StockLevels(ctx context.Context, ids []string) (map[string]decimal.Decimal, error) {
	args := m.Called(ctx, ids)
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
	return args.Get(0).([]domain.InventoryTransaction), args.Error(1)
}

// --- Mock PromotionRepository ---

type mockPromotionRepository struct {
	mock.Mock
}

func (m *mockPromotionRepository) Create(ctx context.Context, promo *domain.Promotion) error {
	return m.Called(ctx, promo).Error(0)
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
	return m.Called(ctx, id, active).Error(0)
}

func (m *mockPromotionRepository) TiersFor(ctx context.Context, productID string, asOf time.Time) (map[string][]domain.PriceTier, error) {
	args := m.Called(ctx, productID, asOf)
	return args.Get(0).(map[string][]domain.PriceTier), args.Error(1)
}

// --- Mock CarrierRepository ---

type mockCarrierRepository struct {
	mock.Mock
}

func (m *mockCarrierRepository) Create(ctx context.Context, c *domain.Carrier) error {
	return m.Called(ctx, c).Error(0)
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
	return m.Called(ctx, p).Error(0)
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
	return m.Called(ctx, s).Error(0)
}

func (m *mockSessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *mockSessionStore) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

// --- Event sink ---

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, string, *pkgkafka.Event) error { return nil }
