package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/residoken-wq/mini-shop-app-sub001/internal/domain"
)

// OrderFilter defines filter criteria for listing orders.
type OrderFilter struct {
	Type    *string
	Status  *string
	Page    int
	PerPage int
}

// StockChange is the stock left on a product after a write.
type StockChange struct {
	ProductID         string
	ProductName       string
	Stock             decimal.Decimal
	LowStockThreshold decimal.Decimal
}

// IsLow reports whether the remaining stock is at or below a positive
// threshold.
func (c StockChange) IsLow() bool {
	return c.LowStockThreshold.IsPositive() && c.Stock.LessThanOrEqual(c.LowStockThreshold)
}

// OrderRepository defines the interface for order persistence operations.
type OrderRepository interface {
	// Create assigns the next daily order code and inserts the order with its
	// items in one transaction.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order by its unique identifier, including items.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// List returns orders matching the filter, newest first, with the total
	// count. Items are not loaded.
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)

	// ListOpen returns SALE orders in PENDING or PROCESSING with their items,
	// oldest first.
	ListOpen(ctx context.Context) ([]domain.Order, error)

	// ReplaceItems rewrites the items, discount and total of an order that is
	// not in a terminal status.
	ReplaceItems(ctx context.Context, order *domain.Order) error

	// UpdateStatus moves an order from one status to another. It fails with
	// Conflict if the stored status is no longer from.
	UpdateStatus(ctx context.Context, id, from, to string) error

	// StartShipping stores carrier and fee fields and moves a READY order to
	// SHIPPING.
	StartShipping(ctx context.Context, order *domain.Order) error

	// Complete moves a SHIPPING order to COMPLETED with its return fields. For
	// SALE orders it decrements stock by each item's kept quantity and writes
	// one OUT ledger row per item, zero-delta for a line returned in full.
	// Everything happens in one transaction with the order row locked. If the
	// stored items no longer match order.Items it fails with a conflict.
	Complete(ctx context.Context, order *domain.Order) ([]StockChange, error)

	// AddPayment appends a payment and adds its amount to order.paid. It
	// returns the new paid total.
	AddPayment(ctx context.Context, payment *domain.Payment) (int64, error)

	// ListPayments returns an order's payments, oldest first.
	ListPayments(ctx context.Context, orderID string) ([]domain.Payment, error)
}

// ProductFilter defines filter criteria for listing products.
type ProductFilter struct {
	Search  string
	Page    int
	PerPage int
}

// ProductRepository defines persistence for products and the stock ledger.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)

	// Update writes catalog fields. Stock is only changed through Adjust and
	// order completion.
	Update(ctx context.Context, product *domain.Product) error

	// StockLevels returns current stock for the given products. Unknown ids
	// are absent from the map.
	StockLevels(ctx context.Context, productIDs []string) (map[string]decimal.Decimal, error)

	// Adjust applies a signed ledger entry and the matching stock change in
	// one transaction.
	Adjust(ctx context.Context, entry *domain.InventoryTransaction) (*StockChange, error)

	// ListTransactions returns the newest ledger rows for a product.
	ListTransactions(ctx context.Context, productID string, limit int) ([]domain.InventoryTransaction, error)
}

// PromotionRepository defines persistence for promotions and their tiers.
type PromotionRepository interface {
	// Create inserts a promotion with its products and tiers atomically.
	Create(ctx context.Context, promotion *domain.Promotion) error
	GetByID(ctx context.Context, id string) (*domain.Promotion, error)
	List(ctx context.Context) ([]domain.Promotion, error)
	SetActive(ctx context.Context, id string, active bool) error

	// TiersFor returns, per promotion active on asOf that includes the
	// product, that product's tiers in ascending min quantity.
	TiersFor(ctx context.Context, productID string, asOf time.Time) (map[string][]domain.PriceTier, error)
}

// CarrierRepository defines persistence for delivery carriers.
type CarrierRepository interface {
	Create(ctx context.Context, carrier *domain.Carrier) error
	GetByID(ctx context.Context, id string) (*domain.Carrier, error)

	// GetByName matches case-insensitively.
	GetByName(ctx context.Context, name string) (*domain.Carrier, error)
	List(ctx context.Context) ([]domain.Carrier, error)
}

// PartyRepository defines persistence for customers and suppliers.
type PartyRepository interface {
	Create(ctx context.Context, party *domain.Party) error
	GetByID(ctx context.Context, id string) (*domain.Party, error)
	List(ctx context.Context, kind string) ([]domain.Party, error)
}

// UserRepository defines persistence for staff accounts.
type UserRepository interface {
	// CreateIfAbsent inserts the user unless the username is taken. It
	// reports whether a row was written.
	CreateIfAbsent(ctx context.Context, user *domain.User) (bool, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// SessionStore keeps login sessions with expiry.
type SessionStore interface {
	Save(ctx context.Context, session *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	Delete(ctx context.Context, id string) error
}
