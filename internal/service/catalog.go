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

	"github.com/residoken-wq/mini-shop-app-sub001/internal/domain"
	"github.com/residoken-wq/mini-shop-app-sub001/internal/event"
	"github.com/residoken-wq/mini-shop-app-sub001/internal/repository"
	apperrors "github.com/residoken-wq/mini-shop-app-sub001/pkg/errors"
	"github.com/residoken-wq/mini-shop-app-sub001/pkg/slug"
)

const (
	skuMaxLen      = 16
	skuMaxAttempts = 5
)

// CatalogService manages products, stock adjustments, carriers, customers
// and suppliers.
type CatalogService struct {
	products repository.ProductRepository
	carriers repository.CarrierRepository
	parties  repository.PartyRepository
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(
	products repository.ProductRepository,
	carriers repository.CarrierRepository,
	parties repository.PartyRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		products: products,
		carriers: carriers,
		parties:  parties,
		producer: producer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Name              string
	SKU               string
	Category          string
	Price             int64
	Cost              int64
	Unit              string
	SaleUnit          string
	SaleRatio         decimal.Decimal
	LowStockThreshold decimal.Decimal
	InitialStock      decimal.Decimal
}

// CreateProduct stores a product. An empty SKU is derived from the name,
// suffixed when taken. Initial stock is booked as an IN ledger row.
func (s *CatalogService) CreateProduct(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.InvalidInput("product name is required")
	}
	if input.Price < 0 || input.Cost < 0 {
		return nil, apperrors.InvalidInput("price and cost must not be negative")
	}
	if input.InitialStock.IsNegative() || input.LowStockThreshold.IsNegative() {
		return nil, apperrors.InvalidInput("stock and threshold must not be negative")
	}
	if input.SaleUnit != "" && !input.SaleRatio.IsPositive() {
		return nil, apperrors.InvalidInput("sale_ratio must be positive when sale_unit is set")
	}
	if input.SaleRatio.IsZero() {
		input.SaleRatio = decimal.NewFromInt(1)
	}
	if input.Unit == "" {
		input.Unit = "pcs"
	}

	now := s.now()
	product := &domain.Product{
		ID:                uuid.NewString(),
		Name:              name,
		SKU:               strings.ToUpper(strings.TrimSpace(input.SKU)),
		Category:          input.Category,
		Price:             input.Price,
		Cost:              input.Cost,
		Stock:             decimal.Zero,
		Unit:              input.Unit,
		SaleUnit:          input.SaleUnit,
		SaleRatio:         input.SaleRatio,
		LowStockThreshold: input.LowStockThreshold,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.insertProduct(ctx, product, input.SKU == ""); err != nil {
		return nil, err
	}

	if input.InitialStock.IsPositive() {
		change, err := s.products.Adjust(ctx, &domain.InventoryTransaction{
			ID:        uuid.NewString(),
			ProductID: product.ID,
			Type:      domain.InventoryIn,
			Quantity:  input.InitialStock,
			Note:      "Opening stock",
			CreatedAt: now,
		})
		if err != nil {
			return nil, apperrors.AsPersistence(fmt.Errorf("book opening stock: %w", err))
		}
		product.Stock = change.Stock
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("sku", product.SKU),
	)
	return product, nil
}

func (s *CatalogService) insertProduct(ctx context.Context, product *domain.Product, generated bool) error {
	if !generated {
		if err := s.products.Create(ctx, product); err != nil {
			return apperrors.AsPersistence(fmt.Errorf("create product: %w", err))
		}
		return nil
	}

	base := slug.SKU(product.Name, skuMaxLen)
	if base == "" {
		base = "SP"
	}
	for attempt := 1; attempt <= skuMaxAttempts; attempt++ {
		product.SKU = base
		if attempt > 1 {
			product.SKU = fmt.Sprintf("%s-%d", base, attempt)
		}
		err := s.products.Create(ctx, product)
		if err == nil {
			return nil
		}
		if !errors.Is(err, apperrors.ErrAlreadyExists) {
			return apperrors.AsPersistence(fmt.Errorf("create product: %w", err))
		}
	}
	return apperrors.AlreadyExists("product", "sku", base)
}

// GetProduct retrieves a product by id.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.AsPersistence(fmt.Errorf("get product: %w", err))
	}
	return p, nil
}

// ListProducts returns a page of products.
func (s *CatalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 || filter.PerPage > 100 {
		filter.PerPage = 20
	}
	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.AsPersistence(fmt.Errorf("list products: %w", err))
	}
	return products, total, nil
}

// UpdateProductInput carries the fields to change; nil fields are kept.
type UpdateProductInput struct {
	Name              *string
	SKU               *string
	Category          *string
	Price             *int64
	Cost              *int64
	Unit              *string
	SaleUnit          *string
	SaleRatio         *decimal.Decimal
	LowStockThreshold *decimal.Decimal
}

// UpdateProduct changes catalog fields. Stock moves only through AdjustStock
// and order completion.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, input UpdateProductInput) (*domain.Product, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, apperrors.InvalidInput("product name must not be empty")
		}
		p.Name = strings.TrimSpace(*input.Name)
	}
	if input.SKU != nil {
		p.SKU = strings.ToUpper(strings.TrimSpace(*input.SKU))
	}
	if input.Category != nil {
		p.Category = *input.Category
	}
	if input.Price != nil {
		p.Price = *input.Price
	}
	if input.Cost != nil {
		p.Cost = *input.Cost
	}
	if input.Unit != nil {
		p.Unit = *input.Unit
	}
	if input.SaleUnit != nil {
		p.SaleUnit = *input.SaleUnit
	}
	if input.SaleRatio != nil {
		p.SaleRatio = *input.SaleRatio
	}
	if input.LowStockThreshold != nil {
		p.LowStockThreshold = *input.LowStockThreshold
	}

	if p.Price < 0 || p.Cost < 0 {
		return nil, apperrors.InvalidInput("price and cost must not be negative")
	}
	if !p.SaleRatio.IsPositive() {
		return nil, apperrors.InvalidInput("sale_ratio must be positive")
	}
	if p.LowStockThreshold.IsNegative() {
		return nil, apperrors.InvalidInput("low_stock_threshold must not be negative")
	}
	p.UpdatedAt = s.now()

	if err := s.products.Update(ctx, p); err != nil {
		return nil, apperrors.AsPersistence(fmt.Errorf("update product: %w", err))
	}
	return p, nil
}

// AdjustStockInput is a manual stock movement. Quantity is always positive;
// Type gives the direction.
type AdjustStockInput struct {
	Type     string
	Quantity decimal.Decimal
	Note     string
}

// AdjustStock books a manual IN or OUT movement and returns the product's
// new stock.
func (s *CatalogService) AdjustStock(ctx context.Context, productID string, input AdjustStockInput) (*domain.InventoryTransaction, decimal.Decimal, error) {
	if !input.Quantity.IsPositive() {
		return nil, decimal.Zero, apperrors.InvalidInput("quantity must be positive")
	}

	delta := input.Quantity
	switch input.Type {
	case domain.InventoryIn:
	case domain.InventoryOut:
		delta = delta.Neg()
	default:
		return nil, decimal.Zero, apperrors.InvalidInput(fmt.Sprintf("invalid adjustment type %q, must be IN or OUT", input.Type))
	}

	entry := &domain.InventoryTransaction{
		ID:        uuid.NewString(),
		ProductID: productID,
		Type:      input.Type,
		Quantity:  delta,
		Note:      input.Note,
		CreatedAt: s.now(),
	}

	change, err := s.products.Adjust(ctx, entry)
	if err != nil {
		return nil, decimal.Zero, apperrors.AsPersistence(fmt.Errorf("adjust stock: %w", err))
	}

	if input.Type == domain.InventoryOut && change.IsLow() {
		if err := s.producer.PublishStockLow(ctx, *change); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish product.stock_low event",
				slog.String("product_id", productID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "stock adjusted",
		slog.String("product_id", productID),
		slog.String("type", input.Type),
		slog.String("quantity", input.Quantity.String()),
		slog.String("stock", change.Stock.String()),
	)
	return entry, change.Stock, nil
}

// ListTransactions returns the newest ledger rows of a product.
func (s *CatalogService) ListTransactions(ctx context.Context, productID string, limit int) ([]domain.InventoryTransaction, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	txs, err := s.products.ListTransactions(ctx, productID, limit)
	if err != nil {
		return nil, apperrors.AsPersistence(fmt.Errorf("list inventory transactions: %w", err))
	}
	return txs, nil
}

// CreateCarrier registers a delivery carrier.
func (s *CatalogService) CreateCarrier(ctx context.Context, name, phone string) (*domain.Carrier, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.InvalidInput("carrier name is required")
	}
	c := &domain.Carrier{ID: uuid.NewString(), Name: name, Phone: strings.TrimSpace(phone), CreatedAt: s.now()}
	if err := s.carriers.Create(ctx, c); err != nil {
		return nil, apperrors.AsPersistence(fmt.Errorf("create carrier: %w", err))
	}
	return c, nil
}

// ListCarriers returns all carriers.
func (s *CatalogService) ListCarriers(ctx context.Context) ([]domain.Carrier, error) {
	carriers, err := s.carriers.List(ctx)
	if err != nil {
		return nil, apperrors.AsPersistence(fmt.Errorf("list carriers: %w", err))
	}
	return carriers, nil
}

// CreatePartyInput holds the parameters for a customer or supplier.
type CreatePartyInput struct {
	Kind    string
	Name    string
	Phone   string
	Email   string
	Address string
}

// CreateParty stores a customer or supplier.
func (s *CatalogService) CreateParty(ctx context.Context, input CreatePartyInput) (*domain.Party, error) {
	if input.Kind != domain.PartyCustomer && input.Kind != domain.PartySupplier {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid party kind %q", input.Kind))
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}

	p := &domain.Party{
		ID:        uuid.NewString(),
		Kind:      input.Kind,
		Name:      name,
		Phone:     strings.TrimSpace(input.Phone),
		Email:     strings.TrimSpace(input.Email),
		Address:   strings.TrimSpace(input.Address),
		CreatedAt: s.now(),
	}
	if err := s.parties.Create(ctx, p); err != nil {
		return nil, apperrors.AsPersistence(fmt.Errorf("create party: %w", err))
	}
	return p, nil
}

// GetParty retrieves a customer or supplier of the given kind.
func (s *CatalogService) GetParty(ctx context.Context, kind, id string) (*domain.Party, error) {
	p, err := s.parties.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.AsPersistence(fmt.Errorf("get party: %w", err))
	}
	if p.Kind != kind {
		return nil, apperrors.NotFound(strings.ToLower(kind), id)
	}
	return p, nil
}

// ListParties returns customers or suppliers.
func (s *CatalogService) ListParties(ctx context.Context, kind string) ([]domain.Party, error) {
	parties, err := s.parties.List(ctx, kind)
	if err != nil {
		return nil, apperrors.AsPersistence(fmt.Errorf("list parties: %w", err))
	}
	return parties, nil
}
