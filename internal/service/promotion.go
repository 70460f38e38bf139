package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/residoken-wq/mini-shop-app-sub001/internal/domain"
	"github.com/residoken-wq/mini-shop-app-sub001/internal/repository"
	apperrors "github.com/residoken-wq/mini-shop-app-sub001/pkg/errors"
)

// PromotionService manages promotions and resolves tiered prices.
type PromotionService struct {
	promotions repository.PromotionRepository
	products   repository.ProductRepository
	logger     *slog.Logger
	now        func() time.Time
}

// NewPromotionService creates a new promotion service.
func NewPromotionService(promotions repository.PromotionRepository, products repository.ProductRepository, logger *slog.Logger) *PromotionService {
	return &PromotionService{
		promotions: promotions,
		products:   products,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ResolvePromotionPrice returns the unit price of qty of a product on asOf's
// day. Each active promotion covering the product resolves a price from its
// own tiers; the lowest wins. Without promotions the base price applies.
func (s *PromotionService) ResolvePromotionPrice(ctx context.Context, productID string, qty decimal.Decimal, asOf time.Time) (int64, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return 0, apperrors.AsPersistence(fmt.Errorf("get product: %w", err))
	}

	byPromotion, err := s.promotions.TiersFor(ctx, productID, asOf)
	if err != nil {
		return 0, apperrors.AsPersistence(fmt.Errorf("load promotion tiers: %w", err))
	}

	best := product.Price
	for _, tiers := range byPromotion {
		if p := domain.ResolvePrice(product.Price, qty, tiers); p < best {
			best = p
		}
	}
	return best, nil
}

// TierInput is one quantity threshold.
type TierInput struct {
	MinQuantity decimal.Decimal
	Price       int64
}

// PromotionProductInput attaches tiers to a product.
type PromotionProductInput struct {
	ProductID string
	Tiers     []TierInput
}

// CreatePromotionInput holds the parameters for creating a promotion.
type CreatePromotionInput struct {
	Name      string
	StartDate time.Time
	EndDate   time.Time
	Products  []PromotionProductInput
}

// CreatePromotion validates and stores an active promotion. Tier prices must
// not rise with quantity, starting from the product's base price.
func (s *PromotionService) CreatePromotion(ctx context.Context, input CreatePromotionInput) (*domain.Promotion, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.InvalidInput("promotion name is required")
	}
	if input.StartDate.IsZero() || input.EndDate.IsZero() {
		return nil, apperrors.InvalidInput("start_date and end_date are required")
	}
	if input.EndDate.Before(input.StartDate) {
		return nil, apperrors.InvalidInput("end_date must not be before start_date")
	}
	if len(input.Products) == 0 {
		return nil, apperrors.InvalidInput("promotion must include at least one product")
	}

	now := s.now()
	promo := &domain.Promotion{
		ID:        uuid.NewString(),
		Name:      name,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
		Active:    true,
		Products:  make([]domain.PromotionProduct, 0, len(input.Products)),
		CreatedAt: now,
	}

	seen := make(map[string]struct{}, len(input.Products))
	for _, in := range input.Products {
		if _, dup := seen[in.ProductID]; dup {
			return nil, apperrors.InvalidInput(fmt.Sprintf("product %s is listed twice", in.ProductID))
		}
		seen[in.ProductID] = struct{}{}
		if len(in.Tiers) == 0 {
			return nil, apperrors.InvalidInput(fmt.Sprintf("product %s has no tiers", in.ProductID))
		}

		product, err := s.products.GetByID(ctx, in.ProductID)
		if err != nil {
			return nil, apperrors.AsPersistence(fmt.Errorf("get product: %w", err))
		}

		pp := domain.PromotionProduct{
			ID:          uuid.NewString(),
			PromotionID: promo.ID,
			ProductID:   product.ID,
			Tiers:       make([]domain.PriceTier, len(in.Tiers)),
		}
		for i, t := range in.Tiers {
			pp.Tiers[i] = domain.PriceTier{
				ID:          uuid.NewString(),
				MinQuantity: t.MinQuantity,
				Price:       t.Price,
				CreatedAt:   now,
			}
		}
		if err := domain.ValidateTiers(product.Price, pp.Tiers); err != nil {
			return nil, apperrors.InvalidInput(fmt.Sprintf("%s: %s", product.Name, err.Error()))
		}
		promo.Products = append(promo.Products, pp)
	}

	if err := s.promotions.Create(ctx, promo); err != nil {
		return nil, apperrors.AsPersistence(fmt.Errorf("create promotion: %w", err))
	}

	s.logger.InfoContext(ctx, "promotion created",
		slog.String("promotion_id", promo.ID),
		slog.String("name", promo.Name),
		slog.Int("products", len(promo.Products)),
	)
	return promo, nil
}

// GetPromotion retrieves a promotion with its products and tiers.
func (s *PromotionService) GetPromotion(ctx context.Context, id string) (*domain.Promotion, error) {
	promo, err := s.promotions.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.AsPersistence(fmt.Errorf("get promotion: %w", err))
	}
	return promo, nil
}

// ListPromotions returns all promotions, newest first.
func (s *PromotionService) ListPromotions(ctx context.Context) ([]domain.Promotion, error) {
	promos, err := s.promotions.List(ctx)
	if err != nil {
		return nil, apperrors.AsPersistence(fmt.Errorf("list promotions: %w", err))
	}
	return promos, nil
}

// Deactivate switches a promotion off. Prices on existing orders are kept.
func (s *PromotionService) Deactivate(ctx context.Context, id string) error {
	if err := s.promotions.SetActive(ctx, id, false); err != nil {
		return apperrors.AsPersistence(fmt.Errorf("deactivate promotion: %w", err))
	}
	s.logger.InfoContext(ctx, "promotion deactivated", slog.String("promotion_id", id))
	return nil
}
