package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/residoken-wq/mini-shop-app-sub001/internal/domain"
	"github.com/residoken-wq/mini-shop-app-sub001/pkg/database"
	apperrors "github.com/residoken-wq/mini-shop-app-sub001/pkg/errors"
)

// PromotionRepository implements repository.PromotionRepository using
// PostgreSQL.
type PromotionRepository struct {
	pool database.DBTX
}

// NewPromotionRepository creates a new PostgreSQL-backed promotion repository.
func NewPromotionRepository(pool database.DBTX) *PromotionRepository {
	return &PromotionRepository{pool: pool}
}

// Create inserts the promotion, its product links and their tiers.
func (r *PromotionRepository) Create(ctx context.Context, p *domain.Promotion) error {
	return database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO promotions (id, name, start_date, end_date, active, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			p.ID, p.Name, p.StartDate, p.EndDate, p.Active, p.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert promotion: %w", err)
		}

		for _, pp := range p.Products {
			_, err := tx.Exec(ctx, `
				INSERT INTO promotion_products (id, promotion_id, product_id)
				VALUES ($1, $2, $3)`, pp.ID, p.ID, pp.ProductID)
			if err != nil {
				if isUniqueViolation(err) {
					return apperrors.InvalidInput(fmt.Sprintf("product %s is listed twice", pp.ProductID))
				}
				return fmt.Errorf("insert promotion product: %w", err)
			}
			for _, t := range pp.Tiers {
				_, err := tx.Exec(ctx, `
					INSERT INTO promotion_tiers (id, promotion_product_id, min_quantity, price, created_at)
					VALUES ($1, $2, $3, $4, $5)`, t.ID, pp.ID, t.MinQuantity, t.Price, t.CreatedAt)
				if err != nil {
					return fmt.Errorf("insert promotion tier: %w", err)
				}
			}
		}
		return nil
	})
}

// GetByID retrieves a promotion with its products and tiers.
func (r *PromotionRepository) GetByID(ctx context.Context, id string) (*domain.Promotion, error) {
	var p domain.Promotion
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, start_date, end_date, active, created_at
		FROM promotions WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.Active, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("promotion", id)
		}
		return nil, fmt.Errorf("scan promotion: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT pp.id, pp.product_id, t.id, t.min_quantity, t.price, t.created_at
		FROM promotion_products pp
		LEFT JOIN promotion_tiers t ON t.promotion_product_id = pp.id
		WHERE pp.promotion_id = $1
		ORDER BY pp.id, t.min_quantity, t.created_at`, id)
	if err != nil {
		return nil, fmt.Errorf("query promotion products: %w", err)
	}
	defer rows.Close()

	p.Products = make([]domain.PromotionProduct, 0)
	for rows.Next() {
		var (
			ppID, productID string
			tierID          *string
			tier            domain.PriceTier
			minQty          decimal.NullDecimal
			price           *int64
			createdAt       *time.Time
		)
		if err := rows.Scan(&ppID, &productID, &tierID, &minQty, &price, &createdAt); err != nil {
			return nil, fmt.Errorf("scan promotion product: %w", err)
		}
		if n := len(p.Products); n == 0 || p.Products[n-1].ID != ppID {
			p.Products = append(p.Products, domain.PromotionProduct{
				ID: ppID, PromotionID: p.ID, ProductID: productID, Tiers: make([]domain.PriceTier, 0),
			})
		}
		if tierID == nil {
			continue
		}
		tier.ID = *tierID
		tier.MinQuantity = minQty.Decimal
		tier.Price = *price
		tier.CreatedAt = *createdAt
		last := &p.Products[len(p.Products)-1]
		last.Tiers = append(last.Tiers, tier)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate promotion products: %w", err)
	}
	return &p, nil
}

// List returns promotion headers, newest first. Products are not loaded.
func (r *PromotionRepository) List(ctx context.Context) ([]domain.Promotion, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, start_date, end_date, active, created_at
		FROM promotions
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list promotions: %w", err)
	}
	defer rows.Close()

	promos := make([]domain.Promotion, 0)
	for rows.Next() {
		var p domain.Promotion
		if err := rows.Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.Active, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan promotion row: %w", err)
		}
		promos = append(promos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate promotions: %w", err)
	}
	return promos, nil
}

// SetActive toggles a promotion on or off.
func (r *PromotionRepository) SetActive(ctx context.Context, id string, active bool) error {
	ct, err := r.pool.Exec(ctx, `UPDATE promotions SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("update promotion: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("promotion", id)
	}
	return nil
}

// TiersFor returns the product's tiers keyed by promotion id, restricted to
// active promotions whose date range covers asOf's calendar day.
func (r *PromotionRepository) TiersFor(ctx context.Context, productID string, asOf time.Time) (map[string][]domain.PriceTier, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, t.id, t.min_quantity, t.price, t.created_at
		FROM promotions p
		JOIN promotion_products pp ON pp.promotion_id = p.id
		JOIN promotion_tiers t ON t.promotion_product_id = pp.id
		WHERE pp.product_id = $1
			AND p.active
			AND p.start_date::date <= $2::date
			AND p.end_date::date >= $2::date
		ORDER BY p.id, t.min_quantity ASC, t.created_at ASC`, productID, asOf)
	if err != nil {
		return nil, fmt.Errorf("query promotion tiers: %w", err)
	}
	defer rows.Close()

	tiers := make(map[string][]domain.PriceTier)
	for rows.Next() {
		var (
			promoID string
			t       domain.PriceTier
		)
		if err := rows.Scan(&promoID, &t.ID, &t.MinQuantity, &t.Price, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan promotion tier: %w", err)
		}
		tiers[promoID] = append(tiers[promoID], t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate promotion tiers: %w", err)
	}
	return tiers, nil
}
