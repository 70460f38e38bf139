package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Promotion is a dated campaign giving quantity price breaks on products.
type Promotion struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	StartDate time.Time          `json:"start_date"`
	EndDate   time.Time          `json:"end_date"`
	Active    bool               `json:"active"`
	Products  []PromotionProduct `json:"products"`
	CreatedAt time.Time          `json:"created_at"`
}

// PromotionProduct attaches a product and its tiers to a promotion.
type PromotionProduct struct {
	ID          string      `json:"id"`
	PromotionID string      `json:"promotion_id"`
	ProductID   string      `json:"product_id"`
	Tiers       []PriceTier `json:"tiers"`
}

// PriceTier applies Price once the quantity reaches MinQuantity.
type PriceTier struct {
	ID          string          `json:"id"`
	MinQuantity decimal.Decimal `json:"min_quantity"`
	Price       int64           `json:"price"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ActiveOn reports whether the promotion applies on the calendar day of t.
// Start and end dates are inclusive.
func (p *Promotion) ActiveOn(t time.Time) bool {
	if !p.Active {
		return false
	}
	day := truncateDay(t)
	return !day.Before(truncateDay(p.StartDate)) && !day.After(truncateDay(p.EndDate))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ResolvePrice picks the tier with the largest MinQuantity not above qty.
// Equal thresholds go to the most recently created tier. With no qualifying
// tier the base price applies. Tiers may be in any order.
func ResolvePrice(basePrice int64, qty decimal.Decimal, tiers []PriceTier) int64 {
	var best *PriceTier
	for i := range tiers {
		t := &tiers[i]
		if t.MinQuantity.GreaterThan(qty) {
			continue
		}
		switch {
		case best == nil:
			best = t
		case t.MinQuantity.GreaterThan(best.MinQuantity):
			best = t
		case t.MinQuantity.Equal(best.MinQuantity) && !t.CreatedAt.Before(best.CreatedAt):
			best = t
		}
	}
	if best == nil {
		return basePrice
	}
	return best.Price
}

// ValidateTiers checks tiers at data entry. Thresholds must be positive and
// distinct within one product, and prices must be non-negative and never rise
// as the threshold rises, so the resolved price is non-increasing in quantity.
func ValidateTiers(basePrice int64, tiers []PriceTier) error {
	sorted := make([]PriceTier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinQuantity.LessThan(sorted[j].MinQuantity)
	})

	prev := basePrice
	for i, t := range sorted {
		if !t.MinQuantity.IsPositive() {
			return fmt.Errorf("tier min_quantity must be positive, got %s", t.MinQuantity)
		}
		if i > 0 && t.MinQuantity.Equal(sorted[i-1].MinQuantity) {
			return fmt.Errorf("duplicate tier min_quantity %s", t.MinQuantity)
		}
		if t.Price < 0 {
			return fmt.Errorf("tier price must not be negative, got %d", t.Price)
		}
		if t.Price > prev {
			return fmt.Errorf("tier at %s has price %d above the lower threshold price %d", t.MinQuantity, t.Price, prev)
		}
		prev = t.Price
	}
	return nil
}
