package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a stock-keeping item. Stock is fractional to allow goods sold by
// weight.
type Product struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	SKU               string          `json:"sku"`
	Category          string          `json:"category,omitempty"`
	Price             int64           `json:"price"`
	Cost              int64           `json:"cost"`
	Stock             decimal.Decimal `json:"stock"`
	Unit              string          `json:"unit"`
	SaleUnit          string          `json:"sale_unit,omitempty"`
	SaleRatio         decimal.Decimal `json:"sale_ratio"`
	LowStockThreshold decimal.Decimal `json:"low_stock_threshold"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// IsLowStock reports whether stock sits at or under a positive threshold.
func (p *Product) IsLowStock() bool {
	return p.LowStockThreshold.IsPositive() && p.Stock.LessThanOrEqual(p.LowStockThreshold)
}
