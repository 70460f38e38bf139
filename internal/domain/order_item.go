package domain

import "github.com/shopspring/decimal"

// OrderItem is a line of an order. ProductName and Price are snapshots taken
// when the line is written.
type OrderItem struct {
	ID               string          `json:"id"`
	OrderID          string          `json:"order_id"`
	ProductID        string          `json:"product_id"`
	ProductName      string          `json:"product_name"`
	Unit             string          `json:"unit"`
	Quantity         decimal.Decimal `json:"quantity"`
	Price            int64           `json:"price"`
	ReturnedQuantity decimal.Decimal `json:"returned_quantity"`
}

// Subtotal is quantity x price rounded to the nearest minor unit.
func (i *OrderItem) Subtotal() int64 {
	return i.Quantity.Mul(decimal.NewFromInt(i.Price)).Round(0).IntPart()
}

// KeptQuantity is the quantity that left the shop for good.
func (i *OrderItem) KeptQuantity() decimal.Decimal {
	kept := i.Quantity.Sub(i.ReturnedQuantity)
	if kept.IsNegative() {
		return decimal.Zero
	}
	return kept
}
