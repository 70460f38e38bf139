package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Inventory transaction types.
const (
	InventoryIn  = "IN"
	InventoryOut = "OUT"
)

// InventoryTransaction is an append-only ledger row. Quantity is signed:
// positive for IN, negative for OUT.
type InventoryTransaction struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Type      string          `json:"type"`
	Quantity  decimal.Decimal `json:"quantity"`
	Note      string          `json:"note,omitempty"`
	OrderID   *string         `json:"order_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
