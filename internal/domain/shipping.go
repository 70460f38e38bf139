package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ItemReturn is the quantity of one line handed back at delivery.
type ItemReturn struct {
	ItemID   string          `json:"item_id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// ApplyReturns sets ReturnedQuantity on the matching items, clamped to
// [0, quantity], and stores the returned amount on the order. Items not named
// in returns keep nothing returned. An unknown item id is an error.
func (o *Order) ApplyReturns(returns []ItemReturn) error {
	byID := make(map[string]int, len(o.Items))
	for i := range o.Items {
		byID[o.Items[i].ID] = i
		o.Items[i].ReturnedQuantity = decimal.Zero
	}

	for _, r := range returns {
		i, ok := byID[r.ItemID]
		if !ok {
			return fmt.Errorf("item %s does not belong to order %s", r.ItemID, o.Code)
		}
		item := &o.Items[i]
		qty := decimal.Max(decimal.Zero, r.Quantity)
		qty = decimal.Min(qty, item.Quantity)
		item.ReturnedQuantity = qty
	}

	returned := decimal.Zero
	for i := range o.Items {
		item := &o.Items[i]
		returned = returned.Add(item.ReturnedQuantity.Mul(decimal.NewFromInt(item.Price)))
	}
	o.ReturnedAmount = returned.Round(0).IntPart()
	return nil
}

// FinalAmount is what the customer owes after returns, including the
// shipping fee when they pay it.
func (o *Order) FinalAmount() int64 {
	return o.Total - o.ReturnedAmount + o.CustomerShippingFee()
}
