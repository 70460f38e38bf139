package domain

import "github.com/shopspring/decimal"

// ProductDemand is the combined demand for one product across open orders.
type ProductDemand struct {
	ProductID     string          `json:"product_id"`
	ProductName   string          `json:"product_name"`
	Unit          string          `json:"unit"`
	TotalRequired decimal.Decimal `json:"total_required"`
	CurrentStock  decimal.Decimal `json:"current_stock"`
	IsEnough      bool            `json:"is_enough"`
	Shortage      decimal.Decimal `json:"shortage"`
}

// OrderAvailability says whether one order could be fulfilled from stock on
// its own.
type OrderAvailability struct {
	OrderID           string   `json:"order_id"`
	Code              string   `json:"code"`
	Status            string   `json:"status"`
	AllItemsAvailable bool     `json:"all_items_available"`
	ShortProducts     []string `json:"short_products,omitempty"`
}

// FulfillmentSummary is the output of AggregateFulfillment.
type FulfillmentSummary struct {
	Products    []ProductDemand     `json:"products"`
	Orders      []OrderAvailability `json:"orders"`
	TotalOrders int                 `json:"total_orders"`
}

// AggregateFulfillment sums item quantities per product and compares them to
// stock. Products appear in first-seen order. Per-order availability checks
// each item against stock alone, not against the combined demand, and nothing
// is reserved. Products missing from stock count as zero.
func AggregateFulfillment(orders []Order, stock map[string]decimal.Decimal) FulfillmentSummary {
	summary := FulfillmentSummary{
		Products:    []ProductDemand{},
		Orders:      make([]OrderAvailability, 0, len(orders)),
		TotalOrders: len(orders),
	}
	index := make(map[string]int)

	for _, o := range orders {
		avail := OrderAvailability{
			OrderID:           o.ID,
			Code:              o.Code,
			Status:            o.Status,
			AllItemsAvailable: true,
		}

		for _, item := range o.Items {
			onHand := stock[item.ProductID]

			i, seen := index[item.ProductID]
			if !seen {
				i = len(summary.Products)
				index[item.ProductID] = i
				summary.Products = append(summary.Products, ProductDemand{
					ProductID:     item.ProductID,
					ProductName:   item.ProductName,
					Unit:          item.Unit,
					TotalRequired: decimal.Zero,
					CurrentStock:  onHand,
				})
			}
			summary.Products[i].TotalRequired = summary.Products[i].TotalRequired.Add(item.Quantity)

			if onHand.LessThan(item.Quantity) {
				avail.AllItemsAvailable = false
				avail.ShortProducts = append(avail.ShortProducts, item.ProductName)
			}
		}
		summary.Orders = append(summary.Orders, avail)
	}

	for i := range summary.Products {
		p := &summary.Products[i]
		p.IsEnough = p.CurrentStock.GreaterThanOrEqual(p.TotalRequired)
		p.Shortage = decimal.Max(decimal.Zero, p.TotalRequired.Sub(p.CurrentStock))
	}
	return summary
}
