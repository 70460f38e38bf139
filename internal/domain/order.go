package domain

import "time"

// Order types.
const (
	OrderTypeSale     = "SALE"
	OrderTypePurchase = "PURCHASE"
)

// Order status constants.
const (
	OrderStatusPending    = "PENDING"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusReady      = "READY"
	OrderStatusShipping   = "SHIPPING"
	OrderStatusCompleted  = "COMPLETED"
	OrderStatusCancelled  = "CANCELLED"
)

// Who pays the carrier.
const (
	ShippingPayerShop     = "SHOP"
	ShippingPayerCustomer = "CUSTOMER"
)

// Delivery methods.
const (
	DeliveryMethodPickup   = "PICKUP"
	DeliveryMethodDelivery = "DELIVERY"
)

// Payment methods.
const (
	PaymentMethodCash = "CASH"
	PaymentMethodQR   = "QR"
)

// Order is a sale to a customer or a purchase from a supplier.
type Order struct {
	ID              string      `json:"id"`
	Code            string      `json:"code"`
	Type            string      `json:"type"`
	Status          string      `json:"status"`
	CustomerID      *string     `json:"customer_id,omitempty"`
	SupplierID      *string     `json:"supplier_id,omitempty"`
	Items           []OrderItem `json:"items"`
	Total           int64       `json:"total"`
	Paid            int64       `json:"paid"`
	Discount        int64       `json:"discount"`
	PaymentMethod   string      `json:"payment_method"`
	ShippingFee     int64       `json:"shipping_fee"`
	ShippingPaidBy  string      `json:"shipping_paid_by"`
	CarrierID       *string     `json:"carrier_id,omitempty"`
	CarrierName     string      `json:"carrier_name,omitempty"`
	DeliveryMethod  string      `json:"delivery_method"`
	DeliveryAddress string      `json:"delivery_address,omitempty"`
	DeliveryNote    string      `json:"delivery_note,omitempty"`
	RecipientName   string      `json:"recipient_name,omitempty"`
	RecipientPhone  string      `json:"recipient_phone,omitempty"`
	ReturnedAmount  int64       `json:"returned_amount"`
	RefundAmount    int64       `json:"refund_amount"`
	ReturnNote      string      `json:"return_note,omitempty"`
	Note            string      `json:"note,omitempty"`
	ShippedAt       *time.Time  `json:"shipped_at,omitempty"`
	CompletedAt     *time.Time  `json:"completed_at,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// ValidStatuses returns all order statuses in lifecycle order.
func ValidStatuses() []string {
	return []string{
		OrderStatusPending,
		OrderStatusProcessing,
		OrderStatusReady,
		OrderStatusShipping,
		OrderStatusCompleted,
		OrderStatusCancelled,
	}
}

// IsValidStatus checks if a status string is valid.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// AllowedTransitions defines which status transitions are valid. COMPLETED
// and CANCELLED are terminal.
func AllowedTransitions() map[string][]string {
	return map[string][]string{
		OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
		OrderStatusProcessing: {OrderStatusReady, OrderStatusCancelled},
		OrderStatusReady:      {OrderStatusShipping},
		OrderStatusShipping:   {OrderStatusCompleted},
		OrderStatusCompleted:  {},
		OrderStatusCancelled:  {},
	}
}

// CanTransitionTo checks if the order can transition to the target status.
func (o *Order) CanTransitionTo(target string) bool {
	return CanTransition(o.Status, target)
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to string) bool {
	for _, s := range AllowedTransitions()[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Step is the progress-bar position of a status. Display only.
func Step(status string) int {
	switch status {
	case OrderStatusPending:
		return 0
	case OrderStatusProcessing:
		return 1
	case OrderStatusReady:
		return 2
	case OrderStatusShipping:
		return 3
	case OrderStatusCompleted:
		return 4
	case OrderStatusCancelled:
		return 5
	default:
		return 0
	}
}

// IsTerminal reports whether the order can no longer change status.
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusCompleted || o.Status == OrderStatusCancelled
}

// Subtotal sums the line subtotals.
func (o *Order) Subtotal() int64 {
	var sum int64
	for i := range o.Items {
		sum += o.Items[i].Subtotal()
	}
	return sum
}

// Recalculate sets Total from the items and discount, floored at zero.
func (o *Order) Recalculate() {
	total := o.Subtotal() - o.Discount
	if total < 0 {
		total = 0
	}
	o.Total = total
}

// CustomerShippingFee is the fee the recipient pays on top of the total.
func (o *Order) CustomerShippingFee() int64 {
	if o.ShippingPaidBy == ShippingPayerCustomer {
		return o.ShippingFee
	}
	return 0
}

// CollectAmount is what the carrier collects on delivery.
func (o *Order) CollectAmount() int64 {
	return o.Total + o.CustomerShippingFee()
}

// Due is what remains to be paid after returns and recorded payments.
func (o *Order) Due() int64 {
	return o.FinalAmount() - o.Paid
}

// CodePrefix returns "DH" for sales and "NH" for purchases.
func CodePrefix(orderType string) string {
	if orderType == OrderTypePurchase {
		return "NH"
	}
	return "DH"
}
