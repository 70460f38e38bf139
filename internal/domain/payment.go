package domain

import "time"

// Payment is money received against an order.
type Payment struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	Amount    int64     `json:"amount"`
	Method    string    `json:"method"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// IsValidPaymentMethod checks the method against the accepted set.
func IsValidPaymentMethod(m string) bool {
	return m == PaymentMethodCash || m == PaymentMethodQR
}
