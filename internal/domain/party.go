package domain

import "time"

// Party kinds.
const (
	PartyCustomer = "CUSTOMER"
	PartySupplier = "SUPPLIER"
)

// Party is a customer or a supplier. Sales reference customers, purchases
// reference suppliers.
type Party struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PartyKindFor returns the party kind an order type refers to.
func PartyKindFor(orderType string) string {
	if orderType == OrderTypePurchase {
		return PartySupplier
	}
	return PartyCustomer
}
