package domain

import "time"

// Carrier is a delivery company. Names are unique.
type Carrier struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
