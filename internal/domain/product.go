package domain

import "time"

// Product is the storefront's view of a sellable product: live pricing and
// the inventory counter the ledger decrements at order commit.
type Product struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Price        int64     `json:"price"`         // list price in cents
	SpecialPrice int64     `json:"special_price"` // price after discount, in cents
	Discount     float64   `json:"discount"`      // percent, 0-100
	Quantity     int       `json:"quantity"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// InStock reports whether at least one unit is available.
func (p *Product) InStock() bool {
	return p.Quantity > 0
}

// Covers reports whether qty units can be taken from the current stock.
func (p *Product) Covers(qty int) bool {
	return qty <= p.Quantity
}
