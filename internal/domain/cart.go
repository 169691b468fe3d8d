package domain

import "time"

// Cart is a user's mutable collection of pending purchase intents.
//
// TotalPrice is maintained incrementally by the mutation methods below and
// always equals the sum of the items' line totals.
type Cart struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Email      string     `json:"email"`
	Items      []CartItem `json:"items"`
	TotalPrice int64      `json:"total_price"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// CartItem is one product line within a cart. UnitPrice and Discount are a
// snapshot of the product's pricing, decoupled from the live product.
type CartItem struct {
	ID          string    `json:"id"`
	CartID      string    `json:"cart_id"`
	ProductID   string    `json:"product_id"`
	ProductName string    `json:"product_name"`
	Quantity    int       `json:"quantity"`
	UnitPrice   int64     `json:"unit_price"`
	Discount    float64   `json:"discount"`
	AddedAt     time.Time `json:"added_at"`
}

// LineTotal returns the unit price multiplied by the quantity.
func (i CartItem) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// NewCart creates an empty cart for the given user.
func NewCart(id string, user User, now time.Time) *Cart {
	return &Cart{
		ID:        id,
		UserID:    user.ID,
		Email:     user.Email,
		Items:     []CartItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsEmpty returns true if the cart has no items.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// ItemCount returns the total number of units across all items.
func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// FindItem returns the item for productID, or nil.
func (c *Cart) FindItem(productID string) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}

// AppendItem adds a new line and adds its line total to the cart total.
func (c *Cart) AppendItem(item CartItem) {
	c.Items = append(c.Items, item)
	c.TotalPrice += item.LineTotal()
}

// ReplaceItem swaps the line for item.ProductID and moves the total by the
// difference between the old and new line totals. It returns false if the
// product is not in the cart.
func (c *Cart) ReplaceItem(item CartItem) bool {
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			c.TotalPrice += item.LineTotal() - c.Items[i].LineTotal()
			c.Items[i] = item
			return true
		}
	}
	return false
}

// DropItem removes the line for productID and subtracts its line total.
// It returns the removed item, or false if the product is not in the cart.
func (c *Cart) DropItem(productID string) (CartItem, bool) {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			removed := c.Items[i]
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.TotalPrice -= removed.LineTotal()
			return removed, true
		}
	}
	return CartItem{}, false
}

// RecomputedTotal sums the line totals from scratch.
func (c *Cart) RecomputedTotal() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.LineTotal()
	}
	return total
}
