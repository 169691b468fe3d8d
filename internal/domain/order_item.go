package domain

// OrderItem is the immutable snapshot of a cart line taken when the order
// is placed. It is never written again after creation.
type OrderItem struct {
	ID          string  `json:"id"`
	OrderID     string  `json:"order_id"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	Discount    float64 `json:"discount"`
	Price       int64   `json:"price"` // unit price at order time, in cents
	Position    int     `json:"position"`
}

// LineTotal returns the total price for this line item.
func (i *OrderItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}

// SnapshotItem copies a cart line into an order line.
func SnapshotItem(id, orderID string, position int, item CartItem) OrderItem {
	return OrderItem{
		ID:          id,
		OrderID:     orderID,
		ProductID:   item.ProductID,
		ProductName: item.ProductName,
		Quantity:    item.Quantity,
		Discount:    item.Discount,
		Price:       item.UnitPrice,
		Position:    position,
	}
}
