package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Savings returns how many cents a discounted line saves against the list
// price. unitPrice is the already discounted price and discountPct the
// percentage that produced it, so list = unitPrice / (1 - pct/100).
func Savings(unitPrice int64, discountPct float64, qty int) int64 {
	if discountPct <= 0 || discountPct >= 100 || qty <= 0 {
		return 0
	}
	pct := decimal.NewFromFloat(discountPct)
	unit := decimal.NewFromInt(unitPrice)
	list := unit.Mul(hundred).Div(hundred.Sub(pct)).Round(0)
	return list.Sub(unit).Mul(decimal.NewFromInt(int64(qty))).IntPart()
}

// ComputeSavings fills SavingsAmount from the order lines.
func (o *Order) ComputeSavings() {
	var total int64
	for _, item := range o.Items {
		total += Savings(item.Price, item.Discount, item.Quantity)
	}
	o.SavingsAmount = total
}
