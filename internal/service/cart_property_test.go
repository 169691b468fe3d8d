package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/utafrali/storefront/internal/domain"
)

// The cached cart total must equal the sum of the line totals after any
// sequence of mutations, failed ones included.
func TestCartTotal_MatchesLineSum(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(t)
		ctx := context.Background()

		productIDs := make([]string, 4)
		for i := range productIDs {
			productIDs[i] = fmt.Sprintf("prod-%d", i)
			f.seedProduct(t, productIDs[i], rapid.Int64Range(1, 10_000).Draw(rt, "price"), rapid.IntRange(0, 20).Draw(rt, "stock"))
		}

		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			productID := rapid.SampledFrom(productIDs).Draw(rt, "product")

			switch rapid.IntRange(0, 4).Draw(rt, "op") {
			case 0:
				qty := rapid.IntRange(1, 25).Draw(rt, "qty")
				_, _ = f.carts.AddItem(ctx, alice, AddItemInput{ProductID: productID, Quantity: qty})
			case 1:
				delta := rapid.IntRange(-25, 25).Draw(rt, "delta")
				_, _ = f.carts.UpdateItemQuantity(ctx, alice, productID, delta)
			case 2:
				if cart, err := f.carts.GetCart(ctx, alice); err == nil {
					_, _ = f.carts.RemoveItem(ctx, cart.ID, productID)
				}
			case 3:
				f.setPrice(t, productID, rapid.Int64Range(1, 10_000).Draw(rt, "new_price"), 0)
			case 4:
				if cart, err := f.carts.GetCart(ctx, alice); err == nil {
					_, _ = f.carts.RepriceItem(ctx, cart.ID, productID)
				}
			}

			cart, err := f.carts.GetCart(ctx, alice)
			if err != nil {
				continue
			}
			if cart.TotalPrice != cart.RecomputedTotal() {
				rt.Fatalf("total %d != line sum %d after step %d", cart.TotalPrice, cart.RecomputedTotal(), i)
			}
			assertNoZeroLines(rt, cart)
		}
	})
}

func assertNoZeroLines(rt *rapid.T, cart *domain.Cart) {
	for _, item := range cart.Items {
		if item.Quantity <= 0 {
			rt.Fatalf("line %s has quantity %d", item.ProductID, item.Quantity)
		}
	}
}

// Ordering a random cart empties it and takes exactly the ordered quantities
// from stock.
func TestPlaceOrder_ConsumesExactlyTheCart(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(t)
		ctx := context.Background()
		address := f.seedAddress(t, alice)

		n := rapid.IntRange(1, 5).Draw(rt, "lines")
		want := make(map[string]int, n)
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("prod-%d", i)
			stock := rapid.IntRange(1, 30).Draw(rt, "stock")
			qty := rapid.IntRange(1, stock).Draw(rt, "qty")
			f.seedProduct(t, id, rapid.Int64Range(1, 5_000).Draw(rt, "price"), stock)
			f.add(t, alice, id, qty)
			want[id] = stock - qty
		}

		cart, err := f.carts.GetCart(ctx, alice)
		require.NoError(t, err)

		order, err := f.orders.PlaceOrder(ctx, alice, PlaceOrderInput{AddressID: address.ID, PaymentMethod: domain.PaymentMethodCreditCard})
		require.NoError(t, err)
		if order.TotalAmount != cart.TotalPrice {
			rt.Fatalf("order total %d != cart total %d", order.TotalAmount, cart.TotalPrice)
		}

		for id, remaining := range want {
			if got := f.stock(t, id); got != remaining {
				rt.Fatalf("stock of %s = %d, want %d", id, got, remaining)
			}
		}
		after, err := f.carts.GetCart(ctx, alice)
		require.NoError(t, err)
		if !after.IsEmpty() || after.TotalPrice != 0 {
			rt.Fatalf("cart not emptied: %d items, total %d", len(after.Items), after.TotalPrice)
		}
	})
}
