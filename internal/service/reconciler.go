package service

import (
	"context"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
)

// Reconciler turns a committed cart into consumed inventory and an empty
// cart. It runs inside the order's transaction: the first failing line
// aborts the whole order, so no line is ever reconciled on its own.
type Reconciler struct {
	ledger *Ledger
	carts  *CartService
}

// NewReconciler creates a new reconciler.
func NewReconciler(ledger *Ledger, carts *CartService) *Reconciler {
	return &Reconciler{ledger: ledger, carts: carts}
}

// Reconcile walks the cart's lines in insertion order. For each line it takes
// the ordered quantity from stock, then removes the line from the cart.
func (r *Reconciler) Reconcile(ctx context.Context, repos repository.Repositories, cart *domain.Cart, orderID string) ([]StockChange, error) {
	lines := append([]domain.CartItem(nil), cart.Items...)
	changes := make([]StockChange, 0, len(lines))

	for _, line := range lines {
		change, err := r.ledger.Take(ctx, repos.Products, line.ProductID, line.Quantity, orderID)
		if err != nil {
			return nil, err
		}
		if err := r.carts.removeItem(ctx, repos, cart, line.ProductID); err != nil {
			return nil, err
		}
		changes = append(changes, change)
	}
	return changes, nil
}
