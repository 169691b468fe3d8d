// Package service holds the storefront's business logic: the cart store, the
// inventory ledger, the order factory and the reconciler that ties them
// together at order commit.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// EventPublisher emits domain events after a unit of work commits. Publish
// failures are logged by the caller and never fail the operation.
type EventPublisher interface {
	PublishCartUpdated(ctx context.Context, cart *domain.Cart) error
	PublishOrderPlaced(ctx context.Context, order *domain.Order) error
	PublishOrderStatusChanged(ctx context.Context, order *domain.Order, previous string) error
	PublishStockChanged(ctx context.Context, change StockChange) error
}

// StockChange describes one applied inventory movement.
type StockChange struct {
	ProductID string `json:"product_id"`
	Delta     int    `json:"delta"`
	Remaining int    `json:"remaining"`
	Reason    string `json:"reason"`
	RefID     string `json:"ref_id,omitempty"`
}

// Stock movement reasons.
const (
	ReasonOrder   = "order"
	ReasonManual  = "manual"
	ReasonRestock = "restock"
)

func utcNow() time.Time {
	return time.Now().UTC()
}

func requireUser(user domain.User) error {
	if !user.Valid() {
		return apperrors.Unauthorized("no user logged in")
	}
	return nil
}

func errCartNotFound(email string) error {
	return apperrors.NotFound("cart", email)
}

func errProductNotFound(id string) error {
	return apperrors.NotFound("product", id)
}

func errItemNotInCart(productID string) error {
	return apperrors.NotFound("cart item", productID)
}

func errDuplicateItem(productID string) error {
	return apperrors.Conflict(domain.CodeDuplicateItem,
		fmt.Sprintf("product %s is already in the cart", productID))
}

func errOutOfStock(p *domain.Product) error {
	return apperrors.InvalidState(domain.CodeOutOfStock,
		fmt.Sprintf("product %s is not available", p.Name))
}

func errInsufficientStock(name string, available int) error {
	return apperrors.InvalidState(domain.CodeInsufficientStock,
		fmt.Sprintf("please order %s in a quantity less than or equal to %d", name, available))
}

func errNegativeQuantity() error {
	return apperrors.InvalidState(domain.CodeNegativeQuantity,
		"the resulting quantity cannot be less than zero")
}

func errEmptyCart() error {
	return apperrors.InvalidState(domain.CodeEmptyCart, "cart is empty")
}
