package repository

import (
	"context"

	"github.com/utafrali/storefront/internal/domain"
)

// CartRepository defines the interface for cart persistence operations.
//
// Implementations bound to a transaction lock the cart row on every read so
// that concurrent mutations of the same cart serialize.
type CartRepository interface {
	// Create inserts an empty cart.
	Create(ctx context.Context, cart *domain.Cart) error

	// GetByOwnerEmail retrieves the user's cart with its items in insertion order.
	GetByOwnerEmail(ctx context.Context, email string) (*domain.Cart, error)

	// GetByID retrieves a cart with its items in insertion order.
	GetByID(ctx context.Context, id string) (*domain.Cart, error)

	// FindItem retrieves the line for productID in the given cart.
	FindItem(ctx context.Context, cartID, productID string) (*domain.CartItem, error)

	// InsertItem adds a new line. A second line for the same product fails
	// with apperrors.ErrAlreadyExists.
	InsertItem(ctx context.Context, item *domain.CartItem) error

	// UpdateItem overwrites quantity and price snapshot of an existing line.
	UpdateItem(ctx context.Context, item *domain.CartItem) error

	// DeleteItem removes the line for productID. Deleting a missing line is not an error.
	DeleteItem(ctx context.Context, cartID, productID string) error

	// UpdateTotal stores the cart's running total.
	UpdateTotal(ctx context.Context, cartID string, total int64) error

	// List returns a page of carts with their items, plus the total count.
	List(ctx context.Context, offset, limit int) ([]domain.Cart, int, error)

	// ListIDsByProduct returns the ids of all carts holding productID.
	ListIDsByProduct(ctx context.Context, productID string) ([]string, error)
}

// ProductRepository defines the interface for product and inventory persistence.
type ProductRepository interface {
	// GetByID retrieves a product. Transaction-bound implementations lock the row.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// Save inserts or updates a product.
	Save(ctx context.Context, product *domain.Product) error

	// Decrement subtracts qty from the product's stock unconditionally and
	// returns the remaining quantity, which may be negative.
	Decrement(ctx context.Context, id string, qty int) (int, error)

	// DecrementIfAvailable subtracts qty only when at least qty units are in
	// stock. ok is false when the stock did not cover qty.
	DecrementIfAvailable(ctx context.Context, id string, qty int) (remaining int, ok bool, err error)

	// Restock adds qty units and returns the new quantity.
	Restock(ctx context.Context, id string, qty int) (int, error)

	// RecordMovement appends an audit row for a stock change.
	RecordMovement(ctx context.Context, productID string, delta int, reason, refID string) error
}

// OrderRepository defines the interface for order persistence operations.
type OrderRepository interface {
	// Create inserts the order row.
	Create(ctx context.Context, order *domain.Order) error

	// CreateItems inserts all order lines as one batch.
	CreateItems(ctx context.Context, items []domain.OrderItem) error

	// GetByID retrieves an order with its items and payment.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// ListByEmail returns a page of the user's orders, newest first, plus the total count.
	ListByEmail(ctx context.Context, email string, offset, limit int) ([]domain.Order, int, error)

	// UpdateStatus changes the status of an order.
	UpdateStatus(ctx context.Context, id, status string) error
}

// PaymentRepository defines the interface for payment persistence.
type PaymentRepository interface {
	// Create inserts a payment. The referenced order may be inserted later in
	// the same transaction.
	Create(ctx context.Context, payment *domain.Payment) error
}

// AddressRepository defines the interface for address lookups.
type AddressRepository interface {
	// GetByID retrieves an address regardless of owner.
	GetByID(ctx context.Context, id string) (*domain.Address, error)

	// Create inserts a new address.
	Create(ctx context.Context, address *domain.Address) error
}

// Repositories groups the repositories that share one unit of work.
type Repositories struct {
	Carts     CartRepository
	Products  ProductRepository
	Orders    OrderRepository
	Payments  PaymentRepository
	Addresses AddressRepository
}

// Store hands out repositories, either standalone or bound to a transaction.
type Store interface {
	// Repos returns repositories that run each statement on its own.
	Repos() Repositories

	// WithinTx runs fn with repositories bound to one transaction. The
	// transaction commits if fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error

	// Ping checks the backing store.
	Ping(ctx context.Context) error
}

// IdempotencyStore tracks client supplied idempotency keys for order placement.
type IdempotencyStore interface {
	// Acquire claims key. When the key was already claimed, acquired is false
	// and orderID holds the order recorded for it ("" while still in flight).
	Acquire(ctx context.Context, key string) (orderID string, acquired bool, err error)

	// Complete records the order placed under key.
	Complete(ctx context.Context, key, orderID string) error

	// Release frees key after a failed attempt so the client can retry.
	Release(ctx context.Context, key string) error
}
