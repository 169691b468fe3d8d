// Package memory provides an in-process implementation of the repository
// interfaces. Transactions work on a deep copy of the data that replaces the
// live copy on commit, so a failed unit of work leaves no trace.
package memory

import (
	"context"
	"sync"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
)

// StockMovement is an audit record of a stock change.
type StockMovement struct {
	ProductID string
	Delta     int
	Reason    string
	RefID     string
}

type state struct {
	products    map[string]domain.Product
	carts       map[string]domain.Cart // items live in cartItems
	cartByEmail map[string]string
	cartItems   map[string][]domain.CartItem
	orders      map[string]domain.Order // items and payment live in their own maps
	orderItems  map[string][]domain.OrderItem
	payments    map[string]domain.Payment
	addresses   map[string]domain.Address
	movements   []StockMovement
}

func newState() *state {
	return &state{
		products:    make(map[string]domain.Product),
		carts:       make(map[string]domain.Cart),
		cartByEmail: make(map[string]string),
		cartItems:   make(map[string][]domain.CartItem),
		orders:      make(map[string]domain.Order),
		orderItems:  make(map[string][]domain.OrderItem),
		payments:    make(map[string]domain.Payment),
		addresses:   make(map[string]domain.Address),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = v
	}
	for k, v := range s.cartByEmail {
		c.cartByEmail[k] = v
	}
	for k, v := range s.cartItems {
		c.cartItems[k] = append([]domain.CartItem(nil), v...)
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.orderItems {
		c.orderItems[k] = append([]domain.OrderItem(nil), v...)
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	for k, v := range s.addresses {
		c.addresses[k] = v
	}
	c.movements = append([]StockMovement(nil), s.movements...)
	return c
}

// Store implements repository.Store in memory. All access is serialized by
// a single mutex; a transaction holds it for its whole duration.
type Store struct {
	mu   sync.Mutex
	data *state
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{data: newState()}
}

// Repos returns repositories that lock the store per call.
func (s *Store) Repos() repository.Repositories {
	return newRepositories(view{store: s})
}

// WithinTx runs fn against a private copy of the data and publishes the copy
// only when fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.data.clone()
	if err := fn(ctx, newRepositories(view{tx: work})); err != nil {
		return err
	}
	s.data = work
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

// StockMovements returns the recorded movements for productID in order.
func (s *Store) StockMovements(productID string) []StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []StockMovement
	for _, m := range s.data.movements {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out
}

// view routes repository calls either to a transaction's working copy or to
// the live data under the store lock.
type view struct {
	store *Store
	tx    *state
}

func (v view) do(fn func(st *state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.data)
}

func newRepositories(v view) repository.Repositories {
	return repository.Repositories{
		Carts:     &CartRepository{v: v},
		Products:  &ProductRepository{v: v},
		Orders:    &OrderRepository{v: v},
		Payments:  &PaymentRepository{v: v},
		Addresses: &AddressRepository{v: v},
	}
}
