package memory

import (
	"context"
	"sort"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// CartRepository implements repository.CartRepository in memory.
type CartRepository struct {
	v view
}

func (r *CartRepository) Create(_ context.Context, cart *domain.Cart) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.cartByEmail[cart.Email]; ok {
			return apperrors.ErrAlreadyExists
		}
		if _, ok := st.carts[cart.ID]; ok {
			return apperrors.ErrAlreadyExists
		}
		c := *cart
		c.Items = nil
		st.carts[c.ID] = c
		st.cartByEmail[c.Email] = c.ID
		return nil
	})
}

func (r *CartRepository) GetByOwnerEmail(_ context.Context, email string) (*domain.Cart, error) {
	var out *domain.Cart
	err := r.v.do(func(st *state) error {
		id, ok := st.cartByEmail[email]
		if !ok {
			return apperrors.ErrNotFound
		}
		out = st.loadCart(id)
		return nil
	})
	return out, err
}

func (r *CartRepository) GetByID(_ context.Context, id string) (*domain.Cart, error) {
	var out *domain.Cart
	err := r.v.do(func(st *state) error {
		if _, ok := st.carts[id]; !ok {
			return apperrors.ErrNotFound
		}
		out = st.loadCart(id)
		return nil
	})
	return out, err
}

func (st *state) loadCart(id string) *domain.Cart {
	c := st.carts[id]
	c.Items = append([]domain.CartItem{}, st.cartItems[id]...)
	return &c
}

func (r *CartRepository) FindItem(_ context.Context, cartID, productID string) (*domain.CartItem, error) {
	var out *domain.CartItem
	err := r.v.do(func(st *state) error {
		for _, item := range st.cartItems[cartID] {
			if item.ProductID == productID {
				found := item
				out = &found
				return nil
			}
		}
		return apperrors.ErrNotFound
	})
	return out, err
}

func (r *CartRepository) InsertItem(_ context.Context, item *domain.CartItem) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.carts[item.CartID]; !ok {
			return apperrors.ErrNotFound
		}
		for _, existing := range st.cartItems[item.CartID] {
			if existing.ProductID == item.ProductID {
				return apperrors.ErrAlreadyExists
			}
		}
		st.cartItems[item.CartID] = append(st.cartItems[item.CartID], *item)
		return nil
	})
}

func (r *CartRepository) UpdateItem(_ context.Context, item *domain.CartItem) error {
	return r.v.do(func(st *state) error {
		items := st.cartItems[item.CartID]
		for i := range items {
			if items[i].ProductID == item.ProductID {
				items[i].Quantity = item.Quantity
				items[i].UnitPrice = item.UnitPrice
				items[i].Discount = item.Discount
				return nil
			}
		}
		return apperrors.ErrNotFound
	})
}

func (r *CartRepository) DeleteItem(_ context.Context, cartID, productID string) error {
	return r.v.do(func(st *state) error {
		items := st.cartItems[cartID]
		for i := range items {
			if items[i].ProductID == productID {
				st.cartItems[cartID] = append(items[:i:i], items[i+1:]...)
				return nil
			}
		}
		return nil
	})
}

func (r *CartRepository) UpdateTotal(_ context.Context, cartID string, total int64) error {
	return r.v.do(func(st *state) error {
		c, ok := st.carts[cartID]
		if !ok {
			return apperrors.ErrNotFound
		}
		c.TotalPrice = total
		c.UpdatedAt = now()
		st.carts[cartID] = c
		return nil
	})
}

func (r *CartRepository) List(_ context.Context, offset, limit int) ([]domain.Cart, int, error) {
	out := []domain.Cart{}
	var total int
	err := r.v.do(func(st *state) error {
		all := make([]domain.Cart, 0, len(st.carts))
		for id := range st.carts {
			all = append(all, *st.loadCart(id))
		}
		sort.Slice(all, func(i, j int) bool {
			if all[i].CreatedAt.Equal(all[j].CreatedAt) {
				return all[i].ID < all[j].ID
			}
			return all[i].CreatedAt.After(all[j].CreatedAt)
		})
		total = len(all)
		out = append(out, page(all, offset, limit)...)
		return nil
	})
	return out, total, err
}

func (r *CartRepository) ListIDsByProduct(_ context.Context, productID string) ([]string, error) {
	var ids []string
	err := r.v.do(func(st *state) error {
		for cartID, items := range st.cartItems {
			for _, item := range items {
				if item.ProductID == productID {
					ids = append(ids, cartID)
					break
				}
			}
		}
		sort.Strings(ids)
		return nil
	})
	return ids, err
}

func page[T any](all []T, offset, limit int) []T {
	if offset >= len(all) {
		return nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}
