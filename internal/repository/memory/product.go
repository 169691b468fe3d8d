package memory

import (
	"context"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

var now = func() time.Time { return time.Now().UTC() }

// ProductRepository implements repository.ProductRepository in memory.
type ProductRepository struct {
	v view
}

func (r *ProductRepository) GetByID(_ context.Context, id string) (*domain.Product, error) {
	var out *domain.Product
	err := r.v.do(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return apperrors.ErrNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *ProductRepository) Save(_ context.Context, product *domain.Product) error {
	return r.v.do(func(st *state) error {
		st.products[product.ID] = *product
		return nil
	})
}

func (r *ProductRepository) Decrement(_ context.Context, id string, qty int) (int, error) {
	var remaining int
	err := r.v.do(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return apperrors.ErrNotFound
		}
		p.Quantity -= qty
		p.UpdatedAt = now()
		st.products[id] = p
		remaining = p.Quantity
		return nil
	})
	return remaining, err
}

func (r *ProductRepository) DecrementIfAvailable(_ context.Context, id string, qty int) (int, bool, error) {
	var (
		remaining int
		applied   bool
	)
	err := r.v.do(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return apperrors.ErrNotFound
		}
		if p.Quantity < qty {
			remaining = p.Quantity
			return nil
		}
		p.Quantity -= qty
		p.UpdatedAt = now()
		st.products[id] = p
		remaining, applied = p.Quantity, true
		return nil
	})
	return remaining, applied, err
}

func (r *ProductRepository) Restock(_ context.Context, id string, qty int) (int, error) {
	var remaining int
	err := r.v.do(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return apperrors.ErrNotFound
		}
		p.Quantity += qty
		p.UpdatedAt = now()
		st.products[id] = p
		remaining = p.Quantity
		return nil
	})
	return remaining, err
}

func (r *ProductRepository) RecordMovement(_ context.Context, productID string, delta int, reason, refID string) error {
	return r.v.do(func(st *state) error {
		st.movements = append(st.movements, StockMovement{
			ProductID: productID,
			Delta:     delta,
			Reason:    reason,
			RefID:     refID,
		})
		return nil
	})
}
