package memory

import (
	"context"
	"sort"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// OrderRepository implements repository.OrderRepository in memory.
type OrderRepository struct {
	v view
}

func (r *OrderRepository) Create(_ context.Context, order *domain.Order) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.orders[order.ID]; ok {
			return apperrors.ErrAlreadyExists
		}
		if _, ok := st.addresses[order.AddressID]; !ok {
			return apperrors.ErrNotFound
		}
		o := *order
		o.Items = nil
		o.Payment = nil
		st.orders[o.ID] = o
		return nil
	})
}

func (r *OrderRepository) CreateItems(_ context.Context, items []domain.OrderItem) error {
	return r.v.do(func(st *state) error {
		for _, item := range items {
			if _, ok := st.orders[item.OrderID]; !ok {
				return apperrors.ErrNotFound
			}
			st.orderItems[item.OrderID] = append(st.orderItems[item.OrderID], item)
		}
		return nil
	})
}

func (r *OrderRepository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	var out *domain.Order
	err := r.v.do(func(st *state) error {
		if _, ok := st.orders[id]; !ok {
			return apperrors.ErrNotFound
		}
		out = st.loadOrder(id)
		return nil
	})
	return out, err
}

func (st *state) loadOrder(id string) *domain.Order {
	o := st.orders[id]
	o.Items = append([]domain.OrderItem{}, st.orderItems[id]...)
	sort.SliceStable(o.Items, func(i, j int) bool { return o.Items[i].Position < o.Items[j].Position })
	if p, ok := st.payments[o.PaymentID]; ok {
		o.Payment = &p
	}
	o.ComputeSavings()
	return &o
}

func (r *OrderRepository) ListByEmail(_ context.Context, email string, offset, limit int) ([]domain.Order, int, error) {
	out := []domain.Order{}
	var total int
	err := r.v.do(func(st *state) error {
		var all []domain.Order
		for id, o := range st.orders {
			if o.Email == email {
				all = append(all, *st.loadOrder(id))
			}
		}
		sort.Slice(all, func(i, j int) bool {
			if all[i].CreatedAt.Equal(all[j].CreatedAt) {
				return all[i].ID > all[j].ID
			}
			return all[i].CreatedAt.After(all[j].CreatedAt)
		})
		total = len(all)
		out = append(out, page(all, offset, limit)...)
		return nil
	})
	return out, total, err
}

func (r *OrderRepository) UpdateStatus(_ context.Context, id, status string) error {
	return r.v.do(func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return apperrors.ErrNotFound
		}
		o.Status = status
		o.UpdatedAt = now()
		st.orders[id] = o
		return nil
	})
}

// PaymentRepository implements repository.PaymentRepository in memory.
type PaymentRepository struct {
	v view
}

func (r *PaymentRepository) Create(_ context.Context, payment *domain.Payment) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.payments[payment.ID]; ok {
			return apperrors.ErrAlreadyExists
		}
		st.payments[payment.ID] = *payment
		return nil
	})
}

// AddressRepository implements repository.AddressRepository in memory.
type AddressRepository struct {
	v view
}

func (r *AddressRepository) GetByID(_ context.Context, id string) (*domain.Address, error) {
	var out *domain.Address
	err := r.v.do(func(st *state) error {
		a, ok := st.addresses[id]
		if !ok {
			return apperrors.ErrNotFound
		}
		out = &a
		return nil
	})
	return out, err
}

func (r *AddressRepository) Create(_ context.Context, address *domain.Address) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.addresses[address.ID]; ok {
			return apperrors.ErrAlreadyExists
		}
		st.addresses[address.ID] = *address
		return nil
	})
}
