package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	db   database.DBTX
	lock bool
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(db database.DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// orderSelect loads an order, its payment and its lines in one round trip.
// Lines are aggregated in a correlated subquery so the outer row stays lockable.
const orderSelect = `
	SELECT
		o.id, o.user_id, o.email, o.order_date, o.total_amount, o.status,
		o.address_id, o.shipping_address, o.payment_id, o.created_at, o.updated_at,
		p.id, p.order_id, p.method, p.gateway_name, p.gateway_payment_id,
		p.gateway_status, p.gateway_response_message, p.created_at,
		COALESCE((
			SELECT JSONB_AGG(
				JSONB_BUILD_OBJECT(
					'id', oi.id,
					'order_id', oi.order_id,
					'product_id', oi.product_id,
					'product_name', oi.product_name,
					'quantity', oi.quantity,
					'discount', oi.discount,
					'price', oi.price,
					'position', oi.position
				) ORDER BY oi.position
			)
			FROM order_items oi
			WHERE oi.order_id = o.id
		), '[]'::jsonb) AS items
	FROM orders o
	JOIN payments p ON p.id = o.payment_id`

// Create inserts the order row. The shipping address is stored as a JSONB snapshot.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) (err error) {
	shippingJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}

	query := `
		INSERT INTO orders (id, user_id, email, order_date, total_amount, status, address_id, shipping_address, payment_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	ctx, end := database.TraceQuery(ctx, "CreateOrder", query)
	defer func() { end(err) }()

	_, err = r.db.Exec(ctx, query,
		o.ID,
		o.UserID,
		o.Email,
		o.OrderDate,
		o.TotalAmount,
		o.Status,
		o.AddressID,
		shippingJSON,
		o.PaymentID,
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrAlreadyExists
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// CreateItems inserts all lines with a single multi-row INSERT.
func (r *OrderRepository) CreateItems(ctx context.Context, items []domain.OrderItem) (err error) {
	if len(items) == 0 {
		return nil
	}

	const cols = 8
	var sb strings.Builder
	sb.WriteString(`INSERT INTO order_items (id, order_id, product_id, product_name, quantity, discount, price, position) VALUES `)
	args := make([]any, 0, len(items)*cols)
	for i, item := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * cols
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8)
		args = append(args,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.ProductName,
			item.Quantity,
			item.Discount,
			item.Price,
			item.Position,
		)
	}
	query := sb.String()

	ctx, end := database.TraceQuery(ctx, "CreateOrderItems", query)
	defer func() { end(err) }()

	if _, err = r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}
	return nil
}

// GetByID retrieves an order with its payment and lines.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := orderSelect + ` WHERE o.id = $1`
	if r.lock {
		query += ` FOR UPDATE OF o`
	}

	o, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// ListByEmail returns a page of the user's orders, newest first.
func (r *OrderRepository) ListByEmail(ctx context.Context, email string, offset, limit int) ([]domain.Order, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE email = $1`, email).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	query := orderSelect + ` WHERE o.email = $1 ORDER BY o.created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, email, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate orders: %w", err)
	}
	return orders, total, nil
}

// UpdateStatus changes the status of an order.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id, status string) error {
	query := `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o            domain.Order
		p            domain.Payment
		shippingJSON []byte
		itemsJSON    []byte
	)
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.Email,
		&o.OrderDate,
		&o.TotalAmount,
		&o.Status,
		&o.AddressID,
		&shippingJSON,
		&o.PaymentID,
		&o.CreatedAt,
		&o.UpdatedAt,
		&p.ID,
		&p.OrderID,
		&p.Method,
		&p.GatewayName,
		&p.GatewayPaymentID,
		&p.GatewayStatus,
		&p.GatewayResponseMessage,
		&p.CreatedAt,
		&itemsJSON,
	)
	if err != nil {
		return nil, err
	}
	o.Payment = &p

	if len(shippingJSON) > 0 && string(shippingJSON) != "null" {
		if err := json.Unmarshal(shippingJSON, &o.ShippingAddress); err != nil {
			return nil, fmt.Errorf("unmarshal shipping address: %w", err)
		}
	}

	o.Items = []domain.OrderItem{}
	if len(itemsJSON) > 0 && string(itemsJSON) != "null" {
		if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
			return nil, fmt.Errorf("unmarshal order items: %w", err)
		}
	}
	o.ComputeSavings()
	return &o, nil
}
