package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	db   database.DBTX
	lock bool
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (p *domain.Product, err error) {
	query := `
		SELECT id, name, price, special_price, discount, quantity, updated_at
		FROM products
		WHERE id = $1` + forUpdate(r.lock)

	ctx, end := database.TraceQuery(ctx, "GetProduct", query)
	defer func() { end(err) }()

	var product domain.Product
	err = r.db.QueryRow(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.Price,
		&product.SpecialPrice,
		&product.Discount,
		&product.Quantity,
		&product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &product, nil
}

// Save inserts a product or updates its name, pricing and quantity.
func (r *ProductRepository) Save(ctx context.Context, p *domain.Product) error {
	query := `
		INSERT INTO products (id, name, price, special_price, discount, quantity, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			special_price = EXCLUDED.special_price,
			discount = EXCLUDED.discount,
			quantity = EXCLUDED.quantity,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Price,
		p.SpecialPrice,
		p.Discount,
		p.Quantity,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save product: %w", err)
	}
	return nil
}

// Decrement subtracts qty with no stock check and returns the new quantity.
func (r *ProductRepository) Decrement(ctx context.Context, id string, qty int) (remaining int, err error) {
	query := `
		UPDATE products
		SET quantity = quantity - $2, updated_at = NOW()
		WHERE id = $1
		RETURNING quantity`

	ctx, end := database.TraceQuery(ctx, "DecrementStock", query)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, query, id, qty).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrNotFound
		}
		return 0, fmt.Errorf("decrement stock: %w", err)
	}
	return remaining, nil
}

// DecrementIfAvailable subtracts qty in a single conditional statement so the
// stock check and the write cannot interleave with another writer. When the
// update matches no row it tells a missing product apart from short stock.
func (r *ProductRepository) DecrementIfAvailable(ctx context.Context, id string, qty int) (remaining int, ok bool, err error) {
	query := `
		UPDATE products
		SET quantity = quantity - $2, updated_at = NOW()
		WHERE id = $1 AND quantity >= $2
		RETURNING quantity`

	ctx, end := database.TraceQuery(ctx, "DecrementStockIfAvailable", query)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, query, id, qty).Scan(&remaining)
	if err == nil {
		return remaining, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, fmt.Errorf("decrement stock: %w", err)
	}

	var current int
	err = r.db.QueryRow(ctx, `SELECT quantity FROM products WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, apperrors.ErrNotFound
		}
		return 0, false, fmt.Errorf("read stock: %w", err)
	}
	return current, false, nil
}

// Restock adds qty units and returns the new quantity.
func (r *ProductRepository) Restock(ctx context.Context, id string, qty int) (int, error) {
	query := `
		UPDATE products
		SET quantity = quantity + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING quantity`

	var remaining int
	if err := r.db.QueryRow(ctx, query, id, qty).Scan(&remaining); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrNotFound
		}
		return 0, fmt.Errorf("restock: %w", err)
	}
	return remaining, nil
}

// RecordMovement appends a stock_movements row.
func (r *ProductRepository) RecordMovement(ctx context.Context, productID string, delta int, reason, refID string) error {
	query := `
		INSERT INTO stock_movements (product_id, delta, reason, ref_id)
		VALUES ($1, $2, $3, NULLIF($4, ''))`

	if _, err := r.db.Exec(ctx, query, productID, delta, reason, refID); err != nil {
		return fmt.Errorf("record stock movement: %w", err)
	}
	return nil
}
