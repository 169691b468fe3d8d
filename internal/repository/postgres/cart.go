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

// CartRepository implements repository.CartRepository using PostgreSQL.
type CartRepository struct {
	db   database.DBTX
	lock bool
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(db database.DBTX) *CartRepository {
	return &CartRepository{db: db}
}

const cartColumns = `id, user_id, email, total_price, created_at, updated_at`

const cartItemColumns = `id, cart_id, product_id, product_name, quantity, unit_price, discount, added_at`

// Create inserts an empty cart. A cart that already exists for the owner is
// reported as apperrors.ErrAlreadyExists without aborting the transaction.
func (r *CartRepository) Create(ctx context.Context, cart *domain.Cart) error {
	query := `
		INSERT INTO carts (` + cartColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email) DO NOTHING`

	tag, err := r.db.Exec(ctx, query,
		cart.ID,
		cart.UserID,
		cart.Email,
		cart.TotalPrice,
		cart.CreatedAt,
		cart.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrAlreadyExists
		}
		return fmt.Errorf("insert cart: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrAlreadyExists
	}
	return nil
}

// GetByOwnerEmail retrieves the user's cart with its items.
func (r *CartRepository) GetByOwnerEmail(ctx context.Context, email string) (*domain.Cart, error) {
	query := `SELECT ` + cartColumns + ` FROM carts WHERE email = $1` + forUpdate(r.lock)
	return r.getOne(ctx, query, email)
}

// GetByID retrieves a cart with its items.
func (r *CartRepository) GetByID(ctx context.Context, id string) (*domain.Cart, error) {
	query := `SELECT ` + cartColumns + ` FROM carts WHERE id = $1` + forUpdate(r.lock)
	return r.getOne(ctx, query, id)
}

func (r *CartRepository) getOne(ctx context.Context, query string, arg string) (*domain.Cart, error) {
	var c domain.Cart
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&c.ID,
		&c.UserID,
		&c.Email,
		&c.TotalPrice,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}

	items, err := r.listItems(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	c.Items = items
	return &c, nil
}

func (r *CartRepository) listItems(ctx context.Context, cartID string) ([]domain.CartItem, error) {
	query := `SELECT ` + cartItemColumns + ` FROM cart_items WHERE cart_id = $1 ORDER BY seq`

	rows, err := r.db.Query(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}
	return items, nil
}

func scanCartItem(row pgx.Row) (*domain.CartItem, error) {
	var item domain.CartItem
	err := row.Scan(
		&item.ID,
		&item.CartID,
		&item.ProductID,
		&item.ProductName,
		&item.Quantity,
		&item.UnitPrice,
		&item.Discount,
		&item.AddedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindItem retrieves the line for productID in the given cart.
func (r *CartRepository) FindItem(ctx context.Context, cartID, productID string) (*domain.CartItem, error) {
	query := `SELECT ` + cartItemColumns + ` FROM cart_items WHERE cart_id = $1 AND product_id = $2`

	item, err := scanCartItem(r.db.QueryRow(ctx, query, cartID, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find cart item: %w", err)
	}
	return item, nil
}

// InsertItem adds a new line to a cart.
func (r *CartRepository) InsertItem(ctx context.Context, item *domain.CartItem) error {
	query := `
		INSERT INTO cart_items (` + cartItemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		item.ID,
		item.CartID,
		item.ProductID,
		item.ProductName,
		item.Quantity,
		item.UnitPrice,
		item.Discount,
		item.AddedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrAlreadyExists
		}
		return fmt.Errorf("insert cart item: %w", err)
	}
	return nil
}

// UpdateItem overwrites the quantity and price snapshot of a line.
func (r *CartRepository) UpdateItem(ctx context.Context, item *domain.CartItem) error {
	query := `
		UPDATE cart_items
		SET quantity = $3, unit_price = $4, discount = $5
		WHERE cart_id = $1 AND product_id = $2`

	tag, err := r.db.Exec(ctx, query,
		item.CartID,
		item.ProductID,
		item.Quantity,
		item.UnitPrice,
		item.Discount,
	)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeleteItem removes the line for productID.
func (r *CartRepository) DeleteItem(ctx context.Context, cartID, productID string) error {
	query := `DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2`

	if _, err := r.db.Exec(ctx, query, cartID, productID); err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	return nil
}

// UpdateTotal stores the running total.
func (r *CartRepository) UpdateTotal(ctx context.Context, cartID string, total int64) error {
	query := `UPDATE carts SET total_price = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, cartID, total)
	if err != nil {
		return fmt.Errorf("update cart total: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// List returns a page of carts, newest first, with their items.
func (r *CartRepository) List(ctx context.Context, offset, limit int) ([]domain.Cart, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM carts`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count carts: %w", err)
	}

	query := `SELECT ` + cartColumns + ` FROM carts ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list carts: %w", err)
	}
	defer rows.Close()

	carts := []domain.Cart{}
	for rows.Next() {
		var c domain.Cart
		if err := rows.Scan(&c.ID, &c.UserID, &c.Email, &c.TotalPrice, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan cart: %w", err)
		}
		c.Items = []domain.CartItem{}
		carts = append(carts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate carts: %w", err)
	}
	rows.Close()

	if len(carts) == 0 {
		return carts, total, nil
	}

	ids := make([]string, len(carts))
	index := make(map[string]int, len(carts))
	for i, c := range carts {
		ids[i] = c.ID
		index[c.ID] = i
	}

	itemRows, err := r.db.Query(ctx,
		`SELECT `+cartItemColumns+` FROM cart_items WHERE cart_id = ANY($1) ORDER BY seq`, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("list cart items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		item, err := scanCartItem(itemRows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan cart item: %w", err)
		}
		i := index[item.CartID]
		carts[i].Items = append(carts[i].Items, *item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate cart items: %w", err)
	}

	return carts, total, nil
}

// ListIDsByProduct returns the ids of the carts holding productID.
func (r *CartRepository) ListIDsByProduct(ctx context.Context, productID string) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT cart_id FROM cart_items WHERE product_id = $1`, productID)
	if err != nil {
		return nil, fmt.Errorf("list carts by product: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan cart id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart ids: %w", err)
	}
	return ids, nil
}
