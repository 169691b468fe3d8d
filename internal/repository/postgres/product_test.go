package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func newProductTestRepo(t *testing.T) (*ProductRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return NewProductRepository(mock), mock
}

func TestProductRepository_GetByID_Success(t *testing.T) {
	repo, mock := newProductTestRepo(t)
	defer mock.ExpectationsWereMet()

	now := time.Now().UTC().Truncate(time.Microsecond)
	mock.ExpectQuery("SELECT (.+) FROM products WHERE id = \\$1").
		WithArgs("prod-001").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "price", "special_price", "discount", "quantity", "updated_at"}).
			AddRow("prod-001", "Widget", int64(4000), int64(3500), 12.5, 9, now))

	p, err := repo.GetByID(context.Background(), "prod-001")
	require.NoError(t, err)
	assert.Equal(t, "Widget", p.Name)
	assert.Equal(t, int64(3500), p.SpecialPrice)
	assert.Equal(t, 9, p.Quantity)
}

func TestProductRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newProductTestRepo(t)
	defer mock.ExpectationsWereMet()

	mock.ExpectQuery("FROM products").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProductRepository_Save_Upserts(t *testing.T) {
	repo, mock := newProductTestRepo(t)
	defer mock.ExpectationsWereMet()

	p := &domain.Product{ID: "prod-001", Name: "Widget", Price: 4000, SpecialPrice: 3500, Discount: 12.5, Quantity: 3, UpdatedAt: time.Now().UTC()}
	mock.ExpectExec("INSERT INTO products (.+) ON CONFLICT \\(id\\) DO UPDATE").
		WithArgs(p.ID, p.Name, p.Price, p.SpecialPrice, p.Discount, p.Quantity, p.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.Save(context.Background(), p))
}

func TestProductRepository_Decrement_AllowsNegative(t *testing.T) {
	repo, mock := newProductTestRepo(t)
	defer mock.ExpectationsWereMet()

	mock.ExpectQuery("UPDATE products SET quantity = quantity - \\$2, updated_at = NOW\\(\\) WHERE id = \\$1 RETURNING quantity").
		WithArgs("prod-001", 5).
		WillReturnRows(pgxmock.NewRows([]string{"quantity"}).AddRow(-2))

	remaining, err := repo.Decrement(context.Background(), "prod-001", 5)
	require.NoError(t, err)
	assert.Equal(t, -2, remaining)
}

func TestProductRepository_DecrementIfAvailable(t *testing.T) {
	const conditional = "WHERE id = \\$1 AND quantity >= \\$2 RETURNING quantity"

	t.Run("covered", func(t *testing.T) {
		repo, mock := newProductTestRepo(t)
		defer mock.ExpectationsWereMet()

		mock.ExpectQuery(conditional).
			WithArgs("prod-001", 2).
			WillReturnRows(pgxmock.NewRows([]string{"quantity"}).AddRow(1))

		remaining, ok, err := repo.DecrementIfAvailable(context.Background(), "prod-001", 2)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 1, remaining)
	})

	t.Run("short stock", func(t *testing.T) {
		repo, mock := newProductTestRepo(t)
		defer mock.ExpectationsWereMet()

		mock.ExpectQuery(conditional).
			WithArgs("prod-001", 5).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery("SELECT quantity FROM products").
			WithArgs("prod-001").
			WillReturnRows(pgxmock.NewRows([]string{"quantity"}).AddRow(3))

		remaining, ok, err := repo.DecrementIfAvailable(context.Background(), "prod-001", 5)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 3, remaining)
	})

	t.Run("missing product", func(t *testing.T) {
		repo, mock := newProductTestRepo(t)
		defer mock.ExpectationsWereMet()

		mock.ExpectQuery(conditional).
			WithArgs("ghost", 1).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery("SELECT quantity FROM products").
			WithArgs("ghost").
			WillReturnError(pgx.ErrNoRows)

		_, ok, err := repo.DecrementIfAvailable(context.Background(), "ghost", 1)
		assert.False(t, ok)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestProductRepository_Restock(t *testing.T) {
	repo, mock := newProductTestRepo(t)
	defer mock.ExpectationsWereMet()

	mock.ExpectQuery("SET quantity = quantity \\+ \\$2").
		WithArgs("prod-001", 10).
		WillReturnRows(pgxmock.NewRows([]string{"quantity"}).AddRow(12))

	qty, err := repo.Restock(context.Background(), "prod-001", 10)
	require.NoError(t, err)
	assert.Equal(t, 12, qty)
}

func TestProductRepository_RecordMovement(t *testing.T) {
	repo, mock := newProductTestRepo(t)
	defer mock.ExpectationsWereMet()

	mock.ExpectExec("INSERT INTO stock_movements").
		WithArgs("prod-001", -2, "order", "order-001").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	assert.NoError(t, repo.RecordMovement(context.Background(), "prod-001", -2, "order", "order-001"))
}
