package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/pkg/database"
)

// Store implements repository.Store on a pgx pool.
type Store struct {
	pool database.Pool
}

// NewStore creates a new PostgreSQL-backed store.
func NewStore(pool database.Pool) *Store {
	return &Store{pool: pool}
}

// Repos returns repositories that run directly on the pool without row locks.
func (s *Store) Repos() repository.Repositories {
	return newRepositories(s.pool, false)
}

// WithinTx runs fn inside a READ COMMITTED transaction. Repositories handed
// to fn take row locks (SELECT ... FOR UPDATE) on the carts and products
// they read, so concurrent writers to the same cart or product serialize.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	return database.WithTx(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, newRepositories(tx, true))
	})
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func newRepositories(db database.DBTX, lock bool) repository.Repositories {
	return repository.Repositories{
		Carts:     &CartRepository{db: db, lock: lock},
		Products:  &ProductRepository{db: db, lock: lock},
		Orders:    &OrderRepository{db: db, lock: lock},
		Payments:  &PaymentRepository{db: db},
		Addresses: &AddressRepository{db: db},
	}
}

// forUpdate returns the row-lock suffix for reads made inside a transaction.
func forUpdate(lock bool) string {
	if lock {
		return " FOR UPDATE"
	}
	return ""
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
