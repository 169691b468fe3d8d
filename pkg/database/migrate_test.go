package database

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func expectSchemaTable(mock pgxmock.PgxPoolIface, applied ...string) {
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	rows := pgxmock.NewRows([]string{"version"})
	for _, v := range applied {
		rows.AddRow(v)
	}
	mock.ExpectQuery("SELECT version FROM schema_migrations").WillReturnRows(rows)
}

func TestRunMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"002_carts.up.sql":      {Data: []byte("CREATE TABLE carts (id TEXT)")},
		"001_products.up.sql":   {Data: []byte("CREATE TABLE products (id TEXT)")},
		"001_products.down.sql": {Data: []byte("DROP TABLE products")},
		"README.md":             {Data: []byte("ignored")},
	}

	t.Run("skips applied versions", func(t *testing.T) {
		mock, err := NewMockPool()
		require.NoError(t, err)
		defer mock.Close()

		expectSchemaTable(mock, "001_products.up.sql")
		mock.ExpectBeginTx(pgx.TxOptions{})
		mock.ExpectExec("CREATE TABLE carts").WillReturnResult(pgxmock.NewResult("CREATE", 0))
		mock.ExpectExec("INSERT INTO schema_migrations").WithArgs("002_carts.up.sql").
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectCommit()

		require.NoError(t, RunMigrations(t.Context(), mock, fsys, discardLogger()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("applies in lexical order", func(t *testing.T) {
		mock, err := NewMockPool()
		require.NoError(t, err)
		defer mock.Close()

		expectSchemaTable(mock)
		for _, step := range []struct{ stmt, version string }{
			{"CREATE TABLE products", "001_products.up.sql"},
			{"CREATE TABLE carts", "002_carts.up.sql"},
		} {
			mock.ExpectBeginTx(pgx.TxOptions{})
			mock.ExpectExec(step.stmt).WillReturnResult(pgxmock.NewResult("CREATE", 0))
			mock.ExpectExec("INSERT INTO schema_migrations").WithArgs(step.version).
				WillReturnResult(pgxmock.NewResult("INSERT", 1))
			mock.ExpectCommit()
		}

		require.NoError(t, RunMigrations(t.Context(), mock, fsys, discardLogger()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRunMigrations_SQLErrorAborts(t *testing.T) {
	mock, err := NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	fsys := fstest.MapFS{"001_bad.up.sql": {Data: []byte("CREATE TABLE")}}

	expectSchemaTable(mock)
	mock.ExpectBeginTx(pgx.TxOptions{})
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("syntax error at end of input"))
	mock.ExpectRollback()

	err = RunMigrations(t.Context(), mock, fsys, discardLogger())
	require.ErrorContains(t, err, "execute migration 001_bad.up.sql")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_RetriesLostConnection(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for one backoff interval")
	}
	mock, err := NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnError(io.ErrUnexpectedEOF)
	expectSchemaTable(mock)

	require.NoError(t, RunMigrations(t.Context(), mock, fstest.MapFS{}, discardLogger()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_CanceledWhileWaiting(t *testing.T) {
	mock, err := NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	ctx, cancel := context.WithCancel(t.Context())
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnError(io.EOF)
	cancel()

	err = RunMigrations(ctx, mock, fstest.MapFS{}, discardLogger())
	require.ErrorIs(t, err, context.Canceled)
}
