package database

import (
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolStatsCollector(t *testing.T) {
	// pgxpool connects lazily, so an unreachable DSN still yields live stats.
	pool, err := pgxpool.New(t.Context(), "postgres://storefront@127.0.0.1:1/storefront_db?pool_max_conns=4")
	require.NoError(t, err)
	defer pool.Close()

	c := NewPoolStatsCollector(pool, "cart")

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	assert.Equal(t, 9, testutil.CollectAndCount(c))

	expected := `
# HELP db_pool_max_connections Configured pool ceiling.
# TYPE db_pool_max_connections gauge
db_pool_max_connections{service="cart"} 4
# HELP db_pool_acquires_total Successful acquires.
# TYPE db_pool_acquires_total counter
db_pool_acquires_total{service="cart"} 0
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"db_pool_max_connections", "db_pool_acquires_total"))
}
