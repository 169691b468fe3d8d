package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serverConfig struct {
	Port    int           `env:"PORT" envDefault:"8080"`
	Brokers []string      `env:"BROKERS" envDefault:"localhost:9092" envSeparator:","`
	TTL     time.Duration `env:"TTL" envDefault:"24h"`
	Secret  string        `env:"SECRET,required"`
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		opts []Option
		want serverConfig
	}{
		{
			name: "defaults",
			vars: map[string]string{"SECRET": "s"},
			want: serverConfig{Port: 8080, Brokers: []string{"localhost:9092"}, TTL: 24 * time.Hour, Secret: "s"},
		},
		{
			name: "overrides",
			vars: map[string]string{"PORT": "9090", "BROKERS": "k1:9092,k2:9092", "TTL": "15m", "SECRET": "s"},
			want: serverConfig{Port: 9090, Brokers: []string{"k1:9092", "k2:9092"}, TTL: 15 * time.Minute, Secret: "s"},
		},
		{
			name: "prefix",
			vars: map[string]string{"CART_PORT": "7000", "PORT": "1", "CART_SECRET": "s"},
			opts: []Option{WithPrefix("CART_")},
			want: serverConfig{Port: 7000, Brokers: []string{"localhost:9092"}, TTL: 24 * time.Hour, Secret: "s"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got serverConfig
			require.NoError(t, Load(&got, append(tt.opts, WithEnvironment(tt.vars))...))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_ReportsEveryProblem(t *testing.T) {
	var cfg serverConfig
	err := Load(&cfg, WithEnvironment(map[string]string{"PORT": "eighty"}))
	require.Error(t, err)

	var agg env.AggregateError
	require.ErrorAs(t, err, &agg)
	assert.Len(t, agg.Errors, 2)
	assert.Contains(t, err.Error(), "SECRET")
	assert.Contains(t, err.Error(), `"Port"`)
}

func TestLoad_ReadsProcessEnvironment(t *testing.T) {
	t.Setenv("PORT", "8443")
	t.Setenv("SECRET", "from-env")

	var cfg serverConfig
	require.NoError(t, Load(&cfg))
	assert.Equal(t, 8443, cfg.Port)
	assert.Equal(t, "from-env", cfg.Secret)
}

func TestLoad_RejectsNonPointer(t *testing.T) {
	assert.Error(t, Load(serverConfig{}))
}
