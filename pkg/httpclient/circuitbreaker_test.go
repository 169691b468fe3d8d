package httpclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// tripAfterTwo opens after two failed calls and half-opens after 50ms.
func tripAfterTwo(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		MaxRequests:  1,
		Timeout:      50 * time.Millisecond,
		FailureRatio: 1,
		MinRequests:  2,
	}
}

func newBreaker(t *testing.T, name string, status *atomic.Int32) (*CircuitBreakerClient, *atomic.Int32, string) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(int(status.Load()))
		_, _ = w.Write([]byte(`{"id":"u-1"}`))
	}))
	t.Cleanup(srv.Close)
	cb := NewCircuitBreakerClient(New(fastConfig(0)), tripAfterTwo(name), quietLogger())
	return cb, &hits, srv.URL
}

func call(t *testing.T, cb *CircuitBreakerClient, url string) (*http.Response, error) {
	t.Helper()
	resp, err := cb.Do(context.Background(), get(t, url))
	if resp != nil {
		t.Cleanup(func() { resp.Body.Close() })
	}
	return resp, err
}

func TestCircuitBreaker_OpensOnServerErrorsAndRecovers(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusInternalServerError)
	cb, hits, url := newBreaker(t, "users-recover", &status)

	for range 2 {
		_, err := call(t, cb, url)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server error 500")
	}
	assert.Equal(t, gobreaker.StateOpen, cb.State())

	_, err := call(t, cb, url)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, int32(2), hits.Load(), "open breaker must not reach the server")

	status.Store(http.StatusOK)
	time.Sleep(70 * time.Millisecond)

	resp, err := call(t, cb, url)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_ClientErrorsKeepItClosed(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusNotFound)
	cb, _, url := newBreaker(t, "users-404", &status)

	for range 5 {
		resp, err := call(t, cb, url)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_CallerCancellationIsNotAFailure(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusOK)
	cb, _, url := newBreaker(t, "users-cancel", &status)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for range 3 {
		_, err := cb.Do(ctx, get(t, url))
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())
}

func TestCircuitBreaker_Fallback(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusServiceUnavailable)
	base, _, url := newBreaker(t, "users-fallback", &status)

	var seen error
	cb := base.WithFallback(func(ctx context.Context, err error) (*http.Response, error) {
		seen = err
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("cached"))}, nil
	})

	for range 2 {
		_, err := call(t, cb, url)
		require.Error(t, err, "fallback only answers for an open breaker")
	}

	resp, err := call(t, cb, url)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "cached", string(body))
	assert.True(t, errors.Is(seen, ErrCircuitOpen))

	_, err = call(t, base, url)
	assert.ErrorIs(t, err, ErrCircuitOpen, "WithFallback must not change the original client")
}

func TestDefaultCircuitBreakerConfig(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("user-service")
	assert.Equal(t, "user-service", cfg.Name)
	assert.Equal(t, uint32(5), cfg.MinRequests)
	assert.InDelta(t, 0.5, cfg.FailureRatio, 1e-9)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}
