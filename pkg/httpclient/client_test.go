package httpclient

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(retries int) Config {
	return Config{
		Timeout:         2 * time.Second,
		MaxRetries:      retries,
		RetryWaitMin:    time.Millisecond,
		RetryWaitMax:    5 * time.Millisecond,
		MaxConnsPerHost: 4,
	}
}

// statusSequence answers with codes in order, repeating the last one.
func statusSequence(t *testing.T, codes ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1)) - 1
		if n >= len(codes) {
			n = len(codes) - 1
		}
		w.WriteHeader(codes[n])
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func get(t *testing.T, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	return req
}

func TestDo_RetryPolicy(t *testing.T) {
	tests := []struct {
		name      string
		codes     []int
		retries   int
		wantCode  int
		wantCalls int32
	}{
		{"success first try", []int{200}, 2, 200, 1},
		{"recovers after 503", []int{503, 502, 200}, 2, 200, 3},
		{"gives up and returns last reply", []int{500}, 2, 500, 3},
		{"501 is final", []int{501, 200}, 2, 501, 1},
		{"404 is final", []int{404, 200}, 2, 404, 1},
		{"no retries configured", []int{503, 200}, 0, 503, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, calls := statusSequence(t, tt.codes...)
			resp, err := New(fastConfig(tt.retries)).Do(context.Background(), get(t, srv.URL))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantCode, resp.StatusCode)
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestDo_ReplaysBodyOnRetry(t *testing.T) {
	var bodies []string
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(r.Body)
		bodies = append(bodies, buf.String())
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader(`{"email":"a@shop.test"}`))
	require.NoError(t, err)

	resp, err := New(fastConfig(1)).Do(context.Background(), req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, []string{`{"email":"a@shop.test"}`, `{"email":"a@shop.test"}`}, bodies)
}

func TestDo_CanceledContextStopsRetrying(t *testing.T) {
	srv, calls := statusSequence(t, 503)
	cfg := fastConfig(5)
	cfg.RetryWaitMin = time.Second
	cfg.RetryWaitMax = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New(cfg).Do(ctx, get(t, srv.URL))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDo_UnreachableHostWrapsError(t *testing.T) {
	_, err := New(fastConfig(0)).Do(context.Background(), get(t, "http://127.0.0.1:1/users"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GET /users: attempt 1")
}

func TestIsRetryableError(t *testing.T) {
	assert.False(t, isRetryableError(nil))
	assert.False(t, isRetryableError(context.Canceled))
	assert.False(t, isRetryableError(errors.New("boom")))
	assert.True(t, isRetryableError(&net.OpError{Op: "dial", Err: errors.New("refused")}))
}

func TestAddJitter_StaysWithinQuarter(t *testing.T) {
	base := 400 * time.Millisecond
	for range 500 {
		got := addJitter(base)
		assert.GreaterOrEqual(t, got, 300*time.Millisecond)
		assert.LessOrEqual(t, got, 500*time.Millisecond)
	}
	assert.Equal(t, time.Duration(0), addJitter(0))
	assert.Equal(t, time.Duration(1), addJitter(1))
}

func TestBackoff_Capped(t *testing.T) {
	c := New(Config{RetryWaitMin: 100 * time.Millisecond, RetryWaitMax: 300 * time.Millisecond})
	assert.LessOrEqual(t, c.backoff(1), 125*time.Millisecond)
	assert.LessOrEqual(t, c.backoff(10), 375*time.Millisecond)
	assert.GreaterOrEqual(t, c.backoff(10), 225*time.Millisecond)
}
