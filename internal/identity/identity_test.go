package identity

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/middleware"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type mockEmailLookup struct {
	mock.Mock
}

func (m *mockEmailLookup) LookupEmail(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

const testSecret = "test-secret"

func signToken(t *testing.T, claims tokenClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

// ============================================================
// Resolver
// ============================================================

func TestResolve_FromHeaders(t *testing.T) {
	r := NewResolver(nil, nil, newTestLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(HeaderUserID, "user-1")
	req.Header.Set(HeaderUserEmail, "ada@example.com")
	req.Header.Set(HeaderUserRole, RoleAdmin)

	claims, err := r.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, &middleware.Claims{UserID: "user-1", Email: "ada@example.com", Role: RoleAdmin}, claims)
}

func TestResolve_MissingUser(t *testing.T) {
	r := NewResolver(nil, nil, newTestLogger())

	_, err := r.Resolve(httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Equal(t, "UNAUTHORIZED", apperrors.CodeOf(err))
}

func TestResolve_LooksUpMissingEmail(t *testing.T) {
	users := new(mockEmailLookup)
	users.On("LookupEmail", mock.Anything, "user-1").Return("ada@example.com", nil)
	r := NewResolver(users, nil, newTestLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(HeaderUserID, "user-1")

	claims, err := r.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", claims.Email)
	users.AssertExpectations(t)
}

func TestResolve_LookupErrorPropagates(t *testing.T) {
	users := new(mockEmailLookup)
	users.On("LookupEmail", mock.Anything, "user-1").Return("", apperrors.ServiceUnavailable("down", nil))
	r := NewResolver(users, nil, newTestLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(HeaderUserID, "user-1")

	_, err := r.Resolve(req)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
}

func TestResolve_NoLookupAndNoEmail(t *testing.T) {
	r := NewResolver(nil, nil, newTestLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(HeaderUserID, "user-1")

	_, err := r.Resolve(req)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestResolve_BearerToken(t *testing.T) {
	r := NewResolver(nil, NewJWTValidator(testSecret), newTestLogger())

	token := signToken(t, tokenClaims{
		Email: "ada@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-9",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(HeaderUserID, "spoofed")

	claims, err := r.Resolve(req)
	require.NoError(t, err)
	assert.Equal(t, "user-9", claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
}

func TestResolve_BearerTokenRejected(t *testing.T) {
	tests := []struct {
		name   string
		tokens TokenValidator
		token  func(t *testing.T) string
	}{
		{"no validator", nil, func(t *testing.T) string { return "abc" }},
		{"bad signature", NewJWTValidator("other"), func(t *testing.T) string {
			return signToken(t, tokenClaims{UserID: "user-1"})
		}},
		{"expired", NewJWTValidator(testSecret), func(t *testing.T) string {
			return signToken(t, tokenClaims{UserID: "user-1", RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			}})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(nil, tt.tokens, newTestLogger())
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token(t))

			_, err := r.Resolve(req)
			assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		})
	}
}

func TestUserFromContext(t *testing.T) {
	assert.False(t, UserFromContext(context.Background()).Valid())

	ctx := middleware.WithClaims(context.Background(), &middleware.Claims{UserID: "u", Email: "e@x.io"})
	user := UserFromContext(ctx)
	assert.Equal(t, "u", user.ID)
	assert.Equal(t, "e@x.io", user.Email)
}

// ============================================================
// UserServiceClient
// ============================================================

func newHTTPClient() *httpclient.Client {
	return httpclient.New(httpclient.Config{Timeout: 5 * time.Second, MaxRetries: 0, MaxConnsPerHost: 10})
}

func TestLookupEmail_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/users/me", r.URL.Path)
		assert.Equal(t, "user-1", r.Header.Get(HeaderUserID))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"id":"user-1","email":"ada@example.com"}}`))
	}))
	defer server.Close()

	client := NewUserServiceClient(newHTTPClient(), server.URL, newTestLogger())

	email, err := client.LookupEmail(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", email)
}

func TestLookupEmail_UnknownUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewUserServiceClient(newHTTPClient(), server.URL, newTestLogger())

	_, err := client.LookupEmail(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestLookupEmail_DownstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":"FORBIDDEN","message":"account locked"}}`))
	}))
	defer server.Close()

	client := NewUserServiceClient(newHTTPClient(), server.URL, newTestLogger())

	_, err := client.LookupEmail(context.Background(), "user-1")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestLookupEmail_CollapsesConcurrentCalls(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		_, _ = w.Write([]byte(`{"data":{"id":"user-1","email":"ada@example.com"}}`))
	}))
	defer server.Close()

	client := NewUserServiceClient(newHTTPClient(), server.URL, newTestLogger())

	const callers = 8
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			email, err := client.LookupEmail(context.Background(), "user-1")
			assert.NoError(t, err)
			results[i] = email
		}()
	}

	// Give every caller time to join the in-flight lookup.
	assert.Eventually(t, func() bool { return hits.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())
	for _, email := range results {
		assert.Equal(t, "ada@example.com", email)
	}
}

func TestLookupEmail_CircuitOpenFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cb := httpclient.NewCircuitBreakerClient(newHTTPClient(), httpclient.CircuitBreakerConfig{
		Name:         "identity-test",
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		FailureRatio: 0.5,
		MinRequests:  2,
	}, newTestLogger()).WithFallback(CircuitOpenFallback)

	client := NewUserServiceClient(cb, server.URL, newTestLogger())

	for range 2 {
		_, err := client.LookupEmail(context.Background(), "user-1")
		require.Error(t, err)
	}

	_, err := client.LookupEmail(context.Background(), "user-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrServiceUnavail), "got %v", err)
	assert.Equal(t, "SERVICE_UNAVAILABLE", apperrors.CodeOf(err))
}
