package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"golang.org/x/sync/singleflight"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httpclient"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// CircuitOpenFallback replaces the raw breaker error with a 503 AppError.
func CircuitOpenFallback(_ context.Context, err error) (*http.Response, error) {
	return nil, apperrors.ServiceUnavailable("user service is temporarily unavailable", err)
}

type profileResponse struct {
	Data struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"data"`
}

// UserServiceClient looks up user profiles in the user service. Concurrent
// lookups of the same user share one request.
type UserServiceClient struct {
	http    HTTPDoer
	baseURL string
	group   singleflight.Group
	logger  *slog.Logger
}

// NewUserServiceClient creates a client for the user service at baseURL.
func NewUserServiceClient(doer HTTPDoer, baseURL string, logger *slog.Logger) *UserServiceClient {
	return &UserServiceClient{
		http:    doer,
		baseURL: baseURL,
		logger:  logger,
	}
}

// LookupEmail returns the email of userID. An unknown user is Unauthorized.
func (c *UserServiceClient) LookupEmail(ctx context.Context, userID string) (string, error) {
	v, err, shared := c.group.Do(userID, func() (any, error) {
		return c.fetchEmail(ctx, userID)
	})
	if err != nil {
		return "", err
	}
	if shared {
		c.logger.DebugContext(ctx, "shared user lookup", slog.String("user_id", userID))
	}
	return v.(string), nil
}

func (c *UserServiceClient) fetchEmail(ctx context.Context, userID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/users/me", http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create user lookup request: %w", err)
	}
	req.Header.Set(HeaderUserID, userID)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("call user service: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_ = resp.Body.Close()
		return "", apperrors.Unauthorized("unknown user")
	case resp.StatusCode != http.StatusOK:
		return "", httpclient.ParseResponseError(resp, "user-service")
	}
	defer resp.Body.Close()

	var profile profileResponse
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return "", fmt.Errorf("decode user profile: %w", err)
	}
	if profile.Data.Email == "" {
		return "", apperrors.Unauthorized("user has no email")
	}

	c.logger.DebugContext(ctx, "resolved user email", slog.String("user_id", userID))
	return profile.Data.Email, nil
}
