// Package identity resolves the calling user of an HTTP request.
//
// The gateway forwards the authenticated user as X-User-ID (and, when it
// knows it, X-User-Email and X-User-Role). Direct callers may instead
// present a bearer token. A missing email is looked up in the user service.
package identity

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/middleware"
)

// Headers set by the gateway.
const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
	HeaderUserRole  = "X-User-Role"
)

// RoleAdmin grants access to the administrative endpoints.
const RoleAdmin = "admin"

// EmailLookup resolves the email of a user id.
type EmailLookup interface {
	LookupEmail(ctx context.Context, userID string) (string, error)
}

// TokenValidator turns a bearer token into claims.
type TokenValidator interface {
	Validate(token string) (*middleware.Claims, error)
}

// Resolver builds request claims from gateway headers or a bearer token.
type Resolver struct {
	users  EmailLookup
	tokens TokenValidator
	logger *slog.Logger
}

// NewResolver creates a Resolver. users and tokens may be nil, in which case
// requests must carry the email header and bearer tokens are rejected.
func NewResolver(users EmailLookup, tokens TokenValidator, logger *slog.Logger) *Resolver {
	return &Resolver{users: users, tokens: tokens, logger: logger}
}

// Resolve implements middleware.ClaimsResolver.
func (r *Resolver) Resolve(req *http.Request) (*middleware.Claims, error) {
	claims := &middleware.Claims{
		UserID: strings.TrimSpace(req.Header.Get(HeaderUserID)),
		Email:  strings.TrimSpace(req.Header.Get(HeaderUserEmail)),
		Role:   strings.TrimSpace(req.Header.Get(HeaderUserRole)),
	}

	if token, ok := bearerToken(req); ok {
		if r.tokens == nil {
			return nil, apperrors.Unauthorized("bearer tokens are not accepted")
		}
		validated, err := r.tokens.Validate(token)
		if err != nil {
			r.logger.WarnContext(req.Context(), "invalid bearer token", slog.String("error", err.Error()))
			return nil, apperrors.Unauthorized("invalid or expired token")
		}
		claims = validated
	}

	if claims.UserID == "" {
		return nil, apperrors.Unauthorized("no user logged in")
	}

	if claims.Email == "" {
		if r.users == nil {
			return nil, apperrors.Unauthorized("user email unknown")
		}
		email, err := r.users.LookupEmail(req.Context(), claims.UserID)
		if err != nil {
			return nil, err
		}
		claims.Email = email
	}

	return claims, nil
}

func bearerToken(req *http.Request) (string, bool) {
	header := req.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// UserFromContext returns the user resolved for the request. The zero User
// is returned when no identity middleware ran; core operations reject it.
func UserFromContext(ctx context.Context) domain.User {
	claims := middleware.ClaimsFromContext(ctx)
	if claims == nil {
		return domain.User{}
	}
	return domain.User{ID: claims.UserID, Email: claims.Email}
}
