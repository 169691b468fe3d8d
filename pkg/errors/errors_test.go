package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrAlreadyExists, ErrInvalidInput, ErrInvalidState,
		ErrUnauthorized, ErrForbidden, ErrInternal, ErrConflict, ErrGone,
		ErrServiceUnavail,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j],
				"sentinels %d and %d should be distinct", i, j)
		}
	}
}

func TestAppError_ErrorString(t *testing.T) {
	inner := fmt.Errorf("db connection lost")
	withInner := &AppError{Code: "INTERNAL_ERROR", Message: "something broke", Err: inner}
	assert.Contains(t, withInner.Error(), "INTERNAL_ERROR")
	assert.Contains(t, withInner.Error(), "db connection lost")

	bare := &AppError{Code: "NOT_FOUND", Message: "cart not found"}
	assert.Equal(t, "NOT_FOUND: cart not found", bare.Error())
	assert.Nil(t, bare.Unwrap())
}

func TestNotFound(t *testing.T) {
	err := NotFound("cart", "user@example.com")
	require.NotNil(t, err)
	assert.Equal(t, "NOT_FOUND", err.Code)
	assert.Equal(t, "cart user@example.com not found", err.Message)
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestConflict(t *testing.T) {
	err := Conflict("DUPLICATE_ITEM", "product already in cart")
	assert.Equal(t, "DUPLICATE_ITEM", err.Code)
	assert.Equal(t, http.StatusConflict, err.Status)
	assert.True(t, errors.Is(err, ErrConflict))
}

func TestInvalidState(t *testing.T) {
	err := InvalidState("EMPTY_CART", "cart has no items")
	assert.Equal(t, "EMPTY_CART", err.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, err.Status)
	assert.True(t, errors.Is(err, ErrInvalidState))
	assert.False(t, errors.Is(err, ErrInvalidInput))
}

func TestConstructors_Status(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		status   int
		sentinel error
	}{
		{"invalid input", InvalidInput("quantity is required"), http.StatusBadRequest, ErrInvalidInput},
		{"unauthorized", Unauthorized("no user"), http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", Forbidden("admin only"), http.StatusForbidden, ErrForbidden},
		{"gone", Gone("expired"), http.StatusGone, ErrGone},
		{"unavailable", ServiceUnavailable("user service down", fmt.Errorf("dial tcp")), http.StatusServiceUnavailable, ErrServiceUnavail},
		{"internal", Internal(fmt.Errorf("boom")), http.StatusInternalServerError, ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Status)
			assert.True(t, errors.Is(tt.err, tt.sentinel))
		})
	}
}

func TestInternal_KeepsCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Internal(cause)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "an internal error occurred", err.Message)
}

func TestCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("place order: %w", InvalidState("INSUFFICIENT_STOCK", "only 2 left"))
	assert.Equal(t, "INSUFFICIENT_STOCK", CodeOf(wrapped))
	assert.Equal(t, "", CodeOf(fmt.Errorf("plain")))
	assert.Equal(t, "", CodeOf(nil))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NotFound("product", "p1"), http.StatusNotFound},
		{ErrConflict, http.StatusConflict},
		{fmt.Errorf("insert cart: %w", ErrAlreadyExists), http.StatusConflict},
		{ServiceUnavailable("user service down", ErrNotFound), http.StatusServiceUnavailable},
		{fmt.Errorf("wrapped: %w", ErrInvalidState), http.StatusUnprocessableEntity},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{ErrGone, http.StatusGone},
		{ErrServiceUnavail, http.StatusServiceUnavailable},
		{fmt.Errorf("unknown"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}
