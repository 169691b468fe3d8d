// Package errors defines the application error type rendered in the
// {"error": {...}} response envelope, and the sentinels it wraps.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors. Every AppError wraps exactly one of them so callers can
// branch with errors.Is without knowing the concrete code.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrAlreadyExists  = errors.New("resource already exists")
	ErrInvalidInput   = errors.New("invalid input")
	ErrInvalidState   = errors.New("invalid state")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternal       = errors.New("internal error")
	ErrConflict       = errors.New("conflict")
	ErrGone           = errors.New("gone")
	ErrServiceUnavail = errors.New("service unavailable")
)

// sentinelStatus maps bare sentinels to a status. Order matters only for
// errors joining several sentinels; the first match wins.
var sentinelStatus = []struct {
	err    error
	status int
}{
	{ErrNotFound, http.StatusNotFound},
	{ErrAlreadyExists, http.StatusConflict},
	{ErrConflict, http.StatusConflict},
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrInvalidState, http.StatusUnprocessableEntity},
	{ErrUnauthorized, http.StatusUnauthorized},
	{ErrForbidden, http.StatusForbidden},
	{ErrGone, http.StatusGone},
	{ErrServiceUnavail, http.StatusServiceUnavailable},
}

// AppError is an error with a stable machine-readable code and the HTTP
// status it is reported with.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

func newAppError(status int, code, message string, sentinel error) *AppError {
	return &AppError{Code: code, Message: message, Status: status, Err: sentinel}
}

// NotFound reports that no entity exists under key.
func NotFound(entity, key string) *AppError {
	return newAppError(http.StatusNotFound, "NOT_FOUND", fmt.Sprintf("%s %s not found", entity, key), ErrNotFound)
}

// Conflict is a 409 with a caller chosen code.
func Conflict(code, message string) *AppError {
	return newAppError(http.StatusConflict, code, message, ErrConflict)
}

// InvalidInput is a 400 for a malformed request.
func InvalidInput(message string) *AppError {
	return newAppError(http.StatusBadRequest, "INVALID_INPUT", message, ErrInvalidInput)
}

// InvalidState is a 422: the request is well formed but the current state of
// the resource does not allow it.
func InvalidState(code, message string) *AppError {
	return newAppError(http.StatusUnprocessableEntity, code, message, ErrInvalidState)
}

func Unauthorized(message string) *AppError {
	return newAppError(http.StatusUnauthorized, "UNAUTHORIZED", message, ErrUnauthorized)
}

func Forbidden(message string) *AppError {
	return newAppError(http.StatusForbidden, "FORBIDDEN", message, ErrForbidden)
}

func Gone(message string) *AppError {
	return newAppError(http.StatusGone, "GONE", message, ErrGone)
}

// ServiceUnavailable is a 503 for a failing downstream dependency. cause
// stays reachable through errors.Is and errors.As.
func ServiceUnavailable(message string, cause error) *AppError {
	return newAppError(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", message, errors.Join(ErrServiceUnavail, cause))
}

// Internal hides cause behind a generic message.
func Internal(cause error) *AppError {
	return newAppError(http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred", errors.Join(ErrInternal, cause))
}

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// HTTPStatus returns the status of the first AppError in err's chain, falling
// back to the sentinel it wraps and then to 500.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	for _, s := range sentinelStatus {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}
