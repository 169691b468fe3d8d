package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// downstreamError is the error envelope written by httputil.WriteError on
// the serving side.
type downstreamError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError consumes and closes a non-2xx response and turns it into
// an error. Structured envelopes keep their code; 4xx replies become AppErrors
// so handlers render them with the downstream status.
func ParseResponseError(resp *http.Response, service string) error {
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", service, resp.StatusCode, err)
	}

	var envelope downstreamError
	if json.Unmarshal(raw, &envelope) != nil || envelope.Error == nil {
		return fmt.Errorf("%s returned status %d: %s", service, resp.StatusCode, raw)
	}
	return toAppError(resp.StatusCode, envelope.Error.Code, envelope.Error.Message, service)
}

func toAppError(status int, code, message, service string) error {
	msg := service + ": " + message

	switch status {
	case http.StatusNotFound:
		return apperrors.NotFound(service, message)
	case http.StatusBadRequest:
		return apperrors.InvalidInput(msg)
	case http.StatusUnauthorized:
		return apperrors.Unauthorized(msg)
	case http.StatusForbidden:
		return apperrors.Forbidden(msg)
	case http.StatusConflict:
		return apperrors.Conflict(code, msg)
	case http.StatusGone:
		return apperrors.Gone(msg)
	case http.StatusUnprocessableEntity:
		return apperrors.InvalidState(code, msg)
	case http.StatusServiceUnavailable:
		return apperrors.ServiceUnavailable(msg, nil)
	}
	if status >= http.StatusInternalServerError {
		return fmt.Errorf("%s server error (%d/%s): %s", service, status, code, message)
	}
	return &apperrors.AppError{Code: code, Message: msg, Status: status}
}
