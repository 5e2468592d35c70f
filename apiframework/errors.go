package apiframework

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error constants
var (
	ErrBadRequest            = errors.New("chatapi: bad request")
	ErrUnauthorized          = errors.New("chatapi: unauthorized")
	ErrForbidden             = errors.New("chatapi: forbidden")
	ErrNotFound              = errors.New("chatapi: not found")
	ErrConflict              = errors.New("chatapi: conflict")
	ErrFileSizeLimitExceeded = errors.New("chatapi: file size limit exceeded")
	ErrUnsupportedMediaType  = errors.New("chatapi: unsupported media type")
	ErrUnprocessableEntity   = errors.New("chatapi: unprocessable entity")
	ErrRateLimited           = errors.New("chatapi: rate limited")
	ErrInternalServerError   = errors.New("chatapi: internal server error")
	ErrUnavailable           = errors.New("chatapi: service unavailable")
)

// APIError is a decoded error response. It unwraps to the standard error
// matching its status code, so callers can use errors.Is.
type APIError struct {
	err       error
	status    int
	message   string
	param     string
	errorType string
	errorCode string
}

func (e *APIError) Error() string {
	if e.param != "" {
		return fmt.Sprintf("%s (param %s)", e.message, e.param)
	}
	return e.message
}

func (e *APIError) Unwrap() error { return e.err }

func (e *APIError) StatusCode() int { return e.status }
func (e *APIError) Message() string { return e.message }
func (e *APIError) Param() string { return e.param }
func (e *APIError) Type() string { return e.errorType }
func (e *APIError) Code() string { return e.errorCode }

// Temporary reports whether retrying the same call may succeed.
func (e *APIError) Temporary() bool {
	return e.status == http.StatusTooManyRequests || e.status >= 500
}

// errorForStatus maps HTTP status codes to the standard errors.
func errorForStatus(status int) error {
	switch status {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusRequestEntityTooLarge:
		return ErrFileSizeLimitExceeded
	case http.StatusUnsupportedMediaType:
		return ErrUnsupportedMediaType
	case http.StatusUnprocessableEntity:
		return ErrUnprocessableEntity
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return ErrUnavailable
	default:
		return ErrInternalServerError
	}
}

// getErrorTypeAndCode maps HTTP status codes to error types and codes
func getErrorTypeAndCode(status int) (string, string) {
	switch status {
	case 400:
		return "invalid_request_error", "bad_request"
	case 401:
		return "authentication_error", "unauthorized"
	case 403:
		return "authorization_error", "forbidden"
	case 404:
		return "invalid_request_error", "not_found"
	case 409:
		return "invalid_request_error", "conflict"
	case 413:
		return "invalid_request_error", "request_too_large"
	case 415:
		return "invalid_request_error", "unsupported_media"
	case 422:
		return "invalid_request_error", "unprocessable_entity"
	case 429:
		return "rate_limit_error", "rate_limit_exceeded"
	case 500:
		return "api_error", "internal_error"
	default:
		return "api_error", "unknown_error"
	}
}
