package core

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUpstreamNotFound is returned by upstream clients when the API reports an
// unknown user, list or object.
var ErrUpstreamNotFound = errors.New("not found upstream")

// ErrorType represents the type of error that occurred
type ErrorType string

const (
	// ErrorTypeUpstream indicates the board-game API failed after retries (502)
	ErrorTypeUpstream ErrorType = "upstream_error"
	// ErrorTypeRateLimit indicates the board-game API kept rate limiting us (429)
	ErrorTypeRateLimit ErrorType = "rate_limit_error"
	// ErrorTypeInvalidRequest indicates a client error (4xx)
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error"
	// ErrorTypeNotFound indicates a not found error (404)
	ErrorTypeNotFound ErrorType = "not_found_error"
	// ErrorTypeUserNotFound indicates the upstream has no such username (404)
	ErrorTypeUserNotFound ErrorType = "user_not_found"
	// ErrorTypeListNotFound indicates a geek-list resolved to zero games (404)
	ErrorTypeListNotFound ErrorType = "list_not_found"
)

// GatewayError is the base error type for all gateway errors
type GatewayError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	// Original error for debugging (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface
func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *GatewayError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *GatewayError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	switch e.Type {
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeNotFound, ErrorTypeUserNotFound, ErrorTypeListNotFound:
		return http.StatusNotFound
	case ErrorTypeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON converts the error to a JSON-compatible map
func (e *GatewayError) ToJSON() map[string]interface{} {
	return map[string]interface{}{
		"error": map[string]interface{}{
			"type":    e.Type,
			"message": e.Message,
		},
	}
}

// NewUpstreamError creates an error for a failed board-game API call.
func NewUpstreamError(statusCode int, message string, err error) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeUpstream,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// NewRateLimitError creates a new rate limit error (429)
func NewRateLimitError(message string) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeRateLimit,
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
	}
}

// NewInvalidRequestError creates a new invalid request error (400)
func NewInvalidRequestError(message string, err error) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeInvalidRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

// NewNotFoundError creates a new not found error (404)
func NewNotFoundError(message string) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewUserNotFoundError reports a username the upstream collection API does not know.
func NewUserNotFoundError(username string, err error) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeUserNotFound,
		Message:    fmt.Sprintf("No user found called '%s'", username),
		StatusCode: http.StatusNotFound,
		Err:        err,
	}
}

// NewListNotFoundError reports a geek-list that resolved to no games. The
// upstream does not distinguish a missing list from an empty one.
func NewListNotFoundError(listID string) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeListNotFound,
		Message:    fmt.Sprintf("List not found or contains no games '%s'", listID),
		StatusCode: http.StatusNotFound,
	}
}

// IsNotFound reports whether err is one of the 404 gateway errors.
func IsNotFound(err error) bool {
	var gw *GatewayError
	if !errors.As(err, &gw) {
		return false
	}
	return gw.HTTPStatusCode() == http.StatusNotFound
}
