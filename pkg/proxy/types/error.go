package types

import "net/http"

// ErrorResponse is the JSON body of a rejected call.
type ErrorResponse struct {
	// Message is shown to the caller verbatim.
	Message string `json:"message"`

	// Code is a machine-readable reason.
	Code string `json:"code,omitempty"`

	// Status is the HTTP status to respond with.
	Status int `json:"-"`
}

// Error codes.
const (
	CodeUnauthorized    = "unauthorized"
	CodeNotFound        = "not_found"
	CodeInvalidRequest  = "invalid_request"
	CodeInvalidJSON     = "invalid_json"
	CodeRequestTooLarge = "request_too_large"
	CodeRateLimited     = "rate_limited"
	CodeUpstreamError   = "upstream_error"
	CodeUpstreamTimeout = "upstream_timeout"
	CodeInternalError   = "internal_error"
)

// NewErrorResponse creates an error response.
func NewErrorResponse(status int, code, message string) *ErrorResponse {
	return &ErrorResponse{Message: message, Code: code, Status: status}
}

// NewUnauthorizedError is a 401.
func NewUnauthorizedError(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusUnauthorized, CodeUnauthorized, message)
}

// NewNotFoundError is a 404.
func NewNotFoundError(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusNotFound, CodeNotFound, message)
}

// NewInvalidRequestError is a 400.
func NewInvalidRequestError(code, message string) *ErrorResponse {
	if code == "" {
		code = CodeInvalidRequest
	}
	return NewErrorResponse(http.StatusBadRequest, code, message)
}

// NewRateLimitError is a 429.
func NewRateLimitError(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusTooManyRequests, CodeRateLimited, message)
}

// NewBadGatewayError is a 502.
func NewBadGatewayError(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusBadGateway, CodeUpstreamError, message)
}

// NewGatewayTimeoutError is a 504.
func NewGatewayTimeoutError(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusGatewayTimeout, CodeUpstreamTimeout, message)
}

// NewServerError is a 500.
func NewServerError(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusInternalServerError, CodeInternalError, message)
}

// HTTPStatusCode returns the status, defaulting to 500.
func (e *ErrorResponse) HTTPStatusCode() int {
	if e.Status == 0 {
		return http.StatusInternalServerError
	}
	return e.Status
}
