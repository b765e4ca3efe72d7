package proxy

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mercator-hq/apigate/pkg/proxy/types"
)

// DefaultMaxBodyBytes bounds ReadBody when no limit is given.
const DefaultMaxBodyBytes = 10 * 1024 * 1024

// AuthorizationHeader carries the caller's bearer token.
const AuthorizationHeader = "Authorization"

// ErrMissingAuthorization is returned for an absent Authorization header.
var ErrMissingAuthorization = errors.New("missing authorization header")

// ErrMalformedAuthorization is returned when the header is not "Bearer <token>".
var ErrMalformedAuthorization = errors.New("authorization header must be a bearer token")

// ExtractBearerToken returns the token from "Authorization: Bearer <token>".
func ExtractBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get(AuthorizationHeader)
	if authHeader == "" {
		return "", ErrMissingAuthorization
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrMalformedAuthorization
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrMalformedAuthorization
	}
	return token, nil
}

// ReadBody reads at most maxBytes of the request body. A larger body is a
// RequestError.
func ReadBody(r *http.Request, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if int64(len(body)) > maxBytes {
		return nil, &RequestError{
			Message: fmt.Sprintf("request body exceeds maximum size of %d bytes", maxBytes),
			Code:    types.CodeRequestTooLarge,
			Status:  http.StatusRequestEntityTooLarge,
		}
	}
	return body, nil
}

// RequestError is a problem with the caller's request.
type RequestError struct {
	Message string
	Code    string

	// Status defaults to 400.
	Status int
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return e.Message
}

// ToErrorResponse converts the error to the wire envelope.
func (e *RequestError) ToErrorResponse() *types.ErrorResponse {
	if e.Status != 0 {
		return types.NewErrorResponse(e.Status, e.Code, e.Message)
	}
	return types.NewInvalidRequestError(e.Code, e.Message)
}
