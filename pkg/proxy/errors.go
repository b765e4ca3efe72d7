package proxy

import (
	"errors"
	"fmt"

	"mercator-hq/apigate/pkg/dispatch"
	"mercator-hq/apigate/pkg/params"
	"mercator-hq/apigate/pkg/proxy/types"
	"mercator-hq/apigate/pkg/request"
	"mercator-hq/apigate/pkg/requestlog"
)

// ErrorResponder is implemented by errors that know their own envelope.
type ErrorResponder interface {
	ToErrorResponse() *types.ErrorResponse
}

// HandleError maps an error to the envelope returned to the caller.
// Caller-input errors keep their message; upstream and internal failures
// get a generic one.
func HandleError(err error) *types.ErrorResponse {
	var responder ErrorResponder
	if errors.As(err, &responder) {
		return responder.ToErrorResponse()
	}

	if errors.Is(err, ErrMissingAuthorization) || errors.Is(err, ErrMalformedAuthorization) {
		return types.NewUnauthorizedError(err.Error())
	}

	var missingErr *params.MissingParameterError
	if errors.As(err, &missingErr) {
		return types.NewInvalidRequestError("", missingErr.Error())
	}

	if errors.Is(err, request.ErrNoServerConfigured) {
		return types.NewInvalidRequestError("", err.Error())
	}

	var notFoundErr *requestlog.NotFoundError
	if errors.As(err, &notFoundErr) {
		return types.NewNotFoundError(notFoundErr.Error())
	}

	var queryErr *requestlog.QueryError
	if errors.As(err, &queryErr) {
		return types.NewInvalidRequestError("", queryErr.Error())
	}

	var dispatchErr *dispatch.Error
	if errors.As(err, &dispatchErr) {
		if dispatchErr.Timeout() {
			return types.NewGatewayTimeoutError(fmt.Sprintf("Request to %s timed out", dispatchErr.URL))
		}
		return types.NewBadGatewayError(fmt.Sprintf("Request to %s failed", dispatchErr.URL))
	}

	return types.NewServerError("An internal error occurred. Please try again later.")
}
