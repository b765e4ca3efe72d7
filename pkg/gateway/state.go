package gateway

import (
	"mercator-hq/apigate/pkg/proxy/types"
)

// State is a step of one gateway call.
type State string

// Call states, in order. Responded and Rejected are terminal.
const (
	StateAuthenticating State = "AUTHENTICATING"
	StateResolving      State = "RESOLVING"
	StateBuilding       State = "BUILDING"
	StateDispatching    State = "DISPATCHING"
	StateRelaying       State = "RELAYING"
	StateLogging        State = "LOGGING"
	StateResponded      State = "RESPONDED"
	StateRejected       State = "REJECTED"
)

// Rejection reasons, also used as metric labels.
const (
	ReasonUnauthorized      = "unauthorized"
	ReasonProjectNotFound   = "project_not_found"
	ReasonClientNotFound    = "client_not_found"
	ReasonInvalidInput      = "invalid_input"
	ReasonOperationNotFound = "operation_not_found"
	ReasonBuildFailed       = "build_failed"
	ReasonLookupFailed      = "lookup_failed"
	ReasonDispatchFailed    = "dispatch_failed"
)

// RejectionError ends a call in the Rejected state.
type RejectionError struct {
	// State is where the call was when it was rejected.
	State  State
	Reason string

	Response *types.ErrorResponse
	Cause    error
}

// Error implements the error interface.
func (e *RejectionError) Error() string {
	if e.Cause != nil {
		return string(e.State) + ": " + e.Cause.Error()
	}
	return string(e.State) + ": " + e.Response.Message
}

// Unwrap returns the underlying cause.
func (e *RejectionError) Unwrap() error {
	return e.Cause
}

// ToErrorResponse returns the envelope sent to the caller.
func (e *RejectionError) ToErrorResponse() *types.ErrorResponse {
	return e.Response
}

func reject(state State, reason string, resp *types.ErrorResponse, cause error) *RejectionError {
	return &RejectionError{State: state, Reason: reason, Response: resp, Cause: cause}
}
