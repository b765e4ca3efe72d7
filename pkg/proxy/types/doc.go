// Package types defines the wire envelope returned to gateway callers when
// a call is rejected.
//
// Every rejection body is a JSON object with a human-readable message:
//
//	{"message": "Missing authorization header", "code": "unauthorized"}
//
// The HTTP status travels with the value but is not serialized.
package types
