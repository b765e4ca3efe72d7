package params

import "fmt"

// MissingParameterError is returned when a path parameter referenced by the
// operation's path template has no supplied value.
type MissingParameterError struct {
	Name       string // Logical parameter name
	MappedName string // Field the caller was expected to send
}

// Error implements the error interface.
func (e *MissingParameterError) Error() string {
	if e.MappedName != "" && e.MappedName != e.Name {
		return fmt.Sprintf("missing required parameter %q (sent as %q)", e.Name, e.MappedName)
	}
	return fmt.Sprintf("missing required parameter %q", e.Name)
}

// NewMissingParameterError creates a new MissingParameterError.
func NewMissingParameterError(name, mappedName string) *MissingParameterError {
	return &MissingParameterError{
		Name:       name,
		MappedName: mappedName,
	}
}
