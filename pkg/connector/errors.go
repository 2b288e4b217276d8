package connector

import (
	"fmt"
	"strings"
)

// ContractError is returned when an implementation does not expose every
// required capability.
type ContractError struct {
	Backend string
	Missing []string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("connector %q does not implement required capabilities: %s", e.Backend, strings.Join(e.Missing, ", "))
}

// DMLKindError is returned when a statement does not match the operation it
// was passed to.
type DMLKindError struct {
	Backend   string
	Operation Operation
	Keyword   string
}

func (e *DMLKindError) Error() string {
	return fmt.Sprintf("connector %q: %s requires a %s statement", e.Backend, e.Operation, strings.ToUpper(e.Keyword))
}

// ReadOnlyError is returned when a mutating operation is attempted on a
// connector constructed without authorization.
type ReadOnlyError struct {
	Backend   string
	Operation Operation
}

func (e *ReadOnlyError) Error() string {
	return fmt.Sprintf("connector %q is read-only: %s not permitted", e.Backend, e.Operation)
}

// NotImplementedError is returned when an operation reaches the shared base
// instead of a concrete implementation.
type NotImplementedError struct {
	Backend   string
	Operation Operation
}

func (e *NotImplementedError) Error() string {
	if e.Backend == "" {
		return fmt.Sprintf("%s must be implemented by a concrete connector", e.Operation)
	}
	return fmt.Sprintf("connector %q: %s must be implemented by a concrete connector", e.Backend, e.Operation)
}

// UnknownConnectorError is returned when no connector is registered under
// the requested name.
type UnknownConnectorError struct {
	Name      string
	Available []string
}

func (e *UnknownConnectorError) Error() string {
	return fmt.Sprintf("unknown connector %q\nAvailable connectors: %v\nHint: Check database.type in starkey.yaml", e.Name, e.Available)
}
