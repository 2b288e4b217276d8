package connector

import (
	"reflect"
	"sort"
	"strings"
)

// Operation names a connector capability.
type Operation string

// Connector operations.
const (
	OpConnect Operation = "connect"
	OpCreate  Operation = "create"
	OpRead    Operation = "read"
	OpUpdate  Operation = "update"
	OpDelete  Operation = "delete"
	OpExec    Operation = "exec"
)

// Required lists the capabilities checked by Verify. Exec is needed
// internally but is not part of the externally checked set.
var Required = []Operation{OpConnect, OpCreate, OpRead, OpUpdate, OpDelete}

// Mutating reports whether the operation changes data and is therefore
// subject to the read-only gate.
func (o Operation) Mutating() bool {
	return o == OpCreate || o == OpUpdate || o == OpDelete
}

// keyword is the DML/DQL keyword a statement must contain for the operation.
func (o Operation) keyword() string {
	switch o {
	case OpRead:
		return "select"
	case OpCreate:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return ""
	}
}

// Verify checks that exposed contains every required capability.
// Capability names are compared case-insensitively.
func Verify(backend string, exposed []string) error {
	have := make(map[string]struct{}, len(exposed))
	for _, name := range exposed {
		have[strings.ToLower(name)] = struct{}{}
	}

	var missing []string
	for _, op := range Required {
		if _, ok := have[string(op)]; !ok {
			missing = append(missing, string(op))
		}
	}
	if len(missing) == 0 {
		return nil
	}

	sort.Strings(missing)
	return &ContractError{Backend: backend, Missing: missing}
}

// CapabilitiesOf returns the lower-cased names of the exported methods of v,
// sorted. It is the capability set used to verify built-in implementations.
func CapabilitiesOf(v any) []string {
	if v == nil {
		return nil
	}
	t := reflect.TypeOf(v)
	names := make([]string, 0, t.NumMethod())
	for i := 0; i < t.NumMethod(); i++ {
		names = append(names, strings.ToLower(t.Method(i).Name))
	}
	sort.Strings(names)
	return names
}
