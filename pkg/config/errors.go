package config

import "fmt"

// ConfigTypeError is returned when a value of the wrong shape is written to
// the configuration store.
type ConfigTypeError struct {
	Dest   string
	Reason string
}

func (e *ConfigTypeError) Error() string {
	if e.Dest == "" {
		return "invalid configuration: " + e.Reason
	}
	return fmt.Sprintf("invalid configuration for %s: %s", e.Dest, e.Reason)
}
