package plugin

import (
	"fmt"
	"path/filepath"
	"strings"
)

// LoadError represents an error loading a plugin file.
type LoadError struct {
	File    string
	Message string
}

func (e *LoadError) Error() string {
	dir := filepath.Base(filepath.Dir(e.File))
	return fmt.Sprintf("%s/%s: %s", dir, filepath.Base(e.File), e.Message)
}

// UnknownPluginTypeError is returned when a type tag is not recognized by
// the catalog.
type UnknownPluginTypeError struct {
	Type  string
	Known []string
}

func (e *UnknownPluginTypeError) Error() string {
	return fmt.Sprintf("unknown plugin type %q (known types: %s)", e.Type, strings.Join(e.Known, ", "))
}
