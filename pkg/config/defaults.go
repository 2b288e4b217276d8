package config

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultFileName    = "starkey.yaml"
	DefaultFileNameAlt = "starkey.yml"
	DefaultEnvPrefix   = "STARKEY_"
	ConfigEnvVar       = "STARKEY_CONFIG"
)

//go:embed default.yaml
var defaultTemplate []byte

var defaultTree = mustParseDefault()

func mustParseDefault() map[string]any {
	var tree map[string]any
	if err := yaml.Unmarshal(defaultTemplate, &tree); err != nil {
		panic(fmt.Sprintf("config: embedded default.yaml is invalid: %v", err))
	}
	return tree
}

// Default returns a copy of the base template every load starts from.
func Default() map[string]any {
	return Copy(defaultTree)
}

// DefaultYAML returns the raw base template.
func DefaultYAML() []byte {
	return append([]byte(nil), defaultTemplate...)
}
