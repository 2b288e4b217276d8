package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/leapstack-labs/starkey/pkg/disk"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"
)

// LoadOptions controls which layers Load merges.
type LoadOptions struct {
	// File is an explicit main config file. When empty, $STARKEY_CONFIG,
	// ./starkey.yaml and ./starkey.yml are tried in that order.
	File string

	// Disk reads config files. Defaults to the OS filesystem.
	Disk disk.FS

	// Flags contributes explicitly changed flags. Flag names map onto
	// config keys with hyphens dropped: --database.migrations-path sets
	// database.migrationsPath.
	Flags *pflag.FlagSet

	// Overrides is merged last. Keys may be dot-joined paths.
	Overrides map[string]any

	// EnvPrefix selects the environment variables read. Defaults to
	// STARKEY_. A double underscore separates path segments.
	EnvPrefix string

	Logger *slog.Logger
}

// Load builds a Store from, lowest precedence first: the embedded default
// template, the main config file, each altConfigPaths file, environment
// variables, changed flags and Overrides.
func Load(opts LoadOptions) (*Store, error) {
	if opts.Disk == nil {
		opts.Disk = disk.OS()
	}
	if opts.EnvPrefix == "" {
		opts.EnvPrefix = DefaultEnvPrefix
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	layers := []map[string]any{Default()}
	var sources []string

	// 1. Main config file
	mainFile, err := findConfigFile(opts.Disk, opts.File)
	if err != nil {
		return nil, err
	}
	if mainFile != "" {
		layer, err := readLayer(opts.Disk, mainFile)
		if err != nil {
			return nil, err
		}
		layers = append(layers, layer)
		sources = append(sources, mainFile)
	}

	// 2. Alternate files named by the merged tree so far
	baseDir := "."
	if mainFile != "" {
		baseDir = filepath.Dir(mainFile)
	}
	for _, alt := range altConfigPaths(Merge(layers...)) {
		altPath := resolvePathRelativeTo(alt, baseDir)
		if ok, _ := opts.Disk.Exists(altPath); !ok {
			return nil, fmt.Errorf("alternate config file %s not found", altPath)
		}
		layer, err := readLayer(opts.Disk, altPath)
		if err != nil {
			return nil, err
		}
		layers = append(layers, layer)
		sources = append(sources, altPath)
	}

	// 3. Environment variables
	ref := Merge(layers...)
	envLayer, err := loadEnv(opts.EnvPrefix, ref)
	if err != nil {
		return nil, err
	}
	layers = append(layers, envLayer)

	// 4. Flags
	if opts.Flags != nil {
		flagLayer, err := loadFlags(opts.Flags, ref)
		if err != nil {
			return nil, err
		}
		layers = append(layers, flagLayer)
	}

	// 5. Programmatic overrides
	if len(opts.Overrides) > 0 {
		k := koanf.New(".")
		if err := k.Load(confmap.Provider(opts.Overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load overrides: %w", err)
		}
		layers = append(layers, k.Raw())
	}

	tree := Merge(layers...)
	expandDatabaseEnvVars(tree)

	logger.Debug("configuration loaded", "sources", sources)

	return NewStore(tree,
		WithDisk(opts.Disk),
		WithLogger(logger),
		WithSources(sources...),
	), nil
}

// findConfigFile finds the main config file to use.
// Priority: explicit path > $STARKEY_CONFIG > starkey.yaml > starkey.yml
func findConfigFile(d disk.FS, explicit string) (string, error) {
	if explicit == "" {
		explicit = os.Getenv(ConfigEnvVar)
	}
	if explicit != "" {
		if ok, _ := d.Exists(explicit); !ok {
			return "", fmt.Errorf("config file %s not found", explicit)
		}
		return explicit, nil
	}

	for _, name := range []string{DefaultFileName, DefaultFileNameAlt} {
		if ok, _ := d.Exists(name); ok {
			return name, nil
		}
	}
	return "", nil
}

func readLayer(d disk.FS, path string) (map[string]any, error) {
	data, err := d.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	layer, err := yaml.Parser().Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing config file %s: %w", path, err)
	}
	return layer, nil
}

func altConfigPaths(tree map[string]any) []string {
	items, ok := asSlice(tree["altConfigPaths"])
	if !ok {
		if s, isString := tree["altConfigPaths"].(string); isString && s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := fmt.Sprint(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// loadEnv reads prefixed variables. STARKEY_DATABASE__PATH sets
// database.path; values are parsed as YAML scalars.
func loadEnv(prefix string, ref map[string]any) (map[string]any, error) {
	k := koanf.New(".")
	err := k.Load(env.ProviderWithValue(prefix, ".", func(key, value string) (string, interface{}) {
		if key == ConfigEnvVar {
			return "", nil
		}
		key = strings.ToLower(strings.TrimPrefix(key, prefix))
		key = strings.ReplaceAll(key, "__", ".")
		return canonicalKey(ref, key), parseScalar(value)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}
	return k.Raw(), nil
}

func loadFlags(flags *pflag.FlagSet, ref map[string]any) (map[string]any, error) {
	k := koanf.New(".")
	err := k.Load(posflag.ProviderWithFlag(flags, ".", nil, func(f *pflag.Flag) (string, interface{}) {
		// Only load flags that were explicitly set
		if !f.Changed {
			return "", nil
		}
		return canonicalKey(ref, f.Name), posflag.FlagVal(flags, f)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}
	return k.Raw(), nil
}

// canonicalKey maps each segment of a dot-joined key onto the spelling used
// in ref, ignoring case, hyphens and underscores. Segments with no match in
// ref are kept as given.
func canonicalKey(ref map[string]any, key string) string {
	segs := strings.Split(key, ".")
	node := ref
	for i, seg := range segs {
		if node == nil {
			break
		}
		want := normalizeKey(seg)
		var next map[string]any
		for candidate, v := range node {
			if normalizeKey(candidate) == want {
				segs[i] = candidate
				next, _ = asMap(v)
				break
			}
		}
		node = next
	}
	return strings.Join(segs, ".")
}

func normalizeKey(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "-", "")
	return strings.ReplaceAll(s, "_", "")
}

func parseScalar(value string) any {
	if value == "" {
		return value
	}
	var out any
	if err := yamlv3.Unmarshal([]byte(value), &out); err != nil || out == nil {
		return value
	}
	if _, isMap := out.(map[string]any); isMap {
		return value
	}
	return out
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if not found
	})
}

// expandDatabaseEnvVars expands environment variables in credential fields.
func expandDatabaseEnvVars(tree map[string]any) {
	db, ok := tree["database"].(map[string]any)
	if !ok {
		return
	}
	for _, key := range []string{"host", "name", "user", "password"} {
		if s, ok := db[key].(string); ok {
			db[key] = expandEnvVars(s)
		}
	}
}
