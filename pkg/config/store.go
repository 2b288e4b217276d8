// Package config loads, merges and serves the layered configuration tree.
//
// A Store holds the merged tree for the lifetime of the process. Reads are
// safe from any number of goroutines; values handed out are copies, so the
// held tree never changes. Writes persist a new tree to disk and are not
// synchronized: callers that write must hold their own lock.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/leapstack-labs/starkey/pkg/disk"
	"gopkg.in/yaml.v3"
)

// Store holds a merged configuration tree.
type Store struct {
	tree    map[string]any
	sources []string
	disk    disk.FS
	logger  *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithDisk sets the filesystem used by Write.
func WithDisk(d disk.FS) StoreOption {
	return func(s *Store) {
		s.disk = d
	}
}

// WithLogger sets the logger that receives path diagnostics.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSources records the files the tree was loaded from.
func WithSources(sources ...string) StoreOption {
	return func(s *Store) {
		s.sources = append([]string(nil), sources...)
	}
}

// NewStore returns a Store holding a copy of tree.
func NewStore(tree map[string]any, opts ...StoreOption) *Store {
	s := &Store{
		tree:   Merge(tree),
		disk:   disk.OS(),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sources returns the files merged into the tree, lowest precedence first.
func (s *Store) Sources() []string {
	return append([]string(nil), s.sources...)
}

// Tree returns a copy of the whole merged tree.
func (s *Store) Tree() map[string]any {
	return Copy(s.tree)
}

// Get returns the value at the dot-separated path, or nil when the path does
// not resolve. "*" returns the whole tree.
func (s *Store) Get(path string) any {
	return s.GetPath(ParsePath(path))
}

// GetPath returns the value at p, or nil when p does not resolve. Resolution
// failures are logged and never returned.
func (s *Store) GetPath(p Path) any {
	v, err := Lookup(s.tree, p)
	if err != nil {
		var pe *PathError
		if errors.As(err, &pe) && strings.HasPrefix(pe.Reason, "cannot traverse") {
			s.logger.Warn("config path not resolved", "path", p.String(), "error", err)
		} else {
			s.logger.Debug("config path not resolved", "path", p.String(), "error", err)
		}
		return nil
	}
	return copyValue(v)
}

// String returns the value at path as a string, or "" when absent.
func (s *Store) String(path string) string {
	switch v := s.Get(path).(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Bool returns the value at path as a bool. ok is false when the path is
// absent or the value is not a boolean.
func (s *Store) Bool(path string) (value, ok bool) {
	switch v := s.Get(path).(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(v)
		return b, err == nil
	default:
		return false, false
	}
}

// Int returns the value at path as an int, or 0 when absent or not numeric.
func (s *Store) Int(path string) int {
	switch v := s.Get(path).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

// Strings returns the value at path as a string slice. A scalar yields a
// single element; an absent path yields nil.
func (s *Store) Strings(path string) []string {
	v := s.Get(path)
	if v == nil {
		return nil
	}
	items, ok := asSlice(v)
	if !ok {
		return []string{fmt.Sprint(v)}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, fmt.Sprint(item))
	}
	return out
}

// Decode decodes the value at path into out using koanf struct tags.
func (s *Store) Decode(path string, out any) error {
	v := s.Get(path)
	if v == nil {
		return nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "koanf",
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("unable to decode config at %s: %w", ParsePath(path).String(), err)
	}
	return nil
}

// Settings decodes the whole tree into Settings.
func (s *Store) Settings() (*Settings, error) {
	var settings Settings
	if err := s.Decode(WholeTree, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Write serializes tree as YAML to dest. The top level must be a mapping.
func (s *Store) Write(tree any, dest string) error {
	data, err := Marshal(tree)
	if err != nil {
		var te *ConfigTypeError
		if errors.As(err, &te) {
			te.Dest = dest
		}
		return err
	}

	if err := s.disk.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", dest, err)
	}
	s.logger.Info("configuration written", "dest", dest)
	return nil
}

// Generate returns Merge(base, override). base is the default template when
// fromDefaultBase is set and the store's own tree otherwise.
func (s *Store) Generate(override map[string]any, fromDefaultBase bool) map[string]any {
	base := s.tree
	if fromDefaultBase {
		base = Default()
	}
	return Merge(base, override)
}

// GenerateYAML returns the serialized form of Generate.
func (s *Store) GenerateYAML(override map[string]any, fromDefaultBase bool) ([]byte, error) {
	return Marshal(s.Generate(override, fromDefaultBase))
}

// WriteDefault materializes the default template at dest.
func (s *Store) WriteDefault(dest string) error {
	return s.Write(Default(), dest)
}

// Marshal serializes a configuration tree as YAML. Sequences and scalars at
// the top level, and values YAML cannot represent, fail with
// *ConfigTypeError.
func Marshal(tree any) (data []byte, err error) {
	if _, ok := asSlice(tree); ok {
		return nil, &ConfigTypeError{Reason: "top level must be a mapping, got a sequence"}
	}
	m, ok := asMap(tree)
	if !ok {
		return nil, &ConfigTypeError{Reason: fmt.Sprintf("top level must be a mapping, got %T", tree)}
	}
	if err := checkSerializable(m, ""); err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			data, err = nil, &ConfigTypeError{Reason: fmt.Sprint(r)}
		}
	}()

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(Merge(m)); err != nil {
		return nil, &ConfigTypeError{Reason: err.Error()}
	}
	if err := enc.Close(); err != nil {
		return nil, &ConfigTypeError{Reason: err.Error()}
	}
	return buf.Bytes(), nil
}

func checkSerializable(v any, at string) error {
	if m, ok := asMap(v); ok {
		for k, child := range m {
			if err := checkSerializable(child, joinKey(at, k)); err != nil {
				return err
			}
		}
		return nil
	}
	if items, ok := asSlice(v); ok {
		for i, item := range items {
			if err := checkSerializable(item, joinKey(at, strconv.Itoa(i))); err != nil {
				return err
			}
		}
		return nil
	}
	if v == nil {
		return nil
	}

	switch reflect.TypeOf(v).Kind() {
	case reflect.Func, reflect.Chan, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		return &ConfigTypeError{Reason: fmt.Sprintf("value at %s cannot be serialized (%T)", at, v)}
	}
	return nil
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
