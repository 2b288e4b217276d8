// Package logging builds the process logger from the logs section of the
// configuration.
//
// Records fan out to named channels. The firehose channel receives every
// record (or every non-error record when firehoseAll is off), the error
// channel receives ERROR and above, and console mirrors go to stdout and
// stderr. File channels are written as JSON lines. Console mirrors use text
// when attached to a terminal and JSON otherwise.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/leapstack-labs/starkey/pkg/config"
	"github.com/leapstack-labs/starkey/pkg/disk"
	"golang.org/x/term"
)

// Channel names.
const (
	Firehose = "firehose"
	Error    = "error"
	Custom   = "custom"
)

// Logger is a fan-out logger plus the custom channels opened from it.
type Logger struct {
	*slog.Logger

	cfg    config.LogsConfig
	disk   disk.FS
	level  slog.Leveler
	mu     sync.Mutex
	files  []io.Closer
	custom map[string]*slog.Logger

	// firehose is nil when the firehose channel has no path. shared holds
	// the error and console routes every logger writes through.
	firehose slog.Handler
	shared   []route
}

// Option configures New.
type Option func(*options)

type options struct {
	disk   disk.FS
	stdout io.Writer
	stderr io.Writer
	level  slog.Leveler
}

// WithDisk sets the filesystem log files are opened on.
func WithDisk(d disk.FS) Option {
	return func(o *options) { o.disk = d }
}

// WithConsole replaces os.Stdout and os.Stderr as the console mirrors.
func WithConsole(stdout, stderr io.Writer) Option {
	return func(o *options) {
		o.stdout = stdout
		o.stderr = stderr
	}
}

// WithLevel sets the minimum level for every channel. Defaults to debug.
func WithLevel(level slog.Leveler) Option {
	return func(o *options) { o.level = level }
}

// New opens the configured channels and returns a Logger writing to them.
// Channels with an empty path are skipped.
func New(cfg config.LogsConfig, opts ...Option) (*Logger, error) {
	o := options{
		disk:   disk.OS(),
		stdout: os.Stdout,
		stderr: os.Stderr,
		level:  slog.LevelDebug,
	}
	for _, opt := range opts {
		opt(&o)
	}

	l := &Logger{
		cfg:    cfg,
		disk:   o.disk,
		level:  o.level,
		custom: make(map[string]*slog.Logger),
	}

	if path := cfg.Types[Firehose].Path; path != "" {
		w, err := l.open(path)
		if err != nil {
			l.Close()
			return nil, err
		}
		l.firehose = l.jsonHandler(w)
	}

	if path := cfg.Types[Error].Path; path != "" {
		w, err := l.open(path)
		if err != nil {
			l.Close()
			return nil, err
		}
		l.shared = append(l.shared, route{handler: l.jsonHandler(w), accept: errorsOnly})
	}

	if cfg.Config.ToStdOut && o.stdout != nil {
		l.shared = append(l.shared, route{handler: l.consoleHandler(o.stdout), accept: belowError})
	}
	if cfg.Config.ToStdErr && o.stderr != nil {
		l.shared = append(l.shared, route{handler: l.consoleHandler(o.stderr), accept: errorsOnly})
	}

	var routes []route
	if l.firehose != nil {
		accept := all
		if !cfg.Config.FirehoseAll {
			accept = belowError
		}
		routes = append(routes, route{handler: l.firehose, accept: accept})
	}
	routes = append(routes, l.shared...)

	l.Logger = slog.New(&fanout{routes: routes})
	return l, nil
}

// Custom returns a logger writing to the channel configured at
// logs.types.<name>.path. Its records also reach the firehose when
// firehoseAll is on, and the error and console channels by level. Loggers
// are cached per name.
func (l *Logger) Custom(name string) (*slog.Logger, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if logger, ok := l.custom[name]; ok {
		return logger, nil
	}

	path := l.cfg.Types[name].Path
	if path == "" {
		return nil, fmt.Errorf("log channel %q has no path configured", name)
	}

	w, err := l.disk.OpenAppend(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log channel %s: %w", name, err)
	}
	l.files = append(l.files, w)

	routes := []route{{handler: l.jsonHandler(w), accept: all}}
	if l.firehose != nil && l.cfg.Config.FirehoseAll {
		routes = append(routes, route{handler: l.firehose, accept: all})
	}
	routes = append(routes, l.shared...)

	logger := slog.New(&fanout{routes: routes}).With("channel", name)
	l.custom[name] = logger
	return logger, nil
}

// Close closes every log file opened by the Logger.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.files = nil
	return firstErr
}

func (l *Logger) open(path string) (io.Writer, error) {
	w, err := l.disk.OpenAppend(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	l.mu.Lock()
	l.files = append(l.files, w)
	l.mu.Unlock()
	return w, nil
}

func (l *Logger) jsonHandler(w io.Writer) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: l.level})
}

func (l *Logger) consoleHandler(w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: l.level}
	if isTerminal(w) {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}
