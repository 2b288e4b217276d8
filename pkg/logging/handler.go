package logging

import (
	"context"
	"errors"
	"log/slog"
)

// route pairs a handler with the levels it receives.
type route struct {
	handler slog.Handler
	accept  func(slog.Level) bool
}

// fanout delivers each record to every route that accepts its level.
type fanout struct {
	routes []route
}

func (f *fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, r := range f.routes {
		if r.accept(level) && r.handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanout) Handle(ctx context.Context, rec slog.Record) error {
	var errs []error
	for _, r := range f.routes {
		if !r.accept(rec.Level) || !r.handler.Enabled(ctx, rec.Level) {
			continue
		}
		if err := r.handler.Handle(ctx, rec.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.mapRoutes(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f *fanout) WithGroup(name string) slog.Handler {
	return f.mapRoutes(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f *fanout) mapRoutes(fn func(slog.Handler) slog.Handler) slog.Handler {
	routes := make([]route, len(f.routes))
	for i, r := range f.routes {
		routes[i] = route{handler: fn(r.handler), accept: r.accept}
	}
	return &fanout{routes: routes}
}

func all(slog.Level) bool { return true }

func errorsOnly(l slog.Level) bool { return l >= slog.LevelError }

func belowError(l slog.Level) bool { return l < slog.LevelError }
