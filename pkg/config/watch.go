package config

import (
	"context"
	"fmt"

	"github.com/knadh/koanf/providers/file"
)

// Watch reloads the configuration whenever the main config file changes on
// the OS filesystem and hands the result to onChange. It blocks until ctx is
// done.
func Watch(ctx context.Context, opts LoadOptions, onChange func(*Store, error)) error {
	store, err := Load(opts)
	if err != nil {
		return err
	}
	sources := store.Sources()
	if len(sources) == 0 {
		return fmt.Errorf("no config file to watch")
	}

	fp := file.Provider(sources[0])
	if err := fp.Watch(func(_ interface{}, err error) {
		if err != nil {
			onChange(nil, fmt.Errorf("watch error: %w", err))
			return
		}
		onChange(Load(opts))
	}); err != nil {
		return fmt.Errorf("failed to watch %s: %w", sources[0], err)
	}

	<-ctx.Done()
	if err := fp.Unwatch(); err != nil {
		return fmt.Errorf("failed to stop watching %s: %w", sources[0], err)
	}
	return nil
}
