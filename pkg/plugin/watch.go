package plugin

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch invalidates cached descriptors when .star files change under the
// plugin root on the OS filesystem. The root and every existing type
// directory are watched; onChange, when non-nil, is called with the type
// tag after each invalidation. Watching stops when ctx is done.
func (c *Catalog) Watch(ctx context.Context, onChange func(tag string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(c.root); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch plugin root: %w", err)
	}
	for _, tag := range c.Types() {
		dir := filepath.Join(c.root, tag)
		if ok, _ := c.disk.Exists(dir); !ok {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	go c.watchLoop(ctx, watcher, onChange)
	return nil
}

// watchLoop handles file system events.
func (c *Catalog) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, onChange func(string)) {
	defer func() { _ = watcher.Close() }()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			tag, ok := c.tagOf(event.Name)
			if !ok {
				continue
			}

			// A type directory created after Watch started
			if event.Name == filepath.Join(c.root, tag) {
				if event.Op&fsnotify.Create != 0 {
					_ = watcher.Add(event.Name)
				}
			} else if filepath.Ext(event.Name) != ".star" {
				continue
			}

			c.Invalidate(tag)
			c.logger.Info("plugins changed", "type", tag, "file", filepath.Base(event.Name), "op", event.Op.String())
			if onChange != nil {
				onChange(tag)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warn("plugin watcher error", "error", err)
		}
	}
}

// tagOf returns the recognized type tag a watched path belongs to.
func (c *Catalog) tagOf(name string) (string, bool) {
	rel, err := filepath.Rel(c.root, name)
	if err != nil {
		return "", false
	}
	tag := rel
	if dir := filepath.Dir(rel); dir != "." {
		tag = dir
	}
	if _, ok := c.types[tag]; !ok {
		return "", false
	}
	return tag, true
}
