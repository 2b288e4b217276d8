// Package disk provides the file access used for configuration, plugins and
// log sinks. Everything goes through an afero filesystem so tests can run
// against memory.
package disk

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// FS is the set of file operations the rest of the module relies on.
type FS interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, perm os.FileMode) error
	Exists(path string) (bool, error)
	ReadDir(path string) ([]os.FileInfo, error)
	MkdirAll(path string, perm os.FileMode) error
	OpenAppend(path string) (io.WriteCloser, error)
	Sub(dir string) fs.FS
}

// Disk implements FS on top of an afero filesystem.
type Disk struct {
	fs afero.Fs
}

var _ FS = (*Disk)(nil)

// New wraps an afero filesystem.
func New(fsys afero.Fs) *Disk {
	return &Disk{fs: fsys}
}

// OS returns a Disk backed by the operating system filesystem.
func OS() *Disk {
	return New(afero.NewOsFs())
}

// Memory returns a Disk backed by an empty in-memory filesystem.
func Memory() *Disk {
	return New(afero.NewMemMapFs())
}

// Afero exposes the underlying filesystem.
func (d *Disk) Afero() afero.Fs {
	return d.fs
}

// ReadFile reads the whole file at path.
func (d *Disk) ReadFile(path string) ([]byte, error) {
	return afero.ReadFile(d.fs, path)
}

// WriteFile writes data to path, creating parent directories as needed.
func (d *Disk) WriteFile(path string, data []byte, perm os.FileMode) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := d.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return afero.WriteFile(d.fs, path, data, perm)
}

// Exists reports whether path exists.
func (d *Disk) Exists(path string) (bool, error) {
	return afero.Exists(d.fs, path)
}

// ReadDir lists the directory at path. A missing directory is an error.
func (d *Disk) ReadDir(path string) ([]os.FileInfo, error) {
	ok, err := afero.DirExists(d.fs, path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("path %q does not exist or is not a readable directory: %w", path, fs.ErrNotExist)
	}
	return afero.ReadDir(d.fs, path)
}

// MkdirAll creates path and any missing parents.
func (d *Disk) MkdirAll(path string, perm os.FileMode) error {
	return d.fs.MkdirAll(path, perm)
}

// OpenAppend opens path for appending, creating it and its parent
// directories when missing.
func (d *Disk) OpenAppend(path string) (io.WriteCloser, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := d.fs.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return d.fs.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}

// Sub returns an io/fs view rooted at dir.
func (d *Disk) Sub(dir string) fs.FS {
	if dir == "" || dir == "." {
		return afero.NewIOFS(d.fs)
	}
	return afero.NewIOFS(afero.NewBasePathFs(d.fs, dir))
}
