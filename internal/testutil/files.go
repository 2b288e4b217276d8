package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/starkey/pkg/disk"
)

// MemDisk returns an in-memory disk holding files, keyed by slash path.
func MemDisk(t testing.TB, files map[string]string) *disk.Disk {
	t.Helper()
	d := disk.Memory()
	for path, content := range files {
		if err := d.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	return d
}

// WriteFiles writes files below root on the OS filesystem, creating parent
// directories as needed.
func WriteFiles(t testing.TB, root string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		full := filepath.Join(root, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", filepath.Dir(full), err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", full, err)
		}
	}
}
