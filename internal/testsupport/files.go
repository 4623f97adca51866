package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates a fixture file of the given size. Media fixtures in this
// repo are tiny stand-ins (a few dozen bytes), so the content is written in
// one shot. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{0xDE}, int(size)), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
