package testsupport

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile creates path, including parent directories, holding size copies
// of fill. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64, fill byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	if _, err := io.CopyN(f, repeatReader(fill), max(size, 1)); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

type repeatReader byte

func (r repeatReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r)
	}
	return len(p), nil
}
