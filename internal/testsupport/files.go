package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"kodarr/internal/playback"
)

// WriteFile creates path on fsys with the given content, creating parents.
func WriteFile(t testing.TB, fsys afero.Fs, path, content string) {
	t.Helper()

	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := afero.WriteFile(fsys, path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// NewMemoryStore returns a preservation store backed by an in-memory filesystem.
func NewMemoryStore(t testing.TB) *playback.FileStore {
	t.Helper()
	return playback.NewFileStore(afero.NewMemMapFs(), "/state/stopped_movies.json", nil)
}
