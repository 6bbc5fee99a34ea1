package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
)

// DiscardLogger returns a logger that drops all records.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// OutputPath returns a path for a report file inside a per-test temp directory.
func OutputPath(t testing.TB, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}
