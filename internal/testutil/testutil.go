// Package testutil provides shared test helpers.
package testutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

// SilentLogger returns a logger that only surfaces errors, keeping test
// output readable.
func SilentLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TempSource writes content to a file named name inside a fresh temp
// directory and returns its path.
func TempSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return path
}
