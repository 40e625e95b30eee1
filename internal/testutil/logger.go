package testutil

import (
	"io"
	"log/slog"
	"os"
)

// NewTestLogger logs everything to stderr; go test only shows it on failure
// or with -v.
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// NewNullLogger discards all output.
func NewNullLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
