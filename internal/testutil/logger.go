package testutil

import (
	"io"

	"github.com/sipas/persuratan/internal/logging"
)

// NullLogger returns a logger that discards all output
func NullLogger() *logging.Logger {
	return logging.NewWithOptions(logging.LevelError, logging.Options{Output: io.Discard, JSON: true})
}
