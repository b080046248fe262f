// Package testlog provides a discard-output slog.Logger for tests that
// need to construct components expecting a logger without asserting on
// log output.
package testlog

import (
	"io"
	"log/slog"
)

// New returns a slog.Logger that writes to io.Discard.
func New() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
