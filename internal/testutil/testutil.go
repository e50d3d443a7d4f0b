// Package testutil provides shared helpers for package tests.
package testutil

import (
	"testing"

	"github.com/rs/zerolog"
)

// NewTestLogger returns a logger that writes through t.Log so output is
// attributed to the failing test.
func NewTestLogger(t *testing.T) zerolog.Logger {
	t.Helper()
	return zerolog.New(zerolog.NewTestWriter(t)).With().Timestamp().Logger()
}

// NopLogger returns a logger that discards everything.
func NopLogger() zerolog.Logger {
	return zerolog.Nop()
}
