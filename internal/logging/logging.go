// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package logging configures the structured logger every pipeline
// component writes through: one JSON object per line, with spec.md
// §6's exact field names rather than slog's defaults.
package logging

import (
	"io"
	"log/slog"
)

// New builds a JSON-line logger matching spec.md §6: "time" renamed to
// "ts", "msg" renamed to "event_type", everything else passed through
// unchanged (document_fingerprint, execution_id, duration_ms, error_kind
// arrive as ordinary slog attributes from the call sites that need
// them, so there is nothing left for this handler to add).
func New(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: renameReservedKeys,
	})
	return slog.New(handler)
}

func renameReservedKeys(groups []string, a slog.Attr) slog.Attr {
	switch a.Key {
	case slog.TimeKey:
		a.Key = "ts"
	case slog.MessageKey:
		a.Key = "event_type"
	case slog.LevelKey:
		a.Key = "level"
	}
	return a
}

// WithDocument returns a logger scoped to one document's fingerprint,
// the one attribute nearly every event_type in spec.md §6 carries.
func WithDocument(l *slog.Logger, fingerprintHex string) *slog.Logger {
	return l.With("document_fingerprint", fingerprintHex)
}

// WithExecution returns a logger scoped to one analyzer invocation's
// execution id, layered on top of WithDocument for analyzer_start/
// analyzer_end events.
func WithExecution(l *slog.Logger, executionID string) *slog.Logger {
	return l.With("execution_id", executionID)
}

// Discard returns a logger that writes nowhere, for tests and any code
// path that only needs a non-nil *slog.Logger to satisfy a dependency.
func Discard() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
