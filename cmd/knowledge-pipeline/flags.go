// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

// GlobalFlags carries the CLI flags that affect how output is rendered
// rather than what the pipeline does: progress.go and internal/errors,
// internal/ui consult these rather than taking four separate booleans.
type GlobalFlags struct {
	// JSON switches the run summary and fatal errors to machine-readable
	// JSON on stdout/stderr instead of the colored human-readable format.
	JSON bool

	// Quiet suppresses the progress bar and the colored ingestion
	// warnings; the structured JSON log lines on stdout are still
	// written. --json implies Quiet.
	Quiet bool

	// NoColor disables ANSI color codes, honored in addition to the
	// NO_COLOR environment variable internal/errors already checks.
	NoColor bool

	// Verbose lowers the logger's level to slog.LevelDebug.
	Verbose bool
}
