// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package errors provides structured error handling for the knowledge
// pipeline CLI.
//
// This package defines UserError, a type that carries structured error
// information including what went wrong, why it happened, and how to fix
// it. It also defines the three exit codes the pipeline promises to its
// caller.
//
// # Usage Example
//
// Creating and displaying errors:
//
//	err := errors.NewConfigError(
//	    "Missing LLM provider credentials",
//	    "Neither OPENAI_API_KEY nor ANTHROPIC_API_KEY is set",
//	    "Export one of those environment variables and retry",
//	    nil,
//	)
//	if err != nil {
//	    errors.FatalError(err, false)
//	}
//
// # Exit Codes
//
//   - ExitSuccess (0): successful run, even with per-document failures counted
//   - ExitConfig (1): configuration error (missing credentials, bad env var)
//   - ExitSystem (2): unrecoverable system error (provider auth/billing
//     failure, destination store unreachable, panic)
package errors

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Exit codes the pipeline promises to its caller (spec.md §6).
const (
	// ExitSuccess indicates a completed run. Per-document failures are
	// reported in the run summary but do not change the exit code.
	ExitSuccess = 0

	// ExitConfig indicates a configuration error: missing credentials,
	// an invalid environment variable, or a schema mismatch at startup.
	ExitConfig = 1

	// ExitSystem indicates an unrecoverable system error: provider auth or
	// billing failure, destination store unreachable, or an internal panic.
	ExitSystem = 2
)

// UserError represents an error with structured context for end users.
//
// It provides three levels of information:
//   - Message: what went wrong (user-facing error description)
//   - Cause: why it happened (diagnostic information)
//   - Fix: how to fix it (actionable suggestion)
//
// UserError also carries an exit code for consistent CLI exit behavior
// and optionally wraps an underlying error for error chain compatibility.
type UserError struct {
	Message  string
	Cause    string
	Fix      string
	ExitCode int
	Err      error
}

// Error implements the error interface.
func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap implements error unwrapping for compatibility with errors.Is/As.
func (e *UserError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a configuration error with exit code ExitConfig.
func NewConfigError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitConfig, Err: err}
}

// NewSystemError creates an unrecoverable system error with exit code
// ExitSystem. Use this for provider auth/billing failures, destination
// store outages, and other errors that abort the current run entirely.
func NewSystemError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitSystem, Err: err}
}

// Color definitions for error formatting.
var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format returns a formatted error message for terminal display.
//
// Empty Cause or Fix fields are omitted from the output. Color output
// respects the NO_COLOR environment variable and can be explicitly
// disabled with the noColor parameter.
func (e *UserError) Format(noColor bool) string {
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()

	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")

	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}

	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(e.Fix)
		out.WriteString("\n")
	}

	return out.String()
}

// ErrorJSON represents error information in JSON format for --json callers.
type ErrorJSON struct {
	Error    string `json:"error"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	ExitCode int    `json:"exit_code"`
}

// ToJSON converts the UserError to a JSON-serializable structure.
func (e *UserError) ToJSON() ErrorJSON {
	return ErrorJSON{Error: e.Message, Cause: e.Cause, Fix: e.Fix, ExitCode: e.ExitCode}
}

// FatalError prints the error and exits with the appropriate code.
//
// If the error is a UserError, it uses Format() for colored output or
// ToJSON() for JSON mode. Non-UserError values print a simple message and
// exit with ExitSystem. A nil err is a no-op; for any non-nil err this
// function never returns.
func FatalError(err error, jsonOutput bool) {
	if err == nil {
		return
	}

	if ue, ok := err.(*UserError); ok {
		if jsonOutput {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			_ = enc.Encode(ue.ToJSON())
		} else {
			fmt.Fprint(os.Stderr, ue.Format(false))
		}
		os.Exit(ue.ExitCode)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitSystem)
}
