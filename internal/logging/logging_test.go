// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RenamesReservedKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo)
	logger.Info("dedup_hit", "document_fingerprint", "abcd1234")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Contains(t, decoded, "ts")
	assert.Equal(t, "dedup_hit", decoded["event_type"])
	assert.Equal(t, "INFO", decoded["level"])
	assert.Equal(t, "abcd1234", decoded["document_fingerprint"])
	assert.NotContains(t, decoded, "msg")
	assert.NotContains(t, decoded, "time")
}

func TestNew_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn)
	logger.Info("extract_result")
	assert.Empty(t, buf.Bytes())

	logger.Warn("quality_below_threshold")
	assert.NotEmpty(t, buf.Bytes())
}

func TestWithDocumentAndExecution_AttachAttributes(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo)
	scoped := WithExecution(WithDocument(logger, "fp-1"), "exec-1")
	scoped.Info("analyzer_start")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "fp-1", decoded["document_fingerprint"])
	assert.Equal(t, "exec-1", decoded["execution_id"])
}

func TestDiscard_NeverPanics(t *testing.T) {
	logger := Discard()
	assert.NotPanics(t, func() { logger.Info("run_summary") })
}
