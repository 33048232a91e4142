// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package attribution implements the attribution tracker (C6): an
// append-only, per-document log of every analyzer invocation, mirrored
// best-effort into local Prometheus counters. The log itself is handed
// to the block formatter (C7) at write time rather than appended one
// record at a time — a single page write carries one attribution block
// per analyzer, not N separate store round-trips.
package attribution

import (
	"time"

	"github.com/riverscornelson/knowledge-pipeline/pkg/analyzer"
)

// Record is an append-only log entry for one analyzer invocation,
// mirroring the data model's AttributionRecord plus the analyzer kind
// and quality subscore needed to render it.
type Record struct {
	AnalyzerKind    analyzer.Kind
	ExecutionID     string
	PromptID        string
	PromptName      string
	PromptVersion   int
	Temperature     float64
	Model           string
	WebSearchUsed   bool
	DurationMS      int64
	TokenCount      int
	Timestamp       time.Time
	QualitySubscore int
	ErrorKind       string // empty on success
}

// FromResult builds a Record from one analyzer.Result, the shape every
// call site in pkg/pipeline uses.
func FromResult(r analyzer.Result) Record {
	a := r.Attribution
	return Record{
		AnalyzerKind:    r.Kind,
		ExecutionID:     a.ExecutionID,
		PromptID:        a.PromptID,
		PromptName:      a.PromptName,
		PromptVersion:   a.PromptVersion,
		Temperature:     a.Temperature,
		Model:           a.Model,
		WebSearchUsed:   a.WebSearchUsed,
		DurationMS:      a.DurationMS,
		TokenCount:      a.TokenCount,
		Timestamp:       a.Timestamp,
		QualitySubscore: r.QualitySubscore,
		ErrorKind:       a.ErrorKind,
	}
}

// Tracker accumulates Records for one document's processing run.
// It is not safe for concurrent use by multiple goroutines sharing one
// document; pkg/pipeline constructs one Tracker per document and
// fans analyzer calls out against a single instance only after the
// classifier stage that produces it has returned.
type Tracker struct {
	metrics *Metrics
	records []Record
}

// NewTracker builds a Tracker. Passing nil for metrics disables the
// Prometheus mirror entirely (tests, or a deployment with metrics off).
func NewTracker(m *Metrics) *Tracker {
	return &Tracker{metrics: m}
}

// Record appends rec to the in-memory log and, best-effort and
// non-blocking, increments the Prometheus invocation counter and
// observes the duration histogram. A nil Tracker is safe to call
// Record on (no-op), so callers that didn't wire metrics don't need a
// nil check at every call site.
func (t *Tracker) Record(rec Record) {
	if t == nil {
		return
	}
	t.records = append(t.records, rec)
	if t.metrics != nil {
		t.metrics.observe(rec)
	}
}

// Records returns the accumulated log in invocation order, the input
// pkg/formatter consumes to build the attribution block section.
func (t *Tracker) Records() []Record {
	if t == nil {
		return nil
	}
	return t.records
}

// Failed reports whether any recorded invocation carries an error
// kind, the signal pkg/pipeline uses to decide whether a page should
// still transition to Enriched or fall back to Failed.
func (t *Tracker) Failed() bool {
	for _, r := range t.Records() {
		if r.ErrorKind != "" {
			return true
		}
	}
	return false
}
