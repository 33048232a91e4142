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

package pipeline

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverscornelson/knowledge-pipeline/pkg/analyzer"
	"github.com/riverscornelson/knowledge-pipeline/pkg/deststore"
	"github.com/riverscornelson/knowledge-pipeline/pkg/fingerprint"
	"github.com/riverscornelson/knowledge-pipeline/pkg/source"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is a minimal fingerprint.Store that never reports a hit
// unless seeded, so tests don't need a live destination store just to
// exercise CHECK_DUP.
type fakeStore struct {
	found bool
}

func (f *fakeStore) FindByFingerprint(ctx context.Context, fp [32]byte) (string, bool, error) {
	return "", f.found, nil
}

// fakeExtractor always returns the configured text, letting tests force
// either the EMPTY_TEXT or NON_EMPTY extraction branch.
type fakeExtractor struct {
	text string
	ok   bool
}

func (f fakeExtractor) Name() string { return "fake" }
func (f fakeExtractor) Extract(ctx context.Context, raw []byte) (string, bool) {
	return f.text, f.ok
}

// fakeAnalyzer returns a scripted Result regardless of input, letting
// each test control which analyzers succeed or fail without a live
// prompt store or LLM provider.
type fakeAnalyzer struct {
	kind   analyzer.Kind
	result analyzer.Result
}

func (f fakeAnalyzer) Kind() analyzer.Kind { return f.kind }
func (f fakeAnalyzer) Analyze(ctx context.Context, in analyzer.AnalyzeInput) analyzer.Result {
	return f.result
}

func okResult(kind analyzer.Kind, content any) analyzer.Result {
	return analyzer.Result{
		Kind:    kind,
		Content: content,
		Attribution: analyzer.AttributionRecord{
			ExecutionID: "exec-1",
			Model:       "test-model",
			Timestamp:   time.Unix(0, 0),
		},
	}
}

func failedResult(kind analyzer.Kind) analyzer.Result {
	return analyzer.Result{
		Kind:   kind,
		Failed: true,
		Attribution: analyzer.AttributionRecord{
			ExecutionID: "exec-1",
			ErrorKind:   "transient",
			Timestamp:   time.Unix(0, 0),
		},
	}
}

func baseAnalyzers() AnalyzerSet {
	return AnalyzerSet{
		Classifier: fakeAnalyzer{kind: analyzer.Classifier, result: okResult(analyzer.Classifier, analyzer.ClassifierContent{
			ContentType: "vendor_capability",
			Confidence:  0.9,
		})},
		Summarizer: fakeAnalyzer{kind: analyzer.Summarizer, result: okResult(analyzer.Summarizer, analyzer.SummarizerContent{
			Markdown: "## Summary\nshort summary.",
		})},
		Insights: fakeAnalyzer{kind: analyzer.Insights, result: okResult(analyzer.Insights, analyzer.InsightsContent{
			Bullets: []string{"first insight"},
		})},
		Tagger: fakeAnalyzer{kind: analyzer.Tagger, result: okResult(analyzer.Tagger, analyzer.TaggerContent{
			TopicalTags: []string{"llm"},
			DomainTags:  []string{"infra"},
		})},
		ContentTagger: fakeAnalyzer{kind: analyzer.ContentTagger, result: okResult(analyzer.ContentTagger, analyzer.ContentTaggerContent{
			Tags: []string{"pdf"},
		})},
	}
}

func testDoc() source.Document {
	return source.Document{
		Fingerprint: fingerprint.Fingerprint([]byte("doc-bytes")),
		Origin:      source.OriginLocal,
		DisplayName: "Example Doc",
		RawBytes:    []byte("doc-bytes"),
	}
}

// newWriteServer builds a destination-store client backed by an
// httptest server recording create/update calls, mirroring the
// pattern pkg/deststore's own tests use against httptest.Server.
func newWriteServer(t *testing.T, onCreate func(w http.ResponseWriter, body map[string]any), onUpdate func(w http.ResponseWriter, body map[string]any)) *deststore.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch r.Method {
		case http.MethodPost:
			onCreate(w, body)
		case http.MethodPatch:
			onUpdate(w, body)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(srv.Close)
	return deststore.NewClient(srv.URL, "test-key", time.Millisecond, testLogger())
}

func TestProcessOne_DuplicateSkipsExtractionAndWrite(t *testing.T) {
	p := &Processor{
		Dedup:      fingerprint.NewIndex(&fakeStore{found: true}),
		Extractors: []source.Extractor{fakeExtractor{ok: false}},
		Analyzers:  baseAnalyzers(),
		Logger:     testLogger(),
		DryRun:     true,
	}

	outcome := p.processOne(t.Context(), testDoc())
	assert.Equal(t, OutcomeDuplicate, outcome)
}

func TestProcessOne_SkipEnrichmentWritesInboxWithoutAnalysis(t *testing.T) {
	var captured map[string]any
	dest := newWriteServer(t,
		func(w http.ResponseWriter, body map[string]any) {
			captured = body
			_ = json.NewEncoder(w).Encode(map[string]any{"page_id": "page-1"})
		},
		func(w http.ResponseWriter, body map[string]any) {
			t.Fatalf("unexpected update call")
		},
	)

	p := &Processor{
		Dedup:          fingerprint.NewIndex(&fakeStore{found: false}),
		Extractors:     []source.Extractor{fakeExtractor{ok: false}},
		Analyzers:      AnalyzerSet{Classifier: fakeAnalyzer{kind: analyzer.Classifier}},
		Dest:           dest,
		Logger:         testLogger(),
		SkipEnrichment: true,
	}

	outcome := p.processOne(t.Context(), testDoc())
	require.Equal(t, OutcomeIngested, outcome)
	require.NotNil(t, captured)
	assert.Equal(t, "Inbox", captured["status"])
	assert.Nil(t, captured["content_type"])
}

func TestProcessOne_SkipEnrichmentDryRunSkipsWrite(t *testing.T) {
	p := &Processor{
		Dedup:          fingerprint.NewIndex(&fakeStore{found: false}),
		Extractors:     []source.Extractor{fakeExtractor{ok: false}},
		Logger:         testLogger(),
		SkipEnrichment: true,
		DryRun:         true,
	}

	outcome := p.processOne(t.Context(), testDoc())
	assert.Equal(t, OutcomeIngested, outcome)
}

func TestProcessOne_EmptyExtractionYieldsFailed(t *testing.T) {
	p := &Processor{
		Dedup:      fingerprint.NewIndex(&fakeStore{found: false}),
		Extractors: []source.Extractor{fakeExtractor{ok: false}},
		Analyzers:  baseAnalyzers(),
		Logger:     testLogger(),
		DryRun:     true,
	}

	outcome := p.processOne(t.Context(), testDoc())
	assert.Equal(t, OutcomeFailed, outcome)
}

func TestProcessOne_ClassifierFailureYieldsFailed(t *testing.T) {
	analyzers := baseAnalyzers()
	analyzers.Classifier = fakeAnalyzer{kind: analyzer.Classifier, result: failedResult(analyzer.Classifier)}

	p := &Processor{
		Dedup:      fingerprint.NewIndex(&fakeStore{found: false}),
		Extractors: []source.Extractor{fakeExtractor{text: "usable text", ok: true}},
		Analyzers:  analyzers,
		Logger:     testLogger(),
		DryRun:     true,
	}

	outcome := p.processOne(t.Context(), testDoc())
	assert.Equal(t, OutcomeFailed, outcome)
}

func TestProcessOne_NonClassifierFailureStillEnriched(t *testing.T) {
	analyzers := baseAnalyzers()
	analyzers.Summarizer = fakeAnalyzer{kind: analyzer.Summarizer, result: failedResult(analyzer.Summarizer)}

	p := &Processor{
		Dedup:      fingerprint.NewIndex(&fakeStore{found: false}),
		Extractors: []source.Extractor{fakeExtractor{text: "usable text", ok: true}},
		Analyzers:  analyzers,
		Logger:     testLogger(),
		DryRun:     true,
	}

	outcome := p.processOne(t.Context(), testDoc())
	assert.Equal(t, OutcomeEnriched, outcome, "a failed non-classifier analyzer should not sink the whole page")
}

func TestProcessOne_WritesCreatedPageWithStatusAndBlocks(t *testing.T) {
	var captured map[string]any
	dest := newWriteServer(t,
		func(w http.ResponseWriter, body map[string]any) {
			captured = body
			_ = json.NewEncoder(w).Encode(map[string]any{"page_id": "page-1"})
		},
		func(w http.ResponseWriter, body map[string]any) {
			t.Fatalf("unexpected update call")
		},
	)

	p := &Processor{
		Dedup:      fingerprint.NewIndex(&fakeStore{found: false}),
		Extractors: []source.Extractor{fakeExtractor{text: "usable text", ok: true}},
		Analyzers:  baseAnalyzers(),
		Dest:       dest,
		MaxBlocks:  15,
		Logger:     testLogger(),
	}

	outcome := p.processOne(t.Context(), testDoc())
	require.Equal(t, OutcomeEnriched, outcome)
	require.NotNil(t, captured)
	assert.Equal(t, "Enriched", captured["status"])
	assert.Equal(t, "vendor_capability", captured["content_type"])
	blocks, _ := captured["blocks"].([]any)
	assert.NotEmpty(t, blocks)
}

func TestProcessOne_CreateConflictFallsBackToUpdate(t *testing.T) {
	var updateCalled bool
	dest := newWriteServer(t,
		func(w http.ResponseWriter, body map[string]any) {
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(map[string]any{"page_id": "existing-page"})
		},
		func(w http.ResponseWriter, body map[string]any) {
			updateCalled = true
			w.WriteHeader(http.StatusOK)
		},
	)

	p := &Processor{
		Dedup:      fingerprint.NewIndex(&fakeStore{found: false}),
		Extractors: []source.Extractor{fakeExtractor{text: "usable text", ok: true}},
		Analyzers:  baseAnalyzers(),
		Dest:       dest,
		Logger:     testLogger(),
	}

	outcome := p.processOne(t.Context(), testDoc())
	assert.Equal(t, OutcomeEnriched, outcome)
	assert.True(t, updateCalled, "a 409 on create should fall back to an update against the existing page")
}

func TestProcessOne_WriteFailureYieldsFailed(t *testing.T) {
	dest := newWriteServer(t,
		func(w http.ResponseWriter, body map[string]any) {
			w.WriteHeader(http.StatusBadRequest)
		},
		func(w http.ResponseWriter, body map[string]any) {},
	)

	p := &Processor{
		Dedup:      fingerprint.NewIndex(&fakeStore{found: false}),
		Extractors: []source.Extractor{fakeExtractor{text: "usable text", ok: true}},
		Analyzers:  baseAnalyzers(),
		Dest:       dest,
		Logger:     testLogger(),
	}

	outcome := p.processOne(t.Context(), testDoc())
	assert.Equal(t, OutcomeFailed, outcome)
}

func TestProcessOne_TechnicalAnalyzerGatedByContentType(t *testing.T) {
	var technicalCalled int32
	var mu sync.Mutex
	analyzers := baseAnalyzers()
	analyzers.TechnicalContentTypes = map[string]bool{"vendor_capability": true}

	countingTechnical := fakeAnalyzerFunc{
		kind: analyzer.Technical,
		fn: func(ctx context.Context, in analyzer.AnalyzeInput) analyzer.Result {
			mu.Lock()
			technicalCalled++
			mu.Unlock()
			return okResult(analyzer.Technical, analyzer.SpecializedContent{Note: "deep dive"})
		},
	}
	analyzers.Technical = countingTechnical

	p := &Processor{
		Dedup:      fingerprint.NewIndex(&fakeStore{found: false}),
		Extractors: []source.Extractor{fakeExtractor{text: "usable text", ok: true}},
		Analyzers:  analyzers,
		Logger:     testLogger(),
		DryRun:     true,
	}

	outcome := p.processOne(t.Context(), testDoc())
	assert.Equal(t, OutcomeEnriched, outcome)
	mu.Lock()
	assert.EqualValues(t, 1, technicalCalled)
	mu.Unlock()
}

// fakeAnalyzerFunc lets a test observe invocation without hand-rolling
// a new named type per assertion.
type fakeAnalyzerFunc struct {
	kind analyzer.Kind
	fn   func(context.Context, analyzer.AnalyzeInput) analyzer.Result
}

func (f fakeAnalyzerFunc) Kind() analyzer.Kind { return f.kind }
func (f fakeAnalyzerFunc) Analyze(ctx context.Context, in analyzer.AnalyzeInput) analyzer.Result {
	return f.fn(ctx, in)
}

func TestRun_AccumulatesCounters(t *testing.T) {
	p := &Processor{
		Dedup:      fingerprint.NewIndex(&fakeStore{found: false}),
		Extractors: []source.Extractor{fakeExtractor{text: "usable text", ok: true}},
		Analyzers:  baseAnalyzers(),
		Logger:     testLogger(),
		DryRun:     true,
	}

	docs := make(chan source.Document, 2)
	docs <- testDoc()
	docs <- testDoc()
	close(docs)

	summary := p.Run(context.Background(), docs)
	assert.Equal(t, 2, summary.Scanned)
	assert.Equal(t, 2, summary.Enriched)
}

func TestRun_StopsStartingNewDocumentsAfterCancellation(t *testing.T) {
	p := &Processor{
		Dedup:      fingerprint.NewIndex(&fakeStore{found: false}),
		Extractors: []source.Extractor{fakeExtractor{text: "usable text", ok: true}},
		Analyzers:  baseAnalyzers(),
		Logger:     testLogger(),
		DryRun:     true,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	docs := make(chan source.Document, 1)
	docs <- testDoc()
	close(docs)

	summary := p.Run(ctx, docs)
	assert.Equal(t, 1, summary.NotAttempted)
	assert.Equal(t, 0, summary.Scanned)
}
