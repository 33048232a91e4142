// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package testing provides shared fixtures for the knowledge pipeline's
// package tests: a fake destination-store lookup, a mock-backed LM
// client, and a document builder, so package tests don't each hand-roll
// the same scaffolding.
package testing

import (
	"context"
	"testing"
	"time"

	"github.com/riverscornelson/knowledge-pipeline/pkg/fingerprint"
	"github.com/riverscornelson/knowledge-pipeline/pkg/llmclient"
	"github.com/riverscornelson/knowledge-pipeline/pkg/source"
)

// FakeStore is an in-memory fingerprint.Store: a test registers the
// fingerprints it wants treated as already-seen, and every other
// fingerprint reports a miss. It satisfies the same narrow interface
// pkg/deststore.Client implements, so fingerprint.Index and anything
// built on it can be exercised without an HTTP server.
type FakeStore struct {
	Pages map[[32]byte]string // fingerprint -> page id
	Err   error
}

// NewFakeStore returns an empty FakeStore; use Seed to register hits.
func NewFakeStore() *FakeStore {
	return &FakeStore{Pages: make(map[[32]byte]string)}
}

// Seed registers fp as already present under pageID.
func (s *FakeStore) Seed(fp [32]byte, pageID string) {
	s.Pages[fp] = pageID
}

// FindByFingerprint implements fingerprint.Store.
func (s *FakeStore) FindByFingerprint(ctx context.Context, fp [32]byte) (string, bool, error) {
	if s.Err != nil {
		return "", false, s.Err
	}
	pageID, found := s.Pages[fp]
	return pageID, found, nil
}

// NewFakeIndex wraps a fresh FakeStore in a fingerprint.Index, the
// common case of a dedup check that should always miss.
func NewFakeIndex() *fingerprint.Index {
	return fingerprint.NewIndex(NewFakeStore())
}

// NewMockLLMClient builds an llmclient.Client backed by
// llmclient.MockProvider, with chatFunc controlling the canned
// completion text. Client.Complete/CompleteWithSearch both call through
// to Provider.Chat, so this wires ChatFunc; a nil chatFunc falls back
// to MockProvider's default echo behavior.
func NewMockLLMClient(t *testing.T, chatFunc func(ctx context.Context, req llmclient.ChatRequest) (*llmclient.ChatResponse, error)) *llmclient.Client {
	t.Helper()
	provider := &llmclient.MockProvider{ChatFunc: chatFunc}
	return llmclient.NewClient(provider, 0, nil)
}

// SampleDocumentOpt customizes a document built by SampleDocument.
type SampleDocumentOpt func(*source.Document)

// WithRawBytes sets RawBytes and derives Fingerprint from them via
// fingerprint.Fingerprint, keeping the two in sync the way ingestion
// would.
func WithRawBytes(b []byte) SampleDocumentOpt {
	return func(d *source.Document) {
		d.RawBytes = b
		d.Fingerprint = fingerprint.Fingerprint(b)
	}
}

// WithDisplayName overrides the document's display name.
func WithDisplayName(name string) SampleDocumentOpt {
	return func(d *source.Document) { d.DisplayName = name }
}

// WithOrigin overrides the document's origin and external URL.
func WithOrigin(o source.Origin, externalURL string) SampleDocumentOpt {
	return func(d *source.Document) {
		d.Origin = o
		d.ExternalURL = externalURL
	}
}

// SampleDocument returns a local-origin document with deterministic
// content, overridden by opts.
func SampleDocument(opts ...SampleDocumentOpt) source.Document {
	doc := source.Document{
		Origin:      source.OriginLocal,
		DisplayName: "Sample Document",
		RawBytes:    []byte("sample document content"),
	}
	doc.Fingerprint = fingerprint.Fingerprint(doc.RawBytes)
	for _, opt := range opts {
		opt(&doc)
	}
	return doc
}

// FixedExtractor always returns the same (text, ok) pair, letting a
// test force the EMPTY_TEXT or NON_EMPTY extraction branch without a
// real PDF parser.
type FixedExtractor struct {
	ExtractorName string
	Text          string
	OK            bool
}

func (e FixedExtractor) Name() string { return e.ExtractorName }
func (e FixedExtractor) Extract(ctx context.Context, raw []byte) (string, bool) {
	return e.Text, e.OK
}

// ShortTimeout returns a context.Context with a short deadline, for
// tests exercising the per-call timeout paths of spec.md §5.
func ShortTimeout(t *testing.T, d time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	t.Cleanup(cancel)
	return ctx
}
