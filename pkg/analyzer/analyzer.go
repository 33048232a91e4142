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

// Package analyzer implements the multi-stage analysis layer (C4): one
// small Analyzer per analysis kind, each wrapping the prompt store and
// language-model client behind a uniform Analyze contract, and each
// responsible for defensively parsing whatever the model returns into
// a typed result with attribution.
package analyzer

import (
	"context"
	"time"

	"github.com/riverscornelson/knowledge-pipeline/pkg/llmclient"
	"github.com/riverscornelson/knowledge-pipeline/pkg/promptstore"
)

// Kind identifies an analyzer's role. technical and market are
// content-type-specialized variants supplementing the five named in
// spec.md's Analyzer contract; both produce a SpecializedContent note
// and render under their own attribution analyzer_kind.
type Kind string

const (
	Classifier    Kind = "classifier"
	Summarizer    Kind = "summarizer"
	Insights      Kind = "insights"
	Tagger        Kind = "tagger"
	ContentTagger Kind = "content_tagger"
	Technical     Kind = "technical"
	Market        Kind = "market"
)

// AttributionRecord mirrors the data model's AttributionRecord,
// populated on every result, including failed ones.
type AttributionRecord struct {
	ExecutionID   string
	PromptID      string
	PromptName    string
	PromptVersion int
	Temperature   float64
	Model         string
	WebSearchUsed bool
	DurationMS    int64
	TokenCount    int
	Timestamp     time.Time
	ErrorKind     string // empty on success
}

// Result is the output of one analyzer invocation.
type Result struct {
	Kind             Kind
	Content          any // structured payload; shape varies per Kind
	RawText          string
	QualitySubscore  int
	Attribution      AttributionRecord
	Failed           bool
}

// AnalyzeInput carries everything an analyzer needs. ContentTypeHint is
// empty for the classifier itself (which produces it) and populated
// from the classifier's output for every analyzer run afterward.
type AnalyzeInput struct {
	Title           string
	Content         string
	ContentTypeHint string
	Hints           string
	ExecutionID     string
	Model           string
}

// Analyzer is the uniform contract every analysis kind implements.
type Analyzer interface {
	Kind() Kind
	Analyze(ctx context.Context, in AnalyzeInput) Result
}

// base bundles the two collaborators every analyzer needs and the
// shared resolve/render/invoke/parse steps of spec.md §4.4's common
// behavior, so each concrete analyzer only supplies its own prompt
// selection quirks, output shape, and quality heuristic.
type base struct {
	kind        Kind
	prompts     *promptstore.Store
	llm         *llmclient.Client
	webSearch   bool
	charBudget  int
}

func newBase(kind Kind, prompts *promptstore.Store, llm *llmclient.Client, webSearch bool, charBudget int) base {
	if charBudget <= 0 {
		charBudget = 8000
	}
	return base{kind: kind, prompts: prompts, llm: llm, webSearch: webSearch, charBudget: charBudget}
}

func (b base) truncate(content string) string {
	if len(content) <= b.charBudget {
		return content
	}
	return content[:b.charBudget]
}

// run resolves the template, renders it, invokes C3 (tool-augmented
// only if both the template and the caller's flag allow it), and
// returns the raw response text plus a fully populated attribution
// record. A transport failure still returns an attribution record
// carrying ErrorKind, per spec.md §7 ("only configuration errors
// escape to the process boundary").
func (b base) run(ctx context.Context, in AnalyzeInput) (text string, attr AttributionRecord, failed bool) {
	contentType := in.ContentTypeHint
	if contentType == "" {
		contentType = "default"
	}
	tmpl := b.prompts.Get(ctx, contentType, string(b.kind))

	user := tmpl.Render(in.Title, b.truncate(in.Content), contentType, in.Hints)
	model := in.Model // empty lets the provider pick its configured default

	attr = AttributionRecord{
		ExecutionID:   in.ExecutionID,
		PromptID:      tmpl.ID,
		PromptName:    tmpl.Name,
		PromptVersion: tmpl.Version,
		Temperature:   tmpl.Temperature,
		Timestamp:     time.Now(),
	}

	useSearch := tmpl.WebSearchEnabled && b.webSearch
	var (
		out  string
		meta llmclient.CompletionMeta
		err  error
	)
	if useSearch {
		out, meta, err = b.llm.CompleteWithSearch(ctx, tmpl.SystemText, user, tmpl.Temperature, model)
	} else {
		out, meta, err = b.llm.Complete(ctx, tmpl.SystemText, user, tmpl.Temperature, model)
	}

	if err != nil {
		attr.ErrorKind = errorKind(err)
		return "", attr, true
	}

	attr.Model = meta.Model
	attr.WebSearchUsed = meta.WebSearchUsed
	attr.DurationMS = meta.LatencyMS
	attr.TokenCount = meta.Tokens
	return out, attr, false
}
