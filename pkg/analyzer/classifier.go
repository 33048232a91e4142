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

package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/riverscornelson/knowledge-pipeline/internal/parseutil"
	"github.com/riverscornelson/knowledge-pipeline/pkg/llmclient"
	"github.com/riverscornelson/knowledge-pipeline/pkg/promptstore"
)

// ClassifierContent is the structured output of the Classifier analyzer.
type ClassifierContent struct {
	ContentType  string   `json:"content_type"`
	AIPrimitives []string `json:"ai_primitives"`
	Vendor       string   `json:"vendor,omitempty"`
	Confidence   float64  `json:"confidence"`
	Reasoning    string   `json:"reasoning"`
}

// ClassifierAnalyzer assigns the document's content type from a fixed
// taxonomy, never inventing a value outside it (spec.md §4.4).
type ClassifierAnalyzer struct {
	base
	Taxonomy     []string
	KnownVendors []string
	DefaultType  string
}

// NewClassifier builds a ClassifierAnalyzer. defaultType is used when
// the model's answer isn't in taxonomy.
func NewClassifier(prompts *promptstore.Store, llm *llmclient.Client, taxonomy, vendors []string, defaultType string) *ClassifierAnalyzer {
	if defaultType == "" {
		defaultType = "Other"
	}
	return &ClassifierAnalyzer{
		base:         newBase(Classifier, prompts, llm, false, 6000),
		Taxonomy:     taxonomy,
		KnownVendors: vendors,
		DefaultType:  defaultType,
	}
}

func (a *ClassifierAnalyzer) Kind() Kind { return Classifier }

func (a *ClassifierAnalyzer) Analyze(ctx context.Context, in AnalyzeInput) Result {
	hints := in.Hints
	if hints == "" {
		hints = fmt.Sprintf("Known content types: %s. Known vendors: %s.",
			strings.Join(a.Taxonomy, ", "), strings.Join(a.KnownVendors, ", "))
	}
	in.Hints = hints

	text, attr, failed := a.run(ctx, in)
	if failed {
		return Result{Kind: Classifier, Attribution: attr, Failed: true}
	}

	content := a.parse(text)
	subscore := a.score(content)

	return Result{
		Kind:            Classifier,
		Content:         content,
		RawText:         text,
		QualitySubscore: subscore,
		Attribution:     attr,
	}
}

func (a *ClassifierAnalyzer) parse(text string) ClassifierContent {
	var c ClassifierContent
	if raw, ok := parseutil.ExtractJSON(text); ok {
		_ = json.Unmarshal(raw, &c)
	}
	if c.ContentType == "" || !a.inTaxonomy(c.ContentType) {
		c.ContentType = a.DefaultType
	}
	if len(c.AIPrimitives) > 3 {
		c.AIPrimitives = c.AIPrimitives[:3]
	}
	if c.Confidence < 0 {
		c.Confidence = 0
	}
	if c.Confidence > 1 {
		c.Confidence = 1
	}
	return c
}

func (a *ClassifierAnalyzer) inTaxonomy(ct string) bool {
	if len(a.Taxonomy) == 0 {
		return true
	}
	for _, t := range a.Taxonomy {
		if strings.EqualFold(t, ct) {
			return true
		}
	}
	return false
}

// score rewards a confident, non-empty classification; a full
// composite score is computed later by pkg/quality, this is only the
// per-analyzer proxy used while the page is being assembled.
func (a *ClassifierAnalyzer) score(c ClassifierContent) int {
	score := 40
	if c.Confidence >= 0.7 {
		score += 30
	} else {
		score += int(c.Confidence * 30)
	}
	if c.ContentType != "" && c.ContentType != a.DefaultType {
		score += 20
	}
	if len(c.AIPrimitives) > 0 {
		score += 10
	}
	if score > 100 {
		score = 100
	}
	return score
}
