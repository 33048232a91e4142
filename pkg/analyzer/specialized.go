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
	"strings"

	"github.com/riverscornelson/knowledge-pipeline/pkg/llmclient"
	"github.com/riverscornelson/knowledge-pipeline/pkg/promptstore"
)

// SpecializedContent is the shared shape of the content-type-specialized
// analyzers (Technical, Market): a short structured note folded into
// the formatter's "Key Insights" section alongside the plain Insights
// bullets.
type SpecializedContent struct {
	Note string `json:"note"`
}

// TechnicalAnalyzer produces a technical-depth assessment, enabled only
// for content types in the configured TECHNICAL_CONTENT_TYPES set.
type TechnicalAnalyzer struct {
	base
}

func NewTechnical(prompts *promptstore.Store, llm *llmclient.Client) *TechnicalAnalyzer {
	return &TechnicalAnalyzer{base: newBase(Technical, prompts, llm, false, 10000)}
}

func (a *TechnicalAnalyzer) Kind() Kind { return Technical }

func (a *TechnicalAnalyzer) Analyze(ctx context.Context, in AnalyzeInput) Result {
	text, attr, failed := a.run(ctx, in)
	if failed {
		return Result{Kind: Technical, Attribution: attr, Failed: true}
	}
	note := strings.TrimSpace(text)
	score := 0
	if note != "" {
		score = 70
	}
	return Result{Kind: Technical, Content: SpecializedContent{Note: note}, RawText: text, QualitySubscore: score, Attribution: attr}
}

// MarketAnalyzer produces a vendor/ticker-aware market-impact note,
// enabled only for content types in the configured MARKET_CONTENT_TYPES
// set.
type MarketAnalyzer struct {
	base
}

func NewMarket(prompts *promptstore.Store, llm *llmclient.Client, webSearch bool) *MarketAnalyzer {
	return &MarketAnalyzer{base: newBase(Market, prompts, llm, webSearch, 10000)}
}

func (a *MarketAnalyzer) Kind() Kind { return Market }

func (a *MarketAnalyzer) Analyze(ctx context.Context, in AnalyzeInput) Result {
	text, attr, failed := a.run(ctx, in)
	if failed {
		return Result{Kind: Market, Attribution: attr, Failed: true}
	}
	note := strings.TrimSpace(text)
	score := 0
	if note != "" {
		score = 70
	}
	return Result{Kind: Market, Content: SpecializedContent{Note: note}, RawText: text, QualitySubscore: score, Attribution: attr}
}

// EnabledContentTypes parses a comma-separated env value (e.g.
// TECHNICAL_CONTENT_TYPES) into a case-insensitive membership set.
func EnabledContentTypes(csv string) map[string]bool {
	set := make(map[string]bool)
	for _, part := range strings.Split(csv, ",") {
		if t := strings.ToLower(strings.TrimSpace(part)); t != "" {
			set[t] = true
		}
	}
	return set
}
