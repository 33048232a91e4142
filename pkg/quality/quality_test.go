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

package quality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/riverscornelson/knowledge-pipeline/pkg/analyzer"
	"github.com/riverscornelson/knowledge-pipeline/pkg/deststore"
	"github.com/riverscornelson/knowledge-pipeline/pkg/source"
)

func TestCompute_ClampsAndDerivesIndicator(t *testing.T) {
	s := Compute(Components{Relevance: 100, Completeness: 100, Actionability: 100})
	assert.Equal(t, 40, s.Components.Relevance)
	assert.Equal(t, 30, s.Components.Completeness)
	assert.Equal(t, 30, s.Components.Actionability)
	assert.Equal(t, 100, s.Overall)
	assert.Equal(t, Excellent, s.Indicator)
	assert.Equal(t, "🌟", s.Indicator.Emoji())
}

func TestIndicatorThresholds(t *testing.T) {
	cases := []struct {
		overall int
		want    Indicator
	}{
		{85, Excellent},
		{84, Good},
		{70, Good},
		{69, Fair},
		{50, Fair},
		{49, Poor},
		{0, Poor},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, indicatorFor(c.overall))
	}
}

func TestScore_FullResultsProduceHighComposite(t *testing.T) {
	results := []analyzer.Result{
		{Kind: analyzer.Classifier, Content: analyzer.ClassifierContent{
			ContentType: "Market News", Confidence: 0.9, AIPrimitives: []string{"LLM", "RAG"},
		}},
		{Kind: analyzer.Summarizer, Content: analyzer.SummarizerContent{Markdown: "## Summary\n\n- a\n- b"}},
		{Kind: analyzer.Insights, Content: analyzer.InsightsContent{Bullets: []string{
			"Monitor LLM vendor pricing changes",
			"Consider RAG pipeline migration",
			"Review quarterly guidance",
		}}},
		{Kind: analyzer.ContentTagger, Content: analyzer.ContentTaggerContent{Tags: []string{"AI", "Cloud", "Earnings"}}},
	}

	score := Score(results, source.ExtractedText{Text: "body"})
	assert.Greater(t, score.Components.Relevance, 0)
	assert.Equal(t, 30, score.Components.Completeness)
	assert.Greater(t, score.Components.Actionability, 0)
	assert.Greater(t, score.Overall, 50)
}

func TestScore_EmptyResultsYieldZero(t *testing.T) {
	score := Score(nil, source.ExtractedText{})
	assert.Equal(t, 0, score.Overall)
	assert.Equal(t, Poor, score.Indicator)
}

func TestProxyScore_RewardsRichRecentEnrichedPage(t *testing.T) {
	page := deststore.PageProperties{
		Vendor:        "Acme",
		AIPrimitives:  []string{"LLM"},
		TopicalTags:   []string{"Cloud"},
		DomainTags:    []string{"Fintech"},
		ContentTags:   []string{"AI", "Cloud", "Earnings"},
		ContentLength: 3000,
		Status:        deststore.StatusEnriched,
		CreatedDate:   time.Now().Add(-24 * time.Hour),
	}
	score := ProxyScore(page)
	assert.Equal(t, 40, score.Components.Relevance)
	assert.Equal(t, 30, score.Components.Completeness)
	assert.Equal(t, 30, score.Components.Actionability)
	assert.Equal(t, Excellent, score.Indicator)
}

func TestProxyScore_SparseFailedPageScoresLow(t *testing.T) {
	page := deststore.PageProperties{Status: deststore.StatusFailed}
	score := ProxyScore(page)
	assert.Equal(t, 0, score.Overall)
	assert.Equal(t, Poor, score.Indicator)
}

func TestProxyToleranceWiderThanExplicit(t *testing.T) {
	assert.Greater(t, ProxyTolerance(), ExplicitTolerance)
}
