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
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverscornelson/knowledge-pipeline/pkg/llmclient"
	"github.com/riverscornelson/knowledge-pipeline/pkg/promptstore"
)

const fixtureYAML = `
prompts:
  - id: local-default-classifier
    name: "Default Classifier"
    content_type: default
    analyzer: classifier
    system_text: "classify"
    user_template: "Title: {{title}}\n{{content}}\n{{hints}}"
    temperature: 0.1
    version: 1
  - id: local-default-content_tagger
    name: "Default Content Tagger"
    content_type: default
    analyzer: content_tagger
    system_text: "tag"
    user_template: "{{title}}\n{{content}}"
    temperature: 0.1
    version: 1
  - id: local-default-summarizer
    name: "Default Summarizer"
    content_type: default
    analyzer: summarizer
    system_text: "summarize"
    user_template: "{{title}}\n{{content}}"
    temperature: 0.3
    version: 1
  - id: local-default-insights
    name: "Default Insights"
    content_type: default
    analyzer: insights
    system_text: "insights"
    user_template: "{{title}}\n{{content}}"
    temperature: 0.4
    web_search_enabled: true
    version: 1
  - id: local-default-tagger
    name: "Default Tagger"
    content_type: default
    analyzer: tagger
    system_text: "tag topics"
    user_template: "{{title}}\n{{content}}"
    temperature: 0.1
    version: 1
`

func newTestStore(t *testing.T) *promptstore.Store {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "defaults.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixtureYAML), 0o644))
	store := promptstore.NewStore(nil, path, nil)
	require.NoError(t, store.Refresh(context.Background()))
	return store
}

func clientWithResponse(text string) *llmclient.Client {
	provider := &llmclient.MockProvider{
		ChatFunc: func(ctx context.Context, req llmclient.ChatRequest) (*llmclient.ChatResponse, error) {
			return &llmclient.ChatResponse{Message: llmclient.Message{Content: text}, Model: "mock-model"}, nil
		},
	}
	return llmclient.NewClient(provider, 0, nil)
}

func clientWithError(err error) *llmclient.Client {
	provider := &llmclient.MockProvider{
		ChatFunc: func(ctx context.Context, req llmclient.ChatRequest) (*llmclient.ChatResponse, error) {
			return nil, err
		},
	}
	c := llmclient.NewClient(provider, 0, nil)
	return c
}

func TestClassifierAnalyzer_ParsesJSONAndEnforcesTaxonomy(t *testing.T) {
	store := newTestStore(t)
	llm := clientWithResponse(`{"content_type": "Market News", "ai_primitives": ["LLM", "RAG", "Agents", "extra"], "confidence": 0.95, "reasoning": "mentions earnings"}`)
	c := NewClassifier(store, llm, []string{"Market News", "Technical Blog"}, nil, "Other")

	result := c.Analyze(context.Background(), AnalyzeInput{Title: "Apple Q3", Content: "earnings text"})
	require.False(t, result.Failed)
	content := result.Content.(ClassifierContent)
	assert.Equal(t, "Market News", content.ContentType)
	assert.Len(t, content.AIPrimitives, 3)
	assert.True(t, result.QualitySubscore >= 70)
}

func TestClassifierAnalyzer_OutOfTaxonomyFallsBackToDefault(t *testing.T) {
	store := newTestStore(t)
	llm := clientWithResponse(`{"content_type": "Made Up Type", "confidence": 0.5}`)
	c := NewClassifier(store, llm, []string{"Market News"}, nil, "Other")

	result := c.Analyze(context.Background(), AnalyzeInput{Title: "x", Content: "y"})
	content := result.Content.(ClassifierContent)
	assert.Equal(t, "Other", content.ContentType)
}

func TestClassifierAnalyzer_ProviderFailureSetsAttributionErrorKind(t *testing.T) {
	store := newTestStore(t)
	llm := clientWithError(errors.New("401 unauthorized"))
	c := NewClassifier(store, llm, nil, nil, "Other")

	result := c.Analyze(context.Background(), AnalyzeInput{Title: "x", Content: "y"})
	assert.True(t, result.Failed)
	assert.Equal(t, "unrecoverable_provider", result.Attribution.ErrorKind)
}

func TestContentTaggerAnalyzer_NormalizesTags(t *testing.T) {
	store := newTestStore(t)
	llm := clientWithResponse(`{"content_tags": ["machine learning platform update", "machine Learning Platform Update", "AI", "ai", "Cloud Infra", "   ", "Very Long Tag That Exceeds The Fifty Character Budget By A Lot"]}`)
	tagger := NewContentTagger(store, llm)

	result := tagger.Analyze(context.Background(), AnalyzeInput{Title: "x", Content: "y"})
	content := result.Content.(ContentTaggerContent)
	assert.LessOrEqual(t, len(content.Tags), 7)
	assert.GreaterOrEqual(t, len(content.Tags), 1)
	for _, tag := range content.Tags {
		assert.LessOrEqual(t, len(tag), 50)
		assert.LessOrEqual(t, len(strings.Fields(tag)), 4)
	}
}

func TestSummarizerAnalyzer_ScoresMarkdown(t *testing.T) {
	store := newTestStore(t)
	md := "## Summary\n\n- Point one about the earnings call\n- Point two about services growth\n- Point three about guidance"
	llm := clientWithResponse(md)
	s := NewSummarizer(store, llm)

	result := s.Analyze(context.Background(), AnalyzeInput{Title: "x", Content: "y"})
	content := result.Content.(SummarizerContent)
	assert.Equal(t, md, content.Markdown)
	assert.Greater(t, result.QualitySubscore, 0)
}

func TestInsightsAnalyzer_SplitsBulletsAndScoresActionability(t *testing.T) {
	store := newTestStore(t)
	text := "- Monitor competitor pricing moves closely\n- Consider renegotiating the vendor contract\n- Revenue grew 12% year over year"
	llm := clientWithResponse(text)
	ins := NewInsights(store, llm, true)

	result := ins.Analyze(context.Background(), AnalyzeInput{Title: "x", Content: "y"})
	content := result.Content.(InsightsContent)
	require.Len(t, content.Bullets, 3)
	assert.Greater(t, result.QualitySubscore, 40)
}

func TestTaggerAnalyzer_MakesListsDisjoint(t *testing.T) {
	store := newTestStore(t)
	llm := clientWithResponse(`{"topical_tags": ["AI", "Cloud"], "domain_tags": ["ai", "Fintech"]}`)
	tg := NewTagger(store, llm)

	result := tg.Analyze(context.Background(), AnalyzeInput{Title: "x", Content: "y"})
	content := result.Content.(TaggerContent)
	assert.Equal(t, []string{"Fintech"}, content.DomainTags)
}

func TestEnabledContentTypes(t *testing.T) {
	set := EnabledContentTypes("Market News, Technical Blog ,, Earnings")
	assert.True(t, set["market news"])
	assert.True(t, set["technical blog"])
	assert.True(t, set["earnings"])
	assert.False(t, set[""])
}
