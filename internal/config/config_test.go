// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverscornelson/knowledge-pipeline/pkg/analyzer"
	"github.com/riverscornelson/knowledge-pipeline/pkg/source"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t, "RATE_LIMIT_DELAY", "USE_DEEPLINK_DEDUP", "USE_ENHANCED_FORMATTING",
		"MAX_NOTION_BLOCKS", "MIN_QUALITY_SCORE", "ENABLE_WEB_SEARCH", "ANALYZER_WORKERS")

	cfg := Load()
	assert.Equal(t, DefaultRateLimitDelay, cfg.RateLimitDelay)
	assert.Equal(t, source.FingerprintHashBytes, cfg.FingerprintMode)
	assert.True(t, cfg.UseEnhancedFormatting)
	assert.Equal(t, DefaultMaxNotionBlocks, cfg.MaxNotionBlocks)
	assert.Equal(t, DefaultMinQualityScore, cfg.MinQualityScore)
	assert.False(t, cfg.EnableWebSearch)
	assert.Equal(t, DefaultAnalyzerWorkers, cfg.AnalyzerWorkers)
}

func TestLoad_DeeplinkDedupSwitchesFingerprintMode(t *testing.T) {
	t.Setenv("USE_DEEPLINK_DEDUP", "true")
	cfg := Load()
	assert.Equal(t, source.FingerprintHashURL, cfg.FingerprintMode)
}

func TestLoad_RateLimitDelayParsesSeconds(t *testing.T) {
	t.Setenv("RATE_LIMIT_DELAY", "0.5")
	cfg := Load()
	assert.Equal(t, 500_000_000, int(cfg.RateLimitDelay))
}

func TestLoad_InvalidIntFallsBackToDefault(t *testing.T) {
	t.Setenv("MAX_NOTION_BLOCKS", "not-a-number")
	cfg := Load()
	assert.Equal(t, DefaultMaxNotionBlocks, cfg.MaxNotionBlocks)
}

func TestWebSearchEnabled_MasterOffDisablesEverything(t *testing.T) {
	t.Setenv("ENABLE_WEB_SEARCH", "false")
	t.Setenv("INSIGHTS_WEB_SEARCH", "true")
	cfg := Load()
	assert.False(t, cfg.WebSearchEnabled(analyzer.Insights))
}

func TestWebSearchEnabled_PerAnalyzerOverrideANDsWithMaster(t *testing.T) {
	t.Setenv("ENABLE_WEB_SEARCH", "true")
	t.Setenv("INSIGHTS_WEB_SEARCH", "false")
	cfg := Load()
	assert.False(t, cfg.WebSearchEnabled(analyzer.Insights))
	assert.True(t, cfg.WebSearchEnabled(analyzer.Summarizer), "unset override defers to master switch")
}

func TestLoad_ModelOverrides(t *testing.T) {
	t.Setenv("MODEL_SUMMARY", "gpt-summary")
	t.Setenv("MODEL_CLASSIFIER", "gpt-classifier")
	cfg := Load()
	assert.Equal(t, "gpt-summary", cfg.Models[analyzer.Summarizer])
	assert.Equal(t, "gpt-classifier", cfg.Models[analyzer.Classifier])
	assert.Empty(t, cfg.Models[analyzer.Insights])
}

func TestLoad_ContentTypeSets(t *testing.T) {
	t.Setenv("TECHNICAL_CONTENT_TYPES", "Vendor_Capability, Research_Paper")
	cfg := Load()
	assert.True(t, cfg.TechnicalContentTypes["vendor_capability"])
	assert.True(t, cfg.TechnicalContentTypes["research_paper"])
	assert.False(t, cfg.TechnicalContentTypes["market_news"])
}

func TestLoad_TaxonomyDefaultsWhenUnset(t *testing.T) {
	clearEnv(t, "CONTENT_TYPE_TAXONOMY", "KNOWN_VENDORS", "DEFAULT_CONTENT_TYPE")
	cfg := Load()
	assert.Contains(t, cfg.ContentTypeTaxonomy, "Market News")
	assert.Equal(t, "Other", cfg.DefaultContentType)
	assert.Empty(t, cfg.KnownVendors)
}

func TestLoad_TaxonomyOverride(t *testing.T) {
	t.Setenv("CONTENT_TYPE_TAXONOMY", "Earnings Call, Internal Memo")
	t.Setenv("KNOWN_VENDORS", "Acme, Globex")
	cfg := Load()
	assert.Equal(t, []string{"Earnings Call", "Internal Memo"}, cfg.ContentTypeTaxonomy)
	assert.Equal(t, []string{"Acme", "Globex"}, cfg.KnownVendors)
}

func TestLoad_PromptsLocalPathDefaultsAndOverrides(t *testing.T) {
	clearEnv(t, "PROMPTS_LOCAL_PATH")
	cfg := Load()
	assert.Equal(t, "prompts/defaults.yaml", cfg.PromptsLocalPath)

	t.Setenv("PROMPTS_LOCAL_PATH", "/etc/knowledge-pipeline/prompts.yaml")
	cfg = Load()
	assert.Equal(t, "/etc/knowledge-pipeline/prompts.yaml", cfg.PromptsLocalPath)
}

func TestValidate_RequiresDestinationStoreURL(t *testing.T) {
	cfg := Config{}
	err := cfg.Validate()
	require.Error(t, err)

	cfg.DestinationStoreURL = "https://store.example.com"
	assert.NoError(t, cfg.Validate())
}
