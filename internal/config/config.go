// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package config loads the knowledge pipeline's environment-variable
// configuration (spec.md §6), falling back to documented defaults the
// way internal/contract's env-with-fallback helpers do in the teacher.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/riverscornelson/knowledge-pipeline/pkg/analyzer"
	"github.com/riverscornelson/knowledge-pipeline/pkg/source"
)

// Defaults mirror spec.md §6's stated fallbacks.
const (
	DefaultRateLimitDelay = 334 * time.Millisecond // ~3 req/s
	DefaultMaxNotionBlocks = 15
	DefaultMinQualityScore = 0
	DefaultAnalyzerWorkers = 5
)

// Config is every environment-variable-controlled knob the pipeline
// reads at startup. Fields are plain values, not lazy accessors, so a
// single Load call produces something the rest of the program can pass
// around and a test can construct by hand without touching os.Getenv.
type Config struct {
	DestinationStoreURL    string
	DestinationStoreAPIKey string
	RateLimitDelay         time.Duration

	FingerprintMode source.FingerprintMode

	UseEnhancedFormatting bool
	MaxNotionBlocks       int
	MinQualityScore       int

	EnableWebSearch   bool
	AnalyzerWebSearch map[analyzer.Kind]bool

	Models map[analyzer.Kind]string

	TechnicalContentTypes map[string]bool
	MarketContentTypes    map[string]bool

	AnalyzerWorkers int

	MetricsAddr string

	// PromptsLocalPath is the fallback prompt file pkg/promptstore reads
	// when the remote prompt source is unreachable or missing a key.
	PromptsLocalPath string

	// ContentTypeTaxonomy and KnownVendors seed the classifier (spec.md
	// §4.4: "must never invent a content type outside the provided
	// list"). DefaultContentType is used when the model's answer isn't
	// in the taxonomy.
	ContentTypeTaxonomy []string
	KnownVendors        []string
	DefaultContentType  string

	// LocalDownloadDir is the folder --process-local walks for source
	// documents; acquisition itself lives in pkg/source, not here.
	LocalDownloadDir string

	// DriveBaseURL/DriveAccessToken configure the optional cloud-drive
	// ingestion phase. Both empty means drive ingestion is not wired for
	// this run (OAuth token acquisition is an out-of-scope external
	// collaborator, spec.md §1) and the phase is skipped rather than
	// failing the run.
	DriveBaseURL    string
	DriveAccessToken string
}

// Load reads every variable spec.md §6 documents, applying defaults for
// anything unset or unparseable. It never fails on an unset optional
// variable; callers needing a hard requirement (destination store
// credentials) check the resulting field themselves and return an
// internal/errors.UserError with ExitConfig.
func Load() Config {
	return Config{
		DestinationStoreURL:    os.Getenv("DESTINATION_STORE_URL"),
		DestinationStoreAPIKey: os.Getenv("DESTINATION_STORE_API_KEY"),
		RateLimitDelay:         durationSeconds("RATE_LIMIT_DELAY", DefaultRateLimitDelay),

		FingerprintMode: fingerprintMode(),

		UseEnhancedFormatting: boolEnv("USE_ENHANCED_FORMATTING", true),
		MaxNotionBlocks:       intEnv("MAX_NOTION_BLOCKS", DefaultMaxNotionBlocks),
		MinQualityScore:       intEnv("MIN_QUALITY_SCORE", DefaultMinQualityScore),

		EnableWebSearch:   boolEnv("ENABLE_WEB_SEARCH", false),
		AnalyzerWebSearch: perAnalyzerWebSearch(),

		Models: map[analyzer.Kind]string{
			analyzer.Summarizer: os.Getenv("MODEL_SUMMARY"),
			analyzer.Classifier: os.Getenv("MODEL_CLASSIFIER"),
			analyzer.Insights:   os.Getenv("MODEL_INSIGHTS"),
		},

		TechnicalContentTypes: analyzer.EnabledContentTypes(os.Getenv("TECHNICAL_CONTENT_TYPES")),
		MarketContentTypes:    analyzer.EnabledContentTypes(os.Getenv("MARKET_CONTENT_TYPES")),

		AnalyzerWorkers: intEnv("ANALYZER_WORKERS", DefaultAnalyzerWorkers),

		MetricsAddr: os.Getenv("METRICS_ADDR"),

		PromptsLocalPath: stringEnv("PROMPTS_LOCAL_PATH", "prompts/defaults.yaml"),

		ContentTypeTaxonomy: csvEnv("CONTENT_TYPE_TAXONOMY", defaultTaxonomy),
		KnownVendors:        csvEnv("KNOWN_VENDORS", nil),
		DefaultContentType:  stringEnv("DEFAULT_CONTENT_TYPE", "Other"),

		LocalDownloadDir: os.Getenv("LOCAL_DOWNLOAD_DIR"),

		DriveBaseURL:     os.Getenv("DRIVE_BASE_URL"),
		DriveAccessToken: os.Getenv("DRIVE_ACCESS_TOKEN"),
	}
}

// defaultTaxonomy mirrors the content types named as examples throughout
// spec.md (§3, §8's Scenario A, Scenario D): a starter set, not an
// exhaustive one. Deployments with a richer destination-store taxonomy
// override it via CONTENT_TYPE_TAXONOMY.
var defaultTaxonomy = []string{
	"Market News",
	"Research Paper",
	"Vendor Capability",
	"Technical Documentation",
	"Client Deliverable",
	"Other",
}

func stringEnv(envVar, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fallback
}

// csvEnv parses a comma-separated environment variable into a trimmed
// slice, or returns fallback when unset so callers get a sane default
// taxonomy/vendor list out of the box.
func csvEnv(envVar string, fallback []string) []string {
	v, ok := os.LookupEnv(envVar)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// WebSearchEnabled resolves spec.md §6's "per-analyzer override
// evaluated AND with master" rule for one analyzer kind.
func (c Config) WebSearchEnabled(kind analyzer.Kind) bool {
	if !c.EnableWebSearch {
		return false
	}
	if override, set := c.AnalyzerWebSearch[kind]; set {
		return override
	}
	return true
}

func fingerprintMode() source.FingerprintMode {
	if boolEnv("USE_DEEPLINK_DEDUP", false) {
		return source.FingerprintHashURL
	}
	return source.FingerprintHashBytes
}

// perAnalyzerWebSearch scans <KIND>_WEB_SEARCH for every known analyzer
// kind, recording only the ones explicitly set so WebSearchEnabled can
// tell "unset" (defer to the master switch) from "explicitly false".
func perAnalyzerWebSearch() map[analyzer.Kind]bool {
	kinds := []analyzer.Kind{
		analyzer.Classifier, analyzer.Summarizer, analyzer.Insights,
		analyzer.Tagger, analyzer.ContentTagger, analyzer.Technical, analyzer.Market,
	}
	out := make(map[analyzer.Kind]bool)
	for _, k := range kinds {
		envVar := strings.ToUpper(string(k)) + "_WEB_SEARCH"
		if v, ok := os.LookupEnv(envVar); ok {
			out[k] = parseBool(v, false)
		}
	}
	return out
}

func durationSeconds(envVar string, fallback time.Duration) time.Duration {
	v := os.Getenv(envVar)
	if v == "" {
		return fallback
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs <= 0 {
		return fallback
	}
	return time.Duration(secs * float64(time.Second))
}

func intEnv(envVar string, fallback int) int {
	v := os.Getenv(envVar)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func boolEnv(envVar string, fallback bool) bool {
	v, ok := os.LookupEnv(envVar)
	if !ok {
		return fallback
	}
	return parseBool(v, fallback)
}

func parseBool(v string, fallback bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return b
}

// Validate reports the first missing required setting, formatted for
// internal/errors.NewConfigError's Cause field. Destination store
// credentials are the only hard requirement; every other setting has a
// usable default.
func (c Config) Validate() error {
	if c.DestinationStoreURL == "" {
		return fmt.Errorf("DESTINATION_STORE_URL is not set")
	}
	return nil
}
