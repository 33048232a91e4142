// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/riverscornelson/knowledge-pipeline/internal/config"
	"github.com/riverscornelson/knowledge-pipeline/internal/errors"
	"github.com/riverscornelson/knowledge-pipeline/internal/output"
	"github.com/riverscornelson/knowledge-pipeline/internal/ui"
	"github.com/riverscornelson/knowledge-pipeline/pkg/analyzer"
	"github.com/riverscornelson/knowledge-pipeline/pkg/attribution"
	"github.com/riverscornelson/knowledge-pipeline/pkg/deststore"
	"github.com/riverscornelson/knowledge-pipeline/pkg/fingerprint"
	"github.com/riverscornelson/knowledge-pipeline/pkg/formatter"
	"github.com/riverscornelson/knowledge-pipeline/pkg/llmclient"
	"github.com/riverscornelson/knowledge-pipeline/pkg/pipeline"
	"github.com/riverscornelson/knowledge-pipeline/pkg/promptstore"
	"github.com/riverscornelson/knowledge-pipeline/pkg/source"
)

// runOptions carries the per-invocation flags that shape what this run
// does, as opposed to GlobalFlags which only shapes how output looks.
type runOptions struct {
	ProcessLocal   bool
	SkipEnrichment bool
	DriveFileIDs   []string
	DryRun         bool
}

// run wires every component (C1-C9) from cfg and drives one batch pass
// over whatever ingestors are configured, returning the accumulated
// RunSummary.
func run(ctx context.Context, cfg config.Config, logger *slog.Logger, globals GlobalFlags, opts runOptions) (pipeline.RunSummary, error) {
	dest := deststore.NewClient(cfg.DestinationStoreURL, cfg.DestinationStoreAPIKey, cfg.RateLimitDelay, logger)
	dedup := fingerprint.NewIndex(dest)

	remotePrompts := promptstore.NewRemoteSource(cfg.DestinationStoreURL, cfg.DestinationStoreAPIKey)
	prompts := promptstore.NewStore(remotePrompts, cfg.PromptsLocalPath, logger)
	if err := prompts.Refresh(ctx); err != nil {
		logger.Warn("promptstore_refresh_failed", "err", err)
	}

	provider, err := llmclient.DefaultProvider()
	if err != nil {
		return pipeline.RunSummary{}, errors.NewSystemError(
			"Failed to construct a language-model provider",
			err.Error(),
			"Check OLLAMA_HOST/OPENAI_API_KEY/ANTHROPIC_API_KEY",
			err,
		)
	}
	llm := llmclient.NewClient(provider, 0, logger)

	analyzers := buildAnalyzers(cfg, prompts, llm)

	var metrics *attribution.Metrics
	if cfg.MetricsAddr != "" {
		metrics = attribution.NewMetrics(prometheus.DefaultRegisterer)
	}

	render := formatter.Format
	if !cfg.UseEnhancedFormatting {
		render = formatter.MinimalFormatter
	}

	progressCfg := NewProgressConfig(globals)
	spinner := NewSpinner(progressCfg, "Processing documents")

	proc := &pipeline.Processor{
		Dedup:           dedup,
		Extractors:      []source.Extractor{plainTextExtractor{}},
		Analyzers:       analyzers,
		Models:          pipeline.Models(cfg.Models),
		Dest:            dest,
		Format:          render,
		AnalyzerWorkers: cfg.AnalyzerWorkers,
		MaxBlocks:       cfg.MaxNotionBlocks,
		MinQualityScore: cfg.MinQualityScore,
		DryRun:          opts.DryRun,
		SkipEnrichment:  opts.SkipEnrichment,
		Logger:          logger,
		Metrics:         metrics,
		Progress:        progressReporter{bar: spinner},
	}

	docs, ingestErrs := ingestAll(ctx, cfg, opts, logger)
	go logIngestionErrors(ingestErrs, logger, globals)

	summary := proc.Run(ctx, docs)
	if spinner != nil {
		_ = spinner.Finish()
	}
	return summary, nil
}

// buildAnalyzers wires every analyzer kind behind the prompt store and
// LM client, gating Technical/Market to nil when their content-type
// allowlists are empty so the pipeline never fans out a prompt nobody
// configured.
func buildAnalyzers(cfg config.Config, prompts *promptstore.Store, llm *llmclient.Client) pipeline.AnalyzerSet {
	set := pipeline.AnalyzerSet{
		Classifier:    analyzer.NewClassifier(prompts, llm, cfg.ContentTypeTaxonomy, cfg.KnownVendors, cfg.DefaultContentType),
		Summarizer:    analyzer.NewSummarizer(prompts, llm),
		Insights:      analyzer.NewInsights(prompts, llm, cfg.WebSearchEnabled(analyzer.Insights)),
		ContentTagger: analyzer.NewContentTagger(prompts, llm),
		Tagger:        analyzer.NewTagger(prompts, llm),

		TechnicalContentTypes: cfg.TechnicalContentTypes,
		MarketContentTypes:    cfg.MarketContentTypes,
	}
	if len(cfg.TechnicalContentTypes) > 0 {
		set.Technical = analyzer.NewTechnical(prompts, llm)
	}
	if len(cfg.MarketContentTypes) > 0 {
		set.Market = analyzer.NewMarket(prompts, llm, cfg.WebSearchEnabled(analyzer.Market))
	}
	return set
}

// ingestAll fans in every configured ingestor (local folder, then
// drive) into a single document channel, closing it once both have
// drained. Neither ingestor is required: an unconfigured drive phase
// degrades to a no-op per source.DriveIngestor, and --process-local
// without LOCAL_DOWNLOAD_DIR simply contributes nothing.
func ingestAll(ctx context.Context, cfg config.Config, opts runOptions, logger *slog.Logger) (<-chan source.Document, <-chan error) {
	out := make(chan source.Document)
	errs := make(chan error, 2)

	var ingestors []source.Ingestor
	if opts.ProcessLocal && cfg.LocalDownloadDir != "" {
		ingestors = append(ingestors, &source.LocalFolderIngestor{
			Dir:  cfg.LocalDownloadDir,
			Mode: cfg.FingerprintMode,
		})
	}
	ingestors = append(ingestors, source.NewDriveIngestor(cfg.DriveBaseURL, cfg.DriveAccessToken, opts.DriveFileIDs, logger))

	go func() {
		defer close(out)
		defer close(errs)
		for _, ing := range ingestors {
			docs, ingErrs := ing.Documents(ctx)
		drain:
			for docs != nil || ingErrs != nil {
				select {
				case d, ok := <-docs:
					if !ok {
						docs = nil
						continue
					}
					select {
					case out <- d:
					case <-ctx.Done():
						break drain
					}
				case e, ok := <-ingErrs:
					if !ok {
						ingErrs = nil
						continue
					}
					select {
					case errs <- e:
					default:
					}
				case <-ctx.Done():
					break drain
				}
			}
		}
	}()

	return out, errs
}

func logIngestionErrors(errs <-chan error, logger *slog.Logger, globals GlobalFlags) {
	for err := range errs {
		logger.Warn("ingestion_error", "err", err)
		if !globals.Quiet {
			ui.Warningf("ingestion error: %v", err)
		}
	}
}

// serveMetrics exposes Prometheus metrics over HTTP until ctx-independent
// process exit; mirrors the teacher's cmd/cie/index.go metrics endpoint
// pattern.
func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	logger.Info("metrics_http_start", "addr", addr, "path", "/metrics")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Warn("metrics_http_error", "err", err)
	}
}

// printSummary renders a finished RunSummary either as the colored
// human-readable report or, under --json, a machine-readable document
// on stdout.
func printSummary(summary pipeline.RunSummary, globals GlobalFlags) {
	if globals.JSON {
		_ = output.JSON(summary)
		return
	}

	ui.Header("Knowledge Pipeline Run Summary")
	fmt.Printf("%s %s\n", ui.Label("Scanned:"), ui.CountText(summary.Scanned))
	fmt.Printf("%s %s\n", ui.Label("Enriched:"), ui.CountText(summary.Enriched))
	fmt.Printf("%s %s\n", ui.Label("Ingested:"), ui.CountText(summary.Ingested))
	fmt.Printf("%s %s\n", ui.Label("Duplicates skipped:"), ui.CountText(summary.SkippedDuplicate))
	fmt.Printf("%s %s\n", ui.Label("Failed:"), ui.CountText(summary.Failed))
	fmt.Printf("%s %s\n", ui.Label("Not attempted:"), ui.CountText(summary.NotAttempted))

	if summary.Failed > 0 {
		ui.Warningf("%d document(s) failed; see logs for details", summary.Failed)
	} else {
		ui.Success("run complete")
	}
}
