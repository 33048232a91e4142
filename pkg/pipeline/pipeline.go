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

// Package pipeline implements the pipeline processor (C9): the
// per-document state machine that ties every other component together
// (dedup, extraction, analysis, scoring, formatting, and the
// destination-store write) and the run-level orchestration around it.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/riverscornelson/knowledge-pipeline/pkg/analyzer"
	"github.com/riverscornelson/knowledge-pipeline/pkg/attribution"
	"github.com/riverscornelson/knowledge-pipeline/pkg/deststore"
	"github.com/riverscornelson/knowledge-pipeline/pkg/fingerprint"
	"github.com/riverscornelson/knowledge-pipeline/pkg/formatter"
	"github.com/riverscornelson/knowledge-pipeline/pkg/quality"
	"github.com/riverscornelson/knowledge-pipeline/pkg/source"
)

// Stage names one point in the per-document state machine of spec.md
// §4.9. processOne does not reference these values; its control flow is
// ordinary Go rather than a table-driven state transition, since every
// transition is unconditional except the two branches noted in the
// diagram (CHECK_DUP and EXTRACT).
type Stage string

const (
	StageCheckDup Stage = "check_dup"
	StageExtract  Stage = "extract"
	StageAnalyze  Stage = "analyze"
	StageScore    Stage = "score"
	StageFormat   Stage = "format"
	StageWrite    Stage = "write"
)

// Outcome is the terminal state a single document's processing reaches.
type Outcome string

const (
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeEnriched     Outcome = "enriched"
	OutcomeFailed       Outcome = "failed"
	OutcomeNotAttempted Outcome = "not_attempted"
	OutcomeIngested     Outcome = "ingested"
)

// ProgressReporter is the narrow slice of *progressbar.ProgressBar that
// Run needs to advance a progress display once per document, without
// pkg/pipeline importing a terminal-rendering library itself. A nil
// Processor.Progress disables reporting entirely.
type ProgressReporter interface {
	Add(n int) error
}

// RunSummary accumulates the run-level counters of spec.md §4.9,
// reported at the end of a run via internal/output or internal/ui.
type RunSummary struct {
	Scanned          int
	SkippedDuplicate int
	Enriched         int
	Failed           int
	NotAttempted     int
	Ingested         int
}

// AnalyzerSet bundles every analyzer the processor may invoke, behind
// the analyzer.Analyzer interface so tests can substitute fakes without
// a live prompt store or LLM provider. Technical and Market are optional
// (nil disables them); when non-nil they only run for documents whose
// classified content type is in the matching enabled-content-types set.
type AnalyzerSet struct {
	Classifier    analyzer.Analyzer
	Summarizer    analyzer.Analyzer
	Insights      analyzer.Analyzer
	ContentTagger analyzer.Analyzer
	Tagger        analyzer.Analyzer
	Technical     analyzer.Analyzer
	Market        analyzer.Analyzer

	TechnicalContentTypes map[string]bool
	MarketContentTypes    map[string]bool
}

// Models carries the per-analyzer model override env vars
// (MODEL_SUMMARY/MODEL_CLASSIFIER/MODEL_INSIGHTS); analyzers not listed
// use the provider's configured default.
type Models map[analyzer.Kind]string

// Processor is the C9 orchestrator. One Processor instance is shared
// across every document in a run; it holds no per-document state.
type Processor struct {
	Dedup           *fingerprint.Index
	Extractors      []source.Extractor
	Analyzers       AnalyzerSet
	Models          Models
	Dest            *deststore.Client
	Format          func(formatter.FormatInput) []formatter.Block
	AnalyzerWorkers int
	MaxBlocks       int
	MinQualityScore int
	DryRun          bool
	Logger          *slog.Logger

	// SkipEnrichment implements --skip-enrichment (spec.md §6): run only
	// ingestion and dedup, writing new pages as Inbox without invoking
	// any analyzer. A document already deduplicated still short-circuits
	// to OutcomeDuplicate ahead of this check.
	SkipEnrichment bool

	// Metrics mirrors every attribution record into Prometheus. Nil
	// disables the mirror (tests, or a deployment with metrics off)
	// without changing any other behavior.
	Metrics *attribution.Metrics

	// Progress advances once per document Run finishes processing
	// (regardless of outcome). Nil disables progress reporting.
	Progress ProgressReporter
}

func (p *Processor) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// Run drains docs sequentially (spec.md §5's "sequential across
// documents by default"), invoking processOne for each and accumulating
// RunSummary counters. It observes ctx cancellation between documents,
// reporting the remainder as not attempted rather than starting them.
func (p *Processor) Run(ctx context.Context, docs <-chan source.Document) RunSummary {
	var summary RunSummary

	for doc := range docs {
		if ctx.Err() != nil {
			summary.NotAttempted++
			continue
		}

		summary.Scanned++
		outcome := p.processOne(ctx, doc)
		switch outcome {
		case OutcomeDuplicate:
			summary.SkippedDuplicate++
		case OutcomeEnriched:
			summary.Enriched++
		case OutcomeFailed:
			summary.Failed++
		case OutcomeNotAttempted:
			summary.NotAttempted++
		case OutcomeIngested:
			summary.Ingested++
		}
		if p.Progress != nil {
			_ = p.Progress.Add(1)
		}
	}

	p.logger().Info("run_summary",
		"scanned", summary.Scanned,
		"skipped_duplicate", summary.SkippedDuplicate,
		"enriched", summary.Enriched,
		"failed", summary.Failed,
		"not_attempted", summary.NotAttempted,
		"ingested", summary.Ingested,
	)
	return summary
}

// processOne drives one document through NEW → CHECK_DUP → EXTRACT →
// ANALYZE → SCORE → FORMAT → WRITE, per spec.md §4.9.
func (p *Processor) processOne(ctx context.Context, doc source.Document) Outcome {
	log := p.logger().With("document_fingerprint", hexFingerprint(doc.Fingerprint))

	// CHECK_DUP
	if _, found, err := p.Dedup.Exists(ctx, doc.Fingerprint); err != nil {
		log.Warn("dedup_check_failed", "err", err)
	} else if found {
		log.Info("dedup_hit")
		return OutcomeDuplicate
	}

	if p.SkipEnrichment {
		return p.ingestOnly(ctx, doc, log)
	}

	// EXTRACT
	extracted := source.ExtractChain(ctx, doc.RawBytes, p.Extractors...)
	extractionFailed := extracted.Empty()
	content := extracted.Text
	if extractionFailed {
		content = source.PlaceholderText
	}
	log.Info("extract_result", "extractor_used", extracted.ExtractorUsed, "empty", extractionFailed)

	// ANALYZE
	tracker := attribution.NewTracker(p.Metrics)
	results := p.analyze(ctx, doc, content, log)
	for _, r := range results {
		tracker.Record(attribution.FromResult(r))
	}
	classifierFailed := true
	var classifierContent analyzer.ClassifierContent
	for _, r := range results {
		if r.Kind == analyzer.Classifier && !r.Failed {
			classifierFailed = false
			classifierContent, _ = r.Content.(analyzer.ClassifierContent)
		}
	}

	// SCORE
	score := quality.Score(results, extracted)
	if score.Overall < p.MinQualityScore {
		log.Warn("quality_below_threshold", "overall", score.Overall, "threshold", p.MinQualityScore)
	}

	// FORMAT
	status := deststore.StatusEnriched
	if extractionFailed || classifierFailed {
		status = deststore.StatusFailed
	}

	formatInput := formatInputFor(doc, classifierContent, results, score, tracker, extractionFailed)
	formatInput.MaxBlocks = p.MaxBlocks
	render := p.Format
	if render == nil {
		render = formatter.Format
	}
	blocks := render(formatInput)

	// WRITE
	if p.DryRun {
		log.Info("write_skipped_dry_run", "status", status)
		if status == deststore.StatusFailed {
			return OutcomeFailed
		}
		return OutcomeEnriched
	}

	props := propertiesFor(doc, classifierContent, results, score, status)
	if err := p.write(ctx, doc, props, blocks); err != nil {
		log.Error("write_failed", "err", err)
		return OutcomeFailed
	}
	log.Info("write_ok", "status", status)

	if status == deststore.StatusFailed {
		return OutcomeFailed
	}
	return OutcomeEnriched
}

// ingestOnly writes a bare Inbox page for doc with no analysis content,
// the --skip-enrichment path: ingestion and dedup still run, but no
// extractor or analyzer is invoked and no quality score is computed.
func (p *Processor) ingestOnly(ctx context.Context, doc source.Document, log *slog.Logger) Outcome {
	if p.DryRun {
		log.Info("write_skipped_dry_run", "status", deststore.StatusInbox)
		return OutcomeIngested
	}

	props := deststore.PageProperties{
		Title:         doc.DisplayName,
		Fingerprint:   hexFingerprint(doc.Fingerprint),
		Status:        deststore.StatusInbox,
		CreatedDate:   time.Now(),
		DriveURL:      doc.ExternalURL,
		ContentLength: len(doc.RawBytes),
	}
	if err := p.write(ctx, doc, props, nil); err != nil {
		log.Error("write_failed", "err", err)
		return OutcomeFailed
	}
	log.Info("write_ok", "status", deststore.StatusInbox)
	return OutcomeIngested
}

// write implements spec.md §4.9's create-then-fallback-to-update
// contract: a 409 conflict from CreatePage means another writer already
// claimed this fingerprint, so the document is folded into an update
// instead of left unwritten.
func (p *Processor) write(ctx context.Context, doc source.Document, props deststore.PageProperties, blocks []formatter.Block) error {
	_, err := p.Dest.CreatePage(ctx, props, blocks)
	if err == nil {
		return nil
	}
	var exists *deststore.PageExistsError
	if errors.As(err, &exists) {
		return p.Dest.UpdatePage(ctx, exists.PageID, props, blocks)
	}
	return err
}

// analyze runs the classifier synchronously (its content type gates
// every other analyzer's prompt selection), then fans the remaining
// analyzers out across a bounded worker pool, joined back by key so the
// formatter sees a deterministic order regardless of completion order.
func (p *Processor) analyze(ctx context.Context, doc source.Document, content string, log *slog.Logger) []analyzer.Result {
	var results []analyzer.Result

	classifierIn := analyzer.AnalyzeInput{
		Title:       doc.DisplayName,
		Content:     content,
		ExecutionID: uuid.NewString(),
		Model:       p.Models[analyzer.Classifier],
	}
	log.Info("analyzer_start", "analyzer_kind", analyzer.Classifier)
	classifierResult := p.Analyzers.Classifier.Analyze(ctx, classifierIn)
	log.Info("analyzer_end", "analyzer_kind", analyzer.Classifier, "failed", classifierResult.Failed)
	results = append(results, classifierResult)

	contentType := ""
	if cc, ok := classifierResult.Content.(analyzer.ClassifierContent); ok {
		contentType = cc.ContentType
	}

	type job struct {
		kind analyzer.Kind
		run  func(context.Context, analyzer.AnalyzeInput) analyzer.Result
	}
	var jobs []job
	if p.Analyzers.Summarizer != nil {
		jobs = append(jobs, job{analyzer.Summarizer, p.Analyzers.Summarizer.Analyze})
	}
	if p.Analyzers.Insights != nil {
		jobs = append(jobs, job{analyzer.Insights, p.Analyzers.Insights.Analyze})
	}
	if p.Analyzers.ContentTagger != nil {
		jobs = append(jobs, job{analyzer.ContentTagger, p.Analyzers.ContentTagger.Analyze})
	}
	if p.Analyzers.Tagger != nil {
		jobs = append(jobs, job{analyzer.Tagger, p.Analyzers.Tagger.Analyze})
	}
	lowerContentType := strings.ToLower(contentType)
	if p.Analyzers.Technical != nil && p.Analyzers.TechnicalContentTypes[lowerContentType] {
		jobs = append(jobs, job{analyzer.Technical, p.Analyzers.Technical.Analyze})
	}
	if p.Analyzers.Market != nil && p.Analyzers.MarketContentTypes[lowerContentType] {
		jobs = append(jobs, job{analyzer.Market, p.Analyzers.Market.Analyze})
	}

	workers := p.AnalyzerWorkers
	if workers <= 0 {
		workers = 5
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	joined := make([]analyzer.Result, len(jobs))
	if len(jobs) > 0 {
		jobsCh := make(chan int, len(jobs))
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobsCh {
					select {
					case <-ctx.Done():
						return
					default:
					}
					in := analyzer.AnalyzeInput{
						Title:           doc.DisplayName,
						Content:         content,
						ContentTypeHint: contentType,
						ExecutionID:     uuid.NewString(),
						Model:           p.Models[jobs[i].kind],
					}
					log.Info("analyzer_start", "analyzer_kind", jobs[i].kind)
					r := jobs[i].run(ctx, in)
					log.Info("analyzer_end", "analyzer_kind", jobs[i].kind, "failed", r.Failed)
					joined[i] = r
				}
			}()
		}
		for i := range jobs {
			jobsCh <- i
		}
		close(jobsCh)
		wg.Wait()
	}

	results = append(results, joined...)
	return results
}

func formatInputFor(doc source.Document, cc analyzer.ClassifierContent, results []analyzer.Result, score quality.QualityScore, tracker *attribution.Tracker, extractionFailed bool) formatter.FormatInput {
	in := formatter.FormatInput{
		Title:            doc.DisplayName,
		ExtractionFailed: extractionFailed,
		Quality:          score,
		Attribution:      tracker.Records(),
		SourceURL:        doc.ExternalURL,
	}
	if cc.ContentType != "" {
		ccCopy := cc
		in.Classifier = &ccCopy
	}
	for _, r := range results {
		if r.Failed {
			continue
		}
		switch c := r.Content.(type) {
		case analyzer.SummarizerContent:
			cc := c
			in.Summary = &cc
		case analyzer.InsightsContent:
			cc := c
			in.Insights = &cc
		case analyzer.TaggerContent:
			cc := c
			in.Tagger = &cc
		case analyzer.ContentTaggerContent:
			cc := c
			in.ContentTagger = &cc
		case analyzer.SpecializedContent:
			label := "Technical Assessment"
			if r.Kind == analyzer.Market {
				label = "Market Impact"
			}
			in.Specialized = append(in.Specialized, formatter.SpecializedNote{Label: label, Note: c.Note})
		}
	}
	sort.Slice(in.Specialized, func(i, j int) bool { return in.Specialized[i].Label < in.Specialized[j].Label })
	return in
}

func propertiesFor(doc source.Document, cc analyzer.ClassifierContent, results []analyzer.Result, score quality.QualityScore, status deststore.Status) deststore.PageProperties {
	props := deststore.PageProperties{
		Title:         doc.DisplayName,
		Fingerprint:   hexFingerprint(doc.Fingerprint),
		ContentType:   cc.ContentType,
		Status:        status,
		Vendor:        cc.Vendor,
		AIPrimitives:  cc.AIPrimitives,
		QualityScore:  score.Overall,
		CreatedDate:   time.Now(),
		DriveURL:      doc.ExternalURL,
		ContentLength: len(doc.RawBytes),
	}
	for _, r := range results {
		if r.Failed {
			continue
		}
		switch c := r.Content.(type) {
		case analyzer.TaggerContent:
			props.TopicalTags = c.TopicalTags
			props.DomainTags = c.DomainTags
		case analyzer.ContentTaggerContent:
			props.ContentTags = c.Tags
		}
	}
	return props
}

func hexFingerprint(fp [32]byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 64)
	for i, b := range fp {
		out[i*2] = hexDigits[b>>4]
		out[i*2+1] = hexDigits[b&0x0f]
	}
	return string(out)
}
