// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package main implements the knowledge-pipeline CLI: a single-job batch
// run that ingests source documents, enriches them through the analyzer
// stack, and writes the result to the destination store.
//
// Usage:
//
//	knowledge-pipeline [flags]
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/riverscornelson/knowledge-pipeline/internal/config"
	"github.com/riverscornelson/knowledge-pipeline/internal/errors"
	"github.com/riverscornelson/knowledge-pipeline/internal/logging"
	"github.com/riverscornelson/knowledge-pipeline/internal/ui"
)

// Version information, set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	var (
		processLocal   = flag.Bool("process-local", false, "Enable local-folder ingestion phase before drive ingestion")
		skipEnrichment = flag.Bool("skip-enrichment", false, "Run only ingestion; leave new pages as Inbox")
		driveFileIDs   = flag.String("drive-file-ids", "", "Restrict drive processing to this comma-separated list of file ids")
		dryRun         = flag.Bool("dry-run", false, "Plan and log all actions but issue no writes to the destination store")
		jsonOutput     = flag.Bool("json", false, "Emit a machine-readable JSON run summary")
		noColor        = flag.Bool("no-color", false, "Disable colored terminal output")
		quiet          = flag.BoolP("quiet", "q", false, "Suppress the progress bar and ingestion warnings (structured log lines are still written)")
		verbose        = flag.BoolP("verbose", "v", false, "Enable debug-level logging")
		showVersion    = flag.Bool("version", false, "Show version and exit")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `knowledge-pipeline: batch content enrichment

Usage:
  knowledge-pipeline [flags]

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Environment:
  DESTINATION_STORE_URL, DESTINATION_STORE_API_KEY   destination store credentials (required)
  OLLAMA_HOST / OPENAI_API_KEY / ANTHROPIC_API_KEY    language-model provider credentials (optional; falls back to a mock provider)
  LOCAL_DOWNLOAD_DIR                                  folder walked by --process-local
  DRIVE_BASE_URL, DRIVE_ACCESS_TOKEN                  drive ingestion endpoint (optional; skipped when unset)
  METRICS_ADDR                                        Prometheus /metrics listen address (optional)

internal/config reads the complete set of environment variables.
`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("knowledge-pipeline version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(errors.ExitSuccess)
	}

	globals := GlobalFlags{
		JSON:    *jsonOutput,
		Quiet:   *quiet || *jsonOutput,
		NoColor: *noColor,
		Verbose: *verbose,
	}
	ui.InitColors(globals.NoColor)

	level := slog.LevelInfo
	if globals.Verbose {
		level = slog.LevelDebug
	}
	logger := logging.New(os.Stdout, level)
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		errors.FatalError(errors.NewConfigError(
			"Missing required configuration",
			err.Error(),
			"Set DESTINATION_STORE_URL (and DESTINATION_STORE_API_KEY, if required) and retry",
			err,
		), globals.JSON)
	}

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, logger)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutdown_signal", "signal", sig.String())
		cancel()
	}()

	var fileIDs []string
	if *driveFileIDs != "" {
		for _, id := range strings.Split(*driveFileIDs, ",") {
			if id = strings.TrimSpace(id); id != "" {
				fileIDs = append(fileIDs, id)
			}
		}
	}

	opts := runOptions{
		ProcessLocal:   *processLocal,
		SkipEnrichment: *skipEnrichment,
		DriveFileIDs:   fileIDs,
		DryRun:         *dryRun,
	}

	summary, err := run(ctx, cfg, logger, globals, opts)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}

	printSummary(summary, globals)
}
