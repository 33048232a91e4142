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

// Package llmclient provides the language-model client (C3) that every
// analyzer in pkg/analyzer issues completions through.
//
// It abstracts the differences between LLM backends behind a single
// Provider interface, and layers the pipeline's own contract on top: a
// retrying Client that honors a per-run rate-limit delay, classifies
// failures into a small sentinel error taxonomy, and degrades a
// tool-augmented completion to a plain one when the provider can't
// honor the web-search tool.
//
// # Supported Providers
//
//   - Ollama: local models, no API key required (default)
//   - OpenAI: GPT-4o-mini and OpenAI-compatible APIs
//   - Anthropic: Claude models, including the web_search tool
//   - Mock: for testing without real API calls
//
// # Quick Start
//
//	provider, err := llmclient.NewProvider(llmclient.ProviderConfig{
//	    Type:   "anthropic",
//	    APIKey: os.Getenv("ANTHROPIC_API_KEY"),
//	})
//	if err != nil {
//	    return err
//	}
//
//	client := llmclient.NewClient(provider, rateLimitDelay, logger)
//	text, meta, err := client.Complete(ctx, systemPrompt, userPrompt, 0.2, "")
//
// # Web Search
//
// CompleteWithSearch requests a tool-augmented completion. If the
// provider reports the tool unavailable, the call transparently
// degrades to a plain completion; CompletionMeta.WebSearchUsed records
// which path was actually taken, so the caller can still mark the
// result accordingly rather than treating degradation as failure.
//
// # Error Handling
//
// Transport and HTTP-status failures are classified into one of
// [ErrProviderUnavailable], [ErrTimeout], [ErrInvalidRequest], or
// [ErrAuthFailed], wrapped with %w so errors.Is works regardless of
// which backend produced the failure. Client.Complete retries
// transient failures per internal/retry's default policy before
// returning a classified error.
package llmclient
