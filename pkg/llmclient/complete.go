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

package llmclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/riverscornelson/knowledge-pipeline/internal/retry"
)

// Typed errors distinguishing the C3 error taxonomy of spec.md §4.3.
// Each wraps the underlying transport error so callers can still inspect
// it, but errors.Is against these sentinels works across providers.
var (
	ErrProviderUnavailable = errors.New("llm provider unavailable")
	ErrTimeout             = errors.New("llm request timed out")
	ErrInvalidRequest      = errors.New("llm request invalid")
	ErrAuthFailed          = errors.New("llm authentication failed")
)

// CompletionMeta carries attribution-relevant metadata about a single
// completion call, independent of the analyzer that issued it.
type CompletionMeta struct {
	Model         string
	Tokens        int
	LatencyMS     int64
	WebSearchUsed bool
	Citations     []string
}

// Client wraps a Provider with the retry policy and rate-limit delay
// the language-model client's contract requires (spec.md §4.3).
type Client struct {
	provider  Provider
	policy    retry.Policy
	logger    *slog.Logger
	lastCall  time.Time
	minDelay  time.Duration
}

// NewClient wraps provider with the default retry policy. minDelay
// enforces the per-run rate-limit delay between successful requests;
// pass 0 to disable it.
func NewClient(provider Provider, minDelay time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		provider: provider,
		policy:   retryPolicyFor(provider),
		logger:   logger,
		minDelay: minDelay,
	}
}

func retryPolicyFor(Provider) retry.Policy {
	p := retry.DefaultPolicy()
	p.IsRetryable = isRetryableProviderError
	return p
}

// Complete issues a plain completion (spec.md §4.3 "complete").
func (c *Client) Complete(ctx context.Context, system, user string, temperature float64, model string) (string, CompletionMeta, error) {
	return c.complete(ctx, system, user, temperature, model, false)
}

// CompleteWithSearch issues a tool-augmented completion, degrading to a
// plain Complete when the provider reports the search tool unavailable
// (scenario E of spec.md §8); the degradation is recorded in the
// returned CompletionMeta rather than surfaced as an error.
func (c *Client) CompleteWithSearch(ctx context.Context, system, user string, temperature float64, model string) (string, CompletionMeta, error) {
	return c.complete(ctx, system, user, temperature, model, true)
}

func (c *Client) complete(ctx context.Context, system, user string, temperature float64, model string, webSearch bool) (string, CompletionMeta, error) {
	c.throttle()

	var resp *ChatResponse
	start := time.Now()
	err := retry.Do(ctx, c.policy, c.logger, func(attempt int) error {
		var callErr error
		resp, callErr = c.provider.Chat(ctx, ChatRequest{
			Messages:    BuildChatMessages(system, user),
			Model:       model,
			Temperature: temperature,
			WebSearch:   webSearch,
		})
		return callErr
	})
	c.lastCall = time.Now()

	if err != nil {
		return "", CompletionMeta{}, classify(err)
	}

	meta := CompletionMeta{
		Model:         resp.Model,
		Tokens:        resp.TotalTokens,
		LatencyMS:     time.Since(start).Milliseconds(),
		WebSearchUsed: resp.WebSearchUsed,
		Citations:     resp.Citations,
	}
	return resp.Message.Content, meta, nil
}

// throttle enforces the per-run inter-request delay between successful
// calls (spec.md §5 "honors a per-run rate-limit delay").
func (c *Client) throttle() {
	if c.minDelay <= 0 || c.lastCall.IsZero() {
		return
	}
	elapsed := time.Since(c.lastCall)
	if elapsed < c.minDelay {
		time.Sleep(c.minDelay - elapsed)
	}
}

// classify wraps a transport-level error with the nearest C3 sentinel so
// callers can use errors.Is regardless of which provider produced it.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") || strings.Contains(msg, "invalid api key") || strings.Contains(msg, "unauthorized"):
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case strings.Contains(msg, "400") || strings.Contains(msg, "invalid request"):
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	default:
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
}

// isRetryableProviderError classifies network/5xx/429 errors as
// retryable, mirroring the teacher's isRetryableEmbeddingError
// substring classification (no provider-internal error types are
// exported to match against).
func isRetryableProviderError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"timeout", "temporarily unavailable", "connection refused", "connection reset", "deadline exceeded", "eof"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	for _, code := range []string{"429", "500", "502", "503", "504"} {
		if strings.Contains(msg, " "+code) || strings.Contains(msg, "status "+code) {
			if _, convErr := strconv.Atoi(code); convErr == nil {
				return true
			}
		}
	}
	return false
}
