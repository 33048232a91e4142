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

// Package retry provides a single backoff-and-retry combinator shared by
// every outbound call the pipeline makes (language-model provider, and
// destination-store HTTP calls). It replaces the two near-identical
// retry loops historically duplicated at each call site with one
// policy-parameterized function.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"
)

// Policy configures the backoff schedule for Do.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the computed delay regardless of attempt count.
	MaxBackoff time.Duration

	// Multiplier grows the delay between attempts (exponential backoff).
	Multiplier float64

	// IsRetryable classifies an error as transient. A nil value treats
	// every non-nil error as retryable.
	IsRetryable func(error) bool
}

// DefaultPolicy matches the language-model client's contract (spec.md
// §4.3): exponential backoff starting at 1s, capped at 10s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    4,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
	}
}

// DestinationStorePolicy matches the destination store's contract
// (spec.md §4.8): cap 60s, up to 3 retries.
func DestinationStorePolicy() Policy {
	return Policy{
		MaxAttempts:    4,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     60 * time.Second,
		Multiplier:     2.0,
	}
}

func (p Policy) sanitized() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = time.Second
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = 10 * time.Second
	}
	if p.Multiplier <= 1.0 {
		p.Multiplier = 2.0
	}
	if p.IsRetryable == nil {
		p.IsRetryable = func(err error) bool { return err != nil }
	}
	return p
}

// RetryAfter, when returned wrapped in an error via errors.As, overrides
// the computed backoff for the next attempt (used for HTTP 429 responses
// carrying a server-indicated Retry-After value).
type RetryAfter struct {
	Err   error
	Delay time.Duration
}

func (r *RetryAfter) Error() string { return r.Err.Error() }
func (r *RetryAfter) Unwrap() error { return r.Err }

// Do invokes fn, retrying on retryable errors per policy until it
// succeeds, a non-retryable error is returned, attempts are exhausted, or
// ctx is cancelled. logger receives a warning before each retry sleep;
// a nil logger is replaced with slog.Default().
func Do(ctx context.Context, policy Policy, logger *slog.Logger, fn func(attempt int) error) error {
	if logger == nil {
		logger = slog.Default()
	}
	p := policy.sanitized()

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == p.MaxAttempts-1 || !p.IsRetryable(err) {
			return err
		}

		sleep := computeBackoffWithJitter(p.InitialBackoff, attempt, p.Multiplier, p.MaxBackoff)
		var ra *RetryAfter
		if errors.As(err, &ra) && ra.Delay > 0 {
			sleep = ra.Delay
		}

		logger.Warn("retry.attempt",
			"attempt", attempt+1,
			"max_attempts", p.MaxAttempts,
			"sleep_ms", sleep.Milliseconds(),
			"err", err,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
	}
	return lastErr
}

// computeBackoffWithJitter returns an exponential backoff delay with full
// jitter: the result is uniformly distributed in [0, min(cap, base*mult^n)].
func computeBackoffWithJitter(base time.Duration, attempt int, mult float64, cap time.Duration) time.Duration {
	exp := float64(base)
	for i := 0; i < attempt; i++ {
		exp *= mult
	}
	d := time.Duration(exp)
	if d > cap {
		d = cap
	}
	if d <= 0 {
		return base
	}
	return time.Duration(rand.Int63n(int64(d) + 1))
}
