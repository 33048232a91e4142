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

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	policy := Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond, Multiplier: 2}
	calls := 0
	err := Do(context.Background(), policy, nil, func(attempt int) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_NonRetryableFailsImmediately(t *testing.T) {
	policy := Policy{
		MaxAttempts:    5,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		Multiplier:     2,
		IsRetryable:    func(error) bool { return false },
	}
	calls := 0
	err := Do(context.Background(), policy, nil, func(attempt int) error {
		calls++
		return errors.New("permanent")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	policy := Policy{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, Multiplier: 2}
	calls := 0
	err := Do(context.Background(), policy, nil, func(attempt int) error {
		calls++
		return errors.New("always fails")
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	policy := DefaultPolicy()
	err := Do(ctx, policy, nil, func(attempt int) error {
		t.Fatal("fn should not be called when context is already cancelled")
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestDo_RetryAfterOverridesBackoff(t *testing.T) {
	policy := Policy{MaxAttempts: 2, InitialBackoff: time.Hour, MaxBackoff: time.Hour, Multiplier: 2}
	calls := 0
	start := time.Now()
	err := Do(context.Background(), policy, nil, func(attempt int) error {
		calls++
		if calls == 1 {
			return &RetryAfter{Err: errors.New("rate limited"), Delay: time.Millisecond}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}
