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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Complete(t *testing.T) {
	provider := &MockProvider{
		ChatFunc: func(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
			assert.False(t, req.WebSearch)
			return &ChatResponse{Message: Message{Content: "hi"}, Model: "mock-model"}, nil
		},
	}
	client := NewClient(provider, 0, nil)
	text, meta, err := client.Complete(context.Background(), "system", "user", 0.2, "")
	require.NoError(t, err)
	assert.Equal(t, "hi", text)
	assert.Equal(t, "mock-model", meta.Model)
}

func TestClient_CompleteWithSearch_RecordsUsage(t *testing.T) {
	provider := &MockProvider{
		ChatFunc: func(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
			assert.True(t, req.WebSearch)
			return &ChatResponse{Message: Message{Content: "hi"}, WebSearchUsed: true, Citations: []string{"https://example.com"}}, nil
		},
	}
	client := NewClient(provider, 0, nil)
	_, meta, err := client.CompleteWithSearch(context.Background(), "system", "user", 0.2, "")
	require.NoError(t, err)
	assert.True(t, meta.WebSearchUsed)
	assert.Equal(t, []string{"https://example.com"}, meta.Citations)
}

func TestClient_Complete_RetriesTransientFailures(t *testing.T) {
	attempts := 0
	provider := &MockProvider{
		ChatFunc: func(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("connection reset by peer")
			}
			return &ChatResponse{Message: Message{Content: "ok"}}, nil
		},
	}
	client := NewClient(provider, 0, nil)
	client.policy.InitialBackoff = time.Millisecond
	text, _, err := client.Complete(context.Background(), "s", "u", 0, "")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 3, attempts)
}

func TestClient_Complete_ClassifiesPersistentFailure(t *testing.T) {
	provider := &MockProvider{
		ChatFunc: func(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
			return nil, errors.New("401 unauthorized")
		},
	}
	client := NewClient(provider, 0, nil)
	client.policy.InitialBackoff = time.Millisecond
	_, _, err := client.Complete(context.Background(), "s", "u", 0, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestIsRetryableProviderError(t *testing.T) {
	assert.True(t, isRetryableProviderError(errors.New("dial tcp: connection refused")))
	assert.True(t, isRetryableProviderError(errors.New("status 503")))
	assert.False(t, isRetryableProviderError(errors.New("invalid request: missing model")))
	assert.False(t, isRetryableProviderError(nil))
}
