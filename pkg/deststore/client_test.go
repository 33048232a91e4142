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

package deststore

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/riverscornelson/knowledge-pipeline/pkg/formatter"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "test-key", time.Millisecond, testLogger())
	return c, &calls
}

func TestFindByFingerprint_NotFoundReturnsFalseNotError(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	pageID, found, err := c.FindByFingerprint(t.Context(), [32]byte{1, 2, 3})
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, "", pageID)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestFindByFingerprint_FoundDecodesPageID(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"page_id": "page-123", "found": true})
	})

	pageID, found, err := c.FindByFingerprint(t.Context(), [32]byte{9})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "page-123", pageID)
}

func TestCreatePage_SendsWireShapeAndReturnsID(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/pages", r.URL.Path)

		var decoded wirePage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&decoded))
		assert.Equal(t, "Doc Title", decoded.Title)
		assert.Equal(t, "Enriched", decoded.Status)
		require.Len(t, decoded.Blocks, 1)
		assert.Equal(t, "paragraph", decoded.Blocks[0].Kind)

		_ = json.NewEncoder(w).Encode(map[string]any{"page_id": "new-page-1"})
	})

	props := PageProperties{Title: "Doc Title", Fingerprint: "abcd", Status: StatusEnriched}
	blocks := []formatter.Block{{Kind: formatter.KindParagraph, Text: formatter.Plain("hello")}}

	pageID, err := c.CreatePage(t.Context(), props, blocks)
	require.NoError(t, err)
	assert.Equal(t, "new-page-1", pageID)
}

func TestUpdatePage_NilBlocksLeavesBodyUntouched(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		var decoded wirePage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&decoded))
		assert.Nil(t, decoded.Blocks)
		w.WriteHeader(http.StatusOK)
	})

	err := c.UpdatePage(t.Context(), "page-1", PageProperties{Status: StatusFailed}, nil)
	require.NoError(t, err)
}

func TestAppendBlocks_PostsToBlocksPath(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/pages/page-9/blocks", r.URL.Path)
		var decoded struct {
			Blocks []wireBlock `json:"blocks"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&decoded))
		require.Len(t, decoded.Blocks, 1)
		w.WriteHeader(http.StatusOK)
	})

	blocks := []formatter.Block{{Kind: formatter.KindDivider}}
	err := c.AppendBlocks(t.Context(), "page-9", blocks)
	require.NoError(t, err)
}

func TestDoJSON_RetriesOn429WithRetryAfter(t *testing.T) {
	var attempts int32
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if n == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"page_id": "retried", "found": true})
	})

	pageID, found, err := c.FindByFingerprint(t.Context(), [32]byte{5})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "retried", pageID)
	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
}

func TestDoJSON_RetriesOn5xx(t *testing.T) {
	var attempts int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if n < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"page_id": "ok"})
	})

	_, err := c.CreatePage(t.Context(), PageProperties{Title: "x"}, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&attempts))
}

func TestDoJSON_DoesNotRetryNon429ClientError(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("bad fingerprint"))
	})

	_, err := c.CreatePage(t.Context(), PageProperties{Title: "x"}, nil)
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestCreatePage_ConflictReturnsPageExistsErrorWithoutRetry(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]any{"page_id": "existing-page"})
	})

	_, err := c.CreatePage(t.Context(), PageProperties{Title: "x"}, nil)
	require.Error(t, err)
	var pee *PageExistsError
	require.ErrorAs(t, err, &pee)
	assert.Equal(t, "existing-page", pee.PageID)
	assert.EqualValues(t, 1, atomic.LoadInt32(calls))
}

func TestDoJSON_RateLimiterSerializesRequests(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"page_id": "p"})
	})
	c.Limiter = rate.NewLimiter(rate.Every(20*time.Millisecond), 1)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.CreatePage(t.Context(), PageProperties{Title: "x"}, nil)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 3, atomic.LoadInt32(calls))
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}
