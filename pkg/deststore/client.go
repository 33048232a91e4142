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

// Package deststore implements the destination store client (C8): an
// HTTP client against the note-store's REST API, rate-limited to a
// single shared token bucket and retried with backoff on transient
// failures, per spec.md §4.8 and §5.
package deststore

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/riverscornelson/knowledge-pipeline/internal/retry"
	"github.com/riverscornelson/knowledge-pipeline/pkg/formatter"
)

// nonRetryableError marks a response the retry combinator should not
// waste further attempts on (any 4xx other than 429, which has its own
// Retry-After handling).
type nonRetryableError struct{ err error }

func (e *nonRetryableError) Error() string { return e.err.Error() }
func (e *nonRetryableError) Unwrap() error { return e.err }

// PageExistsError is returned by CreatePage when the store reports a
// conflicting fingerprint (409): another writer created the page first.
// The caller (pkg/pipeline) falls back to UpdatePage with PageID.
type PageExistsError struct{ PageID string }

func (e *PageExistsError) Error() string {
	return fmt.Sprintf("deststore: page already exists (page_id=%s)", e.PageID)
}

// Client is the destination-store HTTP client, generalized from the
// teacher's CIEClient struct shape (BaseURL, APIKey, *http.Client, JSON
// request/response helpers).
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Policy     retry.Policy
	Logger     *slog.Logger
}

// NewClient builds a Client rate-limited to one request per
// rateLimitDelay (spec.md §6's RATE_LIMIT_DELAY, default 334ms — three
// requests per second).
func NewClient(baseURL, apiKey string, rateLimitDelay time.Duration, logger *slog.Logger) *Client {
	if rateLimitDelay <= 0 {
		rateLimitDelay = 334 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	policy := retry.DestinationStorePolicy()
	policy.IsRetryable = func(err error) bool {
		if err == nil {
			return false
		}
		var nre *nonRetryableError
		var pee *PageExistsError
		return !errors.As(err, &nre) && !errors.As(err, &pee)
	}
	return &Client{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Limiter:    rate.NewLimiter(rate.Every(rateLimitDelay), 1),
		Policy:     policy,
		Logger:     logger,
	}
}

// wirePage is the JSON shape of PageProperties plus block body exchanged
// with the destination store's REST API.
type wirePage struct {
	PageID       string      `json:"page_id,omitempty"`
	Title        string      `json:"title"`
	Fingerprint  string      `json:"fingerprint"`
	ContentType  string      `json:"content_type,omitempty"`
	Status       string      `json:"status,omitempty"`
	Vendor       string      `json:"vendor,omitempty"`
	AIPrimitives []string    `json:"ai_primitives,omitempty"`
	TopicalTags  []string    `json:"topical_tags,omitempty"`
	DomainTags   []string    `json:"domain_tags,omitempty"`
	ContentTags  []string    `json:"content_tags,omitempty"`
	QualityScore int         `json:"quality_score"`
	CreatedDate  *time.Time  `json:"created_date,omitempty"`
	DriveURL     string      `json:"drive_url,omitempty"`
	Blocks       []wireBlock `json:"blocks,omitempty"`
}

type wireSpan struct {
	Text   string `json:"text"`
	Bold   bool   `json:"bold,omitempty"`
	Italic bool   `json:"italic,omitempty"`
	Code   bool   `json:"code,omitempty"`
}

type wireBlock struct {
	Kind     string      `json:"kind"`
	Text     []wireSpan  `json:"text,omitempty"`
	Icon     string      `json:"icon,omitempty"`
	Language string      `json:"language,omitempty"`
	URL      string      `json:"url,omitempty"`
	Children []wireBlock `json:"children,omitempty"`
}

func toWireBlocks(blocks []formatter.Block) []wireBlock {
	out := make([]wireBlock, 0, len(blocks))
	for _, b := range blocks {
		wb := wireBlock{Kind: string(b.Kind), Icon: b.Icon, Language: b.Language, URL: b.URL}
		for _, s := range b.Text {
			wb.Text = append(wb.Text, wireSpan{Text: s.Text, Bold: s.Bold, Italic: s.Italic, Code: s.Code})
		}
		if len(b.Children) > 0 {
			wb.Children = toWireBlocks(b.Children)
		}
		out = append(out, wb)
	}
	return out
}

func toWireProperties(p PageProperties) wirePage {
	wp := wirePage{
		Title:        p.Title,
		Fingerprint:  p.Fingerprint,
		ContentType:  p.ContentType,
		Status:       string(p.Status),
		Vendor:       p.Vendor,
		AIPrimitives: p.AIPrimitives,
		TopicalTags:  p.TopicalTags,
		DomainTags:   p.DomainTags,
		ContentTags:  p.ContentTags,
		QualityScore: p.QualityScore,
		DriveURL:     p.DriveURL,
	}
	if !p.CreatedDate.IsZero() {
		wp.CreatedDate = &p.CreatedDate
	}
	return wp
}

// FindByFingerprint implements pkg/fingerprint.Store: it queries the
// destination store for a page whose fingerprint property equals fp,
// returning (page id, found, error). A 404 response is treated as "not
// found", not an error.
func (c *Client) FindByFingerprint(ctx context.Context, fp [32]byte) (string, bool, error) {
	var out struct {
		PageID string `json:"page_id"`
		Found  bool   `json:"found"`
	}
	err := c.doJSON(ctx, http.MethodGet, "/v1/pages/by-fingerprint/"+hex.EncodeToString(fp[:]), nil, &out, true, false)
	if err != nil {
		return "", false, err
	}
	return out.PageID, out.Found, nil
}

// CreatePage implements spec.md §4.8's create_page. If the store
// reports a 409 conflict (another writer already created a page for
// this fingerprint), it returns *PageExistsError instead of creating a
// duplicate; the caller falls back to UpdatePage.
func (c *Client) CreatePage(ctx context.Context, properties PageProperties, blocks []formatter.Block) (string, error) {
	payload := toWireProperties(properties)
	payload.Blocks = toWireBlocks(blocks)

	var out struct {
		PageID string `json:"page_id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/pages", payload, &out, false, true); err != nil {
		return "", err
	}
	return out.PageID, nil
}

// UpdatePage implements spec.md §4.8's update_page. blocksReplacement
// may be nil to leave the existing body untouched.
func (c *Client) UpdatePage(ctx context.Context, pageID string, propertiesDelta PageProperties, blocksReplacement []formatter.Block) error {
	payload := toWireProperties(propertiesDelta)
	payload.PageID = pageID
	if blocksReplacement != nil {
		payload.Blocks = toWireBlocks(blocksReplacement)
	}
	return c.doJSON(ctx, http.MethodPatch, "/v1/pages/"+pageID, payload, nil, false, false)
}

// AppendBlocks implements spec.md §4.8's append_blocks.
func (c *Client) AppendBlocks(ctx context.Context, pageID string, blocks []formatter.Block) error {
	payload := struct {
		Blocks []wireBlock `json:"blocks"`
	}{Blocks: toWireBlocks(blocks)}
	return c.doJSON(ctx, http.MethodPost, "/v1/pages/"+pageID+"/blocks", payload, nil, false, false)
}

// doJSON issues one HTTP request, retried per c.Policy and rate-limited
// through c.Limiter. allowNotFound lets FindByFingerprint treat a 404 as
// a non-error "not found" result; allowConflict lets CreatePage turn a
// 409 into a *PageExistsError instead of a generic non-retryable error.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any, allowNotFound, allowConflict bool) error {
	return retry.Do(ctx, c.Policy, c.Logger, func(attempt int) error {
		if err := c.Limiter.Wait(ctx); err != nil {
			return err
		}

		var reader io.Reader
		if body != nil {
			raw, err := json.Marshal(body)
			if err != nil {
				return err
			}
			reader = bytes.NewReader(raw)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.APIKey)
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return fmt.Errorf("deststore request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound && allowNotFound {
			// out is already zero-valued (PageID "", Found false); nothing
			// to decode for a confirmed "not found" response.
			return nil
		}

		respBody, _ := io.ReadAll(resp.Body)

		if resp.StatusCode == http.StatusConflict && allowConflict {
			var conflict struct {
				PageID string `json:"page_id"`
			}
			_ = json.Unmarshal(respBody, &conflict)
			return &PageExistsError{PageID: conflict.PageID}
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			delay := retryAfterDelay(resp.Header.Get("Retry-After"))
			return &retry.RetryAfter{Err: fmt.Errorf("deststore rate limited (status 429): %s", string(respBody)), Delay: delay}
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("deststore server error (status %d): %s", resp.StatusCode, string(respBody))
		}
		if resp.StatusCode >= 400 {
			return &nonRetryableError{err: fmt.Errorf("deststore request error (status %d): %s", resp.StatusCode, string(respBody))}
		}

		if out != nil && len(respBody) > 0 {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("deststore response decode: %w", err)
			}
		}
		return nil
	})
}

func retryAfterDelay(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return 0
}
