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

// Package source holds the data model and narrow interfaces the pipeline
// depends on for document acquisition and text extraction. Both concerns
// are external collaborators: cloud-drive and local-folder ingestion, and
// PDF extraction itself, are out of scope and implemented elsewhere. This
// package only defines the contract C9 programs against.
package source

import (
	"context"
)

// Origin identifies which ingestion path produced a SourceDocument.
type Origin string

const (
	OriginDrive Origin = "drive"
	OriginLocal Origin = "local"
)

// FingerprintMode selects how a document's dedup fingerprint is derived.
type FingerprintMode string

const (
	// FingerprintHashBytes hashes the full downloaded byte stream.
	FingerprintHashBytes FingerprintMode = "hash-of-bytes"

	// FingerprintHashURL hashes a canonicalized external URL instead of
	// the byte stream. The ingestors in this package still download or
	// read every document's bytes in this mode.
	FingerprintHashURL FingerprintMode = "hash-of-external-url"
)

// Document is a single source document handed to the pipeline by the
// ingestion stage. It is constructed once at ingestion and consumed once
// by the pipeline processor; nothing retains it afterward.
type Document struct {
	// Fingerprint is the 32-byte content hash that identifies this
	// document for deduplication purposes.
	Fingerprint [32]byte

	// Origin records which ingestion path produced this document.
	Origin Origin

	// ExternalURL is the stable drive URL, populated only for
	// Origin == OriginDrive.
	ExternalURL string

	// DisplayName is the cleaned filename: punctuation normalized,
	// URL-decoded, version suffixes removed.
	DisplayName string

	// RawBytes holds the document's contents. DriveIngestor and
	// LocalFolderIngestor always populate it, whatever the FingerprintMode.
	RawBytes []byte
}

// ExtractedText is the result of attempting text extraction against a
// Document's raw bytes.
type ExtractedText struct {
	// Text is possibly empty; downstream analyzers must still run with a
	// placeholder when it is, so attribution and a failure record are
	// produced rather than silently skipping the document.
	Text string

	// ExtractorUsed identifies which extractor in the fallback chain
	// succeeded, or "none" if every extractor failed.
	ExtractorUsed string
}

// Empty reports whether extraction produced no usable text.
func (e ExtractedText) Empty() bool {
	return e.Text == ""
}

// PlaceholderText is substituted for analyzers when extraction fails
// entirely, so the pipeline can still produce an attribution record and
// a Failed page rather than skipping the document outright.
const PlaceholderText = "[content could not be extracted]"

// Extractor attempts to pull text out of a document's raw bytes. A chain
// of extractors (primary, two fallbacks) is tried in order by the
// pipeline; an extractor returning ("", false) is not an error, it is
// simply a miss that falls through to the next extractor in the chain.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, raw []byte) (text string, ok bool)
}

// Ingestor yields the stream of source documents for a run. Drive
// ingestion and local-folder ingestion each implement this differently;
// the pipeline processor only depends on the interface.
type Ingestor interface {
	Documents(ctx context.Context) (<-chan Document, <-chan error)
}
