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

package main

import (
	"context"
	"unicode/utf8"
)

// plainTextExtractor is the one extractor wired into the default
// chain: it accepts raw bytes that already decode as valid, mostly
// printable UTF-8 text and rejects everything else. Real PDF/DOCX/PPTX
// parsing is a pluggable external collaborator (source.Extractor);
// operators wire a dedicated parser ahead of this one in the chain
// passed to pipeline.Processor, and plainTextExtractor remains last so
// a document whose bytes are already plaintext is never needlessly
// reported as extraction-failed.
type plainTextExtractor struct{}

func (plainTextExtractor) Name() string { return "plaintext" }

func (plainTextExtractor) Extract(ctx context.Context, raw []byte) (string, bool) {
	if len(raw) == 0 || !utf8.Valid(raw) {
		return "", false
	}
	if !mostlyPrintable(raw) {
		return "", false
	}
	return string(raw), true
}

// mostlyPrintable rejects binary blobs (PDF, DOCX) that happen to be
// valid UTF-8 by coincidence: anything with 5% or more control
// characters outside common whitespace is treated as a miss.
func mostlyPrintable(raw []byte) bool {
	if len(raw) == 0 {
		return false
	}
	var control int
	for _, b := range raw {
		if b < 0x09 || (b > 0x0d && b < 0x20) {
			control++
		}
	}
	return float64(control)/float64(len(raw)) < 0.05
}
