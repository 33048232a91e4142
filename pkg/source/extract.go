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

package source

import "context"

// ExtractChain tries each Extractor in order, returning the first
// successful result. If every extractor misses, it returns an empty
// ExtractedText with ExtractorUsed "none" rather than an error, per the
// EXTRACT stage's "empty result is not fatal" contract.
func ExtractChain(ctx context.Context, raw []byte, chain ...Extractor) ExtractedText {
	for _, ex := range chain {
		if ctx.Err() != nil {
			break
		}
		if text, ok := ex.Extract(ctx, raw); ok {
			return ExtractedText{Text: text, ExtractorUsed: ex.Name()}
		}
	}
	return ExtractedText{Text: "", ExtractorUsed: "none"}
}
