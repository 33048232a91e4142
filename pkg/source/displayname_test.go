// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package source

import "testing"

func TestCleanDisplayName(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"underscore extension", "apple_q3.pdf", "apple q3"},
		{"version suffix", "Quarterly_Report_v2.pdf", "Quarterly Report"},
		{"parenthesized final", "Annual Report (Final).pdf", "Annual Report"},
		{"parenthesized copy number", "Board Deck (2).pdf", "Board Deck"},
		{"url encoded space", "Board%20Deck.pdf", "Board Deck"},
		{"no suffix to strip", "Market Overview.pdf", "Market Overview"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CleanDisplayName(tc.in)
			if got != tc.want {
				t.Errorf("CleanDisplayName(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
