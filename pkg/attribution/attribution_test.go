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

package attribution

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverscornelson/knowledge-pipeline/pkg/analyzer"
)

func TestFromResult_CopiesAllFields(t *testing.T) {
	r := analyzer.Result{
		Kind:            analyzer.Classifier,
		QualitySubscore: 80,
		Attribution: analyzer.AttributionRecord{
			ExecutionID:   "exec-1",
			PromptID:      "p-1",
			PromptName:    "Default Classifier",
			PromptVersion: 2,
			Temperature:   0.1,
			Model:         "mock-model",
			WebSearchUsed: true,
			DurationMS:    120,
			TokenCount:    345,
			Timestamp:     time.Unix(1700000000, 0),
		},
	}
	rec := FromResult(r)
	assert.Equal(t, analyzer.Classifier, rec.AnalyzerKind)
	assert.Equal(t, "exec-1", rec.ExecutionID)
	assert.Equal(t, "p-1", rec.PromptID)
	assert.Equal(t, 2, rec.PromptVersion)
	assert.Equal(t, 80, rec.QualitySubscore)
	assert.True(t, rec.WebSearchUsed)
	assert.Equal(t, "", rec.ErrorKind)
}

func TestTracker_RecordAccumulatesAndDetectsFailure(t *testing.T) {
	tr := NewTracker(nil)
	tr.Record(Record{AnalyzerKind: analyzer.Classifier})
	tr.Record(Record{AnalyzerKind: analyzer.Summarizer, ErrorKind: "transient"})

	require.Len(t, tr.Records(), 2)
	assert.True(t, tr.Failed())
}

func TestTracker_NilTrackerRecordIsNoop(t *testing.T) {
	var tr *Tracker
	assert.NotPanics(t, func() { tr.Record(Record{}) })
	assert.Nil(t, tr.Records())
	assert.False(t, tr.Failed())
}

func TestMetrics_ObserveIncrementsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	tr := NewTracker(m)

	tr.Record(Record{AnalyzerKind: analyzer.Classifier, DurationMS: 500})
	tr.Record(Record{AnalyzerKind: analyzer.Classifier, DurationMS: 250, ErrorKind: "transient"})

	families, err := reg.Gather()
	require.NoError(t, err)

	var invocations, errs *dto.MetricFamily
	for _, f := range families {
		switch f.GetName() {
		case "attribution_invocations_total":
			invocations = f
		case "attribution_errors_total":
			errs = f
		}
	}
	require.NotNil(t, invocations)
	require.NotNil(t, errs)
	assert.Len(t, invocations.Metric, 2) // one per outcome label
	assert.Len(t, errs.Metric, 1)
	assert.Equal(t, float64(1), errs.Metric[0].GetCounter().GetValue())
}
