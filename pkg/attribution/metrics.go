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
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counter/histogram pair spec.md §4.6
// allows as an optional, non-blocking analytics mirror:
// attribution_invocations_total, labeled by analyzer kind and outcome,
// and attribution_duration_seconds, labeled by analyzer kind only.
type Metrics struct {
	once sync.Once
	reg  prometheus.Registerer

	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	errors      *prometheus.CounterVec
}

// NewMetrics registers the attribution metric vectors against reg and
// returns a *Metrics ready for NewTracker. Passing a dedicated
// prometheus.NewRegistry() (rather than the global DefaultRegisterer)
// keeps repeated test runs from panicking on duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{reg: reg}
	m.init()
	return m
}

func (m *Metrics) init() {
	m.once.Do(func() {
		m.invocations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attribution_invocations_total",
			Help: "Analyzer invocations recorded by the attribution tracker",
		}, []string{"analyzer_kind", "outcome"})

		m.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "attribution_duration_seconds",
			Help:    "Analyzer invocation duration as recorded by the attribution tracker",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"analyzer_kind"})

		m.errors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attribution_errors_total",
			Help: "Analyzer invocations that failed, labeled by error kind",
		}, []string{"analyzer_kind", "error_kind"})

		m.reg.MustRegister(m.invocations, m.duration, m.errors)
	})
}

func (m *Metrics) observe(rec Record) {
	outcome := "success"
	if rec.ErrorKind != "" {
		outcome = "failure"
		m.errors.WithLabelValues(string(rec.AnalyzerKind), rec.ErrorKind).Inc()
	}
	m.invocations.WithLabelValues(string(rec.AnalyzerKind), outcome).Inc()
	m.duration.WithLabelValues(string(rec.AnalyzerKind)).Observe(float64(rec.DurationMS) / 1000.0)
}
