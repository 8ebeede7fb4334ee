// Copyright The Janus Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package perf implements the performance monitor (C11): time-series
// buffers and counters for compile-time resolution and diagnostic
// generation, exported both as an in-memory report and as Prometheus
// metrics, with OpenTelemetry spans around each call-site pass.
//
// Deliberately decoupled from the rest of the pipeline: Monitor takes only
// contexts, strings, byte counts and closures, never
// pkg/dispatch/{types,scope,...} values, so it
// can be wired into a host compiler without dragging in resolver internals.
package perf

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Thresholds the monitor checks against, per §4.11.
const (
	ResolutionThreshold = time.Millisecond
	DiagnosticThreshold = 10 * time.Millisecond
	CacheHitRateTarget  = 0.80
)

var tracer = otel.Tracer("janus-lang/janus/dispatch")

// Sample is one recorded duration observation.
type Sample struct {
	At       time.Time
	Duration time.Duration
}

// Monitor accumulates resolution-time, diagnostic-time, and memory samples,
// plus cache hit/miss counters, and exports them both as an in-memory
// report and as Prometheus metrics.
type Monitor struct {
	mu sync.Mutex

	resolutionSamples []Sample
	diagnosticSamples []Sample
	memorySamples     []int64

	cacheHits   uint64
	cacheMisses uint64

	resolutionHist *prometheus.HistogramVec
	diagnosticHist *prometheus.HistogramVec
	cacheCounter   *prometheus.CounterVec
}

// NewMonitor constructs a Monitor and registers its Prometheus collectors
// against `reg`. Passing a fresh prometheus.NewRegistry() keeps monitor
// metrics isolated from the process-wide default registry in tests.
func NewMonitor(reg prometheus.Registerer) *Monitor {
	m := &Monitor{
		resolutionHist: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "janus_dispatch_resolution_seconds",
			Help:    "Per-call-site dispatch resolution duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"signature"}),
		diagnosticHist: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "janus_dispatch_diagnostic_seconds",
			Help:    "Per-call-site diagnostic generation duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"code"}),
		cacheCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "janus_dispatch_cache_total",
			Help: "Dispatch build-cache hit/miss counts.",
		}, []string{"result"}),
	}

	reg.MustRegister(m.resolutionHist, m.diagnosticHist, m.cacheCounter)

	return m
}

// RecordResolution wraps a resolver pass for `signature` in an OpenTelemetry
// span and records its wall-clock duration.
func (m *Monitor) RecordResolution(ctx context.Context, signatureName string, fn func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, "dispatch.resolve", trace.WithAttributes())
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	d := time.Since(start)

	m.mu.Lock()
	m.resolutionSamples = append(m.resolutionSamples, Sample{At: start, Duration: d})
	m.mu.Unlock()

	m.resolutionHist.WithLabelValues(signatureName).Observe(d.Seconds())

	return err
}

// RecordDiagnostic wraps a diagnostic-generation pass in an OpenTelemetry
// span and records its duration.
func (m *Monitor) RecordDiagnostic(ctx context.Context, code string, fn func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, "dispatch.diagnose")
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	d := time.Since(start)

	m.mu.Lock()
	m.diagnosticSamples = append(m.diagnosticSamples, Sample{At: start, Duration: d})
	m.mu.Unlock()

	m.diagnosticHist.WithLabelValues(code).Observe(d.Seconds())

	return err
}

// RecordMemory appends a memory-usage sample in bytes.
func (m *Monitor) RecordMemory(bytes int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.memorySamples = append(m.memorySamples, bytes)
}

// RecordCacheHit records a build-cache hit.
func (m *Monitor) RecordCacheHit() {
	m.mu.Lock()
	m.cacheHits++
	m.mu.Unlock()

	m.cacheCounter.WithLabelValues("hit").Inc()
}

// RecordCacheMiss records a build-cache miss.
func (m *Monitor) RecordCacheMiss() {
	m.mu.Lock()
	m.cacheMisses++
	m.mu.Unlock()

	m.cacheCounter.WithLabelValues("miss").Inc()
}

// Report summarizes current monitor state against the §4.11 thresholds.
type Report struct {
	MeanResolution time.Duration
	MaxResolution  time.Duration
	MeanDiagnostic time.Duration
	MaxDiagnostic  time.Duration
	CacheHitRate   float64
	ResolutionOK   bool
	DiagnosticOK   bool
	CacheHitRateOK bool
	AllTargetsMet  bool
}

// Report computes a human-readable summary and an "all targets met"
// boolean, per §4.11.
func (m *Monitor) Report() Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	meanRes, maxRes := summarize(m.resolutionSamples)
	meanDiag, maxDiag := summarize(m.diagnosticSamples)

	var hitRate float64

	if total := m.cacheHits + m.cacheMisses; total > 0 {
		hitRate = float64(m.cacheHits) / float64(total)
	}

	r := Report{
		MeanResolution: meanRes,
		MaxResolution:  maxRes,
		MeanDiagnostic: meanDiag,
		MaxDiagnostic:  maxDiag,
		CacheHitRate:   hitRate,
		ResolutionOK:   maxRes <= ResolutionThreshold || len(m.resolutionSamples) == 0,
		DiagnosticOK:   maxDiag <= DiagnosticThreshold || len(m.diagnosticSamples) == 0,
		CacheHitRateOK: hitRate > CacheHitRateTarget || (m.cacheHits+m.cacheMisses) == 0,
	}
	r.AllTargetsMet = r.ResolutionOK && r.DiagnosticOK && r.CacheHitRateOK

	return r
}

// String renders a human-readable report.
func (r Report) String() string {
	status := "FAIL"
	if r.AllTargetsMet {
		status = "PASS"
	}

	return fmt.Sprintf(
		"dispatch performance [%s]: resolution mean=%s max=%s (ok=%v), diagnostic mean=%s max=%s (ok=%v), cache hit-rate=%.1f%% (ok=%v)",
		status, r.MeanResolution, r.MaxResolution, r.ResolutionOK,
		r.MeanDiagnostic, r.MaxDiagnostic, r.DiagnosticOK,
		r.CacheHitRate*100, r.CacheHitRateOK,
	)
}

func summarize(samples []Sample) (mean, max time.Duration) {
	if len(samples) == 0 {
		return 0, 0
	}

	var total time.Duration

	for _, s := range samples {
		total += s.Duration

		if s.Duration > max {
			max = s.Duration
		}
	}

	return total / time.Duration(len(samples)), max
}
