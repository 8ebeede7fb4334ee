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
package perf

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/janus-lang/janus/pkg/util/assert"
)

func TestMonitor_00_RecordResolutionPropagatesError(t *testing.T) {
	m := NewMonitor(prometheus.NewRegistry())

	sentinel := errors.New("boom")
	err := m.RecordResolution(context.Background(), "f", func(ctx context.Context) error {
		return sentinel
	})

	assert.Equal(t, sentinel, err)
}

func TestMonitor_01_ReportEmptyIsAllTargetsMet(t *testing.T) {
	m := NewMonitor(prometheus.NewRegistry())

	r := m.Report()
	assert.True(t, r.AllTargetsMet, "an idle monitor with no samples must report all targets met")
}

func TestMonitor_02_CacheHitRate(t *testing.T) {
	m := NewMonitor(prometheus.NewRegistry())

	for i := 0; i < 9; i++ {
		m.RecordCacheHit()
	}

	m.RecordCacheMiss()

	r := m.Report()
	assert.True(t, r.CacheHitRate > CacheHitRateTarget, "9/10 hits must clear the 80% target")
	assert.True(t, r.CacheHitRateOK, "cache hit rate above target must be reported ok")
}

func TestMonitor_03_LowCacheHitRateFailsTarget(t *testing.T) {
	m := NewMonitor(prometheus.NewRegistry())

	m.RecordCacheHit()

	for i := 0; i < 9; i++ {
		m.RecordCacheMiss()
	}

	r := m.Report()
	assert.True(t, !r.CacheHitRateOK, "1/10 hits must fail the 80% target")
	assert.True(t, !r.AllTargetsMet, "a failed cache-hit-rate target must fail AllTargetsMet overall")
}

func TestMonitor_04_RecordMemoryDoesNotPanic(t *testing.T) {
	m := NewMonitor(prometheus.NewRegistry())
	m.RecordMemory(1024)
	m.RecordMemory(2048)
}
