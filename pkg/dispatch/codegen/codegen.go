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

// Package codegen implements the strategy selector and codegen stage (C9):
// picking one of four dispatch strategies per the budget contract in §4.9
// and emitting the corresponding artifact plus an audit record.
package codegen

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/janus-lang/janus/pkg/dispatch/table"
)

// Strategy is one of the four dispatch implementations codegen may emit.
type Strategy int

// The strategies selectable per §4.9.
const (
	StaticDirect Strategy = iota
	SwitchTable
	PerfectHash
	InlineCache
)

// String renders a Strategy for audit records and logging.
func (s Strategy) String() string {
	switch s {
	case StaticDirect:
		return "static_direct"
	case SwitchTable:
		return "switch_table"
	case PerfectHash:
		return "perfect_hash"
	case InlineCache:
		return "inline_cache"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// budget is the per-strategy overhead and memory contract from §4.9.
type budget struct {
	overheadNs float64
	bytesPer   float64
}

var budgets = map[Strategy]budget{
	StaticDirect: {overheadNs: 0, bytesPer: 0},
	SwitchTable:  {overheadNs: 100, bytesPer: 0}, // proportional to entries; checked structurally, not numerically
	PerfectHash:  {overheadNs: 30, bytesPer: 12},
	InlineCache:  {overheadNs: 50, bytesPer: 64},
}

// ErrInvalidDispatchFamily is returned when codegen is asked to build an
// artifact for an empty family.
type ErrInvalidDispatchFamily struct {
	SignatureName string
}

func (e *ErrInvalidDispatchFamily) Error() string {
	return fmt.Sprintf("invalid dispatch family: %q has no entries", e.SignatureName)
}

// ErrContractViolation is returned when no strategy's budget can be met for
// a family; the caller should fall back to SwitchTable per §7.
type ErrContractViolation struct {
	SignatureName string
}

func (e *ErrContractViolation) Error() string {
	return fmt.Sprintf("no strategy satisfies its budget for %q", e.SignatureName)
}

// Artifact is the emitted dispatch artifact for one signature family.  Body
// is an opaque, strategy-specific payload; a real backend would emit
// machine code or IR here, but the payload format is outside the dispatch
// core's scope (see spec's non-goals around codegen backends).
type Artifact struct {
	SignatureName string
	Strategy      Strategy
	Table         *table.DispatchTable
}

// AuditRecord captures what the selector decided and why, for downstream
// debug info and cache correlation.
type AuditRecord struct {
	BuildID               uuid.UUID
	SignatureName         string
	SelectedStrategy      Strategy
	PredictedCyclesSaved  int64
	PredictedMemoryDelta  int64
	Confidence            float64
	SourceToEmittedEntity map[string]string
}

// Selector picks a strategy for a signature family and emits its artifact.
type Selector struct {
	buildID uuid.UUID
}

// NewSelector constructs a Selector tagging every audit record it produces
// with a fresh BuildID, identifying the compile job that produced them.
func NewSelector() *Selector {
	return &Selector{buildID: uuid.New()}
}

// Select chooses a strategy for `t` and returns the artifact plus its audit
// record.  discriminatingPositions is the number of parameter positions that
// actually distinguish entries in the family (computed by the caller from
// the table's type signatures); it informs the switch_table trigger in
// §4.9 ("few discriminating positions").
func (s *Selector) Select(t *table.DispatchTable, discriminatingPositions int, hotPathLongTail bool) (Artifact, AuditRecord, error) {
	if t == nil || len(t.Entries) == 0 {
		return Artifact{}, AuditRecord{}, &ErrInvalidDispatchFamily{SignatureName: safeName(t)}
	}

	strategy, confidence, err := s.choose(t, discriminatingPositions, hotPathLongTail)
	if err != nil {
		return Artifact{}, AuditRecord{}, err
	}

	t.Strategy = tableStrategy(strategy)

	artifact := Artifact{SignatureName: t.SignatureName, Strategy: strategy, Table: t}

	record := AuditRecord{
		BuildID:               s.buildID,
		SignatureName:         t.SignatureName,
		SelectedStrategy:      strategy,
		PredictedCyclesSaved:  predictedCyclesSaved(strategy, len(t.Entries)),
		PredictedMemoryDelta:  predictedMemoryDelta(strategy, len(t.Entries)),
		Confidence:            confidence,
		SourceToEmittedEntity: map[string]string{t.SignatureName: strategy.String()},
	}

	return artifact, record, nil
}

// fewDiscriminatingPositions is the §4.9 "few discriminating positions"
// threshold above which switch_table confidence drops (but the strategy
// may still be viable, as long as it stays within budget).
const fewDiscriminatingPositions = 2

// comparisonOverheadNs estimates the per-position cost of a sequential
// discriminator comparison in an emitted switch_table; it is what makes
// §4.9's "≤ 100 ns" budget an actual constraint on discriminatingPositions
// rather than always satisfied.
const comparisonOverheadNs = 15.0

func (s *Selector) choose(t *table.DispatchTable, discriminatingPositions int, hotPathLongTail bool) (Strategy, float64, error) {
	n := len(t.Entries)

	switch {
	case n <= 1:
		return StaticDirect, 1.0, nil
	case hotPathLongTail:
		return InlineCache, 0.75, nil
	case n >= 8:
		if admitsPerfectHash(t) {
			return PerfectHash, 0.8, nil
		}
	case n >= 2 && n <= 7:
		if overhead := float64(discriminatingPositions) * comparisonOverheadNs; overhead <= budgets[SwitchTable].overheadNs {
			if discriminatingPositions <= fewDiscriminatingPositions {
				return SwitchTable, 0.85, nil
			}

			return SwitchTable, 0.6, nil
		}
	}

	return 0, 0, &ErrContractViolation{SignatureName: t.SignatureName}
}

// admitsPerfectHash reports whether the family's type-signature keys admit
// a collision-free hash into some table of size n..4n, per §4.9's
// perfect_hash trigger ("key set admits a collision-free hash"). A family
// whose keys keep colliding at every candidate table size up to 4n does
// not get perfect_hash, triggering ContractViolation instead.
func admitsPerfectHash(t *table.DispatchTable) bool {
	n := len(t.Entries)
	if n == 0 {
		return false
	}

	for size := n; size <= n*4; size++ {
		seen := make(map[uint64]bool, n)
		collision := false

		for _, e := range t.Entries {
			slot := e.TypeSignatureKey % uint64(size)
			if seen[slot] {
				collision = true
				break
			}

			seen[slot] = true
		}

		if !collision {
			return true
		}
	}

	return false
}

// Fallback builds the switch_table artifact §7 requires when ContractViolation
// fires: no strategy's budget could be met, so the selector degrades to
// switch_table unconditionally and the caller is expected to surface a
// warning diagnostic alongside it.
func (s *Selector) Fallback(t *table.DispatchTable) (Artifact, AuditRecord) {
	t.Strategy = tableStrategy(SwitchTable)

	artifact := Artifact{SignatureName: t.SignatureName, Strategy: SwitchTable, Table: t}

	record := AuditRecord{
		BuildID:               s.buildID,
		SignatureName:         t.SignatureName,
		SelectedStrategy:      SwitchTable,
		PredictedCyclesSaved:  predictedCyclesSaved(SwitchTable, len(t.Entries)),
		PredictedMemoryDelta:  predictedMemoryDelta(SwitchTable, len(t.Entries)),
		Confidence:            0.3,
		SourceToEmittedEntity: map[string]string{t.SignatureName: SwitchTable.String()},
	}

	return artifact, record
}

func tableStrategy(s Strategy) table.Strategy {
	switch s {
	case PerfectHash:
		return table.BinaryOnSortedTypeIds
	case SwitchTable:
		return table.DecisionTree
	default:
		return table.Linear
	}
}

func predictedCyclesSaved(s Strategy, entries int) int64 {
	switch s {
	case StaticDirect:
		return int64(entries) * 20
	case SwitchTable:
		return int64(entries) * 12
	case PerfectHash:
		return int64(entries) * 18
	case InlineCache:
		return int64(entries) * 15
	default:
		return 0
	}
}

func predictedMemoryDelta(s Strategy, entries int) int64 {
	b := budgets[s]
	return int64(float64(entries) * b.bytesPer)
}

func safeName(t *table.DispatchTable) string {
	if t == nil {
		return "<nil>"
	}

	return t.SignatureName
}

// MeetsBudget reports whether a measured overhead/memory observation for
// `s` stays within its contract — used by C11 to validate
// post-optimization invariants via DispatchTable.Benchmark results.
func MeetsBudget(s Strategy, observedNs float64, observedBytesPerEntry float64) bool {
	b, ok := budgets[s]
	if !ok {
		return false
	}

	if observedNs > b.overheadNs {
		return false
	}

	if b.bytesPer > 0 && observedBytesPerEntry > b.bytesPer {
		return false
	}

	return true
}

// measurementWindow is a five-minute age for Benchmark-derived timing
// samples. No function in this package reads it, so Select and MeetsBudget
// apply no age limit to the measurements they are given.
const measurementWindow = 5 * time.Minute
