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

// Package resolver implements the semantic resolver (C6): ranking viable
// candidates by conversion cost and specificity, and reporting a unique
// winner, ambiguity, or no-match.
package resolver

import (
	"sort"

	"github.com/janus-lang/janus/pkg/dispatch/candidate"
	"github.com/janus-lang/janus/pkg/dispatch/signature"
	"github.com/janus-lang/janus/pkg/dispatch/types"
	"github.com/janus-lang/janus/pkg/util/source"
)

// ConversionPath is the per-argument sequence of conversions taking a call
// site's argument types to a candidate's parameter types.
type ConversionPath struct {
	Conversions  []types.Conversion
	TotalCost    uint32
	MaxLossiness bool
}

// CompatibleCandidate is a viable Candidate augmented with the conversion
// path C6 chose for it.
type CompatibleCandidate struct {
	Candidate      candidate.Candidate
	Implementation signature.Implementation
	Path           ConversionPath
}

// Entry pairs one viable Candidate with its canonicalized Implementation;
// callers build these from a CandidateSet's Viable slice and the
// corresponding signature.Analyzer output before calling Resolve.
type Entry struct {
	Candidate      candidate.Candidate
	Implementation signature.Implementation
}

// CallSite is the call being resolved.
type CallSite struct {
	FunctionName  string
	ArgumentTypes []types.Id
	SourceSpan    source.Span
}

// Resolved is returned when exactly one candidate has the strictly-minimal
// ranking key.
type Resolved struct {
	Winner CompatibleCandidate
}

// Ambiguous is returned when two or more candidates tie on the ranking key
// (excluding the deterministic source-span tie-break).
type Ambiguous struct {
	Candidates []CompatibleCandidate
}

// NoMatch is returned when no candidate survives conversion-path computation
// and the original collector-level rejections.
type NoMatch struct {
	CallSite CallSite
	Rejected []candidate.Candidate
}

// Result is the sum type Resolve returns: exactly one of Resolved,
// Ambiguous, or NoMatch is non-nil.
type Result struct {
	Resolved  *Resolved
	Ambiguous *Ambiguous
	NoMatch   *NoMatch
}

// Resolve ranks `entries` against `call` using `conversions` to price
// argument-to-parameter conversions, and returns exactly one of Resolved,
// Ambiguous, or NoMatch.  It never panics: every failure mode is expressed
// as NoMatch or Ambiguous, per the universal invariant in §8.
func Resolve(call CallSite, entries []Entry, conversions *types.ConversionRegistry) Result {
	compatible := make([]CompatibleCandidate, 0, len(entries))
	rejected := make([]candidate.Candidate, 0)

	for _, e := range entries {
		path, ok := computePath(call.ArgumentTypes, e.Implementation.ParamTypeIds, conversions)
		if !ok {
			c := e.Candidate
			c.RejectionOf = &candidate.RejectionReason{Kind: candidate.TypeMismatch}
			rejected = append(rejected, c)

			continue
		}

		compatible = append(compatible, CompatibleCandidate{
			Candidate:      e.Candidate,
			Implementation: e.Implementation,
			Path:           path,
		})
	}

	if len(compatible) == 0 {
		return Result{NoMatch: &NoMatch{CallSite: call, Rejected: rejected}}
	}

	sort.SliceStable(compatible, func(i, j int) bool {
		return less(compatible[i], compatible[j])
	})

	// Every candidate tying the winner on (cost, lossiness, specificity) —
	// excluding the deterministic span tie-break — belongs to the ambiguity
	// set.  The span comparison in `less` only orders output for
	// readability; it must never be used to decide uniqueness.
	best := compatible[0]
	tied := []CompatibleCandidate{best}

	for _, c := range compatible[1:] {
		if tiesExcludingSpan(best, c) {
			tied = append(tied, c)
		}
	}

	if len(tied) > 1 {
		return Result{Ambiguous: &Ambiguous{Candidates: tied}}
	}

	return Result{Resolved: &Resolved{Winner: best}}
}

// computePath builds a ConversionPath from `argTypes` to `paramTypes`. It
// returns ok=false the moment any position has neither an identical type nor
// a registered conversion.
func computePath(argTypes, paramTypes []types.Id, conversions *types.ConversionRegistry) (ConversionPath, bool) {
	convs, ok := conversions.Path(argTypes, paramTypes)
	if !ok {
		return ConversionPath{}, false
	}

	var totalCost uint32

	var lossy bool

	for _, c := range convs {
		totalCost += c.Cost
		lossy = lossy || c.IsLossy
	}

	return ConversionPath{Conversions: convs, TotalCost: totalCost, MaxLossiness: lossy}, true
}

// less orders by the ranking key of §4.6: (total_cost↑, max_lossiness↑,
// −specificity_rank↑, source_span↑). Lower total_cost wins; among equal
// cost, non-lossy beats lossy; among equal lossiness, higher specificity
// wins; the final span comparison only makes iteration order deterministic.
func less(a, b CompatibleCandidate) bool {
	if a.Path.TotalCost != b.Path.TotalCost {
		return a.Path.TotalCost < b.Path.TotalCost
	}

	if a.Path.MaxLossiness != b.Path.MaxLossiness {
		return !a.Path.MaxLossiness
	}

	if a.Implementation.SpecificityRank != b.Implementation.SpecificityRank {
		return a.Implementation.SpecificityRank > b.Implementation.SpecificityRank
	}

	return a.Implementation.SourceSpan.Start() < b.Implementation.SourceSpan.Start()
}

// tiesExcludingSpan reports whether a and b tie on (cost, lossiness,
// specificity), ignoring the source-span tie-break entirely — this is the
// ambiguity test from §4.6, kept as its own function so the deterministic
// ordering in `less` can never be mistaken for a disambiguation rule.
func tiesExcludingSpan(a, b CompatibleCandidate) bool {
	return a.Path.TotalCost == b.Path.TotalCost &&
		a.Path.MaxLossiness == b.Path.MaxLossiness &&
		a.Implementation.SpecificityRank == b.Implementation.SpecificityRank
}
