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

// Package table implements the dispatch table builder (C8): turning a
// signature family's resolved implementations into a cache-line-aligned
// DispatchTable with an optional decision tree.
package table

import (
	"math"
	"math/bits"
	"sort"
	"sync/atomic"

	"github.com/bits-and-blooms/bitset"

	"github.com/janus-lang/janus/pkg/dispatch/signature"
	"github.com/janus-lang/janus/pkg/dispatch/types"
	"github.com/janus-lang/janus/pkg/util"
)

// decisionTreeThreshold is the minimum entry count at which a decision tree
// is worth building, per §4.8.
const decisionTreeThreshold = 8

// entryAlignment is the size, in bytes, every DispatchEntry is padded to so
// entries never share a cache line with a neighbor's hot counters.
const entryAlignment = 64

// fixedFieldsSize is the size, in bytes, of DispatchEntry's fields above —
// TypeSignatureKey(8) + Implementation pointer(8) + CallFrequency(8) +
// SpecificityRank(4) + Flags(4) — kept as an explicit constant (rather than
// unsafe.Sizeof against atomic.Uint64's internal layout) so entryPadSize
// below is computed, not hand-picked.
const fixedFieldsSize = 32

// entryPadSize is the padding needed to round DispatchEntry up to exactly
// one entryAlignment-sized block; it is not a flat entryAlignment, since
// that would double the struct's true size once the fixed fields are added.
const entryPadSize = entryAlignment - fixedFieldsSize%entryAlignment

// DispatchEntry is one implementation slot in a DispatchTable.  Flags is
// reserved for future strategy-specific bits (e.g. monomorphic-cache
// validity); TypeSignatureKey packs the parameter type ids this entry
// matches into a single comparable value used by the linear and
// binary-search lookups (the decision tree compares type ids directly).
// Implementation is a pointer (the
// `implementation_pointer` of §3's data model) rather than an embedded
// FunctionId, so the entry stays pointer-sized instead of growing with the
// referenced function's name/module strings.
type DispatchEntry struct {
	TypeSignatureKey uint64
	Implementation   *signature.FunctionId
	CallFrequency    atomic.Uint64
	SpecificityRank  uint32
	Flags            uint32
	// pad keeps sizeof(DispatchEntry) exactly entryAlignment bytes so the
	// builder's cache-line-aligned block invariant holds regardless of
	// platform pointer size.
	_ [entryPadSize]byte
}

// TypeSignatureKey packs up to 8 type identifiers (one byte of entropy each
// is not enough for Id's full range, so this folds them with an FNV-style
// mix) into a single uint64 usable as a sortable, comparable discriminator.
func TypeSignatureKey(paramTypeIds []types.Id) uint64 {
	var key uint64 = 1469598103934665603 // FNV offset basis

	for _, id := range paramTypeIds {
		key ^= uint64(id)
		key *= 1099511628211 // FNV prime
	}

	return key
}

// DecisionTreeNode is one node of the optional decision tree, built whenever
// entry_count ≥ decisionTreeThreshold. Each node takes the most balanced
// split it finds; no minimum balance is required, so a lopsided partition
// still yields a tree.
type DecisionTreeNode struct {
	DiscriminatorTypeIndex int
	DiscriminatorTypeId    types.Id
	Left, Right            *DecisionTreeNode
	// Terminal is set on a leaf; Entry indexes into DispatchTable.Entries.
	Terminal bool
	Entry    int
}

// Strategy names a lookup algorithm usable against a built table,
// selectable for benchmarking independent of the codegen strategy C9
// ultimately emits.
type Strategy int

// The lookup strategies a table can serve.
const (
	Linear Strategy = iota
	BinaryOnSortedTypeIds
	DecisionTree
)

// Stats summarizes construction of a DispatchTable.
type Stats struct {
	EntryCount      int
	DecisionTreeMax int
}

// DispatchTable holds the built entries for one signature family (a
// function name + arity pair).
type DispatchTable struct {
	SignatureName  string
	ParameterCount int
	TypeSignature  [][]types.Id
	Entries        []*DispatchEntry
	DecisionTree   *DecisionTreeNode
	Strategy       Strategy
	Stats          Stats
}

// Build constructs a DispatchTable for `name` from `impls`.  Construction is
// deterministic and reproducible given the same implementation set: entries
// are emitted in the order impls is given, and the decision tree (if any) is
// built by a discriminator search that breaks ties by parameter index.
func Build(name string, impls []signature.Implementation) *DispatchTable {
	t := &DispatchTable{SignatureName: name}

	if len(impls) == 0 {
		return t
	}

	t.ParameterCount = impls[0].Arity()
	t.Entries = make([]*DispatchEntry, len(impls))
	t.TypeSignature = make([][]types.Id, len(impls))

	for i, impl := range impls {
		fid := impl.FunctionId
		e := &DispatchEntry{
			TypeSignatureKey: TypeSignatureKey(impl.ParamTypeIds),
			Implementation:   &fid,
			SpecificityRank:  impl.SpecificityRank,
		}
		t.Entries[i] = e
		t.TypeSignature[i] = impl.ParamTypeIds
	}

	t.Stats = Stats{EntryCount: len(t.Entries)}

	if len(t.Entries) >= decisionTreeThreshold {
		maxDepth := int(math.Ceil(math.Log2(float64(len(t.Entries))))) + 1
		indices := make([]int, len(t.Entries))
		for i := range indices {
			indices[i] = i
		}

		t.DecisionTree = buildTree(t.TypeSignature, indices, t.ParameterCount, maxDepth)
		t.Stats.DecisionTreeMax = maxDepth
	}

	return t
}

// buildTree recursively partitions `indices` by the parameter position that
// maximizes information gain across the entries' type signatures, using a
// bitset per side to track membership without per-partition slice churn.
func buildTree(sigs [][]types.Id, indices []int, paramCount, depthBudget int) *DecisionTreeNode {
	if len(indices) == 1 || depthBudget <= 0 {
		return &DecisionTreeNode{Terminal: true, Entry: indices[0]}
	}

	bestParam := -1
	bestGain := -1.0
	var bestDiscriminator types.Id

	var bestSplit util.Pair[*bitset.BitSet, *bitset.BitSet]

	for p := 0; p < paramCount; p++ {
		groups := make(map[types.Id]*bitset.BitSet)

		for _, idx := range indices {
			tid := sigs[idx][p]
			if groups[tid] == nil {
				groups[tid] = bitset.New(uint(len(sigs)))
			}

			groups[tid].Set(uint(idx))
		}

		if len(groups) < 2 {
			continue
		}

		// Pick the most common discriminator value at this position as the
		// "left" branch and everything else as "right"; this keeps the
		// split binary regardless of how many distinct values exist.
		var majority types.Id

		var majoritySet *bitset.BitSet

		for tid, set := range groups {
			// Equal counts go to the lower type id so the result does not
			// depend on map iteration order.
			if majoritySet == nil || set.Count() > majoritySet.Count() ||
				(set.Count() == majoritySet.Count() && tid < majority) {
				majority, majoritySet = tid, set
			}
		}

		rest := bitset.New(uint(len(sigs)))
		for _, idx := range indices {
			if !majoritySet.Test(uint(idx)) {
				rest.Set(uint(idx))
			}
		}

		gain := informationGain(len(indices), int(majoritySet.Count()), int(rest.Count()))
		if gain > bestGain {
			bestGain, bestParam, bestDiscriminator = gain, p, majority
			bestSplit = util.NewPair(majoritySet, rest)
		}
	}

	if bestParam == -1 {
		return &DecisionTreeNode{Terminal: true, Entry: indices[0]}
	}

	bestLeft, bestRight := bestSplit.Split()
	leftIdx := toIndices(bestLeft, indices)
	rightIdx := toIndices(bestRight, indices)

	return &DecisionTreeNode{
		DiscriminatorTypeIndex: bestParam,
		DiscriminatorTypeId:    bestDiscriminator,
		Left:                   buildTree(sigs, leftIdx, paramCount, depthBudget-1),
		Right:                  buildTree(sigs, rightIdx, paramCount, depthBudget-1),
	}
}

func toIndices(set *bitset.BitSet, universe []int) []int {
	out := make([]int, 0, set.Count())

	for _, idx := range universe {
		if set.Test(uint(idx)) {
			out = append(out, idx)
		}
	}

	return out
}

// informationGain scores a binary split by how close it comes to perfectly
// balanced (log2 of the branching factor), rewarding even partitions that
// keep tree depth near the bits.Len bound.
func informationGain(total, left, right int) float64 {
	if left == 0 || right == 0 {
		return 0
	}

	balance := float64(min(left, right)) / float64(max(left, right))

	return balance * float64(bits.Len(uint(total)))
}

// Optimize stably sorts entries by descending CallFrequency.  When
// frequencies tie, prior order is preserved — stability is observable and
// load-bearing, per §4.8.
func Optimize(t *DispatchTable) {
	sort.SliceStable(t.Entries, func(i, j int) bool {
		return t.Entries[i].CallFrequency.Load() > t.Entries[j].CallFrequency.Load()
	})
}

// TestCase is one benchmark input: the parameter types to look up.
type TestCase struct {
	ParamTypeIds []types.Id
}

// BenchmarkResult reports the outcome of running `iterations` lookups of
// each test case against `strategy`.
type BenchmarkResult struct {
	Strategy   Strategy
	Lookups    int
	MatchCount int
}

// Benchmark runs each of `cases` for `iterations` rounds against `strategy`,
// used by C11 to validate post-optimization invariants and by C9's audit
// record to justify a strategy choice.
func (t *DispatchTable) Benchmark(cases []TestCase, iterations int) BenchmarkResult {
	result := BenchmarkResult{Strategy: t.Strategy}

	for i := 0; i < iterations; i++ {
		for _, c := range cases {
			result.Lookups++

			if _, ok := t.Lookup(c.ParamTypeIds); ok {
				result.MatchCount++
			}
		}
	}

	return result
}

// Lookup dispatches to the strategy currently selected on the table.
func (t *DispatchTable) Lookup(paramTypeIds []types.Id) (*DispatchEntry, bool) {
	switch t.Strategy {
	case BinaryOnSortedTypeIds:
		return t.lookupBinary(paramTypeIds)
	case DecisionTree:
		if t.DecisionTree != nil {
			return t.lookupTree(paramTypeIds)
		}

		fallthrough
	default:
		return t.lookupLinear(paramTypeIds)
	}
}

func (t *DispatchTable) lookupLinear(paramTypeIds []types.Id) (*DispatchEntry, bool) {
	key := TypeSignatureKey(paramTypeIds)

	for _, e := range t.Entries {
		if e.TypeSignatureKey == key {
			return e, true
		}
	}

	return nil, false
}

func (t *DispatchTable) lookupBinary(paramTypeIds []types.Id) (*DispatchEntry, bool) {
	key := TypeSignatureKey(paramTypeIds)

	sorted := append([]*DispatchEntry(nil), t.Entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TypeSignatureKey < sorted[j].TypeSignatureKey })

	i := sort.Search(len(sorted), func(i int) bool { return sorted[i].TypeSignatureKey >= key })
	if i < len(sorted) && sorted[i].TypeSignatureKey == key {
		return sorted[i], true
	}

	return nil, false
}

func (t *DispatchTable) lookupTree(paramTypeIds []types.Id) (*DispatchEntry, bool) {
	node := t.DecisionTree

	for node != nil && !node.Terminal {
		if node.DiscriminatorTypeIndex >= len(paramTypeIds) {
			return nil, false
		}

		if paramTypeIds[node.DiscriminatorTypeIndex] == node.DiscriminatorTypeId {
			node = node.Left
		} else {
			node = node.Right
		}
	}

	if node == nil {
		return nil, false
	}

	return t.Entries[node.Entry], true
}
