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
package table

import (
	"testing"
	"unsafe"

	"github.com/janus-lang/janus/pkg/dispatch/signature"
	"github.com/janus-lang/janus/pkg/dispatch/types"
	"github.com/janus-lang/janus/pkg/util/assert"
)

func impl(name string, disambig uint32, params ...types.Id) signature.Implementation {
	return signature.Implementation{
		FunctionId:   signature.FunctionId{Name: name, Module: "m", Disambiguator: disambig},
		ParamTypeIds: params,
	}
}

func TestBuild_00_Empty(t *testing.T) {
	tbl := Build("f", nil)
	assert.Equal(t, 0, len(tbl.Entries))
	assert.Equal(t, (*DecisionTreeNode)(nil), tbl.DecisionTree)
}

func TestBuild_01_SmallTableHasNoDecisionTree(t *testing.T) {
	impls := []signature.Implementation{
		impl("f", 0, types.I32),
		impl("f", 1, types.F64),
	}

	tbl := Build("f", impls)
	assert.Equal(t, 2, len(tbl.Entries))
	assert.Equal(t, (*DecisionTreeNode)(nil), tbl.DecisionTree)
}

// bitSignatures builds n entries whose 3 parameters encode i in binary, so
// every parameter position gives an exactly-balanced split — the decision
// tree's depth budget is never exceeded regardless of branch order.
func bitSignatures(n int) []signature.Implementation {
	bit := func(v, pos int) types.Id {
		if (v>>pos)&1 == 0 {
			return types.I32
		}

		return types.F64
	}

	impls := make([]signature.Implementation, 0, n)
	for i := 0; i < n; i++ {
		impls = append(impls, impl("f", uint32(i), bit(i, 0), bit(i, 1), bit(i, 2)))
	}

	return impls
}

func TestBuild_02_LargeTableGetsDecisionTree(t *testing.T) {
	tbl := Build("f", bitSignatures(8))
	assert.True(t, tbl.DecisionTree != nil, "a table at or above the decision-tree threshold must build one")
}

func TestLinearLookup_00_HitAndMiss(t *testing.T) {
	impls := []signature.Implementation{
		impl("f", 0, types.I32),
		impl("f", 1, types.F64),
	}
	tbl := Build("f", impls)
	tbl.Strategy = Linear

	e, ok := tbl.Lookup([]types.Id{types.I32})
	assert.True(t, ok, "expected a hit for a registered type signature")
	assert.Equal(t, "f", e.Implementation.Name)

	_, ok = tbl.Lookup([]types.Id{types.Bool})
	assert.True(t, !ok, "expected a miss for an unregistered type signature")
}

func TestBinaryLookup_00_HitAndMiss(t *testing.T) {
	impls := []signature.Implementation{
		impl("f", 0, types.Bool),
		impl("f", 1, types.I32),
		impl("f", 2, types.F64),
	}
	tbl := Build("f", impls)
	tbl.Strategy = BinaryOnSortedTypeIds

	e, ok := tbl.Lookup([]types.Id{types.F64})
	assert.True(t, ok, "expected a hit for a registered type signature")
	assert.Equal(t, uint32(2), e.Implementation.Disambiguator)

	_, ok = tbl.Lookup([]types.Id{types.String})
	assert.True(t, !ok, "expected a miss for an unregistered type signature")
}

func TestDecisionTreeLookup_00_MatchesLinear(t *testing.T) {
	impls := bitSignatures(8)
	tbl := Build("f", impls)
	tbl.Strategy = DecisionTree

	for i, want := range impls {
		e, ok := tbl.Lookup(want.ParamTypeIds)
		assert.True(t, ok, "every built entry must be reachable through the decision tree")
		assert.Equal(t, uint32(i), e.Implementation.Disambiguator)
	}
}

func TestOptimize_00_StableByFrequencyDescending(t *testing.T) {
	impls := []signature.Implementation{
		impl("f", 0, types.I32),
		impl("f", 1, types.F64),
		impl("f", 2, types.Bool),
	}
	tbl := Build("f", impls)

	tbl.Entries[0].CallFrequency.Store(5)
	tbl.Entries[1].CallFrequency.Store(10)
	tbl.Entries[2].CallFrequency.Store(10)

	Optimize(tbl)

	assert.Equal(t, uint32(1), tbl.Entries[0].Implementation.Disambiguator)
	assert.Equal(t, uint32(2), tbl.Entries[1].Implementation.Disambiguator)
	assert.Equal(t, uint32(0), tbl.Entries[2].Implementation.Disambiguator)
}

func TestDispatchEntry_00_IsExactlyOneCacheLine(t *testing.T) {
	assert.Equal(t, uintptr(entryAlignment), unsafe.Sizeof(DispatchEntry{}))
}

func TestTypeSignatureKey_00_DistinctForDistinctSignatures(t *testing.T) {
	k1 := TypeSignatureKey([]types.Id{types.I32, types.Bool})
	k2 := TypeSignatureKey([]types.Id{types.Bool, types.I32})
	assert.True(t, k1 != k2, "order-sensitive signatures must key distinctly")
}
