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
package codegen

import (
	"testing"

	"github.com/janus-lang/janus/pkg/dispatch/signature"
	"github.com/janus-lang/janus/pkg/dispatch/table"
	"github.com/janus-lang/janus/pkg/dispatch/types"
	"github.com/janus-lang/janus/pkg/util/assert"
)

func buildTable(n int) *table.DispatchTable {
	impls := make([]signature.Implementation, 0, n)
	for i := 0; i < n; i++ {
		impls = append(impls, signature.Implementation{
			FunctionId:   signature.FunctionId{Name: "f", Module: "m", Disambiguator: uint32(i)},
			ParamTypeIds: []types.Id{types.Id(i + 1)},
		})
	}

	return table.Build("f", impls)
}

// buildTableWithDuplicateSignature is like buildTable but forces entry 1's
// TypeSignatureKey to collide with entry 0's, so no modulus admits a
// collision-free hash — a deterministic way to exercise the perfect_hash
// ContractViolation path instead of relying on unlucky hash layout.
func buildTableWithDuplicateSignature(n int) *table.DispatchTable {
	impls := make([]signature.Implementation, 0, n)

	for i := 0; i < n; i++ {
		paramID := types.Id(i + 1)
		if i == 1 {
			paramID = types.Id(1)
		}

		impls = append(impls, signature.Implementation{
			FunctionId:   signature.FunctionId{Name: "f", Module: "m", Disambiguator: uint32(i)},
			ParamTypeIds: []types.Id{paramID},
		})
	}

	return table.Build("f", impls)
}

func TestSelector_00_EmptyFamilyFails(t *testing.T) {
	s := NewSelector()

	if _, _, err := s.Select(nil, 0, false); err == nil {
		t.Fatalf("expected ErrInvalidDispatchFamily for a nil table")
	}
}

func TestSelector_01_SingleEntryIsStaticDirect(t *testing.T) {
	s := NewSelector()
	tbl := buildTable(1)

	artifact, record, err := s.Select(tbl, 1, false)
	assert.NoError(t, err)
	assert.Equal(t, StaticDirect, artifact.Strategy)
	assert.Equal(t, StaticDirect, record.SelectedStrategy)
	assert.Equal(t, 1.0, record.Confidence)
}

func TestSelector_02_HotPathLongTailPrefersInlineCache(t *testing.T) {
	s := NewSelector()
	tbl := buildTable(3)

	artifact, _, err := s.Select(tbl, 2, true)
	assert.NoError(t, err)
	assert.Equal(t, InlineCache, artifact.Strategy)
}

func TestSelector_03_FewEntriesFewPositionsIsSwitchTable(t *testing.T) {
	s := NewSelector()
	tbl := buildTable(5)

	artifact, _, err := s.Select(tbl, 2, false)
	assert.NoError(t, err)
	assert.Equal(t, SwitchTable, artifact.Strategy)
	assert.Equal(t, table.DecisionTree, artifact.Table.Strategy)
}

func TestSelector_04_LargeFamilyIsPerfectHash(t *testing.T) {
	s := NewSelector()
	tbl := buildTable(10)

	artifact, record, err := s.Select(tbl, 4, false)
	assert.NoError(t, err)
	assert.Equal(t, PerfectHash, artifact.Strategy)
	assert.Equal(t, table.BinaryOnSortedTypeIds, artifact.Table.Strategy)
	assert.True(t, record.PredictedMemoryDelta > 0, "perfect_hash carries a non-zero per-entry memory cost")
}

func TestSelector_05_PerfectHashCollisionIsContractViolation(t *testing.T) {
	s := NewSelector()
	tbl := buildTableWithDuplicateSignature(8)

	if _, _, err := s.Select(tbl, 4, false); err == nil {
		t.Fatalf("expected ErrContractViolation when the key set admits no collision-free hash")
	}

	artifact, record := s.Fallback(tbl)
	assert.Equal(t, SwitchTable, artifact.Strategy)
	assert.Equal(t, SwitchTable, record.SelectedStrategy)
	assert.Equal(t, table.DecisionTree, tbl.Strategy)
}

func TestSelector_06_TooManyDiscriminatingPositionsIsContractViolation(t *testing.T) {
	s := NewSelector()
	tbl := buildTable(5)

	if _, _, err := s.Select(tbl, 10, false); err == nil {
		t.Fatalf("expected ErrContractViolation when discriminatingPositions exceeds switch_table's overhead budget")
	}
}

func TestMeetsBudget_00_WithinAndOutsideContract(t *testing.T) {
	assert.True(t, MeetsBudget(StaticDirect, 0, 0), "static_direct has a zero-overhead contract")
	assert.True(t, !MeetsBudget(PerfectHash, 31, 12), "31ns exceeds perfect_hash's 30ns overhead contract")
	assert.True(t, !MeetsBudget(PerfectHash, 30, 13), "13 bytes/entry exceeds perfect_hash's 12-byte contract")
}

func TestStrategy_00_String(t *testing.T) {
	assert.Equal(t, "static_direct", StaticDirect.String())
	assert.Equal(t, "switch_table", SwitchTable.String())
	assert.Equal(t, "perfect_hash", PerfectHash.String())
	assert.Equal(t, "inline_cache", InlineCache.String())
}
