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

// Package dispatch's own tests exercise the full C1-C11 pipeline end to end,
// against the concrete scenarios a host compiler driver actually hits.
package dispatch

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/janus-lang/janus/pkg/dispatch/cache"
	"github.com/janus-lang/janus/pkg/dispatch/codegen"
	"github.com/janus-lang/janus/pkg/dispatch/config"
	"github.com/janus-lang/janus/pkg/dispatch/diagnostic"
	"github.com/janus-lang/janus/pkg/dispatch/perf"
	"github.com/janus-lang/janus/pkg/dispatch/scope"
	"github.com/janus-lang/janus/pkg/dispatch/signature"
	"github.com/janus-lang/janus/pkg/dispatch/table"
	"github.com/janus-lang/janus/pkg/dispatch/types"
	"github.com/janus-lang/janus/pkg/util/source"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()

	cfg := config.Default()
	cfg.CacheDir = t.TempDir()
	require.NoError(t, cfg.Validate())

	return NewDefaultPipeline(cfg, perf.NewMonitor(prometheus.NewRegistry()))
}

// Scenario 1: exact overload chosen among two same-name overloads, with no
// implicit conversion needed, builds a switch_table artifact.
func TestScenario_00_ExactOverloadChosen(t *testing.T) {
	p := newTestPipeline(t)
	root := p.Scopes.Root()

	_, err := p.Scopes.Define(root, scope.FunctionDecl{
		Name: "f", ParameterTypes: []types.Id{types.I32}, ReturnType: types.I32, Visibility: scope.Public,
	})
	require.NoError(t, err)

	_, err = p.Scopes.Define(root, scope.FunctionDecl{
		Name: "f", ParameterTypes: []types.Id{types.F64}, ReturnType: types.F64, Visibility: scope.Public,
	})
	require.NoError(t, err)

	result, err := p.ResolveCallSite(context.Background(), root, "f", []types.Id{types.I32}, source.NewSpan(0, 1), nil)
	require.NoError(t, err)
	require.NotNil(t, result.Resolution.Resolved)
	require.Nil(t, result.Diagnostic)
	require.Equal(t, types.I32, result.Resolution.Resolved.Winner.Implementation.ParamTypeIds[0])

	impls := []signature.Implementation{
		result.Resolution.Resolved.Winner.Implementation,
		{FunctionId: signature.FunctionId{Name: "f", Module: "root", Disambiguator: 1}, ParamTypeIds: []types.Id{types.F64}, ReturnTypeId: types.F64},
	}

	store, err := cache.NewFileStore(p.Config.CacheDir)
	require.NoError(t, err)

	artifact, _, _, err := p.BuildAndEmit(store, "f", impls, 1, 1, false)
	require.NoError(t, err)
	require.Equal(t, codegen.SwitchTable, artifact.Strategy)
	require.True(t, codegen.MeetsBudget(codegen.SwitchTable, 99, 0))
}

// Scenario 2: calling with the wrong arity produces NoMatch with a single
// arity_mismatch rejection and a define-function fix at confidence 0.6.
func TestScenario_01_ArityRejection(t *testing.T) {
	p := newTestPipeline(t)
	root := p.Scopes.Root()

	_, err := p.Scopes.Define(root, scope.FunctionDecl{
		Name: "add", ParameterTypes: []types.Id{types.I32, types.I32}, ReturnType: types.I32, Visibility: scope.Public,
	})
	require.NoError(t, err)

	result, err := p.ResolveCallSite(context.Background(), root, "add", []types.Id{types.I32, types.I32, types.I32}, source.NewSpan(0, 1), nil)
	require.NoError(t, err)
	require.NotNil(t, result.Resolution.NoMatch)
	require.NotNil(t, result.Diagnostic)

	found := false

	for _, fix := range result.Diagnostic.Fixes {
		if fix.Kind == diagnostic.FixDefineFunction && fix.Confidence == 0.6 {
			found = true
		}
	}

	require.True(t, found, "expected a define-function fix at confidence 0.6")
}

// Scenario 3: a near-miss call name surfaces a typo-correction fix.
func TestScenario_02_TypoCorrection(t *testing.T) {
	p := newTestPipeline(t)
	root := p.Scopes.Root()

	for _, name := range []string{"length", "size", "count"} {
		_, err := p.Scopes.Define(root, scope.FunctionDecl{
			Name: name, ParameterTypes: []types.Id{types.String}, ReturnType: types.I32, Visibility: scope.Public,
		})
		require.NoError(t, err)
	}

	result, err := p.ResolveCallSite(context.Background(), root, "lenght", []types.Id{types.String}, source.NewSpan(0, 1),
		[]string{"length", "size", "count"})
	require.NoError(t, err)
	require.NotNil(t, result.Resolution.NoMatch)
	require.NotNil(t, result.Diagnostic)

	var confidence float64

	for _, fix := range result.Diagnostic.Fixes {
		if fix.Kind == diagnostic.FixTypoCorrection && fix.Description == `Did you mean "length"?` {
			confidence = fix.Confidence
		}
	}

	require.GreaterOrEqual(t, confidence, 0.66)
}

// Scenario 4: two overloads tying on cost and specificity produce an
// Ambiguous result with cast-argument fixes for each candidate.
func TestScenario_03_Ambiguity(t *testing.T) {
	p := newTestPipeline(t)
	root := p.Scopes.Root()

	t1 := p.Types.Register("T1", types.Struct)
	t2 := p.Types.Register("T2", types.Struct)
	argType := p.Types.Register("A", types.Struct)

	p.Conversions.Define(argType, t1, 5, false)
	p.Conversions.Define(argType, t2, 5, false)

	_, err := p.Scopes.Define(root, scope.FunctionDecl{
		Name: "g", ParameterTypes: []types.Id{t1}, ReturnType: types.I32, Visibility: scope.Public,
	})
	require.NoError(t, err)

	_, err = p.Scopes.Define(root, scope.FunctionDecl{
		Name: "g", ParameterTypes: []types.Id{t2}, ReturnType: types.I32, Visibility: scope.Public,
	})
	require.NoError(t, err)

	result, err := p.ResolveCallSite(context.Background(), root, "g", []types.Id{argType}, source.NewSpan(0, 1), nil)
	require.NoError(t, err)
	require.NotNil(t, result.Resolution.Ambiguous)
	require.Len(t, result.Resolution.Ambiguous.Candidates, 2)
	require.NotNil(t, result.Diagnostic)

	castFixes := 0

	for _, fix := range result.Diagnostic.Fixes {
		if fix.Kind == diagnostic.FixCastArgument {
			castFixes++
		}
	}

	require.GreaterOrEqual(t, castFixes, 2)
}

// Scenario 5: a single implementation resolves to zero-overhead static
// dispatch regardless of discriminating positions or hot-path status.
func TestScenario_04_ZeroOverheadStaticDispatch(t *testing.T) {
	p := newTestPipeline(t)
	root := p.Scopes.Root()

	_, err := p.Scopes.Define(root, scope.FunctionDecl{
		Name: "h", ParameterTypes: []types.Id{types.String}, ReturnType: types.String, Visibility: scope.Public,
	})
	require.NoError(t, err)

	result, err := p.ResolveCallSite(context.Background(), root, "h", []types.Id{types.String}, source.NewSpan(0, 1), nil)
	require.NoError(t, err)
	require.NotNil(t, result.Resolution.Resolved)

	impls := []signature.Implementation{result.Resolution.Resolved.Winner.Implementation}

	store, err := cache.NewFileStore(p.Config.CacheDir)
	require.NoError(t, err)

	artifact, record, _, err := p.BuildAndEmit(store, "h", impls, 1, 1, false)
	require.NoError(t, err)
	require.Equal(t, codegen.StaticDirect, artifact.Strategy)
	require.Equal(t, int64(0), record.PredictedMemoryDelta)
}

// Scenario 6: a cache round trip preserves entry count and signature name;
// counter fields (call frequency) are allowed to reset.
func TestScenario_05_CacheRoundTrip(t *testing.T) {
	p := newTestPipeline(t)

	impls := []signature.Implementation{
		{FunctionId: signature.FunctionId{Name: "pair", Module: "root", Disambiguator: 0}, ParamTypeIds: []types.Id{types.I32}},
		{FunctionId: signature.FunctionId{Name: "pair", Module: "root", Disambiguator: 1}, ParamTypeIds: []types.Id{types.F64}},
	}

	store, err := cache.NewFileStore(p.Config.CacheDir)
	require.NoError(t, err)

	_, _, _, err = p.BuildAndEmit(store, "pair", impls, 0xcafef00d, 1, false)
	require.NoError(t, err)

	loaded, ok := store.Load("pair", 0xcafef00d)
	require.True(t, ok, "expected a cache hit for a freshly written entry")
	require.Equal(t, "pair", loaded.SignatureName)
	require.Len(t, loaded.Entries, len(impls))

	require.NoError(t, store.InvalidateAll())

	_, ok = store.Load("pair", 0xcafef00d)
	require.False(t, ok, "load after invalidate_all must always miss")
}

// Scenario 7: when no strategy's budget can be met for a family (here, a
// parameter-type collision that defeats perfect_hash at every candidate
// table size), BuildAndEmit falls back to switch_table per §7 instead of
// failing the family, and surfaces a contract_violation warning diagnostic.
func TestScenario_07_ContractViolationFallsBackToSwitchTable(t *testing.T) {
	p := newTestPipeline(t)

	impls := make([]signature.Implementation, 0, 8)
	for i := 0; i < 8; i++ {
		paramID := types.Id(i + 1)
		if i == 1 {
			paramID = types.Id(1) // forces a TypeSignatureKey collision with entry 0
		}

		impls = append(impls, signature.Implementation{
			FunctionId:   signature.FunctionId{Name: "overloaded", Module: "root", Disambiguator: uint32(i)},
			ParamTypeIds: []types.Id{paramID},
		})
	}

	store, err := cache.NewFileStore(p.Config.CacheDir)
	require.NoError(t, err)

	artifact, record, warning, err := p.BuildAndEmit(store, "overloaded", impls, 1, 4, false)
	require.NoError(t, err, "a ContractViolation must not fail the family")
	require.Equal(t, codegen.SwitchTable, artifact.Strategy)
	require.Equal(t, codegen.SwitchTable, record.SelectedStrategy)
	require.NotNil(t, warning)
	require.Equal(t, diagnostic.Warning, warning.Severity)
	require.Equal(t, diagnostic.CodeContractWarning, warning.Code)
}

func TestScenario_06_SpecificityMonotonicityNeverLosesToLessSpecific(t *testing.T) {
	p := newTestPipeline(t)
	root := p.Scopes.Root()

	generic := p.Types.Register("Box", types.GenericParam)
	p.Conversions.Define(types.I32, generic, 0, false)

	_, err := p.Scopes.Define(root, scope.FunctionDecl{
		Name: "dispatchable", ParameterTypes: []types.Id{types.I32}, ReturnType: types.I32, Visibility: scope.Public,
	})
	require.NoError(t, err)

	// Equally cheap to reach (cost 0, not lossy) but less specific:
	// generic_param ranks 50 against primitive's 100.
	_, err = p.Scopes.Define(root, scope.FunctionDecl{
		Name: "dispatchable", ParameterTypes: []types.Id{generic}, ReturnType: types.I32, Visibility: scope.Public,
	})
	require.NoError(t, err)

	result, err := p.ResolveCallSite(context.Background(), root, "dispatchable", []types.Id{types.I32}, source.NewSpan(0, 1), nil)
	require.NoError(t, err)
	require.NotNil(t, result.Resolution.Resolved)
	require.Equal(t, types.I32, result.Resolution.Resolved.Winner.Implementation.ParamTypeIds[0])

	tbl := table.Build("dispatchable", []signature.Implementation{result.Resolution.Resolved.Winner.Implementation})
	require.Len(t, tbl.Entries, 1)
}
