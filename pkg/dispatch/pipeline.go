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

// Package dispatch wires the C1-C11 components into the call-site pipeline
// described in §2's control-flow summary: C3→C4→C5→C6→C7(errors)/C8→C9→C10,
// with C11 as a sink and C1/C2 queried throughout.
package dispatch

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/janus-lang/janus/pkg/dispatch/cache"
	"github.com/janus-lang/janus/pkg/dispatch/candidate"
	"github.com/janus-lang/janus/pkg/dispatch/codegen"
	"github.com/janus-lang/janus/pkg/dispatch/config"
	"github.com/janus-lang/janus/pkg/dispatch/diagnostic"
	"github.com/janus-lang/janus/pkg/dispatch/perf"
	"github.com/janus-lang/janus/pkg/dispatch/resolver"
	"github.com/janus-lang/janus/pkg/dispatch/scope"
	"github.com/janus-lang/janus/pkg/dispatch/signature"
	"github.com/janus-lang/janus/pkg/dispatch/table"
	"github.com/janus-lang/janus/pkg/dispatch/types"
	"github.com/janus-lang/janus/pkg/util/source"
)

// Pipeline owns the process-wide registries (type, conversion, scope) for
// one compile job and drives individual call sites through resolution,
// diagnostics, and codegen.
type Pipeline struct {
	Types       *types.Registry
	Conversions *types.ConversionRegistry
	Scopes      *scope.Manager

	collector *candidate.Collector
	analyzer  *signature.Analyzer
	diagnoser *diagnostic.Engine
	selector  *codegen.Selector
	monitor   *perf.Monitor

	Config config.DispatchConfig
}

// NewDefaultPipeline constructs a Pipeline with fresh C1/C2/C3 registries
// that records into the caller-supplied Monitor.
func NewDefaultPipeline(cfg config.DispatchConfig, monitor *perf.Monitor) *Pipeline {
	typeRegistry := types.NewRegistry()
	convRegistry := types.NewConversionRegistry()
	scopeManager := scope.NewManager()

	return &Pipeline{
		Types:       typeRegistry,
		Conversions: convRegistry,
		Scopes:      scopeManager,
		collector:   candidate.NewCollector(scopeManager),
		analyzer:    signature.NewAnalyzer(typeRegistry),
		diagnoser:   diagnostic.NewEngine(),
		selector:    codegen.NewSelector(),
		monitor:     monitor,
		Config:      cfg,
	}
}

// CallSiteResult bundles everything a host driver needs after resolving one
// call site: the resolver outcome, any diagnostic to surface, and (on
// success only, after a caller separately calls BuildAndEmit) nothing yet —
// codegen operates per signature family, not per call site, per §2.
type CallSiteResult struct {
	Resolution resolver.Result
	Diagnostic *diagnostic.Diagnostic
}

// ResolveCallSite runs C3→C4→C5→C6→C7 for a single call: it collects
// candidates for (name, len(argumentTypes)) visible from `from`, lowers each
// viable one to an Implementation, and resolves against `argumentTypes`. On
// Ambiguous or NoMatch it also produces the diagnostic C7 would emit.
func (p *Pipeline) ResolveCallSite(ctx context.Context, from scope.ScopeId, name string, argumentTypes []types.Id, sourceSpan source.Span, availableNames []string) (CallSiteResult, error) {
	var result CallSiteResult

	err := p.monitor.RecordResolution(ctx, name, func(ctx context.Context) error {
		set, err := p.collector.Collect(from, name, len(argumentTypes))
		if err != nil {
			return err
		}

		entries := make([]resolver.Entry, 0, len(set.Viable))

		for _, c := range set.Viable {
			modulePath, err := p.Scopes.ModulePath(c.Scope)
			if err != nil {
				return err
			}

			impl, err := p.analyzer.Analyze(c.Function, modulePath.String())
			if err != nil {
				return err
			}

			entries = append(entries, resolver.Entry{Candidate: c, Implementation: impl})
		}

		call := resolver.CallSite{FunctionName: name, ArgumentTypes: argumentTypes, SourceSpan: sourceSpan}
		result.Resolution = resolver.Resolve(call, entries, p.Conversions)

		switch {
		case result.Resolution.Ambiguous != nil:
			d := p.diagnoser.FromAmbiguous(call, result.Resolution.Ambiguous)
			result.Diagnostic = &d
		case result.Resolution.NoMatch != nil:
			// The collector's own rejections (not found, arity, visibility)
			// join the resolver's type mismatches so C7 sees every reason.
			nm := result.Resolution.NoMatch
			nm.Rejected = append(append([]candidate.Candidate(nil), set.Rejected...), nm.Rejected...)
			d := p.diagnoser.FromNoMatch(call, nm, availableNames)
			result.Diagnostic = &d
		}

		return nil
	})

	return result, err
}

// BuildAndEmit runs C8→C9→(C10) for one signature family: it builds a
// DispatchTable from `impls`, optimizes entry layout by call frequency,
// selects a strategy, and caches the result under `buildHash`. A
// ContractViolation from the selector is not fatal to the family: per §7 it
// degrades to switch_table and is surfaced as a warning diagnostic rather
// than returned as an error.
func (p *Pipeline) BuildAndEmit(store cache.Store, signatureName string, impls []signature.Implementation, buildHash uint64, discriminatingPositions int, hotPathLongTail bool) (codegen.Artifact, codegen.AuditRecord, *diagnostic.Diagnostic, error) {
	t := table.Build(signatureName, impls)
	table.Optimize(t)

	artifact, record, err := p.selector.Select(t, discriminatingPositions, hotPathLongTail)

	var warning *diagnostic.Diagnostic

	if err != nil {
		var contractErr *codegen.ErrContractViolation
		if !errors.As(err, &contractErr) {
			return codegen.Artifact{}, codegen.AuditRecord{}, nil, err
		}

		log.WithField("signature", signatureName).Warn("no dispatch strategy met its budget; falling back to switch_table")

		artifact, record = p.selector.Fallback(t)
		d := p.diagnoser.FromContractViolation(signatureName)
		warning = &d
	}

	if err := store.Cache(signatureName, t, buildHash); err != nil {
		log.WithError(err).WithField("signature", signatureName).Warn("failed to persist dispatch table to cache")
	}

	return artifact, record, warning, nil
}

// Monitor exposes the pipeline's performance monitor for host drivers that
// want to print a final report.
func (p *Pipeline) Monitor() *perf.Monitor {
	return p.monitor
}
