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

// Package diagnostic implements the diagnostic and fix engine (C7):
// structured diagnostics with source spans, synthesizing cast, qualify,
// annotate, define, import and typo-correction fixes.
package diagnostic

import (
	"fmt"
	"sort"

	"github.com/janus-lang/janus/pkg/dispatch/candidate"
	"github.com/janus-lang/janus/pkg/dispatch/resolver"
	"github.com/janus-lang/janus/pkg/util/source"
)

// Severity classifies a Diagnostic.
type Severity int

// The severities a Diagnostic may carry.
const (
	Error Severity = iota
	Warning
)

// String renders a Severity for output.
func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}

	return "error"
}

// Code names the kind of diagnostic, stable across releases so tooling can
// key off it.
type Code string

// The diagnostic codes this engine emits.
const (
	CodeAmbiguousCall   Code = "ambiguous_call"
	CodeNoMatchingCall  Code = "no_matching_call"
	CodeContractWarning Code = "contract_violation"
)

// FixKind identifies which of the six fix classes a Fix belongs to.
type FixKind int

// The fix classes from §4.7.
const (
	FixCastArgument FixKind = iota
	FixUseQualifiedName
	FixTypeAnnotate
	FixDefineFunction
	FixTypoCorrection
	FixSpeculativeImport
)

// Fix is one suggested remediation.  Confidence is used only to order
// suggestions; fixes are never applied by the compiler.
type Fix struct {
	Kind        FixKind
	Description string
	Confidence  float64
}

// Diagnostic is a single structured diagnostic.
type Diagnostic struct {
	Severity     Severity
	Code         Code
	Message      string
	PrimarySpan  source.Span
	RelatedSpans []source.Span
	Fixes        []Fix
}

// speculativeImportWhitelist is the short, fixed whitelist fixes may
// recommend importing from. It deliberately stays small: this fix class is
// a hint, not a search over the whole module graph.
var speculativeImportWhitelist = []string{"std.core", "std.convert", "std.collections"}

// Engine synthesizes diagnostics from resolver outcomes.
type Engine struct{}

// NewEngine constructs a diagnostic engine.
func NewEngine() *Engine {
	return &Engine{}
}

// FromAmbiguous builds the diagnostic for an Ambiguous resolver result.
func (e *Engine) FromAmbiguous(call resolver.CallSite, amb *resolver.Ambiguous) Diagnostic {
	related := make([]source.Span, 0, len(amb.Candidates))

	var fixes []Fix

	for _, c := range amb.Candidates {
		related = append(related, c.Implementation.SourceSpan)
		fixes = append(fixes, castFixes(c)...)

		if c.Candidate.ImportPath != "" {
			fixes = append(fixes, Fix{
				Kind:        FixUseQualifiedName,
				Description: fmt.Sprintf("Use qualified name %s.%s", c.Candidate.ImportPath, c.Implementation.FunctionId.Name),
				Confidence:  0.7,
			})
		}
	}

	fixes = append(fixes, Fix{
		Kind:        FixTypeAnnotate,
		Description: "Type-annotate the ambiguous argument variable",
		Confidence:  0.5,
	})

	sortFixes(fixes)

	return Diagnostic{
		Severity:     Error,
		Code:         CodeAmbiguousCall,
		Message:      fmt.Sprintf("call to %q is ambiguous among %d candidates", call.FunctionName, len(amb.Candidates)),
		PrimarySpan:  call.SourceSpan,
		RelatedSpans: related,
		Fixes:        fixes,
	}
}

// castFixes produces one "Cast argument i to T" fix per non-zero-cost
// conversion in the candidate's winning path.
func castFixes(c resolver.CompatibleCandidate) []Fix {
	var fixes []Fix

	for i, conv := range c.Path.Conversions {
		if conv.Cost == 0 {
			continue
		}

		confidence := 0.9
		if conv.IsLossy {
			confidence = 0.7
		}

		fixes = append(fixes, Fix{
			Kind:        FixCastArgument,
			Description: fmt.Sprintf("Cast argument %d to type %d", i, conv.To),
			Confidence:  confidence,
		})
	}

	return fixes
}

// FromNoMatch builds the diagnostic for a NoMatch resolver result.
// `available` lists every function name declared in scopes visible at the
// call site, used for typo correction.
func (e *Engine) FromNoMatch(call resolver.CallSite, nm *resolver.NoMatch, available []string) Diagnostic {
	var fixes []Fix

	for _, rej := range nm.Rejected {
		if rej.RejectionOf == nil {
			continue
		}

		switch rej.RejectionOf.Kind {
		case candidate.ArityMismatch:
			fixes = append(fixes, Fix{
				Kind:        FixDefineFunction,
				Description: fmt.Sprintf("Define function %s with inferred signature", call.FunctionName),
				Confidence:  0.6,
			})
		case candidate.NotFound:
			fixes = append(fixes, typoFixes(call.FunctionName, available)...)
			fixes = append(fixes, speculativeImportFixes(call.FunctionName)...)
		}
	}

	if len(fixes) == 0 {
		fixes = append(fixes, Fix{
			Kind:        FixDefineFunction,
			Description: fmt.Sprintf("Define function %s with inferred signature", call.FunctionName),
			Confidence:  0.6,
		})
	}

	sortFixes(fixes)

	return Diagnostic{
		Severity:    Error,
		Code:        CodeNoMatchingCall,
		Message:     fmt.Sprintf("no matching candidate for call to %q", call.FunctionName),
		PrimarySpan: call.SourceSpan,
		Fixes:       fixes,
	}
}

// FromContractViolation builds the warning diagnostic C7 emits when the
// strategy selector (C9) could not meet any strategy's budget for a
// signature family and fell back to switch_table, per §7.
func (e *Engine) FromContractViolation(signatureName string) Diagnostic {
	return Diagnostic{
		Severity: Warning,
		Code:     CodeContractWarning,
		Message:  fmt.Sprintf("no dispatch strategy meets its budget for %q; falling back to switch_table", signatureName),
	}
}

// typoFixes suggests corrections for names within Levenshtein distance 2 of
// `name`, with confidence = 1 − d/3.
func typoFixes(name string, available []string) []Fix {
	var fixes []Fix

	for _, candidate := range available {
		d := levenshtein(name, candidate)
		if d == 0 || d > 2 {
			continue
		}

		fixes = append(fixes, Fix{
			Kind:        FixTypoCorrection,
			Description: fmt.Sprintf("Did you mean %q?", candidate),
			Confidence:  1 - float64(d)/3,
		})
	}

	return fixes
}

// speculativeImportFixes proposes importing `name` from the fixed
// whitelist, each at the same low confidence.
func speculativeImportFixes(name string) []Fix {
	fixes := make([]Fix, 0, len(speculativeImportWhitelist))

	for _, mod := range speculativeImportWhitelist {
		fixes = append(fixes, Fix{
			Kind:        FixSpeculativeImport,
			Description: fmt.Sprintf("Import %s from %s", name, mod),
			Confidence:  0.3,
		})
	}

	return fixes
}

// sortFixes orders fixes by descending confidence; this is presentation
// order only and never affects which fixes are produced.
func sortFixes(fixes []Fix) {
	sort.SliceStable(fixes, func(i, j int) bool {
		return fixes[i].Confidence > fixes[j].Confidence
	})
}

// levenshtein computes the edit distance between a and b, counting an
// insertion, a deletion, a substitution or a swap of two adjacent characters
// as one edit each (optimal string alignment), so "lenght" is one edit from
// "length".
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev2 := make([]int, len(rb)+1)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)

	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i

		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}

			curr[j] = min3(curr[j-1]+1, prev[j]+1, prev[j-1]+cost)

			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] && prev2[j-2]+1 < curr[j] {
				curr[j] = prev2[j-2] + 1
			}
		}

		prev2, prev, curr = prev, curr, prev2
	}

	return prev[len(rb)]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}

	if c < m {
		m = c
	}

	return m
}
