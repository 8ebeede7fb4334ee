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
package types

import "fmt"

// Conversion describes a single implicit conversion from one type to
// another, along with its cost and whether it loses information.
type Conversion struct {
	From    Id
	To      Id
	Cost    uint32
	IsLossy bool
}

// ErrNoConversion is returned when no direct conversion exists between a pair
// of types.  This is a recoverable condition — callers (the resolver) turn it
// into a type_mismatch rejection rather than propagating it as a fatal error.
type ErrNoConversion struct {
	From Id
	To   Id
}

func (e *ErrNoConversion) Error() string {
	return fmt.Sprintf("no conversion from type %d to type %d", e.From, e.To)
}

// ConversionRegistry catalogs implicit conversions.  No transitive closure is
// computed: the absence of a direct (from, to) entry means "no conversion",
// full stop — composing two convertible hops is never attempted implicitly.
type ConversionRegistry struct {
	entries map[conversionKey]Conversion
}

type conversionKey struct {
	from Id
	to   Id
}

// NewConversionRegistry constructs an empty conversion registry.
func NewConversionRegistry() *ConversionRegistry {
	return &ConversionRegistry{entries: make(map[conversionKey]Conversion)}
}

// Define registers a conversion from `from` to `to`.  Defining the same pair
// twice overwrites the previous cost/lossiness, mirroring Register's
// idempotent-on-key posture in the type registry.
func (r *ConversionRegistry) Define(from, to Id, cost uint32, isLossy bool) {
	r.entries[conversionKey{from, to}] = Conversion{From: from, To: to, Cost: cost, IsLossy: isLossy}
}

// Find returns the direct conversion from `from` to `to`, if one is
// registered.
func (r *ConversionRegistry) Find(from, to Id) (Conversion, bool) {
	c, ok := r.entries[conversionKey{from, to}]
	return c, ok
}

// Path computes a per-argument conversion array taking `fromSeq` to `toSeq`.
// Position i is the zero-value Conversion with Cost 0 when the types are
// identical at that position (an exact match needs no conversion); otherwise
// it is whatever direct conversion the registry has on file.  Path fails
// (returns ok=false) the moment any position has neither an identical type
// nor a registered conversion — lossy conversions are preserved in the
// result, never silently dropped or cost-inflated.
func (r *ConversionRegistry) Path(fromSeq, toSeq []Id) ([]Conversion, bool) {
	if len(fromSeq) != len(toSeq) {
		return nil, false
	}

	path := make([]Conversion, len(fromSeq))

	for i := range fromSeq {
		if fromSeq[i] == toSeq[i] {
			path[i] = Conversion{From: fromSeq[i], To: toSeq[i], Cost: 0, IsLossy: false}
			continue
		}

		c, ok := r.Find(fromSeq[i], toSeq[i])
		if !ok {
			return nil, false
		}

		path[i] = c
	}

	return path, true
}
