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
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/janus-lang/janus/pkg/dispatch/signature"
	"github.com/janus-lang/janus/pkg/dispatch/table"
	"github.com/janus-lang/janus/pkg/dispatch/types"
)

// benchCmd runs DispatchTable.Benchmark against a small synthetic family,
// reporting the lookup and match counts for the table's selected strategy
// (no timing is taken).
var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark dispatch table lookup strategies against synthetic entries",
	Run: func(cmd *cobra.Command, args []string) {
		iterations := int(GetUint(cmd, "iterations"))

		impls := []signature.Implementation{
			{FunctionId: signature.FunctionId{Name: "f", Module: "root"}, ParamTypeIds: []types.Id{types.I32}, SpecificityRank: 100},
			{FunctionId: signature.FunctionId{Name: "f", Module: "root"}, ParamTypeIds: []types.Id{types.F64}, SpecificityRank: 100},
		}

		t := buildTable("f", impls)

		cases := []table.TestCase{
			{ParamTypeIds: []types.Id{types.I32}},
			{ParamTypeIds: []types.Id{types.F64}},
		}

		result := t.Benchmark(cases, iterations)
		fmt.Printf("strategy=%v lookups=%d matches=%d\n", result.Strategy, result.Lookups, result.MatchCount)
	},
}

func init() {
	benchCmd.Flags().Uint("iterations", 1000, "number of benchmark rounds")
	rootCmd.AddCommand(benchCmd)
}
