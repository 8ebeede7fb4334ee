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
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/janus-lang/janus/pkg/dispatch"
	"github.com/janus-lang/janus/pkg/dispatch/config"
	"github.com/janus-lang/janus/pkg/dispatch/diagnostic"
	"github.com/janus-lang/janus/pkg/dispatch/perf"
	"github.com/janus-lang/janus/pkg/dispatch/scope"
	"github.com/janus-lang/janus/pkg/dispatch/types"
	"github.com/janus-lang/janus/pkg/util/source"
	"github.com/prometheus/client_golang/prometheus"
)

// resolveCmd resolves a single call site against a scope built from the
// command's flags. It exists mainly as a smoke-test entry point: real
// driving of the pipeline happens from the host compiler's AST walk, not
// from this CLI.
var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a single named call site against declared overloads",
	Run: func(cmd *cobra.Command, args []string) {
		name := GetString(cmd, "name")
		arity := GetUint(cmd, "arity")

		cfg := config.Default()
		cfg.CacheDir = GetString(cmd, "cache-dir")

		if err := cfg.Validate(); err != nil {
			log.WithError(err).Error("invalid dispatch configuration")
			os.Exit(4)
		}

		monitor := perf.NewMonitor(prometheus.NewRegistry())
		p := dispatch.NewDefaultPipeline(cfg, monitor)

		root := p.Scopes.Root()

		// One example declaration ("length") so `resolve` has something to
		// dispatch against without a real frontend feeding the scope.
		seedExampleDecls(p, root)

		argTypes := make([]types.Id, arity)
		for i := range argTypes {
			argTypes[i] = types.I32
		}

		result, err := p.ResolveCallSite(context.Background(), root, name, argTypes, source.NewSpan(0, 0), []string{"length", "size", "count"})
		if err != nil {
			log.WithError(err).Error("resolution failed")
			os.Exit(1)
		}

		switch {
		case result.Resolution.Resolved != nil:
			fmt.Printf("resolved: %s\n", result.Resolution.Resolved.Winner.Implementation.FunctionId)
		case result.Diagnostic != nil:
			diagnostic.Render(os.Stderr, *result.Diagnostic, ColorCapable(cmd))
		}
	},
}

func seedExampleDecls(p *dispatch.Pipeline, root scope.ScopeId) {
	i32 := types.I32
	_, _ = p.Scopes.Define(root, scope.FunctionDecl{
		Name:           "length",
		ParameterTypes: []types.Id{i32},
		ReturnType:     i32,
		Visibility:     scope.Public,
	})
}

// ColorCapable reports whether diagnostics should be rendered in color for
// this command invocation, honoring --no-color.
func ColorCapable(cmd *cobra.Command) bool {
	if GetFlag(cmd, "no-color") {
		return false
	}

	return diagnostic.ColorCapable(os.Stderr)
}

func init() {
	resolveCmd.Flags().String("name", "", "function name to resolve")
	resolveCmd.Flags().Uint("arity", 1, "call-site argument count")
	rootCmd.AddCommand(resolveCmd)
}
