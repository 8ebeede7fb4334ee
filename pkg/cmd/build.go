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
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/janus-lang/janus/pkg/dispatch/cache"
	"github.com/janus-lang/janus/pkg/dispatch/config"
	"github.com/janus-lang/janus/pkg/dispatch/signature"
	"github.com/janus-lang/janus/pkg/dispatch/table"
	"github.com/janus-lang/janus/pkg/dispatch/types"
)

// buildTable constructs and optimizes a DispatchTable, the shared tail of
// C8 this command and pkg/dispatch.Pipeline.BuildAndEmit both run.
func buildTable(name string, impls []signature.Implementation) *table.DispatchTable {
	t := table.Build(name, impls)
	table.Optimize(t)

	return t
}

// buildCmd builds and caches a dispatch table for a single example
// signature family, exercising C8→C10 end to end; no C9 strategy is selected.
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a dispatch table for a signature family and persist it to the cache",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Default()
		cfg.CacheDir = GetString(cmd, "cache-dir")
		cfg.CacheBackend = config.CacheBackend(GetString(cmd, "backend"))

		if err := cfg.Validate(); err != nil {
			log.WithError(err).Error("invalid dispatch configuration")
			os.Exit(4)
		}

		store, closeFn, err := openStore(cfg)
		if err != nil {
			log.WithError(err).Error("failed to open cache store")
			os.Exit(1)
		}
		defer closeFn()

		name := GetString(cmd, "name")

		impls := []signature.Implementation{
			{
				FunctionId:      signature.FunctionId{Name: name, Module: "root"},
				ParamTypeIds:    []types.Id{types.I32},
				ReturnTypeId:    types.I32,
				SpecificityRank: 100,
			},
		}

		buildHash := cache.BuildHash(nil)

		t := buildTable(name, impls)

		if err := store.Cache(name, t, buildHash); err != nil {
			log.WithError(err).Error("failed to cache dispatch table")
			os.Exit(1)
		}

		fmt.Printf("cached %q with %d entries\n", name, len(t.Entries))
	},
}

func openStore(cfg config.DispatchConfig) (cache.Store, func(), error) {
	switch cfg.CacheBackend {
	case config.CacheBackendBadger:
		s, err := cache.OpenBadgerStore(cfg.CacheDir)
		if err != nil {
			return nil, nil, err
		}

		return s, func() { _ = s.Close() }, nil
	default:
		s, err := cache.NewFileStore(cfg.CacheDir)
		if err != nil {
			return nil, nil, err
		}

		return s, func() {}, nil
	}
}

func init() {
	buildCmd.Flags().String("name", "", "signature family name to build")
	buildCmd.Flags().String("backend", string(config.CacheBackendFile), "cache backend: file or badger")
	rootCmd.AddCommand(buildCmd)
}
