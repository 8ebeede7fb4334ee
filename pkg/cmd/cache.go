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

	"github.com/janus-lang/janus/pkg/dispatch/config"
)

// cacheCmd groups cache maintenance operations: stats and invalidate_all.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or invalidate the dispatch build cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Report dispatch cache statistics",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Default()
		cfg.CacheDir = GetString(cmd, "cache-dir")

		store, closeFn, err := openStore(cfg)
		if err != nil {
			log.WithError(err).Error("failed to open cache store")
			os.Exit(1)
		}
		defer closeFn()

		st := store.Stats()
		fmt.Printf("total=%d valid=%d invalid=%d size=%d bytes\n", st.Total, st.Valid, st.Invalid, st.Size)
	},
}

var cacheInvalidateAllCmd = &cobra.Command{
	Use:   "invalidate-all",
	Short: "Invalidate every entry in the dispatch cache",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Default()
		cfg.CacheDir = GetString(cmd, "cache-dir")

		store, closeFn, err := openStore(cfg)
		if err != nil {
			log.WithError(err).Error("failed to open cache store")
			os.Exit(1)
		}
		defer closeFn()

		if err := store.InvalidateAll(); err != nil {
			log.WithError(err).Error("failed to invalidate cache")
			os.Exit(1)
		}

		fmt.Println("cache invalidated")
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheInvalidateAllCmd)
	rootCmd.AddCommand(cacheCmd)
}
