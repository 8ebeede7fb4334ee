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

// Package cmd implements the janus-dispatch command-line driver: a thin
// cobra.Command tree over the dispatch resolution and codegen pipeline in
// pkg/dispatch.
package cmd

import (
	"fmt"
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version is filled when building with make, but *not* when installing via "go
// install".
var Version string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "janus-dispatch",
	Short: "Multiple dispatch resolution and codegen toolbox for Janus.",
	Long: `janus-dispatch resolves multiple-dispatch call sites against a set of
candidate function declarations, reports ambiguity and no-match diagnostics
with fix suggestions, and emits dispatch tables for the winning family.`,
	Run: func(cmd *cobra.Command, args []string) {
		if GetFlag(cmd, "version") {
			fmt.Print("janus-dispatch ")

			if Version != "" {
				// Built via "make"
				fmt.Printf("%s", Version)
			} else if info, ok := debug.ReadBuildInfo(); ok {
				// Built via "go install"
				fmt.Printf("%s", info.Main.Version)
			} else {
				// Unknown, perhaps "go run"
				fmt.Printf("(unknown version)")
			}

			fmt.Println()
		}
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately.  This is called by main.main().  It only needs to happen once
// to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:errcheck
func init() {
	rootCmd.Flags().Bool("version", false, "report version of this executable")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "increase logging verbosity")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored diagnostic output")
	rootCmd.PersistentFlags().String("cache-dir", ".janus-cache", "directory holding cached dispatch tables")

	cobra.OnInitialize(func() {
		if verbose, err := rootCmd.PersistentFlags().GetBool("verbose"); err == nil && verbose {
			log.SetLevel(log.DebugLevel)
		}
	})
}
