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
	"time"

	"github.com/spf13/cobra"

	"github.com/spwn-lang/spwnc/internal/driver"
)

var runCmd = &cobra.Command{
	Use:   "run source.spwn",
	Short: "Build a source file and report the number of emitted objects plus elapsed time",
	Args:  cobra.ExactArgs(1),
	Run:   runRun,
}

func init() {
	runCmd.Flags().Uint("opt", 1, "optimizer level (0=none, 1=coalesce+dedup, 2=advanced)")
	runCmd.Flags().Bool("no-stdlib", false, "disable the implicit standard library prelude")
	runCmd.Flags().Bool("no-cache", false, "bypass the bytecode cache")
	runCmd.Flags().String("cache-dir", ".spwnc", "bytecode cache subdirectory, relative to each source file")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) {
	cfg := configFromFlags(cmd)
	p := driver.NewPipeline(cfg)

	start := time.Now()
	g, diags, err := p.Compile(context.Background(), args[0])
	elapsed := time.Since(start)

	reportDiagnostics(diags)

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if hasErrors(diags) {
		os.Exit(1)
	}

	count := 0

	for _, gid := range g.AllGroups() {
		for _, t := range g.Groups[gid] {
			if !t.Deleted {
				count++
			}
		}
	}

	fmt.Printf("%d object(s) emitted in %s\n", count, elapsed.Round(time.Microsecond))
}
