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

	"github.com/spf13/cobra"

	"github.com/spwn-lang/spwnc/internal/driver"
)

var checkCmd = &cobra.Command{
	Use:   "check source.spwn",
	Short: "Parse and compile a source file without running it, reporting diagnostics only",
	Args:  cobra.ExactArgs(1),
	Run:   runCheck,
}

func init() {
	checkCmd.Flags().Bool("no-stdlib", false, "disable the implicit standard library prelude")
	checkCmd.Flags().Bool("no-cache", false, "bypass the bytecode cache")
	checkCmd.Flags().String("cache-dir", ".spwnc", "bytecode cache subdirectory, relative to each source file")

	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) {
	cfg := driver.DefaultConfig()
	cfg.Stdlib = !GetFlag(cmd, "no-stdlib")
	cfg.NoCache = GetFlag(cmd, "no-cache")
	cfg.CacheDir = GetString(cmd, "cache-dir")

	p := driver.NewPipeline(cfg)

	diags, err := p.Check(context.Background(), args[0])

	reportDiagnostics(diags)

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if hasErrors(diags) {
		os.Exit(1)
	}

	fmt.Println("ok")
}
