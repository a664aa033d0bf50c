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
	"golang.org/x/term"

	"github.com/spwn-lang/spwnc/internal/diag"
	"github.com/spwn-lang/spwnc/internal/driver"
	"github.com/spwn-lang/spwnc/internal/graph"
	"github.com/spwn-lang/spwnc/internal/optimizer"
)

var buildCmd = &cobra.Command{
	Use:   "build source.spwn",
	Short: "Compile a source file down to the target editor's object/trigger format",
	Args:  cobra.ExactArgs(1),
	Run:   runBuild,
}

func init() {
	buildCmd.Flags().StringP("output", "o", "", "output file (defaults to stdout)")
	buildCmd.Flags().Uint("opt", uint(optimizer.LevelCoalesceAndDedup), "optimizer level (0=none, 1=network clean, 2=+dead code, 3=+coalesce/dedup, 4=+intraframe)")
	buildCmd.Flags().Bool("no-stdlib", false, "disable the implicit standard library prelude")
	buildCmd.Flags().Bool("no-cache", false, "bypass the bytecode cache")
	buildCmd.Flags().String("cache-dir", ".spwnc", "bytecode cache subdirectory, relative to each source file")

	rootCmd.AddCommand(buildCmd)
}

func configFromFlags(cmd *cobra.Command) driver.CompilationConfig {
	cfg := driver.DefaultConfig()
	cfg.Stdlib = !GetFlag(cmd, "no-stdlib")
	cfg.OptLevel = optimizer.Level(GetUint(cmd, "opt"))
	cfg.NoCache = GetFlag(cmd, "no-cache")
	cfg.CacheDir = GetString(cmd, "cache-dir")

	return cfg
}

// reportDiagnostics renders every diagnostic in ds to stderr, colorized and
// wrapped when stderr is a real terminal (internal/diag.RenderTerminal),
// plain otherwise.
func reportDiagnostics(ds []*diag.Diagnostic) {
	fd := int(os.Stderr.Fd())
	isTTY := term.IsTerminal(fd)

	for _, d := range ds {
		if isTTY {
			diag.RenderTerminal(os.Stderr, d, fd)
		} else {
			fmt.Fprint(os.Stderr, d.Render())
		}
	}
}

func runBuild(cmd *cobra.Command, args []string) {
	cfg := configFromFlags(cmd)
	p := driver.NewPipeline(cfg)

	g, diags, err := p.Compile(context.Background(), args[0])

	reportDiagnostics(diags)

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if hasErrors(diags) {
		os.Exit(1)
	}

	out := os.Stdout

	if path := GetString(cmd, "output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		defer f.Close()

		out = f
	}

	if err := graph.Encode(out, g); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func hasErrors(ds []*diag.Diagnostic) bool {
	return len(ds) > 0
}
