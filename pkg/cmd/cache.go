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
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/spwn-lang/spwnc/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or manage the bytecode cache",
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean [dir]",
	Short: "Remove every stale .spwnc/ cache entry under dir (defaults to the working directory)",
	Args:  cobra.MaximumNArgs(1),
	Run:   runCacheClean,
}

func init() {
	cacheCleanCmd.Flags().String("cache-dir", ".spwnc", "cache subdirectory name to look for")

	cacheCmd.AddCommand(cacheCleanCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheClean(cmd *cobra.Command, args []string) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	name := GetString(cmd, "cache-dir")
	total := 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() || d.Name() != name {
			return nil
		}

		n, err := cache.Clean(path)
		if err != nil {
			return fmt.Errorf("cleaning %s: %w", path, err)
		}

		total += n

		return fs.SkipDir
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	fmt.Printf("removed %d cache entr%s\n", total, plural(total))
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}

	return "ies"
}
