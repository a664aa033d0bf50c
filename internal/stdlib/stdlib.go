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

// Package stdlib resolves a named library import (`import name`, as opposed
// to a quoted relative file path) against the conventional layout spec.md
// §6 describes: `libraries/<name>/lib.spwn` under one of a fixed set of
// search roots. It deliberately knows nothing about compiling or caching
// what it finds - internal/driver does that, keeping path resolution
// separate from compilation.
package stdlib

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

// Prelude is the source of the implicit standard library every compilation
// unit imports unless it opts out with `#![no_std]` (SPEC_FULL.md §4.4
// supplement). It is compiled into the binary via go:embed rather than
// resolved through SearchRoots/Locate, so a compilation never fails just
// because no prelude file happens to exist on disk next to the program.
//
//go:embed prelude.spwn
var Prelude string

// PreludePath is the synthetic source path the embedded prelude compiles
// under, distinguishing it in diagnostics/cache keys from any real file
// named "std".
const PreludePath = "<std>"

// SearchRoots returns the known roots a library name is resolved against,
// in priority order: the current working directory, then the directory
// containing the running executable (spec.md §6: "the current working
// directory and the executable's directory"). A root that can't be
// determined is silently omitted rather than failing resolution outright.
func SearchRoots() []string {
	var roots []string

	if cwd, err := os.Getwd(); err == nil {
		roots = append(roots, cwd)
	}

	if exe, err := os.Executable(); err == nil {
		if dir, err := filepath.EvalSymlinks(filepath.Dir(exe)); err == nil {
			roots = append(roots, dir)
		} else {
			roots = append(roots, filepath.Dir(exe))
		}
	}

	return roots
}

// Locate finds name's lib.spwn under one of roots, the first match winning.
func Locate(name string, roots []string) (string, error) {
	for _, root := range roots {
		candidate := filepath.Join(root, "libraries", name, "lib.spwn")

		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("stdlib: no library %q found under %v", name, roots)
}
