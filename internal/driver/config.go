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
package driver

import "github.com/spwn-lang/spwnc/internal/optimizer"

// stdLibrary is the conventional library name the implicit prelude import
// resolves to.
const stdLibrary = "std"

// CompilationConfig bundles the pipeline's tunables into one value threaded
// through the whole pipeline rather than a grab-bag of positional booleans.
type CompilationConfig struct {
	// Stdlib enables the implicit `extract import std` prelude, unless the
	// compilation unit's own `#![no_std]` inner attribute suppresses it
	// (spec.md §4.4 supplement).
	Stdlib bool

	// OptLevel selects which of the optimizer's five passes run (spec.md
	// §4.6).
	OptLevel optimizer.Level

	// CacheDir names the per-source-directory cache subdirectory (spec.md
	// §6: ".spwnc/<name>.spwnc").
	CacheDir string

	// NoCache bypasses the bytecode cache entirely: every import (and the
	// root file) is always freshly compiled.
	NoCache bool
}

// DefaultConfig matches spwnc's out-of-the-box behavior: stdlib prelude on,
// the coalesce-and-dedup optimizer level (spec.md's non-"advanced" passes),
// caching on.
func DefaultConfig() CompilationConfig {
	return CompilationConfig{
		Stdlib:   true,
		OptLevel: optimizer.LevelCoalesceAndDedup,
		CacheDir: ".spwnc",
	}
}
