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

// Package driver implements the orchestrator: wiring the lexer, parser,
// compiler, VM, and optimizer into one pipeline over real source files,
// plus the import resolution (internal/stdlib + internal/cache) none of
// those packages know how to do on their own.
package driver

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/spwn-lang/spwnc/internal/cache"
	"github.com/spwn-lang/spwnc/internal/diag"
	"github.com/spwn-lang/spwnc/internal/graph"
	"github.com/spwn-lang/spwnc/internal/optimizer"
	"github.com/spwn-lang/spwnc/internal/source"
	"github.com/spwn-lang/spwnc/internal/vm"
)

// rootGroup is the reserved top-level execution group every compiled
// program starts in (graph.Graph's "typically group 0").
const rootGroup = 0

// Pipeline runs one compilation configuration over any number of source
// files. It holds no per-file state, so one Pipeline can safely Compile
// many files in sequence (each call gets its own Interner/importer/Graph).
type Pipeline struct {
	Config CompilationConfig
}

// NewPipeline constructs a Pipeline with cfg.
func NewPipeline(cfg CompilationConfig) *Pipeline {
	return &Pipeline{Config: cfg}
}

// Compile drives sourcePath through lex -> parse -> compile -> VM execute
// -> optimize, returning the optimized trigger graph plus every diagnostic
// recorded anywhere in the pipeline (compile errors from the root file or
// any transitive import). A non-nil error is returned for I/O errors,
// import cycles, a VM fault that escaped every TryCatch, and also when
// compiling the root file records error diagnostics (those diagnostics are
// returned alongside the error).
func (p *Pipeline) Compile(ctx context.Context, sourcePath string) (*graph.Graph, []*diag.Diagnostic, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	text, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, nil, fmt.Errorf("driver: reading %s: %w", sourcePath, err)
	}

	interner := source.NewInterner()
	interner.Intern("") // reserve Name(0) as the "no name" sentinel instr.Name checks rely on

	im := newImporter(p.Config, interner)

	log.WithField("path", sourcePath).Debug("compiling root module")

	mod, exports, imports, err := im.compileFile(sourcePath, string(text))
	if err != nil {
		return nil, im.diags.All(), err
	}

	if im.diags.HasErrors() {
		return nil, im.diags.All(), nil
	}

	if !p.Config.NoCache {
		cacheDir, name := im.cacheLocation(sourcePath)

		if err := cache.Save(cacheDir, name, string(text), mod, exports, imports, interner); err != nil {
			log.WithError(err).Warn("failed to write root bytecode cache entry")
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, im.diags.All(), err
	}

	g := graph.New(rootGroup)
	machine := vm.New(mod, interner, g, rootGroup)
	machine.Importer = vmImporter{im}

	if _, err := machine.Run(rootGroup); err != nil {
		return nil, im.diags.All(), fmt.Errorf("driver: running %s: %w", sourcePath, err)
	}

	optimizer.Run(g, p.Config.OptLevel)

	return g, im.diags.All(), nil
}

// Check runs sourcePath through lex -> parse -> compile only, recursively
// resolving its imports the same way Compile does, but never constructs a
// VM or optimizer pass (spec.md §6: "check: parse + compile only, no VM
// run"). Useful for editor integrations and CI that only want diagnostics.
func (p *Pipeline) Check(ctx context.Context, sourcePath string) ([]*diag.Diagnostic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("driver: reading %s: %w", sourcePath, err)
	}

	interner := source.NewInterner()
	interner.Intern("")

	im := newImporter(p.Config, interner)

	_, _, _, err = im.compileFile(sourcePath, string(text))
	if err != nil {
		return im.diags.All(), err
	}

	return im.diags.All(), nil
}
