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
package compiler

import (
	"github.com/spwn-lang/spwnc/internal/ast"
	"github.com/spwn-lang/spwnc/internal/bytecode"
	"github.com/spwn-lang/spwnc/internal/diag"
	"github.com/spwn-lang/spwnc/internal/source"
)

// TypeInfo records one `type @Name` declaration: where it was declared and
// whether it came from an import (so a second local declaration is
// KindDuplicateTypeDef but a second import of the same type is
// KindDuplicateImportedType).
type TypeInfo struct {
	Name     string
	Span     source.Span
	Imported bool
	Private  bool
}

// Importer resolves an ImportExpr's path/library name to an already- or
// newly-compiled bytecode.Module, consulting internal/cache and
// internal/stdlib. Supplied by internal/driver so this package stays
// agnostic of the filesystem.
type Importer interface {
	Resolve(path string, isLibrary bool, from source.Span) (*bytecode.Module, error)
}

// Compiler holds the state shared across every function compiled from one
// Program: the interner, the accumulated diagnostics, the global type
// registry, and the growing module function table (index 0 is always the
// top-level module body).
type Compiler struct {
	Interner *source.Interner
	Errs     *diag.Bag
	Importer Importer

	types map[string]*TypeInfo
	funcs []*bytecode.Func
}

// New creates a Compiler ready to compile a single Program (plus whatever it
// transitively imports).
func New(interner *source.Interner, importer Importer) *Compiler {
	return &Compiler{
		Interner: interner,
		Errs:     &diag.Bag{},
		Importer: importer,
		types:    make(map[string]*TypeInfo),
	}
}

// CompileProgram compiles prog into a bytecode.Module. Diagnostics are
// available via c.Errs after the call; a non-nil error return is reserved
// for I/O failures surfaced through Importer, not for recoverable
// compile-time diagnostics (those accumulate in Errs so the driver can
// report every error found in one pass instead of stopping at the first).
func (c *Compiler) CompileProgram(prog *ast.Program) (*bytecode.Module, error) {
	global := NewGlobalScope()
	fc := c.newFunc(global, nil)

	// Reserve slot 0 for the module body up front: every nested
	// macro/trigger-func registered while walking the program gets an
	// index relative to this already-reserved slot, so no renumbering is
	// needed once the module body itself is finalized below.
	c.funcs = append(c.funcs, nil)

	for _, attr := range prog.InnerAttrs {
		c.applyInnerAttr(attr)
	}

	var moduleReturn bytecode.Reg
	hasModuleReturn := false

	for _, stmt := range prog.Stmts {
		if ret, ok := stmt.(*ast.ReturnStmt); ok {
			if hasModuleReturn {
				c.Errs.Add(diag.New(diag.KindDuplicateModuleReturn, ret.Span(),
					"a module may only export one value"))

				continue
			}

			if ret.Value != nil {
				moduleReturn = fc.compileExpr(ret.Value)
			}

			hasModuleReturn = true

			continue
		}

		fc.compileStmt(stmt)
	}

	if hasModuleReturn {
		// Imm=1 marks this as the module-return form (spec.md §4.3's
		// Return(src, is_module)): the VM wraps moduleReturn's dict into a
		// Module value rather than returning it to a macro caller.
		fc.emitVoid(bytecode.Instr{Op: bytecode.OpReturn, A: moduleReturn, Imm: 1})
	}

	c.funcs[0] = fc.finalize()

	return &bytecode.Module{Funcs: c.funcs}, nil
}

func (c *Compiler) applyInnerAttr(attr ast.Attribute) {
	// #![no_std] suppresses the automatic stdlib prelude import; honored by
	// internal/driver before compilation starts, so there is nothing left
	// to do here except accept the attribute silently. Unknown inner
	// attributes were already diagnosed by the parser's attrRegistry.
	_ = attr
}

// registerFunc appends a finalized nested-function Func to the module table
// and returns its index, used as the A operand of OpLoadMacro/OpMakeMacro.
func (c *Compiler) registerFunc(fn *bytecode.Func) int {
	c.funcs = append(c.funcs, fn)

	return len(c.funcs) - 1
}
