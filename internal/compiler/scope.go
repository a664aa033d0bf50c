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

// Package compiler implements the compiler component: it walks a parsed
// ast.Program, resolves variables against a scope tree, and lowers
// statements/expressions/patterns into an internal/bytecode.Module. The
// scope-tree-with-parent-pointer shape and the practice of attaching
// immutability/kind metadata to each binding supports dynamically sized
// register frames rather than a fixed-width allocation.
package compiler

import (
	"github.com/spwn-lang/spwnc/internal/bytecode"
	"github.com/spwn-lang/spwnc/internal/source"
)

// ScopeKind discriminates what kind of lexical boundary a Scope represents,
// since break/continue/return all need to know which enclosing scope they
// target (or that none exists, an error).
type ScopeKind int

// Scope kinds.
const (
	ScopeGlobal ScopeKind = iota
	ScopeMacroBody
	ScopeLoop
	ScopeArrowStmt
	ScopeTriggerFunc
	ScopeBlock // a plain `{ }` that introduces no new binding boundary semantics
)

// binding records one resolved variable: its register and whether it was
// declared with `let` (immutable, KindImmutableAssign on any second write)
// or `mut`/as a macro argument (mutable). owner identifies which function's
// register frame reg belongs to; a lookup from a nested macro/trigger-func
// body whose binding has a different owner must be captured (see
// funcCtx.resolveVar in funcctx.go) rather than read directly.
type binding struct {
	reg     bytecode.Reg
	mutable bool
	owner   *funcCtx
}

// Scope is one node of the lexical scope tree built up during compilation.
// Every macro body, loop body, if/while/for block and arrow-statement body
// gets its own child Scope so that variable shadowing and break/continue/
// return targeting both fall out of a simple parent-chain walk.
type Scope struct {
	parent *Scope
	kind   ScopeKind
	vars   map[source.Name]*binding

	// ReturnPat is the macro's declared return pattern, set only on a
	// ScopeMacroBody scope (nil if the macro declared none).
	ReturnPat any

	// LoopBlock is the bytecode.BlockID a `continue` in this scope (or a
	// descendant ScopeBlock, transparently) should jump to the start of,
	// and a `break` should jump to the end of. Meaningful only on
	// ScopeLoop.
	LoopBlock bytecode.BlockID

	// Span is recorded on ScopeArrowStmt/ScopeTriggerFunc scopes for
	// diagnostics (BreakInArrowStmtScope / BreakInTriggerFuncScope both
	// need to point at the enclosing construct, not just the break).
	Span any
}

// NewGlobalScope creates the root scope of a compilation unit.
func NewGlobalScope() *Scope {
	return &Scope{kind: ScopeGlobal, vars: make(map[source.Name]*binding)}
}

// Child creates a new scope nested under s.
func (s *Scope) Child(kind ScopeKind) *Scope {
	return &Scope{parent: s, kind: kind, vars: make(map[source.Name]*binding)}
}

// Declare introduces a fresh binding in this scope, shadowing any binding of
// the same name from an enclosing scope (never an error in SPWN: `let x = 1`
// twice in nested blocks is shadowing, not redeclaration).
func (s *Scope) Declare(name source.Name, reg bytecode.Reg, mutable bool, owner *funcCtx) {
	s.vars[name] = &binding{reg: reg, mutable: mutable, owner: owner}
}

// Lookup walks s and its ancestors for name, returning nil if unresolved
// (the caller emits diag.KindNonexistentVariable).
func (s *Scope) Lookup(name source.Name) *binding {
	for cur := s; cur != nil; cur = cur.parent {
		if b, ok := cur.vars[name]; ok {
			return b
		}
	}

	return nil
}

// EnclosingLoop returns the nearest enclosing ScopeLoop (nil if there is
// none). Arrow statements and trigger-func bodies are not transparent to
// break/continue (spec.md §7: BreakInArrowStmtScope, BreakInTriggerFuncScope):
// a loop started outside an arrow statement cannot be broken from inside one.
// When the walk passes such a boundary, crossed is true and crossedOpaque is
// the kind of the first one passed (ScopeArrowStmt/ScopeTriggerFunc), so the
// caller can pick the right diagnostic.
func (s *Scope) EnclosingLoop() (loop *Scope, crossedOpaque ScopeKind, crossed bool) {
	for cur := s; cur != nil; cur = cur.parent {
		switch cur.kind {
		case ScopeLoop:
			return cur, crossedOpaque, crossed
		case ScopeArrowStmt, ScopeTriggerFunc:
			if !crossed {
				crossedOpaque = cur.kind
				crossed = true
			}
		}
	}

	return nil, crossedOpaque, crossed
}

// EnclosingMacro returns the nearest ScopeMacroBody, used to validate
// `return` and to fetch its declared return pattern.
func (s *Scope) EnclosingMacro() *Scope {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.kind == ScopeMacroBody {
			return cur
		}
	}

	return nil
}
