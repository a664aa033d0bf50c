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
	"github.com/spwn-lang/spwnc/internal/bytecode"
	"github.com/spwn-lang/spwnc/internal/source"
)

// funcCtx is the compilation state of a single function (the module body,
// or one macro/trigger-func literal): its own bytecode.Builder, its own
// constant pool, its current emission block, and the scope chain rooted at
// this function's parameter scope.
type funcCtx struct {
	c      *Compiler
	b      *bytecode.Builder
	scope  *Scope
	parent *funcCtx
	cur    bytecode.BlockID

	consts   []any
	constIdx map[any]bytecode.Const

	hadExplicitReturn bool
}

func (c *Compiler) newFunc(scope *Scope, parent *funcCtx) *funcCtx {
	b := bytecode.NewBuilder()

	return &funcCtx{
		c:        c,
		b:        b,
		scope:    scope,
		parent:   parent,
		cur:      b.Root(),
		constIdx: make(map[any]bytecode.Const),
	}
}

// declareVar introduces a new binding owned by fc in its current scope.
func (fc *funcCtx) declareVar(name source.Name, reg bytecode.Reg, mutable bool) {
	fc.scope.Declare(name, reg, mutable, fc)
}

// resolveVar resolves name against the lexical scope chain, transparently
// threading a capture chain through any enclosing macro/trigger-func
// boundaries it must cross (spec.md §3's Macro "captured-references").
// Each function level that must reach outside itself records exactly one
// bytecode.Capture and memoizes a local alias binding, so a variable
// captured by three nested closures only ever costs one capture hop per
// level regardless of how many times it's referenced inside.
func (fc *funcCtx) resolveVar(name source.Name) (bytecode.Reg, *binding, bool) {
	b := fc.scope.Lookup(name)
	if b == nil {
		return 0, nil, false
	}

	if b.owner == fc {
		return b.reg, b, true
	}

	if fc.parent == nil {
		return 0, nil, false
	}

	outerReg, outerBinding, ok := fc.parent.resolveVar(name)
	if !ok {
		return 0, nil, false
	}

	localReg := fc.b.NewReg()
	fc.b.AddCapture(outerReg, localReg)
	fc.declareVar(name, localReg, outerBinding.mutable)

	return localReg, outerBinding, true
}

func (fc *funcCtx) finalize() *bytecode.Func {
	return fc.b.Finalize(fc.consts)
}

// constOf interns a literal value into this function's constant pool,
// reusing an existing slot when the same value was already interned.
func (fc *funcCtx) constOf(v any) bytecode.Const {
	if idx, ok := fc.constIdx[v]; ok {
		return idx
	}

	idx := bytecode.Const(len(fc.consts))
	fc.consts = append(fc.consts, v)
	fc.constIdx[v] = idx

	return idx
}

// emit appends instr to the current block, allocating a fresh Dst register
// and returning it. Use for any opcode that produces a value.
func (fc *funcCtx) emit(instr bytecode.Instr) bytecode.Reg {
	instr.Dst = fc.b.NewReg()
	fc.b.Emit(fc.cur, instr)

	return instr.Dst
}

// emitVoid appends instr to the current block without allocating a Dst, for
// opcodes that produce no value (Return, Throw, Impl, ...).
func (fc *funcCtx) emitVoid(instr bytecode.Instr) {
	fc.b.Emit(fc.cur, instr)
}

// emitInto appends instr targeting an already-allocated register (used by
// the augmented-assignment ops, and by pattern-binding forms that must
// reuse an existing variable's register).
func (fc *funcCtx) emitInto(dst bytecode.Reg, instr bytecode.Instr) {
	instr.Dst = dst
	fc.b.Emit(fc.cur, instr)
}

func (fc *funcCtx) intern(name string) source.Name {
	return fc.c.Interner.Intern(name)
}
