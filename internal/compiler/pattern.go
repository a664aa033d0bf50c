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
)

// compilePatternCheck lowers pat against the value already sitting in
// exprReg to a bool-producing register, per spec.md §4.4's per-variant
// sketch. tryNewVar distinguishes assignment-style compilation (a bare
// Path pattern creates a fresh variable if the name isn't bound) from
// match-style compilation (a bare Path must equal an existing binding).
// Patterns are compilation strategies rather than data (spec.md §9): there
// is no runtime "match a pattern against a value" opcode, only the
// control-flow skeletons built here.
func (fc *funcCtx) compilePatternCheck(exprReg bytecode.Reg, pat ast.Pattern, tryNewVar bool) bytecode.Reg {
	switch p := pat.(type) {
	case *ast.AnyPattern:
		return fc.loadBool(true)

	case *ast.EmptyPattern:
		return fc.emit(bytecode.Instr{Op: bytecode.OpPatTypeCheck, A: exprReg, Name: fc.intern("empty"), Span: p.Span()})

	case *ast.TypePattern:
		return fc.emit(bytecode.Instr{Op: bytecode.OpPatTypeCheck, A: exprReg, Name: fc.intern(p.TypeName), Span: p.Span()})

	case *ast.CmpPattern:
		rhs := fc.compileExpr(p.Value)
		return fc.emitCmp(p.Op, exprReg, rhs, p.Span())

	case *ast.ArrayDestructure:
		return fc.compileArrayDestructure(exprReg, p, tryNewVar)

	case *ast.ArrayPattern:
		return fc.compileArrayPattern(exprReg, p, tryNewVar)

	case *ast.DictDestructure:
		return fc.compileDictDestructure(exprReg, "", p.Fields, tryNewVar, p.Span())

	case *ast.InstanceDestructure:
		return fc.compileInstanceDestructure(exprReg, p, tryNewVar)

	case *ast.DictPattern:
		return fc.compileDictPattern(exprReg, p, tryNewVar)

	case *ast.MaybeDestructure:
		return fc.compileMaybeDestructure(exprReg, p, tryNewVar)

	case *ast.MacroPattern:
		return fc.compileMacroPattern(exprReg, p)

	case *ast.Path:
		return fc.compilePathPattern(exprReg, p, tryNewVar)

	case *ast.MutPattern:
		reg := fc.emit(bytecode.Instr{Op: bytecode.OpCopyDeep, A: exprReg, Span: p.Span()})
		fc.declareVar(p.Name, reg, true)
		return fc.loadBool(true)

	case *ast.RefPattern:
		reg := fc.emit(bytecode.Instr{Op: bytecode.OpCopyRef, A: exprReg, Span: p.Span()})
		fc.declareVar(p.Name, reg, true)
		return fc.loadBool(true)

	case *ast.BothPattern:
		return fc.compileBothPattern(exprReg, p, tryNewVar)

	case *ast.EitherPattern:
		return fc.compileEitherPattern(exprReg, p, tryNewVar)

	case *ast.IfGuardPattern:
		inner := fc.compilePatternCheck(exprReg, p.Inner, tryNewVar)
		cond := fc.compileExpr(p.Cond)
		return fc.emit(bytecode.Instr{Op: bytecode.OpBitAnd, A: inner, B: cond, Span: p.Span()})

	default:
		fc.c.Errs.Add(diag.New(diag.KindTypeMismatch, pat.Span(), "unsupported pattern form"))
		return fc.loadBool(false)
	}
}

func (fc *funcCtx) loadBool(v bool) bytecode.Reg {
	imm := int64(0)
	if v {
		imm = 1
	}

	return fc.emit(bytecode.Instr{Op: bytecode.OpLoadBool, Imm: imm})
}

func (fc *funcCtx) emitCmp(op ast.CmpOp, lhs, rhs bytecode.Reg, span any) bytecode.Reg {
	var bop bytecode.Op

	switch op {
	case ast.CmpEq:
		bop = bytecode.OpCmpEq
	case ast.CmpNeq:
		bop = bytecode.OpCmpNeq
	case ast.CmpLt:
		bop = bytecode.OpCmpLt
	case ast.CmpLte:
		bop = bytecode.OpCmpLte
	case ast.CmpGt:
		bop = bytecode.OpCmpGt
	case ast.CmpGte:
		bop = bytecode.OpCmpGte
	case ast.CmpIn:
		bop = bytecode.OpIn
	}

	return fc.emit(bytecode.Instr{Op: bop, A: lhs, B: rhs})
}

// compileShortCircuit threads the "conjunction/disjunction of two
// sub-checks" shape shared by Both/Either into nested blocks with an early
// exit, per spec.md §4.4's sketch ("emit child A, copy to out, jump-if-true
// to end; emit child B, copy to out").
func (fc *funcCtx) compileShortCircuit(exitOnTrue bool, left, right func() bytecode.Reg) bytecode.Reg {
	out := fc.b.NewReg()

	a := left()
	fc.emitInto(out, bytecode.Instr{Op: bytecode.OpCopyRef, A: a})

	// rest is detached and Attach-ed only after the guarding jump, so its
	// flattened position correctly follows the jump rather than preceding
	// it (see compileIf).
	rest := fc.b.NewBlock()
	if exitOnTrue {
		fc.b.EmitJumpIfTrue(fc.cur, out, bytecode.EndOf(rest), bytecode.Instr{})
	} else {
		fc.b.EmitJumpIfFalse(fc.cur, out, bytecode.EndOf(rest), bytecode.Instr{})
	}
	fc.b.Attach(fc.cur, rest)

	saved := fc.cur
	fc.cur = rest
	b := right()
	fc.emitInto(out, bytecode.Instr{Op: bytecode.OpCopyRef, A: b})
	fc.cur = saved

	return out
}

func (fc *funcCtx) compileBothPattern(exprReg bytecode.Reg, p *ast.BothPattern, tryNewVar bool) bytecode.Reg {
	return fc.compileShortCircuit(false,
		func() bytecode.Reg { return fc.compilePatternCheck(exprReg, p.Left, tryNewVar) },
		func() bytecode.Reg { return fc.compilePatternCheck(exprReg, p.Right, tryNewVar) })
}

func (fc *funcCtx) compileEitherPattern(exprReg bytecode.Reg, p *ast.EitherPattern, tryNewVar bool) bytecode.Reg {
	return fc.compileShortCircuit(true,
		func() bytecode.Reg { return fc.compilePatternCheck(exprReg, p.Left, tryNewVar) },
		func() bytecode.Reg { return fc.compilePatternCheck(exprReg, p.Right, tryNewVar) })
}

func (fc *funcCtx) compileArrayDestructure(exprReg bytecode.Reg, p *ast.ArrayDestructure, tryNewVar bool) bytecode.Reg {
	lenCheck := fc.emit(bytecode.Instr{Op: bytecode.OpPatArrayLen, A: exprReg, Imm: int64(len(p.Elems)), Span: p.Span()})

	out := lenCheck
	for i, sub := range p.Elems {
		elemReg := fc.emit(bytecode.Instr{Op: bytecode.OpIndex, A: exprReg, B: fc.constReg(int64(i))})
		out = fc.conjoinGuarded(out, func() bytecode.Reg { return fc.compilePatternCheck(elemReg, sub, tryNewVar) })
	}

	return out
}

// conjoinGuarded evaluates rhs() only if out currently holds true (an
// EndIfFalse early-exit, per spec.md §4.4's ArrayPattern sketch), then ANDs
// the two, avoiding unnecessary work and avoiding a spurious index/member
// access on a value that already failed a shape check.
func (fc *funcCtx) conjoinGuarded(out bytecode.Reg, rhs func() bytecode.Reg) bytecode.Reg {
	rest := fc.b.NewBlock()
	fc.b.EmitJumpIfFalse(fc.cur, out, bytecode.EndOf(rest), bytecode.Instr{})
	fc.b.Attach(fc.cur, rest)

	saved := fc.cur
	fc.cur = rest
	r := rhs()
	fc.emitInto(out, bytecode.Instr{Op: bytecode.OpBitAnd, A: out, B: r})
	fc.cur = saved

	return out
}

func (fc *funcCtx) compileArrayPattern(exprReg bytecode.Reg, p *ast.ArrayPattern, tryNewVar bool) bytecode.Reg {
	isArray := fc.emit(bytecode.Instr{Op: bytecode.OpPatTypeCheck, A: exprReg, Name: fc.intern("array"), Span: p.Span()})
	lenReg := fc.emit(bytecode.Instr{Op: bytecode.OpLen, A: exprReg})
	out := fc.conjoinGuarded(isArray, func() bytecode.Reg { return fc.compilePatternCheck(lenReg, p.LenPattern, false) })

	iterReg := fc.emit(bytecode.Instr{Op: bytecode.OpMakeIter, A: exprReg})
	loop := fc.b.NewChildBlock(fc.cur)
	saved := fc.cur
	fc.cur = loop

	maybeReg := fc.emit(bytecode.Instr{Op: bytecode.OpIterNext, A: iterReg})
	fc.b.EmitUnwrapOrJump(fc.cur, maybeReg, bytecode.EndOf(loop), bytecode.Instr{})
	elemOk := fc.compilePatternCheck(maybeReg, p.Elem, tryNewVar)
	fc.emitInto(out, bytecode.Instr{Op: bytecode.OpBitAnd, A: out, B: elemOk})
	fc.b.EmitJumpIfFalse(fc.cur, elemOk, bytecode.EndOf(loop), bytecode.Instr{})
	fc.b.EmitJump(fc.cur, bytecode.StartOf(loop), bytecode.Instr{})

	fc.cur = saved

	return out
}

func (fc *funcCtx) compileDictDestructure(exprReg bytecode.Reg, typeName string, fields []ast.DictKeyPattern, tryNewVar bool, span any) bytecode.Reg {
	var out bytecode.Reg
	if typeName != "" {
		out = fc.emit(bytecode.Instr{Op: bytecode.OpPatIsInstance, A: exprReg, Name: fc.intern(typeName)})
	} else {
		out = fc.emit(bytecode.Instr{Op: bytecode.OpPatTypeCheck, A: exprReg, Name: fc.intern("dict")})
	}

	for _, f := range fields {
		out = fc.conjoinGuarded(out, func() bytecode.Reg {
			hasKey := fc.emit(bytecode.Instr{Op: bytecode.OpPatDictHasKey, A: exprReg, Name: f.Name})
			return fc.conjoinGuarded(hasKey, func() bytecode.Reg {
				valReg := fc.emit(bytecode.Instr{Op: bytecode.OpMember, A: exprReg, Name: f.Name})
				return fc.compilePatternCheck(valReg, f.Pattern, tryNewVar)
			})
		})
	}

	return out
}

func (fc *funcCtx) compileInstanceDestructure(exprReg bytecode.Reg, p *ast.InstanceDestructure, tryNewVar bool) bytecode.Reg {
	if IsBuiltinType(p.TypeName) {
		fc.c.Errs.Add(diag.New(diag.KindBuiltinTypeDestructure, p.Span(),
			"cannot destructure a builtin type as an instance"))
	}

	return fc.compileDictDestructure(exprReg, p.TypeName, p.Fields, tryNewVar, p.Span())
}

// compileDictPattern reuses the ArrayDestructure-of-[_, #v] idea from
// spec.md §4.4's sketch: iterate the dict's (key,value) pairs and assert
// every value satisfies Value, binding nothing from the key itself.
func (fc *funcCtx) compileDictPattern(exprReg bytecode.Reg, p *ast.DictPattern, tryNewVar bool) bytecode.Reg {
	isDict := fc.emit(bytecode.Instr{Op: bytecode.OpPatTypeCheck, A: exprReg, Name: fc.intern("dict")})

	iterReg := fc.emit(bytecode.Instr{Op: bytecode.OpMakeIter, A: exprReg})
	loop := fc.b.NewChildBlock(fc.cur)
	saved := fc.cur
	fc.cur = loop

	maybeReg := fc.emit(bytecode.Instr{Op: bytecode.OpIterNext, A: iterReg})
	fc.b.EmitUnwrapOrJump(fc.cur, maybeReg, bytecode.EndOf(loop), bytecode.Instr{})
	// the iterator over a dict yields a [key, value] pair; index 1 is the
	// value half that Value must match.
	valReg := fc.emit(bytecode.Instr{Op: bytecode.OpIndex, A: maybeReg, B: fc.constReg(int64(1))})
	elemOk := fc.compilePatternCheck(valReg, p.Value, tryNewVar)
	fc.emitInto(isDict, bytecode.Instr{Op: bytecode.OpBitAnd, A: isDict, B: elemOk})
	fc.b.EmitJumpIfFalse(fc.cur, elemOk, bytecode.EndOf(loop), bytecode.Instr{})
	fc.b.EmitJump(fc.cur, bytecode.StartOf(loop), bytecode.Instr{})

	fc.cur = saved

	return isDict
}

func (fc *funcCtx) compileMaybeDestructure(exprReg bytecode.Reg, p *ast.MaybeDestructure, tryNewVar bool) bytecode.Reg {
	isMaybe := fc.emit(bytecode.Instr{Op: bytecode.OpPatTypeCheck, A: exprReg, Name: fc.intern("maybe")})

	if p.Inner == nil {
		isNone := fc.emit(bytecode.Instr{Op: bytecode.OpCmpEq, A: exprReg, B: fc.emit(bytecode.Instr{Op: bytecode.OpMaybeNone})})
		return fc.emit(bytecode.Instr{Op: bytecode.OpBitAnd, A: isMaybe, B: isNone})
	}

	return fc.conjoinGuarded(isMaybe, func() bytecode.Reg {
		// result defaults to false for the None runtime path, which skips
		// notNone's body (and so never otherwise assigns a result here);
		// the Some path overwrites it with the real inner check.
		result := fc.loadBool(false)

		notNone := fc.b.NewBlock()
		fc.b.EmitUnwrapOrJump(fc.cur, exprReg, bytecode.EndOf(notNone), bytecode.Instr{})
		fc.b.Attach(fc.cur, notNone)

		saved := fc.cur
		fc.cur = notNone
		// exprReg has been unwrapped in place by EmitUnwrapOrJump's
		// fallthrough semantics (spec.md §4.3's UnwrapOrJump), so the
		// inner pattern checks directly against it.
		unwrapped := fc.emit(bytecode.Instr{Op: bytecode.OpCopyRef, A: exprReg})
		inner := fc.compilePatternCheck(unwrapped, p.Inner, tryNewVar)
		fc.emitInto(result, bytecode.Instr{Op: bytecode.OpCopyRef, A: inner})
		fc.cur = saved

		return result
	})
}

func (fc *funcCtx) compileMacroPattern(exprReg bytecode.Reg, p *ast.MacroPattern) bytecode.Reg {
	isMacro := fc.emit(bytecode.Instr{Op: bytecode.OpPatTypeCheck, A: exprReg, Name: fc.intern("macro")})
	arity := fc.emit(bytecode.Instr{Op: bytecode.OpLen, A: exprReg})
	arityOk := fc.emit(bytecode.Instr{Op: bytecode.OpCmpEq, A: arity, B: fc.constReg(int64(len(p.Args)))})

	return fc.emit(bytecode.Instr{Op: bytecode.OpBitAnd, A: isMacro, B: arityOk})
}

func (fc *funcCtx) constReg(v any) bytecode.Reg {
	switch n := v.(type) {
	case int64:
		return fc.emit(bytecode.Instr{Op: bytecode.OpLoadInt, ConstID: fc.constOf(n)})
	case float64:
		return fc.emit(bytecode.Instr{Op: bytecode.OpLoadFloat, ConstID: fc.constOf(n)})
	case string:
		return fc.emit(bytecode.Instr{Op: bytecode.OpLoadString, ConstID: fc.constOf(n)})
	default:
		return fc.emit(bytecode.Instr{Op: bytecode.OpLoadNull})
	}
}

// compilePathPattern lowers a Path pattern. Under assignment-style
// compilation (tryNewVar) with an empty Steps chain, a not-yet-bound
// variable name creates a fresh binding; otherwise it walks the access
// chain and assigns deep (or by-ref, for IsRef) into the final step. Under
// match-style compilation, the bare-name form instead compares against the
// existing binding by value equality (spec.md §4.4).
func (fc *funcCtx) compilePathPattern(exprReg bytecode.Reg, p *ast.Path, tryNewVar bool) bytecode.Reg {
	if len(p.Steps) == 0 {
		if tryNewVar {
			if _, _, ok := fc.resolveVar(p.Var); !ok {
				reg := fc.b.NewReg()
				op := bytecode.OpCopyDeep
				if p.IsRef {
					op = bytecode.OpCopyRef
				}
				fc.emitInto(reg, bytecode.Instr{Op: op, A: exprReg, Span: p.Span()})
				fc.declareVar(p.Var, reg, true)
				return fc.loadBool(true)
			}
		}

		reg, b, ok := fc.resolveVar(p.Var)
		if !ok {
			fc.c.Errs.Add(diag.New(diag.KindNonexistentVariable, p.Span(),
				"use of undeclared variable '"+fc.c.Interner.Text(p.Var)+"'"))
			return fc.loadBool(false)
		}

		if !tryNewVar {
			return fc.emit(bytecode.Instr{Op: bytecode.OpCmpEq, A: reg, B: exprReg})
		}

		if !b.mutable {
			fc.c.Errs.Add(diag.New(diag.KindImmutableAssign, p.Span(),
				"cannot assign to immutable variable '"+fc.c.Interner.Text(p.Var)+"'"))
		}

		op := bytecode.OpCopyDeep
		if p.IsRef {
			op = bytecode.OpCopyRef
		}
		fc.emitInto(reg, bytecode.Instr{Op: op, A: exprReg, Span: p.Span()})

		return fc.loadBool(true)
	}

	// Walk to the penultimate step's memory-aliased access (…Mem variants,
	// spec.md §4.3), then write through the final step.
	reg, _, ok := fc.resolveVar(p.Var)
	if !ok {
		fc.c.Errs.Add(diag.New(diag.KindNonexistentVariable, p.Span(), "use of undeclared variable"))
		return fc.loadBool(false)
	}

	for i, step := range p.Steps {
		last := i == len(p.Steps)-1
		switch step.Kind {
		case ast.PathIndex:
			idxReg := fc.compileExpr(step.Index)
			op := bytecode.OpIndex
			if !last {
				op = bytecode.OpIndexMem
			}
			reg = fc.emit(bytecode.Instr{Op: op, A: reg, B: idxReg})
		case ast.PathField:
			op := bytecode.OpMember
			if !last {
				op = bytecode.OpMemberMem
			}
			reg = fc.emit(bytecode.Instr{Op: op, A: reg, Name: step.Name})
		case ast.PathAssoc:
			op := bytecode.OpAssociated
			if !last {
				op = bytecode.OpAssociatedMem
			}
			reg = fc.emit(bytecode.Instr{Op: op, A: reg, Name: step.Name})
		}
	}

	writeOp := bytecode.OpCopyDeep
	if p.IsRef {
		writeOp = bytecode.OpCopyRef
	}
	fc.emitInto(reg, bytecode.Instr{Op: writeOp, A: exprReg, Span: p.Span()})

	return fc.loadBool(true)
}
