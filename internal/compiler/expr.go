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

// compileExpr lowers a single expression to the register holding its
// result, per spec.md §4.4.
func (fc *funcCtx) compileExpr(e ast.Expr) bytecode.Reg {
	switch n := e.(type) {
	case *ast.IntLit:
		return fc.emit(bytecode.Instr{Op: bytecode.OpLoadInt, ConstID: fc.constOf(n.Value), Span: n.Span()})

	case *ast.FloatLit:
		return fc.emit(bytecode.Instr{Op: bytecode.OpLoadFloat, ConstID: fc.constOf(n.Value), Span: n.Span()})

	case *ast.BoolLit:
		return fc.loadBool(n.Value)

	case *ast.NullLit:
		return fc.emit(bytecode.Instr{Op: bytecode.OpLoadNull, Span: n.Span()})

	case *ast.StringLit:
		return fc.emit(bytecode.Instr{Op: bytecode.OpLoadString, ConstID: fc.constOf(string(n.Value)), Span: n.Span()})

	case *ast.IDLit:
		idc := bytecode.IDConst{Class: n.Class, Arbitrary: n.Arbitrary, Value: n.Value}
		return fc.emit(bytecode.Instr{Op: bytecode.OpLoadID, ConstID: fc.constOf(idc), Span: n.Span()})

	case *ast.Ident:
		return fc.compileIdent(n)

	case *ast.Builtins:
		return fc.emit(bytecode.Instr{Op: bytecode.OpLoadBuiltinsNS, Span: n.Span()})

	case *ast.TypeName:
		return fc.emit(bytecode.Instr{Op: bytecode.OpLoadString, ConstID: fc.constOf(n.Name), Span: n.Span()})

	case *ast.ArrayLit:
		return fc.compileArrayLit(n)

	case *ast.DictLit:
		return fc.compileDictLit(n)

	case *ast.Index:
		return fc.emit(bytecode.Instr{Op: bytecode.OpIndex, A: fc.compileExpr(n.Target), B: fc.compileExpr(n.Index), Span: n.Span()})

	case *ast.Slice:
		return fc.compileSlice(n)

	case *ast.Member:
		return fc.emit(bytecode.Instr{Op: bytecode.OpMember, A: fc.compileExpr(n.Target), Name: n.Name, Span: n.Span()})

	case *ast.Associated:
		return fc.emit(bytecode.Instr{Op: bytecode.OpAssociated, A: fc.compileExpr(n.Target), Name: n.Name, Span: n.Span()})

	case *ast.Call:
		return fc.compileCall(n)

	case *ast.MacroDef:
		return fc.compileMacroDef(n, false)

	case *ast.TriggerFuncExpr:
		return fc.compileTriggerFuncExpr(n)

	case *ast.Ternary:
		return fc.compileTernary(n)

	case *ast.TypeOfExpr:
		return fc.emit(bytecode.Instr{Op: bytecode.OpTypeOf, A: fc.compileExpr(n.Target), Span: n.Span()})

	case *ast.ImportExpr:
		return fc.compileImport(n)

	case *ast.MatchExpr:
		return fc.compileMatch(n)

	case *ast.InstanceExpr:
		return fc.compileInstance(n)

	case *ast.UnaryExpr:
		return fc.compileUnary(n)

	case *ast.BinaryExpr:
		return fc.compileBinary(n)

	case *ast.WrapMaybe:
		return fc.emit(bytecode.Instr{Op: bytecode.OpWrapMaybe, A: fc.compileExpr(n.Target), Span: n.Span()})

	case *ast.TriggerFuncCall:
		target := fc.compileExpr(n.Target)
		fc.emitVoid(bytecode.Instr{Op: bytecode.OpCallTriggerFunc, A: target, Span: n.Span()})
		return target

	default:
		fc.c.Errs.Add(diag.New(diag.KindTypeMismatch, e.Span(), "unsupported expression form"))
		return fc.emit(bytecode.Instr{Op: bytecode.OpLoadNull})
	}
}

func (fc *funcCtx) compileIdent(n *ast.Ident) bytecode.Reg {
	reg, _, ok := fc.resolveVar(n.Name)
	if !ok {
		fc.c.Errs.Add(diag.New(diag.KindNonexistentVariable, n.Span(),
			"use of undeclared variable '"+fc.c.Interner.Text(n.Name)+"'"))
		return fc.emit(bytecode.Instr{Op: bytecode.OpLoadNull})
	}

	return fc.emit(bytecode.Instr{Op: bytecode.OpCopyRef, A: reg, Span: n.Span()})
}

func (fc *funcCtx) compileArrayLit(n *ast.ArrayLit) bytecode.Reg {
	elems := make([]bytecode.Reg, len(n.Elems))
	for i, e := range n.Elems {
		elems[i] = fc.compileExpr(e)
	}

	return fc.emit(bytecode.Instr{Op: bytecode.OpMakeArray, Args: elems, Span: n.Span()})
}

func (fc *funcCtx) compileDictLit(n *ast.DictLit) bytecode.Reg {
	vals := make([]bytecode.Reg, len(n.Entries))
	names := make([]source.Name, len(n.Entries))
	priv := make([]bool, len(n.Entries))

	for i, entry := range n.Entries {
		if entry.Value != nil {
			vals[i] = fc.compileExpr(entry.Value)
		} else {
			// shorthand `{a}` entry: use the variable named Key directly.
			reg, _, ok := fc.resolveVar(entry.Key)
			if !ok {
				fc.c.Errs.Add(diag.New(diag.KindNonexistentVariable, n.Span(),
					"use of undeclared variable '"+fc.c.Interner.Text(entry.Key)+"'"))
			}
			vals[i] = fc.emit(bytecode.Instr{Op: bytecode.OpCopyRef, A: reg})
		}

		names[i] = entry.Key
		priv[i] = entry.Private
	}

	return fc.emit(bytecode.Instr{Op: bytecode.OpMakeDict, Args: vals, Names: names, Flags: priv, Span: n.Span()})
}

func (fc *funcCtx) compileSlice(n *ast.Slice) bytecode.Reg {
	target := fc.compileExpr(n.Target)

	loadOrNull := func(e ast.Expr) bytecode.Reg {
		if e == nil {
			return fc.emit(bytecode.Instr{Op: bytecode.OpLoadNull})
		}

		return fc.compileExpr(e)
	}

	args := []bytecode.Reg{loadOrNull(n.Start), loadOrNull(n.End), loadOrNull(n.Step)}

	return fc.emit(bytecode.Instr{Op: bytecode.OpSlice, A: target, Args: args, Span: n.Span()})
}

// compileCall lowers a call expression. Positional arguments fill the
// leading entries of Args (with a zero Name); named arguments follow with
// their Name set, matching spec.md §4.5's "matched by position first, then
// by name" call semantics (the VM does the actual matching against the
// callee's declared parameters at dispatch time).
func (fc *funcCtx) compileCall(n *ast.Call) bytecode.Reg {
	callee := fc.compileExpr(n.Callee)

	args := make([]bytecode.Reg, 0, len(n.Args)+len(n.NamedArgs))
	names := make([]source.Name, 0, len(n.Args)+len(n.NamedArgs))

	for _, a := range n.Args {
		args = append(args, fc.compileExpr(a))
		names = append(names, 0)
	}

	seen := map[source.Name]bool{}
	for _, na := range n.NamedArgs {
		if seen[na.Name] {
			fc.c.Errs.Add(diag.New(diag.KindDuplicateKeywordArg, n.Span(),
				"duplicate keyword argument '"+fc.c.Interner.Text(na.Name)+"'"))
		}
		seen[na.Name] = true

		args = append(args, fc.compileExpr(na.Value))
		names = append(names, na.Name)
	}

	return fc.emit(bytecode.Instr{Op: bytecode.OpCall, A: callee, Args: args, Names: names, Span: n.Span()})
}

// compileMacroDef lowers a macro (closure) literal: a brand new funcCtx
// whose scope is rooted in the lexical scope at the definition site (so
// resolveVar can thread captures up through it), argument patterns bound in
// declaration order, and a body compiled as either a block or a single
// lambda expression implicitly returned. isTriggerFunc bodies reuse this
// same machinery through compileTriggerFuncExpr; only the registration
// opcode differs (MakeMacro vs MakeTriggerFunc).
func (fc *funcCtx) compileMacroDef(n *ast.MacroDef, _ bool) bytecode.Reg {
	nested := fc.c.newFunc(fc.scope.Child(ScopeMacroBody), fc)
	nested.scope.ReturnPat = n.ReturnPat

	spread := -1

	for i, arg := range n.Args {
		reg := nested.b.NewReg()
		nested.declareVar(arg.Name, reg, true)

		if arg.Spread {
			spread = i
		}

		nested.emitInto(reg, bytecode.Instr{
			Op: bytecode.OpMacroArgBind, Imm: int64(i), Name: arg.Name, Span: n.Span(),
		})

		if arg.Default != nil {
			// Only run the default expression when the caller actually
			// omitted this argument: OpArgSupplied queries that without
			// touching reg, so a supplied spread/zero value never gets
			// clobbered by the default.
			supplied := nested.emit(bytecode.Instr{
				Op: bytecode.OpArgSupplied, Imm: int64(i), Name: arg.Name, Span: n.Span(),
			})

			defBlk := nested.b.NewBlock()
			nested.b.EmitJumpIfTrue(nested.cur, supplied, bytecode.EndOf(defBlk), bytecode.Instr{Span: arg.Default.Span()})
			nested.b.Attach(nested.cur, defBlk)

			saved := nested.cur
			nested.cur = defBlk
			defReg := nested.compileExpr(arg.Default)
			nested.emitInto(reg, bytecode.Instr{Op: bytecode.OpCopyDeep, A: defReg})
			nested.cur = saved
		}

		if arg.Pattern != nil {
			ok := nested.compilePatternCheck(reg, arg.Pattern, false)
			nested.emitVoid(bytecode.Instr{Op: bytecode.OpMismatchThrowIfFalse, A: ok})
		}
	}

	nested.b.SetArgCount(len(n.Args))
	nested.b.SetSpreadArg(spread)

	if n.Body != nil {
		nested.compileBlock(n.Body)
	} else {
		result := nested.compileExpr(n.LambdaBody)
		nested.emitVoid(bytecode.Instr{Op: bytecode.OpReturn, A: result})
	}

	fn := nested.finalize()
	idx := fc.c.registerFunc(fn)

	m := fc.emit(bytecode.Instr{Op: bytecode.OpMakeMacro, A: bytecode.Reg(idx), Span: n.Span()})

	if len(n.Args) > 0 && n.Args[0].IsSelf {
		fc.emitVoid(bytecode.Instr{Op: bytecode.OpMarkMacroMethod, A: m, Span: n.Span()})
	}

	return m
}

func (fc *funcCtx) compileTriggerFuncExpr(n *ast.TriggerFuncExpr) bytecode.Reg {
	nested := fc.c.newFunc(fc.scope.Child(ScopeTriggerFunc), fc)
	nested.compileBlock(n.Body)

	fn := nested.finalize()
	idx := fc.c.registerFunc(fn)

	groupReg := fc.emit(bytecode.Instr{Op: bytecode.OpMakeTriggerFunc, A: bytecode.Reg(idx), Span: n.Span()})

	return groupReg
}

func (fc *funcCtx) compileTernary(n *ast.Ternary) bytecode.Reg {
	cond := fc.compileExpr(n.Cond)
	out := fc.b.NewReg()

	// Both branches are detached and Attach-ed only once the instruction
	// that must precede them has actually been emitted; see compileIf.
	thenBlk := fc.b.NewBlock()
	elseBlk := fc.b.NewBlock()

	fc.b.EmitJumpIfFalse(fc.cur, cond, bytecode.StartOf(elseBlk), bytecode.Instr{})
	fc.b.Attach(fc.cur, thenBlk)

	saved := fc.cur
	fc.cur = thenBlk
	t := fc.compileExpr(n.Then)
	fc.emitInto(out, bytecode.Instr{Op: bytecode.OpCopyRef, A: t})
	fc.b.EmitJump(fc.cur, bytecode.EndOf(elseBlk), bytecode.Instr{})
	fc.cur = saved

	fc.b.Attach(fc.cur, elseBlk)
	fc.cur = elseBlk
	el := fc.compileExpr(n.Else)
	fc.emitInto(out, bytecode.Instr{Op: bytecode.OpCopyRef, A: el})

	fc.cur = saved

	return out
}

// compileImport resolves and compiles (or loads from cache) the imported
// source via the Compiler's Importer, emitting OpImport with the resolved
// module index. Actual filesystem/search-root/cache-validity logic lives in
// internal/driver + internal/cache, not here (spec.md §4.4: "An import
// evaluates the imported bytecode to completion with its own execution
// context").
func (fc *funcCtx) compileImport(n *ast.ImportExpr) bytecode.Reg {
	if fc.c.Importer == nil {
		fc.c.Errs.Add(diag.New(diag.KindNonexistentImport, n.Span(), "no importer configured"))
		return fc.emit(bytecode.Instr{Op: bytecode.OpLoadNull})
	}

	if _, err := fc.c.Importer.Resolve(n.Path, n.IsLibrary, n.Span()); err != nil {
		fc.c.Errs.Add(diag.New(diag.KindNonexistentImport, n.Span(), err.Error()))
		return fc.emit(bytecode.Instr{Op: bytecode.OpLoadNull})
	}

	return fc.emit(bytecode.Instr{Op: bytecode.OpImport, ConstID: fc.constOf(n.Path), Span: n.Span()})
}

func (fc *funcCtx) compileMatch(n *ast.MatchExpr) bytecode.Reg {
	scrutinee := fc.compileExpr(n.Scrutinee)
	out := fc.b.NewReg()
	fc.emitInto(out, bytecode.Instr{Op: bytecode.OpLoadNull})

	// end is a detached forward marker, attached only once every arm has
	// been compiled (see compileIf for why this can't be attached up
	// front).
	end := fc.b.NewBlock()

	for _, arm := range n.Arms {
		armScope := fc.scope
		fc.scope = armScope.Child(ScopeBlock)

		ok := fc.compilePatternCheck(scrutinee, arm.Pattern, true)

		body := fc.b.NewBlock()
		fc.b.EmitJumpIfFalse(fc.cur, ok, bytecode.EndOf(body), bytecode.Instr{})
		fc.b.Attach(fc.cur, body)

		saved := fc.cur
		fc.cur = body

		var result bytecode.Reg
		if arm.Expr != nil {
			result = fc.compileExpr(arm.Expr)
		} else {
			result = fc.compileBlockExpr(arm.Block)
		}

		fc.emitInto(out, bytecode.Instr{Op: bytecode.OpCopyRef, A: result})
		fc.b.EmitJump(fc.cur, bytecode.EndOf(end), bytecode.Instr{})

		fc.cur = saved
		fc.scope = armScope
	}

	fc.b.Attach(fc.cur, end)

	return out
}

// compileBlockExpr compiles a block whose last ExprStmt (if any) supplies
// the block's value; used for match arms with a `{ ... }` body rather than
// a bare `=> expr` body.
func (fc *funcCtx) compileBlockExpr(blk *ast.Block) bytecode.Reg {
	var last bytecode.Reg
	hasLast := false

	for i, s := range blk.Stmts {
		if i == len(blk.Stmts)-1 {
			if es, ok := s.(*ast.ExprStmt); ok {
				last = fc.compileExpr(es.Expr)
				hasLast = true
				continue
			}
		}

		fc.compileStmt(s)
	}

	if !hasLast {
		return fc.emit(bytecode.Instr{Op: bytecode.OpLoadNull})
	}

	return last
}

func (fc *funcCtx) compileInstance(n *ast.InstanceExpr) bytecode.Reg {
	typeReg := fc.compileExpr(n.Type)

	vals := make([]bytecode.Reg, len(n.Fields))
	names := make([]source.Name, len(n.Fields))

	for i, f := range n.Fields {
		vals[i] = fc.compileExpr(f.Value)
		names[i] = f.Name
	}

	return fc.emit(bytecode.Instr{Op: bytecode.OpMakeInstance, A: typeReg, Args: vals, Names: names, Span: n.Span()})
}

func (fc *funcCtx) compileUnary(n *ast.UnaryExpr) bytecode.Reg {
	operand := fc.compileExpr(n.Operand)

	switch n.Op {
	case ast.UnaryNeg:
		return fc.emit(bytecode.Instr{Op: bytecode.OpNeg, A: operand, Span: n.Span()})
	case ast.UnaryNot:
		return fc.emit(bytecode.Instr{Op: bytecode.OpNot, A: operand, Span: n.Span()})
	case ast.UnaryPreIncr:
		fc.emitInto(operand, bytecode.Instr{Op: bytecode.OpPreIncr, A: operand, Span: n.Span()})
		return operand
	case ast.UnaryPreDecr:
		fc.emitInto(operand, bytecode.Instr{Op: bytecode.OpPreDecr, A: operand, Span: n.Span()})
		return operand
	default:
		return operand
	}
}

var binOpcodes = map[ast.BinOp]bytecode.Op{
	ast.BinAdd: bytecode.OpAdd, ast.BinSub: bytecode.OpSub, ast.BinMul: bytecode.OpMul,
	ast.BinDiv: bytecode.OpDiv, ast.BinFloorDiv: bytecode.OpFloorDiv, ast.BinMod: bytecode.OpMod,
	ast.BinPow: bytecode.OpPow, ast.BinEq: bytecode.OpCmpEq, ast.BinNeq: bytecode.OpCmpNeq,
	ast.BinIs: bytecode.OpIs, ast.BinIn: bytecode.OpIn, ast.BinLt: bytecode.OpCmpLt,
	ast.BinGt: bytecode.OpCmpGt, ast.BinLte: bytecode.OpCmpLte, ast.BinGte: bytecode.OpCmpGte,
	ast.BinRange: bytecode.OpRange, ast.BinBitOr: bytecode.OpBitOr, ast.BinBitAnd: bytecode.OpBitAnd,
	ast.BinAs: bytecode.OpAs, ast.BinShl: bytecode.OpShl, ast.BinShr: bytecode.OpShr,
}

// compileBinary lowers a binary expression. `||`/`&&` (spec.md §4.2 level
// 1/2) are not plain arithmetic opcodes: they short-circuit, so they're
// lowered through the same compileShortCircuit skeleton the pattern
// compiler uses for Either/Both rather than through binOpcodes.
func (fc *funcCtx) compileBinary(n *ast.BinaryExpr) bytecode.Reg {
	if n.Op == ast.BinOr || n.Op == ast.BinAnd {
		return fc.compileShortCircuit(n.Op == ast.BinOr,
			func() bytecode.Reg { return fc.compileExpr(n.Left) },
			func() bytecode.Reg { return fc.compileExpr(n.Right) })
	}

	lhs := fc.compileExpr(n.Left)
	rhs := fc.compileExpr(n.Right)

	op, ok := binOpcodes[n.Op]
	if !ok {
		fc.c.Errs.Add(diag.New(diag.KindInvalidOperands, n.Span(), "unsupported binary operator"))
		return lhs
	}

	return fc.emit(bytecode.Instr{Op: op, A: lhs, B: rhs, Span: n.Span()})
}
