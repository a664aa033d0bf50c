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

// compileBlock compiles a `{ ... }` statement list in a fresh ScopeBlock
// child, emitted directly into the function's current block (no new
// bytecode.BlockID: a plain brace block introduces a lexical boundary, not
// a control-flow one — spec.md §4.4 only gives if/while/for/try their own
// nested bytecode blocks).
func (fc *funcCtx) compileBlock(blk *ast.Block) {
	saved := fc.scope
	fc.scope = saved.Child(ScopeBlock)

	for _, s := range blk.Stmts {
		fc.compileStmt(s)
	}

	fc.scope = saved
}

// compileStmt lowers one statement, per spec.md §4.4's statement-lowering
// rules.
func (fc *funcCtx) compileStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.ExprStmt:
		fc.compileExpr(n.Expr)

	case *ast.AssignStmt:
		fc.compileAssign(n)

	case *ast.AssignOpStmt:
		fc.compileAssignOp(n)

	case *ast.IfStmt:
		fc.compileIf(n)

	case *ast.WhileStmt:
		fc.compileWhile(n)

	case *ast.ForStmt:
		fc.compileFor(n)

	case *ast.ArrowStmt:
		fc.compileArrow(n)

	case *ast.ReturnStmt:
		fc.compileReturn(n)

	case *ast.BreakStmt:
		fc.compileBreak(n)

	case *ast.ContinueStmt:
		fc.compileContinue(n)

	case *ast.TypeDefStmt:
		fc.compileTypeDef(n)

	case *ast.ExtractImportStmt:
		fc.compileExtractImport(n)

	case *ast.ImplStmt:
		fc.compileImpl(n)

	case *ast.OverloadStmt:
		fc.compileOverload(n)

	case *ast.ThrowStmt:
		v := fc.compileExpr(n.Value)
		fc.emitVoid(bytecode.Instr{Op: bytecode.OpThrow, A: v, Span: n.Span()})

	case *ast.TryCatchStmt:
		fc.compileTryCatch(n)

	default:
		fc.c.Errs.Add(diag.New(diag.KindTypeMismatch, s.Span(), "unsupported statement form"))
	}
}

// compileAssign lowers `pattern = expr` (spec.md §4.4): the RHS is
// evaluated into a temp register, the pattern is checked/bound against that
// temp (registering any new variables it introduces), and — unless the
// pattern is one the compiler can prove always matches — a
// MismatchThrowIfFalse guards against a failed destructure.
func (fc *funcCtx) compileAssign(n *ast.AssignStmt) {
	val := fc.compileExpr(n.Value)
	ok := fc.compilePatternCheck(val, n.Target, true)

	if !isInfalliblePattern(n.Target) {
		fc.emitVoid(bytecode.Instr{Op: bytecode.OpMismatchThrowIfFalse, A: ok, Span: n.Span()})
	}
}

// isInfalliblePattern reports whether pat can never fail to match, letting
// compileAssign elide the MismatchThrowIfFalse guard spec.md §4.4 calls out
// as an optional optimization ("implementations may optimize this away for
// infallible patterns like a plain identifier").
func isInfalliblePattern(pat ast.Pattern) bool {
	switch p := pat.(type) {
	case *ast.AnyPattern, *ast.MutPattern, *ast.RefPattern:
		return true
	case *ast.Path:
		return len(p.Steps) == 0
	default:
		return false
	}
}

var assignOpcodes = map[ast.AssignOp]bytecode.Op{
	ast.OpAddAssign: bytecode.OpAddAssign, ast.OpSubAssign: bytecode.OpSubAssign,
	ast.OpMulAssign: bytecode.OpMulAssign, ast.OpDivAssign: bytecode.OpDivAssign,
	ast.OpModAssign: bytecode.OpModAssign, ast.OpPowAssign: bytecode.OpPowAssign,
	ast.OpBitAndAssign: bytecode.OpBitAndAssign, ast.OpBitOrAssign: bytecode.OpBitOrAssign,
	ast.OpShlAssign: bytecode.OpShlAssign, ast.OpShrAssign: bytecode.OpShrAssign,
}

// compileAssignOp lowers `path op= expr`. spec.md §4.4 requires the target
// be a non-by-ref Path; the parser already enforces IsRef==false here
// (KindIllegalAugmentedAssign), so this only needs to resolve the path's
// final storage location and emit the augmented two-address opcode.
func (fc *funcCtx) compileAssignOp(n *ast.AssignOpStmt) {
	dst := fc.resolvePathLValue(n.Target)
	rhs := fc.compileExpr(n.Value)

	op, ok := assignOpcodes[n.Op]
	if !ok {
		fc.c.Errs.Add(diag.New(diag.KindIllegalAugmentedAssign, n.Span(), "unsupported augmented-assignment operator"))
		return
	}

	fc.emitInto(dst, bytecode.Instr{Op: op, A: dst, B: rhs, Span: n.Span()})
}

// resolvePathLValue walks a Path's whole access chain, final step included,
// returning the …Mem-aliased register that AssignOpStmt's augmented opcode
// should read-modify-write in place.
func (fc *funcCtx) resolvePathLValue(p *ast.Path) bytecode.Reg {
	reg, _, ok := fc.resolveVar(p.Var)
	if !ok {
		fc.c.Errs.Add(diag.New(diag.KindNonexistentVariable, p.Span(), "use of undeclared variable"))
		return fc.emit(bytecode.Instr{Op: bytecode.OpLoadNull})
	}

	for _, step := range p.Steps {
		switch step.Kind {
		case ast.PathIndex:
			idxReg := fc.compileExpr(step.Index)
			reg = fc.emit(bytecode.Instr{Op: bytecode.OpIndexMem, A: reg, B: idxReg})
		case ast.PathField:
			reg = fc.emit(bytecode.Instr{Op: bytecode.OpMemberMem, A: reg, Name: step.Name})
		case ast.PathAssoc:
			reg = fc.emit(bytecode.Instr{Op: bytecode.OpAssociatedMem, A: reg, Name: step.Name})
		}
	}

	return reg
}

// compileIf lowers an if-elif-else chain: each branch gets its own child
// block (cond check outside it, body inside), with a trailing jump to a
// shared end block once any branch's body completes.
func (fc *funcCtx) compileIf(n *ast.IfStmt) {
	// end is a detached forward marker: its final position (after every
	// branch, including a trailing else) isn't known until the whole
	// statement has been compiled, so it's attached to fc.cur last rather
	// than up front.
	end := fc.b.NewBlock()

	for _, br := range n.Branches {
		cond := fc.compileExpr(br.Cond)

		// body must be attached after the guarding JumpIfFalse, not before:
		// Attach fixes a block's position in its parent's flattened order at
		// the moment it's called, regardless of when the block's own
		// content is filled in. The guard jumps PAST body (to its end, i.e.
		// wherever the next branch check/else/end winds up) when cond is
		// false; body itself is reached purely by falling through.
		body := fc.b.NewBlock()
		fc.b.EmitJumpIfFalse(fc.cur, cond, bytecode.EndOf(body), bytecode.Instr{})
		fc.b.Attach(fc.cur, body)

		saved := fc.cur
		fc.cur = body
		fc.compileBlock(br.Body)
		fc.b.EmitJump(fc.cur, bytecode.EndOf(end), bytecode.Instr{})
		fc.cur = saved
	}

	if n.Else != nil {
		saved := fc.cur
		elseBlk := fc.b.NewChildBlock(fc.cur)
		fc.cur = elseBlk
		fc.compileBlock(n.Else)
		fc.cur = saved
	}

	fc.b.Attach(fc.cur, end)
}

// compileWhile lowers `while cond { body }` into a loop-anchored child
// block: condition re-check at the top, JumpIfFalse out, body, jump back to
// start.
func (fc *funcCtx) compileWhile(n *ast.WhileStmt) {
	loop := fc.b.NewChildBlock(fc.cur)
	saved := fc.cur
	fc.cur = loop

	cond := fc.compileExpr(n.Cond)
	fc.b.EmitJumpIfFalse(fc.cur, cond, bytecode.EndOf(loop), bytecode.Instr{})

	savedScope := fc.scope
	fc.scope = savedScope.Child(ScopeLoop)
	fc.scope.LoopBlock = loop

	for _, st := range n.Body.Stmts {
		fc.compileStmt(st)
	}

	fc.scope = savedScope
	fc.b.EmitJump(fc.cur, bytecode.StartOf(loop), bytecode.Instr{})

	fc.cur = saved
}

// compileFor lowers `for pattern in iter { body }`: evaluate the iterator
// once, then loop IterNext/UnwrapOrEnd/pattern-check/body.
func (fc *funcCtx) compileFor(n *ast.ForStmt) {
	iterSrc := fc.compileExpr(n.Iter)
	iter := fc.emit(bytecode.Instr{Op: bytecode.OpMakeIter, A: iterSrc, Span: n.Span()})

	loop := fc.b.NewChildBlock(fc.cur)
	saved := fc.cur
	fc.cur = loop

	maybe := fc.emit(bytecode.Instr{Op: bytecode.OpIterNext, A: iter})
	fc.b.EmitUnwrapOrJump(fc.cur, maybe, bytecode.EndOf(loop), bytecode.Instr{})

	savedScope := fc.scope
	fc.scope = savedScope.Child(ScopeLoop)
	fc.scope.LoopBlock = loop

	ok := fc.compilePatternCheck(maybe, n.Pattern, true)
	if !isInfalliblePattern(n.Pattern) {
		fc.emitVoid(bytecode.Instr{Op: bytecode.OpMismatchThrowIfFalse, A: ok})
	}

	for _, st := range n.Body.Stmts {
		fc.compileStmt(st)
	}

	fc.scope = savedScope
	fc.b.EmitJump(fc.cur, bytecode.StartOf(loop), bytecode.Instr{})

	fc.cur = saved
}

// compileArrow lowers `-> stmt`: EnterArrowStmt (the context-forking
// pseudo-op, spec.md §4.3/§5) is emitted ahead of the statement's own
// compiled bytecode, which sits inside a dedicated ScopeArrowStmt scope so
// break/continue reaching it from inside raise KindBreakInArrowStmtScope per
// spec.md §7. The forked lane runs the statement; the forking lane skips
// it. Nothing ends the forked lane after the statement (the opcode set has
// no YeetContext), so both lanes go on to run the code that follows.
func (fc *funcCtx) compileArrow(n *ast.ArrowStmt) {
	body := fc.b.NewBlock()
	fc.b.EmitArrowFork(fc.cur, bytecode.EndOf(body), bytecode.Instr{Span: n.Span()})
	fc.b.Attach(fc.cur, body)

	saved := fc.cur
	savedScope := fc.scope
	fc.cur = body
	fc.scope = savedScope.Child(ScopeArrowStmt)

	fc.compileStmt(n.Inner)

	fc.cur = saved
	fc.scope = savedScope
}

// compileReturn lowers `return expr`. Outside any macro body it's the
// module-return form (bare top-level returns are handled directly by
// Compiler.CompileProgram, not here); inside one, the declared return
// pattern (if any) is checked before the Return opcode is emitted.
func (fc *funcCtx) compileReturn(n *ast.ReturnStmt) {
	macroScope := fc.scope.EnclosingMacro()
	if macroScope == nil {
		fc.c.Errs.Add(diag.New(diag.KindReturnOutsideMacro, n.Span(), "'return' outside of a macro body"))
		return
	}

	var val bytecode.Reg
	if n.Value != nil {
		val = fc.compileExpr(n.Value)
	} else {
		val = fc.emit(bytecode.Instr{Op: bytecode.OpLoadNull})
	}

	if pat, ok := macroScope.ReturnPat.(ast.Pattern); ok && pat != nil {
		chk := fc.compilePatternCheck(val, pat, false)
		fc.emitVoid(bytecode.Instr{Op: bytecode.OpMismatchThrowIfFalse, A: chk})
	}

	fc.emitVoid(bytecode.Instr{Op: bytecode.OpReturn, A: val, Span: n.Span()})
}

func (fc *funcCtx) compileBreak(n *ast.BreakStmt) {
	loop, crossedKind, crossed := fc.scope.EnclosingLoop()
	if crossed {
		kind := diag.KindBreakInArrowStmtScope
		if crossedKind == ScopeTriggerFunc {
			kind = diag.KindBreakInTriggerFuncScope
		}
		fc.c.Errs.Add(diag.New(kind, n.Span(), "'break' cannot cross an arrow-statement or trigger-function boundary"))
		return
	}

	if loop == nil {
		fc.c.Errs.Add(diag.New(diag.KindBreakOutsideLoop, n.Span(), "'break' outside of a loop"))
		return
	}

	fc.b.EmitJump(fc.cur, bytecode.EndOf(loop.LoopBlock), bytecode.Instr{Span: n.Span()})
}

func (fc *funcCtx) compileContinue(n *ast.ContinueStmt) {
	loop, crossedKind, crossed := fc.scope.EnclosingLoop()
	if crossed {
		kind := diag.KindBreakInArrowStmtScope
		if crossedKind == ScopeTriggerFunc {
			kind = diag.KindBreakInTriggerFuncScope
		}
		fc.c.Errs.Add(diag.New(kind, n.Span(), "'continue' cannot cross an arrow-statement or trigger-function boundary"))
		return
	}

	if loop == nil {
		fc.c.Errs.Add(diag.New(diag.KindContinueOutsideLoop, n.Span(), "'continue' outside of a loop"))
		return
	}

	fc.b.EmitJump(fc.cur, bytecode.StartOf(loop.LoopBlock), bytecode.Instr{Span: n.Span()})
}

// compileTypeDef lowers `type @Name` / `private type @Name`. Legal only at
// module (global) scope; spec.md §3/§7 forbid shadowing a builtin type name
// or a second local definition of the same custom type.
func (fc *funcCtx) compileTypeDef(n *ast.TypeDefStmt) {
	// Legal only directly inside the top-level module function, never
	// inside a macro/trigger-func body or a nested block within one: climb
	// to the root scope of the enclosing funcCtx (fc.parent == nil means
	// this is the module body) and check it's Global.
	if fc.parent != nil {
		fc.c.Errs.Add(diag.New(diag.KindTypeDefNotGlobal, n.Span(), "type definitions are only legal at module scope"))
		return
	}

	root := fc.scope
	for root.parent != nil {
		root = root.parent
	}

	if root.kind != ScopeGlobal {
		fc.c.Errs.Add(diag.New(diag.KindTypeDefNotGlobal, n.Span(), "type definitions are only legal at module scope"))
		return
	}

	if IsBuiltinType(n.Name) {
		fc.c.Errs.Add(diag.New(diag.KindBuiltinTypeOverride, n.Span(),
			"'"+n.Name+"' is a builtin type name"))
		return
	}

	if existing := fc.c.lookupType(n.Name); existing != nil {
		if existing.Imported {
			fc.c.Errs.Add(diag.New(diag.KindDuplicateImportedType, n.Span(), "type already imported").
				WithSecondary(existing.Span, "first declared here"))
		} else {
			fc.c.Errs.Add(diag.New(diag.KindDuplicateTypeDef, n.Span(), "type already defined").
				WithSecondary(existing.Span, "first declared here"))
		}
		return
	}

	fc.c.defineType(n.Name, n.Span(), false, n.Private)
}

// compileExtractImport lowers `extract import ...`: compile the import
// expression, then bind a fresh local variable per exported name to a
// deep-clone of the exported cell (spec.md §4.4). The exported-name set
// itself is only known once the imported module has actually been
// resolved/compiled, which is internal/driver's job via Importer; here we
// emit the single OpExtractImport opcode and let the VM populate the
// caller's frame according to the already-compiled import's Module value.
func (fc *funcCtx) compileExtractImport(n *ast.ExtractImportStmt) {
	imp := fc.compileImport(n.Import)
	fc.emitVoid(bytecode.Instr{Op: bytecode.OpExtractImport, A: imp, Span: n.Span()})
}

// compileImpl lowers `impl @Type { members }`: build a dict of the
// member macros (honoring a per-member `#[alias]` attribute as a second
// entry), load the type tag, and emit Impl. Runtime enforces the "only one
// impl per builtin type, never from outside the standard library" and
// "one impl per custom type" invariants (spec.md §3), since that check
// depends on which module owns the builtin override.
func (fc *funcCtx) compileImpl(n *ast.ImplStmt) {
	if IsBuiltinType(n.TypeName) {
		fc.c.Errs.Add(diag.New(diag.KindImplOnBuiltin, n.Span(),
			"'impl' on builtin type '"+n.TypeName+"' is only legal in the standard library").
			WithNote("KindImplOnBuiltin is enforced definitively at runtime; this is a best-effort compile-time hint"))
	}

	vals := make([]bytecode.Reg, 0, len(n.Members)*2)
	names := make([]source.Name, 0, len(n.Members)*2)
	priv := make([]bool, 0, len(n.Members)*2)

	for _, m := range n.Members {
		v := fc.compileExpr(m.Value)
		vals = append(vals, v)
		names = append(names, m.Name)
		priv = append(priv, false)

		if m.HasAlias {
			alias := fc.emit(bytecode.Instr{Op: bytecode.OpCopyRef, A: v})
			vals = append(vals, alias)
			names = append(names, m.Alias)
			priv = append(priv, false)
		}
	}

	dict := fc.emit(bytecode.Instr{Op: bytecode.OpMakeDict, Args: vals, Names: names, Flags: priv, Span: n.Span()})
	typeReg := fc.emit(bytecode.Instr{Op: bytecode.OpLoadString, ConstID: fc.constOf(n.TypeName), Span: n.Span()})
	fc.emitVoid(bytecode.Instr{Op: bytecode.OpImpl, A: typeReg, B: dict, Span: n.Span()})
}

var overloadOpcodes = map[ast.OverloadOp]int64{
	ast.OverloadAdd: 0, ast.OverloadSub: 1, ast.OverloadMul: 2, ast.OverloadDiv: 3,
	ast.OverloadMod: 4, ast.OverloadPow: 5, ast.OverloadEq: 6, ast.OverloadNeq: 7,
	ast.OverloadLt: 8, ast.OverloadGt: 9, ast.OverloadLte: 10, ast.OverloadGte: 11,
	ast.OverloadUnaryNeg: 12, ast.OverloadUnaryNot: 13, ast.OverloadAssign: 14,
	ast.OverloadIndex: 15,
}

// compileOverload lowers `operator <op> { macro1, macro2, ... }`: each
// macro expression registers against the running operand-type-pair
// resolution table the VM consults before falling back to builtin
// numeric/string semantics (spec.md §4.4's "operator-overload resolution
// order").
func (fc *funcCtx) compileOverload(n *ast.OverloadStmt) {
	tag, ok := overloadOpcodes[n.Op]
	if !ok {
		fc.c.Errs.Add(diag.New(diag.KindUnexpectedItemInOverload, n.Span(), "unknown overloadable operator"))
		return
	}

	for _, macroExpr := range n.Macros {
		m := fc.compileExpr(macroExpr)
		fc.emitVoid(bytecode.Instr{Op: bytecode.OpRegisterOverload, A: m, Imm: tag, Span: n.Span()})
	}
}

// compileTryCatch lowers `try { body } catch pattern { handler }`: push a
// try-catch entry (the register to receive a thrown value plus the handler
// jump target), compile the body, pop on success; on an unhandled throw the
// VM jumps straight to the handler with the error value already bound
// into the catch register, against which Pattern (if present) is then
// checked.
func (fc *funcCtx) compileTryCatch(n *ast.TryCatchStmt) {
	errReg := fc.b.NewReg()

	// handler is allocated detached so its id can be referenced by
	// EmitTryEnter's target right away, but it's only attached to fc.cur
	// after body and the success-path skip jump — its physical position
	// must follow them, not precede them.
	handler := fc.b.NewBlock()

	fc.b.EmitTryEnter(fc.cur, errReg, bytecode.StartOf(handler), bytecode.Instr{Span: n.Span()})

	body := fc.b.NewChildBlock(fc.cur)
	saved := fc.cur
	fc.cur = body
	fc.compileBlock(n.Body)
	fc.emitVoid(bytecode.Instr{Op: bytecode.OpTryExit, Span: n.Span()})
	fc.b.EmitJump(fc.cur, bytecode.EndOf(handler), bytecode.Instr{})
	fc.cur = saved

	fc.b.Attach(fc.cur, handler)
	fc.cur = handler
	if n.Pattern != nil {
		ok := fc.compilePatternCheck(errReg, n.Pattern, true)
		fc.emitVoid(bytecode.Instr{Op: bytecode.OpMismatchThrowIfFalse, A: ok})
	}
	fc.compileBlock(n.Handler)
	fc.cur = saved
}
