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
package bytecode

// BlockID names one block within a function's block tree. Block 0 is always
// the function's outermost block.
type BlockID int

// item is one entry of a block's body: either a leaf instruction or a nested
// child block, never both.
type item struct {
	instr *Instr
	child BlockID
	isChild bool
}

// block is one node of the tree IR described in spec.md §4.3: an ordered
// list of instructions interspersed with nested child blocks (one per
// `if`/`while`/`for`/`try` body, macro body, etc). Structured control flow
// jumps to the conceptual start or end of a block by path rather than to a
// raw instruction index; Finalize resolves those paths once the whole tree
// is built and flattened.
type block struct {
	items []item
}

// Builder constructs one function's block tree and then flattens it into a
// linear Func. A Builder is used once per function (including the implicit
// top-level module function); nested macro/trigger-func bodies get their own
// Builder, with OpMakeMacro/OpMakeTriggerFunc referencing the resulting Func
// by index into the module's FuncTable.
type Builder struct {
	blocks   []block
	regCount int
	argCount int
	spreadArg int // -1 if none
	captures []Capture
}

// Capture maps one outer-function register into a register of the nested
// function's frame, populated when the compiler closes a macro/trigger-func
// literal over variables from an enclosing scope.
type Capture struct {
	Outer Reg
	Inner Reg
}

// NewBuilder creates a Builder with a single empty root block (BlockID 0).
func NewBuilder() *Builder {
	b := &Builder{spreadArg: -1}
	b.blocks = append(b.blocks, block{})

	return b
}

// Root is the function's outermost block.
func (b *Builder) Root() BlockID { return 0 }

// NewReg allocates a fresh register in this function's frame.
func (b *Builder) NewReg() Reg {
	r := Reg(b.regCount)
	b.regCount++

	return r
}

// SetArgCount records the function's declared (non-spread) argument count.
func (b *Builder) SetArgCount(n int) { b.argCount = n }

// SetSpreadArg records which argument position (if any) is the spread
// parameter; pass -1 for none.
func (b *Builder) SetSpreadArg(pos int) { b.spreadArg = pos }

// AddCapture records one outer->inner register mapping for a closure.
func (b *Builder) AddCapture(outer, inner Reg) {
	b.captures = append(b.captures, Capture{outer, inner})
}

// NewChildBlock appends a fresh empty child block to parent and returns its
// id, for the compiler to emit an if/while/for/try body into.
func (b *Builder) NewChildBlock(parent BlockID) BlockID {
	id := b.NewBlock()
	b.Attach(parent, id)

	return id
}

// NewBlock allocates a fresh empty block without attaching it to any
// parent's item list. Used for a block whose final position among its
// parent's siblings isn't known until after later siblings have already
// been emitted (a forward "end" marker, or a try/catch handler that must
// physically follow its body): allocate the id up front so it can be used
// as a jump target immediately, then Attach it once its true position is
// reached.
func (b *Builder) NewBlock() BlockID {
	id := BlockID(len(b.blocks))
	b.blocks = append(b.blocks, block{})

	return id
}

// Attach appends child to parent's item list at the current position,
// fixing child's place in flatten order. A block not yet attached when
// Finalize runs contributes no code and resolves any StartOf/EndOf target
// referencing it to whatever parent position immediately follows.
func (b *Builder) Attach(parent, child BlockID) {
	b.blocks[parent].items = append(b.blocks[parent].items, item{child: child, isChild: true})
}

// Emit appends a leaf instruction to blk.
func (b *Builder) Emit(blk BlockID, instr Instr) {
	ins := instr
	b.blocks[blk].items = append(b.blocks[blk].items, item{instr: &ins})
}

// JumpTarget identifies the conceptual start or end of a block, the only
// two addressable points structured control flow ever jumps to (spec.md
// §4.3: "StartOf(blockPath)" / "EndOf(blockPath)").
type JumpTarget struct {
	Block BlockID
	AtEnd bool
}

// StartOf targets the first instruction that will end up inside blk once
// flattened (used by `while`/`for` to jump back to the condition/iterator
// check, and by `continue`).
func StartOf(blk BlockID) JumpTarget { return JumpTarget{blk, false} }

// EndOf targets the instruction immediately after blk's last flattened
// instruction (used by `if`/`while`/`for`/`try` to skip the body, and by
// `break`).
func EndOf(blk BlockID) JumpTarget { return JumpTarget{blk, true} }

// EmitJump appends an unconditional structured jump.
func (b *Builder) EmitJump(blk BlockID, to JumpTarget, span Instr) {
	b.emitJumpOp(blk, OpJump, 0, to, span)
}

// EmitJumpIfFalse appends a conditional jump taken when register cond holds
// a falsy bool.
func (b *Builder) EmitJumpIfFalse(blk BlockID, cond Reg, to JumpTarget, span Instr) {
	b.emitJumpOp(blk, OpJumpIfFalse, cond, to, span)
}

// EmitJumpIfTrue appends a conditional jump taken when register cond holds a
// truthy bool.
func (b *Builder) EmitJumpIfTrue(blk BlockID, cond Reg, to JumpTarget, span Instr) {
	b.emitJumpOp(blk, OpJumpIfTrue, cond, to, span)
}

// EmitUnwrapOrJump appends the Maybe-unwrap pseudo-op: if register maybeReg
// holds Some(x), x replaces it in place and control falls through; if None,
// control jumps to target without modifying maybeReg. Used to lower
// MaybeDestructure and the `?`-postfix early-return form.
func (b *Builder) EmitUnwrapOrJump(blk BlockID, maybeReg Reg, to JumpTarget, span Instr) {
	b.emitJumpOp(blk, OpUnwrapOrJump, maybeReg, to, span)
}

// EmitArrowFork appends the context-splitting pseudo-op (spec.md §4.3's
// EnterArrowStatement(skip_offset)): one forked context falls through to
// the next instruction (the arrow body, emitted as skipTo's block), the
// other jumps straight to skipTo without running it. Resolved by Finalize
// exactly like the four jump pseudo-ops.
func (b *Builder) EmitArrowFork(blk BlockID, skipTo JumpTarget, span Instr) {
	target := encodeTarget(skipTo)
	b.blocks[blk].items = append(b.blocks[blk].items, item{instr: &Instr{
		Op: OpEnterArrowStmt, Target: target, Span: span.Span,
	}})
}

// EmitTryEnter appends PushTryCatch (spec.md §4.3): errReg receives a
// thrown value if one propagates past this block, and control jumps to
// handler's start when it does.
func (b *Builder) EmitTryEnter(blk BlockID, errReg Reg, handler JumpTarget, span Instr) {
	target := encodeTarget(handler)
	b.blocks[blk].items = append(b.blocks[blk].items, item{instr: &Instr{
		Op: OpTryEnter, Dst: errReg, Target: target, Span: span.Span,
	}})
}

func (b *Builder) emitJumpOp(blk BlockID, op Op, cond Reg, to JumpTarget, span Instr) {
	target := encodeTarget(to)
	b.blocks[blk].items = append(b.blocks[blk].items, item{instr: &Instr{
		Op: op, A: cond, Target: target, Span: span.Span,
	}})
}

// blockTargets before Finalize are encoded as (blockID*2 + (1 if AtEnd)),
// decoded by Finalize once every block's flattened instruction range is
// known. This keeps Instr.Target a plain int in both phases instead of a
// separate pre/post-finalize field.
func encodeTarget(t JumpTarget) int {
	v := int(t.Block) * 2
	if t.AtEnd {
		v++
	}

	return v
}

func decodeTarget(v int) (blk BlockID, atEnd bool) {
	return BlockID(v / 2), v%2 == 1
}
