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

import (
	"fmt"
	"strings"

	"github.com/spwn-lang/spwnc/internal/source"
)

// Reg identifies a virtual register within a function's frame.
type Reg int

// Const is a handle into a function's constant pool (ints, floats, strings,
// interned names used as field/type/macro-argument names).
type Const int

// Instr is one bytecode instruction. Not every field is meaningful for every
// Op; the meaning of Dst/A/B/Args/Imm/Name is documented per-opcode in
// opcode.go. Target holds a jump target for the four pseudo control-flow
// ops, valid as a blockTarget before Finalize and as an absolute instruction
// index afterward.
type Instr struct {
	Op     Op
	Dst    Reg
	A, B   Reg
	Args    []Reg  // variable-length operand list (MakeArray elems, Call args, ...)
	Imm     int64  // small integer immediate (field index, overload tag, ...)
	Name    source.Name // interned name operand (member/field/type name)
	ConstID Const  // constant-pool reference for literal-carrying ops
	Target  int    // resolved/unresolved jump target; see blockTarget before Finalize
	Span    source.Span

	// Names/Flags are parallel to Args for opcodes whose variable-length
	// operand carries more than a bare register per slot: OpMakeDict zips
	// Args[i]/Names[i]/Flags[i] into (value, key, isPrivate) triples;
	// OpCall zips a suffix of Args/Names into named-argument (value, name)
	// pairs (the positional prefix has a zero Name).
	Names []source.Name
	Flags []bool
}

// IDConst is the constant-pool payload for a target-graph ID literal
// (`10g`, `?c`, `5b`, `3i`), loaded by OpLoadID via ConstID.
type IDConst struct {
	Class     byte // 'g', 'c', 'b', or 'i'
	Arbitrary bool
	Value     int64
}

// Uses returns the registers this instruction reads, used for liveness and
// validation; the VM also uses it to decide which registers a context fork
// must deep-clone.
func (i Instr) Uses() []Reg {
	var regs []Reg

	switch {
	case i.Op.IsJump():
		if i.Op != OpJump {
			regs = append(regs, i.A)
		}
	case isDstOnly(i.Op):
		// no register operands besides Dst
	default:
		regs = append(regs, i.A)
		if usesB(i.Op) {
			regs = append(regs, i.B)
		}
	}

	regs = append(regs, i.Args...)

	return regs
}

// Definitions returns the registers this instruction writes.
func (i Instr) Definitions() []Reg {
	if definesNothing(i.Op) {
		return nil
	}

	return []Reg{i.Dst}
}

func isDstOnly(op Op) bool {
	switch op {
	case OpLoadInt, OpLoadFloat, OpLoadBool, OpLoadString, OpLoadNull, OpLoadID,
		OpLoadEmptyArray, OpLoadEmptyDict, OpLoadBuiltinsNS, OpLoadMacro, OpMaybeNone,
		OpMacroArgBind, OpArgSupplied:
		return true
	default:
		return false
	}
}

func usesB(op Op) bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpFloorDiv, OpMod, OpPow,
		OpCmpEq, OpCmpNeq, OpCmpLt, OpCmpGt, OpCmpLte, OpCmpGte,
		OpBitAnd, OpBitOr, OpShl, OpShr, OpRange, OpIs, OpIn, OpAs,
		OpIndex, OpIndexMem, OpSlice, OpImpl:
		return true
	default:
		return false
	}
}

// definesNothing reports the void opcodes: ones that write no register at
// all, as opposed to the augmented-assignment family (AddAssign, PreIncr,
// MacroArgBind, ...) which write through Dst in place and so do count as a
// definition.
func definesNothing(op Op) bool {
	switch op {
	case OpJump, OpReturn, OpThrow, OpPop, OpBreak, OpContinue,
		OpTryEnter, OpTryExit, OpSetContextGroup, OpRegisterOverload,
		OpMismatchThrowIfFalse, OpCallTriggerFunc, OpExtractImport, OpImpl,
		OpMarkMacroMethod:
		return true
	default:
		return false
	}
}

// String renders the instruction in a disassembler-friendly form; in
// interns, used to resolve Name/ConstID operands to readable text.
func (i Instr) String(interns *source.Interner) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%-14s", i.Op.String())

	if !definesNothing(i.Op) {
		fmt.Fprintf(&b, " r%d =", i.Dst)
	}

	if i.Op.IsJump() {
		fmt.Fprintf(&b, " ->%d", i.Target)

		if i.Op != OpJump {
			fmt.Fprintf(&b, " r%d", i.A)
		}

		return b.String()
	}

	if !isDstOnly(i.Op) {
		fmt.Fprintf(&b, " r%d", i.A)

		if usesB(i.Op) {
			fmt.Fprintf(&b, ", r%d", i.B)
		}
	}

	if i.Name != 0 && interns != nil {
		fmt.Fprintf(&b, " %q", interns.Text(i.Name))
	}

	for _, a := range i.Args {
		fmt.Fprintf(&b, " r%d", a)
	}

	return b.String()
}
