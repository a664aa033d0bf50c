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

// Func is one finalized function: its linear opcode vector plus the
// metadata spec.md §4.3 requires every function to record.
type Func struct {
	Code        []Instr
	ArgCount    int
	SpreadArg   int // -1 if none
	Captures    []Capture
	NumRegisters int
	Consts      []any // constant pool, indexed by Const
}

// Finalize flattens the block tree rooted at Root into a linear instruction
// vector, resolving every StartOf/EndOf blockTarget recorded by
// EmitJump/EmitJumpIfFalse/EmitJumpIfTrue/EmitUnwrapOrJump to an absolute
// instruction index. Call once after the whole function body has been
// emitted; the Builder is not reusable afterward.
func (b *Builder) Finalize(consts []any) *Func {
	var code []Instr

	blockStart := make([]int, len(b.blocks))
	blockEnd := make([]int, len(b.blocks))

	var flatten func(id BlockID)
	flatten = func(id BlockID) {
		blockStart[id] = len(code)

		for _, it := range b.blocks[id].items {
			if it.isChild {
				flatten(it.child)
				continue
			}

			code = append(code, *it.instr)
		}

		blockEnd[id] = len(code)
	}

	flatten(b.Root())

	for i := range code {
		if !code[i].Op.IsJump() && code[i].Op != OpEnterArrowStmt && code[i].Op != OpTryEnter {
			continue
		}

		blk, atEnd := decodeTarget(code[i].Target)
		if atEnd {
			code[i].Target = blockEnd[blk]
		} else {
			code[i].Target = blockStart[blk]
		}
	}

	return &Func{
		Code:         code,
		ArgCount:     b.argCount,
		SpreadArg:    b.spreadArg,
		Captures:     b.captures,
		NumRegisters: b.regCount,
		Consts:       consts,
	}
}

// Module is the bytecode-builder's final output for a whole compilation
// unit: every function template (index 0 is always the top-level module
// body), ready for internal/vm to execute and for internal/cache to
// persist.
type Module struct {
	Funcs []*Func
}
