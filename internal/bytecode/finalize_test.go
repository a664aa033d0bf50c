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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFinalizeResolvesForwardJump(t *testing.T) {
	b := NewBuilder()
	cond := b.NewReg()

	b.Emit(b.Root(), Instr{Op: OpLoadBool, Dst: cond})

	then := b.NewBlock()
	b.EmitJumpIfFalse(b.Root(), cond, EndOf(then), Instr{})
	b.Attach(b.Root(), then)
	b.Emit(then, Instr{Op: OpLoadInt, Dst: cond})

	fn := b.Finalize(nil)

	assert.Len(t, fn.Code, 3)
	assert.Equal(t, OpJumpIfFalse, fn.Code[1].Op)
	assert.Equal(t, 3, fn.Code[1].Target, "jump to EndOf(then) must land past the body, not inside it")
}

func TestFinalizeResolvesBackwardJump(t *testing.T) {
	b := NewBuilder()
	cond := b.NewReg()

	loop := b.NewChildBlock(b.Root())
	b.Emit(loop, Instr{Op: OpLoadBool, Dst: cond})
	b.EmitJumpIfFalse(loop, cond, EndOf(loop), Instr{})
	b.EmitJump(loop, StartOf(loop), Instr{})

	fn := b.Finalize(nil)

	assert.Len(t, fn.Code, 3)
	assert.Equal(t, 0, fn.Code[2].Target, "unconditional jump to StartOf(loop) must land on the condition re-check")
	assert.Equal(t, 3, fn.Code[1].Target)
}

func TestInstrUsesAndDefinitions(t *testing.T) {
	add := Instr{Op: OpAdd, Dst: 2, A: 0, B: 1}
	assert.ElementsMatch(t, []Reg{0, 1}, add.Uses())
	assert.Equal(t, []Reg{2}, add.Definitions())

	load := Instr{Op: OpLoadInt, Dst: 0}
	assert.Empty(t, load.Uses())
	assert.Equal(t, []Reg{0}, load.Definitions())

	ret := Instr{Op: OpReturn, A: 0}
	assert.Equal(t, []Reg{0}, ret.Uses())
	assert.Empty(t, ret.Definitions())
}

func TestNewBuilderCaptureAndArgMetadata(t *testing.T) {
	b := NewBuilder()
	b.SetArgCount(2)
	b.SetSpreadArg(1)
	outer, inner := b.NewReg(), b.NewReg()
	b.AddCapture(outer, inner)

	fn := b.Finalize(nil)

	assert.Equal(t, 2, fn.ArgCount)
	assert.Equal(t, 1, fn.SpreadArg)
	assert.Equal(t, []Capture{{outer, inner}}, fn.Captures)
}
