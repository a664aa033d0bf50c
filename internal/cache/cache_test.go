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
package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spwn-lang/spwnc/internal/bytecode"
	"github.com/spwn-lang/spwnc/internal/source"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	interner := source.NewInterner()
	interner.Intern("")
	fieldName := interner.Intern("foo")

	mod := &bytecode.Module{Funcs: []*bytecode.Func{{
		Code: []bytecode.Instr{
			{Op: bytecode.OpMember, Dst: 1, A: 0, Name: fieldName},
		},
		NumRegisters: 2,
	}}}

	dir := t.TempDir()

	require.NoError(t, Save(dir, "mod", "source text", mod, []string{"foo"}, nil, interner))

	// A fresh process would build a fresh Interner whose Names are assigned
	// in a different order; simulate that by priming one differently before
	// loading, as internal/driver always does (reserving Name(0) first).
	loaderInterner := source.NewInterner()
	loaderInterner.Intern("")
	loaderInterner.Intern("something-else")

	entry, err := Load(dir, "mod", "source text", loaderInterner)
	require.NoError(t, err)

	gotName := entry.Module.Funcs[0].Code[0].Name
	assert.Equal(t, "foo", loaderInterner.Text(gotName),
		"the decoded instruction's Name must remap onto the loader's own Interner")
}

func TestLoadMissesOnSourceChange(t *testing.T) {
	interner := source.NewInterner()
	interner.Intern("")

	mod := &bytecode.Module{Funcs: []*bytecode.Func{{Code: []bytecode.Instr{{Op: bytecode.OpLoadBool}}}}}

	dir := t.TempDir()
	require.NoError(t, Save(dir, "mod", "original", mod, nil, nil, interner))

	_, err := Load(dir, "mod", "changed", interner)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestCleanRemovesSpwncFiles(t *testing.T) {
	interner := source.NewInterner()
	interner.Intern("")

	mod := &bytecode.Module{Funcs: []*bytecode.Func{{Code: []bytecode.Instr{{Op: bytecode.OpLoadBool}}}}}

	dir := t.TempDir()
	require.NoError(t, Save(dir, "a", "text-a", mod, nil, nil, interner))
	require.NoError(t, Save(dir, "b", "text-b", mod, nil, nil, interner))

	n, err := Clean(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = Load(dir, "a", "text-a", interner)
	assert.ErrorIs(t, err, ErrMiss)
}
