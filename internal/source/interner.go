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
package source

// Name is a dense handle assigned to an interned identifier or member-name
// string. Comparing two Names is a single integer comparison, which keeps
// scope-chain lookup (the hottest path in the compiler) off string
// comparisons entirely.
type Name uint32

// Interner canonicalises strings to small integer Names. One Interner is
// shared for the lifetime of a compilation (including all transitively
// imported sources), passed explicitly rather than kept as a package global
// so that multiple independent compilations (e.g. concurrent `spwnc check`
// invocations, or tests) never share mutable state.
type Interner struct {
	byText []string
	lookup map[string]Name
}

// NewInterner constructs an empty interner.
func NewInterner() *Interner {
	return &Interner{lookup: make(map[string]Name, 256)}
}

// Intern returns the Name for text, assigning a fresh one if this is the
// first time text has been seen.
func (in *Interner) Intern(text string) Name {
	if n, ok := in.lookup[text]; ok {
		return n
	}

	n := Name(len(in.byText))
	in.byText = append(in.byText, text)
	in.lookup[text] = n

	return n
}

// Text returns the original string for a Name. Panics if n was never
// produced by this interner (an internal invariant violation, not a user
// error).
func (in *Interner) Text(n Name) string {
	return in.byText[n]
}

// Len returns the number of distinct interned strings.
func (in *Interner) Len() int { return len(in.byText) }

// Snapshot copies every interned string in assignment order, so that
// Snapshot()[n] == Text(Name(n)). internal/cache persists this alongside a
// compiled bytecode.Module so a later process - with its own, differently
// numbered Interner - can remap the Names baked into that module's
// instructions back onto matching text via Remap.
func (in *Interner) Snapshot() []string {
	return append([]string(nil), in.byText...)
}

// Remap interns every string in snapshot, in order, into in and returns the
// resulting old-Name -> in's-Name translation table (table[i] is the Name
// text snapshot[i] now has in in). Used by internal/cache to fix up a
// bytecode.Module decoded from a different interning session.
func (in *Interner) Remap(snapshot []string) []Name {
	table := make([]Name, len(snapshot))
	for i, text := range snapshot {
		table[i] = in.Intern(text)
	}

	return table
}
