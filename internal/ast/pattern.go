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
package ast

import "github.com/spwn-lang/spwnc/internal/source"

// Pattern is implemented by every pattern-node variant (spec.md §3's
// Pattern entity). Patterns are compilation strategies rather than runtime
// data (design note in spec.md §9): each variant lowers to a distinct
// control-flow skeleton in internal/compiler, never to a generic "match a
// pattern value" runtime primitive.
type Pattern interface {
	Span() source.Span
	patternNode()
}

type patternBase struct{ span source.Span }

func (p patternBase) Span() source.Span      { return p.span }
func (patternBase) patternNode()             {}
func (p *patternBase) SetSpan(s source.Span) { p.span = s }

// AnyPattern is `_`: always matches, binds nothing.
type AnyPattern struct{ patternBase }

// TypePattern is `@name`: matches when typeof(value) == name.
type TypePattern struct {
	patternBase
	TypeName string
}

// CmpOp identifies the comparison used by a literal-comparison pattern.
type CmpOp int

// Comparison operators available to literal-comparison patterns.
const (
	CmpEq CmpOp = iota
	CmpNeq
	CmpLt
	CmpLte
	CmpGt
	CmpGte
	CmpIn
)

// CmpPattern matches when the scrutinee compares true against Value under Op
// (`== 3`, `< 10`, `in [1,2,3]`, etc).
type CmpPattern struct {
	patternBase
	Op    CmpOp
	Value Expr
}

// ArrayDestructure matches a fixed-length array, each element against its
// own subpattern.
type ArrayDestructure struct {
	patternBase
	Elems []Pattern
}

// DictKeyPattern is one `name: subpattern` entry of a DictDestructure.
type DictKeyPattern struct {
	Name    source.Name
	Pattern Pattern
}

// DictDestructure matches a dict whose named fields satisfy their
// subpatterns (and whose length is >= len(Fields)).
type DictDestructure struct {
	patternBase
	Fields []DictKeyPattern
}

// InstanceDestructure is like DictDestructure but additionally requires the
// scrutinee to be an instance of TypeName. Illegal against a builtin type
// (spec.md §7 BuiltinTypeDestructure).
type InstanceDestructure struct {
	patternBase
	TypeName string
	Fields   []DictKeyPattern
}

// ArrayPattern matches an array of any length satisfying LenPattern, each
// element matching Elem.
type ArrayPattern struct {
	patternBase
	Elem       Pattern
	LenPattern Pattern
}

// DictPattern matches a dict, every value of which satisfies Value.
type DictPattern struct {
	patternBase
	Value Pattern
}

// MaybeDestructure matches a Maybe value. Inner == nil means "must be
// None" (`?`); Inner != nil means "must be Some matching Inner".
type MaybeDestructure struct {
	patternBase
	Inner Pattern
}

// MacroPattern matches a Macro value declaring exactly len(Args) parameters.
// Args and the optional Return record the written argument and return
// subpatterns; the compiled check tests only the type and the parameter
// count, not those subpatterns.
type MacroPattern struct {
	patternBase
	Args   []Pattern
	Return Pattern // optional
}

// PathStep is one segment of a Path pattern's access chain after the base
// variable: `.field`, `::assoc`, or `[index]`.
type PathStep struct {
	Kind  PathStepKind
	Name  source.Name // for Field/Assoc
	Index Expr        // for Index
}

// PathStepKind discriminates PathStep variants.
type PathStepKind int

// Path step kinds.
const (
	PathField PathStepKind = iota
	PathAssoc
	PathIndex
)

// Path is both a bind target (`x`, a bare new variable under
// assignment-style compilation) and a must-equal-existing-variable pattern
// (under match-style compilation), optionally followed by an access chain
// used only for the assignment-target form.
type Path struct {
	patternBase
	Var    source.Name
	Steps  []PathStep
	IsRef  bool
}

// MutPattern introduces a fresh mutable binding.
type MutPattern struct {
	patternBase
	Name source.Name
}

// RefPattern introduces a fresh reference (aliasing) binding.
type RefPattern struct {
	patternBase
	Name source.Name
}

// BothPattern is the `&` intersection of two patterns: matches iff both do.
type BothPattern struct {
	patternBase
	Left, Right Pattern
}

// EitherPattern is the `|` union of two patterns: matches iff either does,
// trying Left first.
type EitherPattern struct {
	patternBase
	Left, Right Pattern
}

// IfGuardPattern matches iff Inner matches AND Cond evaluates truthy,
// equivalent to Both(Inner, an always-true-pattern guarded by Cond) per
// spec.md §4.4.
type IfGuardPattern struct {
	patternBase
	Inner Pattern
	Cond  Expr
}

// EmptyPattern matches the Empty value (typeof(value) == Empty).
type EmptyPattern struct{ patternBase }
