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

// Package ast defines the tree produced by the parser: expressions,
// patterns, statements and attributes. Expressions, patterns and statements
// are mutually recursive (a match arm holds a pattern and an expression or
// block; a macro argument holds an optional pattern and default
// expression), so rather than split them into per-kind subpackages they
// live together in one package — splitting them would just reintroduce the
// cycle through three import aliases.
package ast

import "github.com/spwn-lang/spwnc/internal/source"

// Expr is implemented by every expression-node variant.
type Expr interface {
	Span() source.Span
	exprNode()
}

type exprBase struct{ span source.Span }

func (e exprBase) Span() source.Span       { return e.span }
func (exprBase) exprNode()                 {}
func (e *exprBase) SetSpan(s source.Span)  { e.span = s }

// Spannable is implemented by every Expr/Pattern/Stmt pointer type via
// exprBase/patternBase/stmtBase promotion. The parser uses it to backfill a
// node's span once all of its children have been parsed, since the span is
// only known in full after the fact for postfix/infix productions.
type Spannable interface {
	SetSpan(source.Span)
}

// IntLit is an integer literal.
type IntLit struct {
	exprBase
	Value int64
}

// FloatLit is a floating point literal.
type FloatLit struct {
	exprBase
	Value float64
}

// BoolLit is `true` or `false`.
type BoolLit struct {
	exprBase
	Value bool
}

// NullLit is the `null` literal (spec.md's Empty value).
type NullLit struct{ exprBase }

// StringLit is a string literal after flag application (unindent/base64/
// bytes already folded in by the parser, per spec.md §4.1's ordering rule).
type StringLit struct {
	exprBase
	Value []byte
	IsBytes bool
}

// IDLit is a target-graph id literal: `10g`, `?c`, `5b`, `3i`. Class is one
// of 'g','c','b','i'; Arbitrary is true for the `?` form.
type IDLit struct {
	exprBase
	Class     byte
	Arbitrary bool
	Value     int64
}

// Ident is a bare identifier reference.
type Ident struct {
	exprBase
	Name source.Name
}

// Builtins is the `$` builtins-namespace marker expression.
type Builtins struct{ exprBase }

// TypeName is a bare `@name` type reference used as a value.
type TypeName struct {
	exprBase
	Name string
}

// ArrayLit is `[e0, e1, ...]`.
type ArrayLit struct {
	exprBase
	Elems []Expr
}

// DictEntry is one key of a dict literal: an optional value expression (a
// shorthand `{a}` entry has Value == nil, meaning "use the variable named
// Key"), and whether it was declared private with a leading `!`.
type DictEntry struct {
	Key     source.Name
	Value   Expr
	Private bool
}

// DictLit is `{k: v, !priv: v2, shorthand}`.
type DictLit struct {
	exprBase
	Entries []DictEntry
}

// Index is `e[i]`.
type Index struct {
	exprBase
	Target Expr
	Index  Expr
}

// Slice is `e[a:b:c]`; any of the three may be nil.
type Slice struct {
	exprBase
	Target      Expr
	Start, End, Step Expr
}

// Member is `e.name`.
type Member struct {
	exprBase
	Target Expr
	Name   source.Name
}

// Associated is `e::name`.
type Associated struct {
	exprBase
	Target Expr
	Name   source.Name
}

// NamedArg is one `name = value` call argument.
type NamedArg struct {
	Name  source.Name
	Value Expr
}

// Call is `callee(args..., name=val...)`.
type Call struct {
	exprBase
	Callee    Expr
	Args      []Expr
	NamedArgs []NamedArg
}

// MacroArg describes one declared parameter of a macro definition.
type MacroArg struct {
	Name    source.Name
	Pattern Pattern // optional, nil if untyped
	Default Expr    // optional
	ByRef   bool
	IsSelf  bool
	Spread  bool
}

// Block is a `{ ... }` sequence of statements, used as a macro body and
// anywhere else a brace-delimited statement list occurs.
type Block struct {
	Stmts []Stmt
}

// MacroDef is a macro (closure) literal: `(args) { body }` or
// `(args) => expr`.
type MacroDef struct {
	exprBase
	Args         []MacroArg
	ReturnPat    Pattern // optional declared return pattern
	Body         *Block  // mutually exclusive with LambdaBody
	LambdaBody   Expr
}

// TriggerFuncExpr is `!{ ... }`, a trigger-function literal.
type TriggerFuncExpr struct {
	exprBase
	Body *Block
}

// Ternary is `cond ? then : else`.
type Ternary struct {
	exprBase
	Cond, Then, Else Expr
}

// TypeOfExpr is `typeof e`.
type TypeOfExpr struct {
	exprBase
	Target Expr
}

// ImportExpr is `import "path"` or `import lib_name`.
type ImportExpr struct {
	exprBase
	Path     string
	IsLibrary bool
}

// MatchArm pairs a pattern with either a block body or a single expression
// body (`pat => expr`).
type MatchArm struct {
	Pattern Pattern
	Block   *Block
	Expr    Expr
}

// MatchExpr is `match scrutinee { arm, arm, ... }`.
type MatchExpr struct {
	exprBase
	Scrutinee Expr
	Arms      []MatchArm
}

// FieldInit is one `name: expr` instance-field initializer.
type FieldInit struct {
	Name  source.Name
	Value Expr
}

// InstanceExpr is `@Type::{field: val, ...}`.
type InstanceExpr struct {
	exprBase
	Type   Expr
	Fields []FieldInit
}

// UnaryOp identifies a prefix unary operator.
type UnaryOp int

// Unary operators.
const (
	UnaryNeg UnaryOp = iota
	UnaryNot
	UnaryPreIncr
	UnaryPreDecr
)

// UnaryExpr is a prefix unary operation.
type UnaryExpr struct {
	exprBase
	Op      UnaryOp
	Operand Expr
}

// BinOp identifies an infix binary operator.
type BinOp int

// Binary operators, matching spec.md §4.2's precedence table.
const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinDiv
	BinFloorDiv
	BinMod
	BinPow
	BinEq
	BinNeq
	BinIs
	BinIn
	BinLt
	BinGt
	BinLte
	BinGte
	BinRange
	BinOr
	BinAnd
	BinBitOr
	BinBitAnd
	BinAs
	BinShl
	BinShr
)

// BinaryExpr is an infix binary operation.
type BinaryExpr struct {
	exprBase
	Op          BinOp
	Left, Right Expr
}

// WrapMaybe is postfix `e?`.
type WrapMaybe struct {
	exprBase
	Target Expr
}

// TriggerFuncCall is postfix `e!`.
type TriggerFuncCall struct {
	exprBase
	Target Expr
}

func newExprBase(s source.Span) exprBase { return exprBase{s} }

// NewIntLit constructs an IntLit with its span.
func NewIntLit(s source.Span, v int64) *IntLit { return &IntLit{newExprBase(s), v} }

// NewFloatLit constructs a FloatLit with its span.
func NewFloatLit(s source.Span, v float64) *FloatLit { return &FloatLit{newExprBase(s), v} }

// NewBoolLit constructs a BoolLit with its span.
func NewBoolLit(s source.Span, v bool) *BoolLit { return &BoolLit{newExprBase(s), v} }

// NewIdent constructs an Ident with its span.
func NewIdent(s source.Span, n source.Name) *Ident { return &Ident{newExprBase(s), n} }
