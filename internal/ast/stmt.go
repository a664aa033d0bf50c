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

// Stmt is implemented by every statement-node variant.
type Stmt interface {
	Span() source.Span
	Attrs() []Attribute
	stmtNode()
}

type stmtBase struct {
	span  source.Span
	attrs []Attribute
}

func (s stmtBase) Span() source.Span       { return s.span }
func (s stmtBase) Attrs() []Attribute      { return s.attrs }
func (stmtBase) stmtNode()                 {}
func (s *stmtBase) SetSpan(sp source.Span) { s.span = sp }
func (s *stmtBase) SetAttrs(a []Attribute) { s.attrs = a }

// ExprStmt wraps a bare expression used as a statement.
type ExprStmt struct {
	stmtBase
	Expr Expr
}

// AssignStmt is `pattern = expr`.
type AssignStmt struct {
	stmtBase
	Target Pattern
	Value  Expr
}

// AssignOp identifies an augmented-assignment operator.
type AssignOp int

// Augmented assignment operators.
const (
	OpAddAssign AssignOp = iota
	OpSubAssign
	OpMulAssign
	OpDivAssign
	OpModAssign
	OpPowAssign
	OpBitAndAssign
	OpBitOrAssign
	OpShlAssign
	OpShrAssign
)

// AssignOpStmt is `path op= expr`. The target must be a non-by-ref Path
// pattern (spec.md §4.4).
type AssignOpStmt struct {
	stmtBase
	Target *Path
	Op     AssignOp
	Value  Expr
}

// IfBranch is one `if`/`elif` arm.
type IfBranch struct {
	Cond Expr
	Body *Block
}

// IfStmt is an if-elif-else chain.
type IfStmt struct {
	stmtBase
	Branches []IfBranch
	Else     *Block // optional
}

// WhileStmt is `while cond { body }`.
type WhileStmt struct {
	stmtBase
	Cond Expr
	Body *Block
}

// ForStmt is `for pattern in iterExpr { body }`.
type ForStmt struct {
	stmtBase
	Pattern Pattern
	Iter    Expr
	Body    *Block
}

// ArrowStmt marks Inner as context-splitting (spec.md §4.4, §5).
type ArrowStmt struct {
	stmtBase
	Inner Stmt
}

// ReturnStmt is `return expr` (expr optional).
type ReturnStmt struct {
	stmtBase
	Value Expr // optional
}

// BreakStmt is `break`.
type BreakStmt struct{ stmtBase }

// ContinueStmt is `continue`.
type ContinueStmt struct{ stmtBase }

// TypeDefStmt is `type @Name` or `private type @Name`.
type TypeDefStmt struct {
	stmtBase
	Name    string
	Private bool
}

// ExtractImportStmt is `extract import ...`.
type ExtractImportStmt struct {
	stmtBase
	Import *ImportExpr
}

// ImplMember is one member of an `impl` block body.
type ImplMember struct {
	Name  source.Name
	Value Expr
	Alias source.Name // optional, zero value means no alias
	HasAlias bool
}

// ImplStmt is `impl @Type { members }`.
type ImplStmt struct {
	stmtBase
	TypeName string
	Members  []ImplMember
}

// OverloadOp identifies an operator being overloaded.
type OverloadOp int

// Overloadable operators.
const (
	OverloadAdd OverloadOp = iota
	OverloadSub
	OverloadMul
	OverloadDiv
	OverloadMod
	OverloadPow
	OverloadEq
	OverloadNeq
	OverloadLt
	OverloadGt
	OverloadLte
	OverloadGte
	OverloadUnaryNeg
	OverloadUnaryNot
	OverloadAssign
	OverloadIndex
)

// OverloadStmt is `impl operator {+ : macro1, - : macro2}`-style
// registration: one or more macro expressions each bound to an operator.
type OverloadStmt struct {
	stmtBase
	Op      OverloadOp
	Macros  []Expr
}

// ThrowStmt is `throw expr`.
type ThrowStmt struct {
	stmtBase
	Value Expr
}

// TryCatchStmt is `try { body } catch pattern { handler }`. Pattern is
// optional (catch-all).
type TryCatchStmt struct {
	stmtBase
	Body    *Block
	Pattern Pattern // optional
	Handler *Block
}
