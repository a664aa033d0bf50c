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

// Package diag implements the error-reporter component: a structured
// diagnostic type carrying a span, a kind drawn from the compile-time /
// runtime taxonomy, optional secondary spans, and an optional note. It does
// not mandate an output format; Render produces one reasonable default.
package diag

import (
	"fmt"
	"strings"

	"github.com/spwn-lang/spwnc/internal/source"
)

// Kind identifies the category of a diagnostic. Kinds are string-backed so
// they serialize legibly in test golden files and log output.
type Kind string

// Compile-time diagnostic kinds (spec.md §7).
const (
	KindUnexpectedToken               Kind = "unexpected-token"
	KindUnmatchedToken                Kind = "unmatched-token"
	KindUnexpectedCharacter           Kind = "unexpected-character"
	KindInvalidEscape                 Kind = "invalid-escape"
	KindInvalidUnicode                Kind = "invalid-unicode"
	KindInvalidStringFlag             Kind = "invalid-string-flag"
	KindDuplicateKeywordArg           Kind = "duplicate-keyword-arg"
	KindMultipleSpreadArguments       Kind = "multiple-spread-arguments"
	KindPositionalArgAfterKeyword     Kind = "positional-arg-after-keyword"
	KindDuplicateAttributeField       Kind = "duplicate-attribute-field"
	KindUnknownAttribute              Kind = "unknown-attribute"
	KindUnknownAttributeNamespace     Kind = "unknown-attribute-namespace"
	KindMismatchedAttributeStyle      Kind = "mismatched-attribute-style"
	KindMismatchedAttributeTarget     Kind = "mismatched-attribute-target"
	KindDuplicateAttribute            Kind = "duplicate-attribute"
	KindNoArgumentsProvidedToAttr     Kind = "no-arguments-provided-to-attribute"
	KindUnknownAttributeArgument      Kind = "unknown-attribute-argument"
	KindUnexpectedValueForAttribute   Kind = "unexpected-value-for-attribute"
	KindMissingRequiredAttributeArgs  Kind = "missing-required-arguments-for-attribute"
	KindSelfArgumentNotFirst          Kind = "self-argument-not-first"
	KindSelfArgumentCannotBeSpread    Kind = "self-argument-cannot-be-spread"
	KindNonexistentVariable           Kind = "nonexistent-variable"
	KindImmutableAssign               Kind = "immutable-assign"
	KindBreakOutsideLoop              Kind = "break-outside-loop"
	KindContinueOutsideLoop           Kind = "continue-outside-loop"
	KindReturnOutsideMacro            Kind = "return-outside-macro"
	KindInvalidModuleReturn           Kind = "invalid-module-return"
	KindDuplicateModuleReturn         Kind = "duplicate-module-return"
	KindDuplicateTypeDef              Kind = "duplicate-type-def"
	KindDuplicateImportedType         Kind = "duplicate-imported-type"
	KindBuiltinTypeOverride           Kind = "builtin-type-override"
	KindTypeDefNotGlobal              Kind = "type-def-not-global"
	KindNonexistentType               Kind = "nonexistent-type"
	KindNonexistentImport             Kind = "nonexistent-import"
	KindImportSyntaxError             Kind = "import-syntax-error"
	KindBuiltinTypeDestructure        Kind = "builtin-type-destructure"
	KindUnexpectedItemInOverload      Kind = "unexpected-item-in-overload"
	KindIllegalAugmentedAssign        Kind = "illegal-augmented-assign"
)

// Runtime diagnostic kinds (spec.md §7).
const (
	KindInvalidOperands          Kind = "invalid-operands"
	KindInvalidUnaryOperand      Kind = "invalid-unary-operand"
	KindTypeMismatch             Kind = "type-mismatch"
	KindIndexOutOfBounds         Kind = "index-out-of-bounds"
	KindInvalidIndex             Kind = "invalid-index"
	KindNonexistentMember        Kind = "nonexistent-member"
	KindPrivateMemberAccess      Kind = "private-member-access"
	KindNonexistentAssociated    Kind = "nonexistent-associated-member"
	KindAssociatedNotAMethod     Kind = "associated-member-not-a-method"
	KindNotAMethod               Kind = "not-a-method"
	KindNonexistentTypeMember    Kind = "nonexistent-type-member"
	KindPrivateType              Kind = "private-type"
	KindTooManyArguments         Kind = "too-many-arguments"
	KindUnknownKeywordArgument   Kind = "unknown-keyword-argument"
	KindArgumentNotSatisfied     Kind = "argument-not-satisfied"
	KindPatternMismatch          Kind = "pattern-mismatch"
	KindThrownError              Kind = "thrown-error"
	KindCannotInstanceBuiltin    Kind = "cannot-instance-builtin-type"
	KindImplOnBuiltin            Kind = "impl-on-builtin"
	KindContextSplitDisallowed   Kind = "context-split-disallowed"
	KindDivisionByZero           Kind = "division-by-zero"
	KindRecursionLimit           Kind = "recursion-limit"
	KindBreakInTriggerFuncScope  Kind = "break-in-trigger-func-scope"
	KindBreakInArrowStmtScope    Kind = "break-in-arrow-stmt-scope"
)

// LabeledSpan is a secondary span accompanying a diagnostic, with its own
// short explanatory message (e.g. "first defined here").
type LabeledSpan struct {
	Span    source.Span
	Message string
}

// Diagnostic is the structured record produced by every error-capable stage
// of the pipeline: a span and message, generalized with a Kind taxonomy and
// optional secondary context.
type Diagnostic struct {
	Kind      Kind
	Primary   source.Span
	Message   string
	Secondary []LabeledSpan
	Note      string
}

// New constructs a minimal diagnostic with no secondary spans or note.
func New(kind Kind, span source.Span, message string) *Diagnostic {
	return &Diagnostic{Kind: kind, Primary: span, Message: message}
}

// WithNote attaches an explanatory note and returns the same diagnostic, for
// fluent construction at the call site.
func (d *Diagnostic) WithNote(note string) *Diagnostic {
	d.Note = note
	return d
}

// WithSecondary appends a secondary labeled span.
func (d *Diagnostic) WithSecondary(span source.Span, message string) *Diagnostic {
	d.Secondary = append(d.Secondary, LabeledSpan{span, message})
	return d
}

// Error implements the error interface so a *Diagnostic can be returned and
// propagated anywhere Go code expects an error.
func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: [%s] %s", d.Primary, d.Kind, d.Message)
}

// Render produces a human-readable, multi-line rendering of the diagnostic.
// This is one reasonable default; spec.md §6 does not mandate a format.
func (d *Diagnostic) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "error[%s]: %s\n", d.Kind, d.Message)
	fmt.Fprintf(&b, "  --> %s\n", d.Primary)

	for _, s := range d.Secondary {
		fmt.Fprintf(&b, "  --> %s: %s\n", s.Span, s.Message)
	}

	if d.Note != "" {
		fmt.Fprintf(&b, "  note: %s\n", d.Note)
	}

	return b.String()
}

// Bag accumulates diagnostics across a compilation unit, collecting
// multiple syntax errors before aborting rather than stopping at the
// first one.
type Bag struct {
	items []*Diagnostic
}

// Add appends a diagnostic.
func (b *Bag) Add(d *Diagnostic) { b.items = append(b.items, d) }

// HasErrors reports whether any diagnostic has been recorded.
func (b *Bag) HasErrors() bool { return len(b.items) > 0 }

// All returns every recorded diagnostic, in recording order.
func (b *Bag) All() []*Diagnostic { return b.items }
