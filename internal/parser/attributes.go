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

// Attribute parsing and the static legality registry, grounded on
// original_source/src/parsing/parser/attributes.rs (outer vs inner style,
// `name`/`name = expr`/`name(k = v, ...)` argument shapes) and
// original_source/src/compiling/compiler/attributes.rs (the fixed attribute
// names a complete implementation recognises).
package parser

import (
	"github.com/spwn-lang/spwnc/internal/ast"
	"github.com/spwn-lang/spwnc/internal/diag"
	"github.com/spwn-lang/spwnc/internal/lexer"
	"github.com/spwn-lang/spwnc/internal/source"
)

// attrStyle records which of #[...] / #![...] an attribute is legal as.
type attrStyle int

const (
	styleOuter attrStyle = 1 << iota
	styleInner
)

type attrTemplate struct {
	style     attrStyle
	allowWord bool // bare `#[name]` legal
	allowEq   bool // `#[name = expr]` or `#[name(expr)]` legal
	allowList bool // `#[name(k = v, ...)]` legal
}

// attrRegistry is the fixed set of attributes a program may use. Anything
// else is diag.KindUnknownAttribute.
var attrRegistry = map[string]attrTemplate{
	"doc":            {style: styleOuter | styleInner, allowEq: true},
	"deprecated":     {style: styleOuter, allowWord: true, allowEq: true},
	"no_std":         {style: styleInner, allowWord: true},
	"debug_bytecode": {style: styleOuter, allowWord: true},
	"builtin":        {style: styleOuter, allowWord: true},
	"overload":       {style: styleOuter, allowEq: true},
}

// parseOuterAttrs parses zero or more leading `#[name...]` annotations.
func (p *Parser) parseOuterAttrs() []ast.Attribute {
	var attrs []ast.Attribute

	for p.at(lexer.Hash) && p.peekAt(1).Kind == lexer.LBracket {
		start := p.cur().Span
		p.advance() // '#'
		p.advance() // '['
		attrs = append(attrs, p.parseAttrMeta(start, false))
		p.skipNewlines()
	}

	return attrs
}

// parseInnerAttrs parses zero or more leading `#![name...]` annotations,
// used only at the top of a Program (spec.md §4.2).
func (p *Parser) parseInnerAttrs() []ast.Attribute {
	var attrs []ast.Attribute

	for p.at(lexer.HashBang) {
		start := p.cur().Span
		p.advance() // '#!'
		p.expect(lexer.LBracket, "'['")
		attrs = append(attrs, p.parseAttrMeta(start, true))
		p.skipNewlines()
	}

	return attrs
}

// parseAttrMeta parses the body of an already-opened `#[` / `#![`: a name,
// then one of nothing, `= expr`, or `(args)`, then the closing `]`.
func (p *Parser) parseAttrMeta(start source.Span, inner bool) ast.Attribute {
	nameTok := p.expect(lexer.Ident, "attribute name")
	name := nameTok.Text

	tmpl, known := attrRegistry[name]
	if !known {
		p.errs.Add(diag.New(diag.KindUnknownAttribute, nameTok.Span, "unknown attribute '"+name+"'"))
	}

	style := styleOuter
	if inner {
		style = styleInner
	}

	if known && tmpl.style&style == 0 {
		p.errs.Add(diag.New(diag.KindMismatchedAttributeStyle, nameTok.Span,
			"attribute '"+name+"' is not legal in this position"))
	}

	attr := ast.Attribute{Name: name, Inner: inner}

	switch {
	case p.at(lexer.RBracket):
		if known && !tmpl.allowWord {
			p.errs.Add(diag.New(diag.KindNoArgumentsProvidedToAttr, nameTok.Span,
				"attribute '"+name+"' requires arguments"))
		}
	case p.at(lexer.Eq):
		p.advance()

		val := p.parseExpr()
		attr.Args = append(attr.Args, ast.AttrArg{Value: val})

		if known && !tmpl.allowEq {
			p.errs.Add(diag.New(diag.KindUnexpectedValueForAttribute, nameTok.Span,
				"attribute '"+name+"' does not take a value"))
		}
	case p.at(lexer.LParen):
		p.advance()
		p.skipNewlines()

		if p.at(lexer.Ident) && p.peekAt(1).Kind == lexer.Eq {
			for !p.at(lexer.RParen) && !p.at(lexer.EOF) {
				key := p.expect(lexer.Ident, "argument name")
				p.expect(lexer.Eq, "'='")

				val := p.parseExpr()
				attr.Args = append(attr.Args, ast.AttrArg{Key: key.Text, Value: val})
				p.skipNewlines()

				if p.at(lexer.Comma) {
					p.advance()
					p.skipNewlines()
				} else {
					break
				}
			}

			if known && !tmpl.allowList {
				p.errs.Add(diag.New(diag.KindUnknownAttributeArgument, nameTok.Span,
					"attribute '"+name+"' does not take named arguments"))
			}
		} else {
			val := p.parseExpr()
			attr.Args = append(attr.Args, ast.AttrArg{Value: val})

			if known && !tmpl.allowEq {
				p.errs.Add(diag.New(diag.KindUnexpectedValueForAttribute, nameTok.Span,
					"attribute '"+name+"' does not take a value"))
			}
		}

		p.skipNewlines()
		p.expect(lexer.RParen, "')'")
	default:
		p.abort(diag.KindUnexpectedToken, p.cur().Span, "expected '(', '=' or ']' after attribute name")
	}

	end := p.cur().Span
	p.expect(lexer.RBracket, "']'")
	attr.Span = start.To(end)

	return attr
}
