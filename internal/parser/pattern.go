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

// Pattern grammar. spec.md §4.2 gives the pattern precedence table (guard,
// then either, then both, then primaries) but leaves several primary
// patterns' concrete syntax unstated (ArrayPattern's variable-length form,
// DictPattern's all-values form, MaybeDestructure, MacroPattern, the
// Ref/Mut binders). The concrete spellings chosen below are recorded as
// resolved open questions in DESIGN.md; they are internally consistent and
// follow the same token vocabulary as expressions.
package parser

import (
	"github.com/spwn-lang/spwnc/internal/ast"
	"github.com/spwn-lang/spwnc/internal/diag"
	"github.com/spwn-lang/spwnc/internal/lexer"
	"github.com/spwn-lang/spwnc/internal/source"
)

// parsePattern parses a full pattern, lowest precedence first (the `if`
// guard, which wraps everything to its left).
func (p *Parser) parsePattern() ast.Pattern {
	start := p.cur().Span
	inner := p.parseEitherPattern()

	if p.at(lexer.KwIf) {
		p.advance()

		cond := p.parseExpr()

		return p.finishPat(start, &ast.IfGuardPattern{Inner: inner, Cond: cond})
	}

	return inner
}

func (p *Parser) finishPat(start source.Span, pat ast.Pattern) ast.Pattern {
	end := start
	if p.pos > 0 {
		end = p.toks[p.pos-1].Span
	}

	pat.(ast.Spannable).SetSpan(start.To(end))

	return pat
}

func (p *Parser) parseEitherPattern() ast.Pattern {
	start := p.cur().Span
	left := p.parseBothPattern()

	for p.at(lexer.Pipe) {
		p.advance()

		right := p.parseBothPattern()
		left = p.finishPat(start, &ast.EitherPattern{Left: left, Right: right})
	}

	return left
}

func (p *Parser) parseBothPattern() ast.Pattern {
	start := p.cur().Span
	left := p.parsePrimaryPattern()

	for p.at(lexer.Amp) {
		p.advance()

		right := p.parsePrimaryPattern()
		left = p.finishPat(start, &ast.BothPattern{Left: left, Right: right})
	}

	return left
}

var cmpOpTable = map[lexer.Kind]ast.CmpOp{
	lexer.EqEq:  ast.CmpEq,
	lexer.NotEq: ast.CmpNeq,
	lexer.Lt:    ast.CmpLt,
	lexer.LtEq:  ast.CmpLte,
	lexer.Gt:    ast.CmpGt,
	lexer.GtEq:  ast.CmpGte,
	lexer.KwIn:  ast.CmpIn,
}

func (p *Parser) parsePrimaryPattern() ast.Pattern {
	t := p.cur()

	if op, ok := cmpOpTable[t.Kind]; ok {
		p.advance()

		val := p.parseBinExpr(1)

		return p.finishPat(t.Span, &ast.CmpPattern{Op: op, Value: val})
	}

	switch t.Kind {
	case lexer.Ident:
		switch t.Text {
		case "_":
			p.advance()
			return p.finishPat(t.Span, &ast.AnyPattern{})
		case "ref":
			p.advance()

			name := p.expect(lexer.Ident, "variable name")

			return p.finishPat(t.Span, &ast.RefPattern{Name: p.intern(name.Text)})
		case "empty":
			p.advance()
			return p.finishPat(t.Span, &ast.EmptyPattern{})
		default:
			return p.parsePathPattern(false)
		}
	case lexer.Amp:
		p.advance()
		return p.parsePathPattern(true)
	case lexer.KwMut:
		p.advance()

		name := p.expect(lexer.Ident, "variable name")

		return p.finishPat(t.Span, &ast.MutPattern{Name: p.intern(name.Text)})
	case lexer.TypeIndicator:
		return p.parseTypeOrInstancePattern()
	case lexer.LBracket:
		return p.parseArrayPatternGroup()
	case lexer.LBrace:
		return p.parseDictPatternGroup()
	case lexer.Question:
		p.advance()

		if p.atPatternTerminator() {
			return p.finishPat(t.Span, &ast.MaybeDestructure{Inner: nil})
		}

		inner := p.parsePrimaryPattern()

		return p.finishPat(t.Span, &ast.MaybeDestructure{Inner: inner})
	case lexer.LParen:
		return p.parseMacroPattern()
	}

	p.abort(diag.KindUnexpectedToken, t.Span, "expected a pattern, found "+tokenDescription(t))

	return nil
}

// atPatternTerminator reports whether the cursor sits at a token that can
// never start a pattern, used to decide whether a bare `?` is the
// "must-be-None" MaybeDestructure or the prefix of `?pat`.
func (p *Parser) atPatternTerminator() bool {
	switch p.cur().Kind {
	case lexer.Comma, lexer.RBracket, lexer.RBrace, lexer.RParen, lexer.FatArrow,
		lexer.Eq, lexer.Colon, lexer.Newline, lexer.Semicolon, lexer.EOF, lexer.KwIf:
		return true
	default:
		return false
	}
}

func (p *Parser) parsePathPattern(isRef bool) ast.Pattern {
	start := p.cur().Span
	name := p.expect(lexer.Ident, "variable name")
	path := &ast.Path{Var: p.intern(name.Text), IsRef: isRef}

	for {
		switch p.cur().Kind {
		case lexer.Dot:
			p.advance()

			field := p.expect(lexer.Ident, "field name")
			path.Steps = append(path.Steps, ast.PathStep{Kind: ast.PathField, Name: p.intern(field.Text)})
		case lexer.ColonColon:
			p.advance()

			assoc := p.expect(lexer.Ident, "associated member name")
			path.Steps = append(path.Steps, ast.PathStep{Kind: ast.PathAssoc, Name: p.intern(assoc.Text)})
		case lexer.LBracket:
			p.advance()

			idx := p.parseExpr()
			p.expect(lexer.RBracket, "']'")
			path.Steps = append(path.Steps, ast.PathStep{Kind: ast.PathIndex, Index: idx})
		default:
			return p.finishPat(start, path)
		}
	}
}

func (p *Parser) parseTypeOrInstancePattern() ast.Pattern {
	t := p.advance()
	name := t.Text[1:]

	if p.at(lexer.ColonColon) && p.peekAt(1).Kind == lexer.LBrace {
		p.advance() // '::'
		p.advance() // '{'
		p.skipNewlines()

		inst := &ast.InstanceDestructure{TypeName: name}

		for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
			field := p.expect(lexer.Ident, "field name")
			p.expect(lexer.Colon, "':'")
			sub := p.parsePattern()
			inst.Fields = append(inst.Fields, ast.DictKeyPattern{Name: p.intern(field.Text), Pattern: sub})
			p.skipNewlines()

			if p.at(lexer.Comma) {
				p.advance()
				p.skipNewlines()
			} else {
				break
			}
		}

		p.skipNewlines()
		p.expect(lexer.RBrace, "'}'")

		return p.finishPat(t.Span, inst)
	}

	return p.finishPat(t.Span, &ast.TypePattern{TypeName: name})
}

// parseArrayPatternGroup parses `[p0, p1, ...]` (ArrayDestructure) or
// `[elemPat; lenPat]` (ArrayPattern, variable length).
func (p *Parser) parseArrayPatternGroup() ast.Pattern {
	start := p.cur().Span
	p.advance() // '['
	p.skipNewlines()

	if p.at(lexer.RBracket) {
		p.advance()
		return p.finishPat(start, &ast.ArrayDestructure{})
	}

	first := p.parsePattern()
	p.skipNewlines()

	if p.at(lexer.Semicolon) {
		p.advance()
		p.skipNewlines()

		lenPat := p.parsePattern()
		p.skipNewlines()
		p.expect(lexer.RBracket, "']'")

		return p.finishPat(start, &ast.ArrayPattern{Elem: first, LenPattern: lenPat})
	}

	elems := []ast.Pattern{first}

	for p.at(lexer.Comma) {
		p.advance()
		p.skipNewlines()

		if p.at(lexer.RBracket) {
			break
		}

		elems = append(elems, p.parsePattern())
		p.skipNewlines()
	}

	p.expect(lexer.RBracket, "']'")

	return p.finishPat(start, &ast.ArrayDestructure{Elems: elems})
}

// parseDictPatternGroup parses `{name: pat, ...}` (DictDestructure) or
// `{*: valPat}` (DictPattern, matches every value).
func (p *Parser) parseDictPatternGroup() ast.Pattern {
	start := p.cur().Span
	p.advance() // '{'
	p.skipNewlines()

	if p.at(lexer.Star) {
		p.advance()
		p.expect(lexer.Colon, "':'")

		val := p.parsePattern()
		p.skipNewlines()
		p.expect(lexer.RBrace, "'}'")

		return p.finishPat(start, &ast.DictPattern{Value: val})
	}

	dd := &ast.DictDestructure{}

	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		name := p.expect(lexer.Ident, "field name")
		p.expect(lexer.Colon, "':'")

		sub := p.parsePattern()
		dd.Fields = append(dd.Fields, ast.DictKeyPattern{Name: p.intern(name.Text), Pattern: sub})
		p.skipNewlines()

		if p.at(lexer.Comma) {
			p.advance()
			p.skipNewlines()
		} else {
			break
		}
	}

	p.skipNewlines()
	p.expect(lexer.RBrace, "'}'")

	return p.finishPat(start, dd)
}

// parseMacroPattern parses `(p0, p1) -> retPat` (the `-> retPat` suffix is
// optional).
func (p *Parser) parseMacroPattern() ast.Pattern {
	start := p.cur().Span
	p.advance() // '('
	p.skipNewlines()

	mp := &ast.MacroPattern{}

	for !p.at(lexer.RParen) && !p.at(lexer.EOF) {
		mp.Args = append(mp.Args, p.parsePattern())
		p.skipNewlines()

		if p.at(lexer.Comma) {
			p.advance()
			p.skipNewlines()
		} else {
			break
		}
	}

	p.skipNewlines()
	p.expect(lexer.RParen, "')'")

	if p.at(lexer.Arrow) {
		p.advance()
		mp.Return = p.parsePattern()
	}

	return p.finishPat(start, mp)
}
