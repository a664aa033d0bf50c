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

// Statement grammar (spec.md §4.2/§4.4).
package parser

import (
	"github.com/spwn-lang/spwnc/internal/ast"
	"github.com/spwn-lang/spwnc/internal/diag"
	"github.com/spwn-lang/spwnc/internal/lexer"
	"github.com/spwn-lang/spwnc/internal/source"
)

// parseStmt parses one statement, including any leading outer attributes.
func (p *Parser) parseStmt() ast.Stmt {
	attrs := p.parseOuterAttrs()
	start := p.cur().Span
	s := p.parseStmtBody()

	return p.finishStmt(start, s, attrs)
}

func (p *Parser) finishStmt(start source.Span, s ast.Stmt, attrs []ast.Attribute) ast.Stmt {
	end := start
	if p.pos > 0 {
		end = p.toks[p.pos-1].Span
	}

	sp, ok := s.(ast.Spannable)
	if !ok {
		return s
	}

	sp.SetSpan(start.To(end))

	if setter, ok := s.(interface{ SetAttrs([]ast.Attribute) }); ok {
		setter.SetAttrs(attrs)
	}

	return s
}

func (p *Parser) parseStmtBody() ast.Stmt {
	t := p.cur()

	switch t.Kind {
	case lexer.KwIf:
		return p.parseIfStmt()
	case lexer.KwWhile:
		return p.parseWhileStmt()
	case lexer.KwFor:
		return p.parseForStmt()
	case lexer.KwReturn:
		return p.parseReturnStmt()
	case lexer.KwBreak:
		p.advance()
		return &ast.BreakStmt{}
	case lexer.KwContinue:
		p.advance()
		return &ast.ContinueStmt{}
	case lexer.KwThrow:
		return p.parseThrowStmt()
	case lexer.KwTry:
		return p.parseTryCatchStmt()
	case lexer.KwExtract:
		return p.parseExtractImportStmt()
	case lexer.KwImpl:
		return p.parseImplOrOverloadStmt()
	case lexer.KwType:
		return p.parseTypeDefStmt(false)
	case lexer.Arrow:
		p.advance()
		return &ast.ArrowStmt{Inner: p.parseStmtBody()}
	}

	if t.Kind == lexer.Ident && t.Text == "private" && p.peekAt(1).Kind == lexer.KwType {
		p.advance()
		return p.parseTypeDefStmt(true)
	}

	return p.parseAssignOrExprStmt()
}

func (p *Parser) atStmtEnd() bool {
	switch p.cur().Kind {
	case lexer.Newline, lexer.Semicolon, lexer.RBrace, lexer.EOF:
		return true
	default:
		return false
	}
}

func (p *Parser) parseIfStmt() ast.Stmt {
	p.advance() // 'if'

	cond := p.parseExpr()
	body := p.parseBlock()
	ifs := &ast.IfStmt{Branches: []ast.IfBranch{{Cond: cond, Body: body}}}

	for p.at(lexer.KwElse) {
		p.advance()

		if p.at(lexer.KwIf) {
			p.advance()

			c := p.parseExpr()
			b := p.parseBlock()
			ifs.Branches = append(ifs.Branches, ast.IfBranch{Cond: c, Body: b})

			continue
		}

		ifs.Else = p.parseBlock()

		break
	}

	return ifs
}

func (p *Parser) parseWhileStmt() ast.Stmt {
	p.advance() // 'while'

	cond := p.parseExpr()
	body := p.parseBlock()

	return &ast.WhileStmt{Cond: cond, Body: body}
}

func (p *Parser) parseForStmt() ast.Stmt {
	p.advance() // 'for'

	pat := p.parsePattern()
	p.expect(lexer.KwIn, "'in'")

	iter := p.parseExpr()
	body := p.parseBlock()

	return &ast.ForStmt{Pattern: pat, Iter: iter, Body: body}
}

func (p *Parser) parseReturnStmt() ast.Stmt {
	p.advance() // 'return'

	var val ast.Expr
	if !p.atStmtEnd() {
		val = p.parseExpr()
	}

	return &ast.ReturnStmt{Value: val}
}

func (p *Parser) parseThrowStmt() ast.Stmt {
	p.advance() // 'throw'
	return &ast.ThrowStmt{Value: p.parseExpr()}
}

func (p *Parser) parseTryCatchStmt() ast.Stmt {
	p.advance() // 'try'

	body := p.parseBlock()
	p.expect(lexer.KwCatch, "'catch'")

	var pat ast.Pattern
	if !p.at(lexer.LBrace) {
		pat = p.parsePattern()
	}

	handler := p.parseBlock()

	return &ast.TryCatchStmt{Body: body, Pattern: pat, Handler: handler}
}

func (p *Parser) parseTypeDefStmt(private bool) ast.Stmt {
	if private {
		p.advance() // 'private'
	}

	p.expect(lexer.KwType, "'type'")
	name := p.expect(lexer.TypeIndicator, "type name")

	return &ast.TypeDefStmt{Name: name.Text[1:], Private: private}
}

func (p *Parser) parseExtractImportStmt() ast.Stmt {
	p.advance() // 'extract'

	if !p.at(lexer.KwImport) {
		p.abort(diag.KindImportSyntaxError, p.cur().Span, "expected 'import' after 'extract'")
	}

	imp, ok := p.parseImportExpr().(*ast.ImportExpr)
	if !ok {
		p.abort(diag.KindImportSyntaxError, p.cur().Span, "expected an import expression")
	}

	return &ast.ExtractImportStmt{Import: imp}
}

func (p *Parser) parseImplOrOverloadStmt() ast.Stmt {
	p.advance() // 'impl'

	if p.at(lexer.Ident) && p.cur().Text == "operator" {
		return p.parseOverloadStmt()
	}

	typeTok := p.expect(lexer.TypeIndicator, "type name")
	p.expect(lexer.LBrace, "'{'")
	p.skipNewlines()

	impl := &ast.ImplStmt{TypeName: typeTok.Text[1:]}

	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		name := p.expect(lexer.Ident, "member name")
		p.expect(lexer.Colon, "':'")

		val := p.parseExpr()
		member := ast.ImplMember{Name: p.intern(name.Text), Value: val}

		if p.at(lexer.KwAs) {
			p.advance()

			alias := p.expect(lexer.Ident, "alias name")
			member.Alias = p.intern(alias.Text)
			member.HasAlias = true
		}

		impl.Members = append(impl.Members, member)
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

	return impl
}

// overloadOpTokens maps an operator spelling inside `impl operator (...)` to
// its OverloadOp. Unary negation/not and indexing need two-token spellings
// (`unary -`, `unary !`, `[]`) to disambiguate from their binary/postfix
// counterparts.
func (p *Parser) parseOverloadOp() ast.OverloadOp {
	if p.at(lexer.Ident) && p.cur().Text == "unary" {
		p.advance()

		switch p.cur().Kind {
		case lexer.Minus:
			p.advance()
			return ast.OverloadUnaryNeg
		case lexer.Bang:
			p.advance()
			return ast.OverloadUnaryNot
		}

		p.abort(diag.KindUnexpectedToken, p.cur().Span, "expected '-' or '!' after 'unary'")
	}

	if p.at(lexer.LBracket) && p.peekAt(1).Kind == lexer.RBracket {
		p.advance()
		p.advance()

		return ast.OverloadIndex
	}

	t := p.advance()

	switch t.Kind {
	case lexer.Plus:
		return ast.OverloadAdd
	case lexer.Minus:
		return ast.OverloadSub
	case lexer.Star:
		return ast.OverloadMul
	case lexer.Slash:
		return ast.OverloadDiv
	case lexer.Percent:
		return ast.OverloadMod
	case lexer.StarStar, lexer.Caret:
		return ast.OverloadPow
	case lexer.EqEq:
		return ast.OverloadEq
	case lexer.NotEq:
		return ast.OverloadNeq
	case lexer.Lt:
		return ast.OverloadLt
	case lexer.Gt:
		return ast.OverloadGt
	case lexer.LtEq:
		return ast.OverloadLte
	case lexer.GtEq:
		return ast.OverloadGte
	case lexer.Eq:
		return ast.OverloadAssign
	}

	p.abort(diag.KindUnexpectedItemInOverload, t.Span, "unrecognised operator in 'impl operator'")

	return 0
}

func (p *Parser) parseOverloadStmt() ast.Stmt {
	p.advance() // 'operator'
	p.expect(lexer.LParen, "'('")

	op := p.parseOverloadOp()

	p.expect(lexer.RParen, "')'")
	p.expect(lexer.LBrace, "'{'")
	p.skipNewlines()

	ov := &ast.OverloadStmt{Op: op}

	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		ov.Macros = append(ov.Macros, p.parseExpr())
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

	return ov
}

var assignOpTable = map[lexer.Kind]ast.AssignOp{
	lexer.PlusEq:     ast.OpAddAssign,
	lexer.MinusEq:    ast.OpSubAssign,
	lexer.StarEq:     ast.OpMulAssign,
	lexer.SlashEq:    ast.OpDivAssign,
	lexer.PercentEq:  ast.OpModAssign,
	lexer.StarStarEq: ast.OpPowAssign,
	lexer.AmpEq:      ast.OpBitAndAssign,
	lexer.PipeEq:     ast.OpBitOrAssign,
	lexer.ShlEq:      ast.OpShlAssign,
	lexer.ShrEq:      ast.OpShrAssign,
}

// scanAssignLookahead scans forward from the cursor, at bracket depth 0,
// for a plain '=' or an augmented-assignment operator before the statement
// ends. It never crosses into a nested block/array/dict/call/group.
func (p *Parser) scanAssignLookahead() (eqPos, augPos int) {
	depth := 0

	for i := p.pos; i < len(p.toks); i++ {
		switch p.toks[i].Kind {
		case lexer.LParen, lexer.LBrace, lexer.LBracket:
			depth++
		case lexer.RParen, lexer.RBrace, lexer.RBracket:
			if depth == 0 {
				return -1, -1
			}

			depth--
		case lexer.Newline, lexer.Semicolon, lexer.EOF:
			if depth == 0 {
				return -1, -1
			}
		case lexer.Eq:
			if depth == 0 {
				return i, -1
			}
		case lexer.PlusEq, lexer.MinusEq, lexer.StarEq, lexer.SlashEq, lexer.PercentEq,
			lexer.StarStarEq, lexer.AmpEq, lexer.PipeEq, lexer.ShlEq, lexer.ShrEq:
			if depth == 0 {
				return -1, i
			}
		}
	}

	return -1, -1
}

func (p *Parser) parseAssignOrExprStmt() ast.Stmt {
	eqPos, augPos := p.scanAssignLookahead()

	switch {
	case eqPos >= 0:
		target := p.parsePattern()
		p.expect(lexer.Eq, "'='")

		return &ast.AssignStmt{Target: target, Value: p.parseExpr()}
	case augPos >= 0:
		targetPat := p.parsePattern()

		path, ok := targetPat.(*ast.Path)

		opTok := p.advance()
		op, knownOp := assignOpTable[opTok.Kind]

		if !ok || !knownOp || path.IsRef {
			p.errs.Add(diag.New(diag.KindIllegalAugmentedAssign, opTok.Span,
				"left-hand side of an augmented assignment must be a variable path"))
		}

		return &ast.AssignOpStmt{Target: path, Op: op, Value: p.parseExpr()}
	default:
		return &ast.ExprStmt{Expr: p.parseExpr()}
	}
}
