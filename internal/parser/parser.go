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

// Package parser implements a recursive-descent parser with an explicit
// operator-precedence table (spec.md §4.2), producing an internal/ast tree
// from a internal/lexer token stream. Follows a hand-rolled
// recursive-descent style (environment-threaded parser struct, one parseX
// method per grammar rule) with span tracking on every produced node.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spwn-lang/spwnc/internal/ast"
	"github.com/spwn-lang/spwnc/internal/diag"
	"github.com/spwn-lang/spwnc/internal/lexer"
	"github.com/spwn-lang/spwnc/internal/source"
)

// Parser holds the cursor over a token stream plus the diagnostics
// accumulated so far. A Parser is single-use: construct one per file.
type Parser struct {
	file     *source.File
	interner *source.Interner
	toks     []lexer.Token
	pos      int
	errs     diag.Bag
}

// New constructs a Parser over a pre-lexed token stream.
func New(file *source.File, interner *source.Interner, toks []lexer.Token) *Parser {
	return &Parser{file: file, interner: interner, toks: toks}
}

// Errors returns every diagnostic recorded while parsing.
func (p *Parser) Errors() []*diag.Diagnostic { return p.errs.All() }

// ParseProgram parses the entire token stream into a Program, recovering
// from statement-level errors so that a single file can report more than
// one problem per run (same discipline as the lexer).
func (p *Parser) ParseProgram() *ast.Program {
	prog := &ast.Program{File: p.file}
	p.skipNewlines()
	prog.InnerAttrs = p.parseInnerAttrs()

	for !p.at(lexer.EOF) {
		p.skipNewlines()

		if p.at(lexer.EOF) {
			break
		}

		stmt := p.parseStmtRecover()
		if stmt != nil {
			prog.Stmts = append(prog.Stmts, stmt)
		}

		p.consumeStmtSeparator()
	}

	return prog
}

func (p *Parser) parseStmtRecover() (s ast.Stmt) {
	start := p.pos

	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(parseAbort); !ok {
				panic(r)
			}

			s = nil

			if p.pos == start {
				p.pos++
			}

			for !p.at(lexer.EOF) && !p.at(lexer.Newline) && !p.at(lexer.Semicolon) && !p.at(lexer.RBrace) {
				p.pos++
			}
		}
	}()

	return p.parseStmt()
}

// parseAbort unwinds to the nearest recovery point (parseStmtRecover or a
// block boundary) after a diagnostic has already been recorded.
type parseAbort struct{}

func (p *Parser) abort(kind diag.Kind, span source.Span, msg string) {
	p.errs.Add(diag.New(kind, span, msg))
	panic(parseAbort{})
}

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) at(k lexer.Kind) bool { return p.cur().Kind == k }

func (p *Parser) peekAt(off int) lexer.Token {
	i := p.pos + off
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}

	return p.toks[i]
}

func (p *Parser) advance() lexer.Token {
	t := p.cur()
	if t.Kind != lexer.EOF {
		p.pos++
	}

	return t
}

func (p *Parser) expect(k lexer.Kind, what string) lexer.Token {
	if !p.at(k) {
		p.abort(diag.KindUnexpectedToken, p.cur().Span,
			fmt.Sprintf("expected %s, found %q", what, p.cur().Text))
	}

	return p.advance()
}

func (p *Parser) skipNewlines() {
	for p.at(lexer.Newline) {
		p.pos++
	}
}

// consumeStmtSeparator consumes one statement-terminating newline or
// semicolon (spec.md §4.2). A following `}` also legally terminates the
// preceding statement and is left for the block parser to consume.
func (p *Parser) consumeStmtSeparator() {
	if p.at(lexer.Newline) || p.at(lexer.Semicolon) {
		p.pos++
		p.skipNewlines()

		return
	}

	if p.at(lexer.RBrace) || p.at(lexer.EOF) {
		return
	}
}

func (p *Parser) intern(text string) source.Name { return p.interner.Intern(text) }

// parseBlock parses a `{ stmt* }` block.
func (p *Parser) parseBlock() *ast.Block {
	p.expect(lexer.LBrace, "'{'")
	p.skipNewlines()

	b := &ast.Block{}

	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		stmt := p.parseStmtRecover()
		if stmt != nil {
			b.Stmts = append(b.Stmts, stmt)
		}

		if p.at(lexer.RBrace) {
			break
		}

		p.consumeStmtSeparator()
		p.skipNewlines()
	}

	p.expect(lexer.RBrace, "'}'")

	return b
}

func parseIntText(text string) (int64, error) {
	clean := strings.ReplaceAll(text, "_", "")
	clean = strings.TrimRightFunc(clean, func(r rune) bool {
		return r == 'g' || r == 'c' || r == 'b' || r == 'i'
	})

	switch {
	case strings.HasPrefix(clean, "0x") || strings.HasPrefix(clean, "0X"):
		return strconv.ParseInt(clean[2:], 16, 64)
	case strings.HasPrefix(clean, "0o") || strings.HasPrefix(clean, "0O"):
		return strconv.ParseInt(clean[2:], 8, 64)
	case strings.HasPrefix(clean, "0b") || strings.HasPrefix(clean, "0B"):
		return strconv.ParseInt(clean[2:], 2, 64)
	default:
		return strconv.ParseInt(clean, 10, 64)
	}
}
