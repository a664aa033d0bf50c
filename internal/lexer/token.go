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

// Package lexer turns SPWN source text into a stream of spanned tokens.
package lexer

import "github.com/spwn-lang/spwnc/internal/source"

// Kind identifies a lexical token category.
type Kind int

// Token kinds. Identifiers are scanned generically and then looked up
// against the Keywords table below to pick their final Kind, so the lexer's
// scanning switch stays small while keywords still arrive pre-classified
// for the parser (e.g. `self` always lexes as KwSelf, never as Ident).
const (
	EOF Kind = iota
	Newline
	Ident
	IntLit
	FloatLit
	StringLit
	IDLit     // `10g`, `?c`, `5b`, `3i`
	TypeIndicator // `@name`

	// operators & delimiters
	Plus
	Minus
	Star
	Slash
	SlashPercent
	Percent
	Caret
	StarStar
	Amp
	Pipe
	Bang
	Eq
	EqEq
	NotEq
	Lt
	Gt
	LtEq
	GtEq
	Spaceship // <=>
	AmpAmp
	PipePipe
	DotDot
	Arrow // ->
	FatArrow // =>
	Question
	QuestionQuestion
	Colon
	ColonColon
	Comma
	Dot
	Semicolon
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Hash // #
	HashBang // #!
	PlusPlus
	MinusMinus
	PlusEq
	MinusEq
	StarEq
	SlashEq
	PercentEq
	CaretEq
	StarStarEq
	AmpEq
	PipeEq
	ShlEq
	ShrEq
	Shl
	Shr

	KwIf
	KwElse
	KwWhile
	KwFor
	KwReturn
	KwBreak
	KwContinue
	KwLet
	KwMut
	KwType
	KwImpl
	KwThrow
	KwTry
	KwCatch
	KwMatch
	KwIs
	KwIn
	KwAs
	KwImport
	KwExtract
	KwObj
	KwTrigger
	KwTrue
	KwFalse
	KwNull
	KwSelf
)

// Keywords maps keyword spellings to their Kind. Anything not present here
// that looks like an identifier lexes as Ident.
var Keywords = map[string]Kind{
	"if": KwIf, "else": KwElse, "while": KwWhile, "for": KwFor,
	"return": KwReturn, "break": KwBreak, "continue": KwContinue,
	"let": KwLet, "mut": KwMut, "type": KwType, "impl": KwImpl,
	"throw": KwThrow, "try": KwTry, "catch": KwCatch, "match": KwMatch,
	"is": KwIs, "in": KwIn, "as": KwAs, "import": KwImport,
	"extract": KwExtract, "obj": KwObj, "trigger": KwTrigger,
	"true": KwTrue, "false": KwFalse, "null": KwNull, "self": KwSelf,
}

// StringFlag marks a recognised prefix on a string literal (spec.md §4.1).
type StringFlag int

// Recognised string literal flags. They may stack; order matters
// (Unindent applies before Base64).
const (
	NoFlag StringFlag = iota
	Bytes
	Unindent
	Base64
	Raw
)

// Token is one lexeme with its span and, for literals, its decoded payload.
type Token struct {
	Kind  Kind
	Span  source.Span
	Text  string // source text of the token; for a string literal, its decoded contents
	Flags []StringFlag // string literal flags, outermost first
	RawHashes int // raw string `#` fence count, for r#"..."#
}
