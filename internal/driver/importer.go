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
package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/spwn-lang/spwnc/internal/ast"
	"github.com/spwn-lang/spwnc/internal/bytecode"
	"github.com/spwn-lang/spwnc/internal/cache"
	"github.com/spwn-lang/spwnc/internal/compiler"
	"github.com/spwn-lang/spwnc/internal/diag"
	"github.com/spwn-lang/spwnc/internal/lexer"
	"github.com/spwn-lang/spwnc/internal/parser"
	"github.com/spwn-lang/spwnc/internal/source"
	"github.com/spwn-lang/spwnc/internal/stdlib"
)

// importer answers both compiler.Importer (compile-time: "does this path
// resolve and compile cleanly?") and vm.Importer (runtime: "give me the
// compiled module to execute") from the same resolve/compile/cache logic,
// since both only ever need a *bytecode.Module for a given path. One
// importer instance is shared across a whole Pipeline.Compile call, so the
// same file resolved twice (once to validate at compile time, once to
// execute at VM runtime, or twice because two different files import it)
// only ever compiles once.
type importer struct {
	cfg      CompilationConfig
	interner *source.Interner
	roots    []string

	compiled map[string]*bytecode.Module
	visiting map[string]bool

	diags *diag.Bag
}

func newImporter(cfg CompilationConfig, interner *source.Interner) *importer {
	return &importer{
		cfg:      cfg,
		interner: interner,
		roots:    stdlib.SearchRoots(),
		compiled: make(map[string]*bytecode.Module),
		visiting: make(map[string]bool),
		diags:    &diag.Bag{},
	}
}

// Resolve implements compiler.Importer.
func (im *importer) Resolve(path string, isLibrary bool, from source.Span) (*bytecode.Module, error) {
	fromPath := ""
	if f := from.File(); f != nil {
		fromPath = f.Path
	}

	return im.resolve(path, isLibrary, fromPath)
}

// vmImporter adapts importer to vm.Importer, whose Resolve(path, span) has
// no isLibrary flag: the VM only ever has the literal path string baked
// into OpImport's constant pool, so whether it names a library or a
// relative file has to be recovered from its shape (see isLibraryName)
// using the importing file recovered from span. A distinct wrapper type is
// needed because compiler.Importer and vm.Importer each want a method
// literally named Resolve, with incompatible signatures, on what is
// otherwise the same underlying state.
type vmImporter struct{ *importer }

// Resolve implements vm.Importer.
func (v vmImporter) Resolve(path string, span source.Span) (*bytecode.Module, error) {
	fromPath := ""
	if f := span.File(); f != nil {
		fromPath = f.Path
	}

	return v.resolve(path, isLibraryName(path), fromPath)
}

// isLibraryName applies the parser's own lexical distinction in reverse: a
// library name is always a bare identifier token (parser.parseImportExpr),
// which by construction never contains '.' or a path separator, while a
// quoted relative-file path always does (at minimum a ".spwn" suffix).
func isLibraryName(path string) bool {
	return !strings.ContainsAny(path, "./\\")
}

func (im *importer) resolve(rawPath string, isLibrary bool, fromPath string) (*bytecode.Module, error) {
	canonical, text := stdlib.PreludePath, stdlib.Prelude
	useEmbeddedPrelude := isLibrary && rawPath == stdLibrary

	if !useEmbeddedPrelude {
		var err error

		canonical, text, err = im.locate(rawPath, isLibrary, fromPath)
		if err != nil {
			return nil, err
		}
	}

	if mod, ok := im.compiled[canonical]; ok {
		return mod, nil
	}

	if im.visiting[canonical] {
		return nil, fmt.Errorf("import cycle involving %q", canonical)
	}

	im.visiting[canonical] = true
	defer delete(im.visiting, canonical)

	cacheDir, name := im.cacheLocation(canonical)

	if !im.cfg.NoCache {
		if entry, err := cache.Load(cacheDir, name, text, im.interner); err == nil {
			log.WithField("path", canonical).Debug("import resolved from bytecode cache")
			im.compiled[canonical] = entry.Module

			return entry.Module, nil
		}
	}

	mod, exports, imports, err := im.compileFile(canonical, text)
	if err != nil {
		return nil, err
	}

	im.compiled[canonical] = mod

	if !im.cfg.NoCache {
		if err := cache.Save(cacheDir, name, text, mod, exports, imports, im.interner); err != nil {
			log.WithField("path", canonical).WithError(err).Warn("failed to write bytecode cache entry")
		}
	}

	return mod, nil
}

// locate maps an import's (path, isLibrary) pair plus the importing file's
// own path to a canonical, absolute source path and its text: a library
// name is resolved via internal/stdlib against the known search roots, a
// relative path is resolved against fromPath's directory (spec.md §6:
// "either a filename relative to the importing source, or a library name").
func (im *importer) locate(rawPath string, isLibrary bool, fromPath string) (string, string, error) {
	var resolved string

	if isLibrary {
		path, err := stdlib.Locate(rawPath, im.roots)
		if err != nil {
			return "", "", err
		}

		resolved = path
	} else {
		base := "."
		if fromPath != "" {
			base = filepath.Dir(fromPath)
		}

		resolved = filepath.Join(base, rawPath)
	}

	abs, err := filepath.Abs(resolved)
	if err != nil {
		return "", "", fmt.Errorf("import %q: %w", rawPath, err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return "", "", fmt.Errorf("import %q: %w", rawPath, err)
	}

	return abs, string(data), nil
}

// cacheLocation derives an absolute source path's cache directory and entry
// base name (spec.md §6: ".spwnc/<name>.spwnc", name stripped of extension).
func (im *importer) cacheLocation(path string) (dir, name string) {
	base := filepath.Base(path)
	name = strings.TrimSuffix(base, filepath.Ext(base))
	dir = filepath.Join(filepath.Dir(path), im.cfg.CacheDir)

	return dir, name
}

// compileFile runs one source file through lex -> parse -> compile,
// recursively resolving its own imports through im. Diagnostics accumulate
// onto im.diags (keyed by nothing in particular - Pipeline.Compile reports
// the whole bag at the end) as well as being folded into the returned
// error, since compiler.Importer.Resolve can only report a single error for
// a failed import.
func (im *importer) compileFile(path, text string) (mod *bytecode.Module, exports, imports []string, err error) {
	file := source.NewFile(path, text)

	lx := lexer.New(file)
	toks := lx.Tokenize()

	p := parser.New(file, im.interner, toks)
	prog := p.ParseProgram()

	for _, d := range lx.Errors() {
		im.diags.Add(d)
	}

	for _, d := range p.Errors() {
		im.diags.Add(d)
	}

	if im.cfg.Stdlib && !hasNoStd(prog) && path != stdlib.PreludePath {
		injectStdPrelude(prog)
	}

	c := compiler.New(im.interner, im)

	bc, cerr := c.CompileProgram(prog)
	if cerr != nil {
		return nil, nil, nil, fmt.Errorf("compiling %s: %w", path, cerr)
	}

	for _, d := range c.Errs.All() {
		im.diags.Add(d)
	}

	if c.Errs.HasErrors() {
		return nil, nil, nil, fmt.Errorf("compiling %s: %d diagnostic(s)", path, len(c.Errs.All()))
	}

	return bc, staticExports(prog, im.interner), staticImports(prog), nil
}

// hasNoStd reports whether prog carries the `#![no_std]` file-level inner
// attribute.
func hasNoStd(prog *ast.Program) bool {
	for _, attr := range prog.InnerAttrs {
		if attr.Inner && attr.Name == "no_std" {
			return true
		}
	}

	return false
}

// injectStdPrelude prepends `extract import std` to prog, the same AST
// shape parser.parseImportExpr/parseExtractImportStmt would build for that
// literal source text, given a synthetic zero-width span at the file start
// (spec.md §4.4 supplement: implicit stdlib import unless #![no_std]).
func injectStdPrelude(prog *ast.Program) {
	var zero source.Span
	if len(prog.Stmts) > 0 {
		zero = prog.Stmts[0].Span()
	}

	imp := &ast.ImportExpr{Path: stdLibrary, IsLibrary: true}
	imp.SetSpan(zero)

	stmt := &ast.ExtractImportStmt{Import: imp}
	stmt.SetSpan(zero)

	prog.Stmts = append([]ast.Stmt{stmt}, prog.Stmts...)
}

// staticImports collects every import path a program's top-level syntax
// tree mentions, for the cache's import-path-list metadata (spec.md §6).
// It is a shallow, best-effort scan: it finds `extract import`, and an
// import expression that is itself the whole expression of a top-level
// expression statement, assignment value or arrow statement. Imports nested
// inside macro bodies, blocks or larger expressions are not collected.
func staticImports(prog *ast.Program) []string {
	var paths []string

	for _, stmt := range prog.Stmts {
		walkImportsStmt(stmt, &paths)
	}

	return paths
}

func walkImportsStmt(s ast.Stmt, out *[]string) {
	switch n := s.(type) {
	case *ast.ExtractImportStmt:
		*out = append(*out, n.Import.Path)
	case *ast.ExprStmt:
		walkImportsExpr(n.Expr, out)
	case *ast.AssignStmt:
		walkImportsExpr(n.Value, out)
	case *ast.ArrowStmt:
		walkImportsStmt(n.Inner, out)
	}
}

func walkImportsExpr(e ast.Expr, out *[]string) {
	if imp, ok := e.(*ast.ImportExpr); ok {
		*out = append(*out, imp.Path)
	}
}

// staticExports reads the top-level module-return statement's dict-literal
// keys, if its value is a literal dict (the common case), as the cache's
// export-name-list metadata (spec.md §6). A module-return that doesn't end
// in a literal dict (e.g. a variable holding one) isn't statically
// enumerable here; the export list is then left empty, which only affects
// the cache's informational metadata, not correctness (internal/vm reads
// the real Module.Exports dict directly at runtime regardless).
func staticExports(prog *ast.Program, interner *source.Interner) []string {
	for _, stmt := range prog.Stmts {
		ret, ok := stmt.(*ast.ReturnStmt)
		if !ok || ret.Value == nil {
			continue
		}

		dict, ok := ret.Value.(*ast.DictLit)
		if !ok {
			return nil
		}

		names := make([]string, 0, len(dict.Entries))
		for _, e := range dict.Entries {
			if !e.Private {
				names = append(names, interner.Text(e.Key))
			}
		}

		return names
	}

	return nil
}
