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

// Package cache implements the on-disk bytecode cache (spec.md §6): a
// self-describing serialized form of a compiled bytecode.Module, keyed by a
// hash of the source it was built from, stored next to the source as
// `.spwnc/<name>.spwnc`. The on-disk layout is a fixed hand-rolled binary
// Header (magic + version + source hash) followed by a gob-encoded payload,
// so the header can be validated without paying for a full gob decode on a
// stale or foreign file.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/spwn-lang/spwnc/internal/bytecode"
	"github.com/spwn-lang/spwnc/internal/source"
)

func init() {
	// Func.Consts is []any; gob needs every concrete type that can appear in
	// it registered up front (int64/float64/string literals and
	// bytecode.IDConst for target-graph id literals - see compiler/expr.go's
	// constOf call sites).
	gob.Register(int64(0))
	gob.Register(float64(0))
	gob.Register("")
	gob.Register(bytecode.IDConst{})
}

// MajorVersion must match exactly between a cache file and the tool reading
// it; MinorVersion may be less than or equal to the tool's own, a
// forward-readability contract that lets older tools reject newer formats
// without blowing up on unrecognized-but-compatible minor additions.
const (
	MajorVersion uint16 = 1
	MinorVersion uint16 = 0
)

// magic identifies a spwnc bytecode cache file in the header's first 8 bytes.
var magic = [8]byte{'s', 'p', 'w', 'n', 'b', 'c', '1', 0}

// Header is the fixed-layout prefix of every cache file.
type Header struct {
	Identifier   [8]byte
	MajorVersion uint16
	MinorVersion uint16
	SourceHash   [32]byte
}

// IsCompatible reports whether a header can be trusted by this build: the
// magic must match, the major version exactly, and the minor version must
// be no newer than what this build understands.
func (h *Header) IsCompatible() bool {
	return h.Identifier == magic &&
		h.MajorVersion == MajorVersion &&
		h.MinorVersion <= MinorVersion
}

func (h *Header) marshal() []byte {
	var buf bytes.Buffer

	buf.Write(h.Identifier[:])

	var v [4]byte
	binary.BigEndian.PutUint16(v[0:2], h.MajorVersion)
	binary.BigEndian.PutUint16(v[2:4], h.MinorVersion)
	buf.Write(v[:])
	buf.Write(h.SourceHash[:])

	return buf.Bytes()
}

func unmarshalHeader(r *bytes.Reader) (Header, error) {
	var h Header

	if _, err := r.Read(h.Identifier[:]); err != nil {
		return h, err
	}

	var v [4]byte
	if _, err := r.Read(v[:]); err != nil {
		return h, err
	}

	h.MajorVersion = binary.BigEndian.Uint16(v[0:2])
	h.MinorVersion = binary.BigEndian.Uint16(v[2:4])

	if _, err := r.Read(h.SourceHash[:]); err != nil {
		return h, err
	}

	return h, nil
}

// HashSource hashes source text for cache-key comparison (spec.md §6's
// "cache validity requires matching source hash").
func HashSource(text string) [32]byte {
	return sha256.Sum256([]byte(text))
}

// PathFor returns the on-disk path for name's cache entry under dir
// (spec.md §6: "cache files live next to their source as
// .spwnc/<name>.spwnc").
func PathFor(dir, name string) string {
	return filepath.Join(dir, name+".spwnc")
}

// payload is the gob-encoded body: the compiled module plus the metadata
// spec.md §6 requires a cache entry to carry beyond the raw bytecode
// (export names and import paths, used by a cache hit to answer an
// Importer.Resolve without recompiling). Names is a source.Interner
// snapshot (see source.Interner.Snapshot): a module's Func.Code carries its
// identifiers as interned source.Name handles, which are only meaningful
// relative to the Interner session that produced them, so the cache must
// carry enough of that session to remap them onto whatever Interner the
// loading process is using (source.Interner.Remap, applied by Load).
type payload struct {
	Module  *bytecode.Module
	Exports []string
	Imports []string
	Names   []string
}

// Entry is one successfully-loaded cache hit.
type Entry struct {
	Module  *bytecode.Module
	Exports []string
	Imports []string
}

// Save writes mod (plus its export/import metadata and a snapshot of
// interner's name table) to dir/name.spwnc, keyed to sourceText's hash.
// Creates dir if it does not already exist.
func Save(dir, name, sourceText string, mod *bytecode.Module, exports, imports []string, interner *source.Interner) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cache: creating %s: %w", dir, err)
	}

	h := Header{
		Identifier:   magic,
		MajorVersion: MajorVersion,
		MinorVersion: MinorVersion,
		SourceHash:   HashSource(sourceText),
	}

	var buf bytes.Buffer

	buf.Write(h.marshal())

	p := payload{Module: mod, Exports: exports, Imports: imports, Names: interner.Snapshot()}
	if err := gob.NewEncoder(&buf).Encode(&p); err != nil {
		return fmt.Errorf("cache: encoding %s: %w", name, err)
	}

	path := PathFor(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("cache: writing %s: %w", path, err)
	}

	log.WithFields(log.Fields{"path": path, "funcs": len(mod.Funcs)}).Debug("wrote bytecode cache entry")

	return nil
}

// ErrMiss is returned by Load when no usable cache entry exists: the file
// is absent, foreign, version-incompatible, or built from different source
// text.
var ErrMiss = errors.New("cache: miss")

// Load reads dir/name.spwnc and returns its payload if, and only if, its
// header is compatible with this build and its source hash matches
// sourceText's. Any other outcome (missing file, corrupt header, stale
// source) is reported as ErrMiss so callers always have a uniform
// fall-through to recompiling. Every source.Name baked into the decoded
// module is remapped onto interner before it is returned, since the Names
// it carries only mean anything relative to the Interner session that
// produced them (see payload's doc comment).
func Load(dir, name, sourceText string, interner *source.Interner) (*Entry, error) {
	path := PathFor(dir, name)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrMiss
	}

	r := bytes.NewReader(data)

	h, err := unmarshalHeader(r)
	if err != nil || !h.IsCompatible() {
		log.WithField("path", path).Debug("cache entry header incompatible or corrupt")

		return nil, ErrMiss
	}

	if h.SourceHash != HashSource(sourceText) {
		log.WithField("path", path).Debug("cache entry stale: source hash mismatch")

		return nil, ErrMiss
	}

	var p payload
	if err := gob.NewDecoder(r).Decode(&p); err != nil {
		log.WithField("path", path).WithError(err).Warn("cache entry payload corrupt")

		return nil, ErrMiss
	}

	remapNames(p.Module, interner.Remap(p.Names))

	log.WithField("path", path).Debug("bytecode cache hit")

	return &Entry{Module: p.Module, Exports: p.Exports, Imports: p.Imports}, nil
}

// remapNames rewrites every source.Name operand in mod's instructions
// through table (as produced by source.Interner.Remap). Name(0) is the
// sentinel for "no name" (see bytecode.Instr.Name's doc comment) and is
// left untouched whether or not it happens to be in range.
func remapNames(mod *bytecode.Module, table []source.Name) {
	for _, fn := range mod.Funcs {
		for i := range fn.Code {
			instr := &fn.Code[i]

			if instr.Name != 0 && int(instr.Name) < len(table) {
				instr.Name = table[instr.Name]
			}

			for j, n := range instr.Names {
				if n != 0 && int(n) < len(table) {
					instr.Names[j] = table[n]
				}
			}
		}
	}
}

// Clean removes every *.spwnc file directly under dir (spwnc cache clean).
func Clean(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	} else if err != nil {
		return 0, err
	}

	removed := 0

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".spwnc" {
			continue
		}

		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return removed, err
		}

		removed++
	}

	return removed, nil
}
