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

// Package source provides the primitive types shared by every stage of the
// pipeline: source spans, loaded files, and the string interner that
// canonicalises identifier and member-name text to small dense handles.
package source

import "fmt"

// Span identifies a half-open byte range [Start,End) within a single File.
type Span struct {
	start int
	end   int
	file  *File
}

// NewSpan constructs a span, checking that start <= end.
func NewSpan(file *File, start, end int) Span {
	if start > end {
		panic("invalid span")
	}

	return Span{start, end, file}
}

// Start returns the first byte index of this span.
func (s Span) Start() int { return s.start }

// End returns one past the final byte index of this span.
func (s Span) End() int { return s.end }

// File returns the file this span refers into, or nil for a synthetic span.
func (s Span) File() *File { return s.file }

// Covers returns true when this span fully contains other.
func (s Span) Covers(other Span) bool {
	return s.start <= other.start && other.end <= s.end
}

// To returns a span beginning at s and ending at the end of other, i.e. the
// smallest span covering both. Used to merge child spans up into parent AST
// node spans during parsing.
func (s Span) To(other Span) Span {
	return Span{min(s.start, other.start), max(s.end, other.end), s.file}
}

// Line1Col1 converts the start of this span to a 1-indexed (line, column)
// pair for diagnostic rendering.
func (s Span) Line1Col1() (line, col int) {
	if s.file == nil {
		return 0, 0
	}

	return s.file.lineCol(s.start)
}

func (s Span) String() string {
	if s.file == nil {
		return fmt.Sprintf("%d:%d", s.start, s.end)
	}

	line, col := s.Line1Col1()

	return fmt.Sprintf("%s:%d:%d", s.file.Path, line, col)
}

// File is a loaded source file: its path, its full text, and a precomputed
// table of line-start offsets used to translate byte offsets to line/column
// pairs lazily (only when a diagnostic actually needs to be rendered).
type File struct {
	Path string
	Text string

	lineStarts []int
}

// NewFile constructs a File and indexes its newline offsets.
func NewFile(path, text string) *File {
	f := &File{Path: path, Text: text, lineStarts: []int{0}}
	for i, r := range text {
		if r == '\n' {
			f.lineStarts = append(f.lineStarts, i+1)
		}
	}

	return f
}

// Span builds a Span over this file.
func (f *File) Span(start, end int) Span { return NewSpan(f, start, end) }

func (f *File) lineCol(offset int) (line, col int) {
	// binary search would be overkill for typical file sizes; linear scan
	// keeps this simple and it is only called when rendering a diagnostic.
	lo, hi := 0, len(f.lineStarts)-1

	for lo < hi {
		mid := (lo + hi + 1) / 2
		if f.lineStarts[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	return lo + 1, offset - f.lineStarts[lo] + 1
}
