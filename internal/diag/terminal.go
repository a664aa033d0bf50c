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
package diag

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"
)

// ansi color codes used by RenderTerminal, off entirely when the output
// isn't a terminal (see IsColorTerminal).
const (
	ansiRed    = "\x1b[31;1m"
	ansiYellow = "\x1b[33m"
	ansiReset  = "\x1b[0m"

	defaultWrapWidth = 100
	minWrapWidth     = 40
)

// IsColorTerminal reports whether fd is a terminal spwnc should colorize
// output for, following the usual "only colorize a real tty" convention.
func IsColorTerminal(fd int) bool {
	return term.IsTerminal(fd)
}

// wrapWidth asks the terminal attached to fd for its column width, falling
// back to defaultWrapWidth when fd isn't a terminal (piped/redirected
// output) or the ioctl fails.
func wrapWidth(fd int) int {
	w, _, err := term.GetSize(fd)
	if err != nil || w < minWrapWidth {
		return defaultWrapWidth
	}

	return w
}

// RenderTerminal renders d to w, wrapping its message to fit fd's terminal
// width and, when fd is a real tty, colorizing the kind/location header -
// spec.md §6 leaves diagnostic output format unspecified; this is spwnc's
// CLI-facing default (internal/diag.Render remains the plain, uncolored,
// unwrapped form used by tests and non-interactive consumers).
func RenderTerminal(w io.Writer, d *Diagnostic, fd int) {
	color := IsColorTerminal(fd)
	width := wrapWidth(fd)

	header := fmt.Sprintf("error[%s]", d.Kind)
	if color {
		header = ansiRed + header + ansiReset
	}

	fmt.Fprintf(w, "%s: %s\n", header, wrap(d.Message, width))
	fmt.Fprintf(w, "  --> %s\n", d.Primary)

	for _, s := range d.Secondary {
		fmt.Fprintf(w, "  --> %s: %s\n", s.Span, wrap(s.Message, width))
	}

	if d.Note != "" {
		note := "note:"
		if color {
			note = ansiYellow + note + ansiReset
		}

		fmt.Fprintf(w, "  %s %s\n", note, wrap(d.Note, width))
	}
}

// wrap breaks s into width-ish columns on word boundaries; a single word
// longer than width is left intact rather than broken mid-word.
func wrap(s string, width int) string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return s
	}

	var b strings.Builder

	lineLen := 0

	for i, word := range words {
		if i > 0 {
			if lineLen+1+len(word) > width {
				b.WriteString("\n      ")
				lineLen = 0
			} else {
				b.WriteByte(' ')
				lineLen++
			}
		}

		b.WriteString(word)
		lineLen += len(word)
	}

	return b.String()
}
