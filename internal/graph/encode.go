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
package graph

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

// GroupParam is the parameter id the target editor's own object-string
// format uses for "which group does this object activate under" (the real
// editor's own numbering, kept as a plain constant here since spwnc only
// needs to know it to serialize, never to interpret it further).
const GroupParam = 57

// FormatNumber renders a float the way spec.md §6 requires for the emitted
// artifact (and, by the same rule, for internal/optimizer's trigger-dedup
// canonicalization): integer form when rounding to the nearest integer
// introduces less than 0.001 of error, three-decimal fixed otherwise.
func FormatNumber(n float64) string {
	rounded := math.Round(n)
	if math.Abs(n-rounded) < 0.001 {
		return strconv.FormatInt(int64(rounded), 10)
	}

	return strconv.FormatFloat(n, 'f', 3, 64)
}

// Encode serializes every non-deleted trigger across every group to w, one
// line per object, each a comma-joined sequence of "paramID,value" pairs
// terminated by ";" (spec.md §6: "object separator ';'"; one object per
// line is this implementation's choice of "list separator", since spec.md
// leaves the exact line/record convention to the target format). Objects
// are written in (GroupID, Order) order so output is deterministic across
// runs of the same graph.
func Encode(w io.Writer, g *Graph) error {
	bw := bufio.NewWriter(w)

	type entry struct {
		gid int
		t   *Trigger
	}

	var entries []entry

	for _, gid := range g.AllGroups() {
		for _, t := range g.Groups[gid] {
			if t.Deleted {
				continue
			}

			entries = append(entries, entry{gid, t})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].gid != entries[j].gid {
			return entries[i].gid < entries[j].gid
		}

		return entries[i].t.Order < entries[j].t.Order
	})

	for _, e := range entries {
		if err := encodeTrigger(bw, e.t); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func encodeTrigger(w *bufio.Writer, t *Trigger) error {
	var b strings.Builder

	fmt.Fprintf(&b, "1,%d,%d,%d", t.ObjectID, GroupParam, t.GroupID)

	ids := make([]int, 0, len(t.Params))
	for pid := range t.Params {
		ids = append(ids, pid)
	}

	sort.Ints(ids)

	for _, pid := range ids {
		fmt.Fprintf(&b, ",%d,%s", pid, EncodeParam(t.Params[pid]))
	}

	b.WriteString(";\n")

	_, err := w.WriteString(b.String())

	return err
}

// EncodeParam renders one parameter value using spec.md §6's emitted-artifact
// encoding rules; internal/optimizer's trigger-dedup pass reuses this exact
// rendering as its parameter canonicalization, since two parameters that
// serialize identically are indistinguishable to the target editor.
func EncodeParam(p Param) string {
	switch p.Kind {
	case ParamNumber:
		return FormatNumber(p.Num)
	case ParamBool:
		if p.Bool {
			return "1"
		}

		return "0"
	case ParamGroup:
		return strconv.Itoa(p.Group)
	case ParamGroupList:
		ids := make([]string, len(p.Groups))
		for i, gv := range p.Groups {
			ids[i] = strconv.Itoa(gv)
		}

		return strings.Join(ids, ".")
	case ParamEpsilonDelay:
		return "0.050"
	default:
		return p.Raw
	}
}
