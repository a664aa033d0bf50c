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

// Package graph models the emitted target-graph: a multimap from group id
// to the triggers that live in it, each carrying an object-parameter map
// keyed by small integer parameter ids, ready for internal/optimizer's
// passes and internal/graph.Encode's final serialization: a
// handle-indexed collection with role tags for trigger/object emission.
package graph

import "sort"

// Role classifies a trigger for dead-code/coalescing purposes (spec.md
// §4.6): Spawn triggers only route activation to another group; Func
// triggers are the fixed builtin-function object ids a level editor
// interprets specially; everything else is Output (has some observable
// editor effect).
type Role int

// Trigger roles.
const (
	RoleOutput Role = iota
	RoleSpawn
	RoleFunc
)

// SpawnObjectID is the well-known object id of a spawn trigger in the
// target editor.
const SpawnObjectID = 1268

// funcObjectIDs are the fixed object ids spec.md §4.6 calls out as always
// having role Func regardless of their parameters.
var funcObjectIDs = map[int]bool{1595: true, 1611: true, 1811: true, 1815: true, 1812: true}

// RoleOf derives a trigger's role from its object id and whether it carries
// the "HD" (hold) flag that demotes a would-be spawn trigger to Output.
func RoleOf(objID int, hd bool) Role {
	if funcObjectIDs[objID] {
		return RoleFunc
	}

	if objID == SpawnObjectID && !hd {
		return RoleSpawn
	}

	return RoleOutput
}

// ParamKind discriminates the shape of one trigger parameter value.
type ParamKind int

// Parameter value kinds, matching spec.md §6's emitted-artifact encoding
// rules.
const (
	ParamNumber ParamKind = iota
	ParamBool
	ParamGroup // a single target-graph id (group/channel/block/item)
	ParamGroupList
	ParamEpsilonDelay
	ParamRaw // an already-final string, used for anything the optimizer doesn't need to interpret
)

// Param is one (kind-tagged) parameter value.
type Param struct {
	Kind   ParamKind
	Num    float64
	Bool   bool
	Group  int
	Groups []int
	Raw    string
}

// Trigger is one emitted target-graph object. GroupID is the group it
// lives "in" (activates under); Params holds the (parameter id -> value)
// pairs the object carries besides its ObjectID (a separate field, which
// Encode writes as parameter 1), including
// its Target group (parameter 51 in the real target format; spwnc keeps
// the id implementation-defined and only cares about which parameter(s)
// reference other groups, see TargetParam).
type Trigger struct {
	ObjectID int
	GroupID  int
	Params   map[int]Param
	Order    float64
	HD       bool
	Deleted  bool

	// ConnectionsIn / NonSpawnIn are recomputed by the optimizer's Network
	// Clean pass (spec.md §4.6 pass 1) and consumed by later passes.
	ConnectionsIn  int
	NonSpawnIn     int
}

// TargetParam is the parameter id spec.md §4.6 calls "Target": the group a
// Spawn/Func trigger routes activation to. Output triggers may also carry
// one (e.g. a toggle trigger targeting another group) without being Spawn.
const TargetParam = 51

// DelayParam carries a Spawn trigger's activation delay in seconds.
const DelayParam = 63

// ToggleGroupParam is consulted by the group-toggling pass (SPEC_FULL.md
// §6.6) to detect conflicting inbound spawn connections.
const ToggleGroupParam = 56

// Role reports this trigger's role, derived from its object id and HD flag.
func (t *Trigger) Role() Role { return RoleOf(t.ObjectID, t.HD) }

// Target returns the group this trigger routes to and whether it has one.
func (t *Trigger) Target() (int, bool) {
	p, ok := t.Params[TargetParam]
	if !ok || p.Kind != ParamGroup {
		return 0, false
	}

	return p.Group, true
}

// Delay returns this trigger's activation delay in seconds (0 if absent).
func (t *Trigger) Delay() float64 {
	p, ok := t.Params[DelayParam]
	if !ok {
		return 0
	}

	return p.Num
}

// Graph is the whole emitted trigger multimap plus every object's owning
// group, built by internal/vm and mutated in place by internal/optimizer.
type Graph struct {
	Groups map[int][]*Trigger

	// StartGroups are the reserved entry points dead-code elimination DFS-
	// walks from (spec.md §4.6 pass 2): typically group 0, the program's
	// top-level execution group.
	StartGroups []int

	// Reserved marks groups the optimizer must never rename away (object/
	// trigger groups the user referenced by a specific literal id, plus
	// every StartGroup).
	Reserved map[int]bool
}

// New creates an empty Graph with the given start groups already marked
// reserved.
func New(startGroups ...int) *Graph {
	g := &Graph{
		Groups:      make(map[int][]*Trigger),
		StartGroups: append([]int{}, startGroups...),
		Reserved:    make(map[int]bool),
	}

	for _, s := range startGroups {
		g.Reserved[s] = true
	}

	return g
}

// Add appends t to its owning group's trigger list.
func (g *Graph) Add(t *Trigger) {
	g.Groups[t.GroupID] = append(g.Groups[t.GroupID], t)
}

// AllGroups returns every group id with at least one trigger, sorted, for
// deterministic pass iteration order.
func (g *Graph) AllGroups() []int {
	ids := make([]int, 0, len(g.Groups))
	for id := range g.Groups {
		ids = append(ids, id)
	}

	sort.Ints(ids)

	return ids
}

// RemoveDeleted compacts every group's trigger list, dropping Deleted
// entries (spec.md §4.6 pass 1's "Remove deleted triggers").
func (g *Graph) RemoveDeleted() {
	for id, triggers := range g.Groups {
		kept := triggers[:0]

		for _, t := range triggers {
			if !t.Deleted {
				kept = append(kept, t)
			}
		}

		if len(kept) == 0 {
			delete(g.Groups, id)
		} else {
			g.Groups[id] = kept
		}
	}
}

// Rename rewrites every Group/GroupList parameter across the whole graph
// (including each trigger's own GroupID) that points at `from` to point at
// `to` instead, per spec.md §4.6 pass 3's "apply the accumulated rename map
// over every object-parameter map in a single pass".
func (g *Graph) Rename(renames map[int]int) {
	resolve := func(id int) int {
		seen := map[int]bool{}
		for {
			to, ok := renames[id]
			if !ok || seen[id] {
				return id
			}
			seen[id] = true
			id = to
		}
	}

	newGroups := make(map[int][]*Trigger, len(g.Groups))

	for _, triggers := range g.Groups {
		for _, t := range triggers {
			for pid, p := range t.Params {
				switch p.Kind {
				case ParamGroup:
					p.Group = resolve(p.Group)
				case ParamGroupList:
					for i, gv := range p.Groups {
						p.Groups[i] = resolve(gv)
					}
				}
				t.Params[pid] = p
			}

			t.GroupID = resolve(t.GroupID)
			newGroups[t.GroupID] = append(newGroups[t.GroupID], t)
		}
	}

	g.Groups = newGroups
}
