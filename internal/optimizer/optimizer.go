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

// Package optimizer implements the five trigger-graph optimization passes
// (spec.md §4.6): network clean, dead-code elimination, spawn-chain
// coalescing, trigger dedup, and (at the highest level) intraframe grouping.
// Each pass mutates a graph.Graph in place.
package optimizer

import (
	log "github.com/sirupsen/logrus"

	"github.com/spwn-lang/spwnc/internal/graph"
)

// Level selects how much of the pass pipeline runs: a single integer dial
// over an ordered pass list.
type Level int

// Optimization levels. Each level runs every pass at lower levels too.
const (
	LevelNone Level = iota
	LevelNetworkClean
	LevelDeadCode
	LevelCoalesceAndDedup
	LevelIntraframe
)

// Run applies every pass up to and including level, in spec.md §4.6's order.
// Coalescing and dedup interact (a coalesced rename can expose a fresh dedup
// opportunity and vice versa), so at LevelCoalesceAndDedup and above they run
// together to a joint fixed point rather than each running exactly once.
func Run(g *graph.Graph, level Level) {
	if level < LevelNetworkClean {
		return
	}

	log.WithField("level", level).Debug("running optimizer passes")

	NetworkClean(g)

	if level < LevelDeadCode {
		return
	}

	DeadCode(g)
	NetworkClean(g)

	if level < LevelCoalesceAndDedup {
		return
	}

	for i := 0; i < maxCoalesceDedupIterations; i++ {
		coalesced := SpawnCoalesce(g)
		NetworkClean(g)
		deduped := TriggerDedup(g)
		NetworkClean(g)

		if !coalesced && !deduped {
			break
		}
	}

	if level < LevelIntraframe {
		return
	}

	IntraframeGroup(g)
	NetworkClean(g)
}

// maxCoalesceDedupIterations bounds the coalesce/dedup fixed-point loop so a
// pathological graph cannot spin forever; in practice the loop converges in
// one or two iterations (spec.md §8 invariant 9 expects dedup alone to reach
// a fixed point on its second run).
const maxCoalesceDedupIterations = 16
