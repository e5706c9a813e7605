// Package ordering implements the deterministic priority + topological
// "after" + registration-order composite used by both the SignalBus and
// the HookRegistry (spec: "the same deterministic composite").
package ordering

import (
	"sort"

	"github.com/forbearing/admincore/kerrors"
)

// Priority constants shared by SignalBus.on and HookRegistry registration.
const (
	PriorityFirst  = 100
	PriorityHigh   = 75
	PriorityNormal = 50
	PriorityLow    = 25
	PriorityLast   = 0
)

// Entry is anything participating in the ordered composite: it has an
// id (possibly empty, meaning "not addressable by after"), a priority,
// a set of ids it must run after, and a registration sequence number.
type Entry struct {
	ID       string
	Priority int
	After    []string
	Seq      uint64
}

// Sort returns entries ordered by (1) descending priority, (2)
// topological order w.r.t. After constraints among entries that declare
// an ID, (3) registration order. It returns an error tagged
// kerrors.InvalidInput if the After constraints form a cycle.
func Sort(entries []Entry) ([]Entry, error) {
	n := len(entries)
	if n <= 1 {
		out := make([]Entry, n)
		copy(out, entries)
		return out, nil
	}

	// index entries by id for dependency lookup; duplicate/empty ids are
	// simply not addressable as an "after" target.
	byID := make(map[string]int, n)
	for i, e := range entries {
		if e.ID != "" {
			byID[e.ID] = i
		}
	}

	// Build an adjacency: edge dep -> i means i runs after dep.
	indeg := make([]int, n)
	adj := make([][]int, n)
	for i, e := range entries {
		for _, dep := range e.After {
			j, ok := byID[dep]
			if !ok || j == i {
				continue
			}
			adj[j] = append(adj[j], i)
			indeg[i]++
		}
	}

	// Layered Kahn's algorithm: each round takes the *entire* zero-indegree
	// batch, sorts that whole batch by (priority desc, seq asc), and only
	// then decrements indegrees for the next round. Picking one node at a
	// time and re-sorting the ready set every step would let a node that
	// just became ready in round N get compared against nodes that were
	// already ready in round N-1 but hadn't been picked yet, which isn't
	// what "registration order" should mean for nodes unblocked later.
	done := make([]bool, n)
	order := make([]int, 0, n)

	for len(order) < n {
		var ready []int
		for i := 0; i < n; i++ {
			if !done[i] && indeg[i] == 0 {
				ready = append(ready, i)
			}
		}
		if len(ready) == 0 {
			return nil, kerrors.New(kerrors.InvalidInput, "ordering: cycle detected in after constraints")
		}
		sort.SliceStable(ready, func(a, b int) bool {
			ia, ib := ready[a], ready[b]
			if entries[ia].Priority != entries[ib].Priority {
				return entries[ia].Priority > entries[ib].Priority
			}
			return entries[ia].Seq < entries[ib].Seq
		})
		for _, idx := range ready {
			done[idx] = true
		}
		order = append(order, ready...)
		for _, idx := range ready {
			for _, j := range adj[idx] {
				indeg[j]--
			}
		}
	}

	out := make([]Entry, n)
	for i, idx := range order {
		out[i] = entries[idx]
	}
	return out, nil
}
