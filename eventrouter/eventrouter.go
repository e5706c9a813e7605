// Package eventrouter implements EventRouter: static signal-to-signal
// routing declared at boot, topologically validated against cycles
// (spec §4.8).
//
// New code: no teacher package performs static graph routing over the
// SignalBus. Cycle detection is a stdlib DFS (no pack dependency
// performs generic topological sort over an adjacency map; see
// DESIGN.md) since the pack's graph-shaped packages (ds/tree,
// ds/mapset) are fixed-shape data structures, not generic graph
// algorithms.
package eventrouter

import (
	"context"

	"github.com/forbearing/admincore/kerrors"
	"github.com/forbearing/admincore/orchestrator"
	"github.com/forbearing/admincore/signal"
)

// Transform is a deterministic pure function applied to a routed
// payload before it reaches the destination signal (spec §4.8
// "transform(payload) → payload").
type Transform func(payload any) any

// Callback is the alternative destination form: a direct side effect
// rather than a re-emission (spec §4.8 "(payload, {signals,
// orchestrator}) → void").
type Callback func(ctx context.Context, payload any, signals *signal.Bus, orch *orchestrator.Orchestrator)

// Destination is one routing target for a source signal. Exactly one
// of Signal or Callback should be set; Transform only applies to the
// Signal form.
type Destination struct {
	Signal    string
	Transform Transform
	Callback  Callback
}

// Routes maps a source signal name to its destinations.
type Routes map[string][]Destination

// Router wires Routes onto a signal.Bus at construction time.
type Router struct {
	routes  Routes
	signals *signal.Bus
	orch    *orchestrator.Orchestrator
	unsubs  []signal.Unsubscribe
}

// New validates routes for cycles, then subscribes every source
// signal on bus, dispatching to its destinations in declaration order
// (spec §4.8 "At construction, the routing graph is topologically
// sorted; cycles cause a boot failure").
func New(routes Routes, bus *signal.Bus, orch *orchestrator.Orchestrator) (*Router, error) {
	if err := detectCycle(routes); err != nil {
		return nil, err
	}
	r := &Router{routes: routes, signals: bus, orch: orch}
	for source, dests := range routes {
		dests := dests
		unsub := bus.On(source, func(ctx context.Context, name string, payload any) {
			r.dispatch(ctx, dests, payload)
		})
		r.unsubs = append(r.unsubs, unsub)
	}
	return r, nil
}

func (r *Router) dispatch(ctx context.Context, dests []Destination, payload any) {
	for _, d := range dests {
		switch {
		case d.Callback != nil:
			d.Callback(ctx, payload, r.signals, r.orch)
		case d.Signal != "":
			out := payload
			if d.Transform != nil {
				out = d.Transform(payload)
			}
			r.signals.Emit(ctx, d.Signal, out)
		}
	}
}

// Close unsubscribes every route binding.
func (r *Router) Close() {
	for _, unsub := range r.unsubs {
		unsub()
	}
	r.unsubs = nil
}

// detectCycle walks the source→signal-destination graph (Callback
// destinations are leaves, not edges) via stdlib DFS, returning a
// kerrors.Cycle-tagged error naming the first cycle found.
func detectCycle(routes Routes) error {
	const (
		white = iota
		gray
		black
	)
	state := make(map[string]int, len(routes))
	var path []string

	var visit func(node string) error
	visit = func(node string) error {
		switch state[node] {
		case gray:
			return kerrors.Newf(kerrors.Cycle, "eventrouter: cycle detected: %v -> %s", append(append([]string{}, path...), node), node)
		case black:
			return nil
		}
		state[node] = gray
		path = append(path, node)
		for _, dest := range routes[node] {
			if dest.Signal == "" {
				continue
			}
			if _, isRouted := routes[dest.Signal]; isRouted {
				if err := visit(dest.Signal); err != nil {
					return err
				}
			}
		}
		path = path[:len(path)-1]
		state[node] = black
		return nil
	}

	for node := range routes {
		if state[node] == white {
			if err := visit(node); err != nil {
				return err
			}
		}
	}
	return nil
}
