// Package hook implements the HookRegistry: a priority- and
// dependency-ordered alter/invoke pipeline (spec §4.3).
//
// Grounded on forbearing-gst's model.Base hook method surface
// (CreateBefore/CreateAfter/UpdateBefore/UpdateAfter/DeleteBefore/
// DeleteAfter in model/model.go) for the lifecycle-hook naming
// convention (entity:presave, <entity>:presave, ...), and reuses
// internal/ordering -- the same deterministic composite signal.Bus
// uses -- since spec §4.3 states hook ordering follows "the same
// deterministic composite."
package hook

import (
	"context"
	"sync"

	"github.com/forbearing/admincore/internal/ordering"
	"github.com/forbearing/admincore/kerrors"
	"github.com/forbearing/admincore/metrics"
	"github.com/forbearing/admincore/types"
)

// InvokeContext is passed to invoke handlers. Handlers may call
// PreventDefault/StopPropagation; PreventDefault only sets a flag the
// caller must consult (spec §4.3: "preventDefault sets a flag the
// caller must consult").
type InvokeContext struct {
	Data any

	mu          sync.Mutex
	prevented   bool
	propagation bool
}

// PreventDefault marks the context as having had its default action
// vetoed.
func (c *InvokeContext) PreventDefault() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prevented = true
}

// DefaultPrevented reports whether PreventDefault was called.
func (c *InvokeContext) DefaultPrevented() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prevented
}

// StopPropagation halts the remaining handlers in the current Invoke
// chain after the current handler returns.
func (c *InvokeContext) StopPropagation() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.propagation = true
}

func (c *InvokeContext) stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.propagation
}

// InvokeHandler runs for side effects and may return an error to abort
// the remaining chain (spec §4.3: "handlers may throw to abort the
// chain").
type InvokeHandler func(ctx context.Context, hctx *InvokeContext) error

// AlterHandler receives the current data and returns the new data for
// the next handler to see. Returning (nil, false) means "no change"
// (spec §4.3: "Return of undefined means no change").
type AlterHandler func(ctx context.Context, data any) (any, bool, error)

// Options configure a single registration: the same Priority/ID/After
// ordering fields as signal.Options (same ordering composite), without
// its Once flag.
type Options struct {
	Priority int
	ID       string
	After    []string
}

type invokeReg struct {
	handler InvokeHandler
	opts    Options
	seq     uint64
}

type alterReg struct {
	handler AlterHandler
	opts    Options
	seq     uint64
}

// Registry is the HookRegistry.
type Registry struct {
	mu     sync.RWMutex
	invoke map[string][]*invokeReg
	alter  map[string][]*alterReg
	seq    uint64
	log    types.Logger
}

// New creates an empty Registry. log may be nil.
func New(log types.Logger) *Registry {
	if log == nil {
		log = types.NopLogger{}
	}
	return &Registry{
		invoke: make(map[string][]*invokeReg),
		alter:  make(map[string][]*alterReg),
		log:    log,
	}
}

// Unregister removes a prior registration.
type Unregister func()

// OnInvoke registers an invoke (lifecycle) handler for name.
func (r *Registry) OnInvoke(name string, handler InvokeHandler, opts ...Options) Unregister {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.Priority == 0 {
		o.Priority = ordering.PriorityNormal
	}

	r.mu.Lock()
	r.seq++
	reg := &invokeReg{handler: handler, opts: o, seq: r.seq}
	r.invoke[name] = append(r.invoke[name], reg)
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		list := r.invoke[name]
		for i, cur := range list {
			if cur == reg {
				r.invoke[name] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

// OnAlter registers an alter (pipeline) handler for name.
func (r *Registry) OnAlter(name string, handler AlterHandler, opts ...Options) Unregister {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.Priority == 0 {
		o.Priority = ordering.PriorityNormal
	}

	r.mu.Lock()
	r.seq++
	reg := &alterReg{handler: handler, opts: o, seq: r.seq}
	r.alter[name] = append(r.alter[name], reg)
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		list := r.alter[name]
		for i, cur := range list {
			if cur == reg {
				r.alter[name] = append(list[:i:i], list[i+1:]...)
				return
			}
		}
	}
}

func orderInvoke(list []*invokeReg, log types.Logger, name string) []*invokeReg {
	if len(list) <= 1 {
		return list
	}
	entries := make([]ordering.Entry, len(list))
	for i, reg := range list {
		entries[i] = ordering.Entry{ID: reg.opts.ID, Priority: reg.opts.Priority, After: reg.opts.After, Seq: reg.seq}
	}
	ordered, err := ordering.Sort(entries)
	if err != nil {
		log.Warnf("hook: ordering failed for invoke %q: %v", name, err)
		return list
	}
	bySeq := make(map[uint64]*invokeReg, len(list))
	for _, reg := range list {
		bySeq[reg.seq] = reg
	}
	out := make([]*invokeReg, len(ordered))
	for i, e := range ordered {
		out[i] = bySeq[e.Seq]
	}
	return out
}

func orderAlter(list []*alterReg, log types.Logger, name string) []*alterReg {
	if len(list) <= 1 {
		return list
	}
	entries := make([]ordering.Entry, len(list))
	for i, reg := range list {
		entries[i] = ordering.Entry{ID: reg.opts.ID, Priority: reg.opts.Priority, After: reg.opts.After, Seq: reg.seq}
	}
	ordered, err := ordering.Sort(entries)
	if err != nil {
		log.Warnf("hook: ordering failed for alter %q: %v", name, err)
		return list
	}
	bySeq := make(map[uint64]*alterReg, len(list))
	for _, reg := range list {
		bySeq[reg.seq] = reg
	}
	out := make([]*alterReg, len(ordered))
	for i, e := range ordered {
		out[i] = bySeq[e.Seq]
	}
	return out
}

// Invoke runs every handler registered for name, in deterministic
// order, passing data as hctx.Data. It stops and returns the first
// handler error (aborting the chain, spec §4.3/§7: "invoke handler
// exceptions abort the chain" -- the Open Question is resolved in
// favor of this strict behavior per SPEC_FULL §4). It also stops early
// if a handler calls hctx.StopPropagation().
func (r *Registry) Invoke(ctx context.Context, name string, data any) (*InvokeContext, error) {
	if metrics.HookInvoked != nil {
		metrics.HookInvoked.WithLabelValues(name, "invoke").Inc()
	}
	r.mu.RLock()
	list := append([]*invokeReg(nil), r.invoke[name]...)
	r.mu.RUnlock()

	hctx := &InvokeContext{Data: data}
	if len(list) == 0 {
		return hctx, nil
	}
	for _, reg := range orderInvoke(list, r.log, name) {
		if err := reg.handler(ctx, hctx); err != nil {
			return hctx, kerrors.Wrap(err, kerrors.KindOf(err), "hook: invoke("+name+") aborted")
		}
		if hctx.stopped() {
			break
		}
	}
	return hctx, nil
}

// Alter runs every handler registered for name in order, threading the
// data through each: the first handler sees data, each subsequent
// handler sees the prior handler's returned value (or the unchanged
// value if it returned changed=false). A handler error aborts the
// pipeline and returns the last value seen.
func (r *Registry) Alter(ctx context.Context, name string, data any) (any, error) {
	if metrics.HookInvoked != nil {
		metrics.HookInvoked.WithLabelValues(name, "alter").Inc()
	}
	r.mu.RLock()
	list := append([]*alterReg(nil), r.alter[name]...)
	r.mu.RUnlock()

	if len(list) == 0 {
		return data, nil
	}
	current := data
	for _, reg := range orderAlter(list, r.log, name) {
		next, changed, err := reg.handler(ctx, current)
		if err != nil {
			return current, kerrors.Wrap(err, kerrors.KindOf(err), "hook: alter("+name+") aborted")
		}
		if changed {
			current = next
		}
	}
	return current, nil
}

// HasInvoke reports whether any invoke handlers are registered for name.
func (r *Registry) HasInvoke(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.invoke[name]) > 0
}

// HasAlter reports whether any alter handlers are registered for name.
func (r *Registry) HasAlter(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.alter[name]) > 0
}
