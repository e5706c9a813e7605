// Package deferred implements DeferredRegistry: a keyed map of
// resolvable promises where `await` may precede `queue` (spec §4.1).
//
// New code -- no teacher package implements a promise/deferred
// registry. The concurrency shape (map keyed by string, guarded by a
// mutex, state machine per key) is grounded on
// r3e-network-service_layer's system/core/bus.go PermissionManager
// (map[string]BusPermissions guarded by sync.RWMutex); at-most-once
// execution per key uses golang.org/x/sync/singleflight per
// SPEC_FULL.md §2.
package deferred

import (
	"context"
	"sync"

	"github.com/forbearing/admincore/types"
	"golang.org/x/sync/singleflight"
)

// Status is the deferred entry's lifecycle state (spec §9: "Created →
// Running → Completed|Failed").
type Status string

const (
	StatusCreated   Status = "created"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type entry struct {
	status Status
	value  any
	err    error
	ch     chan struct{} // closed when settled
}

func newEntry() *entry {
	return &entry{status: StatusCreated, ch: make(chan struct{})}
}

// Signaler is the subset of signal.Bus the registry emits diagnostics
// through (spec §4.1: "deferred:started", "deferred:completed",
// "deferred:failed").
type Signaler interface {
	Emit(ctx context.Context, name string, payload any)
}

// Registry is the DeferredRegistry.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	group   singleflight.Group
	signals Signaler
	log     types.Logger
}

// Option configures New.
type Option func(*Registry)

// WithSignals attaches a SignalBus for lifecycle diagnostics.
func WithSignals(s Signaler) Option { return func(r *Registry) { r.signals = s } }

// WithLogger attaches a logger.
func WithLogger(l types.Logger) Option { return func(r *Registry) { r.log = l } }

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{entries: make(map[string]*entry), log: types.NopLogger{}}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Registry) getOrCreate(key string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		e = newEntry()
		r.entries[key] = e
	}
	return e
}

// Await returns an existing pending/settled entry's eventual value, or
// creates a fresh pending entry for key and waits on it.
func (r *Registry) Await(ctx context.Context, key string) (any, error) {
	e := r.getOrCreate(key)
	select {
	case <-e.ch:
		return e.value, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Queue is idempotent per key: the first caller's executor runs
// (at-most-once, via singleflight); concurrent/subsequent callers
// observe the same settlement, including a prior Await's pending
// promise, which Queue fulfills (spec: "await before queue").
func (r *Registry) Queue(ctx context.Context, key string, executor func(ctx context.Context) (any, error)) (any, error) {
	e := r.getOrCreate(key)

	r.mu.Lock()
	alreadyTerminal := e.status == StatusCompleted || e.status == StatusFailed
	alreadyRunning := e.status == StatusRunning
	if e.status == StatusCreated {
		e.status = StatusRunning
	}
	r.mu.Unlock()

	if alreadyTerminal || alreadyRunning {
		<-e.ch
		return e.value, e.err
	}

	r.emit(ctx, "deferred:started", map[string]any{"key": key})
	val, err, _ := r.group.Do(key, func() (any, error) {
		return executor(ctx)
	})

	r.mu.Lock()
	e.value, e.err = val, err
	if err != nil {
		e.status = StatusFailed
		r.group.Forget(key)
	} else {
		e.status = StatusCompleted
	}
	close(e.ch)
	r.mu.Unlock()

	if err != nil {
		r.emit(ctx, "deferred:failed", map[string]any{"key": key, "error": err})
	} else {
		r.emit(ctx, "deferred:completed", map[string]any{"key": key, "value": val})
	}
	return val, err
}

// Resolve fulfills an externally-owned promise with value.
func (r *Registry) Resolve(ctx context.Context, key string, value any) {
	e := r.getOrCreate(key)
	r.mu.Lock()
	if e.status == StatusCompleted || e.status == StatusFailed {
		r.mu.Unlock()
		return
	}
	e.value = value
	e.status = StatusCompleted
	close(e.ch)
	r.mu.Unlock()
	r.emit(ctx, "deferred:completed", map[string]any{"key": key, "value": value})
}

// Reject fulfills an externally-owned promise with an error.
func (r *Registry) Reject(ctx context.Context, key string, err error) {
	e := r.getOrCreate(key)
	r.mu.Lock()
	if e.status == StatusCompleted || e.status == StatusFailed {
		r.mu.Unlock()
		return
	}
	e.err = err
	e.status = StatusFailed
	close(e.ch)
	r.mu.Unlock()
	r.emit(ctx, "deferred:failed", map[string]any{"key": key, "error": err})
}

func (r *Registry) emit(ctx context.Context, name string, payload any) {
	if r.signals == nil {
		return
	}
	r.signals.Emit(ctx, name, payload)
}

// Status returns the current lifecycle state for key, or "" if unseen.
func (r *Registry) Status(key string) Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok {
		return ""
	}
	return e.status
}

// IsSettled reports whether key has reached Completed or Failed.
func (r *Registry) IsSettled(key string) bool {
	s := r.Status(key)
	return s == StatusCompleted || s == StatusFailed
}

// Has reports whether key has ever been seen.
func (r *Registry) Has(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[key]
	return ok
}

// Value returns the settled value for key (nil if unsettled or failed).
func (r *Registry) Value(key string) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	if !ok || e.status != StatusCompleted {
		return nil
	}
	return e.value
}

// Keys returns every key ever seen.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.entries))
	for k := range r.entries {
		out = append(out, k)
	}
	return out
}

// Entries returns a snapshot of {key: status}.
func (r *Registry) Entries() map[string]Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Status, len(r.entries))
	for k, e := range r.entries {
		out[k] = e.status
	}
	return out
}

// Clear removes key entirely, allowing a fresh Await/Queue cycle. This
// is the only way to retry after a Failed settlement (spec §4.1).
func (r *Registry) Clear(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, key)
	r.group.Forget(key)
}

// ClearAll removes every entry.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = make(map[string]*entry)
}
