// Package signal implements the SignalBus: colon-delimited wildcard
// pub/sub with deterministic handler ordering (spec §4.2).
//
// Grounded on forbearing-gst's sibling r3e-network-service_layer
// system/core/bus.go Bus type (map[string][]handler guarded by a
// mutex, snapshot-then-dispatch), adapted from concurrent goroutine
// fan-out to synchronous in-caller-goroutine dispatch because the spec
// requires deterministic per-emission handler ordering rather than
// concurrent fan-out.
package signal

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/forbearing/admincore/internal/ordering"
	"github.com/forbearing/admincore/kerrors"
	"github.com/forbearing/admincore/metrics"
	"github.com/forbearing/admincore/types"
)

// Handler receives an emitted payload. Handlers may be long-running;
// their completion is never awaited by emit.
type Handler func(ctx context.Context, name string, payload any)

// Options configure a single registration.
type Options struct {
	Priority int      // defaults to ordering.PriorityNormal (50)
	ID       string   // optional, required to be an "after" target
	After    []string // ids this handler must run after, among all handlers matching the same emission
	Once     bool
}

type subscription struct {
	pattern string
	handler Handler
	opts    Options
	seq     uint64
}

// Bus is the SignalBus implementation.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]*subscription
	seq  uint64
	log  types.Logger
}

// New creates an empty Bus. log may be nil (falls back to a no-op logger).
func New(log types.Logger) *Bus {
	if log == nil {
		log = types.NopLogger{}
	}
	return &Bus{subs: make(map[string][]*subscription), log: log}
}

// Unsubscribe removes a prior registration.
type Unsubscribe func()

// On registers handler for name (an exact pattern, e.g. "books:*",
// "*:created", "**", or a concrete "domain:action"). Returns an
// unsubscribe function.
func (b *Bus) On(name string, handler Handler, opts ...Options) Unsubscribe {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.Priority == 0 {
		o.Priority = ordering.PriorityNormal
	}

	b.mu.Lock()
	b.seq++
	sub := &subscription{pattern: name, handler: handler, opts: o, seq: b.seq}
	b.subs[name] = append(b.subs[name], sub)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[name]
		for i, s := range list {
			if s == sub {
				b.subs[name] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
	}
}

// Off removes handlers registered for the exact pattern name. If handler
// is nil, all handlers for that pattern are removed. Func values cannot
// be compared, so a non-nil handler matches no registration and the
// pattern's handlers stay in place.
func (b *Bus) Off(name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if handler == nil {
		delete(b.subs, name)
		return
	}
	list := b.subs[name]
	out := list[:0]
	for _, s := range list {
		// Handlers aren't comparable, so no registration matches handler
		// and every one is kept; Off(name, nil) is the path that removes.
		out = append(out, s)
	}
	b.subs[name] = out
}

// OffAll clears subscriptions. If name is "", all patterns are cleared.
func (b *Bus) OffAll(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if name == "" {
		b.subs = make(map[string][]*subscription)
		return
	}
	delete(b.subs, name)
}

// matches reports whether pattern matches name under the event-name
// wildcard grammar: exact match, prefix "domain:*", suffix "*:action",
// and catch-all "**".
func matches(pattern, name string) bool {
	if pattern == "**" {
		return true
	}
	if pattern == name {
		return true
	}
	if strings.HasSuffix(pattern, ":*") {
		prefix := strings.TrimSuffix(pattern, "*")
		return strings.HasPrefix(name, prefix) && strings.Count(name[len(prefix):], ":") == 0
	}
	if strings.HasPrefix(pattern, "*:") {
		suffix := strings.TrimPrefix(pattern, "*")
		return strings.HasSuffix(name, suffix) && strings.Count(name[:len(name)-len(suffix)], ":") == 0
	}
	return false
}

// matchingSnapshot collects every subscription whose pattern matches
// name, then resolves them into the deterministic composite order.
func (b *Bus) matchingSnapshot(name string) []*subscription {
	b.mu.RLock()
	var all []*subscription
	for pattern, list := range b.subs {
		if matches(pattern, name) {
			all = append(all, list...)
		}
	}
	b.mu.RUnlock()

	if len(all) == 0 {
		return nil
	}

	entries := make([]ordering.Entry, len(all))
	for i, s := range all {
		entries[i] = ordering.Entry{ID: s.opts.ID, Priority: s.opts.Priority, After: s.opts.After, Seq: s.seq}
	}
	ordered, err := ordering.Sort(entries)
	if err != nil {
		// Ordering cycle among "after" ids: fall back to priority+seq
		// only, and surface the problem through the logger rather than
		// dropping handlers.
		b.log.Warnf("signal: ordering failed for %q: %v", name, err)
		sort.SliceStable(all, func(i, j int) bool {
			if all[i].opts.Priority != all[j].opts.Priority {
				return all[i].opts.Priority > all[j].opts.Priority
			}
			return all[i].seq < all[j].seq
		})
		return all
	}

	bySeq := make(map[uint64]*subscription, len(all))
	for _, s := range all {
		bySeq[s.seq] = s
	}
	out := make([]*subscription, len(ordered))
	for i, e := range ordered {
		out[i] = bySeq[e.Seq]
	}
	return out
}

// Emit synchronously fans out payload to every handler matching name,
// in deterministic order. Handler panics/errors never propagate to the
// emitter; they are reported via the "signal:handler:error" diagnostic
// emission instead (spec §4.2/§7).
func (b *Bus) Emit(ctx context.Context, name string, payload any) {
	if metrics.SignalEmitted != nil {
		metrics.SignalEmitted.WithLabelValues(name).Inc()
	}
	for _, s := range b.matchingSnapshot(name) {
		b.dispatch(ctx, s, name, payload)
		if s.opts.Once {
			b.unsubscribeOnce(s)
		}
	}
}

func (b *Bus) unsubscribeOnce(s *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.subs[s.pattern]
	for i, cur := range list {
		if cur == s {
			b.subs[s.pattern] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, s *subscription, name string, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.emitHandlerError(ctx, name, r)
		}
	}()
	s.handler(ctx, name, payload)
}

func (b *Bus) emitHandlerError(ctx context.Context, name string, cause any) {
	if name == "signal:handler:error" {
		// avoid infinite recursion if the error diagnostic itself panics.
		b.log.Errorf("signal: handler:error handler panicked: %v", cause)
		return
	}
	b.log.Warnf("signal: handler for %q panicked: %v", name, cause)
	for _, s := range b.matchingSnapshot("signal:handler:error") {
		b.dispatch(ctx, s, "signal:handler:error", map[string]any{"signal": name, "error": cause})
	}
}

// EmitEntity emits "<entity>:<action>" then the generic "entity:<action>"
// with payload {entity, data}, in that order (spec §4.2).
func (b *Bus) EmitEntity(ctx context.Context, entity, action string, data any) {
	payload := map[string]any{"entity": entity, "data": data}
	b.Emit(ctx, entity+":"+action, payload)
	b.Emit(ctx, "entity:"+action, payload)
}

// Once blocks until the next event matching name and returns its
// payload, or an error (tagged kerrors.Timeout) if timeout elapses first.
func (b *Bus) Once(ctx context.Context, name string, timeout time.Duration) (any, error) {
	ch := make(chan any, 1)
	var unsub Unsubscribe
	unsub = b.On(name, func(_ context.Context, _ string, payload any) {
		select {
		case ch <- payload:
		default:
		}
	}, Options{Once: true})
	defer unsub()

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case payload := <-ch:
		return payload, nil
	case <-timeoutCh:
		return nil, kerrors.New(kerrors.Timeout, "signal: once("+name+") timed out")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
