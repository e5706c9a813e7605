// Package orchestrator implements the Orchestrator: a central lazy
// registry of entity.Manager instances, injecting shared services and
// binding cache invalidation (spec §4.7).
//
// Grounded on forbearing-gst's service.Factory lazy
// construct-on-first-use registry (service/service.go's global
// factory map keyed by model name, building a *Service[M,REQ,RSP] on
// first Factory[M]() call and caching it) -- translated here from a
// generic-type-keyed factory to a name-keyed one, since entities are
// declared by name/config at runtime rather than by Go type parameter.
package orchestrator

import (
	"context"
	"sync"

	"github.com/forbearing/admincore/deferred"
	"github.com/forbearing/admincore/entity"
	"github.com/forbearing/admincore/hook"
	"github.com/forbearing/admincore/kerrors"
	"github.com/forbearing/admincore/signal"
)

// Manager is the subset of entity.Manager the Orchestrator depends on,
// so it can register managers built outside the entity package too
// (e.g. test doubles).
type Manager interface {
	Name() string
	OnRegister(signals *signal.Bus, hooks *hook.Registry, auth entity.AuthAdapter)
	InvalidateCache(ctx context.Context)
}

// Warmer is the optional warmup surface entity.Manager implements
// (spec §4.6 "Warmup"/§4.7 "fireWarmups()"); the Orchestrator supplies
// the deferred registry's Queue/Await as the last two arguments.
type Warmer interface {
	Warmup(ctx context.Context, kernelWarmup bool,
		queue func(ctx context.Context, key string, executor func(context.Context) (any, error)) (any, error),
		await func(ctx context.Context, key string) (any, error))
}

// Factory builds a Manager for name when no manager or config is
// already registered (spec §4.7 "the factory is invoked").
type Factory func(name string) (Manager, error)

// Config aggregates the Orchestrator's construction dependencies (spec
// §4.7 "Constructor receives {entityFactory, managers, signals, hooks,
// entityAuthAdapter}").
type Config struct {
	EntityFactory Factory
	Managers      map[string]Manager
	Signals       *signal.Bus
	Hooks         *hook.Registry
	EntityAuth    entity.AuthAdapter
	Deferred      *deferred.Registry
	KernelWarmup  bool
}

// Orchestrator is the central lazy manager registry.
type Orchestrator struct {
	mu       sync.RWMutex
	managers map[string]Manager
	factory  Factory
	signals  *signal.Bus
	hooks    *hook.Registry
	auth     entity.AuthAdapter
	deferred *deferred.Registry
	kernelWU bool
	unsubs   map[string]signal.Unsubscribe
}

// New constructs an Orchestrator from cfg, registering every
// pre-supplied manager immediately (running its onRegister step and
// binding cache invalidation).
func New(cfg Config) *Orchestrator {
	o := &Orchestrator{
		managers: make(map[string]Manager),
		factory:  cfg.EntityFactory,
		signals:  cfg.Signals,
		hooks:    cfg.Hooks,
		auth:     cfg.EntityAuth,
		deferred: cfg.Deferred,
		kernelWU: cfg.KernelWarmup,
		unsubs:   make(map[string]signal.Unsubscribe),
	}
	for name, mgr := range cfg.Managers {
		o.register(name, mgr)
	}
	return o
}

// SetFactory installs or replaces the entity factory used by Get on a
// cache miss with no pre-registered manager.
func (o *Orchestrator) SetFactory(f Factory) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.factory = f
}

// Has reports whether a manager is already registered for name.
func (o *Orchestrator) Has(name string) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.managers[name]
	return ok
}

// Register installs mgr under name, injecting shared services and
// running onRegister, then binds "cache:entity:invalidate:<name>" to
// mgr.InvalidateCache (spec §4.7 "Binds cache:entity:invalidate:<name>
// to the matching manager's invalidateCache()").
func (o *Orchestrator) Register(name string, mgr Manager) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.register(name, mgr)
}

func (o *Orchestrator) register(name string, mgr Manager) {
	mgr.OnRegister(o.signals, o.hooks, o.auth)
	o.managers[name] = mgr
	if o.signals != nil {
		if unsub, ok := o.unsubs[name]; ok {
			unsub()
		}
		o.unsubs[name] = o.signals.On("cache:entity:invalidate:"+name, func(ctx context.Context, sigName string, payload any) {
			mgr.InvalidateCache(ctx)
		})
	}
}

// Get returns the manager registered for name, building it via the
// entity factory on first access if none is registered (spec §4.7
// "get(name)").
func (o *Orchestrator) Get(name string) (Manager, error) {
	o.mu.RLock()
	mgr, ok := o.managers[name]
	o.mu.RUnlock()
	if ok {
		return mgr, nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if mgr, ok := o.managers[name]; ok {
		return mgr, nil
	}
	if o.factory == nil {
		return nil, kerrors.Newf(kerrors.NotFound, "orchestrator: no manager or factory for %q", name)
	}
	built, err := o.factory(name)
	if err != nil {
		return nil, kerrors.Wrap(err, kerrors.Backend, "orchestrator: build manager "+name)
	}
	o.register(name, built)
	return built, nil
}

// GetRegisteredNames returns every currently registered manager name.
func (o *Orchestrator) GetRegisteredNames() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	names := make([]string, 0, len(o.managers))
	for name := range o.managers {
		names = append(names, name)
	}
	return names
}

// FireWarmups invokes Warmup on every registered manager that supports
// it, fire-and-forget (spec §4.7 "fireWarmups()").
func (o *Orchestrator) FireWarmups(ctx context.Context) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.deferred == nil {
		return
	}
	for _, mgr := range o.managers {
		if w, ok := mgr.(Warmer); ok {
			w.Warmup(ctx, o.kernelWU, o.deferred.Queue, o.deferred.Await)
		}
	}
}

// Dispose releases all registered managers, unbinding cache-invalidate
// subscriptions (spec §4.7 "dispose() releasing all managers").
func (o *Orchestrator) Dispose() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, unsub := range o.unsubs {
		unsub()
	}
	o.managers = make(map[string]Manager)
	o.unsubs = make(map[string]signal.Unsubscribe)
}
