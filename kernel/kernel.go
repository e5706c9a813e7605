// Package kernel implements KernelContext: the six-step boot sequence
// wiring every registry, the Orchestrator, the module loader, and the
// EventRouter into one running core (spec §4.9).
//
// Grounded on forbearing-gst's bootstrap package: the ordered,
// timed-registration pattern of bootstrap/initializer.go
// (Register(fn...) + Init() logging each step's duration via zap) is
// adapted here into Boot's six fixed, per-step-timed stages, since the
// spec's boot sequence is a fixed list rather than an open registry of
// arbitrary init funcs like the teacher's. Module.Connect mirrors
// module/module.go's Use[...] registration idiom (model+service+route
// registration in one call) translated to this core's
// entity/crud/routes/zone/block vocabulary.
package kernel

import (
	"context"
	"time"

	"github.com/forbearing/admincore/deferred"
	"github.com/forbearing/admincore/entity"
	"github.com/forbearing/admincore/eventrouter"
	"github.com/forbearing/admincore/hook"
	"github.com/forbearing/admincore/kerrors"
	"github.com/forbearing/admincore/orchestrator"
	"github.com/forbearing/admincore/perm"
	"github.com/forbearing/admincore/signal"
	"github.com/forbearing/admincore/types"
	"github.com/forbearing/admincore/zone"
)

// SessionAdapter is the session-auth contract (spec §6 "Session
// adapter"). Login/Logout drive "auth:login"/"auth:logout" emissions
// that fulfill/react to the "auth:ready" deferred key.
type SessionAdapter interface {
	Login(ctx context.Context, credentials map[string]any) (token string, user string, err error)
	Logout(ctx context.Context) error
	IsAuthenticated() bool
	GetToken() string
	GetUser() string
	Impersonate(ctx context.Context, target string) error
	StopImpersonating(ctx context.Context) error
	DestroySession() error
}

// CRUDOptions/RouteOptions are concept-only from the core's
// perspective (spec §4.9 "Route and nav registration is concept-only
// from the core's perspective") -- the core records the declaration so
// host applications (the actual HTTP/UI layer) can read it back, but
// performs no routing itself.
type CRUDOptions map[string]any
type RouteOptions map[string]any

// RouteDecl is one declared (non-CRUD) route registration.
type RouteDecl struct {
	Prefix  string
	Routes  any
	Options RouteOptions
}

// CRUDDecl is one declared CRUD-page registration.
type CRUDDecl struct {
	Path    string
	Pages   any
	Options CRUDOptions
}

// BlockDecl is one declared zone block registration.
type BlockDecl struct {
	Zone  string
	Block zone.Block
}

// ModuleContext is passed to every Module's Connect method (spec §4.9
// "ctx provides entity(name, manager), crud(path, pages, opts),
// routes(prefix, routes, opts), zone(name), block(zone, cfg), signals,
// hooks, security").
type ModuleContext struct {
	Signals  *signal.Bus
	Hooks    *hook.Registry
	Security *perm.Subsystem

	orch   *orchestrator.Orchestrator
	zones  *zone.Registry
	crud   []CRUDDecl
	routes []RouteDecl
	blocks []BlockDecl
}

// Entity registers mgr with the Orchestrator under name.
func (c *ModuleContext) Entity(name string, mgr orchestrator.Manager) {
	c.orch.Register(name, mgr)
}

// CRUD records a CRUD-page declaration.
func (c *ModuleContext) CRUD(path string, pages any, opts CRUDOptions) {
	c.crud = append(c.crud, CRUDDecl{Path: path, Pages: pages, Options: opts})
}

// Routes records a non-CRUD route declaration.
func (c *ModuleContext) Routes(prefix string, routes any, opts RouteOptions) {
	c.routes = append(c.routes, RouteDecl{Prefix: prefix, Routes: routes, Options: opts})
}

// Zone ensures zoneName is defined and returns its registry handle.
func (c *ModuleContext) Zone(name string) *zone.Registry {
	c.zones.DefineZone(name)
	return c.zones
}

// Block registers a block into zoneName.
func (c *ModuleContext) Block(zoneName string, cfg zone.Block) {
	c.zones.RegisterBlock(zoneName, cfg)
	c.blocks = append(c.blocks, BlockDecl{Zone: zoneName, Block: cfg})
}

// CRUDDeclarations/RouteDeclarations/BlockDeclarations expose what
// modules declared, for the host application to read back.
func (c *ModuleContext) CRUDDeclarations() []CRUDDecl   { return c.crud }
func (c *ModuleContext) RouteDeclarations() []RouteDecl { return c.routes }
func (c *ModuleContext) BlockDeclarations() []BlockDecl { return c.blocks }

// Module is implemented by every host-application feature module
// (spec §4.9 "each module implements connect(ctx)").
type Module interface {
	Connect(ctx *ModuleContext) error
}

// Config is KernelContext's construction input.
type Config struct {
	Log           types.Logger
	PermDBPath    string
	Session       SessionAdapter
	EntityFactory orchestrator.Factory
	Managers      map[string]orchestrator.Manager
	Modules       []Module // discovery order
	Routes        eventrouter.Routes
	KernelWarmup  bool
}

// Kernel is KernelContext: every subsystem wired together (spec §4.9).
type Kernel struct {
	Deferred     *deferred.Registry
	Signals      *signal.Bus
	Hooks        *hook.Registry
	Zones        *zone.Registry
	Security     *perm.Subsystem
	Orchestrator *orchestrator.Orchestrator
	Router       *eventrouter.Router

	ModuleCtx *ModuleContext

	log types.Logger
}

// Boot runs the six-step bootstrap sequence (spec §4.9).
func Boot(ctx context.Context, cfg Config) (*Kernel, error) {
	log := cfg.Log
	if log == nil {
		log = types.NopLogger{}
	}
	k := &Kernel{log: log}

	if err := step(log, "registries", func() error {
		k.Signals = signal.New(log)
		k.Hooks = hook.New(log)
		k.Zones = zone.New(log)
		sec, err := perm.New(cfg.PermDBPath)
		if err != nil {
			return err
		}
		k.Security = sec
		k.Deferred = deferred.New(deferred.WithSignals(k.Signals), deferred.WithLogger(log))
		return nil
	}); err != nil {
		return nil, err
	}

	if err := step(log, "orchestrator", func() error {
		k.Orchestrator = orchestrator.New(orchestrator.Config{
			EntityFactory: cfg.EntityFactory,
			Managers:      cfg.Managers,
			Signals:       k.Signals,
			Hooks:         k.Hooks,
			EntityAuth:    entity.NewPermAdapter(k.Security),
			Deferred:      k.Deferred,
			KernelWarmup:  cfg.KernelWarmup,
		})
		return nil
	}); err != nil {
		return nil, err
	}

	if err := step(log, "session", func() error {
		if cfg.Session == nil {
			return nil
		}
		wireSession(ctx, k, cfg.Session)
		return nil
	}); err != nil {
		return nil, err
	}

	k.ModuleCtx = &ModuleContext{
		Signals:  k.Signals,
		Hooks:    k.Hooks,
		Security: k.Security,
		orch:     k.Orchestrator,
		zones:    k.Zones,
	}
	if err := step(log, "modules", func() error {
		for _, mod := range cfg.Modules {
			if err := mod.Connect(k.ModuleCtx); err != nil {
				return kerrors.Wrap(err, kerrors.Backend, "kernel: module connect")
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := step(log, "eventrouter", func() error {
		if cfg.Routes == nil {
			return nil
		}
		router, err := eventrouter.New(cfg.Routes, k.Signals, k.Orchestrator)
		if err != nil {
			return err
		}
		k.Router = router
		return nil
	}); err != nil {
		return nil, err
	}

	step(log, "warmups", func() error { //nolint:errcheck
		k.Orchestrator.FireWarmups(ctx)
		return nil
	})

	return k, nil
}

// wireSession registers "auth:ready" as a deferred fulfilled by the
// first "auth:login" emission, and connects logout/expired/impersonate
// side effects (spec §4.9 step 3).
func wireSession(ctx context.Context, k *Kernel, session SessionAdapter) {
	var once bool
	k.Signals.On("auth:login", func(ctx context.Context, name string, payload any) {
		if once {
			return
		}
		once = true
		k.Deferred.Resolve(ctx, "auth:ready", payload)
	})
	k.Signals.On("auth:logout", func(ctx context.Context, name string, payload any) {
		_ = session.Logout(ctx)
	})
	k.Signals.On("auth:expired", func(ctx context.Context, name string, payload any) {
		_ = session.DestroySession()
	})
	k.Signals.On("auth:impersonate", func(ctx context.Context, name string, payload any) {
		if m, ok := payload.(types.Record); ok {
			if target, ok := m["target"].(string); ok {
				_ = session.Impersonate(ctx, target)
			}
		}
	})
	k.Signals.On("auth:impersonate:stop", func(ctx context.Context, name string, payload any) {
		_ = session.StopImpersonating(ctx)
	})
}

// Dispose releases the Orchestrator's managers and router subscriptions.
func (k *Kernel) Dispose() {
	if k.Router != nil {
		k.Router.Close()
	}
	if k.Orchestrator != nil {
		k.Orchestrator.Dispose()
	}
}

func step(log types.Logger, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	log.Infow("kernel: boot step", "step", name, "duration", time.Since(start).String(), "error", err)
	return err
}
