// Package entity implements EntityManager: a per-entity CRUD façade
// enforcing permissions, orchestrating the opportunistic cache,
// normalizing records, honoring multi-storage routing, and emitting
// hooks and signals around every write (spec §4.6).
//
// Grounded on forbearing-gst's model.Base hook-method surface
// (CreateBefore/CreateAfter/UpdateBefore/DeleteBefore) for the
// presave/postsave naming convention, and service.Base's phase-keyed
// method surface (Create/Delete/Update/List/Get methods wrapping a
// database.Database[M]) for the permission-gate-then-delegate shape,
// composed here with the storage/hook/signal/perm packages built
// earlier instead of a single gorm-backed Database[M].
package entity

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/forbearing/admincore/hook"
	"github.com/forbearing/admincore/kerrors"
	"github.com/forbearing/admincore/metrics"
	"github.com/forbearing/admincore/perm"
	"github.com/forbearing/admincore/signal"
	"github.com/forbearing/admincore/storage"
	"github.com/forbearing/admincore/types"
	"github.com/google/uuid"
)

// cacheState is the opportunistic cache's three-value lifecycle (spec
// §4.6: "Unfilled/Filled/Overflow").
type cacheState int

const (
	cacheUnfilled cacheState = iota
	cacheFilled
	cacheOverflow
)

// RouteResult is resolveStorage's return shape (spec §4.6). A nil
// *RouteResult means "use the default storage and endpoint".
type RouteResult struct {
	Endpoint  string
	Params    map[string]any
	Storage   storage.Storage
	IsDynamic bool
}

// Resolver picks a non-default route for method ("list", "get",
// "create", "update", "patch", "delete") given the request's parent
// chain. Returning nil uses the default storage/endpoint.
type Resolver func(method string, rc *types.RequestContext) *RouteResult

// AuthAdapter is the entity-level auth contract (spec §6 "Entity-level
// auth").
type AuthAdapter interface {
	IsGranted(permissionKey string, record storage.Record) bool
	GetPermissions(subject string) []string
}

// permAdapter adapts *perm.Subsystem to AuthAdapter, ignoring the
// optional record argument since the base grant grammar is
// record-independent (per-subclass overrides still run afterward).
type permAdapter struct{ sub *perm.Subsystem }

func (a permAdapter) IsGranted(key string, _ storage.Record) bool { return a.sub.IsGranted("", key) }
func (a permAdapter) GetPermissions(subject string) []string      { return a.sub.GetPermissions(subject) }

// NewPermAdapter wraps a perm.Subsystem as an AuthAdapter.
func NewPermAdapter(sub *perm.Subsystem) AuthAdapter { return permAdapter{sub: sub} }

// Overrides lets a registration customize the default canX checks
// (spec §4.6 "per-subclass overrides").
type Overrides struct {
	CanRead   func(ctx context.Context, rc *types.RequestContext, record storage.Record) bool
	CanCreate func(ctx context.Context, rc *types.RequestContext, record storage.Record) bool
	CanUpdate func(ctx context.Context, rc *types.RequestContext, record storage.Record) bool
	CanDelete func(ctx context.Context, rc *types.RequestContext, record storage.Record) bool
	CanList   func(ctx context.Context, rc *types.RequestContext) bool
}

// Config is the construction record for a Manager (spec §4.6
// "Construction records").
type Config struct {
	Name                 string
	IDField              string
	Storage              storage.Storage
	Fields               map[string]types.FieldSchema
	Parents              map[string]types.ParentRelation
	Children             map[string]types.ChildRelation
	LocalFilterThreshold int
	ReadOnly             bool
	Warmup               *bool // defaults to true
	ScopeWhitelist       []string
	AuthAdapter          AuthAdapter
	Resolver             Resolver
	LabelField           string // used when this entity is referenced as a parent
}

func (c Config) warmupEnabled() bool {
	return c.Warmup == nil || *c.Warmup
}

// Manager is the EntityManager implementation for one entity.
type Manager struct {
	cfg Config

	signals *signal.Bus
	hooks   *hook.Registry
	perm    AuthAdapter
	over    Overrides

	mu         sync.RWMutex
	cacheState cacheState
	cacheItems []storage.Record
	cacheOrder []string // insertion order, for deterministic locally-sorted fallback
}

// Option configures New.
type Option func(*Manager)

// WithOverrides installs per-entity canX overrides.
func WithOverrides(o Overrides) Option { return func(m *Manager) { m.over = o } }

// New constructs a Manager from cfg. signals/hooks are shared services
// normally injected by an Orchestrator's onRegister step; they may be
// nil for standalone use/tests, in which case hooks/signals become no-ops.
func New(cfg Config, signals *signal.Bus, hooks *hook.Registry, opts ...Option) *Manager {
	if cfg.IDField == "" {
		cfg.IDField = "id"
	}
	m := &Manager{cfg: cfg, signals: signals, hooks: hooks, perm: cfg.AuthAdapter}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Name returns the entity's declared name.
func (m *Manager) Name() string { return m.cfg.Name }

// OnRegister is called by the Orchestrator once shared services have
// been injected (spec §4.6 "runs onRegister").
func (m *Manager) OnRegister(signals *signal.Bus, hooks *hook.Registry, auth AuthAdapter) {
	if signals != nil {
		m.signals = signals
	}
	if hooks != nil {
		m.hooks = hooks
	}
	if auth != nil {
		m.perm = auth
	}
}

// ---- permission gate (spec §4.6 "canAccess") ----

func (m *Manager) grantKey(action string) string { return fmt.Sprintf("entity:%s:%s", m.cfg.Name, action) }

func (m *Manager) inScopeWhitelist(rc *types.RequestContext) bool {
	if rc == nil {
		return false
	}
	for _, s := range m.cfg.ScopeWhitelist {
		if s == rc.Scope {
			return true
		}
	}
	return false
}

// canAccess composes the three gate layers in spec order: scope
// whitelist, entity-level auth adapter, per-subclass override.
func (m *Manager) canAccess(ctx context.Context, rc *types.RequestContext, action string, record storage.Record) bool {
	if m.inScopeWhitelist(rc) {
		return true
	}
	granted := true
	if m.perm != nil {
		granted = m.perm.IsGranted(m.grantKey(action), record)
	}
	if !granted {
		return false
	}
	switch action {
	case "read":
		if m.over.CanRead != nil {
			return m.over.CanRead(ctx, rc, record)
		}
	case "create":
		if m.over.CanCreate != nil {
			return m.over.CanCreate(ctx, rc, record)
		}
	case "update":
		if m.over.CanUpdate != nil {
			return m.over.CanUpdate(ctx, rc, record)
		}
	case "delete":
		if m.over.CanDelete != nil {
			return m.over.CanDelete(ctx, rc, record)
		}
	case "list":
		if m.over.CanList != nil {
			return m.over.CanList(ctx, rc)
		}
	}
	return true
}

func (m *Manager) requireAccess(ctx context.Context, rc *types.RequestContext, action string, record storage.Record) error {
	if !m.canAccess(ctx, rc, action, record) {
		return kerrors.Newf(kerrors.Unauthorized, "entity %s: %s denied", m.cfg.Name, action)
	}
	return nil
}

// ---- defaults & normalization (spec §4.6) ----

// applyDefaults fills data with each declared field's default where
// data lacks that key. Defaults may be a scalar or a context-aware
// func(*types.RequestContext) any.
func (m *Manager) applyDefaults(data storage.Record, rc *types.RequestContext) storage.Record {
	for name, field := range m.cfg.Fields {
		if _, ok := data[name]; ok {
			continue
		}
		if field.Default == nil {
			continue
		}
		switch fn := field.Default.(type) {
		case func(*types.RequestContext) any:
			data[name] = fn(rc)
		default:
			data[name] = field.Default
		}
	}
	return data
}

// GetInitialData returns the default record used to seed creation
// forms (spec §4.6 "getInitialData(context)").
func (m *Manager) GetInitialData(rc *types.RequestContext) storage.Record {
	return m.applyDefaults(storage.Record{}, rc)
}

func (m *Manager) normalize(ctx context.Context, rec storage.Record, rc *types.RequestContext) (storage.Record, error) {
	n, ok := m.cfg.Storage.(storage.Normalizer)
	if !ok {
		return rec, nil
	}
	out, err := n.Normalize(ctx, rec, rc)
	if err != nil {
		return nil, kerrors.Wrap(err, kerrors.InvalidInput, "entity: normalize")
	}
	return out, nil
}

func (m *Manager) denormalize(ctx context.Context, rec storage.Record) (storage.Record, error) {
	n, ok := m.cfg.Storage.(storage.Normalizer)
	if !ok {
		return rec, nil
	}
	out, err := n.Denormalize(ctx, rec)
	if err != nil {
		return nil, kerrors.Wrap(err, kerrors.InvalidInput, "entity: denormalize")
	}
	return out, nil
}

// ---- multi-storage routing (spec §4.6 "resolveStorage") ----

func (m *Manager) resolve(method string, rc *types.RequestContext) (storage.Storage, storage.ListParams) {
	var extra storage.ListParams
	if m.cfg.Resolver == nil {
		return m.cfg.Storage, extra
	}
	route := m.cfg.Resolver(method, rc)
	if route == nil {
		return m.cfg.Storage, extra
	}
	if route.Storage != nil {
		return route.Storage, extra
	}
	return m.cfg.Storage, extra
}

// ---- cache (spec §4.6 "Cache policy (opportunistic)") ----

func (m *Manager) cachingEligible(rc *types.RequestContext) bool {
	if m.cfg.LocalFilterThreshold <= 0 {
		return false
	}
	if !m.cfg.Storage.Capabilities().SupportsCaching {
		return false
	}
	return rc == nil || rc.IsDefaultRouting()
}

// InvalidateCache clears the opportunistic cache and emits
// "cache:entity:invalidate:<name>". A call made from a handler of that
// same emission (the orchestrator binds the signal back to this method)
// only clears, so the signal is not re-emitted.
func (m *Manager) InvalidateCache(ctx context.Context) {
	m.mu.Lock()
	m.cacheState = cacheUnfilled
	m.cacheItems = nil
	m.cacheOrder = nil
	m.mu.Unlock()
	type reentryKey struct{}
	if ctx.Value(reentryKey{}) == m {
		return
	}
	m.emit(context.WithValue(ctx, reentryKey{}, m), "cache:entity:invalidate:"+m.cfg.Name, types.Record{"name": m.cfg.Name})
}

func (m *Manager) fillCacheFromList(res storage.ListResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if res.Total <= m.cfg.LocalFilterThreshold {
		m.cacheItems = append([]storage.Record(nil), res.Items...)
		m.cacheState = cacheFilled
	} else {
		m.cacheState = cacheOverflow
	}
}

func (m *Manager) cacheSnapshot() ([]storage.Record, cacheState) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cacheItems, m.cacheState
}

// matchesSearch reports whether rec matches search across
// searchFields (declared by the storage), case-insensitive substring.
func matchesSearch(rec storage.Record, searchFields []string, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	if len(searchFields) == 0 {
		return true
	}
	for _, f := range searchFields {
		if s, ok := rec[f].(string); ok && strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

func matchesFilters(rec storage.Record, filters map[string]any) bool {
	for k, v := range filters {
		if fmt.Sprintf("%v", rec[k]) != fmt.Sprintf("%v", v) {
			return false
		}
	}
	return true
}

// safeFilters restricts params.Filters to keys declared in the entity's
// field schema when cacheSafe is requested, dropping any ad-hoc filter
// key (e.g. one binding a session-scoped value) that isn't guaranteed
// safe to evaluate against the offline cache snapshot (spec §4.6
// "cacheSafe: true additionally restricts the filter predicate").
func safeFilters(filters map[string]any, fields map[string]types.FieldSchema, cacheSafe bool) map[string]any {
	if !cacheSafe || len(filters) == 0 {
		return filters
	}
	out := make(map[string]any, len(filters))
	for k, v := range filters {
		if _, ok := fields[k]; ok {
			out[k] = v
		}
	}
	return out
}

// localQuery filters/sorts/paginates the cache snapshot (spec §4.6
// "performs filtering/sort/pagination locally using the cache").
func localQuery(items []storage.Record, params storage.ListParams, searchFields []string, fields map[string]types.FieldSchema, cacheSafe bool) storage.ListResult {
	filters := safeFilters(params.Filters, fields, cacheSafe)
	filtered := make([]storage.Record, 0, len(items))
	for _, rec := range items {
		if !matchesFilters(rec, filters) {
			continue
		}
		if !matchesSearch(rec, searchFields, params.Search) {
			continue
		}
		filtered = append(filtered, rec)
	}
	if params.SortBy != "" {
		sort.SliceStable(filtered, func(i, j int) bool {
			a := fmt.Sprintf("%v", filtered[i][params.SortBy])
			b := fmt.Sprintf("%v", filtered[j][params.SortBy])
			if params.SortOrder == storage.SortDesc {
				return a > b
			}
			return a < b
		})
	}
	total := len(filtered)
	if params.Page > 0 && params.PageSize > 0 {
		start := (params.Page - 1) * params.PageSize
		if start > total {
			start = total
		}
		end := start + params.PageSize
		if end > total {
			end = total
		}
		filtered = filtered[start:end]
	}
	return storage.ListResult{Items: filtered, Total: total}
}

// ---- hooks & signals ----

func (m *Manager) invoke(ctx context.Context, name string, data any) error {
	if m.hooks == nil {
		return nil
	}
	_, err := m.hooks.Invoke(ctx, name, data)
	return err
}

func (m *Manager) emit(ctx context.Context, name string, payload any) {
	if m.signals == nil {
		return
	}
	m.signals.Emit(ctx, name, payload)
}

// HookPayload is the object passed as InvokeContext.Data to every
// lifecycle hook this manager invokes (entity:presave/postsave,
// entity:predelete/postdelete, and their per-entity counterparts). A
// listener registered against one of the generic "entity:..." names (spec §2
// "attach via hooks/signals/zones without modifying the manager") needs
// this to tell which entity fired, whether it's a create, and to reach
// back into the manager -- spec §4.3 "Standard hook names the manager
// invokes" names exactly this shape: { entity, record, isNew, id?, manager }.
type HookPayload struct {
	Entity  string
	Record  storage.Record
	IsNew   bool
	ID      string
	Manager *Manager
}

func (m *Manager) hookPayload(rec storage.Record, isNew bool, id string) *HookPayload {
	return &HookPayload{Entity: m.cfg.Name, Record: rec, IsNew: isNew, ID: id, Manager: m}
}

// runPresave invokes "entity:presave" then "<entity>:presave",
// returning the first veto error (spec §4.6 lifecycle step 3).
func (m *Manager) runPresave(ctx context.Context, action, id string, data storage.Record) error {
	payload := m.hookPayload(data, action == "create", id)
	if err := m.invoke(ctx, "entity:presave", payload); err != nil {
		return err
	}
	return m.invoke(ctx, m.cfg.Name+":presave", payload)
}

func (m *Manager) runPostsave(ctx context.Context, action, id string, data storage.Record) error {
	payload := m.hookPayload(data, action == "create", id)
	if err := m.invoke(ctx, "entity:postsave", payload); err != nil {
		return err
	}
	return m.invoke(ctx, m.cfg.Name+":postsave", payload)
}

func (m *Manager) emitWriteSignals(ctx context.Context, action string, rec storage.Record) {
	payload := types.Record{"entity": m.cfg.Name, "data": rec}
	m.emit(ctx, m.cfg.Name+":"+action, payload)
	m.emit(ctx, "entity:"+action, payload)
}

// ---- public operations (spec §4.6) ----

// List implements list(params, context?).
func (m *Manager) List(ctx context.Context, params storage.ListParams, rc *types.RequestContext) (storage.ListResult, bool, error) {
	if err := m.requireAccess(ctx, rc, "list", nil); err != nil {
		return storage.ListResult{}, false, err
	}
	st, _ := m.resolve("list", rc)
	if metrics.StorageCalls != nil {
		metrics.StorageCalls.WithLabelValues(m.cfg.Name, "list").Inc()
	}
	res, err := st.List(ctx, params, rc)
	if err != nil {
		return storage.ListResult{}, false, kerrors.Wrap(err, kerrors.KindOf(err), "entity: list")
	}
	if m.cachingEligible(rc) {
		if _, state := m.cacheSnapshot(); state == cacheUnfilled {
			m.fillCacheFromList(res)
		}
	}
	return res, false, nil
}

// Query implements query(params, options?): smart routing that
// consults the cache when permissible, falling back to storage
// otherwise (spec §4.6).
func (m *Manager) Query(ctx context.Context, params storage.ListParams, rc *types.RequestContext) (storage.ListResult, bool, error) {
	if err := m.requireAccess(ctx, rc, "list", nil); err != nil {
		return storage.ListResult{}, false, err
	}
	if m.cachingEligible(rc) {
		items, state := m.cacheSnapshot()
		if state == cacheFilled {
			if metrics.CacheHit != nil {
				metrics.CacheHit.WithLabelValues(m.cfg.Name).Inc()
			}
			res := localQuery(items, params, m.cfg.Storage.Capabilities().SearchFields, m.cfg.Fields, rc != nil && rc.CacheSafe)
			return res, true, nil
		}
		if metrics.CacheMiss != nil {
			metrics.CacheMiss.WithLabelValues(m.cfg.Name).Inc()
		}
	}
	res, fromCache, err := m.List(ctx, params, rc)
	return res, fromCache, err
}

// Get implements get(id, context?).
func (m *Manager) Get(ctx context.Context, id string, rc *types.RequestContext) (storage.Record, error) {
	if err := m.requireAccess(ctx, rc, "read", nil); err != nil {
		return nil, err
	}
	st, _ := m.resolve("get", rc)
	if metrics.StorageCalls != nil {
		metrics.StorageCalls.WithLabelValues(m.cfg.Name, "get").Inc()
	}
	rec, err := st.Get(ctx, id, rc)
	if err != nil {
		return nil, kerrors.Wrap(err, kerrors.KindOf(err), "entity: get "+id)
	}
	return m.normalize(ctx, rec, rc)
}

// GetMany implements getMany(ids) → record[], falling back to
// parallel Get calls when the storage doesn't implement GetManyStorage.
func (m *Manager) GetMany(ctx context.Context, ids []string, rc *types.RequestContext) ([]storage.Record, error) {
	if len(ids) == 0 {
		return []storage.Record{}, nil
	}
	if err := m.requireAccess(ctx, rc, "read", nil); err != nil {
		return nil, err
	}
	st, _ := m.resolve("get", rc)
	if gm, ok := st.(storage.GetManyStorage); ok {
		recs, err := gm.GetMany(ctx, ids, rc)
		if err != nil {
			return nil, kerrors.Wrap(err, kerrors.KindOf(err), "entity: getMany")
		}
		out := make([]storage.Record, 0, len(recs))
		for _, r := range recs {
			n, err := m.normalize(ctx, r, rc)
			if err != nil {
				return nil, err
			}
			out = append(out, n)
		}
		return out, nil
	}
	out := make([]storage.Record, len(ids))
	errs := make([]error, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			out[i], errs[i] = m.Get(ctx, id, rc)
		}(i, id)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// write runs the shared create/update/patch lifecycle; call performs
// the storage operation itself.
func (m *Manager) write(ctx context.Context, action string, id string, data storage.Record, rc *types.RequestContext,
	call func(ctx context.Context, st storage.Storage, data storage.Record) (storage.Record, error),
) (storage.Record, error) {
	if m.cfg.ReadOnly {
		return nil, kerrors.Newf(kerrors.InvalidInput, "entity %s: read-only", m.cfg.Name)
	}
	if err := m.requireAccess(ctx, rc, permActionFor(action), data); err != nil {
		return nil, err
	}
	if action == "create" {
		data = m.applyDefaults(data, rc)
		if _, ok := data[m.cfg.IDField]; !ok {
			data[m.cfg.IDField] = uuid.NewString()
		}
		id = fmt.Sprintf("%v", data[m.cfg.IDField])
	}
	if err := m.runPresave(ctx, action, id, data); err != nil {
		return nil, kerrors.Wrap(err, kerrors.KindOf(err), "entity: presave veto")
	}
	payload, err := m.denormalize(ctx, data)
	if err != nil {
		return nil, err
	}
	st, _ := m.resolve(action, rc)
	if metrics.StorageCalls != nil {
		metrics.StorageCalls.WithLabelValues(m.cfg.Name, action).Inc()
	}
	raw, err := call(ctx, st, payload)
	if err != nil {
		return nil, kerrors.Wrap(err, kerrors.KindOf(err), "entity: "+action)
	}
	rec, err := m.normalize(ctx, raw, rc)
	if err != nil {
		return nil, err
	}
	m.InvalidateCache(ctx)
	if err := m.runPostsave(ctx, action, id, rec); err != nil {
		return nil, kerrors.Wrap(err, kerrors.KindOf(err), "entity: postsave")
	}
	m.emitWriteSignals(ctx, action, rec)
	return rec, nil
}

func permActionFor(action string) string {
	switch action {
	case "create":
		return "create"
	case "update", "patch":
		return "update"
	default:
		return action
	}
}

// Create implements create(data) → record.
func (m *Manager) Create(ctx context.Context, data storage.Record, rc *types.RequestContext) (storage.Record, error) {
	return m.write(ctx, "create", "", data, rc, func(ctx context.Context, st storage.Storage, payload storage.Record) (storage.Record, error) {
		return st.Create(ctx, payload, rc)
	})
}

// Update implements update(id, data) → record (full replace).
func (m *Manager) Update(ctx context.Context, id string, data storage.Record, rc *types.RequestContext) (storage.Record, error) {
	return m.write(ctx, "update", id, data, rc, func(ctx context.Context, st storage.Storage, payload storage.Record) (storage.Record, error) {
		return st.Update(ctx, id, payload, rc)
	})
}

// Patch implements patch(id, data) → record (partial).
func (m *Manager) Patch(ctx context.Context, id string, data storage.Record, rc *types.RequestContext) (storage.Record, error) {
	return m.write(ctx, "patch", id, data, rc, func(ctx context.Context, st storage.Storage, payload storage.Record) (storage.Record, error) {
		return st.Patch(ctx, id, payload, rc)
	})
}

// Delete implements delete(id) → void, following the same
// presave/postsave pattern with predelete/postdelete hook names (spec
// §4.6 "Delete follows the same pattern with predelete/postdelete").
func (m *Manager) Delete(ctx context.Context, id string, rc *types.RequestContext) error {
	if m.cfg.ReadOnly {
		return kerrors.Newf(kerrors.InvalidInput, "entity %s: read-only", m.cfg.Name)
	}
	if err := m.requireAccess(ctx, rc, "delete", nil); err != nil {
		return err
	}
	data := storage.Record{"id": id}
	payload := m.hookPayload(data, false, id)
	if err := m.invoke(ctx, "entity:predelete", payload); err != nil {
		return kerrors.Wrap(err, kerrors.KindOf(err), "entity: predelete veto")
	}
	if err := m.invoke(ctx, m.cfg.Name+":predelete", payload); err != nil {
		return kerrors.Wrap(err, kerrors.KindOf(err), "entity: predelete veto")
	}
	st, _ := m.resolve("delete", rc)
	if metrics.StorageCalls != nil {
		metrics.StorageCalls.WithLabelValues(m.cfg.Name, "delete").Inc()
	}
	if err := st.Delete(ctx, id, rc); err != nil {
		return kerrors.Wrap(err, kerrors.KindOf(err), "entity: delete "+id)
	}
	m.InvalidateCache(ctx)
	if err := m.invoke(ctx, "entity:postdelete", payload); err != nil {
		return kerrors.Wrap(err, kerrors.KindOf(err), "entity: postdelete")
	}
	if err := m.invoke(ctx, m.cfg.Name+":postdelete", payload); err != nil {
		return kerrors.Wrap(err, kerrors.KindOf(err), "entity: postdelete")
	}
	m.emitWriteSignals(ctx, "delete", data)
	return nil
}

// Request implements request(method, path, options) → any, only
// available when the storage exposes storage.Requester.
func (m *Manager) Request(ctx context.Context, method, path string, options map[string]any) (any, error) {
	req, ok := m.cfg.Storage.(storage.Requester)
	if !ok {
		return nil, kerrors.Newf(kerrors.InvalidInput, "entity %s: storage has no request()", m.cfg.Name)
	}
	return req.Request(ctx, method, path, options)
}

// Warmup queues a cache fill under "entity:<name>:cache" once
// "auth:ready" settles, when both kernel.warmup and entity.warmup are
// enabled and an auth adapter is configured (spec §4.6 "Warmup").
// The queue and await parameters take deferred.Registry.Queue/Await as
// plain funcs so this package need not import deferred directly; the
// orchestrator supplies them.
func (m *Manager) Warmup(ctx context.Context, kernelWarmup bool, queue func(ctx context.Context, key string, executor func(context.Context) (any, error)) (any, error), await func(ctx context.Context, key string) (any, error)) {
	if !kernelWarmup || !m.cfg.warmupEnabled() || m.perm == nil {
		return
	}
	go func() {
		if await != nil {
			_, _ = await(ctx, "auth:ready")
		}
		_, _ = queue(ctx, "entity:"+m.cfg.Name+":cache", func(ctx context.Context) (any, error) {
			res, err := m.cfg.Storage.List(ctx, storage.ListParams{}, nil)
			if err != nil {
				return nil, err
			}
			m.fillCacheFromList(res)
			return res, nil
		})
	}()
}
