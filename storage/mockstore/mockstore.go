// Package mockstore implements MockApiStorage: an in-memory store
// with write-through persistence to a key-value backend under a
// deterministic key `mockapi:<entityName>:data` (spec §4.5).
//
// Grounded on forbearing-gst's redis.Client wiring convention (the
// retrieval pack's provider/redis carried only an orphaned benchmark
// referencing a never-implemented SetML/config surface, so the actual
// client construction here follows redis/go-redis/v9's own idiomatic
// NewClient(&redis.Options{...}) shape instead) for the optional
// persisted backend, and on localstore for the in-process
// filter/sort/paginate core (MockApiStorage embeds a *localstore.Storage
// and seeds/flushes it against the KV backend).
package mockstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/forbearing/admincore/kerrors"
	"github.com/forbearing/admincore/storage"
	"github.com/forbearing/admincore/storage/localstore"
	"github.com/forbearing/admincore/types"
	goredis "github.com/redis/go-redis/v9"
)

// KV is the persisted key-value backend MockApiStorage writes through
// to. An in-process map satisfies it for tests/local dev; RedisKV
// wraps go-redis/v9 for a real deployment.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// MemKV is a process-local KV, the default when New gets no WithKV
// option.
type MemKV struct{ data map[string]string }

// NewMemKV creates an empty MemKV.
func NewMemKV() *MemKV { return &MemKV{data: make(map[string]string)} }

func (m *MemKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemKV) Set(ctx context.Context, key, value string) error {
	m.data[key] = value
	return nil
}

// RedisKV backs MockApiStorage with a real redis/go-redis/v9 client
// when passed through WithKV; this package does not read
// config.StorageConfig to choose it.
type RedisKV struct{ client *goredis.Client }

// NewRedisKV connects to addr/db using go-redis/v9's idiomatic client
// construction.
func NewRedisKV(addr string, db int) *RedisKV {
	return &RedisKV{client: goredis.NewClient(&goredis.Options{Addr: addr, DB: db})}
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, key).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, kerrors.Wrap(err, kerrors.Backend, "mockstore: redis get")
	}
	return v, true, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return kerrors.Wrap(err, kerrors.Backend, "mockstore: redis set")
	}
	return nil
}

// AuthChecker throws Unauthorized when the caller isn't authenticated
// (spec §4.5: "optional authCheck() that throws Unauthorized").
type AuthChecker func(rc *types.RequestContext) bool

// Storage is the MockApiStorage adapter.
type Storage struct {
	entityName string
	kv         KV
	authCheck  AuthChecker
	local      *localstore.Storage
	loaded     bool
}

// Option configures New.
type Option func(*Storage)

// WithKV attaches a persisted backend (default: in-process MemKV).
func WithKV(kv KV) Option { return func(s *Storage) { s.kv = kv } }

// WithAuthCheck installs an authentication gate.
func WithAuthCheck(fn AuthChecker) Option { return func(s *Storage) { s.authCheck = fn } }

// WithInitialData seeds the backing store when the persisted KV is
// empty (spec §4.5: "Seeds from an initial dataset if the persisted
// store is empty").
func WithInitialData(records []storage.Record) Option {
	return func(s *Storage) { s.local = localstore.New(localstore.WithInitialData(records)) }
}

// New creates a MockApiStorage for entityName.
func New(entityName string, opts ...Option) *Storage {
	s := &Storage{entityName: entityName, kv: NewMemKV(), local: localstore.New()}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Storage) key() string { return fmt.Sprintf("mockapi:%s:data", s.entityName) }

// ensureLoaded hydrates s.local from the persisted KV on first use,
// falling back to (and then persisting) any WithInitialData seed.
func (s *Storage) ensureLoaded(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	s.loaded = true
	raw, found, err := s.kv.Get(ctx, s.key())
	if err != nil {
		return err
	}
	if !found {
		return s.persist(ctx)
	}
	var records []storage.Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return kerrors.Wrap(err, kerrors.Backend, "mockstore: decode persisted data")
	}
	s.local = localstore.New(localstore.WithInitialData(records))
	return nil
}

func (s *Storage) persist(ctx context.Context) error {
	res, err := s.local.List(ctx, storage.ListParams{}, nil)
	if err != nil {
		return err
	}
	data, err := json.Marshal(res.Items)
	if err != nil {
		return kerrors.Wrap(err, kerrors.Backend, "mockstore: encode data")
	}
	return s.kv.Set(ctx, s.key(), string(data))
}

func (s *Storage) checkAuth(rc *types.RequestContext) error {
	if s.authCheck != nil && !s.authCheck(rc) {
		return kerrors.New(kerrors.Unauthorized, "mockstore: caller is not authenticated")
	}
	return nil
}

func (s *Storage) Capabilities() storage.Capabilities { return s.local.Capabilities() }

func (s *Storage) List(ctx context.Context, params storage.ListParams, rc *types.RequestContext) (storage.ListResult, error) {
	if err := s.checkAuth(rc); err != nil {
		return storage.ListResult{}, err
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return storage.ListResult{}, err
	}
	return s.local.List(ctx, params, rc)
}

func (s *Storage) Get(ctx context.Context, id string, rc *types.RequestContext) (storage.Record, error) {
	if err := s.checkAuth(rc); err != nil {
		return nil, err
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	return s.local.Get(ctx, id, rc)
}

func (s *Storage) Create(ctx context.Context, data storage.Record, rc *types.RequestContext) (storage.Record, error) {
	if err := s.checkAuth(rc); err != nil {
		return nil, err
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	rec, err := s.local.Create(ctx, data, rc)
	if err != nil {
		return nil, err
	}
	return rec, s.persist(ctx)
}

func (s *Storage) Update(ctx context.Context, id string, data storage.Record, rc *types.RequestContext) (storage.Record, error) {
	if err := s.checkAuth(rc); err != nil {
		return nil, err
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	rec, err := s.local.Update(ctx, id, data, rc)
	if err != nil {
		return nil, err
	}
	return rec, s.persist(ctx)
}

func (s *Storage) Patch(ctx context.Context, id string, data storage.Record, rc *types.RequestContext) (storage.Record, error) {
	if err := s.checkAuth(rc); err != nil {
		return nil, err
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	rec, err := s.local.Patch(ctx, id, data, rc)
	if err != nil {
		return nil, err
	}
	return rec, s.persist(ctx)
}

func (s *Storage) Delete(ctx context.Context, id string, rc *types.RequestContext) error {
	if err := s.checkAuth(rc); err != nil {
		return err
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}
	if err := s.local.Delete(ctx, id, rc); err != nil {
		return err
	}
	return s.persist(ctx)
}

// Distinct returns the unique values of field across every record.
func (s *Storage) Distinct(ctx context.Context, field string) ([]any, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	res, err := s.local.List(ctx, storage.ListParams{}, nil)
	if err != nil {
		return nil, err
	}
	seen := make(map[any]bool)
	var out []any
	for _, rec := range res.Items {
		v := rec[field]
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out, nil
}

// DistinctWithCount returns each unique value of field alongside its
// occurrence count.
func (s *Storage) DistinctWithCount(ctx context.Context, field string) (map[string]int, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	res, err := s.local.List(ctx, storage.ListParams{}, nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int)
	for _, rec := range res.Items {
		key := fmt.Sprintf("%v", rec[field])
		out[key]++
	}
	return out, nil
}

var _ storage.Distincter = (*Storage)(nil)
