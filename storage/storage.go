// Package storage defines the common adapter contract every storage
// backend (apistore, localstore, mockstore, sdkstore) implements, plus
// the `type:value` factory/resolver grammar (spec §4.5).
//
// Grounded on forbearing-gst's database.Database[M] generic interface
// shape (database/database.go: Create/Delete/Update/Patch/List/Get
// method surface) translated from its generic-model parameterization
// to this spec's schema-less map[string]any record, since adapters
// here back heterogeneous declarative entities rather than one Go
// struct per model.
package storage

import (
	"context"
	"strings"

	"github.com/forbearing/admincore/kerrors"
	"github.com/forbearing/admincore/types"
)

// Record is a single entity instance. Adapters and EntityManager pass
// records as plain maps since entity schemas are declared at runtime,
// not as Go structs.
type Record = map[string]any

// SortOrder is list()'s sort direction.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ListParams mirrors spec §4.5's list(params) argument.
type ListParams struct {
	Page      int
	PageSize  int
	SortBy    string
	SortOrder SortOrder
	Filters   map[string]any
	Search    string
	CacheSafe bool
}

// ListResult mirrors spec §4.5's list() return shape.
type ListResult struct {
	Items []Record
	Total int
}

// Capabilities is the static, adapter-declared feature set consulted
// by EntityManager's cache policy (spec §4.5/§4.6:
// "Capabilities struct with supportsTotal, supportsFilters,
// supportsPagination, supportsCaching, optional searchFields. Missing
// flags default to false.").
type Capabilities struct {
	SupportsTotal      bool
	SupportsFilters    bool
	SupportsPagination bool
	SupportsCaching    bool
	SearchFields       []string
}

// Storage is the CRUD surface every adapter implements.
type Storage interface {
	Capabilities() Capabilities
	List(ctx context.Context, params ListParams, rc *types.RequestContext) (ListResult, error)
	Get(ctx context.Context, id string, rc *types.RequestContext) (Record, error)
	Create(ctx context.Context, data Record, rc *types.RequestContext) (Record, error)
	Update(ctx context.Context, id string, data Record, rc *types.RequestContext) (Record, error)
	Patch(ctx context.Context, id string, data Record, rc *types.RequestContext) (Record, error)
	Delete(ctx context.Context, id string, rc *types.RequestContext) error
}

// GetManyStorage is an optional capability; EntityManager falls back
// to parallel Get calls when an adapter doesn't implement it (spec
// §4.5: "getMany(ids) → record[] — optional").
type GetManyStorage interface {
	GetMany(ctx context.Context, ids []string, rc *types.RequestContext) ([]Record, error)
}

// Requester is an optional escape hatch for non-CRUD operations (spec
// §4.5: "request(method, path, options)").
type Requester interface {
	Request(ctx context.Context, method, path string, options map[string]any) (any, error)
}

// Normalizer is an optional bidirectional schema transform (spec
// §4.5/§4.6: normalize/denormalize).
type Normalizer interface {
	Normalize(ctx context.Context, raw Record, rc *types.RequestContext) (Record, error)
	Denormalize(ctx context.Context, record Record) (Record, error)
}

// Distincter is MockApiStorage's extra surface (spec §4.5: "Provides
// distinct(field) and distinctWithCount(field)").
type Distincter interface {
	Distinct(ctx context.Context, field string) ([]any, error)
	DistinctWithCount(ctx context.Context, field string) (map[string]int, error)
}

// Pattern is the parsed form of a `type:value` factory string (spec
// §4.5: "api:/api/books, local:books, mock:books").
type Pattern struct {
	Type  string
	Value string
}

// ParsePattern parses a `type:value` string, or a bare "/path" (which
// is treated as "api:/path").
func ParsePattern(s string) Pattern {
	if strings.HasPrefix(s, "/") {
		return Pattern{Type: "api", Value: s}
	}
	if idx := strings.Index(s, ":"); idx > 0 {
		return Pattern{Type: s[:idx], Value: s[idx+1:]}
	}
	return Pattern{Type: s}
}

// Constructor builds a Storage instance from a parsed Pattern.
type Constructor func(value string) (Storage, error)

// Registry is the default resolver: a registry of adapter
// constructors keyed by pattern type, extensible by host apps (spec
// §4.5: "default resolver dispatches via a registry of adapter
// constructors; host apps may supply a custom resolver").
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Register adds or replaces the constructor for typ.
func (r *Registry) Register(typ string, ctor Constructor) {
	r.constructors[typ] = ctor
}

// Resolve implements storageFactory(config, entityName, resolver?):
// an already-constructed adapter is returned as-is; a string is
// parsed via ParsePattern and dispatched to the matching constructor.
func (r *Registry) Resolve(config any) (Storage, error) {
	switch v := config.(type) {
	case Storage:
		return v, nil
	case string:
		p := ParsePattern(v)
		ctor, ok := r.constructors[p.Type]
		if !ok {
			return nil, kerrors.Newf(kerrors.InvalidInput, "storage: no constructor registered for type %q", p.Type)
		}
		return ctor(p.Value)
	case map[string]any:
		return r.resolveConfigObject(v)
	default:
		return nil, kerrors.Newf(kerrors.InvalidInput, "storage: unsupported config type %T", config)
	}
}

// resolveConfigObject implements storageFactory's third documented
// form (spec §4.5: "a config object → type inferred from presence of
// endpoint, key, or initialData if type is absent").
func (r *Registry) resolveConfigObject(cfg map[string]any) (Storage, error) {
	typ, _ := cfg["type"].(string)
	if typ == "" {
		switch {
		case cfg["endpoint"] != nil:
			typ = "api"
		case cfg["key"] != nil, cfg["initialData"] != nil:
			typ = "mock"
		default:
			return nil, kerrors.Newf(kerrors.InvalidInput, "storage: cannot infer type from config object %v", cfg)
		}
	}
	ctor, ok := r.constructors[typ]
	if !ok {
		return nil, kerrors.Newf(kerrors.InvalidInput, "storage: no constructor registered for type %q", typ)
	}
	value, _ := cfg["endpoint"].(string)
	if value == "" {
		value, _ = cfg["key"].(string)
	}
	return ctor(value)
}
