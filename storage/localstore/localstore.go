// Package localstore implements LocalStorage/MemoryStorage: an
// in-process store over a map keyed by id, applying filters, sorting,
// and pagination locally (spec §4.5).
//
// Grounded on forbearing-gst's model.Base query-param field set
// (page/page_size/sort_by/sort_order/fuzzy in model/model.go) for the
// filter/sort/paginate semantics, backed by patrickmn/go-cache as the
// concurrency-safe in-process map (used here purely as a sharded,
// mutex-guarded map[string]any -- its TTL/eviction features are
// unused since LocalStorage has no expiry concept in the spec).
package localstore

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/forbearing/admincore/kerrors"
	"github.com/forbearing/admincore/storage"
	"github.com/forbearing/admincore/types"
	gocache "github.com/patrickmn/go-cache"
)

// Storage is the LocalStorage/MemoryStorage adapter.
type Storage struct {
	idField      string
	searchFields []string
	data         *gocache.Cache
	order        []string // insertion order, for stable iteration
}

// Option configures New.
type Option func(*Storage)

// WithIDField overrides the id field name (default "id").
func WithIDField(field string) Option { return func(s *Storage) { s.idField = field } }

// WithSearchFields declares which fields free-text search matches
// against.
func WithSearchFields(fields ...string) Option {
	return func(s *Storage) { s.searchFields = fields }
}

// WithInitialData seeds the store.
func WithInitialData(records []storage.Record) Option {
	return func(s *Storage) {
		for _, r := range records {
			id := idOf(r, s.idField)
			if id == "" {
				continue
			}
			s.data.SetDefault(id, r)
			s.order = append(s.order, id)
		}
	}
}

// New creates an empty LocalStorage.
func New(opts ...Option) *Storage {
	s := &Storage{idField: "id", data: gocache.New(gocache.NoExpiration, gocache.NoExpiration)}
	for _, o := range opts {
		o(s)
	}
	return s
}

func idOf(r storage.Record, field string) string {
	return toID(r[field])
}

func toID(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func (s *Storage) Capabilities() storage.Capabilities {
	return storage.Capabilities{
		SupportsTotal:      true,
		SupportsFilters:    true,
		SupportsPagination: true,
		SupportsCaching:    true,
		SearchFields:       s.searchFields,
	}
}

func (s *Storage) Get(ctx context.Context, id string, rc *types.RequestContext) (storage.Record, error) {
	v, ok := s.data.Get(id)
	if !ok {
		return nil, kerrors.Newf(kerrors.NotFound, "localstore: record %q not found", id)
	}
	return cloneRecord(v.(storage.Record)), nil
}

func (s *Storage) Create(ctx context.Context, data storage.Record, rc *types.RequestContext) (storage.Record, error) {
	id, _ := data[s.idField].(string)
	if id == "" {
		id = toID(data[s.idField])
	}
	if id == "" {
		return nil, kerrors.New(kerrors.InvalidInput, "localstore: create requires an id field")
	}
	if _, exists := s.data.Get(id); exists {
		return nil, kerrors.Newf(kerrors.Conflict, "localstore: record %q already exists", id)
	}
	rec := cloneRecord(data)
	s.data.SetDefault(id, rec)
	s.order = append(s.order, id)
	return cloneRecord(rec), nil
}

func (s *Storage) Update(ctx context.Context, id string, data storage.Record, rc *types.RequestContext) (storage.Record, error) {
	if _, ok := s.data.Get(id); !ok {
		return nil, kerrors.Newf(kerrors.NotFound, "localstore: record %q not found", id)
	}
	rec := cloneRecord(data)
	rec[s.idField] = id
	s.data.SetDefault(id, rec)
	return cloneRecord(rec), nil
}

func (s *Storage) Patch(ctx context.Context, id string, data storage.Record, rc *types.RequestContext) (storage.Record, error) {
	v, ok := s.data.Get(id)
	if !ok {
		return nil, kerrors.Newf(kerrors.NotFound, "localstore: record %q not found", id)
	}
	existing := cloneRecord(v.(storage.Record))
	for k, val := range data {
		existing[k] = val
	}
	existing[s.idField] = id
	s.data.SetDefault(id, existing)
	return cloneRecord(existing), nil
}

func (s *Storage) Delete(ctx context.Context, id string, rc *types.RequestContext) error {
	if _, ok := s.data.Get(id); !ok {
		return kerrors.Newf(kerrors.NotFound, "localstore: record %q not found", id)
	}
	s.data.Delete(id)
	for i, cur := range s.order {
		if cur == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// List applies filters (substring match for strings, equality
// otherwise), free-text search over SearchFields, sorting, and
// pagination, all in-process (spec §4.5).
func (s *Storage) List(ctx context.Context, params storage.ListParams, rc *types.RequestContext) (storage.ListResult, error) {
	all := make([]storage.Record, 0, len(s.order))
	for _, id := range s.order {
		v, ok := s.data.Get(id)
		if !ok {
			continue
		}
		all = append(all, v.(storage.Record))
	}

	filtered := all[:0:0]
	for _, rec := range all {
		if matchFilters(rec, params.Filters) && matchSearch(rec, s.searchFields, params.Search) {
			filtered = append(filtered, rec)
		}
	}

	if params.SortBy != "" {
		desc := params.SortOrder == storage.SortDesc
		sort.SliceStable(filtered, func(i, j int) bool {
			less := compare(filtered[i][params.SortBy], filtered[j][params.SortBy])
			if desc {
				return less > 0
			}
			return less < 0
		})
	}

	total := len(filtered)
	page, pageSize := params.Page, params.PageSize
	if page <= 0 {
		page = 1
	}
	items := filtered
	if pageSize > 0 {
		start := (page - 1) * pageSize
		if start > total {
			start = total
		}
		end := start + pageSize
		if end > total {
			end = total
		}
		items = filtered[start:end]
	}

	out := make([]storage.Record, len(items))
	for i, r := range items {
		out[i] = cloneRecord(r)
	}
	return storage.ListResult{Items: out, Total: total}, nil
}

func matchFilters(rec storage.Record, filters map[string]any) bool {
	for field, want := range filters {
		got, ok := rec[field]
		if !ok {
			return false
		}
		switch w := want.(type) {
		case string:
			gs, ok := got.(string)
			if !ok || !strings.Contains(strings.ToLower(gs), strings.ToLower(w)) {
				return false
			}
		default:
			if compare(got, want) != 0 {
				return false
			}
		}
	}
	return true
}

func matchSearch(rec storage.Record, fields []string, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	for _, f := range fields {
		if s, ok := rec[f].(string); ok && strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return len(fields) == 0 // no declared search fields: search matches everything
}

func compare(a, b any) int {
	as := toID(a)
	bs := toID(b)
	if as == "" {
		as, _ = a.(string)
	}
	if bs == "" {
		bs, _ = b.(string)
	}
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(as, bs)
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

func cloneRecord(r storage.Record) storage.Record {
	out := make(storage.Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
