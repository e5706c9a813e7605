// Package apistore implements ApiStorage: a storage.Storage adapter
// wrapping an HTTP-like client (spec §4.5).
//
// Grounded directly on forbearing-gst's client package
// (client/client.go): Create/Delete/Update/Patch/Get map onto
// client.Client's same-named methods (POST/DELETE/PUT/PATCH/GET), List
// is a GET through client.Client.Request so the configured items/total
// response keys can be read, the
// Resp{Code,Msg,Data,RequestID} envelope unwrap is reused verbatim,
// and the escape hatch (spec's request(method,path,options)) maps to
// client.Client.Request -- added during adaptation since the teacher
// only exposed action-routed requests internally. Query encoding
// reuses client's google/go-querystring-backed QueryString, fed here
// through the newly added client.WithQueryRaw option since list
// params are built per-call from storage.ListParams rather than from
// a model.Base struct tag set. golang.org/x/time/rate rate limiting
// and retry options are preserved by passing them through unchanged.
package apistore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/forbearing/admincore/client"
	"github.com/forbearing/admincore/kerrors"
	"github.com/forbearing/admincore/storage"
	"github.com/forbearing/admincore/types"
)

// NormalizeFunc transforms a raw API record into the manager's
// internal schema (spec §4.5: "optional normalize(apiRecord, context)").
type NormalizeFunc func(ctx context.Context, raw storage.Record, rc *types.RequestContext) (storage.Record, error)

// DenormalizeFunc is normalize's inverse, applied before writes.
type DenormalizeFunc func(ctx context.Context, record storage.Record) (storage.Record, error)

// Storage is the ApiStorage adapter.
type Storage struct {
	addr         string
	endpoint     string
	opts         []client.Option
	itemsKey     string
	totalKey     string
	paramMapping map[string]string // filter key -> query param name
	normalize    NormalizeFunc
	denormalize  DenormalizeFunc
	searchFields []string
}

// Option configures New.
type Option func(*Storage)

// WithResponseShape overrides the default "items"/"total" response
// keys (spec §4.5: "Configurable response shape").
func WithResponseShape(itemsKey, totalKey string) Option {
	return func(s *Storage) { s.itemsKey, s.totalKey = itemsKey, totalKey }
}

// WithParamMapping renames filter keys before they're sent as query
// parameters (spec §4.5: "parameter renaming (paramMapping) applied
// to filter keys only").
func WithParamMapping(mapping map[string]string) Option {
	return func(s *Storage) { s.paramMapping = mapping }
}

// WithNormalize/WithDenormalize install the bidirectional schema
// transforms.
func WithNormalize(fn NormalizeFunc) Option     { return func(s *Storage) { s.normalize = fn } }
func WithDenormalize(fn DenormalizeFunc) Option { return func(s *Storage) { s.denormalize = fn } }

// WithSearchFields declares which fields List's free-text search
// targets (forwarded as the "search" query parameter; the backend is
// responsible for interpreting it).
func WithSearchFields(fields ...string) Option {
	return func(s *Storage) { s.searchFields = fields }
}

// WithClientOptions forwards client.Option values (auth, retry, rate
// limiting, logging, ...) to every request-scoped client.Client this
// adapter constructs.
func WithClientOptions(opts ...client.Option) Option {
	return func(s *Storage) { s.opts = append(s.opts, opts...) }
}

// New creates an ApiStorage rooted at addr, issuing requests against
// endpoint (e.g. "/api/books").
func New(addr, endpoint string, opts ...Option) *Storage {
	s := &Storage{addr: addr, endpoint: endpoint, itemsKey: "items", totalKey: "total"}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Storage) newClient(extra ...client.Option) (*client.Client, error) {
	opts := append(append([]client.Option(nil), s.opts...), client.WithAPI(s.endpoint))
	opts = append(opts, extra...)
	return client.New(s.addr, opts...)
}

func (s *Storage) Capabilities() storage.Capabilities {
	return storage.Capabilities{
		SupportsTotal:      s.totalKey != "",
		SupportsFilters:    true,
		SupportsPagination: true,
		SupportsCaching:    true,
		SearchFields:       s.searchFields,
	}
}

func (s *Storage) queryString(params storage.ListParams) string {
	v := url.Values{}
	if params.Page > 0 {
		v.Set("page", strconv.Itoa(params.Page))
	}
	if params.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(params.PageSize))
	}
	if params.SortBy != "" {
		v.Set("sort_by", params.SortBy)
	}
	if params.SortOrder != "" {
		v.Set("sort_order", string(params.SortOrder))
	}
	if params.Search != "" {
		v.Set("search", params.Search)
	}
	for field, val := range params.Filters {
		name := field
		if mapped, ok := s.paramMapping[field]; ok {
			name = mapped
		}
		v.Set(name, fmt.Sprintf("%v", val))
	}
	return v.Encode()
}

func (s *Storage) List(ctx context.Context, params storage.ListParams, rc *types.RequestContext) (storage.ListResult, error) {
	cl, err := s.newClient(client.WithContext(ctx), client.WithQueryRaw(s.queryString(params)))
	if err != nil {
		return storage.ListResult{}, kerrors.Wrap(err, kerrors.Backend, "apistore: build client")
	}
	resp, err := cl.Request(http.MethodGet, s.endpoint, nil)
	if err != nil {
		return storage.ListResult{}, kerrors.Wrap(err, kerrors.Backend, "apistore: list")
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(resp.Data, &body); err != nil {
		return storage.ListResult{}, kerrors.Wrap(err, kerrors.InvalidInput, "apistore: decode list")
	}
	var items []json.RawMessage
	var total int64
	if raw, ok := body[s.itemsKey]; ok {
		if err := json.Unmarshal(raw, &items); err != nil {
			return storage.ListResult{}, kerrors.Wrap(err, kerrors.InvalidInput, "apistore: decode items")
		}
	}
	if raw, ok := body[s.totalKey]; ok {
		_ = json.Unmarshal(raw, &total)
	}
	out := make([]storage.Record, 0, len(items))
	for _, raw := range items {
		var rec storage.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return storage.ListResult{}, kerrors.Wrap(err, kerrors.InvalidInput, "apistore: decode item")
		}
		if rec, err = s.applyNormalize(ctx, rec, rc); err != nil {
			return storage.ListResult{}, err
		}
		out = append(out, rec)
	}
	return storage.ListResult{Items: out, Total: int(total)}, nil
}

func (s *Storage) Get(ctx context.Context, id string, rc *types.RequestContext) (storage.Record, error) {
	cl, err := s.newClient(client.WithContext(ctx))
	if err != nil {
		return nil, kerrors.Wrap(err, kerrors.Backend, "apistore: build client")
	}
	rec := storage.Record{}
	if _, err := cl.Get(id, &rec); err != nil {
		return nil, kerrors.Wrap(err, kerrors.NotFound, "apistore: get "+id)
	}
	return s.applyNormalize(ctx, rec, rc)
}

func (s *Storage) Create(ctx context.Context, data storage.Record, rc *types.RequestContext) (storage.Record, error) {
	payload, err := s.applyDenormalize(ctx, data)
	if err != nil {
		return nil, err
	}
	cl, err := s.newClient(client.WithContext(ctx))
	if err != nil {
		return nil, kerrors.Wrap(err, kerrors.Backend, "apistore: build client")
	}
	resp, err := cl.Create(payload)
	if err != nil {
		return nil, kerrors.Wrap(err, kerrors.Backend, "apistore: create")
	}
	return s.decodeAndNormalize(ctx, resp.Data, rc)
}

func (s *Storage) Update(ctx context.Context, id string, data storage.Record, rc *types.RequestContext) (storage.Record, error) {
	payload, err := s.applyDenormalize(ctx, data)
	if err != nil {
		return nil, err
	}
	cl, err := s.newClient(client.WithContext(ctx))
	if err != nil {
		return nil, kerrors.Wrap(err, kerrors.Backend, "apistore: build client")
	}
	resp, err := cl.Update(id, payload)
	if err != nil {
		return nil, kerrors.Wrap(err, kerrors.Backend, "apistore: update "+id)
	}
	return s.decodeAndNormalize(ctx, resp.Data, rc)
}

func (s *Storage) Patch(ctx context.Context, id string, data storage.Record, rc *types.RequestContext) (storage.Record, error) {
	payload, err := s.applyDenormalize(ctx, data)
	if err != nil {
		return nil, err
	}
	cl, err := s.newClient(client.WithContext(ctx))
	if err != nil {
		return nil, kerrors.Wrap(err, kerrors.Backend, "apistore: build client")
	}
	resp, err := cl.Patch(id, payload)
	if err != nil {
		return nil, kerrors.Wrap(err, kerrors.Backend, "apistore: patch "+id)
	}
	return s.decodeAndNormalize(ctx, resp.Data, rc)
}

func (s *Storage) Delete(ctx context.Context, id string, rc *types.RequestContext) error {
	cl, err := s.newClient(client.WithContext(ctx))
	if err != nil {
		return kerrors.Wrap(err, kerrors.Backend, "apistore: build client")
	}
	if _, err := cl.Delete(id); err != nil {
		return kerrors.Wrap(err, kerrors.Backend, "apistore: delete "+id)
	}
	return nil
}

// Request is the escape hatch for non-CRUD operations (spec §4.5).
func (s *Storage) Request(ctx context.Context, method, path string, options map[string]any) (any, error) {
	cl, err := s.newClient(client.WithContext(ctx))
	if err != nil {
		return nil, kerrors.Wrap(err, kerrors.Backend, "apistore: build client")
	}
	resp, err := cl.Request(method, path, options)
	if err != nil {
		return nil, kerrors.Wrap(err, kerrors.Backend, "apistore: request "+method+" "+path)
	}
	var out any
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &out); err != nil {
			return nil, kerrors.Wrap(err, kerrors.InvalidInput, "apistore: decode response")
		}
	}
	return out, nil
}

func (s *Storage) decodeAndNormalize(ctx context.Context, raw json.RawMessage, rc *types.RequestContext) (storage.Record, error) {
	rec := storage.Record{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, kerrors.Wrap(err, kerrors.InvalidInput, "apistore: decode response")
		}
	}
	return s.applyNormalize(ctx, rec, rc)
}

func (s *Storage) applyNormalize(ctx context.Context, rec storage.Record, rc *types.RequestContext) (storage.Record, error) {
	if s.normalize == nil {
		return rec, nil
	}
	out, err := s.normalize(ctx, rec, rc)
	if err != nil {
		return nil, kerrors.Wrap(err, kerrors.InvalidInput, "apistore: normalize")
	}
	return out, nil
}

func (s *Storage) applyDenormalize(ctx context.Context, rec storage.Record) (storage.Record, error) {
	if s.denormalize == nil {
		return rec, nil
	}
	out, err := s.denormalize(ctx, rec)
	if err != nil {
		return nil, kerrors.Wrap(err, kerrors.InvalidInput, "apistore: denormalize")
	}
	return out, nil
}

var _ storage.Requester = (*Storage)(nil)
