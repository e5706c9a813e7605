// Package sdkstore implements SdkStorage: a declarative binding over a
// generated SDK, where each CRUD operation maps to an SDK method name
// (invoked via reflection) or a callback (spec §4.5).
//
// Grounded on forbearing-gst's go.mongodb.org/mongo-driver/v2
// dependency, used here as the pack's stand-in "generated SDK":
// NewMongoBindings below binds List/Get/Create/Update/Patch/Delete to
// a *mongo.Collection's Find/FindOne/InsertOne/ReplaceOne/UpdateOne/DeleteOne
// methods through exactly the same declarative Bindings mechanism any
// other SDK would use, exercising bson.M filter construction and
// mongo.Cursor iteration.
package sdkstore

import (
	"context"
	"reflect"

	"github.com/forbearing/admincore/kerrors"
	"github.com/forbearing/admincore/storage"
	"github.com/forbearing/admincore/types"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Callback is the alternative to a bound method name: (sdk, params) →
// result.
type Callback func(ctx context.Context, sdk any, params any) (any, error)

// MethodBinding names an SDK method to invoke via reflection, or
// supplies a Callback that takes precedence when set.
type MethodBinding struct {
	Method   string
	Callback Callback
}

func (b MethodBinding) isZero() bool { return b.Method == "" && b.Callback == nil }

// Bindings declares the SDK surface for every CRUD operation.
type Bindings struct {
	List   MethodBinding
	Get    MethodBinding
	Create MethodBinding
	Update MethodBinding
	Patch  MethodBinding
	Delete MethodBinding
}

// ResponseFormat describes where list responses keep their payload
// (spec §4.5: "a response-format descriptor (dataField, totalField,
// itemsField) used to normalize list responses").
type ResponseFormat struct {
	DataField  string
	ItemsField string
	TotalField string
}

// Transform is a per-operation or global request/response transform.
type Transform func(ctx context.Context, data any) (any, error)

// Storage is the SdkStorage adapter.
type Storage struct {
	sdk            any
	bindings       Bindings
	format         ResponseFormat
	clientPaginate bool
	reqTransform   Transform
	respTransform  Transform
	searchFields   []string
}

// Option configures New.
type Option func(*Storage)

// WithResponseFormat sets the list response descriptor.
func WithResponseFormat(f ResponseFormat) Option { return func(s *Storage) { s.format = f } }

// WithClientPagination enables local pagination for SDKs that return
// every row at once (spec §4.5: "Optional client-side pagination").
func WithClientPagination() Option { return func(s *Storage) { s.clientPaginate = true } }

// WithRequestTransform/WithResponseTransform install global transforms
// applied to every operation's request/response payload.
func WithRequestTransform(fn Transform) Option  { return func(s *Storage) { s.reqTransform = fn } }
func WithResponseTransform(fn Transform) Option { return func(s *Storage) { s.respTransform = fn } }

func WithSearchFields(fields ...string) Option {
	return func(s *Storage) { s.searchFields = fields }
}

// New creates a Storage over sdk (any generated client) using bindings
// to dispatch each CRUD operation.
func New(sdk any, bindings Bindings, opts ...Option) *Storage {
	s := &Storage{sdk: sdk, bindings: bindings, format: ResponseFormat{ItemsField: "items", TotalField: "total"}}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Storage) Capabilities() storage.Capabilities {
	return storage.Capabilities{
		SupportsTotal:      s.format.TotalField != "",
		SupportsFilters:    true,
		SupportsPagination: s.clientPaginate,
		SupportsCaching:    s.clientPaginate,
		SearchFields:       s.searchFields,
	}
}

// invoke dispatches binding against s.sdk with params, preferring
// Callback over reflective method-name invocation.
func (s *Storage) invoke(ctx context.Context, binding MethodBinding, params any) (any, error) {
	if binding.isZero() {
		return nil, kerrors.New(kerrors.InvalidInput, "sdkstore: operation has no binding")
	}
	if binding.Callback != nil {
		return binding.Callback(ctx, s.sdk, params)
	}
	m := reflect.ValueOf(s.sdk).MethodByName(binding.Method)
	if !m.IsValid() {
		return nil, kerrors.Newf(kerrors.Backend, "sdkstore: sdk has no method %q", binding.Method)
	}
	args := []reflect.Value{reflect.ValueOf(ctx)}
	if params != nil {
		args = append(args, reflect.ValueOf(params))
	}
	out := m.Call(args)
	if len(out) == 0 {
		return nil, nil
	}
	last := out[len(out)-1]
	var err error
	if !last.IsNil() && last.Type().Implements(reflect.TypeOf((*error)(nil)).Elem()) {
		err, _ = last.Interface().(error)
	}
	if err != nil {
		return nil, kerrors.Wrap(err, kerrors.Backend, "sdkstore: sdk call failed")
	}
	if len(out) == 1 {
		return nil, nil
	}
	return out[0].Interface(), nil
}

func (s *Storage) applyReqTransform(ctx context.Context, data any) (any, error) {
	if s.reqTransform == nil {
		return data, nil
	}
	return s.reqTransform(ctx, data)
}

func (s *Storage) applyRespTransform(ctx context.Context, data any) (any, error) {
	if s.respTransform == nil {
		return data, nil
	}
	return s.respTransform(ctx, data)
}

func toRecord(v any) storage.Record {
	switch t := v.(type) {
	case storage.Record:
		return t
	default:
		return storage.Record{"value": v}
	}
}

func (s *Storage) List(ctx context.Context, params storage.ListParams, rc *types.RequestContext) (storage.ListResult, error) {
	raw, err := s.invoke(ctx, s.bindings.List, params)
	if err != nil {
		return storage.ListResult{}, err
	}
	raw, err = s.applyRespTransform(ctx, raw)
	if err != nil {
		return storage.ListResult{}, err
	}
	items, total := extractListShape(raw, s.format)
	if s.clientPaginate && params.PageSize > 0 {
		page := params.Page
		if page <= 0 {
			page = 1
		}
		start := (page - 1) * params.PageSize
		if start > len(items) {
			start = len(items)
		}
		end := start + params.PageSize
		if end > len(items) {
			end = len(items)
		}
		total = len(items)
		items = items[start:end]
	}
	return storage.ListResult{Items: items, Total: total}, nil
}

// extractListShape reads items/total out of raw according to format,
// first descending into format.DataField when set and present,
// tolerating both storage.ListResult-shaped maps and bare slices.
func extractListShape(raw any, format ResponseFormat) ([]storage.Record, int) {
	if m, ok := raw.(map[string]any); ok && format.DataField != "" {
		if inner, ok := m[format.DataField]; ok {
			raw = inner
		}
	}
	switch v := raw.(type) {
	case []storage.Record:
		return v, len(v)
	case map[string]any:
		itemsAny := v[format.ItemsField]
		total, _ := v[format.TotalField].(int)
		items := toRecordSlice(itemsAny)
		if total == 0 {
			total = len(items)
		}
		return items, total
	default:
		return nil, 0
	}
}

func toRecordSlice(v any) []storage.Record {
	switch t := v.(type) {
	case []storage.Record:
		return t
	case []any:
		out := make([]storage.Record, 0, len(t))
		for _, e := range t {
			out = append(out, toRecord(e))
		}
		return out
	default:
		return nil
	}
}

func (s *Storage) Get(ctx context.Context, id string, rc *types.RequestContext) (storage.Record, error) {
	raw, err := s.invoke(ctx, s.bindings.Get, id)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, kerrors.Newf(kerrors.NotFound, "sdkstore: record %q not found", id)
	}
	raw, err = s.applyRespTransform(ctx, raw)
	if err != nil {
		return nil, err
	}
	return toRecord(raw), nil
}

func (s *Storage) Create(ctx context.Context, data storage.Record, rc *types.RequestContext) (storage.Record, error) {
	payload, err := s.applyReqTransform(ctx, data)
	if err != nil {
		return nil, err
	}
	raw, err := s.invoke(ctx, s.bindings.Create, payload)
	if err != nil {
		return nil, err
	}
	raw, err = s.applyRespTransform(ctx, raw)
	if err != nil {
		return nil, err
	}
	return toRecord(raw), nil
}

func (s *Storage) Update(ctx context.Context, id string, data storage.Record, rc *types.RequestContext) (storage.Record, error) {
	return s.write(ctx, s.bindings.Update, id, data)
}

func (s *Storage) Patch(ctx context.Context, id string, data storage.Record, rc *types.RequestContext) (storage.Record, error) {
	return s.write(ctx, s.bindings.Patch, id, data)
}

func (s *Storage) write(ctx context.Context, binding MethodBinding, id string, data storage.Record) (storage.Record, error) {
	payload, err := s.applyReqTransform(ctx, data)
	if err != nil {
		return nil, err
	}
	raw, err := s.invoke(ctx, binding, map[string]any{"id": id, "data": payload})
	if err != nil {
		return nil, err
	}
	raw, err = s.applyRespTransform(ctx, raw)
	if err != nil {
		return nil, err
	}
	return toRecord(raw), nil
}

func (s *Storage) Delete(ctx context.Context, id string, rc *types.RequestContext) error {
	_, err := s.invoke(ctx, s.bindings.Delete, id)
	return err
}

var _ storage.Storage = (*Storage)(nil)

// NewMongoBindings binds List/Get/Create/Update/Patch/Delete onto
// coll's Find/FindOne/InsertOne/ReplaceOne/UpdateOne/DeleteOne methods, treating
// coll as the "generated SDK" (spec §4.5's SdkStorage is meant to bind
// over any generated client; mongo-driver's *mongo.Collection is the
// pack's only SDK-shaped client).
func NewMongoBindings(coll *mongo.Collection) Bindings {
	return Bindings{
		List: MethodBinding{Callback: func(ctx context.Context, sdk any, params any) (any, error) {
			cur, err := coll.Find(ctx, bson.M{})
			if err != nil {
				return nil, err
			}
			defer cur.Close(ctx)
			var docs []bson.M
			if err := cur.All(ctx, &docs); err != nil {
				return nil, err
			}
			items := make([]storage.Record, len(docs))
			for i, d := range docs {
				items[i] = storage.Record(d)
			}
			return items, nil
		}},
		Get: MethodBinding{Callback: func(ctx context.Context, sdk any, params any) (any, error) {
			id, _ := params.(string)
			var doc bson.M
			if err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
				if err == mongo.ErrNoDocuments {
					return nil, nil
				}
				return nil, err
			}
			return storage.Record(doc), nil
		}},
		Create: MethodBinding{Callback: func(ctx context.Context, sdk any, params any) (any, error) {
			doc, _ := params.(storage.Record)
			res, err := coll.InsertOne(ctx, doc)
			if err != nil {
				return nil, err
			}
			doc["_id"] = res.InsertedID
			return doc, nil
		}},
		Update: MethodBinding{Callback: func(ctx context.Context, sdk any, params any) (any, error) {
			m := params.(map[string]any)
			id := m["id"].(string)
			data := m["data"].(storage.Record)
			if _, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, data); err != nil {
				return nil, err
			}
			return data, nil
		}},
		Patch: MethodBinding{Callback: func(ctx context.Context, sdk any, params any) (any, error) {
			m := params.(map[string]any)
			id := m["id"].(string)
			data := m["data"].(storage.Record)
			if _, err := coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": data}); err != nil {
				return nil, err
			}
			return data, nil
		}},
		Delete: MethodBinding{Callback: func(ctx context.Context, sdk any, params any) (any, error) {
			id, _ := params.(string)
			_, err := coll.DeleteOne(ctx, bson.M{"_id": id})
			return nil, err
		}},
	}
}
