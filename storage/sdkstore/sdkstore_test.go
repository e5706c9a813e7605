package sdkstore_test

import (
	"context"
	"testing"

	"github.com/forbearing/admincore/storage"
	"github.com/forbearing/admincore/storage/sdkstore"
	"github.com/stretchr/testify/require"
)

// fakeSDK is a stand-in "generated SDK" exercising method-name
// binding via reflection (as opposed to the callback form).
type fakeSDK struct {
	records map[string]storage.Record
}

func newFakeSDK() *fakeSDK {
	return &fakeSDK{records: map[string]storage.Record{
		"1": {"id": "1", "title": "Go"},
	}}
}

func (f *fakeSDK) FetchOne(ctx context.Context, id any) (storage.Record, error) {
	rec, ok := f.records[id.(string)]
	if !ok {
		return nil, nil
	}
	return rec, nil
}

func TestMethodNameBindingViaReflection(t *testing.T) {
	sdk := newFakeSDK()
	s := sdkstore.New(sdk, sdkstore.Bindings{
		Get: sdkstore.MethodBinding{Method: "FetchOne"},
	})
	rec, err := s.Get(context.Background(), "1", nil)
	require.NoError(t, err)
	require.Equal(t, "Go", rec["title"])
}

func TestCallbackBindingTakesPrecedence(t *testing.T) {
	called := false
	s := sdkstore.New(struct{}{}, sdkstore.Bindings{
		Get: sdkstore.MethodBinding{
			Method: "Unused",
			Callback: func(ctx context.Context, sdk any, params any) (any, error) {
				called = true
				return storage.Record{"id": params, "title": "from callback"}, nil
			},
		},
	})
	rec, err := s.Get(context.Background(), "42", nil)
	require.NoError(t, err)
	require.True(t, called)
	require.Equal(t, "from callback", rec["title"])
}

func TestListExtractsItemsAndTotalByResponseFormat(t *testing.T) {
	s := sdkstore.New(struct{}{}, sdkstore.Bindings{
		List: sdkstore.MethodBinding{
			Callback: func(ctx context.Context, sdk any, params any) (any, error) {
				return map[string]any{
					"rows": []map[string]any{{"id": "1"}, {"id": "2"}},
					"count": 2,
				}, nil
			},
		},
	}, sdkstore.WithResponseFormat(sdkstore.ResponseFormat{ItemsField: "rows", TotalField: "count"}))

	res, err := s.List(context.Background(), storage.ListParams{}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, res.Total)
	require.Len(t, res.Items, 2)
}

func TestClientSidePagination(t *testing.T) {
	s := sdkstore.New(struct{}{}, sdkstore.Bindings{
		List: sdkstore.MethodBinding{
			Callback: func(ctx context.Context, sdk any, params any) (any, error) {
				items := make([]storage.Record, 0, 5)
				for i := 0; i < 5; i++ {
					items = append(items, storage.Record{"n": i})
				}
				return items, nil
			},
		},
	}, sdkstore.WithClientPagination())

	res, err := s.List(context.Background(), storage.ListParams{Page: 2, PageSize: 2}, nil)
	require.NoError(t, err)
	require.Equal(t, 5, res.Total)
	require.Len(t, res.Items, 2)
	require.Equal(t, 2, res.Items[0]["n"])
}

func TestGlobalRequestResponseTransforms(t *testing.T) {
	var sawPayload any
	s := sdkstore.New(struct{}{}, sdkstore.Bindings{
		Create: sdkstore.MethodBinding{
			Callback: func(ctx context.Context, sdk any, params any) (any, error) {
				sawPayload = params
				return storage.Record{"id": "1"}, nil
			},
		},
	},
		sdkstore.WithRequestTransform(func(ctx context.Context, data any) (any, error) {
			rec := data.(storage.Record)
			rec["stamped"] = true
			return rec, nil
		}),
		sdkstore.WithResponseTransform(func(ctx context.Context, data any) (any, error) {
			rec := data.(storage.Record)
			rec["touched"] = true
			return rec, nil
		}),
	)

	rec, err := s.Create(context.Background(), storage.Record{"title": "x"}, nil)
	require.NoError(t, err)
	require.Equal(t, true, sawPayload.(storage.Record)["stamped"])
	require.Equal(t, true, rec["touched"])
}

func TestMissingBindingReturnsInvalidInput(t *testing.T) {
	s := sdkstore.New(struct{}{}, sdkstore.Bindings{})
	_, err := s.Get(context.Background(), "1", nil)
	require.Error(t, err)
}

func TestGetNotFoundWhenCallbackReturnsNil(t *testing.T) {
	s := sdkstore.New(struct{}{}, sdkstore.Bindings{
		Get: sdkstore.MethodBinding{
			Callback: func(ctx context.Context, sdk any, params any) (any, error) {
				return nil, nil
			},
		},
	})
	_, err := s.Get(context.Background(), "missing", nil)
	require.Error(t, err)
}
