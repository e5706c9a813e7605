package apistore_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/forbearing/admincore/storage"
	"github.com/forbearing/admincore/storage/apistore"
	"github.com/forbearing/admincore/types"
	"github.com/stretchr/testify/require"
)

func jsonResp(w http.ResponseWriter, code int, data any) {
	raw, _ := json.Marshal(data)
	resp := struct {
		Code int             `json:"code"`
		Msg  string          `json:"msg"`
		Data json.RawMessage `json:"data"`
	}{Code: 0, Data: raw}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

func TestListAndGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/books":
			jsonResp(w, 200, map[string]any{
				"items": []map[string]any{{"id": "1", "title": "Go"}},
				"total": 1,
			})
		case r.Method == http.MethodGet && r.URL.Path == "/api/books/1":
			jsonResp(w, 200, map[string]any{"id": "1", "title": "Go"})
		}
	}))
	defer srv.Close()

	s := apistore.New(srv.URL, "/api/books")
	res, err := s.List(context.Background(), storage.ListParams{Page: 1, PageSize: 10}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	require.Equal(t, "Go", res.Items[0]["title"])

	rec, err := s.Get(context.Background(), "1", nil)
	require.NoError(t, err)
	require.Equal(t, "Go", rec["title"])
}

func TestCreateUpdatePatchDelete(t *testing.T) {
	var lastMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastMethod = r.Method
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			body["id"] = "1"
			jsonResp(w, 200, body)
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	s := apistore.New(srv.URL, "/api/books")
	ctx := context.Background()

	rec, err := s.Create(ctx, storage.Record{"title": "new"}, nil)
	require.NoError(t, err)
	require.Equal(t, "new", rec["title"])
	require.Equal(t, http.MethodPost, lastMethod)

	rec, err = s.Update(ctx, "1", storage.Record{"title": "updated"}, nil)
	require.NoError(t, err)
	require.Equal(t, "updated", rec["title"])

	rec, err = s.Patch(ctx, "1", storage.Record{"title": "patched"}, nil)
	require.NoError(t, err)
	require.Equal(t, "patched", rec["title"])

	require.NoError(t, s.Delete(ctx, "1", nil))
	require.Equal(t, http.MethodDelete, lastMethod)
}

func TestNormalizeDenormalize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		jsonResp(w, 200, body)
	}))
	defer srv.Close()

	s := apistore.New(srv.URL, "/api/books",
		apistore.WithDenormalize(func(ctx context.Context, rec storage.Record) (storage.Record, error) {
			rec["wire_title"] = rec["title"]
			delete(rec, "title")
			return rec, nil
		}),
		apistore.WithNormalize(func(ctx context.Context, raw storage.Record, rc *types.RequestContext) (storage.Record, error) {
			raw["title"] = raw["wire_title"]
			return raw, nil
		}),
	)

	rec, err := s.Create(context.Background(), storage.Record{"title": "x"}, nil)
	require.NoError(t, err)
	require.Equal(t, "x", rec["title"])
	require.Equal(t, "x", rec["wire_title"])
}
