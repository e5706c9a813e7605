package client_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/forbearing/admincore/client"
	"github.com/stretchr/testify/require"
)

type book struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title,omitempty"`
}

func jsonResp(w http.ResponseWriter, data any) {
	raw, _ := json.Marshal(data)
	resp := struct {
		Code      int             `json:"code"`
		Msg       string          `json:"msg"`
		Data      json.RawMessage `json:"data"`
		RequestID string          `json:"request_id"`
	}{Code: 0, Data: raw, RequestID: "req-1"}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func TestClientCreateGetUpdatePatchDelete(t *testing.T) {
	store := map[string]book{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var b book
			_ = json.NewDecoder(r.Body).Decode(&b)
			b.ID = "1"
			store["1"] = b
			jsonResp(w, b)
		case http.MethodGet:
			jsonResp(w, store["1"])
		case http.MethodPut:
			var b book
			_ = json.NewDecoder(r.Body).Decode(&b)
			b.ID = "1"
			store["1"] = b
			jsonResp(w, b)
		case http.MethodPatch:
			var patch map[string]any
			_ = json.NewDecoder(r.Body).Decode(&patch)
			b := store["1"]
			if title, ok := patch["title"].(string); ok {
				b.Title = title
			}
			store["1"] = b
			jsonResp(w, b)
		case http.MethodDelete:
			delete(store, "1")
			jsonResp(w, map[string]any{})
		}
	}))
	defer srv.Close()

	cli, err := client.New(srv.URL, client.WithToken("tok"))
	require.NoError(t, err)

	resp, err := cli.Create(&book{Title: "Go"})
	require.NoError(t, err)
	require.Equal(t, "req-1", resp.RequestID)

	var got book
	_, err = cli.Get("1", &got)
	require.NoError(t, err)
	require.Equal(t, "Go", got.Title)

	_, err = cli.Update("1", &book{Title: "Go (2nd ed)"})
	require.NoError(t, err)
	_, err = cli.Get("1", &got)
	require.NoError(t, err)
	require.Equal(t, "Go (2nd ed)", got.Title)

	_, err = cli.Patch("1", &book{Title: "Go (3rd ed)"})
	require.NoError(t, err)
	_, err = cli.Get("1", &got)
	require.NoError(t, err)
	require.Equal(t, "Go (3rd ed)", got.Title)

	_, err = cli.Delete("1")
	require.NoError(t, err)
}

func TestClientQueryStringAndRequestURL(t *testing.T) {
	cli, err := client.New("http://localhost:8080", client.WithQueryRaw("page=1&size=10"))
	require.NoError(t, err)

	qs, err := cli.QueryString()
	require.NoError(t, err)
	require.Equal(t, "page=1&size=10", qs)

	url, err := cli.RequestURL()
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080?page=1&size=10", url)
}

func TestClientRequestEscapeHatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		jsonResp(w, map[string]any{"ping": "pong"})
	}))
	defer srv.Close()

	cli, err := client.New(srv.URL)
	require.NoError(t, err)

	resp, err := cli.Request(http.MethodGet, "/health", nil)
	require.NoError(t, err)
	var body map[string]string
	require.NoError(t, json.Unmarshal(resp.Data, &body))
	require.Equal(t, "pong", body["ping"])
}
