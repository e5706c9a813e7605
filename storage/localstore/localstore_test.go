package localstore_test

import (
	"context"
	"testing"

	"github.com/forbearing/admincore/storage"
	"github.com/forbearing/admincore/storage/localstore"
	"github.com/stretchr/testify/require"
)

func TestCreateGetDelete(t *testing.T) {
	s := localstore.New()
	ctx := context.Background()

	rec, err := s.Create(ctx, storage.Record{"id": "1", "title": "Go in Action"}, nil)
	require.NoError(t, err)
	require.Equal(t, "1", rec["id"])

	got, err := s.Get(ctx, "1", nil)
	require.NoError(t, err)
	require.Equal(t, "Go in Action", got["title"])

	require.NoError(t, s.Delete(ctx, "1", nil))
	_, err = s.Get(ctx, "1", nil)
	require.Error(t, err)
}

func TestListFilterSortPaginate(t *testing.T) {
	s := localstore.New(localstore.WithSearchFields("title"))
	ctx := context.Background()
	for i, title := range []string{"Alpha", "Beta", "Gamma"} {
		_, err := s.Create(ctx, storage.Record{"id": string(rune('a' + i)), "title": title, "rank": i}, nil)
		require.NoError(t, err)
	}

	res, err := s.List(ctx, storage.ListParams{SortBy: "rank", SortOrder: storage.SortDesc}, nil)
	require.NoError(t, err)
	require.Equal(t, 3, res.Total)
	require.Equal(t, "Gamma", res.Items[0]["title"])

	res, err = s.List(ctx, storage.ListParams{Search: "beta"}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	require.Equal(t, "Beta", res.Items[0]["title"])

	res, err = s.List(ctx, storage.ListParams{Page: 2, PageSize: 1, SortBy: "rank"}, nil)
	require.NoError(t, err)
	require.Equal(t, 3, res.Total)
	require.Len(t, res.Items, 1)
	require.Equal(t, "Beta", res.Items[0]["title"])
}

func TestPatchMergesFields(t *testing.T) {
	s := localstore.New()
	ctx := context.Background()
	_, err := s.Create(ctx, storage.Record{"id": "1", "title": "x", "rank": 1}, nil)
	require.NoError(t, err)

	rec, err := s.Patch(ctx, "1", storage.Record{"title": "y"}, nil)
	require.NoError(t, err)
	require.Equal(t, "y", rec["title"])
	require.Equal(t, 1, rec["rank"])
}
