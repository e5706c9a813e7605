package mockstore_test

import (
	"context"
	"testing"

	"github.com/forbearing/admincore/storage"
	"github.com/forbearing/admincore/storage/mockstore"
	"github.com/forbearing/admincore/types"
	"github.com/stretchr/testify/require"
)

func TestWriteThroughPersistence(t *testing.T) {
	ctx := context.Background()
	kv := mockstore.NewMemKV()

	s1 := mockstore.New("books", mockstore.WithKV(kv))
	_, err := s1.Create(ctx, storage.Record{"id": "1", "title": "x"}, nil)
	require.NoError(t, err)

	s2 := mockstore.New("books", mockstore.WithKV(kv))
	rec, err := s2.Get(ctx, "1", nil)
	require.NoError(t, err)
	require.Equal(t, "x", rec["title"])
}

func TestAuthCheckRejectsUnauthenticated(t *testing.T) {
	ctx := context.Background()
	s := mockstore.New("books", mockstore.WithAuthCheck(func(rc *types.RequestContext) bool {
		return rc != nil && rc.Username != ""
	}))

	_, err := s.List(ctx, storage.ListParams{}, nil)
	require.Error(t, err)

	_, err = s.List(ctx, storage.ListParams{}, &types.RequestContext{Username: "alice"})
	require.NoError(t, err)
}

func TestSeedsFromInitialDataWhenEmpty(t *testing.T) {
	ctx := context.Background()
	s := mockstore.New("books", mockstore.WithInitialData([]storage.Record{
		{"id": "1", "title": "seed"},
	}))
	rec, err := s.Get(ctx, "1", nil)
	require.NoError(t, err)
	require.Equal(t, "seed", rec["title"])
}

func TestDistinctAndDistinctWithCount(t *testing.T) {
	ctx := context.Background()
	s := mockstore.New("books", mockstore.WithInitialData([]storage.Record{
		{"id": "1", "genre": "scifi"},
		{"id": "2", "genre": "scifi"},
		{"id": "3", "genre": "fantasy"},
	}))

	values, err := s.Distinct(ctx, "genre")
	require.NoError(t, err)
	require.ElementsMatch(t, []any{"scifi", "fantasy"}, values)

	counts, err := s.DistinctWithCount(ctx, "genre")
	require.NoError(t, err)
	require.Equal(t, 2, counts["scifi"])
	require.Equal(t, 1, counts["fantasy"])
}
