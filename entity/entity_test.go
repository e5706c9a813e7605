package entity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/forbearing/admincore/entity"
	"github.com/forbearing/admincore/hook"
	"github.com/forbearing/admincore/signal"
	"github.com/forbearing/admincore/storage"
	"github.com/forbearing/admincore/storage/localstore"
	"github.com/forbearing/admincore/types"
	"github.com/stretchr/testify/require"
)

type allowAll struct{}

func (allowAll) IsGranted(string, storage.Record) bool { return true }
func (allowAll) GetPermissions(string) []string         { return nil }

type denyAll struct{}

func (denyAll) IsGranted(string, storage.Record) bool { return false }
func (denyAll) GetPermissions(string) []string         { return nil }

func newManager(t *testing.T, threshold int) (*entity.Manager, *signal.Bus, *hook.Registry) {
	st := localstore.New(localstore.WithIDField("id"), localstore.WithSearchFields("title"))
	sig := signal.New(nil)
	hk := hook.New(nil)
	mgr := entity.New(entity.Config{
		Name:                 "books",
		IDField:              "id",
		Storage:              st,
		LocalFilterThreshold: threshold,
		AuthAdapter:          allowAll{},
	}, sig, hk)
	return mgr, sig, hk
}

func TestCreateGetPatchDeleteLifecycle(t *testing.T) {
	mgr, _, _ := newManager(t, 0)
	ctx := context.Background()

	rec, err := mgr.Create(ctx, storage.Record{"id": "1", "title": "Go"}, nil)
	require.NoError(t, err)
	require.Equal(t, "Go", rec["title"])

	got, err := mgr.Get(ctx, "1", nil)
	require.NoError(t, err)
	require.Equal(t, "Go", got["title"])

	updated, err := mgr.Patch(ctx, "1", storage.Record{"title": "Go 2"}, nil)
	require.NoError(t, err)
	require.Equal(t, "Go 2", updated["title"])

	require.NoError(t, mgr.Delete(ctx, "1", nil))
	_, err = mgr.Get(ctx, "1", nil)
	require.Error(t, err)
}

func TestPermissionGateDenies(t *testing.T) {
	st := localstore.New(localstore.WithIDField("id"))
	mgr := entity.New(entity.Config{
		Name:        "books",
		Storage:     st,
		AuthAdapter: denyAll{},
	}, signal.New(nil), hook.New(nil))

	_, err := mgr.Create(context.Background(), storage.Record{"id": "1"}, nil)
	require.Error(t, err)
}

func TestScopeWhitelistBypassesAuthAdapter(t *testing.T) {
	st := localstore.New(localstore.WithIDField("id"))
	mgr := entity.New(entity.Config{
		Name:           "books",
		Storage:        st,
		AuthAdapter:    denyAll{},
		ScopeWhitelist: []string{"service"},
	}, signal.New(nil), hook.New(nil))

	rc := &types.RequestContext{Scope: "service"}
	_, err := mgr.Create(context.Background(), storage.Record{"id": "1"}, rc)
	require.NoError(t, err)
}

func TestDefaultsAppliedOnCreate(t *testing.T) {
	st := localstore.New(localstore.WithIDField("id"))
	mgr := entity.New(entity.Config{
		Name:        "books",
		Storage:     st,
		AuthAdapter: allowAll{},
		Fields: map[string]types.FieldSchema{
			"status": {Default: "draft"},
		},
	}, signal.New(nil), hook.New(nil))

	rec, err := mgr.Create(context.Background(), storage.Record{"id": "1"}, nil)
	require.NoError(t, err)
	require.Equal(t, "draft", rec["status"])
}

func TestPresaveHookCanVetoWrite(t *testing.T) {
	mgr, _, hk := newManager(t, 0)
	hk.OnInvoke("books:presave", func(ctx context.Context, hctx *hook.InvokeContext) error {
		return errors.New("vetoed")
	})
	_, err := mgr.Create(context.Background(), storage.Record{"id": "1"}, nil)
	require.Error(t, err)
}

func TestWriteEmitsEntityAndDomainSignals(t *testing.T) {
	mgr, sig, _ := newManager(t, 0)
	var seen []string
	sig.On("**", func(ctx context.Context, name string, payload any) {
		seen = append(seen, name)
	})
	_, err := mgr.Create(context.Background(), storage.Record{"id": "1", "title": "Go"}, nil)
	require.NoError(t, err)
	require.Contains(t, seen, "books:create")
	require.Contains(t, seen, "entity:create")
}

func TestCacheFillsBelowThresholdAndQueryUsesCache(t *testing.T) {
	mgr, _, _ := newManager(t, 10)
	ctx := context.Background()
	_, err := mgr.Create(ctx, storage.Record{"id": "1", "title": "Go in Action"}, nil)
	require.NoError(t, err)
	_, err = mgr.Create(ctx, storage.Record{"id": "2", "title": "Rust Book"}, nil)
	require.NoError(t, err)

	_, _, err = mgr.List(ctx, storage.ListParams{}, nil)
	require.NoError(t, err)

	res, fromCache, err := mgr.Query(ctx, storage.ListParams{Search: "Go"}, nil)
	require.NoError(t, err)
	require.True(t, fromCache)
	require.Len(t, res.Items, 1)
}

func TestWriteInvalidatesCache(t *testing.T) {
	mgr, _, _ := newManager(t, 10)
	ctx := context.Background()
	_, err := mgr.Create(ctx, storage.Record{"id": "1", "title": "Go"}, nil)
	require.NoError(t, err)
	_, _, err = mgr.List(ctx, storage.ListParams{}, nil)
	require.NoError(t, err)

	_, err = mgr.Create(ctx, storage.Record{"id": "2", "title": "Rust"}, nil)
	require.NoError(t, err)

	_, fromCache, err := mgr.Query(ctx, storage.ListParams{}, nil)
	require.NoError(t, err)
	require.False(t, fromCache)
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	st := localstore.New(localstore.WithIDField("id"))
	mgr := entity.New(entity.Config{
		Name:        "books",
		Storage:     st,
		AuthAdapter: allowAll{},
		ReadOnly:    true,
	}, signal.New(nil), hook.New(nil))

	_, err := mgr.Create(context.Background(), storage.Record{"id": "1"}, nil)
	require.Error(t, err)
}
