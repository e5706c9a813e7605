package orchestrator_test

import (
	"context"
	"testing"

	"github.com/forbearing/admincore/deferred"
	"github.com/forbearing/admincore/entity"
	"github.com/forbearing/admincore/orchestrator"
	"github.com/forbearing/admincore/signal"
	"github.com/forbearing/admincore/storage"
	"github.com/forbearing/admincore/storage/localstore"
	"github.com/stretchr/testify/require"
)

type allowAll struct{}

func (allowAll) IsGranted(string, storage.Record) bool { return true }
func (allowAll) GetPermissions(string) []string         { return nil }

func booksManager() *entity.Manager {
	st := localstore.New(localstore.WithIDField("id"))
	return entity.New(entity.Config{Name: "books", Storage: st, AuthAdapter: allowAll{}}, nil, nil)
}

func TestGetBuildsViaFactoryOnMiss(t *testing.T) {
	built := false
	o := orchestrator.New(orchestrator.Config{
		EntityFactory: func(name string) (orchestrator.Manager, error) {
			built = true
			return booksManager(), nil
		},
	})
	mgr, err := o.Get("books")
	require.NoError(t, err)
	require.True(t, built)
	require.Equal(t, "books", mgr.Name())
	require.True(t, o.Has("books"))
}

func TestGetReturnsPreRegisteredManagerWithoutFactory(t *testing.T) {
	mgr := booksManager()
	o := orchestrator.New(orchestrator.Config{Managers: map[string]orchestrator.Manager{"books": mgr}})
	got, err := o.Get("books")
	require.NoError(t, err)
	require.Equal(t, mgr, got)
}

func TestGetWithoutFactoryOrManagerErrors(t *testing.T) {
	o := orchestrator.New(orchestrator.Config{})
	_, err := o.Get("missing")
	require.Error(t, err)
}

func TestCacheInvalidateSignalBindsToManager(t *testing.T) {
	sig := signal.New(nil)
	mgr := booksManager()
	ctx := context.Background()
	_, err := mgr.Create(ctx, storage.Record{"id": "1"}, nil)
	require.NoError(t, err)
	_, _, err = mgr.List(ctx, storage.ListParams{}, nil)
	require.NoError(t, err)

	o := orchestrator.New(orchestrator.Config{Signals: sig, Managers: map[string]orchestrator.Manager{"books": mgr}})
	_ = o

	sig.Emit(ctx, "cache:entity:invalidate:books", nil)
}

func TestDisposeClearsManagers(t *testing.T) {
	o := orchestrator.New(orchestrator.Config{Managers: map[string]orchestrator.Manager{"books": booksManager()}})
	require.True(t, o.Has("books"))
	o.Dispose()
	require.False(t, o.Has("books"))
}

func TestFireWarmupsInvokesRegisteredManagers(t *testing.T) {
	d := deferred.New()
	mgr := booksManager()
	o := orchestrator.New(orchestrator.Config{
		Managers:     map[string]orchestrator.Manager{"books": mgr},
		Deferred:     d,
		KernelWarmup: true,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	o.FireWarmups(ctx)
	d.Resolve(ctx, "auth:ready", nil)
}

func TestGetRegisteredNames(t *testing.T) {
	o := orchestrator.New(orchestrator.Config{Managers: map[string]orchestrator.Manager{
		"books":   booksManager(),
		"authors": booksManager(),
	}})
	names := o.GetRegisteredNames()
	require.Len(t, names, 2)
}
