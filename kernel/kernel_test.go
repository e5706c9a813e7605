package kernel_test

import (
	"context"
	"testing"

	"github.com/forbearing/admincore/entity"
	"github.com/forbearing/admincore/eventrouter"
	"github.com/forbearing/admincore/kernel"
	"github.com/forbearing/admincore/orchestrator"
	"github.com/forbearing/admincore/storage/localstore"
	"github.com/forbearing/admincore/zone"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	loggedOut    bool
	impersonated string
}

func (f *fakeSession) Login(ctx context.Context, creds map[string]any) (string, string, error) {
	return "tok", "alice", nil
}
func (f *fakeSession) Logout(ctx context.Context) error { f.loggedOut = true; return nil }
func (f *fakeSession) IsAuthenticated() bool            { return true }
func (f *fakeSession) GetToken() string                 { return "tok" }
func (f *fakeSession) GetUser() string                  { return "alice" }
func (f *fakeSession) Impersonate(ctx context.Context, target string) error {
	f.impersonated = target
	return nil
}
func (f *fakeSession) StopImpersonating(ctx context.Context) error { f.impersonated = ""; return nil }
func (f *fakeSession) DestroySession() error                       { return nil }

type recordingModule struct{ connected bool }

func (m *recordingModule) Connect(ctx *kernel.ModuleContext) error {
	m.connected = true
	ctx.Zone("dashboard")
	ctx.Block("dashboard", zone.Block{ID: "widget", Component: "Widget"})
	ctx.CRUD("/books", nil, nil)
	return nil
}

func TestBootWiresAllSubsystems(t *testing.T) {
	mod := &recordingModule{}
	k, err := kernel.Boot(context.Background(), kernel.Config{
		Modules: []kernel.Module{mod},
	})
	require.NoError(t, err)
	require.True(t, mod.connected)
	require.NotNil(t, k.Signals)
	require.NotNil(t, k.Hooks)
	require.NotNil(t, k.Zones)
	require.NotNil(t, k.Security)
	require.NotNil(t, k.Orchestrator)
	require.NotNil(t, k.Deferred)
	require.Len(t, k.ModuleCtx.CRUDDeclarations(), 1)
	require.Len(t, k.ModuleCtx.BlockDeclarations(), 1)
}

func TestSessionLoginFulfillsAuthReady(t *testing.T) {
	session := &fakeSession{}
	k, err := kernel.Boot(context.Background(), kernel.Config{Session: session})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		_, _ = k.Deferred.Await(context.Background(), "auth:ready")
		close(done)
	}()

	k.Signals.Emit(context.Background(), "auth:login", map[string]any{"user": "alice"})
	<-done
	require.True(t, k.Deferred.IsSettled("auth:ready"))
}

func TestSessionLogoutSignalInvokesAdapter(t *testing.T) {
	session := &fakeSession{}
	k, err := kernel.Boot(context.Background(), kernel.Config{Session: session})
	require.NoError(t, err)

	k.Signals.Emit(context.Background(), "auth:logout", nil)
	require.True(t, session.loggedOut)
}

func TestEventRouterWiredFromConfig(t *testing.T) {
	var got any
	k, err := kernel.Boot(context.Background(), kernel.Config{
		Routes: eventrouter.Routes{
			"a": {{Signal: "b"}},
		},
	})
	require.NoError(t, err)
	k.Signals.On("b", func(ctx context.Context, name string, payload any) { got = payload })
	k.Signals.Emit(context.Background(), "a", "x")
	require.Equal(t, "x", got)
}

func TestEntityFactoryBuildsManagerThroughOrchestrator(t *testing.T) {
	k, err := kernel.Boot(context.Background(), kernel.Config{
		EntityFactory: func(name string) (orchestrator.Manager, error) {
			st := localstore.New(localstore.WithIDField("id"))
			return entity.New(entity.Config{Name: name, Storage: st}, nil, nil), nil
		},
	})
	require.NoError(t, err)
	mgr, err := k.Orchestrator.Get("books")
	require.NoError(t, err)
	require.Equal(t, "books", mgr.Name())
}
