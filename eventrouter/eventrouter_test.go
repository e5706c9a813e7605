package eventrouter_test

import (
	"context"
	"testing"

	"github.com/forbearing/admincore/eventrouter"
	"github.com/forbearing/admincore/kerrors"
	"github.com/forbearing/admincore/orchestrator"
	"github.com/forbearing/admincore/signal"
	"github.com/stretchr/testify/require"
)

func TestRouteForwardsToDestinationSignal(t *testing.T) {
	bus := signal.New(nil)
	var got any
	bus.On("b", func(ctx context.Context, name string, payload any) { got = payload })

	_, err := eventrouter.New(eventrouter.Routes{
		"a": {{Signal: "b"}},
	}, bus, nil)
	require.NoError(t, err)

	bus.Emit(context.Background(), "a", "hello")
	require.Equal(t, "hello", got)
}

func TestRouteAppliesTransform(t *testing.T) {
	bus := signal.New(nil)
	var got any
	bus.On("b", func(ctx context.Context, name string, payload any) { got = payload })

	_, err := eventrouter.New(eventrouter.Routes{
		"a": {{Signal: "b", Transform: func(p any) any { return p.(string) + "!" }}},
	}, bus, nil)
	require.NoError(t, err)

	bus.Emit(context.Background(), "a", "hi")
	require.Equal(t, "hi!", got)
}

func TestRouteCallbackDestination(t *testing.T) {
	bus := signal.New(nil)
	called := false
	_, err := eventrouter.New(eventrouter.Routes{
		"a": {{Callback: func(ctx context.Context, payload any, signals *signal.Bus, orch *orchestrator.Orchestrator) {
			called = true
		}}},
	}, bus, nil)
	require.NoError(t, err)

	bus.Emit(context.Background(), "a", nil)
	require.True(t, called)
}

func TestCycleFailsConstruction(t *testing.T) {
	bus := signal.New(nil)
	_, err := eventrouter.New(eventrouter.Routes{
		"a": {{Signal: "b"}},
		"b": {{Signal: "a"}},
	}, bus, nil)
	require.Error(t, err)
	require.True(t, kerrors.IsCycle(err))
}

func TestNoCycleThroughUnroutedSignal(t *testing.T) {
	bus := signal.New(nil)
	_, err := eventrouter.New(eventrouter.Routes{
		"a": {{Signal: "external"}},
	}, bus, nil)
	require.NoError(t, err)
}
