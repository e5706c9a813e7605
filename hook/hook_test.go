package hook_test

import (
	"context"
	"errors"
	"testing"

	"github.com/forbearing/admincore/hook"
	"github.com/stretchr/testify/require"
)

func TestInvokeOrdering(t *testing.T) {
	r := hook.New(nil)
	var order []string

	r.OnInvoke("entity:presave", func(ctx context.Context, hctx *hook.InvokeContext) error {
		order = append(order, "a")
		return nil
	}, hook.Options{Priority: 75, ID: "a"})
	r.OnInvoke("entity:presave", func(ctx context.Context, hctx *hook.InvokeContext) error {
		order = append(order, "b")
		return nil
	}, hook.Options{Priority: 50, ID: "b", After: []string{"a"}})
	r.OnInvoke("entity:presave", func(ctx context.Context, hctx *hook.InvokeContext) error {
		order = append(order, "c")
		return nil
	}, hook.Options{Priority: 50, ID: "c"})

	_, err := r.Invoke(context.Background(), "entity:presave", map[string]any{"title": "x"})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "c", "b"}, order)
}

func TestInvokeAbortsOnError(t *testing.T) {
	r := hook.New(nil)
	var ran []string

	r.OnInvoke("entity:presave", func(ctx context.Context, hctx *hook.InvokeContext) error {
		ran = append(ran, "a")
		return errors.New("veto")
	}, hook.Options{Priority: 75, ID: "a"})
	r.OnInvoke("entity:presave", func(ctx context.Context, hctx *hook.InvokeContext) error {
		ran = append(ran, "b")
		return nil
	}, hook.Options{Priority: 50})

	_, err := r.Invoke(context.Background(), "entity:presave", nil)
	require.Error(t, err)
	require.Equal(t, []string{"a"}, ran)
}

func TestInvokeNoHandlersLeavesPreventDefaultUnset(t *testing.T) {
	r := hook.New(nil)
	hctx, err := r.Invoke(context.Background(), "entity:presave", nil)
	require.NoError(t, err)
	require.False(t, hctx.DefaultPrevented())
}

func TestAlterThreadsDataThroughHandlers(t *testing.T) {
	r := hook.New(nil)
	r.OnAlter("list:alter", func(ctx context.Context, data any) (any, bool, error) {
		m := data.(map[string]any)
		m["a"] = true
		return m, true, nil
	}, hook.Options{Priority: 75})
	r.OnAlter("list:alter", func(ctx context.Context, data any) (any, bool, error) {
		return nil, false, nil
	}, hook.Options{Priority: 50})

	out, err := r.Alter(context.Background(), "list:alter", map[string]any{})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"a": true}, out)
}

func TestAlterNoHandlersReturnsDataUnchanged(t *testing.T) {
	r := hook.New(nil)
	data := map[string]any{"k": "v"}
	out, err := r.Alter(context.Background(), "menu:alter", data)
	require.NoError(t, err)
	require.Equal(t, data, out)
}

func TestPreventDefaultAndStopPropagation(t *testing.T) {
	r := hook.New(nil)
	var ranSecond bool

	r.OnInvoke("entity:predelete", func(ctx context.Context, hctx *hook.InvokeContext) error {
		hctx.PreventDefault()
		hctx.StopPropagation()
		return nil
	}, hook.Options{Priority: 75})
	r.OnInvoke("entity:predelete", func(ctx context.Context, hctx *hook.InvokeContext) error {
		ranSecond = true
		return nil
	}, hook.Options{Priority: 50})

	hctx, err := r.Invoke(context.Background(), "entity:predelete", nil)
	require.NoError(t, err)
	require.True(t, hctx.DefaultPrevented())
	require.False(t, ranSecond)
}
