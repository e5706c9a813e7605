package signal_test

import (
	"context"
	"testing"
	"time"

	"github.com/forbearing/admincore/kerrors"
	"github.com/forbearing/admincore/signal"
	"github.com/stretchr/testify/require"
)

func TestOnWildcardMatchOrdering(t *testing.T) {
	b := signal.New(nil)
	var order []string

	b.On("books:created", func(ctx context.Context, name string, payload any) {
		order = append(order, "a")
	}, signal.Options{Priority: 75, ID: "a"})
	b.On("books:*", func(ctx context.Context, name string, payload any) {
		order = append(order, "b")
	}, signal.Options{Priority: 50, ID: "b", After: []string{"a"}})
	b.On("**", func(ctx context.Context, name string, payload any) {
		order = append(order, "c")
	}, signal.Options{Priority: 50})

	b.Emit(context.Background(), "books:created", nil)
	require.Equal(t, []string{"a", "c", "b"}, order)
}

func TestOnWildcardSuffixMatch(t *testing.T) {
	b := signal.New(nil)
	var got []string
	b.On("*:created", func(ctx context.Context, name string, payload any) {
		got = append(got, name)
	})

	b.Emit(context.Background(), "books:created", nil)
	b.Emit(context.Background(), "authors:created", nil)
	b.Emit(context.Background(), "books:deleted", nil)

	require.ElementsMatch(t, []string{"books:created", "authors:created"}, got)
}

func TestEmitEntityDoubleEmission(t *testing.T) {
	b := signal.New(nil)
	var seen []string
	b.On("**", func(ctx context.Context, name string, payload any) {
		seen = append(seen, name)
	})

	b.EmitEntity(context.Background(), "books", "create", map[string]any{"id": "1"})
	require.Equal(t, []string{"books:create", "entity:create"}, seen)
}

func TestHandlerPanicIsolatedAndReportedViaHandlerError(t *testing.T) {
	b := signal.New(nil)
	var reported map[string]any
	b.On("signal:handler:error", func(ctx context.Context, name string, payload any) {
		reported, _ = payload.(map[string]any)
	})
	b.On("books:created", func(ctx context.Context, name string, payload any) {
		panic("boom")
	})

	require.NotPanics(t, func() {
		b.Emit(context.Background(), "books:created", nil)
	})
	require.NotNil(t, reported)
	require.Equal(t, "books:created", reported["signal"])
}

func TestOnceUnsubscribesAfterFirstEmission(t *testing.T) {
	b := signal.New(nil)
	var count int
	b.On("books:created", func(ctx context.Context, name string, payload any) {
		count++
	}, signal.Options{Once: true})

	b.Emit(context.Background(), "books:created", nil)
	b.Emit(context.Background(), "books:created", nil)
	require.Equal(t, 1, count)
}

func TestOnceReturnsNextMatchingPayload(t *testing.T) {
	b := signal.New(nil)
	go func() {
		time.Sleep(10 * time.Millisecond)
		b.Emit(context.Background(), "books:created", "payload-1")
	}()

	got, err := b.Once(context.Background(), "books:created", time.Second)
	require.NoError(t, err)
	require.Equal(t, "payload-1", got)
}

func TestOnceTimesOutWithoutEmission(t *testing.T) {
	b := signal.New(nil)
	_, err := b.Once(context.Background(), "books:created", 10*time.Millisecond)
	require.Error(t, err)
	require.True(t, kerrors.Is(err, kerrors.Timeout))
}

func TestOffRemovesAllHandlersForPattern(t *testing.T) {
	b := signal.New(nil)
	var count int
	b.On("books:created", func(ctx context.Context, name string, payload any) {
		count++
	})
	b.Off("books:created", nil)
	b.Emit(context.Background(), "books:created", nil)
	require.Equal(t, 0, count)
}
