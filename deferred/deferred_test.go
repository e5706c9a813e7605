package deferred_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/forbearing/admincore/deferred"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwaitBeforeQueue(t *testing.T) {
	r := deferred.New()
	ctx := context.Background()

	done := make(chan struct{})
	var got any
	go func() {
		v, err := r.Await(ctx, "job:1")
		assert.NoError(t, err)
		got = v
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	v, err := r.Queue(ctx, "job:1", func(ctx context.Context) (any, error) {
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, v)

	<-done
	require.Equal(t, 42, got)
}

func TestQueueAtMostOnce(t *testing.T) {
	r := deferred.New()
	ctx := context.Background()
	var calls int32

	run := func() (any, error) {
		return r.Queue(ctx, "job:x", func(ctx context.Context) (any, error) {
			atomic.AddInt32(&calls, 1)
			time.Sleep(5 * time.Millisecond)
			return "ok", nil
		})
	}

	results := make(chan any, 3)
	for i := 0; i < 3; i++ {
		go func() {
			v, _ := run()
			results <- v
		}()
	}
	for i := 0; i < 3; i++ {
		require.Equal(t, "ok", <-results)
	}
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestQueueFailureAllowsRetryAfterClear(t *testing.T) {
	r := deferred.New()
	ctx := context.Background()

	_, err := r.Queue(ctx, "job:fail", func(ctx context.Context) (any, error) {
		return nil, assert.AnError
	})
	require.Error(t, err)
	require.Equal(t, deferred.StatusFailed, r.Status("job:fail"))

	r.Clear("job:fail")
	v, err := r.Queue(ctx, "job:fail", func(ctx context.Context) (any, error) {
		return "recovered", nil
	})
	require.NoError(t, err)
	require.Equal(t, "recovered", v)
}

func TestResolveReject(t *testing.T) {
	r := deferred.New()
	ctx := context.Background()

	r.Resolve(ctx, "ext:1", "value")
	v, err := r.Await(ctx, "ext:1")
	require.NoError(t, err)
	require.Equal(t, "value", v)

	r.Reject(ctx, "ext:2", assert.AnError)
	_, err = r.Await(ctx, "ext:2")
	require.Error(t, err)
}

type recordingSignaler struct {
	events []string
}

func (s *recordingSignaler) Emit(ctx context.Context, name string, payload any) {
	s.events = append(s.events, name)
}

func TestLifecycleSignals(t *testing.T) {
	sig := &recordingSignaler{}
	r := deferred.New(deferred.WithSignals(sig))
	ctx := context.Background()

	_, err := r.Queue(ctx, "job:signaled", func(ctx context.Context) (any, error) {
		return nil, nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"deferred:started", "deferred:completed"}, sig.events)
}
