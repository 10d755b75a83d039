package explorer

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInflightGroup_Dedup(t *testing.T) {
	t.Parallel()

	group := newInflightGroup()
	release := make(chan struct{})

	var calls int32

	fn := func(context.Context) ([]byte, error) {
		atomic.AddInt32(&calls, 1)
		<-release

		return []byte("value"), nil
	}

	const callers = 5

	var (
		wg     sync.WaitGroup
		shared int32
	)

	for range callers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			val, isShared, err := group.do(context.Background(), "key", fn)
			assert.NoError(t, err)
			assert.Equal(t, "value", string(val))

			if isShared {
				atomic.AddInt32(&shared, 1)
			}
		}()
	}

	require.Eventually(t, func() bool {
		group.mu.Lock()
		defer group.mu.Unlock()

		call, ok := group.calls["key"]

		return ok && call.waiters == callers
	}, time.Second, time.Millisecond)

	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, int32(callers), atomic.LoadInt32(&shared))
	assert.Zero(t, group.pending())
}

func TestInflightGroup_WaiterCancellation(t *testing.T) {
	t.Parallel()

	group := newInflightGroup()
	release := make(chan struct{})
	started := make(chan struct{})

	fn := func(ctx context.Context) ([]byte, error) {
		close(started)

		select {
		case <-release:
			return []byte("value"), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	leaving, cancel := context.WithCancel(context.Background())

	errs := make(chan error, 1)

	go func() {
		_, _, err := group.do(leaving, "key", fn)
		errs <- err
	}()

	<-started

	results := make(chan []byte, 1)

	go func() {
		val, _, err := group.do(context.Background(), "key", fn)
		assert.NoError(t, err)
		results <- val
	}()

	require.Eventually(t, func() bool {
		group.mu.Lock()
		defer group.mu.Unlock()

		return group.calls["key"].waiters == 2
	}, time.Second, time.Millisecond)

	cancel()
	require.ErrorIs(t, <-errs, context.Canceled)

	close(release)
	assert.Equal(t, "value", string(<-results))
}

func TestInflightGroup_AllWaitersLeave(t *testing.T) {
	t.Parallel()

	group := newInflightGroup()
	aborted := make(chan error, 1)

	fn := func(ctx context.Context) ([]byte, error) {
		<-ctx.Done()
		aborted <- ctx.Err()

		return nil, ctx.Err()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := group.do(ctx, "key", fn)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case err := <-aborted:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("shared call was not cancelled")
	}

	assert.Zero(t, group.pending())
}

func TestInflightGroup_DetachedFromFirstCaller(t *testing.T) {
	t.Parallel()

	group := newInflightGroup()

	var seen context.Context

	_, shared, err := group.do(context.Background(), "key", func(ctx context.Context) ([]byte, error) {
		seen = ctx

		return nil, nil
	})
	require.NoError(t, err)
	assert.False(t, shared)
	require.NotNil(t, seen)
	assert.Eventually(t, func() bool { return seen.Err() != nil }, time.Second, time.Millisecond)
}
