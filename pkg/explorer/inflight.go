package explorer

import (
	"context"
	"sync"
)

// inflightCall is a dispatch shared by every caller waiting on one key.
type inflightCall struct {
	done    chan struct{}
	val     []byte
	err     error
	waiters int
	dups    int
	cancel  context.CancelFunc
}

// inflightGroup de-duplicates concurrent fetches by key. Unlike a plain
// singleflight the shared fetch is detached from the first caller's context
// and is cancelled only once every waiter has left.
type inflightGroup struct {
	mu    sync.Mutex
	calls map[string]*inflightCall
}

func newInflightGroup() *inflightGroup {
	return &inflightGroup{
		calls: make(map[string]*inflightCall),
	}
}

// do runs fn once for all concurrent callers of key. shared reports whether
// the result was delivered to more than one caller. The returned slice is
// shared between callers and must not be modified.
func (g *inflightGroup) do(ctx context.Context, key string, fn func(context.Context) ([]byte, error)) (val []byte, shared bool, err error) {
	g.mu.Lock()

	if call, ok := g.calls[key]; ok {
		call.waiters++
		call.dups++
		g.mu.Unlock()

		return g.wait(ctx, key, call)
	}

	fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	call := &inflightCall{
		done:    make(chan struct{}),
		waiters: 1,
		cancel:  cancel,
	}
	g.calls[key] = call
	g.mu.Unlock()

	go func() {
		defer cancel()

		call.val, call.err = fn(fctx)

		g.mu.Lock()
		if g.calls[key] == call {
			delete(g.calls, key)
		}
		g.mu.Unlock()

		close(call.done)
	}()

	return g.wait(ctx, key, call)
}

func (g *inflightGroup) wait(ctx context.Context, key string, call *inflightCall) ([]byte, bool, error) {
	select {
	case <-call.done:
		g.mu.Lock()
		shared := call.dups > 0
		g.mu.Unlock()

		return call.val, shared, call.err
	case <-ctx.Done():
		g.mu.Lock()
		defer g.mu.Unlock()

		call.waiters--
		if call.waiters == 0 {
			call.cancel()

			if g.calls[key] == call {
				delete(g.calls, key)
			}
		}

		return nil, call.dups > 0, ctx.Err()
	}
}

// pending reports the number of keys currently being fetched.
func (g *inflightGroup) pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.calls)
}
