package search

import (
	"context"
	"sync"
	"sync/atomic"
)

// startBarrier is the per-search start/resume signal: a thread that
// has run out of every work source (own range, global queue, steal
// targets) parks here until the main loop has something new for it —
// either the very first SearchStart, a later WorkGrant, or Shutdown.
// The main loop waits for numWaiting to reach the full thread count
// before broadcasting, so a thread that hasn't parked yet by the time
// the broadcast fires can never miss it.
type startBarrier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	generation uint64
	numWaiting int
}

func newStartBarrier() *startBarrier {
	b := &startBarrier{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Wait parks the calling goroutine until the next Broadcast or until
// shutdown is observed set.
func (b *startBarrier) Wait(ctx context.Context, shutdown *atomic.Bool) {
	b.mu.Lock()
	gen := b.generation
	b.numWaiting++
	for b.generation == gen && !shutdown.Load() {
		if ctx.Err() != nil {
			break
		}
		b.cond.Wait()
	}
	b.numWaiting--
	b.mu.Unlock()
}

// Broadcast wakes every parked waiter and bumps the generation so a
// waiter that arrives after the broadcast call returns does not
// spuriously re-consume it.
func (b *startBarrier) Broadcast() {
	b.mu.Lock()
	b.generation++
	b.mu.Unlock()
	b.cond.Broadcast()
}

func (b *startBarrier) WaitingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.numWaiting
}
