package harness

import (
	"context"
	"sync"
	"sync/atomic"
)

// StartGate is a one-shot release-all latch. Once released it stays open:
// every current and future Wait returns immediately. A new gate is needed
// for every configuration.
type StartGate struct {
	once sync.Once
	open chan struct{}
}

// NewStartGate returns a closed gate.
func NewStartGate() *StartGate {
	return &StartGate{open: make(chan struct{})}
}

// Release opens the gate. Calling it more than once is a no-op.
func (g *StartGate) Release() {
	g.once.Do(func() { close(g.open) })
}

// released reports whether Release has been called.
func (g *StartGate) released() bool {
	select {
	case <-g.open:
		return true
	default:
		return false
	}
}

// Wait blocks until the gate is released or ctx is done.
func (g *StartGate) Wait(ctx context.Context) error {
	select {
	case <-g.open:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReadyBarrier counts down worker arrivals so the coordinator can release
// the start gate as soon as every worker is pinned and waiting.
type ReadyBarrier struct {
	remaining atomic.Int64
	done      chan struct{}
}

// NewReadyBarrier returns a barrier expecting n arrivals.
func NewReadyBarrier(n int) *ReadyBarrier {
	b := &ReadyBarrier{done: make(chan struct{})}
	b.remaining.Store(int64(n))

	if n <= 0 {
		close(b.done)
	}

	return b
}

// Arrive records one arrival.
func (b *ReadyBarrier) Arrive() {
	if b.remaining.Add(-1) == 0 {
		close(b.done)
	}
}

// Remaining returns how many arrivals are still outstanding.
func (b *ReadyBarrier) Remaining() int {
	return int(max(b.remaining.Load(), 0))
}

// Wait blocks until all arrivals are in or ctx is done.
func (b *ReadyBarrier) Wait(ctx context.Context) error {
	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
