package harness

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/weiihann/contend/affinity"
	"github.com/weiihann/contend/fill"
)

// State is a worker's position in its lifecycle. Transitions only move
// forward, one step at a time.
type State int32

const (
	StateCreated State = iota
	StateBound
	StateWaiting
	StateRunning
	StateDone
)

var stateNames = [...]string{"created", "bound", "waiting", "running", "done"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}

	return stateNames[s]
}

// Worker runs one strategy once on one pinned core.
type Worker struct {
	Index int
	CPU   int

	strategy    fill.Strategy
	engine      fill.Engine
	binder      affinity.Binder
	buf         []int64
	trials      int64
	cardinality int64
	gate        *StartGate
	ready       *ReadyBarrier

	state  atomic.Int32
	result WorkerResult
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Result returns the recorded result. It is only meaningful once the worker
// is done and has been joined.
func (w *Worker) Result() WorkerResult {
	return w.result
}

// Run takes the worker from created to done. It must run on its own
// goroutine: the goroutine is locked to its OS thread and never unlocked, so
// the pinned thread is discarded when the goroutine exits instead of being
// handed back to the scheduler with a narrowed affinity mask.
func (w *Worker) Run(ctx context.Context) (err error) {
	runtime.LockOSThread()

	if err := w.binder.Bind(w.CPU); err != nil {
		return fmt.Errorf("worker %d: bind cpu %d: %w", w.Index, w.CPU, err)
	}
	w.advance(StateBound)

	w.advance(StateWaiting)
	w.ready.Arrive()

	if err := w.gate.Wait(ctx); err != nil {
		return fmt.Errorf("worker %d: wait for start: %w", w.Index, err)
	}
	w.advance(StateRunning)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker %d: %s engine failed: %v",
				w.Index, w.strategy, r)
		}
	}()

	elapsed, collisions := w.strategy.Run(
		w.engine, w.buf, w.trials, w.cardinality,
	)

	w.result = WorkerResult{
		Worker:     w.Index,
		CPU:        w.CPU,
		Elapsed:    elapsed,
		Collisions: collisions,
	}
	w.advance(StateDone)

	return nil
}

func (w *Worker) advance(next State) {
	if !w.state.CompareAndSwap(int32(next-1), int32(next)) {
		panic(fmt.Sprintf("harness: worker %d moved %v -> %v",
			w.Index, w.State(), next))
	}
}
