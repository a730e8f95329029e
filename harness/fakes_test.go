package harness

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/weiihann/contend/affinity"
	"github.com/weiihann/contend/fill"
)

// fakeEngine returns injected timings and collision counts without touching
// the buffer.
type fakeEngine struct {
	elapsed    []time.Duration
	collisions int64
	calls      atomic.Int64
	onCall     func()
	panicOn    fill.Strategy
	panics     bool
}

func (e *fakeEngine) next(s fill.Strategy) time.Duration {
	if e.onCall != nil {
		e.onCall()
	}

	if e.panics && s == e.panicOn {
		panic("engine fault")
	}

	n := e.calls.Add(1) - 1
	if len(e.elapsed) == 0 {
		return time.Second
	}

	return e.elapsed[int(n)%len(e.elapsed)]
}

func (e *fakeEngine) Naive(_ []int64, _, _ int64) time.Duration {
	return e.next(fill.Naive)
}

func (e *fakeEngine) Atomic(_ []int64, _, _ int64) time.Duration {
	return e.next(fill.Atomic)
}

func (e *fakeEngine) CASSafe(_ []int64, _, _ int64, c *int64) time.Duration {
	d := e.next(fill.CASSafe)
	*c += e.collisions

	return d
}

// recordingBinder remembers every CPU it was asked to bind.
type recordingBinder struct {
	mu    sync.Mutex
	cpus  []int
	fail  map[int]bool
	delay map[int]time.Duration
}

var errBindDenied = errors.New("bind denied")

func (b *recordingBinder) Bind(cpu int) error {
	if d := b.delay[cpu]; d > 0 {
		time.Sleep(d)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fail[cpu] {
		return errBindDenied
	}

	b.cpus = append(b.cpus, cpu)

	return nil
}

func (b *recordingBinder) bound() []int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]int(nil), b.cpus...)
}

var _ affinity.Binder = (*recordingBinder)(nil)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func identityCPUs(n int) []int {
	cpus := make([]int, n)
	for i := range cpus {
		cpus[i] = i
	}

	return cpus
}
