package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/weiihann/contend/affinity"
	"github.com/weiihann/contend/fill"
	"github.com/weiihann/contend/schedule"
)

// Defaults for the readiness wait.
const (
	DefaultGrace        = 3 * time.Second
	DefaultReadyTimeout = 30 * time.Second
)

var (
	// ErrNotReady is returned when workers fail to reach the start gate
	// within the ready timeout.
	ErrNotReady = errors.New("workers not ready")
	// ErrCPUAssignment is returned when a configuration cannot give every
	// worker its own core.
	ErrCPUAssignment = errors.New("invalid cpu assignment")
)

// Readiness selects how the coordinator decides every worker is waiting at
// the start gate.
type Readiness int

const (
	// Barrier releases the gate once every worker has checked in.
	Barrier Readiness = iota
	// Delay releases the gate after a fixed grace period.
	Delay
)

func (r Readiness) String() string {
	switch r {
	case Barrier:
		return "barrier"
	case Delay:
		return "delay"
	default:
		return fmt.Sprintf("readiness(%d)", int(r))
	}
}

// ParseReadiness resolves a readiness mode by name.
func ParseReadiness(name string) (Readiness, error) {
	switch strings.ToLower(name) {
	case "barrier":
		return Barrier, nil
	case "delay":
		return Delay, nil
	default:
		return 0, fmt.Errorf("unknown readiness %q (want barrier or delay)", name)
	}
}

// Config holds the parameters shared by every configuration of a run.
type Config struct {
	Trials      int64
	Cardinality int64
	// CPUs maps worker position to core.
	CPUs      []int
	Readiness Readiness
	// Grace is the fixed wait used by Delay.
	Grace time.Duration
	// ReadyTimeout bounds the Barrier wait.
	ReadyTimeout time.Duration
	// ResetBuffer zeroes the buffer before each configuration. By default
	// writes from one configuration stay visible to the next.
	ResetBuffer bool
}

// Runner coordinates configurations one at a time over a shared buffer.
type Runner struct {
	cfg    Config
	buf    *fill.Buffer
	engine fill.Engine
	binder affinity.Binder
	Logger *slog.Logger
}

// NewRunner creates a Runner. Zero Grace and ReadyTimeout take the package
// defaults.
func NewRunner(
	cfg Config,
	buf *fill.Buffer,
	engine fill.Engine,
	binder affinity.Binder,
	logger *slog.Logger,
) *Runner {
	if cfg.Grace == 0 {
		cfg.Grace = DefaultGrace
	}
	if cfg.ReadyTimeout == 0 {
		cfg.ReadyTimeout = DefaultReadyTimeout
	}

	return &Runner{
		cfg:    cfg,
		buf:    buf,
		engine: engine,
		binder: binder,
		Logger: logger.With(slog.String("readiness", cfg.Readiness.String())),
	}
}

// RunAll executes configs in order. sink receives each summary before the
// next configuration starts. The first failure aborts the run.
func (r *Runner) RunAll(
	ctx context.Context,
	configs []schedule.Configuration,
	sink func(Summary) error,
) error {
	total := len(configs)

	for i, c := range configs {
		summary, err := r.Run(ctx, c)
		if err != nil {
			return fmt.Errorf("configuration %d/%d %v: %w", i+1, total, c, err)
		}

		if err := sink(*summary); err != nil {
			return fmt.Errorf("emit %v: %w", c, err)
		}
	}

	return nil
}

// Run executes a single configuration: it spawns one pinned worker per
// thread, waits until they are all at the start gate, releases them, joins
// them and aggregates their results.
func (r *Runner) Run(ctx context.Context, c schedule.Configuration) (*Summary, error) {
	cpus, err := r.assign(c.Threads)
	if err != nil {
		return nil, err
	}

	if r.cfg.ResetBuffer {
		r.buf.Reset()
	}

	logger := r.Logger.With(
		slog.String("strategy", c.Strategy.String()),
		slog.Int("threads", c.Threads),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	gate := NewStartGate()
	ready := NewReadyBarrier(c.Threads)
	workers := make([]*Worker, c.Threads)

	g, gctx := errgroup.WithContext(ctx)

	for i := range workers {
		w := &Worker{
			Index:       i,
			CPU:         cpus[i],
			strategy:    c.Strategy,
			engine:      r.engine,
			binder:      r.binder,
			buf:         r.buf.Slots(),
			trials:      r.cfg.Trials,
			cardinality: r.cfg.Cardinality,
			gate:        gate,
			ready:       ready,
		}
		workers[i] = w

		g.Go(func() error { return w.Run(gctx) })
	}

	spawned := time.Now()

	if err := r.awaitReady(gctx, ready); err != nil {
		cancel()

		if werr := g.Wait(); werr != nil && !errors.Is(werr, context.Canceled) {
			return nil, werr
		}

		return nil, err
	}

	logger.DebugContext(ctx, "releasing workers",
		slog.Duration("ready_after", time.Since(spawned)),
	)

	gate.Release()

	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]WorkerResult, len(workers))
	for i, w := range workers {
		results[i] = w.Result()
	}

	summary, err := Aggregate(c, r.cfg.Trials, results)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "configuration finished",
		slog.Float64("rate_mhz", summary.RateMHz),
		slog.Float64("relative_stddev", summary.RelativeStdDev),
		slog.Float64("collision_rate", summary.CollisionRate),
	)

	// Summing walks the whole buffer, so only pay for it at debug level.
	if logger.Enabled(ctx, slog.LevelDebug) {
		logger.DebugContext(ctx, "buffer contents",
			slog.Int64("total", r.buf.Sum()),
			slog.Int64("writes", r.cfg.Trials*int64(c.Threads)),
		)
	}

	return &summary, nil
}

func (r *Runner) assign(threads int) ([]int, error) {
	if threads < 1 {
		return nil, fmt.Errorf("%w: thread count must be at least 1, got %d",
			ErrCPUAssignment, threads)
	}

	if threads > len(r.cfg.CPUs) {
		return nil, fmt.Errorf("%w: %d threads but only %d cpus",
			ErrCPUAssignment, threads, len(r.cfg.CPUs))
	}

	cpus := r.cfg.CPUs[:threads]
	seen := make(map[int]bool, threads)

	for _, cpu := range cpus {
		if seen[cpu] {
			return nil, fmt.Errorf("%w: cpu %d assigned twice",
				ErrCPUAssignment, cpu)
		}

		seen[cpu] = true
	}

	return cpus, nil
}

func (r *Runner) awaitReady(ctx context.Context, ready *ReadyBarrier) error {
	if r.cfg.Readiness == Delay {
		timer := time.NewTimer(r.cfg.Grace)
		defer timer.Stop()

		select {
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	tctx, cancel := context.WithTimeout(ctx, r.cfg.ReadyTimeout)
	defer cancel()

	if err := ready.Wait(tctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		return fmt.Errorf("%w: %d workers missing after %v",
			ErrNotReady, ready.Remaining(), r.cfg.ReadyTimeout)
	}

	return nil
}
