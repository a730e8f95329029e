// Package schedule builds the randomized experiment plan: the shuffled list
// of (thread count, strategy) configurations and the CPU permutation that
// maps worker positions to cores.
package schedule

import (
	"errors"
	"fmt"
	mrand "math/rand"

	"github.com/weiihann/contend/fill"
)

// Default bounds of a full experiment.
const (
	DefaultMaxThreads = 128
	DefaultNumCPUs    = 128
)

// Configuration is one timed experiment: Threads workers all running the
// same Strategy.
type Configuration struct {
	Threads  int           `json:"threads"`
	Strategy fill.Strategy `json:"strategy"`
}

func (c Configuration) String() string {
	return fmt.Sprintf("%s/%d", c.Strategy, c.Threads)
}

// Plan is the full, already-shuffled schedule for one process run.
type Plan struct {
	Configurations []Configuration
	// CPUs is the worker-position to core mapping shared by every
	// configuration: worker i binds to CPUs[i].
	CPUs []int
	Seed int64
}

// Config controls plan generation.
type Config struct {
	MaxThreads int
	// Strategies is the active strategy set. Empty means
	// fill.DefaultStrategies.
	Strategies []fill.Strategy
	NumCPUs    int
	Seed       int64
}

// Generator produces plans from a Config.
type Generator struct {
	cfg Config
	rng *mrand.Rand
}

// NewGenerator creates a Generator, filling zero fields with defaults.
func NewGenerator(cfg Config) *Generator {
	if cfg.MaxThreads == 0 {
		cfg.MaxThreads = DefaultMaxThreads
	}
	if cfg.NumCPUs == 0 {
		cfg.NumCPUs = DefaultNumCPUs
	}
	if len(cfg.Strategies) == 0 {
		cfg.Strategies = fill.DefaultStrategies()
	}

	return &Generator{
		cfg: cfg,
		rng: mrand.New(mrand.NewSource(cfg.Seed)),
	}
}

// Generate builds the cross product of thread counts 1..MaxThreads and the
// active strategies, shuffles it once, and draws an independent permutation
// of CPU indices 0..NumCPUs-1.
func (g *Generator) Generate() (Plan, error) {
	if err := g.validate(); err != nil {
		return Plan{}, err
	}

	configs := make([]Configuration, 0, g.cfg.MaxThreads*len(g.cfg.Strategies))
	for _, s := range g.cfg.Strategies {
		for n := 1; n <= g.cfg.MaxThreads; n++ {
			configs = append(configs, Configuration{Threads: n, Strategy: s})
		}
	}

	g.rng.Shuffle(len(configs), func(i, j int) {
		configs[i], configs[j] = configs[j], configs[i]
	})

	return Plan{
		Configurations: configs,
		CPUs:           g.rng.Perm(g.cfg.NumCPUs),
		Seed:           g.cfg.Seed,
	}, nil
}

func (g *Generator) validate() error {
	if g.cfg.MaxThreads < 1 {
		return fmt.Errorf("max threads must be at least 1, got %d",
			g.cfg.MaxThreads)
	}

	if g.cfg.NumCPUs < 1 {
		return fmt.Errorf("cpu count must be at least 1, got %d",
			g.cfg.NumCPUs)
	}

	if g.cfg.MaxThreads > g.cfg.NumCPUs {
		return fmt.Errorf(
			"max threads %d exceeds %d cpus: workers would share cores",
			g.cfg.MaxThreads, g.cfg.NumCPUs,
		)
	}

	seen := make(map[fill.Strategy]bool, len(g.cfg.Strategies))
	for _, s := range g.cfg.Strategies {
		if _, err := s.MarshalText(); err != nil {
			return err
		}
		if seen[s] {
			return errors.New("strategy " + s.String() + " listed twice")
		}

		seen[s] = true
	}

	return nil
}
