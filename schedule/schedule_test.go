package schedule

import (
	"reflect"
	"testing"

	"github.com/weiihann/contend/fill"
)

func TestGenerateDeterministic(t *testing.T) {
	cfg := Config{MaxThreads: 16, NumCPUs: 32, Seed: 42}

	p1, err := NewGenerator(cfg).Generate()
	if err != nil {
		t.Fatalf("first generation failed: %v", err)
	}

	p2, err := NewGenerator(cfg).Generate()
	if err != nil {
		t.Fatalf("second generation failed: %v", err)
	}

	if !reflect.DeepEqual(p1, p2) {
		t.Error("plans are not deterministic for same seed")
	}
}

func TestGenerateCrossProduct(t *testing.T) {
	tests := []struct {
		name       string
		cfg        Config
		wantCount  int
		wantCPUs   int
		strategies []fill.Strategy
	}{
		{
			name:       "defaults",
			cfg:        Config{Seed: 1},
			wantCount:  256,
			wantCPUs:   128,
			strategies: []fill.Strategy{fill.Naive, fill.Atomic},
		},
		{
			name: "all strategies",
			cfg: Config{
				MaxThreads: 8,
				NumCPUs:    8,
				Strategies: fill.Strategies(),
				Seed:       2,
			},
			wantCount:  24,
			wantCPUs:   8,
			strategies: fill.Strategies(),
		},
		{
			name: "single",
			cfg: Config{
				MaxThreads: 1,
				NumCPUs:    4,
				Strategies: []fill.Strategy{fill.CASSafe},
				Seed:       3,
			},
			wantCount:  1,
			wantCPUs:   4,
			strategies: []fill.Strategy{fill.CASSafe},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := NewGenerator(tt.cfg).Generate()
			if err != nil {
				t.Fatalf("generation failed: %v", err)
			}

			if len(plan.Configurations) != tt.wantCount {
				t.Errorf("configurations = %d, want %d",
					len(plan.Configurations), tt.wantCount)
			}

			maxThreads := tt.cfg.MaxThreads
			if maxThreads == 0 {
				maxThreads = DefaultMaxThreads
			}

			seen := make(map[Configuration]bool)
			for _, c := range plan.Configurations {
				if seen[c] {
					t.Errorf("duplicate configuration %v", c)
				}
				seen[c] = true
			}

			for _, s := range tt.strategies {
				for n := 1; n <= maxThreads; n++ {
					c := Configuration{Threads: n, Strategy: s}
					if !seen[c] {
						t.Errorf("missing configuration %v", c)
					}
				}
			}

			if len(plan.CPUs) != tt.wantCPUs {
				t.Fatalf("cpus = %d, want %d", len(plan.CPUs), tt.wantCPUs)
			}

			cpus := make(map[int]bool)
			for _, cpu := range plan.CPUs {
				if cpu < 0 || cpu >= tt.wantCPUs {
					t.Errorf("cpu %d out of range", cpu)
				}
				cpus[cpu] = true
			}
			if len(cpus) != tt.wantCPUs {
				t.Errorf("cpu permutation has %d distinct entries, want %d",
					len(cpus), tt.wantCPUs)
			}
		})
	}
}

func TestGenerateShuffles(t *testing.T) {
	plan, err := NewGenerator(Config{Seed: 7}).Generate()
	if err != nil {
		t.Fatalf("generation failed: %v", err)
	}

	sorted := true
	for i := 1; i < len(plan.Configurations); i++ {
		prev, cur := plan.Configurations[i-1], plan.Configurations[i]
		if prev.Strategy > cur.Strategy ||
			(prev.Strategy == cur.Strategy && prev.Threads > cur.Threads) {
			sorted = false

			break
		}
	}

	if sorted {
		t.Error("configurations are in generation order, want shuffled")
	}
}

func TestGenerateInvalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"more threads than cpus", Config{MaxThreads: 9, NumCPUs: 8}},
		{"negative threads", Config{MaxThreads: -1}},
		{"negative cpus", Config{NumCPUs: -4}},
		{
			"duplicate strategy",
			Config{Strategies: []fill.Strategy{fill.Naive, fill.Naive}},
		},
		{
			"unknown strategy",
			Config{Strategies: []fill.Strategy{fill.Strategy(9)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewGenerator(tt.cfg).Generate(); err == nil {
				t.Error("expected error")
			}
		})
	}
}
