// Package harness runs contention experiments: it pins workers to cores,
// releases them together through a start gate, and aggregates their timings.
package harness

import (
	"errors"
	"fmt"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/weiihann/contend/fill"
	"github.com/weiihann/contend/schedule"
)

// ErrNoElapsedTime is returned when workers report no measurable time, which
// would otherwise produce an infinite rate.
var ErrNoElapsedTime = errors.New("workers reported no elapsed time")

// WorkerResult is what a single worker measured.
type WorkerResult struct {
	Worker     int           `json:"worker"`
	CPU        int           `json:"cpu"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	Collisions int64         `json:"collisions"`
}

// Summary aggregates all workers of one configuration.
type Summary struct {
	Strategy       fill.Strategy `json:"strategy"`
	Threads        int           `json:"threads"`
	RateMHz        float64       `json:"rate_mhz"`
	RelativeStdDev float64       `json:"relative_stddev"`
	CollisionRate  float64       `json:"collision_rate"`
	MeanSeconds    float64       `json:"mean_seconds"`
}

// Aggregate reduces per-worker results into a Summary. Outliers are kept as
// measured; RelativeStdDev is what surfaces them.
//
//	mean           = avg(t_i)
//	RateMHz        = trials * N / mean / 1e6
//	RelativeStdDev = stddev(t_i) / mean   (population stddev)
//	CollisionRate  = sum(c_i) / (trials * N)
func Aggregate(
	cfg schedule.Configuration,
	trials int64,
	results []WorkerResult,
) (Summary, error) {
	if len(results) != cfg.Threads {
		return Summary{}, fmt.Errorf("%v: got %d worker results, want %d",
			cfg, len(results), cfg.Threads)
	}

	if trials < 1 {
		return Summary{}, fmt.Errorf("%v: trials must be positive, got %d",
			cfg, trials)
	}

	times := make(stats.Float64Data, len(results))
	var collisions int64

	for i, r := range results {
		times[i] = r.Elapsed.Seconds()
		collisions += r.Collisions
	}

	mean, err := stats.Mean(times)
	if err != nil {
		return Summary{}, fmt.Errorf("%v: mean elapsed: %w", cfg, err)
	}

	if mean <= 0 {
		return Summary{}, fmt.Errorf("%v: %w", cfg, ErrNoElapsedTime)
	}

	stddev, err := stats.StandardDeviationPopulation(times)
	if err != nil {
		return Summary{}, fmt.Errorf("%v: stddev elapsed: %w", cfg, err)
	}

	ops := float64(trials) * float64(cfg.Threads)

	return Summary{
		Strategy:       cfg.Strategy,
		Threads:        cfg.Threads,
		RateMHz:        ops / mean / 1e6,
		RelativeStdDev: stddev / mean,
		CollisionRate:  float64(collisions) / ops,
		MeanSeconds:    mean,
	}, nil
}
