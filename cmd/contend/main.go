// Package main provides the CLI entry point for contend, a benchmark of
// naive, atomic and compare-and-swap writes into shared memory under a
// growing number of pinned threads.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/google/gops/agent"
	"github.com/spf13/cobra"

	"github.com/weiihann/contend/affinity"
	"github.com/weiihann/contend/fill"
	"github.com/weiihann/contend/harness"
	"github.com/weiihann/contend/report"
	"github.com/weiihann/contend/schedule"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd(logger, level, runEnv{
		stdout: os.Stdout,
		engine: fill.Native{},
		binder: affinity.SchedBinder{},
	})
	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error("contend failed", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}

// runEnv carries the collaborators a run needs beyond its flags.
type runEnv struct {
	stdout io.Writer
	engine fill.Engine
	binder affinity.Binder
}

func newRootCmd(logger *slog.Logger, level *slog.LevelVar, env runEnv) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "contend",
		Short: "Shared-memory write contention benchmark",
		Long: `Contend measures how naive, atomic and compare-and-swap increments
into one shared buffer scale as more threads, each pinned to its own core,
write into a restricted set of slots at the same time.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if verbose {
				level.Set(slog.LevelDebug)
			}
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")

	root.AddCommand(newRunCmd(logger, env))

	return root
}

func newRunCmd(logger *slog.Logger, env runEnv) *cobra.Command {
	var cfg runConfig

	cmd := &cobra.Command{
		Use:   "run <gigabytes> <trials> <shift>",
		Short: "Run every (threads, strategy) configuration in random order",
		Long: `Allocate gigabytes * 2^27 int64 slots, then for every thread count
from 1 to --max-threads and every active strategy, run trials increments per
thread into size >> shift distinct slots. One tab-separated line is printed
per configuration and written to results_<gigabytes>_<trials>_<shift>.txt:

  strategy  threads  rate_MHz  relative_stddev  collision_rate`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.gigabytes, cfg.trials, cfg.shift = args[0], args[1], args[2]

			return runBenchmark(cmd.Context(), logger, cfg, env)
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&cfg.strategies, "strategies", strategyNames(fill.DefaultStrategies()),
		"Active strategies: "+strings.Join(strategyNames(fill.Strategies()), ", "))
	flags.IntVar(&cfg.maxThreads, "max-threads", schedule.DefaultMaxThreads,
		"Largest thread count to run")
	flags.IntVar(&cfg.cpus, "cpus", schedule.DefaultNumCPUs,
		"Number of CPU indices to permute for worker pinning")
	flags.Int64Var(&cfg.seed, "seed", 0,
		"Random seed for the schedule (0 = use current time)")
	flags.StringVar(&cfg.readiness, "readiness", "barrier",
		"How to decide workers are ready: barrier or delay")
	flags.DurationVar(&cfg.grace, "grace", harness.DefaultGrace,
		"Fixed wait before release with --readiness=delay")
	flags.DurationVar(&cfg.readyTimeout, "ready-timeout", harness.DefaultReadyTimeout,
		"Longest wait for workers with --readiness=barrier")
	flags.BoolVar(&cfg.resetBuffer, "reset-buffer", false,
		"Zero the shared buffer before each configuration")
	flags.StringVar(&cfg.outputDir, "output-dir", ".",
		"Directory for the results file")
	flags.StringVar(&cfg.summary, "summary", "none",
		"End-of-run summary on stdout: none, table, json")
	flags.BoolVar(&cfg.gops, "gops", false,
		"Start a gops diagnostics agent for the duration of the run")

	return cmd
}

type runConfig struct {
	gigabytes    string
	trials       string
	shift        string
	strategies   []string
	maxThreads   int
	cpus         int
	seed         int64
	readiness    string
	grace        time.Duration
	readyTimeout time.Duration
	resetBuffer  bool
	outputDir    string
	summary      string
	gops         bool
}

func parseParams(cfg runConfig) (fill.Params, error) {
	gigabytes, err := strconv.ParseFloat(cfg.gigabytes, 64)
	if err != nil {
		return fill.Params{}, fmt.Errorf("parse gigabytes %q: %w", cfg.gigabytes, err)
	}

	trials, err := strconv.ParseFloat(cfg.trials, 64)
	if err != nil {
		return fill.Params{}, fmt.Errorf("parse trials %q: %w", cfg.trials, err)
	}

	shift, err := strconv.Atoi(cfg.shift)
	if err != nil {
		return fill.Params{}, fmt.Errorf("parse shift %q: %w", cfg.shift, err)
	}

	return fill.NewParams(gigabytes, trials, shift)
}

func strategyNames(strategies []fill.Strategy) []string {
	names := make([]string, len(strategies))
	for i, s := range strategies {
		names[i] = s.String()
	}

	return names
}

func runBenchmark(
	ctx context.Context,
	logger *slog.Logger,
	cfg runConfig,
	env runEnv,
) error {
	// Step 1: Validate everything before touching memory or disk.
	params, err := parseParams(cfg)
	if err != nil {
		return err
	}

	strategies, err := fill.ParseStrategies(cfg.strategies)
	if err != nil {
		return fmt.Errorf("parse strategies: %w", err)
	}

	readiness, err := harness.ParseReadiness(cfg.readiness)
	if err != nil {
		return err
	}

	switch cfg.summary {
	case "none", "table", "json":
	default:
		return fmt.Errorf("unknown summary format %q (want none, table or json)",
			cfg.summary)
	}

	seed := cfg.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	// Step 2: Build the schedule.
	plan, err := schedule.NewGenerator(schedule.Config{
		MaxThreads: cfg.maxThreads,
		Strategies: strategies,
		NumCPUs:    cfg.cpus,
		Seed:       seed,
	}).Generate()
	if err != nil {
		return fmt.Errorf("build schedule: %w", err)
	}

	logger.InfoContext(ctx, "starting benchmark",
		slog.Int64("size", params.Size),
		slog.Int64("bytes", params.Bytes()),
		slog.Int64("trials", params.Trials),
		slog.Int64("cardinality", params.Cardinality),
		slog.Any("strategies", cfg.strategies),
		slog.Int("configurations", len(plan.Configurations)),
		slog.Int64("seed", seed),
	)

	checkHost(ctx, logger, cfg.cpus, cfg.maxThreads)

	if cfg.gops {
		if err := agent.Listen(agent.Options{}); err != nil {
			return fmt.Errorf("start gops agent: %w", err)
		}

		defer agent.Close()
	}

	// Step 3: Allocate the shared buffer once for the whole run.
	buf, err := fill.NewBuffer(params.Size)
	if err != nil {
		return err
	}
	defer buf.Close()

	// Step 4: Open the results file.
	name := report.FileName(cfg.gigabytes, cfg.trials, cfg.shift)

	results, err := report.OpenResults(cfg.outputDir, name)
	if err != nil {
		return err
	}
	defer results.Close()

	// Step 5: Run every configuration sequentially.
	out := report.NewWriter(env.stdout, results)

	runner := harness.NewRunner(harness.Config{
		Trials:       params.Trials,
		Cardinality:  params.Cardinality,
		CPUs:         plan.CPUs,
		Readiness:    readiness,
		Grace:        cfg.grace,
		ReadyTimeout: cfg.readyTimeout,
		ResetBuffer:  cfg.resetBuffer,
	}, buf, env.engine, env.binder, logger)

	if err := runner.RunAll(ctx, plan.Configurations, out.Emit); err != nil {
		return err
	}

	if err := results.Close(); err != nil {
		return fmt.Errorf("close results file: %w", err)
	}

	// Step 6: Optional end-of-run summary.
	switch cfg.summary {
	case "table":
		if err := report.Generate(env.stdout, out.Summaries()); err != nil {
			return fmt.Errorf("generate report: %w", err)
		}
	case "json":
		if err := report.GenerateJSON(env.stdout, out.Summaries()); err != nil {
			return fmt.Errorf("generate JSON report: %w", err)
		}
	}

	logger.InfoContext(ctx, "benchmark complete",
		slog.String("results", name),
	)

	return nil
}

// checkHost warns when the host cannot give every worker its own core and
// makes sure every pinned worker can hold a P at the same time.
func checkHost(ctx context.Context, logger *slog.Logger, cpus, maxThreads int) {
	if allowed, err := affinity.Current(); err != nil {
		logger.WarnContext(ctx, "cannot read cpu affinity",
			slog.String("error", err.Error()),
		)
	} else if len(allowed) < cpus {
		logger.WarnContext(ctx, "fewer cpus available than requested; binding may fail",
			slog.Int("available", len(allowed)),
			slog.Int("requested", cpus),
		)
	}

	if procs := runtime.GOMAXPROCS(0); procs <= maxThreads {
		runtime.GOMAXPROCS(maxThreads + 1)
		logger.DebugContext(ctx, "raised GOMAXPROCS",
			slog.Int("from", procs),
			slog.Int("to", maxThreads+1),
		)
	}
}
