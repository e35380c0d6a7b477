package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/torosent/packstorm/internal/apiclient"
	"github.com/torosent/packstorm/internal/auth"
	"github.com/torosent/packstorm/internal/config"
	"github.com/torosent/packstorm/internal/dashboard"
	"github.com/torosent/packstorm/internal/httpclient"
	"github.com/torosent/packstorm/internal/logging"
	"github.com/torosent/packstorm/internal/metrics"
	"github.com/torosent/packstorm/internal/output"
	"github.com/torosent/packstorm/internal/pool"
	"github.com/torosent/packstorm/internal/promexport"
	"github.com/torosent/packstorm/internal/runner"
	"github.com/torosent/packstorm/internal/scenario"
	"github.com/torosent/packstorm/internal/threshold"
	"github.com/torosent/packstorm/internal/tracing"
)

const progressInterval = time.Second

var errThresholdsFailed = errors.New("thresholds failed")

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return execute(ctx, cancel, args, os.Stdout, os.Stderr)
}

// execute runs a whole load test. Failed requests and iterations only show up
// in the logs and the summary; the returned error covers setup problems and
// failed thresholds.
func execute(ctx context.Context, cancel context.CancelFunc, args []string, stdout, stderr io.Writer) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(stderr, cfg.LogLevel, logging.Format(cfg.LogFormat))
	if err != nil {
		return err
	}

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	tp, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	api, err := apiclient.New(cfg.BaseURL,
		httpclient.NewClient(cfg.Timeout, maxWorkers(cfg)),
		apiclient.WithAuth(auth.New(cfg.Auth.Token, cfg.Auth.Header)),
		apiclient.WithTracing(tp),
	)
	if err != nil {
		return err
	}

	registry := metrics.NewRegistry()
	statuses := metrics.NewStatusCounter()
	ids := pool.New()

	var (
		recorder metrics.Recorder = registry
		checks                    = metrics.NewChecks()
		exporter *promexport.Exporter
	)
	if cfg.MetricsAddr != "" {
		exporter = promexport.New()
		recorder = metrics.Fanout(registry, exporter)
		checks = metrics.NewChecks(exporter.Check)
		if err := exporter.WatchPool(poolSizes(ids)); err != nil {
			return err
		}
		go func() {
			if err := exporter.Serve(ctx, cfg.MetricsAddr, logger); err != nil {
				logger.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("metrics endpoint stopped")
			}
		}()
	}

	env := &scenario.Env{
		Pool:     ids,
		API:      api,
		Recorder: recorder,
		Checks:   checks,
		Statuses: statuses,
		Logger:   logger,
		Rand:     scenario.NewRand(randomSeed(cfg.RandomSeed)),
	}

	if cfg.Events.Enabled {
		catalog, err := loadCatalog(ctx, cfg.Events, api, env.Rand)
		if err != nil {
			return err
		}
		env.Catalog = pool.NewCatalog(catalog)
		logger.Info().Int("packs", env.Catalog.Len()).Msg("events catalog ready")
	}

	runners := buildRunners(cfg, env, exporter, logger)
	if len(runners) == 0 {
		return errors.New("no scenario enabled")
	}

	startedAt := time.Now()

	if cfg.Dashboard {
		dash, err := dashboard.New(dashboardSource(cfg, registry, checks, statuses, runners, ids, startedAt), runInfo(cfg), cancel)
		if err != nil {
			return err
		}
		dash.Start()
		defer dash.Stop()
	} else if !cfg.JSONOutput {
		progress := output.NewProgressReporter(progressSource(registry, runners), progressInterval, stdout)
		progress.Start()
		defer progress.Stop()
	}

	results := runAll(ctx, runners)
	elapsed := time.Since(startedAt)

	summary := output.Summarize(output.Input{
		BaseURL:   cfg.BaseURL,
		StartedAt: startedAt,
		Elapsed:   elapsed,
		Samples:   registry.Snapshot(),
		Checks:    checks.Snapshot(),
		Statuses:  statuses.Snapshot(),
		Results:   results,
	})
	summary.Thresholds = threshold.Outcomes(threshold.NewEvaluator(thresholds).Evaluate(summary))

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(stdout, summary); err != nil {
			return err
		}
	} else {
		output.PrintReport(stdout, summary)
	}
	if cfg.SummaryExport != "" {
		if err := output.WriteJSONFile(cfg.SummaryExport, summary); err != nil {
			return err
		}
		logger.Info().Str("path", cfg.SummaryExport).Msg("summary written")
	}
	if cfg.HTMLOutput != "" {
		if err := output.WriteHTMLFile(cfg.HTMLOutput, summary); err != nil {
			return err
		}
		logger.Info().Str("path", cfg.HTMLOutput).Msg("html report written")
	}

	if !summary.ThresholdsPassed() {
		return errThresholdsFailed
	}
	return nil
}

// loadCatalog reads pack ids from the seed file, or creates seed packs
// through the API. The events scenario cannot start without them.
func loadCatalog(ctx context.Context, sc config.ScenarioConfig, api scenario.API, rnd *scenario.Rand) ([]string, error) {
	if sc.Seed.Path != "" {
		return loadSeedFile(sc.Seed)
	}
	return scenario.SeedCatalog(ctx, api, rnd, sc.SeedPacks)
}

// runAll starts every runner at once and waits for all of them.
func runAll(ctx context.Context, runners []*runner.Runner) []runner.Result {
	results := make([]runner.Result, len(runners))
	var wg sync.WaitGroup
	for i, r := range runners {
		wg.Add(1)
		go func(i int, r *runner.Runner) {
			defer wg.Done()
			results[i] = r.Run(ctx)
		}(i, r)
	}
	wg.Wait()
	return results
}

func randomSeed(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	return time.Now().UnixNano()
}

func maxWorkers(cfg *config.Config) int {
	n := 0
	if cfg.Packs.Enabled {
		n += cfg.Packs.MaxWorkers
	}
	if cfg.Events.Enabled {
		n += cfg.Events.MaxWorkers
	}
	return n
}

func poolSizes(p *pool.Pool) promexport.PoolSizes {
	return func() map[string]int {
		sizes := p.Sizes()
		out := make(map[string]int, len(sizes))
		for stage, n := range sizes {
			out[string(stage)] = n
		}
		return out
	}
}

func progressSource(registry *metrics.Registry, runners []*runner.Runner) output.ProgressFunc {
	return func() output.Progress {
		p := output.Progress{Requests: registry.Total()}
		phase := runner.PhaseDone
		for _, r := range runners {
			st := r.Stats()
			p.Iterations += st.Completed
			p.Failures += st.Failed
			p.Dropped += st.Dropped
			p.Active += st.Active
			phase = min(phase, st.Phase)
		}
		p.Phase = phase.String()
		return p
	}
}

func dashboardSource(cfg *config.Config, registry *metrics.Registry, checks *metrics.Checks, statuses *metrics.StatusCounter, runners []*runner.Runner, ids *pool.Pool, startedAt time.Time) dashboard.SnapshotFunc {
	return func() dashboard.Snapshot {
		snap := dashboard.Snapshot{Pool: poolSizes(ids)()}
		results := make([]runner.Result, 0, len(runners))
		for _, r := range runners {
			st := r.Stats()
			snap.Scenarios = append(snap.Scenarios, dashboard.ScenarioState{Name: r.Name(), Stats: st})
			results = append(results, runner.Result{
				Name:      r.Name(),
				Scheduled: st.Scheduled,
				Started:   st.Started,
				Completed: st.Completed,
				Failed:    st.Failed,
				Dropped:   st.Dropped,
			})
		}
		snap.Summary = output.Summarize(output.Input{
			BaseURL:   cfg.BaseURL,
			StartedAt: startedAt,
			Elapsed:   time.Since(startedAt),
			Samples:   registry.Snapshot(),
			Checks:    checks.Snapshot(),
			Statuses:  statuses.Snapshot(),
			Results:   results,
		})
		return snap
	}
}

func runInfo(cfg *config.Config) dashboard.RunInfo {
	info := dashboard.RunInfo{BaseURL: cfg.BaseURL, ConfigFile: cfg.ConfigFile}
	for _, name := range []string{config.ScenarioPacks, config.ScenarioEvents} {
		sc, _ := cfg.Scenario(name)
		if !sc.Enabled {
			continue
		}
		info.Scenarios = append(info.Scenarios, dashboard.ScenarioInfo{
			Name:       name,
			Rate:       sc.Rate,
			TimeUnit:   sc.TimeUnit,
			MaxWorkers: sc.MaxWorkers,
			Duration:   sc.Duration,
		})
	}
	return info
}

func logDropped(logger zerolog.Logger, name string) func(total int64) {
	every := rateLimitedLogger(time.Second)
	return func(total int64) {
		every(func() {
			logger.Warn().Str("scenario", name).Int64("dropped_iterations", total).
				Msg("insufficient workers, iterations dropped")
		})
	}
}
