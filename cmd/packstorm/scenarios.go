package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/torosent/packstorm/internal/config"
	"github.com/torosent/packstorm/internal/feeder"
	"github.com/torosent/packstorm/internal/promexport"
	"github.com/torosent/packstorm/internal/runner"
	"github.com/torosent/packstorm/internal/scenario"
)

// buildRunners creates one scheduler per enabled scenario. exporter may be nil.
func buildRunners(cfg *config.Config, env *scenario.Env, exporter *promexport.Exporter, logger zerolog.Logger) []*runner.Runner {
	var runners []*runner.Runner
	if cfg.Packs.Enabled {
		sc := scenario.PacksScenario(scenario.PacksOptions{
			TransitionShare:        cfg.Packs.TransitionShare,
			SkipDeliveredOnFailure: cfg.Packs.SkipDeliveredOnFailure,
		})
		runners = append(runners, runner.New(runnerOptions(cfg, cfg.Packs, sc, env, exporter, logger)))
	}
	if cfg.Events.Enabled {
		runners = append(runners, runner.New(runnerOptions(cfg, cfg.Events, scenario.EventsScenario(), env, exporter, logger)))
	}
	return runners
}

func runnerOptions(cfg *config.Config, sc config.ScenarioConfig, s scenario.Scenario, env *scenario.Env, exporter *promexport.Exporter, logger zerolog.Logger) runner.Options {
	logger = logger.With().Str("scenario", s.Name).Logger()
	scenarioEnv := *env
	scenarioEnv.Logger = logger

	dropped := logDropped(logger, s.Name)
	var last int64
	return runner.Options{
		Name:                s.Name,
		Rate:                sc.Rate,
		TimeUnit:            sc.TimeUnit,
		PreAllocatedWorkers: sc.PreAllocatedWorkers,
		MaxWorkers:          sc.MaxWorkers,
		Duration:            sc.Duration,
		StartDelay:          sc.StartTime,
		GracefulStop:        sc.GracefulStop,
		ArrivalModel:        toRunnerArrivalModel(sc.Arrival.Model),
		RandomSeed:          cfg.RandomSeed,
		LoadPatterns:        toRunnerLoadPatterns(sc.LoadPatterns),
		Iteration: func(ctx context.Context) error {
			res := s.Iterate(ctx, &scenarioEnv)
			if exporter != nil {
				exporter.Iteration(s.Name, res.Failed())
			}
			return res.Err()
		},
		// OnDropped runs on the scheduler goroutine only, so last needs no lock.
		OnDropped: func(total int64) {
			if exporter != nil {
				exporter.Dropped(s.Name, total-last)
			}
			last = total
			dropped(total)
		},
	}
}

func toRunnerArrivalModel(model config.ArrivalModel) runner.ArrivalModel {
	switch model {
	case config.ArrivalModelPoisson:
		return runner.ArrivalModelPoisson
	default:
		return runner.ArrivalModelUniform
	}
}

func toRunnerLoadPatterns(patterns []config.LoadPattern) []runner.LoadPattern {
	if len(patterns) == 0 {
		return nil
	}
	out := make([]runner.LoadPattern, 0, len(patterns))
	for _, p := range patterns {
		lp := runner.LoadPattern{
			Name:     p.Name,
			Type:     runner.LoadPatternType(p.Type),
			FromRate: p.FromRate,
			ToRate:   p.ToRate,
			Duration: p.Duration,
			Rate:     p.Rate,
		}
		if len(p.Steps) > 0 {
			lp.Steps = make([]runner.LoadStep, len(p.Steps))
			for i, step := range p.Steps {
				lp.Steps[i] = runner.LoadStep{Rate: step.Rate, Duration: step.Duration}
			}
		}
		out = append(out, lp)
	}
	return out
}

func loadSeedFile(seed config.SeedConfig) ([]string, error) {
	ids, err := feeder.LoadIdentifiers(seed.Path, seed.Type, seed.Field)
	if err != nil {
		return nil, fmt.Errorf("seed events catalog from %s: %w", seed.Path, err)
	}
	return ids, nil
}

// rateLimitedLogger returns a function that runs its argument at most once
// per interval and drops the calls in between.
func rateLimitedLogger(interval time.Duration) func(func()) {
	sometimes := &rate.Sometimes{Interval: interval}
	return sometimes.Do
}
