// Package scenario defines the pack lifecycle steps and composes them into
// the iterations the runner executes.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Scenario names.
const (
	NamePacks  = "packs"
	NameEvents = "events"
)

// Scenario is an ordered list of steps executed once per iteration.
type Scenario struct {
	Name  string
	Steps []Step
}

// IterationResult reports how many steps ran and which ones failed.
type IterationResult struct {
	Executed int
	Errors   []error
}

// Failed reports whether any step returned an error or panicked.
func (r IterationResult) Failed() bool { return len(r.Errors) > 0 }

// Err joins the step errors, or returns nil.
func (r IterationResult) Err() error { return errors.Join(r.Errors...) }

// PacksOptions tunes the packs scenario.
type PacksOptions struct {
	TransitionShare        float64
	SkipDeliveredOnFailure bool
}

// PacksScenario creates packs, cancels packs and advances pack status, in that order.
func PacksScenario(opts PacksOptions) Scenario {
	return Scenario{
		Name: NamePacks,
		Steps: []Step{
			CreatePack{TransitionShare: opts.TransitionShare},
			CancelPack{},
			AdvanceStatus{SkipDeliveredOnFailure: opts.SkipDeliveredOnFailure},
		},
	}
}

// EventsScenario records one delivery event per iteration.
func EventsScenario() Scenario {
	return Scenario{Name: NameEvents, Steps: []Step{CreateEvent{}}}
}

// Iterate runs every step in order. A failing or panicking step is logged
// and does not stop the remaining steps.
func (s Scenario) Iterate(ctx context.Context, env *Env) IterationResult {
	var res IterationResult
	for _, step := range s.Steps {
		res.Executed++
		if err := runStep(ctx, env, step); err != nil {
			res.Errors = append(res.Errors, fmt.Errorf("%s: %w", step.Name(), err))
		}
	}
	return res
}

func runStep(ctx context.Context, env *Env, step Step) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			env.Logger.Error().Str("group", step.Name()).Interface("panic", r).Msg("step panicked")
		}
	}()
	return step.Execute(ctx, env)
}

// SeedCatalog creates n packs sequentially and returns their ids. Any
// failure aborts the seeding.
func SeedCatalog(ctx context.Context, api API, rnd *Rand, n int) ([]string, error) {
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("seed events catalog: %w", err)
		}
		res := api.CreatePack(ctx, NewPackPayload(rnd))
		if err := res.Expect(http.StatusCreated); err != nil {
			return nil, fmt.Errorf("seed events catalog: pack %d: %w", i+1, err)
		}
		id := res.ID()
		if id == "" {
			return nil, fmt.Errorf("seed events catalog: pack %d: response has no id", i+1)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("seed events catalog: %w", ErrEmptyCatalog)
	}
	return ids, nil
}
