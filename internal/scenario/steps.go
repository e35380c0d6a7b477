package scenario

import (
	"context"
	"errors"
	"net/http"

	"github.com/torosent/packstorm/internal/apiclient"
	"github.com/torosent/packstorm/internal/pool"
)

// Check names reported in the summary.
const (
	CheckStatus200 = "status is 200"
	CheckStatus201 = "status is 201"
	CheckStatus204 = "status is 204"
)

// Step is one named unit of work inside an iteration. A returned error is
// observational: it is logged and counted, never retried.
type Step interface {
	Name() string
	Execute(ctx context.Context, env *Env) error
}

// CreatePack creates a pack and queues its id for either a status
// transition or a cancellation.
type CreatePack struct {
	// TransitionShare is the probability in [0,1] that a new pack is queued
	// for transition instead of cancellation.
	TransitionShare float64
}

func (CreatePack) Name() string { return "create packs" }

func (s CreatePack) Execute(ctx context.Context, env *Env) error {
	res := env.API.CreatePack(ctx, NewPackPayload(env.Rand))
	if err := env.observe(res, http.StatusCreated, CheckStatus201); err != nil {
		env.warn(err, res, "")
		return err
	}
	id := res.ID()
	if id == "" {
		err := errors.New("create_pack: response has no id")
		env.warn(err, res, "")
		return err
	}

	stage := pool.StageCancellation
	if env.Rand.Float64() < s.TransitionShare {
		stage = pool.StageTransition
	}
	env.Pool.Put(stage, id)
	return nil
}

// CancelPack cancels one pack waiting for cancellation. The id is not requeued.
type CancelPack struct{}

func (CancelPack) Name() string { return "cancel pack" }

func (CancelPack) Execute(ctx context.Context, env *Env) error {
	id, ok := env.Pool.Take(pool.StageCancellation)
	if !ok {
		env.Logger.Debug().Str("stage", string(pool.StageCancellation)).Msg("no pack available")
		return nil
	}
	res := env.API.CancelPack(ctx, id)
	if err := env.observe(res, http.StatusOK, CheckStatus200); err != nil {
		env.warn(err, res, id)
		return err
	}
	return nil
}

// AdvanceStatus moves one pack to IN_TRANSIT and then to DELIVERED.
// The id is not requeued.
type AdvanceStatus struct {
	// SkipDeliveredOnFailure suppresses the DELIVERED patch when the
	// IN_TRANSIT patch did not return 200.
	SkipDeliveredOnFailure bool
}

func (AdvanceStatus) Name() string { return "update pack status" }

func (s AdvanceStatus) Execute(ctx context.Context, env *Env) error {
	id, ok := env.Pool.Take(pool.StageTransition)
	if !ok {
		env.Logger.Debug().Str("stage", string(pool.StageTransition)).Msg("no pack available")
		return nil
	}

	res := env.API.PatchStatus(ctx, id, apiclient.StatusInTransit)
	first := env.observe(res, http.StatusOK, CheckStatus200)
	if first != nil {
		env.warn(first, res, id)
		if s.SkipDeliveredOnFailure {
			return first
		}
	}

	res = env.API.PatchStatus(ctx, id, apiclient.StatusDelivered)
	second := env.observe(res, http.StatusOK, CheckStatus200)
	if second != nil {
		env.warn(second, res, id)
	}
	return errors.Join(first, second)
}

// CreateEvent appends a delivery event to a pack picked from the catalog.
type CreateEvent struct{}

func (CreateEvent) Name() string { return "create events" }

func (CreateEvent) Execute(ctx context.Context, env *Env) error {
	id, ok := env.Catalog.Pick(env.Rand)
	if !ok {
		env.Logger.Warn().Msg(ErrEmptyCatalog.Error())
		return nil
	}
	res := env.API.CreateEvent(ctx, NewEventPayload(id))
	if err := env.observe(res, http.StatusNoContent, CheckStatus204); err != nil {
		env.warn(err, res, id)
		return err
	}
	return nil
}
