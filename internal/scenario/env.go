package scenario

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/torosent/packstorm/internal/apiclient"
	"github.com/torosent/packstorm/internal/metrics"
	"github.com/torosent/packstorm/internal/pool"
)

// ErrEmptyCatalog is returned when the events scenario has nothing to pick from.
var ErrEmptyCatalog = errors.New("events catalog is empty")

// API is the pack service surface the steps call. *apiclient.Client satisfies it.
type API interface {
	CreatePack(ctx context.Context, p apiclient.PackPayload) apiclient.Response
	CreateEvent(ctx context.Context, e apiclient.EventPayload) apiclient.Response
	PatchStatus(ctx context.Context, id string, status apiclient.Status) apiclient.Response
	CancelPack(ctx context.Context, id string) apiclient.Response
}

// Env is the shared state handed to every step. Pool, Recorder, Checks and
// Statuses are safe for concurrent use; everything else is read-only.
type Env struct {
	Pool     *pool.Pool
	Catalog  *pool.Catalog
	API      API
	Recorder metrics.Recorder
	Checks   *metrics.Checks
	Statuses *metrics.StatusCounter
	Logger   zerolog.Logger
	Rand     *Rand
}

// observe records the latency of res unconditionally, then evaluates the
// status check. It returns the outcome of the check as an error.
func (e *Env) observe(res apiclient.Response, expected int, check string) error {
	if e.Recorder != nil {
		e.Recorder.Record(apiclient.MetricName(res.Operation), res.Elapsed)
	}
	if e.Statuses != nil {
		e.Statuses.Observe(res.Operation, metrics.StatusLabel(res.StatusCode, res.Err))
	}
	err := res.Expect(expected)
	e.Checks.Check(check, err == nil)
	return err
}

func (e *Env) warn(err error, res apiclient.Response, packID string) {
	ev := e.Logger.Warn().Err(err).Str("operation", res.Operation)
	if res.StatusCode != 0 {
		ev = ev.Int("status", res.StatusCode)
	}
	if packID != "" {
		ev = ev.Str("pack_id", packID)
	}
	ev.Msg("unexpected response")
}
