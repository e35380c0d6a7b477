package runner

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Iteration runs one scenario iteration. A returned error or a panic counts
// the iteration as failed; it is never retried.
type Iteration func(ctx context.Context) error

type ArrivalModel string

const (
	ArrivalModelUniform ArrivalModel = "uniform"
	ArrivalModelPoisson ArrivalModel = "poisson"
)

type LoadPatternType string

const (
	LoadPatternTypeRamp  LoadPatternType = "ramp"
	LoadPatternTypeStep  LoadPatternType = "step"
	LoadPatternTypeSpike LoadPatternType = "spike"
)

// LoadPattern shapes the arrival rate over time. Rates are iterations per
// Options.TimeUnit, the same unit as Options.Rate.
type LoadPattern struct {
	Name     string
	Type     LoadPatternType
	FromRate int
	ToRate   int
	Duration time.Duration
	Steps    []LoadStep
	Rate     int
}

type LoadStep struct {
	Rate     int
	Duration time.Duration
}

const defaultTimeUnit = time.Second

// Options configure a constant-arrival-rate Runner.
type Options struct {
	Name                string
	Rate                int           // iterations started per TimeUnit
	TimeUnit            time.Duration // defaults to one second
	PreAllocatedWorkers int           // workers started before the first arrival
	MaxWorkers          int           // hard cap on workers; arrivals beyond it are dropped
	Duration            time.Duration // emission window; 0 runs the load patterns, or until ctx ends
	StartDelay          time.Duration
	GracefulStop        time.Duration // max wait for in-flight iterations; 0 does not wait
	ArrivalModel        ArrivalModel
	RandomSeed          int64
	LoadPatterns        []LoadPattern
	Iteration           Iteration

	// OnDropped is called from the scheduler goroutine with the running
	// dropped total each time an arrival finds no free worker.
	OnDropped func(total int64)

	// LimiterFactory and PoissonSampler are injection points for tests.
	LimiterFactory func(perSecond float64) *rate.Limiter
	PoissonSampler func() float64
}

func (o *Options) normalize() {
	if o.Rate < 0 {
		o.Rate = 0
	}
	if o.TimeUnit <= 0 {
		o.TimeUnit = defaultTimeUnit
	}
	if o.PreAllocatedWorkers <= 0 {
		o.PreAllocatedWorkers = 1
	}
	if o.MaxWorkers < o.PreAllocatedWorkers {
		o.MaxWorkers = o.PreAllocatedWorkers
	}
	if o.Duration < 0 {
		o.Duration = 0
	}
	if o.StartDelay < 0 {
		o.StartDelay = 0
	}
	if o.GracefulStop < 0 {
		o.GracefulStop = 0
	}
	if o.ArrivalModel == "" {
		o.ArrivalModel = ArrivalModelUniform
	}
	if o.RandomSeed == 0 {
		o.RandomSeed = time.Now().UnixNano()
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(perSecond float64) *rate.Limiter {
			// Burst 1 spaces arrivals evenly instead of releasing them in clumps.
			return rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// perSecond converts a per-TimeUnit rate to iterations per second.
func (o Options) perSecond(ratePerUnit float64) float64 {
	if ratePerUnit <= 0 {
		return 0
	}
	return ratePerUnit / o.TimeUnit.Seconds()
}
