package runner

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// pausePoll is how often a paused arrival controller re-checks its rate.
const pausePoll = 10 * time.Millisecond

// arrivalController paces iteration starts. Rates are per second.
type arrivalController interface {
	Wait(ctx context.Context) error
	SetRate(perSecond float64)
}

func newArrivalController(opt Options, plan *patternPlan) arrivalController {
	baseRate := opt.perSecond(float64(opt.Rate))
	if plan != nil {
		baseRate, _ = plan.rateAt(0)
	}

	switch opt.ArrivalModel {
	case ArrivalModelPoisson:
		sampler := opt.PoissonSampler
		if sampler == nil {
			seeded := rand.New(rand.NewSource(opt.RandomSeed))
			sampler = seeded.ExpFloat64
		}
		ctrl := &poissonArrival{sample: sampler}
		ctrl.SetRate(baseRate)
		return ctrl
	default:
		ctrl := &uniformArrival{limiter: opt.LimiterFactory(math.Max(baseRate, 0))}
		ctrl.SetRate(baseRate)
		return ctrl
	}
}

// uniformArrival spaces starts evenly with a rate.Limiter. A zero rate pauses
// emission until SetRate raises it again.
type uniformArrival struct {
	mu      sync.Mutex
	paused  bool
	limiter *rate.Limiter
}

func (u *uniformArrival) Wait(ctx context.Context) error {
	for u.isPaused() {
		timer := time.NewTimer(pausePoll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return u.limiter.Wait(ctx)
}

func (u *uniformArrival) isPaused() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.paused
}

func (u *uniformArrival) SetRate(perSecond float64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if perSecond <= 0 {
		u.paused = true
		return
	}
	u.paused = false
	u.limiter.SetLimit(rate.Limit(perSecond))
	if u.limiter.Burst() < 1 {
		u.limiter.SetBurst(1)
	}
}

// poissonArrival samples exponential inter-arrival times to approximate a Poisson process.
type poissonArrival struct {
	mu     sync.Mutex
	rate   float64
	sample func() float64
}

func (p *poissonArrival) Wait(ctx context.Context) error {
	for {
		delay, paused := p.nextDelay()
		if paused {
			delay = pausePoll
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		if !paused {
			return nil
		}
	}
}

func (p *poissonArrival) SetRate(perSecond float64) {
	if perSecond < 0 {
		perSecond = 0
	}
	p.mu.Lock()
	p.rate = perSecond
	p.mu.Unlock()
}

func (p *poissonArrival) nextDelay() (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rate <= 0 || p.sample == nil {
		return 0, true
	}
	delay := float64(time.Second) * p.sample() / p.rate
	if delay > math.MaxInt64 {
		delay = math.MaxInt64
	}
	return time.Duration(delay), false
}
