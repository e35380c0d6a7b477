package runner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Phase is the lifecycle state of a Runner.
type Phase int32

const (
	PhaseNotStarted Phase = iota
	PhaseRamping
	PhaseSteady
	PhaseGracefulStop
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseRamping:
		return "ramping"
	case PhaseSteady:
		return "steady"
	case PhaseGracefulStop:
		return "graceful_stop"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// Result captures the outcome of one Run.
//
// Scheduled = Started + Dropped. Started = Completed + Failed + Interrupted.
type Result struct {
	Name        string
	Scheduled   int64
	Started     int64
	Completed   int64
	Failed      int64
	Dropped     int64
	Interrupted int64
	PeakWorkers int64
	Duration    time.Duration
}

// Stats is a live view of a running scheduler.
type Stats struct {
	Phase     Phase
	Workers   int64
	Active    int64
	Scheduled int64
	Started   int64
	Completed int64
	Failed    int64
	Dropped   int64
}

// Runner starts iterations at a fixed arrival rate regardless of how long
// they take, growing its worker pool up to MaxWorkers.
type Runner struct {
	opt     Options
	plan    *patternPlan
	arrival arrivalController

	phase     atomic.Int32
	workers   atomic.Int64
	scheduled atomic.Int64
	started   atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

func New(opt Options) *Runner {
	opt.normalize()
	plan := compilePatternPlan(opt.LoadPatterns, opt.TimeUnit)
	if opt.Duration == 0 && plan != nil {
		opt.Duration = plan.totalDuration()
	}
	return &Runner{opt: opt, plan: plan, arrival: newArrivalController(opt, plan)}
}

func (r *Runner) Name() string { return r.opt.Name }

func (r *Runner) Phase() Phase { return Phase(r.phase.Load()) }

func (r *Runner) Stats() Stats {
	started := r.started.Load()
	completed := r.completed.Load()
	failed := r.failed.Load()
	return Stats{
		Phase:     r.Phase(),
		Workers:   r.workers.Load(),
		Active:    started - completed - failed,
		Scheduled: r.scheduled.Load(),
		Started:   started,
		Completed: completed,
		Failed:    failed,
		Dropped:   r.dropped.Load(),
	}
}

// Run blocks until the emission window closes and in-flight iterations have
// finished or GracefulStop expired. Cancelling ctx ends emission early but
// still honours GracefulStop. Iterations run on a context that is not
// cancelled with ctx, so their requests are never cut off mid-flight.
func (r *Runner) Run(ctx context.Context) Result {
	start := time.Now()
	defer r.setPhase(PhaseDone)

	if r.opt.StartDelay > 0 {
		timer := time.NewTimer(r.opt.StartDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return r.result(start)
		case <-timer.C:
		}
	}

	iterCtx := context.WithoutCancel(ctx)
	emitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if r.opt.Duration > 0 {
		var deadlineCancel context.CancelFunc
		emitCtx, deadlineCancel = context.WithTimeout(emitCtx, r.opt.Duration)
		defer deadlineCancel()
	}

	if r.plan != nil && r.plan.rampingAt(0) {
		r.setPhase(PhaseRamping)
	} else {
		r.setPhase(PhaseSteady)
	}
	if r.plan != nil {
		go r.runPatternController(emitCtx)
	}

	var wg sync.WaitGroup
	work := make(chan struct{})
	for i := 0; i < r.opt.PreAllocatedWorkers; i++ {
		r.spawn(iterCtx, work, &wg, false)
	}

	for {
		if err := r.arrival.Wait(emitCtx); err != nil || emitCtx.Err() != nil {
			break
		}
		r.scheduled.Add(1)
		// Only this goroutine increments started, so busy can only shrink
		// between the check and the send.
		busy := r.Stats().Active
		switch {
		case busy < r.workers.Load():
			// A worker is idle or about to loop back to the channel.
			r.started.Add(1)
			work <- struct{}{}
		case r.workers.Load() < int64(r.opt.MaxWorkers):
			r.started.Add(1)
			r.spawn(iterCtx, work, &wg, true)
		default:
			total := r.dropped.Add(1)
			if r.opt.OnDropped != nil {
				r.opt.OnDropped(total)
			}
		}
	}
	close(work)

	r.setPhase(PhaseGracefulStop)
	r.awaitWorkers(&wg)
	return r.result(start)
}

// awaitWorkers waits up to GracefulStop for running iterations to finish.
func (r *Runner) awaitWorkers(wg *sync.WaitGroup) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	if r.opt.GracefulStop <= 0 {
		select {
		case <-done:
		default:
		}
		return
	}
	timer := time.NewTimer(r.opt.GracefulStop)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
	}
}

func (r *Runner) spawn(ctx context.Context, work <-chan struct{}, wg *sync.WaitGroup, withIteration bool) {
	r.workers.Add(1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if withIteration {
			r.runIteration(ctx)
		}
		for range work {
			r.runIteration(ctx)
		}
	}()
}

func (r *Runner) runIteration(ctx context.Context) {
	if err := r.safeIteration(ctx); err != nil {
		r.failed.Add(1)
		return
	}
	r.completed.Add(1)
}

func (r *Runner) safeIteration(ctx context.Context) (err error) {
	if r.opt.Iteration == nil {
		return nil
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("iteration panic: %v", p)
		}
	}()
	return r.opt.Iteration(ctx)
}

// result takes one snapshot; iterations still running in it are interrupted.
func (r *Runner) result(start time.Time) Result {
	s := r.Stats()
	return Result{
		Name:        r.opt.Name,
		Scheduled:   s.Scheduled,
		Started:     s.Started,
		Completed:   s.Completed,
		Failed:      s.Failed,
		Dropped:     s.Dropped,
		Interrupted: s.Active,
		PeakWorkers: s.Workers,
		Duration:    time.Since(start),
	}
}

func (r *Runner) setPhase(p Phase) {
	r.phase.Store(int32(p))
}

// runPatternController retunes the arrival rate every 100ms and flips the
// phase between ramping and steady while emission is live.
func (r *Runner) runPatternController(ctx context.Context) {
	start := time.Now()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			elapsed := time.Since(start)
			perSecond, ok := r.plan.rateAt(elapsed)
			if !ok {
				return
			}
			r.arrival.SetRate(perSecond)
			next := PhaseSteady
			if r.plan.rampingAt(elapsed) {
				next = PhaseRamping
			}
			if cur := r.Phase(); cur == PhaseRamping || cur == PhaseSteady {
				r.phase.CompareAndSwap(int32(cur), int32(next))
			}
		}
	}
}
