// Package runner is the arrival-rate scheduler behind every packstorm scenario.
//
// A Runner starts iterations at a fixed rate (Rate per TimeUnit) for a fixed
// Duration, independent of how long each iteration takes. Iterations are
// handed to idle workers; when none is idle a new worker is spawned, up to
// MaxWorkers. Arrivals that find the pool exhausted are dropped and counted,
// never queued.
//
//	r := runner.New(runner.Options{
//		Name:                "packs",
//		Rate:                6000,
//		TimeUnit:            time.Minute,
//		PreAllocatedWorkers: 10,
//		MaxWorkers:          100,
//		Duration:            5 * time.Minute,
//		Iteration:           func(ctx context.Context) error { return nil },
//	})
//	res := r.Run(ctx)
//
// # Arrival Models
//
//   - [ArrivalModelUniform]: evenly spaced starts via golang.org/x/time/rate
//   - [ArrivalModelPoisson]: exponential inter-arrival gaps with the same mean
//
// # Load Patterns
//
// [LoadPattern] values (ramp, step, spike) replace the constant rate with a
// timeline. While a ramp segment is active the runner reports [PhaseRamping].
//
// # Stopping
//
// When the window closes the runner stops emitting, then waits up to
// GracefulStop for in-flight iterations; zero does not wait at all. Iterations
// still running after that are reported in [Result].Interrupted and left to
// finish on their own.
package runner
