package runner

import (
	"context"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestPoissonArrivalNextDelayUsesSampler(t *testing.T) {
	ctrl := &poissonArrival{sample: func() float64 { return 1 }}
	ctrl.SetRate(200)
	delay, paused := ctrl.nextDelay()
	if paused {
		t.Fatal("controller with positive rate reported paused")
	}
	if expected := time.Second / 200; delay != expected {
		t.Fatalf("expected delay %s, got %s", expected, delay)
	}
}

func TestPoissonArrivalWaitCancelledContext(t *testing.T) {
	ctrl := &poissonArrival{sample: func() float64 { return 1 }}
	ctrl.SetRate(0.000001)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := ctrl.Wait(ctx); err == nil {
		t.Fatalf("expected context error when cancelled")
	}
}

func TestPoissonArrivalPausedAtZeroRate(t *testing.T) {
	ctrl := &poissonArrival{sample: func() float64 { return 1 }}
	ctrl.SetRate(0)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := ctrl.Wait(ctx); err == nil {
		t.Fatal("zero-rate poisson controller must block until the context ends")
	}
}

func TestUniformArrivalPauseAndResume(t *testing.T) {
	ctrl := &uniformArrival{limiter: rate.NewLimiter(0, 1)}
	ctrl.SetRate(0)

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	if err := ctrl.Wait(ctx); err == nil {
		t.Fatal("paused controller must not release an arrival")
	}

	ctrl.SetRate(1000)
	start := time.Now()
	if err := ctrl.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() after resume error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("resumed controller waited %s", elapsed)
	}
}

func TestNewArrivalControllerPicksModel(t *testing.T) {
	opt := Options{Rate: 60, TimeUnit: time.Minute, ArrivalModel: ArrivalModelPoisson}
	opt.normalize()
	if _, ok := newArrivalController(opt, nil).(*poissonArrival); !ok {
		t.Fatal("expected poisson controller")
	}
	opt.ArrivalModel = ArrivalModelUniform
	ctrl, ok := newArrivalController(opt, nil).(*uniformArrival)
	if !ok {
		t.Fatal("expected uniform controller")
	}
	if got := float64(ctrl.limiter.Limit()); got != 1 {
		t.Fatalf("limiter rate = %v/s, want 1/s for 60/min", got)
	}
}
