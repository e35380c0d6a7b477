package runner

import (
	"testing"
	"time"
)

func TestCompilePatternPlanRamp(t *testing.T) {
	plan := compilePatternPlan([]LoadPattern{
		{
			Type:     LoadPatternTypeRamp,
			FromRate: 10,
			ToRate:   110,
			Duration: 10 * time.Second,
		},
	}, time.Second)
	if plan == nil {
		t.Fatalf("expected plan")
	}
	if plan.totalDuration() != 10*time.Second {
		t.Fatalf("duration = %s", plan.totalDuration())
	}
	rate, ok := plan.rateAt(5 * time.Second)
	if !ok {
		t.Fatalf("rateAt returned false")
	}
	if rate < 60 || rate > 61 {
		t.Fatalf("unexpected ramp rate: %f", rate)
	}
	if !plan.rampingAt(5 * time.Second) {
		t.Fatal("ramp segment should report ramping")
	}
}

func TestCompilePatternPlanConvertsTimeUnit(t *testing.T) {
	plan := compilePatternPlan([]LoadPattern{
		{Type: LoadPatternTypeSpike, Rate: 6000, Duration: time.Minute},
	}, time.Minute)
	rate, ok := plan.rateAt(0)
	if !ok || rate != 100 {
		t.Fatalf("rateAt(0) = %v, %v; want 100/s", rate, ok)
	}
}

func TestCompilePatternPlanStepAndSpike(t *testing.T) {
	plan := compilePatternPlan([]LoadPattern{
		{
			Type: LoadPatternTypeStep,
			Steps: []LoadStep{
				{Rate: 50, Duration: time.Second},
				{Rate: 100, Duration: 2 * time.Second},
				{Rate: 75, Duration: 0},
			},
		},
		{
			Type:     LoadPatternTypeSpike,
			Rate:     500,
			Duration: 500 * time.Millisecond,
		},
	}, time.Second)
	if plan == nil {
		t.Fatalf("expected plan")
	}
	if len(plan.segments) != 3 {
		t.Fatalf("segments = %d, want 3 (zero-length step skipped)", len(plan.segments))
	}
	rate, ok := plan.rateAt(1500 * time.Millisecond)
	if !ok || rate != 100 {
		t.Fatalf("rateAt(1.5s) = %f, %v; want 100", rate, ok)
	}
	if plan.rampingAt(1500 * time.Millisecond) {
		t.Fatal("step segment must not report ramping")
	}
	rate, ok = plan.rateAt(3200 * time.Millisecond)
	if !ok || rate != 500 {
		t.Fatalf("rateAt(3.2s) = %f, %v; want spike 500", rate, ok)
	}
}

func TestPlanRateAtAfterEnd(t *testing.T) {
	plan := compilePatternPlan([]LoadPattern{{
		Type:     LoadPatternTypeSpike,
		Rate:     100,
		Duration: time.Second,
	}}, time.Second)
	if plan == nil {
		t.Fatalf("plan nil")
	}
	if _, ok := plan.rateAt(2 * time.Second); ok {
		t.Fatalf("expected no rate after end")
	}
}

func TestCompilePatternPlanEmpty(t *testing.T) {
	if compilePatternPlan(nil, time.Second) != nil {
		t.Fatal("nil patterns should compile to nil plan")
	}
	if compilePatternPlan([]LoadPattern{{Type: LoadPatternTypeRamp}}, time.Second) != nil {
		t.Fatal("patterns without duration should compile to nil plan")
	}
}
