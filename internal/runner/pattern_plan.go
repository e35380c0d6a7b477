package runner

import (
	"time"
)

// patternPlan is a compiled timeline of load patterns with rates in
// iterations per second.
type patternPlan struct {
	segments []patternSegment
	duration time.Duration
}

type patternSegment struct {
	start    time.Duration
	duration time.Duration
	fromRate float64
	toRate   float64
}

func (s patternSegment) ramping() bool {
	return s.fromRate != s.toRate
}

func compilePatternPlan(patterns []LoadPattern, unit time.Duration) *patternPlan {
	if len(patterns) == 0 {
		return nil
	}
	if unit <= 0 {
		unit = defaultTimeUnit
	}
	perSecond := func(r int) float64 {
		if r <= 0 {
			return 0
		}
		return float64(r) / unit.Seconds()
	}

	plan := &patternPlan{}
	var offset time.Duration
	add := func(d time.Duration, from, to int) {
		if d <= 0 {
			return
		}
		plan.segments = append(plan.segments, patternSegment{
			start:    offset,
			duration: d,
			fromRate: perSecond(from),
			toRate:   perSecond(to),
		})
		offset += d
	}

	for _, pattern := range patterns {
		switch pattern.Type {
		case LoadPatternTypeRamp:
			add(pattern.Duration, pattern.FromRate, pattern.ToRate)
		case LoadPatternTypeStep:
			for _, step := range pattern.Steps {
				add(step.Duration, step.Rate, step.Rate)
			}
		case LoadPatternTypeSpike:
			add(pattern.Duration, pattern.Rate, pattern.Rate)
		}
	}

	if len(plan.segments) == 0 {
		return nil
	}
	plan.duration = offset
	return plan
}

func (p *patternPlan) segmentAt(elapsed time.Duration) (patternSegment, bool) {
	if p == nil {
		return patternSegment{}, false
	}
	if elapsed < 0 {
		elapsed = 0
	}
	for _, seg := range p.segments {
		if elapsed >= seg.start && elapsed < seg.start+seg.duration {
			return seg, true
		}
	}
	return patternSegment{}, false
}

// rateAt interpolates linearly inside ramp segments.
func (p *patternPlan) rateAt(elapsed time.Duration) (float64, bool) {
	seg, ok := p.segmentAt(elapsed)
	if !ok {
		return 0, false
	}
	if !seg.ramping() {
		return seg.fromRate, true
	}
	progress := float64(elapsed-seg.start) / float64(seg.duration)
	if progress < 0 {
		progress = 0
	} else if progress > 1 {
		progress = 1
	}
	return seg.fromRate + (seg.toRate-seg.fromRate)*progress, true
}

func (p *patternPlan) rampingAt(elapsed time.Duration) bool {
	seg, ok := p.segmentAt(elapsed)
	return ok && seg.ramping()
}

func (p *patternPlan) totalDuration() time.Duration {
	if p == nil {
		return 0
	}
	return p.duration
}
