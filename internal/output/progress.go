package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// Progress is a live snapshot of a run.
type Progress struct {
	Phase      string
	Requests   int
	Iterations int64
	Dropped    int64
	Active     int64
	Failures   int64
}

// ProgressFunc produces the snapshot printed on each tick.
type ProgressFunc func() Progress

// ProgressReporter displays real-time progress updates.
type ProgressReporter struct {
	source   ProgressFunc
	ticker   *time.Ticker
	done     chan struct{}
	finished chan struct{}
	writer   io.Writer
	active   int32
	start    time.Time
}

// NewProgressReporter creates a progress reporter that updates at the given interval.
func NewProgressReporter(source ProgressFunc, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		source:   source,
		ticker:   time.NewTicker(interval),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		writer:   writer,
		start:    time.Now(),
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates and ends the status line.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
		fmt.Fprintln(p.writer)
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			fmt.Fprint(p.writer, formatProgress(p.source(), time.Since(p.start)))
		case <-p.done:
			return
		}
	}
}

func formatProgress(s Progress, elapsed time.Duration) string {
	rps := 0.0
	if secs := elapsed.Seconds(); secs > 0 {
		rps = float64(s.Requests) / secs
	}
	line := fmt.Sprintf("\r[%s] %s | Requests: %d | RPS: %.1f | Iterations: %d | Active: %d | Dropped: %d",
		elapsed.Round(time.Second), s.Phase, s.Requests, rps, s.Iterations, s.Active, s.Dropped)
	if s.Failures > 0 {
		line += fmt.Sprintf(" | Failed: %d", s.Failures)
	}
	return line
}
