package output

import (
	"sort"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/oklog/ulid/v2"

	"github.com/torosent/packstorm/internal/metrics"
	"github.com/torosent/packstorm/internal/runner"
)

// Trend holds the latency aggregates of one operation, in milliseconds.
type Trend struct {
	Count int64   `json:"count"`
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Med   float64 `json:"med"`
	Max   float64 `json:"max"`
	P90   float64 `json:"p(90)"`
	P95   float64 `json:"p(95)"`
	P99   float64 `json:"p(99)"`
	P999  float64 `json:"p(99.9)"`
}

// ScenarioSummary reports the scheduler counters of one scenario.
type ScenarioSummary struct {
	Name        string        `json:"name"`
	Scheduled   int64         `json:"scheduled"`
	Started     int64         `json:"started"`
	Completed   int64         `json:"completed"`
	Failed      int64         `json:"failed"`
	Dropped     int64         `json:"dropped"`
	Interrupted int64         `json:"interrupted"`
	PeakWorkers int64         `json:"peak_workers"`
	Duration    time.Duration `json:"duration_ns"`
}

// ThresholdOutcome is an evaluated threshold as it appears in reports.
type ThresholdOutcome struct {
	Threshold string  `json:"threshold"`
	Metric    string  `json:"metric"`
	Aggregate string  `json:"aggregate"`
	Operator  string  `json:"operator"`
	Expected  float64 `json:"expected"`
	Actual    float64 `json:"actual"`
	Pass      bool    `json:"pass"`
}

// Summary is the end-of-run report consumed by every output format.
type Summary struct {
	RunID          string                        `json:"run_id"`
	BaseURL        string                        `json:"base_url,omitempty"`
	StartedAt      time.Time                     `json:"started_at"`
	Duration       time.Duration                 `json:"duration_ns"`
	Requests       int64                         `json:"requests"`
	RequestsPerSec float64                       `json:"requests_per_sec"`
	Overall        Trend                         `json:"http_req_duration"`
	Trends         map[string]Trend              `json:"trends"`
	Checks         map[string]metrics.CheckCount `json:"checks"`
	CheckPasses    int64                         `json:"check_passes"`
	CheckFails     int64                         `json:"check_fails"`
	StatusBuckets  map[string]map[string]int     `json:"status_buckets,omitempty"`
	Iterations     int64                         `json:"iterations"`
	IterationRate  float64                       `json:"iterations_per_sec"`
	Dropped        int64                         `json:"dropped_iterations"`
	Interrupted    int64                         `json:"interrupted_iterations"`
	Scenarios      []ScenarioSummary             `json:"scenarios"`
	Thresholds     []ThresholdOutcome            `json:"thresholds,omitempty"`
}

// ChecksRate returns the pass ratio across all checks.
func (s Summary) ChecksRate() float64 {
	total := s.CheckPasses + s.CheckFails
	if total == 0 {
		return 0
	}
	return float64(s.CheckPasses) / float64(total)
}

// ThresholdsPassed reports whether every evaluated threshold passed.
func (s Summary) ThresholdsPassed() bool {
	for _, t := range s.Thresholds {
		if !t.Pass {
			return false
		}
	}
	return true
}

// Operations returns the trend names in sorted order.
func (s Summary) Operations() []string {
	names := make([]string, 0, len(s.Trends))
	for name := range s.Trends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Input is everything Summarize needs from a finished run.
type Input struct {
	BaseURL   string
	StartedAt time.Time
	Elapsed   time.Duration
	Samples   map[string][]time.Duration
	Checks    map[string]metrics.CheckCount
	Statuses  map[string]map[string]int
	Results   []runner.Result
}

// Summarize aggregates raw samples into trends and totals.
func Summarize(in Input) Summary {
	s := Summary{
		RunID:         ulid.Make().String(),
		BaseURL:       in.BaseURL,
		StartedAt:     in.StartedAt,
		Duration:      in.Elapsed,
		Trends:        make(map[string]Trend, len(in.Samples)),
		Checks:        in.Checks,
		StatusBuckets: in.Statuses,
	}

	overall := newHistogram()
	for op, samples := range in.Samples {
		h := newHistogram()
		for _, d := range samples {
			recordDuration(h, d)
			recordDuration(overall, d)
		}
		s.Trends[op] = trendOf(h)
		s.Requests += int64(len(samples))
	}
	s.Overall = trendOf(overall)

	for _, c := range in.Checks {
		s.CheckPasses += c.Passes
		s.CheckFails += c.Fails
	}

	for _, r := range in.Results {
		s.Scenarios = append(s.Scenarios, ScenarioSummary{
			Name:        r.Name,
			Scheduled:   r.Scheduled,
			Started:     r.Started,
			Completed:   r.Completed,
			Failed:      r.Failed,
			Dropped:     r.Dropped,
			Interrupted: r.Interrupted,
			PeakWorkers: r.PeakWorkers,
			Duration:    r.Duration,
		})
		s.Iterations += r.Completed
		s.Dropped += r.Dropped
		s.Interrupted += r.Interrupted
	}
	sort.Slice(s.Scenarios, func(i, j int) bool { return s.Scenarios[i].Name < s.Scenarios[j].Name })

	if secs := in.Elapsed.Seconds(); secs > 0 {
		s.RequestsPerSec = float64(s.Requests) / secs
		s.IterationRate = float64(s.Iterations) / secs
	}
	return s
}

// 1µs to 1h at 3 significant digits.
func newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(1, int64(time.Hour/time.Microsecond), 3)
}

func recordDuration(h *hdrhistogram.Histogram, d time.Duration) {
	us := d.Microseconds()
	if us < h.LowestTrackableValue() {
		us = h.LowestTrackableValue()
	}
	if us > h.HighestTrackableValue() {
		us = h.HighestTrackableValue()
	}
	_ = h.RecordValue(us)
}

func trendOf(h *hdrhistogram.Histogram) Trend {
	if h.TotalCount() == 0 {
		return Trend{}
	}
	return Trend{
		Count: h.TotalCount(),
		Avg:   h.Mean() / 1000,
		Min:   usToMs(h.Min()),
		Med:   usToMs(h.ValueAtQuantile(50)),
		Max:   usToMs(h.Max()),
		P90:   usToMs(h.ValueAtQuantile(90)),
		P95:   usToMs(h.ValueAtQuantile(95)),
		P99:   usToMs(h.ValueAtQuantile(99)),
		P999:  usToMs(h.ValueAtQuantile(99.9)),
	}
}

func usToMs(us int64) float64 { return float64(us) / 1000 }
