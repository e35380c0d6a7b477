// Package threshold evaluates pass/fail assertions against a run summary.
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/torosent/packstorm/internal/output"
)

// Threshold represents a performance assertion that can pass or fail.
type Threshold struct {
	Metric    string  // e.g. "create_pack_duration", "checks", "dropped_iterations"
	Aggregate string  // e.g. "p95", "avg", "rate", "count"
	Operator  string  // "<", "<=", ">", ">=", "=="
	Value     float64 // milliseconds for durations, ratio or count otherwise
	Raw       string
}

// Result represents the outcome of evaluating a threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

// Evaluator evaluates thresholds against a summary.
type Evaluator struct {
	thresholds []Threshold
}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// Evaluate checks all thresholds against the summary.
func (e *Evaluator) Evaluate(s output.Summary) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}
	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, evaluateOne(t, s))
	}
	return results
}

func evaluateOne(t Threshold, s output.Summary) Result {
	actual, err := extractMetricValue(t, s)
	if err != nil {
		return Result{
			Threshold: t,
			Pass:      false,
			Message:   fmt.Sprintf("error: %v", err),
		}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}
	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   fmt.Sprintf("%s %s: %.2f %s %.2f", status, t.Raw, actual, t.Operator, t.Value),
	}
}

// Outcomes converts results into the report representation.
func Outcomes(results []Result) []output.ThresholdOutcome {
	if len(results) == 0 {
		return nil
	}
	out := make([]output.ThresholdOutcome, len(results))
	for i, r := range results {
		out[i] = output.ThresholdOutcome{
			Threshold: r.Threshold.Raw,
			Metric:    r.Threshold.Metric,
			Aggregate: r.Threshold.Aggregate,
			Operator:  r.Threshold.Operator,
			Expected:  r.Threshold.Value,
			Actual:    r.Actual,
			Pass:      r.Pass,
		}
	}
	return out
}

var thresholdPattern = regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)

var (
	trendAggregates   = []string{"p50", "med", "p90", "p95", "p99", "p999", "avg", "min", "max", "count"}
	counterAggregates = []string{"rate", "count"}
	counterMetrics    = []string{"http_req_failed", "http_requests", "checks", "iterations", "dropped_iterations"}
	validOperators    = []string{"<", "<=", ">", ">=", "=="}
)

// Parse parses a threshold string into a Threshold struct.
// Supported formats:
// - "create_pack_duration:p95 < 500"  (operation latency in ms)
// - "http_req_duration:p99 < 1000"    (latency of all operations in ms)
// - "checks:rate > 0.99"              (check pass ratio)
// - "http_req_failed:rate < 0.01"     (failed check ratio)
// - "dropped_iterations:count < 1"
// - "iterations:rate > 90"            (completed iterations per second)
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	matches := thresholdPattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected format: metric:aggregate operator value, e.g., 'create_pack_duration:p95 < 500')", s)
	}
	metric, aggregate, operator, valueStr := matches[1], matches[2], matches[3], matches[4]

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", valueStr, err)
	}

	switch {
	case isTrendMetric(metric):
		if !contains(trendAggregates, aggregate) {
			return Threshold{}, fmt.Errorf("unsupported aggregate %q for %s (supported: %s)", aggregate, metric, strings.Join(trendAggregates, ", "))
		}
	case contains(counterMetrics, metric):
		if !contains(counterAggregates, aggregate) {
			return Threshold{}, fmt.Errorf("unsupported aggregate %q for %s (use 'count' or 'rate')", aggregate, metric)
		}
	default:
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: <operation>_duration, http_req_duration, %s)", metric, strings.Join(counterMetrics, ", "))
	}

	if !contains(validOperators, operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var errs []string
	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errs = append(errs, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(errs, "; "))
	}
	return result, nil
}

func isTrendMetric(metric string) bool {
	return strings.HasSuffix(metric, "_duration") && len(metric) > len("_duration")
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func extractMetricValue(t Threshold, s output.Summary) (float64, error) {
	if t.Metric == "http_req_duration" {
		return trendValue(t.Aggregate, s.Overall)
	}
	if isTrendMetric(t.Metric) {
		trend, ok := s.Trends[t.Metric]
		if !ok {
			return 0, fmt.Errorf("no samples recorded for %s", t.Metric)
		}
		return trendValue(t.Aggregate, trend)
	}

	secs := s.Duration.Seconds()
	perSecond := func(n int64) float64 {
		if secs <= 0 {
			return 0
		}
		return float64(n) / secs
	}

	switch t.Metric {
	case "checks":
		if t.Aggregate == "count" {
			return float64(s.CheckPasses + s.CheckFails), nil
		}
		return s.ChecksRate(), nil
	case "http_req_failed":
		if t.Aggregate == "count" {
			return float64(s.CheckFails), nil
		}
		total := s.CheckPasses + s.CheckFails
		if total == 0 {
			return 0, nil
		}
		return float64(s.CheckFails) / float64(total), nil
	case "http_requests":
		if t.Aggregate == "count" {
			return float64(s.Requests), nil
		}
		return s.RequestsPerSec, nil
	case "iterations":
		if t.Aggregate == "count" {
			return float64(s.Iterations), nil
		}
		return s.IterationRate, nil
	case "dropped_iterations":
		if t.Aggregate == "count" {
			return float64(s.Dropped), nil
		}
		return perSecond(s.Dropped), nil
	default:
		return 0, fmt.Errorf("unknown metric: %s", t.Metric)
	}
}

func trendValue(aggregate string, tr output.Trend) (float64, error) {
	switch aggregate {
	case "p50", "med":
		return tr.Med, nil
	case "p90":
		return tr.P90, nil
	case "p95":
		return tr.P95, nil
	case "p99":
		return tr.P99, nil
	case "p999":
		return tr.P999, nil
	case "avg":
		return tr.Avg, nil
	case "min":
		return tr.Min, nil
	case "max":
		return tr.Max, nil
	case "count":
		return float64(tr.Count), nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for a duration metric", aggregate)
	}
}

func compareValues(actual float64, operator string, expected float64) bool {
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
