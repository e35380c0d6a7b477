package threshold

import (
	"strings"
	"testing"
	"time"

	"github.com/torosent/packstorm/internal/output"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      Threshold
		wantError string
	}{
		{
			name:  "operation p95",
			input: "create_pack_duration:p95 < 500",
			want:  Threshold{Metric: "create_pack_duration", Aggregate: "p95", Operator: "<", Value: 500, Raw: "create_pack_duration:p95 < 500"},
		},
		{
			name:  "overall p99.9 without spaces",
			input: "http_req_duration:p999<=1500",
			want:  Threshold{Metric: "http_req_duration", Aggregate: "p999", Operator: "<=", Value: 1500, Raw: "http_req_duration:p999<=1500"},
		},
		{
			name:  "checks rate",
			input: "  checks:rate > 0.99 ",
			want:  Threshold{Metric: "checks", Aggregate: "rate", Operator: ">", Value: 0.99, Raw: "checks:rate > 0.99"},
		},
		{
			name:  "dropped iterations",
			input: "dropped_iterations:count == 0",
			want:  Threshold{Metric: "dropped_iterations", Aggregate: "count", Operator: "==", Value: 0, Raw: "dropped_iterations:count == 0"},
		},
		{name: "empty", input: "", wantError: "empty threshold"},
		{name: "bad format", input: "p95 < 500", wantError: "invalid threshold format"},
		{name: "unknown metric", input: "latency:p95 < 5", wantError: "unsupported metric"},
		{name: "bare duration suffix", input: "_duration:p95 < 5", wantError: "unsupported metric"},
		{name: "rate on trend", input: "cancel_pack_duration:rate < 5", wantError: "unsupported aggregate"},
		{name: "percentile on counter", input: "iterations:p95 > 5", wantError: "unsupported aggregate"},
		{name: "bad operator", input: "checks:rate != 1", wantError: "unsupported operator"},
		{name: "bad value", input: "checks:rate > 1.2.3", wantError: "invalid threshold value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantError != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantError) {
					t.Fatalf("Parse() error = %v, want containing %q", err, tt.wantError)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseMultiple(t *testing.T) {
	got, err := ParseMultiple([]string{"checks:rate > 0.9", "iterations:count > 1"})
	if err != nil || len(got) != 2 {
		t.Fatalf("ParseMultiple() = %v, %v", got, err)
	}
	if _, err := ParseMultiple([]string{"checks:rate > 0.9", "nope"}); err == nil || !strings.Contains(err.Error(), "threshold[1]") {
		t.Fatalf("ParseMultiple() error = %v, want index of bad entry", err)
	}
	if got, err := ParseMultiple(nil); got != nil || err != nil {
		t.Fatalf("ParseMultiple(nil) = %v, %v", got, err)
	}
}

func testSummary() output.Summary {
	return output.Summary{
		Duration:       10 * time.Second,
		Requests:       1000,
		RequestsPerSec: 100,
		Overall:        output.Trend{Count: 1000, Avg: 40, Med: 35, P95: 90, P99: 150, P999: 400, Min: 2, Max: 800},
		Trends: map[string]output.Trend{
			"create_pack_duration": {Count: 400, Avg: 30, P95: 80},
		},
		CheckPasses:   990,
		CheckFails:    10,
		Iterations:    500,
		IterationRate: 50,
		Dropped:       20,
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		input    string
		wantPass bool
		actual   float64
	}{
		{"create_pack_duration:p95 < 100", true, 80},
		{"create_pack_duration:avg > 30", false, 30},
		{"create_pack_duration:avg >= 30", true, 30},
		{"http_req_duration:p999 < 500", true, 400},
		{"http_req_duration:med == 35", true, 35},
		{"http_req_duration:max < 500", false, 800},
		{"checks:rate > 0.98", true, 0.99},
		{"checks:count == 1000", true, 1000},
		{"http_req_failed:rate < 0.005", false, 0.01},
		{"http_req_failed:count <= 10", true, 10},
		{"http_requests:rate > 90", true, 100},
		{"iterations:count >= 500", true, 500},
		{"iterations:rate > 60", false, 50},
		{"dropped_iterations:count == 0", false, 20},
		{"dropped_iterations:rate <= 2", true, 2},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			th, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			results := NewEvaluator([]Threshold{th}).Evaluate(testSummary())
			if len(results) != 1 {
				t.Fatalf("results = %d", len(results))
			}
			r := results[0]
			if r.Pass != tt.wantPass {
				t.Errorf("Pass = %v, want %v (%s)", r.Pass, tt.wantPass, r.Message)
			}
			if diff := r.Actual - tt.actual; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Actual = %v, want %v", r.Actual, tt.actual)
			}
		})
	}
}

func TestEvaluateMissingTrendFails(t *testing.T) {
	th, _ := Parse("cancel_pack_duration:p95 < 100")
	r := NewEvaluator([]Threshold{th}).Evaluate(testSummary())[0]
	if r.Pass || !strings.Contains(r.Message, "no samples") {
		t.Fatalf("result = %+v, want failure for missing samples", r)
	}
}

func TestEvaluateNoThresholds(t *testing.T) {
	if got := NewEvaluator(nil).Evaluate(testSummary()); got != nil {
		t.Fatalf("Evaluate() = %v, want nil", got)
	}
}

func TestOutcomes(t *testing.T) {
	th, _ := Parse("checks:rate > 0.98")
	out := Outcomes(NewEvaluator([]Threshold{th}).Evaluate(testSummary()))
	if len(out) != 1 || !out[0].Pass || out[0].Threshold != "checks:rate > 0.98" || out[0].Expected != 0.98 {
		t.Fatalf("Outcomes() = %+v", out)
	}
	s := testSummary()
	s.Thresholds = out
	if !s.ThresholdsPassed() {
		t.Fatal("summary should report thresholds passed")
	}
	if Outcomes(nil) != nil {
		t.Fatal("Outcomes(nil) should be nil")
	}
}
