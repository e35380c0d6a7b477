package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/torosent/packstorm/internal/metrics"
	"github.com/torosent/packstorm/internal/runner"
)

func sampleSummary() Summary {
	s := Summarize(Input{
		BaseURL: "http://localhost:3300",
		Elapsed: 5 * time.Second,
		Samples: map[string][]time.Duration{
			"create_pack_duration":        samples(50, time.Millisecond),
			"update_pack_status_duration": samples(20, 2*time.Millisecond),
		},
		Checks: map[string]metrics.CheckCount{
			"status is 201": {Passes: 49, Fails: 1},
		},
		Statuses: map[string]map[string]int{
			"create_pack": {"201": 49, "500": 1},
		},
		Results: []runner.Result{{Name: "packs", Scheduled: 50, Started: 50, Completed: 50, PeakWorkers: 4}},
	})
	s.Thresholds = []ThresholdOutcome{
		{Threshold: "create_pack_duration:p95 < 500", Metric: "create_pack_duration", Aggregate: "p95", Operator: "<", Expected: 500, Actual: 48, Pass: true},
	}
	return s
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, sampleSummary())
	out := buf.String()

	for _, want := range []string{
		"Load Test Results",
		"Target:            http://localhost:3300",
		"Requests:          70",
		"status is 201: ✓ 49 ✗ 1",
		"create_pack_duration",
		"update_pack_status_duration",
		"http_req_duration",
		"p(99.9)",
		"- packs: scheduled=50",
		"create_pack 500: 1",
		"✓ create_pack_duration:p95 < 500",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}
}

func TestPrintJSONReport(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintJSONReport(&buf, sampleSummary()); err != nil {
		t.Fatalf("PrintJSONReport() error = %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	trends, ok := decoded["trends"].(map[string]any)
	if !ok {
		t.Fatalf("trends missing: %v", decoded)
	}
	cp, ok := trends["create_pack_duration"].(map[string]any)
	if !ok {
		t.Fatalf("create_pack trend missing: %v", trends)
	}
	for _, key := range []string{"avg", "min", "med", "max", "p(90)", "p(95)", "p(99)", "p(99.9)", "count"} {
		if _, ok := cp[key]; !ok {
			t.Errorf("trend missing %q", key)
		}
	}
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	s := sampleSummary()

	jsonPath := filepath.Join(dir, "report.json")
	if err := WriteJSONFile(jsonPath, s); err != nil {
		t.Fatalf("WriteJSONFile() error = %v", err)
	}
	raw, err := os.ReadFile(jsonPath)
	if err != nil || !strings.Contains(string(raw), s.RunID) {
		t.Fatalf("report.json = %q, %v", raw, err)
	}

	htmlPath := filepath.Join(dir, "report.html")
	if err := WriteHTMLFile(htmlPath, s); err != nil {
		t.Fatalf("WriteHTMLFile() error = %v", err)
	}

	if err := WriteJSONFile(filepath.Join(dir, "missing", "r.json"), s); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestGenerateHTMLReport(t *testing.T) {
	var buf bytes.Buffer
	if err := GenerateHTMLReport(&buf, sampleSummary()); err != nil {
		t.Fatalf("GenerateHTMLReport() error = %v", err)
	}
	html := buf.String()
	for _, want := range []string{
		"<!DOCTYPE html>",
		"packstorm Load Test Report",
		"create_pack_duration",
		"Thresholds (1/1 Passed)",
		"status is 201",
		"Peak Workers",
		"Status Buckets",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
}

func TestGenerateHTMLReportEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := GenerateHTMLReport(&buf, Summarize(Input{})); err != nil {
		t.Fatalf("GenerateHTMLReport() error = %v", err)
	}
	if !strings.Contains(buf.String(), "No requests were recorded") {
		t.Fatal("expected empty-state message")
	}
	if strings.Contains(buf.String(), "Thresholds (") {
		t.Fatal("threshold section should be hidden")
	}
}
