package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/torosent/packstorm/internal/config"
	"github.com/torosent/packstorm/internal/fakeapi"
	"github.com/torosent/packstorm/internal/output"
	"github.com/torosent/packstorm/internal/runner"
)

func TestToRunnerArrivalModel(t *testing.T) {
	tests := []struct {
		input config.ArrivalModel
		want  runner.ArrivalModel
	}{
		{config.ArrivalModelUniform, runner.ArrivalModelUniform},
		{config.ArrivalModelPoisson, runner.ArrivalModelPoisson},
		{"unknown", runner.ArrivalModelUniform},
	}

	for _, tt := range tests {
		got := toRunnerArrivalModel(tt.input)
		if got != tt.want {
			t.Errorf("toRunnerArrivalModel(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestToRunnerLoadPatterns(t *testing.T) {
	input := []config.LoadPattern{
		{Name: "warmup", Type: config.LoadPatternTypeRamp, FromRate: 60, ToRate: 600, Duration: time.Minute},
		{Name: "stairs", Type: config.LoadPatternTypeStep, Steps: []config.LoadStep{
			{Rate: 100, Duration: 10 * time.Second},
			{Rate: 200, Duration: 20 * time.Second},
		}},
	}
	got := toRunnerLoadPatterns(input)
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if got[0].Type != runner.LoadPatternTypeRamp || got[0].FromRate != 60 || got[0].ToRate != 600 || got[0].Duration != time.Minute {
		t.Errorf("ramp = %+v", got[0])
	}
	if len(got[1].Steps) != 2 || got[1].Steps[1].Rate != 200 || got[1].Steps[1].Duration != 20*time.Second {
		t.Errorf("steps = %+v", got[1].Steps)
	}
	if toRunnerLoadPatterns(nil) != nil {
		t.Error("nil patterns should stay nil")
	}
}

func TestMaxWorkers(t *testing.T) {
	cfg := config.Defaults()
	if got := maxWorkers(&cfg); got != 2*config.DefaultMaxWorkers {
		t.Errorf("maxWorkers() = %d, want %d", got, 2*config.DefaultMaxWorkers)
	}
	cfg.Events.Enabled = false
	if got := maxWorkers(&cfg); got != config.DefaultMaxWorkers {
		t.Errorf("maxWorkers() = %d, want %d", got, config.DefaultMaxWorkers)
	}
}

func TestRandomSeed(t *testing.T) {
	if got := randomSeed(42); got != 42 {
		t.Errorf("randomSeed(42) = %d", got)
	}
	if got := randomSeed(0); got == 0 {
		t.Error("randomSeed(0) should pick a seed")
	}
}

func TestRateLimitedLogger(t *testing.T) {
	every := rateLimitedLogger(time.Hour)
	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		every(func() { calls.Add(1) })
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func shortRunArgs(baseURL string, extra ...string) []string {
	args := []string{
		"--base-url", baseURL,
		"--time-unit", "1s",
		"--packs-rate", "40",
		"--events-rate", "40",
		"--duration", "300ms",
		"--start-time", "0s",
		"--graceful-stop", "2s",
		"--pre-allocated-workers", "2",
		"--max-workers", "10",
		"--seed-packs", "3",
		"--random-seed", "7",
		"--json-output",
		"--log-level", "error",
	}
	return append(args, extra...)
}

func decodeSummary(t *testing.T, raw []byte) output.Summary {
	t.Helper()
	var s output.Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		t.Fatalf("decode summary: %v\n%s", err, raw)
	}
	return s
}

func TestExecuteAgainstFakeAPI(t *testing.T) {
	api := fakeapi.New(fakeapi.Options{})
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	export := filepath.Join(t.TempDir(), "summary.json")
	var stdout, stderr bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := execute(ctx, cancel, shortRunArgs(srv.URL, "--summary-export", export), &stdout, &stderr)
	if err != nil {
		t.Fatalf("execute() error = %v\nlogs:\n%s", err, stderr.String())
	}

	s := decodeSummary(t, stdout.Bytes())
	if s.Iterations == 0 {
		t.Fatal("no iterations recorded")
	}
	for _, name := range []string{"create_pack_duration", "create_event_duration"} {
		if s.Trends[name].Count == 0 {
			t.Errorf("trend %s is empty", name)
		}
	}
	if len(s.Scenarios) != 2 {
		t.Errorf("scenarios = %d, want 2", len(s.Scenarios))
	}
	if s.CheckFails != 0 {
		t.Errorf("check fails = %d, want 0 against a healthy API", s.CheckFails)
	}
	if api.Requests() < s.Requests {
		t.Errorf("server saw %d requests, summary reports %d", api.Requests(), s.Requests)
	}

	raw, err := os.ReadFile(export)
	if err != nil {
		t.Fatalf("summary export missing: %v", err)
	}
	if exported := decodeSummary(t, raw); exported.RunID != s.RunID {
		t.Errorf("exported run id = %q, want %q", exported.RunID, s.RunID)
	}
}

func TestExecuteFailedRequestsDoNotFailRun(t *testing.T) {
	srv := httptest.NewServer(fakeapi.New(fakeapi.Options{}).Handler())
	defer srv.Close()

	seed := filepath.Join(t.TempDir(), "packs.csv")
	if err := os.WriteFile(seed, []byte("id\nmissing-1\nmissing-2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	args := shortRunArgs(srv.URL, "--scenario", "events", "--seed-file", seed, "--seed-type", "csv")
	if err := execute(ctx, cancel, args, &stdout, &stderr); err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	s := decodeSummary(t, stdout.Bytes())
	if s.CheckFails == 0 {
		t.Fatal("events against unknown packs should fail their checks")
	}
	if s.StatusBuckets["create_event"]["404"] == 0 {
		t.Errorf("status buckets = %v, want 404s for create_event", s.StatusBuckets)
	}
}

func TestExecuteThresholdFailure(t *testing.T) {
	srv := httptest.NewServer(fakeapi.New(fakeapi.Options{}).Handler())
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	args := shortRunArgs(srv.URL, "--scenario", "packs", "--threshold", "iterations:count > 1000000")
	err := execute(ctx, cancel, args, &stdout, &stderr)
	if !errors.Is(err, errThresholdsFailed) {
		t.Fatalf("execute() error = %v, want %v", err, errThresholdsFailed)
	}
	s := decodeSummary(t, stdout.Bytes())
	if len(s.Thresholds) != 1 || s.Thresholds[0].Pass {
		t.Errorf("thresholds = %+v", s.Thresholds)
	}
}

func TestExecuteSetupFailureIsFatal(t *testing.T) {
	srv := httptest.NewServer(fakeapi.New(fakeapi.Options{FailureRate: 1}).Handler())
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := execute(ctx, cancel, shortRunArgs(srv.URL, "--scenario", "events"), &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "seed events catalog") {
		t.Fatalf("execute() error = %v, want seed failure", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("no summary expected after a failed setup, got %q", stdout.String())
	}
}

func TestExecuteInvalidConfig(t *testing.T) {
	var stdout, stderr bytes.Buffer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := execute(ctx, cancel, []string{"--base-url", "localhost:3300"}, &stdout, &stderr)
	var verr config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("execute() error = %v, want ValidationError", err)
	}
}

func TestExecuteHelp(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var stdout, stderr bytes.Buffer
	if err := execute(ctx, cancel, []string{"--help"}, &stdout, &stderr); err != nil {
		t.Fatalf("execute(--help) error = %v", err)
	}
}
