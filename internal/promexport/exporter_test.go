package promexport_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/torosent/packstorm/internal/metrics"
	"github.com/torosent/packstorm/internal/promexport"
)

func scrape(t *testing.T, e *promexport.Exporter) string {
	t.Helper()
	srv := httptest.NewServer(e.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return string(body)
}

func TestExporterMetrics(t *testing.T) {
	e := promexport.New()
	var rec metrics.Recorder = e
	rec.Record("create_pack_duration", 12*time.Millisecond)
	rec.Record("create_pack_duration", 30*time.Millisecond)
	e.Dropped("packs", 3)
	e.Dropped("packs", 0)
	e.Iteration("events", false)
	e.Iteration("events", true)
	e.Check("status is 201", true)
	if err := e.WatchPool(func() map[string]int {
		return map[string]int{"pending_transition": 7}
	}); err != nil {
		t.Fatalf("WatchPool() error = %v", err)
	}

	body := scrape(t, e)
	for _, want := range []string{
		`packstorm_request_duration_seconds_count{operation="create_pack_duration"} 2`,
		`packstorm_dropped_iterations_total{scenario="packs"} 3`,
		`packstorm_iterations_total{result="failed",scenario="events"} 1`,
		`packstorm_iterations_total{result="ok",scenario="events"} 1`,
		`packstorm_checks_total{check="status is 201",result="pass"} 1`,
		`packstorm_pool_identifiers{stage="pending_transition"} 7`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape missing %q\n%s", want, body)
		}
	}
}

func TestExportersAreIndependent(t *testing.T) {
	a, b := promexport.New(), promexport.New()
	a.Dropped("packs", 1)
	if strings.Contains(scrape(t, b), "packstorm_dropped_iterations_total{") {
		t.Fatal("exporters must not share a registry")
	}
}
