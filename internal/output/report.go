package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/torosent/packstorm/internal/metrics"
)

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, s Summary) {
	fmt.Fprintf(w, "\n--- Load Test Results (run %s) ---\n", s.RunID)
	if s.BaseURL != "" {
		fmt.Fprintf(w, "Target:            %s\n", s.BaseURL)
	}
	fmt.Fprintf(w, "Duration:          %s\n", s.Duration)
	fmt.Fprintf(w, "Requests:          %d (%.2f/s)\n", s.Requests, s.RequestsPerSec)
	fmt.Fprintf(w, "Iterations:        %d (%.2f/s)\n", s.Iterations, s.IterationRate)
	fmt.Fprintf(w, "Dropped:           %d\n", s.Dropped)
	if s.Interrupted > 0 {
		fmt.Fprintf(w, "Interrupted:       %d\n", s.Interrupted)
	}
	fmt.Fprintf(w, "Checks:            %.2f%% ✓ %d ✗ %d\n", s.ChecksRate()*100, s.CheckPasses, s.CheckFails)

	if len(s.Checks) > 0 {
		names := make([]string, 0, len(s.Checks))
		for name := range s.Checks {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			c := s.Checks[name]
			fmt.Fprintf(w, "  %s: ✓ %d ✗ %d\n", name, c.Passes, c.Fails)
		}
	}

	fmt.Fprintln(w, "\nLatency (ms):")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "\tavg\tmin\tmed\tmax\tp(90)\tp(95)\tp(99)\tp(99.9)\tcount\t")
	for _, op := range s.Operations() {
		writeTrendRow(tw, op, s.Trends[op])
	}
	if len(s.Trends) > 1 {
		writeTrendRow(tw, "http_req_duration", s.Overall)
	}
	_ = tw.Flush()

	if len(s.Scenarios) > 0 {
		fmt.Fprintln(w, "\nScenarios:")
		for _, sc := range s.Scenarios {
			fmt.Fprintf(
				w,
				"  - %s: scheduled=%d, started=%d, completed=%d, failed=%d, dropped=%d, interrupted=%d, peak_workers=%d\n",
				sc.Name,
				sc.Scheduled,
				sc.Started,
				sc.Completed,
				sc.Failed,
				sc.Dropped,
				sc.Interrupted,
				sc.PeakWorkers,
			)
		}
	}

	if len(s.StatusBuckets) > 0 {
		fmt.Fprintln(w, "\nStatus Buckets:")
		for _, row := range metrics.FlattenStatusBuckets(s.StatusBuckets) {
			fmt.Fprintf(w, "  %s %s: %d\n", row.Operation, row.Code, row.Count)
		}
	}

	if len(s.Thresholds) > 0 {
		fmt.Fprintln(w, "\nThresholds:")
		for _, t := range s.Thresholds {
			mark := "✓"
			if !t.Pass {
				mark = "✗"
			}
			fmt.Fprintf(w, "  %s %s (actual %.2f)\n", mark, t.Threshold, t.Actual)
		}
	}
}

func writeTrendRow(w io.Writer, name string, t Trend) {
	fmt.Fprintf(w, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%d\t\n",
		name, t.Avg, t.Min, t.Med, t.Max, t.P90, t.P95, t.P99, t.P999, t.Count)
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, s Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// WriteJSONFile writes the JSON report to path.
func WriteJSONFile(path string, s Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := PrintJSONReport(f, s); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// WriteHTMLFile writes the HTML report to path.
func WriteHTMLFile(path string, s Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := GenerateHTMLReport(f, s); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
