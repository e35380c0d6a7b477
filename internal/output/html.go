package output

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/torosent/packstorm/internal/metrics"
)

type htmlReportData struct {
	GeneratedAt string
	Summary     Summary
	Operations  []string
	Statuses    []metrics.StatusBucket
	Passed      int
}

// GenerateHTMLReport writes a standalone HTML report.
func GenerateHTMLReport(w io.Writer, s Summary) error {
	data := htmlReportData{
		GeneratedAt: time.Now().Format(time.RFC3339),
		Summary:     s,
		Operations:  s.Operations(),
		Statuses:    metrics.FlattenStatusBuckets(s.StatusBuckets),
	}
	for _, t := range s.Thresholds {
		if t.Pass {
			data.Passed++
		}
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"formatDuration": func(d time.Duration) string {
			return d.Round(time.Millisecond).String()
		},
		"formatFloat": func(f float64) string {
			return fmt.Sprintf("%.2f", f)
		},
		"formatPercent": func(part, total int64) string {
			if total == 0 {
				return "0.0"
			}
			return fmt.Sprintf("%.1f", (float64(part)/float64(total))*100)
		},
		"add": func(a, b int64) int64 { return a + b },
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>packstorm Load Test Report</title>
    <style>
        * {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: #f5f7fa;
            color: #2c3e50;
            line-height: 1.6;
            padding: 20px;
        }
        .container {
            max-width: 1400px;
            margin: 0 auto;
            background: white;
            border-radius: 8px;
            box-shadow: 0 2px 8px rgba(0,0,0,0.1);
            overflow: hidden;
        }
        header {
            background: linear-gradient(135deg, #0f766e 0%, #1e3a8a 100%);
            color: white;
            padding: 30px 40px;
        }
        header h1 {
            font-size: 2rem;
            margin-bottom: 10px;
        }
        header .meta {
            opacity: 0.9;
            font-size: 0.9rem;
        }
        .content {
            padding: 40px;
        }
        .grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(250px, 1fr));
            gap: 20px;
            margin-bottom: 40px;
        }
        .card {
            background: #f8f9fa;
            border-radius: 8px;
            padding: 20px;
            border-left: 4px solid #0f766e;
        }
        .card h3 {
            font-size: 0.9rem;
            color: #6c757d;
            text-transform: uppercase;
            letter-spacing: 0.5px;
            margin-bottom: 10px;
        }
        .card .value {
            font-size: 2rem;
            font-weight: bold;
            color: #2c3e50;
        }
        .card .subvalue {
            font-size: 0.85rem;
            color: #6c757d;
            margin-top: 5px;
        }
        .card.success {
            border-left-color: #10b981;
        }
        .card.error {
            border-left-color: #ef4444;
        }
        .card.warning {
            border-left-color: #f59e0b;
        }
        .section {
            margin-bottom: 40px;
        }
        .section h2 {
            font-size: 1.5rem;
            margin-bottom: 20px;
            padding-bottom: 10px;
            border-bottom: 2px solid #e5e7eb;
        }
        table {
            width: 100%;
            border-collapse: collapse;
            background: white;
        }
        th, td {
            text-align: left;
            padding: 12px;
            border-bottom: 1px solid #e5e7eb;
        }
        th {
            background: #f8f9fa;
            font-weight: 600;
            color: #4b5563;
            font-size: 0.9rem;
            text-transform: uppercase;
            letter-spacing: 0.5px;
        }
        tr:hover {
            background: #f8f9fa;
        }
        .badge {
            display: inline-block;
            padding: 4px 12px;
            border-radius: 12px;
            font-size: 0.85rem;
            font-weight: 600;
        }
        .badge-success {
            background: #d1fae5;
            color: #065f46;
        }
        .badge-error {
            background: #fee2e2;
            color: #991b1b;
        }
        .latency-grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(150px, 1fr));
            gap: 15px;
            margin-top: 20px;
        }
        .latency-item {
            background: #f8f9fa;
            padding: 15px;
            border-radius: 6px;
            text-align: center;
        }
        .latency-item .label {
            font-size: 0.85rem;
            color: #6c757d;
            margin-bottom: 5px;
        }
        .latency-item .value {
            font-size: 1.3rem;
            font-weight: bold;
            color: #2c3e50;
        }
        .no-data {
            text-align: center;
            padding: 40px;
            color: #6c757d;
            font-style: italic;
        }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>packstorm Load Test Report</h1>
            {{with .Summary.BaseURL}}<div class="meta" style="margin-top: 5px;">Target: {{.}}</div>{{end}}
            <div class="meta">Run {{.Summary.RunID}} | Generated: {{.GeneratedAt}} | Duration: {{formatDuration .Summary.Duration}}</div>
        </header>

        <div class="content">
            <div class="grid">
                <div class="card">
                    <h3>Requests</h3>
                    <div class="value">{{.Summary.Requests}}</div>
                    <div class="subvalue">{{formatFloat .Summary.RequestsPerSec}}/s</div>
                </div>
                <div class="card">
                    <h3>Iterations</h3>
                    <div class="value">{{.Summary.Iterations}}</div>
                    <div class="subvalue">{{formatFloat .Summary.IterationRate}}/s</div>
                </div>
                <div class="card success">
                    <h3>Checks Passed</h3>
                    <div class="value">{{.Summary.CheckPasses}}</div>
                    <div class="subvalue">{{formatPercent .Summary.CheckPasses (add .Summary.CheckPasses .Summary.CheckFails)}}%</div>
                </div>
                <div class="card error">
                    <h3>Checks Failed</h3>
                    <div class="value">{{.Summary.CheckFails}}</div>
                </div>
                <div class="card warning">
                    <h3>Dropped Iterations</h3>
                    <div class="value">{{.Summary.Dropped}}</div>
                    {{if .Summary.Interrupted}}<div class="subvalue">{{.Summary.Interrupted}} interrupted</div>{{end}}
                </div>
            </div>

            <div class="section">
                <h2>Latency (ms)</h2>
                {{if .Operations}}
                <table>
                    <thead>
                        <tr>
                            <th>Operation</th><th>avg</th><th>min</th><th>med</th><th>max</th>
                            <th>p(90)</th><th>p(95)</th><th>p(99)</th><th>p(99.9)</th><th>count</th>
                        </tr>
                    </thead>
                    <tbody>
                        {{range .Operations}}
                        {{$t := index $.Summary.Trends .}}
                        <tr>
                            <td><strong>{{.}}</strong></td>
                            <td>{{formatFloat $t.Avg}}</td><td>{{formatFloat $t.Min}}</td><td>{{formatFloat $t.Med}}</td>
                            <td>{{formatFloat $t.Max}}</td><td>{{formatFloat $t.P90}}</td><td>{{formatFloat $t.P95}}</td>
                            <td>{{formatFloat $t.P99}}</td><td>{{formatFloat $t.P999}}</td><td>{{$t.Count}}</td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
                {{else}}
                <div class="no-data">No requests were recorded.</div>
                {{end}}
            </div>

            {{if .Summary.Thresholds}}
            <div class="section">
                <h2>Thresholds ({{.Passed}}/{{len .Summary.Thresholds}} Passed)</h2>
                <table>
                    <thead>
                        <tr><th>Threshold</th><th>Metric</th><th>Expected</th><th>Actual</th><th>Status</th></tr>
                    </thead>
                    <tbody>
                        {{range .Summary.Thresholds}}
                        <tr>
                            <td>{{.Threshold}}</td>
                            <td>{{.Metric}} ({{.Aggregate}})</td>
                            <td>{{.Operator}} {{formatFloat .Expected}}</td>
                            <td>{{formatFloat .Actual}}</td>
                            <td>{{if .Pass}}<span class="badge badge-success">PASS</span>{{else}}<span class="badge badge-error">FAIL</span>{{end}}</td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}

            {{if .Summary.Checks}}
            <div class="section">
                <h2>Checks</h2>
                <table>
                    <thead><tr><th>Check</th><th>Passes</th><th>Fails</th></tr></thead>
                    <tbody>
                        {{range $name, $c := .Summary.Checks}}
                        <tr><td>{{$name}}</td><td>{{$c.Passes}}</td><td>{{$c.Fails}}</td></tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}

            {{if .Summary.Scenarios}}
            <div class="section">
                <h2>Scenarios</h2>
                <table>
                    <thead>
                        <tr>
                            <th>Scenario</th><th>Scheduled</th><th>Started</th><th>Completed</th>
                            <th>Failed</th><th>Dropped</th><th>Interrupted</th><th>Peak Workers</th>
                        </tr>
                    </thead>
                    <tbody>
                        {{range .Summary.Scenarios}}
                        <tr>
                            <td><strong>{{.Name}}</strong></td><td>{{.Scheduled}}</td><td>{{.Started}}</td><td>{{.Completed}}</td>
                            <td>{{.Failed}}</td><td>{{.Dropped}}</td><td>{{.Interrupted}}</td><td>{{.PeakWorkers}}</td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}

            {{if .Statuses}}
            <div class="section">
                <h2>Status Buckets</h2>
                <table>
                    <thead><tr><th>Operation</th><th>Status</th><th>Count</th></tr></thead>
                    <tbody>
                        {{range .Statuses}}
                        <tr><td>{{.Operation}}</td><td>{{.Code}}</td><td>{{.Count}}</td></tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}
        </div>
    </div>
</body>
</html>
`
