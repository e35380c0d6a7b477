// Package dashboard renders a live terminal view of a running load test.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/torosent/packstorm/internal/metrics"
	"github.com/torosent/packstorm/internal/output"
	"github.com/torosent/packstorm/internal/runner"
)

// RunInfo holds the run parameters shown in the header.
type RunInfo struct {
	BaseURL    string
	Scenarios  []ScenarioInfo
	ConfigFile string
}

// ScenarioInfo describes one scenario's executor settings.
type ScenarioInfo struct {
	Name       string
	Rate       int
	TimeUnit   time.Duration
	MaxWorkers int
	Duration   time.Duration
}

// ScenarioState is the live scheduler view of one scenario.
type ScenarioState struct {
	Name  string
	Stats runner.Stats
}

// Snapshot is everything the dashboard draws on one tick.
type Snapshot struct {
	Summary   output.Summary
	Scenarios []ScenarioState
	Pool      map[string]int
}

// SnapshotFunc produces the current Snapshot. It is called from the render loop.
type SnapshotFunc func() Snapshot

const historySize = 100

// Dashboard renders a live terminal UI for load test metrics.
type Dashboard struct {
	source       SnapshotFunc
	info         RunInfo
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	grid          *ui.Grid
	rpsSparkline  *widgets.SparklineGroup
	latencyPara   *widgets.Paragraph
	rpsGauge      *widgets.Gauge
	statusList    *widgets.List
	operationList *widgets.List
	summaryPara   *widgets.Paragraph
	metricsPara   *widgets.Paragraph
	scenarioPara  *widgets.Paragraph

	rpsHistory   []float64
	lastRequests int64
	lastTick     time.Time
	startTime    time.Time
}

// New initializes the terminal and builds the widgets. shutdownFunc runs when
// the user presses q or Ctrl+C.
func New(source SnapshotFunc, info RunInfo, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	d := &Dashboard{
		source:       source,
		info:         info,
		ctx:          ctx,
		cancel:       cancel,
		shutdownFunc: shutdownFunc,
		rpsHistory:   make([]float64, 0, historySize),
		startTime:    now,
		lastTick:     now,
	}

	d.initWidgets()
	d.setupGrid()
	return d, nil
}

func (d *Dashboard) initWidgets() {
	sparkline := widgets.NewSparkline()
	sparkline.Title = "Requests/s"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}

	d.rpsSparkline = widgets.NewSparklineGroup(sparkline)
	d.rpsSparkline.Title = "Throughput"
	d.rpsSparkline.BorderStyle.Fg = ui.ColorCyan

	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Latency (all operations)"
	d.latencyPara.Text = "Waiting for data..."
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	d.rpsGauge = widgets.NewGauge()
	d.rpsGauge.Title = "Check Pass Rate"
	d.rpsGauge.BarColor = ui.ColorBlue
	d.rpsGauge.BorderStyle.Fg = ui.ColorCyan
	d.rpsGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.statusList = widgets.NewList()
	d.statusList.Title = "Status Buckets"
	d.statusList.Rows = []string{"Awaiting data"}
	d.statusList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.statusList.BorderStyle.Fg = ui.ColorCyan

	d.operationList = widgets.NewList()
	d.operationList.Title = "Operations"
	d.operationList.Rows = []string{"Awaiting data"}
	d.operationList.TextStyle = ui.NewStyle(ui.ColorCyan)
	d.operationList.BorderStyle.Fg = ui.ColorCyan

	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "packstorm"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.metricsPara = widgets.NewParagraph()
	d.metricsPara.Title = "Metrics"
	d.metricsPara.Text = "Waiting for data..."
	d.metricsPara.BorderStyle.Fg = ui.ColorCyan

	d.scenarioPara = widgets.NewParagraph()
	d.scenarioPara.Title = "Scenarios"
	d.scenarioPara.Text = "Starting..."
	d.scenarioPara.TextStyle = ui.NewStyle(ui.ColorGreen)
	d.scenarioPara.BorderStyle.Fg = ui.ColorCyan
}

func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)
	d.grid.Set(
		ui.NewRow(0.14,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.18,
			ui.NewCol(0.5, d.rpsGauge),
			ui.NewCol(0.5, d.metricsPara),
		),
		ui.NewRow(0.24,
			ui.NewCol(0.65, d.rpsSparkline),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.16,
			ui.NewCol(1.0, d.scenarioPara),
		),
		ui.NewRow(0.28,
			ui.NewCol(0.6, d.operationList),
			ui.NewCol(0.4, d.statusList),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and restores the terminal.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()
	d.render()

	for {
		select {
		case <-d.ctx.Done():
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			select {
			case <-d.ctx.Done():
				return
			default:
			}
			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Stop() ends the loop once the run has drained.
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

func (d *Dashboard) update() {
	snap := d.source()

	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(d.startTime)
	s := snap.Summary

	if dt := now.Sub(d.lastTick).Seconds(); dt > 0 {
		rps := float64(s.Requests-d.lastRequests) / dt
		d.rpsHistory = appendHistory(d.rpsHistory, rps)
		d.rpsSparkline.Sparklines[0].Data = d.rpsHistory
		d.rpsSparkline.Title = fmt.Sprintf("Throughput | Current: %.1f req/s | Average: %.1f req/s", rps, s.RequestsPerSec)
	}
	d.lastRequests = s.Requests
	d.lastTick = now

	passRate := s.ChecksRate() * 100
	d.rpsGauge.Percent = clampPercent(passRate)
	d.rpsGauge.Label = fmt.Sprintf("%.1f%% (✓ %d ✗ %d)", passRate, s.CheckPasses, s.CheckFails)

	d.summaryPara.Text = fmt.Sprintf("Target: %s\n%s\nElapsed: %s | Requests: %d | Press q to stop",
		d.info.BaseURL,
		formatRunInfo(d.info),
		elapsed.Round(time.Second),
		s.Requests,
	)

	d.metricsPara.Text = fmt.Sprintf(
		"Requests:          %d\nRequests/sec:      %.2f\nIterations:        %d\nDropped:           %d\nChecks passed:     %d\nChecks failed:     %d",
		s.Requests,
		s.RequestsPerSec,
		s.Iterations,
		s.Dropped,
		s.CheckPasses,
		s.CheckFails,
	)

	o := s.Overall
	d.latencyPara.Text = fmt.Sprintf(
		"Min:  %.2fms\nAvg:  %.2fms\nMed:  %.2fms\nP95:  %.2fms\nP99:  %.2fms\nMax:  %.2fms",
		o.Min, o.Avg, o.Med, o.P95, o.P99, o.Max,
	)

	d.scenarioPara.Text = formatScenarioLines(snap.Scenarios, snap.Pool)
	d.operationList.Rows = formatOperationRows(s)
	d.statusList.Rows = formatStatusListRows(s.StatusBuckets)
}

func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()
	ui.Render(d.grid)
}

func appendHistory(history []float64, v float64) []float64 {
	history = append(history, v)
	if len(history) > historySize {
		history = history[len(history)-historySize:]
	}
	return history
}

func clampPercent(p float64) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return int(p)
	}
}

func formatOperationRows(s output.Summary) []string {
	ops := s.Operations()
	if len(ops) == 0 {
		return []string{"[No requests yet](fg:green)"}
	}
	sort.SliceStable(ops, func(i, j int) bool {
		return s.Trends[ops[i]].Count > s.Trends[ops[j]].Count
	})
	rows := make([]string, 0, len(ops))
	for _, op := range ops {
		t := s.Trends[op]
		share := 0.0
		if s.Requests > 0 {
			share = float64(t.Count) / float64(s.Requests) * 100
		}
		rows = append(rows, fmt.Sprintf("[%s](fg:cyan) | %5.1f%% | n %d | avg %6.1fms | p95 %6.1fms | p99 %6.1fms",
			op, share, t.Count, t.Avg, t.P95, t.P99))
	}
	return rows
}

func formatStatusListRows(buckets map[string]map[string]int) []string {
	rows := metrics.FlattenStatusBuckets(buckets)
	if len(rows) == 0 {
		return []string{"[No responses yet](fg:green)"}
	}
	if len(rows) > 10 {
		rows = rows[:10]
	}
	formatted := make([]string, 0, len(rows))
	for _, row := range rows {
		color := "green"
		if !strings.HasPrefix(row.Code, "2") {
			color = "red"
		}
		formatted = append(formatted, fmt.Sprintf("[%s %s](fg:%s) %d", row.Operation, row.Code, color, row.Count))
	}
	return formatted
}

func formatScenarioLines(states []ScenarioState, pool map[string]int) string {
	if len(states) == 0 {
		return "No scenarios running"
	}
	lines := make([]string, 0, len(states)+1)
	for _, st := range states {
		lines = append(lines, fmt.Sprintf("[%s:](fg:cyan,mod:bold) %s | workers %d (active %d) | started %d | completed %d | failed %d | dropped %d",
			st.Name,
			st.Stats.Phase,
			st.Stats.Workers,
			st.Stats.Active,
			st.Stats.Started,
			st.Stats.Completed,
			st.Stats.Failed,
			st.Stats.Dropped,
		))
	}
	if len(pool) > 0 {
		stages := make([]string, 0, len(pool))
		for stage := range pool {
			stages = append(stages, stage)
		}
		sort.Strings(stages)
		parts := make([]string, 0, len(stages))
		for _, stage := range stages {
			parts = append(parts, fmt.Sprintf("%s=%d", stage, pool[stage]))
		}
		lines = append(lines, "[pool:](fg:white) "+strings.Join(parts, " "))
	}
	return strings.Join(lines, "\n")
}

func formatRunInfo(info RunInfo) string {
	parts := make([]string, 0, len(info.Scenarios)+1)
	for _, sc := range info.Scenarios {
		part := fmt.Sprintf("%s: %d/%s, max %d workers", sc.Name, sc.Rate, sc.TimeUnit, sc.MaxWorkers)
		if sc.Duration > 0 {
			part += fmt.Sprintf(", %s", sc.Duration)
		}
		parts = append(parts, part)
	}
	if info.ConfigFile != "" {
		parts = append(parts, fmt.Sprintf("Config: %s", info.ConfigFile))
	}
	return strings.Join(parts, " | ")
}
