// Package promexport exposes live run metrics in the Prometheus text format.
package promexport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const namespace = "packstorm"

// PoolSizes reports the current length of each identifier queue.
type PoolSizes func() map[string]int

// Exporter owns a private registry so several runs can coexist in tests.
// It implements metrics.Recorder.
type Exporter struct {
	registry   *prometheus.Registry
	duration   *prometheus.HistogramVec
	dropped    *prometheus.CounterVec
	iterations *prometheus.CounterVec
	checks     *prometheus.CounterVec
}

func New() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Latency of pack API calls by operation metric name.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15),
		}, []string{"operation"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_iterations_total",
			Help:      "Iteration starts dropped because every worker was busy.",
		}, []string{"scenario"}),
		iterations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "iterations_total",
			Help:      "Finished iterations by scenario and result.",
		}, []string{"scenario", "result"}),
		checks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checks_total",
			Help:      "Status checks by name and result.",
		}, []string{"check", "result"}),
	}
	e.registry.MustRegister(e.duration, e.dropped, e.iterations, e.checks)
	return e
}

// Record observes one request latency.
func (e *Exporter) Record(operation string, d time.Duration) {
	e.duration.WithLabelValues(operation).Observe(d.Seconds())
}

// Dropped adds n dropped iteration starts for scenario.
func (e *Exporter) Dropped(scenario string, n int64) {
	if n > 0 {
		e.dropped.WithLabelValues(scenario).Add(float64(n))
	}
}

// Iteration counts one finished iteration.
func (e *Exporter) Iteration(scenario string, failed bool) {
	result := "ok"
	if failed {
		result = "failed"
	}
	e.iterations.WithLabelValues(scenario, result).Inc()
}

// Check counts one check outcome.
func (e *Exporter) Check(name string, ok bool) {
	result := "pass"
	if !ok {
		result = "fail"
	}
	e.checks.WithLabelValues(name, result).Inc()
}

// WatchPool exports the identifier queue lengths as a gauge read at scrape time.
func (e *Exporter) WatchPool(sizes PoolSizes) error {
	return e.registry.Register(&poolCollector{sizes: sizes, desc: prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "pool_identifiers"),
		"Pack identifiers waiting in each lifecycle stage.",
		[]string{"stage"}, nil,
	)})
}

// Handler serves the registry.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{Registry: e.registry})
}

// Serve listens on addr until ctx is done.
func (e *Exporter) Serve(ctx context.Context, addr string, logger zerolog.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", ln.Addr().String()).Msg("serving prometheus metrics")
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type poolCollector struct {
	sizes PoolSizes
	desc  *prometheus.Desc
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) { ch <- c.desc }

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	for stage, n := range c.sizes() {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(n), stage)
	}
}
