// Package metrics exposes engine activity as Prometheus metrics. A Collector
// implements core.Metrics and is handed to core.NewService.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/ledgerprep/internal/core"
)

const namespace = "ledgerprep"

// Collector records pipeline, scan, reconciliation and session metrics.
type Collector struct {
	registry *prometheus.Registry

	pipelineRuns     prometheus.Counter
	pipelineDuration prometheus.Histogram
	stepWarnings     *prometheus.CounterVec
	scans            prometheus.Counter
	scanDuration     prometheus.Histogram
	issues           *prometheus.CounterVec
	reconciliations  *prometheus.CounterVec
	sessionsActive   prometheus.Gauge
	jobsRejected     prometheus.Counter
}

var _ core.Metrics = (*Collector)(nil)

// New creates a Collector on its own registry. When withRuntime is set the
// Go runtime and process collectors are registered too.
func New(withRuntime bool) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		pipelineRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Pipeline rebuilds from the baseline.",
		}),
		pipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Time spent rebuilding a table through its pipeline.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		stepWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_warnings_total",
			Help:      "Pipeline steps skipped or degraded, by warning kind.",
		}, []string{"kind"}),
		scans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Anomaly scans completed.",
		}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Time spent scanning a table.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		issues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scan_issues_total",
			Help:      "Issues flagged by anomaly scans, by kind.",
		}, []string{"kind"}),
		reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Reconciliations completed, by whether the totals tie.",
		}, []string{"verdict"}),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Open sessions.",
		}),
		jobsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_rejected_total",
			Help:      "Engine jobs rejected because the limiter stayed full.",
		}),
	}

	c.registry.MustRegister(
		c.pipelineRuns, c.pipelineDuration, c.stepWarnings,
		c.scans, c.scanDuration, c.issues,
		c.reconciliations, c.sessionsActive, c.jobsRejected,
	)
	if withRuntime {
		c.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) PipelineRun(d time.Duration, warnings []core.StepWarning) {
	c.pipelineRuns.Inc()
	c.pipelineDuration.Observe(d.Seconds())
	for _, w := range warnings {
		c.stepWarnings.WithLabelValues(string(w.Kind)).Inc()
	}
}

func (c *Collector) ScanCompleted(d time.Duration, res core.ScanResult) {
	c.scans.Inc()
	c.scanDuration.Observe(d.Seconds())

	counts := map[string]int{
		"outlier":       res.Counts.Outliers,
		"duplicate":     res.Counts.Duplicates,
		"type_mismatch": res.Counts.TypeMismatches,
		"bad_date":      res.Counts.BadDates,
		"suspicious":    res.Counts.Suspicious,
		"mostly_empty":  res.Counts.MostlyEmpty,
	}
	for kind, n := range counts {
		if n > 0 {
			c.issues.WithLabelValues(kind).Add(float64(n))
		}
	}
}

func (c *Collector) ReconcileCompleted(_ time.Duration, verdict string) {
	label := "does_not_tie"
	if verdict == core.VerdictTies {
		label = "ties"
	}
	c.reconciliations.WithLabelValues(label).Inc()
}

func (c *Collector) SessionsActive(n int) { c.sessionsActive.Set(float64(n)) }

func (c *Collector) JobRejected() { c.jobsRejected.Inc() }
