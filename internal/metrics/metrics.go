// Package metrics counts what a run detected and annotated, for export to
// a Prometheus node-exporter textfile.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hyperifyio/papercheck/internal/annotate"
	"github.com/hyperifyio/papercheck/internal/report"
)

// Recorder owns a private registry so that runs never share counters.
type Recorder struct {
	reg *prometheus.Registry

	checks       *prometheus.CounterVec
	comments     prometheus.Counter
	locateMisses *prometheus.CounterVec
	moduleErrors *prometheus.CounterVec
	runDuration  prometheus.Histogram
}

// New registers the papercheck metrics on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		checks: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papercheck_checks_total",
				Help: "Checks evaluated, by module and result",
			},
			[]string{"module", "result"},
		),
		comments: f.NewCounter(prometheus.CounterOpts{
			Name: "papercheck_comments_total",
			Help: "Comments written into annotated copies",
		}),
		locateMisses: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papercheck_locate_miss_total",
				Help: "Issues dropped because no paragraph matched, by locator method",
			},
			[]string{"method"},
		),
		moduleErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papercheck_module_errors_total",
				Help: "Detection modules that failed to run",
			},
			[]string{"module"},
		),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "papercheck_run_duration_seconds",
			Help:    "Wall time of a full check run",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
	}
}

// ObserveResults counts every check of results and every errored module.
func (r *Recorder) ObserveResults(results report.Results) {
	for _, rep := range results {
		if rep.Error {
			r.moduleErrors.WithLabelValues(rep.Module).Inc()
			continue
		}
		// Touch both series so a clean run still exports a zero fail count.
		pass := r.checks.WithLabelValues(rep.Module, "pass")
		fail := r.checks.WithLabelValues(rep.Module, "fail")
		rep.AllChecks(func(_, _ string, res report.CheckResult) {
			if res.OK {
				pass.Inc()
			} else {
				fail.Inc()
			}
		})
	}
}

// ObserveAnnotation counts written comments and localization misses.
func (r *Recorder) ObserveAnnotation(out annotate.Outcome) {
	r.comments.Add(float64(out.Comments))
	for _, is := range out.Dropped {
		r.locateMisses.WithLabelValues(is.Locate.Method.String()).Inc()
	}
}

// ObserveDuration records the wall time of one run.
func (r *Recorder) ObserveDuration(d time.Duration) {
	r.runDuration.Observe(d.Seconds())
}

// Gatherer exposes the registry.
func (r *Recorder) Gatherer() prometheus.Gatherer { return r.reg }

// WriteTextfile writes the metrics in the text exposition format. The file
// is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
