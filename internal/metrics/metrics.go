// Package metrics records scoring outcomes as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JaimeStill/linkguard/internal/features"
	"github.com/JaimeStill/linkguard/internal/scoring"
)

const namespace = "linkguard"

// Recorder implements scoring.Observer over a private registry.
type Recorder struct {
	registry   *prometheus.Registry
	detections *prometheus.CounterVec
	score      prometheus.Histogram
	mlFailures *prometheus.CounterVec
	probes     *prometheus.CounterVec
}

// New creates a Recorder with its collectors registered, along with the
// Go runtime and process collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Scored artifacts by type and status.",
		}, []string{"type", "status"}),
		score: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "detection_score",
			Help:      "Distribution of risk scores.",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}),
		mlFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ml_failures_total",
			Help:      "Classifier failures by artifact type.",
		}, []string{"type"}),
		probes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_signals_total",
			Help:      "Network probe signals by signal and state.",
		}, []string{"signal", "state"}),
	}

	r.registry.MustRegister(
		r.detections,
		r.score,
		r.mlFailures,
		r.probes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) ObserveRecord(rec *scoring.Record) {
	if rec == nil {
		return
	}
	r.detections.WithLabelValues(string(rec.Type), string(rec.Status)).Inc()
	r.score.Observe(float64(rec.Score))
}

func (r *Recorder) ObserveMLFailure(kind features.Kind) {
	r.mlFailures.WithLabelValues(string(kind)).Inc()
}

func (r *Recorder) ObserveProbes(report features.Report) {
	r.probes.WithLabelValues("reachable", string(report.Reachable.State)).Inc()
	r.probes.WithLabelValues("redirects", string(report.Redirects.State)).Inc()
	r.probes.WithLabelValues("tls_valid", string(report.TLSValid.State)).Inc()
	r.probes.WithLabelValues("domain_age", string(report.DomainAgeDays.State)).Inc()
}
