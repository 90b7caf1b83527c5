package metrics

import (
	"net/http"
	"time"

	"event-catalog/core/catalog"
	"event-catalog/core/reconcile"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "event_catalog"

// Recorder exports reconciliation metrics. It implements reconcile.Observer.
type Recorder struct {
	registry *prometheus.Registry

	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
	lastSuccessTS prometheus.Gauge
	observed      prometheus.Gauge
	sourceRecords *prometheus.GaugeVec
	sourceErrors  *prometheus.CounterVec
	dropped       *prometheus.CounterVec
	failed        *prometheus.CounterVec
	upserts       *prometheus.CounterVec
	retired       prometheus.Counter
}

var _ reconcile.Observer = (*Recorder)(nil)

// New creates a recorder on its own registry, including Go and process collectors.
func New() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Reconciliation runs by result",
	}, []string{"result"})
	r.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time of reconciliation runs",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})
	r.lastSuccessTS = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp of the last successful run",
	})
	r.observed = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_observed_records",
		Help:      "Raw records observed by the last successful run",
	})
	r.sourceRecords = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "source_records",
		Help:      "Records returned by each source in the last run",
	}, []string{"source"})
	r.sourceErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "source_errors_total",
		Help:      "Failed source fetches",
	}, []string{"source"})
	r.dropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_dropped_total",
		Help:      "Records rejected by validation",
	}, []string{"source"})
	r.failed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_failed_total",
		Help:      "Records skipped after a persistence error",
	}, []string{"source"})
	r.upserts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upserts_total",
		Help:      "Applied records by resulting status and operation",
	}, []string{"status", "op"})
	r.retired = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_retired_total",
		Help:      "Events marked inactive by the sweeper",
	})

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.runs, r.runDuration, r.lastSuccessTS, r.observed,
		r.sourceRecords, r.sourceErrors, r.dropped, r.failed,
		r.upserts, r.retired,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// RecordDropped implements reconcile.Observer.
func (r *Recorder) RecordDropped(source string) {
	r.dropped.WithLabelValues(label(source)).Inc()
}

// RecordFailed implements reconcile.Observer.
func (r *Recorder) RecordFailed(source string) {
	r.failed.WithLabelValues(label(source)).Inc()
}

// RecordUpserted implements reconcile.Observer.
func (r *Recorder) RecordUpserted(status catalog.Status, created bool) {
	op := "update"
	if created {
		op = "create"
	}
	r.upserts.WithLabelValues(string(status), op).Inc()
}

// RunFinished implements reconcile.Observer.
func (r *Recorder) RunFinished(s *reconcile.Summary, err error, elapsed time.Duration) {
	r.runDuration.Observe(elapsed.Seconds())
	if err != nil || s == nil {
		r.runs.WithLabelValues("error").Inc()
		return
	}
	r.runs.WithLabelValues("ok").Inc()
	r.lastSuccessTS.Set(float64(s.FinishedAt.Unix()))
	r.observed.Set(float64(s.TotalObserved))
	r.retired.Add(float64(len(s.Sweep.Retired)))
	for _, src := range s.Sources {
		r.sourceRecords.WithLabelValues(src.Name).Set(float64(src.Records))
		if src.Error != "" {
			r.sourceErrors.WithLabelValues(src.Name).Inc()
		}
	}
}

func label(source string) string {
	if source == "" {
		return "unknown"
	}
	return source
}
