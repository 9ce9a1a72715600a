package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Recorder collects pipeline metrics on its own registry. A nil *Recorder
// records nothing.
type Recorder struct {
	registry       *prometheus.Registry
	fetches        *prometheus.CounterVec
	llmFallbacks   *prometheus.CounterVec
	tickerDuration *prometheus.HistogramVec
	rankDropped    prometheus.Counter
	runs           *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		fetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpilot_capability_fetches_total",
				Help: "Upstream capability fetches by outcome",
			},
			[]string{"capability", "status"},
		),
		llmFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpilot_llm_fallbacks_total",
				Help: "Deterministic fallbacks used instead of model output",
			},
			[]string{"operation"},
		),
		tickerDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stockpilot_ticker_pipeline_duration_seconds",
				Help:    "Duration of per-ticker pipeline stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		rankDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "stockpilot_ranking_dropped_total",
				Help: "Tickers dropped from ranked output after a scoring error",
			},
		),
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stockpilot_runs_total",
				Help: "Orchestrator runs by outcome",
			},
			[]string{"status"},
		),
	}
}

func (r *Recorder) RecordFetch(capability string, err error) {
	if r == nil {
		return
	}
	status := StatusOK
	if err != nil {
		status = StatusFailed
	}
	r.fetches.WithLabelValues(capability, status).Inc()
}

func (r *Recorder) RecordFallback(operation string) {
	if r == nil {
		return
	}
	r.llmFallbacks.WithLabelValues(operation).Inc()
}

// RecordDuration records stage latency in seconds.
func (r *Recorder) RecordDuration(stage string, seconds float64) {
	if r == nil {
		return
	}
	r.tickerDuration.WithLabelValues(stage).Observe(seconds)
}

func (r *Recorder) RecordRankingDropped() {
	if r == nil {
		return
	}
	r.rankDropped.Inc()
}

func (r *Recorder) RecordRun(err error) {
	if r == nil {
		return
	}
	status := StatusOK
	if err != nil {
		status = StatusFailed
	}
	r.runs.WithLabelValues(status).Inc()
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the recorder's registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
