// Package metrics records pagination and cache activity with prometheus.
//
// Each Recorder owns its registry so that several instances (tests, the TUI
// and murmurd in one process) never collide on registration. A nil *Recorder
// is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultHit     = "hit"
	ResultMiss    = "miss"
	ResultSkipped = "skipped"
)

// Recorder holds the collectors for one process
type Recorder struct {
	registry *prometheus.Registry

	PageFetches    *prometheus.CounterVec
	PageFetchTime  prometheus.Histogram
	Hydrations     *prometheus.CounterVec
	SnapshotWrites *prometheus.CounterVec
	LoadedItems    prometheus.Gauge
	ServedPages    *prometheus.CounterVec
}

// NewRecorder creates a Recorder with a fresh registry.
// withRuntime adds the Go runtime and process collectors.
func NewRecorder(withRuntime bool) *Recorder {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		PageFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "murmur_page_fetches_total",
			Help: "Total number of page fetch attempts by result",
		}, []string{"result"}), // "ok", "error", "skipped"

		PageFetchTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "murmur_page_fetch_seconds",
			Help:    "Duration of page fetches",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),

		Hydrations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "murmur_hydrations_total",
			Help: "Total number of snapshot hydrations by result",
		}, []string{"result"}), // "hit", "miss"

		SnapshotWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "murmur_snapshot_writes_total",
			Help: "Total number of snapshot writes by result",
		}, []string{"result"}), // "ok", "error"

		LoadedItems: factory.NewGauge(prometheus.GaugeOpts{
			Name: "murmur_loaded_items",
			Help: "Number of comments currently held by the list",
		}),

		ServedPages: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "murmurd_pages_served_total",
			Help: "Total number of comment pages served by murmurd by result",
		}, []string{"result"}),
	}
}

// Registry exposes the underlying registry (for tests and custom exposition)
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the prometheus text format
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveFetch records one completed fetch
func (r *Recorder) ObserveFetch(d time.Duration, err error) {
	if r == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	r.PageFetches.WithLabelValues(result).Inc()
	r.PageFetchTime.Observe(d.Seconds())
}

// SkippedFetch records a load request that was ignored by the guard
func (r *Recorder) SkippedFetch() {
	if r == nil {
		return
	}
	r.PageFetches.WithLabelValues(ResultSkipped).Inc()
}

// ObserveHydration records a snapshot hit or miss
func (r *Recorder) ObserveHydration(hit bool) {
	if r == nil {
		return
	}
	result := ResultMiss
	if hit {
		result = ResultHit
	}
	r.Hydrations.WithLabelValues(result).Inc()
}

// ObserveWrite records a snapshot write outcome
func (r *Recorder) ObserveWrite(err error) {
	if r == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	r.SnapshotWrites.WithLabelValues(result).Inc()
}

// SetLoaded records the current item count
func (r *Recorder) SetLoaded(n int) {
	if r == nil {
		return
	}
	r.LoadedItems.Set(float64(n))
}

// ObserveServed records a page served by murmurd
func (r *Recorder) ObserveServed(err error) {
	if r == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	r.ServedPages.WithLabelValues(result).Inc()
}
