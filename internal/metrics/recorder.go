// Package metrics keeps in-process request statistics and mirrors them into
// Prometheus collectors.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gyeh/codesuggest/internal/model"
)

// Named counters recorded outside the request path.
const (
	CounterLowConfidence = "low_confidence"
	CounterReloads       = "catalog:reloads"
)

// Recorder aggregates request counts, latency, named counters and the last
// catalog reload. It is safe for concurrent use.
type Recorder struct {
	mu            sync.Mutex
	totalRequests int64
	totalDuration time.Duration
	counters      map[string]int64
	lastReloadAt  *time.Time
	versions      model.Versions

	prom *promMetrics
}

type promMetrics struct {
	requests      prometheus.Counter
	duration      prometheus.Histogram
	counters      *prometheus.CounterVec
	catalogInfo   *prometheus.GaugeVec
	catalogItems  prometheus.Gauge
	catalogRules  prometheus.Gauge
	lastReloadSec prometheus.Gauge
}

// NewRecorder creates a Recorder. When reg is non-nil the Prometheus
// collectors are registered with it.
//
// Metrics:
//   - codesuggest_suggest_requests_total
//   - codesuggest_suggest_duration_seconds
//   - codesuggest_events_total{name} - pipeline flags and named counters
//   - codesuggest_catalog_info{items_version,rules_version}
//   - codesuggest_catalog_items / codesuggest_catalog_rules
//   - codesuggest_catalog_last_reload_timestamp_seconds
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		counters: make(map[string]int64),
		versions: model.Versions{Items: model.UnknownVersion, Rules: model.UnknownVersion},
	}
	if reg == nil {
		return r
	}

	f := promauto.With(reg)
	r.prom = &promMetrics{
		requests: f.NewCounter(prometheus.CounterOpts{
			Name: "codesuggest_suggest_requests_total",
			Help: "Total number of suggest requests served",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "codesuggest_suggest_duration_seconds",
			Help:    "Duration of suggest requests in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		}),
		counters: f.NewCounterVec(prometheus.CounterOpts{
			Name: "codesuggest_events_total",
			Help: "Pipeline flags and named events",
		}, []string{"name"}),
		catalogInfo: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "codesuggest_catalog_info",
			Help: "Currently loaded catalog versions",
		}, []string{"items_version", "rules_version"}),
		catalogItems: f.NewGauge(prometheus.GaugeOpts{
			Name: "codesuggest_catalog_items",
			Help: "Number of catalog items loaded",
		}),
		catalogRules: f.NewGauge(prometheus.GaugeOpts{
			Name: "codesuggest_catalog_rules",
			Help: "Number of catalog rules loaded",
		}),
		lastReloadSec: f.NewGauge(prometheus.GaugeOpts{
			Name: "codesuggest_catalog_last_reload_timestamp_seconds",
			Help: "Unix time of the last catalog reload",
		}),
	}
	return r
}

// ObserveRequest records one served request and its pipeline flags.
func (r *Recorder) ObserveRequest(d time.Duration, flags []string) {
	r.mu.Lock()
	r.totalRequests++
	r.totalDuration += d
	for _, f := range flags {
		r.counters[f]++
	}
	r.mu.Unlock()

	if r.prom != nil {
		r.prom.requests.Inc()
		r.prom.duration.Observe(d.Seconds())
		for _, f := range flags {
			r.prom.counters.WithLabelValues(f).Inc()
		}
	}
}

// Inc increments a named counter.
func (r *Recorder) Inc(name string) {
	r.mu.Lock()
	r.counters[name]++
	r.mu.Unlock()

	if r.prom != nil {
		r.prom.counters.WithLabelValues(name).Inc()
	}
}

// ObserveReload records a catalog reload.
func (r *Recorder) ObserveReload(v model.Versions, items, rules int, at time.Time) {
	r.mu.Lock()
	r.lastReloadAt = &at
	r.versions = v
	r.counters[CounterReloads]++
	r.mu.Unlock()

	if r.prom != nil {
		r.prom.counters.WithLabelValues(CounterReloads).Inc()
		r.prom.catalogInfo.Reset()
		r.prom.catalogInfo.WithLabelValues(v.Items, v.Rules).Set(1)
		r.prom.catalogItems.Set(float64(items))
		r.prom.catalogRules.Set(float64(rules))
		r.prom.lastReloadSec.Set(float64(at.Unix()))
	}
}

// Snapshot returns a copy of the current statistics.
func (r *Recorder) Snapshot() model.MetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := model.MetricsSnapshot{
		TotalRequests: r.totalRequests,
		Counters:      make(map[string]int64, len(r.counters)),
		Versions:      r.versions,
	}
	if r.totalRequests > 0 {
		s.AvgDurationMS = float64(r.totalDuration.Microseconds()) / 1000 / float64(r.totalRequests)
	}
	for k, v := range r.counters {
		s.Counters[k] = v
	}
	if r.lastReloadAt != nil {
		t := *r.lastReloadAt
		s.LastReloadAt = &t
	}
	return s
}
