// Package metrics records engine activity in Prometheus
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the Prometheus collectors for the rate engine
type Recorder struct {
	resolutions     *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	providerCalls   *prometheus.CounterVec
	batchItems      *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewRecorder registers the collectors with reg. A nil reg uses the default registerer.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fx_rate_resolutions_total",
				Help: "Rate resolutions by the tier that answered, or unavailable",
			},
			[]string{"tier"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fx_rate_cache_lookups_total",
				Help: "Rate cache lookups by result",
			},
			[]string{"result"},
		),
		providerCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fx_provider_calls_total",
				Help: "External rate provider calls by outcome",
			},
			[]string{"provider", "outcome"},
		),
		batchItems: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fx_batch_items_total",
				Help: "Batch optimization items by outcome",
			},
			[]string{"outcome"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fx_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
	}
}

// RecordResolution counts a resolution answered by tier
func (r *Recorder) RecordResolution(tier string) {
	if r == nil {
		return
	}
	r.resolutions.WithLabelValues(tier).Inc()
}

// RecordCacheLookup counts a cache hit or miss
func (r *Recorder) RecordCacheLookup(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// RecordProviderCall counts a provider call outcome ("ok", "error", "timeout", "malformed")
func (r *Recorder) RecordProviderCall(provider, outcome string) {
	if r == nil {
		return
	}
	r.providerCalls.WithLabelValues(provider, outcome).Inc()
}

// RecordBatchItem counts a batch item as succeeded or failed
func (r *Recorder) RecordBatchItem(succeeded bool) {
	if r == nil {
		return
	}
	outcome := "failed"
	if succeeded {
		outcome = "succeeded"
	}
	r.batchItems.WithLabelValues(outcome).Inc()
}

// ObserveRequest records an HTTP request duration
func (r *Recorder) ObserveRequest(method, route, status string, seconds float64) {
	if r == nil {
		return
	}
	r.requestDuration.WithLabelValues(method, route, status).Observe(seconds)
}
