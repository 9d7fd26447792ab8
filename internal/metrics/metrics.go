// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ProviderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "urbanize_provider_requests_total",
		Help: "Upstream provider calls by provider",
	}, []string{"provider"})
	ProviderFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "urbanize_provider_fail_total",
		Help: "Upstream provider failures by provider",
	}, []string{"provider"})
	ProviderDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "urbanize_provider_duration_ms",
		Help:    "Upstream provider call duration in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	}, []string{"provider"})
	SimulatedAQITotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "urbanize_aqi_simulated_total",
		Help: "AQI readings served from the simulated fallback",
	})
	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "urbanize_cache_hits_total",
		Help: "Reading cache hits by kind",
	}, []string{"kind"})
	CacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "urbanize_cache_misses_total",
		Help: "Reading cache misses by kind",
	}, []string{"kind"})
	ReportsStored = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "urbanize_reports_stored",
		Help: "Citizen reports currently held by the store",
	})
	RateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "urbanize_rate_limited_total",
		Help: "Requests rejected by the rate limiter",
	})
)

func init() {
	prometheus.MustRegister(ProviderRequestsTotal)
	prometheus.MustRegister(ProviderFailTotal)
	prometheus.MustRegister(ProviderDurationMs)
	prometheus.MustRegister(SimulatedAQITotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(ReportsStored)
	prometheus.MustRegister(RateLimitedTotal)
}

// Handler exposes the registered collectors for scraping.
func Handler() http.Handler { return promhttp.Handler() }
