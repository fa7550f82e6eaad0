// Package metrics exposes Prometheus collectors for the explorer service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	upstreamFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_upstream_fetch_total",
			Help: "Total number of upstream fetches, labeled by site and outcome.",
		},
		[]string{"site", "outcome"},
	)

	upstreamRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_upstream_retries_total",
			Help: "Total number of upstream fetch retries, labeled by site and error kind.",
		},
		[]string{"site", "kind"},
	)

	upstreamBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_upstream_bytes_total",
			Help: "Total number of bytes fetched from upstream, labeled by site.",
		},
		[]string{"site"},
	)

	cacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_cache_lookups_total",
			Help: "Total number of cache lookups, labeled by resource and result.",
		},
		[]string{"resource", "result"},
	)

	cacheEvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_cache_evictions_total",
			Help: "Total number of entries removed from the cache, labeled by reason.",
		},
		[]string{"reason"},
	)

	fallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "explorer_fallbacks_total",
			Help: "Total number of responses served from synthetic fallback data, labeled by resource.",
		},
		[]string{"resource"},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "route"},
	)

	rateLimitDelaysSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "explorer_rate_limit_delays_seconds",
			Help:    "Histogram of upstream rate limit wait durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"domain"},
	)
)

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records the final outcome of an upstream fetch.
func ObserveFetch(rawURL, outcome string) {
	upstreamFetchTotal.WithLabelValues(SanitizeSite(rawURL), outcome).Inc()
}

// ObserveFetchRetry records a retried upstream attempt.
func ObserveFetchRetry(rawURL, kind string) {
	upstreamRetriesTotal.WithLabelValues(SanitizeSite(rawURL), kind).Inc()
}

// ObserveFetchBytes adds the size of an upstream response body.
func ObserveFetchBytes(rawURL string, n int) {
	if n > 0 {
		upstreamBytesTotal.WithLabelValues(SanitizeSite(rawURL)).Add(float64(n))
	}
}

// ObserveCacheLookup records a cache hit or miss for resource.
func ObserveCacheLookup(resource string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookupsTotal.WithLabelValues(resource, result).Inc()
}

// ObserveCacheEviction records n entries removed for reason.
func ObserveCacheEviction(reason string, n int) {
	if n > 0 {
		cacheEvictionsTotal.WithLabelValues(reason).Add(float64(n))
	}
}

// ObserveFallback records a response built from synthetic data.
func ObserveFallback(resource string) {
	fallbacksTotal.WithLabelValues(resource).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	rateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}
