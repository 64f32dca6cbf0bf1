// Package metrics exposes Prometheus collectors for the console service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlStartsTotal           *prometheus.CounterVec
	statusPollsTotal           *prometheus.CounterVec
	historyReloadsTotal        *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		crawlStartsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_crawl_starts_total",
				Help: "Total crawl start attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		statusPollsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_status_polls_total",
				Help: "Total crawl status polls, labeled by reported status.",
			},
			[]string{"status"},
		)

		historyReloadsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "console_history_reloads_total",
				Help: "Total ad history reloads, labeled by result.",
			},
			[]string{"result"},
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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// CrawlStartObserved increments the crawl start counter for the outcome.
func CrawlStartObserved(outcome string) {
	if crawlStartsTotal == nil {
		return
	}
	crawlStartsTotal.WithLabelValues(outcome).Inc()
}

// PollObserved increments the status poll counter.
func PollObserved(status string) {
	if statusPollsTotal == nil {
		return
	}
	statusPollsTotal.WithLabelValues(status).Inc()
}

// HistoryReloadObserved increments the history reload counter.
func HistoryReloadObserved(result string) {
	if historyReloadsTotal == nil {
		return
	}
	historyReloadsTotal.WithLabelValues(result).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
