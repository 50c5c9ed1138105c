package main

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yourorg/dex-stats-api/internal/fetch"
)

// serverMetrics holds Prometheus metrics for the server
type serverMetrics struct {
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	fetchOutcomes   *prometheus.CounterVec
	fetchDuration   *prometheus.HistogramVec
}

// registerMetrics creates the server metrics and registers them with reg
func registerMetrics(reg prometheus.Registerer) *serverMetrics {
	m := &serverMetrics{
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dex_stats_requests_total",
				Help: "Total number of HTTP requests processed",
			},
			[]string{"route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dex_stats_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		fetchOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dex_stats_fetch_total",
				Help: "Per-chain exchange stats fetches by outcome",
			},
			[]string{"chain", "outcome"},
		),
		fetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dex_stats_fetch_duration_seconds",
				Help:    "Per-chain exchange stats fetch duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"chain"},
		),
	}

	reg.MustRegister(
		m.requestCounter,
		m.requestDuration,
		m.fetchOutcomes,
		m.fetchDuration,
	)

	return m
}

// ObserveFetch implements fetch.Observer
func (m *serverMetrics) ObserveFetch(chain string, outcome fetch.Outcome, d time.Duration) {
	m.fetchOutcomes.WithLabelValues(chain, string(outcome)).Inc()
	m.fetchDuration.WithLabelValues(chain).Observe(d.Seconds())
}

func (m *serverMetrics) observeRequest(route string, status int, d time.Duration) {
	m.requestCounter.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}
