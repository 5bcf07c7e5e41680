// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package metrics exposes Prometheus counters for session reconciliation, access
gate decisions and console traffic.

The [Collector] satisfies the recorder interfaces of the session store and the
gate middleware, so those packages stay free of any Prometheus import.
*/
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lexdesk"

// Collector owns every Lexdesk metric.
type Collector struct {
	syncs        *prometheus.CounterVec
	syncDuration prometheus.Histogram
	dedups       *prometheus.CounterVec
	stale        prometheus.Counter
	decisions    *prometheus.CounterVec
	requests     *prometheus.CounterVec
	latency      prometheus.Histogram
}

// NewCollector creates the metrics and registers them with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_syncs_total",
			Help:      "Profile syncs by outcome.",
		}, []string{"outcome"}),
		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_sync_duration_seconds",
			Help:      "Profile sync latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		dedups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_dedup_hits_total",
			Help:      "Identity events resolved without a sync, by rule.",
		}, []string{"rule"}),
		stale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_stale_responses_total",
			Help:      "Sync responses discarded because the session changed.",
		}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Access gate decisions by outcome.",
		}, []string{"outcome"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "console_requests_total",
			Help:      "Console HTTP requests by method and status.",
		}, []string{"method", "status"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "console_request_duration_seconds",
			Help:      "Console HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(c.syncs, c.syncDuration, c.dedups, c.stale, c.decisions, c.requests, c.latency)
	return c
}

// ObserveSync records a settled profile sync.
func (c *Collector) ObserveSync(outcome string, elapsed time.Duration) {
	c.syncs.WithLabelValues(outcome).Inc()
	c.syncDuration.Observe(elapsed.Seconds())
}

// ObserveDedup records an identity event that needed no sync.
func (c *Collector) ObserveDedup(rule string) {
	c.dedups.WithLabelValues(rule).Inc()
}

// ObserveStale records a discarded sync response.
func (c *Collector) ObserveStale() {
	c.stale.Inc()
}

// ObserveDecision records an access gate outcome.
func (c *Collector) ObserveDecision(outcome string) {
	c.decisions.WithLabelValues(outcome).Inc()
}

// ObserveRequest records a finished console request.
func (c *Collector) ObserveRequest(method string, status int, elapsed time.Duration) {
	c.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.latency.Observe(elapsed.Seconds())
}

// Handler returns the scrape endpoint for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
