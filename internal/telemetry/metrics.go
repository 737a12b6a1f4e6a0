package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DecisionsRecorded counts decisions accepted by the rules engine.
	DecisionsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "manvsgod_decisions_recorded_total",
		Help: "Decisions accepted by the rules engine",
	})

	// RuleEvolutions counts applied evolutions by rule and mutation kind.
	RuleEvolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "manvsgod_rule_evolutions_total",
		Help: "Rule evolutions by rule and mutation kind",
	}, []string{"rule", "kind"})

	// StoreFallbacks counts remote decision-store failures served locally.
	StoreFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "manvsgod_store_fallbacks_total",
		Help: "Remote decision store failures served from local storage",
	}, []string{"operation"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "manvsgod_http_requests_total",
		Help: "HTTP requests by route and status",
	}, []string{"route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "manvsgod_http_request_duration_seconds",
		Help:    "HTTP request latency by route",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"route"})

	logEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "manvsgod_log_entries_total",
		Help: "Telemetry entries by level and category",
	}, []string{"level", "category"})
)
