// internal/pkg/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tablecover"

var (
	// SubmissionsTotal 按结果统计提交次数：succeeded / rejected / unreachable / invalid / in_flight
	SubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "quote",
		Name:      "submissions_total",
		Help:      "Order submissions by outcome.",
	}, []string{"outcome"})

	BasketCommitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "quote",
		Name:      "basket_commits_total",
		Help:      "Items added to a basket by shape and thickness.",
	}, []string{"shape", "thickness"})

	IntakeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "intake",
		Name:      "request_duration_seconds",
		Help:      "Latency of calls to the external intake endpoint.",
		Buckets:   prometheus.DefBuckets,
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "quote",
		Name:      "active_sessions",
		Help:      "Widget sessions currently held in memory.",
	})
)
