package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// queriesTotal counts completed queries by city and outcome (answer|refusal).
	queriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "localguide_queries_total",
		Help: "Completed queries by city and outcome",
	}, []string{"city", "outcome"})

	// refusalsTotal counts refusals by diagnostic reason.
	refusalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "localguide_refusals_total",
		Help: "Refusals by reason",
	}, []string{"reason"})

	// stageDuration tracks latency of each pipeline stage.
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "localguide_stage_duration_seconds",
		Help:    "Pipeline stage duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 16), // 0.5ms to ~16s
	}, []string{"stage"})

	// generationAttempts counts completion attempts by result.
	generationAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "localguide_generation_attempts_total",
		Help: "Completion attempts by result",
	}, []string{"result"})

	// activeSessions is the number of open sessions.
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "localguide_active_sessions",
		Help: "Number of open sessions",
	})
)
