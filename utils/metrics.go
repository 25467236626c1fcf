package utils

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ReqCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badges_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ReqDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "badges_http_request_duration_seconds",
			Help: "HTTP request duration seconds",
		},
		[]string{"method", "path"},
	)

	WorkoutsRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "badges_workouts_recorded_total",
			Help: "Workout events accepted by the engine",
		},
	)

	BadgesUnlocked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badges_unlocked_total",
			Help: "Badges newly unlocked, by badge and source",
		},
		[]string{"badge_id", "source"},
	)

	EvaluationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "badges_evaluation_duration_seconds",
			Help:    "Time spent recomputing stats and evaluating badges for one user",
			Buckets: prometheus.DefBuckets,
		},
	)

	ComputationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "badges_computation_errors_total",
			Help: "Catalog entries that could not be evaluated",
		},
		[]string{"badge_id"},
	)
)

// InitMetrics registers collectors on the given registerer (prometheus.DefaultRegisterer in main).
func InitMetrics(reg prometheus.Registerer) {
	reg.MustRegister(ReqCount, ReqDuration, WorkoutsRecorded, BadgesUnlocked, EvaluationDuration, ComputationErrors)
}
