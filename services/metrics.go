package services

import "github.com/prometheus/client_golang/prometheus"

var (
	completionsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streak_completions_total",
			Help: "Completion recording attempts by source and outcome",
		},
		[]string{"source", "outcome"},
	)
	streakRecalculations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streak_recalculations_total",
			Help: "Full streak recalculations by trigger",
		},
		[]string{"trigger"},
	)
	streakAuditDrift = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "streak_audit_drift_total",
			Help: "Aggregates the consistency audit found out of sync and healed",
		},
	)
)

// InitStreakMetrics registers the engine metrics. Call this from main.go
func InitStreakMetrics() {
	prometheus.MustRegister(completionsRecorded)
	prometheus.MustRegister(streakRecalculations)
	prometheus.MustRegister(streakAuditDrift)
}
