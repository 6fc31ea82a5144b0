package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request latency in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "teamboard_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)

	// Store mutations by store and operation.
	StoreMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamboard_store_mutations_total",
			Help: "Total number of store mutations",
		},
		[]string{"store", "op"},
	)

	// Failed persistence writes by key.
	StorageWriteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamboard_storage_write_errors_total",
			Help: "Total number of failed persistence writes",
		},
		[]string{"key"},
	)

	// Achievements unlocked by type.
	AchievementsAwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "teamboard_achievements_awarded_total",
			Help: "Total number of achievements unlocked",
		},
		[]string{"type"},
	)

	// Achievement evaluation passes.
	AchievementEvaluations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "teamboard_achievement_evaluations_total",
			Help: "Total number of per-user achievement evaluations",
		},
	)
)

// RecordHTTPRequest records the latency of a finished request.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordMutation counts a successful store mutation.
func RecordMutation(store, op string) {
	StoreMutations.WithLabelValues(store, op).Inc()
}

// RecordWriteError counts a failed persistence write.
func RecordWriteError(key string) {
	StorageWriteErrors.WithLabelValues(key).Inc()
}

// RecordAchievement counts an unlocked achievement.
func RecordAchievement(achievementType string) {
	AchievementsAwarded.WithLabelValues(achievementType).Inc()
}
