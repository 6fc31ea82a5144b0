package achievements

import (
	"math"
	"time"

	"teamboard/internal/models"
)

// ComputeStats summarises a user's tasks. tasks must already be narrowed to
// the user.
func ComputeStats(tasks []models.Task, joinDate, now time.Time) models.UserStats {
	stats := models.UserStats{
		TotalTasks: len(tasks),
		JoinDate:   joinDate,
		DaysInTeam: DaysInTeam(joinDate, now),
	}
	for _, t := range tasks {
		switch t.Status {
		case models.StatusCompleted:
			stats.CompletedTasks++
		case models.StatusInProgress:
			stats.InProgressTasks++
		case models.StatusNotStarted:
			stats.NotStartedTasks++
		}
	}
	stats.CompletionRate = CompletionRate(stats.CompletedTasks, stats.TotalTasks)
	return stats
}

// CompletionRate returns part/total as a rounded percentage, 0 when total
// is 0.
func CompletionRate(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) * 100 / float64(total)))
}

// DaysInTeam returns whole days elapsed since joinDate, never negative.
func DaysInTeam(joinDate, now time.Time) int {
	days := int(math.Floor(now.Sub(joinDate).Hours() / 24))
	if days < 0 {
		return 0
	}
	return days
}
