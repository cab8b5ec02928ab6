package grouping

import "classplanner/internal/models"

// Summarize counts groups per completion status
func Summarize(groups []models.LessonGroup) models.Statistics {
	stats := models.Statistics{Total: len(groups)}
	for _, g := range groups {
		switch g.CompletionStatus {
		case models.GroupCompleted:
			stats.Completed++
		case models.GroupInProgress:
			stats.InProgress++
		default:
			stats.NotStarted++
		}
	}
	stats.CompletionPercentage = percent(stats.Completed, stats.Total)
	return stats
}
