package grouping

import (
	"time"

	"classplanner/internal/models"
)

// Aggregate partitions sessions by group key and builds one LessonGroup per
// key, in order of each key's first appearance
func Aggregate(sessions []models.Session, now time.Time) []models.LessonGroup {
	var order []string
	parts := make(map[string][]models.Session)
	for _, s := range sessions {
		key := GroupKey(s)
		if _, seen := parts[key]; !seen {
			order = append(order, key)
		}
		parts[key] = append(parts[key], s)
	}

	groups := make([]models.LessonGroup, 0, len(order))
	for _, key := range order {
		groups = append(groups, BuildGroup(key, parts[key], now))
	}
	return groups
}

// BuildGroup derives the LessonGroup of sessions that share key
func BuildGroup(key string, sessions []models.Session, now time.Time) models.LessonGroup {
	group := models.LessonGroup{
		GroupKey:         key,
		Title:            models.UntitledLesson,
		Sessions:         []models.Session{},
		CoreStages:       []models.Stage{},
		CompletionStatus: models.GroupNotStarted,
	}
	if len(sessions) == 0 {
		return group
	}

	sorted := SortByDate(sessions)
	first := sorted[0]
	group.Sessions = sorted
	group.TemplateID = first.TemplateID
	if first.CustomTitle != "" {
		group.Title = first.CustomTitle
	}

	core := propagate(sorted, now)
	group.CoreStages = core.stages
	group.CompletionStatus = groupStatus(core)
	group.OverallProgress = percent(core.completed, len(core.stages))
	return group
}

func groupStatus(c coreCompletion) models.GroupStatus {
	total := len(c.stages)
	switch {
	case total == 0:
		return models.GroupNotStarted
	case c.completed == total:
		return models.GroupCompleted
	case c.completed == 0 && c.started == 0:
		return models.GroupNotStarted
	default:
		return models.GroupInProgress
	}
}

// percent returns round(part/total*100), or 0 when total is 0
func percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return (part*200 + total) / (total * 2)
}
