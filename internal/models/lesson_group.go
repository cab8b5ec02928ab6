package models

import "time"

// GroupStatus is the derived completion state of a logical lesson
type GroupStatus string

const (
	GroupNotStarted GroupStatus = "not-started"
	GroupInProgress GroupStatus = "in-progress"
	GroupCompleted  GroupStatus = "completed"
)

// UntitledLesson is the title of a group whose first session has no custom title
const UntitledLesson = "Untitled lesson"

// LessonGroup is the derived view of every session sharing a group key.
// It is never persisted
type LessonGroup struct {
	GroupKey         string      `json:"groupKey"`
	TemplateID       string      `json:"templateId,omitempty"`
	Title            string      `json:"title"`
	Sessions         []Session   `json:"sessions"`
	CoreStages       []Stage     `json:"coreStages"`
	CompletionStatus GroupStatus `json:"completionStatus"`
	OverallProgress  int         `json:"overallProgress"`
}

// Statistics summarizes a set of lesson groups
type Statistics struct {
	Total                int `json:"total"`
	Completed            int `json:"completed"`
	InProgress           int `json:"inProgress"`
	NotStarted           int `json:"notStarted"`
	CompletionPercentage int `json:"completionPercentage"`
}

// Snapshot is the full derived state recomputed after every mutation
type Snapshot struct {
	Sessions    []Session     `json:"sessions"`
	Groups      []LessonGroup `json:"groups"`
	Statistics  Statistics    `json:"statistics"`
	GeneratedAt time.Time     `json:"generatedAt"`
}

// NumberedSession pairs a session with its display number (0 when it has none)
type NumberedSession struct {
	Session
	SessionNumber int `json:"sessionNumber,omitempty"`
}
