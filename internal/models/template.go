package models

// TemplateStage is a canonical stage of a lesson template
type TemplateStage struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// LessonTemplate is the reusable lesson definition sessions are instantiated from
type LessonTemplate struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Description       string          `json:"description,omitempty"`
	Subject           string          `json:"subject,omitempty"`
	CourseName        string          `json:"courseName,omitempty"`
	Level             string          `json:"level,omitempty"`
	EstimatedSessions int             `json:"estimatedSessions,omitempty"`
	Stages            []TemplateStage `json:"stages"`
}
