package models

import "time"

// Status is the per-section state of a scheduled session
type Status string

const (
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	switch s {
	case StatusPlanned, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// DefaultStartTime is used when a session is created without a start time
const DefaultStartTime = "08:00"

// Stage is one checkpoint of a session. Core stages come from the template
// and are tracked jointly across every session of a lesson
type Stage struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	IsCompleted     bool       `json:"isCompleted"`
	CompletionDate  *time.Time `json:"completionDate,omitempty"`
	IsCore          bool       `json:"isCore,omitempty"`
	TemplateStageID string     `json:"templateStageId,omitempty"`
}

// Key returns the identity used to match this stage across sessions
func (st Stage) Key() string {
	if st.TemplateStageID != "" {
		return st.TemplateStageID
	}
	return st.ID
}

// Session is one calendar-bound occurrence of a lesson
type Session struct {
	ID                  string            `json:"id"`
	TemplateID          string            `json:"templateId,omitempty"`
	LessonGroupID       string            `json:"lessonGroupId,omitempty"`
	Date                string            `json:"date"`
	StartTime           string            `json:"startTime"`
	AssignedSections    []string          `json:"assignedSections"`
	CompletionStatus    map[string]Status `json:"completionStatus"`
	Stages              []Stage           `json:"stages"`
	EstimatedSessions   int               `json:"estimatedSessions"`
	ManualSessionNumber *int              `json:"manualSessionNumber,omitempty"`
	Progress            int               `json:"progress"`
	CustomTitle         string            `json:"customTitle,omitempty"`
	CustomDescription   string            `json:"customDescription,omitempty"`
	Notes               string            `json:"notes,omitempty"`
	Subject             string            `json:"subject,omitempty"`
	Classroom           string            `json:"classroom,omitempty"`
	CreatedAt           time.Time         `json:"createdAt"`
	UpdatedAt           time.Time         `json:"updatedAt"`
}

// PrimarySection returns the first assigned section, or "" when unassigned
func (s Session) PrimarySection() string {
	if len(s.AssignedSections) == 0 {
		return ""
	}
	return s.AssignedSections[0]
}

// InSlot reports whether the session already occupies (date, sectionID)
func (s Session) InSlot(date, sectionID string) bool {
	if s.Date != date {
		return false
	}
	for _, sec := range s.AssignedSections {
		if sec == sectionID {
			return true
		}
	}
	return false
}

// Copy returns a deep copy that shares no slices, maps or pointers with s
func (s Session) Copy() Session {
	out := s
	if s.AssignedSections != nil {
		out.AssignedSections = append([]string(nil), s.AssignedSections...)
	}
	if s.CompletionStatus != nil {
		out.CompletionStatus = make(map[string]Status, len(s.CompletionStatus))
		for k, v := range s.CompletionStatus {
			out.CompletionStatus[k] = v
		}
	}
	if s.Stages != nil {
		out.Stages = make([]Stage, len(s.Stages))
		for i, st := range s.Stages {
			if st.CompletionDate != nil {
				d := *st.CompletionDate
				st.CompletionDate = &d
			}
			out.Stages[i] = st
		}
	}
	if s.ManualSessionNumber != nil {
		n := *s.ManualSessionNumber
		out.ManualSessionNumber = &n
	}
	return out
}

// SessionPatch is a partial update; nil fields are left untouched
type SessionPatch struct {
	TemplateID          *string           `json:"templateId,omitempty"`
	LessonGroupID       *string           `json:"lessonGroupId,omitempty"`
	Date                *string           `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	StartTime           *string           `json:"startTime,omitempty" validate:"omitempty,datetime=15:04"`
	AssignedSections    []string          `json:"assignedSections,omitempty" validate:"omitempty,dive,required"`
	CompletionStatus    map[string]Status `json:"completionStatus,omitempty" validate:"omitempty,dive,keys,required,endkeys,session_status"`
	Stages              []Stage           `json:"stages,omitempty"`
	EstimatedSessions   *int              `json:"estimatedSessions,omitempty" validate:"omitempty,min=1"`
	ManualSessionNumber *int              `json:"manualSessionNumber,omitempty" validate:"omitempty,min=1"`
	Progress            *int              `json:"progress,omitempty" validate:"omitempty,min=0,max=100"`
	CustomTitle         *string           `json:"customTitle,omitempty"`
	CustomDescription   *string           `json:"customDescription,omitempty"`
	Notes               *string           `json:"notes,omitempty"`
	Subject             *string           `json:"subject,omitempty"`
	Classroom           *string           `json:"classroom,omitempty"`
}

// IsEmpty reports whether the patch changes nothing
func (p SessionPatch) IsEmpty() bool {
	return p.TemplateID == nil && p.LessonGroupID == nil && p.Date == nil &&
		p.StartTime == nil && p.AssignedSections == nil && p.CompletionStatus == nil &&
		p.Stages == nil && p.EstimatedSessions == nil && p.ManualSessionNumber == nil &&
		p.Progress == nil && p.CustomTitle == nil && p.CustomDescription == nil &&
		p.Notes == nil && p.Subject == nil && p.Classroom == nil
}

// Apply writes the set fields of p onto s
func (p SessionPatch) Apply(s *Session) {
	if p.TemplateID != nil {
		s.TemplateID = *p.TemplateID
	}
	if p.LessonGroupID != nil {
		s.LessonGroupID = *p.LessonGroupID
	}
	if p.Date != nil {
		s.Date = *p.Date
	}
	if p.StartTime != nil {
		s.StartTime = *p.StartTime
	}
	if p.AssignedSections != nil {
		s.AssignedSections = append([]string(nil), p.AssignedSections...)
	}
	if p.CompletionStatus != nil {
		s.CompletionStatus = make(map[string]Status, len(p.CompletionStatus))
		for k, v := range p.CompletionStatus {
			s.CompletionStatus[k] = v
		}
	}
	if p.Stages != nil {
		s.Stages = append([]Stage(nil), p.Stages...)
	}
	if p.EstimatedSessions != nil {
		s.EstimatedSessions = *p.EstimatedSessions
	}
	if p.ManualSessionNumber != nil {
		n := *p.ManualSessionNumber
		s.ManualSessionNumber = &n
	}
	if p.Progress != nil {
		s.Progress = *p.Progress
	}
	if p.CustomTitle != nil {
		s.CustomTitle = *p.CustomTitle
	}
	if p.CustomDescription != nil {
		s.CustomDescription = *p.CustomDescription
	}
	if p.Notes != nil {
		s.Notes = *p.Notes
	}
	if p.Subject != nil {
		s.Subject = *p.Subject
	}
	if p.Classroom != nil {
		s.Classroom = *p.Classroom
	}
}
