package models

// Section is a class section of the weekly timetable
type Section struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// TimetableEntry is one weekly slot. Day is a lowercase English weekday name
type TimetableEntry struct {
	ID            string `json:"id"`
	Day           string `json:"day"`
	StartTime     string `json:"startTime"`
	DurationHours int    `json:"durationHours"`
	SectionID     string `json:"sectionId"`
	Subject       string `json:"subject,omitempty"`
	Teacher       string `json:"teacher,omitempty"`
	Classroom     string `json:"classroom,omitempty"`
}

// LessonSlot is a timetable entry resolved against its section
type LessonSlot struct {
	SectionID     string `json:"sectionId"`
	SectionName   string `json:"sectionName"`
	StartTime     string `json:"startTime"`
	DurationHours int    `json:"duration"`
	Subject       string `json:"subject,omitempty"`
	Teacher       string `json:"teacher,omitempty"`
	Classroom     string `json:"classroom,omitempty"`
}

// CurrentLesson is the recommendation used to preselect a section
type CurrentLesson struct {
	Current              *LessonSlot `json:"currentLesson,omitempty"`
	Next                 *LessonSlot `json:"nextLesson,omitempty"`
	DefaultSection       *Section    `json:"defaultSection,omitempty"`
	CurrentTime          string      `json:"currentTime"`
	CurrentDay           string      `json:"currentDay"`
	IsTeachingTime       bool        `json:"isTeachingTime"`
	RecommendedSectionID string      `json:"recommendedSectionId"`
	DisplayMessage       string      `json:"displayMessage"`
	Fallback             bool        `json:"fallback,omitempty"`
}
