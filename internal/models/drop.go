package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnsupportedPayload is returned for drop payloads that are neither a
// lesson nor a template
var ErrUnsupportedPayload = errors.New("unsupported drop payload")

const (
	DropTypeLesson   = "lesson"
	DropTypeTemplate = "template"
)

// DropPayload is what was dragged onto a calendar cell.
// It is either a TemplateDrop or a LessonDrop
type DropPayload interface {
	dropPayload()
}

// TemplateDrop instantiates a new lesson from a template
type TemplateDrop struct {
	Template LessonTemplate
}

// LessonDrop moves or clones an existing session
type LessonDrop struct {
	LessonID string
}

func (TemplateDrop) dropPayload() {}
func (LessonDrop) dropPayload()   {}

type dropEnvelope struct {
	Type     string          `json:"type"`
	LessonID string          `json:"lessonId,omitempty"`
	Template *LessonTemplate `json:"template,omitempty"`
}

func (d TemplateDrop) MarshalJSON() ([]byte, error) {
	t := d.Template
	return json.Marshal(dropEnvelope{Type: DropTypeTemplate, Template: &t})
}

func (d LessonDrop) MarshalJSON() ([]byte, error) {
	return json.Marshal(dropEnvelope{Type: DropTypeLesson, LessonID: d.LessonID})
}

// ParseDropPayload decodes the drag-data JSON into a typed payload
func ParseDropPayload(raw []byte) (DropPayload, error) {
	var env dropEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedPayload, err)
	}

	switch env.Type {
	case DropTypeLesson:
		if env.LessonID == "" {
			return nil, fmt.Errorf("%w: lesson payload without lessonId", ErrUnsupportedPayload)
		}
		return LessonDrop{LessonID: env.LessonID}, nil
	case DropTypeTemplate:
		if env.Template == nil {
			return nil, fmt.Errorf("%w: template payload without template", ErrUnsupportedPayload)
		}
		return TemplateDrop{Template: *env.Template}, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrUnsupportedPayload)
	default:
		return nil, fmt.Errorf("%w: type %q", ErrUnsupportedPayload, env.Type)
	}
}

// DropCell is the calendar cell a payload was dropped on
type DropCell struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	SectionID string `json:"sectionId" validate:"required"`
}
