package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"classplanner/internal/logger"
	"classplanner/internal/models"
	"classplanner/internal/service"
)

// ScheduleHandler serves sessions, groups, drops and the deletion history
type ScheduleHandler struct {
	schedule *service.ScheduleService
	loc      *time.Location
	log      *logger.Logger
}

// NewScheduleHandler creates a new schedule handler
func NewScheduleHandler(schedule *service.ScheduleService, loc *time.Location, log *logger.Logger) *ScheduleHandler {
	if loc == nil {
		loc = time.Local
	}
	return &ScheduleHandler{schedule: schedule, loc: loc, log: log.With("handler", "schedule")}
}

// CreateSessionRequest is the body of POST /api/sessions
type CreateSessionRequest struct {
	TemplateID          string                   `json:"templateId"`
	LessonGroupID       string                   `json:"lessonGroupId"`
	Date                string                   `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime           string                   `json:"startTime" validate:"omitempty,datetime=15:04"`
	AssignedSections    []string                 `json:"assignedSections" validate:"required,min=1,dive,notblank"`
	CompletionStatus    map[string]models.Status `json:"completionStatus" validate:"omitempty,dive,keys,required,endkeys,session_status"`
	Stages              []models.Stage           `json:"stages"`
	EstimatedSessions   int                      `json:"estimatedSessions" validate:"omitempty,min=1"`
	ManualSessionNumber *int                     `json:"manualSessionNumber" validate:"omitempty,min=1"`
	CustomTitle         string                   `json:"customTitle" validate:"omitempty,max=200"`
	CustomDescription   string                   `json:"customDescription"`
	Notes               string                   `json:"notes"`
	Subject             string                   `json:"subject"`
	Classroom           string                   `json:"classroom"`
}

func (req CreateSessionRequest) session() models.Session {
	return models.Session{
		TemplateID:          req.TemplateID,
		LessonGroupID:       req.LessonGroupID,
		Date:                req.Date,
		StartTime:           req.StartTime,
		AssignedSections:    req.AssignedSections,
		CompletionStatus:    req.CompletionStatus,
		Stages:              req.Stages,
		EstimatedSessions:   req.EstimatedSessions,
		ManualSessionNumber: req.ManualSessionNumber,
		CustomTitle:         req.CustomTitle,
		CustomDescription:   req.CustomDescription,
		Notes:               req.Notes,
		Subject:             req.Subject,
		Classroom:           req.Classroom,
	}
}

type completedRequest struct {
	Completed *bool `json:"completed" validate:"required"`
}

// ListSessions returns every stored session
func (h *ScheduleHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	snap, err := h.schedule.Snapshot(r.Context())
	if err != nil {
		respondWithError(w, h.log, "failed to load sessions", err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Sessions)
}

// CreateSession stores a new session
func (h *ScheduleHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if fields := validateStruct(req); fields != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Fields: fields})
		return
	}

	created, err := h.schedule.CreateSession(r.Context(), req.session())
	if err != nil {
		respondWithError(w, h.log, "failed to create session", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// GetSession returns one session
func (h *ScheduleHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.schedule.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, h.log, "session not found", err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// UpdateSession applies a partial update
func (h *ScheduleHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	var patch models.SessionPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if patch.IsEmpty() {
		writeError(w, http.StatusBadRequest, "no fields to update")
		return
	}
	if fields := validateStruct(patch); fields != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Fields: fields})
		return
	}

	updated, err := h.schedule.UpdateSession(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		respondWithError(w, h.log, "failed to update session", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteSession deletes a session and keeps it in the history
func (h *ScheduleHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.schedule.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondWithError(w, h.log, "failed to delete session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearCalendar deletes every session
func (h *ScheduleHandler) ClearCalendar(w http.ResponseWriter, r *http.Request) {
	n, err := h.schedule.ClearCalendar(r.Context())
	if err != nil {
		respondWithError(w, h.log, "failed to clear calendar", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// ToggleStage sets one stage of one session
func (h *ScheduleHandler) ToggleStage(w http.ResponseWriter, r *http.Request) {
	var req completedRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if fields := validateStruct(req); fields != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Fields: fields})
		return
	}

	updated, err := h.schedule.ToggleStage(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "stageID"), *req.Completed)
	if err != nil {
		respondWithError(w, h.log, "failed to update stage", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
