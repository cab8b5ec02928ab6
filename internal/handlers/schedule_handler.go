package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"classplanner/internal/calendar"
	"classplanner/internal/models"
)

// DropRequest is the body of POST /api/drops
type DropRequest struct {
	Date      string          `json:"date" validate:"required,datetime=2006-01-02"`
	SectionID string          `json:"sectionId" validate:"notblank"`
	Payload   json.RawMessage `json:"payload"`
}

// Week returns the week containing ?week=YYYY-MM-DD, or the current week
func (h *ScheduleHandler) Week(w http.ResponseWriter, r *http.Request) {
	day := time.Now().In(h.loc)
	if raw := r.URL.Query().Get("week"); raw != "" {
		parsed, err := calendar.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "week must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	view, err := h.schedule.Week(r.Context(), day)
	if err != nil {
		respondWithError(w, h.log, "failed to load week", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Groups returns the lesson groups
func (h *ScheduleHandler) Groups(w http.ResponseWriter, r *http.Request) {
	snap, err := h.schedule.Snapshot(r.Context())
	if err != nil {
		respondWithError(w, h.log, "failed to load lesson groups", err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Groups)
}

// Statistics returns the group counts
func (h *ScheduleHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	snap, err := h.schedule.Snapshot(r.Context())
	if err != nil {
		respondWithError(w, h.log, "failed to load statistics", err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Statistics)
}

// SetCoreStage sets a core stage across a whole lesson group
func (h *ScheduleHandler) SetCoreStage(w http.ResponseWriter, r *http.Request) {
	var req completedRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if fields := validateStruct(req); fields != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Fields: fields})
		return
	}

	group, err := h.schedule.SetCoreStage(r.Context(), chi.URLParam(r, "key"), chi.URLParam(r, "stageKey"), *req.Completed)
	if err != nil {
		respondWithError(w, h.log, "failed to update core stage", err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// Drop applies a drag-and-drop onto a calendar cell. An unreadable payload
// is reported as an ignored drop rather than an error
func (h *ScheduleHandler) Drop(w http.ResponseWriter, r *http.Request) {
	var req DropRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if fields := validateStruct(req); fields != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Fields: fields})
		return
	}

	payload, err := models.ParseDropPayload(req.Payload)
	if err != nil {
		h.log.Debug("unsupported drop payload", "error", err)
		payload = nil
	}

	cell := models.DropCell{Date: req.Date, SectionID: req.SectionID}
	outcome, err := h.schedule.Drop(r.Context(), cell, payload)
	if err != nil {
		respondWithError(w, h.log, "failed to apply drop", err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// History lists recently deleted sessions, newest first
func (h *ScheduleHandler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.schedule.History(r.Context())
	if err != nil {
		respondWithError(w, h.log, "failed to load history", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Restore recreates a deleted session
func (h *ScheduleHandler) Restore(w http.ResponseWriter, r *http.Request) {
	restored, err := h.schedule.RestoreSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, h.log, "failed to restore session", err)
		return
	}
	writeJSON(w, http.StatusCreated, restored)
}
