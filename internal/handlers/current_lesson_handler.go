package handlers

import (
	"net/http"

	"classplanner/internal/service"
)

// CurrentLessonHandler serves the default-section recommendation
type CurrentLessonHandler struct {
	current *service.CurrentLessonService
}

func NewCurrentLessonHandler(current *service.CurrentLessonService) *CurrentLessonHandler {
	return &CurrentLessonHandler{current: current}
}

// Current returns the cached recommendation. ?refresh=1 bypasses the cache
func (h *CurrentLessonHandler) Current(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") != "" {
		h.current.Reset()
	}
	writeJSON(w, http.StatusOK, h.current.Current(r.Context()))
}
