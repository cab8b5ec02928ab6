package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"classplanner/internal/history"
	"classplanner/internal/logger"
	"classplanner/internal/repository"
	"classplanner/internal/service"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error  string            `json:"error"`
	Detail string            `json:"detail,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// respondWithError logs err and writes msg with the status that err maps to
func respondWithError(w http.ResponseWriter, log *logger.Logger, userMsg string, err error) {
	status := statusFor(err)
	body := errorBody{Error: userMsg}
	if err != nil {
		body.Detail = err.Error()
		if status >= http.StatusInternalServerError {
			log.Error(userMsg, "error", err)
		} else {
			log.Debug(userMsg, "error", err)
		}
	}
	writeJSON(w, status, body)
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusInternalServerError
	case errors.Is(err, repository.ErrSessionNotFound),
		errors.Is(err, history.ErrNotFound),
		errors.Is(err, service.ErrGroupNotFound),
		errors.Is(err, service.ErrStageNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}
