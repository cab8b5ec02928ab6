package handlers

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"

	"classplanner/internal/logger"
	"classplanner/internal/security"
	"classplanner/internal/service"
)

// Pinger reports whether the backing store is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Dependencies are what the router needs. Tokens, RateLimiter and Store
// may be nil
type Dependencies struct {
	Schedule      *service.ScheduleService
	CurrentLesson *service.CurrentLessonService
	Tokens        *security.TokenManager
	RateLimiter   *security.RateLimiter
	Store         Pinger
	Location      *time.Location
	Log           *logger.Logger
}

// NewRouter creates the chi router with all routes and middleware
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	r.Use(CORS)
	r.Use(RequestID)
	r.Use(Tracing)
	r.Use(Logging(deps.Log))
	r.Use(Recovery(deps.Log))

	healthH := NewHealthHandler(deps.Store)
	scheduleH := NewScheduleHandler(deps.Schedule, deps.Location, deps.Log)
	currentH := NewCurrentLessonHandler(deps.CurrentLesson)

	r.Get("/health", healthH.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(RequireToken(deps.Tokens))
		r.Use(RateLimit(deps.RateLimiter))

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", scheduleH.ListSessions)
			r.Post("/", scheduleH.CreateSession)
			r.Delete("/", scheduleH.ClearCalendar)
			r.Get("/{id}", scheduleH.GetSession)
			r.Patch("/{id}", scheduleH.UpdateSession)
			r.Delete("/{id}", scheduleH.DeleteSession)
			r.Post("/{id}/stages/{stageID}", scheduleH.ToggleStage)
		})

		r.Get("/schedule", scheduleH.Week)
		r.Get("/groups", scheduleH.Groups)
		r.Put("/groups/{key}/core-stages/{stageKey}", scheduleH.SetCoreStage)
		r.Get("/statistics", scheduleH.Statistics)
		r.Post("/drops", scheduleH.Drop)

		r.Get("/history", scheduleH.History)
		r.Post("/history/{id}/restore", scheduleH.Restore)

		r.Get("/current-lesson", currentH.Current)
	})

	return r
}
