package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"classplanner/internal/config"
	"classplanner/internal/database"
	"classplanner/internal/handlers"
	"classplanner/internal/history"
	"classplanner/internal/logger"
	"classplanner/internal/models"
	"classplanner/internal/observability"
	"classplanner/internal/repository"
	"classplanner/internal/security"
	"classplanner/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "classplanner: %v\n", err)
		os.Exit(1)
	}
}

// run wires and serves the application until SIGINT or SIGTERM
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, log, observability.TracingConfig{
		Enabled:     cfg.OtelEnabled,
		ServiceName: cfg.ServiceName,
		Exporter:    cfg.OtelExporter,
		Endpoint:    cfg.OtelEndpoint,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Error("tracing shutdown failed", "error", err)
		}
	}()

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("invalid timezone: %w", err)
	}

	// Initialize storage
	var (
		store     service.SessionStore
		timetable service.TimetableSource
		pinger    handlers.Pinger
	)
	if strings.EqualFold(cfg.DatabaseType, "memory") {
		store = repository.NewMemorySessionStore()
		timetable = &repository.StaticTimetable{}
		log.Warn("using in-memory session store, data is lost on restart")
	} else {
		db, err := database.InitializeWithConfig(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer db.Close()
		log.Info("database connection established", "type", cfg.DatabaseType)

		applied, err := db.RunMigrations(cfg.MigrationsPath)
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("migrations completed", "applied", len(applied))

		store = repository.NewSessionRepository(db)
		timetable = repository.NewTimetableRepository(db)
		pinger = db
	}

	// Deletion history
	var hist history.Buffer = history.NewMemoryBuffer(history.DefaultCapacity)
	if cfg.RedisAddr != "" {
		rdb, err := history.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			return fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		defer rdb.Close()
		hist = history.NewRedisBuffer(rdb, cfg.HistoryRedisKey, history.DefaultCapacity)
		log.Info("deletion history stored in redis", "key", cfg.HistoryRedisKey)
	}

	// Initialize services
	rescheduler := service.NewRescheduler(store, log)
	rescheduler.SetDefaultStartTime(cfg.DefaultStartTime)
	schedule := service.NewScheduleService(store, hist, rescheduler, service.SystemClock{}, log)
	currentLesson := service.NewCurrentLessonService(timetable, service.SystemClock{}, cfg.CurrentLessonTTL, loc, log)

	var lastSection string
	currentLesson.Subscribe(ctx, time.Minute, func(info models.CurrentLesson) {
		if info.RecommendedSectionID != lastSection {
			lastSection = info.RecommendedSectionID
			log.Info("recommended section changed", "section", lastSection, "message", info.DisplayMessage)
		}
	})

	var tokens *security.TokenManager
	if cfg.APITokenSecret != "" {
		tokens = security.NewTokenManager(cfg.APITokenSecret)
	} else {
		log.Warn("API_TOKEN_SECRET not set, /api routes are unauthenticated")
	}

	var limiter *security.RateLimiter
	if cfg.RateLimitPerMinute > 0 {
		limiter = security.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
		go limiter.RunCleanup(ctx, 5*time.Minute)
	}

	router := handlers.NewRouter(handlers.Dependencies{
		Schedule:      schedule,
		CurrentLesson: currentLesson,
		Tokens:        tokens,
		RateLimiter:   limiter,
		Store:         pinger,
		Location:      loc,
		Log:           log,
	})

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("server shutting down")
	case err := <-serveErr:
		stop()
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	return nil
}
