package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"calendar-service/internal/cache"
	"calendar-service/internal/calendar/layout"
	"calendar-service/internal/calendar/resolver"
	"calendar-service/internal/config"
	eventCreate "calendar-service/internal/http-server/handlers/events/create"
	eventDelete "calendar-service/internal/http-server/handlers/events/delete"
	eventUpdate "calendar-service/internal/http-server/handlers/events/update"
	viewAvailable "calendar-service/internal/http-server/handlers/views/available"
	viewCreate "calendar-service/internal/http-server/handlers/views/create"
	viewDelete "calendar-service/internal/http-server/handlers/views/delete"
	viewFilter "calendar-service/internal/http-server/handlers/views/filter"
	viewGrid "calendar-service/internal/http-server/handlers/views/grid"
	viewICS "calendar-service/internal/http-server/handlers/views/ics"
	viewLayers "calendar-service/internal/http-server/handlers/views/layers"
	viewList "calendar-service/internal/http-server/handlers/views/list"
	viewSelected "calendar-service/internal/http-server/handlers/views/selected"
	viewState "calendar-service/internal/http-server/handlers/views/state"
	viewStream "calendar-service/internal/http-server/handlers/views/stream"
	"calendar-service/internal/lock"
	svc "calendar-service/internal/service"
	"calendar-service/internal/storage/postgres"
	"calendar-service/pkg/handlers/slogpretty"
	"calendar-service/pkg/middleware/mwLogger"
	"calendar-service/pkg/sl"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env", sl.Err(err))
	}

	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("Starting API", slog.String("env", cfg.Env))
	log.Debug("Debug messages are enabled")

	ctx := context.Background()

	storage, err := postgres.New(cfg.StoragePath)
	if err != nil {
		log.Error("Failed to init storage", sl.Err(err))
		os.Exit(1)
	}

	if err := storage.Migrate(ctx); err != nil {
		log.Error("Failed to migrate storage", sl.Err(err))
		os.Exit(1)
	}

	redisClient, err := lock.NewClient(ctx, cfg.RedisAddr)
	if err != nil {
		log.Error("Failed to init redis", sl.Err(err))
		os.Exit(1)
	}

	locker := lock.NewRedisLock(redisClient)
	source := cache.NewStaffCache(storage, cache.NewRedisBackend(redisClient), cfg.StaffCacheTTL, log)
	engine := resolver.New(source, log)

	service := svc.NewService(engine, storage, locker, log, svc.Options{
		Grid: layout.Grid{
			StartHour:   cfg.GridStartHour,
			EndHour:     cfg.GridEndHour,
			PxPerMinute: cfg.PxPerMinute,
			MinHeightPx: cfg.MinHeightPx,
		},
		WeekStart:      time.Weekday(cfg.WeekStart),
		LockTTL:        cfg.LockTTL,
		ResolveTimeout: cfg.ResolveTimeout,
	})

	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.RefreshCron, func() {
		if err := source.Invalidate(ctx); err != nil {
			log.Warn("Failed to invalidate staff cache", sl.Err(err))
		}
		n := service.RefreshAll(ctx)
		log.Debug("Views refreshed", slog.Int("views", n))
	})
	if err != nil {
		log.Error("Invalid refresh schedule", slog.String("refresh_cron", cfg.RefreshCron), sl.Err(err))
		os.Exit(1)
	}
	scheduler.Start()

	serv := &http.Server{
		Addr:         cfg.Address,
		Handler:      newRouter(log, service),
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	serverErrCh := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", slog.String("addr", cfg.Address))
		if err := serv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		} else {
			serverErrCh <- nil
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case err := <-serverErrCh:
		if err != nil {
			log.Error("HTTP server stopped unexpectedly", sl.Err(err))
		} else {
			log.Info("HTTP server stopped gracefully")
		}
	}

	shutdownTimeout := cfg.HTTPServer.ShutdownTimeout

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info("Shutting down HTTP server", slog.String("timeout", shutdownTimeout.String()))

	select {
	case <-scheduler.Stop().Done():
		log.Info("Scheduler stopped")
	case <-shutdownCtx.Done():
		log.Warn("Scheduler did not stop in time")
	}

	// Closing the views ends open streams, otherwise Shutdown waits on them.
	service.CloseAll()

	if err := serv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", sl.Err(err))
	} else {
		log.Info("Server shutdown complete")
	}

	if err := storage.Close(); err != nil {
		log.Error("Failed to close storage", sl.Err(err))
	} else {
		log.Info("Storage closed")
	}

	if err := redisClient.Close(); err != nil {
		log.Error("Failed to close redis", sl.Err(err))
	} else {
		log.Info("Redis closed")
	}

	log.Info("Shutdown finished, server stopped")

}

func newRouter(log *slog.Logger, service *svc.Service) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(mwLogger.New(log))
	router.Use(middleware.Recoverer)
	router.Use(CORS)

	// Views
	router.Post("/views", viewCreate.New(log, service))
	router.Route("/views/{view}", func(r chi.Router) {
		r.Delete("/", viewDelete.New(log, service))
		r.Post("/filter", viewFilter.New(log, service))
		r.Get("/state", viewState.New(log, service))
		r.Get("/stream", viewStream.New(log, service))
		r.Get("/list", viewList.New(log, service))
		r.Get("/grid", viewGrid.New(log, service))
		r.Get("/available", viewAvailable.New(log, service))
		r.Put("/layers", viewLayers.New(log, service))
		r.Put("/selected-users", viewSelected.New(log, service))
		r.Get("/calendar.ics", viewICS.New(log, service))
	})

	// Events
	router.Post("/events", eventCreate.New(log, service))
	router.Put("/events/{id}", eventUpdate.New(log, service))
	router.Delete("/events/{id}", eventDelete.New(log, service))

	return router
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger
	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
