package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/urbanize/urbanize-backend/internal/advisor"
	"github.com/urbanize/urbanize-backend/internal/config"
	"github.com/urbanize/urbanize-backend/internal/cronjobs"
	"github.com/urbanize/urbanize-backend/internal/db"
	"github.com/urbanize/urbanize-backend/internal/gateway/assistant"
	"github.com/urbanize/urbanize-backend/internal/gateway/traffic"
	"github.com/urbanize/urbanize-backend/internal/insights"
	"github.com/urbanize/urbanize-backend/internal/logger"
	"github.com/urbanize/urbanize-backend/internal/metrics"
	"github.com/urbanize/urbanize-backend/internal/middleware"
	"github.com/urbanize/urbanize-backend/internal/reports"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "Server is up!")
}

func main() {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()
	log := logger.Setup()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Error("config_invalid", "err", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		// Missing credentials only disable the affected gateway.
		log.Warn("config_incomplete", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var conn *gorm.DB
	if cfg.DatabaseURL != "" {
		if conn, err = db.Connect(cfg.DatabaseURL); err != nil {
			log.Error("db_connect_failed", "err", err)
			os.Exit(1)
		}
	}
	store, err := reports.Init(conn)
	if err != nil {
		log.Error("reports_init_failed", "err", err)
		os.Exit(1)
	}

	tc := traffic.NewClient(cfg.TomTomKey, cfg.TomTomEndpoint)
	deps, closeDeps := insights.Init(ctx, cfg, tc)
	defer closeDeps()
	ai := assistant.NewClient(cfg.AIKey, cfg.AIBaseURL, cfg.AIModel)

	cron, err := cronjobs.InitCronJobs(cronjobs.Warmer{Deps: deps, Points: cfg.WatchPoints}, cfg.WarmInterval)
	if err != nil {
		log.Warn("cron_disabled", "err", err)
	}
	if cron != nil {
		defer cron.Stop()
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(logger.AccessMiddleware(log))
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.UserIDMiddleware)

	r.Get("/", RootHandler)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	r.Handle("/metrics", metrics.Handler())

	r.Mount("/api/reports", reports.SetupRoutes(store))
	r.Mount("/api/ai", advisor.SetupRoutes(ai, tc, middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)))
	r.Mount("/api", insights.SetupRoutes(deps))

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("server_listening", "addr", srv.Addr, "store", fmt.Sprintf("%T", store))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server_failed", "err", err)
		os.Exit(1)
	}
}
