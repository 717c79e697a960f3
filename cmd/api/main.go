package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/oasis-app/oasis-service/internal/cache"
	"github.com/oasis-app/oasis-service/internal/coach"
	"github.com/oasis-app/oasis-service/internal/config"
	"github.com/oasis-app/oasis-service/internal/eligibility"
	"github.com/oasis-app/oasis-service/internal/handler"
	"github.com/oasis-app/oasis-service/internal/integrations/fpl"
	"github.com/oasis-app/oasis-service/internal/integrations/llm"
	"github.com/oasis-app/oasis-service/internal/integrations/resources"
	"github.com/oasis-app/oasis-service/internal/middleware"
	"github.com/oasis-app/oasis-service/internal/repository"
	"github.com/oasis-app/oasis-service/internal/scheduler"
	"github.com/oasis-app/oasis-service/internal/service"
	"github.com/oasis-app/oasis-service/internal/utils/email"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}
	repo := repository.NewRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Fatalf("Failed to prepare schema: %v", err)
	}

	// Redis is optional; without it eligibility is recomputed on every call
	var eligibilityCache *cache.Cache
	if cfg.RedisAddr != "" {
		client, err := cache.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warnf("Redis unavailable, continuing without cache: %v", err)
		} else {
			defer client.Close()
			eligibilityCache = cache.New(client, cache.DefaultTTL, logger)
			logger.Infof("Connected to Redis at %s", cfg.RedisAddr)
		}
	}

	calc := eligibility.NewCalculator()
	if cfg.PovertyFeedURL != "" {
		feedCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		table, err := fpl.NewClient(cfg.PovertyFeedURL, logger).GetPovertyTable(feedCtx)
		cancel()
		if err != nil {
			logger.Warnf("Poverty guideline feed unavailable, using built-in table: %v", err)
		} else {
			calc = calc.WithPovertyTable(table)
		}
	}

	deps := service.Deps{
		Store:      repo,
		Cache:      eligibilityCache,
		Calculator: calc,
		Coach:      coach.New(llm.NewClient(cfg.LLM), logger),
		Logger:     logger,
		Config:     cfg,
	}
	if cfg.Directory.URL != "" {
		deps.Resources = resources.NewDirectory(cfg.Directory, &http.Client{Timeout: 10 * time.Second}, logger)
	}
	if cfg.SMTP.Host != "" {
		deps.Alerter = email.NewSender(cfg.SMTP, logger)
	}

	// Initialize layers
	svc, err := service.NewService(deps)
	if err != nil {
		logger.Fatalf("Failed to initialize service: %v", err)
	}
	h := handler.NewHandler(svc, logger)

	jobs := scheduler.New(logger, 30*time.Minute)
	if deps.Alerter != nil {
		if err := jobs.AddCrisisScan(cfg.CrisisScanSchedule, svc); err != nil {
			logger.Fatalf("Failed to schedule jobs: %v", err)
		}
	} else {
		logger.Warn("SMTP not configured, crisis alerts disabled")
	}
	jobs.Start()

	// Setup router
	r := mux.NewRouter()
	h.Routes(r, middleware.AuthMiddleware(cfg))

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
	jobs.Stop(shutdownCtx)
}
