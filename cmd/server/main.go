package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/arnavshah/osc-matching-api/pkg/auth"
	"github.com/arnavshah/osc-matching-api/pkg/config"
	"github.com/arnavshah/osc-matching-api/pkg/database"
	"github.com/arnavshah/osc-matching-api/pkg/handlers"
	"github.com/arnavshah/osc-matching-api/pkg/logging"
	"github.com/arnavshah/osc-matching-api/pkg/router"
	"github.com/arnavshah/osc-matching-api/pkg/shutdown"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env if it exists
	// Try root and parent directories for flexibility
	envPaths := []string{".env", "../.env", "../../.env"}
	for _, p := range envPaths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			break
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logging.New(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	if cfg.GinMode == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg.DatabaseURL, cfg.DataPath)
	if err != nil {
		logger.Error("failed to open database", "err", err)
		os.Exit(1)
	}

	a := auth.New(cfg.JWTSecret, cfg.MasterSecret)
	created, err := a.EnsureAdminExists(db, cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		logger.Error("failed to ensure admin user", "err", err)
		os.Exit(1)
	}
	if created {
		logger.Info("default admin user created", "username", cfg.AdminUsername)
	}

	h := handlers.New(db, a, logger, cfg.Weights)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.New(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go shutdown.Graceful(
		[]os.Signal{os.Interrupt, syscall.SIGTERM},
		srv,
		10*time.Second,
		logger,
	)

	logger.Info("server starting", "port", cfg.Port, "weights", cfg.Weights)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
