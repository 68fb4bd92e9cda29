package handler

import (
	"log"
	"net/http"

	"github.com/arnavshah/osc-matching-api/pkg/auth"
	"github.com/arnavshah/osc-matching-api/pkg/config"
	"github.com/arnavshah/osc-matching-api/pkg/database"
	"github.com/arnavshah/osc-matching-api/pkg/handlers"
	"github.com/arnavshah/osc-matching-api/pkg/logging"
	"github.com/arnavshah/osc-matching-api/pkg/router"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var r http.Handler

func init() {
	// Load .env if it exists (for local testing with vercel dev)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := logging.New(cfg.LogLevel)

	db, err := database.Open(cfg.DatabaseURL, cfg.DataPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}

	a := auth.New(cfg.JWTSecret, cfg.MasterSecret)
	if _, err := a.EnsureAdminExists(db, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		logger.Warn("admin bootstrap failed", "err", err)
	}

	gin.SetMode(gin.ReleaseMode)
	r = router.New(handlers.New(db, a, logger, cfg.Weights))
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	r.ServeHTTP(w, req)
}
