package main

import (
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/socialgram/backend/internal/router"
	"github.com/socialgram/backend/pkg/config"
)

func main() {
	log := logrus.New()

	// Load configuration
	cfg := config.Load()
	if cfg.Env == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	// Initialize database connections
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Setup global middleware, routes and dependencies
	router.SetupMiddleware(e, log)
	router.SetupRoutes(e, db.Postgres, db.Redis, cfg, log)

	// Start server
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
