package router

import (
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/socialgram/backend/internal/handlers"
	"github.com/socialgram/backend/internal/middleware"
	"github.com/socialgram/backend/internal/models"
	"github.com/socialgram/backend/internal/notification"
	"github.com/socialgram/backend/internal/repositories"
	"github.com/socialgram/backend/internal/session"
	"github.com/socialgram/backend/pkg/config"
	"github.com/socialgram/backend/validators"
)

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo, log *logrus.Logger) {
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	e.Use(eMiddleware.RequestLoggerWithConfig(eMiddleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v eMiddleware.RequestLoggerValues) error {
			log.WithFields(logrus.Fields{
				"method": v.Method,
				"uri":    v.URI,
				"status": v.Status,
			}).Info("request")
			return nil
		},
	}))
	log.Info("Global middleware configured.")
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, pgdb *gorm.DB, rdb *redis.Client, cfg *config.Config, log *logrus.Logger) {
	err := pgdb.AutoMigrate(
		&models.User{},
		&models.Relation{},
	)
	if err != nil {
		log.Fatalf("Failed to auto migrate models: %v", err)
	}
	log.Info("PostgreSQL auto-migrations completed for all models.")

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	v := validators.NewValidator()
	e.Validator = v

	// --- Repositories and collaborators ---
	userRepo := repositories.NewPostgresUserRepository(pgdb)
	relationRepo := repositories.NewPostgresRelationRepository(pgdb)
	sessions := session.NewRedisStore(rdb)

	var sender notification.Sender
	if cfg.SMSAPIKey != "" {
		sender = notification.NewKavenegarSender(cfg.SMSAPIKey, cfg.SMSSender)
	} else {
		sender = notification.NewLogSender(log)
	}

	// --- Unprotected routes for authentication and password reset ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(userRepo, v, cfg.JWTSecret)
	authHandler.RegisterAuthRoutes(authGroup)

	resetHandler := handlers.NewPasswordResetHandler(userRepo, sessions, sender, v, log)
	resetHandler.RegisterResetRoutes(authGroup)
	log.Info("Auth routes configured.")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuth(cfg.JWTSecret))

	userHandler := handlers.NewUserHandler(userRepo, relationRepo, v, cfg.UploadDir, log)
	userHandler.RegisterProfileRoutes(api)
	userHandler.RegisterUserRoutes(api)
	log.Info("User routes configured.")

	relationHandler := handlers.NewRelationHandler(relationRepo, userRepo)
	relationHandler.RegisterRelationRoutes(api)
	log.Info("Relation routes configured.")

	log.Info("All routes configured.")
}
