package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/coursemarket/backend/docs"
	"github.com/coursemarket/backend/internal/auth/middleware"
	"github.com/coursemarket/backend/internal/auth/service"
	"github.com/coursemarket/backend/internal/cache"
	"github.com/coursemarket/backend/internal/config"
	"github.com/coursemarket/backend/internal/handlers"
	"github.com/coursemarket/backend/internal/logger"
	loggerMiddleware "github.com/coursemarket/backend/internal/logger/middleware"
	sharedMiddleware "github.com/coursemarket/backend/internal/middleware"
	"github.com/coursemarket/backend/internal/models"
	"github.com/coursemarket/backend/internal/payments"
	"github.com/coursemarket/backend/internal/repositories"
	"github.com/coursemarket/backend/internal/services"
	"github.com/coursemarket/backend/internal/storage"
	"github.com/coursemarket/backend/internal/tasks"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/hibiken/asynq"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// @title Course Marketplace API
// @version 1.0
// @description API for the course marketplace: courses, reviews, enrollments, payments, ads and media

// @host localhost:8080
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting Course Marketplace API")

	// Connect to database
	db, err := connectDB(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := runMigrations(db); err != nil {
		logger.Logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Connect to Redis; the cache degrades to a no-op when Redis is down
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	var responseCache services.Cache = cache.NewRedisCache(rdb, cfg.Cache.TTL)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Logger.Warn("Redis unavailable, response cache disabled", zap.Error(err))
		responseCache = cache.NewNoopCache()
	}

	// Create Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()
	dispatcher := tasks.NewDispatcher(asynqClient, logger.Logger)

	if cfg.Payment.SecretKey == "" {
		logger.Logger.Warn("STRIPE_SECRET_KEY is not set, paid enrollments will fail")
	}
	gateway := payments.NewStripeGateway(cfg.Payment.SecretKey, nil)

	// Initialize JWT token generator
	tokenGenerator := service.NewTokenGenerator(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	userTokenRepo := repositories.NewUserTokenRepository(db)
	courseRepo := repositories.NewCourseRepository(db)
	reviewRepo := repositories.NewReviewRepository(db)
	enrollmentRepo := repositories.NewEnrollmentRepository(db)
	adRepo := repositories.NewAdRepository(db)
	mediaRepo := repositories.NewMediaRepository(db)

	// Initialize services
	authService := services.NewAuthService(userRepo, userTokenRepo, tokenGenerator, logger.Logger)
	profileService := services.NewProfileService(userRepo, userTokenRepo, logger.Logger)
	courseService := services.NewCourseService(courseRepo, responseCache, logger.Logger)
	ratingService := services.NewRatingService(reviewRepo, courseRepo, logger.Logger)
	reviewService := services.NewReviewService(reviewRepo, courseRepo, ratingService, dispatcher, logger.Logger)
	enrollmentService := services.NewEnrollmentService(enrollmentRepo, courseRepo, gateway, dispatcher, cfg.Payment.Currency, logger.Logger)
	paymentService := services.NewPaymentService(courseRepo, enrollmentRepo, gateway, cfg.Payment.Currency, cfg.Payment.PublishableKey, logger.Logger)
	adService := services.NewAdService(adRepo, responseCache, logger.Logger)
	mediaService := services.NewMediaService(mediaRepo, storage.NewLocalStorage(cfg.Media.BasePath), cfg.Media.BaseURL, logger.Logger)

	// Initialize auth middleware
	authMiddleware := middleware.AuthMiddleware(tokenGenerator)
	adminMiddleware := middleware.RoleMiddleware(tokenGenerator, int(models.RoleAdmin))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, cfg.JWT.AccessTokenExpiry, cfg.JWT.RefreshTokenExpiry, cfg.Server.SecureCookies, logger.Logger)
	profileHandler := handlers.NewProfileHandler(profileService, authMiddleware, logger.Logger)
	courseHandler := handlers.NewCourseHandler(courseService, adminMiddleware, logger.Logger)
	reviewHandler := handlers.NewReviewHandler(reviewService, authMiddleware, logger.Logger)
	enrollmentHandler := handlers.NewEnrollmentHandler(enrollmentService, authMiddleware, logger.Logger)
	paymentHandler := handlers.NewPaymentHandler(paymentService, authMiddleware, logger.Logger)
	adHandler := handlers.NewAdHandler(adService, adminMiddleware, logger.Logger)
	mediaHandler := handlers.NewMediaHandler(mediaService, adminMiddleware, logger.Logger)

	// Setup router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(sharedMiddleware.RequestIDMiddleware)
	r.Use(loggerMiddleware.LoggerMiddleware(logger.Logger))
	r.Use(sharedMiddleware.RecoveryMiddleware(logger.Logger))
	r.Use(sharedMiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(httprate.LimitByIP(100, time.Minute))
	r.Use(sharedMiddleware.BodyLimitMiddleware(1<<20, 10<<20)) // 1MB JSON, 10MB uploads

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://localhost:%d/swagger/doc.json", cfg.Server.Port)),
	))

	// Uploaded images are served outside the API prefix
	mediaHandler.RegisterPublicRoutes(r)

	r.Route("/api", func(r chi.Router) {
		authHandler.RegisterRoutes(r)
		profileHandler.RegisterRoutes(r)
		courseHandler.RegisterRoutes(r)
		reviewHandler.RegisterRoutes(r)
		enrollmentHandler.RegisterRoutes(r)
		paymentHandler.RegisterRoutes(r)
		adHandler.RegisterRoutes(r)
		mediaHandler.RegisterRoutes(r)
	})

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Logger.Info("Server exited")
}

// connectDB connects to the database
func connectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// runMigrations applies the schema from the migrations directory
func runMigrations(db *sql.DB) error {
	driver, err := mysql.WithInstance(db, &mysql.Config{
		MigrationsTable: "marketplace_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Support running from the repository root or from cmd/api
	migrationPath := "file://migrations"
	if _, err := os.Stat("migrations"); os.IsNotExist(err) {
		if _, err := os.Stat("../../migrations"); err == nil {
			migrationPath = "file://../../migrations"
		}
	}

	m, err := migrate.NewWithDatabaseInstance(migrationPath, "mysql", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
