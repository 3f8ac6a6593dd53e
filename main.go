package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/luct-edu/lecture-reporting-service/internal/auth"
	"github.com/luct-edu/lecture-reporting-service/internal/cache"
	"github.com/luct-edu/lecture-reporting-service/internal/config"
	"github.com/luct-edu/lecture-reporting-service/internal/events"
	"github.com/luct-edu/lecture-reporting-service/internal/handlers"
	"github.com/luct-edu/lecture-reporting-service/internal/metrics"
	"github.com/luct-edu/lecture-reporting-service/internal/repositories"
	"github.com/luct-edu/lecture-reporting-service/internal/repositories/casdoor"
	"github.com/luct-edu/lecture-reporting-service/internal/repositories/postgres"
	"github.com/luct-edu/lecture-reporting-service/internal/services"
	"github.com/luct-edu/lecture-reporting-service/internal/utils"
	"github.com/luct-edu/lecture-reporting-service/internal/validator"
	"github.com/luct-edu/lecture-reporting-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, caching and shared rate limits disabled", "error", err)
			redisClient = nil
		}
	}
	cacheManager := cache.NewCacheManager(redisClient)

	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
		Cache:       cacheManager,
	})
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}
	repo := repoManager.GetRepository()

	hasher := auth.NewBcryptHasher(0)
	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiration)

	seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := pkg.SeedAdmin(seedCtx, repo.User(), hasher, cfg, slogLogger); err != nil {
		logger.Error("Failed to seed admin account", "error", err)
	}
	seedCancel()

	// Events: Kafka when brokers are configured, in-process channel otherwise
	publisher, err := events.NewEventPublisher(cfg.KafkaBrokers, cfg.KafkaTopicPrefix, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize event publisher: %v", err)
	}
	recorded := events.NewRecordingPublisher(publisher, repo.DomainEvent(), slogLogger)

	m := metrics.New()

	var identity repositories.IdentityProvider
	if cfg.Casdoor.Enabled() {
		identity = casdoor.NewIdentityCasdoor(casdoor.CasdoorConfig{
			Endpoint:         cfg.Casdoor.Endpoint,
			ClientID:         cfg.Casdoor.ClientID,
			ClientSecret:     cfg.Casdoor.ClientSecret,
			Certificate:      cfg.Casdoor.Cert,
			OrganizationName: cfg.Casdoor.Organization,
			ApplicationName:  cfg.Casdoor.Application,
		})
		logger.Info("Casdoor single sign-on enabled", "endpoint", cfg.Casdoor.Endpoint)
	}

	serviceManager := services.NewServiceManager(services.Dependencies{
		Repo:      repo,
		Logger:    slogLogger,
		Validator: validator.New(validator.WithMaxWeek(cfg.ReportMaxWeek)),
		Tokens:    tokens,
		Hasher:    hasher,
		Identity:  identity,
		Publisher: recorded,
		Metrics:   m,
		Cache:     cacheManager,
	})
	if err := serviceManager.Initialize(context.Background()); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	handlers.SetupMiddleware(router, logger, handlers.MiddlewareConfig{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Metrics:        m,
		Limiter:        handlers.NewRateLimiter(redisClient, "global", cfg.RateLimitPerMinute, time.Minute),
	})

	handlerManager := handlers.NewHandlerManager(serviceManager, logger, handlers.RouterOptions{
		LoginLimiter: handlers.NewRateLimiter(redisClient, "login", cfg.LoginRateLimitPerMinute, time.Minute),
		Metrics:      m,
		Cache:        cacheManager,
	})
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// block until SIGINT/SIGTERM, then drain
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Closes the event publisher
	if err := serviceManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}

	// Closes the database and Redis
	if err := repoManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to close connections", "error", err)
	}

	logger.Info("Server exited")
}
