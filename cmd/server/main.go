package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/classgrade/grading-engine/internal/ai"
	"github.com/classgrade/grading-engine/internal/cache"
	"github.com/classgrade/grading-engine/internal/config"
	"github.com/classgrade/grading-engine/internal/events"
	"github.com/classgrade/grading-engine/internal/handlers"
	"github.com/classgrade/grading-engine/internal/models"
	"github.com/classgrade/grading-engine/internal/repositories/postgres"
	"github.com/classgrade/grading-engine/internal/services"
	"github.com/classgrade/grading-engine/internal/utils"
	"github.com/classgrade/grading-engine/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		os.Exit(1)
	}

	var logger utils.Logger
	if cfg.Environment == "production" {
		logger = utils.NewDefaultLogger()
		gin.SetMode(gin.ReleaseMode)
	} else {
		logger = utils.NewDevelopmentLogger()
	}

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := postgres.AutoMigrate(db); err != nil {
		logger.Error("Failed to migrate database schema", "error", err)
		os.Exit(1)
	}
	repo := postgres.NewRepository(db)

	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	cacheService := cache.NewRedisCache(redisClient, logger)

	var publisher events.EventPublisher
	kafkaPublisher, err := events.NewKafkaEventPublisher(events.PublisherConfig{
		KafkaBrokers: cfg.KafkaBrokers,
		TopicName:    cfg.EventsTopic,
		Logger:       utils.ToSlogLogger(logger),
	})
	if err != nil {
		// Event publishing is best-effort; grading works without it.
		logger.Warn("Kafka unavailable, grading events disabled", "error", err)
	} else {
		publisher = kafkaPublisher
		defer kafkaPublisher.Close()
	}

	var semantic ai.SemanticGrader
	if cfg.AIAPIKey != "" {
		client := ai.NewClient(ai.ClientConfig{
			BaseURL:    cfg.AIBaseURL,
			APIKey:     cfg.AIAPIKey,
			Model:      cfg.AIModel,
			Timeout:    cfg.AITimeout,
			MaxRetries: cfg.AIMaxRetries,
		}, logger)
		semantic = ai.NewCachedGrader(client, cacheService, logger)
	} else {
		logger.Warn("AI grading disabled: no API key configured")
	}

	evaluator := services.NewEvaluator(semantic, logger)
	gradingService := services.NewGradingService(evaluator, semantic, publisher, logger)
	analyticsService := services.NewAnalyticsService(services.AnalyticsOptions{
		LeaderboardSize: cfg.LeaderboardSize,
		MistakeClusters: cfg.MistakeClusters,
	}, publisher, logger)
	exportService := services.NewExportService(logger)

	validator := utils.NewValidator()

	defaults := models.GradingConfig{
		Strictness:          cfg.Strictness,
		EnablePartialCredit: cfg.PartialCredit,
		AIGradingEnabled:    cfg.AIGradingEnabled && semantic != nil,
		BaseTolerance:       cfg.BaseTolerance,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))

	handlerManager := handlers.NewHandlerManager(
		gradingService, analyticsService, exportService,
		repo, validator, defaults, cfg.BatchConcurrency, logger)
	handlerManager.SetupRoutes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Starting grading engine", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", "error", err)
	}
}
