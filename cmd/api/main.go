package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-rubric-evaluator/internal/config"
	"github.com/noah-isme/gema-rubric-evaluator/internal/database"
	"github.com/noah-isme/gema-rubric-evaluator/internal/handler"
	"github.com/noah-isme/gema-rubric-evaluator/internal/middleware"
	"github.com/noah-isme/gema-rubric-evaluator/internal/report"
	"github.com/noah-isme/gema-rubric-evaluator/internal/router"
	"github.com/noah-isme/gema-rubric-evaluator/internal/service"
	"github.com/noah-isme/gema-rubric-evaluator/pkg/ai"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger = logger.Level(cfg.LogLevel)

	registry := cfg.Rubrics()
	schemaValidator, err := report.NewValidator(registry.List()...)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to compile rubric schemas")
	}

	evaluator, err := ai.NewOpenAIEvaluator(ai.OpenAIConfig{
		BaseURL:             cfg.OpenAIBaseURL,
		DefaultModel:        cfg.DefaultModel,
		MaxCompletionTokens: cfg.OpenAIMaxCompletionTokens,
		JSONMode:            cfg.OpenAIJSONMode,
		Timeout:             cfg.OpenAITimeout,
		Logger:              logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create openai evaluator")
	}

	var events service.EventPublisher
	if cfg.NATSURL != "" {
		conn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer conn.Drain()
		events = service.NewNATSEventPublisher(conn, cfg.EventsSubjectBase)
	}

	var limiterStorage fiber.Storage
	if cfg.RedisURL != "" {
		redisClient, err := database.ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		storage := database.NewRedisStorage(redisClient, "gema:rubric:limiter:")
		defer storage.Close()
		limiterStorage = storage
	}

	if cfg.SessionSecret == "" {
		logger.Info().Str("secrets_file", cfg.SecretsFile).Msg("no session secret configured")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	reader := service.NewSubmissionReader(cfg.UploadMaxBytes)

	evaluationService := service.NewEvaluationService(registry, evaluator, report.NewBuilder(schemaValidator), events, service.EvaluationConfig{
		SessionSecret:  cfg.SessionSecret,
		EnvironmentKey: cfg.EnvironmentAPIKey,
		DefaultModel:   cfg.DefaultModel,
	}, logger)

	rubricHandler := handler.NewRubricHandler(evaluationService, logger)
	evaluationHandler := handler.NewEvaluationHandler(evaluationService, reader, validate, logger)
	webHandler := handler.NewWebHandler(evaluationService, reader, validate, report.NewHTMLRenderer(), handler.WebConfig{
		SessionSecretConfigured: cfg.SessionSecret != "",
		MaxUploadBytes:          cfg.UploadMaxBytes,
		EnvironmentKey:          cfg.EnvironmentAPIKey,
	}, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.OpenAITimeout + 30*time.Second,
		BodyLimit:    int(cfg.UploadMaxBytes) + 64*1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AccessLog: cfg.AppEnv == "development"})

	var jwtMiddleware fiber.Handler
	if cfg.JWTSecret != "" {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}

	router.Register(app, cfg, router.Dependencies{
		RubricHandler:     rubricHandler,
		EvaluationHandler: evaluationHandler,
		WebHandler:        webHandler,
		JWTMiddleware:     jwtMiddleware,
		RateLimiter: middleware.RateLimit(middleware.RateLimitConfig{
			Identifier: "evaluate",
			Max:        cfg.RateLimitMax,
			Window:     cfg.RateLimitWindow,
			Storage:    limiterStorage,
		}),
		WebRateLimiter: middleware.RateLimit(middleware.RateLimitConfig{
			Identifier:   "evaluate-web",
			Max:          cfg.RateLimitMax,
			Window:       cfg.RateLimitWindow,
			Storage:      limiterStorage,
			LimitReached: webHandler.LimitReached,
		}),
		RubricCount: len(registry.List()),
	})

	go func() {
		logger.Info().Str("address", cfg.HTTPAddress()).Int("rubrics", len(registry.List())).Msg("starting rubric evaluator")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
