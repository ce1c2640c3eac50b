package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-rubric-evaluator/internal/config"
	"github.com/noah-isme/gema-rubric-evaluator/internal/report"
	"github.com/noah-isme/gema-rubric-evaluator/internal/service"
	"github.com/noah-isme/gema-rubric-evaluator/pkg/ai"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	root := newRootCommand(loadService)
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		printError(root.ErrOrStderr(), err)
	}
	os.Exit(exitCode(err))
}

// loadService builds the evaluation pipeline from the process configuration.
func loadService() (service.EvaluationService, *service.SubmissionReader, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: color.NoColor}).
		With().Timestamp().Logger().
		Level(cliLogLevel(cfg.LogLevel))

	registry := cfg.Rubrics()
	schemaValidator, err := report.NewValidator(registry.List()...)
	if err != nil {
		return nil, nil, fmt.Errorf("compile rubric schemas: %w", err)
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
		return nil, nil, fmt.Errorf("create openai evaluator: %w", err)
	}

	svc := service.NewEvaluationService(registry, evaluator, report.NewBuilder(schemaValidator), nil, service.EvaluationConfig{
		SessionSecret:  cfg.SessionSecret,
		EnvironmentKey: cfg.EnvironmentAPIKey,
		DefaultModel:   cfg.DefaultModel,
	}, logger)

	return svc, service.NewSubmissionReader(cfg.UploadMaxBytes), nil
}

// The CLI prints reports on stdout, so routine info logs stay quiet.
func cliLogLevel(configured zerolog.Level) zerolog.Level {
	if configured < zerolog.WarnLevel {
		return zerolog.WarnLevel
	}
	return configured
}

// Exit codes: 2 for input problems detected before any remote call, 1 for
// evaluation failures and everything else.
const (
	exitOK           = 0
	exitFailure      = 1
	exitInvalidInput = 2
)

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var usage *usageError
	if _, ok := service.Warning(err); ok || errors.As(err, &usage) {
		return exitInvalidInput
	}
	switch {
	case errors.Is(err, service.ErrUploadTooLarge), errors.Is(err, service.ErrUnsupportedUpload):
		return exitInvalidInput
	default:
		return exitFailure
	}
}
