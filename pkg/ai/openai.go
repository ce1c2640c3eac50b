package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gema",
		Subsystem: "ai",
		Name:      "evaluation_duration_seconds",
		Help:      "Duration of AI evaluation requests",
	}, []string{"model"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gema",
		Subsystem: "ai",
		Name:      "evaluation_failures_total",
		Help:      "Number of AI evaluation failures",
	}, []string{"model"})
)

// DefaultModel is used when neither the session nor the config names a model.
const DefaultModel = "gpt-5-nano"

// OpenAIConfig defines configuration options for the OpenAI evaluator.
type OpenAIConfig struct {
	BaseURL             string
	DefaultModel        string
	MaxCompletionTokens int
	Temperature         float32
	JSONMode            bool
	Timeout             time.Duration
	Extractors          []Extractor
	Logger              zerolog.Logger
}

// OpenAIEvaluator implements Evaluator against the OpenAI chat completion API.
// The API key comes from the session of each call, so one evaluator serves
// every rubric and credential policy.
type OpenAIEvaluator struct {
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIEvaluator builds a new evaluator using the provided configuration.
func NewOpenAIEvaluator(cfg OpenAIConfig) (*OpenAIEvaluator, error) {
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = DefaultModel
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("openai timeout must not be negative")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if len(cfg.Extractors) == 0 {
		cfg.Extractors = DefaultExtractors
	}

	tracer := otel.Tracer("github.com/noah-isme/gema-rubric-evaluator/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &OpenAIEvaluator{
		cfg:    cfg,
		tracer: tracer,
		logger: logger.With().Str("component", "openai_evaluator").Logger(),
	}, nil
}

// Evaluate sends the two-message exchange to OpenAI and extracts the text payload.
func (e *OpenAIEvaluator) Evaluate(parent context.Context, session Session, messages []Message) (Response, error) {
	apiKey := strings.TrimSpace(session.APIKey)
	if apiKey == "" {
		return Response{}, ErrMissingCredential
	}

	model := strings.TrimSpace(session.Model)
	if model == "" {
		model = e.cfg.DefaultModel
	}

	ctx, span := e.tracer.Start(parent, "openai.evaluate", trace.WithAttributes(
		attribute.String("model", model),
		attribute.Int("messages", len(messages)),
	))
	defer span.End()

	request := openai.ChatCompletionRequest{
		Model:               model,
		Messages:            toChatMessages(messages),
		MaxCompletionTokens: e.cfg.MaxCompletionTokens,
		Temperature:         e.cfg.Temperature,
	}
	if e.cfg.JSONMode {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	start := time.Now()
	resp, err := e.client(apiKey).CreateChatCompletion(ctx, request)
	duration := time.Since(start)
	aiDuration.WithLabelValues(model).Observe(duration.Seconds())
	if err != nil {
		aiFailures.WithLabelValues(model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Response{}, fmt.Errorf("%w: %w", ErrEvaluationFailed, err)
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		aiFailures.WithLabelValues(model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Response{}, fmt.Errorf("%w: encode response: %w", ErrEvaluationFailed, err)
	}

	text, extractor := ExtractPayload(raw, e.cfg.Extractors...)
	span.SetAttributes(attribute.String("extractor", extractor))

	e.logger.Debug().
		Str("model", model).
		Str("extractor", extractor).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Dur("duration", duration).
		Msg("openai evaluation completed")

	return Response{
		Text:      text,
		Extractor: extractor,
		Model:     model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func (e *OpenAIEvaluator) client(apiKey string) *openai.Client {
	config := openai.DefaultConfig(apiKey)
	if e.cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(e.cfg.BaseURL, "/")
	}
	config.HTTPClient = &http.Client{Timeout: e.cfg.Timeout}
	return openai.NewClientWithConfig(config)
}

func toChatMessages(messages []Message) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, message := range messages {
		role := openai.ChatMessageRoleUser
		if message.Role == RoleDeveloper {
			role = openai.ChatMessageRoleDeveloper
		}
		result = append(result, openai.ChatCompletionMessage{
			Role:    role,
			Content: message.Content,
		})
	}
	return result
}
