package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-rubric-evaluator/internal/credential"
	"github.com/noah-isme/gema-rubric-evaluator/internal/observability"
	"github.com/noah-isme/gema-rubric-evaluator/internal/report"
	"github.com/noah-isme/gema-rubric-evaluator/internal/rubric"
	"github.com/noah-isme/gema-rubric-evaluator/pkg/ai"
)

// EmptySubmissionWarning is shown when the submission is blank.
const EmptySubmissionWarning = "Please paste your submission text before evaluating."

// ErrEmptySubmission indicates the submission text is blank.
var ErrEmptySubmission = errors.New("submission text is empty")

// ErrMissingCredential indicates no credential source of the rubric holds a key.
var ErrMissingCredential = errors.New("no openai api key available")

// ErrEvaluatorUnavailable indicates the AI evaluator is not configured.
var ErrEvaluatorUnavailable = errors.New("evaluator unavailable")

// InputError is a problem with the submission detected before any remote
// call. Warning is the message shown to the user.
type InputError struct {
	Err     error
	Warning string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Warning)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// EvaluationRequest is one submission for one rubric.
type EvaluationRequest struct {
	RubricID      string
	Submission    string
	Model         string
	ExplicitKey   string
	CorrelationID string
}

// EvaluationOutcome is the result of a completed remote call.
type EvaluationOutcome struct {
	Rubric           rubric.Rubric
	Model            string
	CredentialSource credential.Source
	Payload          string
	Extractor        string
	Usage            ai.Usage
	Duration         time.Duration
	Report           report.Report
}

// EvaluationService runs the rubric evaluation pipeline.
type EvaluationService interface {
	Rubrics() []rubric.Rubric
	Rubric(id string) (rubric.Rubric, error)
	Evaluate(ctx context.Context, request EvaluationRequest) (EvaluationOutcome, error)
}

// EvaluationConfig holds the ambient credential and model configuration of
// the process.
type EvaluationConfig struct {
	SessionSecret  string
	EnvironmentKey func() string
	DefaultModel   string
}

type evaluationService struct {
	rubrics   *rubric.Registry
	evaluator ai.Evaluator
	builder   *report.Builder
	events    EventPublisher
	config    EvaluationConfig
	tracer    trace.Tracer
	logger    zerolog.Logger
}

// NewEvaluationService constructs the evaluation pipeline. events may be nil.
func NewEvaluationService(registry *rubric.Registry, evaluator ai.Evaluator, builder *report.Builder, events EventPublisher, cfg EvaluationConfig, logger zerolog.Logger) EvaluationService {
	if cfg.EnvironmentKey == nil {
		cfg.EnvironmentKey = func() string { return "" }
	}
	if builder == nil {
		builder = report.NewBuilder(nil)
	}

	return &evaluationService{
		rubrics:   registry,
		evaluator: evaluator,
		builder:   builder,
		events:    events,
		config:    cfg,
		tracer:    otel.Tracer("github.com/noah-isme/gema-rubric-evaluator/internal/service/evaluation"),
		logger:    logger.With().Str("component", "evaluation_service").Logger(),
	}
}

func (s *evaluationService) Rubrics() []rubric.Rubric {
	return s.rubrics.List()
}

func (s *evaluationService) Rubric(id string) (rubric.Rubric, error) {
	return s.rubrics.Get(id)
}

func (s *evaluationService) Evaluate(parent context.Context, request EvaluationRequest) (EvaluationOutcome, error) {
	r, err := s.rubrics.Get(request.RubricID)
	if err != nil {
		return EvaluationOutcome{}, err
	}

	logger := s.logger.With().Str("rubric", r.ID).Logger()
	if request.CorrelationID != "" {
		logger = logger.With().Str("correlation_id", request.CorrelationID).Logger()
	}

	if strings.TrimSpace(request.Submission) == "" {
		observability.Evaluations().WithLabelValues(r.ID, "rejected").Inc()
		return EvaluationOutcome{}, &InputError{Err: ErrEmptySubmission, Warning: EmptySubmissionWarning}
	}

	resolved, ok := r.Credentials.Resolve(credential.Values{
		Explicit:    request.ExplicitKey,
		Session:     s.config.SessionSecret,
		Environment: s.config.EnvironmentKey(),
	})
	if !ok {
		observability.Evaluations().WithLabelValues(r.ID, "rejected").Inc()
		logger.Warn().Str("credential_policy", r.Credentials.String()).Msg("no credential available for evaluation")
		return EvaluationOutcome{}, &InputError{Err: ErrMissingCredential, Warning: r.CredentialWarning()}
	}

	if s.evaluator == nil {
		return EvaluationOutcome{}, ErrEvaluatorUnavailable
	}

	model := s.selectModel(r, request.Model)

	ctx, span := s.tracer.Start(parent, "rubric.evaluate", trace.WithAttributes(
		attribute.String("rubric", r.ID),
		attribute.String("model", model),
		attribute.String("credential_source", string(resolved.Source)),
	))
	defer span.End()

	observability.SubmissionCharacters().WithLabelValues(r.ID).Observe(float64(utf8.RuneCountInString(request.Submission)))

	start := time.Now()
	response, err := s.evaluator.Evaluate(ctx, ai.Session{APIKey: resolved.Key, Model: model}, AssemblePrompt(r, request.Submission))
	duration := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, ai.ErrMissingCredential) {
			observability.Evaluations().WithLabelValues(r.ID, "rejected").Inc()
			return EvaluationOutcome{}, &InputError{Err: ErrMissingCredential, Warning: r.CredentialWarning()}
		}
		observability.Evaluations().WithLabelValues(r.ID, "error").Inc()
		logger.Error().Err(err).Str("model", model).Dur("duration", duration).Msg("evaluation call failed")
		if !errors.Is(err, ai.ErrEvaluationFailed) {
			err = fmt.Errorf("%w: %w", ai.ErrEvaluationFailed, err)
		}
		return EvaluationOutcome{}, err
	}

	built := s.builder.Build(r, response.Text)
	outcome := outcomeLabel(built)
	observability.Evaluations().WithLabelValues(r.ID, outcome).Inc()
	span.SetAttributes(
		attribute.String("report.mode", string(built.Mode)),
		attribute.String("report.grade", string(built.Grade.Status)),
	)

	logger.Info().
		Str("model", model).
		Str("credential_source", string(resolved.Source)).
		Str("extractor", response.Extractor).
		Str("mode", string(built.Mode)).
		Str("grade", string(built.Grade.Status)).
		Bool("grade_consistent", built.GradeConsistent).
		Int("schema_issues", len(built.SchemaIssues)).
		Dur("duration", duration).
		Msg("submission evaluated")

	if !built.GradeConsistent && built.Mode == report.ModeStructured {
		logger.Warn().
			Str("final_grade", built.Grade.Raw).
			Str("derived_grade", built.DerivedGrade).
			Msg("model grade differs from criteria")
	}

	s.publish(ctx, logger, EvaluationEvent{
		RubricID:         r.ID,
		Model:            model,
		CredentialSource: string(resolved.Source),
		Mode:             string(built.Mode),
		FinalGrade:       string(built.Grade.Status),
		DerivedGrade:     built.DerivedGrade,
		GradeConsistent:  built.GradeConsistent,
		SchemaIssues:     len(built.SchemaIssues),
		DurationMs:       duration.Milliseconds(),
		CorrelationID:    request.CorrelationID,
		CompletedAt:      time.Now().UTC(),
	})

	return EvaluationOutcome{
		Rubric:           r,
		Model:            model,
		CredentialSource: resolved.Source,
		Payload:          response.Text,
		Extractor:        response.Extractor,
		Usage:            response.Usage,
		Duration:         duration,
		Report:           built,
	}, nil
}

func (s *evaluationService) selectModel(r rubric.Rubric, requested string) string {
	if model := strings.TrimSpace(requested); model != "" {
		return model
	}
	if r.DefaultModel != "" {
		return r.DefaultModel
	}
	return s.config.DefaultModel
}

func (s *evaluationService) publish(ctx context.Context, logger zerolog.Logger, event EvaluationEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		logger.Warn().Err(err).Msg("failed to publish evaluation event")
	}
}

func outcomeLabel(built report.Report) string {
	if built.Mode == report.ModeRawText {
		return string(report.ModeRawText)
	}
	return string(built.Grade.Status)
}

// FailureDetail returns the cause of an evaluation failure without the
// sentinel prefix, for "Evaluation failed: <detail>" messages.
func FailureDetail(err error) string {
	if err == nil {
		return ""
	}
	detail := err.Error()
	prefix := ai.ErrEvaluationFailed.Error() + ": "
	for strings.HasPrefix(detail, prefix) {
		detail = strings.TrimPrefix(detail, prefix)
	}
	if detail == "" || detail == ai.ErrEvaluationFailed.Error() {
		return "unknown error"
	}
	return detail
}

// Warning returns the user-facing warning of an input error.
func Warning(err error) (string, bool) {
	var inputErr *InputError
	if errors.As(err, &inputErr) {
		return inputErr.Warning, true
	}
	return "", false
}
