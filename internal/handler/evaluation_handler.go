package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-rubric-evaluator/internal/dto"
	"github.com/noah-isme/gema-rubric-evaluator/internal/rubric"
	"github.com/noah-isme/gema-rubric-evaluator/internal/service"
	"github.com/noah-isme/gema-rubric-evaluator/internal/utils"
	"github.com/noah-isme/gema-rubric-evaluator/pkg/ai"
)

// EvaluationHandler serves the JSON evaluate endpoint.
type EvaluationHandler struct {
	service   service.EvaluationService
	reader    *service.SubmissionReader
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewEvaluationHandler constructs an evaluation handler.
func NewEvaluationHandler(service service.EvaluationService, reader *service.SubmissionReader, validate *validator.Validate, logger zerolog.Logger) *EvaluationHandler {
	return &EvaluationHandler{
		service:   service,
		reader:    reader,
		validator: validate,
		logger:    logger.With().Str("component", "evaluation_handler").Logger(),
	}
}

// Register wires evaluation routes. guards run before the handler, e.g. the rate limiter.
func (h *EvaluationHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	handlers := append(append([]fiber.Handler{}, guards...), h.evaluate)
	router.Post("/:id/evaluate", handlers...)
}

func (h *EvaluationHandler) evaluate(c *fiber.Ctx) error {
	payload, err := readSubmission(c, h.reader)
	if err != nil {
		return h.handleError(c, err)
	}

	if err := h.validator.Struct(payload); err != nil {
		return h.handleError(c, err)
	}

	outcome, err := h.service.Evaluate(c.UserContext(), toServiceRequest(c, c.Params("id"), payload))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submission evaluated", dto.EvaluationResponse{
		RubricID:         outcome.Rubric.ID,
		Model:            outcome.Model,
		CredentialSource: string(outcome.CredentialSource),
		DurationMs:       outcome.Duration.Milliseconds(),
		Usage: dto.EvaluationUsage{
			PromptTokens:     outcome.Usage.PromptTokens,
			CompletionTokens: outcome.Usage.CompletionTokens,
			TotalTokens:      outcome.Usage.TotalTokens,
		},
		Payload: outcome.Payload,
		Report:  outcome.Report,
	})
}

func (h *EvaluationHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	if warning, ok := service.Warning(err); ok {
		return utils.Fail(c, fiber.StatusUnprocessableEntity, warning, fiber.Map{"warning": warning})
	}

	switch {
	case errors.Is(err, rubric.ErrNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "rubric not found")
	case errors.Is(err, service.ErrUploadTooLarge):
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrUnsupportedUpload):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	case errors.Is(err, ai.ErrEvaluationFailed):
		return utils.SendError(c, fiber.StatusBadGateway, "Evaluation failed: "+service.FailureDetail(err))
	case errors.Is(err, service.ErrEvaluatorUnavailable):
		return utils.SendError(c, fiber.StatusServiceUnavailable, "evaluator unavailable")
	case errors.Is(err, errInvalidPayload):
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("evaluation request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
