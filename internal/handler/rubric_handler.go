package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-rubric-evaluator/internal/dto"
	"github.com/noah-isme/gema-rubric-evaluator/internal/rubric"
	"github.com/noah-isme/gema-rubric-evaluator/internal/service"
	"github.com/noah-isme/gema-rubric-evaluator/internal/utils"
)

// RubricHandler exposes the rubric catalogue.
type RubricHandler struct {
	service service.EvaluationService
	logger  zerolog.Logger
}

// NewRubricHandler constructs a rubric handler.
func NewRubricHandler(service service.EvaluationService, logger zerolog.Logger) *RubricHandler {
	return &RubricHandler{
		service: service,
		logger:  logger.With().Str("component", "rubric_handler").Logger(),
	}
}

// Register wires rubric routes.
func (h *RubricHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Get("/:id/schema", h.schema)
}

func (h *RubricHandler) list(c *fiber.Ctx) error {
	rubrics := h.service.Rubrics()
	summaries := make([]dto.RubricSummary, 0, len(rubrics))
	for _, r := range rubrics {
		summaries = append(summaries, dto.NewRubricSummary(r))
	}
	return utils.SendSuccess(c, "rubrics retrieved", summaries)
}

func (h *RubricHandler) get(c *fiber.Ctx) error {
	r, err := h.service.Rubric(c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}
	return utils.SendSuccess(c, "rubric retrieved", dto.NewRubricDetail(r))
}

// schema serves the raw JSON Schema document, not the response envelope.
func (h *RubricHandler) schema(c *fiber.Ctx) error {
	r, err := h.service.Rubric(c.Params("id"))
	if err != nil {
		return h.handleError(c, err)
	}

	document, err := r.SchemaDocument()
	if err != nil {
		return h.handleError(c, err)
	}

	c.Set(fiber.HeaderContentType, "application/schema+json")
	return c.Send(document)
}

func (h *RubricHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, rubric.ErrNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "rubric not found")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("rubric request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
