package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-rubric-evaluator/internal/dto"
	"github.com/noah-isme/gema-rubric-evaluator/internal/middleware"
	"github.com/noah-isme/gema-rubric-evaluator/internal/service"
)

var errInvalidPayload = errors.New("invalid payload")

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEMultipartForm)
}

// readSubmission parses a JSON, urlencoded or multipart evaluation request.
// An uploaded file takes the place of the submission field.
func readSubmission(c *fiber.Ctx, reader *service.SubmissionReader) (dto.EvaluationRequest, error) {
	var payload dto.EvaluationRequest
	if err := c.BodyParser(&payload); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return payload, fmt.Errorf("%w: %v", errInvalidPayload, err)
	}

	if isMultipart(c) {
		if file, err := c.FormFile("file"); err == nil && file != nil {
			text, err := reader.ReadFile(file)
			if err != nil {
				return payload, err
			}
			payload.Submission = text
		}
	}

	if strings.TrimSpace(payload.APIKey) == "" {
		payload.APIKey = c.Get(middleware.OpenAIKeyHeader)
	}

	return payload, nil
}

func toServiceRequest(c *fiber.Ctx, rubricID string, payload dto.EvaluationRequest) service.EvaluationRequest {
	return service.EvaluationRequest{
		RubricID:      rubricID,
		Submission:    payload.Submission,
		Model:         payload.Model,
		ExplicitKey:   payload.APIKey,
		CorrelationID: middleware.GetCorrelationID(c),
	}
}
