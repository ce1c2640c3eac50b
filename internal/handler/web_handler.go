package handler

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-rubric-evaluator/internal/credential"
	"github.com/noah-isme/gema-rubric-evaluator/internal/dto"
	"github.com/noah-isme/gema-rubric-evaluator/internal/report"
	"github.com/noah-isme/gema-rubric-evaluator/internal/rubric"
	"github.com/noah-isme/gema-rubric-evaluator/internal/service"
	"github.com/noah-isme/gema-rubric-evaluator/pkg/ai"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// WebConfig describes deployment facts the evaluator pages display.
type WebConfig struct {
	SessionSecretConfigured bool
	MaxUploadBytes          int64
	// EnvironmentKey reads the environment credential at request time.
	EnvironmentKey func() string
}

type indexPage struct {
	PageTitle string
	Rubrics   []dto.RubricSummary
}

type evaluatorPage struct {
	PageTitle    string
	Rubric       rubric.Rubric
	Model        string
	Submission   string
	ShowKeyInput bool
	UsingSecret  bool
	MaxUploadKB  int64
	Warning      string
	Error        string
	Report       template.HTML
}

// WebHandler serves the browser evaluator pages.
type WebHandler struct {
	service   service.EvaluationService
	reader    *service.SubmissionReader
	validator *validator.Validate
	renderer  *report.HTMLRenderer
	config    WebConfig
	logger    zerolog.Logger
}

// NewWebHandler constructs the web page handler.
func NewWebHandler(service service.EvaluationService, reader *service.SubmissionReader, validate *validator.Validate, renderer *report.HTMLRenderer, cfg WebConfig, logger zerolog.Logger) *WebHandler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = reader.MaxBytes()
	}
	return &WebHandler{
		service:   service,
		reader:    reader,
		validator: validate,
		renderer:  renderer,
		config:    cfg,
		logger:    logger.With().Str("component", "web_handler").Logger(),
	}
}

// Register wires the page routes. guards run before the form submission handler.
func (h *WebHandler) Register(router fiber.Router, guards ...fiber.Handler) {
	router.Get("/", h.index)
	router.Get("/evaluators/:id", h.form)
	handlers := append(append([]fiber.Handler{}, guards...), h.submit)
	router.Post("/evaluators/:id", handlers...)
}

func (h *WebHandler) index(c *fiber.Ctx) error {
	rubrics := h.service.Rubrics()
	page := indexPage{PageTitle: "Rubric Evaluators"}
	for _, r := range rubrics {
		page.Rubrics = append(page.Rubrics, dto.NewRubricSummary(r))
	}
	return h.render(c, fiber.StatusOK, "index.html", page)
}

func (h *WebHandler) form(c *fiber.Ctx) error {
	r, err := h.service.Rubric(c.Params("id"))
	if err != nil {
		return h.notFound(c, err)
	}
	return h.render(c, fiber.StatusOK, "evaluator.html", h.page(r, dto.EvaluationRequest{}))
}

func (h *WebHandler) submit(c *fiber.Ctx) error {
	r, err := h.service.Rubric(c.Params("id"))
	if err != nil {
		return h.notFound(c, err)
	}

	payload, err := readSubmission(c, h.reader)
	page := h.page(r, payload)
	if err != nil {
		return h.renderError(c, page, err)
	}
	if err := h.validator.Struct(payload); err != nil {
		return h.renderError(c, page, err)
	}

	outcome, err := h.service.Evaluate(c.UserContext(), toServiceRequest(c, r.ID, payload))
	if err != nil {
		return h.renderError(c, page, err)
	}

	fragment, err := h.renderer.Render(outcome.Report)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to render report")
		page.Error = "Could not render the evaluation."
		return h.render(c, fiber.StatusInternalServerError, "evaluator.html", page)
	}
	page.Report = fragment

	return h.render(c, fiber.StatusOK, "evaluator.html", page)
}

// RateLimitWarning is shown on the evaluator page when the client exceeded its budget.
const RateLimitWarning = "Too many evaluation requests. Please wait a moment and try again."

// LimitReached renders the evaluator page with a warning. It is meant as the
// LimitReached handler of the limiter guarding the form submission.
func (h *WebHandler) LimitReached(c *fiber.Ctx) error {
	r, err := h.service.Rubric(c.Params("id"))
	if err != nil {
		return h.notFound(c, err)
	}
	page := h.page(r, dto.EvaluationRequest{
		Submission: c.FormValue("submission"),
		Model:      c.FormValue("model"),
	})
	page.Warning = RateLimitWarning
	return h.render(c, fiber.StatusTooManyRequests, "evaluator.html", page)
}

func (h *WebHandler) page(r rubric.Rubric, payload dto.EvaluationRequest) evaluatorPage {
	model := payload.Model
	if model == "" {
		model = r.DefaultModel
	}
	return evaluatorPage{
		PageTitle:    r.Title,
		Rubric:       r,
		Model:        model,
		Submission:   payload.Submission,
		ShowKeyInput: showKeyInput(r.Credentials, h.config.SessionSecretConfigured, h.environmentKeyConfigured()),
		UsingSecret:  h.config.SessionSecretConfigured && r.Credentials.Allows(credential.SourceSession),
		MaxUploadKB:  h.config.MaxUploadBytes / 1024,
	}
}

func (h *WebHandler) environmentKeyConfigured() bool {
	if h.config.EnvironmentKey == nil {
		return false
	}
	return strings.TrimSpace(h.config.EnvironmentKey()) != ""
}

// showKeyInput hides the key field when the rubric never reads it, or when a
// configured secret or environment key always takes precedence over it.
func showKeyInput(policy credential.Policy, secretConfigured, environmentConfigured bool) bool {
	for _, source := range policy {
		switch source {
		case credential.SourceExplicit:
			return true
		case credential.SourceSession:
			if secretConfigured {
				return false
			}
		case credential.SourceEnvironment:
			if environmentConfigured {
				return false
			}
		}
	}
	return false
}

func (h *WebHandler) renderError(c *fiber.Ctx, page evaluatorPage, err error) error {
	if warning, ok := service.Warning(err); ok {
		page.Warning = warning
		return h.render(c, fiber.StatusUnprocessableEntity, "evaluator.html", page)
	}

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrUploadTooLarge):
		status = fiber.StatusRequestEntityTooLarge
		page.Warning = "The uploaded file is too large."
	case errors.Is(err, service.ErrUnsupportedUpload):
		status = fiber.StatusBadRequest
		page.Warning = "Please upload a plain text file."
	case errors.Is(err, errInvalidPayload), isValidationError(err):
		status = fiber.StatusBadRequest
		page.Warning = "Please check the form fields and try again."
	case errors.Is(err, ai.ErrEvaluationFailed):
		status = fiber.StatusBadGateway
		page.Error = "Evaluation failed: " + service.FailureDetail(err)
	case errors.Is(err, service.ErrEvaluatorUnavailable):
		status = fiber.StatusServiceUnavailable
		page.Error = "Evaluation failed: evaluator unavailable"
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("evaluation page failed")
		page.Error = "Evaluation failed: internal error"
	}
	return h.render(c, status, "evaluator.html", page)
}

func (h *WebHandler) notFound(c *fiber.Ctx, err error) error {
	if !errors.Is(err, rubric.ErrNotFound) {
		requestLogger(h.logger, c).Error().Err(err).Msg("rubric lookup failed")
	}
	return c.Status(fiber.StatusNotFound).SendString("evaluator not found")
}

func (h *WebHandler) render(c *fiber.Ctx, status int, name string, data interface{}) error {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		requestLogger(h.logger, c).Error().Err(err).Str("template", name).Msg("failed to execute template")
		return c.Status(fiber.StatusInternalServerError).SendString("internal server error")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(status).Send(buf.Bytes())
}
