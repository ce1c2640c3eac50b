package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-rubric-evaluator/internal/config"
	"github.com/noah-isme/gema-rubric-evaluator/internal/handler"
	"github.com/noah-isme/gema-rubric-evaluator/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	RubricHandler     *handler.RubricHandler
	EvaluationHandler *handler.EvaluationHandler
	WebHandler        *handler.WebHandler
	// JWTMiddleware guards the JSON API when set.
	JWTMiddleware fiber.Handler
	// RateLimiter guards every route that triggers a remote evaluation.
	RateLimiter fiber.Handler
	// WebRateLimiter replaces RateLimiter on the HTML form submission.
	WebRateLimiter fiber.Handler
	RubricCount int
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.RubricCount))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	var guards []fiber.Handler
	if deps.RateLimiter != nil {
		guards = append(guards, deps.RateLimiter)
	}

	rubrics := api.Group("/rubrics", jwtMiddleware)
	if deps.RubricHandler != nil {
		deps.RubricHandler.Register(rubrics)
	}
	if deps.EvaluationHandler != nil {
		deps.EvaluationHandler.Register(rubrics, guards...)
	}

	if deps.WebHandler != nil {
		webGuards := guards
		if deps.WebRateLimiter != nil {
			webGuards = []fiber.Handler{deps.WebRateLimiter}
		}
		deps.WebHandler.Register(app, webGuards...)
	}
}
