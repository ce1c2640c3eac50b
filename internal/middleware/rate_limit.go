package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/gema-rubric-evaluator/internal/utils"
)

// RateLimitConfig configures the evaluation rate limiter.
type RateLimitConfig struct {
	Identifier string
	Max        int
	Window     time.Duration
	// Storage holds the counters. Nil keeps them in process memory.
	Storage fiber.Storage
	// LimitReached answers rejected requests. Nil sends the JSON error envelope.
	LimitReached fiber.Handler
}

// RateLimit creates a per-client limiter keyed by token subject, falling back
// to the client IP.
func RateLimit(cfg RateLimitConfig) fiber.Handler {
	if cfg.Max <= 0 {
		cfg.Max = 10
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Identifier == "" {
		cfg.Identifier = "evaluate"
	}
	if cfg.LimitReached == nil {
		cfg.LimitReached = func(c *fiber.Ctx) error {
			return utils.SendError(c, fiber.StatusTooManyRequests, "too many evaluation requests, try again later")
		}
	}

	return limiter.New(limiter.Config{
		Max:        cfg.Max,
		Expiration: cfg.Window,
		Storage:    cfg.Storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			subject, _ := c.Locals("subject").(string)
			if subject == "" {
				subject = c.IP()
			}
			return fmt.Sprintf("%s:%s", cfg.Identifier, subject)
		},
		LimitReached: cfg.LimitReached,
	})
}
