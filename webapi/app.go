package webapi

import (
	"context"
	"time"

	"github.com/amirasaad/vatm/pkg/app"
	"github.com/amirasaad/vatm/pkg/middleware"
	accountapi "github.com/amirasaad/vatm/webapi/account"
	authapi "github.com/amirasaad/vatm/webapi/auth"
	"github.com/amirasaad/vatm/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const healthTimeout = 2 * time.Second

// SetupApp builds the fiber application with global middleware and every route.
func SetupApp(a *app.App) *fiber.App {
	cfg := a.Config
	f := fiber.New(fiber.Config{
		AppName:      "vatm",
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Default to 500 if status code cannot be determined
			status := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
				return common.ProblemDetailsJSON(c, e.Message, nil, status)
			}
			a.Deps.Logger.Error("Unhandled error", "path", c.Path(), "error", err)
			return common.ProblemDetailsJSON(c, "Internal Server Error", err, status)
		},
	})

	f.Use(recover.New())
	f.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	f.Use(limiter.New(limiter.Config{
		Max:        cfg.RateLimit.MaxRequests,
		Expiration: cfg.RateLimit.Window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return common.ProblemDetailsJSON(c, "Too Many Requests", nil, "Rate limit exceeded", fiber.StatusTooManyRequests)
		},
	}))

	f.Get("/health", Health(a))

	idem := func(c *fiber.Ctx) error { return c.Next() }
	if cfg.Idempotency.Enabled && a.Deps.ResponseCache != nil {
		idem = middleware.Idempotency(middleware.IdempotencyConfig{
			Cache:  a.Deps.ResponseCache,
			TTL:    cfg.Idempotency.TTL,
			Logger: a.Deps.Logger,
		})
	}

	authapi.Routes(f, a.AuthService)
	accountapi.Routes(f, a.Ledger, a.AuthService, cfg, idem)

	return f
}

// Health reports whether the store answers.
func Health(a *app.App) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
		defer cancel()
		if err := a.Ledger.Ping(ctx); err != nil {
			a.Deps.Logger.Warn("Health check failed", "error", err)
			return common.ProblemDetailsJSON(c, "Service Unavailable", nil, "store unreachable", fiber.StatusServiceUnavailable)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "ok", fiber.Map{"status": "up"})
	}
}
