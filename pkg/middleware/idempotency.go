package middleware

import (
	"log/slog"
	"time"

	"github.com/amirasaad/vatm/pkg/cache"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/singleflight"
)

const (
	// IdempotencyKeyHeader names the request header carrying the client's key.
	IdempotencyKeyHeader = "Idempotency-Key"
	// ReplayedHeader is set on responses served from the cache.
	ReplayedHeader = "Idempotent-Replayed"
)

type IdempotencyConfig struct {
	Cache  cache.ResponseCache
	TTL    time.Duration
	Logger *slog.Logger
}

// Idempotency replays the first completed response of a mutating request for
// every later request with the same Idempotency-Key, method and path.
// Concurrent duplicates wait for the first one and share its response.
// Server errors and authentication or ownership rejections are not stored, so
// a retry after a 5xx runs again and a foreign session cannot claim a key.
func Idempotency(cfg IdempotencyConfig) fiber.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var group singleflight.Group

	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodPost, fiber.MethodPut, fiber.MethodPatch:
		default:
			return c.Next()
		}
		key := c.Get(IdempotencyKeyHeader)
		if key == "" {
			return c.Next()
		}
		scoped := c.Method() + " " + c.Path() + " " + key
		ctx := c.UserContext()

		cached, err := cfg.Cache.Get(ctx, scoped)
		if err != nil {
			logger.Warn("Idempotency cache read failed", "key", key, "error", err)
		}
		if cached != nil {
			logger.Debug("Replaying idempotent response", "key", key, "status", cached.Status)
			return replay(c, cached)
		}

		executed := false
		v, err, _ := group.Do(scoped, func() (any, error) {
			executed = true
			if err := c.Next(); err != nil {
				return nil, err
			}
			resp := &cache.Response{
				Status:      c.Response().StatusCode(),
				ContentType: string(c.Response().Header.ContentType()),
				Body:        append([]byte(nil), c.Response().Body()...),
			}
			if storable(resp.Status) {
				if err := cfg.Cache.Set(ctx, scoped, resp, cfg.TTL); err != nil {
					logger.Warn("Idempotency cache write failed", "key", key, "error", err)
				}
			}
			return resp, nil
		})
		if err != nil {
			return err
		}
		if !executed {
			return replay(c, v.(*cache.Response))
		}
		return nil
	}
}

func storable(status int) bool {
	switch status {
	case fiber.StatusUnauthorized, fiber.StatusForbidden:
		return false
	}
	return status < fiber.StatusInternalServerError
}

func replay(c *fiber.Ctx, resp *cache.Response) error {
	c.Set(ReplayedHeader, "true")
	if resp.ContentType != "" {
		c.Set(fiber.HeaderContentType, resp.ContentType)
	}
	return c.Status(resp.Status).Send(resp.Body)
}
