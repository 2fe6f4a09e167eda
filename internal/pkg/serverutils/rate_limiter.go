package serverutils

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// NewUserRateLimiter limits requests per authenticated user (falling back to IP).
// Must be mounted after JwtMiddleware. A nil storage keeps counters in process memory.
func NewUserRateLimiter(max int, window time.Duration, storage fiber.Storage) fiber.Handler {
	cfg := limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(ctx *fiber.Ctx) string {
			if userId, ok := ctx.Locals(LocalUserId).(string); ok && userId != "" {
				return "ai_limit:" + userId
			}
			return "ai_limit:ip:" + ctx.IP()
		},
		LimitReached: func(ctx *fiber.Ctx) error {
			return ctx.Status(fiber.StatusTooManyRequests).JSON(
				ErrorResponseWithData(fiber.StatusTooManyRequests, "rate_limited", "Too many AI requests, please slow down", nil),
			)
		},
	}
	if storage != nil {
		cfg.Storage = storage
	}
	return limiter.New(cfg)
}
