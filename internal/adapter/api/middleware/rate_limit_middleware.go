package middleware

import (
	"github.com/labstack/echo/v4"

	"bunkmate/internal/usecase"
	"bunkmate/pkg/errors"
	"bunkmate/pkg/logger"
	"bunkmate/pkg/response"
)

// RateLimit throttles a route per caller. Authenticated requests are keyed by
// uid, anonymous ones by client IP.
func RateLimit(limiter usecase.RateLimiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := UID(c)
			if key == "" {
				key = "ip:" + c.RealIP()
			}

			if ok, retryAfter := limiter.Allow(key, action); !ok {
				logger.Warn("RATE LIMIT: %s blocked on %s (retry in %v)", key, action, retryAfter)
				return response.Error(c, errors.TooManyRequests("Rate limit exceeded", retryAfter))
			}
			return next(c)
		}
	}
}
