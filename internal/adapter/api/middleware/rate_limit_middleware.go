package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"fazaachat/pkg/logger"
)

// Limiter is the per-key token bucket the middleware consults.
type Limiter interface {
	Allow(key, action string) (bool, time.Duration)
}

// RateLimit throttles action per authenticated user, or per client IP when
// the request carries no uid.
func RateLimit(limiter Limiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key, ok := c.Get("uid").(string)
			if !ok || key == "" {
				key = c.RealIP()
			}

			allowed, wait := limiter.Allow(key, action)
			if !allowed {
				logger.Warn("RATE LIMIT: blocked %s for %s (retry in %v)", action, key, wait)
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"error":       "Rate limit exceeded",
					"retry_after": int(wait.Seconds()) + 1,
				})
			}

			return next(c)
		}
	}
}
