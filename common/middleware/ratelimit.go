package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/efarmer/subsidy/common/ratelimit"
)

// Limits configures the submission limits enforced by SubmissionRateLimit
type Limits struct {
	Dealer        int64
	Global        int64
	WindowSeconds int
}

// SubmissionRateLimit enforces a global and a per-dealer submission limit.
// dealerOf resolves the dealer for the request. Limiter errors fail open.
func SubmissionRateLimit(rateLimiter *ratelimit.RateLimiter, limits Limits, dealerOf func(echo.Context) string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			if limits.Global > 0 {
				result, err := rateLimiter.CheckGlobalLimit(ctx, limits.Global, limits.WindowSeconds)
				if err == nil && !result.Allowed {
					return tooManyRequests(c, "global_rate_limit_exceeded", "", result, limits.WindowSeconds)
				}
			}

			dealer := dealerOf(c)
			if dealer == "" {
				return next(c)
			}

			result, err := rateLimiter.CheckDealerLimit(ctx, dealer, limits.Dealer, limits.WindowSeconds)
			if err != nil {
				return next(c)
			}
			if !result.Allowed {
				return tooManyRequests(c, "dealer_rate_limit_exceeded", dealer, result, limits.WindowSeconds)
			}

			return next(c)
		}
	}
}

func tooManyRequests(c echo.Context, code, dealer string, result *ratelimit.RateLimitResult, window int) error {
	details := map[string]interface{}{
		"limit":             result.Limit,
		"windowSeconds":     window,
		"currentCount":      result.CurrentCount,
		"retryAfterSeconds": result.RetryAfterSeconds,
	}
	if dealer != "" {
		details["dealerId"] = dealer
	}

	c.Response().Header().Set("Retry-After", strconv.FormatInt(result.RetryAfterSeconds, 10))
	return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
		"error":   code,
		"message": "Too many submissions. Please wait before trying again.",
		"details": details,
	})
}
