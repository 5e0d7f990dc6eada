package middleware

import (
	"github.com/labstack/echo/v4"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// DealerKey is the context key for the submitting dealer
	DealerKey ContextKey = "dealer_id"

	// DealerHeader identifies the dealer terminal making the request
	DealerHeader = "X-Dealer-ID"
)

// ExtractDealer stores the X-Dealer-ID header in the request context,
// falling back to defaultDealer when the header is absent.
//
// Usage:
//
//	e.Use(middleware.ExtractDealer("D001"))
//	dealer := middleware.GetDealer(c)
func ExtractDealer(defaultDealer string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			dealer := c.Request().Header.Get(DealerHeader)
			if dealer == "" {
				dealer = defaultDealer
			}
			c.Set(string(DealerKey), dealer)
			return next(c)
		}
	}
}

// GetDealer retrieves the dealer from the request context
// Returns empty string if not set
func GetDealer(c echo.Context) string {
	dealer, _ := c.Get(string(DealerKey)).(string)
	return dealer
}
