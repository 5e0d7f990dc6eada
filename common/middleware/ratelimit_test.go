package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efarmer/subsidy/common/logger"
	"github.com/efarmer/subsidy/common/ratelimit"
)

func TestSubmissionRateLimit_RejectsOverLimit(t *testing.T) {
	addr := os.Getenv("SUBSIDY_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SUBSIDY_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	defer client.Close()
	require.NoError(t, client.FlushDB(ctx).Err())

	e := echo.New()
	limit := SubmissionRateLimit(ratelimit.NewRateLimiter(client, logger.NewNop()),
		Limits{Dealer: 2, WindowSeconds: 60},
		func(echo.Context) string { return "D007" })
	e.POST("/submit", func(c echo.Context) error { return c.NoContent(http.StatusCreated) }, limit)

	submit := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/submit", nil))
		return rec
	}

	assert.Equal(t, http.StatusCreated, submit().Code)
	assert.Equal(t, http.StatusCreated, submit().Code)

	rec := submit()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "dealer_rate_limit_exceeded")
}
