package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestExtractDealer(t *testing.T) {
	e := echo.New()
	var seen string
	h := ExtractDealer("D001")(func(c echo.Context) error {
		seen = GetDealer(c)
		return c.NoContent(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(DealerHeader, "D042")
	assert.NoError(t, h(e.NewContext(req, httptest.NewRecorder())))
	assert.Equal(t, "D042", seen)

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	assert.NoError(t, h(e.NewContext(req, httptest.NewRecorder())))
	assert.Equal(t, "D001", seen)
}

func TestGetDealer_Unset(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Equal(t, "", GetDealer(c))
}
