package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/efarmer/subsidy/cmd/subsidy/service"
	"github.com/efarmer/subsidy/common/store"
)

// respondError maps service errors onto HTTP status codes
func respondError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	code := "internal_error"

	var storage *service.StorageError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrInvalidInput):
		status, code = http.StatusBadRequest, "invalid_request"
	case errors.Is(err, store.ErrDuplicateRule), errors.Is(err, store.ErrInvalidRule):
		status, code = http.StatusUnprocessableEntity, "invalid_rules"
	case errors.As(err, &storage):
		code = "storage_error"
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		c.Logger().Error(err)
		message = "request could not be completed"
	}

	return c.JSON(status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, map[string]interface{}{
		"error":   "invalid_request",
		"message": message,
	})
}
