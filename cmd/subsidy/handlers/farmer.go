package handlers

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/efarmer/subsidy/cmd/subsidy/service"
)

// FarmerHandler handles farmer registration and portal requests
type FarmerHandler struct {
	farmers *service.FarmerService
}

// NewFarmerHandler creates a new farmer handler
func NewFarmerHandler(farmers *service.FarmerService) *FarmerHandler {
	return &FarmerHandler{farmers: farmers}
}

// RegisterFarmer registers a farmer and assigns an EFN
// POST /api/v1/farmers
func (h *FarmerHandler) RegisterFarmer(c echo.Context) error {
	var in service.RegisterFarmerInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request body")
	}

	farmer, err := h.farmers.Register(c.Request().Context(), in)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, farmerResponse(farmer))
}

// ListFarmers lists registered farmers
// GET /api/v1/farmers
func (h *FarmerHandler) ListFarmers(c echo.Context) error {
	farmers, err := h.farmers.List(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"farmers": farmerList(farmers),
		"count":   len(farmers),
	})
}

// GetFarmer returns the farmer portal view
// GET /api/v1/farmers/:efn
func (h *FarmerHandler) GetFarmer(c echo.Context) error {
	home, err := h.farmers.Home(c.Request().Context(), c.Param("efn"))
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"farmer":      farmerResponse(home.Farmer),
		"entitlement": quotaResponse(home.Product, home.Entitlement),
		"schemes":     home.Schemes,
	})
}

// PatchFarmer applies a JSON merge patch to the farmer profile
// PATCH /api/v1/farmers/:efn
func (h *FarmerHandler) PatchFarmer(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return badRequest(c, "failed to read request body")
	}

	farmer, err := h.farmers.UpdateProfile(c.Request().Context(), c.Param("efn"), body)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, farmerResponse(farmer))
}

// GetSchemes returns eligibility suggestions
// GET /api/v1/farmers/:efn/schemes
func (h *FarmerHandler) GetSchemes(c echo.Context) error {
	efn := c.Param("efn")
	schemes, err := h.farmers.Schemes(c.Request().Context(), efn)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"efn":     efn,
		"schemes": schemes,
	})
}

// GetEntitlement returns the farmer's quota for a product
// GET /api/v1/farmers/:efn/entitlement?product=Urea
func (h *FarmerHandler) GetEntitlement(c echo.Context) error {
	efn := c.Param("efn")
	product, quota, err := h.farmers.Entitlement(c.Request().Context(), efn, c.QueryParam("product"))
	if err != nil {
		return respondError(c, err)
	}

	resp := quotaResponse(product, quota)
	resp["efn"] = efn
	return c.JSON(http.StatusOK, resp)
}
