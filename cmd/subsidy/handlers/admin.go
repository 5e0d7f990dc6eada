package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/efarmer/subsidy/cmd/subsidy/service"
	"github.com/efarmer/subsidy/common/models"
)

// AdminHandler handles the dashboard and rule administration
type AdminHandler struct {
	dashboard *service.DashboardService
	rules     *service.RuleService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(dashboard *service.DashboardService, rules *service.RuleService) *AdminHandler {
	return &AdminHandler{
		dashboard: dashboard,
		rules:     rules,
	}
}

// GetDashboard returns totals, per-dealer counts, flagged cases and farmers
// GET /api/v1/admin/dashboard
func (h *AdminHandler) GetDashboard(c echo.Context) error {
	d, err := h.dashboard.Summary(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}

	flagged := d.Flagged
	if flagged == nil {
		flagged = []*models.FlaggedCase{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"totalFarmers":      d.TotalFarmers,
		"totalTransactions": d.TotalTransactions,
		"totalFlagged":      d.TotalFlagged,
		"dealerCounts":      d.DealerCounts,
		"flaggedCases":      flagged,
		"farmers":           farmerList(d.Farmers),
	})
}

// GetRules returns the active entitlement rules
// GET /api/v1/rules
func (h *AdminHandler) GetRules(c echo.Context) error {
	rules, err := h.rules.List(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	if rules == nil {
		rules = []models.EntitlementRule{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"rules": rules,
		"count": len(rules),
	})
}

// ReplaceRules validates and replaces the entitlement rule table
// PUT /api/v1/rules
func (h *AdminHandler) ReplaceRules(c echo.Context) error {
	var req struct {
		Rules []models.EntitlementRule `json:"rules"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Rules == nil {
		return badRequest(c, "rules is required")
	}

	n, err := h.rules.Replace(c.Request().Context(), req.Rules)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":   n,
		"message": "rules replaced",
	})
}
