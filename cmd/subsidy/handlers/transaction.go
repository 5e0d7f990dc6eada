package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/efarmer/subsidy/cmd/subsidy/middleware"
	"github.com/efarmer/subsidy/cmd/subsidy/service"
	"github.com/efarmer/subsidy/common/models"
)

// TransactionHandler handles dealer submissions and the ledger views
type TransactionHandler struct {
	decisions *service.DecisionService
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(decisions *service.DecisionService) *TransactionHandler {
	return &TransactionHandler{decisions: decisions}
}

// SubmitTransaction records a dealer disbursement and its fraud verdict
// POST /api/v1/transactions
func (h *TransactionHandler) SubmitTransaction(c echo.Context) error {
	var in service.SubmitTransactionInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid request body")
	}
	if in.DealerID == "" {
		in.DealerID = middleware.GetDealer(c)
	}

	result, err := h.decisions.SubmitTransaction(c.Request().Context(), in)
	if err != nil {
		return respondError(c, err)
	}

	status := "OK"
	message := "Transaction recorded successfully."
	if result.Verdict.Suspicious {
		status = "Suspicious"
		message = "Transaction recorded but flagged as suspicious."
	}

	resp := map[string]interface{}{
		"transaction": result.Transaction,
		"verdict":     result.Verdict,
		"riskStatus":  status,
		"message":     message,
	}
	if result.Case != nil {
		resp["case"] = result.Case
	}

	return c.JSON(http.StatusCreated, resp)
}

// ListTransactions returns the transaction log
// GET /api/v1/transactions
func (h *TransactionHandler) ListTransactions(c echo.Context) error {
	txns, err := h.decisions.Transactions(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	if txns == nil {
		txns = []*models.Transaction{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"transactions": txns,
		"count":        len(txns),
	})
}

// ListCases returns the flagged case log
// GET /api/v1/cases
func (h *TransactionHandler) ListCases(c echo.Context) error {
	cases, err := h.decisions.Cases(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	if cases == nil {
		cases = []*models.FlaggedCase{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"cases": cases,
		"count": len(cases),
	})
}
