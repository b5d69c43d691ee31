package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rideledger/internal/middleware"
	"rideledger/internal/service"
)

// AccountHandler handles HTTP requests for party balances.
type AccountHandler struct {
	ledger *service.RideLedger
	view   Projector
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(ledger *service.RideLedger, decimals int32) *AccountHandler {
	return &AccountHandler{ledger: ledger, view: NewProjector(decimals)}
}

// UpdateAccountRequest is the HTTP request body for changing account preferences.
type UpdateAccountRequest struct {
	AcceptsTransfers *bool `json:"accepts_transfers"`
}

// GetAccount handles GET /v1/accounts/:id
func (h *AccountHandler) GetAccount(c *gin.Context) {
	account, err := h.ledger.Account(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, h.view.Account(account))
}

// UpdateMe handles PUT /v1/accounts/me
func (h *AccountHandler) UpdateMe(c *gin.Context) {
	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AcceptsTransfers == nil {
		respondBadRequest(c, "accepts_transfers is required")
		return
	}

	account, err := h.ledger.SetAcceptsTransfers(c.Request.Context(), middleware.Caller(c), *req.AcceptsTransfers)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, h.view.Account(account))
}
