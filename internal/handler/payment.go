package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rideledger/internal/service"
)

// PaymentHandler handles HTTP requests for escrowed funds.
type PaymentHandler struct {
	ledger *service.RideLedger
	view   Projector
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(ledger *service.RideLedger, decimals int32) *PaymentHandler {
	return &PaymentHandler{ledger: ledger, view: NewProjector(decimals)}
}

// EscrowTotalResponse is the HTTP response for the funds held across all rides.
type EscrowTotalResponse struct {
	Amount string `json:"amount"`
}

// GetEscrow handles GET /v1/rides/:id/escrow
func (h *PaymentHandler) GetEscrow(c *gin.Context) {
	id, err := parseRideID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	escrow, err := h.ledger.Escrow(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, h.view.Escrow(escrow))
}

// GetTransfers handles GET /v1/rides/:id/transfers
func (h *PaymentHandler) GetTransfers(c *gin.Context) {
	id, err := parseRideID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	transfers, err := h.ledger.Transfers(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]TransferView, 0, len(transfers))
	for _, t := range transfers {
		views = append(views, h.view.Transfer(t))
	}
	respondJSON(c, http.StatusOK, views)
}

// GetEscrowTotal handles GET /v1/escrow
func (h *PaymentHandler) GetEscrowTotal(c *gin.Context) {
	total, err := h.ledger.EscrowTotal(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, EscrowTotalResponse{Amount: h.view.amount(total)})
}
