package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rideledger/internal/service"
)

// EventHandler serves the ride event log.
type EventHandler struct {
	ledger *service.RideLedger
	view   Projector
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(ledger *service.RideLedger, decimals int32) *EventHandler {
	return &EventHandler{ledger: ledger, view: NewProjector(decimals)}
}

// EventPage is the HTTP response of an event poll. Next is the cursor to
// pass as after on the following poll.
type EventPage struct {
	Events []EventView `json:"events"`
	Next   uint64      `json:"next"`
}

// ListEvents handles GET /v1/events?after=&limit=
func (h *EventHandler) ListEvents(c *gin.Context) {
	after, err := strconv.ParseUint(c.DefaultQuery("after", "0"), 10, 64)
	if err != nil {
		respondBadRequest(c, "invalid after")
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		respondBadRequest(c, "invalid limit")
		return
	}

	events, err := h.ledger.Events(c.Request.Context(), after, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	page := EventPage{Events: make([]EventView, 0, len(events)), Next: after}
	for _, e := range events {
		page.Events = append(page.Events, h.view.Event(e))
		page.Next = e.Seq
	}
	respondJSON(c, http.StatusOK, page)
}
