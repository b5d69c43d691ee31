package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rideledger/internal/domain"
	"rideledger/internal/middleware"
	"rideledger/internal/money"
	"rideledger/internal/repository"
	"rideledger/internal/service"
)

// RideHandler handles HTTP requests for rides.
type RideHandler struct {
	ledger *service.RideLedger
	view   Projector
}

// NewRideHandler creates a new RideHandler. decimals is the number of decimal
// places between the human unit clients send and the ledger's smallest unit.
func NewRideHandler(ledger *service.RideLedger, decimals int32) *RideHandler {
	return &RideHandler{ledger: ledger, view: NewProjector(decimals)}
}

// CreateRideRequest is the HTTP request body for requesting a ride.
// Fare and Payment are decimal strings in the human unit.
type CreateRideRequest struct {
	PickupLocation  string `json:"pickup_location"`
	DropoffLocation string `json:"dropoff_location"`
	Fare            string `json:"fare" binding:"required"`
	Payment         string `json:"payment"`
}

// TransitionResponse is the HTTP response of a committed ride transition.
type TransitionResponse struct {
	OperationID string `json:"operation_id"`
	RideID      uint64 `json:"ride_id"`
	Status      string `json:"status"`
	EventSeq    uint64 `json:"event_seq"`
}

func transitionResponse(res *service.RideResult) TransitionResponse {
	return TransitionResponse{
		OperationID: res.OperationID,
		RideID:      res.Ride.ID,
		Status:      string(res.Ride.Status),
		EventSeq:    res.Event.Seq,
	}
}

// CreateRide handles POST /v1/rides
func (h *RideHandler) CreateRide(c *gin.Context) {
	var req CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	fare, err := money.Parse(req.Fare, h.view.decimals)
	if err != nil {
		respondError(c, err)
		return
	}
	payment := domain.Amount(0)
	if req.Payment != "" {
		if payment, err = money.Parse(req.Payment, h.view.decimals); err != nil {
			respondError(c, err)
			return
		}
	}

	result, err := h.ledger.RequestRide(c.Request.Context(), service.RequestRideRequest{
		Caller:          middleware.Caller(c),
		PickupLocation:  req.PickupLocation,
		DropoffLocation: req.DropoffLocation,
		Fare:            fare,
		FundsProvided:   payment,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Location", "/v1/rides/"+strconv.FormatUint(result.Ride.ID, 10))
	respondJSON(c, http.StatusCreated, transitionResponse(result))
}

// GetRide handles GET /v1/rides/:id
func (h *RideHandler) GetRide(c *gin.Context) {
	id, err := parseRideID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	ride, err := h.ledger.GetRide(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, h.view.Ride(ride))
}

// GetAll handles GET /v1/rides
func (h *RideHandler) GetAll(c *gin.Context) {
	filter := repository.RideFilter{
		Rider:  c.Query("rider"),
		Driver: c.Query("driver"),
	}
	if s := c.Query("status"); s != "" {
		status, ok := domain.ParseRideStatus(s)
		if !ok {
			respondBadRequest(c, "unknown status "+strconv.Quote(s))
			return
		}
		filter.Status = status
	}
	if l := c.Query("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit <= 0 {
			respondBadRequest(c, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	rides, err := h.ledger.ListRides(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]RideView, 0, len(rides))
	for _, r := range rides {
		views = append(views, h.view.Ride(r))
	}
	respondJSON(c, http.StatusOK, views)
}

// AcceptRide handles POST /v1/rides/:id/accept
func (h *RideHandler) AcceptRide(c *gin.Context) {
	h.transition(c, h.ledger.AcceptRide)
}

// CompleteRide handles POST /v1/rides/:id/complete
func (h *RideHandler) CompleteRide(c *gin.Context) {
	h.transition(c, h.ledger.CompleteRide)
}

// CancelRide handles POST /v1/rides/:id/cancel
func (h *RideHandler) CancelRide(c *gin.Context) {
	h.transition(c, h.ledger.CancelRide)
}

type transitionFunc func(ctx context.Context, rideID uint64, caller string) (*service.RideResult, error)

func (h *RideHandler) transition(c *gin.Context, fn transitionFunc) {
	id, err := parseRideID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := fn(c.Request.Context(), id, middleware.Caller(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, transitionResponse(result))
}
