package handler

import (
	"time"

	"rideledger/internal/domain"
	"rideledger/internal/money"
)

// RideView is the client projection of a ride. Fare is in the human unit.
type RideView struct {
	ID              uint64    `json:"id"`
	Rider           string    `json:"rider"`
	Driver          string    `json:"driver,omitempty"`
	Fare            string    `json:"fare"`
	CreatedAt       time.Time `json:"created_at"`
	Status          string    `json:"status"`
	PickupLocation  string    `json:"pickup_location"`
	DropoffLocation string    `json:"dropoff_location"`
}

// EscrowView is the client projection of the funds held against a ride.
type EscrowView struct {
	RideID   uint64 `json:"ride_id"`
	Amount   string `json:"amount"`
	Released bool   `json:"released"`
}

// TransferView is the client projection of a custody journal entry.
type TransferView struct {
	ID          string    `json:"id"`
	RideID      uint64    `json:"ride_id"`
	Kind        string    `json:"kind"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Amount      string    `json:"amount"`
	OperationID string    `json:"operation_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// AccountView is the client projection of a party's ledger balance.
type AccountView struct {
	ID               string `json:"id"`
	Balance          string `json:"balance"`
	AcceptsTransfers bool   `json:"accepts_transfers"`
}

// EventView is the client projection of a ride event.
type EventView struct {
	Seq         uint64    `json:"seq"`
	Type        string    `json:"type"`
	RideID      uint64    `json:"ride_id"`
	Rider       string    `json:"rider,omitempty"`
	Driver      string    `json:"driver,omitempty"`
	Pickup      string    `json:"pickup_location,omitempty"`
	Dropoff     string    `json:"dropoff_location,omitempty"`
	Fare        string    `json:"fare,omitempty"`
	OperationID string    `json:"operation_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Projector renders ledger records for clients.
type Projector struct {
	decimals int32
}

// NewProjector creates a Projector rendering amounts with decimals places.
func NewProjector(decimals int32) Projector {
	return Projector{decimals: decimals}
}

func (p Projector) amount(a domain.Amount) string {
	return money.Format(a, p.decimals)
}

func (p Projector) Ride(r *domain.Ride) RideView {
	return RideView{
		ID:              r.ID,
		Rider:           r.Rider,
		Driver:          r.Driver,
		Fare:            p.amount(r.Fare),
		CreatedAt:       r.CreatedAt,
		Status:          string(r.Status),
		PickupLocation:  r.PickupLocation,
		DropoffLocation: r.DropoffLocation,
	}
}

func (p Projector) Escrow(e *domain.Escrow) EscrowView {
	return EscrowView{RideID: e.RideID, Amount: p.amount(e.Amount), Released: e.Released}
}

func (p Projector) Transfer(t *domain.Transfer) TransferView {
	return TransferView{
		ID:          t.ID,
		RideID:      t.RideID,
		Kind:        string(t.Kind),
		From:        t.From,
		To:          t.To,
		Amount:      p.amount(t.Amount),
		OperationID: t.OperationID,
		CreatedAt:   t.CreatedAt,
	}
}

func (p Projector) Account(a *domain.Account) AccountView {
	return AccountView{ID: a.ID, Balance: p.amount(a.Balance), AcceptsTransfers: a.AcceptsTransfers}
}

func (p Projector) Event(e *domain.Event) EventView {
	v := EventView{
		Seq:         e.Seq,
		Type:        string(e.Type),
		RideID:      e.RideID,
		Rider:       e.Rider,
		Driver:      e.Driver,
		Pickup:      e.Pickup,
		Dropoff:     e.Dropoff,
		OperationID: e.OperationID,
		OccurredAt:  e.OccurredAt,
	}
	if e.Type == domain.EventRideRequested {
		v.Fare = p.amount(e.Fare)
	}
	return v
}
