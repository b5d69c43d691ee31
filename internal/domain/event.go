package domain

import "time"

// EventType identifies a ride lifecycle notification.
type EventType string

const (
	EventRideRequested EventType = "RideRequested"
	EventRideAccepted  EventType = "RideAccepted"
	EventRideCompleted EventType = "RideCompleted"
	EventRideCancelled EventType = "RideCancelled"
)

// Event is an append-only notification emitted by a committed ride transition.
// Only the fields relevant to Type are populated.
type Event struct {
	Seq         uint64
	Type        EventType
	RideID      uint64
	Rider       string
	Driver      string
	Pickup      string
	Dropoff     string
	Fare        Amount
	OperationID string
	OccurredAt  time.Time
}
