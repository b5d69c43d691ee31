package domain

import "time"

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusRequested RideStatus = "Requested"
	RideStatusAccepted  RideStatus = "Accepted"
	RideStatusCompleted RideStatus = "Completed"
	RideStatusCancelled RideStatus = "Cancelled"
)

// ParseRideStatus converts a status name into a RideStatus.
func ParseRideStatus(s string) (RideStatus, bool) {
	switch RideStatus(s) {
	case RideStatusRequested, RideStatusAccepted, RideStatusCompleted, RideStatusCancelled:
		return RideStatus(s), true
	default:
		return "", false
	}
}

// IsTerminal reports whether no further transition is possible from s.
func (s RideStatus) IsTerminal() bool {
	return s == RideStatusCompleted || s == RideStatusCancelled
}

// Rank orders statuses along the lifecycle. A ride's rank never decreases.
func (s RideStatus) Rank() int {
	switch s {
	case RideStatusRequested:
		return 0
	case RideStatusAccepted:
		return 1
	case RideStatusCompleted, RideStatusCancelled:
		return 2
	default:
		return -1
	}
}

// CanTransitionTo reports whether next directly follows s in the ride lifecycle.
func (s RideStatus) CanTransitionTo(next RideStatus) bool {
	switch s {
	case RideStatusRequested:
		return next == RideStatusAccepted || next == RideStatusCancelled
	case RideStatusAccepted:
		return next == RideStatusCompleted || next == RideStatusCancelled
	default:
		return false
	}
}

// Ride represents an escrowed ride between a rider and a driver.
type Ride struct {
	ID              uint64
	Rider           string
	Driver          string // empty until the ride is accepted
	Fare            Amount
	CreatedAt       time.Time
	Status          RideStatus
	PickupLocation  string
	DropoffLocation string
}

// HasDriver reports whether a driver has accepted the ride.
func (r *Ride) HasDriver() bool {
	return r.Driver != ""
}

// Clone returns a copy of the ride that can be mutated independently.
func (r *Ride) Clone() *Ride {
	c := *r
	return &c
}
