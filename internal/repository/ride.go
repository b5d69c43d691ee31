package repository

import (
	"context"

	"rideledger/internal/domain"
)

// RideFilter narrows a ride listing. Zero values match everything.
type RideFilter struct {
	Status domain.RideStatus
	Rider  string
	Driver string
	Limit  int
}

// RideRepository defines the persistence operations for rides.
type RideRepository interface {
	// NextID allocates the next unused ride id. Allocation is undone if the
	// surrounding unit of work fails.
	NextID(ctx context.Context) (uint64, error)

	// Create persists a new ride.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id uint64) (*domain.Ride, error)

	// GetForUpdate retrieves a ride by ID and holds it exclusively until the
	// surrounding unit of work ends.
	GetForUpdate(ctx context.Context, id uint64) (*domain.Ride, error)

	// List retrieves rides ordered by ID.
	List(ctx context.Context, filter RideFilter) ([]*domain.Ride, error)

	// Update updates an existing ride.
	Update(ctx context.Context, ride *domain.Ride) error
}
