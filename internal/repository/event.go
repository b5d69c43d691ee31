package repository

import (
	"context"

	"rideledger/internal/domain"
)

// EventRepository defines the persistence operations for the append-only event log.
type EventRepository interface {
	// Append assigns the next sequence number to event and stores it.
	Append(ctx context.Context, event *domain.Event) error

	// ListAfter returns up to limit events with a sequence number greater than after.
	ListAfter(ctx context.Context, after uint64, limit int) ([]*domain.Event, error)
}
