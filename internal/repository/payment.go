package repository

import (
	"context"

	"rideledger/internal/domain"
)

// EscrowRepository defines the persistence operations for funds held against rides.
type EscrowRepository interface {
	// Hold records amount as held in custody for the ride.
	Hold(ctx context.Context, rideID uint64, amount domain.Amount) error

	// Get retrieves the escrow for a ride.
	Get(ctx context.Context, rideID uint64) (*domain.Escrow, error)

	// Release empties the ride's escrow and returns the amount that was held.
	// Returns ErrEscrowReleased if it was already released.
	Release(ctx context.Context, rideID uint64) (domain.Amount, error)

	// Total returns the sum of all unreleased escrows.
	Total(ctx context.Context) (domain.Amount, error)
}

// AccountRepository defines the persistence operations for party balances.
type AccountRepository interface {
	// Get retrieves an account. Accounts that were never touched are returned
	// with a zero balance rather than ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Account, error)

	// Credit adds amount to the account balance.
	Credit(ctx context.Context, id string, amount domain.Amount) error

	// SetAcceptsTransfers records whether the account accepts incoming transfers.
	SetAcceptsTransfers(ctx context.Context, id string, accepts bool) error
}

// TransferRepository defines the persistence operations for the custody journal.
type TransferRepository interface {
	// Create appends a journal entry.
	Create(ctx context.Context, transfer *domain.Transfer) error

	// ListByRide retrieves the journal entries of a ride in insertion order.
	ListByRide(ctx context.Context, rideID uint64) ([]*domain.Transfer, error)
}
