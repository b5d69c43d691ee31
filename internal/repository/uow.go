package repository

import "context"

// Repositories groups the repositories that take part in a unit of work.
type Repositories struct {
	Rides     RideRepository
	Escrow    EscrowRepository
	Accounts  AccountRepository
	Transfers TransferRepository
	Events    EventRepository
}

// UnitOfWork runs ledger mutations atomically.
type UnitOfWork interface {
	// Do runs fn against transaction-scoped repositories. If fn returns an
	// error every write made through them is discarded; otherwise all writes
	// become visible together.
	Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error

	// Repositories returns repositories for reads outside of a unit of work.
	Repositories() Repositories
}
