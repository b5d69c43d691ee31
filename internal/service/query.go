package service

import (
	"context"
	"errors"

	"rideledger/internal/domain"
	"rideledger/internal/repository"
)

const (
	defaultEventPage = 100
	maxEventPage     = 1000
	maxRidePage      = 500
)

// ListRides returns rides matching filter ordered by ID.
func (l *RideLedger) ListRides(ctx context.Context, filter repository.RideFilter) ([]*domain.Ride, error) {
	if filter.Limit <= 0 || filter.Limit > maxRidePage {
		filter.Limit = maxRidePage
	}
	return l.uow.Repositories().Rides.List(ctx, filter)
}

// Escrow returns the funds currently held against a ride.
func (l *RideLedger) Escrow(ctx context.Context, rideID uint64) (*domain.Escrow, error) {
	escrow, err := l.uow.Repositories().Escrow.Get(ctx, rideID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrRideNotFound
	}
	return escrow, err
}

// EscrowTotal returns the sum of all funds currently in ledger custody.
func (l *RideLedger) EscrowTotal(ctx context.Context) (domain.Amount, error) {
	return l.uow.Repositories().Escrow.Total(ctx)
}

// Transfers returns the custody journal of a ride.
func (l *RideLedger) Transfers(ctx context.Context, rideID uint64) ([]*domain.Transfer, error) {
	repos := l.uow.Repositories()
	if _, err := repos.Rides.GetByID(ctx, rideID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, err
	}
	return repos.Transfers.ListByRide(ctx, rideID)
}

// Account returns the ledger balance of a party.
func (l *RideLedger) Account(ctx context.Context, id string) (*domain.Account, error) {
	if id == "" {
		return nil, ErrInvalidCaller
	}
	return l.uow.Repositories().Accounts.Get(ctx, id)
}

// SetAcceptsTransfers lets the caller opt in or out of receiving payouts and refunds.
func (l *RideLedger) SetAcceptsTransfers(ctx context.Context, caller string, accepts bool) (*domain.Account, error) {
	if caller == "" {
		return nil, ErrInvalidCaller
	}

	var account *domain.Account
	err := l.uow.Do(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := repos.Accounts.SetAcceptsTransfers(ctx, caller, accepts); err != nil {
			return err
		}
		var err error
		account, err = repos.Accounts.Get(ctx, caller)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.log.WithField("account", caller).WithField("accepts_transfers", accepts).Info("account preference updated")
	return account, nil
}

// Events returns committed events with a sequence number greater than after.
func (l *RideLedger) Events(ctx context.Context, after uint64, limit int) ([]*domain.Event, error) {
	if limit <= 0 {
		limit = defaultEventPage
	}
	if limit > maxEventPage {
		limit = maxEventPage
	}
	return l.uow.Repositories().Events.ListAfter(ctx, after, limit)
}
