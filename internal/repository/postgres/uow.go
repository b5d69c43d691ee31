package postgres

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"rideledger/internal/repository"
)

// UnitOfWork runs ledger mutations inside a single PostgreSQL transaction.
type UnitOfWork struct {
	db *sql.DB
}

// NewUnitOfWork creates a new PostgreSQL unit of work.
func NewUnitOfWork(db *sql.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// Do runs fn inside a transaction; any error rolls back every write.
func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) (err error) {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Create transaction-scoped repositories.
	repos := repository.Repositories{
		Rides:     NewRideRepositoryWithTx(tx),
		Escrow:    NewEscrowRepositoryWithTx(tx),
		Accounts:  NewAccountRepositoryWithTx(tx),
		Transfers: NewTransferRepositoryWithTx(tx),
		Events:    NewEventRepositoryWithTx(tx),
	}

	if err = fn(ctx, repos); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

// Repositories returns repositories bound to the connection pool.
func (u *UnitOfWork) Repositories() repository.Repositories {
	return repository.Repositories{
		Rides:     NewRideRepository(u.db),
		Escrow:    NewEscrowRepository(u.db),
		Accounts:  NewAccountRepository(u.db),
		Transfers: NewTransferRepository(u.db),
		Events:    NewEventRepository(u.db),
	}
}

var _ repository.UnitOfWork = (*UnitOfWork)(nil)
