package postgres

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"rideledger/internal/domain"
	"rideledger/internal/repository"
)

// EscrowRepository is a PostgreSQL implementation of repository.EscrowRepository.
type EscrowRepository struct {
	q Querier
}

// NewEscrowRepository creates a new PostgreSQL escrow repository.
func NewEscrowRepository(db *sql.DB) *EscrowRepository {
	return &EscrowRepository{q: db}
}

// NewEscrowRepositoryWithTx creates an escrow repository using a transaction.
func NewEscrowRepositoryWithTx(tx *sql.Tx) *EscrowRepository {
	return &EscrowRepository{q: tx}
}

// Hold records amount as held for the ride.
func (r *EscrowRepository) Hold(ctx context.Context, rideID uint64, amount domain.Amount) error {
	query := `INSERT INTO escrows (ride_id, amount, released) VALUES ($1, $2, FALSE)`

	_, err := r.q.ExecContext(ctx, query, int64(rideID), int64(amount))
	return errors.Wrapf(err, "hold escrow for ride %d", rideID)
}

// Get retrieves the escrow for a ride.
func (r *EscrowRepository) Get(ctx context.Context, rideID uint64) (*domain.Escrow, error) {
	query := `SELECT amount, released FROM escrows WHERE ride_id = $1`

	var amount int64
	escrow := domain.Escrow{RideID: rideID}
	err := r.q.QueryRowContext(ctx, query, int64(rideID)).Scan(&amount, &escrow.Released)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, errors.Wrapf(err, "select escrow for ride %d", rideID)
	}
	escrow.Amount = domain.Amount(amount)
	return &escrow, nil
}

// Release empties the escrow and returns the amount that was held.
func (r *EscrowRepository) Release(ctx context.Context, rideID uint64) (domain.Amount, error) {
	var (
		amount   int64
		released bool
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT amount, released FROM escrows WHERE ride_id = $1 FOR UPDATE`, int64(rideID),
	).Scan(&amount, &released)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, repository.ErrNotFound
		}
		return 0, errors.Wrapf(err, "lock escrow for ride %d", rideID)
	}
	if released {
		return 0, repository.ErrEscrowReleased
	}

	if _, err := r.q.ExecContext(ctx,
		`UPDATE escrows SET amount = 0, released = TRUE WHERE ride_id = $1`, int64(rideID),
	); err != nil {
		return 0, errors.Wrapf(err, "release escrow for ride %d", rideID)
	}
	return domain.Amount(amount), nil
}

// Total returns the sum of all unreleased escrows.
func (r *EscrowRepository) Total(ctx context.Context) (domain.Amount, error) {
	var total int64
	err := r.q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM escrows WHERE NOT released`,
	).Scan(&total)
	if err != nil {
		return 0, errors.Wrap(err, "sum escrows")
	}
	return domain.Amount(total), nil
}
