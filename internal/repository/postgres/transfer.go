package postgres

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"rideledger/internal/domain"
)

// TransferRepository is a PostgreSQL implementation of repository.TransferRepository.
type TransferRepository struct {
	q Querier
}

// NewTransferRepository creates a new PostgreSQL transfer repository.
func NewTransferRepository(db *sql.DB) *TransferRepository {
	return &TransferRepository{q: db}
}

// NewTransferRepositoryWithTx creates a transfer repository using a transaction.
func NewTransferRepositoryWithTx(tx *sql.Tx) *TransferRepository {
	return &TransferRepository{q: tx}
}

// Create appends a journal entry.
func (r *TransferRepository) Create(ctx context.Context, t *domain.Transfer) error {
	query := `
		INSERT INTO transfers (id, ride_id, kind, from_account, to_account, amount, operation_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.q.ExecContext(ctx, query,
		t.ID,
		int64(t.RideID),
		string(t.Kind),
		t.From,
		t.To,
		int64(t.Amount),
		t.OperationID,
		t.CreatedAt,
	)
	return errors.Wrapf(err, "insert %s transfer for ride %d", t.Kind, t.RideID)
}

// ListByRide retrieves the journal entries of a ride in insertion order.
func (r *TransferRepository) ListByRide(ctx context.Context, rideID uint64) ([]*domain.Transfer, error) {
	query := `
		SELECT id, ride_id, kind, from_account, to_account, amount, operation_id, created_at
		FROM transfers WHERE ride_id = $1 ORDER BY seq
	`

	rows, err := r.q.QueryContext(ctx, query, int64(rideID))
	if err != nil {
		return nil, errors.Wrapf(err, "list transfers for ride %d", rideID)
	}
	defer rows.Close()

	var transfers []*domain.Transfer
	for rows.Next() {
		var (
			t      domain.Transfer
			ride   int64
			kind   string
			amount int64
		)
		if err := rows.Scan(&t.ID, &ride, &kind, &t.From, &t.To, &amount, &t.OperationID, &t.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan transfer")
		}
		t.RideID = uint64(ride)
		t.Kind = domain.TransferKind(kind)
		t.Amount = domain.Amount(amount)
		transfers = append(transfers, &t)
	}
	return transfers, rows.Err()
}
