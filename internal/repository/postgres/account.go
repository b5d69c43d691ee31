package postgres

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"rideledger/internal/domain"
)

// AccountRepository is a PostgreSQL implementation of repository.AccountRepository.
type AccountRepository struct {
	q Querier
}

// NewAccountRepository creates a new PostgreSQL account repository.
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{q: db}
}

// NewAccountRepositoryWithTx creates an account repository using a transaction.
func NewAccountRepositoryWithTx(tx *sql.Tx) *AccountRepository {
	return &AccountRepository{q: tx}
}

// Get retrieves an account, defaulting to an empty one.
func (r *AccountRepository) Get(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT balance, accepts_transfers FROM accounts WHERE id = $1`

	var balance int64
	account := domain.NewAccount(id)
	err := r.q.QueryRowContext(ctx, query, id).Scan(&balance, &account.AcceptsTransfers)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return account, nil
		}
		return nil, errors.Wrapf(err, "select account %s", id)
	}
	account.Balance = domain.Amount(balance)
	return account, nil
}

// Credit adds amount to the account balance, creating the account if needed.
func (r *AccountRepository) Credit(ctx context.Context, id string, amount domain.Amount) error {
	query := `
		INSERT INTO accounts (id, balance) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET balance = accounts.balance + EXCLUDED.balance
	`

	_, err := r.q.ExecContext(ctx, query, id, int64(amount))
	return errors.Wrapf(err, "credit account %s", id)
}

// SetAcceptsTransfers records whether the account accepts incoming transfers.
func (r *AccountRepository) SetAcceptsTransfers(ctx context.Context, id string, accepts bool) error {
	query := `
		INSERT INTO accounts (id, accepts_transfers) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET accepts_transfers = EXCLUDED.accepts_transfers
	`

	_, err := r.q.ExecContext(ctx, query, id, accepts)
	return errors.Wrapf(err, "update account %s", id)
}
