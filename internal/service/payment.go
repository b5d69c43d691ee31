package service

import (
	"context"

	"rideledger/internal/domain"
	"rideledger/internal/repository"
)

// Disburser moves funds released from escrow to their destination account.
// It runs inside the caller's unit of work: returning an error rolls back
// the transition that triggered it.
type Disburser interface {
	Disburse(ctx context.Context, accounts repository.AccountRepository, to string, amount domain.Amount) error
}

// AccountDisburser credits the destination's ledger balance.
type AccountDisburser struct{}

// NewAccountDisburser creates a new AccountDisburser.
func NewAccountDisburser() *AccountDisburser {
	return &AccountDisburser{}
}

// Disburse credits amount to the destination account. Accounts that opted out
// of incoming transfers reject every disbursement, including zero amounts.
func (d *AccountDisburser) Disburse(ctx context.Context, accounts repository.AccountRepository, to string, amount domain.Amount) error {
	account, err := accounts.Get(ctx, to)
	if err != nil {
		return err
	}
	if !account.AcceptsTransfers {
		return ErrTransferRejected
	}
	if amount == 0 {
		return nil
	}
	return accounts.Credit(ctx, to, amount)
}

var _ Disburser = (*AccountDisburser)(nil)
