package domain

import "time"

// Amount is a quantity of the ledger's unit of account in its smallest indivisible unit.
type Amount int64

// TransferKind describes why funds moved in or out of ledger custody.
type TransferKind string

const (
	TransferKindDeposit TransferKind = "DEPOSIT" // rider -> escrow
	TransferKindPayout  TransferKind = "PAYOUT"  // escrow -> driver
	TransferKindRefund  TransferKind = "REFUND"  // escrow -> rider
)

// EscrowAccount is the pseudo-account that holds funds under ledger custody.
const EscrowAccount = "escrow"

// Escrow represents the funds held against a single ride.
type Escrow struct {
	RideID   uint64
	Amount   Amount
	Released bool
}

// Transfer is an immutable journal entry for a custody movement.
type Transfer struct {
	ID          string
	RideID      uint64
	Kind        TransferKind
	From        string
	To          string
	Amount      Amount
	OperationID string
	CreatedAt   time.Time
}

// Account is a party's balance held by the ledger.
type Account struct {
	ID               string
	Balance          Amount
	AcceptsTransfers bool
}

// NewAccount returns the implicit state of an account that has never been touched.
func NewAccount(id string) *Account {
	return &Account{ID: id, AcceptsTransfers: true}
}
