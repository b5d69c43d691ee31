// Package memory provides an in-process implementation of the ledger
// repositories. Every unit of work runs under a single mutex against a
// write buffer that is merged into the committed state only when the work
// succeeds.
package memory

import (
	"context"
	"sort"
	"sync"

	"rideledger/internal/domain"
	"rideledger/internal/repository"
)

type state struct {
	nextRideID   uint64
	nextEventSeq uint64
	rides        map[uint64]*domain.Ride
	escrows      map[uint64]*domain.Escrow
	accounts     map[string]*domain.Account
	transfers    []*domain.Transfer
	events       []*domain.Event
}

// Store is an in-memory repository.UnitOfWork.
type Store struct {
	mu    sync.Mutex
	state *state
}

// NewStore creates an empty store. Ride ids start at 0, event sequence numbers at 1.
func NewStore() *Store {
	return &Store{
		state: &state{
			nextEventSeq: 1,
			rides:        make(map[uint64]*domain.Ride),
			escrows:      make(map[uint64]*domain.Escrow),
			accounts:     make(map[string]*domain.Account),
		},
	}
}

// Do runs fn against a write buffer and commits it only if fn succeeds.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	t := newTxn(s.state)
	if err := fn(ctx, newRepositories(t.run)); err != nil {
		return err
	}
	t.commit()
	return nil
}

// Repositories returns repositories where every call is its own unit of work.
func (s *Store) Repositories() repository.Repositories {
	return newRepositories(s.apply)
}

func (s *Store) apply(fn func(t *txn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := newTxn(s.state)
	if err := fn(t); err != nil {
		return err
	}
	t.commit()
	return nil
}

var _ repository.UnitOfWork = (*Store)(nil)

// txn buffers writes on top of the committed state.
type txn struct {
	base         *state
	nextRideID   uint64
	nextEventSeq uint64
	rides        map[uint64]*domain.Ride
	escrows      map[uint64]*domain.Escrow
	accounts     map[string]*domain.Account
	transfers    []*domain.Transfer
	events       []*domain.Event
}

func newTxn(base *state) *txn {
	return &txn{
		base:         base,
		nextRideID:   base.nextRideID,
		nextEventSeq: base.nextEventSeq,
		rides:        make(map[uint64]*domain.Ride),
		escrows:      make(map[uint64]*domain.Escrow),
		accounts:     make(map[string]*domain.Account),
	}
}

// run executes fn directly; the caller already holds the store lock.
func (t *txn) run(fn func(t *txn) error) error {
	return fn(t)
}

func newRepositories(run runner) repository.Repositories {
	return repository.Repositories{
		Rides:     rideRepository{run: run},
		Escrow:    escrowRepository{run: run},
		Accounts:  accountRepository{run: run},
		Transfers: transferRepository{run: run},
		Events:    eventRepository{run: run},
	}
}

func (t *txn) ride(id uint64) (*domain.Ride, bool) {
	if r, ok := t.rides[id]; ok {
		return r, true
	}
	r, ok := t.base.rides[id]
	return r, ok
}

func (t *txn) escrow(rideID uint64) (*domain.Escrow, bool) {
	if e, ok := t.escrows[rideID]; ok {
		return e, true
	}
	e, ok := t.base.escrows[rideID]
	return e, ok
}

func (t *txn) account(id string) *domain.Account {
	if a, ok := t.accounts[id]; ok {
		return a
	}
	if a, ok := t.base.accounts[id]; ok {
		return a
	}
	return domain.NewAccount(id)
}

// allRides returns the merged view of committed and buffered rides ordered by id.
func (t *txn) allRides() []*domain.Ride {
	merged := make(map[uint64]*domain.Ride, len(t.base.rides)+len(t.rides))
	for id, r := range t.base.rides {
		merged[id] = r
	}
	for id, r := range t.rides {
		merged[id] = r
	}
	rides := make([]*domain.Ride, 0, len(merged))
	for _, r := range merged {
		rides = append(rides, r)
	}
	sort.Slice(rides, func(i, j int) bool { return rides[i].ID < rides[j].ID })
	return rides
}

func (t *txn) allEscrows() map[uint64]*domain.Escrow {
	merged := make(map[uint64]*domain.Escrow, len(t.base.escrows)+len(t.escrows))
	for id, e := range t.base.escrows {
		merged[id] = e
	}
	for id, e := range t.escrows {
		merged[id] = e
	}
	return merged
}

func (t *txn) commit() {
	t.base.nextRideID = t.nextRideID
	t.base.nextEventSeq = t.nextEventSeq
	for id, r := range t.rides {
		t.base.rides[id] = r
	}
	for id, e := range t.escrows {
		t.base.escrows[id] = e
	}
	for id, a := range t.accounts {
		t.base.accounts[id] = a
	}
	t.base.transfers = append(t.base.transfers, t.transfers...)
	t.base.events = append(t.base.events, t.events...)
}
