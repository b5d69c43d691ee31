package memory

import (
	"context"

	"rideledger/internal/domain"
	"rideledger/internal/repository"
)

// runner executes fn against a transaction, committing it if the runner owns it.
type runner func(fn func(t *txn) error) error

type rideRepository struct {
	run runner
}

func (r rideRepository) NextID(ctx context.Context) (id uint64, err error) {
	err = r.run(func(t *txn) error {
		id = t.nextRideID
		t.nextRideID++
		return nil
	})
	return id, err
}

func (r rideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	return r.run(func(t *txn) error {
		t.rides[ride.ID] = ride.Clone()
		return nil
	})
}

func (r rideRepository) GetByID(ctx context.Context, id uint64) (ride *domain.Ride, err error) {
	err = r.run(func(t *txn) error {
		stored, ok := t.ride(id)
		if !ok {
			return repository.ErrNotFound
		}
		ride = stored.Clone()
		return nil
	})
	return ride, err
}

// GetForUpdate is GetByID: the store lock already serializes units of work.
func (r rideRepository) GetForUpdate(ctx context.Context, id uint64) (*domain.Ride, error) {
	return r.GetByID(ctx, id)
}

func (r rideRepository) List(ctx context.Context, filter repository.RideFilter) (rides []*domain.Ride, err error) {
	err = r.run(func(t *txn) error {
		for _, ride := range t.allRides() {
			if filter.Status != "" && ride.Status != filter.Status {
				continue
			}
			if filter.Rider != "" && ride.Rider != filter.Rider {
				continue
			}
			if filter.Driver != "" && ride.Driver != filter.Driver {
				continue
			}
			rides = append(rides, ride.Clone())
			if filter.Limit > 0 && len(rides) == filter.Limit {
				break
			}
		}
		return nil
	})
	return rides, err
}

func (r rideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	return r.run(func(t *txn) error {
		if _, ok := t.ride(ride.ID); !ok {
			return repository.ErrNotFound
		}
		t.rides[ride.ID] = ride.Clone()
		return nil
	})
}

type escrowRepository struct {
	run runner
}

func (r escrowRepository) Hold(ctx context.Context, rideID uint64, amount domain.Amount) error {
	return r.run(func(t *txn) error {
		t.escrows[rideID] = &domain.Escrow{RideID: rideID, Amount: amount}
		return nil
	})
}

func (r escrowRepository) Get(ctx context.Context, rideID uint64) (escrow *domain.Escrow, err error) {
	err = r.run(func(t *txn) error {
		stored, ok := t.escrow(rideID)
		if !ok {
			return repository.ErrNotFound
		}
		c := *stored
		escrow = &c
		return nil
	})
	return escrow, err
}

func (r escrowRepository) Release(ctx context.Context, rideID uint64) (amount domain.Amount, err error) {
	err = r.run(func(t *txn) error {
		stored, ok := t.escrow(rideID)
		if !ok {
			return repository.ErrNotFound
		}
		if stored.Released {
			return repository.ErrEscrowReleased
		}
		amount = stored.Amount
		t.escrows[rideID] = &domain.Escrow{RideID: rideID, Released: true}
		return nil
	})
	return amount, err
}

func (r escrowRepository) Total(ctx context.Context) (total domain.Amount, err error) {
	err = r.run(func(t *txn) error {
		for _, e := range t.allEscrows() {
			if !e.Released {
				total += e.Amount
			}
		}
		return nil
	})
	return total, err
}

type accountRepository struct {
	run runner
}

func (r accountRepository) Get(ctx context.Context, id string) (account *domain.Account, err error) {
	err = r.run(func(t *txn) error {
		c := *t.account(id)
		account = &c
		return nil
	})
	return account, err
}

func (r accountRepository) Credit(ctx context.Context, id string, amount domain.Amount) error {
	return r.run(func(t *txn) error {
		c := *t.account(id)
		c.Balance += amount
		t.accounts[id] = &c
		return nil
	})
}

func (r accountRepository) SetAcceptsTransfers(ctx context.Context, id string, accepts bool) error {
	return r.run(func(t *txn) error {
		c := *t.account(id)
		c.AcceptsTransfers = accepts
		t.accounts[id] = &c
		return nil
	})
}

type transferRepository struct {
	run runner
}

func (r transferRepository) Create(ctx context.Context, transfer *domain.Transfer) error {
	return r.run(func(t *txn) error {
		c := *transfer
		t.transfers = append(t.transfers, &c)
		return nil
	})
}

func (r transferRepository) ListByRide(ctx context.Context, rideID uint64) (transfers []*domain.Transfer, err error) {
	err = r.run(func(t *txn) error {
		for _, list := range [][]*domain.Transfer{t.base.transfers, t.transfers} {
			for _, tr := range list {
				if tr.RideID == rideID {
					c := *tr
					transfers = append(transfers, &c)
				}
			}
		}
		return nil
	})
	return transfers, err
}

type eventRepository struct {
	run runner
}

func (r eventRepository) Append(ctx context.Context, event *domain.Event) error {
	return r.run(func(t *txn) error {
		event.Seq = t.nextEventSeq
		t.nextEventSeq++
		c := *event
		t.events = append(t.events, &c)
		return nil
	})
}

func (r eventRepository) ListAfter(ctx context.Context, after uint64, limit int) (events []*domain.Event, err error) {
	err = r.run(func(t *txn) error {
		for _, list := range [][]*domain.Event{t.base.events, t.events} {
			for _, e := range list {
				if e.Seq <= after {
					continue
				}
				if limit > 0 && len(events) == limit {
					return nil
				}
				c := *e
				events = append(events, &c)
			}
		}
		return nil
	})
	return events, err
}
