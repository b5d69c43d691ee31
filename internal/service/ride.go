package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"rideledger/internal/domain"
	"rideledger/internal/repository"
)

// Operation names used for logging and metrics.
const (
	OpRequestRide  = "request_ride"
	OpAcceptRide   = "accept_ride"
	OpCompleteRide = "complete_ride"
	OpCancelRide   = "cancel_ride"
)

// RideCache caches committed ride snapshots for reads. SetRide must not
// replace a snapshot whose status is further along the lifecycle.
type RideCache interface {
	GetRide(ctx context.Context, id uint64) (*domain.Ride, error) // nil, nil on miss
	SetRide(ctx context.Context, ride *domain.Ride) error
	InvalidateRide(ctx context.Context, id uint64) error
}

// Recorder observes ledger activity.
type Recorder interface {
	ObserveOperation(operation string, err error, elapsed time.Duration)
	ObserveFunds(kind domain.TransferKind, amount domain.Amount)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, error, time.Duration)   {}
func (nopRecorder) ObserveFunds(domain.TransferKind, domain.Amount) {}

// LedgerDeps contains the collaborators of a RideLedger. Only UnitOfWork is required.
type LedgerDeps struct {
	UnitOfWork repository.UnitOfWork
	Disburser  Disburser
	Publisher  EventPublisher
	Cache      RideCache
	Recorder   Recorder
	Logger     logrus.FieldLogger
	Clock      func() time.Time
}

// RideLedger is the single authority over ride records and the funds escrowed
// against them. Every mutation runs as one unit of work: the status change,
// the custody movement and the event either all commit or none do.
type RideLedger struct {
	uow       repository.UnitOfWork
	disburser Disburser
	publisher EventPublisher
	cache     RideCache
	recorder  Recorder
	log       logrus.FieldLogger
	now       func() time.Time
}

// NewRideLedger creates a new RideLedger.
func NewRideLedger(deps LedgerDeps) *RideLedger {
	l := &RideLedger{
		uow:       deps.UnitOfWork,
		disburser: deps.Disburser,
		publisher: deps.Publisher,
		cache:     deps.Cache,
		recorder:  deps.Recorder,
		log:       deps.Logger,
		now:       deps.Clock,
	}
	if l.disburser == nil {
		l.disburser = NewAccountDisburser()
	}
	if l.recorder == nil {
		l.recorder = nopRecorder{}
	}
	if l.log == nil {
		l.log = logrus.StandardLogger()
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l
}

// RequestRideRequest contains the parameters for requesting a ride.
type RequestRideRequest struct {
	Caller          string
	PickupLocation  string
	DropoffLocation string
	Fare            domain.Amount
	FundsProvided   domain.Amount // payment attached to the request
}

// RideResult is the outcome of a committed ride transition.
type RideResult struct {
	OperationID string
	Ride        *domain.Ride
	Event       *domain.Event
}

// mutation collects what a unit of work produced so it can be acted on after commit.
type mutation struct {
	operationID string
	ride        *domain.Ride
	event       *domain.Event
	transfers   []*domain.Transfer
}

// RequestRide creates a ride in Requested state and escrows the attached funds.
func (l *RideLedger) RequestRide(ctx context.Context, req RequestRideRequest) (*RideResult, error) {
	return l.mutate(ctx, OpRequestRide, req.Caller, func(ctx context.Context, repos repository.Repositories, m *mutation) error {
		if req.Fare < 0 || req.FundsProvided < 0 {
			return ErrInvalidAmount
		}
		if req.FundsProvided != req.Fare {
			return fmt.Errorf("%w: fare %d, attached %d", ErrFundsMismatch, req.Fare, req.FundsProvided)
		}

		id, err := repos.Rides.NextID(ctx)
		if err != nil {
			return err
		}

		ride := &domain.Ride{
			ID:              id,
			Rider:           req.Caller,
			Fare:            req.Fare,
			CreatedAt:       l.now(),
			Status:          domain.RideStatusRequested,
			PickupLocation:  req.PickupLocation,
			DropoffLocation: req.DropoffLocation,
		}
		if err := repos.Rides.Create(ctx, ride); err != nil {
			return err
		}

		if err := repos.Escrow.Hold(ctx, id, req.FundsProvided); err != nil {
			return err
		}
		if err := l.recordTransfer(ctx, repos, m, id, domain.TransferKindDeposit, req.Caller, domain.EscrowAccount, req.FundsProvided); err != nil {
			return err
		}

		m.ride = ride
		return l.appendEvent(ctx, repos, m, &domain.Event{
			Type:    domain.EventRideRequested,
			RideID:  id,
			Rider:   ride.Rider,
			Pickup:  ride.PickupLocation,
			Dropoff: ride.DropoffLocation,
			Fare:    ride.Fare,
		})
	})
}

// AcceptRide assigns the caller as driver of a Requested ride.
// Any caller may accept, including the rider.
func (l *RideLedger) AcceptRide(ctx context.Context, rideID uint64, caller string) (*RideResult, error) {
	return l.mutate(ctx, OpAcceptRide, caller, func(ctx context.Context, repos repository.Repositories, m *mutation) error {
		ride, err := loadRide(ctx, repos, rideID)
		if err != nil {
			return err
		}
		if err := transition(ride, domain.RideStatusAccepted); err != nil {
			return err
		}

		ride.Driver = caller
		if err := repos.Rides.Update(ctx, ride); err != nil {
			return err
		}

		m.ride = ride
		return l.appendEvent(ctx, repos, m, &domain.Event{
			Type:   domain.EventRideAccepted,
			RideID: ride.ID,
			Driver: ride.Driver,
		})
	})
}

// CompleteRide marks an Accepted ride Completed and pays the escrowed fare to
// its driver. Only the assigned driver may complete the ride.
func (l *RideLedger) CompleteRide(ctx context.Context, rideID uint64, caller string) (*RideResult, error) {
	return l.mutate(ctx, OpCompleteRide, caller, func(ctx context.Context, repos repository.Repositories, m *mutation) error {
		ride, err := loadRide(ctx, repos, rideID)
		if err != nil {
			return err
		}
		if !ride.HasDriver() && !ride.Status.IsTerminal() {
			return fmt.Errorf("%w: ride %d has no driver", ErrRideNotFound, ride.ID)
		}
		if err := transition(ride, domain.RideStatusCompleted); err != nil {
			return err
		}
		if caller != ride.Driver {
			return fmt.Errorf("%w: only the assigned driver may complete ride %d", ErrUnauthorized, ride.ID)
		}

		if err := repos.Rides.Update(ctx, ride); err != nil {
			return err
		}
		if err := l.releaseEscrow(ctx, repos, m, ride, domain.TransferKindPayout, ride.Driver, ErrPayoutFailed); err != nil {
			return err
		}

		m.ride = ride
		return l.appendEvent(ctx, repos, m, &domain.Event{
			Type:   domain.EventRideCompleted,
			RideID: ride.ID,
			Rider:  ride.Rider,
			Driver: ride.Driver,
		})
	})
}

// CancelRide cancels a Requested or Accepted ride and refunds a non-zero fare
// to the rider. Any caller may cancel.
func (l *RideLedger) CancelRide(ctx context.Context, rideID uint64, caller string) (*RideResult, error) {
	return l.mutate(ctx, OpCancelRide, caller, func(ctx context.Context, repos repository.Repositories, m *mutation) error {
		ride, err := loadRide(ctx, repos, rideID)
		if err != nil {
			return err
		}
		if err := transition(ride, domain.RideStatusCancelled); err != nil {
			return err
		}

		if err := repos.Rides.Update(ctx, ride); err != nil {
			return err
		}

		if ride.Fare > 0 {
			if err := l.releaseEscrow(ctx, repos, m, ride, domain.TransferKindRefund, ride.Rider, ErrRefundFailed); err != nil {
				return err
			}
		} else if _, err := releaseHeld(ctx, repos, ride.ID); err != nil {
			return err
		}

		m.ride = ride
		return l.appendEvent(ctx, repos, m, &domain.Event{
			Type:   domain.EventRideCancelled,
			RideID: ride.ID,
		})
	})
}

// GetRide returns a snapshot of a ride. The cache is only filled by committed
// mutations, never from this read path.
func (l *RideLedger) GetRide(ctx context.Context, rideID uint64) (*domain.Ride, error) {
	if l.cache != nil {
		if cached, err := l.cache.GetRide(ctx, rideID); err == nil && cached != nil {
			return cached, nil
		}
	}

	ride, err := l.uow.Repositories().Rides.GetByID(ctx, rideID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, err
	}
	return ride, nil
}

// mutate runs fn as one unit of work and, once committed, publishes its event,
// caches the committed ride snapshot and records metrics.
func (l *RideLedger) mutate(
	ctx context.Context,
	operation string,
	caller string,
	fn func(ctx context.Context, repos repository.Repositories, m *mutation) error,
) (*RideResult, error) {
	started := time.Now()
	log := l.log.WithFields(logrus.Fields{"operation": operation, "caller": caller})

	if caller == "" {
		l.recorder.ObserveOperation(operation, ErrInvalidCaller, time.Since(started))
		return nil, ErrInvalidCaller
	}

	var m *mutation
	err := l.uow.Do(ctx, func(ctx context.Context, repos repository.Repositories) error {
		m = &mutation{operationID: uuid.New().String()}
		return fn(ctx, repos, m)
	})
	l.recorder.ObserveOperation(operation, err, time.Since(started))
	if err != nil {
		if errors.Is(err, ErrPayoutFailed) || errors.Is(err, ErrRefundFailed) {
			log.WithError(err).Warn("custody transfer failed, transition rolled back")
		} else {
			log.WithError(err).Debug("operation rejected")
		}
		return nil, err
	}

	for _, t := range m.transfers {
		l.recorder.ObserveFunds(t.Kind, t.Amount)
	}

	log = log.WithFields(logrus.Fields{
		"ride_id":      m.ride.ID,
		"operation_id": m.operationID,
		"status":       m.ride.Status,
	})
	log.Info("ride transition committed")

	if l.cache != nil {
		if err := l.cache.SetRide(ctx, m.ride); err != nil {
			log.WithError(err).Warn("failed to cache ride, dropping cached snapshot")
			if err := l.cache.InvalidateRide(ctx, m.ride.ID); err != nil {
				log.WithError(err).Warn("failed to invalidate cached ride")
			}
		}
	}
	if l.publisher != nil {
		if err := l.publisher.Publish(ctx, m.event); err != nil {
			log.WithError(err).Warn("failed to publish ride event")
		}
	}

	return &RideResult{
		OperationID: m.operationID,
		Ride:        m.ride,
		Event:       m.event,
	}, nil
}

// releaseEscrow empties the ride's escrow into the destination account. Only a
// rejected disbursement is reported as failed; store errors pass through.
func (l *RideLedger) releaseEscrow(
	ctx context.Context,
	repos repository.Repositories,
	m *mutation,
	ride *domain.Ride,
	kind domain.TransferKind,
	to string,
	failed error,
) error {
	amount, err := releaseHeld(ctx, repos, ride.ID)
	if err != nil {
		return err
	}
	if err := l.disburser.Disburse(ctx, repos.Accounts, to, amount); err != nil {
		return fmt.Errorf("%w: %w", failed, err)
	}
	return l.recordTransfer(ctx, repos, m, ride.ID, kind, domain.EscrowAccount, to, amount)
}

// recordTransfer journals a custody movement. Zero amounts are not journaled.
func (l *RideLedger) recordTransfer(
	ctx context.Context,
	repos repository.Repositories,
	m *mutation,
	rideID uint64,
	kind domain.TransferKind,
	from, to string,
	amount domain.Amount,
) error {
	if amount == 0 {
		return nil
	}
	t := &domain.Transfer{
		ID:          uuid.New().String(),
		RideID:      rideID,
		Kind:        kind,
		From:        from,
		To:          to,
		Amount:      amount,
		OperationID: m.operationID,
		CreatedAt:   l.now(),
	}
	if err := repos.Transfers.Create(ctx, t); err != nil {
		return err
	}
	m.transfers = append(m.transfers, t)
	return nil
}

func (l *RideLedger) appendEvent(ctx context.Context, repos repository.Repositories, m *mutation, event *domain.Event) error {
	event.OperationID = m.operationID
	event.OccurredAt = l.now()
	if err := repos.Events.Append(ctx, event); err != nil {
		return err
	}
	m.event = event
	return nil
}

// releaseHeld marks the ride's escrow released. Every ride holds an escrow
// from creation, so a missing one is an internal fault rather than NotFound.
func releaseHeld(ctx context.Context, repos repository.Repositories, rideID uint64) (domain.Amount, error) {
	amount, err := repos.Escrow.Release(ctx, rideID)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, fmt.Errorf("escrow for ride %d is missing: %s", rideID, err)
	}
	return amount, err
}

func loadRide(ctx context.Context, repos repository.Repositories, rideID uint64) (*domain.Ride, error) {
	ride, err := repos.Rides.GetForUpdate(ctx, rideID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, err
	}
	return ride, nil
}

// transition moves ride to next or reports why it cannot.
func transition(ride *domain.Ride, next domain.RideStatus) error {
	if !ride.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: ride %d is %s", ErrInvalidState, ride.ID, ride.Status)
	}
	ride.Status = next
	return nil
}
