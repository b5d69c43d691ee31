package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"rideledger/internal/domain"
	"rideledger/internal/repository"
)

// MockPublisher records every published event.
type MockPublisher struct {
	mu     sync.RWMutex
	events []*domain.Event

	PublishCallCount int32
	PublishError     error
}

func (m *MockPublisher) Publish(ctx context.Context, event *domain.Event) error {
	atomic.AddInt32(&m.PublishCallCount, 1)
	if m.PublishError != nil {
		return m.PublishError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *event
	m.events = append(m.events, &c)
	return nil
}

// Events returns a copy of the published events.
func (m *MockPublisher) Events() []*domain.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.Event(nil), m.events...)
}

// MockRideCache is an in-memory RideCache that, like the Redis store, keeps
// the snapshot furthest along the lifecycle.
type MockRideCache struct {
	mu    sync.RWMutex
	rides map[uint64]*domain.Ride

	GetCallCount        int32
	SetCallCount        int32
	InvalidateCallCount int32
	GetError            error
	SetError            error
}

func NewMockRideCache() *MockRideCache {
	return &MockRideCache{rides: make(map[uint64]*domain.Ride)}
}

func (m *MockRideCache) GetRide(ctx context.Context, id uint64) (*domain.Ride, error) {
	atomic.AddInt32(&m.GetCallCount, 1)
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.rides[id]; ok {
		return r.Clone(), nil
	}
	return nil, nil
}

func (m *MockRideCache) SetRide(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.SetCallCount, 1)
	if m.SetError != nil {
		return m.SetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.rides[ride.ID]; ok && cur.Status.Rank() > ride.Status.Rank() {
		return nil
	}
	m.rides[ride.ID] = ride.Clone()
	return nil
}

func (m *MockRideCache) InvalidateRide(ctx context.Context, id uint64) error {
	atomic.AddInt32(&m.InvalidateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rides, id)
	return nil
}

// Cached returns the held snapshot of the ride, or nil.
func (m *MockRideCache) Cached(id uint64) *domain.Ride {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.rides[id]; ok {
		return r.Clone()
	}
	return nil
}

// MockRecorder counts observed operations by outcome.
type MockRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
	funds    map[domain.TransferKind]domain.Amount
}

func NewMockRecorder() *MockRecorder {
	return &MockRecorder{
		outcomes: make(map[string]int),
		funds:    make(map[domain.TransferKind]domain.Amount),
	}
}

func (m *MockRecorder) ObserveOperation(operation string, err error, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.outcomes[operation+"/"+outcome]++
}

func (m *MockRecorder) ObserveFunds(kind domain.TransferKind, amount domain.Amount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funds[kind] += amount
}

func (m *MockRecorder) Outcome(operation, outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outcomes[operation+"/"+outcome]
}

func (m *MockRecorder) Funds(kind domain.TransferKind) domain.Amount {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.funds[kind]
}

// FailingDisburser rejects every disbursement.
type FailingDisburser struct {
	Err       error
	CallCount int32
}

func (d *FailingDisburser) Disburse(ctx context.Context, accounts repository.AccountRepository, to string, amount domain.Amount) error {
	atomic.AddInt32(&d.CallCount, 1)
	if d.Err != nil {
		return d.Err
	}
	return errors.New("disbursement unavailable")
}

// HookedUnitOfWork lets tests wrap the repositories handed out by a store.
type HookedUnitOfWork struct {
	repository.UnitOfWork
	Wrap func(repository.Repositories) repository.Repositories
}

func (u *HookedUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	return u.UnitOfWork.Do(ctx, func(ctx context.Context, repos repository.Repositories) error {
		return fn(ctx, u.Wrap(repos))
	})
}

func (u *HookedUnitOfWork) Repositories() repository.Repositories {
	return u.Wrap(u.UnitOfWork.Repositories())
}

// PausingRides holds the first GetByID after it has read the ride until
// Resume is closed. Read is closed once that read happened.
type PausingRides struct {
	repository.RideRepository
	Read   chan struct{}
	Resume chan struct{}
	once   *sync.Once
}

func NewPausingRides(rides repository.RideRepository, read, resume chan struct{}, once *sync.Once) *PausingRides {
	return &PausingRides{RideRepository: rides, Read: read, Resume: resume, once: once}
}

func (r *PausingRides) GetByID(ctx context.Context, id uint64) (*domain.Ride, error) {
	ride, err := r.RideRepository.GetByID(ctx, id)
	r.once.Do(func() {
		close(r.Read)
		<-r.Resume
	})
	return ride, err
}

// FailingEscrow fails every Release with Err.
type FailingEscrow struct {
	repository.EscrowRepository
	Err error
}

func (e FailingEscrow) Release(ctx context.Context, rideID uint64) (domain.Amount, error) {
	return 0, e.Err
}
