package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"rideledger/internal/domain"
	"rideledger/internal/repository"
)

func TestStore_DoCommitsOnSuccess(t *testing.T) {
	t.Parallel()
	s := NewStore()
	ctx := context.Background()

	err := s.Do(ctx, func(ctx context.Context, repos repository.Repositories) error {
		id, err := repos.Rides.NextID(ctx)
		require.NoError(t, err)
		require.Equal(t, uint64(0), id)

		require.NoError(t, repos.Rides.Create(ctx, &domain.Ride{ID: id, Rider: "r", Fare: 3, Status: domain.RideStatusRequested}))
		require.NoError(t, repos.Escrow.Hold(ctx, id, 3))
		return repos.Accounts.Credit(ctx, "d", 2)
	})
	require.NoError(t, err)

	repos := s.Repositories()
	ride, err := repos.Rides.GetByID(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, "r", ride.Rider)

	total, err := repos.Escrow.Total(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.Amount(3), total)

	acct, err := repos.Accounts.Get(ctx, "d")
	require.NoError(t, err)
	require.Equal(t, domain.Amount(2), acct.Balance)
}

func TestStore_DoDiscardsOnError(t *testing.T) {
	t.Parallel()
	s := NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Do(ctx, func(ctx context.Context, repos repository.Repositories) error {
		id, _ := repos.Rides.NextID(ctx)
		_ = repos.Rides.Create(ctx, &domain.Ride{ID: id, Rider: "r", Status: domain.RideStatusRequested})
		_ = repos.Accounts.Credit(ctx, "d", 5)
		_ = repos.Events.Append(ctx, &domain.Event{Type: domain.EventRideRequested, RideID: id})
		return boom
	})
	require.ErrorIs(t, err, boom)

	repos := s.Repositories()
	_, err = repos.Rides.GetByID(ctx, 0)
	require.ErrorIs(t, err, repository.ErrNotFound)

	acct, err := repos.Accounts.Get(ctx, "d")
	require.NoError(t, err)
	require.Equal(t, domain.Amount(0), acct.Balance)
	require.True(t, acct.AcceptsTransfers)

	events, err := repos.Events.ListAfter(ctx, 0, 10)
	require.NoError(t, err)
	require.Empty(t, events)

	// Counters roll back with the rest of the work.
	id, err := repos.Rides.NextID(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(0), id)
}

func TestStore_DoHonoursCancelledContext(t *testing.T) {
	t.Parallel()
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.Do(ctx, func(ctx context.Context, repos repository.Repositories) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, called)
}

func TestStore_ReturnedRidesAreCopies(t *testing.T) {
	t.Parallel()
	s := NewStore()
	ctx := context.Background()
	repos := s.Repositories()

	require.NoError(t, repos.Rides.Create(ctx, &domain.Ride{ID: 0, Rider: "r", Status: domain.RideStatusRequested}))

	ride, err := repos.Rides.GetByID(ctx, 0)
	require.NoError(t, err)
	ride.Status = domain.RideStatusCancelled

	again, err := repos.Rides.GetByID(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, domain.RideStatusRequested, again.Status)
}

func TestEscrowRepository_ReleaseOnce(t *testing.T) {
	t.Parallel()
	repos := NewStore().Repositories()
	ctx := context.Background()

	require.NoError(t, repos.Escrow.Hold(ctx, 7, 12))

	amount, err := repos.Escrow.Release(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, domain.Amount(12), amount)

	_, err = repos.Escrow.Release(ctx, 7)
	require.ErrorIs(t, err, repository.ErrEscrowReleased)

	_, err = repos.Escrow.Release(ctx, 8)
	require.ErrorIs(t, err, repository.ErrNotFound)

	e, err := repos.Escrow.Get(ctx, 7)
	require.NoError(t, err)
	require.True(t, e.Released)
	require.Equal(t, domain.Amount(0), e.Amount)
}

func TestEventRepository_ListAfter(t *testing.T) {
	t.Parallel()
	repos := NewStore().Repositories()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ev := &domain.Event{Type: domain.EventRideRequested, RideID: uint64(i)}
		require.NoError(t, repos.Events.Append(ctx, ev))
		require.Equal(t, uint64(i+1), ev.Seq)
	}

	events, err := repos.Events.ListAfter(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, uint64(3), events[0].Seq)
	require.Equal(t, uint64(4), events[1].Seq)
}

func TestRideRepository_ListFilter(t *testing.T) {
	t.Parallel()
	repos := NewStore().Repositories()
	ctx := context.Background()

	rides := []*domain.Ride{
		{ID: 2, Rider: "a", Status: domain.RideStatusRequested},
		{ID: 0, Rider: "a", Driver: "d", Status: domain.RideStatusAccepted},
		{ID: 1, Rider: "b", Status: domain.RideStatusRequested},
	}
	for _, r := range rides {
		require.NoError(t, repos.Rides.Create(ctx, r))
	}

	testCases := []struct {
		name   string
		filter repository.RideFilter
		want   []uint64
	}{
		{"all ordered by id", repository.RideFilter{}, []uint64{0, 1, 2}},
		{"by rider", repository.RideFilter{Rider: "a"}, []uint64{0, 2}},
		{"by status", repository.RideFilter{Status: domain.RideStatusRequested}, []uint64{1, 2}},
		{"by driver", repository.RideFilter{Driver: "d"}, []uint64{0}},
		{"limited", repository.RideFilter{Limit: 1}, []uint64{0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := repos.Rides.List(ctx, tc.filter)
			require.NoError(t, err)
			ids := make([]uint64, 0, len(got))
			for _, r := range got {
				ids = append(ids, r.ID)
			}
			require.Equal(t, tc.want, ids)
		})
	}
}
