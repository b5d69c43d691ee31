package redis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"rideledger/internal/domain"
	"rideledger/internal/service"
)

// DefaultRideCacheTTL bounds how long a ride snapshot may be served from cache.
const DefaultRideCacheTTL = 5 * time.Minute

const rideCachePrefix = "cache:ride:"

// CacheStore caches committed ride snapshots in Redis.
type CacheStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client redis.Cmdable, ttl time.Duration) *CacheStore {
	if ttl <= 0 {
		ttl = DefaultRideCacheTTL
	}
	return &CacheStore{client: client, ttl: ttl}
}

// CachedRide is the cached form of a ride.
type CachedRide struct {
	ID              uint64    `json:"id"`
	Rider           string    `json:"rider"`
	Driver          string    `json:"driver,omitempty"`
	Fare            int64     `json:"fare"`
	Status          string    `json:"status"`
	PickupLocation  string    `json:"pickup_location"`
	DropoffLocation string    `json:"dropoff_location"`
	CreatedAt       time.Time `json:"created_at"`
}

func toCachedRide(r *domain.Ride) *CachedRide {
	return &CachedRide{
		ID:              r.ID,
		Rider:           r.Rider,
		Driver:          r.Driver,
		Fare:            int64(r.Fare),
		Status:          string(r.Status),
		PickupLocation:  r.PickupLocation,
		DropoffLocation: r.DropoffLocation,
		CreatedAt:       r.CreatedAt,
	}
}

func (c *CachedRide) toDomain() (*domain.Ride, error) {
	status, ok := domain.ParseRideStatus(c.Status)
	if !ok {
		return nil, errors.New("cached ride has unknown status " + strconv.Quote(c.Status))
	}
	return &domain.Ride{
		ID:              c.ID,
		Rider:           c.Rider,
		Driver:          c.Driver,
		Fare:            domain.Amount(c.Fare),
		Status:          status,
		PickupLocation:  c.PickupLocation,
		DropoffLocation: c.DropoffLocation,
		CreatedAt:       c.CreatedAt,
	}, nil
}

func rideKey(id uint64) string {
	return rideCachePrefix + strconv.FormatUint(id, 10)
}

// setRideScript stores a snapshot unless the cached one is further along the
// lifecycle. KEYS[1] ride key; ARGV rank, snapshot, ttl in milliseconds.
var setRideScript = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'rank')
if current and tonumber(current) > tonumber(ARGV[1]) then
	return 0
end
redis.call('HSET', KEYS[1], 'rank', ARGV[1], 'data', ARGV[2])
redis.call('PEXPIRE', KEYS[1], ARGV[3])
return 1
`)

// GetRide retrieves a ride from cache. A miss returns nil, nil.
func (s *CacheStore) GetRide(ctx context.Context, id uint64) (*domain.Ride, error) {
	data, err := s.client.HGet(ctx, rideKey(id), "data").Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		return nil, err
	}

	var cached CachedRide
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	return cached.toDomain()
}

// SetRide stores a committed ride snapshot. A snapshot older than the cached
// one is ignored, so late writers cannot roll the cached status back.
func (s *CacheStore) SetRide(ctx context.Context, ride *domain.Ride) error {
	_, err := s.setRide(ctx, ride)
	return err
}

func (s *CacheStore) setRide(ctx context.Context, ride *domain.Ride) (bool, error) {
	rank := ride.Status.Rank()
	if rank < 0 {
		return false, errors.New("cannot cache ride with unknown status " + strconv.Quote(string(ride.Status)))
	}
	data, err := json.Marshal(toCachedRide(ride))
	if err != nil {
		return false, err
	}
	stored, err := setRideScript.Run(ctx, s.client, []string{rideKey(ride.ID)}, rank, data, s.ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

// InvalidateRide removes a ride from cache.
func (s *CacheStore) InvalidateRide(ctx context.Context, id uint64) error {
	return s.client.Del(ctx, rideKey(id)).Err()
}

var _ service.RideCache = (*CacheStore)(nil)
