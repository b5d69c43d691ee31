package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"rideledger/internal/domain"
	"rideledger/internal/service"
)

// DefaultStreamMaxLen caps the event stream; older entries are trimmed approximately.
const DefaultStreamMaxLen = 100000

// StreamPublisher appends committed ride events to a Redis stream.
type StreamPublisher struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

// NewStreamPublisher creates a new StreamPublisher writing to stream.
func NewStreamPublisher(client redis.Cmdable, stream string) *StreamPublisher {
	return &StreamPublisher{client: client, stream: stream, maxLen: DefaultStreamMaxLen}
}

// Publish adds the event to the stream.
func (p *StreamPublisher) Publish(ctx context.Context, event *domain.Event) error {
	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: streamValues(event),
	}).Err()
}

func streamValues(e *domain.Event) map[string]any {
	values := map[string]any{
		"seq":          strconv.FormatUint(e.Seq, 10),
		"type":         string(e.Type),
		"ride_id":      strconv.FormatUint(e.RideID, 10),
		"operation_id": e.OperationID,
		"occurred_at":  e.OccurredAt.UTC().Format(time.RFC3339Nano),
	}
	switch e.Type {
	case domain.EventRideRequested:
		values["rider"] = e.Rider
		values["pickup"] = e.Pickup
		values["dropoff"] = e.Dropoff
		values["fare"] = strconv.FormatInt(int64(e.Fare), 10)
	case domain.EventRideAccepted:
		values["driver"] = e.Driver
	case domain.EventRideCompleted:
		values["rider"] = e.Rider
		values["driver"] = e.Driver
	}
	return values
}

var _ service.EventPublisher = (*StreamPublisher)(nil)
