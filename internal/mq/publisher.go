package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"rideledger/internal/domain"
	"rideledger/internal/service"
)

// Routing keys of ride events.
const (
	RoutingKeyRideRequested = "ride.requested"
	RoutingKeyRideAccepted  = "ride.accepted"
	RoutingKeyRideCompleted = "ride.completed"
	RoutingKeyRideCancelled = "ride.cancelled"
)

// Sender is the part of RabbitMQ the event publisher needs.
type Sender interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
}

// EventMessage is the wire form of a ride event.
type EventMessage struct {
	Seq         uint64    `json:"seq"`
	Type        string    `json:"type"`
	RideID      uint64    `json:"ride_id"`
	Rider       string    `json:"rider,omitempty"`
	Driver      string    `json:"driver,omitempty"`
	Pickup      string    `json:"pickup_location,omitempty"`
	Dropoff     string    `json:"dropoff_location,omitempty"`
	Fare        *int64    `json:"fare,omitempty"`
	OperationID string    `json:"operation_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// NewEventMessage converts an event into its wire form.
func NewEventMessage(e *domain.Event) EventMessage {
	msg := EventMessage{
		Seq:         e.Seq,
		Type:        string(e.Type),
		RideID:      e.RideID,
		Rider:       e.Rider,
		Driver:      e.Driver,
		Pickup:      e.Pickup,
		Dropoff:     e.Dropoff,
		OperationID: e.OperationID,
		OccurredAt:  e.OccurredAt,
	}
	if e.Type == domain.EventRideRequested {
		fare := int64(e.Fare)
		msg.Fare = &fare
	}
	return msg
}

// RoutingKey returns the routing key an event type is published under.
func RoutingKey(t domain.EventType) (string, error) {
	switch t {
	case domain.EventRideRequested:
		return RoutingKeyRideRequested, nil
	case domain.EventRideAccepted:
		return RoutingKeyRideAccepted, nil
	case domain.EventRideCompleted:
		return RoutingKeyRideCompleted, nil
	case domain.EventRideCancelled:
		return RoutingKeyRideCancelled, nil
	default:
		return "", fmt.Errorf("no routing key for event type %q", t)
	}
}

// EventPublisher publishes ride events to a topic exchange.
type EventPublisher struct {
	sender   Sender
	exchange string
}

// NewEventPublisher creates a new EventPublisher.
func NewEventPublisher(sender Sender, exchange string) *EventPublisher {
	return &EventPublisher{sender: sender, exchange: exchange}
}

// Publish sends the event under its routing key.
func (p *EventPublisher) Publish(ctx context.Context, event *domain.Event) error {
	key, err := RoutingKey(event.Type)
	if err != nil {
		return err
	}
	body, err := json.Marshal(NewEventMessage(event))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.sender.Publish(ctx, p.exchange, key, body); err != nil {
		return fmt.Errorf("publish %s: %w", key, err)
	}
	return nil
}

var _ service.EventPublisher = (*EventPublisher)(nil)
