package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"rideledger/internal/domain"
)

// EventPublisher delivers committed ride events to observers.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.Event) error
}

// MultiPublisher fans an event out to every publisher it holds.
type MultiPublisher []EventPublisher

// Publish delivers the event to all publishers and joins their errors.
func (m MultiPublisher) Publish(ctx context.Context, event *domain.Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogPublisher writes every event to the structured log.
type LogPublisher struct {
	log logrus.FieldLogger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(log logrus.FieldLogger) *LogPublisher {
	return &LogPublisher{log: log}
}

// Publish logs the event.
func (p *LogPublisher) Publish(ctx context.Context, event *domain.Event) error {
	fields := logrus.Fields{
		"event":        event.Type,
		"seq":          event.Seq,
		"ride_id":      event.RideID,
		"operation_id": event.OperationID,
	}
	switch event.Type {
	case domain.EventRideRequested:
		fields["rider"] = event.Rider
		fields["fare"] = event.Fare
	case domain.EventRideAccepted:
		fields["driver"] = event.Driver
	case domain.EventRideCompleted:
		fields["rider"] = event.Rider
		fields["driver"] = event.Driver
	}
	p.log.WithFields(fields).Info("ride event")
	return nil
}

var (
	_ EventPublisher = MultiPublisher(nil)
	_ EventPublisher = (*LogPublisher)(nil)
)
