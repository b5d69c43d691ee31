package postgres

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"rideledger/internal/domain"
)

// EventRepository is a PostgreSQL implementation of repository.EventRepository.
type EventRepository struct {
	q Querier
}

// NewEventRepository creates a new PostgreSQL event repository.
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{q: db}
}

// NewEventRepositoryWithTx creates an event repository using a transaction.
func NewEventRepositoryWithTx(tx *sql.Tx) *EventRepository {
	return &EventRepository{q: tx}
}

// Append assigns the next sequence number to event and stores it. Sequence
// numbers come from a locked counter so events become visible in order.
func (r *EventRepository) Append(ctx context.Context, e *domain.Event) error {
	seq, err := nextCounterValue(ctx, r.q, "event_seq")
	if err != nil {
		return err
	}

	query := `
		INSERT INTO ride_events (seq, type, ride_id, rider, driver, pickup, dropoff, fare, operation_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if _, err := r.q.ExecContext(ctx, query,
		int64(seq),
		string(e.Type),
		int64(e.RideID),
		e.Rider,
		e.Driver,
		e.Pickup,
		e.Dropoff,
		int64(e.Fare),
		e.OperationID,
		e.OccurredAt,
	); err != nil {
		return errors.Wrapf(err, "insert %s event", e.Type)
	}

	e.Seq = seq
	return nil
}

// ListAfter returns up to limit events with a sequence number greater than after.
func (r *EventRepository) ListAfter(ctx context.Context, after uint64, limit int) ([]*domain.Event, error) {
	query := `
		SELECT seq, type, ride_id, rider, driver, pickup, dropoff, fare, operation_id, occurred_at
		FROM ride_events WHERE seq > $1 ORDER BY seq LIMIT $2
	`

	rows, err := r.q.QueryContext(ctx, query, int64(after), limit)
	if err != nil {
		return nil, errors.Wrap(err, "list events")
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		var (
			e      domain.Event
			seq    int64
			typ    string
			rideID int64
			fare   int64
		)
		if err := rows.Scan(&seq, &typ, &rideID, &e.Rider, &e.Driver, &e.Pickup, &e.Dropoff, &fare, &e.OperationID, &e.OccurredAt); err != nil {
			return nil, errors.Wrap(err, "scan event")
		}
		e.Seq = uint64(seq)
		e.Type = domain.EventType(typ)
		e.RideID = uint64(rideID)
		e.Fare = domain.Amount(fare)
		events = append(events, &e)
	}
	return events, rows.Err()
}
