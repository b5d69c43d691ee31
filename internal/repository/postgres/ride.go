package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"rideledger/internal/domain"
	"rideledger/internal/repository"
)

const rideColumns = `id, rider, driver, fare, status, pickup_location, dropoff_location, created_at`

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
func NewRideRepositoryWithTx(tx *sql.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

// NextID allocates the next ride id from the ride_id counter.
func (r *RideRepository) NextID(ctx context.Context) (uint64, error) {
	return nextCounterValue(ctx, r.q, "ride_id")
}

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (` + rideColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	var driver sql.NullString
	if ride.Driver != "" {
		driver = sql.NullString{String: ride.Driver, Valid: true}
	}

	_, err := r.q.ExecContext(ctx, query,
		int64(ride.ID),
		ride.Rider,
		driver,
		int64(ride.Fare),
		string(ride.Status),
		ride.PickupLocation,
		ride.DropoffLocation,
		ride.CreatedAt,
	)

	return errors.Wrap(err, "insert ride")
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id uint64) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetForUpdate retrieves a ride by ID and locks its row until the transaction ends.
func (r *RideRepository) GetForUpdate(ctx context.Context, id uint64) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

func (r *RideRepository) getOne(ctx context.Context, query string, id uint64) (*domain.Ride, error) {
	ride, err := scanRide(r.q.QueryRowContext(ctx, query, int64(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, errors.Wrapf(err, "select ride %d", id)
	}
	return ride, nil
}

// List retrieves rides matching filter ordered by ID.
func (r *RideRepository) List(ctx context.Context, filter repository.RideFilter) ([]*domain.Ride, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Rider != "" {
		args = append(args, filter.Rider)
		conds = append(conds, fmt.Sprintf("rider = $%d", len(args)))
	}
	if filter.Driver != "" {
		args = append(args, filter.Driver)
		conds = append(conds, fmt.Sprintf("driver = $%d", len(args)))
	}

	query := `SELECT ` + rideColumns + ` FROM rides`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list rides")
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan ride")
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

// Update updates the mutable fields of an existing ride.
func (r *RideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	query := `UPDATE rides SET driver = $1, status = $2 WHERE id = $3`

	var driver sql.NullString
	if ride.Driver != "" {
		driver = sql.NullString{String: ride.Driver, Valid: true}
	}

	result, err := r.q.ExecContext(ctx, query, driver, string(ride.Status), int64(ride.ID))
	if err != nil {
		return errors.Wrapf(err, "update ride %d", ride.ID)
	}
	return expectOneRow(result, repository.ErrNotFound)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*domain.Ride, error) {
	var (
		ride   domain.Ride
		id     int64
		fare   int64
		status string
		driver sql.NullString
	)
	if err := row.Scan(
		&id,
		&ride.Rider,
		&driver,
		&fare,
		&status,
		&ride.PickupLocation,
		&ride.DropoffLocation,
		&ride.CreatedAt,
	); err != nil {
		return nil, err
	}

	ride.ID = uint64(id)
	ride.Fare = domain.Amount(fare)
	ride.Status = domain.RideStatus(status)
	if driver.Valid {
		ride.Driver = driver.String
	}
	return &ride, nil
}
