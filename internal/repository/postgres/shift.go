package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"roadsheet/internal/domain"
	"roadsheet/internal/repository"
)

const uniqueViolation = "23505"

// ShiftRepository is a PostgreSQL implementation of repository.ShiftRepository.
type ShiftRepository struct {
	q Querier
}

// NewShiftRepository creates a new PostgreSQL shift repository.
func NewShiftRepository(db *sql.DB) *ShiftRepository {
	return &ShiftRepository{q: db}
}

// NewShiftRepositoryWithTx creates a shift repository using a transaction.
func NewShiftRepositoryWithTx(tx *sql.Tx) *ShiftRepository {
	return &ShiftRepository{q: tx}
}

const shiftColumns = `
	id, driver_id, vehicle_id, service_date, start_time, end_time, mode,
	start_odometer, end_odometer, interruption_note, declared_cash, signature,
	closed, validated, validated_at, created_at
`

// Create persists a new shift. The uq_shifts_driver_open partial index turns
// a second concurrent open for the same driver into ErrConflict.
func (r *ShiftRepository) Create(ctx context.Context, shift *domain.Shift) error {
	query := `
		INSERT INTO shifts (` + shiftColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.q.ExecContext(ctx, query,
		shift.ID,
		shift.DriverID,
		shift.VehicleID,
		shift.ServiceDate,
		shift.StartTime,
		nullTime(shift.EndTime),
		shift.Mode,
		shift.StartOdometer,
		shift.EndOdometer,
		shift.InterruptionNote,
		shift.DeclaredCash,
		shift.Signature,
		shift.Closed,
		shift.Validated,
		nullTime(shift.ValidatedAt),
		shift.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return repository.ErrConflict
		}
		return err
	}
	return nil
}

// GetByID retrieves a shift by ID.
func (r *ShiftRepository) GetByID(ctx context.Context, id string) (*domain.Shift, error) {
	query := `SELECT ` + shiftColumns + ` FROM shifts WHERE id = $1`

	shift, err := scanShift(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return shift, nil
}

// GetAll retrieves recent shifts, newest first.
func (r *ShiftRepository) GetAll(ctx context.Context) ([]*domain.Shift, error) {
	query := `SELECT ` + shiftColumns + ` FROM shifts ORDER BY created_at DESC LIMIT 100`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shifts []*domain.Shift
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, shift)
	}
	return shifts, rows.Err()
}

// Update updates an existing shift.
func (r *ShiftRepository) Update(ctx context.Context, shift *domain.Shift) error {
	query := `
		UPDATE shifts
		SET vehicle_id = $1, service_date = $2, start_time = $3, end_time = $4,
			mode = $5, start_odometer = $6, end_odometer = $7,
			interruption_note = $8, declared_cash = $9, signature = $10,
			closed = $11, validated = $12, validated_at = $13
		WHERE id = $14
	`

	result, err := r.q.ExecContext(ctx, query,
		shift.VehicleID,
		shift.ServiceDate,
		shift.StartTime,
		nullTime(shift.EndTime),
		shift.Mode,
		shift.StartOdometer,
		shift.EndOdometer,
		shift.InterruptionNote,
		shift.DeclaredCash,
		shift.Signature,
		shift.Closed,
		shift.Validated,
		nullTime(shift.ValidatedAt),
		shift.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// FindOpenByDriver retrieves the driver's open shift regardless of mode.
// Returns nil if the driver has none.
func (r *ShiftRepository) FindOpenByDriver(ctx context.Context, driverID string) (*domain.Shift, error) {
	query := `
		SELECT ` + shiftColumns + `
		FROM shifts
		WHERE driver_id = $1 AND NOT closed
		ORDER BY created_at DESC
		LIMIT 1
	`

	shift, err := scanShift(r.q.QueryRowContext(ctx, query, driverID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return shift, nil
}

// FindActiveByDriver retrieves the open shift for a driver and mode.
// Returns nil if no open shift exists.
func (r *ShiftRepository) FindActiveByDriver(ctx context.Context, driverID string, mode domain.EncodingMode) (*domain.Shift, error) {
	query := `
		SELECT ` + shiftColumns + `
		FROM shifts
		WHERE driver_id = $1 AND mode = $2 AND NOT closed
		ORDER BY created_at DESC
		LIMIT 1
	`

	shift, err := scanShift(r.q.QueryRowContext(ctx, query, driverID, mode))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return shift, nil
}

// FindLatestValidatedByDriver retrieves the driver's most recently validated
// shift. Returns nil if the driver has none.
func (r *ShiftRepository) FindLatestValidatedByDriver(ctx context.Context, driverID string) (*domain.Shift, error) {
	query := `
		SELECT ` + shiftColumns + `
		FROM shifts
		WHERE driver_id = $1 AND validated
		ORDER BY validated_at DESC
		LIMIT 1
	`

	shift, err := scanShift(r.q.QueryRowContext(ctx, query, driverID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return shift, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanShift(row rowScanner) (*domain.Shift, error) {
	var shift domain.Shift
	var endTime, validatedAt sql.NullTime

	err := row.Scan(
		&shift.ID,
		&shift.DriverID,
		&shift.VehicleID,
		&shift.ServiceDate,
		&shift.StartTime,
		&endTime,
		&shift.Mode,
		&shift.StartOdometer,
		&shift.EndOdometer,
		&shift.InterruptionNote,
		&shift.DeclaredCash,
		&shift.Signature,
		&shift.Closed,
		&shift.Validated,
		&validatedAt,
		&shift.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if endTime.Valid {
		shift.EndTime = endTime.Time
	}
	if validatedAt.Valid {
		shift.ValidatedAt = validatedAt.Time
	}
	return &shift, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

// Ensure ShiftRepository implements repository.ShiftRepository.
var _ repository.ShiftRepository = (*ShiftRepository)(nil)
