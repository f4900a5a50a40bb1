package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"roadsheet/internal/domain"
	"roadsheet/internal/repository"
)

// MeterReadingRepository is a PostgreSQL implementation of repository.MeterReadingRepository.
type MeterReadingRepository struct {
	q Querier
}

// NewMeterReadingRepository creates a new PostgreSQL meter reading repository.
func NewMeterReadingRepository(db *sql.DB) *MeterReadingRepository {
	return &MeterReadingRepository{q: db}
}

// NewMeterReadingRepositoryWithTx creates a meter reading repository using a transaction.
func NewMeterReadingRepositoryWithTx(tx *sql.Tx) *MeterReadingRepository {
	return &MeterReadingRepository{q: tx}
}

const readingColumns = `
	id, shift_id, flag_fall_start, flag_fall_end, total_km_start, total_km_end,
	loaded_km_start, loaded_km_end, drop_start, drop_end, created_at, updated_at
`

// GetByShift retrieves the single reading of a shift, nil if none exists.
func (r *MeterReadingRepository) GetByShift(ctx context.Context, shiftID string) (*domain.MeterReading, error) {
	query := `SELECT ` + readingColumns + ` FROM meter_readings WHERE shift_id = $1`

	var reading domain.MeterReading
	err := r.q.QueryRowContext(ctx, query, shiftID).Scan(
		&reading.ID,
		&reading.ShiftID,
		&reading.FlagFallStart,
		&reading.FlagFallEnd,
		&reading.TotalKmStart,
		&reading.TotalKmEnd,
		&reading.LoadedKmStart,
		&reading.LoadedKmEnd,
		&reading.DropStart,
		&reading.DropEnd,
		&reading.CreatedAt,
		&reading.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &reading, nil
}

// Create persists a new reading. The shift_id unique constraint turns a
// concurrent first-merge race into ErrConflict.
func (r *MeterReadingRepository) Create(ctx context.Context, reading *domain.MeterReading) error {
	query := `
		INSERT INTO meter_readings (` + readingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.q.ExecContext(ctx, query,
		reading.ID,
		reading.ShiftID,
		reading.FlagFallStart,
		reading.FlagFallEnd,
		reading.TotalKmStart,
		reading.TotalKmEnd,
		reading.LoadedKmStart,
		reading.LoadedKmEnd,
		reading.DropStart,
		reading.DropEnd,
		reading.CreatedAt,
		reading.UpdatedAt,
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

// Update rewrites an existing reading.
func (r *MeterReadingRepository) Update(ctx context.Context, reading *domain.MeterReading) error {
	query := `
		UPDATE meter_readings
		SET flag_fall_start = $1, flag_fall_end = $2, total_km_start = $3,
			total_km_end = $4, loaded_km_start = $5, loaded_km_end = $6,
			drop_start = $7, drop_end = $8, updated_at = $9
		WHERE id = $10
	`

	result, err := r.q.ExecContext(ctx, query,
		reading.FlagFallStart,
		reading.FlagFallEnd,
		reading.TotalKmStart,
		reading.TotalKmEnd,
		reading.LoadedKmStart,
		reading.LoadedKmEnd,
		reading.DropStart,
		reading.DropEnd,
		reading.UpdatedAt,
		reading.ID,
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

// Ensure MeterReadingRepository implements repository.MeterReadingRepository.
var _ repository.MeterReadingRepository = (*MeterReadingRepository)(nil)
