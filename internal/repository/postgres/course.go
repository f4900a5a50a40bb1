package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"roadsheet/internal/domain"
	"roadsheet/internal/repository"
)

// CourseRepository is a PostgreSQL implementation of repository.CourseRepository.
type CourseRepository struct {
	q Querier
}

// NewCourseRepository creates a new PostgreSQL course repository.
func NewCourseRepository(db *sql.DB) *CourseRepository {
	return &CourseRepository{q: db}
}

// NewCourseRepositoryWithTx creates a course repository using a transaction.
func NewCourseRepositoryWithTx(tx *sql.Tx) *CourseRepository {
	return &CourseRepository{q: tx}
}

const courseColumns = `
	id, shift_id, sequence, pickup_location, pickup_time, pickup_index,
	dropoff_location, dropoff_time, dropoff_index, meter_fare, collected,
	payment_method_id, client_id, off_hours, created_at
`

// Create persists a new course.
func (r *CourseRepository) Create(ctx context.Context, course *domain.Course) error {
	query := `
		INSERT INTO courses (` + courseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	var pqErr *pq.Error

	_, err := r.q.ExecContext(ctx, query,
		course.ID,
		course.ShiftID,
		course.Sequence,
		course.PickupLocation,
		course.PickupTime,
		course.PickupIndex,
		course.DropoffLocation,
		nullTime(course.DropoffTime),
		course.DropoffIndex,
		course.MeterFare,
		course.Collected,
		nullString(course.PaymentMethodID),
		nullString(course.ClientID),
		course.OffHours,
		course.CreatedAt,
	)
	if err != nil {
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return repository.ErrConflict
		}
		return err
	}
	return nil
}

// ListByShift retrieves the courses of a shift, sequence ascending.
func (r *CourseRepository) ListByShift(ctx context.Context, shiftID string) ([]*domain.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE shift_id = $1 ORDER BY sequence ASC`

	rows, err := r.q.QueryContext(ctx, query, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []*domain.Course
	for rows.Next() {
		var course domain.Course
		var dropoffTime sql.NullTime
		var paymentMethodID, clientID sql.NullString

		if err := rows.Scan(
			&course.ID,
			&course.ShiftID,
			&course.Sequence,
			&course.PickupLocation,
			&course.PickupTime,
			&course.PickupIndex,
			&course.DropoffLocation,
			&dropoffTime,
			&course.DropoffIndex,
			&course.MeterFare,
			&course.Collected,
			&paymentMethodID,
			&clientID,
			&course.OffHours,
			&course.CreatedAt,
		); err != nil {
			return nil, err
		}

		if dropoffTime.Valid {
			course.DropoffTime = dropoffTime.Time
		}
		course.PaymentMethodID = paymentMethodID.String
		course.ClientID = clientID.String

		courses = append(courses, &course)
	}

	return courses, rows.Err()
}

// MaxSequence returns the highest sequence number used in a shift.
func (r *CourseRepository) MaxSequence(ctx context.Context, shiftID string) (int, error) {
	query := `SELECT COALESCE(MAX(sequence), 0) FROM courses WHERE shift_id = $1`

	var max int
	if err := r.q.QueryRowContext(ctx, query, shiftID).Scan(&max); err != nil {
		return 0, err
	}
	return max, nil
}

// SequenceTaken reports whether a sequence number is already used in a shift.
func (r *CourseRepository) SequenceTaken(ctx context.Context, shiftID string, sequence int) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM courses WHERE shift_id = $1 AND sequence = $2)`

	var taken bool
	if err := r.q.QueryRowContext(ctx, query, shiftID, sequence).Scan(&taken); err != nil {
		return false, err
	}
	return taken, nil
}

// SumCollected returns the sum of collected amounts over a shift's courses.
func (r *CourseRepository) SumCollected(ctx context.Context, shiftID string) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(collected), 0) FROM courses WHERE shift_id = $1`

	var sum decimal.Decimal
	if err := r.q.QueryRowContext(ctx, query, shiftID).Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	return sum, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// Ensure CourseRepository implements repository.CourseRepository.
var _ repository.CourseRepository = (*CourseRepository)(nil)
