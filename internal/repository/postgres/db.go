package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// Querier is an interface satisfied by both *sql.DB and *sql.Tx, so every
// repository can run either standalone or inside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS shifts (
		id UUID PRIMARY KEY,
		driver_id UUID NOT NULL,
		vehicle_id UUID NOT NULL,
		service_date DATE NOT NULL,
		start_time TIMESTAMPTZ NOT NULL,
		end_time TIMESTAMPTZ,
		mode TEXT NOT NULL,
		start_odometer NUMERIC(12,1) NOT NULL,
		end_odometer NUMERIC(12,1),
		interruption_note TEXT NOT NULL DEFAULT '',
		declared_cash NUMERIC(12,2),
		signature TEXT NOT NULL DEFAULT '',
		closed BOOLEAN NOT NULL DEFAULT FALSE,
		validated BOOLEAN NOT NULL DEFAULT FALSE,
		validated_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,

	// A driver can have at most one open shift; concurrent opens race on this
	// index instead of on an application-level existence check.
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_shifts_driver_open
		ON shifts (driver_id) WHERE NOT closed;`,

	`CREATE TABLE IF NOT EXISTS courses (
		id UUID PRIMARY KEY,
		shift_id UUID NOT NULL REFERENCES shifts(id),
		sequence INT NOT NULL,
		pickup_location TEXT NOT NULL,
		pickup_time TIMESTAMPTZ NOT NULL,
		pickup_index NUMERIC(12,1),
		dropoff_location TEXT NOT NULL,
		dropoff_time TIMESTAMPTZ,
		dropoff_index NUMERIC(12,1),
		meter_fare NUMERIC(12,2),
		collected NUMERIC(12,2) NOT NULL,
		payment_method_id UUID,
		client_id UUID,
		off_hours BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (shift_id, sequence)
	);`,

	`CREATE TABLE IF NOT EXISTS meter_readings (
		id UUID PRIMARY KEY,
		shift_id UUID NOT NULL UNIQUE REFERENCES shifts(id),
		flag_fall_start NUMERIC(12,2),
		flag_fall_end NUMERIC(12,2),
		total_km_start NUMERIC(12,1),
		total_km_end NUMERIC(12,1),
		loaded_km_start NUMERIC(12,1),
		loaded_km_end NUMERIC(12,1),
		drop_start NUMERIC(12,2),
		drop_end NUMERIC(12,2),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,

	`CREATE TABLE IF NOT EXISTS expenses (
		id UUID PRIMARY KEY,
		shift_id UUID NOT NULL REFERENCES shifts(id),
		amount NUMERIC(12,2) NOT NULL,
		category TEXT NOT NULL,
		payment_method_id UUID,
		note TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,

	`CREATE INDEX IF NOT EXISTS idx_shifts_driver_validated
		ON shifts (driver_id, validated_at DESC) WHERE validated;`,
	`CREATE INDEX IF NOT EXISTS idx_courses_shift ON courses (shift_id, sequence);`,
	`CREATE INDEX IF NOT EXISTS idx_expenses_shift ON expenses (shift_id);`,
}

// Migrate applies the schema statements in order. Statements are idempotent,
// so running them at every boot is safe.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrationStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d failed: %w", i, err)
		}
	}
	return nil
}
