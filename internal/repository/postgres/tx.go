package postgres

import (
	"context"
	"database/sql"

	"roadsheet/internal/repository"
)

// TxRunner executes repository work inside one database transaction.
type TxRunner struct {
	db *sql.DB
}

// NewTxRunner creates a new TxRunner.
func NewTxRunner(db *sql.DB) *TxRunner {
	return &TxRunner{db: db}
}

// RunShiftTx runs fn with a shift repository bound to a fresh transaction,
// committing on success and rolling back on any error.
func (r *TxRunner) RunShiftTx(ctx context.Context, fn func(repo repository.ShiftRepository) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(NewShiftRepositoryWithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Ensure TxRunner implements repository.ShiftTxRunner.
var _ repository.ShiftTxRunner = (*TxRunner)(nil)
