package postgres

import (
	"context"
	"database/sql"

	"roadsheet/internal/domain"
	"roadsheet/internal/repository"
)

// ExpenseRepository is a PostgreSQL implementation of repository.ExpenseRepository.
type ExpenseRepository struct {
	q Querier
}

// NewExpenseRepository creates a new PostgreSQL expense repository.
func NewExpenseRepository(db *sql.DB) *ExpenseRepository {
	return &ExpenseRepository{q: db}
}

// Create persists a new expense.
func (r *ExpenseRepository) Create(ctx context.Context, expense *domain.Expense) error {
	query := `
		INSERT INTO expenses (id, shift_id, amount, category, payment_method_id, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.ExecContext(ctx, query,
		expense.ID,
		expense.ShiftID,
		expense.Amount,
		expense.Category,
		nullString(expense.PaymentMethodID),
		expense.Note,
		expense.CreatedAt,
	)
	return err
}

// ListByShift retrieves the expenses of a shift, oldest first.
func (r *ExpenseRepository) ListByShift(ctx context.Context, shiftID string) ([]*domain.Expense, error) {
	query := `
		SELECT id, shift_id, amount, category, payment_method_id, note, created_at
		FROM expenses WHERE shift_id = $1 ORDER BY created_at ASC
	`

	rows, err := r.q.QueryContext(ctx, query, shiftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []*domain.Expense
	for rows.Next() {
		var expense domain.Expense
		var paymentMethodID sql.NullString

		if err := rows.Scan(
			&expense.ID,
			&expense.ShiftID,
			&expense.Amount,
			&expense.Category,
			&paymentMethodID,
			&expense.Note,
			&expense.CreatedAt,
		); err != nil {
			return nil, err
		}
		expense.PaymentMethodID = paymentMethodID.String

		expenses = append(expenses, &expense)
	}

	return expenses, rows.Err()
}

// Ensure ExpenseRepository implements repository.ExpenseRepository.
var _ repository.ExpenseRepository = (*ExpenseRepository)(nil)
