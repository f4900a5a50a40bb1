package repository

import (
	"context"

	"roadsheet/internal/domain"
)

// ExpenseRepository defines the persistence operations for shift expenses.
type ExpenseRepository interface {
	// Create persists a new expense.
	Create(ctx context.Context, expense *domain.Expense) error

	// ListByShift retrieves the expenses of a shift, oldest first.
	ListByShift(ctx context.Context, shiftID string) ([]*domain.Expense, error)
}
