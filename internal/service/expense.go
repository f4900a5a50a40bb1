package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"roadsheet/internal/domain"
	"roadsheet/internal/repository"
)

// ExpenseService is the flat expense ledger of a shift.
type ExpenseService struct {
	expenseRepo repository.ExpenseRepository
	shiftRepo   repository.ShiftRepository
}

// NewExpenseService creates a new ExpenseService.
func NewExpenseService(expenseRepo repository.ExpenseRepository, shiftRepo repository.ShiftRepository) *ExpenseService {
	return &ExpenseService{expenseRepo: expenseRepo, shiftRepo: shiftRepo}
}

// AppendExpenseRequest contains the parameters for recording an expense.
type AppendExpenseRequest struct {
	Amount          decimal.Decimal
	Category        string
	PaymentMethodID string
	Note            string
}

// Append records an expense against an open shift.
func (s *ExpenseService) Append(ctx context.Context, shiftID string, req AppendExpenseRequest) (*domain.Expense, error) {
	if shiftID == "" {
		return nil, ErrInvalidShiftID
	}
	if req.Amount.IsNegative() {
		return nil, invalidField("amount", "must not be negative")
	}
	if req.Category == "" {
		return nil, invalidField("category", "required")
	}

	shift, err := s.shiftRepo.GetByID(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if shift.Closed {
		return nil, ErrShiftClosed
	}

	expense := &domain.Expense{
		ID:              uuid.New().String(),
		ShiftID:         shiftID,
		Amount:          req.Amount,
		Category:        req.Category,
		PaymentMethodID: req.PaymentMethodID,
		Note:            req.Note,
		CreatedAt:       time.Now(),
	}

	if err := s.expenseRepo.Create(ctx, expense); err != nil {
		return nil, err
	}
	return expense, nil
}

// List retrieves a shift's expenses, oldest first.
func (s *ExpenseService) List(ctx context.Context, shiftID string) ([]*domain.Expense, error) {
	if shiftID == "" {
		return nil, ErrInvalidShiftID
	}
	if _, err := s.shiftRepo.GetByID(ctx, shiftID); err != nil {
		return nil, err
	}
	return s.expenseRepo.ListByShift(ctx, shiftID)
}
