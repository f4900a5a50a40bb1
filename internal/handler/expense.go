package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"roadsheet/internal/domain"
	"roadsheet/internal/service"
)

// ExpenseHandler handles HTTP requests for shift expenses.
type ExpenseHandler struct {
	expenseService *service.ExpenseService
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(expenseService *service.ExpenseService) *ExpenseHandler {
	return &ExpenseHandler{expenseService: expenseService}
}

// AppendExpenseRequest is the HTTP request body for recording an expense.
type AppendExpenseRequest struct {
	Amount          decimal.Decimal `json:"amount"`
	Category        string          `json:"category"`
	PaymentMethodID string          `json:"payment_method_id,omitempty"`
	Note            string          `json:"note,omitempty"`
}

// ExpenseResponse is the HTTP representation of an expense.
type ExpenseResponse struct {
	ID              string `json:"id"`
	ShiftID         string `json:"shift_id"`
	Amount          string `json:"amount"`
	Category        string `json:"category"`
	PaymentMethodID string `json:"payment_method_id,omitempty"`
	Note            string `json:"note,omitempty"`
	CreatedAt       string `json:"created_at"`
}

func expenseResponse(expense *domain.Expense) ExpenseResponse {
	return ExpenseResponse{
		ID:              expense.ID,
		ShiftID:         expense.ShiftID,
		Amount:          expense.Amount.StringFixed(2),
		Category:        expense.Category,
		PaymentMethodID: expense.PaymentMethodID,
		Note:            expense.Note,
		CreatedAt:       expense.CreatedAt.Format(timeFormat),
	}
}

// Append handles POST /v1/shifts/:id/expenses
func (h *ExpenseHandler) Append(c *gin.Context) {
	shiftID := c.Param("id")

	var req AppendExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	expense, err := h.expenseService.Append(c.Request.Context(), shiftID, service.AppendExpenseRequest{
		Amount:          req.Amount,
		Category:        req.Category,
		PaymentMethodID: req.PaymentMethodID,
		Note:            req.Note,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, expenseResponse(expense))
}

// List handles GET /v1/shifts/:id/expenses
func (h *ExpenseHandler) List(c *gin.Context) {
	shiftID := c.Param("id")

	expenses, err := h.expenseService.List(c.Request.Context(), shiftID)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]ExpenseResponse, 0, len(expenses))
	for _, expense := range expenses {
		response = append(response, expenseResponse(expense))
	}
	c.JSON(http.StatusOK, response)
}
