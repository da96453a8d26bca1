package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseCategory is the closed set of business expense categories.
type ExpenseCategory string

const (
	ExpenseCategoryFood                ExpenseCategory = "food"
	ExpenseCategoryFuel                ExpenseCategory = "fuel"
	ExpenseCategoryTransport           ExpenseCategory = "transport"
	ExpenseCategoryElectricalMaterials ExpenseCategory = "electrical_materials"
	ExpenseCategoryContractor          ExpenseCategory = "contractor"
	ExpenseCategoryEquipment           ExpenseCategory = "equipment"
	ExpenseCategoryOffice              ExpenseCategory = "office"
	ExpenseCategoryMarketing           ExpenseCategory = "marketing"
	ExpenseCategoryMaintenance         ExpenseCategory = "maintenance"
	ExpenseCategoryTaxes               ExpenseCategory = "taxes"
	ExpenseCategoryOther               ExpenseCategory = "other"
)

// ExpenseCategories lists every category in display order.
var ExpenseCategories = []ExpenseCategory{
	ExpenseCategoryFood,
	ExpenseCategoryFuel,
	ExpenseCategoryTransport,
	ExpenseCategoryElectricalMaterials,
	ExpenseCategoryContractor,
	ExpenseCategoryEquipment,
	ExpenseCategoryOffice,
	ExpenseCategoryMarketing,
	ExpenseCategoryMaintenance,
	ExpenseCategoryTaxes,
	ExpenseCategoryOther,
}

// IsValid returns true if the category is a recognized value.
func (c ExpenseCategory) IsValid() bool {
	for _, known := range ExpenseCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Expense is money spent running the business.
type Expense struct {
	ID            string          `json:"id"`
	Date          string          `json:"date"`
	Category      ExpenseCategory `json:"category"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	Notes         string          `json:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
}

// RecordID implements the persistence key contract.
func (e Expense) RecordID() string { return e.ID }

// ExpenseInput carries the editable fields of an expense.
type ExpenseInput struct {
	Date          string          `json:"date"`
	Category      ExpenseCategory `json:"category"`
	Description   string          `json:"description"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	Notes         string          `json:"notes"`
}

// Apply copies the editable fields onto e.
func (in ExpenseInput) Apply(e *Expense) {
	e.Date = in.Date
	e.Category = ExpenseCategory(strings.ToLower(strings.TrimSpace(string(in.Category))))
	e.Description = strings.TrimSpace(in.Description)
	e.Amount = in.Amount
	e.PaymentMethod = strings.TrimSpace(in.PaymentMethod)
	e.Notes = strings.TrimSpace(in.Notes)
}

// Validate checks the record before it is persisted.
func (e *Expense) Validate() error {
	const op = "expense.validate"

	if _, ok := ParseDate(e.Date); !ok {
		return NewValidationError(op, "date", "date is required and must be formatted YYYY-MM-DD")
	}
	if !e.Category.IsValid() {
		return NewValidationError(op, "category", "category is not recognized")
	}
	if strings.TrimSpace(e.Description) == "" {
		return NewValidationError(op, "description", "description is required")
	}
	if e.Amount.IsNegative() {
		return NewValidationError(op, "amount", "amount cannot be negative")
	}
	return nil
}
