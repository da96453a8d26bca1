package handler

import (
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/solartek/internal/domain"
)

func (a *testAPI) createService(t *testing.T, body map[string]any) domain.Service {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/services", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var svc domain.Service
	decodeBody(t, rec, &svc)
	return svc
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "%s: want %s, got %s", field, want, got)
}

func TestFinanceHandler_ServiceLifecycle(t *testing.T) {
	api := newTestAPI(t)
	ana := api.createClient(t, "Ana")
	bruno := api.createClient(t, "Bruno")

	svc := api.createService(t, map[string]any{
		"client_id":   ana,
		"type":        "installation",
		"description": "Sistema 5kWp",
		"amount":      "18500.00",
	})
	assert.Equal(t, "Ana", svc.ClientName)
	assert.Equal(t, domain.ServiceStatusQuote, svc.Status)
	assertDecimal(t, "18500", svc.Amount, "amount")

	api.createService(t, map[string]any{
		"client_id":   bruno,
		"type":        "consulting",
		"description": "Visita",
		"amount":      250,
	})

	rec := api.do(t, http.MethodGet, "/api/services?client_id="+ana, nil)
	var services []domain.Service
	decodeBody(t, rec, &services)
	require.Len(t, services, 1)
	assert.Equal(t, svc.ID, services[0].ID)

	rec = api.do(t, http.MethodPut, "/api/services/"+svc.ID, map[string]any{
		"client_id":    ana,
		"type":         "installation",
		"description":  "Sistema 5kWp",
		"amount":       "18500.00",
		"status":       "paid",
		"payment_date": "2024-03-10",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated domain.Service
	decodeBody(t, rec, &updated)
	assert.Equal(t, domain.ServiceStatusPaid, updated.Status)

	rec = api.do(t, http.MethodDelete, "/api/services/"+svc.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = api.do(t, http.MethodGet, "/api/services", nil)
	decodeBody(t, rec, &services)
	assert.Len(t, services, 1)
}

func TestFinanceHandler_ServiceValidation(t *testing.T) {
	api := newTestAPI(t)
	ana := api.createClient(t, "Ana")

	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"unknown client", map[string]any{"client_id": "cli_missing", "type": "design", "description": "x", "amount": 1}, "client_id"},
		{"bad type", map[string]any{"client_id": ana, "type": "painting", "description": "x", "amount": 1}, "type"},
		{"negative amount", map[string]any{"client_id": ana, "type": "design", "description": "x", "amount": -5}, "amount"},
		{"paid without date", map[string]any{"client_id": ana, "type": "design", "description": "x", "amount": 1, "status": "paid"}, "payment_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(t, http.MethodPost, "/api/services", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Contains(t, decodeError(t, rec).Error.Fields, tt.field)
		})
	}

	rec := api.do(t, http.MethodPut, "/api/services/srv_missing", map[string]any{"client_id": ana})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFinanceHandler_ExpenseLifecycle(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(t, http.MethodPost, "/api/expenses", map[string]any{
		"date":        "2024-03-01",
		"category":    "fuel",
		"description": "Diesel",
		"amount":      "320.50",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var expense domain.Expense
	decodeBody(t, rec, &expense)
	assert.Equal(t, domain.ExpenseCategoryFuel, expense.Category)

	rec = api.do(t, http.MethodPut, "/api/expenses/"+expense.ID, map[string]any{
		"date":        "2024-03-02",
		"category":    "transport",
		"description": "Pedágio",
		"amount":      "12",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/api/expenses", nil)
	var expenses []domain.Expense
	decodeBody(t, rec, &expenses)
	require.Len(t, expenses, 1)
	assert.Equal(t, "Pedágio", expenses[0].Description)

	rec = api.do(t, http.MethodPost, "/api/expenses", map[string]any{"date": "01/03/2024", "category": "fuel", "description": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Error.Fields, "date")

	rec = api.do(t, http.MethodDelete, "/api/expenses/"+expense.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = api.do(t, http.MethodDelete, "/api/expenses/"+expense.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFinanceHandler_SummaryAndMonthly(t *testing.T) {
	api := newTestAPI(t)
	ana := api.createClient(t, "Ana")

	api.createService(t, map[string]any{"client_id": ana, "type": "installation", "description": "overdue", "amount": 1000, "status": "approved", "due_date": "2024-03-10"})
	api.createService(t, map[string]any{"client_id": ana, "type": "design", "description": "paid", "amount": 500, "status": "paid", "payment_date": "2024-02-20"})
	api.createService(t, map[string]any{"client_id": ana, "type": "homologation", "description": "due soon", "amount": 300, "status": "done", "due_date": "2024-03-20"})
	api.createService(t, map[string]any{"client_id": ana, "type": "consulting", "description": "quote", "amount": 50})
	rec := api.do(t, http.MethodPost, "/api/expenses", map[string]any{"date": "2024-03-01", "category": "office", "description": "Papel", "amount": 200})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = api.do(t, http.MethodGet, "/api/finance/summary?today=2024-03-15", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var sum domain.FinancialSummary
	decodeBody(t, rec, &sum)
	assertDecimal(t, "500", sum.Received, "received")
	assertDecimal(t, "1300", sum.Pending, "pending")
	assertDecimal(t, "1000", sum.Overdue, "overdue")
	assertDecimal(t, "300", sum.DueSoon, "due_soon")
	assertDecimal(t, "1850", sum.TotalInvoiced, "total_invoiced")
	assertDecimal(t, "200", sum.TotalExpenses, "total_expenses")
	assertDecimal(t, "300", sum.Profit, "profit")
	assert.Equal(t, 2, sum.ActiveCount)
	assert.Equal(t, 1, sum.OverdueCount)
	assert.Equal(t, 1, sum.DueSoonCount)

	rec = api.do(t, http.MethodGet, "/api/finance/summary?today=15/03/2024", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Error.Fields, "today")

	rec = api.do(t, http.MethodGet, "/api/finance/monthly", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var months []domain.MonthlyTotal
	decodeBody(t, rec, &months)
	require.Len(t, months, 2)
	assert.Equal(t, "2024-02", months[0].Month)
	assertDecimal(t, "500", months[0].Revenue, "feb revenue")
	assert.Equal(t, "2024-03", months[1].Month)
	assertDecimal(t, "200", months[1].Expenses, "mar expenses")
	assertDecimal(t, "0", months[1].Revenue, "mar revenue")
}
