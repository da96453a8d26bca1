package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/DukeRupert/solartek/internal/domain"
	"github.com/DukeRupert/solartek/internal/service"
)

// FinanceHandler handles services, expenses and the financial summaries.
type FinanceHandler struct {
	finance service.FinanceService
	logger  *slog.Logger
	now     func() time.Time
}

// NewFinanceHandler creates a new FinanceHandler.
func NewFinanceHandler(finance service.FinanceService, logger *slog.Logger) *FinanceHandler {
	return &FinanceHandler{
		finance: finance,
		logger:  logger,
		now:     time.Now,
	}
}

// RegisterRoutes registers the finance routes on mux.
func (h *FinanceHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/services", h.ListServices)
	mux.HandleFunc("POST /api/services", h.CreateService)
	mux.HandleFunc("PUT /api/services/{id}", h.UpdateService)
	mux.HandleFunc("DELETE /api/services/{id}", h.DeleteService)

	mux.HandleFunc("GET /api/expenses", h.ListExpenses)
	mux.HandleFunc("POST /api/expenses", h.CreateExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", h.UpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", h.DeleteExpense)

	mux.HandleFunc("GET /api/finance/summary", h.Summary)
	mux.HandleFunc("GET /api/finance/monthly", h.Monthly)
}

// =============================================================================
// Services
// =============================================================================

// ListServices returns every service, or those of ?client_id= only.
func (h *FinanceHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.finance.ListServices(r.Context(), r.URL.Query().Get("client_id")))
}

// CreateService records a service.
func (h *FinanceHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	var params domain.ServiceInput
	if err := decodeJSON(w, r, &params); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	svc, err := h.finance.CreateService(r.Context(), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, svc)
}

// UpdateService replaces the editable fields of a service.
func (h *FinanceHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	var params domain.ServiceInput
	if err := decodeJSON(w, r, &params); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	svc, err := h.finance.UpdateService(r.Context(), r.PathValue("id"), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, svc)
}

// DeleteService removes a service.
func (h *FinanceHandler) DeleteService(w http.ResponseWriter, r *http.Request) {
	if err := h.finance.DeleteService(r.Context(), r.PathValue("id")); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Expenses
// =============================================================================

// ListExpenses returns every expense.
func (h *FinanceHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.finance.ListExpenses(r.Context()))
}

// CreateExpense records an expense.
func (h *FinanceHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var params domain.ExpenseInput
	if err := decodeJSON(w, r, &params); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	expense, err := h.finance.CreateExpense(r.Context(), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}

// UpdateExpense replaces the editable fields of an expense.
func (h *FinanceHandler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	var params domain.ExpenseInput
	if err := decodeJSON(w, r, &params); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	expense, err := h.finance.UpdateExpense(r.Context(), r.PathValue("id"), params)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, expense)
}

// DeleteExpense removes an expense.
func (h *FinanceHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := h.finance.DeleteExpense(r.Context(), r.PathValue("id")); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Summaries
// =============================================================================

// Summary returns the financial summary as of today, or as of ?today=
// (YYYY-MM-DD) when given.
func (h *FinanceHandler) Summary(w http.ResponseWriter, r *http.Request) {
	today := h.now()
	if raw := r.URL.Query().Get("today"); raw != "" {
		parsed, ok := domain.ParseDate(raw)
		if !ok {
			ErrorResponse(w, r, h.logger, domain.NewValidationError("finance.summary", "today", "date must be formatted YYYY-MM-DD"))
			return
		}
		today = parsed
	}
	writeJSON(w, http.StatusOK, h.finance.Summary(r.Context(), today))
}

// Monthly returns the recent monthly revenue and expense totals.
func (h *FinanceHandler) Monthly(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.finance.Monthly(r.Context()))
}
