// Package service contains the business logic layer.
//
// This file implements the finance service: services billed to clients,
// business expenses and the summaries derived from both.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/DukeRupert/solartek/internal/app"
	"github.com/DukeRupert/solartek/internal/domain"
)

// =============================================================================
// Interface Definition
// =============================================================================

// FinanceService defines the interface for services, expenses and summaries.
type FinanceService interface {
	// ListServices returns every service, optionally only those of one client.
	ListServices(ctx context.Context, clientID string) []domain.Service

	// CreateService records a new service. The client's current name is
	// copied onto the service.
	// Returns domain.EINVALID for validation errors or an unknown client.
	CreateService(ctx context.Context, params domain.ServiceInput) (*domain.Service, error)

	// UpdateService replaces the editable fields of a service.
	// Returns domain.ENOTFOUND if the service does not exist.
	UpdateService(ctx context.Context, id string, params domain.ServiceInput) (*domain.Service, error)

	// DeleteService removes a service, optimistically.
	// Returns domain.ENOTFOUND if the service does not exist.
	DeleteService(ctx context.Context, id string) error

	// ListExpenses returns every expense.
	ListExpenses(ctx context.Context) []domain.Expense

	// CreateExpense records a new expense.
	// Returns domain.EINVALID for validation errors.
	CreateExpense(ctx context.Context, params domain.ExpenseInput) (*domain.Expense, error)

	// UpdateExpense replaces the editable fields of an expense.
	// Returns domain.ENOTFOUND if the expense does not exist.
	UpdateExpense(ctx context.Context, id string, params domain.ExpenseInput) (*domain.Expense, error)

	// DeleteExpense removes an expense, optimistically.
	// Returns domain.ENOTFOUND if the expense does not exist.
	DeleteExpense(ctx context.Context, id string) error

	// Summary classifies services and totals expenses relative to today.
	Summary(ctx context.Context, today time.Time) domain.FinancialSummary

	// Monthly returns the recent monthly revenue and expense totals.
	Monthly(ctx context.Context) []domain.MonthlyTotal
}

// =============================================================================
// Implementation
// =============================================================================

type financeService struct {
	session *app.Session
	logger  *slog.Logger
	now     func() time.Time
}

// NewFinanceService creates a new FinanceService.
func NewFinanceService(session *app.Session, logger *slog.Logger) FinanceService {
	return &financeService{
		session: session,
		logger:  logger,
		now:     time.Now,
	}
}

// =============================================================================
// Services
// =============================================================================

func (s *financeService) ListServices(ctx context.Context, clientID string) []domain.Service {
	services := s.session.State().Services
	if clientID == "" {
		return services
	}
	return domain.ServicesForClient(services, clientID)
}

func (s *financeService) CreateService(ctx context.Context, params domain.ServiceInput) (*domain.Service, error) {
	now := s.now()
	svc := domain.Service{
		ID:        domain.NewID(domain.ServiceIDPrefix, now),
		CreatedAt: now,
	}
	if err := s.applyService(&svc, "service.create", params); err != nil {
		return nil, err
	}
	if err := s.session.SaveService(ctx, svc); err != nil {
		return nil, observeStoreError(err)
	}

	s.logger.Info("service created",
		"service_id", svc.ID,
		"client_id", svc.ClientID,
		"status", svc.Status,
		"amount", svc.Amount.StringFixed(2),
	)
	return &svc, nil
}

func (s *financeService) UpdateService(ctx context.Context, id string, params domain.ServiceInput) (*domain.Service, error) {
	const op = "service.update"

	svc, err := s.session.UpdateService(ctx, id, func(v *domain.Service) error {
		return s.applyService(v, op, params)
	})
	if err != nil {
		return nil, observeStoreError(err)
	}

	s.logger.Info("service updated", "service_id", svc.ID, "status", svc.Status)
	return &svc, nil
}

// applyService applies params, validates the result and refreshes the client
// name snapshot.
func (s *financeService) applyService(svc *domain.Service, op string, params domain.ServiceInput) error {
	params.Apply(svc)
	if svc.Status == "" {
		svc.Status = domain.ServiceStatusQuote
	}
	if err := svc.Validate(); err != nil {
		return err
	}

	client, ok := s.session.Client(svc.ClientID)
	if !ok {
		return domain.NewValidationError(op, "client_id", "client does not exist")
	}
	svc.ClientName = client.Name
	return nil
}

func (s *financeService) DeleteService(ctx context.Context, id string) error {
	if err := s.session.DeleteService(ctx, id); err != nil {
		return observeStoreError(err)
	}
	s.logger.Info("service deleted", "service_id", id)
	return nil
}

// =============================================================================
// Expenses
// =============================================================================

func (s *financeService) ListExpenses(ctx context.Context) []domain.Expense {
	return s.session.State().Expenses
}

func (s *financeService) CreateExpense(ctx context.Context, params domain.ExpenseInput) (*domain.Expense, error) {
	now := s.now()
	e := domain.Expense{
		ID:        domain.NewID(domain.ExpenseIDPrefix, now),
		CreatedAt: now,
	}
	params.Apply(&e)
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if err := s.session.SaveExpense(ctx, e); err != nil {
		return nil, observeStoreError(err)
	}

	s.logger.Info("expense created",
		"expense_id", e.ID,
		"category", e.Category,
		"amount", e.Amount.StringFixed(2),
	)
	return &e, nil
}

func (s *financeService) UpdateExpense(ctx context.Context, id string, params domain.ExpenseInput) (*domain.Expense, error) {
	e, err := s.session.UpdateExpense(ctx, id, func(e *domain.Expense) error {
		params.Apply(e)
		return e.Validate()
	})
	if err != nil {
		return nil, observeStoreError(err)
	}

	s.logger.Info("expense updated", "expense_id", e.ID)
	return &e, nil
}

func (s *financeService) DeleteExpense(ctx context.Context, id string) error {
	if err := s.session.DeleteExpense(ctx, id); err != nil {
		return observeStoreError(err)
	}
	s.logger.Info("expense deleted", "expense_id", id)
	return nil
}

// =============================================================================
// Summaries
// =============================================================================

func (s *financeService) Summary(ctx context.Context, today time.Time) domain.FinancialSummary {
	st := s.session.State()
	return domain.Summarize(st.Services, st.Expenses, today)
}

func (s *financeService) Monthly(ctx context.Context) []domain.MonthlyTotal {
	st := s.session.State()
	return domain.MonthlySeries(st.Services, st.Expenses)
}
