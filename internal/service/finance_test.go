package service

import (
	"context"
	"errors"
	"testing"

	"github.com/DukeRupert/solartek/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFinanceService(t *testing.T, services []domain.Service, expenses []domain.Expense) (*financeService, *clientService) {
	t.Helper()
	session, _ := newTestSession(t, []domain.Client{seedClient("c1", "Ana")}, services, expenses)
	svc := NewFinanceService(session, testLogger()).(*financeService)
	svc.now = fixedClock
	return svc, NewClientService(session, nil, testLogger()).(*clientService)
}

func TestFinanceService_CreateService(t *testing.T) {
	svc, clients := newTestFinanceService(t, nil, nil)
	ctx := context.Background()

	s, err := svc.CreateService(ctx, domain.ServiceInput{
		ClientID:    "c1",
		Type:        domain.ServiceTypeInstallation,
		Description: "5 kWp system",
		Amount:      decimal.RequireFromString("18500.50"),
		DueDate:     "2024-03-20",
	})
	require.NoError(t, err)

	assert.Contains(t, s.ID, "srv_")
	assert.Equal(t, "Ana", s.ClientName)
	assert.Equal(t, domain.ServiceStatusQuote, s.Status, "status defaults to quote")
	assert.Equal(t, fixedNow, s.CreatedAt)

	// The client name is a snapshot taken on save.
	_, err = clients.Update(ctx, "c1", domain.ClientInput{Name: "Ana Maria"})
	require.NoError(t, err)
	got := svc.ListServices(ctx, "c1")
	require.Len(t, got, 1)
	assert.Equal(t, "Ana", got[0].ClientName)
}

func TestFinanceService_CreateService_Invalid(t *testing.T) {
	svc, _ := newTestFinanceService(t, nil, nil)
	ctx := context.Background()

	_, err := svc.CreateService(ctx, domain.ServiceInput{
		ClientID: "ghost", Type: domain.ServiceTypeDesign, Description: "x",
	})
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "client_id")

	_, err = svc.CreateService(ctx, domain.ServiceInput{
		ClientID: "c1", Type: domain.ServiceTypeDesign, Description: "x", Status: domain.ServiceStatusPaid,
	})
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "payment_date")

	assert.Empty(t, svc.ListServices(ctx, ""))
}

func TestFinanceService_UpdateAndDeleteService(t *testing.T) {
	existing := domain.Service{
		ID: "s1", ClientID: "c1", ClientName: "Ana", Type: domain.ServiceTypeDesign,
		Description: "Design", Amount: decimal.NewFromInt(100), Status: domain.ServiceStatusApproved,
	}
	svc, _ := newTestFinanceService(t, []domain.Service{existing}, nil)
	ctx := context.Background()

	s, err := svc.UpdateService(ctx, "s1", domain.ServiceInput{
		ClientID: "c1", Type: domain.ServiceTypeDesign, Description: "Design",
		Amount: decimal.NewFromInt(120), Status: domain.ServiceStatusPaid, PaymentDate: "2024-03-10",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ServiceStatusPaid, s.Status)

	_, err = svc.UpdateService(ctx, "s2", domain.ServiceInput{})
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))

	require.NoError(t, svc.DeleteService(ctx, "s1"))
	assert.Empty(t, svc.ListServices(ctx, ""))
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(svc.DeleteService(ctx, "s1")))
}

func TestFinanceService_Expenses(t *testing.T) {
	svc, _ := newTestFinanceService(t, nil, nil)
	ctx := context.Background()

	e, err := svc.CreateExpense(ctx, domain.ExpenseInput{
		Date: "2024-03-02", Category: "Fuel", Description: "Trip to site", Amount: decimal.NewFromInt(80),
	})
	require.NoError(t, err)
	assert.Contains(t, e.ID, "exp_")
	assert.Equal(t, domain.ExpenseCategoryFuel, e.Category)

	_, err = svc.CreateExpense(ctx, domain.ExpenseInput{Date: "2024-03-02", Category: "yachts", Description: "x"})
	assert.Error(t, err)

	e, err = svc.UpdateExpense(ctx, e.ID, domain.ExpenseInput{
		Date: "2024-03-03", Category: "fuel", Description: "Trip to site", Amount: decimal.NewFromInt(90),
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-03", e.Date)

	require.Len(t, svc.ListExpenses(ctx), 1)
	require.NoError(t, svc.DeleteExpense(ctx, e.ID))
	assert.Empty(t, svc.ListExpenses(ctx))
}

func TestFinanceService_SummaryAndMonthly(t *testing.T) {
	services := []domain.Service{
		{ID: "s1", ClientID: "c1", Amount: decimal.NewFromInt(1000), Status: domain.ServiceStatusPaid, PaymentDate: "2024-02-10"},
		{ID: "s2", ClientID: "c1", Amount: decimal.NewFromInt(500), Status: domain.ServiceStatusInProgress, DueDate: "2024-03-14"},
		{ID: "s3", ClientID: "c1", Amount: decimal.NewFromInt(300), Status: domain.ServiceStatusDone, DueDate: "2024-03-22"},
		{ID: "s4", ClientID: "c1", Amount: decimal.NewFromInt(50), Status: domain.ServiceStatusCancelled},
	}
	expenses := []domain.Expense{
		{ID: "e1", Date: "2024-03-01", Amount: decimal.NewFromInt(200)},
	}
	svc, _ := newTestFinanceService(t, services, expenses)
	ctx := context.Background()

	sum := svc.Summary(ctx, fixedNow)
	assert.True(t, sum.Received.Equal(decimal.NewFromInt(1000)))
	assert.True(t, sum.Pending.Equal(decimal.NewFromInt(800)))
	assert.True(t, sum.Overdue.Equal(decimal.NewFromInt(500)))
	assert.True(t, sum.DueSoon.Equal(decimal.NewFromInt(300)))
	assert.True(t, sum.TotalInvoiced.Equal(decimal.NewFromInt(1850)))
	assert.True(t, sum.Profit.Equal(decimal.NewFromInt(800)))

	monthly := svc.Monthly(ctx)
	require.Len(t, monthly, 2)
	assert.Equal(t, "2024-02", monthly[0].Month)
	assert.Equal(t, "2024-03", monthly[1].Month)
}
