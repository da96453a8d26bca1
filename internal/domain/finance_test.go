package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, amount(want).Equal(got), "want %s, got %s", want, got.String())
}

func TestSummarize_Classification(t *testing.T) {
	today := time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name        string
		service     Service
		wantPending string
		wantOverdue string
		wantDueSoon string
		overdueN    int
		dueSoonN    int
	}{
		{"overdue yesterday", Service{Status: ServiceStatusInProgress, Amount: amount("100"), DueDate: "2024-06-14"}, "100", "100", "0", 1, 0},
		{"due today", Service{Status: ServiceStatusApproved, Amount: amount("100"), DueDate: "2024-06-15"}, "100", "0", "100", 0, 1},
		{"due in seven days", Service{Status: ServiceStatusInProgress, Amount: amount("100"), DueDate: "2024-06-22"}, "100", "0", "100", 0, 1},
		{"due in eight days", Service{Status: ServiceStatusDone, Amount: amount("100"), DueDate: "2024-06-23"}, "100", "0", "0", 0, 0},
		{"no due date", Service{Status: ServiceStatusDone, Amount: amount("100")}, "100", "0", "0", 0, 0},
		{"unparseable due date", Service{Status: ServiceStatusDone, Amount: amount("100"), DueDate: "soon"}, "100", "0", "0", 0, 0},
		{"quote never pending", Service{Status: ServiceStatusQuote, Amount: amount("100"), DueDate: "2024-06-01"}, "0", "0", "0", 0, 0},
		{"cancelled never pending", Service{Status: ServiceStatusCancelled, Amount: amount("100"), DueDate: "2024-06-01"}, "0", "0", "0", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum := Summarize([]Service{tt.service}, nil, today)

			assertAmount(t, tt.wantPending, sum.Pending)
			assertAmount(t, tt.wantOverdue, sum.Overdue)
			assertAmount(t, tt.wantDueSoon, sum.DueSoon)
			assertAmount(t, "100", sum.TotalInvoiced)
			assert.Equal(t, tt.overdueN, sum.OverdueCount)
			assert.Equal(t, tt.dueSoonN, sum.DueSoonCount)
		})
	}
}

func TestSummarize_Totals(t *testing.T) {
	today := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	services := []Service{
		{Status: ServiceStatusPaid, Amount: amount("1500.50"), PaymentDate: "2024-06-01"},
		{Status: ServiceStatusPaid, Amount: amount("499.50"), PaymentDate: "2024-05-20"},
		{Status: ServiceStatusApproved, Amount: amount("800"), DueDate: "2024-06-10"},
		{Status: ServiceStatusDone, Amount: amount("200"), DueDate: "2024-06-18"},
		{Status: ServiceStatusInProgress, Amount: amount("300")},
		{Status: ServiceStatusQuote, Amount: amount("5000")},
		{Status: ServiceStatusCancelled, Amount: amount("700")},
	}
	expenses := []Expense{
		{Amount: amount("120.25")},
		{Amount: amount("79.75")},
	}

	sum := Summarize(services, expenses, today)

	assertAmount(t, "2000", sum.Received)
	assertAmount(t, "1300", sum.Pending)
	assertAmount(t, "800", sum.Overdue)
	assertAmount(t, "200", sum.DueSoon)
	assertAmount(t, "9000", sum.TotalInvoiced)
	assertAmount(t, "200", sum.TotalExpenses)
	assertAmount(t, "1800", sum.Profit)
	assert.Equal(t, 3, sum.ActiveCount)
	assert.Equal(t, 1, sum.OverdueCount)
	assert.Equal(t, 1, sum.DueSoonCount)
}

func TestSummarize_ProfitIgnoresPending(t *testing.T) {
	today := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	base := []Service{{Status: ServiceStatusPaid, Amount: amount("1000")}}
	expenses := []Expense{{Amount: amount("250")}}

	withPending := append([]Service{}, base...)
	withPending = append(withPending,
		Service{Status: ServiceStatusInProgress, Amount: amount("1000000"), DueDate: "2024-01-01"},
		Service{Status: ServiceStatusDone, Amount: amount("500000"), DueDate: "2024-06-16"},
	)

	a := Summarize(base, expenses, today)
	b := Summarize(withPending, expenses, today)

	assertAmount(t, "750", a.Profit)
	assert.True(t, a.Profit.Equal(b.Profit))
	assertAmount(t, "1500000", b.Pending)
}

func TestSummarize_Empty(t *testing.T) {
	sum := Summarize(nil, nil, time.Now())

	assert.True(t, sum.Received.IsZero())
	assert.True(t, sum.Profit.IsZero())
	assert.Zero(t, sum.ActiveCount)
}

func TestMonthlySeries(t *testing.T) {
	services := []Service{
		{Status: ServiceStatusPaid, Amount: amount("100"), PaymentDate: "2023-11-03"},
		{Status: ServiceStatusPaid, Amount: amount("50"), PaymentDate: "2024-01-15"},
		{Status: ServiceStatusPaid, Amount: amount("25"), PaymentDate: "2024-01-20"},
		{Status: ServiceStatusPaid, Amount: amount("10"), PaymentDate: "2024-04-02"},
		{Status: ServiceStatusPaid, Amount: amount("999")},
		{Status: ServiceStatusDone, Amount: amount("999"), PaymentDate: "2024-04-02"},
	}
	expenses := []Expense{
		{Date: "2023-09-10", Amount: amount("5")},
		{Date: "2023-10-10", Amount: amount("6")},
		{Date: "2024-01-31", Amount: amount("7")},
		{Date: "2024-03-12", Amount: amount("3")},
		{Date: "2024-07-01", Amount: amount("8")},
	}

	series := MonthlySeries(services, expenses)

	months := make([]string, len(series))
	for i, m := range series {
		months[i] = m.Month
	}
	// 2023-09 drops out: seven months have data, missing months are not filled.
	assert.Equal(t, []string{"2023-10", "2023-11", "2024-01", "2024-03", "2024-04", "2024-07"}, months)

	jan := series[2]
	assertAmount(t, "75", jan.Revenue)
	assertAmount(t, "7", jan.Expenses)
}

func TestMonthlySeries_KeepsLastSix(t *testing.T) {
	var expenses []Expense
	for m := 1; m <= 9; m++ {
		expenses = append(expenses, Expense{
			Date:   time.Date(2024, time.Month(m), 1, 0, 0, 0, 0, time.UTC).Format(DateLayout),
			Amount: amount("1"),
		})
	}

	series := MonthlySeries(nil, expenses)

	assert.Len(t, series, MonthlySeriesLength)
	assert.Equal(t, "2024-04", series[0].Month)
	assert.Equal(t, "2024-09", series[5].Month)
}

func TestServicesForClient(t *testing.T) {
	services := []Service{
		{ID: "srv_1", ClientID: "cli_a"},
		{ID: "srv_2", ClientID: "cli_b"},
		{ID: "srv_3", ClientID: "cli_a"},
	}

	got := ServicesForClient(services, "cli_a")
	assert.Len(t, got, 2)
	assert.Equal(t, "srv_1", got[0].ID)
	assert.Equal(t, "srv_3", got[1].ID)

	assert.NotNil(t, ServicesForClient(services, "cli_missing"))
}
