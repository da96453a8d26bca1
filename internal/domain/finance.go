package domain

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DueSoonDays is the window, in days from today, in which an unpaid service
// is flagged as coming due.
const DueSoonDays = 7

// MonthlySeriesLength is how many months the monthly rollup keeps.
const MonthlySeriesLength = 6

// FinancialSummary is derived from the service and expense collections and
// never stored.
type FinancialSummary struct {
	Received      decimal.Decimal `json:"received"`
	Pending       decimal.Decimal `json:"pending"`
	Overdue       decimal.Decimal `json:"overdue"`
	DueSoon       decimal.Decimal `json:"due_soon"`
	TotalInvoiced decimal.Decimal `json:"total_invoiced"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	Profit        decimal.Decimal `json:"profit"`
	ActiveCount   int             `json:"active_count"`
	OverdueCount  int             `json:"overdue_count"`
	DueSoonCount  int             `json:"due_soon_count"`
}

// Summarize classifies every service relative to today and totals the
// expenses. Paid services count as received. Approved, in-progress and done
// services count as pending and, when they carry a due date, also as overdue
// (due before today) or due soon (due within DueSoonDays). Quotes and
// cancelled services only count towards the invoiced total. Profit is cash
// based: received minus expenses.
func Summarize(services []Service, expenses []Expense, today time.Time) FinancialSummary {
	var sum FinancialSummary

	for _, s := range services {
		sum.TotalInvoiced = sum.TotalInvoiced.Add(s.Amount)

		switch {
		case s.Status == ServiceStatusPaid:
			sum.Received = sum.Received.Add(s.Amount)
		case s.Status.IsActive():
			sum.Pending = sum.Pending.Add(s.Amount)
			sum.ActiveCount++

			due, ok := ParseDate(s.DueDate)
			if !ok {
				continue
			}
			diff := DaysBetween(today, due)
			switch {
			case diff < 0:
				sum.Overdue = sum.Overdue.Add(s.Amount)
				sum.OverdueCount++
			case diff <= DueSoonDays:
				sum.DueSoon = sum.DueSoon.Add(s.Amount)
				sum.DueSoonCount++
			}
		}
	}

	for _, e := range expenses {
		sum.TotalExpenses = sum.TotalExpenses.Add(e.Amount)
	}

	sum.Profit = sum.Received.Sub(sum.TotalExpenses)
	return sum
}

// MonthlyTotal is one month of the revenue/expense rollup.
type MonthlyTotal struct {
	Month    string          `json:"month"`
	Revenue  decimal.Decimal `json:"revenue"`
	Expenses decimal.Decimal `json:"expenses"`
}

// MonthlySeries groups paid services by payment month and expenses by expense
// month, and returns the most recent MonthlySeriesLength months that have
// data, oldest first. Months without data are skipped, not zero-filled.
func MonthlySeries(services []Service, expenses []Expense) []MonthlyTotal {
	byMonth := make(map[string]*MonthlyTotal)
	bucket := func(month string) *MonthlyTotal {
		m, ok := byMonth[month]
		if !ok {
			m = &MonthlyTotal{Month: month}
			byMonth[month] = m
		}
		return m
	}

	for _, s := range services {
		if s.Status != ServiceStatusPaid {
			continue
		}
		month, ok := MonthKey(s.PaymentDate)
		if !ok {
			continue
		}
		m := bucket(month)
		m.Revenue = m.Revenue.Add(s.Amount)
	}
	for _, e := range expenses {
		month, ok := MonthKey(e.Date)
		if !ok {
			continue
		}
		m := bucket(month)
		m.Expenses = m.Expenses.Add(e.Amount)
	}

	series := make([]MonthlyTotal, 0, len(byMonth))
	for _, m := range byMonth {
		series = append(series, *m)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Month < series[j].Month })

	if len(series) > MonthlySeriesLength {
		series = series[len(series)-MonthlySeriesLength:]
	}
	return series
}

// ServicesForClient returns the services billed to one client, preserving
// their order.
func ServicesForClient(services []Service, clientID string) []Service {
	out := make([]Service, 0)
	for _, s := range services {
		if s.ClientID == clientID {
			out = append(out, s)
		}
	}
	return out
}
