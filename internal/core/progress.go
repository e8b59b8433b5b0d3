package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// BudgetProgress is a derived snapshot of a budget in its current period.
// It is never persisted.
type BudgetProgress struct {
	BudgetID         string          `json:"budgetId"`
	PeriodStart      time.Time       `json:"periodStart"`
	PeriodEnd        time.Time       `json:"periodEnd"`
	Spent            Money           `json:"spent"`
	Remaining        Money           `json:"remaining"`
	Percentage       decimal.Decimal `json:"percentage"`
	DailyBudget      decimal.Decimal `json:"dailyBudget"`
	ExpectedSpending decimal.Decimal `json:"expectedSpending"`
	Status           BudgetStatus    `json:"status"`
	TransactionCount int             `json:"transactionCount"`
}

// SpanDays counts the calendar days touched by (start, end]: the number of date
// boundaries crossed, plus one when end's clock time is past start's. It returns
// 0 when end is not after start. Counting on dates keeps DST days whole.
func SpanDays(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}
	end = end.In(start.Location())

	days := dateDiff(start, end)
	if clockOf(end) > clockOf(start) {
		days++
	}
	return days
}

// ElapsedDays counts the calendar days from start's date through now's date,
// both included. It returns 0 when now is before start.
func ElapsedDays(start, now time.Time) int {
	if now.Before(start) {
		return 0
	}
	return dateDiff(start, now.In(start.Location())) + 1
}

// dateDiff is the number of date boundaries between a and b in their own
// locations.
func dateDiff(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return int(time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC).
		Sub(time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)).Hours() / 24)
}

func clockOf(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second + time.Duration(t.Nanosecond())
}

// ComputeProgress derives the progress of b over window given the matched
// expense sum. Status is pace-relative: over when spent exceeds what an even
// spread of the amount would have consumed by now.
//
// A zero-day window uses the full amount as the daily budget, and expects the
// full amount once at least one day has elapsed.
func ComputeProgress(b Budget, window DateRange, sum ExpenseSum, now time.Time) BudgetProgress {
	amount := b.Amount.Decimal()
	spent := sum.Total.Decimal()

	totalDays := SpanDays(window.Start, window.End)
	elapsedDays := ElapsedDays(window.Start, now)
	if totalDays > 0 && elapsedDays > totalDays {
		elapsedDays = totalDays
	}

	var daily, expected decimal.Decimal
	if totalDays == 0 {
		daily = amount
		if elapsedDays >= 1 {
			expected = amount
		}
	} else {
		daily = amount.Div(decimal.NewFromInt(int64(totalDays)))
		expected = daily.Mul(decimal.NewFromInt(int64(elapsedDays)))
	}

	status := StatusUnder
	if spent.GreaterThan(expected) {
		status = StatusOver
	}

	var pct decimal.Decimal
	if !amount.IsZero() {
		pct = spent.Div(amount).Mul(hundred)
	}

	return BudgetProgress{
		BudgetID:         b.ID,
		PeriodStart:      window.Start,
		PeriodEnd:        window.End,
		Spent:            sum.Total,
		Remaining:        b.Amount.Sub(sum.Total),
		Percentage:       pct.Round(2),
		DailyBudget:      daily.Round(2),
		ExpectedSpending: expected.Round(2),
		Status:           status,
		TransactionCount: sum.Count,
	}
}

// ReachedThreshold reports whether spending hit the budget's notification threshold.
func (p BudgetProgress) ReachedThreshold(threshold int) bool {
	return p.Percentage.GreaterThanOrEqual(decimal.NewFromInt(int64(threshold)))
}
