// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for budget period windows.
// Each period type (daily, weekly, monthly, yearly, custom) has its own
// resolver that maps "now" to the occurrence of the period containing it.

package services

import (
	"fmt"
	"time"

	"finboard/internal/core"
)

// OpenEnded is the period end used when a budget has no end date.
var OpenEnded = time.Date(9999, 12, 31, 23, 59, 59, int(999*time.Millisecond), time.UTC)

// PeriodResolver is the strategy interface for budget windows. Calendar
// periods are computed in now's location; the returned range is inclusive.
type PeriodResolver interface {
	Resolve(b core.Budget, now time.Time) core.DateRange
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// endOfDay returns the last millisecond of the calendar day containing t.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// DailyResolver spans the calendar day of now.
type DailyResolver struct{}

func (DailyResolver) Resolve(_ core.Budget, now time.Time) core.DateRange {
	return core.DateRange{Start: startOfDay(now), End: endOfDay(now)}
}

// WeeklyResolver spans Monday through Sunday; a Sunday belongs to the week
// that started six days earlier.
type WeeklyResolver struct{}

func (WeeklyResolver) Resolve(_ core.Budget, now time.Time) core.DateRange {
	offset := (int(now.Weekday()) + 6) % 7
	monday := startOfDay(now).AddDate(0, 0, -offset)
	return core.DateRange{Start: monday, End: endOfDay(monday.AddDate(0, 0, 6))}
}

// MonthlyResolver spans the calendar month of now.
type MonthlyResolver struct{}

func (MonthlyResolver) Resolve(_ core.Budget, now time.Time) core.DateRange {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return core.DateRange{Start: first, End: endOfDay(first.AddDate(0, 1, -1))}
}

// YearlyResolver spans January 1st through December 31st of now's year.
type YearlyResolver struct{}

func (YearlyResolver) Resolve(_ core.Budget, now time.Time) core.DateRange {
	loc := now.Location()
	return core.DateRange{
		Start: time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc),
		End:   time.Date(now.Year(), time.December, 31, 23, 59, 59, int(999*time.Millisecond), loc),
	}
}

// CustomResolver uses the budget's own dates as stored.
type CustomResolver struct{}

func (CustomResolver) Resolve(b core.Budget, _ time.Time) core.DateRange {
	end := b.EndDate
	if end.IsZero() {
		end = OpenEnded
	}
	return core.DateRange{Start: b.StartDate, End: end}
}

var periodStrategies = map[core.Period]PeriodResolver{
	core.Daily:   DailyResolver{},
	core.Weekly:  WeeklyResolver{},
	core.Monthly: MonthlyResolver{},
	core.Yearly:  YearlyResolver{},
	core.Custom:  CustomResolver{},
}

// GetPeriodResolver returns the resolver for a period type.
func GetPeriodResolver(period core.Period) (PeriodResolver, error) {
	resolver, ok := periodStrategies[period]
	if !ok {
		return nil, fmt.Errorf("unknown budget period: %s", period)
	}
	return resolver, nil
}

// RegisterPeriodResolver registers a resolver for a new period type.
func RegisterPeriodResolver(period core.Period, resolver PeriodResolver) {
	periodStrategies[period] = resolver
}

// ResolvePeriod returns the window of b containing now. Unknown period types
// span from the budget start to OpenEnded.
func ResolvePeriod(b core.Budget, now time.Time) core.DateRange {
	resolver, err := GetPeriodResolver(b.Period)
	if err != nil {
		return core.DateRange{Start: b.StartDate, End: OpenEnded}
	}
	return resolver.Resolve(b, now)
}
