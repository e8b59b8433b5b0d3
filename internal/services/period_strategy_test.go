package services

import (
	"testing"
	"time"

	"finboard/internal/core"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func lastMs(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), time.UTC)
}

func TestDailyResolver_Resolve(t *testing.T) {
	now := time.Date(2024, 3, 10, 17, 45, 0, 0, time.UTC)
	got := DailyResolver{}.Resolve(core.Budget{}, now)
	if !got.Start.Equal(day(2024, 3, 10)) || !got.End.Equal(lastMs(2024, 3, 10)) {
		t.Errorf("DailyResolver.Resolve() = %v, want 2024-03-10 full day", got)
	}
}

func TestWeeklyResolver_Resolve(t *testing.T) {
	tests := []struct {
		name      string
		now       time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "monday starts the week",
			now:       time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			wantStart: day(2024, 1, 15),
			wantEnd:   lastMs(2024, 1, 21),
		},
		{
			name:      "wednesday",
			now:       time.Date(2024, 1, 17, 12, 0, 0, 0, time.UTC),
			wantStart: day(2024, 1, 15),
			wantEnd:   lastMs(2024, 1, 21),
		},
		{
			name:      "sunday is day 7 of the same week",
			now:       time.Date(2024, 1, 21, 23, 0, 0, 0, time.UTC),
			wantStart: day(2024, 1, 15),
			wantEnd:   lastMs(2024, 1, 21),
		},
		{
			name:      "week crossing a year boundary",
			now:       time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
			wantStart: day(2024, 12, 30),
			wantEnd:   lastMs(2025, 1, 5),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeeklyResolver{}.Resolve(core.Budget{}, tt.now)
			if !got.Start.Equal(tt.wantStart) || !got.End.Equal(tt.wantEnd) {
				t.Errorf("WeeklyResolver.Resolve() = %v..%v, want %v..%v", got.Start, got.End, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestMonthlyResolver_Resolve(t *testing.T) {
	tests := []struct {
		name    string
		now     time.Time
		wantEnd time.Time
	}{
		{"january", time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC), lastMs(2024, 1, 31)},
		{"leap february", time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC), lastMs(2024, 2, 29)},
		{"plain february", time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC), lastMs(2023, 2, 28)},
		{"december", time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC), lastMs(2024, 12, 31)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MonthlyResolver{}.Resolve(core.Budget{}, tt.now)
			wantStart := time.Date(tt.now.Year(), tt.now.Month(), 1, 0, 0, 0, 0, time.UTC)
			if !got.Start.Equal(wantStart) || !got.End.Equal(tt.wantEnd) {
				t.Errorf("MonthlyResolver.Resolve() = %v..%v, want %v..%v", got.Start, got.End, wantStart, tt.wantEnd)
			}
		})
	}
}

func TestYearlyResolver_Resolve(t *testing.T) {
	got := YearlyResolver{}.Resolve(core.Budget{}, time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC))
	if !got.Start.Equal(day(2024, 1, 1)) || !got.End.Equal(lastMs(2024, 12, 31)) {
		t.Errorf("YearlyResolver.Resolve() = %v..%v", got.Start, got.End)
	}
}

func TestCustomResolver_Resolve(t *testing.T) {
	start := day(2024, 3, 1)
	end := day(2024, 3, 20)

	got := CustomResolver{}.Resolve(core.Budget{StartDate: start, EndDate: end}, day(2030, 1, 1))
	if !got.Start.Equal(start) || !got.End.Equal(end) {
		t.Errorf("CustomResolver.Resolve() = %v..%v, want stored dates", got.Start, got.End)
	}

	open := CustomResolver{}.Resolve(core.Budget{StartDate: start}, day(2030, 1, 1))
	if !open.End.Equal(OpenEnded) {
		t.Errorf("expected open-ended period, got %v", open.End)
	}
}

func TestResolvePeriodUsesNowLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	// 23:30 UTC on Jan 31 is already Feb 1 in UTC+2.
	now := time.Date(2024, 1, 31, 23, 30, 0, 0, time.UTC).In(loc)
	got := ResolvePeriod(core.Budget{Period: core.Monthly}, now)
	if got.Start.Month() != time.February || got.Start.Location() != loc {
		t.Errorf("expected February in UTC+2, got %v", got.Start)
	}
}

func TestResolvePeriodUnknownFallsBack(t *testing.T) {
	start := day(2024, 1, 1)
	got := ResolvePeriod(core.Budget{Period: "fortnightly", StartDate: start}, day(2024, 6, 1))
	if !got.Start.Equal(start) || !got.End.Equal(OpenEnded) {
		t.Errorf("unexpected fallback window %v..%v", got.Start, got.End)
	}
	if _, err := GetPeriodResolver("fortnightly"); err == nil {
		t.Error("expected error for unknown period")
	}
}

type fixedResolver struct{ r core.DateRange }

func (f fixedResolver) Resolve(core.Budget, time.Time) core.DateRange { return f.r }

func TestRegisterPeriodResolver(t *testing.T) {
	const quarterly core.Period = "quarterly"
	want := core.DateRange{Start: day(2024, 1, 1), End: lastMs(2024, 3, 31)}
	RegisterPeriodResolver(quarterly, fixedResolver{want})
	t.Cleanup(func() { delete(periodStrategies, quarterly) })

	if got := ResolvePeriod(core.Budget{Period: quarterly}, day(2024, 2, 2)); got != want {
		t.Errorf("registered resolver not used: %v", got)
	}
}
