package overtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/overtime-engine/overtime"
)

func TestDailyTarget_ScalarWeeklyHours(t *testing.T) {
	emp := fullTime("emp-1", "2025-01-01")
	cal := newCalendar()

	assert.True(t, hours("8").Equal(overtime.DailyTarget(emp, day("2025-03-03"), cal)), "monday")
	assert.True(t, overtime.DailyTarget(emp, day("2025-03-08"), cal).IsZero(), "saturday")
	assert.True(t, overtime.DailyTarget(emp, day("2025-03-09"), cal).IsZero(), "sunday")

	emp.WeeklyHours = hours("38.5")
	assert.True(t, hours("7.7").Equal(overtime.DailyTarget(emp, day("2025-03-03"), cal)))
}

func TestDailyTarget_HolidayIsZero(t *testing.T) {
	emp := fullTime("emp-1", "2025-01-01")
	cal := newCalendar(overtime.Holiday{Date: day("2025-10-03"), Name: "Tag der Deutschen Einheit"})

	assert.True(t, overtime.DailyTarget(emp, day("2025-10-03"), cal).IsZero())
	assert.True(t, hours("8").Equal(overtime.DailyTarget(emp, day("2025-10-02"), cal)))
}

func TestDailyTarget_ScheduleOverridesWeeklyHours(t *testing.T) {
	// GIVEN: 40h/week contract but Wednesdays are configured as 0h
	emp := fullTime("emp-1", "2025-01-01")
	emp.Schedule = overtime.WeeklySchedule{
		time.Monday:    hours("10"),
		time.Tuesday:   hours("10"),
		time.Wednesday: decimal.Zero,
		time.Thursday:  hours("10"),
		time.Friday:    hours("10"),
	}
	cal := newCalendar()

	// THEN: every Wednesday owes 0h and is not a working day
	for _, d := range overtime.MonthPeriod(2025, time.March).Days() {
		if d.Weekday() == time.Wednesday {
			assert.True(t, overtime.DailyTarget(emp, d, cal).IsZero(), d.String())
			assert.False(t, overtime.IsWorkingDay(emp, d, cal), d.String())
		}
	}
	assert.True(t, hours("10").Equal(overtime.DailyTarget(emp, day("2025-03-03"), cal)))

	week := overtime.Period{Start: day("2025-03-03"), End: day("2025-03-09")}
	assert.Equal(t, 4, workingDays(emp, week, cal))
	assert.True(t, hours("40").Equal(targetHours(emp, week, cal)))
}

func TestDailyTarget_ScheduleAllowsWeekendWork(t *testing.T) {
	emp := fullTime("emp-1", "2025-01-01")
	emp.Schedule = overtime.WeeklySchedule{time.Saturday: hours("6")}
	cal := newCalendar()

	assert.True(t, hours("6").Equal(overtime.DailyTarget(emp, day("2025-03-08"), cal)))
	// Weekdays missing from an explicit schedule owe nothing.
	assert.True(t, overtime.DailyTarget(emp, day("2025-03-03"), cal).IsZero())
}

func TestDailyTarget_HolidayBeatsSchedule(t *testing.T) {
	emp := fullTime("emp-1", "2025-01-01")
	emp.Schedule = overtime.WeeklySchedule{time.Thursday: hours("8")}
	cal := newCalendar(overtime.Holiday{Date: day("2025-12-25"), Name: "1. Weihnachtstag"})

	assert.True(t, overtime.DailyTarget(emp, day("2025-12-25"), cal).IsZero())
}

func TestCalendar_DegradesWhenSourceFails(t *testing.T) {
	// GIVEN: a holiday source that is unreachable
	cal := overtime.NewCalendar(failingHolidays{}, "", nil)

	// WHEN: loading the year
	cal.EnsureYear(context.Background(), 2025)

	// THEN: the year is usable, without holidays
	assert.True(t, cal.Degraded(2025))
	assert.False(t, cal.IsHoliday(day("2025-12-25")))
	assert.True(t, hours("8").Equal(overtime.DailyTarget(fullTime("e", "2025-01-01"), day("2025-12-25"), cal)))
}

func TestCalendar_RegionFilter(t *testing.T) {
	holidays := overtime.StaticHolidays{
		{Date: day("2025-01-06"), Name: "Heilige Drei Könige", Region: "BY"},
		{Date: day("2025-01-01"), Name: "Neujahr"},
	}
	cal := overtime.NewCalendar(holidays, "BE", nil)
	cal.EnsureYear(context.Background(), 2025)

	assert.True(t, cal.IsHoliday(day("2025-01-01")))
	assert.False(t, cal.IsHoliday(day("2025-01-06")))

	info := cal.Resolve(day("2025-01-01"))
	assert.Equal(t, "Neujahr", info.HolidayName)
	assert.False(t, info.IsWeekend)
	require.Len(t, cal.Holidays(overtime.YearPeriod(2025)), 1)
}

func TestCalendar_UnloadedYearHasNoHolidays(t *testing.T) {
	cal := overtime.NewCalendar(overtime.StaticHolidays{{Date: day("2025-01-01"), Name: "Neujahr"}}, "", nil)

	assert.False(t, cal.IsHoliday(day("2025-01-01")))
	cal.EnsureYear(context.Background(), 2025)
	assert.True(t, cal.IsHoliday(day("2025-01-01")))
}

func TestPeriod_Months(t *testing.T) {
	p := overtime.Period{Start: day("2025-11-25"), End: day("2026-01-03")}

	assert.Equal(t, []overtime.YearMonth{
		{Year: 2025, Month: time.November},
		{Year: 2025, Month: time.December},
		{Year: 2026, Month: time.January},
	}, p.Months())
	assert.Equal(t, []int{2025, 2026}, p.Years())
}

func TestPeriod_Clip(t *testing.T) {
	p := overtime.Period{Start: day("2025-11-25"), End: day("2025-12-05")}

	clipped, ok := p.Clip(overtime.MonthPeriod(2025, time.December))
	require.True(t, ok)
	assert.Equal(t, day("2025-12-01"), clipped.Start)
	assert.Equal(t, day("2025-12-05"), clipped.End)

	_, ok = p.Clip(overtime.MonthPeriod(2025, time.October))
	assert.False(t, ok)
}

func TestParseDate_Invalid(t *testing.T) {
	_, err := overtime.ParseDate("2025-13-01")
	require.Error(t, err)
	assert.True(t, overtime.IsClientError(err))

	_, err = overtime.NewPeriod(day("2025-02-01"), day("2025-01-01"))
	assert.True(t, overtime.IsClientError(err))
}
