package overtime_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/overtime-engine/overtime"
)

// =============================================================================
// ABSENCE AGGREGATOR
// =============================================================================

func TestAbsenceCredits_MonthBoundarySplit(t *testing.T) {
	// GIVEN: vacation from Nov 25 to Dec 5
	emp := fullTime("emp-1", "2025-01-01")
	f := newFakeSources(emp)
	f.absent("abs-1", "emp-1", overtime.AbsenceVacation, overtime.AbsenceApproved, "2025-11-25", "2025-12-05")
	cal := newCalendar()
	today := day("2026-01-15")

	// WHEN: resolving credits per month
	nov := overtime.AbsenceCredits(emp, f.absences, overtime.MonthPeriod(2025, time.November), today, cal, nil)
	dec := overtime.AbsenceCredits(emp, f.absences, overtime.MonthPeriod(2025, time.December), today, cal, nil)

	// THEN: each month only gets its own calendar days
	assert.Len(t, nov, 4)
	assert.Len(t, dec, 5)
	for d := range nov {
		assert.Equal(t, time.November, d.Month())
	}
	for d := range dec {
		assert.Equal(t, time.December, d.Month())
	}

	total := creditTotals(nov)[overtime.AbsenceVacation].Add(creditTotals(dec)[overtime.AbsenceVacation])
	span := overtime.Period{Start: day("2025-11-25"), End: day("2025-12-05")}
	expected := decimal.NewFromInt(int64(workingDays(emp, span, cal))).Mul(hours("8"))
	assert.True(t, expected.Equal(total), "got %s want %s", total, expected)
	assert.True(t, hours("72").Equal(total))
}

func TestAbsenceCredits_SkipsNonWorkingDays(t *testing.T) {
	emp := fullTime("emp-1", "2025-01-01")
	f := newFakeSources(emp)
	f.absent("abs-1", "emp-1", overtime.AbsenceVacation, overtime.AbsenceApproved, "2025-12-22", "2025-12-28")
	cal := newCalendar(
		overtime.Holiday{Date: day("2025-12-25"), Name: "1. Weihnachtstag"},
		overtime.Holiday{Date: day("2025-12-26"), Name: "2. Weihnachtstag"},
	)

	credits := overtime.AbsenceCredits(emp, f.absences, overtime.MonthPeriod(2025, time.December), day("2026-01-15"), cal, nil)

	// Mon 22, Tue 23, Wed 24 only: 25/26 are holidays, 27/28 weekend.
	assert.Len(t, credits, 3)
	_, onHoliday := credits[day("2025-12-25")]
	assert.False(t, onHoliday)
}

func TestAbsenceCredits_OnlyApproved(t *testing.T) {
	emp := fullTime("emp-1", "2025-01-01")
	f := newFakeSources(emp)
	f.absent("abs-p", "emp-1", overtime.AbsenceVacation, overtime.AbsencePending, "2025-03-03", "2025-03-03")
	f.absent("abs-r", "emp-1", overtime.AbsenceVacation, overtime.AbsenceRejected, "2025-03-04", "2025-03-04")

	credits := overtime.AbsenceCredits(emp, f.absences, overtime.MonthPeriod(2025, time.March), day("2025-12-31"), newCalendar(), nil)
	assert.Empty(t, credits)
}

func TestAbsenceCredits_ClippedToHireDateAndToday(t *testing.T) {
	emp := fullTime("emp-1", "2025-03-05")
	f := newFakeSources(emp)
	f.absent("abs-1", "emp-1", overtime.AbsenceSick, overtime.AbsenceApproved, "2025-03-03", "2025-03-14")

	credits := overtime.AbsenceCredits(emp, f.absences, overtime.MonthPeriod(2025, time.March), day("2025-03-07"), newCalendar(), nil)

	// Wed 5, Thu 6, Fri 7.
	require.Len(t, credits, 3)
	_, beforeHire := credits[day("2025-03-04")]
	_, afterToday := credits[day("2025-03-10")]
	assert.False(t, beforeHire)
	assert.False(t, afterToday)
}

func TestAbsenceCredits_OverlapCreditsOnce(t *testing.T) {
	// GIVEN: vacation and sick leave both approved for the same week
	emp := fullTime("emp-1", "2025-01-01")
	f := newFakeSources(emp)
	f.absent("abs-vac", "emp-1", overtime.AbsenceVacation, overtime.AbsenceApproved, "2025-03-03", "2025-03-07")
	f.absent("abs-sick", "emp-1", overtime.AbsenceSick, overtime.AbsenceApproved, "2025-03-05", "2025-03-06")

	credits := overtime.AbsenceCredits(emp, f.absences, overtime.MonthPeriod(2025, time.March), day("2025-12-31"), newCalendar(), nil)

	// THEN: one credit per day, sick wins where they overlap
	require.Len(t, credits, 5)
	assert.Equal(t, overtime.AbsenceSick, credits[day("2025-03-05")].Absence.Type)
	assert.Equal(t, overtime.AbsenceSick, credits[day("2025-03-06")].Absence.Type)
	assert.Equal(t, overtime.AbsenceVacation, credits[day("2025-03-03")].Absence.Type)

	totals := creditTotals(credits)
	assert.True(t, hours("24").Equal(totals[overtime.AbsenceVacation]))
	assert.True(t, hours("16").Equal(totals[overtime.AbsenceSick]))
}

// =============================================================================
// WORKED AND CORRECTION AGGREGATORS
// =============================================================================

func TestWorkedByDay_SumsEntries(t *testing.T) {
	f := newFakeSources()
	f.work("emp-1", "2025-03-03", "4")
	f.work("emp-1", "2025-03-03", "4.25")
	f.work("emp-1", "2025-03-04", "8")

	byDay := overtime.WorkedByDay(f.worked)
	assert.True(t, hours("8.25").Equal(byDay[day("2025-03-03")]))
	assert.True(t, hours("16.25").Equal(workedTotal(f.worked, overtime.MonthPeriod(2025, time.March))))
	assert.True(t, workedTotal(f.worked, overtime.MonthPeriod(2025, time.April)).IsZero())
}

func TestCorrectionTotal_Signed(t *testing.T) {
	f := newFakeSources()
	f.correct("c-2", "emp-1", "2025-03-10", "-1.5", "late start")
	f.correct("c-1", "emp-1", "2025-03-10", "4", "travel")
	f.correct("c-3", "emp-1", "2025-04-01", "2", "next month")

	march := overtime.MonthPeriod(2025, time.March)
	assert.True(t, hours("2.5").Equal(correctionTotal(f.corrections, march)))

	in := overtime.CorrectionsIn(f.corrections, march)
	require.Len(t, in, 2)
	assert.Equal(t, "c-1", in[0].ID)
}
