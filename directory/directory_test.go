package directory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/overtime-engine/overtime"
	"github.com/warp/overtime-engine/store/sqlite"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := NewFromSQL(db)
	require.NoError(t, err)
	return s
}

func d(s string) overtime.Date { return overtime.MustParseDate(s) }

func h(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestTimeEntryModel_Hours(t *testing.T) {
	at := func(hm string) time.Time {
		tm, err := time.Parse("2006-01-02 15:04", "2025-03-03 "+hm)
		require.NoError(t, err)
		return tm
	}
	ptr := func(tm time.Time) *time.Time { return &tm }

	tests := []struct {
		name     string
		entry    TimeEntryModel
		expected string
	}{
		{"full day with break", TimeEntryModel{ClockIn: at("08:00"), ClockOut: ptr(at("17:30")), BreakMinutes: 30}, "9"},
		{"quarter hours", TimeEntryModel{ClockIn: at("09:00"), ClockOut: ptr(at("16:45"))}, "7.75"},
		{"rounded to two decimals", TimeEntryModel{ClockIn: at("09:00"), ClockOut: ptr(at("09:20"))}, "0.33"},
		{"still clocked in", TimeEntryModel{ClockIn: at("09:00")}, "0"},
		{"break longer than span", TimeEntryModel{ClockIn: at("09:00"), ClockOut: ptr(at("09:10")), BreakMinutes: 15}, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.entry.Hours()
			assert.True(t, h(tt.expected).Equal(got), "got %s want %s", got, tt.expected)
		})
	}
}

func TestStore_EmployeeRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	end := d("2025-06-30")

	err := s.SaveEmployee(ctx, overtime.Employee{
		ID:          "emp-1",
		Name:        "Ada",
		WeeklyHours: h("40"),
		Schedule:    overtime.WeeklySchedule{time.Monday: h("8"), time.Wednesday: h("0")},
		HireDate:    d("2025-01-15"),
		EndDate:     &end,
	})
	require.NoError(t, err)
	require.NoError(t, s.SaveEmployee(ctx, overtime.Employee{ID: "emp-2", Name: "Bo", WeeklyHours: h("20"), HireDate: d("2025-02-01")}))

	emp, err := s.Employee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", emp.Name)
	assert.True(t, h("40").Equal(emp.WeeklyHours))
	assert.Equal(t, d("2025-01-15"), emp.HireDate)
	require.NotNil(t, emp.EndDate)
	assert.Equal(t, end, *emp.EndDate)
	require.True(t, emp.HasSchedule())
	assert.Len(t, emp.Schedule, 2)
	assert.True(t, h("8").Equal(emp.Schedule[time.Monday]))
	_, hasWednesday := emp.Schedule[time.Wednesday]
	assert.True(t, hasWednesday)

	plain, err := s.Employee(ctx, "emp-2")
	require.NoError(t, err)
	assert.False(t, plain.HasSchedule())
	assert.Nil(t, plain.EndDate)
}

func TestStore_EmployeeNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Employee(context.Background(), "ghost")

	require.Error(t, err)
	assert.True(t, overtime.IsNotFound(err))
}

func TestStore_ActiveEmployees(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	left := d("2024-12-31")
	for _, emp := range []overtime.Employee{
		{ID: "emp-c", Name: "C", WeeklyHours: h("40"), HireDate: d("2025-01-01")},
		{ID: "emp-a", Name: "A", WeeklyHours: h("40"), HireDate: d("2024-01-01")},
		{ID: "emp-left", Name: "L", WeeklyHours: h("40"), HireDate: d("2024-01-01"), EndDate: &left},
		{ID: "emp-future", Name: "F", WeeklyHours: h("40"), HireDate: d("2025-04-01")},
	} {
		require.NoError(t, s.SaveEmployee(ctx, emp))
	}

	active, err := s.ActiveEmployees(ctx, overtime.MonthPeriod(2025, time.March))
	require.NoError(t, err)

	require.Len(t, active, 2)
	assert.Equal(t, overtime.EmployeeID("emp-a"), active[0].ID)
	assert.Equal(t, overtime.EmployeeID("emp-c"), active[1].ID)
}

func TestStore_WorkedEntries(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	in := time.Date(2025, 3, 3, 8, 0, 0, 0, time.UTC)
	out := in.Add(4 * time.Hour)
	require.NoError(t, s.AddTimeEntry(ctx, &TimeEntryModel{EmployeeID: "emp-1", WorkDate: "2025-03-03", ClockIn: in, ClockOut: &out}))
	require.NoError(t, s.AddTimeEntry(ctx, &TimeEntryModel{EmployeeID: "emp-1", WorkDate: "2025-04-01", ClockIn: in, ClockOut: &out}))
	require.NoError(t, s.AddTimeEntry(ctx, &TimeEntryModel{EmployeeID: "emp-2", WorkDate: "2025-03-03", ClockIn: in, ClockOut: &out}))

	entries, err := s.WorkedEntries(ctx, "emp-1", overtime.MonthPeriod(2025, time.March))
	require.NoError(t, err)

	require.Len(t, entries, 1)
	assert.Equal(t, d("2025-03-03"), entries[0].Date)
	assert.True(t, h("4").Equal(entries[0].Hours))
}

func TestStore_ApprovedAbsences(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	save := func(id string, status overtime.AbsenceStatus, start, end string) {
		require.NoError(t, s.SaveAbsence(ctx, overtime.Absence{
			ID: id, EmployeeID: "emp-1", Type: overtime.AbsenceVacation, Status: status, Start: d(start), End: d(end),
		}))
	}
	save("abs-spans", overtime.AbsenceApproved, "2025-02-24", "2025-03-04")
	save("abs-pending", overtime.AbsencePending, "2025-03-10", "2025-03-11")
	save("abs-april", overtime.AbsenceApproved, "2025-04-01", "2025-04-02")

	absences, err := s.ApprovedAbsences(ctx, "emp-1", overtime.MonthPeriod(2025, time.March))
	require.NoError(t, err)

	require.Len(t, absences, 1)
	assert.Equal(t, "abs-spans", absences[0].ID)
	assert.Equal(t, d("2025-02-24"), absences[0].Start, "ranges are returned unclipped")

	// Approving the pending request makes it visible.
	save("abs-pending", overtime.AbsenceApproved, "2025-03-10", "2025-03-11")
	absences, err = s.ApprovedAbsences(ctx, "emp-1", overtime.MonthPeriod(2025, time.March))
	require.NoError(t, err)
	assert.Len(t, absences, 2)
}

func TestStore_Corrections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.AddCorrection(ctx, overtime.Correction{EmployeeID: "emp-1", Date: d("2025-03-10"), Hours: h("-1.5"), Reason: "late start", CreatedBy: "hr"})
	require.NoError(t, err)
	assert.NotEmpty(t, id, "id is generated")
	_, err = s.AddCorrection(ctx, overtime.Correction{ID: "c-0", EmployeeID: "emp-1", Date: d("2025-03-03"), Hours: h("2"), Reason: "travel"})
	require.NoError(t, err)

	corrections, err := s.Corrections(ctx, "emp-1", overtime.MonthPeriod(2025, time.March))
	require.NoError(t, err)

	require.Len(t, corrections, 2)
	assert.Equal(t, "c-0", corrections[0].ID)
	assert.True(t, h("-1.5").Equal(corrections[1].Hours))
	assert.Equal(t, "hr", corrections[1].CreatedBy)
}

func TestStore_ReplaceHolidays(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceHolidays(ctx, 2025, "BY", []overtime.Holiday{
		{Date: d("2025-01-06"), Name: "Heilige Drei Könige"},
		{Date: d("2025-01-01"), Name: "Neujahrstag"},
	}))
	require.NoError(t, s.ReplaceHolidays(ctx, 2025, "", []overtime.Holiday{
		{Date: d("2025-10-03"), Name: "Tag der Deutschen Einheit"},
	}))
	require.NoError(t, s.ReplaceHolidays(ctx, 2025, "BY", []overtime.Holiday{
		{Date: d("2025-01-01"), Name: "Neujahrstag"},
	}))

	hs, err := s.StoredHolidays(ctx, 2025)
	require.NoError(t, err)

	require.Len(t, hs, 2)
	assert.Equal(t, d("2025-01-01"), hs[0].Date)
	assert.Equal(t, "BY", hs[0].Region)
	assert.Equal(t, "", hs[1].Region)

	none, err := s.StoredHolidays(ctx, 2026)
	require.NoError(t, err)
	assert.Empty(t, none)
}
