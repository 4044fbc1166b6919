package overtime_test

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/overtime-engine/overtime"
	"github.com/warp/overtime-engine/overtime/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func hours(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(s string) overtime.Date { return overtime.MustParseDate(s) }

func datePtr(s string) *overtime.Date {
	d := day(s)
	return &d
}

func fullTime(id string, hire string) overtime.Employee {
	return overtime.Employee{
		ID:          overtime.EmployeeID(id),
		WeeklyHours: hours("40"),
		HireDate:    day(hire),
	}
}

// fakeSources is an in-memory stand-in for every upstream collaborator.
type fakeSources struct {
	employees   map[overtime.EmployeeID]overtime.Employee
	worked      []overtime.WorkedEntry
	absences    []overtime.Absence
	corrections []overtime.Correction
}

func newFakeSources(emps ...overtime.Employee) *fakeSources {
	f := &fakeSources{employees: make(map[overtime.EmployeeID]overtime.Employee)}
	for _, e := range emps {
		f.employees[e.ID] = e
	}
	return f
}

func (f *fakeSources) work(id, date, h string) {
	f.worked = append(f.worked, overtime.WorkedEntry{
		EmployeeID: overtime.EmployeeID(id),
		Date:       day(date),
		Hours:      hours(h),
	})
}

// workWeekdays logs h hours on every Monday to Friday of p.
func (f *fakeSources) workWeekdays(id string, p overtime.Period, h string) {
	for _, d := range p.Days() {
		if !d.IsWeekend() {
			f.work(id, d.String(), h)
		}
	}
}

func (f *fakeSources) absent(absenceID, id string, typ overtime.AbsenceType, status overtime.AbsenceStatus, start, end string) {
	f.absences = append(f.absences, overtime.Absence{
		ID:         absenceID,
		EmployeeID: overtime.EmployeeID(id),
		Type:       typ,
		Status:     status,
		Start:      day(start),
		End:        day(end),
	})
}

func (f *fakeSources) correct(correctionID, id, date, h, reason string) {
	f.corrections = append(f.corrections, overtime.Correction{
		ID:         correctionID,
		EmployeeID: overtime.EmployeeID(id),
		Date:       day(date),
		Hours:      hours(h),
		Reason:     reason,
		CreatedBy:  "admin",
	})
}

func (f *fakeSources) Employee(_ context.Context, id overtime.EmployeeID) (overtime.Employee, error) {
	e, ok := f.employees[id]
	if !ok {
		return overtime.Employee{}, &overtime.NotFoundError{EmployeeID: id}
	}
	return e, nil
}

func (f *fakeSources) ActiveEmployees(_ context.Context, p overtime.Period) ([]overtime.Employee, error) {
	var out []overtime.Employee
	for _, e := range f.employees {
		if e.ActiveIn(p) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeSources) WorkedEntries(_ context.Context, id overtime.EmployeeID, p overtime.Period) ([]overtime.WorkedEntry, error) {
	var out []overtime.WorkedEntry
	for _, w := range f.worked {
		if w.EmployeeID == id && p.Contains(w.Date) {
			out = append(out, w)
		}
	}
	return out, nil
}

func (f *fakeSources) ApprovedAbsences(_ context.Context, id overtime.EmployeeID, p overtime.Period) ([]overtime.Absence, error) {
	var out []overtime.Absence
	for _, a := range f.absences {
		if a.EmployeeID == id && a.Status == overtime.AbsenceApproved && a.Period().Overlaps(p) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeSources) Corrections(_ context.Context, id overtime.EmployeeID, p overtime.Period) ([]overtime.Correction, error) {
	var out []overtime.Correction
	for _, c := range f.corrections {
		if c.EmployeeID == id && p.Contains(c.Date) {
			out = append(out, c)
		}
	}
	return out, nil
}

type failingHolidays struct{}

func (failingHolidays) HolidaysInYear(context.Context, int) ([]overtime.Holiday, error) {
	return nil, errors.Join(overtime.ErrHolidaySourceUnavailable, errors.New("connection refused"))
}

func clockAt(date string) func() time.Time {
	t := day(date).Time.Add(12 * time.Hour)
	return func() time.Time { return t }
}

func newTestEngine(t *testing.T, f *fakeSources, today string, holidays overtime.HolidaySource) (*overtime.Engine, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	if holidays == nil {
		holidays = overtime.StaticHolidays{}
	}
	eng := overtime.NewEngine(overtime.Dependencies{
		Employees:   f,
		TimeEntries: f,
		Absences:    f,
		Corrections: f,
		Holidays:    holidays,
		Ledger:      mem,
	}, overtime.WithClock(clockAt(today)))
	return eng, mem
}

func newCalendar(holidays ...overtime.Holiday) *overtime.Calendar {
	cal := overtime.NewCalendar(overtime.StaticHolidays(holidays), "", nil)
	for _, y := range []int{2024, 2025, 2026} {
		cal.EnsureYear(context.Background(), y)
	}
	return cal
}

func sumHours(txs []overtime.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Hours)
	}
	return total
}

func workedTotal(entries []overtime.WorkedEntry, p overtime.Period) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if p.Contains(e.Date) && !e.Hours.IsNegative() {
			total = total.Add(e.Hours)
		}
	}
	return total
}

// creditTotals sums credits per absence type.
func creditTotals(credits map[overtime.Date]overtime.AbsenceCredit) map[overtime.AbsenceType]decimal.Decimal {
	out := make(map[overtime.AbsenceType]decimal.Decimal)
	for _, c := range credits {
		out[c.Absence.Type] = out[c.Absence.Type].Add(c.Hours)
	}
	return out
}

func correctionTotal(corrections []overtime.Correction, p overtime.Period) decimal.Decimal {
	total := decimal.Zero
	for _, c := range overtime.CorrectionsIn(corrections, p) {
		total = total.Add(c.Hours)
	}
	return total
}

func workingDays(emp overtime.Employee, p overtime.Period, cal *overtime.Calendar) int {
	n := 0
	for _, d := range p.Days() {
		if overtime.IsWorkingDay(emp, d, cal) {
			n++
		}
	}
	return n
}

// targetHours sums DailyTarget over p, ignoring employment bounds.
func targetHours(emp overtime.Employee, p overtime.Period, cal *overtime.Calendar) decimal.Decimal {
	total := decimal.Zero
	for _, d := range p.Days() {
		total = total.Add(overtime.DailyTarget(emp, d, cal))
	}
	return total
}
