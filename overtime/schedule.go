package overtime

import "github.com/shopspring/decimal"

// =============================================================================
// WORK SCHEDULE RESOLVER - (employee, day) -> target hours
// =============================================================================

// DailyTarget returns the hours emp owes on d. It is the only place that
// decides whether a day is a working day.
//
// Order matters: a holiday wins over any schedule, an explicit schedule wins
// over the weekend rule (it may contain weekend work or 0-hour weekdays).
func DailyTarget(emp Employee, d Date, cal *Calendar) decimal.Decimal {
	info := cal.Resolve(d)
	if info.IsHoliday {
		return decimal.Zero
	}
	if emp.HasSchedule() {
		h := emp.Schedule.Hours(d.Weekday())
		if h.IsNegative() {
			return decimal.Zero
		}
		return h
	}
	if info.IsWeekend {
		return decimal.Zero
	}
	return emp.WeeklyHours.Div(WorkDays)
}

// IsWorkingDay reports whether emp owes any hours on d.
func IsWorkingDay(emp Employee, d Date, cal *Calendar) bool {
	return DailyTarget(emp, d, cal).IsPositive()
}
