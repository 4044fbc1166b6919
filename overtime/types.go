/*
Package overtime implements the overtime ledger and balance engine.

PURPOSE:
  Converts raw working-time inputs (clock entries, approved absences, manual
  corrections, holidays, weekly schedules, hire/end dates) into an auditable
  ledger of per-day transactions, monthly balances and a running overtime
  balance. Every figure is reproducible from the source records.

KEY CONCEPTS IN THIS FILE (types.go):
  - Employee / WeeklySchedule: who owes how many hours on which weekday
  - WorkedEntry / Absence / Correction: read-only source records
  - Transaction: one ledger leg for (employee, day), fully regenerated on rebuild
  - PeriodBalance: target vs actual per employee and month

PIPELINE:
  (employee, day)       -> DailyTarget          schedule.go
  (employee, sources)   -> []Transaction        builder.go
  []Transaction         -> running balances     builder.go
  []Transaction         -> PeriodBalance        balance.go

HOURS:
  All hour values are decimal.Decimal. No float arithmetic anywhere.

SEE ALSO:
  - engine.go: Public entry points
  - store.go: Persistence and collaborator interfaces
  - errors.go: Error types
*/
package overtime

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string

type TransactionID string

// =============================================================================
// EMPLOYEE
// =============================================================================

// WorkDays is the divisor applied to weekly hours when no explicit schedule exists.
var WorkDays = decimal.NewFromInt(5)

// WeeklySchedule maps weekdays to owed hours. A weekday missing from the map
// owes 0 hours.
type WeeklySchedule map[time.Weekday]decimal.Decimal

// Hours returns the configured hours for wd, 0 when not configured.
func (s WeeklySchedule) Hours(wd time.Weekday) decimal.Decimal {
	if h, ok := s[wd]; ok {
		return h
	}
	return decimal.Zero
}

// Total sums the schedule over a full week.
func (s WeeklySchedule) Total() decimal.Decimal {
	total := decimal.Zero
	for _, h := range s {
		total = total.Add(h)
	}
	return total
}

type Employee struct {
	ID          EmployeeID
	Name        string
	WeeklyHours decimal.Decimal
	// Schedule, when non-nil, fully replaces the WeeklyHours/5 rule,
	// weekends included.
	Schedule WeeklySchedule
	HireDate Date
	EndDate  *Date
}

// HasSchedule reports whether an explicit per-weekday schedule is configured.
func (e Employee) HasSchedule() bool { return e.Schedule != nil }

// Employment returns the period the employee is employed, capped at limit.
func (e Employee) Employment(limit Date) Period {
	end := limit
	if e.EndDate != nil && e.EndDate.Before(end) {
		end = *e.EndDate
	}
	return Period{Start: e.HireDate, End: end}
}

// ActiveIn reports whether any day of p falls within employment.
func (e Employee) ActiveIn(p Period) bool {
	if e.HireDate.After(p.End) {
		return false
	}
	return e.EndDate == nil || !e.EndDate.Before(p.Start)
}

// =============================================================================
// SOURCE RECORDS (owned upstream, read-only here)
// =============================================================================

// Holiday forces target hours to 0. An empty Region means nationwide.
type Holiday struct {
	Date   Date
	Name   string
	Region string
}

type WorkedEntry struct {
	EmployeeID EmployeeID
	Date       Date
	Hours      decimal.Decimal
}

type AbsenceType string

const (
	AbsenceVacation     AbsenceType = "vacation"
	AbsenceSick         AbsenceType = "sick"
	AbsenceUnpaid       AbsenceType = "unpaid"
	AbsenceCompensation AbsenceType = "compensation"
	AbsenceSpecial      AbsenceType = "special"
)

// Valid reports whether t is a known absence type.
func (t AbsenceType) Valid() bool {
	switch t {
	case AbsenceVacation, AbsenceSick, AbsenceUnpaid, AbsenceCompensation, AbsenceSpecial:
		return true
	}
	return false
}

// CreditType is the transaction type emitted for a day covered by this absence.
func (t AbsenceType) CreditType() TransactionType {
	switch t {
	case AbsenceVacation:
		return TxVacationCredit
	case AbsenceSick:
		return TxSickCredit
	case AbsenceCompensation:
		return TxCompensationCredit
	case AbsenceSpecial:
		return TxSpecialCredit
	default:
		return TxUnpaidAdjustment
	}
}

type AbsenceStatus string

const (
	AbsencePending  AbsenceStatus = "pending"
	AbsenceApproved AbsenceStatus = "approved"
	AbsenceRejected AbsenceStatus = "rejected"
)

type Absence struct {
	ID         string
	EmployeeID EmployeeID
	Type       AbsenceType
	Status     AbsenceStatus
	Start      Date
	End        Date
}

func (a Absence) Period() Period { return Period{Start: a.Start, End: a.End} }

type Correction struct {
	ID         string
	EmployeeID EmployeeID
	Date       Date
	Hours      decimal.Decimal // signed
	Reason     string
	CreatedBy  string
}

// =============================================================================
// TRANSACTION - One ledger leg
// =============================================================================

type TransactionType string

const (
	TxEarned             TransactionType = "earned"
	TxVacationCredit     TransactionType = "vacation_credit"
	TxSickCredit         TransactionType = "sick_credit"
	TxCompensationCredit TransactionType = "compensation_credit"
	TxSpecialCredit      TransactionType = "special_credit"
	TxUnpaidAdjustment   TransactionType = "unpaid_adjustment"
	TxCorrection         TransactionType = "correction"
	TxCarryover          TransactionType = "carryover"
)

// Regenerable reports whether rebuild may delete and re-emit this type.
// Only carryover survives a rebuild.
func (t TransactionType) Regenerable() bool { return t != TxCarryover }

// IsCredit reports whether t is an absence credit leg, unpaid included.
func (t TransactionType) IsCredit() bool {
	switch t {
	case TxVacationCredit, TxSickCredit, TxCompensationCredit, TxSpecialCredit, TxUnpaidAdjustment:
		return true
	}
	return false
}

// Sequence slots within a single day. Corrections take SeqCorrection+i.
const (
	SeqCarryover  = 0
	SeqEarned     = 1
	SeqCredit     = 2
	SeqCorrection = 3
)

type Transaction struct {
	ID            TransactionID
	EmployeeID    EmployeeID
	Date          Date
	Sequence      int
	Type          TransactionType
	Hours         decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal

	// Set on earned legs only; they feed PeriodBalance target/actual.
	TargetHours decimal.Decimal
	WorkedHours decimal.Decimal

	SourceRef string // absence or correction id
	Reason    string
}

// Less orders transactions by (date, sequence), the replay order.
func (t Transaction) Less(other Transaction) bool {
	if !t.Date.Equal(other.Date) {
		return t.Date.Before(other.Date)
	}
	return t.Sequence < other.Sequence
}

// =============================================================================
// BALANCES AND SUMMARIES
// =============================================================================

// PeriodBalance is the stored monthly roll-up. Overtime always equals the sum
// of the month's non-carryover transaction hours.
type PeriodBalance struct {
	EmployeeID  EmployeeID
	Year        int
	Month       time.Month
	TargetHours decimal.Decimal
	ActualHours decimal.Decimal
	Overtime    decimal.Decimal
}

// Summary answers GetPeriodSummary. Month is 0 for a yearly summary.
type Summary struct {
	EmployeeID  EmployeeID
	Year        int
	Month       int
	TargetHours decimal.Decimal
	ActualHours decimal.Decimal
	Overtime    decimal.Decimal
	Carryover   decimal.Decimal // yearly only
	Months      []PeriodBalance // yearly only
	HasData     bool
}

type AggregatedSummary struct {
	Year             int
	Month            int
	TotalTargetHours decimal.Decimal
	TotalActualHours decimal.Decimal
	TotalOvertime    decimal.Decimal
	EmployeeCount    int
}

type RolloverResult struct {
	Year           int
	ProcessedCount int
	TotalCarryover decimal.Decimal
}

// RolloverRun is the audit record written alongside a year-end rollover.
type RolloverRun struct {
	Year           int
	ProcessedCount int
	TotalCarryover decimal.Decimal
	CompletedAt    time.Time
}
