package overtime

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/overtime-engine/logger"
)

// =============================================================================
// WORKED-HOURS AGGREGATOR
// =============================================================================

// WorkedByDay sums entries per day. Negative entries are ignored.
func WorkedByDay(entries []WorkedEntry) map[Date]decimal.Decimal {
	out := make(map[Date]decimal.Decimal)
	for _, e := range entries {
		if e.Hours.IsNegative() {
			continue
		}
		out[e.Date] = out[e.Date].Add(e.Hours)
	}
	return out
}

// =============================================================================
// ABSENCE AGGREGATOR
// =============================================================================

// AbsenceCredit is the credit one absence grants on one day.
type AbsenceCredit struct {
	Date    Date
	Absence Absence
	Hours   decimal.Decimal
}

// absencePrecedence decides which absence credits a day covered by several
// approved ranges. Lower wins.
var absencePrecedence = map[AbsenceType]int{
	AbsenceSick:         0,
	AbsenceSpecial:      1,
	AbsenceVacation:     2,
	AbsenceCompensation: 3,
	AbsenceUnpaid:       4,
}

func absenceWins(a, b Absence) bool {
	pa, pb := absencePrecedence[a.Type], absencePrecedence[b.Type]
	if pa != pb {
		return pa < pb
	}
	if !a.Start.Equal(b.Start) {
		return a.Start.Before(b.Start)
	}
	return a.ID < b.ID
}

// AbsenceCredits resolves approved absences into at most one credit per day.
// Each range is clipped to window and to emp's employment up to today; only
// days with a positive target are credited, with exactly that target.
// Overlapping ranges are resolved by type precedence
// (sick > special > vacation > compensation > unpaid), then earlier start,
// then lower id.
func AbsenceCredits(emp Employee, absences []Absence, window Period, today Date, cal *Calendar, log *logger.Logger) map[Date]AbsenceCredit {
	if log == nil {
		log = logger.Nop()
	}
	credits := make(map[Date]AbsenceCredit)

	bounds, ok := window.Clip(emp.Employment(today))
	if !ok {
		return credits
	}

	for _, a := range absences {
		if a.Status != AbsenceApproved || a.EmployeeID != emp.ID || a.End.Before(a.Start) {
			continue
		}
		clipped, ok := a.Period().Clip(bounds)
		if !ok {
			continue
		}
		for _, d := range clipped.Days() {
			target := DailyTarget(emp, d, cal)
			if !target.IsPositive() {
				continue
			}
			if existing, taken := credits[d]; taken {
				winner, loser := existing.Absence, a
				if absenceWins(a, existing.Absence) {
					winner, loser = a, existing.Absence
				}
				log.Warn().
					Str("employee_id", string(emp.ID)).
					Str("date", d.String()).
					Str("kept", winner.ID).
					Str("dropped", loser.ID).
					Msg("overlapping approved absences, crediting one")
				if winner.ID == existing.Absence.ID {
					continue
				}
			}
			credits[d] = AbsenceCredit{Date: d, Absence: a, Hours: target}
		}
	}
	return credits
}

// =============================================================================
// CORRECTION AGGREGATOR
// =============================================================================

// CorrectionsIn returns corrections dated within p, ordered by (date, id).
func CorrectionsIn(corrections []Correction, p Period) []Correction {
	var out []Correction
	for _, c := range corrections {
		if p.Contains(c.Date) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
