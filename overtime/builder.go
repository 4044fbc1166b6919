package overtime

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/overtime-engine/logger"
)

// =============================================================================
// LEDGER BUILDER - (employee, sources) -> transactions
// =============================================================================

// ledgerNamespace seeds deterministic transaction IDs. Rebuilding the same
// inputs yields the same IDs, which makes rebuilds byte-identical.
var ledgerNamespace = uuid.MustParse("6f1c2a8e-4b0d-5e7a-9c3f-2d8b1e6a4f90")

// TransactionIDFor derives the ID of a ledger leg from its identity.
func TransactionIDFor(emp EmployeeID, d Date, typ TransactionType, sourceRef string) TransactionID {
	key := fmt.Sprintf("%s|%s|%s|%s", emp, d, typ, sourceRef)
	return TransactionID(uuid.NewSHA1(ledgerNamespace, []byte(key)).String())
}

// CarryoverFor builds the carryover leg seeding year with hours.
func CarryoverFor(emp EmployeeID, year int, hours decimal.Decimal) Transaction {
	d := StartOfYear(year)
	return Transaction{
		ID:         TransactionIDFor(emp, d, TxCarryover, ""),
		EmployeeID: emp,
		Date:       d,
		Sequence:   SeqCarryover,
		Type:       TxCarryover,
		Hours:      hours,
		Reason:     fmt.Sprintf("carryover from %d", year-1),
	}
}

// Sources bundles the raw records a rebuild reads.
type Sources struct {
	Worked      []WorkedEntry
	Absences    []Absence
	Corrections []Correction
}

// BuildTransactions walks every day of window and emits the day's legs.
// window must already be clipped to employment and today. Balances are left
// zero; Replay fills them.
//
// Per day, with T = target and W = worked:
//
//	W = 0, paid absence     earned -T, <type>_credit +T
//	W = 0, unpaid absence   earned -T, unpaid_adjustment +T
//	T = 0, W = 0            nothing
//	otherwise               earned W-T
//
// Corrections dated in window become one leg each.
func BuildTransactions(emp Employee, src Sources, window Period, today Date, cal *Calendar, log *logger.Logger) []Transaction {
	worked := WorkedByDay(src.Worked)
	credits := AbsenceCredits(emp, src.Absences, window, today, cal, log)

	var txs []Transaction
	for _, d := range window.Days() {
		target := DailyTarget(emp, d, cal)
		w := worked[d]
		credit, covered := credits[d]

		switch {
		case w.IsZero() && covered:
			txs = append(txs, earnedLeg(emp.ID, d, target, decimal.Zero))
			typ := credit.Absence.Type.CreditType()
			txs = append(txs, Transaction{
				ID:         TransactionIDFor(emp.ID, d, typ, credit.Absence.ID),
				EmployeeID: emp.ID,
				Date:       d,
				Sequence:   SeqCredit,
				Type:       typ,
				Hours:      credit.Hours,
				SourceRef:  credit.Absence.ID,
				Reason:     string(credit.Absence.Type),
			})
		case target.IsZero() && w.IsZero():
			continue
		default:
			txs = append(txs, earnedLeg(emp.ID, d, target, w))
		}
	}

	seqByDay := make(map[Date]int)
	for _, c := range CorrectionsIn(src.Corrections, window) {
		if c.EmployeeID != emp.ID {
			continue
		}
		seq := SeqCorrection + seqByDay[c.Date]
		seqByDay[c.Date]++
		txs = append(txs, Transaction{
			ID:         TransactionIDFor(emp.ID, c.Date, TxCorrection, c.ID),
			EmployeeID: emp.ID,
			Date:       c.Date,
			Sequence:   seq,
			Type:       TxCorrection,
			Hours:      c.Hours,
			SourceRef:  c.ID,
			Reason:     c.Reason,
		})
	}

	SortTransactions(txs)
	return txs
}

func earnedLeg(emp EmployeeID, d Date, target, worked decimal.Decimal) Transaction {
	return Transaction{
		ID:          TransactionIDFor(emp, d, TxEarned, ""),
		EmployeeID:  emp,
		Date:        d,
		Sequence:    SeqEarned,
		Type:        TxEarned,
		Hours:       worked.Sub(target),
		TargetHours: target,
		WorkedHours: worked,
	}
}

// SortTransactions orders txs in place by (date, sequence).
func SortTransactions(txs []Transaction) {
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Less(txs[j]) })
}

// =============================================================================
// REPLAY - Running balances
// =============================================================================

// Replay recomputes running balances over txs (already in replay order),
// starting from opening. A carryover leg opens a new year: its Hours are reset
// to the balance that precedes it, BalanceBefore is 0 and the running balance
// passes through unchanged. It returns the closing balance.
func Replay(txs []Transaction, opening decimal.Decimal) decimal.Decimal {
	running := opening
	for i := range txs {
		tx := &txs[i]
		if tx.Type == TxCarryover {
			tx.Hours = running
			tx.BalanceBefore = decimal.Zero
			tx.BalanceAfter = running
			continue
		}
		tx.BalanceBefore = running
		running = running.Add(tx.Hours)
		tx.BalanceAfter = running
	}
	return running
}
