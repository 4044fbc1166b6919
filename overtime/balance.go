package overtime

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BALANCE AGGREGATOR - transactions -> PeriodBalance
// =============================================================================

// ComputePeriodBalance rolls one month of transactions into target and actual
// hours. Target and worked come from the earned legs; credits, unpaid
// adjustments and corrections add to actual. Carryover is a seed and is
// ignored. ok is false when the month holds no regenerable transaction.
func ComputePeriodBalance(emp EmployeeID, ym YearMonth, txs []Transaction) (pb PeriodBalance, ok bool) {
	pb = PeriodBalance{
		EmployeeID:  emp,
		Year:        ym.Year,
		Month:       ym.Month,
		TargetHours: decimal.Zero,
		ActualHours: decimal.Zero,
	}
	month := ym.Period()
	for _, tx := range txs {
		if !month.Contains(tx.Date) || !tx.Type.Regenerable() {
			continue
		}
		ok = true
		switch tx.Type {
		case TxEarned:
			pb.TargetHours = pb.TargetHours.Add(tx.TargetHours)
			pb.ActualHours = pb.ActualHours.Add(tx.WorkedHours)
		default:
			pb.ActualHours = pb.ActualHours.Add(tx.Hours)
		}
	}
	pb.Overtime = pb.ActualHours.Sub(pb.TargetHours)
	return pb, ok
}

// LedgerSum sums the hours of every non-carryover transaction dated in p.
func LedgerSum(txs []Transaction, p Period) decimal.Decimal {
	sum := decimal.Zero
	for _, tx := range txs {
		if p.Contains(tx.Date) && tx.Type.Regenerable() {
			sum = sum.Add(tx.Hours)
		}
	}
	return sum
}

// VerifyPeriodBalance checks that pb.Overtime equals the month's ledger sum.
func VerifyPeriodBalance(pb PeriodBalance, txs []Transaction) error {
	ym := YearMonth{Year: pb.Year, Month: pb.Month}
	sum := LedgerSum(txs, ym.Period())
	if !sum.Equal(pb.Overtime) {
		return &DataInconsistencyError{
			EmployeeID:     pb.EmployeeID,
			Period:         ym,
			StoredOvertime: pb.Overtime,
			LedgerSum:      sum,
		}
	}
	return nil
}

// refreshPeriodBalances recomputes, verifies and stores the roll-up of every
// month touching p. Months left without transactions lose their row.
func refreshPeriodBalances(ctx context.Context, tx LedgerTx, emp EmployeeID, p Period) error {
	for _, ym := range p.Months() {
		txs, err := tx.Transactions(ctx, emp, ym.Period())
		if err != nil {
			return fmt.Errorf("load %s transactions: %w", ym, err)
		}

		pb, ok := ComputePeriodBalance(emp, ym, txs)
		if !ok {
			if err := tx.DeletePeriodBalance(ctx, emp, ym); err != nil {
				return fmt.Errorf("delete %s balance: %w", ym, err)
			}
			continue
		}
		if err := VerifyPeriodBalance(pb, txs); err != nil {
			return err
		}
		if err := tx.SavePeriodBalance(ctx, pb); err != nil {
			return fmt.Errorf("save %s balance: %w", ym, err)
		}
	}
	return nil
}

// SumPeriodBalances folds monthly rows into one summary.
func SumPeriodBalances(emp EmployeeID, year, month int, rows []PeriodBalance) Summary {
	s := Summary{
		EmployeeID:  emp,
		Year:        year,
		Month:       month,
		TargetHours: decimal.Zero,
		ActualHours: decimal.Zero,
		Overtime:    decimal.Zero,
		Carryover:   decimal.Zero,
	}
	for _, pb := range rows {
		if month != 0 && int(pb.Month) != month {
			continue
		}
		s.HasData = true
		s.TargetHours = s.TargetHours.Add(pb.TargetHours)
		s.ActualHours = s.ActualHours.Add(pb.ActualHours)
		s.Overtime = s.Overtime.Add(pb.Overtime)
		if month == 0 {
			s.Months = append(s.Months, pb)
		}
	}
	return s
}

// =============================================================================
// DERIVED VIEWS - read-only daily and weekly reporting
// =============================================================================

// DayView is one day of the ledger, all legs folded together.
type DayView struct {
	Date         Date
	TargetHours  decimal.Decimal
	WorkedHours  decimal.Decimal
	CreditHours  decimal.Decimal
	Corrections  decimal.Decimal
	Net          decimal.Decimal
	BalanceAfter decimal.Decimal
}

// WeekView folds the days of one ISO week.
type WeekView struct {
	ISOYear      int
	Week         int
	Start        Date
	End          Date
	TargetHours  decimal.Decimal
	ActualHours  decimal.Decimal
	Overtime     decimal.Decimal
	BalanceAfter decimal.Decimal
}

// DailyViews groups txs by date. Carryover days appear with their seed as
// balance but contribute nothing to Net.
func DailyViews(txs []Transaction) []DayView {
	var out []DayView
	for _, tx := range txs {
		if len(out) == 0 || !out[len(out)-1].Date.Equal(tx.Date) {
			out = append(out, DayView{
				Date:        tx.Date,
				TargetHours: decimal.Zero,
				WorkedHours: decimal.Zero,
				CreditHours: decimal.Zero,
				Corrections: decimal.Zero,
				Net:         decimal.Zero,
			})
		}
		day := &out[len(out)-1]
		day.BalanceAfter = tx.BalanceAfter
		switch {
		case tx.Type == TxEarned:
			day.TargetHours = day.TargetHours.Add(tx.TargetHours)
			day.WorkedHours = day.WorkedHours.Add(tx.WorkedHours)
		case tx.Type.IsCredit():
			day.CreditHours = day.CreditHours.Add(tx.Hours)
		case tx.Type == TxCorrection:
			day.Corrections = day.Corrections.Add(tx.Hours)
		}
		if tx.Type.Regenerable() {
			day.Net = day.Net.Add(tx.Hours)
		}
	}
	return out
}

// WeeklyViews folds daily views into ISO weeks.
func WeeklyViews(days []DayView) []WeekView {
	var out []WeekView
	for _, d := range days {
		y, w := d.Date.ISOWeek()
		if len(out) == 0 || out[len(out)-1].ISOYear != y || out[len(out)-1].Week != w {
			monday := d.Date.AddDays(-((int(d.Date.Weekday()) + 6) % 7))
			out = append(out, WeekView{
				ISOYear:     y,
				Week:        w,
				Start:       monday,
				End:         monday.AddDays(6),
				TargetHours: decimal.Zero,
				ActualHours: decimal.Zero,
				Overtime:    decimal.Zero,
			})
		}
		wk := &out[len(out)-1]
		wk.TargetHours = wk.TargetHours.Add(d.TargetHours)
		wk.ActualHours = wk.ActualHours.Add(d.WorkedHours).Add(d.CreditHours).Add(d.Corrections)
		wk.Overtime = wk.Overtime.Add(d.Net)
		wk.BalanceAfter = d.BalanceAfter
	}
	return out
}
