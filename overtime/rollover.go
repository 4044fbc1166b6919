package overtime

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// YEAR-END ROLLOVER
// =============================================================================

// RolloverYear seeds year+1 with each active employee's balance at the end of
// year. It runs as one atomic batch: a single failure rolls every employee
// back. Re-running a year overwrites the existing carryover legs in place.
//
// An employee is active across the boundary when hired on or before Dec 31
// and not terminated before Jan 1 of the next year.
func (e *Engine) RolloverYear(ctx context.Context, year int) (RolloverResult, error) {
	if err := Validate(yearInput{Year: year}); err != nil {
		return RolloverResult{}, err
	}
	if err := Validate(yearInput{Year: year + 1}); err != nil {
		return RolloverResult{}, err
	}

	yearEnd := EndOfYear(year)
	nextStart := StartOfYear(year + 1)

	candidates, err := e.deps.Employees.ActiveEmployees(ctx, Period{Start: yearEnd, End: yearEnd})
	if err != nil {
		return RolloverResult{}, fmt.Errorf("list active employees: %w", err)
	}
	var employees []Employee
	for _, emp := range candidates {
		if emp.EndDate != nil && emp.EndDate.Before(nextStart) {
			continue
		}
		employees = append(employees, emp)
	}

	result := RolloverResult{Year: year, TotalCarryover: decimal.Zero}
	err = e.deps.Ledger.WithTx(ctx, func(tx LedgerTx) error {
		for _, emp := range employees {
			hours, err := balanceAt(ctx, tx, emp.ID, yearEnd)
			if err != nil {
				return fmt.Errorf("balance of %s at %s: %w", emp.ID, yearEnd, err)
			}

			carry := CarryoverFor(emp.ID, year+1, hours)
			carry.BalanceAfter = hours
			if err := tx.UpsertCarryover(ctx, carry); err != nil {
				return fmt.Errorf("carryover for %s: %w", emp.ID, err)
			}
			if err := replayFrom(ctx, tx, emp.ID, nextStart); err != nil {
				return fmt.Errorf("replay %s: %w", emp.ID, err)
			}

			result.ProcessedCount++
			result.TotalCarryover = result.TotalCarryover.Add(hours)
		}
		return tx.SaveRolloverRun(ctx, RolloverRun{
			Year:           year,
			ProcessedCount: result.ProcessedCount,
			TotalCarryover: result.TotalCarryover,
			CompletedAt:    e.now().UTC(),
		})
	})
	if err != nil {
		e.log.Error().Err(err).Int("year", year).Msg("rollover rolled back")
		return RolloverResult{}, err
	}

	e.log.Info().
		Int("year", year).
		Int("processed", result.ProcessedCount).
		Str("total_carryover", result.TotalCarryover.String()).
		Msg("year-end rollover complete")
	return result, nil
}

func balanceAt(ctx context.Context, r LedgerReader, id EmployeeID, d Date) (decimal.Decimal, error) {
	last, err := r.LastTransactionBefore(ctx, id, d.AddDays(1))
	if err != nil {
		return decimal.Zero, err
	}
	if last == nil {
		return decimal.Zero, nil
	}
	return last.BalanceAfter, nil
}
