/*
store.go - Persistence and collaborator interfaces

PURPOSE:
  Separates the pure engine from its datastore. Two families of interfaces:

  COLLABORATORS (read-only, owned upstream):
    EmployeeDirectory   employee profiles and rosters
    TimeEntrySource     worked hours per day
    AbsenceSource       approved absence ranges
    CorrectionSource    manual adjustments
    HolidaySource       public holidays per year

  LEDGER (owned by the engine):
    LedgerReader        read paths, usable inside and outside a transaction
    LedgerTx            write paths, only reachable through WithTx
    LedgerStore         LedgerReader + WithTx

ATOMICITY:
  Every write operation runs inside exactly one WithTx call. If fn returns an
  error the store rolls back, leaving the ledger as it was before the call.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite (production)
  - overtime/store/memory.go: In-memory with snapshot rollback (tests)
  - directory/: gorm-backed collaborators
*/
package overtime

import "context"

// =============================================================================
// COLLABORATORS
// =============================================================================

type EmployeeDirectory interface {
	// Employee returns *NotFoundError when the id is unknown.
	Employee(ctx context.Context, id EmployeeID) (Employee, error)

	// ActiveEmployees returns employees employed on at least one day of p,
	// ordered by id.
	ActiveEmployees(ctx context.Context, p Period) ([]Employee, error)
}

type TimeEntrySource interface {
	WorkedEntries(ctx context.Context, id EmployeeID, p Period) ([]WorkedEntry, error)
}

type AbsenceSource interface {
	// ApprovedAbsences returns approved ranges overlapping p, unclipped.
	ApprovedAbsences(ctx context.Context, id EmployeeID, p Period) ([]Absence, error)
}

type CorrectionSource interface {
	Corrections(ctx context.Context, id EmployeeID, p Period) ([]Correction, error)
}

type HolidaySource interface {
	HolidaysInYear(ctx context.Context, year int) ([]Holiday, error)
}

// =============================================================================
// LEDGER
// =============================================================================

type LedgerReader interface {
	// Transactions returns the employee's transactions dated within p in
	// (date, sequence) order.
	Transactions(ctx context.Context, id EmployeeID, p Period) ([]Transaction, error)

	// TransactionsFrom returns every transaction dated on or after from.
	TransactionsFrom(ctx context.Context, id EmployeeID, from Date) ([]Transaction, error)

	// LastTransactionBefore returns the last transaction dated strictly before d,
	// or nil when there is none.
	LastTransactionBefore(ctx context.Context, id EmployeeID, d Date) (*Transaction, error)

	// LatestTransaction returns the employee's last transaction, or nil.
	LatestTransaction(ctx context.Context, id EmployeeID) (*Transaction, error)

	// PeriodBalance returns the stored month roll-up, or nil.
	PeriodBalance(ctx context.Context, id EmployeeID, ym YearMonth) (*PeriodBalance, error)

	// PeriodBalances returns all stored months of a year in month order.
	PeriodBalances(ctx context.Context, id EmployeeID, year int) ([]PeriodBalance, error)

	// RolloverRun returns the audit record of a year's rollover, or nil.
	RolloverRun(ctx context.Context, year int) (*RolloverRun, error)
}

type LedgerTx interface {
	LedgerReader

	// DeleteRegenerable removes every non-carryover transaction dated in p.
	DeleteRegenerable(ctx context.Context, id EmployeeID, p Period) (int64, error)

	InsertTransactions(ctx context.Context, txs []Transaction) error

	// UpdateBalances rewrites Hours, BalanceBefore and BalanceAfter by ID.
	UpdateBalances(ctx context.Context, txs []Transaction) error

	// UpsertCarryover inserts the carryover or overwrites the existing one
	// with the same ID.
	UpsertCarryover(ctx context.Context, tx Transaction) error

	SavePeriodBalance(ctx context.Context, pb PeriodBalance) error
	DeletePeriodBalance(ctx context.Context, id EmployeeID, ym YearMonth) error
	SaveRolloverRun(ctx context.Context, run RolloverRun) error
}

type LedgerStore interface {
	LedgerReader

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	WithTx(ctx context.Context, fn func(tx LedgerTx) error) error
}
