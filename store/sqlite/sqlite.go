/*
Package sqlite provides a SQLite-backed implementation of overtime.LedgerStore.

PURPOSE:
  Persists the overtime ledger, the monthly period balances and the year-end
  rollover audit trail. The same schema ports to PostgreSQL with minor
  dialect changes (upserts, date columns).

INTERFACES IMPLEMENTED:
  overtime.LedgerReader: read paths
  overtime.LedgerStore:  read paths + WithTx
  overtime.LedgerTx:     write paths, only handed out inside WithTx

KEY TABLES:
  ledger_transactions: one row per ledger leg, ordered by (tx_date, sequence)
  period_balances:     one row per employee and month
  rollover_runs:       one row per closed year

REGENERATION:
  Unlike an append-only ledger, regenerable rows are deleted and re-inserted
  on every rebuild. Carryover rows are never deleted by a rebuild; only their
  hours and running balances are refreshed during replay.

INDEXES:
  - idx_ledger_unique_slot: one leg per (employee, day, sequence)
  - idx_ledger_employee_date: range scans and replay (hot path)

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. WithTx holds the write lock for the
  whole callback; reads inside the callback go through the *sql.Tx and never
  take the lock again.

HOURS:
  Stored as decimal strings so sums stay exact.

USAGE:
  db, err := sqlite.Open("./data/overtime.db")
  ledger, err := sqlite.NewWithDB(db)
  engine := overtime.NewEngine(overtime.Dependencies{Ledger: ledger, ...})
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/warp/overtime-engine/overtime"
)

// ErrDuplicateSlot is returned when two legs claim the same (employee, day,
// sequence) slot. It means the ledger was not cleared before an insert.
var ErrDuplicateSlot = errors.New("duplicate ledger slot")

// Store implements overtime.LedgerStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Open opens the SQLite database at path with WAL and foreign keys enabled.
// Use ":memory:" for an in-memory database; it is pinned to one connection
// so every caller sees the same data.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// New opens the database at path and migrates the ledger schema.
func New(path string) (*Store, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	store, err := NewWithDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewWithDB wraps an existing connection pool, for sharing it with the
// employee directory.
func NewWithDB(db *sql.DB) (*Store, error) {
	store := &Store{db: db}
	if err := store.migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS ledger_transactions (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		tx_date TEXT NOT NULL,
		sequence INTEGER NOT NULL,
		tx_type TEXT NOT NULL,
		hours TEXT NOT NULL,
		balance_before TEXT NOT NULL,
		balance_after TEXT NOT NULL,
		target_hours TEXT NOT NULL DEFAULT '0',
		worked_hours TEXT NOT NULL DEFAULT '0',
		source_ref TEXT,
		reason TEXT,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_ledger_unique_slot
		ON ledger_transactions(employee_id, tx_date, sequence);
	CREATE INDEX IF NOT EXISTS idx_ledger_employee_date
		ON ledger_transactions(employee_id, tx_date);
	CREATE INDEX IF NOT EXISTS idx_ledger_type
		ON ledger_transactions(tx_type);

	CREATE TABLE IF NOT EXISTS period_balances (
		employee_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		target_hours TEXT NOT NULL,
		actual_hours TEXT NOT NULL,
		overtime TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (employee_id, year, month)
	);

	CREATE TABLE IF NOT EXISTS rollover_runs (
		year INTEGER PRIMARY KEY,
		processed_count INTEGER NOT NULL,
		total_carryover TEXT NOT NULL,
		completed_at TEXT NOT NULL
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// =============================================================================
// READS (overtime.LedgerReader)
// =============================================================================

const transactionColumns = `id, employee_id, tx_date, sequence, tx_type, hours,
	balance_before, balance_after, target_hours, worked_hours, source_ref, reason`

func (s *Store) Transactions(ctx context.Context, id overtime.EmployeeID, p overtime.Period) ([]overtime.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactionsIn(ctx, s.db, id, p)
}

func (s *Store) TransactionsFrom(ctx context.Context, id overtime.EmployeeID, from overtime.Date) ([]overtime.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transactionsFrom(ctx, s.db, id, from)
}

func (s *Store) LastTransactionBefore(ctx context.Context, id overtime.EmployeeID, d overtime.Date) (*overtime.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lastTransactionBefore(ctx, s.db, id, d)
}

func (s *Store) LatestTransaction(ctx context.Context, id overtime.EmployeeID) (*overtime.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return latestTransaction(ctx, s.db, id)
}

func (s *Store) PeriodBalance(ctx context.Context, id overtime.EmployeeID, ym overtime.YearMonth) (*overtime.PeriodBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return periodBalance(ctx, s.db, id, ym)
}

func (s *Store) PeriodBalances(ctx context.Context, id overtime.EmployeeID, year int) ([]overtime.PeriodBalance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return periodBalances(ctx, s.db, id, year)
}

func (s *Store) RolloverRun(ctx context.Context, year int) (*overtime.RolloverRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return rolloverRun(ctx, s.db, year)
}

func transactionsIn(ctx context.Context, q querier, id overtime.EmployeeID, p overtime.Period) ([]overtime.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM ledger_transactions
		WHERE employee_id = ? AND tx_date >= ? AND tx_date <= ?
		ORDER BY tx_date ASC, sequence ASC`
	return queryTransactions(ctx, q, query, id, p.Start.String(), p.End.String())
}

func transactionsFrom(ctx context.Context, q querier, id overtime.EmployeeID, from overtime.Date) ([]overtime.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM ledger_transactions
		WHERE employee_id = ? AND tx_date >= ?
		ORDER BY tx_date ASC, sequence ASC`
	return queryTransactions(ctx, q, query, id, from.String())
}

func lastTransactionBefore(ctx context.Context, q querier, id overtime.EmployeeID, d overtime.Date) (*overtime.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM ledger_transactions
		WHERE employee_id = ? AND tx_date < ?
		ORDER BY tx_date DESC, sequence DESC
		LIMIT 1`
	return queryOneTransaction(ctx, q, query, id, d.String())
}

func latestTransaction(ctx context.Context, q querier, id overtime.EmployeeID) (*overtime.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM ledger_transactions
		WHERE employee_id = ?
		ORDER BY tx_date DESC, sequence DESC
		LIMIT 1`
	return queryOneTransaction(ctx, q, query, id)
}

func queryOneTransaction(ctx context.Context, q querier, query string, args ...any) (*overtime.Transaction, error) {
	txs, err := queryTransactions(ctx, q, query, args...)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, nil
	}
	return &txs[0], nil
}

func queryTransactions(ctx context.Context, q querier, query string, args ...any) ([]overtime.Transaction, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []overtime.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}

	return transactions, rows.Err()
}

func scanTransaction(rows *sql.Rows) (overtime.Transaction, error) {
	var (
		tx        overtime.Transaction
		txDate    string
		sourceRef sql.NullString
		reason    sql.NullString
	)

	err := rows.Scan(
		&tx.ID, &tx.EmployeeID, &txDate, &tx.Sequence, &tx.Type, &tx.Hours,
		&tx.BalanceBefore, &tx.BalanceAfter, &tx.TargetHours, &tx.WorkedHours,
		&sourceRef, &reason,
	)
	if err != nil {
		return tx, fmt.Errorf("failed to scan transaction: %w", err)
	}

	tx.Date, err = overtime.ParseDate(txDate)
	if err != nil {
		return tx, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	tx.SourceRef = sourceRef.String
	tx.Reason = reason.String
	return tx, nil
}

func periodBalance(ctx context.Context, q querier, id overtime.EmployeeID, ym overtime.YearMonth) (*overtime.PeriodBalance, error) {
	var (
		pb    overtime.PeriodBalance
		month int
	)
	err := q.QueryRowContext(ctx, `
		SELECT employee_id, year, month, target_hours, actual_hours, overtime
		FROM period_balances
		WHERE employee_id = ? AND year = ? AND month = ?
	`, id, ym.Year, int(ym.Month)).Scan(&pb.EmployeeID, &pb.Year, &month, &pb.TargetHours, &pb.ActualHours, &pb.Overtime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load period balance: %w", err)
	}
	pb.Month = time.Month(month)
	return &pb, nil
}

func periodBalances(ctx context.Context, q querier, id overtime.EmployeeID, year int) ([]overtime.PeriodBalance, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT employee_id, year, month, target_hours, actual_hours, overtime
		FROM period_balances
		WHERE employee_id = ? AND year = ?
		ORDER BY month ASC
	`, id, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query period balances: %w", err)
	}
	defer rows.Close()

	var out []overtime.PeriodBalance
	for rows.Next() {
		var (
			pb    overtime.PeriodBalance
			month int
		)
		if err := rows.Scan(&pb.EmployeeID, &pb.Year, &month, &pb.TargetHours, &pb.ActualHours, &pb.Overtime); err != nil {
			return nil, fmt.Errorf("failed to scan period balance: %w", err)
		}
		pb.Month = time.Month(month)
		out = append(out, pb)
	}
	return out, rows.Err()
}

func rolloverRun(ctx context.Context, q querier, year int) (*overtime.RolloverRun, error) {
	var (
		run         overtime.RolloverRun
		completedAt string
	)
	err := q.QueryRowContext(ctx, `
		SELECT year, processed_count, total_carryover, completed_at
		FROM rollover_runs WHERE year = ?
	`, year).Scan(&run.Year, &run.ProcessedCount, &run.TotalCarryover, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load rollover run: %w", err)
	}
	run.CompletedAt, _ = time.Parse(time.RFC3339, completedAt)
	return &run, nil
}

// =============================================================================
// TRANSACTIONAL STORE (overtime.LedgerStore)
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx overtime.LedgerTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) Transactions(ctx context.Context, id overtime.EmployeeID, p overtime.Period) ([]overtime.Transaction, error) {
	return transactionsIn(ctx, ts.tx, id, p)
}

func (ts *txStore) TransactionsFrom(ctx context.Context, id overtime.EmployeeID, from overtime.Date) ([]overtime.Transaction, error) {
	return transactionsFrom(ctx, ts.tx, id, from)
}

func (ts *txStore) LastTransactionBefore(ctx context.Context, id overtime.EmployeeID, d overtime.Date) (*overtime.Transaction, error) {
	return lastTransactionBefore(ctx, ts.tx, id, d)
}

func (ts *txStore) LatestTransaction(ctx context.Context, id overtime.EmployeeID) (*overtime.Transaction, error) {
	return latestTransaction(ctx, ts.tx, id)
}

func (ts *txStore) PeriodBalance(ctx context.Context, id overtime.EmployeeID, ym overtime.YearMonth) (*overtime.PeriodBalance, error) {
	return periodBalance(ctx, ts.tx, id, ym)
}

func (ts *txStore) PeriodBalances(ctx context.Context, id overtime.EmployeeID, year int) ([]overtime.PeriodBalance, error) {
	return periodBalances(ctx, ts.tx, id, year)
}

func (ts *txStore) RolloverRun(ctx context.Context, year int) (*overtime.RolloverRun, error) {
	return rolloverRun(ctx, ts.tx, year)
}

func (ts *txStore) DeleteRegenerable(ctx context.Context, id overtime.EmployeeID, p overtime.Period) (int64, error) {
	res, err := ts.tx.ExecContext(ctx, `
		DELETE FROM ledger_transactions
		WHERE employee_id = ? AND tx_date >= ? AND tx_date <= ? AND tx_type != ?
	`, id, p.Start.String(), p.End.String(), overtime.TxCarryover)
	if err != nil {
		return 0, fmt.Errorf("failed to delete transactions: %w", err)
	}
	return res.RowsAffected()
}

func (ts *txStore) InsertTransactions(ctx context.Context, txs []overtime.Transaction) error {
	for _, tx := range txs {
		if err := insertTransaction(ctx, ts.tx, tx); err != nil {
			return err
		}
	}
	return nil
}

func insertTransaction(ctx context.Context, q querier, tx overtime.Transaction) error {
	query := `
		INSERT INTO ledger_transactions
		(id, employee_id, tx_date, sequence, tx_type, hours, balance_before, balance_after,
		 target_hours, worked_hours, source_ref, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		tx.ID,
		tx.EmployeeID,
		tx.Date.String(),
		tx.Sequence,
		tx.Type,
		tx.Hours.String(),
		tx.BalanceBefore.String(),
		tx.BalanceAfter.String(),
		tx.TargetHours.String(),
		tx.WorkedHours.String(),
		nullString(tx.SourceRef),
		nullString(tx.Reason),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: %s %s #%d", ErrDuplicateSlot, tx.EmployeeID, tx.Date, tx.Sequence)
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (ts *txStore) UpdateBalances(ctx context.Context, txs []overtime.Transaction) error {
	stmt, err := ts.tx.PrepareContext(ctx, `
		UPDATE ledger_transactions
		SET hours = ?, balance_before = ?, balance_after = ?
		WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare balance update: %w", err)
	}
	defer stmt.Close()

	for _, tx := range txs {
		if _, err := stmt.ExecContext(ctx, tx.Hours.String(), tx.BalanceBefore.String(), tx.BalanceAfter.String(), tx.ID); err != nil {
			return fmt.Errorf("failed to update balance of %s: %w", tx.ID, err)
		}
	}
	return nil
}

func (ts *txStore) UpsertCarryover(ctx context.Context, carry overtime.Transaction) error {
	query := `
		INSERT INTO ledger_transactions
		(id, employee_id, tx_date, sequence, tx_type, hours, balance_before, balance_after,
		 target_hours, worked_hours, source_ref, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, '0', '0', ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			hours = excluded.hours,
			balance_before = excluded.balance_before,
			balance_after = excluded.balance_after,
			reason = excluded.reason
	`
	_, err := ts.tx.ExecContext(ctx, query,
		carry.ID,
		carry.EmployeeID,
		carry.Date.String(),
		carry.Sequence,
		carry.Type,
		carry.Hours.String(),
		carry.BalanceBefore.String(),
		carry.BalanceAfter.String(),
		nullString(carry.SourceRef),
		nullString(carry.Reason),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert carryover: %w", err)
	}
	return nil
}

func (ts *txStore) SavePeriodBalance(ctx context.Context, pb overtime.PeriodBalance) error {
	_, err := ts.tx.ExecContext(ctx, `
		INSERT INTO period_balances
		(employee_id, year, month, target_hours, actual_hours, overtime, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, year, month) DO UPDATE SET
			target_hours = excluded.target_hours,
			actual_hours = excluded.actual_hours,
			overtime = excluded.overtime,
			updated_at = excluded.updated_at
	`,
		pb.EmployeeID,
		pb.Year,
		int(pb.Month),
		pb.TargetHours.String(),
		pb.ActualHours.String(),
		pb.Overtime.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save period balance: %w", err)
	}
	return nil
}

func (ts *txStore) DeletePeriodBalance(ctx context.Context, id overtime.EmployeeID, ym overtime.YearMonth) error {
	_, err := ts.tx.ExecContext(ctx,
		"DELETE FROM period_balances WHERE employee_id = ? AND year = ? AND month = ?",
		id, ym.Year, int(ym.Month),
	)
	if err != nil {
		return fmt.Errorf("failed to delete period balance: %w", err)
	}
	return nil
}

func (ts *txStore) SaveRolloverRun(ctx context.Context, run overtime.RolloverRun) error {
	_, err := ts.tx.ExecContext(ctx, `
		INSERT INTO rollover_runs (year, processed_count, total_carryover, completed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(year) DO UPDATE SET
			processed_count = excluded.processed_count,
			total_carryover = excluded.total_carryover,
			completed_at = excluded.completed_at
	`, run.Year, run.ProcessedCount, run.TotalCarryover.String(), run.CompletedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save rollover run: %w", err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

var (
	_ overtime.LedgerStore = (*Store)(nil)
	_ overtime.LedgerTx    = (*txStore)(nil)
)
