// Package store provides in-process LedgerStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/overtime-engine/overtime"
)

// =============================================================================
// MEMORY STORE - In-memory ledger (for testing/dev)
// =============================================================================

type Memory struct {
	mu   sync.RWMutex
	data memoryData

	failAfter int
	failErr   error
}

type memoryData struct {
	transactions map[overtime.EmployeeID][]overtime.Transaction
	balances     map[balanceKey]overtime.PeriodBalance
	runs         map[int]overtime.RolloverRun
}

type balanceKey struct {
	EmployeeID overtime.EmployeeID
	Year       int
	Month      int
}

func NewMemory() *Memory {
	return &Memory{data: memoryData{
		transactions: make(map[overtime.EmployeeID][]overtime.Transaction),
		balances:     make(map[balanceKey]overtime.PeriodBalance),
		runs:         make(map[int]overtime.RolloverRun),
	}}
}

// FailNextWrite makes the next write inside WithTx return err. Used to test
// rollback behavior.
func (m *Memory) FailNextWrite(err error) { m.FailWriteAfter(0, err) }

// FailWriteAfter lets n writes succeed, then fails the next one with err.
func (m *Memory) FailWriteAfter(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
	m.failErr = err
}

// =============================================================================
// READS
// =============================================================================

func (m *Memory) Transactions(ctx context.Context, id overtime.EmployeeID, p overtime.Period) ([]overtime.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.transactionsIn(id, p), nil
}

func (m *Memory) TransactionsFrom(ctx context.Context, id overtime.EmployeeID, from overtime.Date) ([]overtime.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.transactionsFrom(id, from), nil
}

func (m *Memory) LastTransactionBefore(ctx context.Context, id overtime.EmployeeID, d overtime.Date) (*overtime.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.lastBefore(id, d), nil
}

func (m *Memory) LatestTransaction(ctx context.Context, id overtime.EmployeeID) (*overtime.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.latest(id), nil
}

func (m *Memory) PeriodBalance(ctx context.Context, id overtime.EmployeeID, ym overtime.YearMonth) (*overtime.PeriodBalance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.periodBalance(id, ym), nil
}

func (m *Memory) PeriodBalances(ctx context.Context, id overtime.EmployeeID, year int) ([]overtime.PeriodBalance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.periodBalances(id, year), nil
}

func (m *Memory) RolloverRun(ctx context.Context, year int) (*overtime.RolloverRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.rolloverRun(year), nil
}

func (d *memoryData) transactionsIn(id overtime.EmployeeID, p overtime.Period) []overtime.Transaction {
	var out []overtime.Transaction
	for _, tx := range d.transactions[id] {
		if p.Contains(tx.Date) {
			out = append(out, tx)
		}
	}
	return out
}

func (d *memoryData) transactionsFrom(id overtime.EmployeeID, from overtime.Date) []overtime.Transaction {
	var out []overtime.Transaction
	for _, tx := range d.transactions[id] {
		if !tx.Date.Before(from) {
			out = append(out, tx)
		}
	}
	return out
}

func (d *memoryData) lastBefore(id overtime.EmployeeID, day overtime.Date) *overtime.Transaction {
	txs := d.transactions[id]
	for i := len(txs) - 1; i >= 0; i-- {
		if txs[i].Date.Before(day) {
			tx := txs[i]
			return &tx
		}
	}
	return nil
}

func (d *memoryData) latest(id overtime.EmployeeID) *overtime.Transaction {
	txs := d.transactions[id]
	if len(txs) == 0 {
		return nil
	}
	tx := txs[len(txs)-1]
	return &tx
}

func (d *memoryData) periodBalance(id overtime.EmployeeID, ym overtime.YearMonth) *overtime.PeriodBalance {
	pb, ok := d.balances[balanceKey{EmployeeID: id, Year: ym.Year, Month: int(ym.Month)}]
	if !ok {
		return nil
	}
	return &pb
}

func (d *memoryData) periodBalances(id overtime.EmployeeID, year int) []overtime.PeriodBalance {
	var out []overtime.PeriodBalance
	for k, pb := range d.balances {
		if k.EmployeeID == id && k.Year == year {
			out = append(out, pb)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

func (d *memoryData) rolloverRun(year int) *overtime.RolloverRun {
	run, ok := d.runs[year]
	if !ok {
		return nil
	}
	return &run
}

// =============================================================================
// TRANSACTIONAL WRITES
// =============================================================================

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (m *Memory) WithTx(ctx context.Context, fn func(overtime.LedgerTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.data.clone()
	view := &memoryTx{parent: m}

	if err := fn(view); err != nil {
		m.data = snapshot
		return err
	}
	return nil
}

func (d *memoryData) clone() memoryData {
	c := memoryData{
		transactions: make(map[overtime.EmployeeID][]overtime.Transaction, len(d.transactions)),
		balances:     make(map[balanceKey]overtime.PeriodBalance, len(d.balances)),
		runs:         make(map[int]overtime.RolloverRun, len(d.runs)),
	}
	for k, v := range d.transactions {
		c.transactions[k] = append([]overtime.Transaction(nil), v...)
	}
	for k, v := range d.balances {
		c.balances[k] = v
	}
	for k, v := range d.runs {
		c.runs[k] = v
	}
	return c
}

// memoryTx operates on the parent's data while the parent lock is held.
type memoryTx struct {
	parent *Memory
}

func (tv *memoryTx) checkFail() error {
	if tv.parent.failErr == nil {
		return nil
	}
	if tv.parent.failAfter > 0 {
		tv.parent.failAfter--
		return nil
	}
	err := tv.parent.failErr
	tv.parent.failErr = nil
	return err
}

func (tv *memoryTx) Transactions(ctx context.Context, id overtime.EmployeeID, p overtime.Period) ([]overtime.Transaction, error) {
	return tv.parent.data.transactionsIn(id, p), nil
}

func (tv *memoryTx) TransactionsFrom(ctx context.Context, id overtime.EmployeeID, from overtime.Date) ([]overtime.Transaction, error) {
	return tv.parent.data.transactionsFrom(id, from), nil
}

func (tv *memoryTx) LastTransactionBefore(ctx context.Context, id overtime.EmployeeID, d overtime.Date) (*overtime.Transaction, error) {
	return tv.parent.data.lastBefore(id, d), nil
}

func (tv *memoryTx) LatestTransaction(ctx context.Context, id overtime.EmployeeID) (*overtime.Transaction, error) {
	return tv.parent.data.latest(id), nil
}

func (tv *memoryTx) PeriodBalance(ctx context.Context, id overtime.EmployeeID, ym overtime.YearMonth) (*overtime.PeriodBalance, error) {
	return tv.parent.data.periodBalance(id, ym), nil
}

func (tv *memoryTx) PeriodBalances(ctx context.Context, id overtime.EmployeeID, year int) ([]overtime.PeriodBalance, error) {
	return tv.parent.data.periodBalances(id, year), nil
}

func (tv *memoryTx) RolloverRun(ctx context.Context, year int) (*overtime.RolloverRun, error) {
	return tv.parent.data.rolloverRun(year), nil
}

func (tv *memoryTx) DeleteRegenerable(ctx context.Context, id overtime.EmployeeID, p overtime.Period) (int64, error) {
	if err := tv.checkFail(); err != nil {
		return 0, err
	}
	var kept []overtime.Transaction
	var deleted int64
	for _, tx := range tv.parent.data.transactions[id] {
		if p.Contains(tx.Date) && tx.Type.Regenerable() {
			deleted++
			continue
		}
		kept = append(kept, tx)
	}
	tv.parent.data.transactions[id] = kept
	return deleted, nil
}

func (tv *memoryTx) InsertTransactions(ctx context.Context, txs []overtime.Transaction) error {
	if err := tv.checkFail(); err != nil {
		return err
	}
	for _, tx := range txs {
		tv.insertLocked(tx)
	}
	return nil
}

func (tv *memoryTx) insertLocked(tx overtime.Transaction) {
	txs := tv.parent.data.transactions[tx.EmployeeID]

	i := sort.Search(len(txs), func(i int) bool { return tx.Less(txs[i]) })

	txs = append(txs, overtime.Transaction{})
	copy(txs[i+1:], txs[i:])
	txs[i] = tx
	tv.parent.data.transactions[tx.EmployeeID] = txs
}

func (tv *memoryTx) UpdateBalances(ctx context.Context, updates []overtime.Transaction) error {
	if err := tv.checkFail(); err != nil {
		return err
	}
	byID := make(map[overtime.TransactionID]overtime.Transaction, len(updates))
	for _, u := range updates {
		byID[u.ID] = u
	}
	for id, txs := range tv.parent.data.transactions {
		for i := range txs {
			if u, ok := byID[txs[i].ID]; ok {
				txs[i].Hours = u.Hours
				txs[i].BalanceBefore = u.BalanceBefore
				txs[i].BalanceAfter = u.BalanceAfter
			}
		}
		tv.parent.data.transactions[id] = txs
	}
	return nil
}

func (tv *memoryTx) UpsertCarryover(ctx context.Context, carry overtime.Transaction) error {
	if err := tv.checkFail(); err != nil {
		return err
	}
	txs := tv.parent.data.transactions[carry.EmployeeID]
	for i := range txs {
		if txs[i].ID == carry.ID {
			txs[i] = carry
			return nil
		}
	}
	tv.insertLocked(carry)
	return nil
}

func (tv *memoryTx) SavePeriodBalance(ctx context.Context, pb overtime.PeriodBalance) error {
	if err := tv.checkFail(); err != nil {
		return err
	}
	tv.parent.data.balances[balanceKey{EmployeeID: pb.EmployeeID, Year: pb.Year, Month: int(pb.Month)}] = pb
	return nil
}

func (tv *memoryTx) DeletePeriodBalance(ctx context.Context, id overtime.EmployeeID, ym overtime.YearMonth) error {
	if err := tv.checkFail(); err != nil {
		return err
	}
	delete(tv.parent.data.balances, balanceKey{EmployeeID: id, Year: ym.Year, Month: int(ym.Month)})
	return nil
}

func (tv *memoryTx) SaveRolloverRun(ctx context.Context, run overtime.RolloverRun) error {
	if err := tv.checkFail(); err != nil {
		return err
	}
	tv.parent.data.runs[run.Year] = run
	return nil
}
