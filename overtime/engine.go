/*
engine.go - Public entry points of the overtime engine

ENTRY POINTS:
  ResolveDailyTarget    (employee, date) -> hours
  RebuildLedger         delete-and-regenerate an employee's ledger over a range
  GetBalance            running balance as of a date (or latest)
  GetPeriodSummary      monthly or yearly target/actual/overtime
  GetAggregatedSummary  organization-wide totals, read in parallel
  RolloverYear          carryover seeding for all active employees (rollover.go)

REBUILD FLOW:
  1. Validate input
  2. Take the employee's rebuild lock, held until step 6 commits, so two
     triggers for the same employee never interleave their read and write
  3. Load the employee (unknown -> NotFoundError, no write)
  4. Load holidays for every touched year (source failure degrades)
  5. Read sources and BuildTransactions (pure)
  6. In one WithTx: delete regenerable legs in [from, to], insert new legs,
     replay running balances forward, refresh and verify PeriodBalance rows

  Any error in step 6 rolls the whole range back. Sources are read before
  WithTx opens because the SQLite store may share one connection with them.

SEE ALSO:
  - builder.go: BuildTransactions, Replay
  - balance.go: PeriodBalance computation and verification
*/
package overtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/overtime-engine/logger"
	"golang.org/x/sync/errgroup"
)

// Dependencies are the collaborators and the ledger store an Engine reads
// and writes.
type Dependencies struct {
	Employees   EmployeeDirectory
	TimeEntries TimeEntrySource
	Absences    AbsenceSource
	Corrections CorrectionSource
	Holidays    HolidaySource
	Ledger      LedgerStore
}

type Engine struct {
	deps        Dependencies
	region      string
	log         *logger.Logger
	now         func() time.Time
	concurrency int

	// rebuilding holds one *sync.Mutex per EmployeeID.
	rebuilding sync.Map
}

type Option func(*Engine)

// WithRegion restricts regional holidays to region.
func WithRegion(region string) Option { return func(e *Engine) { e.region = region } }

func WithLogger(log *logger.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithClock overrides the source of "today". Nothing is generated after today.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithConcurrency bounds parallel reads in GetAggregatedSummary.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

func NewEngine(deps Dependencies, opts ...Option) *Engine {
	e := &Engine{
		deps:        deps,
		log:         logger.Nop(),
		now:         time.Now,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.WithComponent("ledger")
	return e
}

func (e *Engine) today() Date { return DateOf(e.now()) }

// newCalendar returns a calendar scoped to one operation.
func (e *Engine) newCalendar() *Calendar {
	return NewCalendar(e.deps.Holidays, e.region, e.log)
}

// =============================================================================
// TARGET
// =============================================================================

// ResolveDailyTarget returns the hours emp owes on d.
func (e *Engine) ResolveDailyTarget(ctx context.Context, emp Employee, d Date) (decimal.Decimal, error) {
	if err := validateEmployee(emp); err != nil {
		return decimal.Zero, err
	}
	if err := Validate(yearInput{Year: d.Year()}); err != nil {
		return decimal.Zero, err
	}
	cal := e.newCalendar()
	cal.EnsureYear(ctx, d.Year())
	return DailyTarget(emp, d, cal), nil
}

// =============================================================================
// REBUILD
// =============================================================================

// RebuildLedger regenerates every non-carryover transaction of the employee
// dated in [from, to]. Calling it twice with unchanged sources yields
// identical transactions and balances.
func (e *Engine) RebuildLedger(ctx context.Context, id EmployeeID, from, to Date) error {
	if err := Validate(rebuildInput{EmployeeID: string(id), FromYear: from.Year(), ToYear: to.Year()}); err != nil {
		return err
	}
	window, err := NewPeriod(from, to)
	if err != nil {
		return err
	}

	unlock := e.lockEmployee(id)
	defer unlock()

	emp, err := e.deps.Employees.Employee(ctx, id)
	if err != nil {
		return err
	}
	if err := validateEmployee(emp); err != nil {
		return err
	}

	log := e.log.WithEmployee(string(id))
	start := time.Now()

	txs, degraded, err := e.build(ctx, emp, window)
	if err != nil {
		return err
	}

	err = e.deps.Ledger.WithTx(ctx, func(tx LedgerTx) error {
		return e.apply(ctx, tx, id, window, txs)
	})
	if err != nil {
		log.Error().Err(err).Str("window", window.String()).Msg("rebuild rolled back")
		return err
	}

	ev := log.Debug()
	if len(degraded) > 0 {
		ev = log.Warn().Ints("degraded_holiday_years", degraded)
	}
	ev.Str("window", window.String()).
		Int("transactions", len(txs)).
		Dur("took", time.Since(start)).
		Msg("ledger rebuilt")
	return nil
}

// lockEmployee serializes rebuilds of one employee within this engine and
// returns the unlock func.
func (e *Engine) lockEmployee(id EmployeeID) func() {
	v, _ := e.rebuilding.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// RebuildMonth rebuilds one calendar month.
func (e *Engine) RebuildMonth(ctx context.Context, id EmployeeID, year, month int) error {
	if err := Validate(monthInput{EmployeeID: string(id), Year: year, Month: month}); err != nil {
		return err
	}
	p := MonthPeriod(year, time.Month(month))
	return e.RebuildLedger(ctx, id, p.Start, p.End)
}

// RebuildEmployee rebuilds from the hire date through today. History before
// 2000 is not kept: earlier hires start at 2000-01-01.
func (e *Engine) RebuildEmployee(ctx context.Context, id EmployeeID) error {
	if id == "" {
		return &ValidationError{Field: "employee_id", Message: "this field is required"}
	}
	emp, err := e.deps.Employees.Employee(ctx, id)
	if err != nil {
		return err
	}
	today := e.today()
	if emp.HireDate.After(today) {
		return nil
	}
	from := emp.HireDate
	if first := StartOfYear(minLedgerYear); from.Before(first) {
		from = first
	}
	return e.RebuildLedger(ctx, id, from, today)
}

// build reads the sources and produces the window's transactions, along with
// the years whose holidays could not be loaded. Nothing is written.
func (e *Engine) build(ctx context.Context, emp Employee, window Period) ([]Transaction, []int, error) {
	today := e.today()
	effective, ok := window.Clip(emp.Employment(today))
	if !ok {
		return nil, nil, nil
	}

	cal := e.newCalendar()
	cal.EnsurePeriod(ctx, effective)
	var degraded []int
	for y := effective.Start.Year(); y <= effective.End.Year(); y++ {
		if cal.Degraded(y) {
			degraded = append(degraded, y)
		}
	}

	var src Sources
	var err error
	if src.Worked, err = e.deps.TimeEntries.WorkedEntries(ctx, emp.ID, effective); err != nil {
		return nil, nil, fmt.Errorf("load worked entries: %w", err)
	}
	if src.Absences, err = e.deps.Absences.ApprovedAbsences(ctx, emp.ID, effective); err != nil {
		return nil, nil, fmt.Errorf("load absences: %w", err)
	}
	if src.Corrections, err = e.deps.Corrections.Corrections(ctx, emp.ID, effective); err != nil {
		return nil, nil, fmt.Errorf("load corrections: %w", err)
	}

	return BuildTransactions(emp, src, effective, today, cal, e.log), degraded, nil
}

// apply replaces the window's legs and replays balances forward.
func (e *Engine) apply(ctx context.Context, tx LedgerTx, id EmployeeID, window Period, txs []Transaction) error {
	if _, err := tx.DeleteRegenerable(ctx, id, window); err != nil {
		return fmt.Errorf("delete regenerable transactions: %w", err)
	}
	if len(txs) > 0 {
		if err := tx.InsertTransactions(ctx, txs); err != nil {
			return fmt.Errorf("insert transactions: %w", err)
		}
	}
	if err := replayFrom(ctx, tx, id, window.Start); err != nil {
		return err
	}
	return refreshPeriodBalances(ctx, tx, id, window)
}

// replayFrom recomputes running balances of every transaction dated on or
// after from, seeded by the last balance before it.
func replayFrom(ctx context.Context, tx LedgerTx, id EmployeeID, from Date) error {
	opening := decimal.Zero
	prev, err := tx.LastTransactionBefore(ctx, id, from)
	if err != nil {
		return fmt.Errorf("load opening balance: %w", err)
	}
	if prev != nil {
		opening = prev.BalanceAfter
	}

	txs, err := tx.TransactionsFrom(ctx, id, from)
	if err != nil {
		return fmt.Errorf("load transactions to replay: %w", err)
	}
	if len(txs) == 0 {
		return nil
	}
	Replay(txs, opening)
	if err := tx.UpdateBalances(ctx, txs); err != nil {
		return fmt.Errorf("update running balances: %w", err)
	}
	return nil
}

// =============================================================================
// BALANCES
// =============================================================================

// GetBalance returns the running balance after the last transaction on or
// before asOf. A nil asOf means the latest balance. No transactions means 0.
func (e *Engine) GetBalance(ctx context.Context, id EmployeeID, asOf *Date) (decimal.Decimal, error) {
	if id == "" {
		return decimal.Zero, &ValidationError{Field: "employee_id", Message: "this field is required"}
	}
	if asOf != nil {
		if err := Validate(yearInput{Year: asOf.Year()}); err != nil {
			return decimal.Zero, err
		}
		return balanceAt(ctx, e.deps.Ledger, id, *asOf)
	}

	last, err := e.deps.Ledger.LatestTransaction(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	if last == nil {
		return decimal.Zero, nil
	}
	return last.BalanceAfter, nil
}

// GetPeriodSummary returns target, actual and overtime for a month, or for
// the whole year when month is 0. Yearly summaries also report the
// carryover that seeded the year.
func (e *Engine) GetPeriodSummary(ctx context.Context, id EmployeeID, year, month int) (Summary, error) {
	if err := Validate(periodInput{EmployeeID: string(id), Year: year, Month: month}); err != nil {
		return Summary{}, err
	}
	return e.periodSummary(ctx, id, year, month)
}

func (e *Engine) periodSummary(ctx context.Context, id EmployeeID, year, month int) (Summary, error) {
	var rows []PeriodBalance
	if month == 0 {
		var err error
		rows, err = e.deps.Ledger.PeriodBalances(ctx, id, year)
		if err != nil {
			return Summary{}, err
		}
	} else {
		pb, err := e.deps.Ledger.PeriodBalance(ctx, id, YearMonth{Year: year, Month: time.Month(month)})
		if err != nil {
			return Summary{}, err
		}
		if pb != nil {
			rows = append(rows, *pb)
		}
	}

	s := SumPeriodBalances(id, year, month, rows)
	if month == 0 {
		seed, err := e.deps.Ledger.Transactions(ctx, id, Period{Start: StartOfYear(year), End: StartOfYear(year)})
		if err != nil {
			return Summary{}, err
		}
		for _, tx := range seed {
			if tx.Type == TxCarryover {
				s.Carryover = tx.Hours
			}
		}
	}
	return s, nil
}

// GetAggregatedSummary totals the summaries of every employee active in the
// period. EmployeeCount counts employees with ledger data for it. Reads run
// in parallel; nothing is written.
func (e *Engine) GetAggregatedSummary(ctx context.Context, year, month int) (AggregatedSummary, error) {
	if err := Validate(aggregateInput{Year: year, Month: month}); err != nil {
		return AggregatedSummary{}, err
	}
	p := YearPeriod(year)
	if month != 0 {
		p = MonthPeriod(year, time.Month(month))
	}

	employees, err := e.deps.Employees.ActiveEmployees(ctx, p)
	if err != nil {
		return AggregatedSummary{}, fmt.Errorf("list active employees: %w", err)
	}

	summaries := make([]Summary, len(employees))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, emp := range employees {
		i, emp := i, emp
		g.Go(func() error {
			s, err := e.periodSummary(gctx, emp.ID, year, month)
			if err != nil {
				return fmt.Errorf("summary for %s: %w", emp.ID, err)
			}
			summaries[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return AggregatedSummary{}, err
	}

	agg := AggregatedSummary{
		Year:             year,
		Month:            month,
		TotalTargetHours: decimal.Zero,
		TotalActualHours: decimal.Zero,
		TotalOvertime:    decimal.Zero,
	}
	for _, s := range summaries {
		if !s.HasData {
			continue
		}
		agg.EmployeeCount++
		agg.TotalTargetHours = agg.TotalTargetHours.Add(s.TargetHours)
		agg.TotalActualHours = agg.TotalActualHours.Add(s.ActualHours)
		agg.TotalOvertime = agg.TotalOvertime.Add(s.Overtime)
	}
	return agg, nil
}

// =============================================================================
// READ-ONLY VIEWS
// =============================================================================

// Transactions lists the ledger legs dated in [from, to].
func (e *Engine) Transactions(ctx context.Context, id EmployeeID, from, to Date) ([]Transaction, error) {
	p, err := e.readPeriod(id, from, to)
	if err != nil {
		return nil, err
	}
	return e.deps.Ledger.Transactions(ctx, id, p)
}

// DailyView folds the ledger per day.
func (e *Engine) DailyView(ctx context.Context, id EmployeeID, from, to Date) ([]DayView, error) {
	txs, err := e.Transactions(ctx, id, from, to)
	if err != nil {
		return nil, err
	}
	return DailyViews(txs), nil
}

// WeeklyView folds the ledger per ISO week.
func (e *Engine) WeeklyView(ctx context.Context, id EmployeeID, from, to Date) ([]WeekView, error) {
	days, err := e.DailyView(ctx, id, from, to)
	if err != nil {
		return nil, err
	}
	return WeeklyViews(days), nil
}

// VerifyPeriod compares a month's stored PeriodBalance with its transactions.
func (e *Engine) VerifyPeriod(ctx context.Context, id EmployeeID, year, month int) error {
	if err := Validate(monthInput{EmployeeID: string(id), Year: year, Month: month}); err != nil {
		return err
	}
	ym := YearMonth{Year: year, Month: time.Month(month)}
	pb, err := e.deps.Ledger.PeriodBalance(ctx, id, ym)
	if err != nil {
		return err
	}
	txs, err := e.deps.Ledger.Transactions(ctx, id, ym.Period())
	if err != nil {
		return err
	}
	if pb == nil {
		pb = &PeriodBalance{EmployeeID: id, Year: year, Month: ym.Month, Overtime: decimal.Zero}
	}
	if err := VerifyPeriodBalance(*pb, txs); err != nil {
		e.log.Error().Err(err).Str("employee_id", string(id)).Msg("period verification failed")
		return err
	}
	return nil
}

func (e *Engine) readPeriod(id EmployeeID, from, to Date) (Period, error) {
	if err := Validate(rebuildInput{EmployeeID: string(id), FromYear: from.Year(), ToYear: to.Year()}); err != nil {
		return Period{}, err
	}
	return NewPeriod(from, to)
}
