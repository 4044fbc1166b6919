/*
handlers.go - HTTP API handlers for the overtime engine

PURPOSE:
  Exposes the overtime engine via a JSON API. Handles HTTP request/response
  and query parsing, and delegates every computation to overtime.Engine.

ENDPOINTS:
  Employee ledger:
    GET    /api/employees/{id}/balance?as_of=YYYY-MM-DD    Running balance
    GET    /api/employees/{id}/summary?year=&month=        Month or year summary
    GET    /api/employees/{id}/transactions?from=&to=      Ledger legs
    GET    /api/employees/{id}/days?from=&to=              Per-day view
    GET    /api/employees/{id}/weeks?from=&to=             Per-ISO-week view
    GET    /api/employees/{id}/target?date=                Daily target hours
    GET    /api/employees/{id}/verify?year=&month=         PeriodBalance check
    POST   /api/employees/{id}/rebuild                     Regenerate ledger

  Organization:
    GET    /api/summary?year=&month=                       Aggregated totals

  Admin:
    POST   /api/admin/rollover                             Year-end rollover
    POST   /api/admin/holidays/refresh                     Re-fetch holidays

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Employee not found
  - 409: Stored period balance disagrees with its transactions
  - 502: Holiday feed unavailable
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/overtime-engine/logger"
	"github.com/warp/overtime-engine/overtime"
)

// HolidayRefresher re-fetches a year's holidays. holiday.Provider
// implements it.
type HolidayRefresher interface {
	Refresh(ctx context.Context, year int) ([]overtime.Holiday, error)
}

// Handler holds all HTTP handlers and their dependencies.
type Handler struct {
	engine    *overtime.Engine
	employees overtime.EmployeeDirectory
	holidays  HolidayRefresher
	log       *logger.Logger
}

// NewHandler creates a handler. holidays may be nil when no feed is
// configured; the refresh endpoint then answers 503.
func NewHandler(engine *overtime.Engine, employees overtime.EmployeeDirectory, holidays HolidayRefresher, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		engine:    engine,
		employees: employees,
		holidays:  holidays,
		log:       log.WithComponent("api"),
	}
}

// =============================================================================
// BALANCE AND SUMMARY ENDPOINTS
// =============================================================================

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	id := employeeID(r)

	var asOf *overtime.Date
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		d, err := overtime.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid as_of date", err)
			return
		}
		asOf = &d
	}

	balance, err := h.engine.GetBalance(r.Context(), id, asOf)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	resp := BalanceDTO{EmployeeID: string(id), Balance: balance.String()}
	if asOf != nil {
		resp.AsOf = asOf.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetPeriodSummary(w http.ResponseWriter, r *http.Request) {
	year, month, err := yearMonthQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year or month", err)
		return
	}

	summary, err := h.engine.GetPeriodSummary(r.Context(), employeeID(r), year, month)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(summary))
}

func (h *Handler) GetAggregatedSummary(w http.ResponseWriter, r *http.Request) {
	year, month, err := yearMonthQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year or month", err)
		return
	}

	agg, err := h.engine.GetAggregatedSummary(r.Context(), year, month)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAggregatedSummaryDTO(agg))
}

func (h *Handler) VerifyPeriod(w http.ResponseWriter, r *http.Request) {
	id := employeeID(r)
	year, month, err := yearMonthQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year or month", err)
		return
	}

	resp := VerifyDTO{EmployeeID: string(id), Year: year, Month: month, Consistent: true}
	err = h.engine.VerifyPeriod(r.Context(), id, year, month)

	var mismatch *overtime.DataInconsistencyError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resp)
	case errors.As(err, &mismatch):
		resp.Consistent = false
		resp.StoredOvertime = mismatch.StoredOvertime.String()
		resp.LedgerSum = mismatch.LedgerSum.String()
		writeJSON(w, http.StatusConflict, resp)
	default:
		h.writeEngineError(w, r, err)
	}
}

// =============================================================================
// LEDGER VIEWS
// =============================================================================

func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	from, to, err := rangeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	txs, err := h.engine.Transactions(r.Context(), employeeID(r), from, to)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTOs(txs))
}

func (h *Handler) GetDailyView(w http.ResponseWriter, r *http.Request) {
	from, to, err := rangeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	days, err := h.engine.DailyView(r.Context(), employeeID(r), from, to)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDayDTOs(days))
}

func (h *Handler) GetWeeklyView(w http.ResponseWriter, r *http.Request) {
	from, to, err := rangeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	weeks, err := h.engine.WeeklyView(r.Context(), employeeID(r), from, to)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toWeekDTOs(weeks))
}

func (h *Handler) GetDailyTarget(w http.ResponseWriter, r *http.Request) {
	d, err := overtime.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	ctx := r.Context()
	emp, err := h.employees.Employee(ctx, employeeID(r))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	target, err := h.engine.ResolveDailyTarget(ctx, emp, d)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TargetDTO{
		EmployeeID:  string(emp.ID),
		Date:        d.String(),
		TargetHours: target.String(),
	})
}

// =============================================================================
// COMMANDS
// =============================================================================

// Rebuild regenerates the employee's ledger for the requested window and
// answers with the resulting latest balance.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	var req RebuildRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	id := employeeID(r)
	resp := RebuildResponseDTO{EmployeeID: string(id)}

	var err error
	switch {
	case req.From != "" || req.To != "":
		var from, to overtime.Date
		if from, err = overtime.ParseDate(req.From); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from date", err)
			return
		}
		if to, err = overtime.ParseDate(req.To); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to date", err)
			return
		}
		resp.From, resp.To = from.String(), to.String()
		err = h.engine.RebuildLedger(ctx, id, from, to)
	case req.Month != 0:
		p := overtime.MonthPeriod(req.Year, time.Month(req.Month))
		resp.From, resp.To = p.Start.String(), p.End.String()
		err = h.engine.RebuildMonth(ctx, id, req.Year, req.Month)
	case req.Year != 0:
		p := overtime.YearPeriod(req.Year)
		resp.From, resp.To = p.Start.String(), p.End.String()
		err = h.engine.RebuildLedger(ctx, id, p.Start, p.End)
	default:
		err = h.engine.RebuildEmployee(ctx, id)
	}
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	balance, err := h.engine.GetBalance(ctx, id, nil)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	resp.Balance = balance.String()
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) TriggerRollover(w http.ResponseWriter, r *http.Request) {
	var req RolloverRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.engine.RolloverYear(r.Context(), req.Year)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RolloverResultDTO{
		Year:           result.Year,
		ProcessedCount: result.ProcessedCount,
		TotalCarryover: result.TotalCarryover.String(),
	})
}

func (h *Handler) RefreshHolidays(w http.ResponseWriter, r *http.Request) {
	if h.holidays == nil {
		writeError(w, http.StatusServiceUnavailable, "No holiday feed configured", nil)
		return
	}

	var req HolidayRefreshRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := overtime.Validate(struct {
		Year int `validate:"min=2000,max=2100"`
	}{req.Year}); err != nil {
		h.writeEngineError(w, r, err)
		return
	}

	hs, err := h.holidays.Refresh(r.Context(), req.Year)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHolidayDTOs(hs))
}

// =============================================================================
// HELPERS
// =============================================================================

func employeeID(r *http.Request) overtime.EmployeeID {
	return overtime.EmployeeID(chi.URLParam(r, "id"))
}

// yearMonthQuery reads ?year= (required) and ?month= (optional, 0 = year).
// Range checks are left to the engine.
func yearMonthQuery(r *http.Request) (year, month int, err error) {
	q := r.URL.Query()
	if year, err = strconv.Atoi(q.Get("year")); err != nil {
		return 0, 0, err
	}
	if raw := q.Get("month"); raw != "" {
		if month, err = strconv.Atoi(raw); err != nil {
			return 0, 0, err
		}
	}
	return year, month, nil
}

func rangeQuery(r *http.Request) (from, to overtime.Date, err error) {
	q := r.URL.Query()
	if from, err = overtime.ParseDate(q.Get("from")); err != nil {
		return from, to, err
	}
	if to, err = overtime.ParseDate(q.Get("to")); err != nil {
		return from, to, err
	}
	return from, to, nil
}

// writeEngineError maps engine errors to status codes.
func (h *Handler) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var fields overtime.ValidationErrors
	var field *overtime.ValidationError

	switch {
	case errors.As(err, &fields):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Details: fields.Details()})
	case errors.As(err, &field):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Validation failed",
			Details: map[string]string{field.Field: field.Message},
		})
	case overtime.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	case overtime.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Employee not found", err)
	case overtime.IsFatal(err):
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("ledger inconsistency")
		writeError(w, http.StatusConflict, "Ledger inconsistency", err)
	case errors.Is(err, overtime.ErrHolidaySourceUnavailable):
		writeError(w, http.StatusBadGateway, "Holiday source unavailable", err)
	default:
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal error", nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
