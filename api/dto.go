/*
dto.go - Data Transfer Objects for the HTTP API

PURPOSE:
  Request and response shapes of the JSON endpoints, decoupled from the
  engine's domain types. Hours travel as decimal strings ("7.5", "-12.5")
  so no precision is lost to float64 on either side.

SEE ALSO:
  - handlers.go: Uses these DTOs
  - overtime/types.go: Domain types
*/
package api

import (
	"github.com/warp/overtime-engine/overtime"
)

// =============================================================================
// LEDGER DTOs
// =============================================================================

type TransactionDTO struct {
	ID            string `json:"id"`
	Date          string `json:"date"`
	Sequence      int    `json:"sequence"`
	Type          string `json:"type"`
	Hours         string `json:"hours"`
	BalanceBefore string `json:"balance_before"`
	BalanceAfter  string `json:"balance_after"`
	TargetHours   string `json:"target_hours,omitempty"`
	WorkedHours   string `json:"worked_hours,omitempty"`
	SourceRef     string `json:"source_ref,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

type BalanceDTO struct {
	EmployeeID string `json:"employee_id"`
	AsOf       string `json:"as_of,omitempty"`
	Balance    string `json:"balance"`
}

type DayDTO struct {
	Date         string `json:"date"`
	TargetHours  string `json:"target_hours"`
	WorkedHours  string `json:"worked_hours"`
	CreditHours  string `json:"credit_hours"`
	Corrections  string `json:"corrections"`
	Net          string `json:"net"`
	BalanceAfter string `json:"balance_after"`
}

type WeekDTO struct {
	ISOYear      int    `json:"iso_year"`
	Week         int    `json:"week"`
	Start        string `json:"start"`
	End          string `json:"end"`
	TargetHours  string `json:"target_hours"`
	ActualHours  string `json:"actual_hours"`
	Overtime     string `json:"overtime"`
	BalanceAfter string `json:"balance_after"`
}

type TargetDTO struct {
	EmployeeID  string `json:"employee_id"`
	Date        string `json:"date"`
	TargetHours string `json:"target_hours"`
}

// =============================================================================
// SUMMARY DTOs
// =============================================================================

type PeriodBalanceDTO struct {
	Year        int    `json:"year"`
	Month       int    `json:"month"`
	TargetHours string `json:"target_hours"`
	ActualHours string `json:"actual_hours"`
	Overtime    string `json:"overtime"`
}

type SummaryDTO struct {
	EmployeeID  string             `json:"employee_id"`
	Year        int                `json:"year"`
	Month       int                `json:"month,omitempty"`
	TargetHours string             `json:"target_hours"`
	ActualHours string             `json:"actual_hours"`
	Overtime    string             `json:"overtime"`
	Carryover   string             `json:"carryover,omitempty"`
	Months      []PeriodBalanceDTO `json:"months,omitempty"`
	HasData     bool               `json:"has_data"`
}

type AggregatedSummaryDTO struct {
	Year             int    `json:"year"`
	Month            int    `json:"month,omitempty"`
	TotalTargetHours string `json:"total_target_hours"`
	TotalActualHours string `json:"total_actual_hours"`
	TotalOvertime    string `json:"total_overtime"`
	EmployeeCount    int    `json:"employee_count"`
}

type VerifyDTO struct {
	EmployeeID     string `json:"employee_id"`
	Year           int    `json:"year"`
	Month          int    `json:"month"`
	Consistent     bool   `json:"consistent"`
	StoredOvertime string `json:"stored_overtime,omitempty"`
	LedgerSum      string `json:"ledger_sum,omitempty"`
}

// =============================================================================
// COMMAND DTOs
// =============================================================================

// RebuildRequestDTO selects the rebuild window. From/To win over Year/Month;
// Year alone rebuilds the whole year; an empty body rebuilds from the hire
// date through today.
type RebuildRequestDTO struct {
	From  string `json:"from,omitempty"`
	To    string `json:"to,omitempty"`
	Year  int    `json:"year,omitempty"`
	Month int    `json:"month,omitempty"`
}

type RebuildResponseDTO struct {
	EmployeeID string `json:"employee_id"`
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
	Balance    string `json:"balance"`
}

type RolloverRequestDTO struct {
	Year int `json:"year"`
}

type RolloverResultDTO struct {
	Year           int    `json:"year"`
	ProcessedCount int    `json:"processed_count"`
	TotalCarryover string `json:"total_carryover"`
}

type HolidayRefreshRequestDTO struct {
	Year int `json:"year"`
}

type HolidayDTO struct {
	Date   string `json:"date"`
	Name   string `json:"name"`
	Region string `json:"region,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toTransactionDTO(tx overtime.Transaction) TransactionDTO {
	dto := TransactionDTO{
		ID:            string(tx.ID),
		Date:          tx.Date.String(),
		Sequence:      tx.Sequence,
		Type:          string(tx.Type),
		Hours:         tx.Hours.String(),
		BalanceBefore: tx.BalanceBefore.String(),
		BalanceAfter:  tx.BalanceAfter.String(),
		SourceRef:     tx.SourceRef,
		Reason:        tx.Reason,
	}
	if tx.Type == overtime.TxEarned {
		dto.TargetHours = tx.TargetHours.String()
		dto.WorkedHours = tx.WorkedHours.String()
	}
	return dto
}

func toTransactionDTOs(txs []overtime.Transaction) []TransactionDTO {
	out := make([]TransactionDTO, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionDTO(tx))
	}
	return out
}

func toDayDTOs(days []overtime.DayView) []DayDTO {
	out := make([]DayDTO, 0, len(days))
	for _, d := range days {
		out = append(out, DayDTO{
			Date:         d.Date.String(),
			TargetHours:  d.TargetHours.String(),
			WorkedHours:  d.WorkedHours.String(),
			CreditHours:  d.CreditHours.String(),
			Corrections:  d.Corrections.String(),
			Net:          d.Net.String(),
			BalanceAfter: d.BalanceAfter.String(),
		})
	}
	return out
}

func toWeekDTOs(weeks []overtime.WeekView) []WeekDTO {
	out := make([]WeekDTO, 0, len(weeks))
	for _, w := range weeks {
		out = append(out, WeekDTO{
			ISOYear:      w.ISOYear,
			Week:         w.Week,
			Start:        w.Start.String(),
			End:          w.End.String(),
			TargetHours:  w.TargetHours.String(),
			ActualHours:  w.ActualHours.String(),
			Overtime:     w.Overtime.String(),
			BalanceAfter: w.BalanceAfter.String(),
		})
	}
	return out
}

func toSummaryDTO(s overtime.Summary) SummaryDTO {
	dto := SummaryDTO{
		EmployeeID:  string(s.EmployeeID),
		Year:        s.Year,
		Month:       s.Month,
		TargetHours: s.TargetHours.String(),
		ActualHours: s.ActualHours.String(),
		Overtime:    s.Overtime.String(),
		HasData:     s.HasData,
	}
	if s.Month == 0 {
		dto.Carryover = s.Carryover.String()
		for _, m := range s.Months {
			dto.Months = append(dto.Months, PeriodBalanceDTO{
				Year:        m.Year,
				Month:       int(m.Month),
				TargetHours: m.TargetHours.String(),
				ActualHours: m.ActualHours.String(),
				Overtime:    m.Overtime.String(),
			})
		}
	}
	return dto
}

func toAggregatedSummaryDTO(a overtime.AggregatedSummary) AggregatedSummaryDTO {
	return AggregatedSummaryDTO{
		Year:             a.Year,
		Month:            a.Month,
		TotalTargetHours: a.TotalTargetHours.String(),
		TotalActualHours: a.TotalActualHours.String(),
		TotalOvertime:    a.TotalOvertime.String(),
		EmployeeCount:    a.EmployeeCount,
	}
}

func toHolidayDTOs(hs []overtime.Holiday) []HolidayDTO {
	out := make([]HolidayDTO, 0, len(hs))
	for _, h := range hs {
		out = append(out, HolidayDTO{Date: h.Date.String(), Name: h.Name, Region: h.Region})
	}
	return out
}
