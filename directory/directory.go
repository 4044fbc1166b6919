// Package directory is the gorm-backed read side of the upstream HR and
// time-tracking data: employees, clock entries, absences, corrections and
// stored public holidays. The overtime engine only reads through it.
package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/warp/overtime-engine/overtime"
)

type Store struct {
	db *gorm.DB
}

// OpenGorm wraps an existing SQLite connection pool so the directory shares
// the ledger's database file.
func OpenGorm(sqlDB *sql.DB) (*gorm.DB, error) {
	db, err := gorm.Open(gormsqlite.New(gormsqlite.Config{
		DriverName: "sqlite3",
		Conn:       sqlDB,
	}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}
	return db, nil
}

// New migrates the directory tables and returns the store.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(
		&EmployeeModel{},
		&TimeEntryModel{},
		&AbsenceModel{},
		&CorrectionModel{},
		&HolidayModel{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate directory: %w", err)
	}
	return &Store{db: db}, nil
}

// NewFromSQL is OpenGorm followed by New.
func NewFromSQL(sqlDB *sql.DB) (*Store, error) {
	db, err := OpenGorm(sqlDB)
	if err != nil {
		return nil, err
	}
	return New(db)
}

var (
	_ overtime.EmployeeDirectory = (*Store)(nil)
	_ overtime.TimeEntrySource   = (*Store)(nil)
	_ overtime.AbsenceSource     = (*Store)(nil)
	_ overtime.CorrectionSource  = (*Store)(nil)
)

// =============================================================================
// EMPLOYEES
// =============================================================================

func (s *Store) Employee(ctx context.Context, id overtime.EmployeeID) (overtime.Employee, error) {
	var m EmployeeModel
	err := s.db.WithContext(ctx).Where("id = ?", string(id)).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return overtime.Employee{}, &overtime.NotFoundError{EmployeeID: id}
	}
	if err != nil {
		return overtime.Employee{}, fmt.Errorf("load employee %s: %w", id, err)
	}
	return m.toDomain()
}

func (s *Store) ActiveEmployees(ctx context.Context, p overtime.Period) ([]overtime.Employee, error) {
	var rows []EmployeeModel
	err := s.db.WithContext(ctx).
		Where("hire_date <= ? AND (end_date IS NULL OR end_date >= ?)", p.End.String(), p.Start.String()).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list active employees: %w", err)
	}

	out := make([]overtime.Employee, 0, len(rows))
	for _, m := range rows {
		emp, err := m.toDomain()
		if err != nil {
			return nil, fmt.Errorf("employee %s: %w", m.ID, err)
		}
		out = append(out, emp)
	}
	return out, nil
}

// SaveEmployee creates or replaces an employee profile.
func (s *Store) SaveEmployee(ctx context.Context, emp overtime.Employee) error {
	m := employeeFromDomain(emp)
	return s.db.WithContext(ctx).Save(&m).Error
}

// =============================================================================
// TIME ENTRIES
// =============================================================================

// WorkedEntries returns one entry per clock pair booked within p.
func (s *Store) WorkedEntries(ctx context.Context, id overtime.EmployeeID, p overtime.Period) ([]overtime.WorkedEntry, error) {
	var rows []TimeEntryModel
	err := s.db.WithContext(ctx).
		Where("employee_id = ? AND work_date >= ? AND work_date <= ?", string(id), p.Start.String(), p.End.String()).
		Order("work_date ASC, clock_in ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list time entries: %w", err)
	}

	out := make([]overtime.WorkedEntry, 0, len(rows))
	for _, m := range rows {
		d, err := overtime.ParseDate(m.WorkDate)
		if err != nil {
			return nil, fmt.Errorf("time entry %s: %w", m.ID, err)
		}
		out = append(out, overtime.WorkedEntry{EmployeeID: id, Date: d, Hours: m.Hours()})
	}
	return out, nil
}

func (s *Store) AddTimeEntry(ctx context.Context, entry *TimeEntryModel) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

// =============================================================================
// ABSENCES
// =============================================================================

func (s *Store) ApprovedAbsences(ctx context.Context, id overtime.EmployeeID, p overtime.Period) ([]overtime.Absence, error) {
	var rows []AbsenceModel
	err := s.db.WithContext(ctx).
		Where("employee_id = ? AND status = ? AND start_date <= ? AND end_date >= ?",
			string(id), string(overtime.AbsenceApproved), p.End.String(), p.Start.String()).
		Order("start_date ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list absences: %w", err)
	}

	out := make([]overtime.Absence, 0, len(rows))
	for _, m := range rows {
		a, err := m.toDomain()
		if err != nil {
			return nil, fmt.Errorf("absence %s: %w", m.ID, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// SaveAbsence creates or updates an absence, e.g. when its status changes.
func (s *Store) SaveAbsence(ctx context.Context, a overtime.Absence) error {
	m := AbsenceModel{
		ID:         a.ID,
		EmployeeID: string(a.EmployeeID),
		Type:       string(a.Type),
		Status:     string(a.Status),
		StartDate:  a.Start.String(),
		EndDate:    a.End.String(),
	}
	return s.db.WithContext(ctx).Save(&m).Error
}

// =============================================================================
// CORRECTIONS
// =============================================================================

func (s *Store) Corrections(ctx context.Context, id overtime.EmployeeID, p overtime.Period) ([]overtime.Correction, error) {
	var rows []CorrectionModel
	err := s.db.WithContext(ctx).
		Where("employee_id = ? AND date >= ? AND date <= ?", string(id), p.Start.String(), p.End.String()).
		Order("date ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list corrections: %w", err)
	}

	out := make([]overtime.Correction, 0, len(rows))
	for _, m := range rows {
		c, err := m.toDomain()
		if err != nil {
			return nil, fmt.Errorf("correction %s: %w", m.ID, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) AddCorrection(ctx context.Context, c overtime.Correction) (string, error) {
	m := CorrectionModel{
		ID:         c.ID,
		EmployeeID: string(c.EmployeeID),
		Date:       c.Date.String(),
		Hours:      c.Hours,
		Reason:     c.Reason,
		CreatedBy:  c.CreatedBy,
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return "", err
	}
	return m.ID, nil
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// StoredHolidays returns every stored holiday of the year, all regions.
func (s *Store) StoredHolidays(ctx context.Context, year int) ([]overtime.Holiday, error) {
	var rows []HolidayModel
	if err := s.db.WithContext(ctx).Where("year = ?", year).Order("date ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list holidays: %w", err)
	}

	out := make([]overtime.Holiday, 0, len(rows))
	for _, m := range rows {
		d, err := overtime.ParseDate(m.Date)
		if err != nil {
			return nil, fmt.Errorf("holiday %d: %w", m.ID, err)
		}
		out = append(out, overtime.Holiday{Date: d, Name: m.Name, Region: m.Region})
	}
	return out, nil
}

// ReplaceHolidays swaps the stored holidays of (year, region) for hs in one
// transaction.
func (s *Store) ReplaceHolidays(ctx context.Context, year int, region string, hs []overtime.Holiday) error {
	rows := make([]HolidayModel, 0, len(hs))
	seen := make(map[string]bool, len(hs))
	for _, h := range hs {
		key := h.Date.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		rows = append(rows, HolidayModel{Date: key, Region: region, Year: h.Date.Year(), Name: h.Name})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("year = ? AND region = ?", year, region).Delete(&HolidayModel{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}
