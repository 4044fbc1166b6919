package directory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/warp/overtime-engine/overtime"
)

// EmployeeModel is the employees row. A weekday column left NULL owes no
// hours once any other weekday column is set.
type EmployeeModel struct {
	ID          string          `gorm:"primaryKey;size:64"`
	Name        string          `gorm:"not null"`
	WeeklyHours decimal.Decimal `gorm:"type:text;not null"`

	MondayHours    decimal.NullDecimal `gorm:"type:text"`
	TuesdayHours   decimal.NullDecimal `gorm:"type:text"`
	WednesdayHours decimal.NullDecimal `gorm:"type:text"`
	ThursdayHours  decimal.NullDecimal `gorm:"type:text"`
	FridayHours    decimal.NullDecimal `gorm:"type:text"`
	SaturdayHours  decimal.NullDecimal `gorm:"type:text"`
	SundayHours    decimal.NullDecimal `gorm:"type:text"`

	HireDate  string  `gorm:"type:text;not null;index"`
	EndDate   *string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (EmployeeModel) TableName() string { return "employees" }

func (m *EmployeeModel) weekdays() map[time.Weekday]*decimal.NullDecimal {
	return map[time.Weekday]*decimal.NullDecimal{
		time.Monday:    &m.MondayHours,
		time.Tuesday:   &m.TuesdayHours,
		time.Wednesday: &m.WednesdayHours,
		time.Thursday:  &m.ThursdayHours,
		time.Friday:    &m.FridayHours,
		time.Saturday:  &m.SaturdayHours,
		time.Sunday:    &m.SundayHours,
	}
}

func (m EmployeeModel) toDomain() (overtime.Employee, error) {
	emp := overtime.Employee{
		ID:          overtime.EmployeeID(m.ID),
		Name:        m.Name,
		WeeklyHours: m.WeeklyHours,
	}

	var err error
	if emp.HireDate, err = overtime.ParseDate(m.HireDate); err != nil {
		return emp, err
	}
	if m.EndDate != nil {
		end, err := overtime.ParseDate(*m.EndDate)
		if err != nil {
			return emp, err
		}
		emp.EndDate = &end
	}

	for wd, h := range m.weekdays() {
		if !h.Valid {
			continue
		}
		if emp.Schedule == nil {
			emp.Schedule = make(overtime.WeeklySchedule)
		}
		emp.Schedule[wd] = h.Decimal
	}
	return emp, nil
}

func employeeFromDomain(emp overtime.Employee) EmployeeModel {
	m := EmployeeModel{
		ID:          string(emp.ID),
		Name:        emp.Name,
		WeeklyHours: emp.WeeklyHours,
		HireDate:    emp.HireDate.String(),
	}
	if emp.EndDate != nil {
		end := emp.EndDate.String()
		m.EndDate = &end
	}
	for wd, col := range m.weekdays() {
		if h, ok := emp.Schedule[wd]; ok {
			*col = decimal.NullDecimal{Decimal: h, Valid: true}
		}
	}
	return m
}

// TimeEntryModel is one clock-in/clock-out pair. WorkDate is the day the
// entry is booked on, regardless of when ClockOut happens.
type TimeEntryModel struct {
	ID           string     `gorm:"primaryKey;size:36"`
	EmployeeID   string     `gorm:"not null;index:idx_time_entries_employee_date"`
	WorkDate     string     `gorm:"type:text;not null;index:idx_time_entries_employee_date"`
	ClockIn      time.Time  `gorm:"not null"`
	ClockOut     *time.Time // nil while the employee is still clocked in
	BreakMinutes int        `gorm:"not null;default:0"`
	CreatedAt    time.Time
}

func (TimeEntryModel) TableName() string { return "time_entries" }

func (m *TimeEntryModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Hours is (clock-out - clock-in - break) rounded to two decimals. Open
// entries and entries whose break exceeds the span count as 0.
func (m TimeEntryModel) Hours() decimal.Decimal {
	if m.ClockOut == nil {
		return decimal.Zero
	}
	minutes := int64(m.ClockOut.Sub(m.ClockIn)/time.Minute) - int64(m.BreakMinutes)
	if minutes <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(minutes).Div(decimal.NewFromInt(60)).Round(2)
}

type AbsenceModel struct {
	ID         string `gorm:"primaryKey;size:36"`
	EmployeeID string `gorm:"not null;index"`
	Type       string `gorm:"size:32;not null"`
	Status     string `gorm:"size:16;not null;index"`
	StartDate  string `gorm:"type:text;not null"`
	EndDate    string `gorm:"type:text;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (AbsenceModel) TableName() string { return "absences" }

func (m *AbsenceModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

func (m AbsenceModel) toDomain() (overtime.Absence, error) {
	a := overtime.Absence{
		ID:         m.ID,
		EmployeeID: overtime.EmployeeID(m.EmployeeID),
		Type:       overtime.AbsenceType(m.Type),
		Status:     overtime.AbsenceStatus(m.Status),
	}
	var err error
	if a.Start, err = overtime.ParseDate(m.StartDate); err != nil {
		return a, err
	}
	if a.End, err = overtime.ParseDate(m.EndDate); err != nil {
		return a, err
	}
	return a, nil
}

type CorrectionModel struct {
	ID         string          `gorm:"primaryKey;size:36"`
	EmployeeID string          `gorm:"not null;index:idx_corrections_employee_date"`
	Date       string          `gorm:"type:text;not null;index:idx_corrections_employee_date"`
	Hours      decimal.Decimal `gorm:"type:text;not null"`
	Reason     string          `gorm:"size:500"`
	CreatedBy  string          `gorm:"size:64"`
	CreatedAt  time.Time
}

func (CorrectionModel) TableName() string { return "corrections" }

func (m *CorrectionModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

func (m CorrectionModel) toDomain() (overtime.Correction, error) {
	d, err := overtime.ParseDate(m.Date)
	if err != nil {
		return overtime.Correction{}, err
	}
	return overtime.Correction{
		ID:         m.ID,
		EmployeeID: overtime.EmployeeID(m.EmployeeID),
		Date:       d,
		Hours:      m.Hours,
		Reason:     m.Reason,
		CreatedBy:  m.CreatedBy,
	}, nil
}

// HolidayModel stores fetched or imported public holidays. Region "" is
// nationwide.
type HolidayModel struct {
	ID     uint   `gorm:"primaryKey"`
	Date   string `gorm:"type:text;not null;uniqueIndex:idx_holidays_date_region"`
	Region string `gorm:"size:8;not null;default:'';uniqueIndex:idx_holidays_date_region"`
	Year   int    `gorm:"not null;index"`
	Name   string `gorm:"not null"`
}

func (HolidayModel) TableName() string { return "holidays" }
