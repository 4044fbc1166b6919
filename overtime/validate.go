package overtime

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// minLedgerYear is the first year the ledger accepts.
const minLedgerYear = 2000

// Inputs of the engine entry points. Tags are checked before any computation.

type rebuildInput struct {
	EmployeeID string `validate:"required"`
	FromYear   int    `validate:"min=2000,max=2100"`
	ToYear     int    `validate:"min=2000,max=2100"`
}

type periodInput struct {
	EmployeeID string `validate:"required"`
	Year       int    `validate:"min=2000,max=2100"`
	Month      int    `validate:"min=0,max=12"`
}

type monthInput struct {
	EmployeeID string `validate:"required"`
	Year       int    `validate:"min=2000,max=2100"`
	Month      int    `validate:"min=1,max=12"`
}

type aggregateInput struct {
	Year  int `validate:"min=2000,max=2100"`
	Month int `validate:"min=0,max=12"`
}

type yearInput struct {
	Year int `validate:"min=2000,max=2100"`
}

type employeeInput struct {
	EmployeeID string `validate:"required"`
}

// Validate checks v's validate tags and converts failures to ValidationErrors.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &ValidationError{Field: "input", Message: err.Error()}
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, e := range fieldErrs {
		out = append(out, &ValidationError{Field: fieldName(e.Field()), Message: formatValidationError(e)})
	}
	return out
}

func fieldName(f string) string {
	switch f {
	case "EmployeeID":
		return "employee_id"
	case "FromYear":
		return "from"
	case "ToYear":
		return "to"
	case "Year":
		return "year"
	case "Month":
		return "month"
	}
	return f
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	default:
		return "invalid value"
	}
}

func validateEmployee(emp Employee) error {
	if err := Validate(employeeInput{EmployeeID: string(emp.ID)}); err != nil {
		return err
	}
	// Early hires are fine: rebuild windows are clipped to employment.
	if emp.HireDate.IsZero() {
		return &ValidationError{Field: "hire_date", Message: "this field is required"}
	}
	if emp.WeeklyHours.IsNegative() {
		return &ValidationError{Field: "weekly_hours", Message: "must not be negative"}
	}
	for wd, h := range emp.Schedule {
		if h.IsNegative() {
			return &ValidationError{Field: "schedule", Message: wd.String() + " hours must not be negative"}
		}
	}
	if emp.EndDate != nil && emp.EndDate.Before(emp.HireDate) {
		return &ValidationError{Field: "end_date", Message: "must not be before hire date"}
	}
	return nil
}
