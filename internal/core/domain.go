package core

import (
	"strings"
	"time"
)

// DefaultCategory is used for expenses recorded without a category and is
// the classifier's answer when no keyword matches.
const DefaultCategory = "Other"

const dateLayout = "2006-01-02"

type (
	// Date is a calendar date at UTC midnight. The zero Date means "no date".
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	IncomeEntry struct {
		Source string `json:"source"`
		Amount Money  `json:"amount"`
		Date   Date   `json:"date"`
	}

	ExpenseEntry struct {
		Description string `json:"description"`
		Category    string `json:"category"`
		Amount      Money  `json:"amount"`
		Date        Date   `json:"date"`
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// Today returns the current local calendar day.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a YYYY-MM-DD string. An empty string yields the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, &ValidationError{Field: "date", Err: ErrInvalidDate}
	}
	return Date{Time: t}, nil
}

// IsEmpty returns true if the date is zero (entries recorded without a date)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// MonthKey returns the YYYY-MM bucket of the date, or "" for the zero Date.
func (d Date) MonthKey() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01")
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	return nil
}

func (e IncomeEntry) Validate() error {
	if strings.TrimSpace(e.Source) == "" {
		return &ValidationError{Field: "source", Err: ErrEmptySource}
	}
	return e.Amount.Validate()
}

func (e ExpenseEntry) Validate() error {
	if strings.TrimSpace(e.Description) == "" {
		return &ValidationError{Field: "description", Err: ErrEmptyDescription}
	}
	if strings.TrimSpace(e.Category) == "" {
		return &ValidationError{Field: "category", Err: ErrEmptyCategory}
	}
	return e.Amount.Validate()
}

// Amounted is satisfied by both entry kinds so totals can be computed
// generically.
type Amounted interface {
	Value() Money
}

func (e IncomeEntry) Value() Money  { return e.Amount }
func (e ExpenseEntry) Value() Money { return e.Amount }
