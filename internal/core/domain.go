package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO 8601 calendar-date layout used for storage and input.
const DateLayout = "2006-01-02"

const (
	Food          Category = "Food"
	Rent          Category = "Rent"
	Bills         Category = "Bills"
	Entertainment Category = "Entertainment"
	Shopping      Category = "Shopping"
	Others        Category = "Others"
)

const (
	Active State = iota
	Deleted
)

type (
	Category string

	// State is the soft-delete lifecycle of a record. Deleted is terminal.
	State int

	Date struct {
		time.Time
	}

	// Expense is a persisted record as read back from the store.
	Expense struct {
		ID          int64
		Date        Date
		Category    Category
		Amount      decimal.Decimal // total cost before splitting
		Description string
		SplitCount  int
		State       State
	}

	// NewExpense carries the fields of a record that has not been stored yet.
	NewExpense struct {
		Date        Date
		Category    Category
		Amount      decimal.Decimal
		Description string
		SplitCount  int
	}
)

var (
	ErrMissingField    = errors.New("missing required field")
	ErrInvalidAmount   = errors.New("amount must be a non-negative number")
	ErrInvalidSplit    = errors.New("split count must be at least 1")
	ErrUnknownCategory = errors.New("unknown category")
	ErrInvalidDate     = errors.New("invalid date")
)

var categories = []Category{Food, Rent, Bills, Entertainment, Shopping, Others}

// Categories returns the fixed category set in display order.
func Categories() []Category {
	return append([]Category(nil), categories...)
}

// ParseCategory matches s against the fixed category set, ignoring case.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrMissingField
	}
	for _, c := range categories {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

func (c Category) Valid() bool {
	for _, k := range categories {
		if c == k {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	return string(c)
}

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Deleted:
		return "deleted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Delete returns the state reached by a soft delete. Deleting twice is a no-op.
func (s State) Delete() State {
	return Deleted
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Today returns the current calendar day in UTC.
func Today() Date {
	y, m, d := time.Now().Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses an ISO 8601 calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// String formats the date the way it is stored.
func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Share is the portion of the expense attributable to the user.
func (e Expense) Share() decimal.Decimal {
	return ShareOf(e.Amount, e.SplitCount)
}

// IsDeleted reports whether the record has been soft deleted.
func (e Expense) IsDeleted() bool {
	return e.State == Deleted
}

// IsSplit reports whether the cost is shared with other people.
func (e Expense) IsSplit() bool {
	return e.SplitCount > 1
}

// ShareOf divides amount across split people. Non-positive splits count as one.
// Inexact quotients carry decimal.DivisionPrecision (16) fractional digits and
// are never rounded here, so the sum of the shares of one record can fall
// short of the amount by at most split*1e-16. Round only for display.
func ShareOf(amount decimal.Decimal, split int) decimal.Decimal {
	if split <= 1 {
		return amount
	}
	return amount.Div(decimal.NewFromInt(int64(split)))
}

// Normalize applies defaults: split count 1 when unspecified.
func (n NewExpense) Normalize() NewExpense {
	if n.SplitCount == 0 {
		n.SplitCount = 1
	}
	n.Description = strings.TrimSpace(n.Description)
	return n
}

func (n NewExpense) Validate() error {
	if err := n.Date.Validate(); err != nil {
		return &ValidationError{Field: "date", Err: err}
	}
	if n.Category == "" {
		return &ValidationError{Field: "category", Err: ErrMissingField}
	}
	if !n.Category.Valid() {
		return &ValidationError{Field: "category", Err: ErrUnknownCategory}
	}
	if n.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	if n.SplitCount < 1 {
		return &ValidationError{Field: "split_count", Err: ErrInvalidSplit}
	}
	return nil
}

// ValidationError reports a rejected input field. It never reaches the store.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
