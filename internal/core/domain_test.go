package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-03-01 ")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if d.String() != "2024-03-01" {
		t.Fatalf("unexpected date %s", d)
	}
	for _, in := range []string{"", "01/03/2024", "2024-13-01", "yesterday"} {
		if _, err := ParseDate(in); !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%q expected ErrInvalidDate, got %v", in, err)
		}
	}
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("entertainment")
	if err != nil || c != Entertainment {
		t.Fatalf("expected Entertainment, got %q (err=%v)", c, err)
	}
	if _, err := ParseCategory(""); !errors.Is(err, ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
	if _, err := ParseCategory("Travel"); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected ErrUnknownCategory, got %v", err)
	}
}

func TestCategoriesOrderAndCopy(t *testing.T) {
	got := Categories()
	want := []Category{Food, Rent, Bills, Entertainment, Shopping, Others}
	if len(got) != len(want) {
		t.Fatalf("expected %d categories, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
	got[0] = "Mutated"
	if Categories()[0] != Food {
		t.Fatalf("Categories must return a copy")
	}
}

func TestStateTransitions(t *testing.T) {
	if Active.Delete() != Deleted {
		t.Fatalf("active should become deleted")
	}
	if Deleted.Delete() != Deleted {
		t.Fatalf("deleted is terminal")
	}
	if Active.String() != "active" || Deleted.String() != "deleted" {
		t.Fatalf("unexpected state names: %s %s", Active, Deleted)
	}
}

func TestExpenseShare(t *testing.T) {
	cases := []struct {
		amount string
		split  int
		want   string
	}{
		{"100", 2, "50"},
		{"50", 1, "50"},
		{"300", 3, "100"},
		{"10", 4, "2.5"},
		{"42", 0, "42"}, // guarded like a single payer
	}
	for _, tc := range cases {
		e := Expense{Amount: decimal.RequireFromString(tc.amount), SplitCount: tc.split}
		if got := e.Share(); !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("share(%s/%d) = %s, want %s", tc.amount, tc.split, got, tc.want)
		}
	}
}

func TestNewExpenseNormalizeAndValidate(t *testing.T) {
	n := NewExpense{
		Date:        NewDate(2024, 1, 1),
		Category:    Food,
		Amount:      decimal.NewFromInt(10),
		Description: "  lunch  ",
	}.Normalize()
	if n.SplitCount != 1 {
		t.Fatalf("expected default split 1, got %d", n.SplitCount)
	}
	if n.Description != "lunch" {
		t.Fatalf("expected trimmed description, got %q", n.Description)
	}
	if err := n.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		n     NewExpense
		field string
		err   error
	}{
		{NewExpense{Category: Food, Amount: decimal.Zero, SplitCount: 1}, "date", ErrInvalidDate},
		{NewExpense{Date: NewDate(2024, 1, 1), Amount: decimal.Zero, SplitCount: 1}, "category", ErrMissingField},
		{NewExpense{Date: NewDate(2024, 1, 1), Category: "Travel", SplitCount: 1}, "category", ErrUnknownCategory},
		{NewExpense{Date: NewDate(2024, 1, 1), Category: Rent, Amount: decimal.NewFromInt(-1), SplitCount: 1}, "amount", ErrInvalidAmount},
		{NewExpense{Date: NewDate(2024, 1, 1), Category: Rent, Amount: decimal.NewFromInt(1), SplitCount: -2}, "split_count", ErrInvalidSplit},
	}
	for i, tc := range bads {
		err := tc.n.Validate()
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("case %d expected ValidationError, got %v", i, err)
		}
		if verr.Field != tc.field || !errors.Is(err, tc.err) {
			t.Fatalf("case %d expected %s/%v, got %s/%v", i, tc.field, tc.err, verr.Field, verr.Err)
		}
	}
}
