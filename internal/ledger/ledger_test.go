package ledger

import (
	"errors"
	"testing"

	"fintrack/internal/classifier"
	"fintrack/internal/core"
)

func TestAppendIncomeKeepsOrder(t *testing.T) {
	l := New(nil, nil)
	for i, src := range []string{"Salary", "Bonus", "Gift"} {
		if _, err := l.AppendIncome(src, core.Money{Cents: int64(100 * (i + 1))}, core.NewDate(2024, 1, i+1)); err != nil {
			t.Fatalf("append %s: %v", src, err)
		}
	}
	if len(l.Incomes) != 3 {
		t.Fatalf("expected 3 incomes, got %d", len(l.Incomes))
	}
	for i, want := range []string{"Salary", "Bonus", "Gift"} {
		if l.Incomes[i].Source != want {
			t.Fatalf("position %d = %q, want %q", i, l.Incomes[i].Source, want)
		}
	}
}

func TestAppendRejectsInvalidWithoutMutation(t *testing.T) {
	l := New(nil, nil)
	if _, err := l.AppendIncome("Salary", core.Money{Cents: 1000}, core.Date{}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cases := []struct {
		name   string
		source string
		amount core.Money
		want   error
	}{
		{"zero", "Salary", core.Money{Cents: 0}, core.ErrInvalidAmount},
		{"negative", "Salary", core.Money{Cents: -5}, core.ErrInvalidAmount},
		{"blank source", "   ", core.Money{Cents: 5}, core.ErrEmptySource},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.AppendIncome(tc.source, tc.amount, core.Date{})
			if !errors.Is(err, tc.want) || !errors.Is(err, core.ErrValidation) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if len(l.Incomes) != 1 {
				t.Fatalf("ledger mutated: %d incomes", len(l.Incomes))
			}
		})
	}

	if _, err := l.AppendExpense(nil, "", "Food", core.Money{Cents: 5}, core.Date{}); !errors.Is(err, core.ErrEmptyDescription) {
		t.Fatalf("expected empty description, got %v", err)
	}
	if _, err := l.AppendExpense(nil, "Pizza", "Food", core.Money{Cents: -1}, core.Date{}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if len(l.Expenses) != 0 {
		t.Fatalf("expenses mutated: %d", len(l.Expenses))
	}
}

func TestAppendExpenseCategory(t *testing.T) {
	l := New(nil, nil)
	c := classifier.Default()

	e, err := l.AppendExpense(c, "Dinner at restaurant", "", core.Money{Cents: 2500}, core.NewDate(2024, 3, 2))
	if err != nil || e.Category != "Food" {
		t.Fatalf("expected suggested Food, got %q (%v)", e.Category, err)
	}
	e, err = l.AppendExpense(c, "Uber ride", "Work", core.Money{Cents: 900}, core.Date{})
	if err != nil || e.Category != "Work" {
		t.Fatalf("explicit category should win, got %q (%v)", e.Category, err)
	}
	e, err = l.AppendExpense(nil, "mystery", " ", core.Money{Cents: 1}, core.Date{})
	if err != nil || e.Category != core.DefaultCategory {
		t.Fatalf("expected default category, got %q (%v)", e.Category, err)
	}
	if len(l.Expenses) != 3 {
		t.Fatalf("expected 3 expenses, got %d", len(l.Expenses))
	}
}

func TestTotal(t *testing.T) {
	if got := Total([]core.IncomeEntry(nil)); got.Cents != 0 {
		t.Fatalf("empty total = %d", got.Cents)
	}
	incomes := []core.IncomeEntry{{Amount: core.Money{Cents: 150}}, {Amount: core.Money{Cents: 250}}}
	if got := Total(incomes); got.Cents != 400 {
		t.Fatalf("income total = %d", got.Cents)
	}
	expenses := []core.ExpenseEntry{{Amount: core.Money{Cents: 99}}}
	if got := Total(expenses); got.Cents != 99 {
		t.Fatalf("expense total = %d", got.Cents)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	l := New(nil, nil)
	_, _ = l.AppendIncome("Salary", core.Money{Cents: 1}, core.Date{})
	snap := l.Clone()
	_, _ = l.AppendIncome("Bonus", core.Money{Cents: 2}, core.Date{})
	if len(snap.Incomes) != 1 {
		t.Fatalf("clone observed later append")
	}
}
