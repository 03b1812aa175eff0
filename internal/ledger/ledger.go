// Package ledger holds one user's append-only income and expense entries.
package ledger

import (
	"strings"

	"fintrack/internal/core"
)

// Suggester pre-fills the category of an expense recorded without one.
type Suggester interface {
	Suggest(description string) string
}

// Ledger is the in-memory entry store of a single user. Entries are kept in
// insertion order and never modified once appended.
type Ledger struct {
	Incomes  []core.IncomeEntry
	Expenses []core.ExpenseEntry
}

// New builds a ledger over previously persisted entries.
func New(incomes []core.IncomeEntry, expenses []core.ExpenseEntry) *Ledger {
	return &Ledger{Incomes: incomes, Expenses: expenses}
}

// AppendIncome validates and appends an income entry. On error the ledger is
// left unchanged.
func (l *Ledger) AppendIncome(source string, amount core.Money, date core.Date) (core.IncomeEntry, error) {
	e := core.IncomeEntry{
		Source: strings.TrimSpace(source),
		Amount: amount,
		Date:   date,
	}
	if err := e.Validate(); err != nil {
		return core.IncomeEntry{}, err
	}
	l.Incomes = append(l.Incomes, e)
	return e, nil
}

// AppendExpense validates and appends an expense entry. An empty category is
// replaced by the suggester's answer, or core.DefaultCategory when s is nil.
func (l *Ledger) AppendExpense(s Suggester, description, category string, amount core.Money, date core.Date) (core.ExpenseEntry, error) {
	description = strings.TrimSpace(description)
	category = strings.TrimSpace(category)
	if category == "" {
		category = core.DefaultCategory
		if s != nil {
			category = s.Suggest(description)
		}
	}
	e := core.ExpenseEntry{
		Description: description,
		Category:    category,
		Amount:      amount,
		Date:        date,
	}
	if err := e.Validate(); err != nil {
		return core.ExpenseEntry{}, err
	}
	l.Expenses = append(l.Expenses, e)
	return e, nil
}

// Clone returns a deep copy safe to hand to readers.
func (l *Ledger) Clone() *Ledger {
	return &Ledger{
		Incomes:  append([]core.IncomeEntry(nil), l.Incomes...),
		Expenses: append([]core.ExpenseEntry(nil), l.Expenses...),
	}
}

// Total sums entry amounts; it is zero for an empty sequence.
func Total[E core.Amounted](entries []E) core.Money {
	var sum core.Money
	for _, e := range entries {
		sum = sum.Add(e.Value())
	}
	return sum
}
