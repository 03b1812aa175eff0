// Package report computes totals, category breakdowns, budget annotations
// and monthly series from a ledger. Every function is pure.
package report

import (
	"sort"

	"fintrack/internal/budget"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
)

func TotalIncome(incomes []core.IncomeEntry) core.Money {
	return ledger.Total(incomes)
}

func TotalExpense(expenses []core.ExpenseEntry) core.Money {
	return ledger.Total(expenses)
}

// Balance is total income minus total expense and may be negative.
func Balance(incomes []core.IncomeEntry, expenses []core.ExpenseEntry) core.Money {
	return TotalIncome(incomes).Sub(TotalExpense(expenses))
}

// CategoryTotals sums expenses per category. Categories without expenses are
// absent, not zero.
func CategoryTotals(expenses []core.ExpenseEntry) map[string]core.Money {
	out := make(map[string]core.Money)
	for _, e := range expenses {
		cat := e.Category
		if cat == "" {
			cat = core.DefaultCategory
		}
		out[cat] = out[cat].Add(e.Amount)
	}
	return out
}

// SortedCategoryTotals orders CategoryTotals by amount descending, then name.
func SortedCategoryTotals(expenses []core.ExpenseEntry) []core.CategoryAmount {
	totals := CategoryTotals(expenses)
	out := make([]core.CategoryAmount, 0, len(totals))
	for name, amt := range totals {
		out = append(out, core.CategoryAmount{Name: name, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// MonthlySeries buckets both entry kinds by YYYY-MM. Months come from either
// side and are sorted ascending; undated entries are skipped.
func MonthlySeries(incomes []core.IncomeEntry, expenses []core.ExpenseEntry) []core.MonthPoint {
	byMonth := make(map[string]*core.MonthPoint)
	bucket := func(key string) *core.MonthPoint {
		p, ok := byMonth[key]
		if !ok {
			p = &core.MonthPoint{Month: key}
			byMonth[key] = p
		}
		return p
	}
	for _, e := range incomes {
		if key := e.Date.MonthKey(); key != "" {
			p := bucket(key)
			p.Income = p.Income.Add(e.Amount)
		}
	}
	for _, e := range expenses {
		if key := e.Date.MonthKey(); key != "" {
			p := bucket(key)
			p.Expense = p.Expense.Add(e.Amount)
		}
	}

	keys := make([]string, 0, len(byMonth))
	for k := range byMonth {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]core.MonthPoint, 0, len(keys))
	for _, k := range keys {
		out = append(out, *byMonth[k])
	}
	return out
}

// CategoryStatus evaluates one category's spend against the registry.
func CategoryStatus(category string, spent core.Money, budgets *budget.Registry) core.CategoryStatus {
	ceiling := budgets.Ceiling(category)
	return core.CategoryStatus{
		Category:    category,
		Spent:       spent,
		Ceiling:     ceiling,
		State:       budget.Evaluate(spent, ceiling).String(),
		PercentUsed: budget.PercentUsed(spent, ceiling),
	}
}

// BudgetStatuses annotates every category that has spend or a budget,
// sorted by name.
func BudgetStatuses(expenses []core.ExpenseEntry, budgets *budget.Registry) []core.CategoryStatus {
	totals := CategoryTotals(expenses)
	names := make(map[string]struct{}, len(totals))
	for name := range totals {
		names[name] = struct{}{}
	}
	for _, name := range budgets.Categories() {
		names[name] = struct{}{}
	}
	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	out := make([]core.CategoryStatus, 0, len(sorted))
	for _, name := range sorted {
		out = append(out, CategoryStatus(name, totals[name], budgets))
	}
	return out
}

// Summarize builds the dashboard summary.
func Summarize(l *ledger.Ledger, budgets *budget.Registry) core.Summary {
	income := TotalIncome(l.Incomes)
	expense := TotalExpense(l.Expenses)
	return core.Summary{
		TotalIncome:  income,
		TotalExpense: expense,
		Balance:      income.Sub(expense),
		ByCategory:   SortedCategoryTotals(l.Expenses),
		Budgets:      BudgetStatuses(l.Expenses, budgets),
	}
}
