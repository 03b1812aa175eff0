// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"errors"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) storage.Store

// Run executes the shared backend contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Store)
	}{
		{"unknown user loads empty", testUnknownUser},
		{"ledger round trip", testLedgerRoundTrip},
		{"ledger save overwrites", testLedgerOverwrite},
		{"budgets round trip", testBudgetsRoundTrip},
		{"users are isolated", testIsolation},
		{"loaded data is a copy", testCopies},
		{"user accounts", testUsers},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			defer s.Close()
			if err := s.Ping(context.Background()); err != nil {
				t.Fatalf("Ping: %v", err)
			}
			tt.fn(t, s)
		})
	}
}

func sampleIncomes() []core.IncomeEntry {
	return []core.IncomeEntry{
		{Source: "Salary", Amount: core.Money{Cents: 300000}, Date: core.NewDate(2024, 1, 31)},
		{Source: "Gift", Amount: core.Money{Cents: 2550}},
	}
}

func sampleExpenses() []core.ExpenseEntry {
	return []core.ExpenseEntry{
		{Description: "Pizza night", Category: "Food", Amount: core.Money{Cents: 1999}, Date: core.NewDate(2024, 1, 5)},
		{Description: "Bus ticket", Category: "Travel", Amount: core.Money{Cents: 250}, Date: core.NewDate(2024, 2, 1)},
		{Description: "Misc", Category: "Other", Amount: core.Money{Cents: 1}},
	}
}

func testUnknownUser(t *testing.T, s storage.Store) {
	ctx := context.Background()
	inc, exp, err := s.LoadLedger(ctx, "nobody")
	if err != nil {
		t.Fatalf("LoadLedger: %v", err)
	}
	if len(inc) != 0 || len(exp) != 0 {
		t.Fatalf("expected empty ledger, got %d incomes %d expenses", len(inc), len(exp))
	}
	b, err := s.LoadBudgets(ctx, "nobody")
	if err != nil {
		t.Fatalf("LoadBudgets: %v", err)
	}
	if b == nil || len(b) != 0 {
		t.Fatalf("expected empty non-nil budgets, got %v", b)
	}
}

func testLedgerRoundTrip(t *testing.T, s storage.Store) {
	ctx := context.Background()
	if err := s.SaveLedger(ctx, "alice", sampleIncomes(), sampleExpenses()); err != nil {
		t.Fatalf("SaveLedger: %v", err)
	}
	inc, exp, err := s.LoadLedger(ctx, "alice")
	if err != nil {
		t.Fatalf("LoadLedger: %v", err)
	}
	EqualIncomes(t, inc, sampleIncomes())
	EqualExpenses(t, exp, sampleExpenses())
}

func testLedgerOverwrite(t *testing.T, s storage.Store) {
	ctx := context.Background()
	if err := s.SaveLedger(ctx, "alice", sampleIncomes(), sampleExpenses()); err != nil {
		t.Fatalf("SaveLedger: %v", err)
	}
	smaller := sampleExpenses()[:1]
	if err := s.SaveLedger(ctx, "alice", nil, smaller); err != nil {
		t.Fatalf("SaveLedger: %v", err)
	}
	inc, exp, err := s.LoadLedger(ctx, "alice")
	if err != nil {
		t.Fatalf("LoadLedger: %v", err)
	}
	EqualIncomes(t, inc, nil)
	EqualExpenses(t, exp, smaller)
}

func testBudgetsRoundTrip(t *testing.T, s storage.Store) {
	ctx := context.Background()
	first := map[string]core.Money{"Food": {Cents: 10000}, "Travel": {Cents: 5000}}
	if err := s.SaveBudgets(ctx, "alice", first); err != nil {
		t.Fatalf("SaveBudgets: %v", err)
	}
	got, err := s.LoadBudgets(ctx, "alice")
	if err != nil {
		t.Fatalf("LoadBudgets: %v", err)
	}
	EqualBudgets(t, got, first)

	second := map[string]core.Money{"Food": {Cents: 12000}}
	if err := s.SaveBudgets(ctx, "alice", second); err != nil {
		t.Fatalf("SaveBudgets: %v", err)
	}
	got, err = s.LoadBudgets(ctx, "alice")
	if err != nil {
		t.Fatalf("LoadBudgets: %v", err)
	}
	EqualBudgets(t, got, second)
}

func testIsolation(t *testing.T, s storage.Store) {
	ctx := context.Background()
	if err := s.SaveLedger(ctx, "alice", sampleIncomes(), sampleExpenses()); err != nil {
		t.Fatalf("SaveLedger: %v", err)
	}
	if err := s.SaveBudgets(ctx, "alice", map[string]core.Money{"Food": {Cents: 1}}); err != nil {
		t.Fatalf("SaveBudgets: %v", err)
	}
	inc, exp, err := s.LoadLedger(ctx, "bob")
	if err != nil {
		t.Fatalf("LoadLedger: %v", err)
	}
	if len(inc) != 0 || len(exp) != 0 {
		t.Fatalf("bob sees alice's ledger")
	}
	b, err := s.LoadBudgets(ctx, "bob")
	if err != nil {
		t.Fatalf("LoadBudgets: %v", err)
	}
	if len(b) != 0 {
		t.Fatalf("bob sees alice's budgets: %v", b)
	}
}

func testCopies(t *testing.T, s storage.Store) {
	ctx := context.Background()
	exp := sampleExpenses()
	if err := s.SaveLedger(ctx, "alice", nil, exp); err != nil {
		t.Fatalf("SaveLedger: %v", err)
	}
	exp[0].Category = "Changed"
	_, loaded, err := s.LoadLedger(ctx, "alice")
	if err != nil {
		t.Fatalf("LoadLedger: %v", err)
	}
	loaded[1].Category = "Changed"
	_, again, err := s.LoadLedger(ctx, "alice")
	if err != nil {
		t.Fatalf("LoadLedger: %v", err)
	}
	EqualExpenses(t, again, sampleExpenses())
}

func testUsers(t *testing.T, s storage.Store) {
	ctx := context.Background()
	if err := s.CreateUser(ctx, "alice", "hash-1"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := s.CreateUser(ctx, "alice", "hash-2"); !errors.Is(err, storage.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	hash, err := s.GetUserHash(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserHash: %v", err)
	}
	if hash != "hash-1" {
		t.Fatalf("hash = %q, want hash-1", hash)
	}
	if _, err := s.GetUserHash(ctx, "ghost"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// EqualIncomes fails the test when got and want differ. Nil and empty are equal.
func EqualIncomes(t *testing.T, got, want []core.IncomeEntry) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("incomes: got %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.Source != w.Source || g.Amount != w.Amount || g.Date.String() != w.Date.String() {
			t.Fatalf("income %d: got %+v, want %+v", i, g, w)
		}
	}
}

// EqualExpenses fails the test when got and want differ. Nil and empty are equal.
func EqualExpenses(t *testing.T, got, want []core.ExpenseEntry) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expenses: got %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		g, w := got[i], want[i]
		if g.Description != w.Description || g.Category != w.Category ||
			g.Amount != w.Amount || g.Date.String() != w.Date.String() {
			t.Fatalf("expense %d: got %+v, want %+v", i, g, w)
		}
	}
}

// EqualBudgets fails the test when got and want differ.
func EqualBudgets(t *testing.T, got, want map[string]core.Money) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("budgets: got %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("budget %q: got %v, want %v", k, got[k], v)
		}
	}
}
