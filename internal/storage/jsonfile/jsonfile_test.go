package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
	"fintrack/internal/storage/storagetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), WithRetry(2, time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestJSONStoreContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return newTestStore(t) })
}

func TestFileLayout(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	err := s.SaveLedger(ctx, "alice",
		[]core.IncomeEntry{{Source: "Salary", Amount: core.Money{Cents: 1050}, Date: core.NewDate(2024, 3, 1)}},
		nil)
	if err != nil {
		t.Fatalf("SaveLedger: %v", err)
	}
	if err := s.SaveBudgets(ctx, "alice", map[string]core.Money{"Food": {Cents: 20000}}); err != nil {
		t.Fatalf("SaveBudgets: %v", err)
	}

	for _, name := range []string{"alice_income.json", "alice_expense.json", "alice_budgets.json"} {
		if _, err := os.Stat(filepath.Join(s.dir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}

	b, err := os.ReadFile(filepath.Join(s.dir, "alice_income.json"))
	if err != nil {
		t.Fatal(err)
	}
	var raw []map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("income file is not a JSON array: %v", err)
	}
	if raw[0]["source"] != "Salary" || raw[0]["amount"] != 10.5 || raw[0]["date"] != "2024-03-01" {
		t.Fatalf("unexpected record: %v", raw[0])
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".json" {
			t.Fatalf("leftover temp file %s", e.Name())
		}
	}
}

func TestInvalidRecordsSkippedOnLoad(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	files := map[string]string{
		"alice_income.json":  `[{"source":"Salary","amount":100,"date":"2024-03-01"},{"source":"Typo","amount":-5,"date":"2024-03-02"}]`,
		"alice_expense.json": `[{"description":"Lunch","category":"Food","amount":null,"date":""},{"description":"Bus","category":"Travel","amount":"2.50","date":"2024-03-03"}]`,
		"alice_budgets.json": `{"Food":0,"Travel":40,"":10}`,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(s.dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	incomes, expenses, err := s.LoadLedger(ctx, "alice")
	if err != nil {
		t.Fatalf("LoadLedger: %v", err)
	}
	if len(incomes) != 1 || incomes[0].Source != "Salary" {
		t.Errorf("incomes = %+v", incomes)
	}
	if len(expenses) != 1 || expenses[0].Description != "Bus" || expenses[0].Amount.Cents != 250 {
		t.Errorf("expenses = %+v", expenses)
	}

	budgets, err := s.LoadBudgets(ctx, "alice")
	if err != nil {
		t.Fatalf("LoadBudgets: %v", err)
	}
	if len(budgets) != 1 || budgets["Travel"].Cents != 4000 {
		t.Errorf("budgets = %v", budgets)
	}
}

func TestCorruptFileIsStorageError(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(filepath.Join(s.dir, "bob_expense.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := s.LoadLedger(context.Background(), "bob")
	if !errors.Is(err, core.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestUnwritableDirIsStorageError(t *testing.T) {
	s := newTestStore(t)
	s.dir = filepath.Join(s.dir, "missing", "nested")
	err := s.SaveBudgets(context.Background(), "bob", map[string]core.Money{"Food": {Cents: 1}})
	if !errors.Is(err, core.ErrStorage) {
		t.Fatalf("expected storage error, got %v", err)
	}
}

func TestSafeName(t *testing.T) {
	tests := map[string]string{
		"alice":   "alice",
		"Bob_2-x": "Bob_2-x",
		"../etc":  "%2E%2E%2Fetc",
		"a b":     "a%20b",
	}
	for in, want := range tests {
		if got := SafeName(in); got != want {
			t.Fatalf("SafeName(%q) = %q, want %q", in, got, want)
		}
	}
}
