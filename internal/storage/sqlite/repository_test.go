package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/storage"
	"fintrack/internal/storage/storagetest"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	return repo
}

func TestSQLiteContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return newTestRepo(t) })
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	repo, err := NewRepository(path)
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	expenses := []core.ExpenseEntry{
		{Description: "Taxi", Category: "Travel", Amount: core.Money{Cents: 1500}, Date: core.NewDate(2024, 5, 2)},
	}
	if err := repo.SaveLedger(ctx, "alice", nil, expenses); err != nil {
		t.Fatalf("SaveLedger: %v", err)
	}
	repo.Close()

	// migrations must be idempotent on an existing database
	repo, err = NewRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	_, got, err := repo.LoadLedger(ctx, "alice")
	if err != nil {
		t.Fatalf("LoadLedger: %v", err)
	}
	storagetest.EqualExpenses(t, got, expenses)
}
