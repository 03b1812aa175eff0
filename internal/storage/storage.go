// Package storage defines the persistence collaborator used by the finance
// service. Implementations live in the memory, jsonfile, sqlite and postgres
// subpackages.
package storage

import (
	"context"
	"errors"
	"maps"
	"slices"

	"fintrack/internal/core"
)

// ErrUserExists is returned by CreateUser when the username is taken.
var ErrUserExists = errors.New("user already exists")

// Ports for persistence adapters.
type (
	// LedgerStore persists one user's ledger and budgets. Loads for an
	// unknown user return empty data, saves overwrite.
	LedgerStore interface {
		LoadLedger(ctx context.Context, user string) ([]core.IncomeEntry, []core.ExpenseEntry, error)
		SaveLedger(ctx context.Context, user string, incomes []core.IncomeEntry, expenses []core.ExpenseEntry) error
		LoadBudgets(ctx context.Context, user string) (map[string]core.Money, error)
		SaveBudgets(ctx context.Context, user string, budgets map[string]core.Money) error
	}

	// UserStore keeps account credentials.
	UserStore interface {
		CreateUser(ctx context.Context, username, passwordHash string) error
		// GetUserHash returns a *core.NotFoundError for unknown users.
		GetUserHash(ctx context.Context, username string) (string, error)
	}

	// Store is implemented by every backend.
	Store interface {
		LedgerStore
		UserStore
		Ping(ctx context.Context) error
		Close() error
	}
)

// CloneIncomes returns an independent copy, never nil.
func CloneIncomes(in []core.IncomeEntry) []core.IncomeEntry {
	if in == nil {
		return []core.IncomeEntry{}
	}
	return slices.Clone(in)
}

// CloneExpenses returns an independent copy, never nil.
func CloneExpenses(in []core.ExpenseEntry) []core.ExpenseEntry {
	if in == nil {
		return []core.ExpenseEntry{}
	}
	return slices.Clone(in)
}

// CloneBudgets returns an independent copy, never nil.
func CloneBudgets(in map[string]core.Money) map[string]core.Money {
	out := make(map[string]core.Money, len(in))
	maps.Copy(out, in)
	return out
}
