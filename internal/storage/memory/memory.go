package memory

import (
	"context"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

type ledger struct {
	incomes  []core.IncomeEntry
	expenses []core.ExpenseEntry
}

// Store keeps everything in process memory. Data is copied on the way in
// and out so callers never share slices with the store.
type Store struct {
	mu      sync.RWMutex
	ledgers map[string]ledger
	budgets map[string]map[string]core.Money
	users   map[string]string
}

func New() *Store {
	return &Store{
		ledgers: map[string]ledger{},
		budgets: map[string]map[string]core.Money{},
		users:   map[string]string{},
	}
}

func (s *Store) LoadLedger(_ context.Context, user string) ([]core.IncomeEntry, []core.ExpenseEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l := s.ledgers[user]
	return storage.CloneIncomes(l.incomes), storage.CloneExpenses(l.expenses), nil
}

func (s *Store) SaveLedger(_ context.Context, user string, incomes []core.IncomeEntry, expenses []core.ExpenseEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgers[user] = ledger{
		incomes:  storage.CloneIncomes(incomes),
		expenses: storage.CloneExpenses(expenses),
	}
	return nil
}

func (s *Store) LoadBudgets(_ context.Context, user string) (map[string]core.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return storage.CloneBudgets(s.budgets[user]), nil
}

func (s *Store) SaveBudgets(_ context.Context, user string, budgets map[string]core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets[user] = storage.CloneBudgets(budgets)
	return nil
}

func (s *Store) CreateUser(_ context.Context, username, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; ok {
		return storage.ErrUserExists
	}
	s.users[username] = passwordHash
	return nil
}

func (s *Store) GetUserHash(_ context.Context, username string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hash, ok := s.users[username]
	if !ok {
		return "", &core.NotFoundError{Kind: "user", Key: username}
	}
	return hash, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

var _ storage.Store = (*Store)(nil)
