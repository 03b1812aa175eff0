// Package jsonfile stores each user's data as indented JSON files in a
// directory: <user>_income.json, <user>_expense.json and <user>_budgets.json.
// Accounts are kept in users.json.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

const usersFile = "users.json"

// Store is a file-per-kind backend. Writes go to a temp file that is then
// renamed over the target, so a crash never leaves a half-written file.
type Store struct {
	dir    string
	logger *log.Logger

	// guards users.json read-modify-write
	usersMu sync.Mutex

	attempts uint
	delay    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithRetry overrides the write retry policy.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(s *Store) {
		s.attempts = attempts
		s.delay = delay
	}
}

// WithLogger sets the logger used for retry warnings.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates the directory if needed.
func New(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, core.NewStorageError("init", "", fmt.Errorf("create data dir: %w", err))
	}
	s := &Store{
		dir:      dir,
		logger:   log.Discard(),
		attempts: 3,
		delay:    50 * time.Millisecond,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *Store) LoadLedger(_ context.Context, user string) ([]core.IncomeEntry, []core.ExpenseEntry, error) {
	var incomes []core.IncomeEntry
	if err := s.readJSON(s.path(user, "income"), &incomes); err != nil {
		return nil, nil, core.NewStorageError("load ledger", user, err)
	}
	var expenses []core.ExpenseEntry
	if err := s.readJSON(s.path(user, "expense"), &expenses); err != nil {
		return nil, nil, core.NewStorageError("load ledger", user, err)
	}
	return s.validIncomes(user, incomes), s.validExpenses(user, expenses), nil
}

func (s *Store) SaveLedger(_ context.Context, user string, incomes []core.IncomeEntry, expenses []core.ExpenseEntry) error {
	if err := s.writeJSON(s.path(user, "income"), storage.CloneIncomes(incomes)); err != nil {
		return core.NewStorageError("save ledger", user, err)
	}
	if err := s.writeJSON(s.path(user, "expense"), storage.CloneExpenses(expenses)); err != nil {
		return core.NewStorageError("save ledger", user, err)
	}
	return nil
}

func (s *Store) LoadBudgets(_ context.Context, user string) (map[string]core.Money, error) {
	var budgets map[string]core.Money
	if err := s.readJSON(s.path(user, "budgets"), &budgets); err != nil {
		return nil, core.NewStorageError("load budgets", user, err)
	}
	return s.validBudgets(user, budgets), nil
}

func (s *Store) SaveBudgets(_ context.Context, user string, budgets map[string]core.Money) error {
	if err := s.writeJSON(s.path(user, "budgets"), storage.CloneBudgets(budgets)); err != nil {
		return core.NewStorageError("save budgets", user, err)
	}
	return nil
}

func (s *Store) CreateUser(_ context.Context, username, passwordHash string) error {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()
	users, err := s.loadUsers()
	if err != nil {
		return core.NewStorageError("create user", username, err)
	}
	if _, ok := users[username]; ok {
		return storage.ErrUserExists
	}
	users[username] = passwordHash
	if err := s.writeJSON(filepath.Join(s.dir, usersFile), users); err != nil {
		return core.NewStorageError("create user", username, err)
	}
	return nil
}

func (s *Store) GetUserHash(_ context.Context, username string) (string, error) {
	s.usersMu.Lock()
	defer s.usersMu.Unlock()
	users, err := s.loadUsers()
	if err != nil {
		return "", core.NewStorageError("get user", username, err)
	}
	hash, ok := users[username]
	if !ok {
		return "", &core.NotFoundError{Kind: "user", Key: username}
	}
	return hash, nil
}

// Ping checks that the data directory is still writable.
func (s *Store) Ping(context.Context) error {
	f, err := os.CreateTemp(s.dir, ".ping-*")
	if err != nil {
		return core.NewStorageError("ping", "", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func (s *Store) Close() error { return nil }

func (s *Store) loadUsers() (map[string]string, error) {
	users := map[string]string{}
	if err := s.readJSON(filepath.Join(s.dir, usersFile), &users); err != nil {
		return nil, err
	}
	if users == nil {
		users = map[string]string{}
	}
	return users, nil
}

func (s *Store) path(user, kind string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.json", SafeName(user), kind))
}

// readJSON leaves v untouched when the file does not exist.
func (s *Store) readJSON(path string, v any) error {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *Store) writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return retry.Do(
		func() error { return writeAtomic(path, b) },
		retry.Attempts(s.attempts),
		retry.Delay(s.delay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("retrying file write",
				"file", filepath.Base(path),
				"attempt", n+1,
				log.FieldError, err)
		}),
	)
}

func writeAtomic(path string, b []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Files may be edited by hand. Records with a non-positive amount are
// dropped on load and logged.

func (s *Store) validIncomes(user string, in []core.IncomeEntry) []core.IncomeEntry {
	out := make([]core.IncomeEntry, 0, len(in))
	for i, e := range in {
		if e.Amount.Cents <= 0 {
			s.skipped(user, "income", i, e.Amount)
			continue
		}
		out = append(out, e)
	}
	return out
}

func (s *Store) validExpenses(user string, in []core.ExpenseEntry) []core.ExpenseEntry {
	out := make([]core.ExpenseEntry, 0, len(in))
	for i, e := range in {
		if e.Amount.Cents <= 0 {
			s.skipped(user, "expense", i, e.Amount)
			continue
		}
		out = append(out, e)
	}
	return out
}

func (s *Store) validBudgets(user string, in map[string]core.Money) map[string]core.Money {
	out := make(map[string]core.Money, len(in))
	for cat, ceiling := range in {
		if strings.TrimSpace(cat) == "" || ceiling.Cents <= 0 {
			s.logger.Warn("skipping invalid budget",
				log.FieldUser, user,
				log.FieldCategory, cat,
				"ceiling", ceiling.String())
			continue
		}
		out[cat] = ceiling
	}
	return out
}

func (s *Store) skipped(user, kind string, index int, amount core.Money) {
	s.logger.Warn("skipping invalid record",
		log.FieldUser, user,
		"kind", kind,
		"index", index,
		"amount", amount.String())
}

// SafeName maps a username to a file name fragment. Letters, digits, '-'
// and '_' are kept, every other byte is escaped as %XX.
func SafeName(user string) string {
	var b strings.Builder
	for i := 0; i < len(user); i++ {
		c := user[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}

var _ storage.Store = (*Store)(nil)
