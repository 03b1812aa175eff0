package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/storage"

	_ "modernc.org/sqlite"
)

// Repository is the SQLite backend. Every save replaces the user's rows in
// one transaction, keeping insertion order in the position column.
type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, core.NewStorageError("init", "", fmt.Errorf("create db directory: %w", err))
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, core.NewStorageError("init", "", fmt.Errorf("open sqlite database: %w", err))
	}
	// modernc sqlite serializes writers; a single connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, core.NewStorageError("init", "", fmt.Errorf("ping database: %w", err))
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, core.NewStorageError("init", "", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return core.NewStorageError("ping", "", r.db.PingContext(ctx))
}

func (r *Repository) LoadLedger(ctx context.Context, user string) ([]core.IncomeEntry, []core.ExpenseEntry, error) {
	incomes, err := r.loadIncomes(ctx, user)
	if err != nil {
		return nil, nil, core.NewStorageError("load ledger", user, err)
	}
	expenses, err := r.loadExpenses(ctx, user)
	if err != nil {
		return nil, nil, core.NewStorageError("load ledger", user, err)
	}
	return incomes, expenses, nil
}

func (r *Repository) loadIncomes(ctx context.Context, user string) ([]core.IncomeEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT source, amount_cents, entry_date FROM incomes WHERE username = ? ORDER BY position`, user)
	if err != nil {
		return nil, fmt.Errorf("query incomes: %w", err)
	}
	defer rows.Close()

	out := []core.IncomeEntry{}
	for rows.Next() {
		var (
			e    core.IncomeEntry
			date string
		)
		if err := rows.Scan(&e.Source, &e.Amount.Cents, &date); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		if e.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("income date %q: %w", date, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) loadExpenses(ctx context.Context, user string) ([]core.ExpenseEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT description, category, amount_cents, entry_date FROM expenses WHERE username = ? ORDER BY position`, user)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	out := []core.ExpenseEntry{}
	for rows.Next() {
		var (
			e    core.ExpenseEntry
			date string
		)
		if err := rows.Scan(&e.Description, &e.Category, &e.Amount.Cents, &date); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		if e.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("expense date %q: %w", date, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) SaveLedger(ctx context.Context, user string, incomes []core.IncomeEntry, expenses []core.ExpenseEntry) error {
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM incomes WHERE username = ?`, user); err != nil {
			return fmt.Errorf("clear incomes: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE username = ?`, user); err != nil {
			return fmt.Errorf("clear expenses: %w", err)
		}

		insInc, err := tx.PrepareContext(ctx,
			`INSERT INTO incomes (username, position, source, amount_cents, entry_date) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare income insert: %w", err)
		}
		defer insInc.Close()
		for i, e := range incomes {
			if _, err := insInc.ExecContext(ctx, user, i, e.Source, e.Amount.Cents, e.Date.String()); err != nil {
				return fmt.Errorf("insert income %d: %w", i, err)
			}
		}

		insExp, err := tx.PrepareContext(ctx,
			`INSERT INTO expenses (username, position, description, category, amount_cents, entry_date) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare expense insert: %w", err)
		}
		defer insExp.Close()
		for i, e := range expenses {
			if _, err := insExp.ExecContext(ctx, user, i, e.Description, e.Category, e.Amount.Cents, e.Date.String()); err != nil {
				return fmt.Errorf("insert expense %d: %w", i, err)
			}
		}
		return nil
	})
	return core.NewStorageError("save ledger", user, err)
}

func (r *Repository) LoadBudgets(ctx context.Context, user string) (map[string]core.Money, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, ceiling_cents FROM budgets WHERE username = ?`, user)
	if err != nil {
		return nil, core.NewStorageError("load budgets", user, fmt.Errorf("query budgets: %w", err))
	}
	defer rows.Close()

	out := map[string]core.Money{}
	for rows.Next() {
		var (
			category string
			cents    int64
		)
		if err := rows.Scan(&category, &cents); err != nil {
			return nil, core.NewStorageError("load budgets", user, fmt.Errorf("scan budget: %w", err))
		}
		out[category] = core.Money{Cents: cents}
	}
	if err := rows.Err(); err != nil {
		return nil, core.NewStorageError("load budgets", user, err)
	}
	return out, nil
}

func (r *Repository) SaveBudgets(ctx context.Context, user string, budgets map[string]core.Money) error {
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM budgets WHERE username = ?`, user); err != nil {
			return fmt.Errorf("clear budgets: %w", err)
		}
		for category, ceiling := range budgets {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO budgets (username, category, ceiling_cents) VALUES (?, ?, ?)`,
				user, category, ceiling.Cents); err != nil {
				return fmt.Errorf("insert budget %q: %w", category, err)
			}
		}
		return nil
	})
	return core.NewStorageError("save budgets", user, err)
}

func (r *Repository) CreateUser(ctx context.Context, username, passwordHash string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash) VALUES (?, ?)`, username, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrUserExists
		}
		return core.NewStorageError("create user", username, err)
	}
	return nil
}

func (r *Repository) GetUserHash(ctx context.Context, username string) (string, error) {
	var hash string
	err := r.db.QueryRowContext(ctx,
		`SELECT password_hash FROM users WHERE username = ?`, username).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", &core.NotFoundError{Kind: "user", Key: username}
	}
	if err != nil {
		return "", core.NewStorageError("get user", username, err)
	}
	return hash, nil
}

func (r *Repository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ storage.Store = (*Repository)(nil)
