// Package postgres implements the storage backend on PostgreSQL using a
// pgx connection pool.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

//go:embed schema.sql
var schemaSQL string

const uniqueViolation = "23505"

// Store is the PostgreSQL backend.
type Store struct {
	pool   *pgxpool.Pool
	logger *log.Logger
}

// New connects to databaseURL, checks the connection and applies the schema.
func New(ctx context.Context, databaseURL string, logger *log.Logger) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, core.NewStorageError("init", "", fmt.Errorf("parsing connection string: %w", err))
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, core.NewStorageError("init", "", fmt.Errorf("creating connection pool: %w", err))
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, core.NewStorageError("init", "", fmt.Errorf("pinging database: %w", err))
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, core.NewStorageError("init", "", fmt.Errorf("applying schema: %w", err))
	}
	logger.Info("connected to PostgreSQL", log.FieldBackend, "postgres")

	return &Store{pool: pool, logger: logger}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return core.NewStorageError("ping", "", s.pool.Ping(ctx))
}

func (s *Store) LoadLedger(ctx context.Context, user string) ([]core.IncomeEntry, []core.ExpenseEntry, error) {
	incRows, err := s.pool.Query(ctx,
		`SELECT source, amount_cents, entry_date FROM incomes WHERE username = $1 ORDER BY position`, user)
	if err != nil {
		return nil, nil, core.NewStorageError("load ledger", user, err)
	}
	incomes, err := pgx.CollectRows(incRows, func(row pgx.CollectableRow) (core.IncomeEntry, error) {
		var (
			e    core.IncomeEntry
			date *time.Time
		)
		err := row.Scan(&e.Source, &e.Amount.Cents, &date)
		e.Date = fromSQLDate(date)
		return e, err
	})
	if err != nil {
		return nil, nil, core.NewStorageError("load ledger", user, fmt.Errorf("scan incomes: %w", err))
	}

	expRows, err := s.pool.Query(ctx,
		`SELECT description, category, amount_cents, entry_date FROM expenses WHERE username = $1 ORDER BY position`, user)
	if err != nil {
		return nil, nil, core.NewStorageError("load ledger", user, err)
	}
	expenses, err := pgx.CollectRows(expRows, func(row pgx.CollectableRow) (core.ExpenseEntry, error) {
		var (
			e    core.ExpenseEntry
			date *time.Time
		)
		err := row.Scan(&e.Description, &e.Category, &e.Amount.Cents, &date)
		e.Date = fromSQLDate(date)
		return e, err
	})
	if err != nil {
		return nil, nil, core.NewStorageError("load ledger", user, fmt.Errorf("scan expenses: %w", err))
	}

	return storage.CloneIncomes(incomes), storage.CloneExpenses(expenses), nil
}

func (s *Store) SaveLedger(ctx context.Context, user string, incomes []core.IncomeEntry, expenses []core.ExpenseEntry) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		batch.Queue(`DELETE FROM incomes WHERE username = $1`, user)
		batch.Queue(`DELETE FROM expenses WHERE username = $1`, user)
		for i, e := range incomes {
			batch.Queue(`INSERT INTO incomes (username, position, source, amount_cents, entry_date) VALUES ($1, $2, $3, $4, $5)`,
				user, i, e.Source, e.Amount.Cents, toSQLDate(e.Date))
		}
		for i, e := range expenses {
			batch.Queue(`INSERT INTO expenses (username, position, description, category, amount_cents, entry_date) VALUES ($1, $2, $3, $4, $5, $6)`,
				user, i, e.Description, e.Category, e.Amount.Cents, toSQLDate(e.Date))
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	return core.NewStorageError("save ledger", user, err)
}

func (s *Store) LoadBudgets(ctx context.Context, user string) (map[string]core.Money, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT category, ceiling_cents FROM budgets WHERE username = $1`, user)
	if err != nil {
		return nil, core.NewStorageError("load budgets", user, err)
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

func (s *Store) SaveBudgets(ctx context.Context, user string, budgets map[string]core.Money) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		batch.Queue(`DELETE FROM budgets WHERE username = $1`, user)
		for category, ceiling := range budgets {
			batch.Queue(`INSERT INTO budgets (username, category, ceiling_cents) VALUES ($1, $2, $3)`,
				user, category, ceiling.Cents)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	return core.NewStorageError("save budgets", user, err)
}

func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (username, password_hash) VALUES ($1, $2)`, username, passwordHash)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return storage.ErrUserExists
	}
	return core.NewStorageError("create user", username, err)
}

func (s *Store) GetUserHash(ctx context.Context, username string) (string, error) {
	var hash string
	err := s.pool.QueryRow(ctx,
		`SELECT password_hash FROM users WHERE username = $1`, username).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", &core.NotFoundError{Kind: "user", Key: username}
	}
	if err != nil {
		return "", core.NewStorageError("get user", username, err)
	}
	return hash, nil
}

func toSQLDate(d core.Date) *time.Time {
	if d.IsEmpty() {
		return nil
	}
	t := d.Time
	return &t
}

func fromSQLDate(t *time.Time) core.Date {
	if t == nil {
		return core.Date{}
	}
	return core.DateOf(*t)
}

var _ storage.Store = (*Store)(nil)
