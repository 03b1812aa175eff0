package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"fintrack/internal/amqp"
	"fintrack/internal/budget"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/report"
	"fintrack/internal/storage"
)

// AlertPublisher delivers budget alerts to other processes.
type AlertPublisher interface {
	PublishBudgetAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error
}

// ExpenseResult is what the user sees after recording an expense: the stored
// entry and the state of its category right after the append.
type ExpenseResult struct {
	Entry  core.ExpenseEntry   `json:"entry"`
	Status core.CategoryStatus `json:"status"`
	Alert  budget.State        `json:"alert"`
}

// userSession holds one user's loaded ledger and budgets. id and version
// together key the summary cache; id is fresh for every load so a reopened
// session never sees summaries cached before Close.
type userSession struct {
	id      string
	mu      sync.Mutex
	ledger  *ledger.Ledger
	budgets *budget.Registry
	version uint64
}

// FinanceService orchestrates one user's ledger and budgets: it loads them
// from storage on first use, saves after every mutation and publishes
// budget alerts best-effort.
type FinanceService struct {
	store     storage.LedgerStore
	suggester ledger.Suggester
	publisher AlertPublisher
	summaries *cache.LRUCache[core.Summary]
	logger    *log.Logger

	mu       sync.Mutex
	sessions map[string]*userSession
	loads    singleflight.Group
	computes singleflight.Group
}

// Option configures a FinanceService.
type Option func(*FinanceService)

// WithPublisher enables alert publishing.
func WithPublisher(p AlertPublisher) Option {
	return func(s *FinanceService) { s.publisher = p }
}

// WithSummaryCache sets the cache used for dashboard summaries.
func WithSummaryCache(c *cache.LRUCache[core.Summary]) Option {
	return func(s *FinanceService) { s.summaries = c }
}

// WithLogger sets the service logger.
func WithLogger(l *log.Logger) Option {
	return func(s *FinanceService) { s.logger = l.WithComponent(log.ComponentFinance) }
}

func NewFinanceService(store storage.LedgerStore, suggester ledger.Suggester, opts ...Option) *FinanceService {
	s := &FinanceService{
		store:     store,
		suggester: suggester,
		summaries: cache.NewLRUCache[core.Summary](0, 0),
		logger:    log.Discard(),
		sessions:  map[string]*userSession{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Open loads the user's data if it is not loaded yet. A user without stored
// data starts with an empty ledger and registry.
func (s *FinanceService) Open(ctx context.Context, user string) error {
	_, err := s.session(ctx, user)
	return err
}

func (s *FinanceService) session(ctx context.Context, user string) (*userSession, error) {
	if user == "" {
		return nil, &core.ValidationError{Field: "user", Err: errors.New("empty identity")}
	}
	s.mu.Lock()
	sess, ok := s.sessions[user]
	s.mu.Unlock()
	if ok {
		return sess, nil
	}

	v, err, _ := s.loads.Do(user, func() (any, error) {
		s.mu.Lock()
		if sess, ok := s.sessions[user]; ok {
			s.mu.Unlock()
			return sess, nil
		}
		s.mu.Unlock()

		var (
			incomes  []core.IncomeEntry
			expenses []core.ExpenseEntry
			budgets  map[string]core.Money
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			incomes, expenses, err = s.store.LoadLedger(gctx, user)
			return err
		})
		g.Go(func() error {
			var err error
			budgets, err = s.store.LoadBudgets(gctx, user)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, core.NewStorageError("load", user, err)
		}

		sess := &userSession{
			id:      uuid.NewString(),
			ledger:  ledger.New(incomes, expenses),
			budgets: budget.NewRegistry(budgets),
		}
		s.mu.Lock()
		s.sessions[user] = sess
		s.mu.Unlock()

		s.logger.InfoContext(ctx, "session opened",
			log.FieldUser, user,
			"incomes", len(incomes),
			"expenses", len(expenses),
			"budgets", len(budgets))
		return sess, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*userSession), nil
}

// RecordIncome appends an income entry and saves the ledger. When the save
// fails the entry stays in memory and the StorageError is returned with it.
func (s *FinanceService) RecordIncome(ctx context.Context, user, source string, amount core.Money, date core.Date) (core.IncomeEntry, error) {
	sess, err := s.session(ctx, user)
	if err != nil {
		return core.IncomeEntry{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	entry, err := sess.ledger.AppendIncome(source, amount, date)
	if err != nil {
		return core.IncomeEntry{}, err
	}
	sess.version++
	s.logger.InfoContext(ctx, "income recorded", log.NewFields().
		WithUser(user).WithOperation(log.OpAppend).WithEntry("", entry.Amount.Cents).ToSlice()...)

	return entry, s.saveLedger(ctx, user, sess)
}

// RecordExpense appends an expense, filling an empty category from the
// classifier, saves the ledger and evaluates the category's budget state.
func (s *FinanceService) RecordExpense(ctx context.Context, user, description, category string, amount core.Money, date core.Date) (ExpenseResult, error) {
	sess, err := s.session(ctx, user)
	if err != nil {
		return ExpenseResult{}, err
	}
	sess.mu.Lock()
	entry, err := sess.ledger.AppendExpense(s.suggester, description, category, amount, date)
	if err != nil {
		sess.mu.Unlock()
		return ExpenseResult{}, err
	}
	sess.version++
	spent := report.CategoryTotals(sess.ledger.Expenses)[entry.Category]
	status := report.CategoryStatus(entry.Category, spent, sess.budgets)
	saveErr := s.saveLedger(ctx, user, sess)
	sess.mu.Unlock()

	state := budget.Evaluate(spent, status.Ceiling)
	s.logger.InfoContext(ctx, "expense recorded", log.NewFields().
		WithUser(user).WithOperation(log.OpAppend).WithEntry(entry.Category, entry.Amount.Cents).ToSlice()...)

	if state.Alerting() {
		s.publishAlert(ctx, user, status)
	}
	return ExpenseResult{Entry: entry, Status: status, Alert: state}, saveErr
}

// SetBudget sets or replaces a category ceiling and saves the registry.
func (s *FinanceService) SetBudget(ctx context.Context, user, category string, amount core.Money) error {
	sess, err := s.session(ctx, user)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.budgets.Set(category, amount); err != nil {
		return err
	}
	sess.version++
	return s.saveBudgets(ctx, user, sess)
}

// RemoveBudget deletes a category ceiling and saves the registry.
func (s *FinanceService) RemoveBudget(ctx context.Context, user, category string) error {
	sess, err := s.session(ctx, user)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.budgets.Remove(category); err != nil {
		return err
	}
	sess.version++
	return s.saveBudgets(ctx, user, sess)
}

// SuggestCategory returns the classifier's category for a description.
func (s *FinanceService) SuggestCategory(description string) string {
	if s.suggester == nil {
		return core.DefaultCategory
	}
	return s.suggester.Suggest(description)
}

// Summary returns totals, the category breakdown and every budget status.
// Results are cached per session and ledger version.
func (s *FinanceService) Summary(ctx context.Context, user string) (core.Summary, error) {
	sess, err := s.session(ctx, user)
	if err != nil {
		return core.Summary{}, err
	}

	sess.mu.Lock()
	key := user + "@" + sess.id + "@" + strconv.FormatUint(sess.version, 10)
	if sum, ok := s.summaries.Get(key); ok {
		sess.mu.Unlock()
		return sum, nil
	}
	snapshot := sess.ledger.Clone()
	budgets := sess.budgets.Clone()
	sess.mu.Unlock()

	v, _, _ := s.computes.Do(key, func() (any, error) {
		sum := report.Summarize(snapshot, budgets)
		s.summaries.Set(key, sum)
		return sum, nil
	})
	return v.(core.Summary), nil
}

// MonthlySeries returns the per-month income and expense totals.
func (s *FinanceService) MonthlySeries(ctx context.Context, user string) ([]core.MonthPoint, error) {
	sess, err := s.session(ctx, user)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return report.MonthlySeries(sess.ledger.Incomes, sess.ledger.Expenses), nil
}

// Incomes returns a copy of the user's income entries in insertion order.
func (s *FinanceService) Incomes(ctx context.Context, user string) ([]core.IncomeEntry, error) {
	sess, err := s.session(ctx, user)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return storage.CloneIncomes(sess.ledger.Incomes), nil
}

// Expenses returns a copy of the user's expense entries in insertion order.
func (s *FinanceService) Expenses(ctx context.Context, user string) ([]core.ExpenseEntry, error) {
	sess, err := s.session(ctx, user)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return storage.CloneExpenses(sess.ledger.Expenses), nil
}

// Budgets returns a copy of the user's category ceilings.
func (s *FinanceService) Budgets(ctx context.Context, user string) (map[string]core.Money, error) {
	sess, err := s.session(ctx, user)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.budgets.Map(), nil
}

// Close saves the user's data one last time and discards the session. It is
// a no-op for users without an open session.
func (s *FinanceService) Close(ctx context.Context, user string) error {
	s.mu.Lock()
	sess, ok := s.sessions[user]
	delete(s.sessions, user)
	s.mu.Unlock()
	if !ok {
		return nil
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	err := errors.Join(s.saveLedger(ctx, user, sess), s.saveBudgets(ctx, user, sess))
	s.logger.InfoContext(ctx, "session closed", log.FieldUser, user)
	return err
}

// CloseAll closes every open session.
func (s *FinanceService) CloseAll(ctx context.Context) error {
	s.mu.Lock()
	users := make([]string, 0, len(s.sessions))
	for u := range s.sessions {
		users = append(users, u)
	}
	s.mu.Unlock()

	var errs []error
	for _, u := range users {
		if err := s.Close(ctx, u); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", u, err))
		}
	}
	return errors.Join(errs...)
}

// saveLedger must be called with sess.mu held.
func (s *FinanceService) saveLedger(ctx context.Context, user string, sess *userSession) error {
	err := s.store.SaveLedger(ctx, user,
		storage.CloneIncomes(sess.ledger.Incomes),
		storage.CloneExpenses(sess.ledger.Expenses))
	if err != nil {
		s.logger.ErrorContext(ctx, "ledger save failed",
			log.FieldUser, user,
			log.FieldOperation, log.OpSave,
			log.FieldError, err)
		return core.NewStorageError("save ledger", user, err)
	}
	return nil
}

// saveBudgets must be called with sess.mu held.
func (s *FinanceService) saveBudgets(ctx context.Context, user string, sess *userSession) error {
	if err := s.store.SaveBudgets(ctx, user, sess.budgets.Map()); err != nil {
		s.logger.ErrorContext(ctx, "budget save failed",
			log.FieldUser, user,
			log.FieldOperation, log.OpSetBudget,
			log.FieldError, err)
		return core.NewStorageError("save budgets", user, err)
	}
	return nil
}

func (s *FinanceService) publishAlert(ctx context.Context, user string, status core.CategoryStatus) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not available, skipping budget alert",
			log.FieldUser, user,
			log.FieldCategory, status.Category)
		return
	}
	if err := s.publisher.PublishBudgetAlert(ctx, amqp.NewBudgetAlertMessage(user, status)); err != nil {
		// the expense is saved; alert delivery is best-effort
		s.logger.WarnContext(ctx, "Failed to publish budget alert",
			log.FieldUser, user,
			log.FieldCategory, status.Category,
			log.FieldError, err)
	}
}
