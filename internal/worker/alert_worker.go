// Package worker turns budget alert events into user notifications.
package worker

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/budget"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

// Notification is a rendered budget alert for one user.
type Notification struct {
	User     string
	Category string
	State    string
	Message  string
	At       time.Time
}

// Notifier delivers notifications. An error asks the broker to redeliver.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	Logger *log.Logger
}

func (l LogNotifier) Notify(ctx context.Context, n Notification) error {
	l.Logger.WarnContext(ctx, n.Message,
		log.FieldUser, n.User,
		log.FieldCategory, n.Category,
		log.FieldAlertState, n.State)
	return nil
}

// AlertWorker handles budget alert messages. Redelivered events are
// recognised by event id and notified only once.
type AlertWorker struct {
	notifier Notifier
	seen     *cache.LRUCache[struct{}]
	logger   *log.Logger
}

// DefaultDedupWindow is how long event ids are remembered.
const DefaultDedupWindow = time.Hour

func NewAlertWorker(notifier Notifier, seen *cache.LRUCache[struct{}], logger *log.Logger) *AlertWorker {
	if logger == nil {
		logger = log.Discard()
	}
	if seen == nil {
		seen = cache.NewLRUCache[struct{}](1024, DefaultDedupWindow)
	}
	return &AlertWorker{
		notifier: notifier,
		seen:     seen,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleBudgetAlert matches amqp.AlertHandler.
func (w *AlertWorker) HandleBudgetAlert(ctx context.Context, msg *amqp.BudgetAlertMessage) error {
	if _, dup := w.seen.Get(msg.EventID); dup {
		w.logger.DebugContext(ctx, "Duplicate alert ignored", "event_id", msg.EventID)
		return nil
	}

	if msg.State != budget.Nearing.String() && msg.State != budget.Exceeded.String() {
		// only nearing and exceeded are notified; anything else is acked and dropped
		w.logger.WarnContext(ctx, "Ignoring alert with non-alerting state",
			"event_id", msg.EventID,
			log.FieldAlertState, msg.State)
		return nil
	}

	n := Notification{
		User:     msg.User,
		Category: msg.Category,
		State:    msg.State,
		Message:  FormatAlert(msg),
		At:       msg.Timestamp,
	}
	if err := w.notifier.Notify(ctx, n); err != nil {
		return fmt.Errorf("notify %s: %w", msg.User, err)
	}
	w.seen.Set(msg.EventID, struct{}{})

	w.logger.InfoContext(ctx, "Budget alert delivered",
		"event_id", msg.EventID,
		log.FieldUser, msg.User,
		log.FieldCategory, msg.Category)
	return nil
}

// FormatAlert renders the user-facing alert text.
func FormatAlert(msg *amqp.BudgetAlertMessage) string {
	spent := core.Money{Cents: msg.SpentCents}
	ceiling := core.Money{Cents: msg.CeilingCents}
	switch msg.State {
	case budget.Exceeded.String():
		return fmt.Sprintf("Budget exceeded for %s: spent %s of %s (%.0f%%)",
			msg.Category, spent, ceiling, msg.PercentUsed)
	default:
		return fmt.Sprintf("Nearing budget for %s: spent %s of %s (%.0f%%)",
			msg.Category, spent, ceiling, msg.PercentUsed)
	}
}
