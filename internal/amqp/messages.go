package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// BudgetAlertMessage is published when an expense pushes a category into
// the nearing or exceeded state.
type BudgetAlertMessage struct {
	EventID      string    `json:"event_id"`
	User         string    `json:"user"`
	Category     string    `json:"category"`
	State        string    `json:"state"`
	SpentCents   int64     `json:"spent_cents"`
	CeilingCents int64     `json:"ceiling_cents"`
	PercentUsed  float64   `json:"percent_used"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewBudgetAlertMessage stamps a new event id and the current time.
func NewBudgetAlertMessage(user string, status core.CategoryStatus) *BudgetAlertMessage {
	msg := &BudgetAlertMessage{
		EventID:     uuid.NewString(),
		User:        user,
		Category:    status.Category,
		State:       status.State,
		SpentCents:  status.Spent.Cents,
		PercentUsed: status.PercentUsed,
		Timestamp:   time.Now().UTC(),
	}
	if status.Ceiling != nil {
		msg.CeilingCents = status.Ceiling.Cents
	}
	return msg
}

func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BudgetAlertMessageFromJSON decodes and sanity checks a message body.
func BudgetAlertMessageFromJSON(data []byte) (*BudgetAlertMessage, error) {
	var msg BudgetAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(msg.EventID); err != nil {
		return nil, errors.New("alert message: invalid event id")
	}
	if msg.User == "" || msg.Category == "" {
		return nil, errors.New("alert message: missing user or category")
	}
	return &msg, nil
}
