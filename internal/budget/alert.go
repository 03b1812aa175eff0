package budget

import (
	"encoding/json"
	"fmt"

	"fintrack/internal/core"
)

// State is the alert level of a category.
type State int

const (
	// NoBudget means the category has no ceiling.
	NoBudget State = iota
	// Normal means spend is below 90% of the ceiling.
	Normal
	// Nearing means spend is at least 90% of the ceiling but below it.
	Nearing
	// Exceeded means spend has reached or passed the ceiling.
	Exceeded
)

var stateNames = [...]string{"no_budget", "normal", "nearing", "exceeded"}

// String returns the snake_case name used in JSON and alert messages.
func (s State) String() string {
	if s < NoBudget || s > Exceeded {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalJSON encodes the state as its name.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Alerting reports whether the state should be surfaced to the user.
func (s State) Alerting() bool {
	return s == Nearing || s == Exceeded
}

// Evaluate classifies spend against a ceiling: nil ceiling is NoBudget,
// spent >= ceiling is Exceeded, spent >= 90% of ceiling is Nearing.
func Evaluate(spent core.Money, ceiling *core.Money) State {
	if ceiling == nil {
		return NoBudget
	}
	switch {
	case spent.Cents >= ceiling.Cents:
		return Exceeded
	case spent.Cents*10 >= ceiling.Cents*9:
		return Nearing
	default:
		return Normal
	}
}

// PercentUsed is spent/ceiling as a percentage capped at 100.
func PercentUsed(spent core.Money, ceiling *core.Money) float64 {
	if ceiling == nil || ceiling.Cents <= 0 {
		return 0
	}
	p := float64(spent.Cents) * 100 / float64(ceiling.Cents)
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return p
}
