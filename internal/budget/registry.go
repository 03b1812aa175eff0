// Package budget keeps per-category spending ceilings and classifies spend
// against them.
package budget

import (
	"sort"
	"strings"

	"fintrack/internal/core"
)

// Registry maps a category name to its ceiling. Category names are
// case-sensitive.
type Registry struct {
	ceilings map[string]core.Money
}

// NewRegistry copies a persisted mapping.
func NewRegistry(ceilings map[string]core.Money) *Registry {
	r := &Registry{ceilings: make(map[string]core.Money, len(ceilings))}
	for k, v := range ceilings {
		r.ceilings[k] = v
	}
	return r
}

// Set validates and stores a ceiling, replacing any previous one.
func (r *Registry) Set(category string, amount core.Money) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return &core.ValidationError{Field: "category", Err: core.ErrEmptyCategory}
	}
	if err := amount.Validate(); err != nil {
		return err
	}
	r.ceilings[category] = amount
	return nil
}

// Get returns the ceiling and whether one is set.
func (r *Registry) Get(category string) (core.Money, bool) {
	m, ok := r.ceilings[category]
	return m, ok
}

// Ceiling is Get in pointer form: nil means no budget.
func (r *Registry) Ceiling(category string) *core.Money {
	m, ok := r.ceilings[category]
	if !ok {
		return nil
	}
	return &m
}

// Remove deletes a ceiling. Removing a category that was never budgeted is a
// NotFoundError; callers decide whether that matters.
func (r *Registry) Remove(category string) error {
	if _, ok := r.ceilings[category]; !ok {
		return &core.NotFoundError{Kind: "budget", Key: category}
	}
	delete(r.ceilings, category)
	return nil
}

// Categories returns the budgeted categories in sorted order.
func (r *Registry) Categories() []string {
	out := make([]string, 0, len(r.ceilings))
	for k := range r.ceilings {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of categories with a ceiling.
func (r *Registry) Len() int { return len(r.ceilings) }

// Map returns a copy of the mapping for persistence.
func (r *Registry) Map() map[string]core.Money {
	out := make(map[string]core.Money, len(r.ceilings))
	for k, v := range r.ceilings {
		out[k] = v
	}
	return out
}

// Clone returns an independent copy of the registry.
func (r *Registry) Clone() *Registry {
	return NewRegistry(r.ceilings)
}
