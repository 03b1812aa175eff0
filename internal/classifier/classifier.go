// Package classifier suggests an expense category from its free-text
// description using an ordered keyword table.
package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"fintrack/internal/core"
)

// Rule maps a category to the keywords that select it.
type Rule struct {
	Category string   `json:"category"`
	Keywords []string `json:"keywords"`
}

// Classifier holds an immutable, ordered rule set. The first rule with a
// matching keyword wins.
type Classifier struct {
	rules    []Rule
	fallback string
}

// DefaultRules returns a fresh copy of the built-in keyword table.
func DefaultRules() []Rule {
	return []Rule{
		{Category: "Food", Keywords: []string{"pizza", "restaurant", "lunch", "dinner", "coffee", "groceries", "breakfast", "snacks"}},
		{Category: "Travel", Keywords: []string{"uber", "taxi", "flight", "train", "bus", "cab", "fuel", "petrol"}},
		{Category: "Bills", Keywords: []string{"electricity", "water", "internet", "phone", "gas", "rent"}},
	}
}

// New copies rules so later changes by the caller have no effect. Keywords
// are lower-cased and blank ones dropped. An empty fallback means
// core.DefaultCategory.
func New(rules []Rule, fallback string) *Classifier {
	if strings.TrimSpace(fallback) == "" {
		fallback = core.DefaultCategory
	}
	c := &Classifier{fallback: fallback, rules: make([]Rule, 0, len(rules))}
	for _, r := range rules {
		if strings.TrimSpace(r.Category) == "" {
			continue
		}
		kws := make([]string, 0, len(r.Keywords))
		for _, kw := range r.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				kws = append(kws, kw)
			}
		}
		c.rules = append(c.rules, Rule{Category: r.Category, Keywords: kws})
	}
	return c
}

// Default returns a classifier over DefaultRules.
func Default() *Classifier {
	return New(DefaultRules(), core.DefaultCategory)
}

// Suggest returns the category of the first rule whose keyword occurs in
// the lower-cased description, or the fallback category.
func (c *Classifier) Suggest(description string) string {
	desc := strings.ToLower(description)
	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if strings.Contains(desc, kw) {
				return r.Category
			}
		}
	}
	return c.fallback
}

// Rules returns a copy of the rule table in match order.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	for i, r := range c.rules {
		out[i] = Rule{Category: r.Category, Keywords: append([]string(nil), r.Keywords...)}
	}
	return out
}

// LoadRules reads a JSON rule table ([{"category":..,"keywords":[..]}]).
// A missing file yields DefaultRules.
func LoadRules(path string) ([]Rule, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultRules(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read classifier rules: %w", err)
	}
	var rules []Rule
	if err := json.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse classifier rules %s: %w", path, err)
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("classifier rules %s: no rules defined", path)
	}
	return rules, nil
}
