package classifier

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSuggestDefaults(t *testing.T) {
	c := Default()
	cases := map[string]string{
		"Dinner at restaurant": "Food",
		"Uber ride":            "Travel",
		"xyz":                  "Other",
		"":                     "Other",
		"Monthly RENT":         "Bills",
		"internet bill":        "Bills",
		// "train" and "coffee": Food is tested first.
		"coffee on the train": "Food",
		// "water taxi": Travel precedes Bills.
		"water taxi": "Travel",
	}
	for in, want := range cases {
		if got := c.Suggest(in); got != want {
			t.Fatalf("Suggest(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSuggestScansEveryRule(t *testing.T) {
	// Only the last rule matches; a scan that stopped after the first
	// rule would answer the fallback.
	c := Default()
	if got := c.Suggest("electricity"); got != "Bills" {
		t.Fatalf("got %q", got)
	}
}

func TestCustomRulesAndFallback(t *testing.T) {
	rules := []Rule{
		{Category: "Pets", Keywords: []string{" VET ", ""}},
		{Category: "", Keywords: []string{"ignored"}},
	}
	c := New(rules, "Misc")
	rules[0].Category = "Changed"

	if got := c.Suggest("vet visit"); got != "Pets" {
		t.Fatalf("got %q", got)
	}
	if got := c.Suggest("ignored"); got != "Misc" {
		t.Fatalf("got %q", got)
	}
	if n := len(c.Rules()); n != 1 {
		t.Fatalf("expected 1 rule, got %d", n)
	}
}

func TestLoadRules(t *testing.T) {
	dir := t.TempDir()

	rules, err := LoadRules(filepath.Join(dir, "missing.json"))
	if err != nil || len(rules) != len(DefaultRules()) {
		t.Fatalf("missing file should give defaults: %v %v", rules, err)
	}

	path := filepath.Join(dir, "rules.json")
	if err := os.WriteFile(path, []byte(`[{"category":"Books","keywords":["novel"]}]`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	rules, err = LoadRules(path)
	if err != nil || len(rules) != 1 || rules[0].Category != "Books" {
		t.Fatalf("unexpected rules: %v %v", rules, err)
	}

	if err := os.WriteFile(path, []byte(`{`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadRules(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
