package budget

import (
	"errors"
	"testing"

	"fintrack/internal/core"
)

func money(c int64) *core.Money { return &core.Money{Cents: c} }

func TestEvaluate(t *testing.T) {
	tests := []struct {
		spent   int64
		ceiling *core.Money
		want    State
	}{
		{10000, money(10000), Exceeded},
		{15000, money(10000), Exceeded},
		{9100, money(10000), Nearing},
		{9000, money(10000), Nearing},
		{8999, money(10000), Normal},
		{8900, money(10000), Normal},
		{0, money(10000), Normal},
		{500, nil, NoBudget},
	}
	for _, tt := range tests {
		if got := Evaluate(core.Money{Cents: tt.spent}, tt.ceiling); got != tt.want {
			t.Errorf("Evaluate(%d, %v) = %v, want %v", tt.spent, tt.ceiling, got, tt.want)
		}
	}
}

func TestStateString(t *testing.T) {
	if Nearing.String() != "nearing" || NoBudget.String() != "no_budget" {
		t.Fatalf("unexpected names")
	}
	if !Exceeded.Alerting() || Normal.Alerting() {
		t.Fatalf("unexpected alerting")
	}
	if State(9).String() != "State(9)" {
		t.Fatalf("unexpected out-of-range name")
	}
}

func TestPercentUsed(t *testing.T) {
	if p := PercentUsed(core.Money{Cents: 50}, money(200)); p != 25 {
		t.Fatalf("got %v", p)
	}
	if p := PercentUsed(core.Money{Cents: 500}, money(200)); p != 100 {
		t.Fatalf("expected cap at 100, got %v", p)
	}
	if p := PercentUsed(core.Money{Cents: 500}, nil); p != 0 {
		t.Fatalf("got %v", p)
	}
}

func TestRegistrySetGet(t *testing.T) {
	r := NewRegistry(nil)
	if _, ok := r.Get("Food"); ok {
		t.Fatalf("expected no budget")
	}
	if err := r.Set("Food", core.Money{Cents: 10000}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := r.Set("Food", core.Money{Cents: 20000}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if m, ok := r.Get("Food"); !ok || m.Cents != 20000 {
		t.Fatalf("last write should win, got %v %v", m, ok)
	}
	if r.Ceiling("food") != nil {
		t.Fatalf("categories are case-sensitive")
	}
}

func TestRegistryValidation(t *testing.T) {
	r := NewRegistry(map[string]core.Money{"Bills": {Cents: 100}})
	if err := r.Set("", core.Money{Cents: 1}); !errors.Is(err, core.ErrEmptyCategory) {
		t.Fatalf("expected empty category, got %v", err)
	}
	if err := r.Set("Food", core.Money{Cents: 0}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("registry mutated on invalid input")
	}
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry(map[string]core.Money{"Bills": {Cents: 100}, "Food": {Cents: 5}})
	if err := r.Remove("Travel"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := r.Remove("Bills"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if cats := r.Categories(); len(cats) != 1 || cats[0] != "Food" {
		t.Fatalf("unexpected categories %v", cats)
	}
}

func TestRegistryCopies(t *testing.T) {
	src := map[string]core.Money{"Food": {Cents: 1}}
	r := NewRegistry(src)
	src["Food"] = core.Money{Cents: 99}
	m := r.Map()
	m["Food"] = core.Money{Cents: 42}
	if got, _ := r.Get("Food"); got.Cents != 1 {
		t.Fatalf("registry shares storage with caller: %d", got.Cents)
	}
}
