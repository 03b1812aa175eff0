package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{" 2.50 ", 250, true},
		{".5", 50, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"0.004", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1.٣", 0, false},
		{"٣", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.ok {
			if err != nil || got != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestParseAmountIsValidationError(t *testing.T) {
	if _, err := ParseAmount("ten"); !errors.Is(err, ErrValidation) || !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected validation error, got %v", err)
	}
	m, err := ParseAmount("40")
	if err != nil || m.Cents != 4000 {
		t.Fatalf("unexpected %v %v", m, err)
	}
}

func TestMoneyJSON(t *testing.T) {
	b, err := json.Marshal(Money{Cents: 1250})
	if err != nil || string(b) != "12.5" {
		t.Fatalf("marshal = %s, %v", b, err)
	}
	for in, want := range map[string]int64{`100`: 10000, `12.345`: 1235, `"7.10"`: 710, `null`: 0} {
		var m Money
		if err := json.Unmarshal([]byte(in), &m); err != nil || m.Cents != want {
			t.Fatalf("%s decoded to %d (err=%v), want %d", in, m.Cents, err, want)
		}
	}
	var m Money
	if err := json.Unmarshal([]byte(`"abc"`), &m); err == nil {
		t.Fatalf("expected error for non-numeric amount")
	}
}

func TestMoneyString(t *testing.T) {
	if s := (Money{Cents: -150}).String(); s != "-1.50" {
		t.Fatalf("got %q", s)
	}
	if s := (Money{Cents: 100}).Add(Money{Cents: 5}).String(); s != "1.05" {
		t.Fatalf("got %q", s)
	}
}
