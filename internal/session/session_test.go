package session

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	m := NewManager("0123456789abcdef", time.Hour)
	token, exp, err := m.Issue("alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(exp) <= 0 {
		t.Fatalf("expiry in the past: %v", exp)
	}
	user, err := m.Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if user != "alice" {
		t.Fatalf("user = %q", user)
	}
}

func TestParseRejects(t *testing.T) {
	m := NewManager("0123456789abcdef", time.Hour)
	token, _, err := m.Issue("alice")
	if err != nil {
		t.Fatal(err)
	}

	other := NewManager("fedcba9876543210", time.Hour)
	if _, err := other.Parse(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong secret: expected ErrInvalidToken, got %v", err)
	}

	if _, err := m.Parse("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage: expected ErrInvalidToken, got %v", err)
	}

	expired := NewManager("0123456789abcdef", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, _, err := expired.Issue("alice")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Parse(old); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired: expected ErrInvalidToken, got %v", err)
	}
}
