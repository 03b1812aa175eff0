package users

import (
	"context"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"fintrack/internal/core"
	"fintrack/internal/storage/memory"
)

func newTestService() (*Service, *memory.Store) {
	store := memory.New()
	return NewService(store, WithCost(bcrypt.MinCost)), store
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		confirm  string
		wantErr  error
	}{
		{"ok", "alice", "secret1", "secret1", nil},
		{"too short", "al", "secret1", "secret1", core.ErrValidation},
		{"too long", strings.Repeat("a", 31), "secret1", "secret1", core.ErrValidation},
		{"reserved", "Admin", "secret1", "secret1", ErrReservedUsername},
		{"mismatch", "bob", "secret1", "secret2", ErrPasswordMismatch},
		{"short password", "bob", "123", "123", core.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService()
			got, err := svc.Register(context.Background(), tt.username, tt.password, tt.confirm)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != tt.username {
					t.Fatalf("username = %q", got)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	if _, err := svc.Register(ctx, "alice", "secret1", "secret1"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Register(ctx, " alice ", "other12", "other12"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()
	if _, err := svc.Register(ctx, "alice", "secret1", "secret1"); err != nil {
		t.Fatal(err)
	}

	hash, _ := store.GetUserHash(ctx, "alice")
	if hash == "secret1" {
		t.Fatal("password stored in clear text")
	}

	if user, err := svc.Authenticate(ctx, "alice", "secret1"); err != nil || user != "alice" {
		t.Fatalf("Authenticate = %q, %v", user, err)
	}
	if _, err := svc.Authenticate(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "ghost", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
