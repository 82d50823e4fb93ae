package testgenpro

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestUsersAuthenticate(t *testing.T) {
	users, err := newUsers(map[string]string{"user1": "password1", "user2": "password2"}, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := users.Authenticate("user1", "password1"); err != nil {
		t.Fatalf("expected valid login, got %v", err)
	}
	tests := []struct{ name, password string }{
		{"user1", "password2"},
		{"user3", "password1"},
		{"", ""},
	}
	for _, tt := range tests {
		if err := users.Authenticate(tt.name, tt.password); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("Authenticate(%q, %q) = %v, want ErrInvalidCredentials", tt.name, tt.password, err)
		}
	}
}

func TestUsersCreate(t *testing.T) {
	users, err := newUsers(nil, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := users.Create("alice", "secret"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := users.Create("alice", "other"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	if err := users.Create("bob", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for empty password, got %v", err)
	}
	if err := users.Authenticate("alice", "secret"); err != nil {
		t.Fatalf("expected valid login, got %v", err)
	}
}
