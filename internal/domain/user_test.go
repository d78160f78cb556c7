package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestNewUserValidation(t *testing.T) {
	cases := []struct {
		name     string
		email    string
		fullName string
		wantErr  error
	}{
		{"empty email", "", "Alice", ErrEmailEmpty},
		{"no at sign", "alice.example.com", "Alice", ErrEmailInvalid},
		{"leading at", "@example.com", "Alice", ErrEmailInvalid},
		{"empty name", "a@b.com", "", ErrFullNameEmpty},
		{"long name", "a@b.com", strings.Repeat("x", MaxFullNameLen+1), ErrFullNameTooLong},
		{"valid", "Alice@B.com", "Alice", nil},
	}

	for _, tc := range cases {
		u, err := NewUser(tc.email, tc.fullName)
		if !errors.Is(err, tc.wantErr) {
			t.Fatalf("%s: err = %v; want %v", tc.name, err, tc.wantErr)
		}
		if tc.wantErr == nil && u.Email != "alice@b.com" {
			t.Fatalf("%s: email = %q; want lowercase", tc.name, u.Email)
		}
	}
}

func TestAddFriendIdempotent(t *testing.T) {
	u, _ := NewUser("a@b.com", "Alice")
	u.AddFriend("bob")
	u.AddFriend("bob")
	if len(u.Friends) != 1 {
		t.Fatalf("friends = %v; want single bob", u.Friends)
	}
	if !u.IsFriendOf("bob") || u.IsFriendOf("carol") {
		t.Fatal("IsFriendOf mismatch")
	}
}
