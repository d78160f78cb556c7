// Package domain contains entities without logic, just meta-data and invariants.
package domain

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MaxFullNameLen = 64
	MinPasswordLen = 6
)

var (
	ErrEmailEmpty       = errors.New("email empty")
	ErrEmailInvalid     = errors.New("email invalid")
	ErrFullNameEmpty    = errors.New("full name empty")
	ErrFullNameTooLong  = errors.New("full name too long")
	ErrPasswordTooShort = errors.New("password too short")
)

type UserID string

type User struct {
	ID               UserID    `json:"id"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	FullName         string    `json:"fullName"`
	Bio              string    `json:"bio"`
	ProfilePic       string    `json:"profilePic"`
	NativeLanguage   string    `json:"nativeLanguage"`
	LearningLanguage string    `json:"learningLanguage"`
	Location         string    `json:"location"`
	IsOnboarded      bool      `json:"isOnboarded"`
	Friends          []UserID  `json:"friends"`
	CreatedAt        time.Time `json:"createdAt"`
}

// NewUser is a tiny helper to avoid ad-hoc struct literals in adapters.
// Passwords are validated here but hashed by the accounts service.
func NewUser(email, fullName string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrEmailEmpty
	}
	if !strings.Contains(email, "@") || strings.HasPrefix(email, "@") || strings.HasSuffix(email, "@") {
		return nil, ErrEmailInvalid
	}
	if fullName == "" {
		return nil, ErrFullNameEmpty
	}
	if len(fullName) > MaxFullNameLen {
		return nil, ErrFullNameTooLong
	}
	return &User{
		ID:               UserID(uuid.NewString()),
		Email:            email,
		FullName:         fullName,
		Bio:              "Hey there! I am using CircleTalk",
		ProfilePic:       RandomAvatar(),
		NativeLanguage:   "English",
		LearningLanguage: "Spanish",
		Location:         "Earth",
		CreatedAt:        time.Now(),
	}, nil
}

func ValidatePassword(password string) error {
	if len(password) < MinPasswordLen {
		return ErrPasswordTooShort
	}
	return nil
}

// RandomAvatar picks one of the hosted placeholder avatars.
func RandomAvatar() string {
	idx := rand.Intn(100) + 1
	return fmt.Sprintf("https://avatar.iran.liara.run/public/%d.png", idx)
}

func (u *User) IsFriendOf(id UserID) bool {
	for _, f := range u.Friends {
		if f == id {
			return true
		}
	}
	return false
}

// AddFriend appends id to the friend set if not already present.
func (u *User) AddFriend(id UserID) {
	if u.IsFriendOf(id) {
		return
	}
	u.Friends = append(u.Friends, id)
}
