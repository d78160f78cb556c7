package app

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/circletalk/circletalk/internal/domain"
	"github.com/circletalk/circletalk/internal/store"
)

var (
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrUserNotFound         = errors.New("user not found")
	ErrOnboardingIncomplete = errors.New("all onboarding fields are required")
)

// Accounts owns user profiles, the friendship edge set and direct messages,
// all behind the store boundary.
type Accounts struct {
	users      store.UserStore
	requests   store.FriendRequestStore
	messages   store.MessageStore
	bcryptCost int
}

func NewAccounts(users store.UserStore, requests store.FriendRequestStore, messages store.MessageStore, bcryptCost int) *Accounts {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Accounts{users: users, requests: requests, messages: messages, bcryptCost: bcryptCost}
}

func (a *Accounts) Signup(email, password, fullName string) (*domain.User, error) {
	if err := domain.ValidatePassword(password); err != nil {
		return nil, err
	}
	u, err := domain.NewUser(email, fullName)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	if err := a.users.Create(u); err != nil {
		return nil, err
	}
	log.Info().Str("module", "app.accounts").Str("user", string(u.ID)).Msg("user signed up")
	return u, nil
}

func (a *Accounts) Login(email, password string) (*domain.User, error) {
	u, err := a.users.ByEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

type OnboardingProfile struct {
	FullName         string
	Bio              string
	NativeLanguage   string
	LearningLanguage string
	Location         string
}

func (a *Accounts) Onboard(uid domain.UserID, p OnboardingProfile) (*domain.User, error) {
	if p.FullName == "" || p.NativeLanguage == "" || p.LearningLanguage == "" || p.Location == "" {
		return nil, ErrOnboardingIncomplete
	}
	u, err := a.users.ByID(uid)
	if err != nil {
		return nil, ErrUserNotFound
	}
	u.FullName = p.FullName
	u.Bio = p.Bio
	u.NativeLanguage = p.NativeLanguage
	u.LearningLanguage = p.LearningLanguage
	u.Location = p.Location
	u.IsOnboarded = true
	if err := a.users.Update(u); err != nil {
		return nil, err
	}
	log.Info().Str("module", "app.accounts").Str("user", string(uid)).Msg("user onboarded")
	return u, nil
}

func (a *Accounts) ByID(uid domain.UserID) (*domain.User, error) {
	u, err := a.users.ByID(uid)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// UserExists is the relay's presence-validation hook.
func (a *Accounts) UserExists(uid domain.UserID) bool {
	_, err := a.users.ByID(uid)
	return err == nil
}

// Recommended lists onboarded users who are neither the requester nor
// already their friends.
func (a *Accounts) Recommended(uid domain.UserID) ([]*domain.User, error) {
	me, err := a.users.ByID(uid)
	if err != nil {
		return nil, ErrUserNotFound
	}
	out := make([]*domain.User, 0)
	for _, u := range a.users.List() {
		if u.ID == uid || !u.IsOnboarded || me.IsFriendOf(u.ID) {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (a *Accounts) Friends(uid domain.UserID) ([]*domain.User, error) {
	me, err := a.users.ByID(uid)
	if err != nil {
		return nil, ErrUserNotFound
	}
	out := make([]*domain.User, 0, len(me.Friends))
	for _, fid := range me.Friends {
		if f, err := a.users.ByID(fid); err == nil {
			out = append(out, f)
		}
	}
	return out, nil
}

func (a *Accounts) SendFriendRequest(me, recipient domain.UserID) (*domain.FriendRequest, error) {
	target, err := a.users.ByID(recipient)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if target.IsFriendOf(me) {
		return nil, domain.ErrAlreadyFriends
	}
	if _, err := a.requests.Between(me, recipient); err == nil {
		return nil, domain.ErrRequestExists
	}
	r, err := domain.NewFriendRequest(me, recipient)
	if err != nil {
		return nil, err
	}
	if err := a.requests.Create(r); err != nil {
		return nil, err
	}
	log.Info().Str("module", "app.accounts").Str("from", string(me)).Str("to", string(recipient)).Msg("friend request sent")
	return r, nil
}

func (a *Accounts) AcceptFriendRequest(me domain.UserID, id domain.RequestID) error {
	r, err := a.requests.ByID(id)
	if err != nil {
		return domain.ErrRequestNotFound
	}
	if r.Recipient != me {
		return domain.ErrNotRecipient
	}
	if err := r.Accept(); err != nil {
		return err
	}
	if err := a.requests.Update(r); err != nil {
		return err
	}
	// The edge becomes mutual in one step.
	return a.users.AddFriendEdge(r.Sender, r.Recipient)
}

func (a *Accounts) RejectFriendRequest(me domain.UserID, id domain.RequestID) error {
	r, err := a.requests.ByID(id)
	if err != nil {
		return domain.ErrRequestNotFound
	}
	if r.Recipient != me {
		return domain.ErrNotRecipient
	}
	if err := r.Reject(); err != nil {
		return err
	}
	return a.requests.Update(r)
}

// FriendRequests returns incoming pending requests and every accepted
// request the user is part of.
func (a *Accounts) FriendRequests(me domain.UserID) (incoming, accepted []*domain.FriendRequest) {
	return a.requests.ByRecipient(me, domain.RequestPending),
		a.requests.Involving(me, domain.RequestAccepted)
}

func (a *Accounts) OutgoingRequests(me domain.UserID) []*domain.FriendRequest {
	return a.requests.BySender(me, domain.RequestPending)
}

func (a *Accounts) SendMessage(sender, recipient domain.UserID, text string) (*domain.Message, error) {
	if _, err := a.users.ByID(recipient); err != nil {
		return nil, ErrUserNotFound
	}
	msg, err := domain.NewMessage(sender, recipient, text)
	if err != nil {
		return nil, err
	}
	if err := a.messages.Create(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// ChatHistory returns the conversation oldest first and marks the friend's
// messages to the requester as read.
func (a *Accounts) ChatHistory(me, friend domain.UserID) []*domain.Message {
	msgs := a.messages.Between(me, friend)
	a.messages.MarkRead(friend, me)
	return msgs
}

func (a *Accounts) UnreadCount(me domain.UserID) int {
	return a.messages.UnreadCount(me)
}
