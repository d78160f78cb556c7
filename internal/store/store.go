// Package store is the boundary to the account/friend/message document
// store. The rest of the system only depends on these interfaces.
package store

import (
	"errors"

	"github.com/circletalk/circletalk/internal/domain"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

type UserStore interface {
	Create(u *domain.User) error
	ByID(id domain.UserID) (*domain.User, error)
	ByEmail(email string) (*domain.User, error)
	Update(u *domain.User) error
	List() []*domain.User
	// AddFriendEdge makes the friendship mutual in one call.
	AddFriendEdge(a, b domain.UserID) error
}

type FriendRequestStore interface {
	Create(r *domain.FriendRequest) error
	ByID(id domain.RequestID) (*domain.FriendRequest, error)
	Update(r *domain.FriendRequest) error
	// Between returns any request connecting the two users, in either
	// direction and any status.
	Between(a, b domain.UserID) (*domain.FriendRequest, error)
	ByRecipient(uid domain.UserID, status domain.RequestStatus) []*domain.FriendRequest
	BySender(uid domain.UserID, status domain.RequestStatus) []*domain.FriendRequest
	// Involving returns requests where uid is either endpoint.
	Involving(uid domain.UserID, status domain.RequestStatus) []*domain.FriendRequest
}

type MessageStore interface {
	Create(m *domain.Message) error
	// Between returns the conversation between two users, oldest first.
	Between(a, b domain.UserID) []*domain.Message
	// MarkRead flags every unread message from sender to recipient as read.
	MarkRead(sender, recipient domain.UserID)
	UnreadCount(recipient domain.UserID) int
}
