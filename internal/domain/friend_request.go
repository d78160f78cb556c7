package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestRejected RequestStatus = "rejected"
)

var (
	ErrSelfRequest      = errors.New("cannot send friend request to yourself")
	ErrAlreadyFriends   = errors.New("recipient is already your friend")
	ErrRequestExists    = errors.New("friend request already exists")
	ErrRequestNotFound  = errors.New("friend request not found")
	ErrNotRecipient     = errors.New("not the recipient of this friend request")
	ErrRequestNotActive = errors.New("friend request is not pending")
)

type RequestID string

type FriendRequest struct {
	ID        RequestID     `json:"id"`
	Sender    UserID        `json:"sender"`
	Recipient UserID        `json:"recipient"`
	Status    RequestStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
}

func NewFriendRequest(sender, recipient UserID) (*FriendRequest, error) {
	if sender == recipient {
		return nil, ErrSelfRequest
	}
	return &FriendRequest{
		ID:        RequestID(uuid.NewString()),
		Sender:    sender,
		Recipient: recipient,
		Status:    RequestPending,
		CreatedAt: time.Now(),
	}, nil
}

// Accept transitions the request to accepted. Only pending requests move.
func (r *FriendRequest) Accept() error {
	if r.Status != RequestPending {
		return ErrRequestNotActive
	}
	r.Status = RequestAccepted
	return nil
}

func (r *FriendRequest) Reject() error {
	if r.Status != RequestPending {
		return ErrRequestNotActive
	}
	r.Status = RequestRejected
	return nil
}

// Involves reports whether the given user is either endpoint.
func (r *FriendRequest) Involves(id UserID) bool {
	return r.Sender == id || r.Recipient == id
}
