package core

import (
	"encoding/json"

	"github.com/circletalk/circletalk/internal/domain"
)

// Wire event names, shared by both directions.
const (
	EvUserOnline       = "user-online"
	EvCallUser         = "call-user"
	EvIncomingCall     = "incoming-call"
	EvAnswerCall       = "answer-call"
	EvCallAnswered     = "call-answered"
	EvICECandidate     = "ice-candidate"
	EvRejectCall       = "reject-call"
	EvCallRejected     = "call-rejected"
	EvEndCall          = "end-call"
	EvCallEnded        = "call-ended"
	EvUserOffline      = "user-offline"
	EvUserStatusChange = "user-status-change"
)

// ClientEvent is one inbound transport event, decoded by the adapter and
// handled to completion by the relay before the next is processed.
// Offers, answers and candidates stay opaque raw JSON end to end.
type ClientEvent interface{ clientEvent() }

type UserOnline struct {
	Conn   ConnID
	UserID domain.UserID
}

// CallUser carries no caller identity: the relay resolves the caller from the
// connection's presence registration, so a client cannot spoof "from".
type CallUser struct {
	Conn     ConnID
	To       domain.UserID
	Offer    json.RawMessage
	CallType domain.CallType
}

type AnswerCall struct {
	Conn   ConnID
	To     domain.UserID
	Answer json.RawMessage
}

type CandidateFor struct {
	Conn      ConnID
	To        domain.UserID
	Candidate json.RawMessage
}

type RejectCall struct {
	Conn ConnID
	To   domain.UserID
}

type EndCall struct {
	Conn ConnID
	To   domain.UserID
}

type Disconnect struct {
	Conn ConnID
}

func (UserOnline) clientEvent()   {}
func (CallUser) clientEvent()     {}
func (AnswerCall) clientEvent()   {}
func (CandidateFor) clientEvent() {}
func (RejectCall) clientEvent()   {}
func (EndCall) clientEvent()      {}
func (Disconnect) clientEvent()   {}

// Server→client event bodies. Each carries its own wire "type" tag so the
// adapter can marshal them as-is.

type IncomingCall struct {
	Type     string          `json:"type"`
	From     domain.UserID   `json:"from"`
	Offer    json.RawMessage `json:"offer"`
	CallType domain.CallType `json:"callType"`
}

type CallAnswered struct {
	Type   string          `json:"type"`
	Answer json.RawMessage `json:"answer"`
}

type CandidateFrom struct {
	Type      string          `json:"type"`
	Candidate json.RawMessage `json:"candidate"`
}

type CallRejected struct {
	Type string `json:"type"`
}

type CallEnded struct {
	Type string `json:"type"`
}

// UserOffline is the unreachable reply to a call-user whose target has no
// live connection.
type UserOffline struct {
	Type   string        `json:"type"`
	UserID domain.UserID `json:"userId"`
}

type UserStatusChange struct {
	Type     string        `json:"type"`
	UserID   domain.UserID `json:"userId"`
	IsOnline bool          `json:"isOnline"`
}

// Command is one side effect the relay wants performed. Returning commands
// instead of writing inline keeps the relay testable without a live transport.
type Command interface{ command() }

// Send delivers one event to one connection.
type Send struct {
	To    ConnID
	Event any
}

// BroadcastAll delivers one event to every live connection.
type BroadcastAll struct {
	Event any
}

// CloseConn asks the adapter to close a connection the presence layer has
// replaced.
type CloseConn struct {
	Conn ConnID
}

func (Send) command()         {}
func (BroadcastAll) command() {}
func (CloseConn) command()    {}
