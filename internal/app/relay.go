package app

import (
	"github.com/rs/zerolog/log"

	"github.com/circletalk/circletalk/internal/core"
	"github.com/circletalk/circletalk/internal/domain"
)

// Relay forwards call-signaling messages between two live connections. It
// holds no per-call record: offers, answers and candidates pass through
// verbatim, and a client that is offline when signaled gets no replay on
// reconnect. Calls are synchronous, a missed offer times out client-side.
//
// HandleEvent consumes one inbound event and returns the side effects as
// commands for the transport adapter to execute; it never raises an error to
// its caller beyond the user-offline reply for offers.
type Relay struct {
	presence *Presence
	limiter  *CallRateLimiter

	// users validates that an announced userId exists; nil skips the check.
	users UserChecker
}

// UserChecker is the only coupling the relay has to the account store.
type UserChecker interface {
	UserExists(id domain.UserID) bool
}

func NewRelay(presence *Presence, limiter *CallRateLimiter, users UserChecker) *Relay {
	return &Relay{presence: presence, limiter: limiter, users: users}
}

func (r *Relay) HandleEvent(ev core.ClientEvent) []core.Command {
	switch e := ev.(type) {
	case core.UserOnline:
		return r.handleOnline(e)
	case core.CallUser:
		return r.handleCallUser(e)
	case core.AnswerCall:
		return r.forward(e.To, core.CallAnswered{Type: core.EvCallAnswered, Answer: e.Answer})
	case core.CandidateFor:
		return r.forward(e.To, core.CandidateFrom{Type: core.EvICECandidate, Candidate: e.Candidate})
	case core.RejectCall:
		return r.forward(e.To, core.CallRejected{Type: core.EvCallRejected})
	case core.EndCall:
		return r.forward(e.To, core.CallEnded{Type: core.EvCallEnded})
	case core.Disconnect:
		return r.handleDisconnect(e)
	default:
		log.Warn().Str("module", "app.relay").Msg("unknown client event")
		return nil
	}
}

func (r *Relay) handleOnline(e core.UserOnline) []core.Command {
	if r.users != nil && !r.users.UserExists(e.UserID) {
		log.Warn().Str("module", "app.relay").Str("user", string(e.UserID)).Msg("presence announce for unknown user")
		return nil
	}

	var cmds []core.Command
	if stale, replaced := r.presence.Register(e.UserID, e.Conn); replaced {
		cmds = append(cmds, core.CloseConn{Conn: stale})
	}
	cmds = append(cmds, core.BroadcastAll{Event: core.UserStatusChange{
		Type:     core.EvUserStatusChange,
		UserID:   e.UserID,
		IsOnline: true,
	}})
	return cmds
}

func (r *Relay) handleCallUser(e core.CallUser) []core.Command {
	// The caller is whoever this connection registered as, never the payload.
	from, ok := r.presence.UserOf(e.Conn)
	if !ok {
		log.Warn().Str("module", "app.relay").Str("conn", string(e.Conn)).Msg("call attempt from unregistered connection")
		return nil
	}
	if r.limiter != nil && !r.limiter.Allow(from) {
		log.Warn().Str("module", "app.relay").Str("from", string(from)).Msg("call attempt rate limited")
		return nil
	}

	conn, ok := r.presence.Lookup(e.To)
	if !ok {
		// Only offers get the unreachable reply; the caller's session
		// returns to idle on it.
		return []core.Command{core.Send{To: e.Conn, Event: core.UserOffline{
			Type:   core.EvUserOffline,
			UserID: e.To,
		}}}
	}
	return []core.Command{core.Send{To: conn, Event: core.IncomingCall{
		Type:     core.EvIncomingCall,
		From:     from,
		Offer:    e.Offer,
		CallType: e.CallType,
	}}}
}

// forward delivers one event to the target's connection, or silently drops it
// when the target is gone: for everything past the offer the target already
// ended its own session, which the sender learns independently.
func (r *Relay) forward(to domain.UserID, event any) []core.Command {
	conn, ok := r.presence.Lookup(to)
	if !ok {
		log.Debug().Str("module", "app.relay").Str("to", string(to)).Msg("target offline, dropping")
		return nil
	}
	return []core.Command{core.Send{To: conn, Event: event}}
}

func (r *Relay) handleDisconnect(e core.Disconnect) []core.Command {
	uid, ok := r.presence.Unregister(e.Conn)
	if !ok {
		return nil
	}
	return []core.Command{core.BroadcastAll{Event: core.UserStatusChange{
		Type:     core.EvUserStatusChange,
		UserID:   uid,
		IsOnline: false,
	}}}
}
