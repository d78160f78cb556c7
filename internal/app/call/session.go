// Package call holds the client-side call session: one pairwise audio or
// video call negotiated through the signaling relay. Each peer runs its own
// Session; the owner must drive it from a single goroutine (user actions and
// relay events are discrete, serially handled events).
package call

import (
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"

	"github.com/circletalk/circletalk/internal/domain"
)

type Status string

const (
	StatusIdle       Status = "idle"
	StatusCalling    Status = "calling"    // caller, offer sent, awaiting answer
	StatusRinging    Status = "ringing"    // callee, offer received, awaiting accept/reject
	StatusConnecting Status = "connecting" // callee, answer sent, awaiting transport
	StatusConnected  Status = "connected"
	// StatusEnded is terminal and momentary: every path into it releases the
	// session's media and negotiation handle, then the session re-enters idle.
	StatusEnded Status = "ended"
)

var (
	ErrBusy       = errors.New("a call is already in progress")
	ErrNotRinging = errors.New("no incoming call to answer")
)

// MediaStream is a local or remote media resource owned by exactly one
// session at a time. Stop releases the underlying devices/tracks.
type MediaStream interface {
	Stop()
}

// MediaProvider acquires local capture media for a call.
type MediaProvider interface {
	Acquire(kind domain.CallType) (MediaStream, error)
}

// Negotiator is the session's negotiation handle. It is created before any
// description is set and closed exactly once per session lifecycle.
type Negotiator interface {
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer(remote webrtc.SessionDescription) (webrtc.SessionDescription, error)
	ApplyAnswer(remote webrtc.SessionDescription) error
	AddCandidate(webrtc.ICECandidateInit) error
	Close()
}

// NegotiatorFactory builds a fresh negotiation handle per call.
type NegotiatorFactory func() (Negotiator, error)

// Signaler sends this session's outbound signaling through the relay.
type Signaler interface {
	CallUser(to domain.UserID, offer webrtc.SessionDescription, kind domain.CallType)
	AnswerCall(to domain.UserID, answer webrtc.SessionDescription)
	SendCandidate(to domain.UserID, cand webrtc.ICECandidateInit)
	RejectCall(to domain.UserID)
	EndCall(to domain.UserID)
}

type Session struct {
	self   domain.UserID
	media  MediaProvider
	newNeg NegotiatorFactory
	signal Signaler

	status Status
	peer   domain.UserID
	kind   domain.CallType

	local  MediaStream
	remote MediaStream

	neg           Negotiator
	remoteApplied bool
	pendingOffer  webrtc.SessionDescription
	pendingCands  []webrtc.ICECandidateInit
}

func NewSession(self domain.UserID, media MediaProvider, newNeg NegotiatorFactory, signal Signaler) *Session {
	return &Session{
		self:   self,
		media:  media,
		newNeg: newNeg,
		signal: signal,
		status: StatusIdle,
	}
}

func (s *Session) Status() Status            { return s.status }
func (s *Session) Peer() domain.UserID       { return s.peer }
func (s *Session) Kind() domain.CallType     { return s.kind }
func (s *Session) LocalStream() MediaStream  { return s.local }
func (s *Session) RemoteStream() MediaStream { return s.remote }

// Initiate starts an outgoing call. Media acquisition failure aborts the
// transition: the session stays idle and nothing is half-initialized.
func (s *Session) Initiate(peer domain.UserID, kind domain.CallType) error {
	if s.status != StatusIdle {
		return ErrBusy
	}

	local, err := s.media.Acquire(kind)
	if err != nil {
		return fmt.Errorf("acquire local media: %w", err)
	}

	neg, err := s.newNeg()
	if err != nil {
		local.Stop()
		return fmt.Errorf("create negotiation handle: %w", err)
	}

	offer, err := neg.CreateOffer()
	if err != nil {
		local.Stop()
		neg.Close()
		return fmt.Errorf("create offer: %w", err)
	}

	s.local = local
	s.neg = neg
	s.peer = peer
	s.kind = kind
	s.status = StatusCalling

	s.signal.CallUser(peer, offer, kind)
	return nil
}

// HandleIncomingOffer surfaces an incoming call. A session that is not idle
// immediately rejects the new caller; arbitration of concurrent calls is
// client-side and best-effort.
func (s *Session) HandleIncomingOffer(from domain.UserID, offer webrtc.SessionDescription, kind domain.CallType) {
	if s.status != StatusIdle {
		log.Debug().Str("module", "call").Str("from", string(from)).Msg("busy, rejecting incoming offer")
		s.signal.RejectCall(from)
		return
	}
	s.peer = from
	s.kind = kind
	s.pendingOffer = offer
	s.status = StatusRinging
}

// Accept answers the ringing call. On media failure the session returns to
// idle, tells the caller, and surfaces the error.
func (s *Session) Accept() error {
	if s.status != StatusRinging {
		return ErrNotRinging
	}

	local, err := s.media.Acquire(s.kind)
	if err != nil {
		s.abortRinging()
		return fmt.Errorf("acquire local media: %w", err)
	}

	neg, err := s.newNeg()
	if err != nil {
		local.Stop()
		s.abortRinging()
		return fmt.Errorf("create negotiation handle: %w", err)
	}

	answer, err := neg.CreateAnswer(s.pendingOffer)
	if err != nil {
		local.Stop()
		neg.Close()
		s.abortRinging()
		return fmt.Errorf("create answer: %w", err)
	}

	s.local = local
	s.neg = neg
	s.remoteApplied = true
	s.flushCandidates()
	s.status = StatusConnecting

	s.signal.AnswerCall(s.peer, answer)
	return nil
}

// Reject declines the ringing call; a ring timeout drives the same path.
func (s *Session) Reject() {
	if s.status != StatusRinging {
		return
	}
	s.abortRinging()
}

// abortRinging returns to idle, telling the caller so their session does not
// ring out. Goes through teardown: a remote stream delivered while ringing
// must be released like any other exit.
func (s *Session) abortRinging() {
	peer := s.peer
	s.teardown()
	s.signal.RejectCall(peer)
}

// HandleAnswer applies the callee's answer. Stale answers (session no longer
// calling) are silently ignored.
func (s *Session) HandleAnswer(answer webrtc.SessionDescription) error {
	if s.status != StatusCalling {
		return nil
	}
	if err := s.neg.ApplyAnswer(answer); err != nil {
		// Negotiation failure is handled like a hangup.
		s.teardown()
		return fmt.Errorf("apply answer: %w", err)
	}
	s.remoteApplied = true
	s.flushCandidates()
	s.status = StatusConnected
	return nil
}

// HandleUnreachable reacts to the relay's reply that the callee has no live
// connection. Only meaningful while calling.
func (s *Session) HandleUnreachable(uid domain.UserID) {
	if s.status != StatusCalling || uid != s.peer {
		return
	}
	s.teardown()
}

// HandleRemoteCandidate applies a candidate from the peer. Candidates may
// outrun the answer; they are buffered until a remote description is set.
// Arrival in idle means the call is already over and the candidate is stale.
func (s *Session) HandleRemoteCandidate(cand webrtc.ICECandidateInit) {
	if s.status == StatusIdle {
		return
	}
	if !s.remoteApplied || s.neg == nil {
		s.pendingCands = append(s.pendingCands, cand)
		return
	}
	if err := s.neg.AddCandidate(cand); err != nil {
		log.Warn().Err(err).Str("module", "call").Msg("add remote candidate")
	}
}

// HandleLocalCandidate forwards a locally gathered candidate to the peer.
func (s *Session) HandleLocalCandidate(cand webrtc.ICECandidateInit) {
	switch s.status {
	case StatusCalling, StatusRinging, StatusConnecting, StatusConnected:
		s.signal.SendCandidate(s.peer, cand)
	}
}

// HandleRemoteStream takes ownership of the peer's media stream.
func (s *Session) HandleRemoteStream(ms MediaStream) {
	if s.status == StatusIdle {
		ms.Stop()
		return
	}
	if s.remote != nil {
		s.remote.Stop()
	}
	s.remote = ms
}

// HandleTransportConnected completes the callee side once the transport
// reports connectivity.
func (s *Session) HandleTransportConnected() {
	if s.status == StatusConnecting {
		s.status = StatusConnected
	}
}

// HandleTransportFailed treats a failed or disconnected transport like an
// explicit hangup.
func (s *Session) HandleTransportFailed() {
	if s.status == StatusIdle {
		return
	}
	s.teardown()
}

// HandlePeerEnded reacts to call-ended or call-rejected from the peer. A
// session already idle no longer recognizes the call; the event is stale and
// dropped, never an error.
func (s *Session) HandlePeerEnded() {
	if s.status == StatusIdle {
		return
	}
	s.teardown()
}

// HangUp is unconditionally accepted from any non-idle state.
func (s *Session) HangUp() {
	if s.status == StatusIdle {
		return
	}
	peer := s.peer
	s.teardown()
	s.signal.EndCall(peer)
}

func (s *Session) flushCandidates() {
	for _, cand := range s.pendingCands {
		if err := s.neg.AddCandidate(cand); err != nil {
			log.Warn().Err(err).Str("module", "call").Msg("flush buffered candidate")
		}
	}
	s.pendingCands = nil
}

// teardown releases local and remote media and closes the negotiation handle,
// each exactly once, then re-enters idle.
func (s *Session) teardown() {
	s.status = StatusEnded
	if s.local != nil {
		s.local.Stop()
	}
	if s.remote != nil {
		s.remote.Stop()
	}
	if s.neg != nil {
		s.neg.Close()
	}
	s.reset()
}

func (s *Session) reset() {
	s.local = nil
	s.remote = nil
	s.neg = nil
	s.peer = ""
	s.kind = ""
	s.remoteApplied = false
	s.pendingOffer = webrtc.SessionDescription{}
	s.pendingCands = nil
	s.status = StatusIdle
}
