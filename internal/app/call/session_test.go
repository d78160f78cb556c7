package call

import (
	"errors"
	"testing"

	"github.com/pion/webrtc/v4"

	"github.com/circletalk/circletalk/internal/domain"
)

type fakeStream struct {
	stops int
}

func (f *fakeStream) Stop() { f.stops++ }

type fakeMedia struct {
	err      error
	acquired []*fakeStream
}

func (m *fakeMedia) Acquire(kind domain.CallType) (MediaStream, error) {
	if m.err != nil {
		return nil, m.err
	}
	s := &fakeStream{}
	m.acquired = append(m.acquired, s)
	return s, nil
}

type fakeNeg struct {
	closes     int
	offerErr   error
	applied    []webrtc.SessionDescription
	candidates []webrtc.ICECandidateInit
}

func (n *fakeNeg) CreateOffer() (webrtc.SessionDescription, error) {
	if n.offerErr != nil {
		return webrtc.SessionDescription{}, n.offerErr
	}
	return webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "offer-sdp"}, nil
}

func (n *fakeNeg) CreateAnswer(remote webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	n.applied = append(n.applied, remote)
	return webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "answer-sdp"}, nil
}

func (n *fakeNeg) ApplyAnswer(remote webrtc.SessionDescription) error {
	n.applied = append(n.applied, remote)
	return nil
}

func (n *fakeNeg) AddCandidate(c webrtc.ICECandidateInit) error {
	n.candidates = append(n.candidates, c)
	return nil
}

func (n *fakeNeg) Close() { n.closes++ }

type sentOffer struct {
	to    domain.UserID
	offer webrtc.SessionDescription
	kind  domain.CallType
}

type sentCandidate struct {
	to   domain.UserID
	cand webrtc.ICECandidateInit
}

type fakeSignaler struct {
	offers     []sentOffer
	answers    []domain.UserID
	lastAnswer webrtc.SessionDescription
	candidates []sentCandidate
	rejects    []domain.UserID
	ends       []domain.UserID
}

func (s *fakeSignaler) CallUser(to domain.UserID, offer webrtc.SessionDescription, kind domain.CallType) {
	s.offers = append(s.offers, sentOffer{to: to, offer: offer, kind: kind})
}

func (s *fakeSignaler) AnswerCall(to domain.UserID, answer webrtc.SessionDescription) {
	s.answers = append(s.answers, to)
	s.lastAnswer = answer
}

func (s *fakeSignaler) SendCandidate(to domain.UserID, cand webrtc.ICECandidateInit) {
	s.candidates = append(s.candidates, sentCandidate{to: to, cand: cand})
}

func (s *fakeSignaler) RejectCall(to domain.UserID) { s.rejects = append(s.rejects, to) }
func (s *fakeSignaler) EndCall(to domain.UserID)    { s.ends = append(s.ends, to) }

type peer struct {
	session *Session
	media   *fakeMedia
	neg     *fakeNeg
	signal  *fakeSignaler
}

func newPeer(t *testing.T, self domain.UserID) *peer {
	t.Helper()
	p := &peer{
		media:  &fakeMedia{},
		neg:    &fakeNeg{},
		signal: &fakeSignaler{},
	}
	p.session = NewSession(self, p.media, func() (Negotiator, error) { return p.neg, nil }, p.signal)
	return p
}

func TestInitiateSendsOffer(t *testing.T) {
	alice := newPeer(t, "alice")

	if err := alice.session.Initiate("bob", domain.CallVideo); err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if got := alice.session.Status(); got != StatusCalling {
		t.Fatalf("status = %s; want calling", got)
	}
	if len(alice.signal.offers) != 1 {
		t.Fatalf("offers sent = %d; want 1", len(alice.signal.offers))
	}
	sent := alice.signal.offers[0]
	if sent.to != "bob" || sent.kind != domain.CallVideo || sent.offer.SDP != "offer-sdp" {
		t.Fatalf("offer = %+v; want bob/video/offer-sdp", sent)
	}
	if alice.session.LocalStream() == nil {
		t.Fatal("local stream must be held while calling")
	}
}

func TestInitiateMediaFailureStaysIdle(t *testing.T) {
	alice := newPeer(t, "alice")
	alice.media.err = errors.New("permission denied")

	err := alice.session.Initiate("bob", domain.CallAudio)
	if err == nil {
		t.Fatal("Initiate must surface the media error")
	}
	if got := alice.session.Status(); got != StatusIdle {
		t.Fatalf("status = %s; want idle after media failure", got)
	}
	if len(alice.signal.offers) != 0 {
		t.Fatal("no offer may be sent when media acquisition fails")
	}
	if alice.neg.closes != 0 {
		t.Fatal("negotiation handle was never created, nothing to close")
	}
}

func TestInitiateWhileBusy(t *testing.T) {
	alice := newPeer(t, "alice")
	if err := alice.session.Initiate("bob", domain.CallAudio); err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if err := alice.session.Initiate("carol", domain.CallAudio); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Initiate = %v; want ErrBusy", err)
	}
}

// A call-rejected while calling returns to idle and releases media exactly
// once; a stale call-ended afterwards must not double-release.
func TestRejectedWhileCallingReleasesOnce(t *testing.T) {
	alice := newPeer(t, "alice")
	if err := alice.session.Initiate("bob", domain.CallVideo); err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	alice.session.HandlePeerEnded()

	if got := alice.session.Status(); got != StatusIdle {
		t.Fatalf("status = %s; want idle after reject", got)
	}
	stream := alice.media.acquired[0]
	if stream.stops != 1 {
		t.Fatalf("local stream stops = %d; want exactly 1", stream.stops)
	}
	if alice.neg.closes != 1 {
		t.Fatalf("negotiator closes = %d; want exactly 1", alice.neg.closes)
	}

	// Stale call-ended for the same call.
	alice.session.HandlePeerEnded()
	if stream.stops != 1 || alice.neg.closes != 1 {
		t.Fatalf("stale event double-released: stops=%d closes=%d", stream.stops, alice.neg.closes)
	}
}

func TestUnreachableReturnsToIdleWithoutCandidates(t *testing.T) {
	alice := newPeer(t, "alice")
	if err := alice.session.Initiate("bob", domain.CallVideo); err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	alice.session.HandleUnreachable("bob")

	if got := alice.session.Status(); got != StatusIdle {
		t.Fatalf("status = %s; want idle", got)
	}
	if len(alice.signal.candidates) != 0 {
		t.Fatalf("candidates sent = %d; want none before answer", len(alice.signal.candidates))
	}
	if alice.media.acquired[0].stops != 1 {
		t.Fatal("local media must be released")
	}

	// Unreachable for a different user is stale and ignored.
	if err := alice.session.Initiate("carol", domain.CallAudio); err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	alice.session.HandleUnreachable("bob")
	if got := alice.session.Status(); got != StatusCalling {
		t.Fatalf("status = %s; want calling, stale unreachable ignored", got)
	}
}

func TestIncomingOfferRingsAndBusyRejects(t *testing.T) {
	bob := newPeer(t, "bob")
	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "alice-offer"}

	bob.session.HandleIncomingOffer("alice", offer, domain.CallVideo)
	if got := bob.session.Status(); got != StatusRinging {
		t.Fatalf("status = %s; want ringing", got)
	}
	if got := bob.session.Peer(); got != "alice" {
		t.Fatalf("peer = %s; want alice", got)
	}

	// Second caller while ringing gets an immediate reject.
	bob.session.HandleIncomingOffer("carol", offer, domain.CallAudio)
	if len(bob.signal.rejects) != 1 || bob.signal.rejects[0] != "carol" {
		t.Fatalf("rejects = %v; want [carol]", bob.signal.rejects)
	}
	if got := bob.session.Peer(); got != "alice" {
		t.Fatal("ringing call must be unaffected by the busy reject")
	}
}

func TestAcceptSendsAnswer(t *testing.T) {
	bob := newPeer(t, "bob")
	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "alice-offer"}
	bob.session.HandleIncomingOffer("alice", offer, domain.CallVideo)

	if err := bob.session.Accept(); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if got := bob.session.Status(); got != StatusConnecting {
		t.Fatalf("status = %s; want connecting", got)
	}
	if len(bob.signal.answers) != 1 || bob.signal.answers[0] != "alice" {
		t.Fatalf("answers = %v; want [alice]", bob.signal.answers)
	}
	if len(bob.neg.applied) != 1 || bob.neg.applied[0].SDP != "alice-offer" {
		t.Fatalf("remote offer not applied: %+v", bob.neg.applied)
	}

	bob.session.HandleTransportConnected()
	if got := bob.session.Status(); got != StatusConnected {
		t.Fatalf("status = %s; want connected after transport", got)
	}
}

func TestAcceptMediaFailureAbortsToIdle(t *testing.T) {
	bob := newPeer(t, "bob")
	bob.media.err = errors.New("camera busy")
	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "alice-offer"}
	bob.session.HandleIncomingOffer("alice", offer, domain.CallVideo)

	if err := bob.session.Accept(); err == nil {
		t.Fatal("Accept must surface the media error")
	}
	if got := bob.session.Status(); got != StatusIdle {
		t.Fatalf("status = %s; want idle after failed accept", got)
	}
	// Caller is told instead of ringing out.
	if len(bob.signal.rejects) != 1 || bob.signal.rejects[0] != "alice" {
		t.Fatalf("rejects = %v; want [alice]", bob.signal.rejects)
	}
}

func TestRejectWhileRinging(t *testing.T) {
	bob := newPeer(t, "bob")
	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "alice-offer"}
	bob.session.HandleIncomingOffer("alice", offer, domain.CallAudio)

	bob.session.Reject()
	if got := bob.session.Status(); got != StatusIdle {
		t.Fatalf("status = %s; want idle", got)
	}
	if len(bob.signal.rejects) != 1 || bob.signal.rejects[0] != "alice" {
		t.Fatalf("rejects = %v; want [alice]", bob.signal.rejects)
	}
	if len(bob.media.acquired) != 0 {
		t.Fatal("no media may be acquired before accept")
	}
}

// A remote stream can arrive while still ringing; declining the call must
// release it like any other exit to idle.
func TestRejectReleasesEarlyRemoteStream(t *testing.T) {
	bob := newPeer(t, "bob")
	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "alice-offer"}
	bob.session.HandleIncomingOffer("alice", offer, domain.CallVideo)

	remote := &fakeStream{}
	bob.session.HandleRemoteStream(remote)

	bob.session.Reject()

	if got := bob.session.Status(); got != StatusIdle {
		t.Fatalf("status = %s; want idle", got)
	}
	if remote.stops != 1 {
		t.Fatalf("remote stream stops = %d; want exactly 1", remote.stops)
	}
	if bob.session.RemoteStream() != nil {
		t.Fatal("remote stream must be dropped on reject")
	}
}

func TestCandidateBufferedUntilAnswerApplied(t *testing.T) {
	alice := newPeer(t, "alice")
	if err := alice.session.Initiate("bob", domain.CallVideo); err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	early := webrtc.ICECandidateInit{Candidate: "early"}
	alice.session.HandleRemoteCandidate(early)
	if len(alice.neg.candidates) != 0 {
		t.Fatal("candidate must be buffered before the answer arrives")
	}

	answer := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "bob-answer"}
	if err := alice.session.HandleAnswer(answer); err != nil {
		t.Fatalf("HandleAnswer: %v", err)
	}
	if got := alice.session.Status(); got != StatusConnected {
		t.Fatalf("status = %s; want connected", got)
	}
	if len(alice.neg.candidates) != 1 || alice.neg.candidates[0].Candidate != "early" {
		t.Fatalf("buffered candidate not flushed: %v", alice.neg.candidates)
	}

	late := webrtc.ICECandidateInit{Candidate: "late"}
	alice.session.HandleRemoteCandidate(late)
	if len(alice.neg.candidates) != 2 {
		t.Fatal("post-answer candidate must be applied directly")
	}
}

func TestCandidateInIdleDiscarded(t *testing.T) {
	alice := newPeer(t, "alice")
	alice.session.HandleRemoteCandidate(webrtc.ICECandidateInit{Candidate: "stale"})
	if len(alice.neg.candidates) != 0 {
		t.Fatal("idle session must discard stale candidates")
	}
}

func TestHangUpSendsEndAndReleases(t *testing.T) {
	alice := newPeer(t, "alice")
	if err := alice.session.Initiate("bob", domain.CallVideo); err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	alice.session.HangUp()

	if got := alice.session.Status(); got != StatusIdle {
		t.Fatalf("status = %s; want idle", got)
	}
	if len(alice.signal.ends) != 1 || alice.signal.ends[0] != "bob" {
		t.Fatalf("ends = %v; want [bob]", alice.signal.ends)
	}
	if alice.neg.closes != 1 {
		t.Fatalf("negotiator closes = %d; want 1", alice.neg.closes)
	}

	// Hanging up in idle is a no-op.
	alice.session.HangUp()
	if len(alice.signal.ends) != 1 {
		t.Fatal("idle hangup must not signal")
	}
}

func TestTransportFailureTreatedAsHangup(t *testing.T) {
	alice := newPeer(t, "alice")
	if err := alice.session.Initiate("bob", domain.CallVideo); err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if err := alice.session.HandleAnswer(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: "a"}); err != nil {
		t.Fatalf("HandleAnswer: %v", err)
	}

	alice.session.HandleTransportFailed()

	if got := alice.session.Status(); got != StatusIdle {
		t.Fatalf("status = %s; want idle", got)
	}
	if alice.media.acquired[0].stops != 1 {
		t.Fatal("media must be released on transport failure")
	}
	if len(alice.signal.ends) != 0 {
		t.Fatal("transport failure must not send call-ended")
	}
}

// Full two-peer walk: alice calls bob, bob accepts, both end up connected and
// holding the other's stream.
func TestTwoPeerConnectScenario(t *testing.T) {
	alice := newPeer(t, "alice")
	bob := newPeer(t, "bob")

	if err := alice.session.Initiate("bob", domain.CallVideo); err != nil {
		t.Fatalf("alice Initiate: %v", err)
	}
	sent := alice.signal.offers[0]

	bob.session.HandleIncomingOffer("alice", sent.offer, sent.kind)
	if got := bob.session.Status(); got != StatusRinging {
		t.Fatalf("bob status = %s; want ringing", got)
	}

	if err := bob.session.Accept(); err != nil {
		t.Fatalf("bob Accept: %v", err)
	}
	if got := bob.session.Status(); got != StatusConnecting {
		t.Fatalf("bob status = %s; want connecting", got)
	}

	if err := alice.session.HandleAnswer(bob.signal.lastAnswer); err != nil {
		t.Fatalf("alice HandleAnswer: %v", err)
	}
	if got := alice.session.Status(); got != StatusConnected {
		t.Fatalf("alice status = %s; want connected", got)
	}

	bob.session.HandleTransportConnected()
	if got := bob.session.Status(); got != StatusConnected {
		t.Fatalf("bob status = %s; want connected", got)
	}

	alice.session.HandleRemoteStream(&fakeStream{})
	bob.session.HandleRemoteStream(&fakeStream{})
	if alice.session.RemoteStream() == nil || bob.session.RemoteStream() == nil {
		t.Fatal("both peers must hold the other's stream")
	}
}

// Alice calls a user who never registered: the unreachable reply returns her
// to idle without ever having sent ICE candidates.
func TestCallUnregisteredTargetScenario(t *testing.T) {
	alice := newPeer(t, "alice")

	if err := alice.session.Initiate("bob", domain.CallVideo); err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	alice.session.HandleUnreachable("bob")

	if got := alice.session.Status(); got != StatusIdle {
		t.Fatalf("status = %s; want idle", got)
	}
	if len(alice.signal.candidates) != 0 {
		t.Fatalf("candidates sent = %d; want none", len(alice.signal.candidates))
	}

	// Local candidates gathered after teardown go nowhere.
	alice.session.HandleLocalCandidate(webrtc.ICECandidateInit{Candidate: "late"})
	if len(alice.signal.candidates) != 0 {
		t.Fatal("idle session must not forward local candidates")
	}
}

func TestLocalCandidateForwardedWhileCalling(t *testing.T) {
	alice := newPeer(t, "alice")
	if err := alice.session.Initiate("bob", domain.CallAudio); err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	alice.session.HandleLocalCandidate(webrtc.ICECandidateInit{Candidate: "host"})
	if len(alice.signal.candidates) != 1 || alice.signal.candidates[0].to != "bob" {
		t.Fatalf("candidates = %+v; want one to bob", alice.signal.candidates)
	}
}
