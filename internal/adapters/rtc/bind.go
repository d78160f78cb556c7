package rtc

import (
	"github.com/pion/webrtc/v4"

	"github.com/circletalk/circletalk/internal/app/call"
)

// Bind routes the negotiator's transport callbacks into the session. The
// session is not safe for concurrent use and pion fires callbacks on its own
// goroutines, so run must serialize delivery onto the goroutine driving the
// session (an event-loop channel, or an inline call in tests).
func Bind(n *Negotiator, s *call.Session, run func(func())) {
	n.OnLocalCandidate(func(cand webrtc.ICECandidateInit) {
		run(func() { s.HandleLocalCandidate(cand) })
	})
	n.OnConnected(func() {
		run(func() { s.HandleTransportConnected() })
	})
	n.OnFailed(func() {
		run(func() { s.HandleTransportFailed() })
	})
}

// Factory adapts NewNegotiator to the session's factory port. bind is invoked
// on every new handle before the session negotiates with it; pass a closure
// that calls Bind against the owning session.
func Factory(cfg webrtc.Configuration, bind func(*Negotiator)) call.NegotiatorFactory {
	return func() (call.Negotiator, error) {
		n, err := NewNegotiator(cfg)
		if err != nil {
			return nil, err
		}
		if bind != nil {
			bind(n)
		}
		return n, nil
	}
}
