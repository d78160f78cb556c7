// Package rtc adapts a pion PeerConnection to the call session's negotiation
// handle. Descriptions and candidates are created here and passed through the
// relay opaquely.
package rtc

import (
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

func DefaultConfig() webrtc.Configuration {
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: []string{"stun:stun.l.google.com:19302"},
			},
		},
	}
}

type Negotiator struct {
	pc        *webrtc.PeerConnection
	closeOnce sync.Once

	onCandidate func(webrtc.ICECandidateInit)
	onConnected func()
	onFailed    func()
	onTrack     func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver)
}

func NewNegotiator(cfg webrtc.Configuration) (*Negotiator, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	n := &Negotiator{pc: pc}

	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand != nil && n.onCandidate != nil {
			n.onCandidate(cand.ToJSON())
		}
	})

	pc.OnConnectionStateChange(n.handleStateChange)

	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		log.Info().
			Str("module", "rtc").
			Str("kind", track.Kind().String()).
			Str("track_id", track.ID()).
			Msg("remote track")
		if n.onTrack != nil {
			n.onTrack(track, receiver)
		}
	})

	return n, nil
}

// handleStateChange folds the transport states down to the two the session
// cares about: connected, and everything that ends the call.
func (n *Negotiator) handleStateChange(s webrtc.PeerConnectionState) {
	log.Info().Str("module", "rtc").Str("peer_connection_state", s.String()).Msg("peer state")
	switch s {
	case webrtc.PeerConnectionStateConnected:
		if n.onConnected != nil {
			n.onConnected()
		}
	case webrtc.PeerConnectionStateFailed,
		webrtc.PeerConnectionStateDisconnected,
		webrtc.PeerConnectionStateClosed:
		if n.onFailed != nil {
			n.onFailed()
		}
	}
}

// Callback setters must be called before negotiation starts.

func (n *Negotiator) OnLocalCandidate(fn func(webrtc.ICECandidateInit)) { n.onCandidate = fn }

func (n *Negotiator) OnConnected(fn func()) { n.onConnected = fn }

func (n *Negotiator) OnFailed(fn func()) { n.onFailed = fn }
func (n *Negotiator) OnTrack(fn func(*webrtc.TrackRemote, *webrtc.RTPReceiver)) {
	n.onTrack = fn
}

func (n *Negotiator) CreateOffer() (webrtc.SessionDescription, error) {
	offer, err := n.pc.CreateOffer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	if err := n.pc.SetLocalDescription(offer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	return offer, nil
}

func (n *Negotiator) CreateAnswer(remote webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	if err := n.pc.SetRemoteDescription(remote); err != nil {
		return webrtc.SessionDescription{}, err
	}
	answer, err := n.pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	if err := n.pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	return answer, nil
}

func (n *Negotiator) ApplyAnswer(remote webrtc.SessionDescription) error {
	return n.pc.SetRemoteDescription(remote)
}

func (n *Negotiator) AddCandidate(cand webrtc.ICECandidateInit) error {
	return n.pc.AddICECandidate(cand)
}

// AddLocalTrack attaches a local capture track to the underlying connection.
func (n *Negotiator) AddLocalTrack(track webrtc.TrackLocal) (*webrtc.RTPSender, error) {
	return n.pc.AddTrack(track)
}

// Close is safe to call more than once; only the first closes the connection.
func (n *Negotiator) Close() {
	n.closeOnce.Do(func() {
		if err := n.pc.Close(); err != nil {
			log.Error().Err(err).Str("module", "rtc").Msg("close peer connection")
		}
	})
}
