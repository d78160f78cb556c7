package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/circletalk/circletalk/internal/core"
	"github.com/circletalk/circletalk/internal/domain"
)

const writeWait = 5 * time.Second

func (ctl *Controller) writePump(ctx context.Context, c *wsConn, cancel context.CancelFunc) {
	ticker := time.NewTicker(ctl.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, connID core.ConnID, c *wsConn, cancel context.CancelFunc) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(connID)).Msg("readPump closing")
		cancel()
		c.Close()
		ctl.hub.Remove(connID)
		ctl.execute(ctl.relay.HandleEvent(core.Disconnect{Conn: connID}))
	}()

	c.conn.SetReadLimit(ctl.cfg.ReadLimit)
	readWait := ctl.cfg.PingPeriod * 2
	_ = c.conn.SetReadDeadline(time.Now().Add(readWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("conn", string(connID)).Msg("readPump read error")
				return
			}
			ctl.handleFrame(connID, c, data)
		}
	}
}

func (ctl *Controller) handleFrame(connID core.ConnID, c *wsConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch env.Type {
	case "ping":
		ctl.sendJSON(c, map[string]string{"type": "pong"})
		return
	case core.EvUserOnline:
		var p struct {
			UserID string `json:"userId"`
		}
		if err := json.Unmarshal(data, &p); err != nil || p.UserID == "" {
			log.Error().Str("module", "signal").Msg("bad user-online payload")
			return
		}
		ctl.execute(ctl.relay.HandleEvent(core.UserOnline{
			Conn:   connID,
			UserID: domain.UserID(p.UserID),
		}))
	case core.EvCallUser:
		// "from" in the payload is ignored; the relay resolves the caller
		// from the connection's presence registration.
		var p struct {
			To       string          `json:"to"`
			Offer    json.RawMessage `json:"offer"`
			CallType string          `json:"callType"`
		}
		if err := json.Unmarshal(data, &p); err != nil || p.To == "" {
			log.Error().Str("module", "signal").Msg("bad call-user payload")
			return
		}
		callType, err := domain.ParseCallType(p.CallType)
		if err != nil {
			log.Warn().Str("module", "signal").Str("callType", p.CallType).Msg("unknown call type, defaulting to video")
			callType = domain.CallVideo
		}
		ctl.execute(ctl.relay.HandleEvent(core.CallUser{
			Conn:     connID,
			To:       domain.UserID(p.To),
			Offer:    p.Offer,
			CallType: callType,
		}))
	case core.EvAnswerCall:
		var p struct {
			To     string          `json:"to"`
			Answer json.RawMessage `json:"answer"`
		}
		if err := json.Unmarshal(data, &p); err != nil || p.To == "" {
			log.Error().Str("module", "signal").Msg("bad answer-call payload")
			return
		}
		ctl.execute(ctl.relay.HandleEvent(core.AnswerCall{
			Conn:   connID,
			To:     domain.UserID(p.To),
			Answer: p.Answer,
		}))
	case core.EvICECandidate:
		var p struct {
			To        string          `json:"to"`
			Candidate json.RawMessage `json:"candidate"`
		}
		if err := json.Unmarshal(data, &p); err != nil || p.To == "" {
			log.Error().Str("module", "signal").Msg("bad ice-candidate payload")
			return
		}
		ctl.execute(ctl.relay.HandleEvent(core.CandidateFor{
			Conn:      connID,
			To:        domain.UserID(p.To),
			Candidate: p.Candidate,
		}))
	case core.EvRejectCall:
		var p struct {
			To string `json:"to"`
		}
		if err := json.Unmarshal(data, &p); err != nil || p.To == "" {
			return
		}
		ctl.execute(ctl.relay.HandleEvent(core.RejectCall{Conn: connID, To: domain.UserID(p.To)}))
	case core.EvEndCall:
		var p struct {
			To string `json:"to"`
		}
		if err := json.Unmarshal(data, &p); err != nil || p.To == "" {
			return
		}
		ctl.execute(ctl.relay.HandleEvent(core.EndCall{Conn: connID, To: domain.UserID(p.To)}))
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

// execute performs the relay's side effects against the hub.
func (ctl *Controller) execute(cmds []core.Command) {
	for _, cmd := range cmds {
		switch c := cmd.(type) {
		case core.Send:
			if conn, ok := ctl.hub.Get(c.To); ok {
				ctl.sendJSON(conn, c.Event)
			}
		case core.BroadcastAll:
			b, err := json.Marshal(c.Event)
			if err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("broadcast marshal")
				continue
			}
			for _, conn := range ctl.hub.Snapshot() {
				_ = conn.TrySend(b)
			}
		case core.CloseConn:
			if conn, ok := ctl.hub.Get(c.Conn); ok {
				ctl.hub.Remove(c.Conn)
				conn.Close()
			}
		}
	}
}

func (ctl *Controller) sendJSON(c core.SignalConnection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
