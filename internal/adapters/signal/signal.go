// Package signal carries call signaling and presence over a persistent
// websocket per client. Inbound frames become typed relay events; the
// commands the relay returns are executed against the hub.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/circletalk/circletalk/internal/app"
	"github.com/circletalk/circletalk/internal/config"
	"github.com/circletalk/circletalk/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Controller struct {
	relay *app.Relay
	hub   *Hub
	cfg   *config.Config
}

func NewController(relay *app.Relay, hub *Hub, cfg *config.Config) *Controller {
	return &Controller{relay: relay, hub: hub, cfg: cfg}
}

type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// HandleSignal upgrades the request and runs the connection's pumps until it
// drops. Presence registration happens later, on the user-online frame.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	connID := core.ConnID(uuid.NewString())
	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}
	ctl.hub.Add(connID, conn)

	log.Info().Str("module", "signal").Str("conn", string(connID)).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn, cancel)
	go ctl.readPump(ctx, connID, conn, cancel)
}
