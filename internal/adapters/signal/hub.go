package signal

import (
	"sync"

	"github.com/circletalk/circletalk/internal/core"
)

// Hub tracks live connections by ConnID so relay commands can be executed
// against them. It stores the transport contract, not the concrete conn.
type Hub struct {
	mu    sync.RWMutex
	conns map[core.ConnID]core.SignalConnection
}

func NewHub() *Hub {
	return &Hub{conns: make(map[core.ConnID]core.SignalConnection)}
}

func (h *Hub) Add(id core.ConnID, c core.SignalConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[id] = c
}

func (h *Hub) Remove(id core.ConnID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, id)
}

func (h *Hub) Get(id core.ConnID) (core.SignalConnection, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[id]
	return c, ok
}

// Snapshot returns the live connections at this instant; sends happen outside
// the lock.
func (h *Hub) Snapshot() []core.SignalConnection {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]core.SignalConnection, 0, len(h.conns))
	for _, c := range h.conns {
		out = append(out, c)
	}
	return out
}
