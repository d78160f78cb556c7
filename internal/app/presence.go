package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/circletalk/circletalk/internal/core"
	"github.com/circletalk/circletalk/internal/domain"
)

// Presence maps online users to their live signaling connection. Entries are
// unique per user and per connection: registering a user who already has a
// connection replaces the old entry and orphans the old connection, so a late
// disconnect of that connection can never evict the newer registration.
//
// Best-effort presence tracking, not an authoritative membership store; no
// operation here fails.
type Presence struct {
	mu     sync.RWMutex
	byUser map[domain.UserID]core.ConnID
	byConn map[core.ConnID]domain.UserID
}

func NewPresence() *Presence {
	return &Presence{
		byUser: make(map[domain.UserID]core.ConnID),
		byConn: make(map[core.ConnID]domain.UserID),
	}
}

// Register inserts or replaces the entry for uid. It returns the connection
// the user was previously registered on, if any, so the caller can close it.
func (p *Presence) Register(uid domain.UserID, conn core.ConnID) (stale core.ConnID, replaced bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if old, ok := p.byUser[uid]; ok && old != conn {
		delete(p.byConn, old)
		stale, replaced = old, true
	}
	// A connection that re-announces as a different user abandons its old
	// identity.
	if prev, ok := p.byConn[conn]; ok && prev != uid {
		delete(p.byUser, prev)
	}
	p.byUser[uid] = conn
	p.byConn[conn] = uid

	log.Debug().Str("module", "app.presence").Str("user", string(uid)).Str("conn", string(conn)).Msg("registered")
	return stale, replaced
}

// Lookup returns the live connection for uid, if any.
func (p *Presence) Lookup(uid domain.UserID) (core.ConnID, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	conn, ok := p.byUser[uid]
	return conn, ok
}

// UserOf returns the user last registered on conn, if any.
func (p *Presence) UserOf(conn core.ConnID) (domain.UserID, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	uid, ok := p.byConn[conn]
	return uid, ok
}

// Unregister removes the entry owned by conn. It reports the user that went
// offline. A connection that never registered, or whose registration was
// replaced by a newer one, is a no-op.
func (p *Presence) Unregister(conn core.ConnID) (domain.UserID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	uid, ok := p.byConn[conn]
	if !ok {
		return "", false
	}
	delete(p.byConn, conn)
	delete(p.byUser, uid)

	log.Debug().Str("module", "app.presence").Str("user", string(uid)).Str("conn", string(conn)).Msg("unregistered")
	return uid, true
}

// Online snapshots the set of users with a live connection.
func (p *Presence) Online() []domain.UserID {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.UserID, 0, len(p.byUser))
	for uid := range p.byUser {
		out = append(out, uid)
	}
	return out
}

// IsOnline reports whether uid currently has a live connection.
func (p *Presence) IsOnline(uid domain.UserID) bool {
	_, ok := p.Lookup(uid)
	return ok
}
