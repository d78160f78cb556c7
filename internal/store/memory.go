package store

import (
	"sort"
	"strings"
	"sync"

	"github.com/circletalk/circletalk/internal/domain"
)

// Memory bundles the in-process implementations of the store boundary. All
// returned entities are copies; callers persist changes through Update.
type Memory struct {
	Users    *MemoryUsers
	Requests *MemoryRequests
	Messages *MemoryMessages
}

func NewMemory() *Memory {
	return &Memory{
		Users: &MemoryUsers{
			users:   make(map[domain.UserID]*domain.User),
			byEmail: make(map[string]domain.UserID),
		},
		Requests: &MemoryRequests{
			requests: make(map[domain.RequestID]*domain.FriendRequest),
		},
		Messages: &MemoryMessages{},
	}
}

type MemoryUsers struct {
	mu      sync.RWMutex
	users   map[domain.UserID]*domain.User
	byEmail map[string]domain.UserID
}

func copyUser(u *domain.User) *domain.User {
	cp := *u
	cp.Friends = append([]domain.UserID(nil), u.Friends...)
	return &cp
}

func (m *MemoryUsers) Create(u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := strings.ToLower(u.Email)
	if _, ok := m.byEmail[email]; ok {
		return ErrDuplicateEmail
	}
	m.users[u.ID] = copyUser(u)
	m.byEmail[email] = u.ID
	return nil
}

func (m *MemoryUsers) ByID(id domain.UserID) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (m *MemoryUsers) ByEmail(email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(m.users[id]), nil
}

func (m *MemoryUsers) Update(u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return ErrNotFound
	}
	m.users[u.ID] = copyUser(u)
	return nil
}

func (m *MemoryUsers) List() []*domain.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, copyUser(u))
	}
	return out
}

func (m *MemoryUsers) AddFriendEdge(a, b domain.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ua, ok := m.users[a]
	if !ok {
		return ErrNotFound
	}
	ub, ok := m.users[b]
	if !ok {
		return ErrNotFound
	}
	ua.AddFriend(b)
	ub.AddFriend(a)
	return nil
}

type MemoryRequests struct {
	mu       sync.RWMutex
	requests map[domain.RequestID]*domain.FriendRequest
}

func copyRequest(r *domain.FriendRequest) *domain.FriendRequest {
	cp := *r
	return &cp
}

func (m *MemoryRequests) Create(r *domain.FriendRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[r.ID] = copyRequest(r)
	return nil
}

func (m *MemoryRequests) ByID(id domain.RequestID) (*domain.FriendRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRequest(r), nil
}

func (m *MemoryRequests) Update(r *domain.FriendRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.requests[r.ID]; !ok {
		return ErrNotFound
	}
	m.requests[r.ID] = copyRequest(r)
	return nil
}

func (m *MemoryRequests) Between(a, b domain.UserID) (*domain.FriendRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.requests {
		if (r.Sender == a && r.Recipient == b) || (r.Sender == b && r.Recipient == a) {
			return copyRequest(r), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryRequests) ByRecipient(uid domain.UserID, status domain.RequestStatus) []*domain.FriendRequest {
	return m.filter(func(r *domain.FriendRequest) bool {
		return r.Recipient == uid && r.Status == status
	})
}

func (m *MemoryRequests) BySender(uid domain.UserID, status domain.RequestStatus) []*domain.FriendRequest {
	return m.filter(func(r *domain.FriendRequest) bool {
		return r.Sender == uid && r.Status == status
	})
}

func (m *MemoryRequests) Involving(uid domain.UserID, status domain.RequestStatus) []*domain.FriendRequest {
	return m.filter(func(r *domain.FriendRequest) bool {
		return r.Involves(uid) && r.Status == status
	})
}

func (m *MemoryRequests) filter(keep func(*domain.FriendRequest) bool) []*domain.FriendRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.FriendRequest
	for _, r := range m.requests {
		if keep(r) {
			out = append(out, copyRequest(r))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

type MemoryMessages struct {
	mu       sync.RWMutex
	messages []*domain.Message
}

func (m *MemoryMessages) Create(msg *domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *msg
	m.messages = append(m.messages, &cp)
	return nil
}

func (m *MemoryMessages) Between(a, b domain.UserID) []*domain.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.Message
	for _, msg := range m.messages {
		if (msg.Sender == a && msg.Recipient == b) || (msg.Sender == b && msg.Recipient == a) {
			cp := *msg
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *MemoryMessages) MarkRead(sender, recipient domain.UserID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.Sender == sender && msg.Recipient == recipient {
			msg.Read = true
		}
	}
}

func (m *MemoryMessages) UnreadCount(recipient domain.UserID) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, msg := range m.messages {
		if msg.Recipient == recipient && !msg.Read {
			n++
		}
	}
	return n
}
