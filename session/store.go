package session

import (
	"sync"

	"bhashakit/core"
)

// Session is one user's ongoing conversation. History is the literal
// transcript replayed to the upstream model; the first primingLen entries are
// the fixed priming prefix and are never evicted.
type Session struct {
	ID         string
	History    []core.ChatMessage
	primingLen int

	mu      sync.Mutex
	waiters int32
}

// PrimingLen returns the length of the session's immutable priming prefix.
func (s *Session) PrimingLen() int {
	return s.primingLen
}

// Store is the session persistence abstraction. Implementations must make
// Get/Put safe for concurrent use and WithLock mutually exclusive per id.
type Store interface {
	Get(id string) (*Session, bool)
	// Put stores the session, creating or replacing the entry for its ID.
	Put(s *Session)
	// WithLock runs fn while holding the per-session lock for id. The session
	// must already exist. Callers bound their own queue depth; WithLock itself
	// queues indefinitely.
	WithLock(id string, fn func(s *Session) error) error
}

// MemoryStore keeps sessions in process memory. Process restart loses all
// sessions; there is no TTL or LRU cap on the session count.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
	}
}

func (m *MemoryStore) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *MemoryStore) Put(s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
}

func (m *MemoryStore) WithLock(id string, fn func(s *Session) error) error {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return core.NewChatError(core.ErrKindUnknown, "unknown session", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s)
}

// Len returns the number of stored sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
