package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps session items in process memory. A session untouched
// for longer than the TTL is treated as ended and dropped.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
	ttl      time.Duration
	now      func() time.Time
}

type memorySession struct {
	items    map[string]string
	lastSeen time.Time
}

// NewMemoryStore returns a store whose sessions expire after ttl of
// inactivity; ttl <= 0 keeps them for the life of the process.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memorySession),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemoryStore) GetItem(_ context.Context, sessionID, key string) (string, bool, error) {
	if err := validSessionID(sessionID); err != nil {
		return "", false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.liveLocked(sessionID)
	if !ok {
		return "", false, nil
	}
	sess.lastSeen = m.now()
	v, ok := sess.items[key]
	return v, ok, nil
}

func (m *MemoryStore) SetItem(_ context.Context, sessionID, key, value string) error {
	if err := validSessionID(sessionID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.liveLocked(sessionID)
	if !ok {
		sess = &memorySession{items: make(map[string]string)}
		m.sessions[sessionID] = sess
	}
	sess.items[key] = value
	sess.lastSeen = m.now()
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

// liveLocked returns the session unless it has expired, in which case it is
// removed.
func (m *MemoryStore) liveLocked(sessionID string) (*memorySession, bool) {
	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, false
	}
	if m.ttl > 0 && m.now().Sub(sess.lastSeen) > m.ttl {
		delete(m.sessions, sessionID)
		return nil, false
	}
	return sess, true
}

// Sweep drops expired sessions and reports how many were removed.
func (m *MemoryStore) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	now := m.now()
	for id, sess := range m.sessions {
		if now.Sub(sess.lastSeen) > m.ttl {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Len is the number of sessions currently held, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
