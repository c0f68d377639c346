package handoff

import (
	"context"
	"sync"
	"time"
)

// DefaultIdleTTL drops a session's values after this long without access.
const DefaultIdleTTL = 2 * time.Hour

type memorySession struct {
	values   map[string]string
	lastSeen time.Time
}

// MemoryStore keeps values in process memory with a per-session idle TTL.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore creates a store. ttl <= 0 uses DefaultIdleTTL.
func NewMemoryStore(ttl time.Duration, now func() time.Time) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{sessions: make(map[string]*memorySession), ttl: ttl, now: now}
}

func (m *MemoryStore) Get(_ context.Context, sessionID, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.liveLocked(sessionID)
	if sess == nil {
		return "", ErrNotFound
	}
	v, ok := sess.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) Set(_ context.Context, sessionID, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.liveLocked(sessionID)
	if sess == nil {
		sess = &memorySession{values: make(map[string]string), lastSeen: m.now()}
		m.sessions[sessionID] = sess
	}
	sess.values[key] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.liveLocked(sessionID)
	if sess == nil {
		return nil
	}
	for _, k := range keys {
		delete(sess.values, k)
	}
	return nil
}

// Len returns the number of live sessions.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := m.now()
	n := 0
	for _, s := range m.sessions {
		if now.Sub(s.lastSeen) <= m.ttl {
			n++
		}
	}
	return n
}

// Sweep drops every expired session.
func (m *MemoryStore) Sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, s := range m.sessions {
		if now.Sub(s.lastSeen) > m.ttl {
			delete(m.sessions, id)
		}
	}
}

// liveLocked returns the session touched now, or nil if absent or expired.
func (m *MemoryStore) liveLocked(sessionID string) *memorySession {
	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil
	}
	now := m.now()
	if now.Sub(sess.lastSeen) > m.ttl {
		delete(m.sessions, sessionID)
		return nil
	}
	sess.lastSeen = now
	return sess
}

var _ Store = (*MemoryStore)(nil)
