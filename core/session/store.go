package session

import (
	"sync"
	"time"
)

// Session is the in-memory record behind one session_token cookie.
// Sessions are deliberately not persisted: a process restart logs
// everyone out.
type Session struct {
	Token     string
	UserID    int64
	CreatedAt time.Time
	PageToken string
}

func (s *Session) ExpiredAt(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.CreatedAt) > ttl
}

// Store holds active sessions keyed by opaque token.
type Store interface {
	Save(sess *Session)
	Get(token string) *Session
	Delete(token string)
	SetPageToken(token, pageToken string) bool
	DeleteExpired(now time.Time, ttl time.Duration) int
	Len() int
}

type memoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewMemoryStore() Store {
	return &memoryStore{sessions: make(map[string]*Session)}
}

func (m *memoryStore) Save(sess *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *sess
	m.sessions[sess.Token] = &cp
}

func (m *memoryStore) Get(token string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[token]
	if !ok {
		return nil
	}
	cp := *sess
	return &cp
}

func (m *memoryStore) Delete(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

func (m *memoryStore) SetPageToken(token, pageToken string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[token]
	if !ok {
		return false
	}
	sess.PageToken = pageToken
	return true
}

func (m *memoryStore) DeleteExpired(now time.Time, ttl time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for token, sess := range m.sessions {
		if sess.ExpiredAt(now, ttl) {
			delete(m.sessions, token)
			removed++
		}
	}
	return removed
}

func (m *memoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
