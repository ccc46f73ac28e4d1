package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	vangoerrors "github.com/vango-dev/vango-core/internal/errors"
)

// SessionManager tracks the sessions a server is hosting.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	max      int

	// wg counts running sessions so Shutdown can wait for them.
	wg sync.WaitGroup
}

func newSessionManager(max int) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
		max:      max,
	}
}

// add registers s, failing with ErrMaxSessionsReached at the limit.
func (m *SessionManager) add(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.max > 0 && len(m.sessions) >= m.max {
		return vangoerrors.New("E080").
			WithDetail(fmt.Sprintf("limit %d", m.max)).
			Wrap(ErrMaxSessionsReached)
	}
	m.sessions[s.ID] = s
	m.wg.Add(1)
	return nil
}

func (m *SessionManager) remove(id string) {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		m.wg.Done()
	}
}

// Get returns the session with the given ID, or nil.
func (m *SessionManager) Get(id string) *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[id]
}

// Count returns the number of live sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// IDs returns the live session IDs in sorted order.
func (m *SessionManager) IDs() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// wait returns a channel closed once every session has ended.
func (m *SessionManager) wait() <-chan struct{} {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	return done
}

// generateSessionID creates a cryptographically random session ID.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// SECURITY: Fatal on entropy failure - weak IDs are dangerous
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}
