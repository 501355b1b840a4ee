package router

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gabrielmiguelok/stepform/pkg/core"
	"github.com/gabrielmiguelok/stepform/pkg/logging"
	"github.com/gabrielmiguelok/stepform/pkg/transport"
)

// LiveSession binds one WebSocket connection to one component instance.
type LiveSession struct {
	ID        string
	Path      string
	Component core.Component
	Socket    *core.Socket
	Transport transport.Transport
	Params    core.Params
	Session   core.Session
	CreatedAt time.Time

	logger  logging.Logger
	mounted atomic.Bool
}

// Mounted reports whether the component has been mounted.
func (s *LiveSession) Mounted() bool {
	return s.mounted.Load()
}

// SessionManager tracks live sessions.
type SessionManager struct {
	sessions map[string]*LiveSession
	onChange func(active int)
	mu       sync.RWMutex
}

// NewSessionManager creates an empty manager. onChange, if set, receives
// the active count after every add and remove.
func NewSessionManager(onChange func(active int)) *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*LiveSession),
		onChange: onChange,
	}
}

// Add registers a session.
func (m *SessionManager) Add(s *LiveSession) {
	m.mu.Lock()
	m.sessions[s.ID] = s
	n := len(m.sessions)
	m.mu.Unlock()
	m.notify(n)
}

// Remove forgets a session.
func (m *SessionManager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()
	m.notify(n)
}

// Get retrieves a session by ID.
func (m *SessionManager) Get(id string) (*LiveSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Count returns the number of active sessions.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseAll closes every session's transport and waits for the sessions to
// unregister or ctx to end.
func (m *SessionManager) CloseAll(ctx context.Context) error {
	m.mu.RLock()
	all := make([]*LiveSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.RUnlock()

	for _, s := range all {
		s.Transport.Close()
	}

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for m.Count() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (m *SessionManager) notify(n int) {
	if m.onChange != nil {
		m.onChange(n)
	}
}
