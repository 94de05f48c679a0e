package orchestrator

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/entity"
)

type sessionKey struct {
	role    entity.ActorRole
	actorID uuid.UUID
}

// Manager keeps one live session per actor, restoring it on first use.
type Manager struct {
	deps Deps

	mu       sync.Mutex
	sessions map[sessionKey]*Session
}

func NewManager(deps Deps) *Manager {
	return &Manager{deps: deps, sessions: make(map[sessionKey]*Session)}
}

func (m *Manager) Session(ctx context.Context, role entity.ActorRole, actorID uuid.UUID) (*Session, error) {
	if role != entity.ActorClient && role != entity.ActorProvider {
		return nil, ErrWrongRole
	}
	key := sessionKey{role: role, actorID: actorID}

	m.mu.Lock()
	if s, ok := m.sessions[key]; ok {
		m.mu.Unlock()
		return s, nil
	}
	s := NewSession(role, actorID, m.deps)
	m.sessions[key] = s
	m.mu.Unlock()

	if _, err := s.Restore(ctx); err != nil {
		m.mu.Lock()
		delete(m.sessions, key)
		m.mu.Unlock()
		s.Close()
		return nil, err
	}
	return s, nil
}

func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[sessionKey]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
