package store

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/HimanshuPBohra/chatbotfrontend/internal/conversation"
)

// Factory builds the controller for a new session.
type Factory func(sessionID string) (*conversation.Controller, error)

type session struct {
	ctl      *conversation.Controller
	lastSeen time.Time
}

// MemoryStore keeps one conversation controller per session and forgets
// sessions idle for longer than the TTL.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*session
	factory  Factory
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryStore(factory Factory, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*session),
		factory:  factory,
		ttl:      ttl,
		now:      time.Now,
	}
}

// GetOrCreate returns the session's controller, creating it when the
// session is unknown or expired. created reports which happened.
func (m *MemoryStore) GetOrCreate(sessionID string) (ctl *conversation.Controller, created bool, err error) {
	if sessionID == "" {
		return nil, false, errors.New("store: session id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if s, ok := m.sessions[sessionID]; ok && !m.expired(s, now) {
		s.lastSeen = now
		return s.ctl, false, nil
	}
	ctl, err = m.factory(sessionID)
	if err != nil {
		return nil, false, errors.Wrap(err, "store: create session")
	}
	m.sessions[sessionID] = &session{ctl: ctl, lastSeen: now}
	return ctl, true, nil
}

// Get returns the controller of a live session without creating one.
func (m *MemoryStore) Get(sessionID string) (*conversation.Controller, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, false
	}
	now := m.now()
	if m.expired(s, now) {
		delete(m.sessions, sessionID)
		return nil, false
	}
	s.lastSeen = now
	return s.ctl, true
}

func (m *MemoryStore) Delete(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	return ok
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for id, s := range m.sessions {
		if m.expired(s, now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is done.
func (m *MemoryStore) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.Sweep(); n > 0 {
				log.Debug().Int("sessions", n).Msg("expired sessions removed")
			}
		}
	}
}

func (m *MemoryStore) expired(s *session, now time.Time) bool {
	return m.ttl > 0 && now.Sub(s.lastSeen) > m.ttl
}
