package memstore

import (
	"context"
	"sync"
	"time"

	"agora/internal/domain"
)

// SessionStore serializes every mutation for a given (participant, domain)
// key behind one mutex, which makes Consume a single-writer operation and
// rules out lost updates.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]domain.Session),
	}
}

func sessionKey(participantID, dom string) string {
	return participantID + ":" + dom
}

func (s *SessionStore) GetActive(ctx context.Context, participantID, dom string, now time.Time) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionKey(participantID, dom)]
	if !ok || session.Expired(now) {
		return nil, domain.ErrNotFound
	}
	out := session
	return &out, nil
}

func (s *SessionStore) Replace(ctx context.Context, session domain.Session) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey(session.ParticipantID, session.Domain)
	if existing, ok := s.sessions[key]; ok && !existing.Expired(session.CreatedAt) {
		out := existing
		return &out, nil
	}
	s.sessions[key] = session
	out := session
	return &out, nil
}

func (s *SessionStore) Consume(ctx context.Context, participantID, dom string, now time.Time) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey(participantID, dom)
	session, ok := s.sessions[key]
	if !ok || session.Expired(now) {
		return nil, domain.ErrNotFound
	}
	if session.Exhausted() {
		return nil, domain.ErrBudgetExhausted
	}
	session.QueriesUsed++
	s.sessions[key] = session
	out := session
	return &out, nil
}

var _ domain.SessionStore = (*SessionStore)(nil)
