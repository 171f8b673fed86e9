package domain

import (
	"context"
	"time"
)

// Session is a time-boxed privacy budget for one (participant, domain) pair.
// MaxQueries is frozen at creation; quota changes apply on the next session.
type Session struct {
	ID            string
	ParticipantID string
	Domain        string
	QueriesUsed   int
	MaxQueries    int
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func (s Session) Exhausted() bool {
	return s.QueriesUsed >= s.MaxQueries
}

func (s Session) Remaining() int {
	remaining := s.MaxQueries - s.QueriesUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// SessionStore persists sessions keyed by (participantID, domain). At most
// one unexpired session exists per key; expired sessions are replaced, never
// extended.
type SessionStore interface {
	// GetActive returns the unexpired session for the key, or ErrNotFound.
	GetActive(ctx context.Context, participantID, domain string, now time.Time) (*Session, error)

	// Replace installs the given session if the key has no unexpired
	// session, and returns whichever session is active afterwards. Under a
	// racing create, the store keeps exactly one winner.
	Replace(ctx context.Context, session Session) (*Session, error)

	// Consume atomically increments QueriesUsed for the active session.
	// It returns the post-increment session, ErrNotFound when no unexpired
	// session exists, or ErrBudgetExhausted when the ceiling is reached.
	// QueriesUsed never exceeds MaxQueries in the stored record.
	Consume(ctx context.Context, participantID, domain string, now time.Time) (*Session, error)
}
