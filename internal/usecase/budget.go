package usecase

import (
	"context"
	"errors"
	"time"

	"agora/internal/domain"
)

// BudgetService manages time-boxed privacy-budget sessions per
// (participant, domain) pair. Quotas are snapshotted into the session at
// creation; a participant's new quota takes effect when the session rolls
// over, never mid-session.
type BudgetService struct {
	Sessions          domain.SessionStore
	Registry          domain.ParticipantRegistry
	SessionTTL        time.Duration
	DefaultMaxQueries int
	Now               func() time.Time
	NewSessionID      func() (string, error)
}

func NewBudgetService(sessions domain.SessionStore, registry domain.ParticipantRegistry, ttl time.Duration, defaultMaxQueries int, newID func() (string, error)) *BudgetService {
	return &BudgetService{
		Sessions:          sessions,
		Registry:          registry,
		SessionTTL:        ttl,
		DefaultMaxQueries: defaultMaxQueries,
		Now:               time.Now,
		NewSessionID:      newID,
	}
}

// CheckBudget lazily opens a session for the pair and reports whether at
// least one query remains. An expired session is treated as absent and a
// fresh one is created in its place.
func (b *BudgetService) CheckBudget(ctx context.Context, participantID, dom string) (bool, error) {
	session, err := b.getOrCreate(ctx, participantID, dom)
	if err != nil {
		return false, err
	}
	return !session.Exhausted(), nil
}

// Consume spends one query from the active session and returns the
// remaining budget. With no active session there is nothing to spend: the
// call fails closed with ErrBudgetExhausted and remaining 0.
func (b *BudgetService) Consume(ctx context.Context, participantID, dom string) (int, error) {
	session, err := b.Sessions.Consume(ctx, participantID, dom, b.now())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, domain.ErrBudgetExhausted
		}
		return 0, err
	}
	return session.Remaining(), nil
}

// Remaining is a read-only view: it reports the configured maximum when no
// session exists yet, without allocating one.
func (b *BudgetService) Remaining(ctx context.Context, participantID, dom string) (int, error) {
	session, err := b.Sessions.GetActive(ctx, participantID, dom, b.now())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return b.maxFor(ctx, participantID)
		}
		return 0, err
	}
	return session.Remaining(), nil
}

func (b *BudgetService) getOrCreate(ctx context.Context, participantID, dom string) (*domain.Session, error) {
	now := b.now()
	session, err := b.Sessions.GetActive(ctx, participantID, dom, now)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	maxQueries, err := b.maxFor(ctx, participantID)
	if err != nil {
		return nil, err
	}
	id, err := b.newSessionID()
	if err != nil {
		return nil, err
	}
	return b.Sessions.Replace(ctx, domain.Session{
		ID:            id,
		ParticipantID: participantID,
		Domain:        dom,
		QueriesUsed:   0,
		MaxQueries:    maxQueries,
		CreatedAt:     now,
		ExpiresAt:     now.Add(b.SessionTTL),
	})
}

func (b *BudgetService) maxFor(ctx context.Context, participantID string) (int, error) {
	participant, err := b.Registry.Get(ctx, participantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return b.DefaultMaxQueries, nil
		}
		return 0, err
	}
	if participant.MaxQueriesPerSession <= 0 {
		return b.DefaultMaxQueries, nil
	}
	return participant.MaxQueriesPerSession, nil
}

func (b *BudgetService) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

func (b *BudgetService) newSessionID() (string, error) {
	if b.NewSessionID != nil {
		return b.NewSessionID()
	}
	return "", errors.New("session id generator not configured")
}
