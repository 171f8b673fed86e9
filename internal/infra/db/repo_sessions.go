package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agora/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) GetActive(ctx context.Context, participantID, dom string, now time.Time) (*domain.Session, error) {
	if r.db == nil {
		return nil, domain.ErrStorageUnavailable
	}
	var model SessionModel
	err := r.db.WithContext(ctx).
		First(&model, "participant_id = ? AND domain = ? AND expires_at > ?", participantID, dom, now).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	session := sessionFromModel(model)
	return &session, nil
}

func (r *SessionRepository) Replace(ctx context.Context, session domain.Session) (*domain.Session, error) {
	if r.db == nil {
		return nil, domain.ErrStorageUnavailable
	}
	model := SessionModel{
		ParticipantID: session.ParticipantID,
		Domain:        session.Domain,
		SessionID:     session.ID,
		QueriesUsed:   session.QueriesUsed,
		MaxQueries:    session.MaxQueries,
		CreatedAt:     session.CreatedAt,
		ExpiresAt:     session.ExpiresAt,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "participant_id"}, {Name: "domain"}},
				DoNothing: true,
			}).
			Create(&model).Error; err != nil {
			return err
		}
		// If the surviving row is expired, reset it in place; the condition
		// keeps concurrent resets from stacking.
		return tx.Model(&SessionModel{}).
			Where("participant_id = ? AND domain = ? AND expires_at <= ?",
				session.ParticipantID, session.Domain, session.CreatedAt).
			Updates(map[string]any{
				"session_id":   session.ID,
				"queries_used": session.QueriesUsed,
				"max_queries":  session.MaxQueries,
				"created_at":   session.CreatedAt,
				"expires_at":   session.ExpiresAt,
			}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return r.GetActive(ctx, session.ParticipantID, session.Domain, session.CreatedAt)
}

func (r *SessionRepository) Consume(ctx context.Context, participantID, dom string, now time.Time) (*domain.Session, error) {
	if r.db == nil {
		return nil, domain.ErrStorageUnavailable
	}
	// Single conditional UPDATE: the queries_used < max_queries guard makes
	// the increment atomic at the row level, so concurrent consumers cannot
	// push the counter past the ceiling.
	res := r.db.WithContext(ctx).Model(&SessionModel{}).
		Where("participant_id = ? AND domain = ? AND expires_at > ? AND queries_used < max_queries",
			participantID, dom, now).
		UpdateColumn("queries_used", gorm.Expr("queries_used + 1"))
	if res.Error != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetActive(ctx, participantID, dom, now); err != nil {
			return nil, err
		}
		return nil, domain.ErrBudgetExhausted
	}
	return r.GetActive(ctx, participantID, dom, now)
}

func sessionFromModel(model SessionModel) domain.Session {
	return domain.Session{
		ID:            model.SessionID,
		ParticipantID: model.ParticipantID,
		Domain:        model.Domain,
		QueriesUsed:   model.QueriesUsed,
		MaxQueries:    model.MaxQueries,
		CreatedAt:     model.CreatedAt,
		ExpiresAt:     model.ExpiresAt,
	}
}

var _ domain.SessionStore = (*SessionRepository)(nil)
