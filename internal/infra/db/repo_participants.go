package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"agora/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ParticipantRepository struct {
	db *gorm.DB
}

func NewParticipantRepository(db *gorm.DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

func (r *ParticipantRepository) Get(ctx context.Context, id string) (*domain.Participant, error) {
	if r.db == nil {
		return nil, domain.ErrStorageUnavailable
	}
	var model ParticipantModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return participantFromModel(model)
}

func (r *ParticipantRepository) Upsert(ctx context.Context, participant domain.Participant) error {
	if r.db == nil {
		return domain.ErrStorageUnavailable
	}
	groups, err := json.Marshal(participant.WorkingGroups)
	if err != nil {
		return err
	}
	model := ParticipantModel{
		ID:                   participant.ID,
		PublicKey:            copyBytes(participant.PublicKey),
		DisplayName:          participant.DisplayName,
		TrustTier:            string(participant.TrustTier),
		WorkingGroups:        groups,
		AttributionLevel:     participant.AttributionLevel,
		MaxQueriesPerSession: participant.MaxQueriesPerSession,
		RegisteredAt:         participant.RegisteredAt,
		LastActiveAt:         participant.LastActiveAt,
	}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&model).Error
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

func participantFromModel(model ParticipantModel) (*domain.Participant, error) {
	var groups []string
	if len(model.WorkingGroups) > 0 {
		if err := json.Unmarshal(model.WorkingGroups, &groups); err != nil {
			return nil, fmt.Errorf("decode working groups: %w", err)
		}
	}
	return &domain.Participant{
		ID:                   model.ID,
		PublicKey:            copyBytes(model.PublicKey),
		DisplayName:          model.DisplayName,
		TrustTier:            domain.TrustTier(model.TrustTier),
		WorkingGroups:        groups,
		AttributionLevel:     model.AttributionLevel,
		MaxQueriesPerSession: model.MaxQueriesPerSession,
		RegisteredAt:         model.RegisteredAt,
		LastActiveAt:         model.LastActiveAt,
	}, nil
}

var _ domain.ParticipantRegistry = (*ParticipantRepository)(nil)
