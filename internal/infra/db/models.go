package db

import "time"

type ParticipantModel struct {
	ID                   string    `gorm:"primaryKey"`
	PublicKey            []byte    `gorm:"type:bytea;not null"`
	DisplayName          string    `gorm:"not null"`
	TrustTier            string    `gorm:"not null"`
	WorkingGroups        []byte    `gorm:"type:jsonb;not null"`
	AttributionLevel     string    `gorm:"not null"`
	MaxQueriesPerSession int       `gorm:"not null"`
	RegisteredAt         time.Time `gorm:"not null"`
	LastActiveAt         time.Time `gorm:"not null"`
}

func (ParticipantModel) TableName() string { return "participants" }

// SessionModel keeps exactly one row per (participant, domain); an expired
// row is reset in place, which is how "a new session replaces the old one"
// materializes without ever holding two live rows for a key.
type SessionModel struct {
	ParticipantID string    `gorm:"primaryKey"`
	Domain        string    `gorm:"primaryKey"`
	SessionID     string    `gorm:"not null"`
	QueriesUsed   int       `gorm:"not null"`
	MaxQueries    int       `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
	ExpiresAt     time.Time `gorm:"index;not null"`
}

func (SessionModel) TableName() string { return "sessions" }
