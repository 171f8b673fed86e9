package domain

import (
	"context"
	"fmt"
	"time"
)

// TrustTier orders participants by earned standing. Registration always
// starts at the lowest tier; promotion happens outside this core.
type TrustTier string

const (
	TrustTierBlade  TrustTier = "blade"
	TrustTierLight  TrustTier = "light"
	TrustTierHeavy  TrustTier = "heavy"
	TrustTierDragon TrustTier = "dragon"
)

var tierRanks = map[TrustTier]int{
	TrustTierBlade:  0,
	TrustTierLight:  1,
	TrustTierHeavy:  2,
	TrustTierDragon: 3,
}

func (t TrustTier) Rank() int {
	rank, ok := tierRanks[t]
	if !ok {
		return -1
	}
	return rank
}

func ParseTrustTier(value string) (TrustTier, error) {
	tier := TrustTier(value)
	if _, ok := tierRanks[tier]; !ok {
		return "", fmt.Errorf("unknown trust tier %q", value)
	}
	return tier, nil
}

// Attribution levels accepted on agent cards.
const (
	AttributionAnonymous    = "anonymous"
	AttributionPseudonymous = "pseudonymous"
	AttributionNamed        = "named"
)

// Participant is a self-sovereign identity: the only credential the server
// holds is the Ed25519 public key, and the id is derived from it.
type Participant struct {
	ID                   string
	PublicKey            []byte
	DisplayName          string
	TrustTier            TrustTier
	WorkingGroups        []string
	AttributionLevel     string
	MaxQueriesPerSession int
	RegisteredAt         time.Time
	LastActiveAt         time.Time
}

type ParticipantRegistry interface {
	// Get returns ErrNotFound when no participant is registered under id.
	Get(ctx context.Context, id string) (*Participant, error)
	// Upsert replaces the whole record. The newest registered card wins;
	// there is no key-rotation protocol.
	Upsert(ctx context.Context, participant Participant) error
}
