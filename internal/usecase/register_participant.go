package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"agora/internal/domain"
	"agora/internal/infra/crypto"
)

// RegisterParticipant processes a self-signed agent card. The card's own
// public key both proves possession (via the signature) and determines the
// participant id, so re-running the ceremony silently overwrites the record:
// only the keyholder can produce a card that lands on the same id.
type RegisterParticipant struct {
	Registry          domain.ParticipantRegistry
	DefaultMaxQueries int
	Now               func() time.Time
}

func NewRegisterParticipant(registry domain.ParticipantRegistry, defaultMaxQueries int) *RegisterParticipant {
	return &RegisterParticipant{
		Registry:          registry,
		DefaultMaxQueries: defaultMaxQueries,
		Now:               time.Now,
	}
}

func (uc *RegisterParticipant) Execute(ctx context.Context, signed domain.SignedAgentCard) (*domain.Participant, error) {
	card := signed.Card
	if strings.TrimSpace(card.DisplayName) == "" {
		return nil, fmt.Errorf("%w: display name is required", domain.ErrInvalidCard)
	}
	switch card.AttributionLevel {
	case domain.AttributionAnonymous, domain.AttributionPseudonymous, domain.AttributionNamed:
	case "":
		card.AttributionLevel = domain.AttributionPseudonymous
	default:
		return nil, fmt.Errorf("%w: unknown attribution level %q", domain.ErrInvalidCard, card.AttributionLevel)
	}

	publicKey, err := crypto.ParsePublicKeyHex(card.PublicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCard, err)
	}

	canonical, err := crypto.CanonicalizeAgentCard(card)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCard, err)
	}
	if !crypto.VerifyDetachedHex(publicKey, canonical, signed.Signature) {
		return nil, domain.ErrSignatureInvalid
	}

	maxQueries := card.MaxQueriesPerSession
	if maxQueries <= 0 {
		maxQueries = uc.DefaultMaxQueries
	}

	now := uc.now()
	participant := domain.Participant{
		ID:                   crypto.DeriveParticipantID(publicKey),
		PublicKey:            publicKey,
		DisplayName:          card.DisplayName,
		TrustTier:            domain.TrustTierBlade,
		WorkingGroups:        normalizeGroups(card.WorkingGroups),
		AttributionLevel:     card.AttributionLevel,
		MaxQueriesPerSession: maxQueries,
		RegisteredAt:         now,
		LastActiveAt:         now,
	}

	// Re-registration keeps the original registration time and any earned
	// tier; everything else follows the newest card.
	existing, err := uc.Registry.Get(ctx, participant.ID)
	switch {
	case err == nil:
		participant.RegisteredAt = existing.RegisteredAt
		participant.TrustTier = existing.TrustTier
	case errors.Is(err, domain.ErrNotFound):
	default:
		return nil, err
	}

	if err := uc.Registry.Upsert(ctx, participant); err != nil {
		return nil, err
	}
	return &participant, nil
}

func (uc *RegisterParticipant) now() time.Time {
	if uc.Now != nil {
		return uc.Now()
	}
	return time.Now()
}

func normalizeGroups(groups []string) []string {
	seen := make(map[string]bool, len(groups))
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		g = strings.TrimSpace(g)
		if g == "" || seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}
