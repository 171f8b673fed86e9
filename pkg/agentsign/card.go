package agentsign

import (
	"crypto/ed25519"
	"encoding/hex"

	"agora/internal/domain"
	"agora/internal/infra/crypto"
)

// CardOptions is the profile a participant submits at registration.
type CardOptions struct {
	DisplayName          string
	WorkingGroups        []string
	AttributionLevel     string
	MaxQueriesPerSession int
}

// BuildCard assembles an agent card for the given public key.
func BuildCard(publicKey ed25519.PublicKey, opts CardOptions) domain.AgentCard {
	return domain.AgentCard{
		DisplayName:          opts.DisplayName,
		PublicKeyHex:         hex.EncodeToString(publicKey),
		WorkingGroups:        opts.WorkingGroups,
		AttributionLevel:     opts.AttributionLevel,
		MaxQueriesPerSession: opts.MaxQueriesPerSession,
	}
}

// SignCard self-signs a card with the matching private key, producing the
// registration payload the server verifies.
func SignCard(privateKey ed25519.PrivateKey, card domain.AgentCard) (domain.SignedAgentCard, error) {
	canonical, err := crypto.CanonicalizeAgentCard(card)
	if err != nil {
		return domain.SignedAgentCard{}, err
	}
	return domain.SignedAgentCard{
		Card:      card,
		Signature: hex.EncodeToString(ed25519.Sign(privateKey, canonical)),
	}, nil
}

// GenerateKeypair creates a fresh device keypair.
func GenerateKeypair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	return crypto.GenerateKeypair()
}

// ParticipantID derives the self-certifying id for a public key.
func ParticipantID(publicKey ed25519.PublicKey) string {
	return crypto.DeriveParticipantID(publicKey)
}

// ParsePrivateKeyHex accepts a 32-byte seed or a 64-byte expanded key.
func ParsePrivateKeyHex(value string) (ed25519.PrivateKey, error) {
	return crypto.ParsePrivateKeyHex(value)
}

// ParsePublicKeyHex parses a 32-byte hex public key.
func ParsePublicKeyHex(value string) (ed25519.PublicKey, error) {
	return crypto.ParsePublicKeyHex(value)
}
