package domain

import "context"

// DomainAccessInput is the evaluation input for the domain-access policy:
// may this participant open (or spend from) a session in this domain?
type DomainAccessInput struct {
	ParticipantID string   `json:"participant_id"`
	Domain        string   `json:"domain"`
	TrustTier     string   `json:"trust_tier"`
	WorkingGroups []string `json:"working_groups"`
}

type PolicyEngine interface {
	Allow(ctx context.Context, input DomainAccessInput) (bool, error)
}
