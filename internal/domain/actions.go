package domain

// Structured signed actions. Each of these has a documented canonical JSON
// shape (see internal/infra/crypto) that client and server derive
// independently; the signature travels detached next to the object.

// AgentCard is the self-signed registration payload. The public key is the
// identity; everything else is profile and privacy configuration.
type AgentCard struct {
	DisplayName          string   `json:"display_name"`
	PublicKeyHex         string   `json:"public_key"`
	WorkingGroups        []string `json:"working_groups"`
	AttributionLevel     string   `json:"attribution_level"`
	MaxQueriesPerSession int      `json:"max_queries_per_session"`
}

// SignedAgentCard carries the card plus a hex Ed25519 signature over its
// canonical form, made with the key embedded in the card.
type SignedAgentCard struct {
	Card      AgentCard `json:"card"`
	Signature string    `json:"signature"`
}

// PromiseDraft creates a governance promise.
type PromiseDraft struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Topics      []string `json:"topics"`
	Deadline    string   `json:"deadline,omitempty"`
}

// PromiseStatusUpdate moves a promise through its lifecycle.
type PromiseStatusUpdate struct {
	PromiseID string `json:"promise_id"`
	Status    string `json:"status"`
	Note      string `json:"note,omitempty"`
}

// PeerAssessment is one participant's signed judgement of another's promise.
type PeerAssessment struct {
	PromiseID string `json:"promise_id"`
	Verdict   string `json:"verdict"`
	Score     int    `json:"score"`
	Comment   string `json:"comment,omitempty"`
}

// TermsProposal is a MyTerms negotiation message.
type TermsProposal struct {
	CounterpartyID string   `json:"counterparty_id"`
	Uses           []string `json:"uses"`
	Retention      string   `json:"retention,omitempty"`
}
