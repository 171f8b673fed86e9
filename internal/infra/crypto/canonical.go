package crypto

import (
	"sort"

	"agora/internal/domain"
)

// CanonicalRequest builds the generic signed payload for a transport-level
// request: "{participantId}:{timestamp}:{body}". The body is the exact HTTP
// body bytes as sent; GET-style requests use the empty string, so the
// signature still binds identity and timestamp.
func CanonicalRequest(participantID, timestamp string, body []byte) []byte {
	payload := make([]byte, 0, len(participantID)+len(timestamp)+len(body)+2)
	payload = append(payload, participantID...)
	payload = append(payload, ':')
	payload = append(payload, timestamp...)
	payload = append(payload, ':')
	payload = append(payload, body...)
	return payload
}

// Canonical shapes for structured signed actions. Field order is the sorted
// key order produced by CanonicalizeAny; array-valued fields are sorted here
// so semantically identical cards serialize identically regardless of the
// order the client listed them in. Optional string fields are omitted when
// empty on both signer and verifier.

type agentCardPayload struct {
	AttributionLevel     string   `json:"attribution_level"`
	DisplayName          string   `json:"display_name"`
	MaxQueriesPerSession int      `json:"max_queries_per_session"`
	PublicKey            string   `json:"public_key"`
	WorkingGroups        []string `json:"working_groups"`
}

func CanonicalizeAgentCard(card domain.AgentCard) ([]byte, error) {
	return CanonicalizeAny(agentCardPayload{
		AttributionLevel:     card.AttributionLevel,
		DisplayName:          card.DisplayName,
		MaxQueriesPerSession: card.MaxQueriesPerSession,
		PublicKey:            card.PublicKeyHex,
		WorkingGroups:        sortedCopy(card.WorkingGroups),
	})
}

type promisePayload struct {
	Deadline    string   `json:"deadline,omitempty"`
	Description string   `json:"description,omitempty"`
	Title       string   `json:"title"`
	Topics      []string `json:"topics"`
}

func CanonicalizePromise(draft domain.PromiseDraft) ([]byte, error) {
	return CanonicalizeAny(promisePayload{
		Deadline:    draft.Deadline,
		Description: draft.Description,
		Title:       draft.Title,
		Topics:      sortedCopy(draft.Topics),
	})
}

type statusUpdatePayload struct {
	Note      string `json:"note,omitempty"`
	PromiseID string `json:"promise_id"`
	Status    string `json:"status"`
}

func CanonicalizeStatusUpdate(update domain.PromiseStatusUpdate) ([]byte, error) {
	return CanonicalizeAny(statusUpdatePayload{
		Note:      update.Note,
		PromiseID: update.PromiseID,
		Status:    update.Status,
	})
}

type assessmentPayload struct {
	Comment   string `json:"comment,omitempty"`
	PromiseID string `json:"promise_id"`
	Score     int    `json:"score"`
	Verdict   string `json:"verdict"`
}

func CanonicalizeAssessment(assessment domain.PeerAssessment) ([]byte, error) {
	return CanonicalizeAny(assessmentPayload{
		Comment:   assessment.Comment,
		PromiseID: assessment.PromiseID,
		Score:     assessment.Score,
		Verdict:   assessment.Verdict,
	})
}

type termsPayload struct {
	CounterpartyID string   `json:"counterparty_id"`
	Retention      string   `json:"retention,omitempty"`
	Uses           []string `json:"uses"`
}

func CanonicalizeTerms(proposal domain.TermsProposal) ([]byte, error) {
	return CanonicalizeAny(termsPayload{
		CounterpartyID: proposal.CounterpartyID,
		Retention:      proposal.Retention,
		Uses:           sortedCopy(proposal.Uses),
	})
}

func sortedCopy(values []string) []string {
	if values == nil {
		return []string{}
	}
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)
	return out
}
