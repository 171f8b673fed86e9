// Package agentsign is the device-side counterpart of the server's signed
// request pipeline. The private key never leaves the participant's device;
// this package builds the same canonical payloads the server rebuilds and
// produces the detached signatures the server verifies.
package agentsign

import (
	"crypto/ed25519"
	"encoding/hex"
	"net/http"
	"time"

	"agora/internal/domain"
	"agora/internal/infra/crypto"
)

// Headers carries the three authentication header values for one request.
type Headers struct {
	ParticipantID string
	Timestamp     string
	Signature     string
}

// SignRequest signs "{participantId}:{timestamp}:{body}" with the device
// key. Pass nil body for GET-style requests.
func SignRequest(privateKey ed25519.PrivateKey, participantID string, at time.Time, body []byte) Headers {
	timestamp := at.UTC().Format(time.RFC3339)
	payload := crypto.CanonicalRequest(participantID, timestamp, body)
	signature := ed25519.Sign(privateKey, payload)
	return Headers{
		ParticipantID: participantID,
		Timestamp:     timestamp,
		Signature:     hex.EncodeToString(signature),
	}
}

// Apply sets the authentication headers on an outgoing request.
func (h Headers) Apply(req *http.Request) {
	req.Header.Set("X-Participant-Id", h.ParticipantID)
	req.Header.Set("X-Timestamp", h.Timestamp)
	req.Header.Set("X-Signature", h.Signature)
}

// SignPromise produces the detached hex signature for a promise draft.
func SignPromise(privateKey ed25519.PrivateKey, draft domain.PromiseDraft) (string, error) {
	canonical, err := crypto.CanonicalizePromise(draft)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(ed25519.Sign(privateKey, canonical)), nil
}

// SignStatusUpdate produces the detached hex signature for a status update.
func SignStatusUpdate(privateKey ed25519.PrivateKey, update domain.PromiseStatusUpdate) (string, error) {
	canonical, err := crypto.CanonicalizeStatusUpdate(update)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(ed25519.Sign(privateKey, canonical)), nil
}

// SignAssessment produces the detached hex signature for a peer assessment.
func SignAssessment(privateKey ed25519.PrivateKey, assessment domain.PeerAssessment) (string, error) {
	canonical, err := crypto.CanonicalizeAssessment(assessment)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(ed25519.Sign(privateKey, canonical)), nil
}

// SignTerms produces the detached hex signature for a MyTerms proposal.
func SignTerms(privateKey ed25519.PrivateKey, proposal domain.TermsProposal) (string, error) {
	canonical, err := crypto.CanonicalizeTerms(proposal)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(ed25519.Sign(privateKey, canonical)), nil
}
