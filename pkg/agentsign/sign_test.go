package agentsign

import (
	"crypto/ed25519"
	"net/http"
	"testing"
	"time"

	"agora/internal/domain"
	"agora/internal/infra/crypto"
)

func TestSignRequest(t *testing.T) {
	pub, priv, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	id := ParticipantID(pub)
	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	body := []byte(`{"domain":"ikp","query":"q"}`)

	headers := SignRequest(priv, id, at, body)
	if headers.ParticipantID != id {
		t.Fatalf("participant id %s, want %s", headers.ParticipantID, id)
	}
	if headers.Timestamp != "2026-08-30T12:00:00Z" {
		t.Fatalf("timestamp %s", headers.Timestamp)
	}

	payload := crypto.CanonicalRequest(id, headers.Timestamp, body)
	if !crypto.VerifyDetachedHex(pub, payload, headers.Signature) {
		t.Fatal("server-side verification of client signature failed")
	}
}

func TestSignRequest_NonUTCInput(t *testing.T) {
	pub, priv, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	id := ParticipantID(pub)
	offset := time.FixedZone("UTC+2", 2*60*60)
	at := time.Date(2026, 8, 30, 14, 0, 0, 0, offset)

	headers := SignRequest(priv, id, at, nil)
	if headers.Timestamp != "2026-08-30T12:00:00Z" {
		t.Fatalf("timestamp %s, want UTC normalization", headers.Timestamp)
	}
	payload := crypto.CanonicalRequest(id, headers.Timestamp, nil)
	if !crypto.VerifyDetachedHex(pub, payload, headers.Signature) {
		t.Fatal("verification failed for empty-body request")
	}
}

func TestHeadersApply(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "http://example.test/v1/budget/ikp", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	Headers{ParticipantID: "p-1", Timestamp: "ts", Signature: "sig"}.Apply(req)

	if got := req.Header.Get("X-Participant-Id"); got != "p-1" {
		t.Fatalf("participant header %s", got)
	}
	if got := req.Header.Get("X-Timestamp"); got != "ts" {
		t.Fatalf("timestamp header %s", got)
	}
	if got := req.Header.Get("X-Signature"); got != "sig" {
		t.Fatalf("signature header %s", got)
	}
}

func TestSignCard_VerifiableByServer(t *testing.T) {
	pub, priv, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	card := BuildCard(pub, CardOptions{
		DisplayName:      "Ada",
		WorkingGroups:    []string{"ikp"},
		AttributionLevel: "named",
	})
	signed, err := SignCard(priv, card)
	if err != nil {
		t.Fatalf("sign card: %v", err)
	}

	canonical, err := crypto.CanonicalizeAgentCard(signed.Card)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	if !crypto.VerifyDetachedHex(pub, canonical, signed.Signature) {
		t.Fatal("card signature does not verify")
	}
}

func TestActionSigners(t *testing.T) {
	pub, priv, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}

	cases := []struct {
		name         string
		sign         func(ed25519.PrivateKey) (string, error)
		canonicalize func() ([]byte, error)
	}{
		{
			name: "promise",
			sign: func(k ed25519.PrivateKey) (string, error) {
				return SignPromise(k, domain.PromiseDraft{Title: "t", Topics: []string{"a"}})
			},
			canonicalize: func() ([]byte, error) {
				return crypto.CanonicalizePromise(domain.PromiseDraft{Title: "t", Topics: []string{"a"}})
			},
		},
		{
			name: "status update",
			sign: func(k ed25519.PrivateKey) (string, error) {
				return SignStatusUpdate(k, domain.PromiseStatusUpdate{PromiseID: "p", Status: "fulfilled"})
			},
			canonicalize: func() ([]byte, error) {
				return crypto.CanonicalizeStatusUpdate(domain.PromiseStatusUpdate{PromiseID: "p", Status: "fulfilled"})
			},
		},
		{
			name: "assessment",
			sign: func(k ed25519.PrivateKey) (string, error) {
				return SignAssessment(k, domain.PeerAssessment{PromiseID: "p", Verdict: "kept", Score: 5})
			},
			canonicalize: func() ([]byte, error) {
				return crypto.CanonicalizeAssessment(domain.PeerAssessment{PromiseID: "p", Verdict: "kept", Score: 5})
			},
		},
		{
			name: "terms",
			sign: func(k ed25519.PrivateKey) (string, error) {
				return SignTerms(k, domain.TermsProposal{CounterpartyID: "c", Uses: []string{"research"}})
			},
			canonicalize: func() ([]byte, error) {
				return crypto.CanonicalizeTerms(domain.TermsProposal{CounterpartyID: "c", Uses: []string{"research"}})
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			signature, err := tc.sign(priv)
			if err != nil {
				t.Fatalf("sign: %v", err)
			}
			canonical, err := tc.canonicalize()
			if err != nil {
				t.Fatalf("canonicalize: %v", err)
			}
			if !crypto.VerifyDetachedHex(pub, canonical, signature) {
				t.Fatal("signature does not verify against canonical form")
			}
		})
	}
}
