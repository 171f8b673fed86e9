package http

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"agora/internal/config"
	"agora/internal/domain"
	"agora/internal/infra/crypto"
	"agora/internal/infra/memstore"
	"agora/pkg/agentsign"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	server   *Server
	registry *memstore.ParticipantRegistry
	sessions *memstore.SessionStore
	now      time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		registry: memstore.NewParticipantRegistry(),
		sessions: memstore.NewSessionStore(),
		now:      time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}
	cfg := config.Config{
		TimestampToleranceSeconds: 300,
		SessionTTLSeconds:         4 * 60 * 60,
		DefaultMaxQueries:         16,
	}
	env.server = NewServerWithDeps(cfg, ServerDeps{
		Registry: env.registry,
		Sessions: env.sessions,
		Now:      func() time.Time { return env.now },
	})
	return env
}

func (env *testEnv) registerKey(t *testing.T, max int, groups ...string) (string, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	id := crypto.DeriveParticipantID(pub)
	err = env.registry.Upsert(context.Background(), domain.Participant{
		ID:                   id,
		PublicKey:            pub,
		DisplayName:          "tester",
		TrustTier:            domain.TrustTierBlade,
		WorkingGroups:        groups,
		AttributionLevel:     domain.AttributionPseudonymous,
		MaxQueriesPerSession: max,
		RegisteredAt:         env.now,
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	return id, priv
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(w, req)
	return w
}

func httptestJSON(method, path string, body []byte) *http.Request {
	if body == nil {
		return httptest.NewRequest(method, path, nil)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func signedRequest(priv ed25519.PrivateKey, id, method, path string, at time.Time, body []byte) *http.Request {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	agentsign.SignRequest(priv, id, at, body).Apply(req)
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", w.Body.String(), err)
	}
	return resp
}

func TestRequireSigned_MissingHeaders(t *testing.T) {
	env := newTestEnv(t)
	id, priv := env.registerKey(t, 16)

	full := signedRequest(priv, id, http.MethodGet, "/v1/budget/ikp", env.now, nil)
	for _, header := range []string{HeaderParticipantID, HeaderTimestamp, HeaderSignature} {
		t.Run("without "+header, func(t *testing.T) {
			req := full.Clone(context.Background())
			req.Header.Del(header)
			w := env.do(req)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status %d, want 401", w.Code)
			}
			if resp := decodeError(t, w); resp.Code != domain.CodeMissingAuthHeaders {
				t.Fatalf("code %s, want %s", resp.Code, domain.CodeMissingAuthHeaders)
			}
		})
	}
}

func TestRequireSigned_TimestampWindow(t *testing.T) {
	env := newTestEnv(t)
	id, priv := env.registerKey(t, 16)

	cases := []struct {
		name     string
		at       time.Time
		wantCode int
	}{
		{"current time", env.now, http.StatusOK},
		{"exactly at tolerance behind", env.now.Add(-5 * time.Minute), http.StatusOK},
		{"exactly at tolerance ahead", env.now.Add(5 * time.Minute), http.StatusOK},
		{"one second past tolerance", env.now.Add(-5*time.Minute - time.Second), http.StatusUnauthorized},
		{"far in the future", env.now.Add(time.Hour), http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.do(signedRequest(priv, id, http.MethodGet, "/v1/budget/ikp", tc.at, nil))
			if w.Code != tc.wantCode {
				t.Fatalf("status %d, want %d", w.Code, tc.wantCode)
			}
			if tc.wantCode == http.StatusUnauthorized {
				if resp := decodeError(t, w); resp.Code != domain.CodeTimestampInvalid {
					t.Fatalf("code %s, want %s", resp.Code, domain.CodeTimestampInvalid)
				}
			}
		})
	}
}

func TestRequireSigned_MalformedTimestamp(t *testing.T) {
	env := newTestEnv(t)
	id, priv := env.registerKey(t, 16)

	req := signedRequest(priv, id, http.MethodGet, "/v1/budget/ikp", env.now, nil)
	req.Header.Set(HeaderTimestamp, "30-08-2026 12:00")
	w := env.do(req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", w.Code)
	}
	if resp := decodeError(t, w); resp.Code != domain.CodeTimestampInvalid {
		t.Fatalf("code %s, want %s", resp.Code, domain.CodeTimestampInvalid)
	}
}

func TestRequireSigned_UnregisteredParticipant(t *testing.T) {
	env := newTestEnv(t)

	// Valid signature from a key nobody registered. The registry lookup
	// fails before the signature is ever checked.
	pub, priv, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	id := crypto.DeriveParticipantID(pub)

	w := env.do(signedRequest(priv, id, http.MethodGet, "/v1/budget/ikp", env.now, nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", w.Code)
	}
	if resp := decodeError(t, w); resp.Code != domain.CodeParticipantNotRegistered {
		t.Fatalf("code %s, want %s", resp.Code, domain.CodeParticipantNotRegistered)
	}
}

func TestRequireSigned_InvalidSignature(t *testing.T) {
	env := newTestEnv(t)
	id, priv := env.registerKey(t, 16)

	t.Run("tampered body", func(t *testing.T) {
		body := []byte(`{"domain":"ikp","query":"original"}`)
		req := signedRequest(priv, id, http.MethodPost, "/v1/queries", env.now, body)
		req.Body = httptest.NewRequest(http.MethodPost, "/v1/queries",
			bytes.NewReader([]byte(`{"domain":"ikp","query":"tampered"}`))).Body
		w := env.do(req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status %d, want 401", w.Code)
		}
		if resp := decodeError(t, w); resp.Code != domain.CodeInvalidSignature {
			t.Fatalf("code %s, want %s", resp.Code, domain.CodeInvalidSignature)
		}
	})

	t.Run("signature by another key", func(t *testing.T) {
		_, otherPriv, err := crypto.GenerateKeypair()
		if err != nil {
			t.Fatalf("generate keypair: %v", err)
		}
		w := env.do(signedRequest(otherPriv, id, http.MethodGet, "/v1/budget/ikp", env.now, nil))
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status %d, want 401", w.Code)
		}
		if resp := decodeError(t, w); resp.Code != domain.CodeInvalidSignature {
			t.Fatalf("code %s, want %s", resp.Code, domain.CodeInvalidSignature)
		}
	})

	t.Run("garbage signature", func(t *testing.T) {
		req := signedRequest(priv, id, http.MethodGet, "/v1/budget/ikp", env.now, nil)
		req.Header.Set(HeaderSignature, "deadbeef")
		w := env.do(req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status %d, want 401", w.Code)
		}
	})
}

func TestRequireSigned_EmptyBodyRequests(t *testing.T) {
	env := newTestEnv(t)
	id, priv := env.registerKey(t, 16)

	w := env.do(signedRequest(priv, id, http.MethodGet, "/v1/budget/ikp", env.now, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
	var resp budgetResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Domain != "ikp" || resp.Remaining != 16 {
		t.Fatalf("budget %+v, want ikp/16", resp)
	}
}

type failingRegistry struct{}

func (failingRegistry) Get(ctx context.Context, id string) (*domain.Participant, error) {
	return nil, errors.New("connection refused")
}

func (failingRegistry) Upsert(ctx context.Context, participant domain.Participant) error {
	return errors.New("connection refused")
}

func TestRequireSigned_StorageUnavailable(t *testing.T) {
	cfg := config.Config{TimestampToleranceSeconds: 300, DefaultMaxQueries: 16}
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	server := NewServerWithDeps(cfg, ServerDeps{
		Registry: failingRegistry{},
		Sessions: memstore.NewSessionStore(),
		Now:      func() time.Time { return now },
	})

	_, priv, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	req := signedRequest(priv, "someone", http.MethodGet, "/v1/budget/ikp", now, nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d, want 503", w.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != domain.CodeStorageUnavailable {
		t.Fatalf("code %s, want %s", resp.Code, domain.CodeStorageUnavailable)
	}
}
