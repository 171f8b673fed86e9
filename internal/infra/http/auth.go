package http

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"agora/internal/domain"
	"agora/internal/infra/crypto"

	"github.com/gin-gonic/gin"
)

const (
	HeaderParticipantID = "X-Participant-Id"
	HeaderTimestamp     = "X-Timestamp"
	HeaderSignature     = "X-Signature"
)

// requireSigned authenticates the request and writes the rejection response
// itself on failure. On success it returns the verified participant id.
func (s *Server) requireSigned(c *gin.Context) (string, bool) {
	result := s.authenticate(c)
	if !result.Valid {
		writeErrorCode(c, statusForAuthCode(result.Code), result.Code, authMessage(result.Code))
		return "", false
	}
	return result.ParticipantID, true
}

// authenticate runs the verification pipeline: header extraction, timestamp
// window, registry lookup, signature check. Each step short-circuits with its
// own classification code.
func (s *Server) authenticate(c *gin.Context) domain.AuthResult {
	participantID := strings.TrimSpace(c.GetHeader(HeaderParticipantID))
	timestamp := strings.TrimSpace(c.GetHeader(HeaderTimestamp))
	signature := strings.TrimSpace(c.GetHeader(HeaderSignature))
	if participantID == "" || timestamp == "" || signature == "" {
		return domain.Rejected(domain.CodeMissingAuthHeaders)
	}

	ts, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return domain.Rejected(domain.CodeTimestampInvalid)
	}
	skew := s.now().Sub(ts)
	if skew < 0 {
		skew = -skew
	}
	if skew > s.timestampTolerance {
		return domain.Rejected(domain.CodeTimestampInvalid)
	}

	participant, err := s.registry.Get(c.Request.Context(), participantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Rejected(domain.CodeParticipantNotRegistered)
		}
		return domain.Rejected(domain.CodeStorageUnavailable)
	}

	body, err := readBody(c)
	if err != nil {
		return domain.Rejected(domain.CodeInvalidSignature)
	}

	payload := crypto.CanonicalRequest(participantID, timestamp, body)
	if !crypto.VerifyDetachedHex(participant.PublicKey, payload, signature) {
		return domain.Rejected(domain.CodeInvalidSignature)
	}

	return domain.Authenticated(participantID)
}

func statusForAuthCode(code string) int {
	if code == domain.CodeStorageUnavailable {
		return http.StatusServiceUnavailable
	}
	return http.StatusUnauthorized
}

func authMessage(code string) string {
	switch code {
	case domain.CodeMissingAuthHeaders:
		return "participant id, timestamp and signature headers are required"
	case domain.CodeTimestampInvalid:
		return "timestamp missing, malformed or outside tolerance window"
	case domain.CodeParticipantNotRegistered:
		return "participant is not registered"
	case domain.CodeStorageUnavailable:
		return "participant lookup failed"
	default:
		return "signature verification failed"
	}
}

// readBody drains and restores the request body so handlers can still bind
// it. GET-style requests verify against the empty string.
func readBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}
