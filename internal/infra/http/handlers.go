package http

import (
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"agora/internal/domain"
	"agora/internal/infra/crypto"
	"agora/internal/infra/db"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type participantResponse struct {
	ID                   string   `json:"id"`
	PublicKey            string   `json:"public_key"`
	DisplayName          string   `json:"display_name"`
	TrustTier            string   `json:"trust_tier"`
	WorkingGroups        []string `json:"working_groups"`
	AttributionLevel     string   `json:"attribution_level"`
	MaxQueriesPerSession int      `json:"max_queries_per_session"`
	RegisteredAt         string   `json:"registered_at"`
}

type budgetResponse struct {
	Domain    string `json:"domain"`
	Remaining int    `json:"remaining"`
}

type queryRequest struct {
	Domain string `json:"domain"`
	Query  string `json:"query"`
}

type queryResponse struct {
	Domain    string `json:"domain"`
	Remaining int    `json:"remaining"`
	Answer    string `json:"answer"`
}

type actionAck struct {
	Verified bool   `json:"verified"`
	ActionID string `json:"action_id,omitempty"`
}

func (s *Server) handleRegister(c *gin.Context) {
	if !s.enforceRateLimit(c, "register:"+c.ClientIP()) {
		return
	}
	var signed domain.SignedAgentCard
	if err := c.ShouldBindJSON(&signed); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	participant, err := s.register.Execute(c.Request.Context(), signed)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, buildParticipantResponse(*participant))
}

func (s *Server) handleGetParticipant(c *gin.Context) {
	participant, err := s.registry.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildParticipantResponse(*participant))
}

func (s *Server) handleBudget(c *gin.Context) {
	participantID, ok := s.requireSigned(c)
	if !ok {
		return
	}
	if !s.enforceRateLimit(c, "participant:"+participantID) {
		return
	}
	dom := c.Param("domain")
	remaining, err := s.budget.Remaining(c.Request.Context(), participantID, dom)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, budgetResponse{Domain: dom, Remaining: remaining})
}

func (s *Server) handleQuery(c *gin.Context) {
	participantID, ok := s.requireSigned(c)
	if !ok {
		return
	}
	if !s.enforceRateLimit(c, "participant:"+participantID) {
		return
	}
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Domain == "" {
		writeErrorCode(c, http.StatusBadRequest, "invalid_json", "domain and query are required")
		return
	}

	if !s.checkDomainAccess(c, participantID, req.Domain) {
		return
	}

	allowed, err := s.budget.CheckBudget(c.Request.Context(), participantID, req.Domain)
	if err != nil {
		writeError(c, err)
		return
	}
	if !allowed {
		writeErrorCode(c, http.StatusTooManyRequests, domain.CodeBudgetExhausted, "privacy budget exhausted for this session")
		return
	}
	remaining, err := s.budget.Consume(c.Request.Context(), participantID, req.Domain)
	if err != nil {
		writeError(c, err)
		return
	}

	// Query execution lives outside this core; acknowledge the spend.
	c.JSON(http.StatusOK, queryResponse{
		Domain:    req.Domain,
		Remaining: remaining,
		Answer:    "accepted: " + req.Query,
	})
}

func (s *Server) checkDomainAccess(c *gin.Context, participantID, dom string) bool {
	if s.policy == nil {
		return true
	}
	participant, err := s.registry.Get(c.Request.Context(), participantID)
	if err != nil {
		writeError(c, err)
		return false
	}
	allowed, err := s.policy.Allow(c.Request.Context(), domain.DomainAccessInput{
		ParticipantID: participantID,
		Domain:        dom,
		TrustTier:     string(participant.TrustTier),
		WorkingGroups: participant.WorkingGroups,
	})
	if err != nil {
		writeErrorCode(c, http.StatusInternalServerError, "policy_error", "policy evaluation failed")
		return false
	}
	if !allowed {
		writeError(c, domain.ErrDomainForbidden)
		return false
	}
	return true
}

type promiseRequest struct {
	Promise   domain.PromiseDraft `json:"promise"`
	Signature string              `json:"signature"`
}

func (s *Server) handlePromise(c *gin.Context) {
	participantID, ok := s.requireSigned(c)
	if !ok {
		return
	}
	var req promiseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if !s.verifyAction(c, participantID, req.Signature, func() ([]byte, error) {
		return crypto.CanonicalizePromise(req.Promise)
	}) {
		return
	}
	id, err := db.NewUUID()
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, actionAck{Verified: true, ActionID: id})
}

type statusUpdateRequest struct {
	Status    string `json:"status"`
	Note      string `json:"note,omitempty"`
	Signature string `json:"signature"`
}

func (s *Server) handlePromiseStatus(c *gin.Context) {
	participantID, ok := s.requireSigned(c)
	if !ok {
		return
	}
	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	update := domain.PromiseStatusUpdate{
		PromiseID: c.Param("id"),
		Status:    req.Status,
		Note:      req.Note,
	}
	if !s.verifyAction(c, participantID, req.Signature, func() ([]byte, error) {
		return crypto.CanonicalizeStatusUpdate(update)
	}) {
		return
	}
	c.JSON(http.StatusOK, actionAck{Verified: true, ActionID: update.PromiseID})
}

type assessmentRequest struct {
	Assessment domain.PeerAssessment `json:"assessment"`
	Signature  string                `json:"signature"`
}

func (s *Server) handleAssessment(c *gin.Context) {
	participantID, ok := s.requireSigned(c)
	if !ok {
		return
	}
	var req assessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if !s.verifyAction(c, participantID, req.Signature, func() ([]byte, error) {
		return crypto.CanonicalizeAssessment(req.Assessment)
	}) {
		return
	}
	c.JSON(http.StatusCreated, actionAck{Verified: true, ActionID: req.Assessment.PromiseID})
}

type termsRequest struct {
	Terms     domain.TermsProposal `json:"terms"`
	Signature string               `json:"signature"`
}

func (s *Server) handleTerms(c *gin.Context) {
	participantID, ok := s.requireSigned(c)
	if !ok {
		return
	}
	var req termsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	if !s.verifyAction(c, participantID, req.Signature, func() ([]byte, error) {
		return crypto.CanonicalizeTerms(req.Terms)
	}) {
		return
	}
	c.JSON(http.StatusCreated, actionAck{Verified: true})
}

// verifyAction re-derives a structured action's canonical JSON and checks
// the embedded detached signature against the caller's registered key. The
// transport headers already authenticated the caller; this binds the action
// object itself to the same key.
func (s *Server) verifyAction(c *gin.Context, participantID, signature string, canonicalize func() ([]byte, error)) bool {
	participant, err := s.registry.Get(c.Request.Context(), participantID)
	if err != nil {
		writeError(c, err)
		return false
	}
	canonical, err := canonicalize()
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "invalid_json", "action cannot be canonicalized")
		return false
	}
	if !crypto.VerifyDetachedHex(participant.PublicKey, canonical, signature) {
		writeErrorCode(c, http.StatusBadRequest, domain.CodeInvalidSignature, "action signature verification failed")
		return false
	}
	return true
}

func (s *Server) handleNoRoute(c *gin.Context) {
	writeErrorCode(c, http.StatusNotFound, "not_found", "no such route")
}

func buildParticipantResponse(p domain.Participant) participantResponse {
	groups := p.WorkingGroups
	if groups == nil {
		groups = []string{}
	}
	return participantResponse{
		ID:                   p.ID,
		PublicKey:            hex.EncodeToString(p.PublicKey),
		DisplayName:          p.DisplayName,
		TrustTier:            string(p.TrustTier),
		WorkingGroups:        groups,
		AttributionLevel:     p.AttributionLevel,
		MaxQueriesPerSession: p.MaxQueriesPerSession,
		RegisteredAt:         p.RegisteredAt.UTC().Format(time.RFC3339),
	}
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, domain.ErrInvalidCard):
		status, code = http.StatusBadRequest, "invalid_card"
	case errors.Is(err, domain.ErrSignatureInvalid):
		status, code = http.StatusBadRequest, domain.CodeInvalidSignature
	case errors.Is(err, domain.ErrBudgetExhausted):
		status, code = http.StatusTooManyRequests, domain.CodeBudgetExhausted
	case errors.Is(err, domain.ErrDomainForbidden):
		status, code = http.StatusForbidden, "domain_forbidden"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrStorageUnavailable):
		status, code = http.StatusServiceUnavailable, domain.CodeStorageUnavailable
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
