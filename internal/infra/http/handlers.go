package http

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"sigil/internal/domain"
	"sigil/internal/usecase"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type issueRequest struct {
	AgentID      string         `json:"agent_id"`
	AgentVersion string         `json:"agent_version"`
	OrgID        string         `json:"org_id"`
	OrgName      string         `json:"org_name"`
	OrgDomain    string         `json:"org_domain,omitempty"`
	Level        string         `json:"level"`
	Attestation  map[string]any `json:"attestation"`
}

type revokeRequest struct {
	Reason     string `json:"reason"`
	RevokedBy  string `json:"revoked_by"`
	IncidentID string `json:"incident_id,omitempty"`
}

type statusRequest struct {
	CertificateIDs []string `json:"certificate_ids"`
}

type liveVerifyRequest struct {
	AgentID      string         `json:"agent_id"`
	AgentVersion string         `json:"agent_version"`
	OrgID        string         `json:"org_id"`
	Context      map[string]any `json:"context,omitempty"`
}

type certificateResponse struct {
	CertificateID    string          `json:"certificate_id"`
	Agent            domain.Agent    `json:"agent"`
	Org              domain.Org      `json:"org"`
	Level            string          `json:"level"`
	GoldenThread     domain.Hash     `json:"golden_thread"`
	IssuedAt         string          `json:"issued_at"`
	ExpiresAt        string          `json:"expires_at"`
	Status           string          `json:"status"`
	Content          json.RawMessage `json:"content"`
	SignatureAlg     string          `json:"signature_alg"`
	SignatureKeyID   string          `json:"signature_key_id"`
	Signature        string          `json:"signature"`
	RevokedAt        string          `json:"revoked_at,omitempty"`
	RevocationReason string          `json:"revocation_reason,omitempty"`
	SupersededBy     string          `json:"superseded_by,omitempty"`
}

type revocationResponse struct {
	CertificateID string `json:"certificate_id"`
	Reason        string `json:"reason"`
	RevokedBy     string `json:"revoked_by"`
	IncidentID    string `json:"incident_id,omitempty"`
	RevokedAt     string `json:"revoked_at"`
}

type singleStatusResponse struct {
	CertificateID    string `json:"certificate_id"`
	Status           string `json:"status"`
	ThisUpdate       string `json:"this_update"`
	NextUpdate       string `json:"next_update"`
	RevocationTime   string `json:"revocation_time,omitempty"`
	RevocationReason string `json:"revocation_reason,omitempty"`
}

type statusResponse struct {
	Responses      []singleStatusResponse `json:"responses"`
	ProducedAt     string                 `json:"produced_at"`
	SignatureAlg   string                 `json:"signature_alg"`
	SignatureKeyID string                 `json:"signature_key_id"`
	Signature      string                 `json:"signature"`
}

type liveVerifyResponse struct {
	Result        string `json:"result"`
	Detail        string `json:"detail,omitempty"`
	CertificateID string `json:"certificate_id,omitempty"`
	Level         string `json:"level,omitempty"`
}

func (s *Server) handleIssue(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.signer == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var req issueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	if !s.enforceRateLimit(c, routeCertIssue, req.OrgID) {
		return
	}
	cert, err := s.signer.Sign(c.Request.Context(), usecase.SigningRequest{
		AgentID:      req.AgentID,
		AgentVersion: req.AgentVersion,
		OrgID:        req.OrgID,
		OrgName:      req.OrgName,
		OrgDomain:    req.OrgDomain,
		Level:        domain.ComplianceLevel(req.Level),
		Attestation:  req.Attestation,
		Actor:        actorFromRequest(c),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, buildCertificateResponse(*cert, time.Now().UTC()))
}

func (s *Server) handleGetCertificate(c *gin.Context) {
	if s.certs == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	cert, err := s.certs.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildCertificateResponse(*cert, time.Now().UTC()))
}

func (s *Server) handleRevoke(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.revoker == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var req revokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	rev, err := s.revoker.Revoke(c.Request.Context(), usecase.RevokeRequest{
		CertificateID: c.Param("id"),
		Reason:        req.Reason,
		RevokedBy:     req.RevokedBy,
		IncidentID:    req.IncidentID,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, revocationResponse{
		CertificateID: rev.CertificateID,
		Reason:        rev.Reason,
		RevokedBy:     rev.RevokedBy,
		IncidentID:    rev.IncidentID,
		RevokedAt:     rev.RevokedAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListByAgent(c *gin.Context) {
	if s.certs == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	certs, err := s.certs.ListByAgent(c.Request.Context(), c.Param("agent_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildCertificateList(certs))
}

func (s *Server) handleListByOrg(c *gin.Context) {
	if s.certs == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	certs, err := s.certs.ListByOrg(c.Request.Context(), c.Param("org_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildCertificateList(certs))
}

func (s *Server) handleStatus(c *gin.Context) {
	if s.responder == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	if !s.enforceRateLimit(c, routeStatus, c.ClientIP()) {
		return
	}
	resp, err := s.responder.Query(c.Request.Context(), req.CertificateIDs)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildStatusResponse(*resp))
}

func (s *Server) handleLiveVerify(c *gin.Context) {
	if s.live == nil {
		writeErrorCode(c, http.StatusNotImplemented, "PROBE_UNCONFIGURED", "live verification probe is not configured")
		return
	}
	var req liveVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	if !s.enforceRateLimit(c, routeLiveVerify, req.OrgID) {
		return
	}
	outcome, err := s.live.Verify(c.Request.Context(), domain.ProbeTarget{
		AgentID:      req.AgentID,
		AgentVersion: req.AgentVersion,
		OrgID:        req.OrgID,
		Context:      req.Context,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, liveVerifyResponse{
		Result:        string(outcome.Result),
		Detail:        outcome.Detail,
		CertificateID: outcome.CertificateID,
		Level:         string(outcome.Level),
	})
}

// requireAdmin gates mutating routes. Deployments without ADMIN_API_KEY run
// open; once a key is configured it must match.
func (s *Server) requireAdmin(c *gin.Context) bool {
	if s.adminAPIKey == "" {
		return true
	}
	key := c.GetHeader("X-Admin-Key")
	if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.adminAPIKey)) != 1 {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid admin key")
		return false
	}
	return true
}

func actorFromRequest(c *gin.Context) string {
	if actor := c.GetHeader("X-Actor"); actor != "" {
		return actor
	}
	return "api:" + c.ClientIP()
}

func buildCertificateList(certs []domain.Certificate) []certificateResponse {
	now := time.Now().UTC()
	out := make([]certificateResponse, 0, len(certs))
	for _, cert := range certs {
		out = append(out, buildCertificateResponse(cert, now))
	}
	return out
}

func buildCertificateResponse(cert domain.Certificate, now time.Time) certificateResponse {
	resp := certificateResponse{
		CertificateID:    cert.ID,
		Agent:            domain.Agent{ID: cert.AgentID, Version: cert.AgentVersion},
		Org:              domain.Org{ID: cert.OrgID, Name: cert.OrgName, Domain: cert.OrgDomain},
		Level:            string(cert.Level),
		GoldenThread:     domain.Hash{Alg: cert.GoldenThreadAlg, Value: cert.GoldenThreadHash},
		IssuedAt:         cert.IssuedAt.UTC().Format(time.RFC3339),
		ExpiresAt:        cert.ExpiresAt.UTC().Format(time.RFC3339),
		Status:           string(cert.EffectiveStatus(now)),
		Content:          json.RawMessage(cert.Content),
		SignatureAlg:     cert.SignatureAlg,
		SignatureKeyID:   cert.SignatureKeyID,
		Signature:        base64.StdEncoding.EncodeToString(cert.Signature),
		RevocationReason: cert.RevocationReason,
		SupersededBy:     cert.SupersededBy,
	}
	if cert.RevokedAt != nil {
		resp.RevokedAt = cert.RevokedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func buildStatusResponse(resp domain.StatusResponse) statusResponse {
	singles := make([]singleStatusResponse, 0, len(resp.Responses))
	for _, single := range resp.Responses {
		out := singleStatusResponse{
			CertificateID:    single.CertificateID,
			Status:           string(single.Status),
			ThisUpdate:       single.ThisUpdate.UTC().Format(time.RFC3339),
			NextUpdate:       single.NextUpdate.UTC().Format(time.RFC3339),
			RevocationReason: single.RevocationReason,
		}
		if single.RevocationTime != nil {
			out.RevocationTime = single.RevocationTime.UTC().Format(time.RFC3339)
		}
		singles = append(singles, out)
	}
	return statusResponse{
		Responses:      singles,
		ProducedAt:     resp.ProducedAt.UTC().Format(time.RFC3339),
		SignatureAlg:   resp.SignatureAlg,
		SignatureKeyID: resp.SignatureKeyID,
		Signature:      base64.StdEncoding.EncodeToString(resp.Signature),
	}
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrValidation):
		status, code = http.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrConflict):
		status, code = http.StatusConflict, "ALREADY_EXISTS"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrKeyUnavailable):
		status, code = http.StatusServiceUnavailable, "KEY_UNAVAILABLE"
	case errors.Is(err, domain.ErrCrypto):
		status, code = http.StatusBadRequest, "CRYPTO"
	case errors.Is(err, domain.ErrStorage):
		status, code = http.StatusInternalServerError, "STORAGE"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
