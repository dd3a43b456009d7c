package usecase

import (
	"context"
	"fmt"
	"time"

	"sigil/internal/domain"
)

// RevocationManager flags certificates revoked and keeps the OCSP cache from
// serving stale answers for them.
type RevocationManager struct {
	Certs       CertificateRepository
	Revocations RevocationRepository
	Cache       OCSPCacheStore
	Audit       *AuditEmitter
	Clock       Clock
}

type RevokeRequest struct {
	CertificateID string
	Reason        string
	RevokedBy     string
	IncidentID    string
}

// Revoke transitions the certificate to revoked and returns the revocation
// record. Idempotent: revoking an already-revoked certificate returns the
// existing record unchanged, so retries are safe.
func (m *RevocationManager) Revoke(ctx context.Context, req RevokeRequest) (*domain.Revocation, error) {
	if req.CertificateID == "" {
		return nil, fmt.Errorf("%w: certificate_id is required", domain.ErrValidation)
	}
	if req.Reason == "" {
		return nil, fmt.Errorf("%w: reason is required", domain.ErrValidation)
	}
	if req.RevokedBy == "" {
		return nil, fmt.Errorf("%w: revoked_by is required", domain.ErrValidation)
	}

	rev, created, err := m.Revocations.Revoke(ctx, req.CertificateID, req.Reason, req.RevokedBy, req.IncidentID, m.now())
	if err != nil {
		return nil, err
	}
	if !created {
		return &rev, nil
	}

	// Drop the cached response so the next status query regenerates it.
	if err := m.Cache.Delete(ctx, req.CertificateID); err != nil {
		return nil, fmt.Errorf("invalidate status cache: %w", err)
	}
	if err := m.Audit.EmitCertificateRevoked(ctx, req.RevokedBy, rev); err != nil {
		return nil, err
	}
	return &rev, nil
}

func (m *RevocationManager) now() time.Time {
	if m.Clock != nil {
		return m.Clock()
	}
	return time.Now().UTC()
}
