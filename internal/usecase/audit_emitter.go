package usecase

import (
	"context"
	"errors"
	"time"

	"sigil/internal/domain"
)

type AuditEmitter struct {
	Repo  AuditRepository
	Clock Clock
}

func NewAuditEmitter(repo AuditRepository, clock Clock) *AuditEmitter {
	return &AuditEmitter{Repo: repo, Clock: clock}
}

func (e *AuditEmitter) Emit(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error) {
	if e == nil || e.Repo == nil {
		return domain.AuditEntry{}, errors.New("audit repository required")
	}
	if entry.Actor == "" || entry.Action == "" || entry.Resource == "" {
		return domain.AuditEntry{}, errors.New("audit entry missing required fields")
	}
	if entry.Details == nil {
		entry.Details = map[string]any{}
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = e.now().UTC()
	} else {
		entry.CreatedAt = entry.CreatedAt.UTC()
	}
	return e.Repo.Append(ctx, entry)
}

func (e *AuditEmitter) EmitKeyGenerated(ctx context.Context, actor, keyID string, alg domain.KeyAlgorithm, previousKeyID string) error {
	details := map[string]any{
		"algorithm": string(alg),
	}
	action := domain.AuditKeyGenerated
	if previousKeyID != "" {
		action = domain.AuditKeyRotated
		details["previous_key_id"] = previousKeyID
	}
	_, err := e.Emit(ctx, domain.AuditEntry{
		Actor:      actor,
		Action:     action,
		Resource:   domain.AuditResourceKey,
		ResourceID: keyID,
		Details:    details,
	})
	return err
}

func (e *AuditEmitter) EmitCertificateIssued(ctx context.Context, actor string, cert domain.Certificate) error {
	_, err := e.Emit(ctx, domain.AuditEntry{
		Actor:      actor,
		Action:     domain.AuditCertificateIssued,
		Resource:   domain.AuditResourceCertificate,
		ResourceID: cert.ID,
		Details: map[string]any{
			"agent_id":      cert.AgentID,
			"agent_version": cert.AgentVersion,
			"org_id":        cert.OrgID,
			"level":         string(cert.Level),
			"expires_at":    cert.ExpiresAt,
		},
	})
	return err
}

func (e *AuditEmitter) EmitCertificateRevoked(ctx context.Context, actor string, rev domain.Revocation) error {
	details := map[string]any{
		"reason": rev.Reason,
	}
	if rev.IncidentID != "" {
		details["incident_id"] = rev.IncidentID
	}
	_, err := e.Emit(ctx, domain.AuditEntry{
		Actor:      actor,
		Action:     domain.AuditCertificateRevoked,
		Resource:   domain.AuditResourceCertificate,
		ResourceID: rev.CertificateID,
		Details:    details,
	})
	return err
}

// EmitCertificateRenewed links the superseded record to its renewal.
func (e *AuditEmitter) EmitCertificateRenewed(ctx context.Context, actor, oldID, newID string, expiresAt time.Time) error {
	_, err := e.Emit(ctx, domain.AuditEntry{
		Actor:      actor,
		Action:     domain.AuditCertificateRenewed,
		Resource:   domain.AuditResourceCertificate,
		ResourceID: newID,
		Details: map[string]any{
			"supersedes": oldID,
			"expires_at": expiresAt,
		},
	})
	return err
}

func (e *AuditEmitter) now() time.Time {
	if e != nil && e.Clock != nil {
		return e.Clock()
	}
	return time.Now().UTC()
}
