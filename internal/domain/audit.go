package domain

import "time"

type AuditAction string

const (
	AuditKeyGenerated        AuditAction = "key_generated"
	AuditKeyRotated          AuditAction = "key_rotated"
	AuditCertificateIssued   AuditAction = "certificate_issued"
	AuditCertificateRevoked  AuditAction = "certificate_revoked"
	AuditCertificateRenewed  AuditAction = "certificate_renewed"
	AuditStatusResponseBuilt AuditAction = "status_response_built"
	AuditLiveVerification    AuditAction = "live_verification"
)

type AuditResource string

const (
	AuditResourceCertificate AuditResource = "certificate"
	AuditResourceKey         AuditResource = "ca_key"
	AuditResourceStatus      AuditResource = "status_response"
)

// AuditEntry is an append-only record of a mutating operation. Append
// failures are surfaced to the caller, never swallowed.
type AuditEntry struct {
	ID         int64
	Actor      string
	Action     AuditAction
	Resource   AuditResource
	ResourceID string
	Details    map[string]any
	CreatedAt  time.Time
}
