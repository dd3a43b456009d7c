package usecase

import (
	"context"
	"time"

	"sigil/internal/domain"
)

type Clock func() time.Time

type CertificateRepository interface {
	Create(ctx context.Context, cert domain.Certificate) error
	GetByID(ctx context.Context, id string) (*domain.Certificate, error)
	GetLatestByIdentity(ctx context.Context, agentID, agentVersion, orgID string) (*domain.Certificate, error)
	ListByAgent(ctx context.Context, agentID string) ([]domain.Certificate, error)
	ListByOrg(ctx context.Context, orgID string) ([]domain.Certificate, error)
	ListExpiringActive(ctx context.Context, now, until time.Time) ([]domain.Certificate, error)
	Supersede(ctx context.Context, oldID string, renewal domain.Certificate) error
}

type KeyRepository interface {
	GetActive(ctx context.Context) (*domain.CAKey, error)
	GetByID(ctx context.Context, id string) (*domain.CAKey, error)
	ActivateNew(ctx context.Context, key domain.CAKey) (previousID string, err error)
	IncrementSigned(ctx context.Context, id string) error
}

type RevocationRepository interface {
	GetByCertificate(ctx context.Context, certificateID string) (*domain.Revocation, error)
	Revoke(ctx context.Context, certificateID, reason, revokedBy, incidentID string, now time.Time) (domain.Revocation, bool, error)
}

// OCSPCacheStore holds at most one live response per certificate.
type OCSPCacheStore interface {
	Get(ctx context.Context, certificateID string) (*domain.OCSPCacheEntry, bool, error)
	Put(ctx context.Context, entry domain.OCSPCacheEntry) error
	Delete(ctx context.Context, certificateID string) error
}

type VerificationRepository interface {
	Append(ctx context.Context, record domain.VerificationRecord) (domain.VerificationRecord, error)
}

type AuditRepository interface {
	Append(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error)
}

type CryptoService interface {
	CanonicalizeContent(content domain.CertificateContent) ([]byte, error)
	CanonicalizeResponses(responses []domain.SingleResponse) ([]byte, error)
	GoldenThreadHash(canonical []byte) domain.Hash
	VerifySignature(alg domain.KeyAlgorithm, publicKey, payload, sig []byte) error
}

// PolicyEngine decides whether an issuance request is allowed. A nil engine
// means no policy bundle is configured and everything is allowed.
type PolicyEngine interface {
	Evaluate(ctx context.Context, input domain.PolicyInput) (domain.PolicyEvaluation, error)
}

// StateProbe fetches the live attested state of a running agent. The probe
// itself is an external collaborator.
type StateProbe interface {
	Fetch(ctx context.Context, target domain.ProbeTarget) (*domain.LiveState, error)
}
