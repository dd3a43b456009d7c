package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"sigil/internal/domain"

	"github.com/google/uuid"
)

const DefaultCertValidity = 365 * 24 * time.Hour

// SigningService issues CGA certificates and manages the CA signing key.
type SigningService struct {
	Certs      CertificateRepository
	Keys       KeyRepository
	KeyManager domain.KeyManager
	Crypto     CryptoService
	Policy     PolicyEngine
	Audit      *AuditEmitter
	Clock      Clock
	Passphrase string
	Validity   time.Duration
}

type SigningRequest struct {
	AgentID      string
	AgentVersion string
	OrgID        string
	OrgName      string
	OrgDomain    string
	Level        domain.ComplianceLevel
	Attestation  map[string]any
	Actor        string
}

func (r SigningRequest) validate() error {
	var problems []string
	if r.AgentID == "" {
		problems = append(problems, "agent_id is required")
	}
	if r.AgentVersion == "" {
		problems = append(problems, "agent_version is required")
	}
	if r.OrgID == "" {
		problems = append(problems, "org_id is required")
	}
	if r.OrgName == "" {
		problems = append(problems, "org_name is required")
	}
	if !r.Level.Valid() {
		problems = append(problems, fmt.Sprintf("level %q is not one of BRONZE, SILVER, GOLD, PLATINUM", r.Level))
	}
	if len(r.Attestation) == 0 {
		problems = append(problems, "attestation content is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// GenerateKey creates a new CA keypair, seals the private key under the
// passphrase, and installs it as the active key. Any previously active key is
// marked rotated in the same transaction and retained for verification.
func (s *SigningService) GenerateKey(ctx context.Context, actor string, alg domain.KeyAlgorithm, passphrase string) (*domain.CAKey, error) {
	if alg == "" {
		alg = domain.KeyAlgEd25519
	}
	if !alg.Valid() {
		return nil, fmt.Errorf("%w: unsupported key algorithm %q", domain.ErrValidation, alg)
	}
	if passphrase == "" {
		return nil, fmt.Errorf("%w: passphrase is required", domain.ErrValidation)
	}
	pub, sealed, err := s.KeyManager.Generate(ctx, alg, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: key generation: %v", domain.ErrCrypto, err)
	}
	key := domain.CAKey{
		ID:                  uuid.NewString(),
		Algorithm:           alg,
		PublicKey:           pub,
		EncryptedPrivateKey: sealed,
		Status:              domain.KeyStatusActive,
		CreatedAt:           s.now(),
	}
	previousID, err := s.Keys.ActivateNew(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := s.Audit.EmitKeyGenerated(ctx, actor, key.ID, alg, previousID); err != nil {
		return nil, err
	}
	return &key, nil
}

// Sign issues a certificate for the requested agent identity. The active
// key's private material is decrypted only inside the KeyManager.Sign call.
func (s *SigningService) Sign(ctx context.Context, req SigningRequest) (*domain.Certificate, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if err := s.checkPolicy(ctx, req); err != nil {
		return nil, err
	}
	cert, err := s.issue(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.Certs.Create(ctx, *cert); err != nil {
		return nil, err
	}
	if err := s.Keys.IncrementSigned(ctx, cert.SignatureKeyID); err != nil {
		return nil, err
	}
	if err := s.Audit.EmitCertificateIssued(ctx, req.Actor, *cert); err != nil {
		return nil, err
	}
	return cert, nil
}

// Renew reissues an active certificate with the same identity and a fresh
// validity window, superseding the old record atomically.
func (s *SigningService) Renew(ctx context.Context, old domain.Certificate, actor string) (*domain.Certificate, error) {
	var content domain.CertificateContent
	if err := json.Unmarshal(old.Content, &content); err != nil {
		return nil, fmt.Errorf("%w: decode certificate content: %v", domain.ErrCrypto, err)
	}
	req := SigningRequest{
		AgentID:      old.AgentID,
		AgentVersion: old.AgentVersion,
		OrgID:        old.OrgID,
		OrgName:      old.OrgName,
		OrgDomain:    old.OrgDomain,
		Level:        old.Level,
		Attestation:  content.Attestation,
		Actor:        actor,
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	cert, err := s.issue(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.Certs.Supersede(ctx, old.ID, *cert); err != nil {
		return nil, err
	}
	if err := s.Keys.IncrementSigned(ctx, cert.SignatureKeyID); err != nil {
		return nil, err
	}
	if err := s.Audit.EmitCertificateRenewed(ctx, actor, old.ID, cert.ID, cert.ExpiresAt); err != nil {
		return nil, err
	}
	return cert, nil
}

// VerifySignature recomputes the golden-thread hash and checks the CA
// signature against the key the certificate names, active or rotated.
func (s *SigningService) VerifySignature(ctx context.Context, cert domain.Certificate) error {
	hash := s.Crypto.GoldenThreadHash(cert.Content)
	if hash.Value != cert.GoldenThreadHash || hash.Alg != cert.GoldenThreadAlg {
		return fmt.Errorf("%w: golden thread hash mismatch", domain.ErrCrypto)
	}
	key, err := s.Keys.GetByID(ctx, cert.SignatureKeyID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: signing key %s not found", domain.ErrKeyUnavailable, cert.SignatureKeyID)
		}
		return err
	}
	if err := s.KeyManager.Verify(ctx, *key, cert.Content, cert.Signature); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCrypto, err)
	}
	return nil
}

func (s *SigningService) issue(ctx context.Context, req SigningRequest) (*domain.Certificate, error) {
	key, err := s.Keys.GetActive(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: no active CA key; generate one before issuing", domain.ErrKeyUnavailable)
		}
		return nil, err
	}

	now := s.now()
	validity := s.Validity
	if validity <= 0 {
		validity = DefaultCertValidity
	}
	content := domain.CertificateContent{
		Schema:        domain.CertificateSchema,
		CertificateID: uuid.NewString(),
		Agent:         domain.Agent{ID: req.AgentID, Version: req.AgentVersion},
		Org:           domain.Org{ID: req.OrgID, Name: req.OrgName, Domain: req.OrgDomain},
		Level:         req.Level,
		Attestation:   req.Attestation,
		IssuedAt:      now,
		ExpiresAt:     now.Add(validity),
	}
	canonical, err := s.Crypto.CanonicalizeContent(content)
	if err != nil {
		return nil, fmt.Errorf("%w: canonicalize content: %v", domain.ErrCrypto, err)
	}
	hash := s.Crypto.GoldenThreadHash(canonical)

	sig, err := s.KeyManager.Sign(ctx, *key, s.Passphrase, canonical)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCrypto, err)
	}

	return &domain.Certificate{
		ID:               content.CertificateID,
		AgentID:          req.AgentID,
		AgentVersion:     req.AgentVersion,
		OrgID:            req.OrgID,
		OrgName:          req.OrgName,
		OrgDomain:        req.OrgDomain,
		Level:            req.Level,
		GoldenThreadAlg:  hash.Alg,
		GoldenThreadHash: hash.Value,
		IssuedAt:         content.IssuedAt,
		ExpiresAt:        content.ExpiresAt,
		Content:          canonical,
		SignatureAlg:     string(key.Algorithm),
		SignatureKeyID:   key.ID,
		Signature:        sig,
		Status:           domain.CertStatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func (s *SigningService) checkPolicy(ctx context.Context, req SigningRequest) error {
	if s.Policy == nil {
		return nil
	}
	eval, err := s.Policy.Evaluate(ctx, domain.PolicyInput{
		Agent: domain.Agent{ID: req.AgentID, Version: req.AgentVersion},
		Org:   domain.Org{ID: req.OrgID, Name: req.OrgName, Domain: req.OrgDomain},
		Level: req.Level,
	})
	if err != nil {
		return fmt.Errorf("evaluate issuance policy: %w", err)
	}
	if !eval.Result.Allow {
		reason := strings.Join(eval.Result.Deny, "; ")
		if reason == "" {
			reason = "denied by issuance policy"
		}
		return fmt.Errorf("%w: %s", domain.ErrValidation, reason)
	}
	return nil
}

func (s *SigningService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}
