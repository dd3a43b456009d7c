package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sigil/internal/domain"
)

const DefaultResponseValidity = 3600 * time.Second

// StatusResponder answers OCSP-style queries from cached, time-windowed,
// signed responses. It is decoupled from any wire encoding; the transport
// layer owns framing.
type StatusResponder struct {
	Certs       CertificateRepository
	Revocations RevocationRepository
	Keys        KeyRepository
	KeyManager  domain.KeyManager
	Cache       OCSPCacheStore
	Crypto      CryptoService
	Clock       Clock
	Passphrase  string
	Validity    time.Duration
}

// Query resolves the status of each certificate id and returns one signed
// batch. Per id: a cache hit inside its window is served only when the
// freshly computed status still matches it; anything else regenerates the
// single cache row (last write wins).
func (r *StatusResponder) Query(ctx context.Context, certificateIDs []string) (*domain.StatusResponse, error) {
	if len(certificateIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one certificate id is required", domain.ErrValidation)
	}
	now := r.now()
	validity := r.Validity
	if validity <= 0 {
		validity = DefaultResponseValidity
	}

	responses := make([]domain.SingleResponse, 0, len(certificateIDs))
	for _, id := range certificateIDs {
		single, err := r.resolve(ctx, id, now, validity)
		if err != nil {
			return nil, err
		}
		responses = append(responses, single)
	}

	signed, err := r.sign(ctx, responses, now)
	if err != nil {
		return nil, err
	}
	return signed, nil
}

func (r *StatusResponder) resolve(ctx context.Context, certificateID string, now time.Time, validity time.Duration) (domain.SingleResponse, error) {
	current, err := r.computeStatus(ctx, certificateID, now)
	if err != nil {
		return domain.SingleResponse{}, err
	}

	entry, ok, err := r.Cache.Get(ctx, certificateID)
	if err != nil {
		return domain.SingleResponse{}, err
	}
	if ok && entry.ValidAt(now) && entry.Response.Status == current.Status {
		return entry.Response, nil
	}

	single := current
	single.ThisUpdate = now
	single.NextUpdate = now.Add(validity)
	if err := r.Cache.Put(ctx, domain.OCSPCacheEntry{
		CertificateID: certificateID,
		Response:      single,
		ProducedAt:    now,
		ThisUpdate:    single.ThisUpdate,
		NextUpdate:    single.NextUpdate,
	}); err != nil {
		return domain.SingleResponse{}, err
	}
	return single, nil
}

// computeStatus recomputes status from the source-of-truth tables. Priority:
// revoked > expired > unknown > good. Expiry is virtual, derived from
// expires_at; a certificate past expiry is never reported good even when its
// stored status column still says active.
func (r *StatusResponder) computeStatus(ctx context.Context, certificateID string, now time.Time) (domain.SingleResponse, error) {
	single := domain.SingleResponse{CertificateID: certificateID}

	rev, err := r.Revocations.GetByCertificate(ctx, certificateID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.SingleResponse{}, err
	}
	if rev != nil {
		single.Status = domain.CertRevoked
		revokedAt := rev.RevokedAt
		single.RevocationTime = &revokedAt
		single.RevocationReason = rev.Reason
		return single, nil
	}

	cert, err := r.Certs.GetByID(ctx, certificateID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			single.Status = domain.CertUnknown
			return single, nil
		}
		return domain.SingleResponse{}, err
	}

	switch cert.EffectiveStatus(now) {
	case domain.CertStatusRevoked:
		single.Status = domain.CertRevoked
		if cert.RevokedAt != nil {
			revokedAt := *cert.RevokedAt
			single.RevocationTime = &revokedAt
		}
		single.RevocationReason = cert.RevocationReason
	case domain.CertStatusExpired:
		single.Status = domain.CertExpired
	case domain.CertStatusActive:
		single.Status = domain.CertGood
	default:
		// Superseded records answer like any other non-active record:
		// expired once past expiry, otherwise good is wrong, so report
		// unknown to push clients to the successor certificate.
		if !now.Before(cert.ExpiresAt) {
			single.Status = domain.CertExpired
		} else {
			single.Status = domain.CertUnknown
		}
	}
	return single, nil
}

func (r *StatusResponder) sign(ctx context.Context, responses []domain.SingleResponse, now time.Time) (*domain.StatusResponse, error) {
	key, err := r.Keys.GetActive(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: no active CA key to sign status response", domain.ErrKeyUnavailable)
		}
		return nil, err
	}
	canonical, err := r.Crypto.CanonicalizeResponses(responses)
	if err != nil {
		return nil, fmt.Errorf("%w: canonicalize responses: %v", domain.ErrCrypto, err)
	}
	sig, err := r.KeyManager.Sign(ctx, *key, r.Passphrase, canonical)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCrypto, err)
	}
	return &domain.StatusResponse{
		Responses:      responses,
		ProducedAt:     now,
		SignatureAlg:   string(key.Algorithm),
		SignatureKeyID: key.ID,
		Signature:      sig,
	}, nil
}

func (r *StatusResponder) now() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}
