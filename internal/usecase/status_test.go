package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"sigil/internal/domain"
	"sigil/internal/infra/crypto"
)

func newTestResponder(now time.Time) (*StatusResponder, *stubCertRepo, *stubRevocationRepo, *stubCache, *stubKeyRepo) {
	certs := newStubCertRepo()
	revocations := newStubRevocationRepo(certs)
	cache := newStubCache()
	keys := newStubKeyRepo()
	keys.keys["key-1"] = &domain.CAKey{ID: "key-1", Algorithm: domain.KeyAlgEd25519, Status: domain.KeyStatusActive}
	keys.activeID = "key-1"
	responder := &StatusResponder{
		Certs:       certs,
		Revocations: revocations,
		Keys:        keys,
		KeyManager:  &stubKeyManager{},
		Cache:       cache,
		Crypto:      crypto.NewService(),
		Clock:       fixedClock(now),
		Validity:    time.Hour,
	}
	return responder, certs, revocations, cache, keys
}

func TestStatusQueryReportsGoodAndSignsBatch(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	responder, certs, _, cache, _ := newTestResponder(now)
	seedActiveCert(certs, "cert-1", now)

	resp, err := responder.Query(context.Background(), []string{"cert-1"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(resp.Responses) != 1 {
		t.Fatalf("expected one response, got %d", len(resp.Responses))
	}
	single := resp.Responses[0]
	if single.Status != domain.CertGood {
		t.Fatalf("expected good, got %s", single.Status)
	}
	if !single.ThisUpdate.Equal(now) || !single.NextUpdate.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected validity window: %s to %s", single.ThisUpdate, single.NextUpdate)
	}
	if resp.SignatureKeyID != "key-1" || len(resp.Signature) == 0 {
		t.Fatalf("expected signed batch, got key=%s sig=%d bytes", resp.SignatureKeyID, len(resp.Signature))
	}
	if cache.puts != 1 {
		t.Fatalf("expected response cached, got %d puts", cache.puts)
	}
}

func TestStatusQueryStatusPrecedence(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	responder, certs, revocations, _, _ := newTestResponder(now)

	// Revoked and past expiry: revoked wins.
	seedActiveCert(certs, "cert-revoked", now)
	certs.certs["cert-revoked"].ExpiresAt = now.Add(-time.Hour)
	if _, _, err := revocations.Revoke(context.Background(), "cert-revoked", "compromise", "secops", "", now.Add(-time.Minute)); err != nil {
		t.Fatalf("seed revocation: %v", err)
	}

	// Active but past expiry: expired, computed without any stored sweep.
	seedActiveCert(certs, "cert-expired", now)
	certs.certs["cert-expired"].ExpiresAt = now.Add(-time.Second)

	resp, err := responder.Query(context.Background(), []string{"cert-revoked", "cert-expired", "cert-missing"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	byID := map[string]domain.SingleResponse{}
	for _, single := range resp.Responses {
		byID[single.CertificateID] = single
	}
	if got := byID["cert-revoked"]; got.Status != domain.CertRevoked || got.RevocationTime == nil || got.RevocationReason != "compromise" {
		t.Fatalf("unexpected revoked response: %+v", got)
	}
	if got := byID["cert-expired"]; got.Status != domain.CertExpired {
		t.Fatalf("expected expired, got %s", got.Status)
	}
	if got := byID["cert-missing"]; got.Status != domain.CertUnknown {
		t.Fatalf("expected unknown, got %s", got.Status)
	}
}

func TestStatusQueryServesCacheInsideWindow(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	responder, certs, _, cache, _ := newTestResponder(now)
	seedActiveCert(certs, "cert-1", now)

	if _, err := responder.Query(context.Background(), []string{"cert-1"}); err != nil {
		t.Fatalf("first query: %v", err)
	}
	if cache.puts != 1 {
		t.Fatalf("expected one cache write, got %d", cache.puts)
	}

	// Second query inside the window reuses the cached response.
	responder.Clock = fixedClock(now.Add(30 * time.Minute))
	resp, err := responder.Query(context.Background(), []string{"cert-1"})
	if err != nil {
		t.Fatalf("second query: %v", err)
	}
	if cache.puts != 1 {
		t.Fatalf("expected cached response reuse, got %d puts", cache.puts)
	}
	if !resp.Responses[0].ThisUpdate.Equal(now) {
		t.Fatalf("expected original window, got %s", resp.Responses[0].ThisUpdate)
	}

	// Past NextUpdate the response is regenerated in place.
	responder.Clock = fixedClock(now.Add(2 * time.Hour))
	resp, err = responder.Query(context.Background(), []string{"cert-1"})
	if err != nil {
		t.Fatalf("third query: %v", err)
	}
	if cache.puts != 2 {
		t.Fatalf("expected regeneration, got %d puts", cache.puts)
	}
	if !resp.Responses[0].ThisUpdate.Equal(now.Add(2 * time.Hour)) {
		t.Fatalf("expected fresh window, got %s", resp.Responses[0].ThisUpdate)
	}
}

func TestStatusQueryNeverServesStaleGoodAfterRevocation(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	responder, certs, revocations, cache, _ := newTestResponder(now)
	seedActiveCert(certs, "cert-1", now)

	if _, err := responder.Query(context.Background(), []string{"cert-1"}); err != nil {
		t.Fatalf("prime cache: %v", err)
	}

	// Revoke without going through the manager, so the cached "good" entry
	// is still present and inside its window.
	if _, _, err := revocations.Revoke(context.Background(), "cert-1", "compromise", "secops", "", now.Add(time.Minute)); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, ok := cache.entries["cert-1"]; !ok {
		t.Fatalf("expected stale cache entry to still exist for the test")
	}

	responder.Clock = fixedClock(now.Add(2 * time.Minute))
	resp, err := responder.Query(context.Background(), []string{"cert-1"})
	if err != nil {
		t.Fatalf("query after revocation: %v", err)
	}
	if resp.Responses[0].Status != domain.CertRevoked {
		t.Fatalf("expected revoked, got %s", resp.Responses[0].Status)
	}
}

func TestStatusQueryValidation(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	responder, _, _, _, _ := newTestResponder(now)

	if _, err := responder.Query(context.Background(), nil); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStatusQueryRequiresActiveKey(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	responder, certs, _, _, keys := newTestResponder(now)
	seedActiveCert(certs, "cert-1", now)
	keys.activeID = ""

	if _, err := responder.Query(context.Background(), []string{"cert-1"}); !errors.Is(err, domain.ErrKeyUnavailable) {
		t.Fatalf("expected key unavailable, got %v", err)
	}
}
