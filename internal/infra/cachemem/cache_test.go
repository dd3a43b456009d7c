package cachemem

import (
	"context"
	"testing"
	"time"

	"sigil/internal/domain"
)

func TestCachePutGetDelete(t *testing.T) {
	cache := New()
	ctx := context.Background()
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	if _, ok, err := cache.Get(ctx, "cert-1"); err != nil || ok {
		t.Fatalf("expected miss on empty cache, ok=%v err=%v", ok, err)
	}

	entry := domain.OCSPCacheEntry{
		CertificateID: "cert-1",
		Response:      domain.SingleResponse{CertificateID: "cert-1", Status: domain.CertGood},
		ProducedAt:    now,
		ThisUpdate:    now,
		NextUpdate:    now.Add(time.Hour),
	}
	if err := cache.Put(ctx, entry); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := cache.Get(ctx, "cert-1")
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if got.Response.Status != domain.CertGood || !got.NextUpdate.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected entry: %+v", got)
	}

	// One live row per certificate: a second put replaces the first.
	entry.Response.Status = domain.CertRevoked
	if err := cache.Put(ctx, entry); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, _, _ = cache.Get(ctx, "cert-1")
	if got.Response.Status != domain.CertRevoked {
		t.Fatalf("expected replacement, got %s", got.Response.Status)
	}

	if err := cache.Delete(ctx, "cert-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := cache.Get(ctx, "cert-1"); ok {
		t.Fatalf("expected miss after delete")
	}
}
