package usecase

import (
	"context"
	"testing"
	"time"

	"sigil/internal/domain"
)

func TestAuditEmitterFillsDefaults(t *testing.T) {
	repo := &stubAuditRepo{}
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	emitter := NewAuditEmitter(repo, fixedClock(now))

	entry, err := emitter.Emit(context.Background(), domain.AuditEntry{
		Actor:      "op",
		Action:     domain.AuditCertificateIssued,
		Resource:   domain.AuditResourceCertificate,
		ResourceID: "cert-1",
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if entry.ID == 0 {
		t.Fatalf("expected assigned id")
	}
	if !entry.CreatedAt.Equal(now) {
		t.Fatalf("expected clock timestamp, got %s", entry.CreatedAt)
	}
	if entry.Details == nil {
		t.Fatalf("expected non-nil details")
	}
}

func TestAuditEmitterRejectsIncompleteEntries(t *testing.T) {
	emitter := NewAuditEmitter(&stubAuditRepo{}, nil)

	_, err := emitter.Emit(context.Background(), domain.AuditEntry{Actor: "op"})
	if err == nil {
		t.Fatalf("expected error for missing action and resource")
	}
}

func TestEmitKeyGeneratedBecomesRotationWithPredecessor(t *testing.T) {
	repo := &stubAuditRepo{}
	emitter := NewAuditEmitter(repo, nil)
	ctx := context.Background()

	if err := emitter.EmitKeyGenerated(ctx, "op", "key-1", domain.KeyAlgEd25519, ""); err != nil {
		t.Fatalf("emit first: %v", err)
	}
	if err := emitter.EmitKeyGenerated(ctx, "op", "key-2", domain.KeyAlgEd25519, "key-1"); err != nil {
		t.Fatalf("emit second: %v", err)
	}

	if repo.entries[0].Action != domain.AuditKeyGenerated {
		t.Fatalf("expected key_generated, got %s", repo.entries[0].Action)
	}
	second := repo.entries[1]
	if second.Action != domain.AuditKeyRotated {
		t.Fatalf("expected key_rotated, got %s", second.Action)
	}
	if second.Details["previous_key_id"] != "key-1" {
		t.Fatalf("expected predecessor recorded, got %+v", second.Details)
	}
}
