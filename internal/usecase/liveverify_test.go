package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"sigil/internal/domain"
)

func newTestLiveVerifier(now time.Time) (*LiveVerificationService, *stubCertRepo, *stubProbe, *stubHistoryRepo) {
	certs := newStubCertRepo()
	probe := &stubProbe{}
	history := &stubHistoryRepo{}
	svc := &LiveVerificationService{
		Certs:   certs,
		Probe:   probe,
		History: history,
		Clock:   fixedClock(now),
	}
	return svc, certs, probe, history
}

func seedIdentityCert(certs *stubCertRepo, id string, now time.Time) *domain.Certificate {
	cert := &domain.Certificate{
		ID:               id,
		AgentID:          "agent-1",
		AgentVersion:     "1.0.0",
		OrgID:            "org-1",
		Level:            domain.LevelSilver,
		GoldenThreadAlg:  domain.HashAlgSHA256,
		GoldenThreadHash: "abc123",
		Status:           domain.CertStatusActive,
		IssuedAt:         now.Add(-time.Hour),
		ExpiresAt:        now.Add(24 * time.Hour),
		CreatedAt:        now.Add(-time.Hour),
	}
	certs.certs[id] = cert
	return cert
}

func liveTarget() domain.ProbeTarget {
	return domain.ProbeTarget{
		AgentID:      "agent-1",
		AgentVersion: "1.0.0",
		OrgID:        "org-1",
		Context:      map[string]any{"channel": "procurement"},
	}
}

func TestLiveVerifyValid(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	svc, certs, probe, history := newTestLiveVerifier(now)
	seedIdentityCert(certs, "cert-1", now)
	probe.state = &domain.LiveState{
		AgentID:          "agent-1",
		AgentVersion:     "1.0.0",
		GoldenThreadAlg:  domain.HashAlgSHA256,
		GoldenThreadHash: "abc123",
	}

	outcome, err := svc.Verify(context.Background(), liveTarget())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if outcome.Result != domain.VerificationValid {
		t.Fatalf("expected valid, got %s (%s)", outcome.Result, outcome.Detail)
	}
	if outcome.CertificateID != "cert-1" || outcome.Level != domain.LevelSilver {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if len(history.records) != 1 {
		t.Fatalf("expected one history record, got %d", len(history.records))
	}
	record := history.records[0]
	if record.Result != domain.VerificationValid || record.CertificateID != "cert-1" {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.Context["channel"] != "procurement" {
		t.Fatalf("expected request context persisted")
	}
}

func TestLiveVerifyHashMismatch(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	svc, certs, probe, history := newTestLiveVerifier(now)
	seedIdentityCert(certs, "cert-1", now)
	probe.state = &domain.LiveState{
		AgentID:          "agent-1",
		AgentVersion:     "1.0.0",
		GoldenThreadAlg:  domain.HashAlgSHA256,
		GoldenThreadHash: "tampered",
	}

	outcome, err := svc.Verify(context.Background(), liveTarget())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if outcome.Result != domain.VerificationMismatch {
		t.Fatalf("expected mismatch, got %s", outcome.Result)
	}
	if len(history.records) != 1 || history.records[0].Result != domain.VerificationMismatch {
		t.Fatalf("expected mismatch recorded, got %+v", history.records)
	}
}

func TestLiveVerifyIdentityMismatch(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	svc, certs, probe, _ := newTestLiveVerifier(now)
	seedIdentityCert(certs, "cert-1", now)
	probe.state = &domain.LiveState{
		AgentID:          "agent-1",
		AgentVersion:     "9.9.9",
		GoldenThreadHash: "abc123",
	}

	outcome, err := svc.Verify(context.Background(), liveTarget())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if outcome.Result != domain.VerificationMismatch {
		t.Fatalf("expected mismatch, got %s", outcome.Result)
	}
}

func TestLiveVerifyRevokedSkipsProbe(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	svc, certs, probe, history := newTestLiveVerifier(now)
	cert := seedIdentityCert(certs, "cert-1", now)
	cert.Status = domain.CertStatusRevoked
	cert.RevocationReason = "compromise"
	probe.err = errors.New("probe should not be called")

	outcome, err := svc.Verify(context.Background(), liveTarget())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if outcome.Result != domain.VerificationRevoked || outcome.Detail != "compromise" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if len(history.records) != 1 {
		t.Fatalf("expected history record, got %d", len(history.records))
	}
}

func TestLiveVerifyExpiredByTime(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	svc, certs, _, _ := newTestLiveVerifier(now)
	cert := seedIdentityCert(certs, "cert-1", now)
	cert.ExpiresAt = now.Add(-time.Minute)

	outcome, err := svc.Verify(context.Background(), liveTarget())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if outcome.Result != domain.VerificationExpired {
		t.Fatalf("expected expired, got %s", outcome.Result)
	}
}

func TestLiveVerifyProbeFailureIsInvalid(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	svc, certs, probe, history := newTestLiveVerifier(now)
	seedIdentityCert(certs, "cert-1", now)
	probe.err = errors.New("connection refused")

	outcome, err := svc.Verify(context.Background(), liveTarget())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if outcome.Result != domain.VerificationInvalid {
		t.Fatalf("expected invalid, got %s", outcome.Result)
	}
	if len(history.records) != 1 || history.records[0].Result != domain.VerificationInvalid {
		t.Fatalf("expected failure recorded")
	}
}

func TestLiveVerifyUnknownIdentityStillRecorded(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	svc, _, _, history := newTestLiveVerifier(now)

	outcome, err := svc.Verify(context.Background(), liveTarget())
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if outcome.Result != domain.VerificationUnknown {
		t.Fatalf("expected unknown, got %s", outcome.Result)
	}
	if len(history.records) != 1 || history.records[0].CertificateID != "" {
		t.Fatalf("expected record without certificate id, got %+v", history.records)
	}
}

func TestLiveVerifyValidatesTarget(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	svc, _, _, history := newTestLiveVerifier(now)

	_, err := svc.Verify(context.Background(), domain.ProbeTarget{AgentID: "agent-1"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(history.records) != 0 {
		t.Fatalf("expected no record for rejected request")
	}
}
