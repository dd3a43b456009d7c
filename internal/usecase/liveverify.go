package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sigil/internal/domain"
)

// LiveVerificationService cross-checks a claimed agent identity against the
// registry and the agent's live attested state. Every attempt lands in the
// verification history, success or failure, with its elapsed duration.
type LiveVerificationService struct {
	Certs   CertificateRepository
	Probe   StateProbe
	History VerificationRepository
	Clock   Clock
}

type LiveVerification struct {
	Result        domain.VerificationResult
	Detail        string
	CertificateID string
	Level         domain.ComplianceLevel
}

func (s *LiveVerificationService) Verify(ctx context.Context, target domain.ProbeTarget) (*LiveVerification, error) {
	if target.AgentID == "" || target.AgentVersion == "" || target.OrgID == "" {
		return nil, fmt.Errorf("%w: agent_id, agent_version and org_id are required", domain.ErrValidation)
	}
	start := s.now()
	outcome, cert, verifyErr := s.check(ctx, target, start)

	record := domain.VerificationRecord{
		AgentID:    target.AgentID,
		OrgID:      target.OrgID,
		Context:    target.Context,
		Result:     outcome.Result,
		Detail:     outcome.Detail,
		DurationMs: s.now().Sub(start).Milliseconds(),
		CreatedAt:  start,
	}
	if cert != nil {
		record.CertificateID = cert.ID
	}
	if _, err := s.History.Append(ctx, record); err != nil {
		return nil, fmt.Errorf("append verification history: %w", err)
	}
	if verifyErr != nil {
		return nil, verifyErr
	}
	return outcome, nil
}

func (s *LiveVerificationService) check(ctx context.Context, target domain.ProbeTarget, now time.Time) (*LiveVerification, *domain.Certificate, error) {
	cert, err := s.Certs.GetLatestByIdentity(ctx, target.AgentID, target.AgentVersion, target.OrgID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &LiveVerification{
				Result: domain.VerificationUnknown,
				Detail: "no certificate on record for claimed identity",
			}, nil, nil
		}
		return &LiveVerification{Result: domain.VerificationUnknown, Detail: err.Error()}, nil, err
	}

	outcome := &LiveVerification{CertificateID: cert.ID, Level: cert.Level}
	switch cert.EffectiveStatus(now) {
	case domain.CertStatusRevoked:
		outcome.Result = domain.VerificationRevoked
		outcome.Detail = cert.RevocationReason
		return outcome, cert, nil
	case domain.CertStatusExpired:
		outcome.Result = domain.VerificationExpired
		return outcome, cert, nil
	}

	state, err := s.Probe.Fetch(ctx, target)
	if err != nil {
		outcome.Result = domain.VerificationInvalid
		outcome.Detail = fmt.Sprintf("live state probe failed: %v", err)
		return outcome, cert, nil
	}
	if state.AgentID != cert.AgentID || state.AgentVersion != cert.AgentVersion {
		outcome.Result = domain.VerificationMismatch
		outcome.Detail = "probe reported a different agent identity"
		return outcome, cert, nil
	}
	if state.GoldenThreadHash != cert.GoldenThreadHash {
		outcome.Result = domain.VerificationMismatch
		outcome.Detail = "golden thread hash differs from certified content"
		return outcome, cert, nil
	}

	outcome.Result = domain.VerificationValid
	return outcome, cert, nil
}

func (s *LiveVerificationService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}
