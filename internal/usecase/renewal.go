package usecase

import (
	"context"
	"log"
	"time"

	"sigil/internal/domain"
)

const renewalActor = "system:renewal"

// RenewalScheduler reissues near-expiry certificates ahead of time. It is
// safe to run on a schedule or on demand; candidates are recomputed from the
// source tables on every run.
type RenewalScheduler struct {
	Certs  CertificateRepository
	Signer *SigningService
	Clock  Clock
	Window time.Duration
}

type RenewalReport struct {
	Scanned   int
	Succeeded int
	Failed    int
}

func (s *RenewalScheduler) ComputeRenewalCandidates(ctx context.Context) ([]domain.Certificate, error) {
	now := s.now()
	window := s.Window
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}
	return s.Certs.ListExpiringActive(ctx, now, now.Add(window))
}

// Run renews every candidate independently. One certificate failing is
// counted and logged without touching the rest of the batch; successes stay
// committed.
func (s *RenewalScheduler) Run(ctx context.Context) (RenewalReport, error) {
	candidates, err := s.ComputeRenewalCandidates(ctx)
	if err != nil {
		return RenewalReport{}, err
	}
	report := RenewalReport{Scanned: len(candidates)}
	for _, cert := range candidates {
		renewed, err := s.Signer.Renew(ctx, cert, renewalActor)
		if err != nil {
			report.Failed++
			log.Printf("renewal: certificate %s (agent %s): %v", cert.ID, cert.AgentID, err)
			continue
		}
		report.Succeeded++
		log.Printf("renewal: certificate %s superseded by %s, expires %s", cert.ID, renewed.ID, renewed.ExpiresAt.Format(time.RFC3339))
	}
	return report, nil
}

func (s *RenewalScheduler) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}
