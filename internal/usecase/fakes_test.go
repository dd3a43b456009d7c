package usecase

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sort"
	"time"

	"sigil/internal/domain"
)

type stubCertRepo struct {
	certs     map[string]*domain.Certificate
	createErr error
	listErr   error
}

func newStubCertRepo() *stubCertRepo {
	return &stubCertRepo{certs: make(map[string]*domain.Certificate)}
}

func (r *stubCertRepo) Create(_ context.Context, cert domain.Certificate) error {
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.certs {
		if existing.Status == domain.CertStatusActive &&
			existing.AgentID == cert.AgentID &&
			existing.AgentVersion == cert.AgentVersion &&
			existing.OrgID == cert.OrgID {
			return fmt.Errorf("%w: identity already certified", domain.ErrConflict)
		}
	}
	copied := cert
	r.certs[cert.ID] = &copied
	return nil
}

func (r *stubCertRepo) GetByID(_ context.Context, id string) (*domain.Certificate, error) {
	cert, ok := r.certs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *cert
	return &copied, nil
}

func (r *stubCertRepo) GetLatestByIdentity(_ context.Context, agentID, agentVersion, orgID string) (*domain.Certificate, error) {
	var latest *domain.Certificate
	for _, cert := range r.certs {
		if cert.AgentID != agentID || cert.AgentVersion != agentVersion || cert.OrgID != orgID {
			continue
		}
		if latest == nil || cert.CreatedAt.After(latest.CreatedAt) {
			latest = cert
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

func (r *stubCertRepo) ListByAgent(_ context.Context, agentID string) ([]domain.Certificate, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.Certificate
	for _, cert := range r.certs {
		if cert.AgentID == agentID {
			out = append(out, *cert)
		}
	}
	sortCerts(out)
	return out, nil
}

func (r *stubCertRepo) ListByOrg(_ context.Context, orgID string) ([]domain.Certificate, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.Certificate
	for _, cert := range r.certs {
		if cert.OrgID == orgID {
			out = append(out, *cert)
		}
	}
	sortCerts(out)
	return out, nil
}

func (r *stubCertRepo) ListExpiringActive(_ context.Context, now, until time.Time) ([]domain.Certificate, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []domain.Certificate
	for _, cert := range r.certs {
		if cert.Status != domain.CertStatusActive {
			continue
		}
		if cert.ExpiresAt.After(now) && !cert.ExpiresAt.After(until) {
			out = append(out, *cert)
		}
	}
	sortCerts(out)
	return out, nil
}

func (r *stubCertRepo) Supersede(_ context.Context, oldID string, renewal domain.Certificate) error {
	old, ok := r.certs[oldID]
	if !ok {
		return domain.ErrNotFound
	}
	if old.Status != domain.CertStatusActive {
		return fmt.Errorf("%w: certificate %s is %s", domain.ErrConflict, oldID, old.Status)
	}
	old.Status = domain.CertStatusSuperseded
	old.SupersededBy = renewal.ID
	copied := renewal
	r.certs[renewal.ID] = &copied
	return nil
}

func sortCerts(certs []domain.Certificate) {
	sort.Slice(certs, func(i, j int) bool {
		return certs[i].CreatedAt.After(certs[j].CreatedAt)
	})
}

type stubKeyRepo struct {
	keys        map[string]*domain.CAKey
	activeID    string
	signedCalls map[string]int
}

func newStubKeyRepo() *stubKeyRepo {
	return &stubKeyRepo{keys: make(map[string]*domain.CAKey), signedCalls: make(map[string]int)}
}

func (r *stubKeyRepo) GetActive(_ context.Context) (*domain.CAKey, error) {
	key, ok := r.keys[r.activeID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *key
	return &copied, nil
}

func (r *stubKeyRepo) GetByID(_ context.Context, id string) (*domain.CAKey, error) {
	key, ok := r.keys[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *key
	return &copied, nil
}

func (r *stubKeyRepo) ActivateNew(_ context.Context, key domain.CAKey) (string, error) {
	previousID := ""
	if current, ok := r.keys[r.activeID]; ok {
		current.Status = domain.KeyStatusRotated
		previousID = current.ID
	}
	copied := key
	r.keys[key.ID] = &copied
	r.activeID = key.ID
	return previousID, nil
}

func (r *stubKeyRepo) IncrementSigned(_ context.Context, id string) error {
	r.signedCalls[id]++
	return nil
}

type stubRevocationRepo struct {
	certs       *stubCertRepo
	revocations map[string]domain.Revocation
	nextID      int
}

func newStubRevocationRepo(certs *stubCertRepo) *stubRevocationRepo {
	return &stubRevocationRepo{certs: certs, revocations: make(map[string]domain.Revocation)}
}

func (r *stubRevocationRepo) GetByCertificate(_ context.Context, certificateID string) (*domain.Revocation, error) {
	rev, ok := r.revocations[certificateID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := rev
	return &copied, nil
}

func (r *stubRevocationRepo) Revoke(_ context.Context, certificateID, reason, revokedBy, incidentID string, now time.Time) (domain.Revocation, bool, error) {
	cert, ok := r.certs.certs[certificateID]
	if !ok {
		return domain.Revocation{}, false, domain.ErrNotFound
	}
	if existing, ok := r.revocations[certificateID]; ok {
		return existing, false, nil
	}
	r.nextID++
	rev := domain.Revocation{
		ID:            fmt.Sprintf("rev-%d", r.nextID),
		CertificateID: certificateID,
		Reason:        reason,
		RevokedBy:     revokedBy,
		IncidentID:    incidentID,
		RevokedAt:     now,
		CreatedAt:     now,
	}
	r.revocations[certificateID] = rev
	revokedAt := now
	cert.Status = domain.CertStatusRevoked
	cert.RevokedAt = &revokedAt
	cert.RevocationReason = reason
	return rev, true, nil
}

type stubCache struct {
	entries map[string]domain.OCSPCacheEntry
	puts    int
	deletes int
}

func newStubCache() *stubCache {
	return &stubCache{entries: make(map[string]domain.OCSPCacheEntry)}
}

func (c *stubCache) Get(_ context.Context, certificateID string) (*domain.OCSPCacheEntry, bool, error) {
	entry, ok := c.entries[certificateID]
	if !ok {
		return nil, false, nil
	}
	copied := entry
	return &copied, true, nil
}

func (c *stubCache) Put(_ context.Context, entry domain.OCSPCacheEntry) error {
	c.puts++
	c.entries[entry.CertificateID] = entry
	return nil
}

func (c *stubCache) Delete(_ context.Context, certificateID string) error {
	c.deletes++
	delete(c.entries, certificateID)
	return nil
}

type stubHistoryRepo struct {
	records []domain.VerificationRecord
	err     error
}

func (r *stubHistoryRepo) Append(_ context.Context, record domain.VerificationRecord) (domain.VerificationRecord, error) {
	if r.err != nil {
		return domain.VerificationRecord{}, r.err
	}
	if record.ID == "" {
		record.ID = fmt.Sprintf("ver-%d", len(r.records)+1)
	}
	r.records = append(r.records, record)
	return record, nil
}

type stubAuditRepo struct {
	entries []domain.AuditEntry
	err     error
}

func (r *stubAuditRepo) Append(_ context.Context, entry domain.AuditEntry) (domain.AuditEntry, error) {
	if r.err != nil {
		return domain.AuditEntry{}, r.err
	}
	entry.ID = int64(len(r.entries) + 1)
	r.entries = append(r.entries, entry)
	return entry, nil
}

type stubPolicyEngine struct {
	eval domain.PolicyEvaluation
	err  error
}

func (e *stubPolicyEngine) Evaluate(_ context.Context, _ domain.PolicyInput) (domain.PolicyEvaluation, error) {
	return e.eval, e.err
}

type stubProbe struct {
	state *domain.LiveState
	err   error
}

func (p *stubProbe) Fetch(_ context.Context, _ domain.ProbeTarget) (*domain.LiveState, error) {
	return p.state, p.err
}

// stubKeyManager signs by hashing the payload; Verify recomputes and compares.
// Logic tests use it to avoid real key sealing.
type stubKeyManager struct {
	signErr error
}

func (m *stubKeyManager) Generate(_ context.Context, _ domain.KeyAlgorithm, _ string) ([]byte, []byte, error) {
	return []byte("stub-public"), []byte("stub-sealed"), nil
}

func (m *stubKeyManager) Sign(_ context.Context, key domain.CAKey, _ string, payload []byte) ([]byte, error) {
	if m.signErr != nil {
		return nil, m.signErr
	}
	sum := sha256.Sum256(append([]byte(key.ID+":"), payload...))
	return sum[:], nil
}

func (m *stubKeyManager) Verify(_ context.Context, key domain.CAKey, payload, sig []byte) error {
	sum := sha256.Sum256(append([]byte(key.ID+":"), payload...))
	if string(sum[:]) != string(sig) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

func fixedClock(at time.Time) Clock {
	return func() time.Time { return at }
}
