package domain

import "time"

type ComplianceLevel string

const (
	LevelBronze   ComplianceLevel = "BRONZE"
	LevelSilver   ComplianceLevel = "SILVER"
	LevelGold     ComplianceLevel = "GOLD"
	LevelPlatinum ComplianceLevel = "PLATINUM"
)

func (l ComplianceLevel) Valid() bool {
	switch l {
	case LevelBronze, LevelSilver, LevelGold, LevelPlatinum:
		return true
	}
	return false
}

type CertificateStatus string

const (
	CertStatusActive     CertificateStatus = "active"
	CertStatusRevoked    CertificateStatus = "revoked"
	CertStatusExpired    CertificateStatus = "expired"
	CertStatusSuperseded CertificateStatus = "superseded"
)

const (
	CertificateSchema = "cga.certificate.v1"
	HashAlgSHA256     = "sha256"
)

type Agent struct {
	ID      string `json:"id"`
	Version string `json:"version"`
}

type Org struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Domain string `json:"domain,omitempty"`
}

// CertificateContent is the canonical attested document. Its canonical JSON
// encoding is what the golden-thread hash and the CA signature bind to.
type CertificateContent struct {
	Schema        string          `json:"schema"`
	CertificateID string          `json:"certificate_id"`
	Agent         Agent           `json:"agent"`
	Org           Org             `json:"org"`
	Level         ComplianceLevel `json:"level"`
	Attestation   map[string]any  `json:"attestation"`
	IssuedAt      time.Time       `json:"issued_at"`
	ExpiresAt     time.Time       `json:"expires_at"`
}

type Hash struct {
	Alg   string `json:"alg"`
	Value string `json:"value"`
}

type Certificate struct {
	ID               string
	AgentID          string
	AgentVersion     string
	OrgID            string
	OrgName          string
	OrgDomain        string
	Level            ComplianceLevel
	GoldenThreadAlg  string
	GoldenThreadHash string
	IssuedAt         time.Time
	ExpiresAt        time.Time

	// Content holds the canonical bytes the signature was computed over.
	Content []byte

	SignatureAlg   string
	SignatureKeyID string
	Signature      []byte

	Status           CertificateStatus
	RevokedAt        *time.Time
	RevocationReason string
	SupersededBy     string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectiveStatus folds expiry into the persisted status. Expiry is never
// written back to storage; it is recomputed from expires_at on every read.
func (c Certificate) EffectiveStatus(now time.Time) CertificateStatus {
	if c.Status == CertStatusActive && !now.Before(c.ExpiresAt) {
		return CertStatusExpired
	}
	return c.Status
}

func (c Certificate) Identity() (string, string, string) {
	return c.AgentID, c.AgentVersion, c.OrgID
}
