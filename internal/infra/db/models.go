package db

import "time"

type CertificateModel struct {
	ID               string `gorm:"type:uuid;primaryKey"`
	AgentID          string `gorm:"index;not null;uniqueIndex:ux_certificates_identity,where:status = 'active'"`
	AgentVersion     string `gorm:"not null;uniqueIndex:ux_certificates_identity,where:status = 'active'"`
	OrgID            string `gorm:"index;not null;uniqueIndex:ux_certificates_identity,where:status = 'active'"`
	OrgName          string `gorm:"not null"`
	OrgDomain        *string
	Level            string `gorm:"not null"`
	GoldenThreadAlg  string `gorm:"not null"`
	GoldenThreadHash string `gorm:"index;not null"`
	IssuedAt         time.Time `gorm:"not null"`
	ExpiresAt        time.Time `gorm:"index;not null"`
	Content          []byte    `gorm:"type:jsonb;not null"`
	SignatureAlg     string    `gorm:"not null"`
	SignatureKeyID   string    `gorm:"type:uuid;index;not null"`
	Signature        []byte    `gorm:"type:bytea;not null"`
	Status           string    `gorm:"index;not null"`
	RevokedAt        *time.Time
	RevocationReason *string
	SupersededBy     *string   `gorm:"type:uuid"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

func (CertificateModel) TableName() string {
	return "certificates"
}

type RevocationModel struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	CertificateID string `gorm:"type:uuid;uniqueIndex;not null"`
	Reason        string `gorm:"not null"`
	RevokedBy     string `gorm:"not null"`
	IncidentID    *string
	RevokedAt     time.Time `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
}

func (RevocationModel) TableName() string {
	return "revocations"
}

type OCSPCacheModel struct {
	CertificateID string    `gorm:"type:uuid;primaryKey"`
	Response      []byte    `gorm:"type:jsonb;not null"`
	Status        string    `gorm:"not null"`
	ProducedAt    time.Time `gorm:"not null"`
	ThisUpdate    time.Time `gorm:"not null"`
	NextUpdate    time.Time `gorm:"index;not null"`
}

func (OCSPCacheModel) TableName() string {
	return "ocsp_cache"
}

type VerificationModel struct {
	ID            string  `gorm:"type:uuid;primaryKey"`
	CertificateID *string `gorm:"type:uuid;index"`
	AgentID       string  `gorm:"index;not null"`
	OrgID         string  `gorm:"index;not null"`
	Context       []byte  `gorm:"type:jsonb"`
	Result        string  `gorm:"not null"`
	Detail        string
	DurationMs    int64     `gorm:"not null"`
	CreatedAt     time.Time `gorm:"index;not null"`
}

func (VerificationModel) TableName() string {
	return "verification_history"
}

type CAKeyModel struct {
	ID                  string    `gorm:"type:uuid;primaryKey"`
	Algorithm           string    `gorm:"not null"`
	PublicKey           []byte    `gorm:"type:bytea;not null"`
	EncryptedPrivateKey []byte    `gorm:"type:bytea;not null"`
	Status              string    `gorm:"index;not null;uniqueIndex:ux_ca_keys_active,where:status = 'active'"`
	CertificatesSigned  int64     `gorm:"not null;default:0"`
	CreatedAt           time.Time `gorm:"not null"`
	ExpiresAt           *time.Time
	RotatedAt           *time.Time
}

func (CAKeyModel) TableName() string {
	return "ca_keys"
}

type AuditLogModel struct {
	ID         int64  `gorm:"primaryKey"`
	Actor      string `gorm:"not null"`
	Action     string `gorm:"index;not null"`
	Resource   string `gorm:"not null"`
	ResourceID string `gorm:"index"`
	Details    []byte `gorm:"type:jsonb"`
	CreatedAt  time.Time `gorm:"index;not null"`
}

func (AuditLogModel) TableName() string {
	return "audit_log"
}

type SchemaVersionModel struct {
	Version   int64     `gorm:"primaryKey"`
	AppliedAt time.Time `gorm:"not null"`
}

func (SchemaVersionModel) TableName() string {
	return "schema_version"
}
