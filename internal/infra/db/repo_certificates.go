package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sigil/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CertificateRepository struct {
	db *gorm.DB
}

func NewCertificateRepository(gdb *gorm.DB) *CertificateRepository {
	return &CertificateRepository{db: gdb}
}

// Create inserts a new active certificate. The partial unique index on
// (agent_id, agent_version, org_id) where status = 'active' makes a duplicate
// issuance fail atomically with ErrConflict; nothing is overwritten.
func (r *CertificateRepository) Create(ctx context.Context, cert domain.Certificate) error {
	if r == nil || r.db == nil {
		return errDBUnavailable
	}
	model := certificateToModel(cert)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: agent %s version %s org %s", domain.ErrConflict, cert.AgentID, cert.AgentVersion, cert.OrgID)
		}
		return translateErr(err)
	}
	return nil
}

func (r *CertificateRepository) GetByID(ctx context.Context, id string) (*domain.Certificate, error) {
	if r == nil || r.db == nil {
		return nil, errDBUnavailable
	}
	var model CertificateModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateErr(err)
	}
	cert := certificateFromModel(model)
	return &cert, nil
}

// GetLatestByIdentity returns the newest record for the identity triple,
// whatever its status. Live verification wants revoked and superseded
// records too, not just the active one.
func (r *CertificateRepository) GetLatestByIdentity(ctx context.Context, agentID, agentVersion, orgID string) (*domain.Certificate, error) {
	if r == nil || r.db == nil {
		return nil, errDBUnavailable
	}
	var model CertificateModel
	err := r.db.WithContext(ctx).
		Where("agent_id = ? AND agent_version = ? AND org_id = ?", agentID, agentVersion, orgID).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		return nil, translateErr(err)
	}
	cert := certificateFromModel(model)
	return &cert, nil
}

func (r *CertificateRepository) ListByAgent(ctx context.Context, agentID string) ([]domain.Certificate, error) {
	return r.list(ctx, "agent_id = ?", agentID)
}

func (r *CertificateRepository) ListByOrg(ctx context.Context, orgID string) ([]domain.Certificate, error) {
	return r.list(ctx, "org_id = ?", orgID)
}

func (r *CertificateRepository) list(ctx context.Context, query string, arg any) ([]domain.Certificate, error) {
	if r == nil || r.db == nil {
		return nil, errDBUnavailable
	}
	var models []CertificateModel
	err := r.db.WithContext(ctx).
		Where(query, arg).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, translateErr(err)
	}
	certs := make([]domain.Certificate, 0, len(models))
	for _, m := range models {
		certs = append(certs, certificateFromModel(m))
	}
	return certs, nil
}

// ListExpiringActive returns active certificates whose expiry falls inside
// (now, until]; already-expired records are not renewal candidates.
func (r *CertificateRepository) ListExpiringActive(ctx context.Context, now, until time.Time) ([]domain.Certificate, error) {
	if r == nil || r.db == nil {
		return nil, errDBUnavailable
	}
	var models []CertificateModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at > ? AND expires_at <= ?",
			string(domain.CertStatusActive), now, until).
		Order("expires_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, translateErr(err)
	}
	certs := make([]domain.Certificate, 0, len(models))
	for _, m := range models {
		certs = append(certs, certificateFromModel(m))
	}
	return certs, nil
}

// Supersede atomically inserts the renewal and retires the prior record. The
// old row is locked and re-validated inside the transaction so a concurrent
// revoke cannot be clobbered: a record that is no longer active is not
// superseded.
func (r *CertificateRepository) Supersede(ctx context.Context, oldID string, renewal domain.Certificate) error {
	if r == nil || r.db == nil {
		return errDBUnavailable
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var old CertificateModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&old, "id = ?", oldID).Error; err != nil {
			return err
		}
		if old.Status != string(domain.CertStatusActive) {
			return fmt.Errorf("%w: certificate %s is %s, not active", domain.ErrConflict, oldID, old.Status)
		}
		updates := map[string]any{
			"status":        string(domain.CertStatusSuperseded),
			"superseded_by": renewal.ID,
			"updated_at":    renewal.CreatedAt,
		}
		if err := tx.Model(&CertificateModel{}).Where("id = ?", oldID).Updates(updates).Error; err != nil {
			return err
		}
		model := certificateToModel(renewal)
		return tx.Create(&model).Error
	})
	if errors.Is(err, domain.ErrConflict) {
		return err
	}
	return translateErr(err)
}

func certificateToModel(cert domain.Certificate) CertificateModel {
	return CertificateModel{
		ID:               cert.ID,
		AgentID:          cert.AgentID,
		AgentVersion:     cert.AgentVersion,
		OrgID:            cert.OrgID,
		OrgName:          cert.OrgName,
		OrgDomain:        stringPtrIfNotEmpty(cert.OrgDomain),
		Level:            string(cert.Level),
		GoldenThreadAlg:  cert.GoldenThreadAlg,
		GoldenThreadHash: cert.GoldenThreadHash,
		IssuedAt:         cert.IssuedAt,
		ExpiresAt:        cert.ExpiresAt,
		Content:          cert.Content,
		SignatureAlg:     cert.SignatureAlg,
		SignatureKeyID:   cert.SignatureKeyID,
		Signature:        cert.Signature,
		Status:           string(cert.Status),
		RevokedAt:        cert.RevokedAt,
		RevocationReason: stringPtrIfNotEmpty(cert.RevocationReason),
		SupersededBy:     stringPtrIfNotEmpty(cert.SupersededBy),
		CreatedAt:        cert.CreatedAt,
		UpdatedAt:        cert.UpdatedAt,
	}
}

func certificateFromModel(model CertificateModel) domain.Certificate {
	return domain.Certificate{
		ID:               model.ID,
		AgentID:          model.AgentID,
		AgentVersion:     model.AgentVersion,
		OrgID:            model.OrgID,
		OrgName:          model.OrgName,
		OrgDomain:        stringFromPtr(model.OrgDomain),
		Level:            domain.ComplianceLevel(model.Level),
		GoldenThreadAlg:  model.GoldenThreadAlg,
		GoldenThreadHash: model.GoldenThreadHash,
		IssuedAt:         model.IssuedAt,
		ExpiresAt:        model.ExpiresAt,
		Content:          model.Content,
		SignatureAlg:     model.SignatureAlg,
		SignatureKeyID:   model.SignatureKeyID,
		Signature:        model.Signature,
		Status:           domain.CertificateStatus(model.Status),
		RevokedAt:        model.RevokedAt,
		RevocationReason: stringFromPtr(model.RevocationReason),
		SupersededBy:     stringFromPtr(model.SupersededBy),
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}
