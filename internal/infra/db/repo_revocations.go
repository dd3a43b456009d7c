package db

import (
	"context"
	"errors"
	"time"

	"sigil/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RevocationRepository struct {
	db *gorm.DB
}

func NewRevocationRepository(gdb *gorm.DB) *RevocationRepository {
	return &RevocationRepository{db: gdb}
}

func (r *RevocationRepository) GetByCertificate(ctx context.Context, certificateID string) (*domain.Revocation, error) {
	if r == nil || r.db == nil {
		return nil, errDBUnavailable
	}
	var model RevocationModel
	err := r.db.WithContext(ctx).First(&model, "certificate_id = ?", certificateID).Error
	if err != nil {
		return nil, translateErr(err)
	}
	rev := revocationFromModel(model)
	return &rev, nil
}

// Revoke transitions the certificate to revoked and writes the revocation
// record as one unit. The certificate row is locked so a concurrent renewal
// cannot interleave with the status change. Re-revoking returns the existing
// record with created=false; exactly one revocation row ever exists.
func (r *RevocationRepository) Revoke(ctx context.Context, certificateID, reason, revokedBy, incidentID string, now time.Time) (domain.Revocation, bool, error) {
	if r == nil || r.db == nil {
		return domain.Revocation{}, false, errDBUnavailable
	}
	var result RevocationModel
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cert CertificateModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&cert, "id = ?", certificateID).Error; err != nil {
			return err
		}

		var existing RevocationModel
		err := tx.First(&existing, "certificate_id = ?", certificateID).Error
		if err == nil {
			result = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		result = RevocationModel{
			ID:            uuid.NewString(),
			CertificateID: certificateID,
			Reason:        reason,
			RevokedBy:     revokedBy,
			IncidentID:    stringPtrIfNotEmpty(incidentID),
			RevokedAt:     now,
			CreatedAt:     now,
		}
		if err := tx.Create(&result).Error; err != nil {
			return err
		}
		updates := map[string]any{
			"status":            string(domain.CertStatusRevoked),
			"revoked_at":        now,
			"revocation_reason": reason,
			"updated_at":        now,
		}
		if err := tx.Model(&CertificateModel{}).Where("id = ?", certificateID).Updates(updates).Error; err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return domain.Revocation{}, false, translateErr(err)
	}
	return revocationFromModel(result), created, nil
}

func revocationFromModel(model RevocationModel) domain.Revocation {
	return domain.Revocation{
		ID:            model.ID,
		CertificateID: model.CertificateID,
		Reason:        model.Reason,
		RevokedBy:     model.RevokedBy,
		IncidentID:    stringFromPtr(model.IncidentID),
		RevokedAt:     model.RevokedAt,
		CreatedAt:     model.CreatedAt,
	}
}
