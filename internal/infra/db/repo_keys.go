package db

import (
	"context"
	"errors"
	"time"

	"sigil/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CAKeyRepository struct {
	db *gorm.DB
}

func NewCAKeyRepository(gdb *gorm.DB) *CAKeyRepository {
	return &CAKeyRepository{db: gdb}
}

// GetActive returns the single active signing key.
func (r *CAKeyRepository) GetActive(ctx context.Context) (*domain.CAKey, error) {
	if r == nil || r.db == nil {
		return nil, errDBUnavailable
	}
	var model CAKeyModel
	err := r.db.WithContext(ctx).
		Where("status = ?", string(domain.KeyStatusActive)).
		First(&model).Error
	if err != nil {
		return nil, translateErr(err)
	}
	key := caKeyFromModel(model)
	return &key, nil
}

func (r *CAKeyRepository) GetByID(ctx context.Context, id string) (*domain.CAKey, error) {
	if r == nil || r.db == nil {
		return nil, errDBUnavailable
	}
	var model CAKeyModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateErr(err)
	}
	key := caKeyFromModel(model)
	return &key, nil
}

func (r *CAKeyRepository) List(ctx context.Context) ([]domain.CAKey, error) {
	if r == nil || r.db == nil {
		return nil, errDBUnavailable
	}
	var models []CAKeyModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, translateErr(err)
	}
	keys := make([]domain.CAKey, 0, len(models))
	for _, m := range models {
		keys = append(keys, caKeyFromModel(m))
	}
	return keys, nil
}

// ActivateNew installs key as the active signing key and marks any current
// active key rotated, in one transaction. The active row is read FOR UPDATE
// so two concurrent rotations serialize, and the partial unique index on
// status='active' rejects a second active row outright. Rotated keys are
// never deleted.
func (r *CAKeyRepository) ActivateNew(ctx context.Context, key domain.CAKey) (previousID string, err error) {
	if r == nil || r.db == nil {
		return "", errDBUnavailable
	}
	now := key.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current CAKeyModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("status = ?", string(domain.KeyStatusActive)).
			First(&current).Error
		if err == nil {
			previousID = current.ID
			updates := map[string]any{
				"status":     string(domain.KeyStatusRotated),
				"rotated_at": now,
			}
			if err := tx.Model(&CAKeyModel{}).Where("id = ?", current.ID).Updates(updates).Error; err != nil {
				return err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		model := caKeyToModel(key)
		model.Status = string(domain.KeyStatusActive)
		return tx.Create(&model).Error
	})
	if err != nil {
		return "", translateErr(err)
	}
	return previousID, nil
}

func (r *CAKeyRepository) IncrementSigned(ctx context.Context, id string) error {
	if r == nil || r.db == nil {
		return errDBUnavailable
	}
	err := r.db.WithContext(ctx).
		Model(&CAKeyModel{}).
		Where("id = ?", id).
		UpdateColumn("certificates_signed", gorm.Expr("certificates_signed + 1")).Error
	return translateErr(err)
}

func caKeyToModel(key domain.CAKey) CAKeyModel {
	return CAKeyModel{
		ID:                  key.ID,
		Algorithm:           string(key.Algorithm),
		PublicKey:           key.PublicKey,
		EncryptedPrivateKey: key.EncryptedPrivateKey,
		Status:              string(key.Status),
		CertificatesSigned:  key.CertificatesSigned,
		CreatedAt:           key.CreatedAt,
		ExpiresAt:           key.ExpiresAt,
		RotatedAt:           key.RotatedAt,
	}
}

func caKeyFromModel(model CAKeyModel) domain.CAKey {
	return domain.CAKey{
		ID:                  model.ID,
		Algorithm:           domain.KeyAlgorithm(model.Algorithm),
		PublicKey:           model.PublicKey,
		EncryptedPrivateKey: model.EncryptedPrivateKey,
		Status:              domain.KeyStatus(model.Status),
		CertificatesSigned:  model.CertificatesSigned,
		CreatedAt:           model.CreatedAt,
		ExpiresAt:           model.ExpiresAt,
		RotatedAt:           model.RotatedAt,
	}
}
