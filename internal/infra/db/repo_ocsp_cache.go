package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"sigil/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OCSPCacheRepository struct {
	db *gorm.DB
}

func NewOCSPCacheRepository(gdb *gorm.DB) *OCSPCacheRepository {
	return &OCSPCacheRepository{db: gdb}
}

func (r *OCSPCacheRepository) Get(ctx context.Context, certificateID string) (*domain.OCSPCacheEntry, bool, error) {
	if r == nil || r.db == nil {
		return nil, false, errDBUnavailable
	}
	var model OCSPCacheModel
	err := r.db.WithContext(ctx).First(&model, "certificate_id = ?", certificateID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, translateErr(err)
	}
	var response domain.SingleResponse
	if err := json.Unmarshal(model.Response, &response); err != nil {
		return nil, false, fmt.Errorf("decode cached response: %w", err)
	}
	return &domain.OCSPCacheEntry{
		CertificateID: model.CertificateID,
		Response:      response,
		ProducedAt:    model.ProducedAt,
		ThisUpdate:    model.ThisUpdate,
		NextUpdate:    model.NextUpdate,
	}, true, nil
}

// Put replaces the single cache row for the certificate. Concurrent
// regeneration is last-write-wins, which is safe because a regenerated
// response is idempotent given unchanged source state.
func (r *OCSPCacheRepository) Put(ctx context.Context, entry domain.OCSPCacheEntry) error {
	if r == nil || r.db == nil {
		return errDBUnavailable
	}
	payload, err := json.Marshal(entry.Response)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	model := OCSPCacheModel{
		CertificateID: entry.CertificateID,
		Response:      payload,
		Status:        string(entry.Response.Status),
		ProducedAt:    entry.ProducedAt,
		ThisUpdate:    entry.ThisUpdate,
		NextUpdate:    entry.NextUpdate,
	}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "certificate_id"}},
			UpdateAll: true,
		}).
		Create(&model).Error
	return translateErr(err)
}

func (r *OCSPCacheRepository) Delete(ctx context.Context, certificateID string) error {
	if r == nil || r.db == nil {
		return errDBUnavailable
	}
	err := r.db.WithContext(ctx).
		Delete(&OCSPCacheModel{}, "certificate_id = ?", certificateID).Error
	return translateErr(err)
}
