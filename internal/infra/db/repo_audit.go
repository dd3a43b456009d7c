package db

import (
	"context"
	"encoding/json"
	"fmt"

	"sigil/internal/domain"

	"gorm.io/gorm"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(gdb *gorm.DB) *AuditRepository {
	return &AuditRepository{db: gdb}
}

// Append writes one audit row. A storage failure here is returned to the
// caller; the audit trail is never silently incomplete.
func (r *AuditRepository) Append(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error) {
	if r == nil || r.db == nil {
		return domain.AuditEntry{}, errDBUnavailable
	}
	var details []byte
	if entry.Details != nil {
		payload, err := json.Marshal(entry.Details)
		if err != nil {
			return domain.AuditEntry{}, fmt.Errorf("encode audit details: %w", err)
		}
		details = payload
	}
	model := AuditLogModel{
		Actor:      entry.Actor,
		Action:     string(entry.Action),
		Resource:   string(entry.Resource),
		ResourceID: entry.ResourceID,
		Details:    details,
		CreatedAt:  entry.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.AuditEntry{}, translateErr(err)
	}
	entry.ID = model.ID
	return entry, nil
}

func (r *AuditRepository) ListByResource(ctx context.Context, resourceID string, limit int) ([]domain.AuditEntry, error) {
	if r == nil || r.db == nil {
		return nil, errDBUnavailable
	}
	if limit <= 0 {
		limit = 100
	}
	var models []AuditLogModel
	err := r.db.WithContext(ctx).
		Where("resource_id = ?", resourceID).
		Order("id DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, translateErr(err)
	}
	entries := make([]domain.AuditEntry, 0, len(models))
	for _, m := range models {
		entry := domain.AuditEntry{
			ID:         m.ID,
			Actor:      m.Actor,
			Action:     domain.AuditAction(m.Action),
			Resource:   domain.AuditResource(m.Resource),
			ResourceID: m.ResourceID,
			CreatedAt:  m.CreatedAt,
		}
		if len(m.Details) > 0 {
			var details map[string]any
			if err := json.Unmarshal(m.Details, &details); err == nil {
				entry.Details = details
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
