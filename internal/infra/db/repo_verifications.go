package db

import (
	"context"
	"encoding/json"
	"fmt"

	"sigil/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VerificationRepository struct {
	db *gorm.DB
}

func NewVerificationRepository(gdb *gorm.DB) *VerificationRepository {
	return &VerificationRepository{db: gdb}
}

// Append writes one history row per verification attempt. The table is
// append-only; nothing updates or deletes rows.
func (r *VerificationRepository) Append(ctx context.Context, record domain.VerificationRecord) (domain.VerificationRecord, error) {
	if r == nil || r.db == nil {
		return domain.VerificationRecord{}, errDBUnavailable
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	var contextJSON []byte
	if record.Context != nil {
		payload, err := json.Marshal(record.Context)
		if err != nil {
			return domain.VerificationRecord{}, fmt.Errorf("encode context: %w", err)
		}
		contextJSON = payload
	}
	model := VerificationModel{
		ID:            record.ID,
		CertificateID: stringPtrIfNotEmpty(record.CertificateID),
		AgentID:       record.AgentID,
		OrgID:         record.OrgID,
		Context:       contextJSON,
		Result:        string(record.Result),
		Detail:        record.Detail,
		DurationMs:    record.DurationMs,
		CreatedAt:     record.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.VerificationRecord{}, translateErr(err)
	}
	return record, nil
}

func (r *VerificationRepository) ListByAgent(ctx context.Context, agentID string, limit int) ([]domain.VerificationRecord, error) {
	if r == nil || r.db == nil {
		return nil, errDBUnavailable
	}
	if limit <= 0 {
		limit = 100
	}
	var models []VerificationModel
	err := r.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, translateErr(err)
	}
	records := make([]domain.VerificationRecord, 0, len(models))
	for _, m := range models {
		record := domain.VerificationRecord{
			ID:            m.ID,
			CertificateID: stringFromPtr(m.CertificateID),
			AgentID:       m.AgentID,
			OrgID:         m.OrgID,
			Result:        domain.VerificationResult(m.Result),
			Detail:        m.Detail,
			DurationMs:    m.DurationMs,
			CreatedAt:     m.CreatedAt,
		}
		if len(m.Context) > 0 {
			var contextMap map[string]any
			if err := json.Unmarshal(m.Context, &contextMap); err == nil {
				record.Context = contextMap
			}
		}
		records = append(records, record)
	}
	return records, nil
}
