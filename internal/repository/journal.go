package repository

import (
	"context"
	"errors"

	"github.com/vladimiradmaev/chronic-care/internal/database"
	"gorm.io/gorm"
)

// JournalRepository handles journal record operations
type JournalRepository struct {
	db *gorm.DB
}

// NewJournalRepository creates a new journal repository
func NewJournalRepository(db *gorm.DB) *JournalRepository {
	return &JournalRepository{db: db}
}

// SaveLabResult inserts a lab result record
func (r *JournalRepository) SaveLabResult(ctx context.Context, record *database.LabResultRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// SaveMedicationPlan inserts a medication plan record
func (r *JournalRepository) SaveMedicationPlan(ctx context.Context, record *database.MedicationPlanRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// LabResults returns the newest lab results of a session first; limit <= 0 means all
func (r *JournalRepository) LabResults(ctx context.Context, sessionKey string, limit int) ([]database.LabResultRecord, error) {
	var records []database.LabResultRecord
	q := r.db.WithContext(ctx).
		Where("session_key = ?", sessionKey).
		Order("measured_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// LatestMedicationPlan returns the last journaled plan of a session, nil when there is none
func (r *JournalRepository) LatestMedicationPlan(ctx context.Context, sessionKey string) (*database.MedicationPlanRecord, error) {
	var record database.MedicationPlanRecord
	err := r.db.WithContext(ctx).
		Where("session_key = ?", sessionKey).
		Order("created_at DESC").
		Order("id DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
