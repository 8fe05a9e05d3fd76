package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/BookForge/app/models"
)

// exportRepository implements the ExportRepository interface
type exportRepository struct {
	db *gorm.DB
}

// NewExportRepository creates a new export repository instance
func NewExportRepository(db *gorm.DB) ExportRepository {
	return &exportRepository{db: db}
}

func (r *exportRepository) Create(record *models.ExportJobRecord) error {
	return r.db.Create(record).Error
}

func (r *exportRepository) GetByID(id string) (*models.ExportJobRecord, error) {
	var record models.ExportJobRecord
	if err := r.db.Where("id = ?", id).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// GetForUser returns the record only when it belongs to userID.
func (r *exportRepository) GetForUser(userID, id string) (*models.ExportJobRecord, error) {
	var record models.ExportJobRecord
	if err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *exportRepository) UpdateStatus(id, status, objectKey, url, errMsg string) error {
	updates := map[string]interface{}{
		"status":     status,
		"object_key": objectKey,
		"url":        url,
		"error":      errMsg,
		"updated_at": time.Now(),
	}
	res := r.db.Model(&models.ExportJobRecord{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *exportRepository) SetJobID(id, jobID string) error {
	return r.db.Model(&models.ExportJobRecord{}).Where("id = ?", id).Update("job_id", jobID).Error
}
