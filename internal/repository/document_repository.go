package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"paperqa/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(doc *model.Document) error {
	if err := r.db.Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

// GetByID returns nil without error when the document does not exist.
func (r *DocumentRepository) GetByID(id uint) (*model.Document, error) {
	var doc model.Document
	if err := r.db.First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) GetBySessionAndFilename(sessionID uint, filename string) (*model.Document, error) {
	var doc model.Document
	err := r.db.Where("session_id = ? AND filename = ?", sessionID, filename).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document by filename failed: %w", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) ListBySessionID(sessionID uint) ([]model.Document, error) {
	var list []model.Document
	err := r.db.Where("session_id = ?", sessionID).Order("uploaded_at DESC").Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return list, nil
}

func (r *DocumentRepository) ListBySessionIDAndStatus(sessionID uint, status string) ([]model.Document, error) {
	var list []model.Document
	err := r.db.Where("session_id = ? AND status = ?", sessionID, status).
		Order("uploaded_at DESC").Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list documents by status failed: %w", err)
	}
	return list, nil
}

func (r *DocumentRepository) CountBySessionID(sessionID uint) (int64, error) {
	var count int64
	err := r.db.Model(&model.Document{}).Where("session_id = ?", sessionID).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count documents failed: %w", err)
	}
	return count, nil
}

// UpdateStatus moves a document through the lifecycle in one atomic write,
// so an observer only ever sees fully applied transitions.
func (r *DocumentRepository) UpdateStatus(id uint, status string, startedAt, completedAt *time.Time, errorMessage *string) error {
	updates := map[string]interface{}{
		"status":        status,
		"error_message": errorMessage,
	}
	if startedAt != nil {
		updates["processing_started_at"] = startedAt
	}
	if completedAt != nil {
		updates["processing_completed_at"] = completedAt
	}
	err := r.db.Model(&model.Document{}).Where("id = ?", id).Updates(updates).Error
	if err != nil {
		return fmt.Errorf("update document status failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) UpdateMetadata(id uint, title, abstract *string, pageCount *int) error {
	updates := map[string]interface{}{
		"title":      title,
		"abstract":   abstract,
		"page_count": pageCount,
	}
	err := r.db.Model(&model.Document{}).Where("id = ?", id).Updates(updates).Error
	if err != nil {
		return fmt.Errorf("update document metadata failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) DeleteByID(id uint) error {
	if err := r.db.Delete(&model.Document{}, id).Error; err != nil {
		return fmt.Errorf("delete document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) DeleteBySessionID(sessionID uint) error {
	if err := r.db.Where("session_id = ?", sessionID).Delete(&model.Document{}).Error; err != nil {
		return fmt.Errorf("delete documents by session failed: %w", err)
	}
	return nil
}
