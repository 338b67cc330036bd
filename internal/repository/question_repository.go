package repository

import (
	"fmt"

	"gorm.io/gorm"

	"paperqa/internal/model"
)

type QuestionRepository struct {
	db *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

func (r *QuestionRepository) Create(question *model.Question) error {
	if err := r.db.Create(question).Error; err != nil {
		return fmt.Errorf("create question failed: %w", err)
	}
	return nil
}

func (r *QuestionRepository) ListBySessionID(sessionID uint, limit int) ([]model.Question, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var list []model.Question
	err := r.db.Where("session_id = ?", sessionID).
		Order("created_at DESC").Limit(limit).Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("list questions failed: %w", err)
	}
	return list, nil
}

func (r *QuestionRepository) DeleteBySessionID(sessionID uint) error {
	if err := r.db.Where("session_id = ?", sessionID).Delete(&model.Question{}).Error; err != nil {
		return fmt.Errorf("delete questions by session failed: %w", err)
	}
	return nil
}
