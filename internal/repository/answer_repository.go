package repository

import (
	"fmt"

	"gorm.io/gorm"

	"paperqa/internal/model"
)

type AnswerRepository struct {
	db *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) *AnswerRepository {
	return &AnswerRepository{db: db}
}

func (r *AnswerRepository) Create(answer *model.Answer) error {
	if err := r.db.Create(answer).Error; err != nil {
		return fmt.Errorf("create answer failed: %w", err)
	}
	return nil
}

func (r *AnswerRepository) ListByQuestionIDs(questionIDs []uint) ([]model.Answer, error) {
	if len(questionIDs) == 0 {
		return nil, nil
	}
	var list []model.Answer
	if err := r.db.Where("question_id IN ?", questionIDs).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list answers failed: %w", err)
	}
	return list, nil
}

func (r *AnswerRepository) DeleteByQuestionIDs(questionIDs []uint) error {
	if len(questionIDs) == 0 {
		return nil
	}
	if err := r.db.Where("question_id IN ?", questionIDs).Delete(&model.Answer{}).Error; err != nil {
		return fmt.Errorf("delete answers failed: %w", err)
	}
	return nil
}

// QuestionIDsBySessionID supports the session cascade delete.
func (r *AnswerRepository) QuestionIDsBySessionID(sessionID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.Question{}).Where("session_id = ?", sessionID).Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list question ids by session failed: %w", err)
	}
	return ids, nil
}
