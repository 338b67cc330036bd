package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"paperqa/internal/model"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(session *model.Session) error {
	if err := r.db.Create(session).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("session name %q already exists: %w", session.Name, err)
		}
		return fmt.Errorf("create session failed: %w", err)
	}
	return nil
}

func (r *SessionRepository) List() ([]model.Session, error) {
	var list []model.Session
	if err := r.db.Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list sessions failed: %w", err)
	}
	return list, nil
}

// GetByName returns nil without error when the session does not exist.
func (r *SessionRepository) GetByName(name string) (*model.Session, error) {
	var session model.Session
	if err := r.db.Where("name = ?", name).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session by name failed: %w", err)
	}
	return &session, nil
}

// GetOrCreateByName resolves a session, creating it when absent.
func (r *SessionRepository) GetOrCreateByName(name string) (*model.Session, error) {
	session, err := r.GetByName(name)
	if err != nil {
		return nil, err
	}
	if session != nil {
		return session, nil
	}
	created := &model.Session{Name: name}
	if err := r.Create(created); err != nil {
		return nil, err
	}
	return created, nil
}

func (r *SessionRepository) DeleteByID(id uint) error {
	if err := r.db.Delete(&model.Session{}, id).Error; err != nil {
		return fmt.Errorf("delete session failed: %w", err)
	}
	return nil
}
