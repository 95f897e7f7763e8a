package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iappwebdev/mahl-zeit-planer/internal/model"
)

const defaultActivityLimit = 50

// ActivityService handles the per-scope activity feed
type ActivityService struct {
	db *gorm.DB
}

// NewActivityService creates a new ActivityService instance
func NewActivityService(db *gorm.DB) *ActivityService {
	return &ActivityService{db: db}
}

// Record appends an entry
func (s *ActivityService) Record(ctx context.Context, entry *model.ActivityEntry) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

// List returns the newest entries of a scope
func (s *ActivityService) List(ctx context.Context, scopeID uuid.UUID, limit int) ([]model.ActivityEntry, error) {
	if limit <= 0 || limit > defaultActivityLimit {
		limit = defaultActivityLimit
	}

	var entries []model.ActivityEntry
	err := s.db.WithContext(ctx).
		Where("scope_id = ?", scopeID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return entries, nil
}
