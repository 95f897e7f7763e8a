package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/iappwebdev/mahl-zeit-planer/internal/model"
)

// PreferenceService stores category quotas per scope
type PreferenceService struct {
	db *gorm.DB
}

// NewPreferenceService creates a new PreferenceService instance
func NewPreferenceService(db *gorm.DB) *PreferenceService {
	return &PreferenceService{db: db}
}

// GetQuotas returns the saved quotas, or the defaults when none were saved
func (s *PreferenceService) GetQuotas(ctx context.Context, scopeID uuid.UUID) (model.CategoryQuota, error) {
	var rows []model.CategoryPreference
	if err := s.db.WithContext(ctx).Where("scope_id = ?", scopeID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load category preferences: %w", err)
	}
	if len(rows) == 0 {
		return model.DefaultQuotas(), nil
	}

	quotas := model.CategoryQuota{}
	for _, row := range rows {
		quotas[row.Category] = row.Count
	}
	return quotas.Clamp(), nil
}

// SaveQuotas validates and stores quotas. Every value must be within [0,7]
// and the total may not exceed the days of a week.
func (s *PreferenceService) SaveQuotas(ctx context.Context, scopeID uuid.UUID, quotas model.CategoryQuota) (model.CategoryQuota, error) {
	if err := ValidateQuotas(quotas); err != nil {
		return nil, err
	}
	normalized := quotas.Clamp()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, c := range model.Categories {
			row := model.CategoryPreference{ScopeID: scopeID, Category: c, Count: normalized[c]}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "scope_id"}, {Name: "category"}},
				DoUpdates: clause.AssignmentColumns([]string{"count", "updated_at"}),
			}).Create(&row).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("save category preferences: %w", err)
	}
	return normalized, nil
}

// ValidateQuotas checks categories, per-category range and the weekly total.
func ValidateQuotas(quotas model.CategoryQuota) error {
	for c, n := range quotas {
		if !c.Valid() {
			return fmt.Errorf("%w: %q", model.ErrInvalidCategory, c)
		}
		if n < 0 || n > model.MaxPerCategory {
			return fmt.Errorf("%w: %s=%d", ErrQuotaOutOfRange, c, n)
		}
	}
	if total := quotas.Total(); total > model.DaysPerWeek {
		return fmt.Errorf("%w: total %d", ErrQuotaTotalExceeded, total)
	}
	return nil
}
