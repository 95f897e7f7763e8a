package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iappwebdev/mahl-zeit-planer/internal/model"
)

// DishService handles catalog reads for a scope
type DishService struct {
	db *gorm.DB
}

// NewDishService creates a new DishService instance
func NewDishService(db *gorm.DB) *DishService {
	return &DishService{db: db}
}

// ListAvailable returns all dishes of a scope, favorites first, then by name
func (s *DishService) ListAvailable(ctx context.Context, scopeID uuid.UUID) ([]model.Dish, error) {
	var dishes []model.Dish
	err := s.db.WithContext(ctx).
		Where("scope_id = ?", scopeID).
		Order("is_favorite DESC").
		Order("name ASC").
		Find(&dishes).Error
	if err != nil {
		return nil, fmt.Errorf("list dishes: %w", err)
	}
	return dishes, nil
}

// Get retrieves one dish of a scope by ID
func (s *DishService) Get(ctx context.Context, scopeID, id uuid.UUID) (*model.Dish, error) {
	var dish model.Dish
	err := s.db.WithContext(ctx).First(&dish, "id = ? AND scope_id = ?", id, scopeID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDishNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dish: %w", err)
	}
	return &dish, nil
}

// Create adds a dish to the catalog. Used by the seed command and tests.
func (s *DishService) Create(ctx context.Context, dish *model.Dish) (*model.Dish, error) {
	if !dish.Category.Valid() {
		return nil, model.ErrInvalidCategory
	}
	if err := s.db.WithContext(ctx).Create(dish).Error; err != nil {
		return nil, fmt.Errorf("create dish: %w", err)
	}
	return dish, nil
}
