package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category is the fixed dish category enumeration.
type Category string

const (
	CategoryMeat       Category = "meat"
	CategoryVegetarian Category = "vegetarian"
	CategoryFish       Category = "fish"
)

// Categories lists every category in quota priority order.
var Categories = []Category{CategoryMeat, CategoryVegetarian, CategoryFish}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryMeat, CategoryVegetarian, CategoryFish:
		return true
	}
	return false
}

// ParseCategory converts a raw string into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

// Dish is a catalog entry visible to one scope.
type Dish struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	ScopeID    uuid.UUID `gorm:"type:uuid;not null;index" json:"scope_id"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	Category   Category  `gorm:"size:20;not null" json:"category"`
	IsFavorite bool      `gorm:"not null" json:"is_favorite"`
}

func (Dish) TableName() string {
	return "dishes"
}

func (d *Dish) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
