package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MaxPerCategory bounds a single category quota.
const MaxPerCategory = DaysPerWeek

// CategoryQuota maps a category to the number of days it should fill in a week.
type CategoryQuota map[Category]int

// DefaultQuotas is used when a scope has never saved preferences.
// Total 5, leaving 2 days for any category.
func DefaultQuotas() CategoryQuota {
	return CategoryQuota{
		CategoryMeat:       2,
		CategoryVegetarian: 2,
		CategoryFish:       1,
	}
}

// Total sums all category targets.
func (q CategoryQuota) Total() int {
	total := 0
	for _, n := range q {
		total += n
	}
	return total
}

// Clamp returns a copy with every known category present and bounded to [0,7].
func (q CategoryQuota) Clamp() CategoryQuota {
	out := make(CategoryQuota, len(Categories))
	for _, c := range Categories {
		n := q[c]
		if n < 0 {
			n = 0
		}
		if n > MaxPerCategory {
			n = MaxPerCategory
		}
		out[c] = n
	}
	return out
}

// CategoryPreference is the stored row behind one CategoryQuota entry.
type CategoryPreference struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ScopeID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_category_preferences_scope_category" json:"scope_id"`
	Category  Category  `gorm:"size:20;not null;uniqueIndex:idx_category_preferences_scope_category" json:"category"`
	Count     int       `gorm:"not null" json:"count"`
}

func (CategoryPreference) TableName() string {
	return "category_preferences"
}

func (p *CategoryPreference) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
