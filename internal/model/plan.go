package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WeeklyPlan identifies one calendar week for one scope.
// WeekStart is never changed after creation.
type WeeklyPlan struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ScopeID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_weekly_plans_scope_week" json:"scope_id"`
	WeekStart string    `gorm:"size:10;not null;uniqueIndex:idx_weekly_plans_scope_week" json:"week_start"`
}

func (WeeklyPlan) TableName() string {
	return "weekly_plans"
}

func (p *WeeklyPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Assignment places one dish on one day of a weekly plan.
// There is at most one row per (WeeklyPlanID, DayOfWeek).
type Assignment struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	WeeklyPlanID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_assignments_plan_day" json:"weekly_plan_id"`
	DayOfWeek    Day       `gorm:"not null;uniqueIndex:idx_assignments_plan_day" json:"day_of_week"`
	DishID       uuid.UUID `gorm:"type:uuid;not null;index" json:"dish_id"`
	Dish         *Dish     `gorm:"foreignKey:DishID;constraint:OnDelete:CASCADE" json:"dish,omitempty"`
}

func (Assignment) TableName() string {
	return "meal_assignments"
}

func (a *Assignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// IsNew reports whether the row was inserted rather than replaced by its
// last upsert; a replace only moves UpdatedAt.
func (a *Assignment) IsNew() bool {
	return a.CreatedAt.Equal(a.UpdatedAt)
}
