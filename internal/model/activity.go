package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Activity actions.
const (
	ActionPlanGenerated     = "plan_generated"
	ActionAssignmentChanged = "assignment_changed"
	ActionAssignmentCleared = "assignment_cleared"
)

// Activity entity types.
const (
	EntityWeeklyPlan     = "weekly_plan"
	EntityMealAssignment = "meal_assignment"
)

// ActivityEntry records who changed what in a scope.
type ActivityEntry struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	ScopeID    uuid.UUID `gorm:"type:uuid;not null;index" json:"scope_id"`
	ActorID    uuid.UUID `gorm:"type:uuid" json:"actor_id"`
	Action     string    `gorm:"size:50;not null" json:"action"`
	EntityType string    `gorm:"size:50;not null" json:"entity_type"`
	EntityName string    `gorm:"size:255" json:"entity_name"`
	WeekStart  string    `gorm:"size:10" json:"week_start,omitempty"`
}

func (ActivityEntry) TableName() string {
	return "activity_log"
}

func (e *ActivityEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
