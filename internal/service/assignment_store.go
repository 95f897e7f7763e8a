package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/iappwebdev/mahl-zeit-planer/internal/model"
)

// AssignmentStore persists weekly plans and their day slots.
// The unique index on (weekly_plan_id, day_of_week) is the only guard
// against duplicate slots; every write goes through ON CONFLICT.
type AssignmentStore struct {
	db *gorm.DB
}

// NewAssignmentStore creates a new AssignmentStore instance
func NewAssignmentStore(db *gorm.DB) *AssignmentStore {
	return &AssignmentStore{db: db}
}

// WithTx returns a store bound to tx.
func (s *AssignmentStore) WithTx(tx *gorm.DB) *AssignmentStore {
	return &AssignmentStore{db: tx}
}

// Atomically runs fn inside one database transaction.
func (s *AssignmentStore) Atomically(ctx context.Context, fn func(store IAssignmentStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(s.WithTx(tx))
	})
}

// GetOrCreatePlan returns the plan for (scope, weekStart), inserting it if
// needed. Concurrent callers converge on the same row.
func (s *AssignmentStore) GetOrCreatePlan(ctx context.Context, scopeID uuid.UUID, weekStart string) (*model.WeeklyPlan, error) {
	if err := model.ValidateWeekStart(weekStart); err != nil {
		return nil, err
	}

	plan := model.WeeklyPlan{ScopeID: scopeID, WeekStart: weekStart}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope_id"}, {Name: "week_start"}},
		DoNothing: true,
	}).Create(&plan).Error
	if err != nil {
		return nil, fmt.Errorf("create weekly plan: %w", err)
	}

	return s.FindPlan(ctx, scopeID, weekStart)
}

// FindPlan looks up a plan without creating it.
func (s *AssignmentStore) FindPlan(ctx context.Context, scopeID uuid.UUID, weekStart string) (*model.WeeklyPlan, error) {
	var plan model.WeeklyPlan
	err := s.db.WithContext(ctx).
		Where("scope_id = ? AND week_start = ?", scopeID, weekStart).
		First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find weekly plan: %w", err)
	}
	return &plan, nil
}

// UpsertAssignment inserts or replaces the dish of one day slot.
// The last writer wins; the stored row is returned with its dish.
func (s *AssignmentStore) UpsertAssignment(ctx context.Context, planID uuid.UUID, day model.Day, dishID uuid.UUID) (*model.Assignment, error) {
	if !day.Valid() {
		return nil, model.ErrInvalidDay
	}

	row := model.Assignment{WeeklyPlanID: planID, DayOfWeek: day, DishID: dishID}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "weekly_plan_id"}, {Name: "day_of_week"}},
		DoUpdates: clause.AssignmentColumns([]string{"dish_id", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("upsert assignment: %w", err)
	}

	var stored model.Assignment
	err = s.db.WithContext(ctx).
		Preload("Dish").
		Where("weekly_plan_id = ? AND day_of_week = ?", planID, day).
		First(&stored).Error
	if err != nil {
		return nil, fmt.Errorf("read assignment: %w", err)
	}
	return &stored, nil
}

// RemoveAssignment deletes one row. A missing row is not an error.
func (s *AssignmentStore) RemoveAssignment(ctx context.Context, assignmentID uuid.UUID) error {
	if err := s.db.WithContext(ctx).Delete(&model.Assignment{}, "id = ?", assignmentID).Error; err != nil {
		return fmt.Errorf("remove assignment: %w", err)
	}
	return nil
}

// ClearWeek deletes every assignment of a plan.
func (s *AssignmentStore) ClearWeek(ctx context.Context, planID uuid.UUID) error {
	if err := s.db.WithContext(ctx).Where("weekly_plan_id = ?", planID).Delete(&model.Assignment{}).Error; err != nil {
		return fmt.Errorf("clear week: %w", err)
	}
	return nil
}

// ListAssignments returns the rows of a plan ordered by day.
func (s *AssignmentStore) ListAssignments(ctx context.Context, planID uuid.UUID) ([]model.Assignment, error) {
	var rows []model.Assignment
	err := s.db.WithContext(ctx).
		Preload("Dish").
		Where("weekly_plan_id = ?", planID).
		Order("day_of_week ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return rows, nil
}

// RecentDishIDs returns the dishes used by the same scope in the
// lookbackWeeks weeks before weekStart. The week itself is excluded.
func (s *AssignmentStore) RecentDishIDs(ctx context.Context, scopeID uuid.UUID, weekStart string, lookbackWeeks int) (map[uuid.UUID]struct{}, error) {
	recent := make(map[uuid.UUID]struct{})
	if lookbackWeeks <= 0 {
		return recent, nil
	}

	from, err := model.ShiftWeeks(weekStart, -lookbackWeeks)
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	err = s.db.WithContext(ctx).
		Model(&model.Assignment{}).
		Joins("JOIN weekly_plans ON weekly_plans.id = meal_assignments.weekly_plan_id").
		Where("weekly_plans.scope_id = ?", scopeID).
		Where("weekly_plans.week_start >= ? AND weekly_plans.week_start < ?", from, weekStart).
		Distinct().
		Pluck("meal_assignments.dish_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("recent dish ids: %w", err)
	}

	for _, id := range ids {
		recent[id] = struct{}{}
	}
	return recent, nil
}
