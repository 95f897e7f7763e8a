package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/iappwebdev/mahl-zeit-planer/internal/model"
	"github.com/iappwebdev/mahl-zeit-planer/internal/types"
)

// IDishCatalog defines read access to the dishes of a scope
type IDishCatalog interface {
	ListAvailable(ctx context.Context, scopeID uuid.UUID) ([]model.Dish, error)
	Get(ctx context.Context, scopeID, id uuid.UUID) (*model.Dish, error)
	Create(ctx context.Context, dish *model.Dish) (*model.Dish, error)
}

// IPreferenceStore defines the interface for category quota storage
type IPreferenceStore interface {
	GetQuotas(ctx context.Context, scopeID uuid.UUID) (model.CategoryQuota, error)
	SaveQuotas(ctx context.Context, scopeID uuid.UUID, quotas model.CategoryQuota) (model.CategoryQuota, error)
}

// IRecencyTracker reports dishes used shortly before a week
type IRecencyTracker interface {
	RecentDishIDs(ctx context.Context, scopeID uuid.UUID, weekStart string, lookbackWeeks int) (map[uuid.UUID]struct{}, error)
}

// IAssignmentStore defines persistence of weekly plans and their day slots
type IAssignmentStore interface {
	IRecencyTracker

	GetOrCreatePlan(ctx context.Context, scopeID uuid.UUID, weekStart string) (*model.WeeklyPlan, error)
	FindPlan(ctx context.Context, scopeID uuid.UUID, weekStart string) (*model.WeeklyPlan, error)
	UpsertAssignment(ctx context.Context, planID uuid.UUID, day model.Day, dishID uuid.UUID) (*model.Assignment, error)
	RemoveAssignment(ctx context.Context, assignmentID uuid.UUID) error
	ClearWeek(ctx context.Context, planID uuid.UUID) error
	ListAssignments(ctx context.Context, planID uuid.UUID) ([]model.Assignment, error)

	// Atomically runs fn against a store bound to a single transaction.
	Atomically(ctx context.Context, fn func(store IAssignmentStore) error) error
}

// IActivityLog defines the interface for the per-scope activity feed
type IActivityLog interface {
	Record(ctx context.Context, entry *model.ActivityEntry) error
	List(ctx context.Context, scopeID uuid.UUID, limit int) ([]model.ActivityEntry, error)
}

// IMealPlanService defines the operations exposed to the HTTP layer
type IMealPlanService interface {
	ListDishes(ctx context.Context, scopeID uuid.UUID) ([]model.Dish, error)
	GetQuotas(ctx context.Context, scopeID uuid.UUID) (model.CategoryQuota, error)
	SaveQuotas(ctx context.Context, scopeID uuid.UUID, quotas model.CategoryQuota) (model.CategoryQuota, error)

	Allocate(ctx context.Context, scopeID uuid.UUID, weekStart string) (*Allocation, error)
	GetWeek(ctx context.Context, scopeID uuid.UUID, weekStart string) (map[model.Day]model.Assignment, error)
	AssignDay(ctx context.Context, scopeID uuid.UUID, weekStart string, day model.Day, dishID uuid.UUID) (*model.Assignment, error)
	ClearDay(ctx context.Context, scopeID uuid.UUID, weekStart string, day model.Day) error
	RegenerateWeek(ctx context.Context, scopeID uuid.UUID, weekStart string) (*Allocation, error)

	ListActivity(ctx context.Context, scopeID uuid.UUID, limit int) ([]model.ActivityEntry, error)
}

// ITokenService defines the interface for issuing and checking bearer tokens
type ITokenService interface {
	GenerateToken(userID, scopeID uuid.UUID) (string, error)
	ValidateToken(token string) (*types.TokenClaims, error)
}
