package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iappwebdev/mahl-zeit-planer/internal/model"
	"github.com/iappwebdev/mahl-zeit-planer/internal/testhelpers"
)

const testWeek = "2026-10-12"

func TestGetOrCreatePlanIsIdempotent(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	store := NewAssignmentStore(db)
	ctx := context.Background()
	scope := uuid.New()

	first, err := store.GetOrCreatePlan(ctx, scope, testWeek)
	require.NoError(t, err)
	second, err := store.GetOrCreatePlan(ctx, scope, testWeek)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, testWeek, second.WeekStart)

	var count int64
	require.NoError(t, db.Model(&model.WeeklyPlan{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGetOrCreatePlanConcurrentCallersConverge(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	store := NewAssignmentStore(db)
	scope := uuid.New()

	const callers = 8
	ids := make([]uuid.UUID, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			plan, err := store.GetOrCreatePlan(context.Background(), scope, testWeek)
			if assert.NoError(t, err) {
				ids[i] = plan.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestGetOrCreatePlanRejectsNonMonday(t *testing.T) {
	store := NewAssignmentStore(testhelpers.SetupSQLite(t))

	_, err := store.GetOrCreatePlan(context.Background(), uuid.New(), "2026-10-14")
	assert.ErrorIs(t, err, model.ErrInvalidWeekStart)
}

func TestFindPlanNotFound(t *testing.T) {
	store := NewAssignmentStore(testhelpers.SetupSQLite(t))

	_, err := store.FindPlan(context.Background(), uuid.New(), testWeek)
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestUpsertAssignmentTwiceKeepsOneRow(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	store := NewAssignmentStore(db)
	ctx := context.Background()
	scope := uuid.New()
	dishes := testhelpers.SeedDishes(t, db, scope, 2, 0, 0)

	plan, err := store.GetOrCreatePlan(ctx, scope, testWeek)
	require.NoError(t, err)

	first, err := store.UpsertAssignment(ctx, plan.ID, model.Wednesday, dishes[0].ID)
	require.NoError(t, err)
	assert.Equal(t, dishes[0].ID, first.DishID)
	require.NotNil(t, first.Dish)
	assert.Equal(t, dishes[0].Name, first.Dish.Name)

	second, err := store.UpsertAssignment(ctx, plan.ID, model.Wednesday, dishes[1].ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, dishes[1].ID, second.DishID)

	var count int64
	require.NoError(t, db.Model(&model.Assignment{}).
		Where("weekly_plan_id = ? AND day_of_week = ?", plan.ID, model.Wednesday).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUpsertAssignmentRejectsInvalidDay(t *testing.T) {
	store := NewAssignmentStore(testhelpers.SetupSQLite(t))

	_, err := store.UpsertAssignment(context.Background(), uuid.New(), model.Day(7), uuid.New())
	assert.ErrorIs(t, err, model.ErrInvalidDay)
}

func TestRemoveAssignmentIsIdempotent(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	store := NewAssignmentStore(db)
	ctx := context.Background()
	scope := uuid.New()
	dishes := testhelpers.SeedDishes(t, db, scope, 1, 0, 0)

	plan, err := store.GetOrCreatePlan(ctx, scope, testWeek)
	require.NoError(t, err)
	row, err := store.UpsertAssignment(ctx, plan.ID, model.Monday, dishes[0].ID)
	require.NoError(t, err)

	require.NoError(t, store.RemoveAssignment(ctx, row.ID))
	require.NoError(t, store.RemoveAssignment(ctx, row.ID))
	require.NoError(t, store.RemoveAssignment(ctx, uuid.New()))

	rows, err := store.ListAssignments(ctx, plan.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestClearWeekOnlyTouchesOnePlan(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	store := NewAssignmentStore(db)
	ctx := context.Background()
	scope := uuid.New()
	dishes := testhelpers.SeedDishes(t, db, scope, 3, 0, 0)

	plan, err := store.GetOrCreatePlan(ctx, scope, testWeek)
	require.NoError(t, err)
	next, err := store.GetOrCreatePlan(ctx, scope, "2026-10-19")
	require.NoError(t, err)

	for i, d := range dishes {
		_, err := store.UpsertAssignment(ctx, plan.ID, model.Day(i), d.ID)
		require.NoError(t, err)
	}
	_, err = store.UpsertAssignment(ctx, next.ID, model.Friday, dishes[0].ID)
	require.NoError(t, err)

	require.NoError(t, store.ClearWeek(ctx, plan.ID))

	rows, err := store.ListAssignments(ctx, plan.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = store.ListAssignments(ctx, next.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestListAssignmentsOrderedByDay(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	store := NewAssignmentStore(db)
	ctx := context.Background()
	scope := uuid.New()
	dishes := testhelpers.SeedDishes(t, db, scope, 3, 0, 0)

	plan, err := store.GetOrCreatePlan(ctx, scope, testWeek)
	require.NoError(t, err)
	for i, day := range []model.Day{model.Sunday, model.Monday, model.Thursday} {
		_, err := store.UpsertAssignment(ctx, plan.ID, day, dishes[i].ID)
		require.NoError(t, err)
	}

	rows, err := store.ListAssignments(ctx, plan.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, model.Monday, rows[0].DayOfWeek)
	assert.Equal(t, model.Thursday, rows[1].DayOfWeek)
	assert.Equal(t, model.Sunday, rows[2].DayOfWeek)
	assert.NotNil(t, rows[0].Dish)
}

func TestRecentDishIDsWindow(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	store := NewAssignmentStore(db)
	ctx := context.Background()
	scope, otherScope := uuid.New(), uuid.New()
	dishes := testhelpers.SeedDishes(t, db, scope, 5, 0, 0)
	otherDishes := testhelpers.SeedDishes(t, db, otherScope, 1, 0, 0)

	assign := func(scopeID uuid.UUID, week string, dishID uuid.UUID) {
		plan, err := store.GetOrCreatePlan(ctx, scopeID, week)
		require.NoError(t, err)
		_, err = store.UpsertAssignment(ctx, plan.ID, model.Monday, dishID)
		require.NoError(t, err)
	}

	// Three weeks back falls outside a two week window.
	assign(scope, "2026-09-21", dishes[0].ID)
	assign(scope, "2026-09-28", dishes[1].ID)
	assign(scope, "2026-10-05", dishes[2].ID)
	assign(scope, testWeek, dishes[3].ID)
	assign(scope, "2026-10-19", dishes[4].ID)
	assign(otherScope, "2026-10-05", otherDishes[0].ID)

	recent, err := store.RecentDishIDs(ctx, scope, testWeek, 2)
	require.NoError(t, err)

	assert.Equal(t, map[uuid.UUID]struct{}{
		dishes[1].ID: {},
		dishes[2].ID: {},
	}, recent)

	none, err := store.RecentDishIDs(ctx, scope, testWeek, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAtomicallyRollsBack(t *testing.T) {
	db := testhelpers.SetupSQLite(t)
	store := NewAssignmentStore(db)
	ctx := context.Background()
	scope := uuid.New()
	dishes := testhelpers.SeedDishes(t, db, scope, 1, 0, 0)

	plan, err := store.GetOrCreatePlan(ctx, scope, testWeek)
	require.NoError(t, err)
	_, err = store.UpsertAssignment(ctx, plan.ID, model.Monday, dishes[0].ID)
	require.NoError(t, err)

	err = store.Atomically(ctx, func(tx IAssignmentStore) error {
		if err := tx.ClearWeek(ctx, plan.ID); err != nil {
			return err
		}
		_, err := tx.UpsertAssignment(ctx, plan.ID, model.Day(9), dishes[0].ID)
		return err
	})
	require.ErrorIs(t, err, model.ErrInvalidDay)

	rows, err := store.ListAssignments(ctx, plan.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
