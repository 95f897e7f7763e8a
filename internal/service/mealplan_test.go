package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/iappwebdev/mahl-zeit-planer/internal/archive"
	"github.com/iappwebdev/mahl-zeit-planer/internal/model"
	"github.com/iappwebdev/mahl-zeit-planer/internal/planner"
	"github.com/iappwebdev/mahl-zeit-planer/internal/realtime"
	"github.com/iappwebdev/mahl-zeit-planer/internal/testhelpers"
)

type recordingPublisher struct {
	mu      sync.Mutex
	changes []realtime.Change
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, c realtime.Change) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, c)
	return p.err
}

func (p *recordingPublisher) all() []realtime.Change {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]realtime.Change(nil), p.changes...)
}

type recordingArchiver struct {
	snaps []archive.WeekSnapshot
	err   error
}

func (a *recordingArchiver) Archive(_ context.Context, snap archive.WeekSnapshot) error {
	a.snaps = append(a.snaps, snap)
	return a.err
}

// failingStore fails the nth upsert it sees, counting across transactions.
type failingStore struct {
	IAssignmentStore
	failAt  int
	upserts *int
}

var errInjected = errors.New("injected failure")

func (s failingStore) UpsertAssignment(ctx context.Context, planID uuid.UUID, day model.Day, dishID uuid.UUID) (*model.Assignment, error) {
	*s.upserts++
	if *s.upserts == s.failAt {
		return nil, errInjected
	}
	return s.IAssignmentStore.UpsertAssignment(ctx, planID, day, dishID)
}

func (s failingStore) Atomically(ctx context.Context, fn func(IAssignmentStore) error) error {
	return s.IAssignmentStore.Atomically(ctx, func(tx IAssignmentStore) error {
		return fn(failingStore{IAssignmentStore: tx, failAt: s.failAt, upserts: s.upserts})
	})
}

type fixture struct {
	db        *gorm.DB
	scope     uuid.UUID
	dishes    []model.Dish
	store     *AssignmentStore
	publisher *recordingPublisher
	archiver  *recordingArchiver
	activity  *ActivityService
}

func newFixture(t *testing.T, meat, veg, fish int) *fixture {
	t.Helper()
	db := testhelpers.SetupSQLite(t)
	scope := uuid.New()
	return &fixture{
		db:        db,
		scope:     scope,
		dishes:    testhelpers.SeedDishes(t, db, scope, meat, veg, fish),
		store:     NewAssignmentStore(db),
		publisher: &recordingPublisher{},
		archiver:  &recordingArchiver{},
		activity:  NewActivityService(db),
	}
}

func (f *fixture) service(opts ...Option) *MealPlanService {
	base := []Option{
		WithPublisher(f.publisher),
		WithArchiver(f.archiver),
		WithActivityLog(f.activity),
		WithSeed(42),
	}
	return NewMealPlanService(NewDishService(f.db), NewPreferenceService(f.db), f.store, append(base, opts...)...)
}

func dishIDs(week map[model.Day]model.Assignment) map[model.Day]uuid.UUID {
	out := make(map[model.Day]uuid.UUID, len(week))
	for day, a := range week {
		out[day] = a.DishID
	}
	return out
}

func TestAllocateDoesNotPersist(t *testing.T) {
	f := newFixture(t, 4, 4, 2)
	svc := f.service()
	ctx := context.Background()

	alloc, err := svc.Allocate(ctx, f.scope, testWeek)
	require.NoError(t, err)
	assert.Len(t, alloc.Assignments, model.DaysPerWeek)
	assert.Empty(t, alloc.Warnings)

	week, err := svc.GetWeek(ctx, f.scope, testWeek)
	require.NoError(t, err)
	assert.Empty(t, week)
	assert.Empty(t, f.publisher.all())
}

func TestAllocateRejectsInvalidWeek(t *testing.T) {
	f := newFixture(t, 1, 0, 0)

	_, err := f.service().Allocate(context.Background(), f.scope, "2026-10-15")
	assert.ErrorIs(t, err, model.ErrInvalidWeekStart)
}

func TestAllocateEmptyCatalog(t *testing.T) {
	f := newFixture(t, 0, 0, 0)

	alloc, err := f.service().Allocate(context.Background(), f.scope, testWeek)
	require.NoError(t, err)
	assert.Empty(t, alloc.Assignments)
	assert.Equal(t, []string{planner.WarnNoDishes}, alloc.Warnings)
}

func TestAllocateHonorsSavedQuotas(t *testing.T) {
	f := newFixture(t, 5, 5, 5)
	svc := f.service()
	ctx := context.Background()

	_, err := svc.SaveQuotas(ctx, f.scope, model.CategoryQuota{
		model.CategoryMeat:       1,
		model.CategoryVegetarian: 4,
		model.CategoryFish:       2,
	})
	require.NoError(t, err)

	alloc, err := svc.Allocate(ctx, f.scope, testWeek)
	require.NoError(t, err)

	counts := map[model.Category]int{}
	for _, d := range alloc.Assignments {
		counts[d.Category]++
	}
	assert.Equal(t, map[model.Category]int{
		model.CategoryMeat:       1,
		model.CategoryVegetarian: 4,
		model.CategoryFish:       2,
	}, counts)
}

func TestAllocateAvoidsPreviousWeeks(t *testing.T) {
	f := newFixture(t, 7, 7, 0)
	svc := f.service()
	ctx := context.Background()

	last, err := svc.RegenerateWeek(ctx, f.scope, "2026-10-05")
	require.NoError(t, err)

	alloc, err := svc.Allocate(ctx, f.scope, testWeek)
	require.NoError(t, err)

	for _, prev := range last.Assignments {
		for _, next := range alloc.Assignments {
			assert.NotEqual(t, prev.ID, next.ID)
		}
	}
}

func TestGetWeekWithoutPlanIsEmpty(t *testing.T) {
	f := newFixture(t, 1, 0, 0)

	week, err := f.service().GetWeek(context.Background(), f.scope, testWeek)
	require.NoError(t, err)
	assert.Empty(t, week)

	var plans int64
	require.NoError(t, f.db.Model(&model.WeeklyPlan{}).Count(&plans).Error)
	assert.Zero(t, plans)
}

func TestAssignDayCreatesPlanAndPublishes(t *testing.T) {
	f := newFixture(t, 2, 0, 0)
	svc := f.service()
	actor := uuid.New()
	ctx := WithActor(context.Background(), actor)

	got, err := svc.AssignDay(ctx, f.scope, testWeek, model.Tuesday, f.dishes[0].ID)
	require.NoError(t, err)
	assert.Equal(t, f.dishes[0].ID, got.DishID)

	_, err = svc.AssignDay(ctx, f.scope, testWeek, model.Tuesday, f.dishes[1].ID)
	require.NoError(t, err)

	week, err := svc.GetWeek(ctx, f.scope, testWeek)
	require.NoError(t, err)
	assert.Equal(t, map[model.Day]uuid.UUID{model.Tuesday: f.dishes[1].ID}, dishIDs(week))

	changes := f.publisher.all()
	require.Len(t, changes, 2)
	assert.Equal(t, realtime.OpInsert, changes[0].Op)
	assert.Equal(t, realtime.OpUpdate, changes[1].Op)
	for _, c := range changes {
		assert.Equal(t, realtime.EntityAssignment, c.Entity)
		assert.Equal(t, f.scope, c.ScopeID)
		assert.Equal(t, testWeek, c.WeekStart)
		assert.False(t, c.OccurredAt.IsZero())
	}
	assert.JSONEq(t, `{"day_of_week":1,"dish_id":"`+f.dishes[1].ID.String()+`"}`, string(changes[1].Payload))

	entries, err := svc.ListActivity(ctx, f.scope, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, model.ActionAssignmentChanged, e.Action)
		assert.Equal(t, actor, e.ActorID)
	}
}

func TestAssignDayRejectsForeignDish(t *testing.T) {
	f := newFixture(t, 1, 0, 0)
	other := testhelpers.SeedDishes(t, f.db, uuid.New(), 1, 0, 0)

	_, err := f.service().AssignDay(context.Background(), f.scope, testWeek, model.Monday, other[0].ID)
	assert.ErrorIs(t, err, ErrDishNotFound)
	assert.Empty(t, f.publisher.all())
}

func TestAssignDayRejectsInvalidInput(t *testing.T) {
	f := newFixture(t, 1, 0, 0)
	svc := f.service()
	ctx := context.Background()

	_, err := svc.AssignDay(ctx, f.scope, testWeek, model.Day(7), f.dishes[0].ID)
	assert.ErrorIs(t, err, model.ErrInvalidDay)

	_, err = svc.AssignDay(ctx, f.scope, "2026-13-01", model.Monday, f.dishes[0].ID)
	assert.ErrorIs(t, err, model.ErrInvalidWeekStart)
}

func TestAssignDaySurvivesPublishFailure(t *testing.T) {
	f := newFixture(t, 1, 0, 0)
	f.publisher.err = errors.New("broker down")

	_, err := f.service().AssignDay(context.Background(), f.scope, testWeek, model.Monday, f.dishes[0].ID)
	require.NoError(t, err)
}

func TestClearDay(t *testing.T) {
	f := newFixture(t, 2, 0, 0)
	svc := f.service()
	ctx := context.Background()

	_, err := svc.AssignDay(ctx, f.scope, testWeek, model.Monday, f.dishes[0].ID)
	require.NoError(t, err)
	_, err = svc.AssignDay(ctx, f.scope, testWeek, model.Friday, f.dishes[1].ID)
	require.NoError(t, err)

	require.NoError(t, svc.ClearDay(ctx, f.scope, testWeek, model.Monday))

	week, err := svc.GetWeek(ctx, f.scope, testWeek)
	require.NoError(t, err)
	assert.Equal(t, map[model.Day]uuid.UUID{model.Friday: f.dishes[1].ID}, dishIDs(week))

	changes := f.publisher.all()
	require.Len(t, changes, 3)
	assert.Equal(t, realtime.OpDelete, changes[2].Op)
	assert.Equal(t, f.dishes[0].ID, changes[2].DishID)

	entries, err := svc.ListActivity(ctx, f.scope, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.ActionAssignmentCleared, entries[0].Action)
	assert.Equal(t, f.dishes[0].Name, entries[0].EntityName)
}

func TestClearDayOnEmptyDayIsNoop(t *testing.T) {
	f := newFixture(t, 1, 0, 0)
	svc := f.service()
	ctx := context.Background()

	require.NoError(t, svc.ClearDay(ctx, f.scope, testWeek, model.Sunday))

	_, err := svc.AssignDay(ctx, f.scope, testWeek, model.Monday, f.dishes[0].ID)
	require.NoError(t, err)
	require.NoError(t, svc.ClearDay(ctx, f.scope, testWeek, model.Sunday))

	assert.Len(t, f.publisher.all(), 1)
}

func TestRegenerateWeekReplacesEveryDay(t *testing.T) {
	f := newFixture(t, 4, 4, 2)
	svc := f.service()
	ctx := context.Background()

	_, err := svc.AssignDay(ctx, f.scope, testWeek, model.Monday, f.dishes[0].ID)
	require.NoError(t, err)

	alloc, err := svc.RegenerateWeek(ctx, f.scope, testWeek)
	require.NoError(t, err)
	require.Len(t, alloc.Assignments, model.DaysPerWeek)

	week, err := svc.GetWeek(ctx, f.scope, testWeek)
	require.NoError(t, err)
	require.Len(t, week, model.DaysPerWeek)
	for day, dish := range alloc.Assignments {
		assert.Equal(t, dish.ID, week[day].DishID, "day %s", day)
	}

	changes := f.publisher.all()
	require.Len(t, changes, 2)
	assert.Equal(t, realtime.OpUpdate, changes[1].Op)

	require.Len(t, f.archiver.snaps, 1)
	snap := f.archiver.snaps[0]
	assert.Equal(t, testWeek, snap.WeekStart)
	require.Len(t, snap.Days, model.DaysPerWeek)
	assert.Equal(t, "2026-10-12", snap.Days[0].Date)
	assert.Equal(t, "2026-10-18", snap.Days[6].Date)
}

func TestRegenerateWeekIsStableWithFixedSeed(t *testing.T) {
	f := newFixture(t, 4, 4, 2)
	svc := f.service(WithRecencyWeeks(0))
	ctx := context.Background()

	_, err := svc.RegenerateWeek(ctx, f.scope, testWeek)
	require.NoError(t, err)
	first, err := svc.GetWeek(ctx, f.scope, testWeek)
	require.NoError(t, err)

	_, err = svc.RegenerateWeek(ctx, f.scope, testWeek)
	require.NoError(t, err)
	second, err := svc.GetWeek(ctx, f.scope, testWeek)
	require.NoError(t, err)

	assert.Equal(t, dishIDs(first), dishIDs(second))

	var rows int64
	require.NoError(t, f.db.Model(&model.Assignment{}).Count(&rows).Error)
	assert.Equal(t, int64(model.DaysPerWeek), rows)
}

func TestRegenerateWeekWithEmptyCatalogClearsWeek(t *testing.T) {
	f := newFixture(t, 0, 0, 0)
	svc := f.service()
	ctx := context.Background()

	alloc, err := svc.RegenerateWeek(ctx, f.scope, testWeek)
	require.NoError(t, err)
	assert.Equal(t, []string{planner.WarnNoDishes}, alloc.Warnings)

	week, err := svc.GetWeek(ctx, f.scope, testWeek)
	require.NoError(t, err)
	assert.Empty(t, week)
}

func TestRegenerateWeekPartialFailure(t *testing.T) {
	tests := []struct {
		name        string
		atomic      bool
		wantDays    int
		wantChanges int
	}{
		// The partial week is announced so observers drop the cleared days.
		{name: "non-atomic leaves written days", atomic: false, wantDays: 2, wantChanges: 2},
		{name: "atomic keeps previous week", atomic: true, wantDays: 1, wantChanges: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 4, 4, 2)
			ctx := context.Background()

			_, err := f.service().AssignDay(ctx, f.scope, testWeek, model.Sunday, f.dishes[0].ID)
			require.NoError(t, err)

			upserts := 0
			broken := failingStore{IAssignmentStore: f.store, failAt: 3, upserts: &upserts}
			svc := NewMealPlanService(NewDishService(f.db), NewPreferenceService(f.db), broken,
				WithPublisher(f.publisher),
				WithArchiver(f.archiver),
				WithSeed(7),
				WithAtomicRegenerate(tt.atomic))

			_, err = svc.RegenerateWeek(ctx, f.scope, testWeek)
			require.ErrorIs(t, err, errInjected)

			week, err := svc.GetWeek(ctx, f.scope, testWeek)
			require.NoError(t, err)
			assert.Len(t, week, tt.wantDays)
			if tt.atomic {
				assert.Equal(t, f.dishes[0].ID, week[model.Sunday].DishID)
			}

			assert.Empty(t, f.archiver.snaps)
			changes := f.publisher.all()
			require.Len(t, changes, tt.wantChanges)
			last := changes[len(changes)-1]
			if !tt.atomic {
				assert.Equal(t, realtime.OpUpdate, last.Op)
				assert.Equal(t, testWeek, last.WeekStart)
				_, sundayKept := week[model.Sunday]
				assert.False(t, sundayKept)
			}
		})
	}
}

func TestRegenerateWeekSurvivesArchiveFailure(t *testing.T) {
	f := newFixture(t, 3, 3, 1)
	f.archiver.err = errors.New("bucket missing")

	_, err := f.service().RegenerateWeek(context.Background(), f.scope, testWeek)
	require.NoError(t, err)
}

// cancellingStore cancels the caller's context once writes have started.
type cancellingStore struct {
	IAssignmentStore
	cancel context.CancelFunc
}

func (s cancellingStore) GetOrCreatePlan(ctx context.Context, scopeID uuid.UUID, weekStart string) (*model.WeeklyPlan, error) {
	s.cancel()
	return s.IAssignmentStore.GetOrCreatePlan(ctx, scopeID, weekStart)
}

func TestRegenerateWeekCompletesAfterCancel(t *testing.T) {
	f := newFixture(t, 3, 3, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := NewMealPlanService(NewDishService(f.db), NewPreferenceService(f.db),
		cancellingStore{IAssignmentStore: f.store, cancel: cancel},
		WithSeed(3))

	alloc, err := svc.RegenerateWeek(ctx, f.scope, testWeek)
	require.NoError(t, err)
	require.Error(t, ctx.Err())

	week, err := svc.GetWeek(context.Background(), f.scope, testWeek)
	require.NoError(t, err)
	assert.Len(t, week, len(alloc.Assignments))
}

func TestSnapshotOrdersDays(t *testing.T) {
	scope, actor := uuid.New(), uuid.New()
	at := time.Date(2026, 10, 12, 8, 0, 0, 0, time.UTC)
	alloc := &Allocation{
		WeekStart: testWeek,
		Assignments: map[model.Day]model.Dish{
			model.Sunday:    {ID: uuid.New(), Name: "Curry", Category: model.CategoryVegetarian},
			model.Wednesday: {ID: uuid.New(), Name: "Lachs", Category: model.CategoryFish, IsFavorite: true},
		},
		Warnings: []string{planner.WarnInsufficientVariety},
	}

	snap := Snapshot(scope, actor, at, alloc)

	require.Len(t, snap.Days, 2)
	assert.Equal(t, "wednesday", snap.Days[0].Day)
	assert.Equal(t, "2026-10-14", snap.Days[0].Date)
	assert.True(t, snap.Days[0].Favorite)
	assert.Equal(t, "sunday", snap.Days[1].Day)
	assert.Equal(t, actor, snap.GeneratedBy)
	assert.Equal(t, []string{planner.WarnInsufficientVariety}, snap.Warnings)
}
