package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iappwebdev/mahl-zeit-planer/internal/archive"
	"github.com/iappwebdev/mahl-zeit-planer/internal/model"
	"github.com/iappwebdev/mahl-zeit-planer/internal/planner"
	"github.com/iappwebdev/mahl-zeit-planer/internal/realtime"
)

// Allocation is a computed week. Days without an entry stay empty.
type Allocation struct {
	WeekStart   string
	Assignments map[model.Day]model.Dish
	Warnings    []string
}

// Archiver keeps a copy of every generated week.
type Archiver interface {
	Archive(ctx context.Context, snap archive.WeekSnapshot) error
}

// MealPlanService composes the catalog, preferences, allocator and store
// into the operations the API exposes.
type MealPlanService struct {
	dishes    IDishCatalog
	prefs     IPreferenceStore
	store     IAssignmentStore
	activity  IActivityLog
	publisher realtime.Publisher
	archiver  Archiver
	logger    *zap.Logger

	seed             uint64
	recencyWeeks     int
	atomicRegenerate bool
	now              func() time.Time
}

// Option configures a MealPlanService.
type Option func(*MealPlanService)

// WithPublisher announces every committed write on p.
func WithPublisher(p realtime.Publisher) Option {
	return func(s *MealPlanService) { s.publisher = p }
}

// WithActivityLog records generations and day edits.
func WithActivityLog(l IActivityLog) Option {
	return func(s *MealPlanService) { s.activity = l }
}

// WithArchiver stores a snapshot of each regenerated week.
func WithArchiver(a Archiver) Option {
	return func(s *MealPlanService) { s.archiver = a }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *MealPlanService) { s.logger = l }
}

// WithSeed makes every allocation start from the same seed. Zero keeps the
// default of a fresh crypto seed per allocation.
func WithSeed(seed uint64) Option {
	return func(s *MealPlanService) { s.seed = seed }
}

// WithRecencyWeeks sets how many preceding weeks are avoided.
func WithRecencyWeeks(n int) Option {
	return func(s *MealPlanService) { s.recencyWeeks = n }
}

// WithAtomicRegenerate runs clear and rewrite of a week in one transaction.
// Without it a failure between the two leaves the week partially filled.
func WithAtomicRegenerate(enabled bool) Option {
	return func(s *MealPlanService) { s.atomicRegenerate = enabled }
}

// NewMealPlanService creates a new MealPlanService instance
func NewMealPlanService(dishes IDishCatalog, prefs IPreferenceStore, store IAssignmentStore, opts ...Option) *MealPlanService {
	s := &MealPlanService{
		dishes:       dishes,
		prefs:        prefs,
		store:        store,
		logger:       zap.NewNop(),
		recencyWeeks: planner.DefaultRecencyWeeks,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListDishes returns the catalog of a scope
func (s *MealPlanService) ListDishes(ctx context.Context, scopeID uuid.UUID) ([]model.Dish, error) {
	return s.dishes.ListAvailable(ctx, scopeID)
}

// GetQuotas returns the category quotas of a scope
func (s *MealPlanService) GetQuotas(ctx context.Context, scopeID uuid.UUID) (model.CategoryQuota, error) {
	return s.prefs.GetQuotas(ctx, scopeID)
}

// SaveQuotas stores the category quotas of a scope
func (s *MealPlanService) SaveQuotas(ctx context.Context, scopeID uuid.UUID, quotas model.CategoryQuota) (model.CategoryQuota, error) {
	return s.prefs.SaveQuotas(ctx, scopeID, quotas)
}

// ListActivity returns the newest activity entries of a scope
func (s *MealPlanService) ListActivity(ctx context.Context, scopeID uuid.UUID, limit int) ([]model.ActivityEntry, error) {
	if s.activity == nil {
		return []model.ActivityEntry{}, nil
	}
	return s.activity.List(ctx, scopeID, limit)
}

// Allocate computes a week without persisting it.
func (s *MealPlanService) Allocate(ctx context.Context, scopeID uuid.UUID, weekStart string) (*Allocation, error) {
	if err := model.ValidateWeekStart(weekStart); err != nil {
		return nil, err
	}

	in, err := s.gatherInput(ctx, scopeID, weekStart)
	if err != nil {
		return nil, err
	}

	allocator, err := s.allocator()
	if err != nil {
		return nil, err
	}
	res := allocator.Allocate(in)

	return &Allocation{
		WeekStart:   weekStart,
		Assignments: res.Assignments,
		Warnings:    res.Warnings,
	}, nil
}

func (s *MealPlanService) gatherInput(ctx context.Context, scopeID uuid.UUID, weekStart string) (planner.Input, error) {
	var in planner.Input
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		dishes, err := s.dishes.ListAvailable(gctx, scopeID)
		if err != nil {
			return err
		}
		in.Dishes = dishes
		return nil
	})
	g.Go(func() error {
		quotas, err := s.prefs.GetQuotas(gctx, scopeID)
		if err != nil {
			return err
		}
		in.Quotas = quotas
		return nil
	})
	g.Go(func() error {
		recent, err := s.store.RecentDishIDs(gctx, scopeID, weekStart, s.recencyWeeks)
		if err != nil {
			return err
		}
		in.RecentDishIDs = recent
		return nil
	})

	if err := g.Wait(); err != nil {
		return planner.Input{}, fmt.Errorf("gather allocation input: %w", err)
	}
	return in, nil
}

func (s *MealPlanService) allocator() (*planner.Allocator, error) {
	if s.seed != 0 {
		return planner.NewSeeded(s.seed), nil
	}
	seed, err := planner.NewSeed()
	if err != nil {
		return nil, err
	}
	return planner.NewSeeded(seed), nil
}

// GetWeek returns the filled days of a week. A week without a plan is empty.
func (s *MealPlanService) GetWeek(ctx context.Context, scopeID uuid.UUID, weekStart string) (map[model.Day]model.Assignment, error) {
	if err := model.ValidateWeekStart(weekStart); err != nil {
		return nil, err
	}

	week := make(map[model.Day]model.Assignment, model.DaysPerWeek)
	plan, err := s.store.FindPlan(ctx, scopeID, weekStart)
	if errors.Is(err, ErrPlanNotFound) {
		return week, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.store.ListAssignments(ctx, plan.ID)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		week[row.DayOfWeek] = row
	}
	return week, nil
}

// AssignDay puts one dish on one day, creating the plan if needed.
func (s *MealPlanService) AssignDay(ctx context.Context, scopeID uuid.UUID, weekStart string, day model.Day, dishID uuid.UUID) (*model.Assignment, error) {
	if err := model.ValidateWeekStart(weekStart); err != nil {
		return nil, err
	}
	if !day.Valid() {
		return nil, model.ErrInvalidDay
	}

	dish, err := s.dishes.Get(ctx, scopeID, dishID)
	if err != nil {
		return nil, err
	}

	writeCtx := context.WithoutCancel(ctx)
	plan, err := s.store.GetOrCreatePlan(writeCtx, scopeID, weekStart)
	if err != nil {
		return nil, err
	}
	assignment, err := s.store.UpsertAssignment(writeCtx, plan.ID, day, dish.ID)
	if err != nil {
		return nil, err
	}

	op := realtime.OpUpdate
	if assignment.IsNew() {
		op = realtime.OpInsert
	}
	s.publish(writeCtx, realtime.Change{
		Entity:    realtime.EntityAssignment,
		Op:        op,
		ScopeID:   scopeID,
		WeekStart: weekStart,
		DishID:    dish.ID,
		Payload:   slotPayload(day, dish.ID),
	})
	s.record(writeCtx, scopeID, model.ActionAssignmentChanged, model.EntityMealAssignment, dish.Name, weekStart)

	return assignment, nil
}

// ClearDay empties one day. Clearing an empty day is a no-op.
func (s *MealPlanService) ClearDay(ctx context.Context, scopeID uuid.UUID, weekStart string, day model.Day) error {
	if !day.Valid() {
		return model.ErrInvalidDay
	}
	week, err := s.GetWeek(ctx, scopeID, weekStart)
	if err != nil {
		return err
	}
	current, ok := week[day]
	if !ok {
		return nil
	}

	writeCtx := context.WithoutCancel(ctx)
	if err := s.store.RemoveAssignment(writeCtx, current.ID); err != nil {
		return err
	}

	name := ""
	if current.Dish != nil {
		name = current.Dish.Name
	}
	s.publish(writeCtx, realtime.Change{
		Entity:    realtime.EntityAssignment,
		Op:        realtime.OpDelete,
		ScopeID:   scopeID,
		WeekStart: weekStart,
		DishID:    current.DishID,
		Payload:   slotPayload(day, current.DishID),
	})
	s.record(writeCtx, scopeID, model.ActionAssignmentCleared, model.EntityMealAssignment, name, weekStart)
	return nil
}

// RegenerateWeek allocates a fresh week and replaces every stored day.
// Writes run to completion even if ctx is cancelled once they started.
func (s *MealPlanService) RegenerateWeek(ctx context.Context, scopeID uuid.UUID, weekStart string) (*Allocation, error) {
	alloc, err := s.Allocate(ctx, scopeID, weekStart)
	if err != nil {
		return nil, err
	}

	writeCtx := context.WithoutCancel(ctx)
	cleared := false
	persist := func(store IAssignmentStore) error {
		plan, err := store.GetOrCreatePlan(writeCtx, scopeID, weekStart)
		if err != nil {
			return err
		}
		if err := store.ClearWeek(writeCtx, plan.ID); err != nil {
			return err
		}
		cleared = true
		for _, day := range model.AllDays() {
			dish, ok := alloc.Assignments[day]
			if !ok {
				continue
			}
			if _, err := store.UpsertAssignment(writeCtx, plan.ID, day, dish.ID); err != nil {
				return err
			}
		}
		return nil
	}

	weekChanged := realtime.Change{
		Entity:    realtime.EntityAssignment,
		Op:        realtime.OpUpdate,
		ScopeID:   scopeID,
		WeekStart: weekStart,
	}
	if s.atomicRegenerate {
		err = s.store.Atomically(writeCtx, persist)
	} else {
		err = persist(s.store)
	}
	if err != nil {
		// Without a transaction the cleared and rewritten days stay stored,
		// so observers must still re-read the partial week.
		if cleared && !s.atomicRegenerate {
			s.publish(writeCtx, weekChanged)
		}
		return nil, fmt.Errorf("regenerate week %s: %w", weekStart, err)
	}

	s.publish(writeCtx, weekChanged)
	s.record(writeCtx, scopeID, model.ActionPlanGenerated, model.EntityWeeklyPlan, weekStart, weekStart)
	s.archive(writeCtx, scopeID, alloc)

	return alloc, nil
}

func (s *MealPlanService) publish(ctx context.Context, change realtime.Change) {
	if s.publisher == nil {
		return
	}
	change.OccurredAt = s.now().UTC()
	if err := s.publisher.Publish(ctx, change); err != nil {
		s.logger.Warn("publish change failed",
			zap.String("scope_id", change.ScopeID.String()),
			zap.String("week_start", change.WeekStart),
			zap.String("op", string(change.Op)),
			zap.Error(err))
	}
}

func (s *MealPlanService) record(ctx context.Context, scopeID uuid.UUID, action, entityType, entityName, weekStart string) {
	if s.activity == nil {
		return
	}
	entry := &model.ActivityEntry{
		ScopeID:    scopeID,
		ActorID:    ActorFrom(ctx),
		Action:     action,
		EntityType: entityType,
		EntityName: entityName,
		WeekStart:  weekStart,
	}
	if err := s.activity.Record(ctx, entry); err != nil {
		s.logger.Warn("record activity failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *MealPlanService) archive(ctx context.Context, scopeID uuid.UUID, alloc *Allocation) {
	if s.archiver == nil {
		return
	}
	if err := s.archiver.Archive(ctx, Snapshot(scopeID, ActorFrom(ctx), s.now().UTC(), alloc)); err != nil {
		s.logger.Warn("archive week failed",
			zap.String("scope_id", scopeID.String()),
			zap.String("week_start", alloc.WeekStart),
			zap.Error(err))
	}
}

// Snapshot converts an allocation into its archived form, Monday first.
func Snapshot(scopeID, actorID uuid.UUID, at time.Time, alloc *Allocation) archive.WeekSnapshot {
	dates, _ := model.WeekDates(alloc.WeekStart)
	snap := archive.WeekSnapshot{
		ScopeID:     scopeID,
		WeekStart:   alloc.WeekStart,
		GeneratedAt: at,
		GeneratedBy: actorID,
		Days:        []archive.DaySnapshot{},
		Warnings:    alloc.Warnings,
	}
	for _, day := range model.AllDays() {
		dish, ok := alloc.Assignments[day]
		if !ok {
			continue
		}
		date := ""
		if int(day) < len(dates) {
			date = dates[day]
		}
		snap.Days = append(snap.Days, archive.DaySnapshot{
			Day:      day.String(),
			Date:     date,
			DishID:   dish.ID,
			DishName: dish.Name,
			Category: string(dish.Category),
			Favorite: dish.IsFavorite,
		})
	}
	return snap
}

func slotPayload(day model.Day, dishID uuid.UUID) json.RawMessage {
	data, _ := json.Marshal(struct {
		DayOfWeek model.Day `json:"day_of_week"`
		DishID    uuid.UUID `json:"dish_id"`
	}{day, dishID})
	return data
}
