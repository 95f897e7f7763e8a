// Package reconciler keeps a local copy of one week in sync with the store.
// Remote changes trigger a full re-read of the week; local edits are applied
// optimistically and rolled back when the write fails.
package reconciler

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iappwebdev/mahl-zeit-planer/internal/model"
	"github.com/iappwebdev/mahl-zeit-planer/internal/realtime"
)

var (
	// ErrClosed is returned by operations on a closed observer.
	ErrClosed = errors.New("observer closed")
	// ErrClearedWhilePending is returned by Assign when the day was cleared
	// before the write finished. The day is cleared in the store as well.
	ErrClearedWhilePending = errors.New("assignment cleared while pending")
)

// SlotState is the local lifecycle of one day.
type SlotState int

const (
	Empty SlotState = iota
	Assigning
	Assigned
)

func (s SlotState) String() string {
	switch s {
	case Assigning:
		return "assigning"
	case Assigned:
		return "assigned"
	default:
		return "empty"
	}
}

func (s SlotState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Slot is the local view of one day. Assignment is nil while Assigning.
type Slot struct {
	State      SlotState         `json:"state"`
	Dish       *model.Dish       `json:"dish,omitempty"`
	Assignment *model.Assignment `json:"assignment,omitempty"`
}

// Week is a copy of the observer state handed to callers.
type Week struct {
	WeekStart string             `json:"week_start"`
	Slots     map[model.Day]Slot `json:"slots"`
}

// WeekService is the part of the meal plan service an observer drives.
type WeekService interface {
	GetWeek(ctx context.Context, scopeID uuid.UUID, weekStart string) (map[model.Day]model.Assignment, error)
	AssignDay(ctx context.Context, scopeID uuid.UUID, weekStart string, day model.Day, dishID uuid.UUID) (*model.Assignment, error)
	ClearDay(ctx context.Context, scopeID uuid.UUID, weekStart string, day model.Day) error
}

// Observer mirrors the assignments of one scope and week.
type Observer struct {
	svc     WeekService
	sub     realtime.Subscriber
	scopeID uuid.UUID
	logger  *zap.Logger

	mu        sync.Mutex
	weekStart string
	slots     map[model.Day]Slot
	fetchSeq  uint64
	assignSeq uint64
	closed    bool
	cancel    context.CancelFunc
	baseCtx   context.Context
	unsub     func()

	// pending maps a day to the Assign call that owns its Assigning slot.
	pending map[model.Day]uint64
	// clearAfter marks Assign calls whose slot was cleared meanwhile.
	clearAfter map[uint64]struct{}

	notifyMu sync.Mutex
	onUpdate func(Week)
}

// New creates an observer for weekStart. Call Start to load and subscribe.
func New(svc WeekService, sub realtime.Subscriber, scopeID uuid.UUID, weekStart string, logger *zap.Logger) (*Observer, error) {
	if err := model.ValidateWeekStart(weekStart); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Observer{
		svc:        svc,
		sub:        sub,
		scopeID:    scopeID,
		logger:     logger.With(zap.String("scope_id", scopeID.String())),
		weekStart:  weekStart,
		slots:      make(map[model.Day]Slot, model.DaysPerWeek),
		pending:    make(map[model.Day]uint64),
		clearAfter: make(map[uint64]struct{}),
	}, nil
}

// OnUpdate registers fn to receive the week after every local or remote
// change. Calls are serialized.
func (o *Observer) OnUpdate(fn func(Week)) {
	o.notifyMu.Lock()
	o.onUpdate = fn
	o.notifyMu.Unlock()
}

// Start subscribes to the scope's change stream and loads the week. The
// subscription is registered first so no change between the two is missed.
func (o *Observer) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	o.baseCtx, o.cancel = context.WithCancel(ctx)
	o.mu.Unlock()

	unsub, err := o.sub.Subscribe(ctx, o.scopeID, o.handle)
	if err != nil {
		o.cancel()
		return err
	}

	o.mu.Lock()
	o.unsub = unsub
	o.mu.Unlock()

	return o.reload(ctx)
}

// Close removes the subscription. It is safe to call more than once.
func (o *Observer) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	unsub, cancel := o.unsub, o.cancel
	o.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if cancel != nil {
		cancel()
	}
}

// Week returns a copy of the current local state.
func (o *Observer) Week() Week {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Week{WeekStart: o.weekStart, Slots: maps.Clone(o.slots)}
}

// Navigate switches the observed week and reloads it.
func (o *Observer) Navigate(ctx context.Context, weekStart string) error {
	if err := model.ValidateWeekStart(weekStart); err != nil {
		return err
	}
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	o.weekStart = weekStart
	o.slots = make(map[model.Day]Slot, model.DaysPerWeek)
	o.pending = make(map[model.Day]uint64)
	o.mu.Unlock()

	return o.reload(ctx)
}

// Assign shows dish on day immediately and persists it. When the write
// fails the state from before the call is restored and the error returned.
// If Clear empties the day while the write is in flight, the day is cleared
// in the store once the write resolves and ErrClearedWhilePending is returned.
func (o *Observer) Assign(ctx context.Context, day model.Day, dish model.Dish) (*model.Assignment, error) {
	if !day.Valid() {
		return nil, model.ErrInvalidDay
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrClosed
	}
	snapshot := maps.Clone(o.slots)
	weekStart := o.weekStart
	o.assignSeq++
	seq := o.assignSeq
	o.pending[day] = seq
	o.slots[day] = Slot{State: Assigning, Dish: &dish}
	o.mu.Unlock()
	o.notify()

	stored, err := o.svc.AssignDay(ctx, o.scopeID, weekStart, day, dish.ID)

	o.mu.Lock()
	_, cleared := o.clearAfter[seq]
	delete(o.clearAfter, seq)
	current := o.weekStart == weekStart && o.pending[day] == seq
	if current {
		delete(o.pending, day)
	}
	o.mu.Unlock()

	if cleared {
		return nil, o.finishClear(ctx, weekStart, day, err)
	}
	if err != nil {
		if current {
			o.restore(weekStart, snapshot)
		}
		return nil, err
	}
	if !current {
		// A later Assign owns the slot now.
		return stored, nil
	}

	o.mu.Lock()
	if o.weekStart == weekStart {
		shown := stored.Dish
		if shown == nil {
			shown = &dish
		}
		o.slots[day] = Slot{State: Assigned, Dish: shown, Assignment: stored}
	}
	o.mu.Unlock()
	o.notify()

	return stored, nil
}

// finishClear removes day from the store after its pending assignment
// resolved. On failure the week is re-read so the view matches the store.
func (o *Observer) finishClear(ctx context.Context, weekStart string, day model.Day, assignErr error) error {
	if err := o.svc.ClearDay(ctx, o.scopeID, weekStart, day); err != nil {
		if rerr := o.reload(ctx); rerr != nil {
			o.logger.Warn("reload after failed clear", zap.Error(rerr))
		}
		return err
	}
	if assignErr != nil {
		return assignErr
	}
	return ErrClearedWhilePending
}

// Clear empties day immediately and persists it, restoring on failure.
// A slot whose Assign is still in flight is cleared in the store by that
// Assign once it resolves.
func (o *Observer) Clear(ctx context.Context, day model.Day) error {
	if !day.Valid() {
		return model.ErrInvalidDay
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	snapshot := maps.Clone(o.slots)
	weekStart := o.weekStart
	prev, ok := o.slots[day]
	delete(o.slots, day)
	o.mu.Unlock()

	if ok {
		o.notify()
	}

	if ok && prev.State == Assigning {
		o.mu.Lock()
		if seq, found := o.pending[day]; found && o.weekStart == weekStart {
			delete(o.pending, day)
			o.clearAfter[seq] = struct{}{}
		}
		o.mu.Unlock()
		return nil
	}
	if err := o.svc.ClearDay(ctx, o.scopeID, weekStart, day); err != nil {
		o.restore(weekStart, snapshot)
		return err
	}
	return nil
}

func (o *Observer) restore(weekStart string, snapshot map[model.Day]Slot) {
	o.mu.Lock()
	if o.weekStart == weekStart {
		o.slots = snapshot
	}
	o.mu.Unlock()
	o.notify()
}

// reload replaces the local week with the stored one. Only the most recent
// fetch is applied so a slow response cannot overwrite a newer one.
func (o *Observer) reload(ctx context.Context) error {
	o.mu.Lock()
	o.fetchSeq++
	seq := o.fetchSeq
	weekStart := o.weekStart
	o.mu.Unlock()

	rows, err := o.svc.GetWeek(ctx, o.scopeID, weekStart)
	if err != nil {
		return err
	}

	slots := make(map[model.Day]Slot, len(rows))
	for day, row := range rows {
		row := row
		slots[day] = Slot{State: Assigned, Dish: row.Dish, Assignment: &row}
	}

	o.mu.Lock()
	if seq != o.fetchSeq || weekStart != o.weekStart {
		o.mu.Unlock()
		o.logger.Debug("discarding stale week fetch", zap.String("week_start", weekStart))
		return nil
	}
	o.slots = slots
	o.mu.Unlock()
	o.notify()
	return nil
}

func (o *Observer) handle(c realtime.Change) {
	if !o.affects(c) {
		return
	}

	o.mu.Lock()
	ctx := o.baseCtx
	o.mu.Unlock()

	if err := o.reload(ctx); err != nil {
		o.logger.Warn("reload after change failed",
			zap.String("entity", string(c.Entity)),
			zap.String("op", string(c.Op)),
			zap.Error(err))
	}
}

// affects reports whether c can change what the local week shows.
func (o *Observer) affects(c realtime.Change) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed || c.ScopeID != o.scopeID {
		return false
	}
	switch c.Entity {
	case realtime.EntityAssignment:
		return c.WeekStart == "" || c.WeekStart == o.weekStart
	case realtime.EntityDish:
		if c.Op == realtime.OpInsert {
			return false
		}
		for _, slot := range o.slots {
			if slot.Dish != nil && slot.Dish.ID == c.DishID {
				return true
			}
		}
	}
	return false
}

func (o *Observer) notify() {
	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()
	if o.onUpdate != nil {
		o.onUpdate(o.Week())
	}
}
