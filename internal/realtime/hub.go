package realtime

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 16

// Hub fans changes out to in-process subscribers. Each subscription gets its
// own goroutine so a slow handler cannot block publishers. When a queue is
// full the newest change is parked in a single overflow slot, replacing an
// older parked one, and delivered after the queue drains. The last change a
// subscriber is sent is never lost.
type Hub struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]map[uint64]*subscriber
	nextID atomic.Uint64
	buffer int
	logger *zap.Logger
}

type subscriber struct {
	ch   chan Change
	wake chan struct{}
	done chan struct{}

	mu       sync.Mutex
	closed   bool
	overflow *Change
}

// NewHub creates a hub. A non-positive buffer uses DefaultBuffer.
func NewHub(logger *zap.Logger, buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:   make(map[uuid.UUID]map[uint64]*subscriber),
		buffer: buffer,
		logger: logger,
	}
}

// Publish delivers c to every subscriber of c.ScopeID without blocking.
func (h *Hub) Publish(_ context.Context, c Change) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, sub := range h.subs[c.ScopeID] {
		if replaced := sub.send(c); replaced {
			h.logger.Debug("coalescing changes for slow subscriber",
				zap.Uint64("subscription", id),
				zap.String("scope_id", c.ScopeID.String()),
				zap.String("entity", string(c.Entity)))
		}
	}
	return nil
}

// Subscribe registers handler for changes in scopeID.
func (h *Hub) Subscribe(_ context.Context, scopeID uuid.UUID, handler Handler) (func(), error) {
	id := h.nextID.Add(1)
	sub := &subscriber{
		ch:   make(chan Change, h.buffer),
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.subs[scopeID] == nil {
		h.subs[scopeID] = make(map[uint64]*subscriber)
	}
	h.subs[scopeID][id] = sub
	h.mu.Unlock()

	go sub.run(handler)

	return func() { h.remove(scopeID, id) }, nil
}

// Subscribers returns the number of live subscriptions for a scope.
func (h *Hub) Subscribers(scopeID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[scopeID])
}

func (h *Hub) remove(scopeID uuid.UUID, id uint64) {
	h.mu.Lock()
	sub, ok := h.subs[scopeID][id]
	if ok {
		delete(h.subs[scopeID], id)
		if len(h.subs[scopeID]) == 0 {
			delete(h.subs, scopeID)
		}
	}
	h.mu.Unlock()

	if ok {
		sub.close()
	}
}

// send queues c without blocking. It reports whether c replaced an older
// change in the overflow slot.
func (s *subscriber) send(c Change) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if s.overflow == nil {
		select {
		case s.ch <- c:
			return false
		default:
		}
	}

	replaced := s.overflow != nil
	s.overflow = &c
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return replaced
}

func (s *subscriber) takeOverflow() (Change, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overflow == nil {
		return Change{}, false
	}
	c := *s.overflow
	s.overflow = nil
	return c, true
}

// run delivers queued changes in order, then the parked overflow change.
func (s *subscriber) run(handler Handler) {
	for {
		select {
		case c := <-s.ch:
			handler(c)
		case <-s.wake:
			s.drain(handler)
			if c, ok := s.takeOverflow(); ok {
				handler(c)
			}
		case <-s.done:
			return
		}
	}
}

func (s *subscriber) drain(handler Handler) {
	for {
		select {
		case c := <-s.ch:
			handler(c)
		case <-s.done:
			return
		default:
			return
		}
	}
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}
