// Package realtime carries change notifications between writers and the
// observers of a scope. Transports are interchangeable: an in-process hub,
// Redis pub/sub, or Postgres LISTEN/NOTIFY fed by table triggers.
package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Entity string

const (
	EntityAssignment Entity = "assignment"
	EntityDish       Entity = "dish"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change is one mutation notification. Receivers treat it as a hint to
// re-read; Payload is informational only.
type Change struct {
	Entity     Entity          `json:"entity"`
	Op         Op              `json:"op"`
	ScopeID    uuid.UUID       `json:"scope_id"`
	WeekStart  string          `json:"week_start,omitempty"`
	DishID     uuid.UUID       `json:"dish_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Handler receives changes for one subscription. Calls are sequential.
type Handler func(Change)

// Publisher announces a committed mutation.
type Publisher interface {
	Publish(ctx context.Context, change Change) error
}

// Subscriber registers a handler for one scope. The returned function
// removes the subscription and is safe to call more than once.
type Subscriber interface {
	Subscribe(ctx context.Context, scopeID uuid.UUID, handler Handler) (unsubscribe func(), err error)
}

// Broker is both ends of a transport.
type Broker interface {
	Publisher
	Subscriber
}

// Encode serializes a change for a wire transport.
func Encode(c Change) ([]byte, error) {
	return json.Marshal(c)
}

// Decode parses a change produced by Encode or by the database triggers.
func Decode(data []byte) (Change, error) {
	var c Change
	if err := json.Unmarshal(data, &c); err != nil {
		return Change{}, err
	}
	return c, nil
}
