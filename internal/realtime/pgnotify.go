package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// NotifyChannel is the channel the database triggers notify on.
const NotifyChannel = "meal_plan_changes"

const (
	listenerMinReconnect = 10 * time.Second
	listenerMaxReconnect = time.Minute
	listenerPingInterval = 90 * time.Second
)

// PGSource turns Postgres NOTIFY payloads written by the meal_assignments and
// dishes triggers into changes for local subscribers. Writers do not publish
// when this source is used; the database does.
type PGSource struct {
	listener *pq.Listener
	hub      *Hub
	logger   *zap.Logger
}

// NewPGSource opens a dedicated listener connection on dsn.
func NewPGSource(dsn string, logger *zap.Logger) (*PGSource, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	listener := pq.NewListener(dsn, listenerMinReconnect, listenerMaxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			logger.Warn("postgres listener event", zap.Int("event", int(ev)), zap.Error(err))
		}
	})
	if err := listener.Listen(NotifyChannel); err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("listen on %s: %w", NotifyChannel, err)
	}

	return &PGSource{
		listener: listener,
		hub:      NewHub(logger, DefaultBuffer),
		logger:   logger,
	}, nil
}

// Subscribe registers handler for notifications of one scope.
func (s *PGSource) Subscribe(ctx context.Context, scopeID uuid.UUID, handler Handler) (func(), error) {
	return s.hub.Subscribe(ctx, scopeID, handler)
}

// Run forwards notifications until ctx is done.
func (s *PGSource) Run(ctx context.Context) error {
	ticker := time.NewTicker(listenerPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n := <-s.listener.Notify:
			// nil after a reconnect; changes in the gap are lost, observers
			// catch up on the next one.
			if n == nil {
				s.logger.Info("postgres listener reconnected")
				continue
			}
			c, err := Decode([]byte(n.Extra))
			if err != nil {
				s.logger.Warn("skipping malformed notification", zap.String("channel", n.Channel), zap.Error(err))
				continue
			}
			_ = s.hub.Publish(ctx, c)
		case <-ticker.C:
			go func() {
				if err := s.listener.Ping(); err != nil {
					s.logger.Warn("postgres listener ping failed", zap.Error(err))
				}
			}()
		}
	}
}

// Close releases the listener connection.
func (s *PGSource) Close() error {
	return s.listener.Close()
}
