package realtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultChannelPrefix namespaces the Redis pub/sub channels.
const DefaultChannelPrefix = "mealplan:changes"

// RedisBroker distributes changes between API instances over Redis pub/sub.
// Every subscription owns one Redis subscription on its scope channel.
type RedisBroker struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisBroker creates a broker on client. An empty prefix uses
// DefaultChannelPrefix.
func NewRedisBroker(client *redis.Client, prefix string, logger *zap.Logger) *RedisBroker {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBroker{client: client, prefix: prefix, logger: logger}
}

// Channel returns the pub/sub channel of a scope.
func (b *RedisBroker) Channel(scopeID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", b.prefix, scopeID)
}

// Publish sends c on its scope channel.
func (b *RedisBroker) Publish(ctx context.Context, c Change) error {
	data, err := Encode(c)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	if err := b.client.Publish(ctx, b.Channel(c.ScopeID), data).Err(); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

// Subscribe listens on the scope channel until the returned function is
// called. Undecodable messages are logged and skipped.
func (b *RedisBroker) Subscribe(ctx context.Context, scopeID uuid.UUID, handler Handler) (func(), error) {
	pubsub := b.client.Subscribe(ctx, b.Channel(scopeID))
	// Wait for the subscription confirmation so no publish is missed after
	// Subscribe returns.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to changes: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range pubsub.Channel() {
			c, err := Decode([]byte(msg.Payload))
			if err != nil {
				b.logger.Warn("skipping malformed change", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			handler(c)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := pubsub.Close(); err != nil {
				b.logger.Debug("closing change subscription", zap.Error(err))
			}
			<-done
		})
	}, nil
}
