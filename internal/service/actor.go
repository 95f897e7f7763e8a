package service

import (
	"context"

	"github.com/google/uuid"
)

type actorKey struct{}

// WithActor attaches the acting user to ctx for the activity log.
func WithActor(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorFrom returns the acting user, or uuid.Nil for system calls.
func ActorFrom(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(actorKey{}).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}
