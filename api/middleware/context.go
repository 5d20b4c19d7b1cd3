package middleware

import (
	"context"

	"github.com/angelmondragon/escrowmarket/pkg/actor"
)

type contextKey string

const ctxActor contextKey = "actor"

// ActorFromContext returns the authenticated caller, or nil when the request
// never passed through Auth.
func ActorFromContext(ctx context.Context) actor.Actor {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxActor).(actor.Actor); ok {
		return v
	}
	return nil
}

// WithActor injects the caller into the context for downstream handlers.
func WithActor(ctx context.Context, a actor.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, a)
}
