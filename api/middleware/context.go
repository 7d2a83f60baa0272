package middleware

import (
	"context"

	"github.com/angelmondragon/wishlist-backend/internal/access"
)

type contextKey uint8

const (
	ctxUserID contextKey = iota + 1
	ctxSessionID
	ctxActor
)

func valueOr[T any](ctx context.Context, key contextKey, fallback T) T {
	if ctx == nil {
		return fallback
	}
	if v, ok := ctx.Value(key).(T); ok {
		return v
	}
	return fallback
}

// UserIDFromContext returns the token subject, or "" for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	return valueOr(ctx, ctxUserID, "")
}

// SessionIDFromContext returns the jti of the access token that authenticated the request.
func SessionIDFromContext(ctx context.Context) string {
	return valueOr(ctx, ctxSessionID, "")
}

// ActorFromContext returns the actor resolved by ResolveActor, or Anonymous.
func ActorFromContext(ctx context.Context) access.Actor {
	return valueOr(ctx, ctxActor, access.Anonymous)
}

func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

func WithActor(ctx context.Context, actor access.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}
