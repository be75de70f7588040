package middleware

import (
	"context"

	"leavedesk/internal/domain/identity"
)

type ctxKey int

const ctxKeyActor ctxKey = iota

func WithActor(ctx context.Context, actor identity.Actor) context.Context {
	return context.WithValue(ctx, ctxKeyActor, actor)
}

func GetActor(ctx context.Context) (identity.Actor, bool) {
	actor, ok := ctx.Value(ctxKeyActor).(identity.Actor)
	return actor, ok
}
