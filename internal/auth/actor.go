// Package auth carries the acting user through request contexts.
package auth

import (
	"context"

	"storefront-system/internal/database/models"
)

type Actor struct {
	UserID int64
	Role   string
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

type actorKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the actor stored on ctx, if any.
func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(Actor)
	return a, ok
}

// UserIDFrom returns a pointer suitable for optional audit columns.
func UserIDFrom(ctx context.Context) *int64 {
	a, ok := ActorFrom(ctx)
	if !ok || a.UserID == 0 {
		return nil
	}
	id := a.UserID
	return &id
}
