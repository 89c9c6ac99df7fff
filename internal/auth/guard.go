package auth

import (
	"context"
	"errors"

	"github.com/mkanilsson/workout-backend/internal/users"
)

// ErrNotYourItem is returned when a resource exists but belongs to another
// user. Handlers map it to 403, distinct from a plain not-found.
var ErrNotYourItem = errors.New("not your item")

// Identity is the authenticated user together with the session that
// authenticated the current request.
type Identity struct {
	User    *users.User
	Session *Session
}

// Authorize is the ownership guard: it permits an action on a resource only
// when the resource's stored owner id matches the acting user.
func Authorize(identity *Identity, ownerID string) error {
	if identity == nil || identity.User == nil {
		return ErrNotYourItem
	}
	if identity.User.ID != ownerID {
		return ErrNotYourItem
	}
	return nil
}

type identityContextKey struct{}

func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// IdentityFromContext returns the identity stored by the auth middleware,
// or nil when the request was not authenticated.
func IdentityFromContext(ctx context.Context) *Identity {
	identity, _ := ctx.Value(identityContextKey{}).(*Identity)
	return identity
}
