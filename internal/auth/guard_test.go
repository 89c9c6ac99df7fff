package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkanilsson/workout-backend/internal/users"
)

func TestAuthorize(t *testing.T) {
	identity := &Identity{
		User:    &users.User{ID: "user-1"},
		Session: &Session{ID: "session-1", UserID: "user-1"},
	}

	assert.NoError(t, Authorize(identity, "user-1"))
	assert.ErrorIs(t, Authorize(identity, "user-2"), ErrNotYourItem)
	assert.ErrorIs(t, Authorize(nil, "user-1"), ErrNotYourItem)
	assert.ErrorIs(t, Authorize(&Identity{}, "user-1"), ErrNotYourItem)
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, IdentityFromContext(ctx))

	identity := &Identity{
		User:    &users.User{ID: "user-1"},
		Session: &Session{ID: "session-1", UserID: "user-1"},
	}
	ctx = ContextWithIdentity(ctx, identity)

	got := IdentityFromContext(ctx)
	require.NotNil(t, got)
	assert.Equal(t, "user-1", got.User.ID)
	assert.Equal(t, "session-1", got.Session.ID)
}
