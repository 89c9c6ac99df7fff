package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mkanilsson/workout-backend/internal/users"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestService() *Service {
	return NewService(users.NewMockUsersRepo(), NewMockSessionsRepo(), DefaultTTL)
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	user, err := svc.Register(ctx, "mira@example.com", "hunter22")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "mira@example.com", user.Email)
	assert.NotEqual(t, "hunter22", user.PasswordHash)

	_, err = svc.Register(ctx, "mira@example.com", "other-password")
	assert.ErrorIs(t, err, users.ErrEmailAlreadyInUse)
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	registered, err := svc.Register(ctx, "mira@example.com", "hunter22")
	require.NoError(t, err)

	user, session, err := svc.Login(ctx, "mira@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	require.NotNil(t, session)
	assert.Equal(t, registered.ID, session.UserID)
	assert.Len(t, session.Value, TokenLength)

	// wrong password and unknown email are indistinguishable
	_, _, err = svc.Login(ctx, "mira@example.com", "wrong")
	assert.ErrorIs(t, err, ErrLoginFailed)
	_, _, err = svc.Login(ctx, "nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrLoginFailed)
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	user, session, err := registerAndLogin(ctx, t, svc)
	require.NoError(t, err)

	identity, err := svc.Authenticate(ctx, session.Value)
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.User.ID)
	assert.Equal(t, session.ID, identity.Session.ID)

	_, err = svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Authenticate(ctx, "no-such-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_Authenticate_Expired(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	_, session, err := registerAndLogin(ctx, t, svc)
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, session.Value)
	require.NoError(t, err)

	// jump the clock past the TTL; the token must stop working even
	// though the row is still in the store
	svc.NowFunc = func() time.Time {
		return time.Now().Add(DefaultTTL + time.Minute)
	}
	_, err = svc.Authenticate(ctx, session.Value)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_Authenticate_MissingUser(t *testing.T) {
	ctx := context.Background()
	sessions := NewMockSessionsRepo()
	svc := NewService(users.NewMockUsersRepo(), sessions, DefaultTTL)

	token, err := GenerateToken()
	require.NoError(t, err)
	_, err = sessions.Add(ctx, "ghost-user-id", token)
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrSessionUserMissing)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}

func TestService_Refresh(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	user, session, err := registerAndLogin(ctx, t, svc)
	require.NoError(t, err)

	identity, err := svc.Authenticate(ctx, session.Value)
	require.NoError(t, err)

	newSession, err := svc.Refresh(ctx, identity)
	require.NoError(t, err)
	assert.NotEqual(t, session.Value, newSession.Value)
	assert.Equal(t, user.ID, newSession.UserID)

	// old token rotated out, new one works
	_, err = svc.Authenticate(ctx, session.Value)
	assert.ErrorIs(t, err, ErrInvalidToken)
	refreshed, err := svc.Authenticate(ctx, newSession.Value)
	require.NoError(t, err)
	assert.Equal(t, user.ID, refreshed.User.ID)
}

func TestService_LogoutAll(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	user, _, err := registerAndLogin(ctx, t, svc)
	require.NoError(t, err)
	_, s2, err := svc.Login(ctx, user.Email, "hunter22")
	require.NoError(t, err)
	_, s3, err := svc.Login(ctx, user.Email, "hunter22")
	require.NoError(t, err)

	removed, err := svc.LogoutAll(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)

	_, err = svc.Authenticate(ctx, s2.Value)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = svc.Authenticate(ctx, s3.Value)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestService_Logout(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	user, session, err := registerAndLogin(ctx, t, svc)
	require.NoError(t, err)

	// someone else cannot revoke it, and cannot tell it exists
	err = svc.Logout(ctx, "not-the-owner", session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.Authenticate(ctx, session.Value)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, user.ID, session.ID))
	_, err = svc.Authenticate(ctx, session.Value)
	assert.ErrorIs(t, err, ErrInvalidToken)

	err = svc.Logout(ctx, user.ID, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestService_Logout_ExpiredSession(t *testing.T) {
	ctx := context.Background()
	sessions := NewMockSessionsRepo()
	svc := NewService(users.NewMockUsersRepo(), sessions, DefaultTTL)

	user, _, err := registerAndLogin(ctx, t, svc)
	require.NoError(t, err)

	expiredToken, err := GenerateToken()
	require.NoError(t, err)
	expired, err := sessions.Add(ctx, user.ID, expiredToken)
	require.NoError(t, err)
	expired.CreatedAt = time.Now().Add(-DefaultTTL - time.Hour)

	// expired sessions no longer authenticate or get listed, but the owner
	// can still revoke them before the sweeper gets there
	_, err = svc.Authenticate(ctx, expired.Value)
	assert.ErrorIs(t, err, ErrInvalidToken)
	require.NoError(t, svc.Logout(ctx, user.ID, expired.ID))

	err = svc.Logout(ctx, user.ID, expired.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestService_Sessions(t *testing.T) {
	ctx := context.Background()
	sessions := NewMockSessionsRepo()
	svc := NewService(users.NewMockUsersRepo(), sessions, DefaultTTL)

	user, _, err := registerAndLogin(ctx, t, svc)
	require.NoError(t, err)

	// plant an already-expired session directly in the store
	expiredToken, err := GenerateToken()
	require.NoError(t, err)
	expired, err := sessions.Add(ctx, user.ID, expiredToken)
	require.NoError(t, err)
	expired.CreatedAt = time.Now().Add(-DefaultTTL - time.Hour)

	active, err := svc.Sessions(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.NotEqual(t, expired.ID, active[0].ID)
}

func TestService_ScanAndClean(t *testing.T) {
	ctx := context.Background()
	sessions := NewMockSessionsRepo()
	svc := NewService(users.NewMockUsersRepo(), sessions, DefaultTTL)

	user, _, err := registerAndLogin(ctx, t, svc)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		token, err := GenerateToken()
		require.NoError(t, err)
		s, err := sessions.Add(ctx, user.ID, token)
		require.NoError(t, err)
		s.CreatedAt = time.Now().Add(-DefaultTTL - time.Hour)
	}

	removed := svc.ScanAndClean(ctx)
	assert.Equal(t, int64(3), removed)

	// the fresh login session survives the sweep
	active, err := svc.Sessions(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	assert.Zero(t, svc.ScanAndClean(ctx))
}

func TestService_TokenFuncInjection(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	svc.TokenFunc = func() (string, error) {
		return "fixed-token-value", nil
	}

	_, session, err := registerAndLogin(ctx, t, svc)
	require.NoError(t, err)
	assert.Equal(t, "fixed-token-value", session.Value)

	svc.TokenFunc = func() (string, error) {
		return "", errors.New("entropy exhausted")
	}
	_, _, err = svc.Login(ctx, "mira@example.com", "hunter22")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate token")
}

func registerAndLogin(ctx context.Context, t *testing.T, svc *Service) (*users.User, *Session, error) {
	t.Helper()
	if _, err := svc.Register(ctx, "mira@example.com", "hunter22"); err != nil {
		return nil, nil, err
	}
	return svc.Login(ctx, "mira@example.com", "hunter22")
}
