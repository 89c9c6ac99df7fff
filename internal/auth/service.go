package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mkanilsson/workout-backend/internal/telemetry/tracing"
	"github.com/mkanilsson/workout-backend/internal/users"
	"github.com/mkanilsson/workout-backend/pkg"

	log "github.com/sirupsen/logrus"
)

// DefaultTTL is how long a session stays valid after it was issued. The
// expiry sweeper uses the same constant, so the per-request check here is
// always at least as strict as the cleanup.
const DefaultTTL = 24 * 7 * time.Hour

var (
	// ErrLoginFailed deliberately covers both unknown email and wrong
	// password, so callers cannot enumerate accounts.
	ErrLoginFailed = errors.New("login failed")

	ErrInvalidToken = errors.New("invalid token")

	// ErrSessionUserMissing means a session points at a user row that no
	// longer exists. That is store corruption, not an auth failure, and is
	// surfaced separately so it never hides behind a 401.
	ErrSessionUserMissing = errors.New("session references missing user")
)

type userStore interface {
	Add(ctx context.Context, email, passwordHash string) (*users.User, error)
	GetByEmail(ctx context.Context, email string) (*users.User, error)
	Get(ctx context.Context, id string) (*users.User, error)
}

type sessionStore interface {
	Add(ctx context.Context, userID, value string) (*Session, error)
	GetByValue(ctx context.Context, value string) (*Session, error)
	Delete(ctx context.Context, id string) error
	DeleteForUser(ctx context.Context, userID, sessionID string) error
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)
	DeleteExpired(ctx context.Context, olderThan time.Time) (int64, error)
	ListForUser(ctx context.Context, userID string) ([]Session, error)
}

type Service struct {
	users    userStore
	sessions sessionStore
	ttl      time.Duration

	// ability to inject token generator and clock (for unit and dev testing)
	TokenFunc func() (string, error)
	NowFunc   func() time.Time
}

func NewService(userStore userStore, sessionStore sessionStore, ttl time.Duration) *Service {
	return &Service{
		users:     userStore,
		sessions:  sessionStore,
		ttl:       ttl,
		TokenFunc: GenerateToken,
		NowFunc:   time.Now,
	}
}

// Register creates a new user with the given credentials. Registering an
// email that is already taken fails with users.ErrEmailAlreadyInUse before
// any write happens.
func (s *Service) Register(ctx context.Context, email, password string) (_ *users.User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "auth.register")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	_, err = s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil, users.ErrEmailAlreadyInUse
	}
	if !errors.Is(err, users.ErrUserNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	passwordHash, err := pkg.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return s.users.Add(ctx, email, passwordHash)
}

// Login verifies the email and password pair and mints a new session. Both
// an unknown email and a wrong password come back as ErrLoginFailed.
func (s *Service) Login(ctx context.Context, email, password string) (_ *users.User, _ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "auth.login")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, users.ErrUserNotFound) {
		return nil, nil, ErrLoginFailed
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get user: %w", err)
	}

	ok, err := pkg.CheckPasswordHash(password, user.PasswordHash)
	if err != nil {
		// stored hash is unreadable, that's corruption rather than a
		// wrong password
		return nil, nil, fmt.Errorf("verify password for user %s: %w", user.ID, err)
	}
	if !ok {
		return nil, nil, ErrLoginFailed
	}

	session, err := s.mintSession(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}

	return user, session, nil
}

// Authenticate resolves the raw Authorization header value into an
// identity. Absent and expired sessions both yield ErrInvalidToken; the
// expiry is checked on every call, never cached.
func (s *Service) Authenticate(ctx context.Context, tokenValue string) (_ *Identity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "auth.authenticate")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if tokenValue == "" {
		return nil, ErrInvalidToken
	}

	session, err := s.sessions.GetByValue(ctx, tokenValue)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if s.NowFunc().Sub(session.CreatedAt) >= s.ttl {
		return nil, ErrInvalidToken
	}

	user, err := s.users.Get(ctx, session.UserID)
	if errors.Is(err, users.ErrUserNotFound) {
		return nil, fmt.Errorf("%w: session %s, user %s", ErrSessionUserMissing, session.ID, session.UserID)
	}
	if err != nil {
		return nil, fmt.Errorf("get session user: %w", err)
	}

	return &Identity{User: user, Session: session}, nil
}

// Refresh issues a fresh session for the identity and deletes the session
// that authenticated the current request, so each token value is rotated
// out after a single refresh.
func (s *Service) Refresh(ctx context.Context, identity *Identity) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "auth.refresh")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	newSession, err := s.mintSession(ctx, identity.User.ID)
	if err != nil {
		return nil, err
	}

	if err := s.sessions.Delete(ctx, identity.Session.ID); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return nil, fmt.Errorf("delete rotated session: %w", err)
	}

	return newSession, nil
}

// Logout revokes a single session of the given user. The delete is scoped
// to the owner in one store call, so an expired-but-not-yet-swept session
// can still be revoked, while someone else's session stays untouchable and
// indistinguishable from a missing one.
func (s *Service) Logout(ctx context.Context, userID, sessionID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "auth.logout")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return s.sessions.DeleteForUser(ctx, userID, sessionID)
}

// LogoutAll revokes every session of the given user.
func (s *Service) LogoutAll(ctx context.Context, userID string) (_ int64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "auth.logoutAll")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return s.sessions.DeleteAllForUser(ctx, userID)
}

// Sessions lists the user's sessions that are still within the TTL.
func (s *Service) Sessions(ctx context.Context, userID string) (_ []Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "auth.sessions")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	all, err := s.sessions.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.NowFunc()
	active := make([]Session, 0, len(all))
	for _, session := range all {
		if now.Sub(session.CreatedAt) < s.ttl {
			active = append(active, session)
		}
	}
	return active, nil
}

// ScanAndClean deletes all sessions past the TTL and returns how many were
// removed. A failed sweep is only logged; the next tick tries again.
func (s *Service) ScanAndClean(ctx context.Context) int64 {
	removed, err := s.sessions.DeleteExpired(ctx, s.NowFunc().Add(-s.ttl))
	if err != nil {
		log.Errorf("auth service, scan and clean: %s", err)
		return 0
	}
	if removed > 0 {
		log.Debugf("auth service, scan and clean: removed %d expired sessions", removed)
	}
	return removed
}

func (s *Service) mintSession(ctx context.Context, userID string) (*Session, error) {
	tokenValue, err := s.TokenFunc()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	session, err := s.sessions.Add(ctx, userID, tokenValue)
	if err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return session, nil
}
