package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/mkanilsson/workout-backend/internal/auth"
	"github.com/mkanilsson/workout-backend/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/codes"
)

//go:generate mockgen -source=$GOFILE -destination=auth_mocks_test.go -package=middleware_test

type authenticator interface {
	Authenticate(ctx context.Context, tokenValue string) (*auth.Identity, error)
}

type AuthMiddlewareHandler struct {
	authenticator authenticator
	allowedPaths  map[string]bool
}

func NewAuthMiddlewareHandler(authenticator authenticator) *AuthMiddlewareHandler {
	return &AuthMiddlewareHandler{
		authenticator: authenticator,
		allowedPaths: map[string]bool{
			"/api/auth/register": true,
			"/api/auth/login":    true,

			// targets are global, read-only data
			"/api/targets": true,

			"/api/version": true,
		},
	}
}

// AuthCheck resolves the Authorization header into an identity and stores
// it on the request context. The header carries the opaque token value
// as-is, no Bearer prefix.
func (h *AuthMiddlewareHandler) AuthCheck() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth")
			defer span.End()

			if r.Method == http.MethodOptions {
				w.Header().Add("Allow", "GET, POST, PUT, DELETE, OPTIONS")
				w.WriteHeader(http.StatusOK)
				span.SetStatus(codes.Ok, "options-ok")
				return
			}

			if h.allowedPaths[r.URL.Path] {
				span.SetStatus(codes.Ok, "ok")
				next.ServeHTTP(w, r)
				return
			}

			tokenValue := r.Header.Get("Authorization")
			if tokenValue == "" {
				log.Tracef("[missing token] [auth middleware] unauthorized => %s", r.URL.Path)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "missing-auth-token")
				return
			}

			identity, err := h.authenticator.Authenticate(ctx, tokenValue)
			switch {
			case errors.Is(err, auth.ErrInvalidToken):
				log.Tracef("[invalid token] [auth middleware] unauthorized => %s", r.URL.Path)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "invalid-token")
				return
			case errors.Is(err, auth.ErrSessionUserMissing):
				// valid session, vanished user: that is our bug, not the
				// client's
				log.Errorf("[auth middleware] session user missing => %s: %s", r.URL.Path, err)
				http.Error(w, "internal server error", http.StatusInternalServerError)
				span.SetStatus(codes.Error, "session-user-missing")
				span.RecordError(err)
				return
			case err != nil:
				log.Errorf("[failed auth check] => %s: %s", r.URL.Path, err)
				http.Error(w, "no can do", http.StatusUnauthorized)
				span.SetStatus(codes.Error, "auth-check-err")
				span.RecordError(err)
				return
			}

			span.SetStatus(codes.Ok, "ok")
			next.ServeHTTP(w, r.WithContext(auth.ContextWithIdentity(ctx, identity)))
		})
	}
}
