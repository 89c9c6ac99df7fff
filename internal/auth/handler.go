package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/mkanilsson/workout-backend/internal/instrumentation"
	"github.com/mkanilsson/workout-backend/internal/telemetry/tracing"
	"github.com/mkanilsson/workout-backend/internal/users"
	"github.com/mkanilsson/workout-backend/pkg"
)

type authService interface {
	Register(ctx context.Context, email, password string) (*users.User, error)
	Login(ctx context.Context, email, password string) (*users.User, *Session, error)
	Refresh(ctx context.Context, identity *Identity) (*Session, error)
	Logout(ctx context.Context, userID, sessionID string) error
	LogoutAll(ctx context.Context, userID string) (int64, error)
	Sessions(ctx context.Context, userID string) ([]Session, error)
}

type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	User *users.User `json:"user"`
}

type LoginResponse struct {
	User  *users.User `json:"user"`
	Token string      `json:"token"`
}

type RefreshResponse struct {
	Token string `json:"token"`
}

type LogoutResponse struct {
	SessionsRemoved int64 `json:"sessionsRemoved"`
}

type SessionsResponse struct {
	Sessions []Session `json:"sessions"`
}

type Handler struct {
	service authService
	metrics *instrumentation.Instrumentation
}

func NewHandler(service authService, metrics *instrumentation.Instrumentation) *Handler {
	return &Handler{
		service: service,
		metrics: metrics,
	}
}

func (handler *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.register")
	defer span.End()

	creds, ok := credentialsFromRequest(w, r)
	if !ok {
		return
	}

	user, err := handler.service.Register(ctx, creds.Email, creds.Password)
	if err != nil {
		if errors.Is(err, users.ErrEmailAlreadyInUse) {
			http.Error(w, "email already in use", http.StatusConflict)
			return
		}
		log.Errorf("register user: %s", err)
		http.Error(w, "registration failed", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterRegisteredUsers.Inc()
	log.Debugf("new user registered: %s", user.ID)

	respJson, err := json.Marshal(RegisterResponse{User: user})
	if err != nil {
		log.Errorf("marshal register response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusCreated)
}

func (handler *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.login")
	defer span.End()

	creds, ok := credentialsFromRequest(w, r)
	if !ok {
		return
	}

	user, session, err := handler.service.Login(ctx, creds.Email, creds.Password)
	if err != nil {
		if errors.Is(err, ErrLoginFailed) {
			handler.metrics.CounterFailedLogins.Inc()
			http.Error(w, "login failed", http.StatusUnauthorized)
			return
		}
		log.Errorf("login: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterLogins.Inc()
	log.Debugf("user %s logged in, session %s", user.ID, session.ID)

	respJson, err := json.Marshal(LoginResponse{User: user, Token: session.Value})
	if err != nil {
		log.Errorf("marshal login response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}

func (handler *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.refresh")
	defer span.End()

	identity := IdentityFromContext(ctx)
	if identity == nil {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	session, err := handler.service.Refresh(ctx, identity)
	if err != nil {
		log.Errorf("refresh session %s: %s", identity.Session.ID, err)
		http.Error(w, "refresh failed", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(RefreshResponse{Token: session.Value})
	if err != nil {
		log.Errorf("marshal refresh response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}

// HandleLogout revokes every session of the calling user, so a logout from
// one device logs out all of them.
func (handler *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.logout")
	defer span.End()

	identity := IdentityFromContext(ctx)
	if identity == nil {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	removed, err := handler.service.LogoutAll(ctx, identity.User.ID)
	if err != nil {
		log.Errorf("logout user %s: %s", identity.User.ID, err)
		http.Error(w, "logout failed", http.StatusInternalServerError)
		return
	}

	log.Debugf("user %s logged out, %d sessions removed", identity.User.ID, removed)

	respJson, err := json.Marshal(LogoutResponse{SessionsRemoved: removed})
	if err != nil {
		log.Errorf("marshal logout response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}

func (handler *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.sessions")
	defer span.End()

	identity := IdentityFromContext(ctx)
	if identity == nil {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	sessions, err := handler.service.Sessions(ctx, identity.User.ID)
	if err != nil {
		log.Errorf("list sessions for user %s: %s", identity.User.ID, err)
		http.Error(w, "failed to get sessions", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(SessionsResponse{Sessions: sessions})
	if err != nil {
		log.Errorf("marshal sessions response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}

func (handler *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.delete-session")
	defer span.End()

	identity := IdentityFromContext(ctx)
	if identity == nil {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	sessionID := vars["id"]
	if sessionID == "" {
		http.Error(w, "error, session id empty", http.StatusBadRequest)
		return
	}

	if err := handler.service.Logout(ctx, identity.User.ID, sessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		log.Errorf("delete session %s: %s", sessionID, err)
		http.Error(w, "failed to delete session", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, `{"deleted":true}`)
}

func credentialsFromRequest(w http.ResponseWriter, r *http.Request) (CredentialsRequest, bool) {
	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return CredentialsRequest{}, false
	}

	var creds CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		log.Tracef("auth, unmarshal json params: %s", err)
		http.Error(w, "invalid request", http.StatusBadRequest)
		return CredentialsRequest{}, false
	}

	if creds.Email == "" || creds.Password == "" {
		http.Error(w, "error, email or password empty", http.StatusBadRequest)
		return CredentialsRequest{}, false
	}

	return creds, true
}
