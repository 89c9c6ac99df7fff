package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mkanilsson/workout-backend/internal/auth"
	"github.com/mkanilsson/workout-backend/internal/middleware"
	"github.com/mkanilsson/workout-backend/internal/users"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func TestAuthMiddlewareHandler_AuthCheck(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockAuthenticator := NewMockauthenticator(ctrl)
	authMiddleware := middleware.NewAuthMiddlewareHandler(mockAuthenticator)

	validIdentity := &auth.Identity{
		User:    &users.User{ID: "user-1", Email: "mira@example.com"},
		Session: &auth.Session{ID: "session-1", UserID: "user-1"},
	}

	testCases := []struct {
		name               string
		path               string
		method             string
		token              string
		mockIdentity       *auth.Identity
		mockErr            error
		expectedStatusCode int
		expectIdentity     bool
	}{
		{
			name:               "LoginWithoutToken",
			path:               "/api/auth/login",
			method:             "POST",
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "RegisterWithoutToken",
			path:               "/api/auth/register",
			method:             "POST",
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "TargetsWithoutToken",
			path:               "/api/targets",
			method:             "GET",
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "ProtectedPathWithoutToken",
			path:               "/api/workouts",
			method:             "GET",
			expectedStatusCode: http.StatusUnauthorized,
		},
		{
			name:               "Options",
			path:               "/api/workouts",
			method:             "OPTIONS",
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "ValidToken",
			path:               "/api/workouts",
			method:             "GET",
			token:              "valid-token",
			mockIdentity:       validIdentity,
			expectedStatusCode: http.StatusOK,
			expectIdentity:     true,
		},
		{
			name:               "InvalidToken",
			path:               "/api/workouts",
			method:             "GET",
			token:              "invalid-token",
			mockErr:            auth.ErrInvalidToken,
			expectedStatusCode: http.StatusUnauthorized,
		},
		{
			name:               "SessionWithoutUser",
			path:               "/api/workouts",
			method:             "GET",
			token:              "orphan-token",
			mockErr:            auth.ErrSessionUserMissing,
			expectedStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, tc.path, nil)
			assert.NoError(t, err)
			if tc.token != "" {
				req.Header.Add("Authorization", tc.token)
				mockAuthenticator.EXPECT().
					Authenticate(gomock.Any(), tc.token).
					Return(tc.mockIdentity, tc.mockErr)
			}

			var gotIdentity *auth.Identity
			rr := httptest.NewRecorder()
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotIdentity = auth.IdentityFromContext(r.Context())
			})
			authMiddleware.AuthCheck()(handler).ServeHTTP(rr, req)

			assert.Equal(t, tc.expectedStatusCode, rr.Code)
			if tc.expectIdentity {
				assert.Equal(t, validIdentity, gotIdentity)
			}
		})
	}
}
