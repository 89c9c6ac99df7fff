package exercises

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkanilsson/workout-backend/internal/auth"
	"github.com/mkanilsson/workout-backend/internal/users"
)

func newTestHandler() (*Handler, *repoMock) {
	repo := NewMockExercisesRepo()
	repo.AddTarget(Target{ID: "target-chest", Name: "Chest", Sort: 1})
	repo.AddTarget(Target{ID: "target-legs", Name: "Legs", Sort: 2})
	return NewHandler(repo, repo), repo
}

func identityFor(userID string) *auth.Identity {
	return &auth.Identity{
		User:    &users.User{ID: userID, Email: userID + "@example.com"},
		Session: &auth.Session{ID: "session-" + userID, UserID: userID},
	}
}

func exerciseReq(t *testing.T, method, target string, identity *auth.Identity, payload ExerciseRequest) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(auth.ContextWithIdentity(req.Context(), identity))
}

func TestHandler_Add(t *testing.T) {
	handler, _ := newTestHandler()
	identity := identityFor("user-1")

	rr := httptest.NewRecorder()
	handler.HandleAdd(rr, exerciseReq(t, http.MethodPost, "/api/exercises", identity, ExerciseRequest{
		Name:         "Bench press",
		ExerciseType: TypeWeightOverAmount,
		Targets:      []string{"target-chest"},
	}))
	require.Equal(t, http.StatusCreated, rr.Code)

	var exercise Exercise
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &exercise))
	assert.Equal(t, "user-1", exercise.UserID)
	assert.Equal(t, TypeWeightOverAmount, exercise.Type)
	require.Len(t, exercise.Targets, 1)
	assert.Equal(t, "Chest", exercise.Targets[0].Name)
}

func TestHandler_Add_BadRequests(t *testing.T) {
	handler, _ := newTestHandler()
	identity := identityFor("user-1")

	rr := httptest.NewRecorder()
	handler.HandleAdd(rr, exerciseReq(t, http.MethodPost, "/api/exercises", identity, ExerciseRequest{
		Name:         "Bench press",
		ExerciseType: "freestyle",
	}))
	assert.Equal(t, http.StatusBadRequest, rr.Code, "unknown exercise type")

	rr = httptest.NewRecorder()
	handler.HandleAdd(rr, exerciseReq(t, http.MethodPost, "/api/exercises", identity, ExerciseRequest{
		ExerciseType: TypeStatic,
	}))
	assert.Equal(t, http.StatusBadRequest, rr.Code, "empty name")

	rr = httptest.NewRecorder()
	handler.HandleAdd(rr, exerciseReq(t, http.MethodPost, "/api/exercises", identity, ExerciseRequest{
		Name:         "Bench press",
		ExerciseType: TypeWeightOverAmount,
		Targets:      []string{"target-nope"},
	}))
	assert.Equal(t, http.StatusBadRequest, rr.Code, "unknown target")

	rr = httptest.NewRecorder()
	handler.HandleAdd(rr, httptest.NewRequest(http.MethodPost, "/api/exercises", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "no identity")
}

func TestHandler_List_OnlyOwn(t *testing.T) {
	handler, repo := newTestHandler()

	_, err := repo.Add(context.Background(), "user-1", "Bench press", TypeWeightOverAmount, nil)
	require.NoError(t, err)
	_, err = repo.Add(context.Background(), "user-2", "Running", TypeDistanceOverTime, nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/exercises", nil)
	req = req.WithContext(auth.ContextWithIdentity(req.Context(), identityFor("user-1")))

	rr := httptest.NewRecorder()
	handler.HandleList(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp ListResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Exercises, 1)
	assert.Equal(t, "Bench press", resp.Exercises[0].Name)
}

func TestHandler_Update(t *testing.T) {
	handler, repo := newTestHandler()

	exercise, err := repo.Add(context.Background(), "user-1", "Bench press", TypeWeightOverAmount, []string{"target-chest"})
	require.NoError(t, err)

	req := exerciseReq(t, http.MethodPut, "/api/exercises/"+exercise.ID, identityFor("user-1"), ExerciseRequest{
		Name:         "Incline bench press",
		ExerciseType: TypeWeightOverAmount,
		Targets:      []string{"target-chest", "target-legs"},
	})
	req = mux.SetURLVars(req, map[string]string{"id": exercise.ID})

	rr := httptest.NewRecorder()
	handler.HandleUpdate(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	updated, err := repo.Get(context.Background(), exercise.ID)
	require.NoError(t, err)
	assert.Equal(t, "Incline bench press", updated.Name)
	assert.Len(t, updated.Targets, 2)
}

func TestHandler_Update_Ownership(t *testing.T) {
	handler, repo := newTestHandler()

	exercise, err := repo.Add(context.Background(), "user-1", "Bench press", TypeWeightOverAmount, nil)
	require.NoError(t, err)

	payload := ExerciseRequest{Name: "Hijacked", ExerciseType: TypeStatic}

	req := exerciseReq(t, http.MethodPut, "/api/exercises/"+exercise.ID, identityFor("user-2"), payload)
	req = mux.SetURLVars(req, map[string]string{"id": exercise.ID})
	rr := httptest.NewRecorder()
	handler.HandleUpdate(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	req = exerciseReq(t, http.MethodPut, "/api/exercises/nope", identityFor("user-1"), payload)
	req = mux.SetURLVars(req, map[string]string{"id": "nope"})
	rr = httptest.NewRecorder()
	handler.HandleUpdate(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	unchanged, err := repo.Get(context.Background(), exercise.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bench press", unchanged.Name)
}

func TestHandler_Delete(t *testing.T) {
	handler, repo := newTestHandler()

	exercise, err := repo.Add(context.Background(), "user-1", "Bench press", TypeWeightOverAmount, nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/api/exercises/"+exercise.ID, nil)
	req = req.WithContext(auth.ContextWithIdentity(req.Context(), identityFor("user-2")))
	req = mux.SetURLVars(req, map[string]string{"id": exercise.ID})
	rr := httptest.NewRecorder()
	handler.HandleDelete(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	req = httptest.NewRequest(http.MethodDelete, "/api/exercises/"+exercise.ID, nil)
	req = req.WithContext(auth.ContextWithIdentity(req.Context(), identityFor("user-1")))
	req = mux.SetURLVars(req, map[string]string{"id": exercise.ID})
	rr = httptest.NewRecorder()
	handler.HandleDelete(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp DeleteExerciseResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, exercise.ID, resp.DeletedID)

	_, err = repo.Get(context.Background(), exercise.ID)
	assert.ErrorIs(t, err, ErrExerciseNotFound)
}

func TestHandler_ListTargets(t *testing.T) {
	handler, _ := newTestHandler()

	// no identity needed, targets are public
	rr := httptest.NewRecorder()
	handler.HandleListTargets(rr, httptest.NewRequest(http.MethodGet, "/api/targets", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp TargetsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Targets, 2)
	assert.Equal(t, "Chest", resp.Targets[0].Name)
	assert.Equal(t, "Legs", resp.Targets[1].Name)
}
