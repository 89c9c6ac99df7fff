package integration_testing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/mkanilsson/workout-backend/internal/auth"
	"github.com/mkanilsson/workout-backend/internal/exercises"
	"github.com/mkanilsson/workout-backend/internal/workouts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requires a running docker daemon

func doRequest(
	t *testing.T,
	method, path, token string,
	payload any,
) (int, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		payloadJson, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(payloadJson)
	}

	req, err := http.NewRequest(method, serverEndpoint+path, body)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, respBytes
}

func TestServer_WorkoutFlow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	suite := newSuite(ctx)
	defer suite.cleanup()

	// server needs a moment to start listening
	time.Sleep(500 * time.Millisecond)

	credentials := auth.CredentialsRequest{
		Email:    "mira@example.com",
		Password: "hunter22",
	}

	// register + login
	status, respBytes := doRequest(t, http.MethodPost, "/api/auth/register", "", credentials)
	require.Equal(t, http.StatusCreated, status, string(respBytes))

	status, _ = doRequest(t, http.MethodPost, "/api/auth/register", "", credentials)
	assert.Equal(t, http.StatusConflict, status)

	status, respBytes = doRequest(t, http.MethodPost, "/api/auth/login", "", credentials)
	require.Equal(t, http.StatusOK, status, string(respBytes))
	var loginResp auth.LoginResponse
	require.NoError(t, json.Unmarshal(respBytes, &loginResp))
	require.NotEmpty(t, loginResp.Token)
	token := loginResp.Token

	// targets are reachable without a session
	status, respBytes = doRequest(t, http.MethodGet, "/api/targets", "", nil)
	require.Equal(t, http.StatusOK, status)
	var targetsResp exercises.TargetsResponse
	require.NoError(t, json.Unmarshal(respBytes, &targetsResp))
	require.NotEmpty(t, targetsResp.Targets)

	// workouts are not
	status, _ = doRequest(t, http.MethodGet, "/api/workouts/current", "", nil)
	require.Equal(t, http.StatusUnauthorized, status)

	status, respBytes = doRequest(t, http.MethodPost, "/api/exercises", token, exercises.ExerciseRequest{
		Name:         "Bench press",
		ExerciseType: exercises.TypeWeightOverAmount,
		Targets:      []string{targetsResp.Targets[0].ID},
	})
	require.Equal(t, http.StatusCreated, status, string(respBytes))
	var benchPress exercises.Exercise
	require.NoError(t, json.Unmarshal(respBytes, &benchPress))
	require.Len(t, benchPress.Targets, 1)

	// start a workout, second start is rejected
	status, respBytes = doRequest(t, http.MethodPost, "/api/workouts", token, nil)
	require.Equal(t, http.StatusCreated, status, string(respBytes))
	var workout workouts.Workout
	require.NoError(t, json.Unmarshal(respBytes, &workout))
	assert.Equal(t, workouts.StatusOngoing, workout.Status)

	status, _ = doRequest(t, http.MethodPost, "/api/workouts", token, nil)
	require.Equal(t, http.StatusConflict, status)

	status, respBytes = doRequest(t, http.MethodPost, "/api/workouts/current/exercises", token, workouts.AddExerciseRequest{
		ExerciseID: benchPress.ID,
	})
	require.Equal(t, http.StatusCreated, status, string(respBytes))
	var occurrence workouts.ExerciseWorkout
	require.NoError(t, json.Unmarshal(respBytes, &occurrence))

	// normal set added before the warmup one, listing still puts warmup first
	status, _ = doRequest(t, http.MethodPost, "/api/sets", token, workouts.AddSetRequest{
		ExerciseWorkoutID: occurrence.ID,
		Quality:           40,
		Quantity:          8,
		SetType:           workouts.SetNormal,
	})
	require.Equal(t, http.StatusCreated, status)
	status, _ = doRequest(t, http.MethodPost, "/api/sets", token, workouts.AddSetRequest{
		ExerciseWorkoutID: occurrence.ID,
		Quality:           20,
		Quantity:          12,
		SetType:           workouts.SetWarmup,
	})
	require.Equal(t, http.StatusCreated, status)

	status, respBytes = doRequest(t, http.MethodGet, "/api/workouts/current", token, nil)
	require.Equal(t, http.StatusOK, status, string(respBytes))
	var current workouts.DetailedWorkout
	require.NoError(t, json.Unmarshal(respBytes, &current))
	require.Len(t, current.Exercises, 1)
	require.Len(t, current.Exercises[0].Sets, 2)
	assert.Equal(t, workouts.SetWarmup, current.Exercises[0].Sets[0].Type)
	assert.Equal(t, workouts.SetNormal, current.Exercises[0].Sets[1].Type)

	// finish, then no current workout anymore
	status, _ = doRequest(t, http.MethodPut, "/api/workouts/current", token, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = doRequest(t, http.MethodGet, "/api/workouts/current", token, nil)
	require.Equal(t, http.StatusNotFound, status)

	status, respBytes = doRequest(t, http.MethodGet, "/api/workouts", token, nil)
	require.Equal(t, http.StatusOK, status)
	var listResp workouts.ListWorkoutsResponse
	require.NoError(t, json.Unmarshal(respBytes, &listResp))
	require.Len(t, listResp.Workouts, 1)
	assert.Equal(t, workouts.StatusDone, listResp.Workouts[0].Status)

	status, respBytes = doRequest(t, http.MethodGet, fmt.Sprintf("/api/exercises/%s/history", benchPress.ID), token, nil)
	require.Equal(t, http.StatusOK, status, string(respBytes))
	var historyResp workouts.HistoryResponse
	require.NoError(t, json.Unmarshal(respBytes, &historyResp))
	require.Len(t, historyResp.History, 1)

	// logout kills the session
	status, _ = doRequest(t, http.MethodDelete, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = doRequest(t, http.MethodGet, "/api/workouts/current", token, nil)
	require.Equal(t, http.StatusUnauthorized, status)
}
