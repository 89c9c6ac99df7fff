package workouts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/mkanilsson/workout-backend/internal/auth"
	"github.com/mkanilsson/workout-backend/internal/exercises"
	"github.com/mkanilsson/workout-backend/internal/instrumentation"
	"github.com/mkanilsson/workout-backend/internal/telemetry/tracing"
	"github.com/mkanilsson/workout-backend/pkg"
)

type workoutsService interface {
	Start(ctx context.Context, identity *auth.Identity) (*Workout, error)
	Current(ctx context.Context, identity *auth.Identity) (*DetailedWorkout, error)
	FinishCurrent(ctx context.Context, identity *auth.Identity) (*Workout, error)
	ListDone(ctx context.Context, identity *auth.Identity) ([]Workout, error)
	Delete(ctx context.Context, identity *auth.Identity, workoutID string) (*Workout, error)
	AddExercise(ctx context.Context, identity *auth.Identity, exerciseID string) (*ExerciseWorkout, error)
	RemoveExercise(ctx context.Context, identity *auth.Identity, occurrenceID string) (*ExerciseWorkout, error)
	AddSet(ctx context.Context, identity *auth.Identity, occurrenceID string, quality, quantity float64, setType SetType, note *string) (*Set, error)
	UpdateSet(ctx context.Context, identity *auth.Identity, setID string, quality, quantity float64, setType SetType, note *string) (*Set, error)
	ExerciseHistory(ctx context.Context, identity *auth.Identity, exerciseID string) ([]ExerciseHistoryEntry, error)
}

type AddExerciseRequest struct {
	ExerciseID string `json:"exerciseId"`
}

type AddSetRequest struct {
	ExerciseWorkoutID string  `json:"exerciseWorkoutId"`
	Quality           float64 `json:"quality"`
	Quantity          float64 `json:"quantity"`
	SetType           SetType `json:"setType"`
	Note              *string `json:"note"`
}

type UpdateSetRequest struct {
	Quality  float64 `json:"quality"`
	Quantity float64 `json:"quantity"`
	SetType  SetType `json:"setType"`
	Note     *string `json:"note"`
}

type ListWorkoutsResponse struct {
	Workouts []Workout `json:"workouts"`
}

type HistoryResponse struct {
	History []ExerciseHistoryEntry `json:"history"`
}

type Handler struct {
	service workoutsService
	metrics *instrumentation.Instrumentation
}

func NewHandler(service workoutsService, metrics *instrumentation.Instrumentation) *Handler {
	return &Handler{
		service: service,
		metrics: metrics,
	}
}

func (handler *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.start")
	defer span.End()

	identity := auth.IdentityFromContext(ctx)
	if identity == nil {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	workout, err := handler.service.Start(ctx, identity)
	if err != nil {
		writeWorkoutError(w, "start workout", err)
		return
	}

	handler.metrics.CounterWorkoutsStarted.Inc()
	log.Debugf("workout %s started for user %s", workout.ID, identity.User.ID)
	writeJSON(w, workout, http.StatusCreated)
}

func (handler *Handler) HandleListDone(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.list")
	defer span.End()

	identity := auth.IdentityFromContext(ctx)
	if identity == nil {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	workouts, err := handler.service.ListDone(ctx, identity)
	if err != nil {
		writeWorkoutError(w, "list workouts", err)
		return
	}
	writeJSON(w, ListWorkoutsResponse{Workouts: workouts}, http.StatusOK)
}

func (handler *Handler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.current")
	defer span.End()

	identity := auth.IdentityFromContext(ctx)
	if identity == nil {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	workout, err := handler.service.Current(ctx, identity)
	if err != nil {
		writeWorkoutError(w, "get current workout", err)
		return
	}
	writeJSON(w, workout, http.StatusOK)
}

func (handler *Handler) HandleFinishCurrent(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.finish")
	defer span.End()

	identity := auth.IdentityFromContext(ctx)
	if identity == nil {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	workout, err := handler.service.FinishCurrent(ctx, identity)
	if err != nil {
		writeWorkoutError(w, "finish workout", err)
		return
	}

	handler.metrics.CounterWorkoutsFinished.Inc()
	log.Debugf("workout %s finished for user %s", workout.ID, identity.User.ID)
	writeJSON(w, workout, http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.delete")
	defer span.End()

	identity := auth.IdentityFromContext(ctx)
	if identity == nil {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	workout, err := handler.service.Delete(ctx, identity, id)
	if err != nil {
		writeWorkoutError(w, "delete workout", err)
		return
	}
	writeJSON(w, workout, http.StatusOK)
}

func (handler *Handler) HandleAddExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.addExercise")
	defer span.End()

	identity := auth.IdentityFromContext(ctx)
	if identity == nil {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	var req AddExerciseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ExerciseID == "" {
		http.Error(w, "error, exercise id empty", http.StatusBadRequest)
		return
	}

	occurrence, err := handler.service.AddExercise(ctx, identity, req.ExerciseID)
	if err != nil {
		writeWorkoutError(w, "add exercise to workout", err)
		return
	}
	writeJSON(w, occurrence, http.StatusCreated)
}

func (handler *Handler) HandleRemoveExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.removeExercise")
	defer span.End()

	identity := auth.IdentityFromContext(ctx)
	if identity == nil {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	id := mux.Vars(r)["exerciseWorkoutId"]
	if id == "" {
		http.Error(w, "error, exercise workout id empty", http.StatusBadRequest)
		return
	}

	occurrence, err := handler.service.RemoveExercise(ctx, identity, id)
	if err != nil {
		writeWorkoutError(w, "remove exercise from workout", err)
		return
	}
	writeJSON(w, occurrence, http.StatusOK)
}

func (handler *Handler) HandleAddSet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sets.new")
	defer span.End()

	identity := auth.IdentityFromContext(ctx)
	if identity == nil {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	var req AddSetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ExerciseWorkoutID == "" {
		http.Error(w, "error, exercise workout id empty", http.StatusBadRequest)
		return
	}
	if err := req.SetType.Valid(); err != nil {
		http.Error(w, "error, unknown set type", http.StatusBadRequest)
		return
	}

	set, err := handler.service.AddSet(ctx, identity, req.ExerciseWorkoutID, req.Quality, req.Quantity, req.SetType, req.Note)
	if err != nil {
		writeWorkoutError(w, "add set", err)
		return
	}
	writeJSON(w, set, http.StatusCreated)
}

func (handler *Handler) HandleUpdateSet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.sets.update")
	defer span.End()

	identity := auth.IdentityFromContext(ctx)
	if identity == nil {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	var req UpdateSetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.SetType.Valid(); err != nil {
		http.Error(w, "error, unknown set type", http.StatusBadRequest)
		return
	}

	set, err := handler.service.UpdateSet(ctx, identity, id, req.Quality, req.Quantity, req.SetType, req.Note)
	if err != nil {
		writeWorkoutError(w, "update set", err)
		return
	}
	writeJSON(w, set, http.StatusOK)
}

func (handler *Handler) HandleExerciseHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.history")
	defer span.End()

	identity := auth.IdentityFromContext(ctx)
	if identity == nil {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	history, err := handler.service.ExerciseHistory(ctx, identity, id)
	if err != nil {
		writeWorkoutError(w, "get exercise history", err)
		return
	}
	writeJSON(w, HistoryResponse{History: history}, http.StatusOK)
}

// writeWorkoutError maps domain errors to status codes in one place so
// every endpoint reports them the same way. Ownership mismatches stay 403
// rather than hiding behind 404.
func writeWorkoutError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, auth.ErrNotYourItem):
		http.Error(w, "not your item", http.StatusForbidden)
	case errors.Is(err, ErrNoOngoingWorkout):
		http.Error(w, "current workout not found", http.StatusNotFound)
	case errors.Is(err, ErrWorkoutNotFound),
		errors.Is(err, ErrOccurrenceNotFound),
		errors.Is(err, ErrSetNotFound),
		errors.Is(err, exercises.ErrExerciseNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ErrOngoingWorkoutExists):
		http.Error(w, "ongoing workout already exists", http.StatusConflict)
	case errors.Is(err, ErrWorkoutNotOngoing):
		http.Error(w, "workout not ongoing", http.StatusConflict)
	default:
		log.Errorf("%s: %s", action, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		log.Tracef("workouts, unmarshal json params: %s", err)
		http.Error(w, "invalid request", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any, statusCode int) {
	respJson, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("marshal response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, statusCode)
}
