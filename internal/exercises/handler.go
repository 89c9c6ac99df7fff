package exercises

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/mkanilsson/workout-backend/internal/auth"
	"github.com/mkanilsson/workout-backend/internal/telemetry/tracing"
	"github.com/mkanilsson/workout-backend/pkg"
)

type exercisesRepo interface {
	Add(ctx context.Context, userID, name string, exerciseType ExerciseType, targetIDs []string) (*Exercise, error)
	Get(ctx context.Context, id string) (*Exercise, error)
	ListForUser(ctx context.Context, userID string) ([]Exercise, error)
	Update(ctx context.Context, exercise *Exercise, targetIDs []string) error
	Delete(ctx context.Context, id string) error
}

type targetsRepo interface {
	All(ctx context.Context) ([]Target, error)
}

type ExerciseRequest struct {
	Name         string       `json:"name"`
	ExerciseType ExerciseType `json:"exerciseType"`
	Targets      []string     `json:"targets"`
}

type ListResponse struct {
	Exercises []Exercise `json:"exercises"`
}

type TargetsResponse struct {
	Targets []Target `json:"targets"`
}

type DeleteExerciseResponse struct {
	DeletedID string `json:"deletedId"`
}

type Handler struct {
	repo    exercisesRepo
	targets targetsRepo
}

func NewHandler(repo exercisesRepo, targets targetsRepo) *Handler {
	return &Handler{
		repo:    repo,
		targets: targets,
	}
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.new")
	defer span.End()

	identity := auth.IdentityFromContext(ctx)
	if identity == nil {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	req, ok := exerciseFromRequest(w, r)
	if !ok {
		return
	}

	exercise, err := handler.repo.Add(ctx, identity.User.ID, req.Name, req.ExerciseType, req.Targets)
	if err != nil {
		if errors.Is(err, ErrTargetNotFound) {
			http.Error(w, "target not found", http.StatusBadRequest)
			return
		}
		log.Errorf("failed to add exercise [%s] for user %s: %s", req.Name, identity.User.ID, err)
		http.Error(w, "error, failed to add new exercise", http.StatusInternalServerError)
		return
	}

	exerciseJson, err := json.Marshal(exercise)
	if err != nil {
		log.Errorf("failed to marshal new exercise: %s", err)
		http.Error(w, "error, failed to add new exercise", http.StatusInternalServerError)
		return
	}

	log.Debugf("new exercise added: %s", exercise.ID)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, exerciseJson, http.StatusCreated)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.list")
	defer span.End()

	identity := auth.IdentityFromContext(ctx)
	if identity == nil {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	exercises, err := handler.repo.ListForUser(ctx, identity.User.ID)
	if err != nil {
		log.Errorf("list exercises for user %s: %s", identity.User.ID, err)
		http.Error(w, "failed to get exercises", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(ListResponse{Exercises: exercises})
	if err != nil {
		log.Errorf("marshal exercises error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.update")
	defer span.End()

	identity := auth.IdentityFromContext(ctx)
	if identity == nil {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	exercise, ok := handler.ownedExercise(ctx, w, r, identity)
	if !ok {
		return
	}

	req, reqOk := exerciseFromRequest(w, r)
	if !reqOk {
		return
	}

	exercise.Name = req.Name
	exercise.Type = req.ExerciseType

	if err := handler.repo.Update(ctx, exercise, req.Targets); err != nil {
		if errors.Is(err, ErrTargetNotFound) {
			http.Error(w, "target not found", http.StatusBadRequest)
			return
		}
		log.Errorf("failed to update exercise %s: %s", exercise.ID, err)
		http.Error(w, "error, failed to update exercise", http.StatusInternalServerError)
		return
	}

	exerciseJson, err := json.Marshal(exercise)
	if err != nil {
		log.Errorf("failed to marshal updated exercise: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, exerciseJson, http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.exercises.delete")
	defer span.End()

	identity := auth.IdentityFromContext(ctx)
	if identity == nil {
		http.Error(w, "no session", http.StatusUnauthorized)
		return
	}

	exercise, ok := handler.ownedExercise(ctx, w, r, identity)
	if !ok {
		return
	}

	log.Debugf("deleting exercise %s [%s]", exercise.ID, exercise.Name)

	if err := handler.repo.Delete(ctx, exercise.ID); err != nil {
		log.Errorf("failed to delete exercise %s: %s", exercise.ID, err)
		http.Error(w, "exercise not deleted", http.StatusInternalServerError)
		return
	}

	deleteRespJson, err := json.Marshal(DeleteExerciseResponse{DeletedID: exercise.ID})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponseOK(w, string(deleteRespJson))
}

// HandleListTargets serves the global muscle group list; the only endpoint
// besides login and register that needs no session.
func (handler *Handler) HandleListTargets(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.targets.list")
	defer span.End()

	targets, err := handler.targets.All(ctx)
	if err != nil {
		log.Errorf("list targets: %s", err)
		http.Error(w, "failed to get targets", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(TargetsResponse{Targets: targets})
	if err != nil {
		log.Errorf("marshal targets error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusOK)
}

// ownedExercise loads the exercise from the path id and enforces
// ownership: an unknown id is 404, someone else's exercise is 403.
func (handler *Handler) ownedExercise(ctx context.Context, w http.ResponseWriter, r *http.Request, identity *auth.Identity) (*Exercise, bool) {
	vars := mux.Vars(r)
	id := vars["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return nil, false
	}

	exercise, err := handler.repo.Get(ctx, id)
	if errors.Is(err, ErrExerciseNotFound) {
		http.Error(w, "exercise not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		log.Errorf("failed to get exercise %s: %s", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, false
	}

	if err := auth.Authorize(identity, exercise.UserID); err != nil {
		http.Error(w, "not your item", http.StatusForbidden)
		return nil, false
	}

	return exercise, true
}

func exerciseFromRequest(w http.ResponseWriter, r *http.Request) (ExerciseRequest, bool) {
	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return ExerciseRequest{}, false
	}

	var req ExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("exercise, unmarshal json params: %s", err)
		http.Error(w, "invalid request", http.StatusBadRequest)
		return ExerciseRequest{}, false
	}

	if req.Name == "" {
		http.Error(w, "error, exercise name empty", http.StatusBadRequest)
		return ExerciseRequest{}, false
	}
	if err := req.ExerciseType.Valid(); err != nil {
		http.Error(w, "error, unknown exercise type", http.StatusBadRequest)
		return ExerciseRequest{}, false
	}

	return req, true
}
