package workouts

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkanilsson/workout-backend/internal/auth"
	"github.com/mkanilsson/workout-backend/internal/exercises"
	"github.com/mkanilsson/workout-backend/internal/telemetry/tracing"
)

// ErrOngoingWorkoutExists rejects starting a second workout while one is
// still ongoing. Finish or delete the current one first.
var ErrOngoingWorkoutExists = errors.New("ongoing workout already exists")

type workoutsRepo interface {
	AddWorkout(ctx context.Context, userID string) (*Workout, error)
	GetWorkout(ctx context.Context, id string) (*Workout, error)
	CurrentForUser(ctx context.Context, userID string) (*Workout, error)
	ListDoneForUser(ctx context.Context, userID string) ([]Workout, error)
	FinishWorkout(ctx context.Context, id string) error
	DeleteWorkout(ctx context.Context, id string) error
	WorkoutsWhereExerciseUsed(ctx context.Context, exerciseID string) ([]Workout, error)
	AddOccurrence(ctx context.Context, userID, exerciseID, workoutID string) (*ExerciseWorkout, error)
	GetOccurrence(ctx context.Context, id string) (*ExerciseWorkout, error)
	DeleteOccurrence(ctx context.Context, id string) error
	OccurrencesForWorkout(ctx context.Context, workoutID string) ([]ExerciseWorkout, error)
	OccurrencesForExerciseAndWorkout(ctx context.Context, exerciseID, workoutID string) ([]ExerciseWorkout, error)
	AddSet(ctx context.Context, set Set) (*Set, error)
	GetSet(ctx context.Context, id string) (*Set, error)
	UpdateSet(ctx context.Context, set *Set) error
	SetsForOccurrence(ctx context.Context, occurrenceID string) ([]Set, error)
}

type exercisesGetter interface {
	Get(ctx context.Context, id string) (*exercises.Exercise, error)
}

// Service owns the workout lifecycle. Every mutating operation first runs
// the ownership guard against the acting identity, and every state
// transition checks the workout's tagged status explicitly instead of
// assuming the caller came through the right path.
type Service struct {
	repo      workoutsRepo
	exercises exercisesGetter
}

func NewService(repo workoutsRepo, exercises exercisesGetter) *Service {
	return &Service{
		repo:      repo,
		exercises: exercises,
	}
}

// Start opens a new ongoing workout for the user. A user can have at most
// one ongoing workout, so Start fails with ErrOngoingWorkoutExists while
// one is open.
func (s *Service) Start(ctx context.Context, identity *auth.Identity) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.start")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	_, err = s.repo.CurrentForUser(ctx, identity.User.ID)
	if err == nil {
		return nil, ErrOngoingWorkoutExists
	}
	if !errors.Is(err, ErrNoOngoingWorkout) {
		return nil, fmt.Errorf("check current workout: %w", err)
	}

	return s.repo.AddWorkout(ctx, identity.User.ID)
}

// Current assembles the detailed view of the user's ongoing workout:
// every occurrence with its exercise info and ordered sets.
func (s *Service) Current(ctx context.Context, identity *auth.Identity) (_ *DetailedWorkout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.current")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	workout, err := s.repo.CurrentForUser(ctx, identity.User.ID)
	if err != nil {
		return nil, err
	}

	occurrences, err := s.repo.OccurrencesForWorkout(ctx, workout.ID)
	if err != nil {
		return nil, fmt.Errorf("get occurrences: %w", err)
	}

	detailed := &DetailedWorkout{
		ID:        workout.ID,
		Status:    workout.Status,
		CreatedAt: workout.CreatedAt,
		UpdatedAt: workout.UpdatedAt,
		Exercises: []DetailedExercise{},
	}

	for _, occurrence := range occurrences {
		exercise, err := s.exercises.Get(ctx, occurrence.ExerciseID)
		if err != nil {
			return nil, fmt.Errorf("get exercise %s: %w", occurrence.ExerciseID, err)
		}
		sets, err := s.repo.SetsForOccurrence(ctx, occurrence.ID)
		if err != nil {
			return nil, fmt.Errorf("get sets for occurrence %s: %w", occurrence.ID, err)
		}
		detailed.Exercises = append(detailed.Exercises, DetailedExercise{
			ID:                exercise.ID,
			Name:              exercise.Name,
			Type:              exercise.Type,
			ExerciseWorkoutID: occurrence.ID,
			CreatedAt:         exercise.CreatedAt,
			UpdatedAt:         exercise.UpdatedAt,
			Sets:              sets,
		})
	}

	return detailed, nil
}

// FinishCurrent moves the user's ongoing workout to done. Without an
// ongoing workout it fails with ErrNoOngoingWorkout; a done workout can
// never be finished again.
func (s *Service) FinishCurrent(ctx context.Context, identity *auth.Identity) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.finish")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	workout, err := s.repo.CurrentForUser(ctx, identity.User.ID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.FinishWorkout(ctx, workout.ID); err != nil {
		return nil, err
	}

	workout.Status = StatusDone
	return workout, nil
}

func (s *Service) ListDone(ctx context.Context, identity *auth.Identity) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.listDone")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return s.repo.ListDoneForUser(ctx, identity.User.ID)
}

// Delete removes a workout and everything nested under it, after the
// ownership guard.
func (s *Service) Delete(ctx context.Context, identity *auth.Identity, workoutID string) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	workout, err := s.repo.GetWorkout(ctx, workoutID)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(identity, workout.UserID); err != nil {
		return nil, err
	}

	if err := s.repo.DeleteWorkout(ctx, workoutID); err != nil {
		return nil, err
	}
	return workout, nil
}

// AddExercise adds an occurrence of the exercise to the user's ongoing
// workout. The exercise must belong to the user, and the workout's status
// is re-checked even though the current-workout lookup already filters on
// it.
func (s *Service) AddExercise(ctx context.Context, identity *auth.Identity, exerciseID string) (_ *ExerciseWorkout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.addExercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	exercise, err := s.exercises.Get(ctx, exerciseID)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(identity, exercise.UserID); err != nil {
		return nil, err
	}

	workout, err := s.repo.CurrentForUser(ctx, identity.User.ID)
	if err != nil {
		return nil, err
	}
	if workout.Status != StatusOngoing {
		return nil, ErrWorkoutNotOngoing
	}

	return s.repo.AddOccurrence(ctx, identity.User.ID, exercise.ID, workout.ID)
}

// RemoveExercise deletes an occurrence and, through the store's cascade,
// its sets.
func (s *Service) RemoveExercise(ctx context.Context, identity *auth.Identity, occurrenceID string) (_ *ExerciseWorkout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.removeExercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	occurrence, err := s.repo.GetOccurrence(ctx, occurrenceID)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(identity, occurrence.UserID); err != nil {
		return nil, err
	}

	if err := s.repo.DeleteOccurrence(ctx, occurrenceID); err != nil {
		return nil, err
	}
	return occurrence, nil
}

// AddSet appends a set to an occurrence. The occurrence must belong to the
// acting user and its workout must still be ongoing.
func (s *Service) AddSet(ctx context.Context, identity *auth.Identity, occurrenceID string, quality, quantity float64, setType SetType, note *string) (_ *Set, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.addSet")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := setType.Valid(); err != nil {
		return nil, err
	}

	occurrence, err := s.repo.GetOccurrence(ctx, occurrenceID)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(identity, occurrence.UserID); err != nil {
		return nil, err
	}

	workout, err := s.repo.GetWorkout(ctx, occurrence.WorkoutID)
	if err != nil {
		return nil, err
	}
	if workout.Status != StatusOngoing {
		return nil, ErrWorkoutNotOngoing
	}

	return s.repo.AddSet(ctx, Set{
		UserID:            identity.User.ID,
		ExerciseWorkoutID: occurrence.ID,
		Quality:           quality,
		Quantity:          quantity,
		Note:              note,
		Type:              setType,
	})
}

// UpdateSet rewrites a set's measurements. Unlike AddSet this is allowed
// on finished workouts, so typos can be fixed after the fact.
func (s *Service) UpdateSet(ctx context.Context, identity *auth.Identity, setID string, quality, quantity float64, setType SetType, note *string) (_ *Set, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.updateSet")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := setType.Valid(); err != nil {
		return nil, err
	}

	set, err := s.repo.GetSet(ctx, setID)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(identity, set.UserID); err != nil {
		return nil, err
	}

	set.Quality = quality
	set.Quantity = quantity
	set.Type = setType
	set.Note = note

	if err := s.repo.UpdateSet(ctx, set); err != nil {
		return nil, err
	}
	return set, nil
}

// ExerciseHistory walks every past workout in which the exercise was
// used, newest last, grouping sets per occurrence.
func (s *Service) ExerciseHistory(ctx context.Context, identity *auth.Identity, exerciseID string) (_ []ExerciseHistoryEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workouts.exerciseHistory")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	// verifying the exercise first means an unknown or foreign id fails
	// loudly instead of yielding an empty history
	exercise, err := s.exercises.Get(ctx, exerciseID)
	if err != nil {
		return nil, err
	}
	if err := auth.Authorize(identity, exercise.UserID); err != nil {
		return nil, err
	}

	workouts, err := s.repo.WorkoutsWhereExerciseUsed(ctx, exercise.ID)
	if err != nil {
		return nil, fmt.Errorf("get workouts for exercise: %w", err)
	}

	history := []ExerciseHistoryEntry{}
	for _, workout := range workouts {
		occurrences, err := s.repo.OccurrencesForExerciseAndWorkout(ctx, exercise.ID, workout.ID)
		if err != nil {
			return nil, fmt.Errorf("get occurrences: %w", err)
		}

		groups := []ExerciseHistoryGroup{}
		for _, occurrence := range occurrences {
			sets, err := s.repo.SetsForOccurrence(ctx, occurrence.ID)
			if err != nil {
				return nil, fmt.Errorf("get sets for occurrence %s: %w", occurrence.ID, err)
			}
			groups = append(groups, ExerciseHistoryGroup{
				StartDate: occurrence.CreatedAt,
				Sets:      sets,
			})
		}

		history = append(history, ExerciseHistoryEntry{
			WorkoutID:   workout.ID,
			WorkoutDate: workout.CreatedAt,
			Type:        exercise.Type,
			Groups:      groups,
		})
	}

	return history, nil
}
