package exercises

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

type repoMock struct {
	exercises map[string]*Exercise
	targets   map[string]Target
	links     map[string][]string // exercise id -> target ids
}

func NewMockExercisesRepo() *repoMock {
	return &repoMock{
		exercises: make(map[string]*Exercise),
		targets:   make(map[string]Target),
		links:     make(map[string][]string),
	}
}

// AddTarget seeds a muscle group into the mock, standing in for the seeded
// targets table.
func (r *repoMock) AddTarget(target Target) {
	r.targets[target.ID] = target
}

func (r *repoMock) Add(_ context.Context, userID, name string, exerciseType ExerciseType, targetIDs []string) (*Exercise, error) {
	for _, targetID := range targetIDs {
		if _, ok := r.targets[targetID]; !ok {
			return nil, ErrTargetNotFound
		}
	}
	now := time.Now()
	exercise := &Exercise{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Type:      exerciseType,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.exercises[exercise.ID] = exercise
	r.links[exercise.ID] = targetIDs
	exercise.Targets = r.targetsFor(exercise.ID)
	return exercise, nil
}

func (r *repoMock) Get(_ context.Context, id string) (*Exercise, error) {
	exercise, ok := r.exercises[id]
	if !ok {
		return nil, ErrExerciseNotFound
	}
	exercise.Targets = r.targetsFor(id)
	return exercise, nil
}

func (r *repoMock) ListForUser(_ context.Context, userID string) ([]Exercise, error) {
	var exercises []Exercise
	for _, e := range r.exercises {
		if e.UserID == userID {
			e.Targets = r.targetsFor(e.ID)
			exercises = append(exercises, *e)
		}
	}
	sort.Slice(exercises, func(i, j int) bool {
		return exercises[i].CreatedAt.Before(exercises[j].CreatedAt)
	})
	return exercises, nil
}

func (r *repoMock) Update(ctx context.Context, exercise *Exercise, targetIDs []string) error {
	stored, ok := r.exercises[exercise.ID]
	if !ok {
		return ErrExerciseNotFound
	}
	for _, targetID := range targetIDs {
		if _, ok := r.targets[targetID]; !ok {
			return ErrTargetNotFound
		}
	}
	stored.Name = exercise.Name
	stored.Type = exercise.Type
	stored.UpdatedAt = time.Now()
	r.links[exercise.ID] = targetIDs
	exercise.Targets = r.targetsFor(exercise.ID)
	return nil
}

func (r *repoMock) Delete(_ context.Context, id string) error {
	if _, ok := r.exercises[id]; !ok {
		return ErrExerciseNotFound
	}
	delete(r.exercises, id)
	delete(r.links, id)
	return nil
}

func (r *repoMock) All(_ context.Context) ([]Target, error) {
	targets := make([]Target, 0, len(r.targets))
	for _, t := range r.targets {
		targets = append(targets, t)
	}
	sort.Slice(targets, func(i, j int) bool {
		return targets[i].Sort < targets[j].Sort
	})
	return targets, nil
}

func (r *repoMock) targetsFor(exerciseID string) []Target {
	targets := []Target{}
	for _, targetID := range r.links[exerciseID] {
		if t, ok := r.targets[targetID]; ok {
			targets = append(targets, t)
		}
	}
	sort.Slice(targets, func(i, j int) bool {
		return targets[i].Sort < targets[j].Sort
	})
	return targets
}
