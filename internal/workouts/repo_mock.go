package workouts

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

type repoMock struct {
	workouts    map[string]*Workout
	occurrences map[string]*ExerciseWorkout
	sets        map[string]*Set

	// lets tests make creation times distinguishable without sleeping
	clock time.Time
}

func NewMockWorkoutsRepo() *repoMock {
	return &repoMock{
		workouts:    make(map[string]*Workout),
		occurrences: make(map[string]*ExerciseWorkout),
		sets:        make(map[string]*Set),
		clock:       time.Now(),
	}
}

func (r *repoMock) tick() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *repoMock) AddWorkout(_ context.Context, userID string) (*Workout, error) {
	now := r.tick()
	workout := &Workout{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    StatusOngoing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.workouts[workout.ID] = workout
	return workout, nil
}

func (r *repoMock) GetWorkout(_ context.Context, id string) (*Workout, error) {
	workout, ok := r.workouts[id]
	if !ok {
		return nil, ErrWorkoutNotFound
	}
	return workout, nil
}

func (r *repoMock) CurrentForUser(_ context.Context, userID string) (*Workout, error) {
	for _, w := range r.workouts {
		if w.UserID == userID && w.Status == StatusOngoing {
			return w, nil
		}
	}
	return nil, ErrNoOngoingWorkout
}

func (r *repoMock) ListDoneForUser(_ context.Context, userID string) ([]Workout, error) {
	var workouts []Workout
	for _, w := range r.workouts {
		if w.UserID == userID && w.Status == StatusDone {
			workouts = append(workouts, *w)
		}
	}
	sort.Slice(workouts, func(i, j int) bool {
		return workouts[i].CreatedAt.Before(workouts[j].CreatedAt)
	})
	return workouts, nil
}

func (r *repoMock) FinishWorkout(_ context.Context, id string) error {
	workout, ok := r.workouts[id]
	if !ok || workout.Status != StatusOngoing {
		return ErrWorkoutNotOngoing
	}
	workout.Status = StatusDone
	workout.UpdatedAt = r.tick()
	return nil
}

func (r *repoMock) DeleteWorkout(_ context.Context, id string) error {
	if _, ok := r.workouts[id]; !ok {
		return ErrWorkoutNotFound
	}
	delete(r.workouts, id)
	for occurrenceID, occurrence := range r.occurrences {
		if occurrence.WorkoutID != id {
			continue
		}
		delete(r.occurrences, occurrenceID)
		r.deleteSetsFor(occurrenceID)
	}
	return nil
}

func (r *repoMock) WorkoutsWhereExerciseUsed(_ context.Context, exerciseID string) ([]Workout, error) {
	seen := make(map[string]bool)
	var workouts []Workout
	for _, occurrence := range r.occurrences {
		if occurrence.ExerciseID != exerciseID || seen[occurrence.WorkoutID] {
			continue
		}
		seen[occurrence.WorkoutID] = true
		if w, ok := r.workouts[occurrence.WorkoutID]; ok {
			workouts = append(workouts, *w)
		}
	}
	sort.Slice(workouts, func(i, j int) bool {
		return workouts[i].CreatedAt.Before(workouts[j].CreatedAt)
	})
	return workouts, nil
}

func (r *repoMock) AddOccurrence(_ context.Context, userID, exerciseID, workoutID string) (*ExerciseWorkout, error) {
	now := r.tick()
	occurrence := &ExerciseWorkout{
		ID:         uuid.NewString(),
		UserID:     userID,
		ExerciseID: exerciseID,
		WorkoutID:  workoutID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.occurrences[occurrence.ID] = occurrence
	return occurrence, nil
}

func (r *repoMock) GetOccurrence(_ context.Context, id string) (*ExerciseWorkout, error) {
	occurrence, ok := r.occurrences[id]
	if !ok {
		return nil, ErrOccurrenceNotFound
	}
	return occurrence, nil
}

func (r *repoMock) DeleteOccurrence(_ context.Context, id string) error {
	if _, ok := r.occurrences[id]; !ok {
		return ErrOccurrenceNotFound
	}
	delete(r.occurrences, id)
	r.deleteSetsFor(id)
	return nil
}

func (r *repoMock) OccurrencesForWorkout(_ context.Context, workoutID string) ([]ExerciseWorkout, error) {
	var occurrences []ExerciseWorkout
	for _, occurrence := range r.occurrences {
		if occurrence.WorkoutID == workoutID {
			occurrences = append(occurrences, *occurrence)
		}
	}
	sortOccurrences(occurrences)
	return occurrences, nil
}

func (r *repoMock) OccurrencesForExerciseAndWorkout(_ context.Context, exerciseID, workoutID string) ([]ExerciseWorkout, error) {
	var occurrences []ExerciseWorkout
	for _, occurrence := range r.occurrences {
		if occurrence.ExerciseID == exerciseID && occurrence.WorkoutID == workoutID {
			occurrences = append(occurrences, *occurrence)
		}
	}
	sortOccurrences(occurrences)
	return occurrences, nil
}

func (r *repoMock) AddSet(_ context.Context, set Set) (*Set, error) {
	set.ID = uuid.NewString()
	set.CreatedAt = r.tick()
	set.UpdatedAt = set.CreatedAt
	r.sets[set.ID] = &set
	return &set, nil
}

func (r *repoMock) GetSet(_ context.Context, id string) (*Set, error) {
	set, ok := r.sets[id]
	if !ok {
		return nil, ErrSetNotFound
	}
	return set, nil
}

func (r *repoMock) UpdateSet(_ context.Context, set *Set) error {
	stored, ok := r.sets[set.ID]
	if !ok {
		return ErrSetNotFound
	}
	stored.Quality = set.Quality
	stored.Quantity = set.Quantity
	stored.Note = set.Note
	stored.Type = set.Type
	stored.UpdatedAt = r.tick()
	return nil
}

func (r *repoMock) SetsForOccurrence(_ context.Context, occurrenceID string) ([]Set, error) {
	sets := []Set{}
	for _, set := range r.sets {
		if set.ExerciseWorkoutID == occurrenceID {
			sets = append(sets, *set)
		}
	}
	sort.Slice(sets, func(i, j int) bool {
		if sets[i].Type.sortRank() != sets[j].Type.sortRank() {
			return sets[i].Type.sortRank() < sets[j].Type.sortRank()
		}
		return sets[i].CreatedAt.Before(sets[j].CreatedAt)
	})
	return sets, nil
}

func (r *repoMock) deleteSetsFor(occurrenceID string) {
	for setID, set := range r.sets {
		if set.ExerciseWorkoutID == occurrenceID {
			delete(r.sets, setID)
		}
	}
}

func sortOccurrences(occurrences []ExerciseWorkout) {
	sort.Slice(occurrences, func(i, j int) bool {
		return occurrences[i].CreatedAt.Before(occurrences[j].CreatedAt)
	})
}
