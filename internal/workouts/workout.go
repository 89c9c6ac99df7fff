package workouts

import (
	"fmt"
	"time"

	"github.com/mkanilsson/workout-backend/internal/exercises"
)

// Status is the workout lifecycle state. A workout starts Ongoing and can
// only move to Done; there is no way back.
type Status string

const (
	StatusOngoing Status = "ongoing"
	StatusDone    Status = "done"
)

func (s Status) Valid() error {
	switch s {
	case StatusOngoing, StatusDone:
		return nil
	}
	return fmt.Errorf("unknown workout status: %q", s)
}

// SetType splits sets into warmup and working sets. Warmup sets sort
// before normal ones when a group is listed, regardless of insertion
// order.
type SetType string

const (
	SetWarmup SetType = "warmup"
	SetNormal SetType = "normal"
)

func (t SetType) Valid() error {
	switch t {
	case SetWarmup, SetNormal:
		return nil
	}
	return fmt.Errorf("unknown set type: %q", t)
}

// sortRank mirrors the order of the set_type enum in the database.
func (t SetType) sortRank() int {
	if t == SetWarmup {
		return 0
	}
	return 1
}

// Workout is one training session of a user. At most one workout per user
// is Ongoing at any time.
type Workout struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ExerciseWorkout is one occurrence of an exercise within a workout. The
// same exercise can occur several times in a session; each occurrence
// groups its own sets, keyed by creation time.
type ExerciseWorkout struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	ExerciseID string    `json:"exerciseId"`
	WorkoutID  string    `json:"workoutId"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Set is a single performed set. Quality and quantity are interpreted by
// the client according to the exercise type (weight/reps, pace/distance,
// hold time).
type Set struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	ExerciseWorkoutID string    `json:"exerciseWorkoutId"`
	Quality           float64   `json:"quality"`
	Quantity          float64   `json:"quantity"`
	Note              *string   `json:"note"`
	Type              SetType   `json:"setType"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// DetailedWorkout is the assembled view of a workout: every occurrence
// with its exercise info and sets, ready for the client to render.
type DetailedWorkout struct {
	ID        string    `json:"id"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Exercises []DetailedExercise `json:"exercises"`
}

type DetailedExercise struct {
	ID                string                 `json:"id"`
	Name              string                 `json:"name"`
	Type              exercises.ExerciseType `json:"exerciseType"`
	ExerciseWorkoutID string                 `json:"exerciseWorkoutId"`
	CreatedAt         time.Time              `json:"createdAt"`
	UpdatedAt         time.Time              `json:"updatedAt"`

	Sets []Set `json:"sets"`
}

// ExerciseHistoryEntry is one past workout in which an exercise was used,
// with each occurrence's sets grouped by when the occurrence started.
type ExerciseHistoryEntry struct {
	WorkoutID   string                 `json:"workoutId"`
	WorkoutDate time.Time              `json:"workoutDate"`
	Type        exercises.ExerciseType `json:"exerciseType"`
	Groups      []ExerciseHistoryGroup `json:"groups"`
}

type ExerciseHistoryGroup struct {
	StartDate time.Time `json:"startDate"`
	Sets      []Set     `json:"sets"`
}
