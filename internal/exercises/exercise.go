package exercises

import (
	"fmt"
	"time"
)

// ExerciseType tells clients how to interpret the quality/quantity pair of
// a set: static holds (plank), distance over time (running), or weight
// over repetitions (bench press).
type ExerciseType string

const (
	TypeStatic           ExerciseType = "static"
	TypeDistanceOverTime ExerciseType = "distance_over_time"
	TypeWeightOverAmount ExerciseType = "weight_over_amount"
)

func (t ExerciseType) Valid() error {
	switch t {
	case TypeStatic, TypeDistanceOverTime, TypeWeightOverAmount:
		return nil
	}
	return fmt.Errorf("unknown exercise type: %q", t)
}

// Exercise is a reusable movement owned by a single user, independent of
// any workout it appears in.
type Exercise struct {
	ID        string       `json:"id"`
	UserID    string       `json:"userId"`
	Name      string       `json:"name"`
	Type      ExerciseType `json:"exerciseType"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`

	// Targets are filled in on reads, never stored on the exercise row.
	Targets []Target `json:"targets"`
}

// Target is a muscle group. The list is global and read-only; sort drives
// the display order.
type Target struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Sort int    `json:"sort"`
}
