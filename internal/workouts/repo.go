package workouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mkanilsson/workout-backend/internal/telemetry/tracing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrWorkoutNotFound    = errors.New("workout not found")
	ErrNoOngoingWorkout   = errors.New("no ongoing workout")
	ErrWorkoutNotOngoing  = errors.New("workout not ongoing")
	ErrOccurrenceNotFound = errors.New("exercise occurrence not found")
	ErrSetNotFound        = errors.New("set not found")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) AddWorkout(ctx context.Context, userID string) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	workout := &Workout{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    StatusOngoing,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO workout (id, user_id, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5);`,
		workout.ID, workout.UserID, workout.Status, workout.CreatedAt, workout.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert workout: %w", err)
	}

	span.SetAttributes(attribute.String("workout.id", workout.ID))
	return workout, nil
}

func (r *Repo) GetWorkout(ctx context.Context, id string) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout.id", id))

	var w Workout
	err = r.db.
		QueryRow(ctx, `
			SELECT id, user_id, status, created_at, updated_at
			FROM workout
			WHERE id = $1
		`, id).
		Scan(&w.ID, &w.UserID, &w.Status, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrWorkoutNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query workout: %w", err)
	}
	return &w, nil
}

// CurrentForUser returns the user's single ongoing workout, if any. The
// partial unique index on (user_id) WHERE status = 'ongoing' guarantees at
// most one row.
func (r *Repo) CurrentForUser(ctx context.Context, userID string) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.current")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var w Workout
	err = r.db.
		QueryRow(ctx, `
			SELECT id, user_id, status, created_at, updated_at
			FROM workout
			WHERE user_id = $1 AND status = 'ongoing'
		`, userID).
		Scan(&w.ID, &w.UserID, &w.Status, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoOngoingWorkout
	}
	if err != nil {
		return nil, fmt.Errorf("query current workout: %w", err)
	}
	return &w, nil
}

func (r *Repo) ListDoneForUser(ctx context.Context, userID string) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.listDone")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, status, created_at, updated_at
		FROM workout
		WHERE user_id = $1 AND status = 'done'
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanWorkouts(rows)
}

// FinishWorkout marks an ongoing workout as done. The status guard in the
// WHERE clause makes the transition atomic: finishing a workout that is
// already done, or gone, fails with ErrWorkoutNotOngoing.
func (r *Repo) FinishWorkout(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.finish")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout.id", id))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE workout SET status = 'done', updated_at = $1 WHERE id = $2 AND status = 'ongoing';`,
		time.Now(), id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkoutNotOngoing
	}
	return nil
}

// DeleteWorkout removes the workout; occurrences and their sets go with it
// via cascades.
func (r *Repo) DeleteWorkout(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("workout.id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM workout WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkoutNotFound
	}
	return nil
}

func (r *Repo) WorkoutsWhereExerciseUsed(ctx context.Context, exerciseID string) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.whereExerciseUsed")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, status, created_at, updated_at
		FROM workout
		WHERE id IN (SELECT workout_id FROM exercise_workout WHERE exercise_id = $1)
		ORDER BY created_at ASC
	`, exerciseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanWorkouts(rows)
}

func (r *Repo) AddOccurrence(ctx context.Context, userID, exerciseID, workoutID string) (_ *ExerciseWorkout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.addOccurrence")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	occurrence := &ExerciseWorkout{
		ID:         uuid.NewString(),
		UserID:     userID,
		ExerciseID: exerciseID,
		WorkoutID:  workoutID,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO exercise_workout (id, user_id, exercise_id, workout_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6);`,
		occurrence.ID, occurrence.UserID, occurrence.ExerciseID, occurrence.WorkoutID,
		occurrence.CreatedAt, occurrence.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert exercise occurrence: %w", err)
	}

	span.SetAttributes(attribute.String("exerciseWorkout.id", occurrence.ID))
	return occurrence, nil
}

func (r *Repo) GetOccurrence(ctx context.Context, id string) (_ *ExerciseWorkout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.getOccurrence")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exerciseWorkout.id", id))

	var ew ExerciseWorkout
	err = r.db.
		QueryRow(ctx, `
			SELECT id, user_id, exercise_id, workout_id, created_at, updated_at
			FROM exercise_workout
			WHERE id = $1
		`, id).
		Scan(&ew.ID, &ew.UserID, &ew.ExerciseID, &ew.WorkoutID, &ew.CreatedAt, &ew.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOccurrenceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query exercise occurrence: %w", err)
	}
	return &ew, nil
}

func (r *Repo) DeleteOccurrence(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.deleteOccurrence")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exerciseWorkout.id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM exercise_workout WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOccurrenceNotFound
	}
	return nil
}

func (r *Repo) OccurrencesForWorkout(ctx context.Context, workoutID string) (_ []ExerciseWorkout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.occurrencesForWorkout")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return r.occurrences(ctx, `
		SELECT id, user_id, exercise_id, workout_id, created_at, updated_at
		FROM exercise_workout
		WHERE workout_id = $1
		ORDER BY created_at ASC
	`, workoutID)
}

func (r *Repo) OccurrencesForExerciseAndWorkout(ctx context.Context, exerciseID, workoutID string) (_ []ExerciseWorkout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.occurrencesForExercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return r.occurrences(ctx, `
		SELECT id, user_id, exercise_id, workout_id, created_at, updated_at
		FROM exercise_workout
		WHERE exercise_id = $1 AND workout_id = $2
		ORDER BY created_at ASC
	`, exerciseID, workoutID)
}

func (r *Repo) AddSet(ctx context.Context, set Set) (_ *Set, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.addSet")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	set.ID = uuid.NewString()
	set.CreatedAt = time.Now()
	set.UpdatedAt = set.CreatedAt

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO sets (id, user_id, exercise_workout_id, quality, quantity, note, set_type, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);`,
		set.ID, set.UserID, set.ExerciseWorkoutID, set.Quality, set.Quantity, set.Note, set.Type,
		set.CreatedAt, set.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert set: %w", err)
	}

	span.SetAttributes(attribute.String("set.id", set.ID))
	return &set, nil
}

func (r *Repo) GetSet(ctx context.Context, id string) (_ *Set, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.getSet")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("set.id", id))

	var s Set
	err = r.db.
		QueryRow(ctx, `
			SELECT id, user_id, exercise_workout_id, quality, quantity, note, set_type, created_at, updated_at
			FROM sets
			WHERE id = $1
		`, id).
		Scan(&s.ID, &s.UserID, &s.ExerciseWorkoutID, &s.Quality, &s.Quantity, &s.Note, &s.Type, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query set: %w", err)
	}
	return &s, nil
}

func (r *Repo) UpdateSet(ctx context.Context, set *Set) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.updateSet")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("set.id", set.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE sets SET quality = $1, quantity = $2, note = $3, set_type = $4, updated_at = $5 WHERE id = $6;`,
		set.Quality, set.Quantity, set.Note, set.Type, time.Now(), set.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSetNotFound
	}
	return nil
}

// SetsForOccurrence lists a group's sets in presentation order: warmup
// sets first, then by creation time. The ordering rides on the set_type
// enum, whose values are declared warmup before normal.
func (r *Repo) SetsForOccurrence(ctx context.Context, occurrenceID string) (_ []Set, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.setsForOccurrence")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, exercise_workout_id, quality, quantity, note, set_type, created_at, updated_at
		FROM sets
		WHERE exercise_workout_id = $1
		ORDER BY set_type ASC, created_at ASC
	`, occurrenceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sets := []Set{}
	for rows.Next() {
		var s Set
		if err := rows.Scan(&s.ID, &s.UserID, &s.ExerciseWorkoutID, &s.Quality, &s.Quantity, &s.Note, &s.Type, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		sets = append(sets, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sets, nil
}

func (r *Repo) occurrences(ctx context.Context, query string, args ...any) ([]ExerciseWorkout, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var occurrences []ExerciseWorkout
	for rows.Next() {
		var ew ExerciseWorkout
		if err := rows.Scan(&ew.ID, &ew.UserID, &ew.ExerciseID, &ew.WorkoutID, &ew.CreatedAt, &ew.UpdatedAt); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		occurrences = append(occurrences, ew)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return occurrences, nil
}

func scanWorkouts(rows pgx.Rows) ([]Workout, error) {
	var workouts []Workout
	for rows.Next() {
		var w Workout
		if err := rows.Scan(&w.ID, &w.UserID, &w.Status, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		workouts = append(workouts, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return workouts, nil
}
