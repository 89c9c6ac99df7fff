package exercises

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mkanilsson/workout-backend/internal/telemetry/tracing"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrExerciseNotFound = errors.New("exercise not found")
	ErrTargetNotFound   = errors.New("target not found")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Add inserts the exercise and its target links in one transaction. An
// unknown target id fails the whole insert with ErrTargetNotFound.
func (r *Repo) Add(ctx context.Context, userID, name string, exerciseType ExerciseType, targetIDs []string) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	exercise := &Exercise{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Type:      exerciseType,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Targets:   []Target{},
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	_, err = tx.Exec(
		ctx,
		`INSERT INTO exercises (id, user_id, name, exercise_type, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6);`,
		exercise.ID, exercise.UserID, exercise.Name, exercise.Type, exercise.CreatedAt, exercise.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert exercise: %w", err)
	}

	if err = r.linkTargets(ctx, tx, exercise.ID, targetIDs); err != nil {
		return nil, err
	}

	if exercise.Targets, err = targetsForExercise(ctx, tx, exercise.ID); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("exercise.id", exercise.ID))
	return exercise, nil
}

func (r *Repo) Get(ctx context.Context, id string) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise.id", id))

	var e Exercise
	err = r.db.
		QueryRow(ctx, `
			SELECT id, user_id, name, exercise_type, created_at, updated_at
			FROM exercises
			WHERE id = $1
		`, id).
		Scan(&e.ID, &e.UserID, &e.Name, &e.Type, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrExerciseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query exercise: %w", err)
	}

	if e.Targets, err = targetsForExercise(ctx, r.db, e.ID); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *Repo) ListForUser(ctx context.Context, userID string) (_ []Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.listForUser")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, name, exercise_type, created_at, updated_at
		FROM exercises
		WHERE user_id = $1
		ORDER BY created_at ASC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exercises []Exercise
	for rows.Next() {
		var e Exercise
		if err := rows.Scan(&e.ID, &e.UserID, &e.Name, &e.Type, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		exercises = append(exercises, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range exercises {
		if exercises[i].Targets, err = targetsForExercise(ctx, r.db, exercises[i].ID); err != nil {
			return nil, err
		}
	}

	return exercises, nil
}

// Update rewrites name and type, and replaces the target links with the
// given set.
func (r *Repo) Update(ctx context.Context, exercise *Exercise, targetIDs []string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise.id", exercise.ID))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	tag, err := tx.Exec(
		ctx,
		`UPDATE exercises SET name = $1, exercise_type = $2, updated_at = $3 WHERE id = $4;`,
		exercise.Name, exercise.Type, time.Now(), exercise.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExerciseNotFound
	}

	if _, err = tx.Exec(ctx, `DELETE FROM exercise_target WHERE exercise_id = $1;`, exercise.ID); err != nil {
		return fmt.Errorf("unlink targets: %w", err)
	}
	if err = r.linkTargets(ctx, tx, exercise.ID, targetIDs); err != nil {
		return err
	}

	if exercise.Targets, err = targetsForExercise(ctx, tx, exercise.ID); err != nil {
		return err
	}
	return nil
}

// Delete removes the exercise; target links and workout occurrences go
// with it via the foreign key cascades.
func (r *Repo) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise.id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM exercises WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExerciseNotFound
	}
	return nil
}

func (r *Repo) linkTargets(ctx context.Context, tx pgx.Tx, exerciseID string, targetIDs []string) error {
	for _, targetID := range targetIDs {
		_, err := tx.Exec(
			ctx,
			`INSERT INTO exercise_target (id, exercise_id, target_id) VALUES ($1, $2, $3);`,
			uuid.NewString(), exerciseID, targetID,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
				return fmt.Errorf("%w: %s", ErrTargetNotFound, targetID)
			}
			return fmt.Errorf("link target %s: %w", targetID, err)
		}
	}
	return nil
}

// querier lets targetsForExercise run both on the pool and inside a
// transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func targetsForExercise(ctx context.Context, q querier, exerciseID string) ([]Target, error) {
	rows, err := q.Query(ctx, `
		SELECT id, name, sort
		FROM targets
		WHERE id IN (SELECT target_id FROM exercise_target WHERE exercise_id = $1)
		ORDER BY sort ASC
	`, exerciseID)
	if err != nil {
		return nil, fmt.Errorf("query exercise targets: %w", err)
	}
	defer rows.Close()

	targets := []Target{}
	for rows.Next() {
		var t Target
		if err := rows.Scan(&t.ID, &t.Name, &t.Sort); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return targets, nil
}
