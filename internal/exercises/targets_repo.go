package exercises

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkanilsson/workout-backend/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TargetsRepo struct {
	db *pgxpool.Pool
}

func NewTargetsRepo(db *pgxpool.Pool) *TargetsRepo {
	return &TargetsRepo{
		db: db,
	}
}

// All returns every muscle group, in display order. The table is seeded
// once and never written by the API.
func (r *TargetsRepo) All(ctx context.Context) (_ []Target, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.targets.all")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, `SELECT id, name, sort FROM targets ORDER BY sort ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var targets []Target
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

func (r *TargetsRepo) Get(ctx context.Context, id string) (_ *Target, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.targets.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var t Target
	err = r.db.
		QueryRow(ctx, `SELECT id, name, sort FROM targets WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.Sort)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrTargetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query target: %w", err)
	}
	return &t, nil
}
