package auth

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

var ErrSessionNotFound = errors.New("session not found")

type SessionsRepo struct {
	db *pgxpool.Pool
}

func NewSessionsRepo(db *pgxpool.Pool) *SessionsRepo {
	return &SessionsRepo{
		db: db,
	}
}

func (r *SessionsRepo) Add(ctx context.Context, userID, value string) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	session := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Value:     value,
		CreatedAt: time.Now(),
	}

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO sessions (id, user_id, value, created_at) VALUES ($1, $2, $3, $4);`,
		session.ID, session.UserID, session.Value, session.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	return session, nil
}

func (r *SessionsRepo) GetByValue(ctx context.Context, value string) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.getByValue")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var s Session
	err = r.db.QueryRow(
		ctx,
		`SELECT id, user_id, value, created_at FROM sessions WHERE value = $1;`,
		value,
	).Scan(&s.ID, &s.UserID, &s.Value, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	return &s, nil
}

func (r *SessionsRepo) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("session.id", id))

	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// DeleteForUser removes a single session, but only if it belongs to the
// given user. A session owned by someone else comes back as not found, the
// same as a session that does not exist.
func (r *SessionsRepo) DeleteForUser(ctx context.Context, userID, sessionID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.deleteForUser")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("session.id", sessionID))

	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1 AND user_id = $2;`, sessionID, userID)
	if err != nil {
		return fmt.Errorf("delete session for user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (r *SessionsRepo) DeleteAllForUser(ctx context.Context, userID string) (_ int64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.deleteAllForUser")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1;`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete sessions for user: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteExpired removes all sessions created before the given cutoff, used
// by the expiry sweeper.
func (r *SessionsRepo) DeleteExpired(ctx context.Context, olderThan time.Time) (_ int64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.deleteExpired")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE created_at < $1;`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *SessionsRepo) ListForUser(ctx context.Context, userID string) (_ []Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.sessions.listForUser")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user.id", userID))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, value, created_at FROM sessions WHERE user_id = $1 ORDER BY created_at ASC;`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]Session, 0)
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.UserID, &s.Value, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return sessions, nil
}
