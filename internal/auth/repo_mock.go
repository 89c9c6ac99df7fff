package auth

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

type sessionsRepoMock struct {
	sessions map[string]*Session
}

func NewMockSessionsRepo() *sessionsRepoMock {
	return &sessionsRepoMock{
		sessions: make(map[string]*Session),
	}
}

func (r *sessionsRepoMock) Add(_ context.Context, userID, value string) (*Session, error) {
	session := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Value:     value,
		CreatedAt: time.Now(),
	}
	r.sessions[session.ID] = session
	return session, nil
}

func (r *sessionsRepoMock) GetByValue(_ context.Context, value string) (*Session, error) {
	for _, s := range r.sessions {
		if s.Value == value {
			return s, nil
		}
	}
	return nil, ErrSessionNotFound
}

func (r *sessionsRepoMock) Delete(_ context.Context, id string) error {
	if _, ok := r.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *sessionsRepoMock) DeleteForUser(_ context.Context, userID, sessionID string) error {
	s, ok := r.sessions[sessionID]
	if !ok || s.UserID != userID {
		return ErrSessionNotFound
	}
	delete(r.sessions, sessionID)
	return nil
}

func (r *sessionsRepoMock) DeleteAllForUser(_ context.Context, userID string) (int64, error) {
	var removed int64
	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (r *sessionsRepoMock) DeleteExpired(_ context.Context, olderThan time.Time) (int64, error) {
	var removed int64
	for id, s := range r.sessions {
		if s.CreatedAt.Before(olderThan) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (r *sessionsRepoMock) ListForUser(_ context.Context, userID string) ([]Session, error) {
	var sessions []Session
	for _, s := range r.sessions {
		if s.UserID == userID {
			sessions = append(sessions, *s)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions, nil
}
