package users

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type repoMock struct {
	users map[string]*User
}

func NewMockUsersRepo() *repoMock {
	return &repoMock{
		users: make(map[string]*User),
	}
}

func (r *repoMock) Add(_ context.Context, email, passwordHash string) (*User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return nil, ErrEmailAlreadyInUse
		}
	}
	now := time.Now()
	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.users[user.ID] = user
	return user, nil
}

func (r *repoMock) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *repoMock) Get(_ context.Context, id string) (*User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}
