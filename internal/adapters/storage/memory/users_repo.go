package memory

import (
	"context"
	"errors"
	"strings"

	"pharmabot/internal/domain/users"
)

type userRepo struct {
	s *Store
}

func NewUserRepo(s *Store) users.Repository {
	return &userRepo{s: s}
}

func (r *userRepo) Create(ctx context.Context, u users.User) error {
	defer r.s.lock(ctx)()

	if strings.TrimSpace(u.ID) == "" {
		return errors.New("user id required")
	}
	if _, exists := r.s.usernames[u.Username]; exists {
		return users.ErrUsernameTaken
	}
	if _, exists := r.s.users[u.ID]; exists {
		return errors.New("user already exists")
	}
	r.s.users[u.ID] = u
	r.s.usernames[u.Username] = u.ID
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (users.User, error) {
	defer r.s.rlock(ctx)()

	u, ok := r.s.users[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return u, nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (users.User, error) {
	defer r.s.rlock(ctx)()

	id, ok := r.s.usernames[username]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return r.s.users[id], nil
}
