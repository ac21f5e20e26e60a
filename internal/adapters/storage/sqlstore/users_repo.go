package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"pharmabot/internal/domain/users"
)

type UsersRepo struct {
	db *DB
}

func NewUsersRepo(db *DB) *UsersRepo {
	return &UsersRepo{db: db}
}

func (r *UsersRepo) Create(ctx context.Context, u users.User) error {
	_, err := r.db.exec(ctx, `
		INSERT INTO users (id, username, email, created_at)
		VALUES (?, ?, ?, ?)
	`, u.ID, u.Username, u.Email, toMillis(u.CreatedAt))
	if isUniqueViolation(err) {
		return users.ErrUsernameTaken
	}
	return err
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (users.User, error) {
	return r.getOne(ctx, `SELECT id, username, email, created_at FROM users WHERE id = ?`, strings.TrimSpace(id))
}

func (r *UsersRepo) GetByUsername(ctx context.Context, username string) (users.User, error) {
	return r.getOne(ctx, `SELECT id, username, email, created_at FROM users WHERE username = ?`, strings.TrimSpace(username))
}

func (r *UsersRepo) getOne(ctx context.Context, query string, arg string) (users.User, error) {
	if arg == "" {
		return users.User{}, users.ErrNotFound
	}

	var (
		u       users.User
		created int64
	)
	err := r.db.queryRow(ctx, query, arg).Scan(&u.ID, &u.Username, &u.Email, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return users.User{}, users.ErrNotFound
		}
		return users.User{}, err
	}
	u.CreatedAt = fromMillis(created)
	return u, nil
}
